// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// builtinLigands holds coordinate templates for common ligands. Donors
// sit at or near the local origin with the ligand body toward +z, the
// convention assembly uses when orienting templates onto core sites.
var builtinLigands = map[string]Ligand{
	"aqua": {
		Name: "aqua",
		Type: LigMonodentate,
		Atoms: []Atom{
			{Symbol: "O"},
			{Symbol: "H", X: 0.757, Z: 0.586},
			{Symbol: "H", X: -0.757, Z: 0.586},
		},
		Donors: []int{0},
		Bonds:  [][2]int{{0, 1}, {0, 2}},
		Charge: 0,
	},
	"hydroxo": {
		Name: "hydroxo",
		Type: LigMonodentate,
		Atoms: []Atom{
			{Symbol: "O"},
			{Symbol: "H", Z: 0.97},
		},
		Donors: []int{0},
		Bonds:  [][2]int{{0, 1}},
		Charge: -1,
	},
	"oxo": {
		Name:   "oxo",
		Type:   LigMonodentate,
		Atoms:  []Atom{{Symbol: "O"}},
		Donors: []int{0},
		Charge: -2,
	},
	"chloro": {
		Name:   "chloro",
		Type:   LigMonodentate,
		Atoms:  []Atom{{Symbol: "Cl"}},
		Donors: []int{0},
		Charge: -1,
	},
	"ammine": {
		Name: "ammine",
		Type: LigMonodentate,
		Atoms: []Atom{
			{Symbol: "N"},
			{Symbol: "H", X: 0.959, Z: 0.339},
			{Symbol: "H", X: -0.480, Y: 0.831, Z: 0.339},
			{Symbol: "H", X: -0.480, Y: -0.831, Z: 0.339},
		},
		Donors: []int{0},
		Bonds:  [][2]int{{0, 1}, {0, 2}, {0, 3}},
		Charge: 0,
	},
	"en": {
		Name: "en",
		Type: LigBidentate,
		Atoms: []Atom{
			{Symbol: "N", X: -1.40},
			{Symbol: "N", X: 1.40},
			{Symbol: "C", X: -0.76, Z: 0.95},
			{Symbol: "C", X: 0.76, Z: 0.95},
			{Symbol: "H", X: -1.90, Y: 0.81, Z: 0.30},
			{Symbol: "H", X: -1.90, Y: -0.81, Z: 0.30},
			{Symbol: "H", X: 1.90, Y: 0.81, Z: 0.30},
			{Symbol: "H", X: 1.90, Y: -0.81, Z: 0.30},
			{Symbol: "H", X: -0.85, Y: 0.88, Z: 1.55},
			{Symbol: "H", X: -0.85, Y: -0.88, Z: 1.55},
			{Symbol: "H", X: 0.85, Y: 0.88, Z: 1.55},
			{Symbol: "H", X: 0.85, Y: -0.88, Z: 1.55},
		},
		Donors: []int{0, 1},
		Bonds: [][2]int{
			{0, 2}, {2, 3}, {3, 1},
			{0, 4}, {0, 5}, {1, 6}, {1, 7},
			{2, 8}, {2, 9}, {3, 10}, {3, 11},
		},
		Charge: 0,
	},
}

// BuiltinLigand returns a copy of a named builtin ligand template.
func BuiltinLigand(name string) (Ligand, error) {
	l, ok := builtinLigands[name]
	if !ok {
		return Ligand{}, fmt.Errorf("unknown builtin ligand %q", name)
	}
	out := l
	out.Atoms = append([]Atom(nil), l.Atoms...)
	out.Donors = append([]int(nil), l.Donors...)
	out.Bonds = append([][2]int(nil), l.Bonds...)
	return out, nil
}

// BuiltinLigandNames lists the available builtin templates.
func BuiltinLigandNames() []string {
	names := make([]string, 0, len(builtinLigands))
	for n := range builtinLigands {
		names = append(names, n)
	}
	return names
}
