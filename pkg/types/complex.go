// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data model for the generation pipeline:
// complex requests, ligands, generation parameters, and conformer records.
package types

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Atom is a single atom with Cartesian coordinates in Angstrom.
type Atom struct {
	Symbol string  `json:"symbol" yaml:"symbol"`
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Z      float64 `json:"z" yaml:"z"`
}

// Position returns the atom's coordinates as a vector.
func (a Atom) Position() r3.Vec {
	return r3.Vec{X: a.X, Y: a.Y, Z: a.Z}
}

// NewAtom builds an Atom from a symbol and position vector.
func NewAtom(symbol string, p r3.Vec) Atom {
	return Atom{Symbol: symbol, X: p.X, Y: p.Y, Z: p.Z}
}

// LigandType classifies how a ligand binds to the metal center. The type
// selects which core-site combinations the ligand may occupy.
type LigandType string

const (
	LigMonodentate   LigandType = "mono"
	LigBidentate     LigandType = "bidentate"
	LigTridentateFac LigandType = "tridentate_fac"
	LigTridentateMer LigandType = "tridentate_mer"
	LigTetradentate  LigandType = "tetradentate"
	LigSandwich      LigandType = "sandwich"
)

// Ligand describes one ligand of a complex as a coordinate template.
// Donor atoms are indices into Atoms; the template is positioned on the
// core during assembly. ForcedSites pins donors to exact core sites.
type Ligand struct {
	// Name identifies the ligand ("aqua", "oxo", custom names).
	Name string `json:"name" yaml:"name"`

	// Type classifies the binding mode.
	Type LigandType `json:"type" yaml:"type"`

	// Atoms holds the template geometry in the ligand's local frame:
	// donors near the origin, body extending toward +z.
	Atoms []Atom `json:"atoms" yaml:"atoms"`

	// Donors are indices into Atoms of the metal-coordinating atoms.
	Donors []int `json:"donors" yaml:"donors"`

	// Bonds are index pairs into Atoms for the ligand's internal bonds.
	Bonds [][2]int `json:"bonds,omitempty" yaml:"bonds,omitempty"`

	// Charge is the ligand's formal charge.
	Charge int `json:"charge" yaml:"charge"`

	// ForcedSites pins donor atoms to specific core site indices. When
	// set, its length must equal len(Donors).
	ForcedSites []int `json:"forced_sites,omitempty" yaml:"forced_sites,omitempty"`
}

// Denticity returns the number of donor atoms.
func (l Ligand) Denticity() int { return len(l.Donors) }

// IsOxo reports whether the ligand is a bare oxo (O2-) donor, the case
// force_trans_oxos applies to.
func (l Ligand) IsOxo() bool {
	return len(l.Atoms) == 1 && l.Atoms[0].Symbol == "O" && l.Charge == -2
}

// Fingerprint returns a string identifying chemically identical ligands.
// Repeated ligands with equal fingerprints are grouped during symmetry
// enumeration.
func (l Ligand) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%d|%d|%d|%v", l.Name, l.Type, len(l.Atoms), len(l.Donors), l.Charge, l.ForcedSites)
}

// Validate checks internal consistency of the ligand definition.
func (l Ligand) Validate() error {
	if len(l.Atoms) == 0 {
		return fmt.Errorf("ligand %s: no atoms", l.Name)
	}
	if len(l.Donors) == 0 {
		return fmt.Errorf("ligand %s: no donor atoms", l.Name)
	}
	for _, d := range l.Donors {
		if d < 0 || d >= len(l.Atoms) {
			return fmt.Errorf("ligand %s: donor index %d out of range", l.Name, d)
		}
	}
	for _, b := range l.Bonds {
		if b[0] < 0 || b[0] >= len(l.Atoms) || b[1] < 0 || b[1] >= len(l.Atoms) {
			return fmt.Errorf("ligand %s: bond %v out of range", l.Name, b)
		}
	}
	if len(l.ForcedSites) > 0 && len(l.ForcedSites) != len(l.Donors) {
		return fmt.Errorf("ligand %s: %d forced sites for %d donors", l.Name, len(l.ForcedSites), len(l.Donors))
	}
	return nil
}

// ComplexRequest is the user-facing description of the complex to build:
// the metal center, the target coordination environment, the ligand set,
// and the generation parameters.
type ComplexRequest struct {
	// Metal is the chemical symbol of the center (e.g. "Fe", "U").
	Metal string `json:"metal" yaml:"metal"`

	// OxidationState is the metal's formal oxidation state.
	OxidationState int `json:"oxidation_state" yaml:"oxidation_state"`

	// CoreCN is the coordination number. Ignored when CoreGeometry is set.
	CoreCN int `json:"core_cn,omitempty" yaml:"core_cn,omitempty"`

	// CoreGeometry names the coordination geometry ("octahedral", ...).
	// Empty selects the default geometry for CoreCN.
	CoreGeometry string `json:"core_geometry,omitempty" yaml:"core_geometry,omitempty"`

	// Ligands lists the ligands to place. Under-coordinated requests are
	// filled with the fill ligand; over-coordination is an error.
	Ligands []Ligand `json:"ligands" yaml:"ligands"`

	// Parameters tunes generation. Zero values take documented defaults.
	Parameters Parameters `json:"parameters" yaml:"parameters"`
}

// TotalCharge returns the charge over the declared ligand set:
// oxidation state plus ligand charges. Fill ligands are not part of the
// request; assembly recomputes the charge over the placed ligand list.
// Parameters.FullCharge overrides it when set.
func (r ComplexRequest) TotalCharge() int {
	if r.Parameters.FullCharge != nil {
		return *r.Parameters.FullCharge
	}
	q := r.OxidationState
	for _, l := range r.Ligands {
		q += l.Charge
	}
	return q
}

// Validate checks the request for structural problems before generation.
func (r ComplexRequest) Validate() error {
	if r.Metal == "" {
		return fmt.Errorf("request: no metal center")
	}
	if r.CoreCN <= 0 && r.CoreGeometry == "" {
		return fmt.Errorf("request: core_cn or core_geometry required")
	}
	for _, l := range r.Ligands {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("request: %w", err)
		}
	}
	return nil
}
