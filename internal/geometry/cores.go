// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package geometry provides coordination-core geometries and rigid-body
// alignment. Cores are unit-vector site sets around a metal at the
// origin; ligand binding modes map to allowed site combinations derived
// from inter-site angles.
package geometry

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/f-block/archon/pkg/types"
)

// Core is a named coordination geometry. Sites are unit vectors from the
// metal center. For geometries with a trans axial pair, sites 0 and 1 are
// that pair; forced trans oxo placement relies on this ordering.
type Core struct {
	Name  string
	CN    int
	Sites []r3.Vec

	ligMap map[types.LigandType][][]int
}

// Combinations returns the site-index combinations a ligand of the given
// binding mode may occupy on this core. The result is nil when the mode
// cannot be mapped.
func (c Core) Combinations(t types.LigandType) [][]int {
	return c.ligMap[t]
}

// Angle returns the angle in degrees between two sites.
func (c Core) Angle(i, j int) float64 {
	d := r3.Dot(c.Sites[i], c.Sites[j])
	d = math.Max(-1, math.Min(1, d))
	return math.Acos(d) * 180 / math.Pi
}

var (
	cos30 = math.Sqrt(3) / 2
	sin72 = math.Sin(72 * math.Pi / 180)
	cos72 = math.Cos(72 * math.Pi / 180)
	sin36 = math.Sin(36 * math.Pi / 180)
	cos36 = math.Cos(36 * math.Pi / 180)

	// Basal sites of the square pyramid dip 5 degrees below the equator.
	sin5 = math.Sin(5 * math.Pi / 180)
	cos5 = math.Cos(5 * math.Pi / 180)
)

var registry = func() map[string]Core {
	tet := 1 / math.Sqrt(3)
	prismH := 0.6547 // tan half-height giving ~76 degree intra-triangle angles
	prismR := math.Sqrt(1 - prismH*prismH)

	cores := []Core{
		{Name: "linear", CN: 2, Sites: []r3.Vec{
			{Z: 1}, {Z: -1},
		}},
		{Name: "trigonal_planar", CN: 3, Sites: []r3.Vec{
			{X: 1}, {X: -0.5, Y: cos30}, {X: -0.5, Y: -cos30},
		}},
		{Name: "tetrahedral", CN: 4, Sites: []r3.Vec{
			{X: tet, Y: tet, Z: tet}, {X: -tet, Y: -tet, Z: tet},
			{X: -tet, Y: tet, Z: -tet}, {X: tet, Y: -tet, Z: -tet},
		}},
		{Name: "square_planar", CN: 4, Sites: []r3.Vec{
			{X: 1}, {X: -1}, {Y: 1}, {Y: -1},
		}},
		{Name: "trigonal_bipyramidal", CN: 5, Sites: []r3.Vec{
			{Z: 1}, {Z: -1},
			{X: 1}, {X: -0.5, Y: cos30}, {X: -0.5, Y: -cos30},
		}},
		{Name: "square_pyramidal", CN: 5, Sites: []r3.Vec{
			{X: cos5, Z: -sin5}, {X: -cos5, Z: -sin5},
			{Y: cos5, Z: -sin5}, {Y: -cos5, Z: -sin5},
			{Z: 1},
		}},
		{Name: "octahedral", CN: 6, Sites: []r3.Vec{
			{Z: 1}, {Z: -1},
			{X: 1}, {X: -1}, {Y: 1}, {Y: -1},
		}},
		{Name: "trigonal_prismatic", CN: 6, Sites: []r3.Vec{
			{X: prismR, Z: prismH}, {X: -prismR * 0.5, Y: prismR * cos30, Z: prismH}, {X: -prismR * 0.5, Y: -prismR * cos30, Z: prismH},
			{X: prismR, Z: -prismH}, {X: -prismR * 0.5, Y: prismR * cos30, Z: -prismH}, {X: -prismR * 0.5, Y: -prismR * cos30, Z: -prismH},
		}},
		{Name: "pentagonal_bipyramidal", CN: 7, Sites: []r3.Vec{
			{Z: 1}, {Z: -1},
			{X: 1}, {X: cos72, Y: sin72}, {X: -cos36, Y: sin36},
			{X: -cos36, Y: -sin36}, {X: cos72, Y: -sin72},
		}},
	}

	m := make(map[string]Core, len(cores))
	for _, c := range cores {
		c.ligMap = buildLigMap(c)
		m[c.Name] = c
	}
	return m
}()

// defaultByCN maps a coordination number to its default geometry.
var defaultByCN = map[int]string{
	2: "linear",
	3: "trigonal_planar",
	4: "tetrahedral",
	5: "trigonal_bipyramidal",
	6: "octahedral",
	7: "pentagonal_bipyramidal",
}

// ByName returns the named core geometry.
func ByName(name string) (Core, error) {
	c, ok := registry[name]
	if !ok {
		return Core{}, fmt.Errorf("unknown core geometry %q (known: %v)", name, Names())
	}
	return c, nil
}

// ByCN returns the default geometry for a coordination number.
func ByCN(cn int) (Core, error) {
	name, ok := defaultByCN[cn]
	if !ok {
		return Core{}, fmt.Errorf("no default geometry for coordination number %d", cn)
	}
	return registry[name], nil
}

// Names lists the registered geometries in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Angle windows (degrees) classifying site combinations per binding mode.
const (
	biteMinAngle  = 45.0
	biteMaxAngle  = 120.0
	facMaxAngle   = 125.0
	transMinAngle = 155.0
)

// buildLigMap derives the allowed site combinations for each binding
// mode from the core's inter-site angles: bidentates span one bite-angle
// pair, facial tridentates three mutually adjacent sites, meridional
// tridentates include one trans pair, tetradentates a coplanar quad.
func buildLigMap(c Core) map[types.LigandType][][]int {
	n := len(c.Sites)
	m := make(map[types.LigandType][][]int)

	angle := func(i, j int) float64 { return c.Angle(i, j) }

	var pairs [][]int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a := angle(i, j)
			if a >= biteMinAngle && a <= biteMaxAngle {
				pairs = append(pairs, []int{i, j})
			}
		}
	}
	if len(pairs) > 0 {
		m[types.LigBidentate] = pairs
	}

	var fac, mer [][]int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for k := j + 1; k < n; k++ {
				a1, a2, a3 := angle(i, j), angle(i, k), angle(j, k)
				maxA := math.Max(a1, math.Max(a2, a3))
				if maxA <= facMaxAngle {
					fac = append(fac, []int{i, j, k})
				}
				nTrans := 0
				for _, a := range []float64{a1, a2, a3} {
					if a >= transMinAngle {
						nTrans++
					}
				}
				if nTrans == 1 && maxA >= transMinAngle {
					others := []float64{}
					for _, a := range []float64{a1, a2, a3} {
						if a < transMinAngle {
							others = append(others, a)
						}
					}
					ok := true
					for _, a := range others {
						if a > facMaxAngle {
							ok = false
						}
					}
					if ok {
						mer = append(mer, []int{i, j, k})
					}
				}
			}
		}
	}
	if len(fac) > 0 {
		m[types.LigTridentateFac] = fac
		m[types.LigSandwich] = fac
	}
	if len(mer) > 0 {
		m[types.LigTridentateMer] = mer
	}

	var quads [][]int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for k := j + 1; k < n; k++ {
				for l := k + 1; l < n; l++ {
					if coplanar(c.Sites[i], c.Sites[j], c.Sites[k], c.Sites[l]) {
						quads = append(quads, []int{i, j, k, l})
					}
				}
			}
		}
	}
	if len(quads) > 0 {
		m[types.LigTetradentate] = quads
	}

	return m
}

// coplanar reports whether four unit vectors (and the origin) lie in one
// plane, the arrangement planar tetradentates need.
func coplanar(a, b, c, d r3.Vec) bool {
	normal := r3.Cross(a, b)
	if r3.Norm(normal) < 1e-6 {
		normal = r3.Cross(a, c)
	}
	if r3.Norm(normal) < 1e-6 {
		return false
	}
	normal = r3.Unit(normal)
	const tol = 1e-3
	for _, v := range []r3.Vec{a, b, c, d} {
		if math.Abs(r3.Dot(normal, v)) > tol {
			return false
		}
	}
	return true
}
