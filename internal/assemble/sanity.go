// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assemble

import (
	"fmt"
	"math"

	"github.com/f-block/archon/internal/ptable"
	"github.com/f-block/archon/pkg/types"
)

// Failure reason prefixes, stable for downstream matching.
const (
	ReasonCollision  = "collision"
	ReasonElongated  = "elongated"
	ReasonDissociate = "dissociated"
)

// CheckSet holds the distance criteria for one sanity pass. All cutoffs
// are multiples of the pairwise covalent radius sum.
type CheckSet struct {
	Enabled bool

	// GraphCutoff flags imposed bonds stretched beyond this multiple.
	GraphCutoff float64
	// SmallestDist flags any atom pair closer than this multiple.
	SmallestDist float64
	// MinDist flags atoms whose nearest neighbor exceeds this multiple.
	MinDist float64
}

// AssemblyChecks returns the loose criteria applied to raw assemblies.
func AssemblyChecks(p types.Parameters) CheckSet {
	p = p.Normalized()
	return CheckSet{
		Enabled:      p.AssembleSanityChecks == nil || *p.AssembleSanityChecks,
		GraphCutoff:  p.AssembleGraphSanityCutoff,
		SmallestDist: p.AssembleSmallestDistCutoff,
		MinDist:      p.AssembleMinDistCutoff,
	}
}

// FullChecks returns the tighter criteria applied after relaxation.
func FullChecks(p types.Parameters) CheckSet {
	p = p.Normalized()
	return CheckSet{
		Enabled:      p.FullSanityChecks == nil || *p.FullSanityChecks,
		GraphCutoff:  p.FullGraphSanityCutoff,
		SmallestDist: p.FullSmallestDistCutoff,
		MinDist:      p.FullMinDistCutoff,
	}
}

// Check runs the distance criteria against a structure and returns one
// reason string per failure. A nil return means the structure passed.
func (cs CheckSet) Check(atoms []types.Atom, bonds [][2]int) []string {
	if !cs.Enabled || len(atoms) < 2 {
		return nil
	}

	radii := make([]float64, len(atoms))
	for i, a := range atoms {
		radii[i] = ptable.CovalentRadius(a.Symbol, 0.7)
	}

	var reasons []string

	nearest := make([]float64, len(atoms))
	for i := range nearest {
		nearest[i] = math.Inf(1)
	}
	for i := 0; i < len(atoms); i++ {
		for j := i + 1; j < len(atoms); j++ {
			ratio := dist(atoms[i], atoms[j]) / (radii[i] + radii[j])
			if ratio < cs.SmallestDist {
				reasons = append(reasons, fmt.Sprintf("%s: %s%d-%s%d at %.2f of covalent sum",
					ReasonCollision, atoms[i].Symbol, i, atoms[j].Symbol, j, ratio))
			}
			if ratio < nearest[i] {
				nearest[i] = ratio
			}
			if ratio < nearest[j] {
				nearest[j] = ratio
			}
		}
	}

	for i, n := range nearest {
		if n > cs.MinDist {
			reasons = append(reasons, fmt.Sprintf("%s: %s%d nearest neighbor at %.2f of covalent sum",
				ReasonDissociate, atoms[i].Symbol, i, n))
		}
	}

	for _, b := range bonds {
		i, j := b[0], b[1]
		if i < 0 || j < 0 || i >= len(atoms) || j >= len(atoms) {
			continue
		}
		ratio := dist(atoms[i], atoms[j]) / (radii[i] + radii[j])
		if ratio > cs.GraphCutoff {
			reasons = append(reasons, fmt.Sprintf("%s: bond %s%d-%s%d at %.2f of covalent sum",
				ReasonElongated, atoms[i].Symbol, i, atoms[j].Symbol, j, ratio))
		}
	}

	return reasons
}

func dist(a, b types.Atom) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
