// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package screen filters evaluated conformers down to the returned set:
// sanity and convergence gates, duplicate removal, and energy ranking.
package screen

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/f-block/archon/internal/geometry"
	"github.com/f-block/archon/pkg/types"
)

// energyWindow is the rounding window (eV) inside which two structures
// are energy-degenerate for duplicate detection.
const energyWindow = 0.01

// Summary reports what happened to the batch, in the counts diagnosis
// reasons about.
type Summary struct {
	Input             int
	SanityFailed      int
	ConvergenceFailed int
	DuplicatesRemoved int
	Returned          int

	// FailureReasons counts sanity failures by reason kind (the prefix
	// before the colon).
	FailureReasons map[string]int
}

// Select applies the gates and returns up to n_conformers survivors,
// lowest energy first.
func Select(confs []*types.Conformer, params types.Parameters) ([]*types.Conformer, Summary) {
	params = params.Normalized()
	sum := Summary{Input: len(confs), FailureReasons: map[string]int{}}

	var survivors []*types.Conformer
	for _, c := range confs {
		if !c.Sane {
			sum.SanityFailed++
			for _, r := range c.SanityFailures {
				sum.FailureReasons[reasonKind(r)]++
			}
			continue
		}
		if !c.Converged && !params.ForceGeneration {
			sum.ConvergenceFailed++
			continue
		}
		if c.Energy >= types.FailedEnergy {
			sum.ConvergenceFailed++
			continue
		}
		survivors = append(survivors, c)
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Energy < survivors[j].Energy
	})

	deduped := dedup(survivors, params.DuplicateRMSDCutoff)
	sum.DuplicatesRemoved = len(survivors) - len(deduped)

	if len(deduped) > params.NConformers {
		deduped = deduped[:params.NConformers]
	}
	sum.Returned = len(deduped)
	return deduped, sum
}

// dedup drops structures that duplicate an already-kept one: degenerate
// in energy and within the RMSD cutoff after superposition. Input must
// be sorted by energy so the lowest representative survives.
func dedup(confs []*types.Conformer, rmsdCutoff float64) []*types.Conformer {
	var kept []*types.Conformer
	for _, c := range confs {
		dup := false
		for _, k := range kept {
			if math.Abs(c.Energy-k.Energy) > energyWindow {
				continue
			}
			if rmsd, err := superposedRMSD(c, k); err == nil && rmsd < rmsdCutoff {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, c)
		}
	}
	return kept
}

func superposedRMSD(a, b *types.Conformer) (float64, error) {
	pa := positions(a)
	pb := positions(b)
	_, rmsd, err := geometry.Superpose(pa, pb)
	return rmsd, err
}

func positions(c *types.Conformer) []r3.Vec {
	out := make([]r3.Vec, len(c.Atoms))
	for i, a := range c.Atoms {
		out[i] = a.Position()
	}
	return out
}

func reasonKind(reason string) string {
	if i := strings.Index(reason, ":"); i > 0 {
		return reason[:i]
	}
	return reason
}
