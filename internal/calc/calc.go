// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package calc evaluates candidate structures: single-point energies and
// geometry relaxation through the external xtb binary or an internal
// pairwise force field, with the charge bookkeeping and failure handling
// the pipeline depends on.
package calc

import (
	"context"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/f-block/archon/internal/ptable"
	"github.com/f-block/archon/internal/toolchain"
	"github.com/f-block/archon/pkg/types"
)

// System is the structure a Calculator evaluates.
type System struct {
	Atoms  []types.Atom
	Bonds  [][2]int
	Charge int
	Spin   int
}

// Result is one evaluation outcome. Energy is in eV; Atoms carries the
// relaxed geometry after Optimize and echoes the input after SinglePoint.
type Result struct {
	Atoms     []types.Atom
	Energy    float64
	Converged bool
}

// Calculator computes energies for one level of theory.
type Calculator interface {
	Name() string
	SinglePoint(ctx context.Context, sys System) (Result, error)
	Optimize(ctx context.Context, sys System) (Result, error)
}

// New builds the Calculator for a level of theory. GFN methods need the
// xtb binary; UFF/MMFF run on the internal force field.
func New(method string, params types.Parameters, tool toolchain.Tool) (Calculator, error) {
	switch {
	case IsGFN(method):
		if tool == nil {
			return nil, fmt.Errorf("method %s needs the xtb binary", method)
		}
		return newXTB(method, params, tool), nil
	case isForceField(method):
		return newForceField(method, params), nil
	default:
		return nil, fmt.Errorf("unknown method %q", method)
	}
}

// IsGFN reports whether the method is a tight-binding level of theory
// served by the xtb binary. It matches any spelling containing "gfn".
func IsGFN(method string) bool {
	return strings.Contains(strings.ToLower(method), "gfn")
}

func isForceField(method string) bool {
	m := strings.ToLower(method)
	return strings.Contains(m, "uff") || strings.Contains(m, "mmff")
}

// XTBCharge returns the total charge xtb's parameterization can
// represent. xtb treats lanthanide and actinide centers as trivalent, so
// higher formal oxidation states fold their excess into the ligand
// framework and the representable charge drops accordingly.
func XTBCharge(atoms []types.Atom, formalCharge, oxState int) int {
	if len(atoms) == 0 {
		return formalCharge
	}
	sym := atoms[0].Symbol
	if (ptable.IsLanthanide(sym) || ptable.IsActinide(sym)) && oxState > 3 {
		return formalCharge - (oxState - 3)
	}
	return formalCharge
}

// bondPerceptionFactor scales covalent radius sums when inferring
// connectivity from raw coordinates.
const bondPerceptionFactor = 1.25

// PerceiveBonds infers a bond list from interatomic distances for
// structures loaded without connectivity, such as plain XYZ files. Two
// atoms are bonded when their distance is below the scaled sum of their
// covalent radii.
func PerceiveBonds(atoms []types.Atom) [][2]int {
	var bonds [][2]int
	for i := 0; i < len(atoms); i++ {
		ri := ptable.CovalentRadius(atoms[i].Symbol, 0.7)
		for j := i + 1; j < len(atoms); j++ {
			rj := ptable.CovalentRadius(atoms[j].Symbol, 0.7)
			d := r3.Norm(r3.Sub(atoms[i].Position(), atoms[j].Position()))
			if d < bondPerceptionFactor*(ri+rj) {
				bonds = append(bonds, [2]int{i, j})
			}
		}
	}
	return bonds
}
