// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package calc

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/f-block/archon/internal/ptable"
	"github.com/f-block/archon/pkg/types"
)

// forceField is the internal pairwise potential: harmonic bonds on the
// imposed graph plus an r^-12 repulsion between non-bonded pairs. It
// stands in for the UFF/MMFF class of methods during pre-optimization
// and keeps the pipeline testable without external binaries.
type forceField struct {
	name     string
	bondK    float64 // eV per Angstrom^2
	repEps   float64 // eV
	fmax     float64
	maxSteps int
}

const (
	uffBondK  = 15.0
	mmffBondK = 22.0
	repEps    = 0.08
	// repSigmaScale sets the repulsion onset relative to the covalent sum.
	repSigmaScale = 0.85
	// initialStep is the starting displacement scale in Angstrom^2/eV.
	initialStep = 0.01
	maxStep     = 0.05
)

func newForceField(method string, params types.Parameters) *forceField {
	params = params.Normalized()
	k := uffBondK
	name := types.MethodUFF
	if strings.Contains(strings.ToLower(method), "mmff") {
		k = mmffBondK
		name = types.MethodMMFF
	}
	return &forceField{
		name:     name,
		bondK:    k,
		repEps:   repEps,
		fmax:     params.FMax,
		maxSteps: params.MaxSteps,
	}
}

func (f *forceField) Name() string { return f.name }

func (f *forceField) SinglePoint(_ context.Context, sys System) (Result, error) {
	if len(sys.Atoms) == 0 {
		return Result{}, fmt.Errorf("%s: empty system", f.name)
	}
	e, _ := f.energyAndForces(sys)
	return Result{Atoms: clone(sys.Atoms), Energy: e, Converged: true}, nil
}

// Optimize runs adaptive steepest descent until the largest force
// component drops below fmax or max_steps is exhausted.
func (f *forceField) Optimize(ctx context.Context, sys System) (Result, error) {
	if len(sys.Atoms) == 0 {
		return Result{}, fmt.Errorf("%s: empty system", f.name)
	}

	atoms := clone(sys.Atoms)
	work := sys
	work.Atoms = atoms

	energy, forces := f.energyAndForces(work)
	step := initialStep

	for i := 0; i < f.maxSteps; i++ {
		if err := ctx.Err(); err != nil {
			return Result{Atoms: atoms, Energy: energy}, err
		}
		if maxForce(forces) <= f.fmax {
			return Result{Atoms: atoms, Energy: energy, Converged: true}, nil
		}

		trial := clone(atoms)
		for j := range trial {
			d := r3.Scale(step, forces[j])
			trial[j].X += d.X
			trial[j].Y += d.Y
			trial[j].Z += d.Z
		}
		work.Atoms = trial
		trialE, trialF := f.energyAndForces(work)

		if trialE < energy {
			atoms, energy, forces = trial, trialE, trialF
			step = math.Min(step*1.2, maxStep)
		} else {
			step /= 2
			if step < 1e-8 {
				break
			}
		}
	}

	return Result{Atoms: atoms, Energy: energy, Converged: maxForce(forces) <= f.fmax}, nil
}

// energyAndForces evaluates the potential and its negative gradient.
func (f *forceField) energyAndForces(sys System) (float64, []r3.Vec) {
	n := len(sys.Atoms)
	forces := make([]r3.Vec, n)
	energy := 0.0

	radii := make([]float64, n)
	for i, a := range sys.Atoms {
		radii[i] = ptable.CovalentRadius(a.Symbol, 0.7)
	}

	bonded := make(map[[2]int]bool, len(sys.Bonds))
	for _, b := range sys.Bonds {
		i, j := b[0], b[1]
		if i > j {
			i, j = j, i
		}
		bonded[[2]int{i, j}] = true
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := r3.Sub(sys.Atoms[j].Position(), sys.Atoms[i].Position())
			r := r3.Norm(d)
			if r < 1e-6 {
				r = 1e-6
			}
			unit := r3.Scale(1/r, d)

			if bonded[[2]int{i, j}] {
				r0 := radii[i] + radii[j]
				dr := r - r0
				energy += f.bondK * dr * dr
				// Force on j points back toward r0.
				fmag := -2 * f.bondK * dr
				forces[j] = r3.Add(forces[j], r3.Scale(fmag, unit))
				forces[i] = r3.Sub(forces[i], r3.Scale(fmag, unit))
			} else {
				sigma := repSigmaScale * (radii[i] + radii[j])
				sr := sigma / r
				e := f.repEps * math.Pow(sr, 12)
				energy += e
				fmag := 12 * e / r
				forces[j] = r3.Add(forces[j], r3.Scale(fmag, unit))
				forces[i] = r3.Sub(forces[i], r3.Scale(fmag, unit))
			}
		}
	}

	return energy, forces
}

func maxForce(forces []r3.Vec) float64 {
	m := 0.0
	for _, f := range forces {
		if n := r3.Norm(f); n > m {
			m = n
		}
	}
	return m
}

func clone(atoms []types.Atom) []types.Atom {
	out := make([]types.Atom, len(atoms))
	copy(out, atoms)
	return out
}
