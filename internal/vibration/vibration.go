// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vibration computes harmonic vibrational modes from a
// finite-difference Hessian and derives IGRRHO thermochemistry.
package vibration

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/f-block/archon/internal/calc"
	"github.com/f-block/archon/internal/ptable"
	"github.com/f-block/archon/pkg/types"
)

// freqPerSqrtEig converts sqrt(eV / (amu Angstrom^2)) eigenvalue roots
// to wavenumbers in cm^-1.
const freqPerSqrtEig = 521.47

// DefaultStep is the finite-difference displacement in Angstrom.
const DefaultStep = 0.005

// ModeStyle selects the scaling of returned mode displacements.
type ModeStyle string

const (
	// ModeDirect is the unit-norm mass-weighted eigenvector (unitless).
	ModeDirect ModeStyle = "direct"
	// ModeMassWeighted is the Cartesian displacement l = v / sqrt(m),
	// in 1/sqrt(amu). This is the stored default.
	ModeMassWeighted ModeStyle = "mass_weighted_unnormalized"
	// ModeNormalized is the Cartesian displacement rescaled to unit
	// norm (unitless).
	ModeNormalized ModeStyle = "mass_weighted_normalized"
)

// Mode is one normal mode. A negative Frequency marks an imaginary
// mode (a saddle-point direction).
type Mode struct {
	// Frequency in cm^-1.
	Frequency float64 `json:"frequency" yaml:"frequency"`

	// ReducedMass in amu.
	ReducedMass float64 `json:"reduced_mass" yaml:"reduced_mass"`

	// ForceConstant in eV/Angstrom^2.
	ForceConstant float64 `json:"force_constant" yaml:"force_constant"`

	// Displacements is the Cartesian mode vector in ModeMassWeighted
	// scaling, one entry per atom.
	Displacements []r3.Vec `json:"-" yaml:"-"`
}

// Analysis holds the normal modes of one structure, lowest frequency
// first (imaginary modes sort before real ones).
type Analysis struct {
	Atoms []types.Atom
	Modes []Mode
}

// Hessian builds the 3N x 3N second-derivative matrix (eV/Angstrom^2)
// by central finite differences of single-point energies.
func Hessian(ctx context.Context, c calc.Calculator, sys calc.System, step float64) (*mat.SymDense, error) {
	if step <= 0 {
		step = DefaultStep
	}
	n := 3 * len(sys.Atoms)
	if n == 0 {
		return nil, fmt.Errorf("vibration: empty system")
	}

	energyAt := func(displacements map[int]float64) (float64, error) {
		displaced := sys
		displaced.Atoms = make([]types.Atom, len(sys.Atoms))
		copy(displaced.Atoms, sys.Atoms)
		for idx, d := range displacements {
			applyShift(displaced.Atoms, idx, d)
		}
		res, err := c.SinglePoint(ctx, displaced)
		if err != nil {
			return 0, err
		}
		return res.Energy, nil
	}

	e0, err := energyAt(nil)
	if err != nil {
		return nil, fmt.Errorf("vibration: reference energy: %w", err)
	}

	h := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ePlus, err := energyAt(map[int]float64{i: step})
		if err != nil {
			return nil, fmt.Errorf("vibration: displacement %d: %w", i, err)
		}
		eMinus, err := energyAt(map[int]float64{i: -step})
		if err != nil {
			return nil, fmt.Errorf("vibration: displacement %d: %w", i, err)
		}
		h.SetSym(i, i, (ePlus+eMinus-2*e0)/(step*step))

		for j := i + 1; j < n; j++ {
			epp, err := energyAt(map[int]float64{i: step, j: step})
			if err != nil {
				return nil, err
			}
			emm, err := energyAt(map[int]float64{i: -step, j: -step})
			if err != nil {
				return nil, err
			}
			epm, err := energyAt(map[int]float64{i: step, j: -step})
			if err != nil {
				return nil, err
			}
			emp, err := energyAt(map[int]float64{i: -step, j: step})
			if err != nil {
				return nil, err
			}
			h.SetSym(i, j, (epp+emm-epm-emp)/(4*step*step))
		}
	}
	return h, nil
}

// Analyze mass-weights the Hessian, diagonalizes it, and converts the
// eigensystem into normal modes.
func Analyze(atoms []types.Atom, hess *mat.SymDense) (*Analysis, error) {
	n := 3 * len(atoms)
	if r, _ := hess.Dims(); r != n {
		return nil, fmt.Errorf("vibration: hessian is %dx%d for %d atoms", r, r, len(atoms))
	}

	masses := make([]float64, len(atoms))
	for i, a := range atoms {
		m, err := ptable.Mass(a.Symbol)
		if err != nil {
			return nil, fmt.Errorf("vibration: %w", err)
		}
		masses[i] = m
	}

	// Mass-weighted Hessian: F_ij = H_ij / sqrt(m_i m_j).
	mw := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			mw.SetSym(i, j, hess.At(i, j)/math.Sqrt(masses[i/3]*masses[j/3]))
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(mw, true); !ok {
		return nil, fmt.Errorf("vibration: eigendecomposition failed")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	modes := make([]Mode, n)
	for k := 0; k < n; k++ {
		freq := freqPerSqrtEig * math.Sqrt(math.Abs(vals[k]))
		if vals[k] < 0 {
			freq = -freq
		}

		// Cartesian displacements and reduced mass from the
		// mass-weighted eigenvector.
		disp := make([]r3.Vec, len(atoms))
		sumSq := 0.0
		for a := range atoms {
			v := r3.Vec{
				X: vecs.At(3*a, k) / math.Sqrt(masses[a]),
				Y: vecs.At(3*a+1, k) / math.Sqrt(masses[a]),
				Z: vecs.At(3*a+2, k) / math.Sqrt(masses[a]),
			}
			disp[a] = v
			sumSq += v.X*v.X + v.Y*v.Y + v.Z*v.Z
		}
		redMass := 0.0
		if sumSq > 0 {
			redMass = 1 / sumSq
		}

		modes[k] = Mode{
			Frequency:     freq,
			ReducedMass:   redMass,
			ForceConstant: math.Abs(vals[k]) * redMass,
			Displacements: disp,
		}
	}

	return &Analysis{Atoms: atoms, Modes: modes}, nil
}

// ModeDisplacements returns mode k's displacement vectors in the
// requested scaling. ModeDirect recovers the mass-weighted eigenvector,
// ModeNormalized rescales the Cartesian vector to unit norm.
func (a *Analysis) ModeDisplacements(k int, style ModeStyle) ([]r3.Vec, error) {
	if k < 0 || k >= len(a.Modes) {
		return nil, fmt.Errorf("vibration: mode %d out of range", k)
	}
	m := a.Modes[k]
	out := make([]r3.Vec, len(m.Displacements))
	switch style {
	case ModeMassWeighted:
		copy(out, m.Displacements)
	case ModeDirect:
		for i, v := range m.Displacements {
			mass, err := ptable.Mass(a.Atoms[i].Symbol)
			if err != nil {
				return nil, fmt.Errorf("vibration: %w", err)
			}
			out[i] = r3.Scale(math.Sqrt(mass), v)
		}
	case ModeNormalized:
		scale := math.Sqrt(m.ReducedMass)
		for i, v := range m.Displacements {
			out[i] = r3.Scale(scale, v)
		}
	default:
		return nil, fmt.Errorf("vibration: unknown mode style %q", style)
	}
	return out, nil
}

// VibrationalModes returns the modes with the translational and
// rotational block removed: the 3N-6 (3N-5 linear, 3N-3 monatomic)
// highest-magnitude modes.
func (a *Analysis) VibrationalModes() []Mode {
	skip := 6
	switch {
	case len(a.Atoms) == 1:
		skip = 3
	case isLinear(a.Atoms):
		skip = 5
	}
	if skip >= len(a.Modes) {
		return nil
	}

	// Modes are sorted ascending by eigenvalue; the trans/rot block
	// sits nearest zero. Drop the smallest-|freq| modes.
	idx := make([]int, len(a.Modes))
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < len(idx); i++ {
		for j := i + 1; j < len(idx); j++ {
			if math.Abs(a.Modes[idx[j]].Frequency) < math.Abs(a.Modes[idx[i]].Frequency) {
				idx[i], idx[j] = idx[j], idx[i]
			}
		}
	}

	keep := make([]Mode, 0, len(a.Modes)-skip)
	for _, i := range idx[skip:] {
		keep = append(keep, a.Modes[i])
	}
	// Restore ascending frequency order.
	for i := 0; i < len(keep); i++ {
		for j := i + 1; j < len(keep); j++ {
			if keep[j].Frequency < keep[i].Frequency {
				keep[i], keep[j] = keep[j], keep[i]
			}
		}
	}
	return keep
}

// HasImaginary reports whether any vibrational mode is imaginary.
func (a *Analysis) HasImaginary() bool {
	for _, m := range a.VibrationalModes() {
		if m.Frequency < 0 {
			return true
		}
	}
	return false
}

func applyShift(atoms []types.Atom, flatIdx int, d float64) {
	a := flatIdx / 3
	switch flatIdx % 3 {
	case 0:
		atoms[a].X += d
	case 1:
		atoms[a].Y += d
	default:
		atoms[a].Z += d
	}
}

// isLinear checks collinearity of all atoms.
func isLinear(atoms []types.Atom) bool {
	if len(atoms) < 3 {
		return true
	}
	axis := r3.Sub(atoms[1].Position(), atoms[0].Position())
	if r3.Norm(axis) < 1e-9 {
		return false
	}
	axis = r3.Unit(axis)
	for _, a := range atoms[2:] {
		v := r3.Sub(a.Position(), atoms[0].Position())
		perp := r3.Sub(v, r3.Scale(r3.Dot(v, axis), axis))
		if r3.Norm(perp) > 1e-4 {
			return false
		}
	}
	return true
}
