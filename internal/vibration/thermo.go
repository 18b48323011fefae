// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vibration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/f-block/archon/internal/ptable"
	"github.com/f-block/archon/pkg/types"
)

const (
	kBEV      = 8.617333262e-5  // Boltzmann constant, eV/K
	kBJ       = 1.380649e-23    // Boltzmann constant, J/K
	hJ        = 6.62607015e-34  // Planck constant, J s
	hbarJ     = 1.054571817e-34 // reduced Planck constant, J s
	amuKG     = 1.66053906660e-27
	cmToEV    = 1.0 / 8065.543937
	angstromM = 1e-10
)

// ThermoOptions controls the IGRRHO evaluation.
type ThermoOptions struct {
	// Temperature in K; zero means 298.15.
	Temperature float64

	// Pressure in Pa; zero means 101325.
	Pressure float64

	// SymmetryNumber is the rotational symmetry number; zero means 1.
	SymmetryNumber float64

	// SpinMultiplicity is 2S+1; zero means singlet.
	SpinMultiplicity int
}

func (o ThermoOptions) normalized() ThermoOptions {
	if o.Temperature <= 0 {
		o.Temperature = 298.15
	}
	if o.Pressure <= 0 {
		o.Pressure = 101325
	}
	if o.SymmetryNumber <= 0 {
		o.SymmetryNumber = 1
	}
	if o.SpinMultiplicity <= 0 {
		o.SpinMultiplicity = 1
	}
	return o
}

// Thermochemistry holds the ideal-gas rigid-rotor harmonic-oscillator
// corrections. All energies are eV, entropy is eV/K.
type Thermochemistry struct {
	Electronic float64 `json:"electronic" yaml:"electronic"`
	ZPE        float64 `json:"zpe" yaml:"zpe"`
	Enthalpy   float64 `json:"enthalpy" yaml:"enthalpy"`
	Entropy    float64 `json:"entropy" yaml:"entropy"`
	Gibbs      float64 `json:"gibbs" yaml:"gibbs"`

	// ImaginaryModes counts saddle-point directions excluded from the
	// vibrational sums.
	ImaginaryModes int `json:"imaginary_modes" yaml:"imaginary_modes"`
}

// FreeEnergy evaluates the IGRRHO Gibbs free energy of a structure from
// its electronic energy and normal-mode analysis.
func FreeEnergy(a *Analysis, electronicEnergy float64, opts ThermoOptions) (Thermochemistry, error) {
	opts = opts.normalized()
	T := opts.Temperature

	totalMass := 0.0
	for _, at := range a.Atoms {
		m, err := ptable.Mass(at.Symbol)
		if err != nil {
			return Thermochemistry{}, fmt.Errorf("thermo: %w", err)
		}
		totalMass += m
	}

	// Translation.
	mKG := totalMass * amuKG
	qTrans := math.Pow(2*math.Pi*mKG*kBJ*T/(hJ*hJ), 1.5) * kBJ * T / opts.Pressure
	sTrans := kBEV * (math.Log(qTrans) + 2.5)
	uTrans := 1.5 * kBEV * T

	// Rotation.
	sRot, uRot := rotation(a.Atoms, T, opts.SymmetryNumber)

	// Vibration over real modes.
	zpe, uVib, sVib := 0.0, 0.0, 0.0
	imaginary := 0
	for _, m := range a.VibrationalModes() {
		if m.Frequency <= 0 {
			imaginary++
			continue
		}
		eps := m.Frequency * cmToEV
		x := eps / (kBEV * T)
		zpe += eps / 2
		uVib += eps / (math.Exp(x) - 1)
		sVib += kBEV * (x/(math.Exp(x)-1) - math.Log(1-math.Exp(-x)))
	}

	sElec := kBEV * math.Log(float64(opts.SpinMultiplicity))

	entropy := sTrans + sRot + sVib + sElec
	// H = U + kT for an ideal gas.
	enthalpy := electronicEnergy + zpe + uTrans + uRot + uVib + kBEV*T

	return Thermochemistry{
		Electronic:     electronicEnergy,
		ZPE:            zpe,
		Enthalpy:       enthalpy,
		Entropy:        entropy,
		Gibbs:          enthalpy - T*entropy,
		ImaginaryModes: imaginary,
	}, nil
}

// rotation returns the rotational entropy (eV/K) and thermal energy (eV)
// from the principal moments of inertia.
func rotation(atoms []types.Atom, T, sigma float64) (float64, float64) {
	if len(atoms) == 1 {
		return 0, 0
	}

	moments := principalMoments(atoms)
	// Rotational temperatures from moments in amu Angstrom^2.
	theta := func(iAmu float64) float64 {
		iSI := iAmu * amuKG * angstromM * angstromM
		return hbarJ * hbarJ / (2 * iSI * kBJ)
	}

	if moments[0] < 1e-6 {
		// Linear: one rotational moment.
		qRot := T / (sigma * theta(moments[2]))
		return kBEV * (math.Log(qRot) + 1), kBEV * T
	}

	qRot := math.Sqrt(math.Pi) / sigma * math.Sqrt(
		T*T*T/(theta(moments[0])*theta(moments[1])*theta(moments[2])))
	return kBEV * (math.Log(qRot) + 1.5), 1.5 * kBEV * T
}

// principalMoments returns the eigenvalues of the inertia tensor in
// amu Angstrom^2, ascending.
func principalMoments(atoms []types.Atom) [3]float64 {
	var com r3.Vec
	total := 0.0
	masses := make([]float64, len(atoms))
	for i, a := range atoms {
		masses[i], _ = ptable.Mass(a.Symbol)
		com = r3.Add(com, r3.Scale(masses[i], a.Position()))
		total += masses[i]
	}
	com = r3.Scale(1/total, com)

	tensor := mat.NewSymDense(3, nil)
	for i, a := range atoms {
		p := r3.Sub(a.Position(), com)
		m := masses[i]
		tensor.SetSym(0, 0, tensor.At(0, 0)+m*(p.Y*p.Y+p.Z*p.Z))
		tensor.SetSym(1, 1, tensor.At(1, 1)+m*(p.X*p.X+p.Z*p.Z))
		tensor.SetSym(2, 2, tensor.At(2, 2)+m*(p.X*p.X+p.Y*p.Y))
		tensor.SetSym(0, 1, tensor.At(0, 1)-m*p.X*p.Y)
		tensor.SetSym(0, 2, tensor.At(0, 2)-m*p.X*p.Z)
		tensor.SetSym(1, 2, tensor.At(1, 2)-m*p.Y*p.Z)
	}

	var eig mat.EigenSym
	eig.Factorize(tensor, false)
	vals := eig.Values(nil)
	return [3]float64{vals[0], vals[1], vals[2]}
}
