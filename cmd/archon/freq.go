// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/f-block/archon/internal/calc"
	"github.com/f-block/archon/internal/toolchain"
	"github.com/f-block/archon/internal/vibration"
	"github.com/f-block/archon/internal/xyz"
	"github.com/f-block/archon/pkg/types"
)

var freqCmd = &cobra.Command{
	Use:   "freq [structure.xyz]",
	Short: "Normal mode analysis and free energy of a structure",
	Long: `Freq computes the harmonic normal modes of an XYZ structure by finite
differences of single-point energies, then the ideal-gas rigid-rotor
harmonic-oscillator thermochemistry. Imaginary frequencies are reported as
negative wavenumbers.`,
	Args: cobra.ExactArgs(1),
	RunE: runFreq,
}

func init() {
	addCalcFlags(freqCmd)
	freqCmd.Flags().Float64("step", 0, "finite-difference displacement in Angstrom (default 0.005)")
	freqCmd.Flags().Float64("temperature", 298.15, "temperature in K")
	freqCmd.Flags().Float64("pressure", 101325, "pressure in Pa")
	freqCmd.Flags().Float64("symmetry-number", 1, "rotational symmetry number")
	freqCmd.Flags().Int("multiplicity", 1, "electronic spin multiplicity")

	rootCmd.AddCommand(freqCmd)
}

func runFreq(cmd *cobra.Command, args []string) error {
	frame, err := readStructure(args[0])
	if err != nil {
		return err
	}

	c, sys, err := calcFromFlags(cmd, frame.Atoms)
	if err != nil {
		return err
	}

	base, err := c.SinglePoint(cmd.Context(), sys)
	if err != nil {
		return fmt.Errorf("single point: %w", err)
	}

	step, _ := cmd.Flags().GetFloat64("step")
	hess, err := vibration.Hessian(cmd.Context(), c, sys, step)
	if err != nil {
		return err
	}
	analysis, err := vibration.Analyze(frame.Atoms, hess)
	if err != nil {
		return err
	}

	modes := analysis.VibrationalModes()
	fmt.Printf("%d vibrational mode(s)\n\n", len(modes))
	fmt.Printf("%-4s  %14s  %12s  %16s\n", "#", "Freq (cm^-1)", "Mass (amu)", "k (eV/A^2)")
	for i, m := range modes {
		fmt.Printf("%-4d  %14.2f  %12.4f  %16.4f\n", i+1, m.Frequency, m.ReducedMass, m.ForceConstant)
	}
	if analysis.HasImaginary() {
		fmt.Println("\nimaginary modes present: structure is not a minimum")
	}

	opts := vibration.ThermoOptions{}
	opts.Temperature, _ = cmd.Flags().GetFloat64("temperature")
	opts.Pressure, _ = cmd.Flags().GetFloat64("pressure")
	opts.SymmetryNumber, _ = cmd.Flags().GetFloat64("symmetry-number")
	opts.SpinMultiplicity, _ = cmd.Flags().GetInt("multiplicity")

	thermo, err := vibration.FreeEnergy(analysis, base.Energy, opts)
	if err != nil {
		return err
	}

	fmt.Printf("\nelectronic energy: %14.6f eV\n", thermo.Electronic)
	fmt.Printf("zero-point energy: %14.6f eV\n", thermo.ZPE)
	fmt.Printf("enthalpy:          %14.6f eV\n", thermo.Enthalpy)
	fmt.Printf("entropy:           %14.6e eV/K\n", thermo.Entropy)
	fmt.Printf("gibbs free energy: %14.6f eV (T=%.2f K)\n", thermo.Gibbs, opts.Temperature)
	return nil
}

// --- shared helpers for the analysis subcommands ---

func addCalcFlags(cmd *cobra.Command) {
	cmd.Flags().String("method", "uff", "energy method: gfn2, gfnff, uff, or mmff")
	cmd.Flags().Int("charge", 0, "total charge")
	cmd.Flags().Int("spin", 0, "number of unpaired electrons")
	cmd.Flags().String("xtb-path", "", "path to the xtb binary (default: search PATH)")
}

// calcFromFlags builds the calculator and system for a loaded structure.
// GFN methods require the xtb binary; the force fields run in-process.
func calcFromFlags(cmd *cobra.Command, atoms []types.Atom) (calc.Calculator, calc.System, error) {
	method, _ := cmd.Flags().GetString("method")
	method = canonicalMethod(method)

	params := types.Parameters{
		AssembleMethod: method,
		FullMethod:     method,
	}.Normalized()

	var tool toolchain.Tool
	if calc.IsGFN(method) {
		xtbPath, _ := cmd.Flags().GetString("xtb-path")
		var err error
		tool, err = toolchain.DetectXTB(xtbPath)
		if err != nil {
			return nil, calc.System{}, err
		}
	}

	c, err := calc.New(method, params, tool)
	if err != nil {
		return nil, calc.System{}, err
	}

	charge, _ := cmd.Flags().GetInt("charge")
	spin, _ := cmd.Flags().GetInt("spin")
	sys := calc.System{
		Atoms:  atoms,
		Bonds:  calc.PerceiveBonds(atoms),
		Charge: charge,
		Spin:   spin,
	}
	return c, sys, nil
}

func canonicalMethod(method string) string {
	switch strings.ToLower(method) {
	case "gfn2", "gfn2-xtb":
		return types.MethodGFN2
	case "gfnff", "gfn-ff":
		return types.MethodGFNFF
	case "uff":
		return types.MethodUFF
	case "mmff":
		return types.MethodMMFF
	}
	return method
}

func readStructure(path string) (xyz.Frame, error) {
	frames, err := xyz.ReadFile(path)
	if err != nil {
		return xyz.Frame{}, err
	}
	if len(frames) != 1 {
		return xyz.Frame{}, fmt.Errorf("%s: expected a single structure, found %d frames", path, len(frames))
	}
	return frames[0], nil
}
