// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/f-block/archon/internal/neb"
	"github.com/f-block/archon/internal/xyz"
)

var nebCmd = &cobra.Command{
	Use:   "neb [reactant.xyz] [product.xyz]",
	Short: "Interpolate and evaluate a reaction path between two structures",
	Long: `Neb builds a linearly interpolated band between two aligned endpoint
structures, evaluates single-point energies over the images, and reports the
energy profile with the climbing image and barrier estimates. Endpoints must
have the same atoms in the same order.`,
	Args: cobra.ExactArgs(2),
	RunE: runNEB,
}

func init() {
	addCalcFlags(nebCmd)
	nebCmd.Flags().Int("images", 0, "number of band images including endpoints (default 7)")
	nebCmd.Flags().Int("workers", 4, "parallel image evaluations")
	nebCmd.Flags().String("output", "", "write the evaluated band as a multi-frame XYZ file")

	rootCmd.AddCommand(nebCmd)
}

func runNEB(cmd *cobra.Command, args []string) error {
	reactant, err := readStructure(args[0])
	if err != nil {
		return err
	}
	product, err := readStructure(args[1])
	if err != nil {
		return err
	}

	nImages, _ := cmd.Flags().GetInt("images")
	if nImages <= 0 {
		nImages = neb.DefaultImages
	}
	images, err := neb.Interpolate(reactant.Atoms, product.Atoms, nImages)
	if err != nil {
		return err
	}

	c, sys, err := calcFromFlags(cmd, reactant.Atoms)
	if err != nil {
		return err
	}

	workers, _ := cmd.Flags().GetInt("workers")
	profile, err := neb.Evaluate(cmd.Context(), c, images, sys.Bonds, sys.Charge, sys.Spin, workers)
	if err != nil {
		return err
	}

	climbing := profile.ClimbingImage()
	fmt.Printf("%-6s  %14s  %12s\n", "Image", "Energy (eV)", "Rel (eV)")
	for i, e := range profile.Energies {
		mark := ""
		if i == climbing {
			mark = "  <- climbing image"
		}
		fmt.Printf("%-6d  %14.6f  %12.6f%s\n", i, e, e-profile.Energies[0], mark)
	}

	forward, reverse := profile.Barriers()
	fmt.Printf("\nforward barrier: %.6f eV\nreverse barrier: %.6f eV\n", forward, reverse)

	if out, _ := cmd.Flags().GetString("output"); out != "" {
		frames := make([]xyz.Frame, len(profile.Images))
		for i, atoms := range profile.Images {
			frames[i] = xyz.Frame{
				Comment: xyz.CommentWithEnergy(fmt.Sprintf("image %d", i), profile.Energies[i]),
				Atoms:   atoms,
			}
		}
		if err := xyz.WriteFile(out, frames); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "band written to %s\n", out)
	}
	return nil
}
