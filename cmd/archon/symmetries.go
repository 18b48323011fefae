// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/f-block/archon/internal/geometry"
	"github.com/f-block/archon/internal/symmetry"
)

var symmetriesCmd = &cobra.Command{
	Use:   "symmetries [request.yaml]",
	Short: "Preview ligand placements without building structures",
	Long: `Symmetries enumerates and scores the symmetry-distinct ligand
placements a request would generate, without assembling or evaluating any
structure. Use it to check how many placements a ligand set yields and
which sites each ligand would occupy.`,
	Args: cobra.ExactArgs(1),
	RunE: runSymmetries,
}

func init() {
	symmetriesCmd.Flags().Int("n-symmetries", 0, "override the number of placements to list")

	rootCmd.AddCommand(symmetriesCmd)
}

func runSymmetries(cmd *cobra.Command, args []string) error {
	req, err := readRequest(args[0])
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	params := req.Parameters.Normalized()
	if n, _ := cmd.Flags().GetInt("n-symmetries"); n > 0 {
		params.NSymmetries = n
	}

	var core geometry.Core
	if req.CoreGeometry != "" {
		core, err = geometry.ByName(req.CoreGeometry)
	} else {
		core, err = geometry.ByCN(req.CoreCN)
	}
	if err != nil {
		return err
	}

	ligs, assignments, err := symmetry.Enumerate(req, core, params)
	if err != nil {
		return err
	}

	fmt.Printf("core %s (CN %d), %d placement(s)\n\n", core.Name, core.CN, len(assignments))
	fmt.Printf("%-4s  %-10s  %s\n", "#", "Score", "Sites per ligand")
	for i, asg := range assignments {
		fmt.Printf("%-4d  %-10.4f ", i, asg.Score)
		for j, sites := range asg.Sites {
			fmt.Printf(" %s=%v", ligs[j].Name, sites)
		}
		fmt.Println()
	}
	return nil
}
