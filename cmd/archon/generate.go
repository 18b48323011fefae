// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/f-block/archon/internal/pipeline"
	"github.com/f-block/archon/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate [request.yaml]",
	Short: "Generate conformers for a complex request",
	Long: `Generate reads a complex request from a YAML file, runs the full
pipeline (symmetry enumeration, assembly, evaluation, screening), and writes
the resulting structures and a run result file.

The request names the metal center, its oxidation state, the core geometry
or coordination number, the ligand set, and optional generation parameters.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("structures-dir", "", "directory for XYZ output (default from config)")
	generateCmd.Flags().String("runs-dir", "", "directory for run result files (default from config)")
	generateCmd.Flags().String("xtb-path", "", "path to the xtb binary (default: search PATH)")
	generateCmd.Flags().Int("n-conformers", 0, "override the number of conformers to return")
	generateCmd.Flags().Int("n-symmetries", 0, "override the number of placements to evaluate")
	generateCmd.Flags().Bool("no-relax", false, "skip geometry relaxation")
	generateCmd.Flags().Bool("force-generation", false, "keep unconverged structures")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	req, err := readRequest(args[0])
	if err != nil {
		return err
	}

	if n, _ := cmd.Flags().GetInt("n-conformers"); n > 0 {
		req.Parameters.NConformers = n
	}
	if n, _ := cmd.Flags().GetInt("n-symmetries"); n > 0 {
		req.Parameters.NSymmetries = n
	}
	if noRelax, _ := cmd.Flags().GetBool("no-relax"); noRelax {
		f := false
		req.Parameters.Relax = &f
	}
	if force, _ := cmd.Flags().GetBool("force-generation"); force {
		req.Parameters.ForceGeneration = true
	}

	result, err := pipeline.Run(cmd.Context(), req, generateConfig(cmd), logger, os.Stdout)
	if err != nil {
		return err
	}

	rep := result.Report
	fmt.Printf("\nrun %s: %d conformer(s) in %s\n", rep.RunID, rep.Returned, rep.WallTime.Round(time.Millisecond))
	for _, c := range result.Conformers {
		fmt.Printf("  %-40s  %14.6f eV  converged=%t\n", c.ID, c.Energy, c.Converged)
	}
	if rep.Returned == 0 {
		fmt.Printf("no conformers returned; run `archon diagnose %s` after ingesting\n", rep.RunID)
	}
	return nil
}

func readRequest(path string) (types.ComplexRequest, error) {
	var req types.ComplexRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("reading request: %w", err)
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("parsing request %s: %w", path, err)
	}
	return req, nil
}
