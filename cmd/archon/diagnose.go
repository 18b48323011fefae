// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/f-block/archon/internal/diagnose"
	"github.com/f-block/archon/internal/store"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose [run-id]",
	Short: "Explain why a run returned few or no conformers",
	Long: `Diagnose inspects an ingested run report and maps its outcome to
likely causes and parameter remedies: missing placements, distance check
failures, convergence failures, duplicate collapse, and actinide oxo
handling. Without a run ID the most recent run is diagnosed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiagnose,
}

func init() {
	diagnoseCmd.Flags().String("index-dir", "", "directory for the database (default from config)")
	diagnoseCmd.Flags().String("runs-dir", "", "directory of run result files (default from config)")

	rootCmd.AddCommand(diagnoseCmd)
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	s, err := store.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	runID := ""
	if len(args) > 0 {
		runID = args[0]
	} else {
		runs, err := s.ListRuns(cmd.Context())
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return fmt.Errorf("no ingested runs; run `archon store ingest` first")
		}
		runID = runs[0]
	}

	rep, err := s.Report(cmd.Context(), runID)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %s on %s core, %d/%d returned\n\n",
		rep.RunID, rep.Metal, rep.CoreGeometry, rep.Returned, rep.RequestedConformers)

	findings := diagnose.Analyze(rep)
	if len(findings) == 0 {
		fmt.Println("No issues found.")
		return nil
	}
	for _, f := range findings {
		fmt.Printf("symptom: %s\n", f.Symptom)
		fmt.Printf("  cause:  %s\n", f.Cause)
		fmt.Printf("  remedy: %s\n\n", f.Remedy)
	}
	return nil
}
