// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/f-block/archon/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the results database (ingest, query, export, trace)",
	Long: `Store manages a local SQLite database built from run result files.
Use subcommands to ingest finished runs, query conformers, export the
database, or render a single conformer as XYZ.`,
}

// --- ingest subcommand ---

var storeIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index run result files into the database",
	Long: `Ingest reads run result YAML files from the runs directory into the
SQLite database. Unchanged runs are skipped on subsequent invocations;
modified runs are re-indexed.`,
	RunE: runStoreIngest,
}

func runStoreIngest(cmd *cobra.Command, args []string) error {
	s, err := store.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	summary, err := s.Ingest(cmd.Context(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d run(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- query subcommand ---

var storeQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query stored conformers with filters",
	Long: `Query lists conformers from the database, filtered by run, metal,
energy window, or convergence and sanity state. Results are ordered by
energy, lowest first.`,
	RunE: runStoreQuery,
}

func runStoreQuery(cmd *cobra.Command, args []string) error {
	s, err := store.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	opts := queryOptsFromFlags(cmd)
	if opts.IsEmpty() {
		return fmt.Errorf("filter required: provide --run, --metal, --converged, --sane, or an energy bound")
	}

	results, err := s.Retrieve(cmd.Context(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatQueryOutput(results, jsonOutput)
}

func formatQueryOutput(results []store.QueryResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-40s  %-4s  %-20s  %14s  %-9s  %s\n",
		"ID", "Mtl", "Core", "Energy (eV)", "Converged", "Sane")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

	for _, r := range results {
		id := r.ID
		if len(id) > 40 {
			id = id[:37] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-40s  %-4s  %-20s  %14.6f  %-9t  %t\n",
			id, r.Metal, r.CoreGeometry, r.Energy, r.Converged, r.Sane)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- export subcommand ---

var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the database to YAML or JSON",
	Long: `Export writes the full database (or a filtered subset) to
index/export.yaml or export.json, one entry per conformer including its
XYZ block. Supports the same filter flags as query.`,
	RunE: runStoreExport,
}

func runStoreExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	s, err := store.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	opts := queryOptsFromFlags(cmd)

	switch format {
	case "yaml", "":
		if err := s.ExportYAML(cmd.Context(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to export.yaml")
	case "json":
		if err := s.ExportJSON(cmd.Context(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to export.json")
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- trace subcommand ---

var storeTraceCmd = &cobra.Command{
	Use:   "trace [conformer-id]",
	Short: "Render a stored conformer as XYZ",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.NewStore(storeConfig(cmd))
		if err != nil {
			return err
		}
		defer s.Close()

		text, err := s.Trace(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	},
}

// --- runs subcommand ---

var storeRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List ingested runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.NewStore(storeConfig(cmd))
		if err != nil {
			return err
		}
		defer s.Close()

		runs, err := s.ListRuns(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range runs {
			fmt.Println(id)
		}
		return nil
	},
}

// --- shared helpers ---

func queryOptsFromFlags(cmd *cobra.Command) store.QueryOptions {
	runID, _ := cmd.Flags().GetString("run")
	metal, _ := cmd.Flags().GetString("metal")
	converged, _ := cmd.Flags().GetBool("converged")
	sane, _ := cmd.Flags().GetBool("sane")
	limit, _ := cmd.Flags().GetInt("limit")

	opts := store.QueryOptions{
		RunID:         runID,
		Metal:         metal,
		OnlyConverged: converged,
		OnlySane:      sane,
		MaxResults:    limit,
	}
	if cmd.Flags().Changed("min-energy") {
		v, _ := cmd.Flags().GetFloat64("min-energy")
		opts.MinEnergy = &v
	}
	if cmd.Flags().Changed("max-energy") {
		v, _ := cmd.Flags().GetFloat64("max-energy")
		opts.MaxEnergy = &v
	}
	return opts
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String("run", "", "filter by run ID")
	cmd.Flags().String("metal", "", "filter by metal center symbol")
	cmd.Flags().Bool("converged", false, "only converged conformers")
	cmd.Flags().Bool("sane", false, "only conformers that passed distance checks")
	cmd.Flags().Float64("min-energy", 0, "lower energy bound in eV")
	cmd.Flags().Float64("max-energy", 0, "upper energy bound in eV")
	cmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	storeCmd.PersistentFlags().String("index-dir", "", "directory for the database and exports (default from config)")
	storeCmd.PersistentFlags().String("runs-dir", "", "directory of run result files (default from config)")

	addQueryFlags(storeQueryCmd)
	storeQueryCmd.Flags().Bool("json", false, "output results as JSON")

	addQueryFlags(storeExportCmd)
	storeExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	// Wire subcommands.
	storeCmd.AddCommand(storeIngestCmd)
	storeCmd.AddCommand(storeQueryCmd)
	storeCmd.AddCommand(storeExportCmd)
	storeCmd.AddCommand(storeTraceCmd)
	storeCmd.AddCommand(storeRunsCmd)

	rootCmd.AddCommand(storeCmd)
}
