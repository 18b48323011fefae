// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the archon CLI: generation of
// metal complex conformers and analysis of the results.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/f-block/archon/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built in PersistentPreRunE and shared by all subcommands.
var logger *zap.Logger

// rootCmd is the base command for the archon CLI.
var rootCmd = &cobra.Command{
	Use:   "archon",
	Short: "Conformer generation for metal complexes",
	Long: `archon builds 3D conformers of metal-ligand complexes from a declarative
request: it enumerates symmetry-distinct ligand placements on a coordination
core, assembles candidate structures, evaluates and relaxes them with xtb or
built-in force fields, and screens the results.

Each stage is a subcommand: generate runs the full pipeline, symmetries
previews ligand placements, store manages the local results database, and
diagnose, freq, and neb analyze finished runs and structures.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			cfg := zap.NewProductionConfig()
			cfg.OutputPaths = []string{"stderr"}
			logger, err = cfg.Build()
		}
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./archon.yaml or ~/.config/archon/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("archon")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "archon"))
		}
	}

	viper.SetEnvPrefix("ARCHON")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("generate.structures_dir", "structures")
	viper.SetDefault("generate.runs_dir", "runs")
	viper.SetDefault("store.index_dir", "index")
	viper.SetDefault("store.runs_dir", "runs")
	viper.SetDefault("store.max_results", 20)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// generateConfig resolves the generation stage settings from config
// and command flags (flags win when set).
func generateConfig(cmd *cobra.Command) types.GenerateConfig {
	cfg := types.GenerateConfig{
		StructuresDir: viper.GetString("generate.structures_dir"),
		RunsDir:       viper.GetString("generate.runs_dir"),
		XTBPath:       viper.GetString("generate.xtb_path"),
	}
	if v, _ := cmd.Flags().GetString("structures-dir"); v != "" {
		cfg.StructuresDir = v
	}
	if v, _ := cmd.Flags().GetString("runs-dir"); v != "" {
		cfg.RunsDir = v
	}
	if v, _ := cmd.Flags().GetString("xtb-path"); v != "" {
		cfg.XTBPath = v
	}
	return cfg
}

// storeConfig resolves the results database settings.
func storeConfig(cmd *cobra.Command) types.StoreConfig {
	cfg := types.StoreConfig{
		IndexDir:   viper.GetString("store.index_dir"),
		RunsDir:    viper.GetString("store.runs_dir"),
		MaxResults: viper.GetInt("store.max_results"),
	}
	if v, _ := cmd.Flags().GetString("index-dir"); v != "" {
		cfg.IndexDir = v
	}
	if v, _ := cmd.Flags().GetString("runs-dir"); v != "" {
		cfg.RunsDir = v
	}
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
