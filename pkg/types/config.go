// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// StoreConfig holds settings for the results store.
type StoreConfig struct {
	// IndexDir is the directory holding the SQLite database and exports.
	IndexDir string `json:"index_dir" yaml:"index_dir"`

	// RunsDir is the directory of run result YAML files to ingest.
	RunsDir string `json:"runs_dir" yaml:"runs_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// GenerateConfig holds settings for the generation pipeline.
type GenerateConfig struct {
	// StructuresDir receives XYZ output (raw/ and relaxed/ subdirectories).
	StructuresDir string `json:"structures_dir" yaml:"structures_dir"`

	// RunsDir receives run result YAML files.
	RunsDir string `json:"runs_dir" yaml:"runs_dir"`

	// XTBPath overrides PATH lookup of the xtb binary.
	XTBPath string `json:"xtb_path,omitempty" yaml:"xtb_path,omitempty"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Generate GenerateConfig `json:"generate" yaml:"generate"`
	Store    StoreConfig    `json:"store" yaml:"store"`
}
