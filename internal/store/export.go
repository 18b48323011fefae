// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ExportEntry holds one conformer with its run metadata for export.
type ExportEntry struct {
	ID           string   `json:"id" yaml:"id"`
	RunID        string   `json:"run_id" yaml:"run_id"`
	Metal        string   `json:"metal" yaml:"metal"`
	CoreGeometry string   `json:"core_geometry" yaml:"core_geometry"`
	Method       string   `json:"method" yaml:"method"`
	Energy       float64  `json:"energy" yaml:"energy"`
	RMSD         float64  `json:"rmsd" yaml:"rmsd"`
	Symmetry     int      `json:"symmetry" yaml:"symmetry"`
	Score        float64  `json:"score" yaml:"score"`
	Converged    bool     `json:"converged" yaml:"converged"`
	Sane         bool     `json:"sane" yaml:"sane"`
	XYZ          string   `json:"xyz" yaml:"xyz"`
	Errors       []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

const exportLimit = 100000

// ExportYAML writes matching conformers to IndexDir/export.yaml. It
// supports the same filters as Retrieve.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(s.indexDir, "export.yaml")
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes matching conformers to IndexDir/export.json.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(s.indexDir, "export.json")
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context, opts QueryOptions) ([]ExportEntry, error) {
	opts.MaxResults = exportLimit
	results, err := s.Retrieve(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(results))
	for i, r := range results {
		trace, err := s.Trace(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		entries[i] = ExportEntry{
			ID:           r.ID,
			RunID:        r.RunID,
			Metal:        r.Metal,
			CoreGeometry: r.CoreGeometry,
			Method:       r.Method,
			Energy:       r.Energy,
			RMSD:         r.RMSD,
			Symmetry:     r.Symmetry,
			Score:        r.Score,
			Converged:    r.Converged,
			Sane:         r.Sane,
			XYZ:          trace,
			Errors:       r.Errors,
		}
	}

	return entries, nil
}
