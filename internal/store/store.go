// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists generation runs and their conformers in a
// SQLite index, and answers queries over past results.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/f-block/archon/pkg/types"
)

const (
	dbFile        = "archon.db"
	runFileSuffix = ".yaml"
)

// Store manages the run index SQLite database.
type Store struct {
	db         *sql.DB
	indexDir   string
	runsDir    string
	maxResults int
}

// NewStore opens or creates the index database at IndexDir/archon.db,
// creating the schema when absent.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(cfg.IndexDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		indexDir:   cfg.IndexDir,
		runsDir:    cfg.RunsDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			metal TEXT,
			core_geometry TEXT,
			created_at TEXT,
			requested_conformers INTEGER,
			requested_symmetries INTEGER,
			relaxed INTEGER,
			force_trans_oxos INTEGER,
			force_generation INTEGER,
			has_oxo_ligands INTEGER,
			actinide_center INTEGER,
			symmetries_found INTEGER,
			assembled INTEGER,
			sanity_failed TEXT,
			convergence_failed INTEGER,
			duplicates_removed INTEGER,
			returned INTEGER,
			wall_time_ns INTEGER,
			request TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS conformers (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			run_id TEXT NOT NULL REFERENCES runs(id),
			symmetry INTEGER,
			score REAL,
			method TEXT,
			energy REAL,
			init_energy REAL,
			rmsd REAL,
			relaxed INTEGER,
			converged INTEGER,
			sane INTEGER,
			charge INTEGER,
			spin INTEGER,
			atoms TEXT,
			bonds TEXT,
			sanity_failures TEXT,
			errors TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conformers_run_id ON conformers(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_conformers_energy ON conformers(energy)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			run_id TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from a run indexing pass.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of run files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest reads run result YAML files from the runs directory and
// populates the database, detecting new, changed, and unchanged files
// for incremental updates.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	entries, err := os.ReadDir(s.runsDir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading runs directory %s: %w", s.runsDir, err)
	}

	var summary IngestSummary

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), runFileSuffix) {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		runID := strings.TrimSuffix(entry.Name(), runFileSuffix)
		filePath := filepath.Join(s.runsDir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", runID, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM indexing_status WHERE run_id = ?`, runID,
		).Scan(&storedModTime)

		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", runID)
			summary.Skipped++
			continue
		}

		isUpdate := err == nil

		data, err := os.ReadFile(filePath)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", runID, err)
			summary.Failed++
			continue
		}

		var result types.RunResult
		if err := yaml.Unmarshal(data, &result); err != nil {
			fmt.Fprintf(w, "failed  %s: parse error: %v\n", runID, err)
			summary.Failed++
			continue
		}
		if result.Report.RunID == "" {
			result.Report.RunID = runID
		}

		if err := s.ingestRun(ctx, &result, modTime, isUpdate); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", runID, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d conformers)\n", runID, len(result.Conformers))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d conformers)\n", runID, len(result.Conformers))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	return summary, nil
}

func (s *Store) ingestRun(ctx context.Context, result *types.RunResult, modTime string, isUpdate bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rep := result.Report

	if isUpdate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM conformers WHERE run_id = ?`, rep.RunID); err != nil {
			return fmt.Errorf("deleting old conformers: %w", err)
		}
	}

	sanityJSON, _ := json.Marshal(rep.SanityFailed)
	requestYAML, _ := yaml.Marshal(result.Request)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, metal, core_geometry, created_at,
			requested_conformers, requested_symmetries, relaxed,
			force_trans_oxos, force_generation, has_oxo_ligands,
			actinide_center, symmetries_found, assembled, sanity_failed,
			convergence_failed, duplicates_removed, returned, wall_time_ns, request)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			metal=excluded.metal, core_geometry=excluded.core_geometry,
			created_at=excluded.created_at,
			requested_conformers=excluded.requested_conformers,
			requested_symmetries=excluded.requested_symmetries,
			relaxed=excluded.relaxed,
			force_trans_oxos=excluded.force_trans_oxos,
			force_generation=excluded.force_generation,
			has_oxo_ligands=excluded.has_oxo_ligands,
			actinide_center=excluded.actinide_center,
			symmetries_found=excluded.symmetries_found,
			assembled=excluded.assembled, sanity_failed=excluded.sanity_failed,
			convergence_failed=excluded.convergence_failed,
			duplicates_removed=excluded.duplicates_removed,
			returned=excluded.returned, wall_time_ns=excluded.wall_time_ns,
			request=excluded.request`,
		rep.RunID, rep.Metal, rep.CoreGeometry, rep.CreatedAt.UTC().Format(time.RFC3339Nano),
		rep.RequestedConformers, rep.RequestedSymmetries, boolInt(rep.Relaxed),
		boolInt(rep.ForceTransOxos), boolInt(rep.ForceGeneration), boolInt(rep.HasOxoLigands),
		boolInt(rep.ActinideCenter), rep.SymmetriesFound, rep.Assembled, string(sanityJSON),
		rep.ConvergenceFailed, rep.DuplicatesRemoved, rep.Returned, int64(rep.WallTime), string(requestYAML),
	)
	if err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO conformers (id, run_id, symmetry, score, method,
			energy, init_energy, rmsd, relaxed, converged, sane, charge, spin,
			atoms, bonds, sanity_failures, errors)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range result.Conformers {
		atomsJSON, _ := json.Marshal(c.Atoms)
		bondsJSON, _ := json.Marshal(c.Bonds)
		failJSON, _ := json.Marshal(c.SanityFailures)
		errsJSON, _ := json.Marshal(c.Errors)
		_, err := stmt.ExecContext(ctx,
			c.ID, rep.RunID, c.Symmetry, c.Score, c.Method,
			c.Energy, c.InitEnergy, c.RMSD, boolInt(c.Relaxed), boolInt(c.Converged),
			boolInt(c.Sane), c.Charge, c.Spin,
			string(atomsJSON), string(bondsJSON), string(failJSON), string(errsJSON),
		)
		if err != nil {
			return fmt.Errorf("inserting conformer %s: %w", c.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (run_id, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		rep.RunID, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}

	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
