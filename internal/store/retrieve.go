// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/f-block/archon/internal/xyz"
	"github.com/f-block/archon/pkg/types"
)

// QueryOptions holds the filters for conformer queries.
type QueryOptions struct {
	// RunID restricts results to one generation run.
	RunID string

	// Metal filters by metal center symbol.
	Metal string

	// OnlyConverged and OnlySane drop failed structures.
	OnlyConverged bool
	OnlySane      bool

	// MinEnergy and MaxEnergy bound the energy window (eV).
	MinEnergy *float64
	MaxEnergy *float64

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no filters.
func (q QueryOptions) IsEmpty() bool {
	return q.RunID == "" && q.Metal == "" && !q.OnlyConverged && !q.OnlySane &&
		q.MinEnergy == nil && q.MaxEnergy == nil
}

// QueryResult is a stored conformer with its run metadata attached.
type QueryResult struct {
	types.Conformer `yaml:",inline"`
	Metal           string `json:"metal" yaml:"metal"`
	CoreGeometry    string `json:"core_geometry" yaml:"core_geometry"`
}

// Retrieve queries stored conformers, lowest energy first.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)

	qb.WriteString(
		`SELECT c.id, c.run_id, c.symmetry, c.score, c.method,
			c.energy, c.init_energy, c.rmsd, c.relaxed, c.converged, c.sane,
			c.charge, c.spin, c.atoms, c.bonds, c.sanity_failures, c.errors,
			r.metal, r.core_geometry
		FROM conformers c
		JOIN runs r ON c.run_id = r.id
		WHERE 1=1`)

	if opts.RunID != "" {
		qb.WriteString(` AND c.run_id = ?`)
		args = append(args, opts.RunID)
	}
	if opts.Metal != "" {
		qb.WriteString(` AND r.metal = ?`)
		args = append(args, opts.Metal)
	}
	if opts.OnlyConverged {
		qb.WriteString(` AND c.converged = 1`)
	}
	if opts.OnlySane {
		qb.WriteString(` AND c.sane = 1`)
	}
	if opts.MinEnergy != nil {
		qb.WriteString(` AND c.energy >= ?`)
		args = append(args, *opts.MinEnergy)
	}
	if opts.MaxEnergy != nil {
		qb.WriteString(` AND c.energy <= ?`)
		args = append(args, *opts.MaxEnergy)
	}

	qb.WriteString(` ORDER BY c.energy LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying conformers: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			qr                       QueryResult
			relaxed, converged, sane int
			atomsJSON, bondsJSON     string
			failJSON, errsJSON       sql.NullString
		)

		if err := rows.Scan(
			&qr.ID, &qr.RunID, &qr.Symmetry, &qr.Score, &qr.Method,
			&qr.Energy, &qr.InitEnergy, &qr.RMSD, &relaxed, &converged, &sane,
			&qr.Charge, &qr.Spin, &atomsJSON, &bondsJSON, &failJSON, &errsJSON,
			&qr.Metal, &qr.CoreGeometry,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		qr.Relaxed = relaxed == 1
		qr.Converged = converged == 1
		qr.Sane = sane == 1
		json.Unmarshal([]byte(atomsJSON), &qr.Atoms)
		json.Unmarshal([]byte(bondsJSON), &qr.Bonds)
		if failJSON.Valid {
			json.Unmarshal([]byte(failJSON.String), &qr.SanityFailures)
		}
		if errsJSON.Valid {
			json.Unmarshal([]byte(errsJSON.String), &qr.Errors)
		}

		results = append(results, qr)
	}

	return results, rows.Err()
}

// Report reconstructs the stored run report for one run.
func (s *Store) Report(ctx context.Context, runID string) (types.RunReport, error) {
	var (
		rep                                            types.RunReport
		createdAt, sanityJSON                          string
		relaxed, transOxos, forceGen, hasOxo, actinide int
		wallNS                                         int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT id, metal, core_geometry, created_at,
			requested_conformers, requested_symmetries, relaxed,
			force_trans_oxos, force_generation, has_oxo_ligands,
			actinide_center, symmetries_found, assembled, sanity_failed,
			convergence_failed, duplicates_removed, returned, wall_time_ns
		 FROM runs WHERE id = ?`, runID,
	).Scan(
		&rep.RunID, &rep.Metal, &rep.CoreGeometry, &createdAt,
		&rep.RequestedConformers, &rep.RequestedSymmetries, &relaxed,
		&transOxos, &forceGen, &hasOxo,
		&actinide, &rep.SymmetriesFound, &rep.Assembled, &sanityJSON,
		&rep.ConvergenceFailed, &rep.DuplicatesRemoved, &rep.Returned, &wallNS,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return types.RunReport{}, fmt.Errorf("run %s not found", runID)
		}
		return types.RunReport{}, fmt.Errorf("looking up run: %w", err)
	}

	rep.Relaxed = relaxed == 1
	rep.ForceTransOxos = transOxos == 1
	rep.ForceGeneration = forceGen == 1
	rep.HasOxoLigands = hasOxo == 1
	rep.ActinideCenter = actinide == 1
	rep.WallTime = time.Duration(wallNS)
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		rep.CreatedAt = t
	}
	json.Unmarshal([]byte(sanityJSON), &rep.SanityFailed)

	return rep, nil
}

// ListRuns returns the IDs of stored runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Trace renders the stored geometry of one conformer as an XYZ frame
// with its energy annotated in the comment line.
func (s *Store) Trace(ctx context.Context, conformerID string) (string, error) {
	var (
		atomsJSON string
		energy    float64
		method    string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT atoms, energy, method FROM conformers WHERE id = ?`, conformerID,
	).Scan(&atomsJSON, &energy, &method)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("conformer %s not found", conformerID)
		}
		return "", fmt.Errorf("looking up conformer: %w", err)
	}

	var atoms []types.Atom
	if err := json.Unmarshal([]byte(atomsJSON), &atoms); err != nil {
		return "", fmt.Errorf("decoding stored geometry: %w", err)
	}

	var sb strings.Builder
	frame := xyz.Frame{Comment: xyz.CommentWithEnergy(method, energy), Atoms: atoms}
	if err := xyz.Write(&sb, frame); err != nil {
		return "", err
	}
	return sb.String(), nil
}
