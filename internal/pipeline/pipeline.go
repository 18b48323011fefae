// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates a generation run: symmetry enumeration,
// assembly, evaluation, screening, and output writing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/f-block/archon/internal/assemble"
	"github.com/f-block/archon/internal/calc"
	"github.com/f-block/archon/internal/geometry"
	"github.com/f-block/archon/internal/ptable"
	"github.com/f-block/archon/internal/screen"
	"github.com/f-block/archon/internal/symmetry"
	"github.com/f-block/archon/internal/toolchain"
	"github.com/f-block/archon/internal/xyz"
	"github.com/f-block/archon/pkg/types"
)

const (
	rawDir     = "raw"
	relaxedDir = "relaxed"
)

// Run executes one generation request end to end and persists the run
// result. Progress lines go to w; structured events to the logger.
func Run(ctx context.Context, req types.ComplexRequest, cfg types.GenerateConfig, logger *zap.Logger, w io.Writer) (*types.RunResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	params := req.Parameters.Normalized()

	core, err := resolveCore(req)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	report := types.RunReport{
		RunID:               runID,
		Metal:               req.Metal,
		CoreGeometry:        core.Name,
		CreatedAt:           start.UTC(),
		RequestedConformers: params.NConformers,
		RequestedSymmetries: params.NSymmetries,
		Relaxed:             params.ShouldRelax(),
		ForceTransOxos:      params.ForceTransOxos,
		ForceGeneration:     params.ForceGeneration,
		ActinideCenter:      ptable.IsActinide(req.Metal),
		SanityFailed:        map[string]int{},
	}
	result := &types.RunResult{Report: report, Request: req}

	logger.Info("starting run",
		zap.String("run_id", runID),
		zap.String("metal", req.Metal),
		zap.String("core", core.Name))

	ligs, assignments, err := symmetry.Enumerate(req, core, params)
	if err != nil {
		var unmappable *symmetry.UnmappableError
		var overCoord *symmetry.OverCoordinationError
		if errors.As(err, &unmappable) || errors.As(err, &overCoord) {
			// Diagnosable outcome, not a pipeline failure.
			fmt.Fprintf(w, "no placements: %v\n", err)
			logger.Warn("no ligand placements", zap.Error(err))
			result.Report.WallTime = time.Since(start)
			return result, persist(result, cfg)
		}
		return nil, err
	}
	for _, l := range ligs {
		if l.IsOxo() {
			result.Report.HasOxoLigands = true
		}
	}
	result.Report.SymmetriesFound = len(assignments)
	fmt.Fprintf(w, "placements: %d\n", len(assignments))

	tool, err := resolveTool(params, cfg)
	if err != nil {
		return nil, err
	}

	confs := make([]*types.Conformer, 0, len(assignments))
	for i, asg := range assignments {
		conf, err := assemble.Build(req, core, ligs, asg, params)
		if err != nil {
			logger.Warn("assembly failed", zap.Int("symmetry", i), zap.Error(err))
			continue
		}
		conf.ID = fmt.Sprintf("%s-%d", runID, i)
		conf.RunID = runID
		conf.Symmetry = i
		confs = append(confs, conf)
	}
	result.Report.Assembled = len(confs)
	fmt.Fprintf(w, "assembled:  %d\n", len(confs))

	if err := writeStructures(cfg.StructuresDir, rawDir, runID, confs); err != nil {
		logger.Warn("writing raw structures", zap.Error(err))
	}

	// Assembly-stage screening: single points and loose checks.
	assemblyExec := calc.NewExecutor(params, tool, true, req.OxidationState, logger)
	if err := calc.EvaluateAll(ctx, assemblyExec, confs); err != nil {
		return nil, err
	}

	survivors := make([]*types.Conformer, 0, len(confs))
	for _, c := range confs {
		if !c.Sane {
			for _, r := range c.SanityFailures {
				result.Report.SanityFailed[reasonKind(r)]++
			}
			continue
		}
		survivors = append(survivors, c)
	}

	// Full-stage evaluation with relaxation. When openbabel is around it
	// handles the force-field pre-optimization.
	fullExec := calc.NewExecutor(params, tool, false, req.OxidationState, logger)
	if params.FFPreopt {
		if obabel, err := toolchain.DetectObabel(); err == nil && obabel != nil {
			logger.Debug("using obabel for pre-optimization", zap.String("binary", obabel.Name()))
			fullExec.Obabel = obabel
		}
	}
	if err := calc.EvaluateAll(ctx, fullExec, survivors); err != nil {
		return nil, err
	}

	selected, summary := screen.Select(survivors, params)
	for kind, n := range summary.FailureReasons {
		result.Report.SanityFailed[kind] += n
	}
	result.Report.ConvergenceFailed = summary.ConvergenceFailed
	result.Report.DuplicatesRemoved = summary.DuplicatesRemoved
	result.Report.Returned = len(selected)
	result.Conformers = selected

	fmt.Fprintf(w, "returned:   %d (duplicates removed: %d, convergence failed: %d)\n",
		len(selected), summary.DuplicatesRemoved, summary.ConvergenceFailed)

	if err := writeStructures(cfg.StructuresDir, relaxedDir, runID, selected); err != nil {
		logger.Warn("writing relaxed structures", zap.Error(err))
	}

	result.Report.WallTime = time.Since(start)
	if err := persist(result, cfg); err != nil {
		return nil, err
	}

	logger.Info("run complete",
		zap.String("run_id", runID),
		zap.Int("returned", len(selected)),
		zap.Duration("wall_time", result.Report.WallTime))
	return result, nil
}

// resolveCore picks the core geometry by name, or by coordination
// number when no name is given.
func resolveCore(req types.ComplexRequest) (geometry.Core, error) {
	if req.CoreGeometry != "" {
		return geometry.ByName(req.CoreGeometry)
	}
	return geometry.ByCN(req.CoreCN)
}

// resolveTool detects xtb when a GFN method is requested. Force-field
// only runs need no external binary.
func resolveTool(params types.Parameters, cfg types.GenerateConfig) (toolchain.Tool, error) {
	needsXTB := calc.IsGFN(params.AssembleMethod) || calc.IsGFN(params.FullMethod)
	if !needsXTB {
		return nil, nil
	}
	tool, err := toolchain.DetectXTB(cfg.XTBPath)
	if err != nil {
		return nil, fmt.Errorf("%w; set generate.xtb_path or choose the UFF/MMFF methods", err)
	}
	return tool, nil
}

// writeStructures dumps conformers as one XYZ file per structure under
// structuresDir/stage/.
func writeStructures(structuresDir, stage, runID string, confs []*types.Conformer) error {
	if structuresDir == "" || len(confs) == 0 {
		return nil
	}
	dir := filepath.Join(structuresDir, stage)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	for _, c := range confs {
		frame := xyz.Frame{Comment: xyz.CommentWithEnergy(c.ID, c.Energy), Atoms: c.Atoms}
		path := filepath.Join(dir, c.ID+".xyz")
		if err := xyz.WriteFile(path, []xyz.Frame{frame}); err != nil {
			return err
		}
	}
	return nil
}

// persist writes the run result YAML under the runs directory.
func persist(result *types.RunResult, cfg types.GenerateConfig) error {
	if cfg.RunsDir == "" {
		return nil
	}
	if err := os.MkdirAll(cfg.RunsDir, 0o755); err != nil {
		return fmt.Errorf("creating runs directory: %w", err)
	}
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling run result: %w", err)
	}
	path := filepath.Join(cfg.RunsDir, result.Report.RunID+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing run result: %w", err)
	}
	return nil
}

func reasonKind(reason string) string {
	for i := 0; i < len(reason); i++ {
		if reason[i] == ':' {
			return reason[:i]
		}
	}
	return reason
}
