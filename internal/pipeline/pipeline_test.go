// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/f-block/archon/pkg/types"
)

func testConfig(t *testing.T) types.GenerateConfig {
	t.Helper()
	base := t.TempDir()
	return types.GenerateConfig{
		StructuresDir: filepath.Join(base, "structures"),
		RunsDir:       filepath.Join(base, "runs"),
	}
}

// ffParams avoids the xtb dependency so runs complete in-process.
func ffParams() types.Parameters {
	return types.Parameters{
		AssembleMethod:  types.MethodUFF,
		FullMethod:      types.MethodUFF,
		ForceGeneration: true,
		Workers:         2,
	}
}

func chloro(t *testing.T) types.Ligand {
	t.Helper()
	l, err := types.BuiltinLigand("chloro")
	require.NoError(t, err)
	return l
}

func aqua(t *testing.T) types.Ligand {
	t.Helper()
	l, err := types.BuiltinLigand("aqua")
	require.NoError(t, err)
	return l
}

func TestRunLinearChloride(t *testing.T) {
	cfg := testConfig(t)
	req := types.ComplexRequest{
		Metal:          "Ag",
		OxidationState: 1,
		CoreGeometry:   "linear",
		Ligands:        []types.Ligand{chloro(t), chloro(t)},
		Parameters:     ffParams(),
	}

	var out bytes.Buffer
	result, err := Run(context.Background(), req, cfg, nil, &out)
	require.NoError(t, err)

	assert.Equal(t, "Ag", result.Report.Metal)
	assert.Equal(t, "linear", result.Report.CoreGeometry)
	assert.GreaterOrEqual(t, result.Report.SymmetriesFound, 1)
	assert.GreaterOrEqual(t, result.Report.Assembled, 1)
	assert.Equal(t, 1, result.Report.Returned)
	require.Len(t, result.Conformers, 1)

	conf := result.Conformers[0]
	assert.Equal(t, result.Report.RunID, conf.RunID)
	assert.True(t, conf.Sane)
	assert.Len(t, conf.Atoms, 3)
	assert.Equal(t, -1, conf.Charge)

	assert.Contains(t, out.String(), "placements:")
	assert.Contains(t, out.String(), "returned:")

	// The run result lands in the runs directory as YAML.
	data, err := os.ReadFile(filepath.Join(cfg.RunsDir, result.Report.RunID+".yaml"))
	require.NoError(t, err)
	var persisted types.RunResult
	require.NoError(t, yaml.Unmarshal(data, &persisted))
	assert.Equal(t, result.Report.RunID, persisted.Report.RunID)
	assert.Len(t, persisted.Conformers, 1)
	assert.Equal(t, "Ag", persisted.Request.Metal)

	// Raw and relaxed structures are written per conformer.
	raw, err := filepath.Glob(filepath.Join(cfg.StructuresDir, "raw", "*.xyz"))
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	relaxed, err := filepath.Glob(filepath.Join(cfg.StructuresDir, "relaxed", "*.xyz"))
	require.NoError(t, err)
	assert.Len(t, relaxed, 1)
}

func TestRunFillsUnderCoordination(t *testing.T) {
	cfg := testConfig(t)
	req := types.ComplexRequest{
		Metal:          "Fe",
		OxidationState: 3,
		CoreGeometry:   "octahedral",
		Ligands:        []types.Ligand{aqua(t)},
		Parameters:     ffParams(),
	}

	result, err := Run(context.Background(), req, cfg, nil, &bytes.Buffer{})
	require.NoError(t, err)
	require.NotEmpty(t, result.Conformers)

	// One aqua plus five fill aquas on an octahedral core.
	assert.Len(t, result.Conformers[0].Atoms, 19)
	assert.Equal(t, 3, result.Conformers[0].Charge)
}

func TestRunOverCoordinationIsDiagnosable(t *testing.T) {
	cfg := testConfig(t)
	ligs := make([]types.Ligand, 7)
	for i := range ligs {
		ligs[i] = aqua(t)
	}
	req := types.ComplexRequest{
		Metal:          "Fe",
		OxidationState: 2,
		CoreGeometry:   "octahedral",
		Ligands:        ligs,
		Parameters:     ffParams(),
	}

	result, err := Run(context.Background(), req, cfg, nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Report.SymmetriesFound)
	assert.Equal(t, 0, result.Report.Returned)

	// Still persisted so diagnose can inspect the run.
	_, statErr := os.Stat(filepath.Join(cfg.RunsDir, result.Report.RunID+".yaml"))
	assert.NoError(t, statErr)
}

func TestRunInvalidRequest(t *testing.T) {
	req := types.ComplexRequest{OxidationState: 2, CoreCN: 6}
	_, err := Run(context.Background(), req, testConfig(t), nil, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request")
}

func TestRunMissingXTBBinary(t *testing.T) {
	cfg := testConfig(t)
	cfg.XTBPath = filepath.Join(t.TempDir(), "xtb")

	params := ffParams()
	params.FullMethod = types.MethodGFN2
	req := types.ComplexRequest{
		Metal:          "Ag",
		OxidationState: 1,
		CoreGeometry:   "linear",
		Ligands:        []types.Ligand{chloro(t), chloro(t)},
		Parameters:     params,
	}

	_, err := Run(context.Background(), req, cfg, nil, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xtb")
}

func TestRunReportFlagsOxoActinide(t *testing.T) {
	cfg := testConfig(t)
	oxo, err := types.BuiltinLigand("oxo")
	require.NoError(t, err)

	req := types.ComplexRequest{
		Metal:          "U",
		OxidationState: 6,
		CoreGeometry:   "octahedral",
		Ligands:        []types.Ligand{oxo, oxo},
		Parameters:     ffParams(),
	}

	result, runErr := Run(context.Background(), req, cfg, nil, &bytes.Buffer{})
	require.NoError(t, runErr)
	assert.True(t, result.Report.HasOxoLigands)
	assert.True(t, result.Report.ActinideCenter)
}
