// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package calc

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/f-block/archon/internal/toolchain"
	"github.com/f-block/archon/internal/xyz"
	"github.com/f-block/archon/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewRejectsUnknownMethod(t *testing.T) {
	_, err := New("PM7", types.Parameters{}, nil)
	assert.Error(t, err)
}

func TestNewGFNRequiresTool(t *testing.T) {
	_, err := New(types.MethodGFN2, types.Parameters{}, nil)
	assert.Error(t, err)

	c, err := New(types.MethodUFF, types.Parameters{}, nil)
	require.NoError(t, err)
	assert.Equal(t, types.MethodUFF, c.Name())
}

func TestIsGFNMatchesAliases(t *testing.T) {
	assert.True(t, IsGFN(types.MethodGFN2))
	assert.True(t, IsGFN(types.MethodGFNFF))
	assert.True(t, IsGFN("gfn2-xtb"))
	assert.False(t, IsGFN(types.MethodUFF))
	assert.False(t, IsGFN(types.MethodMMFF))
}

func TestXTBCharge(t *testing.T) {
	tests := []struct {
		name    string
		metal   string
		charge  int
		oxState int
		want    int
	}{
		{"transition metal unchanged", "Fe", 3, 3, 3},
		{"uranyl folds to trivalent", "U", 2, 6, -1},
		{"trivalent actinide unchanged", "Am", 3, 3, 3},
		{"lanthanide IV drops one", "Ce", 4, 4, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			atoms := []types.Atom{{Symbol: tt.metal}}
			assert.Equal(t, tt.want, XTBCharge(atoms, tt.charge, tt.oxState))
		})
	}
}

func TestForceFieldOptimizesBondLength(t *testing.T) {
	sys := System{
		Atoms: []types.Atom{
			{Symbol: "H"},
			{Symbol: "H", Z: 1.2},
		},
		Bonds: [][2]int{{0, 1}},
	}
	ff := newForceField(types.MethodUFF, types.Parameters{FMax: 0.01})

	res, err := ff.Optimize(context.Background(), sys)
	require.NoError(t, err)
	assert.True(t, res.Converged)

	got := r3.Norm(r3.Sub(res.Atoms[1].Position(), res.Atoms[0].Position()))
	want := 0.62 // twice the hydrogen covalent radius
	assert.InDelta(t, want, got, 0.02)
	assert.Less(t, res.Energy, 1e-3)
}

func TestForceFieldRepulsionPushesApart(t *testing.T) {
	sys := System{
		Atoms: []types.Atom{
			{Symbol: "O"},
			{Symbol: "O", Z: 0.5},
		},
	}
	ff := newForceField(types.MethodUFF, types.Parameters{})

	sp, err := ff.SinglePoint(context.Background(), sys)
	require.NoError(t, err)
	assert.Greater(t, sp.Energy, 0.0)

	res, err := ff.Optimize(context.Background(), sys)
	require.NoError(t, err)
	assert.Greater(t, res.Atoms[1].Z-res.Atoms[0].Z, 0.5)
	assert.Less(t, res.Energy, sp.Energy)
}

func TestForceFieldMMFFVariant(t *testing.T) {
	ff := newForceField(types.MethodMMFF, types.Parameters{})
	assert.Equal(t, types.MethodMMFF, ff.Name())
	assert.Greater(t, ff.bondK, uffBondK)
}

func TestParseTotalEnergyTakesLast(t *testing.T) {
	out := `
          | TOTAL ENERGY              -5.070544440612 Eh   |
 ... optimization ...
          | TOTAL ENERGY              -5.080123456789 Eh   |
`
	e, ok := parseTotalEnergy(out)
	require.True(t, ok)
	assert.InDelta(t, -5.080123456789, e, 1e-12)

	_, ok = parseTotalEnergy("no energy here")
	assert.False(t, ok)
}

func TestXTBArgs(t *testing.T) {
	sys := System{Charge: -1, Spin: 2}

	gfn2 := newXTB(types.MethodGFN2, types.Parameters{XTBSolvent: "water"}, nil)
	args := gfn2.args(sys, true)
	assert.Contains(t, args, "--gfn")
	assert.Contains(t, args, "--chrg")
	assert.Contains(t, args, "-1")
	assert.Contains(t, args, "--uhf")
	assert.Contains(t, args, "--alpb")
	assert.Contains(t, args, "water")
	assert.Contains(t, args, "--opt")

	gfnff := newXTB(types.MethodGFNFF, types.Parameters{}, nil)
	args = gfnff.args(sys, false)
	assert.Contains(t, args, "--gfnff")
	assert.NotContains(t, args, "--alpb")
	assert.NotContains(t, args, "--opt")
}

// mockCalc scripts Calculator responses and records calls.
type mockCalc struct {
	name         string
	spEnergy     float64
	spErr        error
	optEnergy    float64
	optErr       error
	optConverged bool
	spCalls      *int32
	optCalls     *int32
}

func (m *mockCalc) Name() string { return m.name }

func (m *mockCalc) SinglePoint(_ context.Context, sys System) (Result, error) {
	if m.spCalls != nil {
		atomic.AddInt32(m.spCalls, 1)
	}
	if m.spErr != nil {
		return Result{}, m.spErr
	}
	return Result{Atoms: clone(sys.Atoms), Energy: m.spEnergy, Converged: true}, nil
}

func (m *mockCalc) Optimize(_ context.Context, sys System) (Result, error) {
	if m.optCalls != nil {
		atomic.AddInt32(m.optCalls, 1)
	}
	if m.optErr != nil {
		return Result{}, m.optErr
	}
	return Result{Atoms: clone(sys.Atoms), Energy: m.optEnergy, Converged: m.optConverged}, nil
}

// saneDiatomic passes the full-stage distance checks.
func saneDiatomic() *types.Conformer {
	return &types.Conformer{
		Atoms: []types.Atom{
			{Symbol: "H"},
			{Symbol: "H", Z: 0.74},
		},
		Bonds: [][2]int{{0, 1}},
	}
}

func testExecutor(t *testing.T, mock Calculator, params types.Parameters, assembly bool) *Executor {
	t.Helper()
	ex := NewExecutor(params, nil, assembly, 2, zap.NewNop())
	ex.backoff = time.Millisecond
	ex.newCalculator = func(string, types.Parameters, toolchain.Tool) (Calculator, error) {
		return mock, nil
	}
	return ex
}

func TestExecutorSanityGateSkipsEvaluation(t *testing.T) {
	var spCalls int32
	mock := &mockCalc{name: types.MethodGFN2, spCalls: &spCalls}
	ex := testExecutor(t, mock, types.Parameters{}, false)

	conf := &types.Conformer{
		Atoms: []types.Atom{{Symbol: "C"}, {Symbol: "C", X: 0.2}},
	}
	require.NoError(t, ex.Evaluate(context.Background(), conf))

	assert.False(t, conf.Sane)
	assert.NotEmpty(t, conf.SanityFailures)
	assert.Equal(t, types.FailedEnergy, conf.Energy)
	assert.Zero(t, atomic.LoadInt32(&spCalls))
}

func TestExecutorRelaxRecordsOutcome(t *testing.T) {
	mock := &mockCalc{name: types.MethodGFN2, spEnergy: -10, optEnergy: -12, optConverged: true}
	ex := testExecutor(t, mock, types.Parameters{}, false)

	conf := saneDiatomic()
	require.NoError(t, ex.Evaluate(context.Background(), conf))

	assert.True(t, conf.Sane)
	assert.True(t, conf.Relaxed)
	assert.True(t, conf.Converged)
	assert.InDelta(t, -12, conf.Energy, 1e-9)
	assert.InDelta(t, -10, conf.InitEnergy, 1e-9)
	assert.GreaterOrEqual(t, conf.RMSD, 0.0)
	assert.Greater(t, conf.WallTime, time.Duration(0))
}

func TestExecutorSentinelAfterRetries(t *testing.T) {
	var spCalls int32
	mock := &mockCalc{name: types.MethodGFN2, spErr: errors.New("scf not converged"), spCalls: &spCalls}
	ex := testExecutor(t, mock, types.Parameters{}, false)

	conf := saneDiatomic()
	require.NoError(t, ex.Evaluate(context.Background(), conf))

	assert.Equal(t, types.FailedEnergy, conf.Energy)
	assert.False(t, conf.Converged)
	assert.NotEmpty(t, conf.Errors)
	assert.Equal(t, int32(maxAttempts), atomic.LoadInt32(&spCalls))
}

func TestExecutorForceGenerationKeepsUnconverged(t *testing.T) {
	mock := &mockCalc{name: types.MethodGFN2, spEnergy: -10, optEnergy: -11, optConverged: false}

	conf := saneDiatomic()
	ex := testExecutor(t, mock, types.Parameters{ForceGeneration: true}, false)
	require.NoError(t, ex.Evaluate(context.Background(), conf))
	assert.InDelta(t, -11, conf.Energy, 1e-9)
	assert.False(t, conf.Converged)

	conf = saneDiatomic()
	ex = testExecutor(t, mock, types.Parameters{}, false)
	require.NoError(t, ex.Evaluate(context.Background(), conf))
	assert.Equal(t, types.FailedEnergy, conf.Energy)
}

func TestExecutorAssemblyStageSkipsRelax(t *testing.T) {
	var optCalls int32
	mock := &mockCalc{name: types.MethodGFN2, spEnergy: -5, optCalls: &optCalls}
	ex := testExecutor(t, mock, types.Parameters{}, true)

	conf := saneDiatomic()
	require.NoError(t, ex.Evaluate(context.Background(), conf))

	assert.False(t, conf.Relaxed)
	assert.InDelta(t, -5, conf.Energy, 1e-9)
	assert.Zero(t, atomic.LoadInt32(&optCalls))
}

func TestExecutorChargeMismatchSuppressesRelax(t *testing.T) {
	// A uranium center at formal oxidation state VI: the representable
	// charge differs by 3 and relaxation must be suppressed.
	conf := &types.Conformer{
		Atoms: []types.Atom{
			{Symbol: "U"},
			{Symbol: "O", Z: 1.8},
			{Symbol: "O", Z: -1.8},
		},
		Bonds:  [][2]int{{0, 1}, {0, 2}},
		Charge: 2,
	}

	var optCalls int32
	mock := &mockCalc{name: types.MethodGFN2, spEnergy: -50, optEnergy: -55, optConverged: true, optCalls: &optCalls}

	ex := testExecutor(t, mock, types.Parameters{}, false)
	ex.OxState = 6
	require.NoError(t, ex.Evaluate(context.Background(), conf))
	assert.False(t, conf.Relaxed)
	assert.Zero(t, atomic.LoadInt32(&optCalls))

	// override_oxo_opt restores relaxation outside assembly.
	conf2 := &types.Conformer{
		Atoms:  conf.Positions(),
		Bonds:  conf.Bonds,
		Charge: 2,
	}
	ex = testExecutor(t, mock, types.Parameters{OverrideOxoOpt: true}, false)
	ex.OxState = 6
	require.NoError(t, ex.Evaluate(context.Background(), conf2))
	assert.True(t, conf2.Relaxed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&optCalls))
}

// recordingCalc captures the System handed to the calculator.
type recordingCalc struct {
	inner Calculator
	sys   System
}

func (r *recordingCalc) Name() string { return r.inner.Name() }

func (r *recordingCalc) SinglePoint(ctx context.Context, sys System) (Result, error) {
	r.sys = sys
	return r.inner.SinglePoint(ctx, sys)
}

func (r *recordingCalc) Optimize(ctx context.Context, sys System) (Result, error) {
	r.sys = sys
	return r.inner.Optimize(ctx, sys)
}

func TestExecutorPassesRepresentableChargeToXTB(t *testing.T) {
	// Uranium at formal oxidation state VI: xtb parameterizes the
	// center as trivalent, so the complex charge it receives is
	// 2 - (6 - 3) = -1, not the formal 2.
	conf := &types.Conformer{
		Atoms: []types.Atom{
			{Symbol: "U"},
			{Symbol: "O", Z: 1.8},
			{Symbol: "O", Z: -1.8},
		},
		Bonds:  [][2]int{{0, 1}, {0, 2}},
		Charge: 2,
	}

	rec := &recordingCalc{inner: &mockCalc{name: types.MethodGFN2, spEnergy: -50}}
	ex := testExecutor(t, rec, types.Parameters{}, false)
	ex.OxState = 6
	require.NoError(t, ex.Evaluate(context.Background(), conf))

	assert.Equal(t, -1, rec.sys.Charge)
	// The conformer record keeps the formal charge.
	assert.Equal(t, 2, conf.Charge)
}

func TestExecutorZeroesChargeAndSpinForGFNFF(t *testing.T) {
	conf := saneDiatomic()
	conf.Charge = 2
	conf.Spin = 1

	rec := &recordingCalc{inner: &mockCalc{name: types.MethodGFNFF, spEnergy: -5}}
	ex := testExecutor(t, rec, types.Parameters{AssembleMethod: types.MethodGFNFF}, true)
	require.NoError(t, ex.Evaluate(context.Background(), conf))

	assert.Zero(t, rec.sys.Charge)
	assert.Zero(t, rec.sys.Spin)
	assert.Equal(t, 2, conf.Charge)
}

// fakeObabel mimics the converter by writing a minimized geometry file
// into the scratch directory.
type fakeObabel struct {
	atoms []types.Atom
	err   error
}

func (f *fakeObabel) Name() string             { return "obabel" }
func (f *fakeObabel) Available() bool          { return true }
func (f *fakeObabel) Version() (string, error) { return "fake", nil }

func (f *fakeObabel) Run(_ context.Context, dir string, _ []string, _, _ io.Writer) error {
	if f.err != nil {
		return f.err
	}
	frame := xyz.Frame{Comment: "minimized", Atoms: f.atoms}
	return xyz.WriteFile(filepath.Join(dir, obabelOutputFile), []xyz.Frame{frame})
}

func TestExecutorPreoptimizesWithObabel(t *testing.T) {
	conf := saneDiatomic()
	minimized := []types.Atom{
		{Symbol: "H"},
		{Symbol: "H", Z: 0.71},
	}

	rec := &recordingCalc{inner: &mockCalc{name: types.MethodGFN2, optEnergy: -9, optConverged: true}}
	ex := testExecutor(t, rec, types.Parameters{FFPreopt: true}, false)
	ex.Obabel = &fakeObabel{atoms: minimized}
	require.NoError(t, ex.Evaluate(context.Background(), conf))

	// The main method sees the converter's minimized geometry.
	assert.InDelta(t, 0.71, rec.sys.Atoms[1].Z, 1e-12)
	assert.Empty(t, conf.Errors)
}

func TestExecutorObabelFailureFallsBackToInternalFF(t *testing.T) {
	conf := saneDiatomic()

	rec := &recordingCalc{inner: &mockCalc{name: types.MethodGFN2, optEnergy: -9, optConverged: true}}
	ex := testExecutor(t, rec, types.Parameters{FFPreopt: true}, false)
	ex.Obabel = &fakeObabel{err: errors.New("segfault")}
	require.NoError(t, ex.Evaluate(context.Background(), conf))

	assert.True(t, conf.Sane)
	assert.InDelta(t, -9, conf.Energy, 1e-9)
	assert.Len(t, rec.sys.Atoms, 2)
}

func TestExecutorRetryEscalatesElectronicTemperature(t *testing.T) {
	var etemps []float64
	calls := 0
	ex := NewExecutor(types.Parameters{}, nil, false, 2, zap.NewNop())
	ex.backoff = time.Millisecond
	ex.newCalculator = func(_ string, p types.Parameters, _ toolchain.Tool) (Calculator, error) {
		etemps = append(etemps, p.XTBElectronicTemperature)
		calls++
		if calls < 3 {
			return &mockCalc{name: types.MethodGFN2, spErr: errors.New("scf failure")}, nil
		}
		return &mockCalc{name: types.MethodGFN2, spEnergy: -7, optEnergy: -8, optConverged: true}, nil
	}

	conf := saneDiatomic()
	require.NoError(t, ex.Evaluate(context.Background(), conf))

	require.Len(t, etemps, 3)
	assert.InDelta(t, types.DefaultXTBElectronicTemp, etemps[0], 1e-9)
	assert.InDelta(t, types.DefaultXTBElectronicTemp+etempStep, etemps[1], 1e-9)
	assert.InDelta(t, types.DefaultXTBElectronicTemp+2*etempStep, etemps[2], 1e-9)
	assert.InDelta(t, -8, conf.Energy, 1e-9)
}

func TestEvaluateAllBoundedParallel(t *testing.T) {
	mock := &mockCalc{name: types.MethodGFN2, spEnergy: -3, optEnergy: -4, optConverged: true}
	ex := testExecutor(t, mock, types.Parameters{Workers: 2}, false)

	confs := make([]*types.Conformer, 8)
	for i := range confs {
		confs[i] = saneDiatomic()
	}
	require.NoError(t, EvaluateAll(context.Background(), ex, confs))
	for i, c := range confs {
		assert.InDelta(t, -4, c.Energy, 1e-9, "conformer %d", i)
		assert.True(t, c.Converged, "conformer %d", i)
	}
}

func TestEvaluateAllHonorsCancellation(t *testing.T) {
	mock := &mockCalc{name: types.MethodGFN2, spEnergy: -3, optEnergy: -4, optConverged: true}
	ex := testExecutor(t, mock, types.Parameters{Workers: 1}, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	confs := []*types.Conformer{saneDiatomic()}
	err := EvaluateAll(ctx, ex, confs)
	// The mock ignores the context, so either outcome is a clean exit;
	// what matters is no hang and no panic.
	_ = err
}

func TestPerceiveBonds(t *testing.T) {
	atoms := []types.Atom{
		{Symbol: "O"},
		{Symbol: "H", X: 0.96},
		{Symbol: "H", X: -0.24, Y: 0.93},
		{Symbol: "Ar", X: 8.0},
	}

	bonds := PerceiveBonds(atoms)
	assert.ElementsMatch(t, [][2]int{{0, 1}, {0, 2}}, bonds)
}
