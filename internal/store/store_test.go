// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.yaml.in/yaml/v3"

	"github.com/f-block/archon/pkg/types"
)

// --- test helpers ---

func testSetup(t *testing.T) (*Store, string) {
	t.Helper()
	tmpDir := t.TempDir()

	runsDir := filepath.Join(tmpDir, "runs")
	if err := os.MkdirAll(runsDir, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := types.StoreConfig{
		IndexDir:   filepath.Join(tmpDir, "index"),
		RunsDir:    runsDir,
		MaxResults: 20,
	}
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return store, tmpDir
}

func testRun(runID, metal string, energies ...float64) types.RunResult {
	rep := types.RunReport{
		RunID:           runID,
		Metal:           metal,
		CoreGeometry:    "octahedral",
		CreatedAt:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		SymmetriesFound: len(energies),
		Assembled:       len(energies),
		Returned:        len(energies),
		Relaxed:         true,
		SanityFailed:    map[string]int{"collision": 1},
	}
	var confs []*types.Conformer
	for i, e := range energies {
		confs = append(confs, &types.Conformer{
			ID:        fmt.Sprintf("%s-%d", runID, i),
			RunID:     runID,
			Symmetry:  i,
			Method:    types.MethodGFN2,
			Energy:    e,
			Converged: true,
			Sane:      true,
			Atoms: []types.Atom{
				{Symbol: metal},
				{Symbol: "O", Z: 2.0},
			},
			Bonds: [][2]int{{0, 1}},
		})
	}
	return types.RunResult{Report: rep, Conformers: confs}
}

func writeRun(t *testing.T, tmpDir string, result types.RunResult) {
	t.Helper()
	data, err := yaml.Marshal(&result)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(tmpDir, "runs", result.Report.RunID+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// --- tests ---

func TestIngestIndexesNewRuns(t *testing.T) {
	store, tmpDir := testSetup(t)
	writeRun(t, tmpDir, testRun("run-a", "Fe", -10, -9))
	writeRun(t, tmpDir, testRun("run-b", "U", -50))

	summary, err := store.Ingest(context.Background(), io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Indexed != 2 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want 2 indexed", summary)
	}

	results, err := store.Retrieve(context.Background(), QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d conformers, want 3", len(results))
	}
	// Lowest energy first, across runs.
	if results[0].Energy != -50 {
		t.Errorf("first energy = %v, want -50", results[0].Energy)
	}
}

func TestIngestSkipsUnchangedAndUpdatesChanged(t *testing.T) {
	store, tmpDir := testSetup(t)
	writeRun(t, tmpDir, testRun("run-a", "Fe", -10))

	if _, err := store.Ingest(context.Background(), io.Discard); err != nil {
		t.Fatal(err)
	}

	summary, err := store.Ingest(context.Background(), io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 1 || summary.Indexed != 0 {
		t.Errorf("second pass summary = %+v, want 1 skipped", summary)
	}

	// Rewrite the run with a new mod time and different contents.
	path := filepath.Join(tmpDir, "runs", "run-a.yaml")
	writeRun(t, tmpDir, testRun("run-a", "Fe", -10, -8))
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	summary, err = store.Ingest(context.Background(), io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Updated != 1 {
		t.Errorf("third pass summary = %+v, want 1 updated", summary)
	}

	results, err := store.Retrieve(context.Background(), QueryOptions{RunID: "run-a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("got %d conformers after update, want 2", len(results))
	}
}

func TestIngestReportsMalformedFiles(t *testing.T) {
	store, tmpDir := testSetup(t)
	path := filepath.Join(tmpDir, "runs", "broken.yaml")
	if err := os.WriteFile(path, []byte(":\nnot yaml ["), 0o644); err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	summary, err := store.Ingest(context.Background(), &out)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 1 {
		t.Errorf("summary = %+v, want 1 failed", summary)
	}
	if !strings.Contains(out.String(), "failed") {
		t.Errorf("output missing failure notice: %q", out.String())
	}
}

func TestRetrieveFilters(t *testing.T) {
	store, tmpDir := testSetup(t)
	runA := testRun("run-a", "Fe", -10, -9)
	runA.Conformers[1].Converged = false
	runA.Conformers[1].Sane = false
	writeRun(t, tmpDir, runA)
	writeRun(t, tmpDir, testRun("run-b", "U", -50, -2))

	if _, err := store.Ingest(context.Background(), io.Discard); err != nil {
		t.Fatal(err)
	}

	byMetal, err := store.Retrieve(context.Background(), QueryOptions{Metal: "U"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byMetal) != 2 {
		t.Errorf("metal filter: got %d, want 2", len(byMetal))
	}

	converged, err := store.Retrieve(context.Background(), QueryOptions{RunID: "run-a", OnlyConverged: true, OnlySane: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(converged) != 1 || converged[0].Energy != -10 {
		t.Errorf("converged filter: got %+v", converged)
	}

	lo, hi := -20.0, -5.0
	window, err := store.Retrieve(context.Background(), QueryOptions{MinEnergy: &lo, MaxEnergy: &hi})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range window {
		if r.Energy < lo || r.Energy > hi {
			t.Errorf("energy %v outside window [%v, %v]", r.Energy, lo, hi)
		}
	}

	limited, err := store.Retrieve(context.Background(), QueryOptions{MaxResults: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limit: got %d, want 1", len(limited))
	}
}

func TestReportRoundTrip(t *testing.T) {
	store, tmpDir := testSetup(t)
	writeRun(t, tmpDir, testRun("run-a", "Fe", -10))
	if _, err := store.Ingest(context.Background(), io.Discard); err != nil {
		t.Fatal(err)
	}

	rep, err := store.Report(context.Background(), "run-a")
	if err != nil {
		t.Fatal(err)
	}
	want := testRun("run-a", "Fe", -10).Report
	if diff := cmp.Diff(want, rep); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	if _, err := store.Report(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestListRuns(t *testing.T) {
	store, tmpDir := testSetup(t)
	writeRun(t, tmpDir, testRun("run-a", "Fe", -10))
	writeRun(t, tmpDir, testRun("run-b", "U", -50))
	if _, err := store.Ingest(context.Background(), io.Discard); err != nil {
		t.Fatal(err)
	}

	ids, err := store.ListRuns(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d runs, want 2", len(ids))
	}
}

func TestTraceRendersXYZ(t *testing.T) {
	store, tmpDir := testSetup(t)
	writeRun(t, tmpDir, testRun("run-a", "Fe", -10))
	if _, err := store.Ingest(context.Background(), io.Discard); err != nil {
		t.Fatal(err)
	}

	out, err := store.Trace(context.Background(), "run-a-0")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "2\n") {
		t.Errorf("trace should start with atom count: %q", out)
	}
	if !strings.Contains(out, "energy=-10") {
		t.Errorf("trace missing energy annotation: %q", out)
	}
	if !strings.Contains(out, "Fe") {
		t.Errorf("trace missing metal line: %q", out)
	}

	if _, err := store.Trace(context.Background(), "nope"); err == nil {
		t.Error("expected error for unknown conformer")
	}
}

func TestExportJSONAndYAML(t *testing.T) {
	store, tmpDir := testSetup(t)
	writeRun(t, tmpDir, testRun("run-a", "Fe", -10, -9))
	if _, err := store.Ingest(context.Background(), io.Discard); err != nil {
		t.Fatal(err)
	}

	if err := store.ExportJSON(context.Background(), QueryOptions{}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(tmpDir, "index", "export.json"))
	if err != nil {
		t.Fatal(err)
	}
	var entries []ExportEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d export entries, want 2", len(entries))
	}
	if entries[0].XYZ == "" {
		t.Error("export entry missing XYZ block")
	}

	if err := store.ExportYAML(context.Background(), QueryOptions{Metal: "Fe"}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "index", "export.yaml")); err != nil {
		t.Error("export.yaml not written")
	}
}
