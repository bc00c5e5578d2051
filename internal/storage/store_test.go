package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/livetrain/internal/dynamo"
)

func testResult() *dynamo.Result {
	return &dynamo.Result{
		Samples: []dynamo.Telemetry{
			{Time: 0, Pose: dynamo.NewPose(24, 24, 0), Reference: dynamo.NewPose(24, 24, 0), Following: true},
			{
				Time:         0.05,
				Pose:         dynamo.NewPose(24.5, 24.1, 0.01),
				Velocity:     dynamo.NewPose(10, 1, 0.2),
				Estimated:    dynamo.NewPose(24.6, 24.0, 0.02),
				Reference:    dynamo.NewPose(24.4, 24, 0),
				Powers:       dynamo.WheelPowers{0.1, -0.2, 0.3, -1},
				Following:    true,
				ControlFired: true,
			},
		},
		Metrics:    map[string]float64{"tracking_rms": 1.5},
		StepsTaken: 5,
		Errors:     []error{errors.New("late")},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(RunMetadata{Name: "line", Seed: 42, Integrator: "exact"}, testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Name != "line" || meta.Seed != 42 {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Metrics["tracking_rms"] != 1.5 {
		t.Errorf("expected tracking_rms 1.5, got %f", meta.Metrics["tracking_rms"])
	}
	if meta.Steps != 5 || meta.Samples != 2 {
		t.Errorf("expected 5 steps and 2 samples, got %d and %d", meta.Steps, meta.Samples)
	}
	if len(meta.Errors) != 1 || meta.Errors[0] != "late" {
		t.Errorf("unexpected errors %v", meta.Errors)
	}

	samples, err := st.LoadTelemetry(runID)
	if err != nil {
		t.Fatalf("load telemetry failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	want := testResult().Samples[1]
	got := samples[1]
	if got.Pose != want.Pose || got.Estimated != want.Estimated || got.Powers != want.Powers {
		t.Errorf("sample mismatch: %+v", got)
	}
	if !got.ControlFired || !got.Following {
		t.Error("flags not restored")
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	first, _ := st.Save(RunMetadata{Name: "a"}, testResult())
	second, _ := st.Save(RunMetadata{Name: "b"}, testResult())

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	ids := map[string]bool{runs[0].ID: true, runs[1].ID: true}
	if !ids[first] || !ids[second] {
		t.Errorf("unexpected ids %v", ids)
	}
}

func TestStoreListMissingDir(t *testing.T) {
	runs, err := New(filepath.Join(t.TempDir(), "absent")).List()
	if err != nil || len(runs) != 0 {
		t.Errorf("expected empty list, got %v, %v", runs, err)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(RunMetadata{}, testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{"metadata.json", "telemetry.csv"} {
		if _, err := os.Stat(filepath.Join(tmpDir, runID, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestStoreRejectsBadIDs(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("../etc"); err == nil {
		t.Error("expected error for non-uuid id")
	}
}

func TestStoreResolve(t *testing.T) {
	st := New(t.TempDir())
	runID, _ := st.Save(RunMetadata{}, testResult())

	got, err := st.Resolve(runID[:8])
	if err != nil || got != runID {
		t.Errorf("Resolve = %q, %v", got, err)
	}
	if _, err := st.Resolve("zzzz"); err == nil {
		t.Error("expected no match")
	}
}

func TestExport(t *testing.T) {
	st := New(t.TempDir())
	runID, _ := st.Save(RunMetadata{Name: "line"}, testResult())

	var buf bytes.Buffer
	if err := st.Export(&buf, runID); err != nil {
		t.Fatal(err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatal(err)
	}
	if data.Run.ID != runID || len(data.Samples) != 2 || data.Steps != 5 {
		t.Errorf("unexpected export %+v", data)
	}
}

func TestReadCSV_BadNumber(t *testing.T) {
	in := "time,x\n0,abc\n"
	if _, err := ReadCSV(strings.NewReader(in)); err == nil {
		t.Error("expected parse error")
	}
}
