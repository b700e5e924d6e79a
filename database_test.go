package main

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDBSettingsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if got := db.GetSetting("missing"); got != "" {
		t.Errorf("expected empty value for missing key, got %q", got)
	}
	if err := db.SetSetting("jwt_secret", "abc123"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if got := db.GetSetting("jwt_secret"); got != "abc123" {
		t.Errorf("expected abc123, got %q", got)
	}
	// Upsert overwrites
	if err := db.SetSetting("jwt_secret", "def456"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if got := db.GetSetting("jwt_secret"); got != "def456" {
		t.Errorf("expected def456, got %q", got)
	}
}

func TestDBRunLifecycle(t *testing.T) {
	db := openTestDB(t)

	id, err := db.CreateRun()
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero run id")
	}

	samples := []SampleRow{
		{RunID: id, At: "2026-01-01T00:00:00Z", Bodies: 100, CellSize: 24, TickMs: 1.5, AvgMs: 1.2, FPS: 60},
		{RunID: id, At: "2026-01-01T00:00:01Z", Bodies: 200, CellSize: 24, TickMs: 2.5, AvgMs: 2.0, FPS: 59},
	}
	if err := db.InsertSamples(samples); err != nil {
		t.Fatalf("InsertSamples: %v", err)
	}

	if err := db.FinishRun(id, 200, 2.0, 500); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].FinalBodies != 200 || runs[0].MaxTickRate != 500 {
		t.Errorf("unexpected run summary: %+v", runs[0])
	}
	if runs[0].EndedAt == "" {
		t.Error("expected ended_at set")
	}

	got, err := db.RunSamples(id, 100)
	if err != nil {
		t.Fatalf("RunSamples: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}
	if got[0].Bodies != 100 || got[1].Bodies != 200 {
		t.Errorf("samples out of order or wrong: %+v", got)
	}
}

func TestDBInsertSamplesEmpty(t *testing.T) {
	db := openTestDB(t)
	if err := db.InsertSamples(nil); err != nil {
		t.Errorf("empty batch must be a no-op, got %v", err)
	}
}
