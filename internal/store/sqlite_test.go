package store

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "history.db"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndUpdateSyncRun(t *testing.T) {
	s := newTestStore(t)

	run := &SyncRun{
		RunID:     "run-1",
		StartTime: time.Now(),
		Status:    "running",
	}
	if err := s.CreateSyncRun(run); err != nil {
		t.Fatalf("CreateSyncRun: %v", err)
	}
	if run.ID == 0 {
		t.Fatal("ID not set after insert")
	}

	run.Status = "success"
	run.Created = 3
	run.Updated = 1
	run.EndTime = time.Now()
	if err := s.UpdateSyncRun(run); err != nil {
		t.Fatalf("UpdateSyncRun: %v", err)
	}

	runs, err := s.ListSyncRuns(10)
	if err != nil {
		t.Fatalf("ListSyncRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	if runs[0].Status != "success" || runs[0].Created != 3 || runs[0].Updated != 1 {
		t.Errorf("run = %+v", runs[0])
	}
}

func TestUpdateSyncRunNotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpdateSyncRun(&SyncRun{ID: 999, StartTime: time.Now()}); err == nil {
		t.Error("expected error for unknown run")
	}
}

func TestListSyncRunsOrder(t *testing.T) {
	s := newTestStore(t)

	base := time.Now()
	for i := 0; i < 3; i++ {
		run := &SyncRun{
			RunID:     "run",
			StartTime: base.Add(time.Duration(i) * time.Hour),
			Status:    "success",
		}
		if err := s.CreateSyncRun(run); err != nil {
			t.Fatalf("CreateSyncRun: %v", err)
		}
	}

	runs, err := s.ListSyncRuns(2)
	if err != nil {
		t.Fatalf("ListSyncRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2 (limit)", len(runs))
	}
	if !runs[0].StartTime.After(runs[1].StartTime) {
		t.Error("runs not ordered newest first")
	}
}

func TestOutcomes(t *testing.T) {
	s := newTestStore(t)

	run := &SyncRun{RunID: "run-1", StartTime: time.Now(), Status: "running"}
	if err := s.CreateSyncRun(run); err != nil {
		t.Fatalf("CreateSyncRun: %v", err)
	}

	records := []Outcome{
		{SyncRunID: run.ID, GistID: "g1", Identifier: "main", Target: "gl", Provider: "gitlab", Result: "created"},
		{SyncRunID: run.ID, GistID: "g2", Identifier: "util", Target: "gl", Provider: "gitlab", Result: "failed", Error: "boom"},
		{SyncRunID: run.ID, GistID: "g1", Identifier: "main", Target: "bb", Provider: "bitbucket", Result: "updated"},
	}
	for i := range records {
		if err := s.AddOutcome(&records[i]); err != nil {
			t.Fatalf("AddOutcome: %v", err)
		}
	}

	got, err := s.ListOutcomes(run.ID)
	if err != nil {
		t.Fatalf("ListOutcomes: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(got))
	}
	if got[1].Error != "boom" {
		t.Errorf("error not persisted: %+v", got[1])
	}

	counts, err := s.CountOutcomesByTarget("gl")
	if err != nil {
		t.Fatalf("CountOutcomesByTarget: %v", err)
	}
	if counts["created"] != 1 || counts["failed"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s1, err := New(path, nil)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	_ = s1.Close()

	s2, err := New(path, nil)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	_ = s2.Close()
}
