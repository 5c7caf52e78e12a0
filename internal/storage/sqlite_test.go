package storage

import (
	"errors"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestSeedJob_CreatesPendingWithPlaceholder(t *testing.T) {
	s := openTestStore(t)

	if err := s.SeedJob("+15550001111", "proj1", "run-1"); err != nil {
		t.Fatalf("SeedJob: %v", err)
	}

	j, err := s.GetJob("+15550001111", "proj1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if j.Status != StatusPending {
		t.Errorf("Status = %q, want %q", j.Status, StatusPending)
	}
	if j.Result != `"processing"` {
		t.Errorf("Result = %q, want processing placeholder", j.Result)
	}
	if j.CreatedAt.IsZero() {
		t.Errorf("CreatedAt should be set")
	}
}

func TestCompleteJob_OverwritesPending(t *testing.T) {
	s := openTestStore(t)

	if err := s.SeedJob("+15550001111", "proj1", "run-1"); err != nil {
		t.Fatalf("SeedJob: %v", err)
	}
	rec := `{"analysis":"ok","silence_wait":500,"utterance_end":1500,"punctuation_wait":1000,"no_punctuation_wait":5000}`
	if err := s.CompleteJob("+15550001111", "proj1", "run-1", rec); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}

	j, err := s.GetJob("+15550001111", "proj1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if j.Status != StatusCompleted {
		t.Errorf("Status = %q, want %q", j.Status, StatusCompleted)
	}
	if j.Result != rec {
		t.Errorf("Result = %q, want stored recommendation", j.Result)
	}
}

func TestFailJob_StoresErrorObject(t *testing.T) {
	s := openTestStore(t)

	if err := s.SeedJob("+15550001111", "proj1", "run-1"); err != nil {
		t.Fatalf("SeedJob: %v", err)
	}
	if err := s.FailJob("+15550001111", "proj1", "run-1", "upstream 401"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	j, err := s.GetJob("+15550001111", "proj1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if j.Status != StatusError {
		t.Errorf("Status = %q, want %q", j.Status, StatusError)
	}
	if j.Result != `{"error":"upstream 401"}` {
		t.Errorf("Result = %q, want serialized error object", j.Result)
	}
}

// TestReseedOverwrites covers the documented last-writer-wins behavior: a
// second submission for the same key replaces the first's record entirely,
// and a later terminal write replaces whatever row is present at that time.
func TestReseedOverwrites(t *testing.T) {
	s := openTestStore(t)

	if err := s.SeedJob("+15550001111", "proj1", "run-1"); err != nil {
		t.Fatalf("first SeedJob: %v", err)
	}
	if err := s.SeedJob("+15550001111", "proj1", "run-2"); err != nil {
		t.Fatalf("second SeedJob: %v", err)
	}

	j, err := s.GetJob("+15550001111", "proj1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if j.RunID != "run-2" || j.Status != StatusPending {
		t.Errorf("got run=%q status=%q, want run-2 pending", j.RunID, j.Status)
	}

	// First run finishing late still lands, keyed only by (user, project).
	if err := s.CompleteJob("+15550001111", "proj1", "run-1", `"done"`); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
	j, err = s.GetJob("+15550001111", "proj1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if j.Status != StatusCompleted && j.Status != StatusError {
		t.Errorf("final Status = %q, want a terminal status", j.Status)
	}
	if j.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1 (last writer wins)", j.RunID)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetJob("+19998887777", "proj1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetLatestJob_PicksNewestAcrossProjects(t *testing.T) {
	s := openTestStore(t)

	if err := s.SeedJob("+15550001111", "proj-old", "run-1"); err != nil {
		t.Fatalf("SeedJob: %v", err)
	}
	if err := s.CompleteJob("+15550001111", "proj-new", "run-2", `"latest"`); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}

	j, err := s.GetLatestJob("+15550001111")
	if err != nil {
		t.Fatalf("GetLatestJob: %v", err)
	}
	if j.ProjectID != "proj-new" {
		t.Errorf("ProjectID = %q, want proj-new", j.ProjectID)
	}

	if _, err := s.GetLatestJob("+10000000000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
