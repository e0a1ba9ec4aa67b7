package history

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

type seqIDs struct {
	n int
}

func (g *seqIDs) New() string {
	g.n++
	return fmt.Sprintf("run-%04d", g.n)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	s.SetClock(&fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})
	s.SetIDGenerator(&seqIDs{})
	return s
}

func TestStore_StartFinishRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.StartRun(ctx, "export", "env=dev db=sample schema=public")
	if err != nil {
		t.Fatalf("StartRun() failed: %v", err)
	}
	if run.ID == "" {
		t.Error("StartRun() returned empty id")
	}
	if run.Status != StatusRunning {
		t.Errorf("StartRun() status = %q, want %q", run.Status, StatusRunning)
	}

	if err := s.FinishRun(ctx, run, StatusComplete, 42); err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}

	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns() returned %d runs, want 1", len(runs))
	}

	got := runs[0]
	if got.Operation != "export" {
		t.Errorf("Operation = %q, want %q", got.Operation, "export")
	}
	if got.Status != StatusComplete {
		t.Errorf("Status = %q, want %q", got.Status, StatusComplete)
	}
	if got.RowCount != 42 {
		t.Errorf("RowCount = %d, want 42", got.RowCount)
	}
	if got.FinishedAt.IsZero() {
		t.Error("FinishedAt is zero after FinishRun")
	}
	if !got.FinishedAt.After(got.StartedAt) {
		t.Errorf("FinishedAt %v not after StartedAt %v", got.FinishedAt, got.StartedAt)
	}
}

func TestStore_FinishRun_UnknownID(t *testing.T) {
	s := newTestStore(t)

	run := &Run{ID: "missing"}
	if err := s.FinishRun(context.Background(), run, StatusFailed, 0); err == nil {
		t.Error("FinishRun() expected error for unknown run id, got nil")
	}
}

func TestStore_ListRuns_OrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		run, err := s.StartRun(ctx, "import", fmt.Sprintf("table=t%d", i))
		if err != nil {
			t.Fatalf("StartRun() failed: %v", err)
		}
		if err := s.FinishRun(ctx, run, StatusComplete, int64(i)); err != nil {
			t.Fatalf("FinishRun() failed: %v", err)
		}
	}

	runs, err := s.ListRuns(ctx, 3)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("ListRuns(3) returned %d runs, want 3", len(runs))
	}

	// Newest first.
	for i := 1; i < len(runs); i++ {
		if runs[i].StartedAt.After(runs[i-1].StartedAt) {
			t.Errorf("runs not ordered newest first: %v before %v", runs[i-1].StartedAt, runs[i].StartedAt)
		}
	}
	if runs[0].Parameters != "table=t4" {
		t.Errorf("first run parameters = %q, want %q", runs[0].Parameters, "table=t4")
	}
}

func TestStore_ListRuns_Empty(t *testing.T) {
	s := newTestStore(t)

	runs, err := s.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("ListRuns() returned %d runs, want 0", len(runs))
	}
}

func TestStore_FailedRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.StartRun(ctx, "export", "env=prod")
	if err != nil {
		t.Fatalf("StartRun() failed: %v", err)
	}
	if err := s.FinishRun(ctx, run, StatusFailed, 7); err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}

	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if runs[0].Status != StatusFailed {
		t.Errorf("Status = %q, want %q", runs[0].Status, StatusFailed)
	}
}
