package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ginjaninja78/sap-date-robot/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "db", "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func recordRun(t *testing.T, store *Store, runID string, started time.Time, statuses ...types.Status) types.Summary {
	t.Helper()
	sink := NewSink(store)

	if err := sink.Start(types.RunInfo{RunID: runID, InputFile: "orders.xlsx", StartedAt: started, Rows: len(statuses)}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	summary := types.Summary{RunID: runID, InputFile: "orders.xlsx", StartedAt: started}
	for i, status := range statuses {
		req := types.UpdateRequest{RowNumber: i + 2, OrderID: "4500000001", LineNumber: (i + 1) * 10, TargetDate: "25.12.2025"}
		o := types.NewOutcome(req, status, "message "+string(status), started.Add(time.Duration(i)*time.Second))
		if err := sink.Emit(o); err != nil {
			t.Fatalf("Emit() error = %v", err)
		}
		summary.Record(o)
	}

	summary.FinishedAt = started.Add(time.Minute)
	if err := sink.Finish(summary); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	return summary
}

func TestStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	day := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)

	recordRun(t, store, "aaaa-1111", day, types.StatusUpdated, types.StatusSkipped)
	recordRun(t, store, "bbbb-2222", day.Add(time.Hour),
		types.StatusUpdated, types.StatusWarning, types.StatusError, types.StatusNotAttempted)

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns() = %d runs, want 2", len(runs))
	}
	latest := runs[0]
	if latest.RunID != "bbbb-2222" {
		t.Errorf("first run = %s, want the most recent", latest.RunID)
	}
	if !latest.Finished || latest.Total != 4 || latest.Errors != 1 || latest.NotAttempted != 1 || latest.Warnings != 1 {
		t.Errorf("latest run = %+v", latest)
	}
	if !latest.StartedAt.Equal(day.Add(time.Hour)) {
		t.Errorf("StartedAt = %v", latest.StartedAt)
	}

	limited, err := store.ListRuns(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("ListRuns(1) = %d runs, %v", len(limited), err)
	}

	outcomes, err := store.RunOutcomes(ctx, "bbbb-2222")
	if err != nil {
		t.Fatalf("RunOutcomes() error = %v", err)
	}
	wantStatuses := []types.Status{types.StatusUpdated, types.StatusWarning, types.StatusError, types.StatusNotAttempted}
	if len(outcomes) != len(wantStatuses) {
		t.Fatalf("RunOutcomes() = %d outcomes, want %d", len(outcomes), len(wantStatuses))
	}
	for i, o := range outcomes {
		if o.Status != wantStatuses[i] {
			t.Errorf("outcome %d status = %s, want %s", i, o.Status, wantStatuses[i])
		}
		if o.Request.LineNumber != (i+1)*10 || o.Request.RowNumber != i+2 {
			t.Errorf("outcome %d request = %+v", i, o.Request)
		}
	}
}

func TestStore_FindRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	day := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)

	recordRun(t, store, "abc-1", day, types.StatusUpdated)
	recordRun(t, store, "abd-2", day.Add(time.Hour), types.StatusUpdated)

	run, err := store.FindRun(ctx, "abc")
	if err != nil || run.RunID != "abc-1" {
		t.Errorf("FindRun(abc) = %s, %v", run.RunID, err)
	}

	if _, err := store.FindRun(ctx, "ab"); err == nil {
		t.Error("FindRun(ab) succeeded on an ambiguous prefix")
	}

	if _, err := store.FindRun(ctx, "zzz"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("FindRun(zzz) error = %v, want ErrRunNotFound", err)
	}
}

func TestStore_UnfinishedRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.StartRun(ctx, types.RunInfo{RunID: "open-run", InputFile: "x.csv", StartedAt: time.Now()}); err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	runs, err := store.ListRuns(ctx, 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns() = %v, %v", runs, err)
	}
	if runs[0].Finished {
		t.Error("run without FinishRun reported as finished")
	}

	if err := store.FinishRun(ctx, types.Summary{RunID: "missing"}); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("FinishRun(missing) error = %v, want ErrRunNotFound", err)
	}
}

func TestSink_EmitBeforeStart(t *testing.T) {
	sink := NewSink(openTestStore(t))
	if err := sink.Emit(types.UpdateOutcome{}); err == nil {
		t.Error("Emit() before Start() succeeded")
	}
}
