package outreach

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func newTestRunner(store *fakeStore, workers int) *Runner {
	pub := &fakePublisher{}
	e := NewExecutor(store, pub, testLogger())
	e.clock = fixedClock
	var seq atomic.Int64
	e.newID = func() string { return fmt.Sprintf("entry-%d", seq.Add(1)) }

	r := NewRunner(store, testPipeline(noonClock), e,
		RunnerConfig{Workers: workers, UserTimeout: time.Second}, testLogger())
	r.loader.clock = fixedClock
	return r
}

func TestRunBatchFaultIsolation(t *testing.T) {
	store := newFakeStore()
	recent := noonClock().Add(-2 * time.Hour)

	// 10 users: even indexes have recent activity (skipped, no action);
	// odd indexes have none (contacted for inactivity). User 4's store
	// reads fail outright.
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("u%d", i)
		store.userIDs = append(store.userIDs, id)
		if i%2 == 0 {
			store.lastActive[id] = &recent
		}
	}
	store.loadErr["u4"] = errors.New("store unreachable")

	r := newTestRunner(store, 3)
	result := r.RunBatch(context.Background())

	if result.Processed != 10 {
		t.Fatalf("expected 10 processed, got %d", result.Processed)
	}
	if result.Errors != 1 {
		t.Fatalf("expected 1 error, got %d", result.Errors)
	}
	if result.Contacted+result.Skipped != 9 {
		t.Fatalf("expected contacted+skipped=9, got %d+%d", result.Contacted, result.Skipped)
	}
	if result.Processed != result.Contacted+result.Skipped+result.Errors {
		t.Fatalf("count invariant violated: %+v", result)
	}
	// 5 users without activity minus the failing one = 4 contacted
	if result.Contacted != 5 || result.Skipped != 4 {
		t.Fatalf("expected 5 contacted / 4 skipped, got %d/%d", result.Contacted, result.Skipped)
	}
	if len(store.entries) != result.Contacted {
		t.Fatalf("expected %d log entries, got %d", result.Contacted, len(store.entries))
	}
}

func TestRunBatchEmptyPopulation(t *testing.T) {
	r := newTestRunner(newFakeStore(), 2)
	result := r.RunBatch(context.Background())
	if result.Processed != 0 || result.Errors != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestRunBatchSnapshotFailure(t *testing.T) {
	store := newFakeStore()
	store.userIDsErr = errors.New("users table unreachable")

	r := newTestRunner(store, 2)
	result := r.RunBatch(context.Background())
	if result.Errors == 0 {
		t.Fatal("expected the snapshot failure to be counted")
	}
	if result.Processed != result.Contacted+result.Skipped+result.Errors {
		t.Fatalf("count invariant violated: %+v", result)
	}
}

func TestRunBatchStopsAfterCancel(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 50; i++ {
		store.userIDs = append(store.userIDs, fmt.Sprintf("u%d", i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestRunner(store, 2)
	result := r.RunBatch(ctx)
	if result.Processed != 0 {
		t.Fatalf("expected no new work after cancel, got %d processed", result.Processed)
	}
}

func TestRunSingleContact(t *testing.T) {
	store := newFakeStore()
	store.userIDs = []string{"u1"}
	store.names["u1"] = "Ada"
	// no activity record → inactivity rule fires

	r := newTestRunner(store, 1)
	res, err := r.RunSingle(context.Background(), "u1")
	if err != nil {
		t.Fatalf("run single: %v", err)
	}
	if !res.Contacted || res.Skipped {
		t.Fatalf("expected contact, got %+v", res)
	}
	if res.Reason != ReasonInactivity {
		t.Fatalf("expected inactivity reason, got %q", res.Reason)
	}
	if res.LogEntryID == "" {
		t.Fatal("expected a log entry id")
	}
}

func TestRunSingleSkip(t *testing.T) {
	store := newFakeStore()
	recent := noonClock().Add(-time.Hour)
	store.lastActive["u1"] = &recent

	r := newTestRunner(store, 1)
	res, err := r.RunSingle(context.Background(), "u1")
	if err != nil {
		t.Fatalf("run single: %v", err)
	}
	if res.Contacted || !res.Skipped {
		t.Fatalf("expected skip, got %+v", res)
	}
	if res.Reason != ReasonNoAction {
		t.Fatalf("expected no-action reason, got %q", res.Reason)
	}
}

func TestRunSingleSurfacesLoadFailure(t *testing.T) {
	store := newFakeStore()
	store.loadErr["u1"] = errors.New("store unreachable")

	r := newTestRunner(store, 1)
	if _, err := r.RunSingle(context.Background(), "u1"); err == nil {
		t.Fatal("expected load failure to surface in single mode")
	}
}

func TestRunSingleRequiresUserID(t *testing.T) {
	r := newTestRunner(newFakeStore(), 1)
	if _, err := r.RunSingle(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestPreviewHasNoSideEffects(t *testing.T) {
	store := newFakeStore()
	// no activity → a positive decision
	r := newTestRunner(store, 1)

	d, err := r.Preview(context.Background(), "u1")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !d.ShouldContact {
		t.Fatalf("expected a positive decision, got %+v", d)
	}
	if len(store.entries)+len(store.outcomes)+len(store.audits) != 0 {
		t.Fatal("preview must not write anything")
	}
}
