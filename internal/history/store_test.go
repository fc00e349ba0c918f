package history

import (
	"context"
	"testing"
	"time"

	"bindery/internal/logging"
	"bindery/internal/testsupport"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := Open(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	store.Record(ctx, "42", OutcomeSuccess, "", 1500*time.Millisecond)
	store.Record(ctx, "43", OutcomeFailure, "subordinate exited with status 1", 200*time.Millisecond)
	store.Record(ctx, "42", OutcomeCacheHit, "", 0)

	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].Identifier != "42" || entries[0].Outcome != OutcomeCacheHit {
		t.Fatalf("unexpected newest entry %+v", entries[0])
	}
	if entries[1].Detail != "subordinate exited with status 1" {
		t.Fatalf("unexpected detail %q", entries[1].Detail)
	}
	if entries[2].DurationMS != 1500 {
		t.Fatalf("unexpected duration %d", entries[2].DurationMS)
	}
}

func TestRecentLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store.Record(ctx, "bulk", OutcomeSuccess, "", 0)
	}

	entries, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestRecentEmpty(t *testing.T) {
	store := openTestStore(t)
	entries, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}
