package replay

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"ammPool/internal/model"
	"ammPool/internal/storage"
)

type fakeStore struct {
	events      []model.PoolEvent
	checkpoints map[string]uint64
	insertFails int
}

func newFakeStore() *fakeStore {
	return &fakeStore{checkpoints: make(map[string]uint64)}
}

func (f *fakeStore) InsertEvents(ctx context.Context, events []model.PoolEvent) error {
	if f.insertFails > 0 {
		f.insertFails--
		return errors.New("db unavailable")
	}
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeStore) LoadCheckpoint(ctx context.Context, name string) (uint64, bool, error) {
	line, ok := f.checkpoints[name]
	return line, ok, nil
}

func (f *fakeStore) SaveCheckpoint(ctx context.Context, name string, line uint64) error {
	f.checkpoints[name] = line
	return nil
}

func writeJournal(t *testing.T, count int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	journal := storage.NewJsonlStorage(path)

	events := make([]model.PoolEvent, 0, count)
	for i := 1; i <= count; i++ {
		events = append(events, model.PoolEvent{
			Seq:     uint64(i),
			PoolID:  1,
			Kind:    model.EventSwap,
			AmountA: fmt.Sprintf("%d", i),
		})
	}
	if err := journal.PutEventBatch(events); err != nil {
		t.Fatalf("write journal: %v", err)
	}
	return path
}

func TestRunnerReplaysInBatches(t *testing.T) {
	path := writeJournal(t, 7)
	store := newFakeStore()

	runner := NewRunner(RunConfig{Journal: path, Checkpoint: "test", BatchSize: 3}, store, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(store.events) != 7 {
		t.Fatalf("replayed %d events, want 7", len(store.events))
	}
	if store.checkpoints["test"] != 7 {
		t.Fatalf("checkpoint: got %d, want 7", store.checkpoints["test"])
	}
}

func TestRunnerResumesFromCheckpoint(t *testing.T) {
	path := writeJournal(t, 5)
	store := newFakeStore()
	store.checkpoints["test"] = 3

	runner := NewRunner(RunConfig{Journal: path, Checkpoint: "test", BatchSize: 10}, store, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(store.events) != 2 {
		t.Fatalf("replayed %d events, want 2", len(store.events))
	}
	if store.events[0].Seq != 4 {
		t.Fatalf("resumed from seq %d, want 4", store.events[0].Seq)
	}
}

func TestRunnerNothingToReplay(t *testing.T) {
	path := writeJournal(t, 3)
	store := newFakeStore()
	store.checkpoints["test"] = 3

	runner := NewRunner(RunConfig{Journal: path, Checkpoint: "test", BatchSize: 10}, store, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(store.events) != 0 {
		t.Fatalf("expected no inserts, got %d", len(store.events))
	}
}

func TestRunnerRetriesTransientFailures(t *testing.T) {
	path := writeJournal(t, 2)
	store := newFakeStore()
	store.insertFails = 2

	runner := NewRunner(RunConfig{
		Journal:      path,
		Checkpoint:   "test",
		BatchSize:    10,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	}, store, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(store.events) != 2 {
		t.Fatalf("replayed %d events, want 2", len(store.events))
	}
}

func TestRunnerGivesUpAfterMaxRetries(t *testing.T) {
	path := writeJournal(t, 2)
	store := newFakeStore()
	store.insertFails = 10

	runner := NewRunner(RunConfig{
		Journal:      path,
		Checkpoint:   "test",
		BatchSize:    10,
		MaxRetries:   1,
		RetryBackoff: time.Millisecond,
	}, store, nil)
	if err := runner.Run(context.Background()); err == nil {
		t.Fatalf("expected error after exhausted retries")
	}
}

func TestWithRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := withRetry(ctx, 5, time.Minute, func(context.Context) error {
		calls++
		return errors.New("always fails")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt before cancel, got %d", calls)
	}
}
