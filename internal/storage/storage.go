package storage

import "ammPool/internal/model"

// EventSink receives batches of pool events for journaling.
type EventSink interface {
	PutEventBatch(events []model.PoolEvent) error
}

// Nop discards every event. Useful when no journal is configured.
type Nop struct{}

func (Nop) PutEventBatch([]model.PoolEvent) error { return nil }

// Multi fans every batch out to each sink in order, stopping at the first
// failure.
type Multi []EventSink

func (m Multi) PutEventBatch(events []model.PoolEvent) error {
	for _, sink := range m {
		if err := sink.PutEventBatch(events); err != nil {
			return err
		}
	}
	return nil
}
