package poll

import (
	"context"
	"sync/atomic"
)

// Store hands the latest Update from the poll loop to readers. There is one
// writer; any number of readers may call Latest concurrently. Publish never
// blocks: notifications coalesce in a single slot, and a reader woken by
// Changed always loads the newest Update, so the last publish of a burst is
// never lost.
type Store struct {
	latest  atomic.Pointer[Update]
	changed chan struct{}
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{changed: make(chan struct{}, 1)}
}

// Publish makes u the latest update and wakes one waiting reader.
func (s *Store) Publish(u *Update) {
	s.latest.Store(u)
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Latest returns the most recent update, or nil before the first publish.
func (s *Store) Latest() *Update {
	return s.latest.Load()
}

// Changed receives after one or more publishes since the last receive.
func (s *Store) Changed() <-chan struct{} {
	return s.changed
}

// Wait blocks until the next publish and returns the latest update.
func (s *Store) Wait(ctx context.Context) (*Update, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.changed:
		return s.Latest(), nil
	}
}
