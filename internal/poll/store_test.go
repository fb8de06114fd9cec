package poll

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Empty(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.Latest())

	select {
	case <-s.Changed():
		t.Fatal("empty store signalled a change")
	default:
	}
}

func TestStore_BurstCoalescesToLatest(t *testing.T) {
	s := NewStore()
	var last *Update
	for i := 0; i < 10; i++ {
		last = &Update{ConsecutiveFailures: i}
		s.Publish(last)
	}

	select {
	case <-s.Changed():
	default:
		t.Fatal("publish did not signal")
	}
	assert.Same(t, last, s.Latest())

	select {
	case <-s.Changed():
		t.Fatal("burst produced more than one signal")
	default:
	}
}

func TestStore_Wait(t *testing.T) {
	s := NewStore()
	want := &Update{Stale: true}

	go func() {
		time.Sleep(10 * time.Millisecond)
		s.Publish(want)
	}()

	got, err := s.Wait(context.Background())
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestStore_WaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := NewStore().Wait(ctx)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_ConcurrentReaders(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.Publish(&Update{ConsecutiveFailures: i})
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				if u := s.Latest(); u != nil {
					assert.GreaterOrEqual(t, u.ConsecutiveFailures, 0)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 999, s.Latest().ConsecutiveFailures)
}
