// Package poll runs the status commands on a timer and publishes each
// result as an Update.
//
// A successful poll parses the output and publishes a fresh cluster.Snapshot.
// A failed poll (fetch error, timeout, non-zero exit, or output with no
// usable records) republishes the previous Snapshot pointer marked stale, so
// readers always have the most recent valid data to show.
package poll

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rileyhilliard/sgpu/internal/cluster"
	"github.com/rileyhilliard/sgpu/internal/cluster/parsers"
	"github.com/rileyhilliard/sgpu/internal/errors"
	"github.com/rileyhilliard/sgpu/internal/logger"
	"github.com/rileyhilliard/sgpu/internal/source"
)

// State is the poll loop's position in its cycle.
type State int32

const (
	StateIdle State = iota
	StatePolling
	StateSuccess
	StateFailure
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Update is what one poll publishes.
type Update struct {
	// Snapshot is the latest valid snapshot. On failure it is the same
	// pointer as the previous update's, and nil if no poll has succeeded.
	Snapshot *cluster.Snapshot
	// Stale is set when the last poll failed.
	Stale bool
	// Err is why the last poll failed.
	Err error
	// ConsecutiveFailures resets to zero on success.
	ConsecutiveFailures int
	// Warnings are the per-record parse problems behind Snapshot.
	Warnings []error
	// At is when the poll finished.
	At time.Time
	// Took is how long the poll ran.
	Took time.Duration
}

// Options configure a Poller.
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
	Decode   parsers.Options
	// Now defaults to time.Now.
	Now func() time.Time
}

// Poller drives a source.Source on a timer.
type Poller struct {
	src   source.Source
	store *Store
	opts  Options
	log   logger.Logger

	state   atomic.Int32
	refresh chan struct{}

	mu   sync.Mutex
	last *Update
}

// New creates a poller publishing to store.
func New(src source.Source, store *Store, opts Options, log logger.Logger) *Poller {
	if log == nil {
		log = logger.Noop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Poller{
		src:     src,
		store:   store,
		opts:    opts,
		log:     log,
		refresh: make(chan struct{}, 1),
	}
}

// State returns the current state.
func (p *Poller) State() State {
	return State(p.state.Load())
}

func (p *Poller) setState(s State) {
	p.state.Store(int32(s))
}

// Refresh asks Run to poll now instead of waiting for the next tick.
// Requests made while one is already pending are merged.
func (p *Poller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Run polls immediately and then on every tick or Refresh until ctx ends.
// No poll starts once ctx is done, and cancelling ctx aborts the one in flight.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	p.log.Debug("polling %s every %s", p.src.Describe(), p.opts.Interval)
	for {
		if ctx.Err() != nil {
			return nil
		}
		p.PollOnce(ctx)
		p.setState(StateIdle)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-p.refresh:
			ticker.Reset(p.opts.Interval)
		}
	}
}

// PollOnce runs one fetch, parse and publish cycle and returns what it
// published. When ctx ends during the fetch nothing is published and the
// returned update carries the context error.
func (p *Poller) PollOnce(ctx context.Context) *Update {
	p.setState(StatePolling)
	start := p.opts.Now()

	snap, warnings, err := p.fetch(ctx)

	if ctx.Err() != nil {
		p.setState(StateFailure)
		return &Update{Stale: true, Err: ctx.Err(), At: p.opts.Now()}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.opts.Now()
	var u *Update
	if err != nil {
		u = &Update{Stale: true, Err: err, ConsecutiveFailures: 1, At: now, Took: now.Sub(start)}
		if p.last != nil {
			u.Snapshot = p.last.Snapshot
			u.Warnings = p.last.Warnings
			u.ConsecutiveFailures = p.last.ConsecutiveFailures + 1
		}
		p.log.Warn("poll failed (%d in a row): %v", u.ConsecutiveFailures, err)
		p.setState(StateFailure)
	} else {
		u = &Update{Snapshot: snap, Warnings: warnings, At: now, Took: now.Sub(start)}
		totals := snap.Totals()
		p.log.Debug("poll ok in %s: %d nodes, %d jobs, %d/%d GPUs allocated, %d warnings",
			u.Took.Round(time.Millisecond), totals.Nodes, totals.Jobs, totals.GPUAlloc, totals.GPUTotal, len(warnings))
		p.setState(StateSuccess)
	}

	p.last = u
	p.store.Publish(u)
	return u
}

func (p *Poller) fetch(ctx context.Context) (*cluster.Snapshot, []error, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	out, err := p.src.Fetch(fetchCtx)
	if err != nil {
		if stderrors.Is(fetchCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, nil, errors.WrapWithCode(err, errors.ErrExec,
				fmt.Sprintf("status command timed out after %s", p.opts.Timeout),
				"Raise timeout in the config or pass --timeout")
		}
		return nil, nil, err
	}

	if out.ExitCode != 0 {
		msg := fmt.Sprintf("status command exited with code %d", out.ExitCode)
		if line := firstLine(out.Stderr); line != "" {
			msg += ": " + line
		}
		return nil, nil, errors.New(errors.ErrExec, msg, "")
	}

	res := parsers.Parse(out.Text, p.opts.Decode)
	for _, w := range res.Warnings {
		p.log.Debug("parse: %v", w)
	}
	if len(res.Resources) == 0 {
		msg := "status command output contained no records"
		if len(res.Warnings) > 0 {
			msg = fmt.Sprintf("status command output contained no usable records (%d malformed)", len(res.Warnings))
		}
		return nil, nil, errors.New(errors.ErrParse, msg, "")
	}

	return cluster.Build(res.Resources, p.opts.Now(), p.log), res.Warnings, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
