// Package progress provides a lightweight tracker that keeps aggregated
// process counters (created, running, completed, …). A tracker can also be
// embedded in a context so that a caller issuing a batch of operations can
// observe only its own changes.

package progress

import (
	"context"
	"sync"
	"time"

	"github.com/viant/procflux/internal/clock"
	"github.com/viant/procflux/runtime/execution"
)

// Delta represents an incremental counter change emitted by the processor. The
// fields are signed and therefore can be either positive (increment) or
// negative (decrement).
type Delta struct {
	Created   int
	Deleted   int
	Waiting   int
	Running   int
	Paused    int
	Completed int
	Failed    int
	Killed    int
}

// Transition returns the delta moving one process from state from to state to.
// An empty from means creation; an empty to means deletion.
func Transition(from, to execution.State) Delta {
	var d Delta
	if from == "" {
		d.Created++
	} else {
		d.add(from, -1)
	}
	if to == "" {
		d.Deleted++
	} else {
		d.add(to, 1)
	}
	return d
}

func (d *Delta) add(state execution.State, n int) {
	switch state {
	case execution.StateWaiting:
		d.Waiting += n
	case execution.StateRunning:
		d.Running += n
	case execution.StatePaused:
		d.Paused += n
	case execution.StateCompleted:
		d.Completed += n
	case execution.StateFailed:
		d.Failed += n
	case execution.StateKilled:
		d.Killed += n
	}
}

// Counters is a point-in-time copy of the lifecycle counters.
type Counters struct {
	StartedAt time.Time `json:"startedAt"`

	Created   int `json:"created"`
	Deleted   int `json:"deleted"`
	Waiting   int `json:"waiting"`
	Running   int `json:"running"`
	Paused    int `json:"paused"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Killed    int `json:"killed"`
}

// Live returns the number of registered processes.
func (c Counters) Live() int {
	return c.Created - c.Deleted
}

func (c *Counters) apply(d Delta) {
	c.Created += d.Created
	c.Deleted += d.Deleted
	c.Waiting += d.Waiting
	c.Running += d.Running
	c.Paused += d.Paused
	c.Completed += d.Completed
	c.Failed += d.Failed
	c.Killed += d.Killed
}

// Progress keeps aggregated process counters. It is safe for concurrent use.
type Progress struct {
	mu       sync.Mutex
	counters Counters
	onChange func(Counters)
}

// New creates a tracker.
func New() *Progress {
	return &Progress{counters: Counters{StartedAt: clock.Now()}}
}

// Update applies the supplied delta to the tracker. If an onChange callback
// has been registered it is invoked with the updated counters outside the
// critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.counters.apply(d)
	snapshot := p.counters
	cb := p.onChange
	p.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the counters.
func (p *Progress) Snapshot() Counters {
	if p == nil {
		return Counters{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counters
}

// OnChange registers a callback that is invoked after every Update. Passing
// nil disables the callback.
func (p *Progress) OnChange(cb func(Counters)) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.onChange = cb
	p.mu.Unlock()
}

// ----------------------------------------------------------------------------
// Context helpers
// ----------------------------------------------------------------------------

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a new Progress tracker, embeds it in a derived
// context and returns both.
func WithNewTracker(ctx context.Context, onChange func(Counters)) (context.Context, *Progress) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := New()
	tr.onChange = onChange
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext extracts the Progress tracker from ctx.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// UpdateCtx looks up the tracker in ctx (if any) and applies the supplied
// delta.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
