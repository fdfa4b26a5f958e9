package progress

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/procflux/runtime/execution"
)

func TestTransition(t *testing.T) {
	testCases := []struct {
		description string
		from        execution.State
		to          execution.State
		expected    Delta
	}{
		{description: "create", to: execution.StateWaiting, expected: Delta{Created: 1, Waiting: 1}},
		{description: "start", from: execution.StateWaiting, to: execution.StateRunning, expected: Delta{Waiting: -1, Running: 1}},
		{description: "pause", from: execution.StateRunning, to: execution.StatePaused, expected: Delta{Running: -1, Paused: 1}},
		{description: "complete", from: execution.StateRunning, to: execution.StateCompleted, expected: Delta{Running: -1, Completed: 1}},
		{description: "delete killed", from: execution.StateKilled, expected: Delta{Killed: -1, Deleted: 1}},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			assert.Equal(t, tc.expected, Transition(tc.from, tc.to))
		})
	}
}

func TestProgress_Update(t *testing.T) {
	tracker := New()
	var mux sync.Mutex
	calls := 0
	tracker.OnChange(func(c Counters) {
		mux.Lock()
		calls++
		mux.Unlock()
	})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Update(Transition("", execution.StateWaiting))
			tracker.Update(Transition(execution.StateWaiting, execution.StateRunning))
		}()
	}
	wg.Wait()
	snapshot := tracker.Snapshot()
	assert.Equal(t, 20, snapshot.Created)
	assert.Equal(t, 0, snapshot.Waiting)
	assert.Equal(t, 20, snapshot.Running)
	assert.Equal(t, 20, snapshot.Live())
	assert.Equal(t, 40, calls)

	var nilTracker *Progress
	nilTracker.Update(Delta{Created: 1})
	assert.Equal(t, 0, nilTracker.Snapshot().Created)
}

func TestContext(t *testing.T) {
	ctx, tracker := WithNewTracker(context.Background(), nil)
	UpdateCtx(ctx, Transition("", execution.StateWaiting))
	UpdateCtx(context.Background(), Transition("", execution.StateWaiting))
	assert.Equal(t, 1, tracker.Snapshot().Created)
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
}

func TestProgress_SnapshotIsDetached(t *testing.T) {
	tracker := New()
	var observed Counters
	tracker.OnChange(func(c Counters) { observed = c })
	tracker.Update(Transition("", execution.StateWaiting))

	snapshot := tracker.Snapshot()
	snapshot.Created = 10
	assert.Equal(t, 1, tracker.Snapshot().Created)
	assert.Equal(t, 1, observed.Live())
	assert.False(t, observed.StartedAt.IsZero())
}
