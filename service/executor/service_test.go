package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procflux/internal/clock"
	"github.com/viant/procflux/runtime/execution"
)

type firing struct {
	id         string
	generation uint64
}

func TestService_Schedule(t *testing.T) {
	manual := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	srv := New(WithClock(manual))
	var fired []firing
	srv.OnDue(func(id string, generation uint64) {
		fired = append(fired, firing{id: id, generation: generation})
	})

	require.NoError(t, srv.Schedule("a", 1, 10*time.Second))
	require.NoError(t, srv.Schedule("b", 1, 20*time.Second))
	require.NoError(t, srv.Schedule("a", 2, 30*time.Second))
	assert.Equal(t, 2, srv.Pending())
	assert.Equal(t, 2, manual.Pending())

	manual.Advance(15 * time.Second)
	assert.Empty(t, fired)

	manual.Advance(10 * time.Second)
	assert.Equal(t, []firing{{id: "b", generation: 1}}, fired)
	assert.Equal(t, 1, srv.Pending())

	assert.True(t, srv.Cancel("a"))
	assert.False(t, srv.Cancel("a"))
	manual.Advance(time.Minute)
	assert.Len(t, fired, 1)
	assert.Equal(t, 0, srv.Pending())

	assert.ErrorIs(t, srv.Schedule("c", 1, -time.Second), ErrInvalidTimeout)
}

func TestService_Shutdown(t *testing.T) {
	manual := clock.NewManual(time.Now())
	srv := New(WithClock(manual))
	calls := 0
	srv.OnDue(func(string, uint64) { calls++ })
	require.NoError(t, srv.Schedule("a", 1, time.Second))
	srv.Shutdown()
	assert.Equal(t, 0, manual.Pending())
	assert.ErrorIs(t, srv.Schedule("b", 1, time.Second), ErrShutdown)
	manual.Advance(time.Minute)
	assert.Equal(t, 0, calls)
}

func TestService_Complete(t *testing.T) {
	boom := errors.New("target offline")
	srv := New(WithHandler(execution.TypeHack, func(ctx context.Context, p *execution.Process) error {
		return boom
	}))
	srv.Handle(execution.TypeLogClean, func(ctx context.Context, p *execution.Process) error {
		p.Data["cleaned"] = true
		return nil
	})
	ctx := context.Background()
	hack := execution.NewProcess("p1", "gw", "o", "", execution.TypeHack, time.Now())
	assert.ErrorIs(t, srv.Complete(ctx, hack), boom)

	clean := execution.NewProcess("p2", "gw", "o", "", execution.TypeLogClean, time.Now())
	require.NoError(t, srv.Complete(ctx, clean))
	assert.Equal(t, true, clean.Data["cleaned"])

	download := execution.NewProcess("p3", "gw", "o", "", execution.TypeFileDownload, time.Now())
	assert.NoError(t, srv.Complete(ctx, download))
	assert.Equal(t, 30*time.Second, srv.Estimate(execution.TypeFileDownload, execution.Resources{CPU: 1}))
}
