package execution

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestNewProcess(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	local := &Resources{CPU: 2}
	p := NewProcess("p1", "gw", "owner", "", TypeFileDownload, now,
		WithPriority(PriorityHigh), WithParent("root"), WithData(map[string]interface{}{"file": "a.txt"}), WithLimits(local, nil))
	assert.Equal(t, StateWaiting, p.State)
	assert.Equal(t, "gw", p.TargetID)
	assert.Equal(t, []string{"gw"}, p.Servers())
	assert.Equal(t, PriorityHigh, p.Priority)
	assert.Equal(t, "root", p.ParentID)
	assert.Equal(t, 0.0, p.Progress)
	local.CPU = 8
	assert.Equal(t, 2.0, p.LocalLimit.CPU)

	remote := NewProcess("p2", "gw", "owner", "target", TypeHack, now)
	assert.Equal(t, []string{"gw", "target"}, remote.Servers())
	assert.Equal(t, PriorityNormal, remote.Priority)
}

func TestProcess_Clone(t *testing.T) {
	now := time.Now()
	p := NewProcess("p1", "gw", "owner", "", TypeFileDownload, now,
		WithData(map[string]interface{}{"nested": map[string]interface{}{"k": "v"}, "list": []interface{}{1, 2}}))
	p.SetTimeLeft(time.Minute)
	clone := p.Clone()
	clone.Data["nested"].(map[string]interface{})["k"] = "changed"
	clone.Data["list"].([]interface{})[0] = 100
	*clone.TimeLeft = 1
	assert.Equal(t, "v", p.Data["nested"].(map[string]interface{})["k"])
	assert.Equal(t, 1, p.Data["list"].([]interface{})[0])
	assert.Equal(t, 60.0, *p.TimeLeft)
	assert.Nil(t, (*Process)(nil).Clone())
}

func TestProcess_SetProgress(t *testing.T) {
	p := NewProcess("p1", "gw", "owner", "", TypeFileDownload, time.Now())
	require.NoError(t, p.SetProgress(0.5))
	assert.Error(t, p.SetProgress(1.5))
	assert.Error(t, p.SetProgress(-0.1))
	p.State = StateRunning
	assert.Error(t, p.SetProgress(0.4))
	assert.NoError(t, p.SetProgress(0.6))
	p.Finish(StateCompleted, time.Now(), "")
	assert.Equal(t, 1.0, p.Progress)
	assert.Equal(t, 0.0, *p.TimeLeft)
	assert.NotNil(t, p.CompletedAt)
}

func TestContext_PauseResume(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := NewContext("p1", Resources{CPU: 1}, start)
	assert.Equal(t, ExecutionStateInitializing, ctx.State)
	gen := ctx.Run(30*time.Second, start)
	assert.Equal(t, uint64(1), gen)

	ctx.Suspend(start.Add(10 * time.Second))
	assert.Equal(t, ExecutionStateSuspended, ctx.State)
	assert.Equal(t, 20*time.Second, ctx.Remaining(start.Add(time.Hour)))

	gen = ctx.Resume(start.Add(time.Hour))
	assert.Equal(t, uint64(2), gen)
	assert.Equal(t, 15*time.Second, ctx.Remaining(start.Add(time.Hour+5*time.Second)))
	assert.InDelta(t, 0.5, ctx.Progress(start.Add(time.Hour+5*time.Second)), 1e-9)
	assert.Equal(t, 1.0, ctx.Progress(start.Add(2*time.Hour)))
}
