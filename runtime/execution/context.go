package execution

import "time"

// Context represents the runtime state of a running or paused process.
// Duration is the total estimated run time; Elapsed is the run time banked by
// previous running intervals.
type Context struct {
	ProcessID    string         `json:"processId"`
	Allocated    Resources      `json:"allocated"`
	StartedAt    time.Time      `json:"startedAt"`
	CheckpointAt time.Time      `json:"checkpointAt"`
	State        ExecutionState `json:"state"`
	Duration     time.Duration  `json:"duration"`
	Elapsed      time.Duration  `json:"elapsed"`
	ResumedAt    time.Time      `json:"resumedAt"`
	Generation   uint64         `json:"generation"`
	Failure      string         `json:"failure,omitempty"`
}

// NewContext creates an initializing context.
func NewContext(processID string, allocated Resources, now time.Time) *Context {
	return &Context{
		ProcessID:    processID,
		Allocated:    allocated,
		StartedAt:    now,
		CheckpointAt: now,
		State:        ExecutionStateInitializing,
	}
}

// Run moves the context to running for the given total duration and returns
// the new timer generation.
func (c *Context) Run(duration time.Duration, now time.Time) uint64 {
	c.Duration = duration
	c.ResumedAt = now
	c.CheckpointAt = now
	c.State = ExecutionStateRunning
	c.Generation++
	return c.Generation
}

// Suspend banks the current running interval.
func (c *Context) Suspend(now time.Time) {
	c.bank(now)
	c.CheckpointAt = now
	c.State = ExecutionStateSuspended
}

func (c *Context) bank(now time.Time) {
	if c.State != ExecutionStateRunning {
		return
	}
	c.Elapsed += now.Sub(c.ResumedAt)
	if c.Elapsed > c.Duration {
		c.Elapsed = c.Duration
	}
}

// Resume continues running and returns the new timer generation.
func (c *Context) Resume(now time.Time) uint64 {
	c.ResumedAt = now
	c.CheckpointAt = now
	c.State = ExecutionStateRunning
	c.Generation++
	return c.Generation
}

// RunTime returns total run time at now.
func (c *Context) RunTime(now time.Time) time.Duration {
	ret := c.Elapsed
	if c.State == ExecutionStateRunning {
		ret += now.Sub(c.ResumedAt)
	}
	if ret > c.Duration {
		ret = c.Duration
	}
	if ret < 0 {
		ret = 0
	}
	return ret
}

// Remaining returns the run time left at now.
func (c *Context) Remaining(now time.Time) time.Duration {
	return c.Duration - c.RunTime(now)
}

// Progress returns the completed fraction at now.
func (c *Context) Progress(now time.Time) float64 {
	if c.Duration <= 0 {
		return 1
	}
	return float64(c.RunTime(now)) / float64(c.Duration)
}

// Complete banks the running interval and marks the context as completing.
func (c *Context) Complete(now time.Time) {
	c.bank(now)
	c.CheckpointAt = now
	c.State = ExecutionStateCompleting
}

// Fail marks the context as failed.
func (c *Context) Fail(reason string, now time.Time) {
	c.bank(now)
	c.CheckpointAt = now
	c.Failure = reason
	c.State = ExecutionStateFailed
}

// Clone returns a copy.
func (c *Context) Clone() *Context {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
