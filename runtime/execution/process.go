package execution

import (
	"fmt"
	"time"
)

// Process represents a long-running game activity executed on a server.
type Process struct {
	ID             string                 `json:"id"`
	OwnerID        string                 `json:"ownerId,omitempty"`
	GatewayID      string                 `json:"gatewayId"`
	TargetID       string                 `json:"targetId,omitempty"`
	ParentID       string                 `json:"parentId,omitempty"`
	Type           Type                   `json:"type"`
	Priority       Priority               `json:"priority,omitempty"`
	State          State                  `json:"state"`
	FailureReason  string                 `json:"failureReason,omitempty"`
	Progress       float64                `json:"progress"`
	CreatedAt      time.Time              `json:"createdAt"`
	CheckpointAt   time.Time              `json:"checkpointAt"`
	CompletedAt    *time.Time             `json:"completedAt,omitempty"`
	TimeLeft       *float64               `json:"timeLeft,omitempty"`
	Allocated      Resources              `json:"allocated"`
	LocalLimit     *Resources             `json:"localLimit,omitempty"`
	RemoteLimit    *Resources             `json:"remoteLimit,omitempty"`
	LocalReserved  Resources              `json:"localReserved"`
	RemoteReserved Resources              `json:"remoteReserved"`
	Data           map[string]interface{} `json:"data,omitempty"`
}

// NewProcess creates a waiting process.
func NewProcess(id, gatewayID, ownerID, targetID string, processType Type, now time.Time, opts ...Option) *Process {
	if targetID == "" {
		targetID = gatewayID
	}
	ret := &Process{
		ID:           id,
		OwnerID:      ownerID,
		GatewayID:    gatewayID,
		TargetID:     targetID,
		Type:         processType,
		Priority:     PriorityNormal,
		State:        StateWaiting,
		CreatedAt:    now,
		CheckpointAt: now,
		Data:         map[string]interface{}{},
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Servers returns the distinct servers the process is indexed under.
func (p *Process) Servers() []string {
	if p.TargetID == "" || p.TargetID == p.GatewayID {
		return []string{p.GatewayID}
	}
	return []string{p.GatewayID, p.TargetID}
}

// Host returns the server whose capacity the process consumes.
func (p *Process) Host() string {
	return p.GatewayID
}

// SetTimeLeft sets remaining seconds.
func (p *Process) SetTimeLeft(d time.Duration) {
	if d < 0 {
		d = 0
	}
	secs := d.Seconds()
	p.TimeLeft = &secs
}

// Finish writes a terminal state.
func (p *Process) Finish(state State, at time.Time, reason string) {
	p.State = state
	p.CompletedAt = &at
	p.CheckpointAt = at
	p.SetTimeLeft(0)
	if state == StateCompleted {
		p.Progress = 1.0
	}
	if state == StateFailed {
		p.FailureReason = reason
	}
}

// SetProgress updates progress; it rejects values outside [0,1] and, while
// running, values lower than the current one.
func (p *Process) SetProgress(value float64) error {
	if value < 0 || value > 1 {
		return fmt.Errorf("progress %v out of range [0,1]", value)
	}
	if p.State == StateRunning && value < p.Progress {
		return fmt.Errorf("progress cannot decrease while running: %v < %v", value, p.Progress)
	}
	p.Progress = value
	return nil
}

// Clone returns a deep copy of the process.
func (p *Process) Clone() *Process {
	if p == nil {
		return nil
	}
	clone := *p
	if p.CompletedAt != nil {
		at := *p.CompletedAt
		clone.CompletedAt = &at
	}
	if p.TimeLeft != nil {
		left := *p.TimeLeft
		clone.TimeLeft = &left
	}
	if p.LocalLimit != nil {
		limit := *p.LocalLimit
		clone.LocalLimit = &limit
	}
	if p.RemoteLimit != nil {
		limit := *p.RemoteLimit
		clone.RemoteLimit = &limit
	}
	clone.Data = cloneMap(p.Data)
	return &clone
}

func cloneMap(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	ret := make(map[string]interface{}, len(src))
	for k, v := range src {
		ret[k] = cloneValue(v)
	}
	return ret
}

func cloneValue(v interface{}) interface{} {
	switch actual := v.(type) {
	case map[string]interface{}:
		return cloneMap(actual)
	case []interface{}:
		ret := make([]interface{}, len(actual))
		for i, item := range actual {
			ret[i] = cloneValue(item)
		}
		return ret
	default:
		return v
	}
}
