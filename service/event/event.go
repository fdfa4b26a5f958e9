package event

import (
	"time"

	"github.com/viant/procflux/internal/clock"
	"github.com/viant/procflux/runtime/execution"
)

// Event types emitted by the lifecycle manager.
const (
	TypeCreated      = "created"
	TypeStarted      = "started"
	TypePaused       = "paused"
	TypeResumed      = "resumed"
	TypeKilled       = "killed"
	TypeFailed       = "failed"
	TypeCompleted    = "completed"
	TypeDeleted      = "deleted"
	TypeUpdated      = "updated"
	TypeCheckpointed = "checkpointed"
)

type Context struct {
	ProcessID   string         `json:"processID"`
	EventType   string         `json:"eventType"`
	ProcessType execution.Type `json:"processType,omitempty"`
	Server      string         `json:"server,omitempty"`
	TimeTakenMs int            `json:"timeTakenMs,omitempty"`
}

type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: clock.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}

// StateChange is the fact published for every process transition. From is
// empty for creation; Process is nil for deletion. Duration is the run time
// of a process reaching a terminal state from running.
type StateChange struct {
	ProcessID string             `json:"processId"`
	From      execution.State    `json:"from,omitempty"`
	To        execution.State    `json:"to,omitempty"`
	Reason    string             `json:"reason,omitempty"`
	Duration  time.Duration      `json:"duration,omitempty"`
	Process   *execution.Process `json:"process,omitempty"`
}

// NewStateChange creates a state change event.
func NewStateChange(eventType string, change *StateChange) *Event[*StateChange] {
	ctx := &Context{ProcessID: change.ProcessID, EventType: eventType}
	if change.Process != nil {
		ctx.ProcessType = change.Process.Type
		ctx.Server = change.Process.GatewayID
	}
	if change.Duration > 0 {
		ctx.TimeTakenMs = int(change.Duration.Milliseconds())
	}
	return NewEvent(ctx, change)
}
