package processor

import (
	"github.com/viant/procflux/runtime/execution"
)

// Kind identifies a lifecycle command.
type Kind string

const (
	KindCreate        Kind = "create"
	KindGet           Kind = "get"
	KindUpdate        Kind = "update"
	KindStart         Kind = "start"
	KindPause         Kind = "pause"
	KindResume        Kind = "resume"
	KindKill          Kind = "kill"
	KindDelete        Kind = "delete"
	KindFail          Kind = "fail"
	KindComplete      Kind = "complete"
	KindCheckpoint    Kind = "checkpoint"
	KindSignal        Kind = "signal"
	KindListByServer  Kind = "list_by_server"
	KindListByType    Kind = "list_by_type"
	KindAllocate      Kind = "allocate"
	KindDeallocate    Kind = "deallocate"
	KindChildren      Kind = "children"
	kindCompleteTimer Kind = "complete_timer"
)

// CreateRequest carries creation parameters. ID is optional; it is assigned
// when empty. LocalReserved, when set, is allocated on the gateway at start
// unless resources were allocated explicitly.
type CreateRequest struct {
	ID             string                 `json:"id,omitempty"`
	GatewayID      string                 `json:"gatewayId"`
	OwnerID        string                 `json:"ownerId,omitempty"`
	TargetID       string                 `json:"targetId,omitempty"`
	Type           execution.Type         `json:"type"`
	Priority       execution.Priority     `json:"priority,omitempty"`
	ParentID       string                 `json:"parentId,omitempty"`
	Data           map[string]interface{} `json:"data,omitempty"`
	LocalLimit     *execution.Resources   `json:"localLimit,omitempty"`
	RemoteLimit    *execution.Resources   `json:"remoteLimit,omitempty"`
	LocalReserved  *execution.Resources   `json:"localReserved,omitempty"`
	RemoteReserved *execution.Resources   `json:"remoteReserved,omitempty"`
}

// UpdateRequest carries optional fields; nil fields are left untouched.
type UpdateRequest struct {
	State    *execution.State       `json:"state,omitempty"`
	Progress *float64               `json:"progress,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Reason   string                 `json:"reason,omitempty"`
}

// Command is a single lifecycle request.
type Command struct {
	Kind       Kind
	ProcessID  string
	Create     *CreateRequest
	Update     *UpdateRequest
	Reason     string
	Signal     execution.Signal
	Server     string
	Type       execution.Type
	Resources  *execution.Resources
	generation uint64
}

// Result carries the outcome of a command.
type Result struct {
	Process   *execution.Process   `json:"process,omitempty"`
	Processes []*execution.Process `json:"processes,omitempty"`
	Resources *execution.Resources `json:"resources,omitempty"`
	ProcessID string               `json:"processId,omitempty"`
}

// targetID returns the process id the command is serialised on.
func (c *Command) targetID() string {
	if c.Kind == KindCreate && c.Create != nil {
		return c.Create.ID
	}
	return c.ProcessID
}
