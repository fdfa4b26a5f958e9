package processor

import (
	"context"

	"github.com/viant/procflux/runtime/execution"
	"github.com/viant/procflux/service/dao"
)

// Create registers a new waiting process.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*execution.Process, error) {
	return s.processOf(s.Dispatch(ctx, &Command{Kind: KindCreate, Create: req}))
}

// Get returns a process snapshot.
func (s *Service) Get(ctx context.Context, processID string) (*execution.Process, error) {
	return s.processOf(s.Dispatch(ctx, &Command{Kind: KindGet, ProcessID: processID}))
}

// Update applies the non nil fields of req; state changes go through the
// matching lifecycle transition.
func (s *Service) Update(ctx context.Context, processID string, req *UpdateRequest) (*execution.Process, error) {
	return s.processOf(s.Dispatch(ctx, &Command{Kind: KindUpdate, ProcessID: processID, Update: req}))
}

// Start runs a waiting process, or resumes a paused one.
func (s *Service) Start(ctx context.Context, processID string) (*execution.Process, error) {
	return s.processOf(s.Dispatch(ctx, &Command{Kind: KindStart, ProcessID: processID}))
}

func (s *Service) Pause(ctx context.Context, processID string) (*execution.Process, error) {
	return s.processOf(s.Dispatch(ctx, &Command{Kind: KindPause, ProcessID: processID}))
}

func (s *Service) Resume(ctx context.Context, processID string) (*execution.Process, error) {
	return s.processOf(s.Dispatch(ctx, &Command{Kind: KindResume, ProcessID: processID}))
}

// Kill terminates a process. Killing a killed process is a no-op.
func (s *Service) Kill(ctx context.Context, processID, reason string) (*execution.Process, error) {
	return s.processOf(s.Dispatch(ctx, &Command{Kind: KindKill, ProcessID: processID, Reason: reason}))
}

// Delete purges a process in any state and returns its final snapshot.
func (s *Service) Delete(ctx context.Context, processID string) (*execution.Process, error) {
	return s.processOf(s.Dispatch(ctx, &Command{Kind: KindDelete, ProcessID: processID}))
}

func (s *Service) Fail(ctx context.Context, processID, reason string) (*execution.Process, error) {
	return s.processOf(s.Dispatch(ctx, &Command{Kind: KindFail, ProcessID: processID, Reason: reason}))
}

// Complete finishes a running process ahead of its timer.
func (s *Service) Complete(ctx context.Context, processID string) (*execution.Process, error) {
	return s.processOf(s.Dispatch(ctx, &Command{Kind: KindComplete, ProcessID: processID}))
}

// Checkpoint refreshes progress and time left of a running process.
func (s *Service) Checkpoint(ctx context.Context, processID string) (*execution.Process, error) {
	return s.processOf(s.Dispatch(ctx, &Command{Kind: KindCheckpoint, ProcessID: processID}))
}

func (s *Service) Signal(ctx context.Context, processID string, signal execution.Signal) (*execution.Process, error) {
	return s.processOf(s.Dispatch(ctx, &Command{Kind: KindSignal, ProcessID: processID, Signal: signal}))
}

// ListByServer returns processes running on or targeting serverID.
func (s *Service) ListByServer(ctx context.Context, serverID string) ([]*execution.Process, error) {
	return s.processesOf(s.Dispatch(ctx, &Command{Kind: KindListByServer, Server: serverID}))
}

func (s *Service) ListByType(ctx context.Context, processType execution.Type) ([]*execution.Process, error) {
	return s.processesOf(s.Dispatch(ctx, &Command{Kind: KindListByType, Type: processType}))
}

// Children returns the processes spawned by processID.
func (s *Service) Children(ctx context.Context, processID string) ([]*execution.Process, error) {
	return s.processesOf(s.Dispatch(ctx, &Command{Kind: KindChildren, ProcessID: processID}))
}

// AllocateResources replaces the ledger entry of processID.
func (s *Service) AllocateResources(ctx context.Context, processID string, resources execution.Resources) (*execution.Resources, error) {
	return s.resourcesOf(s.Dispatch(ctx, &Command{Kind: KindAllocate, ProcessID: processID, Resources: &resources}))
}

// DeallocateResources removes the ledger entry of processID and returns the
// freed amount.
func (s *Service) DeallocateResources(ctx context.Context, processID string) (*execution.Resources, error) {
	return s.resourcesOf(s.Dispatch(ctx, &Command{Kind: KindDeallocate, ProcessID: processID}))
}

// List returns processes matching all parameters.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*execution.Process, error) {
	return s.registry.List(ctx, parameters...)
}

func (s *Service) processOf(result *Result, err error) (*execution.Process, error) {
	if err != nil {
		return nil, err
	}
	return result.Process, nil
}

func (s *Service) processesOf(result *Result, err error) ([]*execution.Process, error) {
	if err != nil {
		return nil, err
	}
	return result.Processes, nil
}

func (s *Service) resourcesOf(result *Result, err error) (*execution.Resources, error) {
	if err != nil {
		return nil, err
	}
	return result.Resources, nil
}
