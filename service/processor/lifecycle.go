package processor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/viant/procflux/policy"
	"github.com/viant/procflux/runtime/execution"
	"github.com/viant/procflux/service/dao"
	"github.com/viant/procflux/service/event"
)

func (s *Service) create(ctx context.Context, req *CreateRequest) (*execution.Process, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: create request was nil", ErrValidation)
	}
	if req.GatewayID == "" {
		return nil, fmt.Errorf("%w: gateway id is required", ErrValidation)
	}
	if req.Type == "" {
		return nil, fmt.Errorf("%w: process type is required", ErrValidation)
	}
	if !req.Priority.Valid() {
		return nil, fmt.Errorf("%w: unsupported priority %q", ErrValidation, req.Priority)
	}
	if !policy.Resolve(ctx, s.policy).IsAllowed(string(req.Type)) {
		return nil, fmt.Errorf("%w: process type %v is not allowed", ErrValidation, req.Type)
	}
	for _, claim := range []*execution.Resources{req.LocalLimit, req.RemoteLimit, req.LocalReserved, req.RemoteReserved} {
		if claim == nil {
			continue
		}
		if err := claim.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	if req.ParentID != "" {
		if _, err := s.registry.Load(ctx, req.ParentID); err != nil {
			return nil, fmt.Errorf("parent: %w", err)
		}
	}
	id := req.ID
	if id == "" {
		id = s.newID()
	}

	unlock := s.lock(id)
	defer unlock()
	aProcess := execution.NewProcess(id, req.GatewayID, req.OwnerID, req.TargetID, req.Type, s.clock.Now(),
		execution.WithPriority(req.Priority),
		execution.WithParent(req.ParentID),
		execution.WithData(req.Data),
		execution.WithLimits(req.LocalLimit, req.RemoteLimit),
		execution.WithReserved(req.LocalReserved, req.RemoteReserved))
	if err := s.registry.Insert(ctx, aProcess); err != nil {
		if errors.Is(err, dao.ErrExists) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, err
	}
	if req.ParentID != "" {
		s.hierarchy.Link(req.ParentID, id)
	}
	s.track(ctx, "", execution.StateWaiting)
	s.publish(ctx, event.TypeCreated, &event.StateChange{ProcessID: id, To: execution.StateWaiting, Process: aProcess.Clone()})
	s.logger.Info("process created", "process", id, "type", req.Type, "gateway", req.GatewayID, "target", aProcess.TargetID)
	return aProcess, nil
}

func (s *Service) start(ctx context.Context, processID string) (*execution.Process, error) {
	unlock := s.lock(processID)
	defer unlock()
	aProcess, err := s.registry.Load(ctx, processID)
	if err != nil {
		return nil, err
	}
	switch aProcess.State {
	case execution.StatePaused:
		return s.resumeLocked(ctx, aProcess)
	case execution.StateWaiting:
	default:
		return nil, fmt.Errorf("%w: cannot start process %v in state %v", ErrValidation, processID, aProcess.State)
	}

	resources, allocated := s.startResources(aProcess)
	if err = s.admit(ctx, aProcess, resources); err != nil {
		return nil, err
	}
	if allocated {
		if _, err = s.ledger.Allocate(processID, aProcess.Host(), resources); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	now := s.clock.Now()
	duration := s.executor.Estimate(aProcess.Type, resources)
	execContext := execution.NewContext(processID, resources, now)
	generation := execContext.Run(duration, now)
	if err = s.executor.Schedule(processID, generation, duration); err != nil {
		if allocated {
			_, _ = s.ledger.Deallocate(processID)
		}
		return nil, err
	}
	if err = s.contexts.Save(ctx, execContext); err != nil {
		s.executor.Cancel(processID)
		return nil, err
	}
	updated, err := s.registry.Update(ctx, processID, func(p *execution.Process) error {
		p.State = execution.StateRunning
		p.Allocated = resources
		p.CheckpointAt = now
		p.SetTimeLeft(duration)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.track(ctx, execution.StateWaiting, execution.StateRunning)
	s.publish(ctx, event.TypeStarted, &event.StateChange{ProcessID: processID, From: execution.StateWaiting, To: execution.StateRunning, Process: updated.Clone()})
	s.logger.Info("process started", "process", processID, "duration", duration, "resources", resources.String())
	return updated, nil
}

// startResources returns the ledger entry of the process or, when absent, its
// local reservation or the configured default, and true to signal it still
// has to be allocated.
func (s *Service) startResources(aProcess *execution.Process) (execution.Resources, bool) {
	if entry, ok := s.ledger.Lookup(aProcess.ID); ok {
		return entry.Resources, false
	}
	if !aProcess.LocalReserved.IsZero() {
		return aProcess.LocalReserved, true
	}
	if s.config.DefaultResources.IsZero() {
		return execution.Resources{}, false
	}
	return s.config.DefaultResources, true
}

func (s *Service) admit(ctx context.Context, aProcess *execution.Process, request execution.Resources) error {
	if s.capacity == nil || !policy.Resolve(ctx, s.policy).Enforce() {
		return nil
	}
	capacity, err := s.capacity.Capacity(ctx, aProcess.Host())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResource, err)
	}
	if err = s.ledger.Admit(aProcess.Host(), request, capacity, aProcess.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrResource, err)
	}
	return nil
}

func (s *Service) pause(ctx context.Context, processID string) (*execution.Process, error) {
	unlock := s.lock(processID)
	defer unlock()
	aProcess, err := s.registry.Load(ctx, processID)
	if err != nil {
		return nil, err
	}
	if aProcess.State != execution.StateRunning {
		return nil, fmt.Errorf("%w: cannot pause process %v in state %v", ErrValidation, processID, aProcess.State)
	}
	execContext, err := s.contexts.Load(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("%w: process %v has no execution context", ErrValidation, processID)
	}
	if execContext.State != execution.ExecutionStateRunning {
		return nil, fmt.Errorf("%w: process %v is %v", ErrValidation, processID, execContext.State)
	}
	s.executor.Cancel(processID)
	now := s.clock.Now()
	execContext.Suspend(now)
	remaining := execContext.Remaining(now)
	value := math.Max(aProcess.Progress, execContext.Progress(now))
	updated, err := s.registry.Update(ctx, processID, func(p *execution.Process) error {
		p.State = execution.StatePaused
		p.Progress = value
		p.CheckpointAt = now
		p.SetTimeLeft(remaining)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.track(ctx, execution.StateRunning, execution.StatePaused)
	s.publish(ctx, event.TypePaused, &event.StateChange{ProcessID: processID, From: execution.StateRunning, To: execution.StatePaused, Process: updated.Clone()})
	s.logger.Info("process paused", "process", processID, "remaining", remaining)
	return updated, nil
}

func (s *Service) resume(ctx context.Context, processID string) (*execution.Process, error) {
	unlock := s.lock(processID)
	defer unlock()
	aProcess, err := s.registry.Load(ctx, processID)
	if err != nil {
		return nil, err
	}
	return s.resumeLocked(ctx, aProcess)
}

func (s *Service) resumeLocked(ctx context.Context, aProcess *execution.Process) (*execution.Process, error) {
	processID := aProcess.ID
	if aProcess.State != execution.StatePaused {
		return nil, fmt.Errorf("%w: cannot resume process %v in state %v", ErrValidation, processID, aProcess.State)
	}
	execContext, err := s.contexts.Load(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("%w: process %v has no execution context", ErrValidation, processID)
	}
	resources := execContext.Allocated
	if entry, ok := s.ledger.Lookup(processID); ok {
		resources = entry.Resources
	}
	if err = s.admit(ctx, aProcess, resources); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	generation := execContext.Resume(now)
	remaining := execContext.Remaining(now)
	if err = s.executor.Schedule(processID, generation, remaining); err != nil {
		execContext.Suspend(now)
		return nil, err
	}
	execContext.Allocated = resources
	updated, err := s.registry.Update(ctx, processID, func(p *execution.Process) error {
		p.State = execution.StateRunning
		p.Allocated = resources
		p.CheckpointAt = now
		p.SetTimeLeft(remaining)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.track(ctx, execution.StatePaused, execution.StateRunning)
	s.publish(ctx, event.TypeResumed, &event.StateChange{ProcessID: processID, From: execution.StatePaused, To: execution.StateRunning, Process: updated.Clone()})
	s.logger.Info("process resumed", "process", processID, "remaining", remaining)
	return updated, nil
}

func (s *Service) kill(ctx context.Context, processID, reason string) (*execution.Process, error) {
	unlock := s.lock(processID)
	defer unlock()
	aProcess, err := s.registry.Load(ctx, processID)
	if err != nil {
		return nil, err
	}
	if aProcess.State == execution.StateKilled {
		return aProcess, nil
	}
	from := aProcess.State
	now := s.clock.Now()
	runTime := s.release(processID, now)
	updated, err := s.registry.Update(ctx, processID, func(p *execution.Process) error {
		p.Finish(execution.StateKilled, now, reason)
		p.Allocated = execution.Resources{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err = s.registry.Detach(ctx, processID); err != nil {
		return nil, err
	}
	s.track(ctx, from, execution.StateKilled)
	s.publish(ctx, event.TypeKilled, &event.StateChange{ProcessID: processID, From: from, To: execution.StateKilled, Reason: reason, Duration: runTime, Process: updated.Clone()})
	s.logger.Info("process killed", "process", processID, "from", from)
	return updated, nil
}

func (s *Service) fail(ctx context.Context, processID, reason string) (*execution.Process, error) {
	unlock := s.lock(processID)
	defer unlock()
	aProcess, err := s.registry.Load(ctx, processID)
	if err != nil {
		return nil, err
	}
	if aProcess.State != execution.StateRunning && aProcess.State != execution.StatePaused {
		return nil, fmt.Errorf("%w: cannot fail process %v in state %v", ErrValidation, processID, aProcess.State)
	}
	if reason == "" {
		reason = "unspecified"
	}
	from := aProcess.State
	now := s.clock.Now()
	if execContext, err := s.contexts.Load(ctx, processID); err == nil {
		execContext.Fail(reason, now)
	}
	runTime := s.release(processID, now)
	updated, err := s.registry.Update(ctx, processID, func(p *execution.Process) error {
		p.Finish(execution.StateFailed, now, reason)
		p.Allocated = execution.Resources{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.track(ctx, from, execution.StateFailed)
	s.publish(ctx, event.TypeFailed, &event.StateChange{ProcessID: processID, From: from, To: execution.StateFailed, Reason: reason, Duration: runTime, Process: updated.Clone()})
	s.logger.Warn("process failed", "process", processID, "reason", reason)
	return updated, nil
}

func (s *Service) delete(ctx context.Context, processID string) (*execution.Process, error) {
	unlock := s.lock(processID)
	defer unlock()
	removed, err := s.registry.Remove(ctx, processID)
	if err != nil {
		return nil, err
	}
	s.release(processID, s.clock.Now())
	s.hierarchy.Remove(processID)
	s.track(ctx, removed.State, "")
	s.publish(ctx, event.TypeDeleted, &event.StateChange{ProcessID: processID, From: removed.State})
	s.logger.Info("process deleted", "process", processID, "state", removed.State)
	return removed, nil
}

// release cancels the timer, drops the execution context and the ledger
// entry of processID. It returns the run time accumulated by the context.
func (s *Service) release(processID string, now time.Time) time.Duration {
	s.executor.Cancel(processID)
	var runTime time.Duration
	if execContext, err := s.contexts.Take(processID); err == nil {
		runTime = execContext.RunTime(now)
	}
	if _, err := s.ledger.Deallocate(processID); err != nil && !errors.Is(err, dao.ErrNotFound) {
		s.logger.Error("failed to release resources", "process", processID, "error", err)
	}
	return runTime
}

// complete finishes a running process. Timer driven completions (strict is
// false) only apply to the generation they were armed for and silently skip
// processes that are no longer running. The completion handler runs without
// holding the process lock; the final write re-validates the context.
func (s *Service) complete(ctx context.Context, processID string, generation uint64, strict bool) (*execution.Process, error) {
	unlock := s.lock(processID)
	aProcess, generation, err := s.beginCompletion(ctx, processID, generation, strict)
	unlock()
	if err != nil || aProcess == nil {
		return nil, err
	}

	handlerErr := s.executor.Complete(ctx, aProcess)

	unlock = s.lock(processID)
	defer unlock()
	execContext, err := s.contexts.Load(ctx, processID)
	if err != nil || execContext.State != execution.ExecutionStateCompleting || execContext.Generation != generation {
		if strict {
			return nil, fmt.Errorf("%w: process %v changed while completing", ErrValidation, processID)
		}
		return nil, nil
	}
	now := s.clock.Now()
	state, eventType, reason := execution.StateCompleted, event.TypeCompleted, ""
	if handlerErr != nil {
		state, eventType, reason = execution.StateFailed, event.TypeFailed, handlerErr.Error()
		execContext.Fail(reason, now)
	}
	runTime := s.release(processID, now)
	updated, err := s.registry.Update(ctx, processID, func(p *execution.Process) error {
		p.Finish(state, now, reason)
		p.Allocated = execution.Resources{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.track(ctx, execution.StateRunning, state)
	s.publish(ctx, eventType, &event.StateChange{ProcessID: processID, From: execution.StateRunning, To: state, Reason: reason, Duration: runTime, Process: updated.Clone()})
	s.logger.Info("process finished", "process", processID, "state", state, "runTime", runTime)
	return updated, nil
}

func (s *Service) beginCompletion(ctx context.Context, processID string, generation uint64, strict bool) (*execution.Process, uint64, error) {
	skip := func(reason string) (*execution.Process, uint64, error) {
		if strict {
			return nil, 0, fmt.Errorf("%w: %s", ErrValidation, reason)
		}
		s.logger.Debug("completion skipped", "process", processID, "generation", generation, "reason", reason)
		return nil, 0, nil
	}
	aProcess, err := s.registry.Load(ctx, processID)
	if err != nil {
		if strict {
			return nil, 0, err
		}
		return skip("process not found")
	}
	if aProcess.State != execution.StateRunning {
		return skip(fmt.Sprintf("cannot complete process %v in state %v", processID, aProcess.State))
	}
	execContext, err := s.contexts.Load(ctx, processID)
	if err != nil || execContext.State != execution.ExecutionStateRunning {
		return skip(fmt.Sprintf("process %v has no running execution context", processID))
	}
	if strict {
		generation = execContext.Generation
		s.executor.Cancel(processID)
	} else if execContext.Generation != generation {
		return skip("stale timer")
	}
	execContext.Complete(s.clock.Now())
	return aProcess, generation, nil
}

func (s *Service) update(ctx context.Context, processID string, req *UpdateRequest) (*execution.Process, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: update request was nil", ErrValidation)
	}
	if req.Progress != nil && (*req.Progress < 0 || *req.Progress > 1 || math.IsNaN(*req.Progress)) {
		return nil, fmt.Errorf("%w: progress %v out of range [0,1]", ErrValidation, *req.Progress)
	}
	if req.State != nil {
		if !req.State.Valid() {
			return nil, fmt.Errorf("%w: unsupported state %q", ErrValidation, *req.State)
		}
		if err := s.transition(ctx, processID, *req.State, req.Reason); err != nil {
			return nil, err
		}
	}

	unlock := s.lock(processID)
	defer unlock()
	now := s.clock.Now()
	updated, err := s.registry.Update(ctx, processID, func(p *execution.Process) error {
		if req.Progress != nil && p.State != execution.StateCompleted {
			if err := p.SetProgress(*req.Progress); err != nil {
				return fmt.Errorf("%w: %v", ErrValidation, err)
			}
		}
		if req.Data != nil {
			execution.WithData(req.Data)(p)
		}
		p.CheckpointAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, event.TypeUpdated, &event.StateChange{ProcessID: processID, From: updated.State, To: updated.State, Process: updated.Clone()})
	return updated, nil
}

// transition routes a requested state change through the matching lifecycle
// operation.
func (s *Service) transition(ctx context.Context, processID string, to execution.State, reason string) error {
	current, err := s.registry.Load(ctx, processID)
	if err != nil {
		return err
	}
	if current.State == to {
		return nil
	}
	if !current.State.CanTransition(to) {
		return fmt.Errorf("%w: illegal transition %v -> %v", ErrValidation, current.State, to)
	}
	switch to {
	case execution.StateRunning:
		_, err = s.start(ctx, processID)
	case execution.StatePaused:
		_, err = s.pause(ctx, processID)
	case execution.StateKilled:
		_, err = s.kill(ctx, processID, reason)
	case execution.StateFailed:
		_, err = s.fail(ctx, processID, reason)
	case execution.StateCompleted:
		_, err = s.complete(ctx, processID, 0, true)
	default:
		err = fmt.Errorf("%w: illegal transition %v -> %v", ErrValidation, current.State, to)
	}
	return err
}

func (s *Service) checkpoint(ctx context.Context, processID string) (*execution.Process, error) {
	unlock := s.lock(processID)
	defer unlock()
	aProcess, err := s.registry.Load(ctx, processID)
	if err != nil {
		return nil, err
	}
	if aProcess.State != execution.StateRunning {
		return aProcess, nil
	}
	execContext, err := s.contexts.Load(ctx, processID)
	if err != nil || execContext.State != execution.ExecutionStateRunning {
		return aProcess, nil
	}
	now := s.clock.Now()
	execContext.CheckpointAt = now
	value := math.Max(aProcess.Progress, execContext.Progress(now))
	remaining := execContext.Remaining(now)
	updated, err := s.registry.Update(ctx, processID, func(p *execution.Process) error {
		p.Progress = value
		p.CheckpointAt = now
		p.SetTimeLeft(remaining)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, event.TypeCheckpointed, &event.StateChange{ProcessID: processID, From: updated.State, To: updated.State, Process: updated.Clone()})
	return updated, nil
}

func (s *Service) signal(ctx context.Context, processID string, signal execution.Signal) (*execution.Process, error) {
	switch signal {
	case execution.SignalStop:
		return s.pause(ctx, processID)
	case execution.SignalCont:
		return s.resume(ctx, processID)
	case execution.SignalKill, execution.SignalTerm:
		return s.kill(ctx, processID, string(signal))
	case execution.SignalCheckpoint:
		return s.checkpoint(ctx, processID)
	}
	return nil, fmt.Errorf("%w: unsupported signal %q", ErrValidation, signal)
}

func (s *Service) allocate(ctx context.Context, processID string, resources *execution.Resources) (*Result, error) {
	if resources == nil {
		return nil, fmt.Errorf("%w: resources were nil", ErrValidation)
	}
	if err := resources.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	unlock := s.lock(processID)
	defer unlock()
	aProcess, err := s.registry.Load(ctx, processID)
	if err != nil {
		return nil, err
	}
	if aProcess.State.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot allocate resources to process %v in state %v", ErrValidation, processID, aProcess.State)
	}
	if err = s.admit(ctx, aProcess, *resources); err != nil {
		return nil, err
	}
	if _, err = s.ledger.Allocate(processID, aProcess.Host(), *resources); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if execContext, err := s.contexts.Load(ctx, processID); err == nil {
		execContext.Allocated = *resources
	}
	updated, err := s.registry.Update(ctx, processID, func(p *execution.Process) error {
		p.Allocated = *resources
		return nil
	})
	if err != nil {
		return nil, err
	}
	allocated := *resources
	return &Result{Process: updated, ProcessID: processID, Resources: &allocated}, nil
}

func (s *Service) deallocate(ctx context.Context, processID string) (*Result, error) {
	unlock := s.lock(processID)
	defer unlock()
	freed, err := s.ledger.Deallocate(processID)
	if err != nil {
		return nil, fmt.Errorf("process %v resources: %w", processID, err)
	}
	if execContext, err := s.contexts.Load(ctx, processID); err == nil {
		execContext.Allocated = execution.Resources{}
	}
	updated, err := s.registry.Update(ctx, processID, func(p *execution.Process) error {
		p.Allocated = execution.Resources{}
		return nil
	})
	if err != nil && !errors.Is(err, dao.ErrNotFound) {
		return nil, err
	}
	return &Result{Process: updated, ProcessID: processID, Resources: freed}, nil
}

func (s *Service) children(ctx context.Context, processID string) ([]*execution.Process, error) {
	if _, err := s.registry.Load(ctx, processID); err != nil {
		return nil, err
	}
	var ret []*execution.Process
	for _, childID := range s.hierarchy.Children(processID) {
		child, err := s.registry.Load(ctx, childID)
		if err != nil {
			if errors.Is(err, dao.ErrNotFound) {
				continue
			}
			return nil, err
		}
		ret = append(ret, child)
	}
	return ret, nil
}
