package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/viant/procflux/runtime/execution"
	"github.com/viant/procflux/service/messaging"
	"github.com/viant/procflux/service/messaging/memory"
)

// Wait is a handle to an asynchronously dispatched command.
type Wait struct {
	done   chan struct{}
	result *Result
	err    error
}

// Done is closed once the command was dispatched.
func (w *Wait) Done() <-chan struct{} {
	return w.done
}

// Wait blocks until the command was dispatched or ctx is done.
func (w *Wait) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-w.done:
		return w.result, w.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *Wait) complete(result *Result, err error) {
	w.result, w.err = result, err
	close(w.done)
}

type task struct {
	ctx     context.Context
	command *Command
	rank    int
	wait    *Wait
}

func rankTask(t *task) int {
	return t.rank
}

// Submit enqueues cmd for asynchronous dispatch. Commands addressing the same
// process id are routed to the same worker and keep their submission order;
// a create command without id gets one assigned here.
func (s *Service) Submit(ctx context.Context, cmd *Command) (*Wait, error) {
	if cmd == nil {
		return nil, fmt.Errorf("%w: command was nil", ErrValidation)
	}
	if cmd.Kind == KindCreate && cmd.Create != nil {
		create := *cmd.Create
		if create.ID == "" {
			create.ID = s.newID()
		}
		submitted := *cmd
		submitted.Create = &create
		cmd = &submitted
	}
	s.mux.RLock()
	defer s.mux.RUnlock()
	if s.closed {
		return nil, ErrShutdown
	}
	if cmd.Kind == KindCreate && cmd.Create != nil {
		s.pending.Store(cmd.Create.ID, cmd.Create.Priority)
	}
	wait := &Wait{done: make(chan struct{})}
	aTask := &task{ctx: context.WithoutCancel(ctx), command: cmd, rank: s.rank(ctx, cmd), wait: wait}
	if err := s.queueOf(cmd.targetID()).Publish(ctx, aTask); err != nil {
		if cmd.Kind == KindCreate && cmd.Create != nil {
			s.pending.Delete(cmd.Create.ID)
		}
		if errors.Is(err, messaging.ErrClosed) {
			return nil, ErrShutdown
		}
		return nil, err
	}
	return wait, nil
}

// rank returns the queue rank of cmd: the priority of the process it
// addresses, which never changes over the process life.
func (s *Service) rank(ctx context.Context, cmd *Command) int {
	if cmd.Kind == KindCreate && cmd.Create != nil {
		return cmd.Create.Priority.Rank()
	}
	if priority, ok := s.pending.Load(cmd.ProcessID); ok {
		return priority.(execution.Priority).Rank()
	}
	if aProcess, err := s.registry.Load(ctx, cmd.ProcessID); err == nil {
		return aProcess.Priority.Rank()
	}
	return execution.PriorityNormal.Rank()
}

func (s *Service) queueOf(processID string) *memory.Queue[task] {
	return s.queues[xxhash.Sum64String(processID)%uint64(len(s.queues))]
}

// StartWorkers launches one worker per dispatch queue.
func (s *Service) StartWorkers(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.closed {
		return ErrShutdown
	}
	if s.ctx != nil {
		return nil
	}
	s.ctx = ctx
	for i, queue := range s.queues {
		s.workerWg.Add(1)
		go s.run(ctx, i, queue)
	}
	s.logger.Info("processor started", "workers", len(s.queues), "priorityAware", s.config.PriorityAware)
	return nil
}

// run processes commands from the worker queue
func (s *Service) run(ctx context.Context, id int, queue *memory.Queue[task]) {
	defer s.workerWg.Done()
	for {
		msg, err := queue.Consume(ctx)
		if err != nil {
			if !errors.Is(err, messaging.ErrClosed) && !errors.Is(err, context.Canceled) {
				s.logger.Error("worker stopped", "worker", id, "error", err)
			}
			return
		}
		aTask := msg.T()
		result, err := s.Dispatch(aTask.ctx, aTask.command)
		if aTask.command.Kind == KindCreate && aTask.command.Create != nil {
			s.pending.Delete(aTask.command.Create.ID)
		}
		aTask.wait.complete(result, err)
		if err = msg.Ack(); err != nil {
			s.logger.Debug("failed to ack command", "worker", id, "error", err)
		}
	}
}

// Shutdown stops accepting commands, lets workers drain their queues and
// stops every completion timer.
func (s *Service) Shutdown() {
	s.mux.Lock()
	if s.closed {
		s.mux.Unlock()
		return
	}
	s.closed = true
	for _, queue := range s.queues {
		queue.Close()
	}
	s.mux.Unlock()
	s.workerWg.Wait()
	s.executor.Shutdown()
}
