// Package service provides the business logic of the signalscope client:
// the generation orchestrator, the progress stream client, playback and the
// live redraw scheduler.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/observability/metrics"
	"github.com/uapsignal/signalscope/internal/ports"
)

// GenerationService drives the task state machine:
// Idle -> Submitting -> Streaming -> {Completed, Failed} -> Idle.
//
// Exactly one task is active at a time. Every submission bumps an epoch;
// stream callbacks carry the epoch they were created under and are dropped
// when it is stale, so a superseded task can never touch the display.
//
// All operations are thread-safe via sync.Mutex.
type GenerationService struct {
	// Dependencies (injected)
	logger   *slog.Logger
	backend  ports.GenerationBackend
	streams  *ProgressStreamClient
	display  ports.ProgressDisplay
	renderer ports.ResultRenderer
	bus      ports.EventBus
	metrics  *metrics.ClientMetrics

	// State
	state      domain.OrchestratorState
	epoch      uint64
	handle     *TaskHandle
	sub        *Subscription
	lastResult *domain.GenerationResult
	closed     bool

	mu sync.Mutex
}

// NewGenerationService creates a new generation orchestrator.
func NewGenerationService(
	logger *slog.Logger,
	backend ports.GenerationBackend,
	streams *ProgressStreamClient,
	display ports.ProgressDisplay,
	renderer ports.ResultRenderer,
	bus ports.EventBus,
	m *metrics.ClientMetrics,
) *GenerationService {
	s := &GenerationService{
		logger:   logger.With(slog.String("service", "generation")),
		backend:  backend,
		streams:  streams,
		display:  display,
		renderer: renderer,
		bus:      bus,
		metrics:  m,
	}
	s.logger.Debug("generation service initialized")
	return s
}

// Submit supersedes any active task and submits req. On success the
// returned handle follows the new task until it completes or fails.
// Submission failures leave the orchestrator in Failed with no stream open
// and are returned directly; once the backend accepted the task, failures
// are reported through the handle.
func (s *GenerationService) Submit(ctx context.Context, req domain.GenerationRequest) (*TaskHandle, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, domain.ErrServiceClosed
	}

	prevSub := s.sub
	prevHandle := s.supersedeLocked()

	s.epoch++
	epoch := s.epoch
	handle := newTaskHandle(s, epoch)
	s.handle = handle
	s.state = domain.StateSubmitting
	s.display.ShowProgress(0, "Submitting...")
	s.mu.Unlock()

	// Tear down the old channel before the new submission goes out.
	if prevSub != nil {
		prevSub.Unsubscribe()
	}
	if prevHandle != nil {
		s.logger.Info("task superseded", slog.String("task_id", prevHandle.ID()))
		s.bus.Publish(domain.NewTaskSupersededEvent(prevHandle.ID()))
	}

	if err := req.Validate(); err != nil {
		s.metrics.RecordSubmission(metrics.OutcomeRejected)
		s.fail(epoch, err, false)
		return nil, err
	}

	taskID, err := s.backend.Submit(ctx, req)
	if err != nil {
		outcome := metrics.OutcomeFailed
		if domain.ClassifyFailure(err) == domain.FailureValidation {
			outcome = metrics.OutcomeRejected
		}
		s.metrics.RecordSubmission(outcome)
		s.fail(epoch, err, false)
		return nil, err
	}
	s.metrics.RecordSubmission(metrics.OutcomeAccepted)

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		s.logger.Info("submission superseded before streaming", slog.String("task_id", taskID))
		return nil, domain.ErrSuperseded
	}
	handle.task.ID = taskID
	handle.task.Status = domain.TaskStreaming
	s.state = domain.StateStreaming
	s.mu.Unlock()

	s.metrics.TaskStarted()
	s.logger.Info("task submitted",
		slog.String("task_id", taskID),
		slog.String("preset", req.PresetName),
		slog.Bool("use_music", req.UseMusic))
	s.bus.Publish(domain.NewTaskSubmittedEvent(taskID, req))

	sub, err := s.streams.Subscribe(ctx, taskID, StreamHandlers{
		OnUpdate:   func(msg domain.ProgressMessage) { s.onUpdate(epoch, msg) },
		OnComplete: func(msg domain.ProgressMessage) { s.onComplete(epoch, msg) },
		OnError:    func(err error) { s.fail(epoch, err, true) },
	})
	if err != nil {
		s.fail(epoch, err, true)
		return handle, nil
	}

	s.mu.Lock()
	if epoch != s.epoch {
		// A newer submit ran while we were dialing and could not see this channel.
		s.mu.Unlock()
		sub.Unsubscribe()
		return handle, nil
	}
	s.sub = sub
	s.mu.Unlock()

	return handle, nil
}

// supersedeLocked marks the active task superseded and returns its handle,
// or nil when nothing was active. Caller holds s.mu.
func (s *GenerationService) supersedeLocked() *TaskHandle {
	prev := s.handle
	s.sub = nil
	if prev == nil || prev.task.Status.IsTerminal() {
		return nil
	}

	prev.task.Superseded = true
	prev.finishLocked(domain.ErrSuperseded)
	if prev.task.Status == domain.TaskStreaming {
		s.metrics.TaskFinished(metrics.OutcomeSuperseded, domain.FailureNone.String())
	}
	return prev
}

func (s *GenerationService) onUpdate(epoch uint64, msg domain.ProgressMessage) {
	s.mu.Lock()
	h := s.handle
	if epoch != s.epoch || h == nil || h.task.Status.IsTerminal() {
		s.mu.Unlock()
		s.logger.Debug("discarding stale progress", slog.Uint64("epoch", epoch))
		return
	}

	// Displayed progress never moves backwards.
	percent := math.Max(clampPercent(msg.Progress), h.task.ProgressPercent)
	h.task.ProgressPercent = percent
	h.task.Message = msg.Message
	s.display.ShowProgress(percent, msg.Message)
	taskID := h.task.ID
	s.mu.Unlock()

	s.bus.Publish(domain.NewTaskProgressEvent(taskID, percent, msg.Message))
}

func (s *GenerationService) onComplete(epoch uint64, msg domain.ProgressMessage) {
	s.mu.Lock()
	h := s.handle
	if epoch != s.epoch || h == nil || h.task.Status.IsTerminal() {
		s.mu.Unlock()
		s.logger.Debug("discarding stale completion", slog.Uint64("epoch", epoch))
		return
	}

	result := *msg.Result
	h.task.Status = domain.TaskCompleted
	h.task.ProgressPercent = 100
	h.task.Message = msg.Message
	h.task.Result = &result
	s.lastResult = &result
	s.state = domain.StateCompleted
	s.sub = nil

	s.display.Complete(msg.Message)
	if s.renderer != nil {
		s.renderer.RenderResult(&result)
	}
	taskID := h.task.ID
	s.mu.Unlock()

	s.metrics.TaskFinished(metrics.OutcomeCompleted, domain.FailureNone.String())
	s.logger.Info("task completed",
		slog.String("task_id", taskID),
		slog.String("filename", result.Filename),
		slog.Int("waveform_points", len(result.Waveform)))
	s.bus.Publish(domain.NewTaskCompletedEvent(taskID, result))
	s.finish(h, nil)
}

// fail moves the task for epoch to Failed. The previous result is kept.
func (s *GenerationService) fail(epoch uint64, err error, streaming bool) {
	s.mu.Lock()
	h := s.handle
	if epoch != s.epoch || h == nil || h.task.Status.IsTerminal() {
		s.mu.Unlock()
		s.logger.Debug("discarding stale failure", slog.Any("error", err))
		return
	}

	kind := domain.ClassifyFailure(err)
	message := domain.UserMessage(err)
	h.task.Status = domain.TaskFailed
	h.task.Failure = kind
	h.task.Error = message
	s.state = domain.StateFailed
	s.sub = nil

	s.display.Fail(message)
	taskID := h.task.ID
	s.mu.Unlock()

	if streaming {
		s.metrics.TaskFinished(metrics.OutcomeFailed, kind.String())
	}
	s.logger.Warn("task failed",
		slog.String("task_id", taskID),
		slog.String("kind", kind.String()),
		slog.Any("error", err))
	s.bus.Publish(domain.NewTaskFailedEvent(taskID, err))
	s.finish(h, err)
}

// finish releases the handle's waiters once subscribers have seen the outcome.
func (s *GenerationService) finish(h *TaskHandle, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h.finishLocked(err)
}

// Reset returns a Completed or Failed orchestrator to Idle.
// It reports whether the state changed.
func (s *GenerationService) Reset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateCompleted && s.state != domain.StateFailed {
		return false
	}
	s.state = domain.StateIdle
	return true
}

// State returns the orchestrator state.
func (s *GenerationService) State() domain.OrchestratorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Task returns a snapshot of the current task, if any.
func (s *GenerationService) Task() (domain.GenerationTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return domain.GenerationTask{}, false
	}
	return s.handle.task, true
}

// LastResult returns the most recent completed result.
func (s *GenerationService) LastResult() (domain.GenerationResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastResult == nil {
		return domain.GenerationResult{}, false
	}
	return *s.lastResult, true
}

// Shutdown closes the active subscription and rejects further submissions.
func (s *GenerationService) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sub := s.sub
	s.sub = nil
	s.epoch++
	if h := s.handle; h != nil && !h.task.Status.IsTerminal() {
		if h.task.Status == domain.TaskStreaming {
			s.metrics.TaskFinished(metrics.OutcomeSuperseded, domain.FailureNone.String())
		}
		h.finishLocked(domain.ErrServiceClosed)
	}
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
		<-sub.Done()
	}
	s.logger.Debug("generation service shut down")
	return nil
}

func clampPercent(p float64) float64 {
	switch {
	case math.IsNaN(p) || p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// TaskHandle follows one submitted task.
type TaskHandle struct {
	svc   *GenerationService
	epoch uint64
	task  domain.GenerationTask // guarded by svc.mu
	err   error                 // guarded by svc.mu
	done  chan struct{}
	once  sync.Once
}

func newTaskHandle(svc *GenerationService, epoch uint64) *TaskHandle {
	return &TaskHandle{
		svc:   svc,
		epoch: epoch,
		task: domain.GenerationTask{
			Status:      domain.TaskPending,
			SubmittedAt: time.Now(),
		},
		done: make(chan struct{}),
	}
}

// finishLocked records the terminal error and releases waiters. Caller holds svc.mu.
func (h *TaskHandle) finishLocked(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.done)
	})
}

// ID returns the backend task id.
func (h *TaskHandle) ID() string {
	return h.Task().ID
}

// Task returns a snapshot of the task.
func (h *TaskHandle) Task() domain.GenerationTask {
	h.svc.mu.Lock()
	defer h.svc.mu.Unlock()
	return h.task
}

// Done is closed when the task completes, fails or is superseded.
func (h *TaskHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task is finished or ctx ends. The error is nil for
// a completed task, domain.ErrSuperseded for a replaced one, and the failure
// otherwise.
func (h *TaskHandle) Wait(ctx context.Context) (domain.GenerationTask, error) {
	select {
	case <-h.done:
	case <-ctx.Done():
		return h.Task(), ctx.Err()
	}

	h.svc.mu.Lock()
	defer h.svc.mu.Unlock()
	return h.task, h.err
}

// Superseded reports whether err means the task was replaced or abandoned.
func Superseded(err error) bool {
	return errors.Is(err, domain.ErrSuperseded) || errors.Is(err, domain.ErrServiceClosed)
}
