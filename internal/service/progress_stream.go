package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/observability/metrics"
	"github.com/uapsignal/signalscope/internal/ports"
)

// streamBuffer bounds how far the reader may run ahead of the dispatcher.
const streamBuffer = 16

// StreamHandlers receives the messages of one progress subscription.
// All three run on the subscription's dispatch goroutine, one at a time,
// in the order the backend emitted the messages.
type StreamHandlers struct {
	OnUpdate   func(msg domain.ProgressMessage)
	OnComplete func(msg domain.ProgressMessage) // msg.Result is never nil
	OnError    func(err error)
}

// ProgressStreamClient opens one push channel per generation task.
type ProgressStreamClient struct {
	logger  *slog.Logger
	dialer  ports.StreamDialer
	metrics *metrics.ClientMetrics
}

// NewProgressStreamClient creates a progress stream client.
func NewProgressStreamClient(
	logger *slog.Logger,
	dialer ports.StreamDialer,
	m *metrics.ClientMetrics,
) *ProgressStreamClient {
	return &ProgressStreamClient{
		logger:  logger.With(slog.String("component", "progress_stream")),
		dialer:  dialer,
		metrics: m,
	}
}

// Subscribe dials the stream for taskID and starts delivering messages.
// ctx bounds the dial only; the subscription lives until a terminal message,
// a transport failure or Unsubscribe.
func (c *ProgressStreamClient) Subscribe(
	ctx context.Context,
	taskID string,
	handlers StreamHandlers,
) (*Subscription, error) {
	stream, err := c.dialer.Dial(ctx, taskID)
	if err != nil {
		var terr *domain.TransportError
		if errors.As(err, &terr) {
			return nil, err
		}
		return nil, domain.NewTransportError("dial", "could not open progress stream for "+taskID, err)
	}

	s := &Subscription{
		taskID:   taskID,
		logger:   c.logger.With(slog.String("task_id", taskID)),
		metrics:  c.metrics,
		stream:   stream,
		handlers: handlers,
		events:   make(chan streamEvent, streamBuffer),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}

	go s.readLoop()
	go s.dispatchLoop()

	s.logger.Debug("progress stream opened")
	return s, nil
}

// streamEvent is one item on the typed channel between reader and dispatcher.
type streamEvent struct {
	msg domain.ProgressMessage
	err error
}

// Subscription is an open progress channel for one task.
type Subscription struct {
	taskID   string
	logger   *slog.Logger
	metrics  *metrics.ClientMetrics
	stream   ports.MessageStream
	handlers StreamHandlers

	events   chan streamEvent
	done     chan struct{} // closed by close()
	finished chan struct{} // closed when the dispatcher exits

	closed    atomic.Bool
	closeOnce sync.Once
}

// TaskID returns the task this subscription follows.
func (s *Subscription) TaskID() string {
	return s.taskID
}

// Unsubscribe closes the channel. It is idempotent and safe after the channel
// closed on its own. Pending messages are dropped; a handler that is already
// running finishes, but no handler starts afterwards.
func (s *Subscription) Unsubscribe() {
	s.close()
}

// Closed reports whether the channel has been closed.
func (s *Subscription) Closed() bool {
	return s.closed.Load()
}

// Done is closed once the subscription has stopped delivering messages.
func (s *Subscription) Done() <-chan struct{} {
	return s.finished
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		if err := s.stream.Close(); err != nil {
			s.logger.Debug("progress stream close", slog.Any("error", err))
		}
		s.logger.Debug("progress stream closed")
	})
}

// readLoop turns raw frames into typed events. It stops after the first
// terminal message, protocol error or transport error.
func (s *Subscription) readLoop() {
	defer close(s.events)

	for {
		data, err := s.stream.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.send(streamEvent{err: domain.NewTransportError("read", "progress stream dropped", err)})
			return
		}

		msg, err := ParseProgressMessage(s.taskID, data)
		if err != nil {
			s.metrics.RecordProtocolError()
			s.send(streamEvent{err: err})
			return
		}
		s.metrics.RecordStreamMessage(string(msg.Status))

		if !s.send(streamEvent{msg: msg}) || msg.Status.IsTerminal() {
			return
		}
	}
}

func (s *Subscription) send(ev streamEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// dispatchLoop is the single consumer of the event channel.
func (s *Subscription) dispatchLoop() {
	defer close(s.finished)

	for ev := range s.events {
		if s.closed.Load() {
			continue
		}

		switch {
		case ev.err != nil:
			s.close()
			s.call(func() { s.handlers.OnError(ev.err) }, s.handlers.OnError != nil)

		case ev.msg.Status == domain.StreamCompleted:
			s.close()
			s.call(func() { s.handlers.OnComplete(ev.msg) }, s.handlers.OnComplete != nil)

		case ev.msg.Status == domain.StreamError:
			s.close()
			err := domain.NewBackendError(s.taskID, ev.msg.Error)
			s.call(func() { s.handlers.OnError(err) }, s.handlers.OnError != nil)

		default:
			s.call(func() {
				// Unsubscribe may have run while this event was queued.
				if s.closed.Load() {
					return
				}
				s.handlers.OnUpdate(ev.msg)
			}, s.handlers.OnUpdate != nil)
		}
	}
}

// call runs a handler, logging instead of crashing the dispatcher on panic.
func (s *Subscription) call(fn func(), ok bool) {
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("progress handler panicked", slog.Any("panic", r))
		}
	}()
	fn()
}

// wireProgressMessage distinguishes absent fields from zero values.
type wireProgressMessage struct {
	Status   *string                  `json:"status"`
	Progress *float64                 `json:"progress"`
	Message  *string                  `json:"message"`
	Result   *domain.GenerationResult `json:"result"`
	Error    *string                  `json:"error"`
}

// ParseProgressMessage strictly decodes one stream frame. Any missing
// required field is a *domain.ProtocolError; nothing is parsed best-effort.
func ParseProgressMessage(taskID string, data []byte) (domain.ProgressMessage, error) {
	var wire wireProgressMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return domain.ProgressMessage{}, domain.NewProtocolError(taskID, "invalid JSON", err)
	}

	switch {
	case wire.Status == nil:
		return domain.ProgressMessage{}, domain.NewProtocolError(taskID, "missing status", nil)
	case wire.Progress == nil:
		return domain.ProgressMessage{}, domain.NewProtocolError(taskID, "missing progress", nil)
	case wire.Message == nil:
		return domain.ProgressMessage{}, domain.NewProtocolError(taskID, "missing message", nil)
	}

	msg := domain.ProgressMessage{
		Status:   domain.StreamStatus(*wire.Status),
		Progress: *wire.Progress,
		Message:  *wire.Message,
	}

	switch msg.Status {
	case domain.StreamProgress:
	case domain.StreamCompleted:
		if wire.Result == nil {
			return domain.ProgressMessage{}, domain.NewProtocolError(taskID, "completed without result", nil)
		}
		if wire.Result.Filename == "" || len(wire.Result.Waveform) == 0 {
			return domain.ProgressMessage{}, domain.NewProtocolError(taskID, "completed result missing filename/waveform", nil)
		}
		msg.Result = wire.Result
	case domain.StreamError:
		if wire.Error == nil || *wire.Error == "" {
			return domain.ProgressMessage{}, domain.NewProtocolError(taskID, "error status without error text", nil)
		}
		msg.Error = *wire.Error
	default:
		return domain.ProgressMessage{}, domain.NewProtocolError(taskID,
			fmt.Sprintf("unknown status %q", *wire.Status), nil)
	}

	return msg, nil
}
