// Package domain defines events for the event-driven architecture.
// Events let services notify the UI and logging layers without direct references.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Task lifecycle events
	EventTaskSubmitted  EventType = "task.submitted"
	EventTaskProgress   EventType = "task.progress"
	EventTaskCompleted  EventType = "task.completed"
	EventTaskFailed     EventType = "task.failed"
	EventTaskSuperseded EventType = "task.superseded"

	// Playback events
	EventPlaybackLoaded  EventType = "playback.loaded"
	EventPlaybackStarted EventType = "playback.started"
	EventPlaybackPaused  EventType = "playback.paused"
	EventPlaybackStopped EventType = "playback.stopped"

	// Visualization events
	EventVisualizationChanged     EventType = "visualization.changed"
	EventLiveVisualizationOffline EventType = "visualization.live_disabled"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// TaskSubmittedEvent is published once the backend accepted a request.
type TaskSubmittedEvent struct {
	baseEvent
	TaskID  string
	Request GenerationRequest
}

// Type returns the event type.
func (e TaskSubmittedEvent) Type() EventType {
	return EventTaskSubmitted
}

// NewTaskSubmittedEvent creates a new TaskSubmittedEvent.
func NewTaskSubmittedEvent(taskID string, req GenerationRequest) TaskSubmittedEvent {
	return TaskSubmittedEvent{
		baseEvent: newBaseEvent(),
		TaskID:    taskID,
		Request:   req,
	}
}

// TaskProgressEvent is published for every applied progress update.
// Percent is the displayed value and never decreases for a task.
type TaskProgressEvent struct {
	baseEvent
	TaskID  string
	Percent float64
	Message string
}

// Type returns the event type.
func (e TaskProgressEvent) Type() EventType {
	return EventTaskProgress
}

// NewTaskProgressEvent creates a new TaskProgressEvent.
func NewTaskProgressEvent(taskID string, percent float64, message string) TaskProgressEvent {
	return TaskProgressEvent{
		baseEvent: newBaseEvent(),
		TaskID:    taskID,
		Percent:   percent,
		Message:   message,
	}
}

// TaskCompletedEvent is published when a task reaches Completed.
type TaskCompletedEvent struct {
	baseEvent
	TaskID string
	Result GenerationResult
}

// Type returns the event type.
func (e TaskCompletedEvent) Type() EventType {
	return EventTaskCompleted
}

// NewTaskCompletedEvent creates a new TaskCompletedEvent.
func NewTaskCompletedEvent(taskID string, result GenerationResult) TaskCompletedEvent {
	return TaskCompletedEvent{
		baseEvent: newBaseEvent(),
		TaskID:    taskID,
		Result:    result,
	}
}

// TaskFailedEvent is published when a task reaches Failed.
type TaskFailedEvent struct {
	baseEvent
	TaskID  string
	Kind    FailureKind
	Message string
	Error   error
}

// Type returns the event type.
func (e TaskFailedEvent) Type() EventType {
	return EventTaskFailed
}

// NewTaskFailedEvent creates a new TaskFailedEvent.
func NewTaskFailedEvent(taskID string, err error) TaskFailedEvent {
	return TaskFailedEvent{
		baseEvent: newBaseEvent(),
		TaskID:    taskID,
		Kind:      ClassifyFailure(err),
		Message:   UserMessage(err),
		Error:     err,
	}
}

// TaskSupersededEvent is published when a newer submission replaces an active task.
type TaskSupersededEvent struct {
	baseEvent
	TaskID string
}

// Type returns the event type.
func (e TaskSupersededEvent) Type() EventType {
	return EventTaskSuperseded
}

// NewTaskSupersededEvent creates a new TaskSupersededEvent.
func NewTaskSupersededEvent(taskID string) TaskSupersededEvent {
	return TaskSupersededEvent{
		baseEvent: newBaseEvent(),
		TaskID:    taskID,
	}
}

// PlaybackLoadedEvent is published when generated audio is ready to play.
type PlaybackLoadedEvent struct {
	baseEvent
	URL string
}

// Type returns the event type.
func (e PlaybackLoadedEvent) Type() EventType {
	return EventPlaybackLoaded
}

// NewPlaybackLoadedEvent creates a new PlaybackLoadedEvent.
func NewPlaybackLoadedEvent(url string) PlaybackLoadedEvent {
	return PlaybackLoadedEvent{
		baseEvent: newBaseEvent(),
		URL:       url,
	}
}

// PlaybackStartedEvent is published when playback starts or resumes.
type PlaybackStartedEvent struct {
	baseEvent
	LiveVisualization bool
}

// Type returns the event type.
func (e PlaybackStartedEvent) Type() EventType {
	return EventPlaybackStarted
}

// NewPlaybackStartedEvent creates a new PlaybackStartedEvent.
func NewPlaybackStartedEvent(live bool) PlaybackStartedEvent {
	return PlaybackStartedEvent{
		baseEvent:         newBaseEvent(),
		LiveVisualization: live,
	}
}

// PlaybackPausedEvent is published when playback is paused.
type PlaybackPausedEvent struct {
	baseEvent
}

// Type returns the event type.
func (e PlaybackPausedEvent) Type() EventType {
	return EventPlaybackPaused
}

// NewPlaybackPausedEvent creates a new PlaybackPausedEvent.
func NewPlaybackPausedEvent() PlaybackPausedEvent {
	return PlaybackPausedEvent{baseEvent: newBaseEvent()}
}

// PlaybackStoppedEvent is published when playback stops or the audio ends.
type PlaybackStoppedEvent struct {
	baseEvent
	Finished bool // true if the audio reached its end
}

// Type returns the event type.
func (e PlaybackStoppedEvent) Type() EventType {
	return EventPlaybackStopped
}

// NewPlaybackStoppedEvent creates a new PlaybackStoppedEvent.
func NewPlaybackStoppedEvent(finished bool) PlaybackStoppedEvent {
	return PlaybackStoppedEvent{
		baseEvent: newBaseEvent(),
		Finished:  finished,
	}
}

// VisualizationChangedEvent is published when the user selects another tab.
type VisualizationChangedEvent struct {
	baseEvent
	Tab VisualizationTab
}

// Type returns the event type.
func (e VisualizationChangedEvent) Type() EventType {
	return EventVisualizationChanged
}

// NewVisualizationChangedEvent creates a new VisualizationChangedEvent.
func NewVisualizationChangedEvent(tab VisualizationTab) VisualizationChangedEvent {
	return VisualizationChangedEvent{
		baseEvent: newBaseEvent(),
		Tab:       tab,
	}
}

// LiveVisualizationDisabledEvent is published when the capture graph cannot be built.
// One-shot rendering and playback remain available.
type LiveVisualizationDisabledEvent struct {
	baseEvent
	Reason error
}

// Type returns the event type.
func (e LiveVisualizationDisabledEvent) Type() EventType {
	return EventLiveVisualizationOffline
}

// NewLiveVisualizationDisabledEvent creates a new LiveVisualizationDisabledEvent.
func NewLiveVisualizationDisabledEvent(reason error) LiveVisualizationDisabledEvent {
	return LiveVisualizationDisabledEvent{
		baseEvent: newBaseEvent(),
		Reason:    reason,
	}
}
