// Package events mirrors what the analysis controller shows to the user so
// other observers (the CLI outcome check, tests) can follow a session.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pfamflow/pfam-int/internal/constants"
)

// EventType names a kind of event.
type EventType string

const (
	EventProgress    EventType = "progress"
	EventStateChange EventType = "state_change"
	EventAlert       EventType = "alert"
	EventSurface     EventType = "surface"
	EventComplete    EventType = "complete"
)

// Event is implemented by every published event.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

func stamp(t EventType) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now()}
}

// ProgressEvent carries one rendered job snapshot.
type ProgressEvent struct {
	BaseEvent
	SessionID string
	Percent   int    // 0 to 100
	Label     string // human step label, e.g. "Step 2: Database Search"
	Message   string
}

// StateChangeEvent represents controller state transitions
type StateChangeEvent struct {
	BaseEvent
	SessionID string
	OldState  string
	NewState  string
}

// AlertEvent mirrors a notice raised to the user.
type AlertEvent struct {
	BaseEvent
	Kind    string // "info", "warning", "danger"
	Message string
}

// SurfaceEvent reports the progress surface being shown or closed.
type SurfaceEvent struct {
	BaseEvent
	Visible bool
}

// CompleteEvent is published once a job reaches a terminal rendering.
type CompleteEvent struct {
	BaseEvent
	SessionID string
	Success   bool
	Message   string
	Duration  time.Duration
}

// EventBus fans events out to buffered subscriber channels. Publishing never
// blocks: an event that does not fit a subscriber's buffer is dropped for
// that subscriber and counted.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]chan Event
	all         []chan Event
	bufferSize  int
	closed      bool
	dropped     atomic.Int64
}

// NewEventBus creates a bus whose subscriber channels hold bufferSize
// events. Zero or negative sizes take the default; sizes over the maximum
// are capped.
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe returns a channel receiving events of one type. After Close it
// returns an already closed channel.
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan Event, eb.bufferSize)
	if eb.closed {
		close(ch)
		return ch
	}
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll returns a channel receiving every event.
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan Event, eb.bufferSize)
	if eb.closed {
		close(ch)
		return ch
	}
	eb.all = append(eb.all, ch)
	return ch
}

// Publish delivers event to its type's subscribers and to SubscribeAll
// channels.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}
	for _, ch := range eb.subscribers[event.Type()] {
		eb.offer(ch, event)
	}
	for _, ch := range eb.all {
		eb.offer(ch, event)
	}
}

func (eb *EventBus) offer(ch chan Event, event Event) {
	select {
	case ch <- event:
	default:
		eb.dropped.Add(1)
	}
}

// DroppedEvents returns how many deliveries were dropped on full buffers.
func (eb *EventBus) DroppedEvents() int64 {
	return eb.dropped.Load()
}

// Close closes every subscriber channel. Later publishes are ignored and
// closing twice is harmless.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true
	for _, subs := range eb.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	for _, ch := range eb.all {
		close(ch)
	}
}

func (eb *EventBus) PublishProgress(sessionID string, percent int, label, message string) {
	eb.Publish(&ProgressEvent{
		BaseEvent: stamp(EventProgress),
		SessionID: sessionID,
		Percent:   percent,
		Label:     label,
		Message:   message,
	})
}

func (eb *EventBus) PublishStateChange(sessionID, oldState, newState string) {
	eb.Publish(&StateChangeEvent{
		BaseEvent: stamp(EventStateChange),
		SessionID: sessionID,
		OldState:  oldState,
		NewState:  newState,
	})
}

func (eb *EventBus) PublishAlert(kind, message string) {
	eb.Publish(&AlertEvent{BaseEvent: stamp(EventAlert), Kind: kind, Message: message})
}

func (eb *EventBus) PublishSurface(visible bool) {
	eb.Publish(&SurfaceEvent{BaseEvent: stamp(EventSurface), Visible: visible})
}

// PublishComplete reports the end state of a session.
func (eb *EventBus) PublishComplete(sessionID string, success bool, message string, duration time.Duration) {
	eb.Publish(&CompleteEvent{
		BaseEvent: stamp(EventComplete),
		SessionID: sessionID,
		Success:   success,
		Message:   message,
		Duration:  duration,
	})
}
