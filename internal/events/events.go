// Package events carries lifecycle notifications from the list writer and the
// quarantine manager to any number of observers. Events hold counts only;
// failures are reported through the log.
package events

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"pegasus/internal/logging"
)

// Kind names a lifecycle notification.
type Kind string

const (
	WriteStarted   Kind = "write_started"
	WriteFinished  Kind = "write_finished"
	DeleteStarted  Kind = "delete_started"
	DeleteFinished Kind = "delete_finished"
)

// Operation names carried by delete events.
const (
	OpMove  = "move"
	OpPurge = "purge"
)

// Event is one notification. Success and Failed are set on DeleteFinished.
type Event struct {
	Kind    Kind      `json:"kind"`
	Op      string    `json:"op,omitempty"`
	Success int       `json:"success"`
	Failed  int       `json:"failed"`
	At      time.Time `json:"at"`
}

// Handler receives published events synchronously on the publisher's goroutine.
type Handler func(Event)

// Bus fans events out to subscribed handlers. The zero value is not usable;
// a nil *Bus silently drops events.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
	logger   *slog.Logger
}

// NewBus returns an empty bus. Handler panics are logged through logger.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		handlers: make(map[int]Handler),
		logger:   logging.NewComponentLogger(logger, "events"),
	}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	if b == nil || fn == nil {
		return func() {}
	}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers evt to every handler in subscription order.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	b.mu.RLock()
	ids := make([]int, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	handlers := make([]Handler, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		b.deliver(fn, evt)
	}
}

func (b *Bus) deliver(fn Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.WarnWithContext(b.logger, "event handler panicked", "event_handler_panic",
				logging.String("kind", string(evt.Kind)),
				logging.Any("panic", r),
				logging.String(logging.FieldErrorHint, "fix the observer; other observers still received the event"),
				logging.String(logging.FieldImpact, "one observer missed the event"),
			)
		}
	}()
	fn(evt)
}
