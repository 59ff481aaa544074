package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/tOgg1/mxview/internal/logging"
)

// Handler is invoked for every signal matching a subscription.
type Handler func(sig *Signal)

// Filter defines criteria for matching signals.
type Filter struct {
	// Types filters by signal type (nil = all types).
	Types []SignalType

	// RoomID filters to a single room (empty = all rooms).
	RoomID string
}

// Matches returns true if the signal matches the filter criteria.
func (f *Filter) Matches(sig *Signal) bool {
	if sig == nil {
		return false
	}

	if len(f.Types) > 0 {
		matched := false
		for _, t := range f.Types {
			if sig.Type == t {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if f.RoomID != "" && sig.RoomID != f.RoomID {
		return false
	}

	return true
}

type subscription struct {
	id      string
	filter  Filter
	handler Handler
}

// Bus is the emit side and subscription registry of the signal bus.
type Bus interface {
	// Emit sends a signal to all matching subscribers.
	Emit(ctx context.Context, sig *Signal)

	// Subscribe registers a handler for signals matching the filter.
	Subscribe(id string, filter Filter, handler Handler) error

	// Unsubscribe removes a subscription by ID.
	Unsubscribe(id string) error
}

// InMemoryBus implements Bus with in-process delivery.
type InMemoryBus struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	recorder      Recorder
}

// Recorder observes every emitted signal, for example to log it.
type Recorder func(ctx context.Context, sig *Signal)

// BusOption configures an InMemoryBus.
type BusOption func(*InMemoryBus)

// WithRecorder installs a recorder called before delivery.
func WithRecorder(rec Recorder) BusOption {
	return func(b *InMemoryBus) {
		b.recorder = rec
	}
}

// NewInMemoryBus creates a new in-memory signal bus.
func NewInMemoryBus(opts ...BusOption) *InMemoryBus {
	b := &InMemoryBus{
		subscriptions: make(map[string]*subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Emit delivers sig synchronously to every matching subscriber.
func (b *InMemoryBus) Emit(ctx context.Context, sig *Signal) {
	if sig == nil {
		return
	}
	if b.recorder != nil {
		b.recorder(ctx, sig)
	}

	b.mu.RLock()
	var handlers []Handler
	for _, sub := range b.subscriptions {
		if sub.filter.Matches(sig) {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.RUnlock()

	// Handlers may emit or unsubscribe, so they run outside the lock.
	for _, handler := range handlers {
		deliver(handler, sig)
	}
}

// deliver runs one handler. A panicking handler is logged and does not stop
// delivery to the remaining subscribers.
func deliver(handler Handler, sig *Signal) {
	defer func() {
		if pan := recover(); pan != nil {
			logger := logging.Component("events")
			logger.Error().
				Str("signal", string(sig.Type)).
				Str("room_id", sig.RoomID).
				Str("panic", fmt.Sprint(pan)).
				Msg("signal handler panicked")
		}
	}()
	handler(sig)
}

// Subscribe registers a handler for signals matching the filter.
func (b *InMemoryBus) Subscribe(id string, filter Filter, handler Handler) error {
	if id == "" {
		return ErrInvalidSubscriptionID
	}
	if handler == nil {
		return ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscriptions[id]; exists {
		return ErrSubscriptionExists
	}
	b.subscriptions[id] = &subscription{id: id, filter: filter, handler: handler}
	return nil
}

// Unsubscribe removes a subscription by ID.
func (b *InMemoryBus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscriptions[id]; !exists {
		return ErrSubscriptionNotFound
	}
	delete(b.subscriptions, id)
	return nil
}

// SubscriberCount returns the number of active subscribers.
func (b *InMemoryBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}

// Close removes all subscriptions.
func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions = make(map[string]*subscription)
}

// Errors for bus operations.
var (
	ErrInvalidSubscriptionID = &BusError{Message: "subscription ID is required"}
	ErrNilHandler            = &BusError{Message: "handler cannot be nil"}
	ErrSubscriptionExists    = &BusError{Message: "subscription with this ID already exists"}
	ErrSubscriptionNotFound  = &BusError{Message: "subscription not found"}
)

// BusError represents an error from bus operations.
type BusError struct {
	Message string
}

func (e *BusError) Error() string {
	return e.Message
}
