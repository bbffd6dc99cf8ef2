// Package eventbus provides an in-process pub/sub event bus for domain events.
// The lifecycle manager publishes events after commit; subscribers process
// them asynchronously on a single consumer goroutine.
package eventbus

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/propmanage/internal/event"
	"github.com/matthewbaird/propmanage/internal/logging"
)

// Handler processes a domain event. Implementations must be safe for
// concurrent calls from different goroutines.
type Handler interface {
	HandleEvent(ctx context.Context, evt event.DomainEvent) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt event.DomainEvent) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	return f(ctx, evt)
}

// Bus is a simple in-process event bus. Events are published to a buffered
// channel and dispatched to all subscribers in a single consumer goroutine.
// Dispatch is serialised, so subscribers never write to SQLite concurrently.
type Bus struct {
	mu          sync.RWMutex
	subscribers []namedHandler
	events      chan event.DomainEvent
	done        chan struct{}
	started     bool
	stopped     bool
	log         *logrus.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// New creates a new Bus with the given channel buffer size.
func New(bufSize int) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	return &Bus{
		events: make(chan event.DomainEvent, bufSize),
		done:   make(chan struct{}),
		log:    logging.Logger,
	}
}

// Subscribe registers a named handler. Must be called before Start.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, namedHandler{name: name, handler: h})
}

// Publish sends an event to the bus. Non-blocking: if the buffer is full
// or the bus is stopped the event is dropped and a warning is logged.
func (b *Bus) Publish(_ context.Context, evt event.DomainEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		b.log.WithField("event_id", evt.ID).Warn("eventbus: publish after stop, dropping event")
		return
	}
	select {
	case b.events <- evt:
	default:
		b.log.WithFields(logrus.Fields{
			"event_type": evt.EventType,
			"event_id":   evt.ID,
		}).Warn("eventbus: buffer full, dropping event")
	}
}

// Start begins the consumer goroutine. It processes events until the
// context is cancelled or Stop is called; queued events are drained first.
func (b *Bus) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started || b.stopped {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	go func() {
		defer close(b.done)
		for {
			select {
			case evt, ok := <-b.events:
				if !ok {
					return
				}
				b.dispatch(ctx, evt)
			case <-ctx.Done():
				b.drain(context.WithoutCancel(ctx))
				return
			}
		}
	}()
}

func (b *Bus) drain(ctx context.Context) {
	for {
		select {
		case evt, ok := <-b.events:
			if !ok {
				return
			}
			b.dispatch(ctx, evt)
		default:
			return
		}
	}
}

// Stop closes the bus and waits for the consumer goroutine to finish
// dispatching queued events. A bus that was never started just closes.
func (b *Bus) Stop() {
	b.mu.Lock()
	started := b.started
	if !b.stopped {
		b.stopped = true
		close(b.events)
	}
	b.mu.Unlock()
	if started {
		<-b.done
	}
}

func (b *Bus) dispatch(ctx context.Context, evt event.DomainEvent) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			b.log.WithFields(logrus.Fields{
				"handler":    s.name,
				"event_type": evt.EventType,
				"event_id":   evt.ID,
			}).WithError(err).Error("eventbus: handler failed")
		}
	}
}
