package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fieldops/maintenance-desk/internal/observability"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
	// SubscribeAll registers a named sink that receives every event.
	SubscribeAll(sink string, handler EventHandler)
}

type namedHandler struct {
	sink    string
	handler EventHandler
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]namedHandler
	all       []namedHandler
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewInMemoryDispatcher creates a dispatcher instance. metrics may be nil.
func NewInMemoryDispatcher(logger *zap.Logger, metrics *observability.Metrics) Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[EventType][]namedHandler),
		logger:    logger,
		metrics:   metrics,
	}
}

// Publish synchronously invokes handlers for the given event. Every handler
// runs even when an earlier one fails; failures are logged and joined.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]namedHandler{}, d.listeners[event.Type]...)
	handlers = append(handlers, d.all...)
	d.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h.handler(ctx, event); err != nil {
			d.logger.Warn("event handler failed",
				zap.String("sink", h.sink),
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
			d.metrics.RecordPublishFailure(h.sink, string(event.Type))
			errs = append(errs, fmt.Errorf("%s: %w", h.sink, err))
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], namedHandler{sink: string(eventType), handler: handler})
}

func (d *inMemoryDispatcher) SubscribeAll(sink string, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.all = append(d.all, namedHandler{sink: sink, handler: handler})
}
