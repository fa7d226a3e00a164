package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LiveUpdate is the refetch hint pushed to connected clients. It carries
// identifiers only; clients reload the resource over the API.
type LiveUpdate struct {
	Type        EventType `json:"type"`
	Aggregate   string    `json:"aggregate"`
	AggregateID string    `json:"aggregate_id"`
	TicketID    string    `json:"ticket_id,omitempty"`
	At          time.Time `json:"at"`
}

const liveBuffer = 16

// LiveHub fans live updates out to in-process subscribers. Slow subscribers
// miss updates rather than block the publisher.
type LiveHub struct {
	mu   sync.RWMutex
	subs map[chan LiveUpdate]struct{}
}

// NewLiveHub creates an empty hub.
func NewLiveHub() *LiveHub {
	return &LiveHub{subs: make(map[chan LiveUpdate]struct{})}
}

// Subscribe returns a channel of updates and a function that releases it.
func (h *LiveHub) Subscribe() (<-chan LiveUpdate, func()) {
	ch := make(chan LiveUpdate, liveBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Broadcast delivers u to every subscriber with buffer room.
func (h *LiveHub) Broadcast(u LiveUpdate) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// Subscribers reports the number of attached subscribers.
func (h *LiveHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// LiveRelay publishes events to a Redis channel and feeds messages from that
// channel into the local hub, so every instance sees every update. Without a
// Redis client it broadcasts straight to the hub.
type LiveRelay struct {
	client  *redis.Client
	channel string
	hub     *LiveHub
	logger  *zap.Logger
}

// NewLiveRelay builds a relay; client may be nil.
func NewLiveRelay(client *redis.Client, channel string, hub *LiveHub, logger *zap.Logger) *LiveRelay {
	return &LiveRelay{client: client, channel: channel, hub: hub, logger: logger}
}

// Handle is an EventHandler.
func (r *LiveRelay) Handle(ctx context.Context, event Event) error {
	update := LiveUpdate{
		Type:        event.Type,
		Aggregate:   event.Aggregate,
		AggregateID: event.AggregateID,
		TicketID:    event.TicketID,
		At:          event.Timestamp,
	}
	if r.client == nil {
		r.hub.Broadcast(update)
		return nil
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

// Run forwards channel messages to the hub until ctx is done.
func (r *LiveRelay) Run(ctx context.Context) {
	if r.client == nil {
		return
	}
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	r.logger.Info("live relay subscribed", zap.String("channel", r.channel))
	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var update LiveUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				r.logger.Warn("dropping malformed live update", zap.Error(err))
				continue
			}
			r.hub.Broadcast(update)
		}
	}
}
