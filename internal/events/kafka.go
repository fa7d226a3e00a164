package events

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fieldops/maintenance-desk/internal/config"
)

// KafkaRelay writes every domain event to a topic, keyed by aggregate id so
// one ticket's events stay ordered within a partition.
type KafkaRelay struct {
	mu        sync.Mutex
	w         *kafka.Writer
	cfg       config.KafkaConfig
	timeout   time.Duration
	lastReset time.Time
}

// NewKafkaRelay builds a relay for cfg.
func NewKafkaRelay(cfg config.KafkaConfig) *KafkaRelay {
	return &KafkaRelay{cfg: cfg, w: newKafkaWriter(cfg), timeout: 5 * time.Second}
}

func newKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	// A short metadata TTL lets the writer pick up broker address changes.
	tr := &kafka.Transport{
		ClientID:    cfg.ClientID,
		MetadataTTL: 10 * time.Second,
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Transport:    tr,
	}
}

// Handle is an EventHandler.
func (k *KafkaRelay) Handle(ctx context.Context, event Event) error {
	msg, err := kafkaMessage(event)
	if err != nil {
		return err
	}
	if err := k.write(ctx, msg); err != nil {
		if !shouldResetWriter(err) {
			return err
		}
		k.reset()
		return k.write(ctx, msg)
	}
	return nil
}

func kafkaMessage(event Event) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}, nil
}

func (k *KafkaRelay) write(ctx context.Context, msg kafka.Message) error {
	k.mu.Lock()
	w := k.w
	k.mu.Unlock()
	if w == nil {
		return context.Canceled
	}
	cctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	return w.WriteMessages(cctx, msg)
}

func shouldResetWriter(err error) bool {
	s := strings.ToLower(err.Error())
	for _, sub := range []string{
		"dial tcp",
		"connection refused",
		"i/o timeout",
		"eof",
		"broken pipe",
		"not leader",
		"unknown broker",
	} {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func (k *KafkaRelay) reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if time.Since(k.lastReset) < 2*time.Second {
		return
	}
	if k.w != nil {
		_ = k.w.Close()
	}
	k.w = newKafkaWriter(k.cfg)
	k.lastReset = time.Now()
}

// Close flushes and closes the writer.
func (k *KafkaRelay) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.w == nil {
		return nil
	}
	err := k.w.Close()
	k.w = nil
	return err
}
