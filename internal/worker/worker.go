package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fieldops/maintenance-desk/internal/events"
	"github.com/fieldops/maintenance-desk/internal/service"
)

// Sink names used with Dispatcher.SubscribeAll.
const (
	LiveSink  = "live"
	KafkaSink = "kafka"
)

// Workers attaches the background consumers of domain events: notifications,
// the live-update relay and, when configured, the Kafka relay. Nil members are skipped.
type Workers struct {
	Notifications *service.NotificationService
	Live          *events.LiveRelay
	Kafka         *events.KafkaRelay
	Logger        *zap.Logger

	wg sync.WaitGroup
}

// Start subscribes every worker and runs the live relay's Redis reader until ctx is done.
func (w *Workers) Start(ctx context.Context, dispatcher events.Dispatcher) {
	if w.Notifications != nil {
		w.Notifications.RegisterHandlers()
	}
	if w.Live != nil {
		dispatcher.SubscribeAll(LiveSink, w.Live.Handle)
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.Live.Run(ctx)
		}()
	}
	if w.Kafka != nil {
		dispatcher.SubscribeAll(KafkaSink, w.Kafka.Handle)
	}
}

// Stop waits for the live relay to exit and closes the Kafka writer.
// Cancel the Start context first.
func (w *Workers) Stop() {
	w.wg.Wait()
	if w.Kafka == nil {
		return
	}
	if err := w.Kafka.Close(); err != nil && w.Logger != nil {
		w.Logger.Warn("close kafka relay", zap.Error(err))
	}
}
