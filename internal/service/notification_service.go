package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fieldops/maintenance-desk/internal/config"
	"github.com/fieldops/maintenance-desk/internal/events"
)

// Notification is one outbound message.
type Notification struct {
	Channel   string
	To        string
	Subject   string
	EventType events.EventType
	TicketID  string
}

// Notifier delivers notifications. Delivery itself is out of scope; the
// default implementation only logs.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	Logger *zap.Logger
}

func (l LogNotifier) Notify(_ context.Context, n Notification) error {
	loggerOrNop(l.Logger).Debug("notification",
		zap.String("channel", n.Channel),
		zap.String("to", n.To),
		zap.String("subject", n.Subject),
		zap.String("event_type", string(n.EventType)),
		zap.String("ticket_id", n.TicketID))
	return nil
}

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   Notifier
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. A nil notifier logs only.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig, notifier Notifier) *NotificationService {
	logger = loggerOrNop(logger)
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketEvent)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketEvent)
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handleTicketEvent)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketEvent)
	n.dispatcher.Subscribe(events.EventRMAUpdated, n.handleTicketEvent)
	n.dispatcher.Subscribe(events.EventRegistrationApproved, n.handleRegistrationReviewed)
	n.dispatcher.Subscribe(events.EventRegistrationRejected, n.handleRegistrationReviewed)
}

func (n *NotificationService) handleTicketEvent(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return nil
	}
	return n.notifier.Notify(ctx, Notification{
		Channel:   "webhook",
		To:        n.cfg.WebhookURL,
		Subject:   fmt.Sprintf("%s %s", event.Type, event.AggregateID),
		EventType: event.Type,
		TicketID:  event.TicketID,
	})
}

func (n *NotificationService) handleRegistrationReviewed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RegistrationPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	subject := "Your maintenance desk access was approved"
	if event.Type == events.EventRegistrationRejected {
		subject = "Your maintenance desk access request was declined"
	}
	n.logger.Info(string(event.Type), zap.String("registration_id", event.AggregateID), zap.String("email", payload.Email))
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return nil
	}
	return n.notifier.Notify(ctx, Notification{
		Channel:   "email",
		To:        payload.Email,
		Subject:   subject,
		EventType: event.Type,
	})
}
