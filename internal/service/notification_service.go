package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

// NotificationService turns committed domain events into notifications. There
// is no delivery channel yet; notifications are logged for the recipient.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
	n.dispatcher.Subscribe(events.EventCommentCreated, n.handleCommentCreated)
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	n.logger.Info("ticket created",
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.Actor.ID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTicketUpdated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketUpdatedPayload)
	if !ok {
		return nil
	}
	if _, reassigned := payload.Changes[domain.FieldAssignedToID]; reassigned && payload.AssignedToID != nil {
		n.logger.Info("notify assignee",
			zap.String("ticket_id", event.TicketID),
			zap.String("recipient_id", *payload.AssignedToID))
	}
	if change, ok := payload.Changes[domain.FieldStatus]; ok {
		n.logger.Info("ticket status changed",
			zap.String("ticket_id", event.TicketID),
			zap.Any("from", change.From),
			zap.Any("to", change.To))
	}
	return nil
}

func (n *NotificationService) handleCommentCreated(_ context.Context, event events.Event) error {
	n.logger.Info("comment added",
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.Actor.ID),
		zap.Any("payload", event.Payload))
	return nil
}
