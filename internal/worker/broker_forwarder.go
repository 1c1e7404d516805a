package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
)

const defaultPublishTimeout = 5 * time.Second

// StartBrokerForwarder relays every dispatched event to the message broker,
// using the event type as routing key. Publishing is detached from request
// cancellation so a client hanging up does not drop the event.
func StartBrokerForwarder(dispatcher events.Dispatcher, publisher events.JSONPublisher, logger *zap.Logger) {
	if dispatcher == nil || publisher == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher.SubscribeAll(func(ctx context.Context, event events.Event) error {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultPublishTimeout)
		defer cancel()
		if err := publisher.PublishJSON(pubCtx, string(event.Type), event); err != nil {
			return err
		}
		logger.Debug("event forwarded", zap.String("event_type", string(event.Type)), zap.String("event_id", event.ID))
		return nil
	})
}
