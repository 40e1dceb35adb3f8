package notify

import (
	"context"
	"log/slog"

	"github.com/marcelojr/cineclube/internal/domain"
)

// Consumer drains queued events published by the out-of-process CRUD
// services and hands them to the dispatcher. It runs next to the connection
// registry because delivery needs this process's live connections.
type Consumer struct {
	queue      domain.EventQueue
	dispatcher *Dispatcher
	logger     *slog.Logger
}

func NewConsumer(queue domain.EventQueue, dispatcher *Dispatcher, logger *slog.Logger) *Consumer {
	return &Consumer{
		queue:      queue,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	return c.queue.Consume(ctx, func(ctx context.Context, evt domain.NotificationEvent) error {
		// A bad event must not stop the loop; the queue already dropped it.
		if _, err := c.dispatcher.Dispatch(ctx, evt.UserID, evt.Type, evt.RelatedID); err != nil {
			c.logger.Error("failed to dispatch queued event", "user", evt.UserID, "type", evt.Type, "err", err)
		}
		return nil
	})
}
