package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/marcelojr/cineclube/internal/domain"
)

// sliceQueue replays a fixed batch of events and then returns the context
// error, the way the blocking pop loop ends on shutdown.
type sliceQueue struct {
	events []domain.NotificationEvent
}

func (q *sliceQueue) Publish(_ context.Context, evt domain.NotificationEvent) error {
	q.events = append(q.events, evt)
	return nil
}

func (q *sliceQueue) Consume(ctx context.Context, handler func(context.Context, domain.NotificationEvent) error) error {
	for _, evt := range q.events {
		if err := handler(ctx, evt); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func TestConsumerDispatchesQueuedEvents(t *testing.T) {
	records := &memoryNotifications{}
	pusher := &recordingPusher{delivered: true}
	dispatcher := newTestDispatcher(records, pusher)

	queue := &sliceQueue{events: []domain.NotificationEvent{
		{UserID: "user-1", Type: domain.NotificationComment, RelatedID: "review-1"},
		{UserID: "user-2", Type: domain.NotificationLike, RelatedID: "review-2"},
	}}

	consumer := NewConsumer(queue, dispatcher, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := consumer.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(records.records) != 2 {
		t.Fatalf("expected 2 persisted notifications, got %d", len(records.records))
	}
	if len(pusher.frames) != 2 {
		t.Fatalf("expected 2 pushes, got %d", len(pusher.frames))
	}
}

func TestConsumerSurvivesBadEvent(t *testing.T) {
	records := &memoryNotifications{}
	dispatcher := newTestDispatcher(records, &recordingPusher{})

	queue := &sliceQueue{events: []domain.NotificationEvent{
		{UserID: "", Type: domain.NotificationComment}, // invalid, must be logged and skipped
		{UserID: "user-1", Type: domain.NotificationLike},
	}}

	consumer := NewConsumer(queue, dispatcher, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := consumer.Run(context.Background()); err != nil {
		t.Fatalf("a bad event stopped the loop: %v", err)
	}
	if len(records.records) != 1 {
		t.Fatalf("expected the valid event to land, got %d records", len(records.records))
	}
}
