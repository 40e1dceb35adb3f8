// Package notify records notification events durably and forwards them to
// the live connection registry, best effort.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/marcelojr/cineclube/internal/app/hub"
	"github.com/marcelojr/cineclube/internal/domain"
	"github.com/marcelojr/cineclube/internal/platform/ids"
	"github.com/marcelojr/cineclube/internal/platform/metrics"
)

var ErrInvalidEvent = errors.New("notification event missing user or type")

// Pusher is the slice of the connection registry the dispatcher needs.
type Pusher interface {
	Push(user domain.UserID, frame hub.Frame) bool
}

// Dispatcher persists first, pushes second. A failed push is not an error:
// the durable record stays available through the poll API.
type Dispatcher struct {
	records domain.NotificationRepository
	pusher  Pusher
	clock   domain.Clock
	ids     *ids.Generator
	logger  *slog.Logger
}

func NewDispatcher(records domain.NotificationRepository, pusher Pusher, clock domain.Clock, idsGen *ids.Generator, logger *slog.Logger) *Dispatcher {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	return &Dispatcher{
		records: records,
		pusher:  pusher,
		clock:   clock,
		ids:     idsGen,
		logger:  logger,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, user domain.UserID, typ domain.NotificationType, relatedID string) (domain.Notification, error) {
	if user == "" || typ == "" {
		return domain.Notification{}, ErrInvalidEvent
	}

	notification := domain.Notification{
		ID:        domain.NotificationID(d.ids.New()),
		UserID:    user,
		Type:      typ,
		RelatedID: relatedID,
		CreatedAt: d.clock.Now(),
	}

	// Durability does not depend on connectivity.
	if err := d.records.Create(ctx, notification); err != nil {
		return domain.Notification{}, err
	}

	delivered := d.pusher.Push(user, hub.Frame{Type: hub.FrameNotification, Data: notification})
	metrics.ObserveNotification(delivered)
	if !delivered {
		d.logger.Debug("user offline, notification kept for poll", "user", user, "type", typ)
	}

	return notification, nil
}

// ListForUser reads the user's most recent records for the poll API.
func (d *Dispatcher) ListForUser(ctx context.Context, user domain.UserID, limit int) ([]domain.Notification, error) {
	if user == "" {
		return nil, ErrInvalidEvent
	}
	return d.records.ListByUser(ctx, user, limit)
}

// MarkRead flips the read flag of one of the user's records.
func (d *Dispatcher) MarkRead(ctx context.Context, id domain.NotificationID, user domain.UserID) error {
	if user == "" || id == "" {
		return ErrInvalidEvent
	}
	return d.records.MarkRead(ctx, id, user)
}
