package domain

import (
	"context"
	"time"
)

type WindowRepository interface {
	Create(ctx context.Context, w VoteWindow) error
	FindByID(ctx context.Context, id WindowID) (VoteWindow, error)
	// FindActive returns the single window whose interval contains at.
	FindActive(ctx context.Context, at time.Time) (VoteWindow, error)
	// ExistsOverlapping reports whether any window intersects [start, end).
	ExistsOverlapping(ctx context.Context, start, end time.Time) (bool, error)
	// FindLastCompleted returns the most recent window with ends_at <= now.
	FindLastCompleted(ctx context.Context, now time.Time) (VoteWindow, error)
}

type ParticipationRepository interface {
	// Register inserts the participation and bumps its candidate's tally in a
	// single transaction. Returns ErrDuplicate when the (user, window) unique
	// index rejects the insert; no tally is touched in that case.
	Register(ctx context.Context, p Participation) (Candidate, error)
	CountByWindow(ctx context.Context, windowID WindowID) (int64, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n Notification) error
	ListByUser(ctx context.Context, userID UserID, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id NotificationID, userID UserID) error
}

// CandidateSource hands over the popularity-ranked snapshot used to seed a
// new window. The catalog behind it is an external collaborator.
type CandidateSource interface {
	TopByPopularity(ctx context.Context, n int) ([]Movie, error)
}

type Counter interface {
	Incr(ctx context.Context, key string, delta int64) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
	GetAll(ctx context.Context, keys []string) (map[string]int64, error)
}

type EventQueue interface {
	Publish(ctx context.Context, evt NotificationEvent) error
	Consume(ctx context.Context, handler func(context.Context, NotificationEvent) error) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) error
}

type Clock interface {
	Now() time.Time
}
