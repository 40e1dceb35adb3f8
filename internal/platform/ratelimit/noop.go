package ratelimit

import (
	"context"

	"github.com/marcelojr/cineclube/internal/domain"
)

// Noop accepts everything; used when the limiter is disabled.
type Noop struct{}

func NewNoop() Noop {
	return Noop{}
}

func (Noop) Allow(_ context.Context, _ string) error {
	return nil
}

var _ domain.RateLimiter = Noop{}
