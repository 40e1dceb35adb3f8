package hub

import (
	"context"
	"log/slog"
	"time"

	"github.com/marcelojr/cineclube/internal/platform/metrics"
)

// KeepAlive periodically probes every live connection with a ping frame. A
// failed push already evicts through the normal push contract, so a round is
// just "push to everyone and count the casualties".
type KeepAlive struct {
	registry *Registry
	period   time.Duration
	logger   *slog.Logger
}

func NewKeepAlive(registry *Registry, period time.Duration, logger *slog.Logger) *KeepAlive {
	if period <= 0 {
		period = 30 * time.Second
	}
	return &KeepAlive{
		registry: registry,
		period:   period,
		logger:   logger,
	}
}

// Run ticks until the context ends. The ticker is plain wall-clock; tests
// drive Tick directly instead.
func (k *KeepAlive) Run(ctx context.Context) {
	ticker := time.NewTicker(k.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.Tick()
		}
	}
}

// Tick probes all live connections once. An empty registry is a no-op.
func (k *KeepAlive) Tick() {
	users := k.registry.Users()
	if len(users) == 0 {
		return
	}

	start := time.Now()
	evicted := 0
	for _, user := range users {
		if !k.registry.Push(user, Frame{Type: FramePing}) {
			evicted++
		}
	}
	metrics.ObserveKeepAliveRound(time.Since(start).Seconds())

	if evicted > 0 {
		k.logger.Info("keep-alive evicted dead connections", "evicted", evicted, "probed", len(users))
	}
}
