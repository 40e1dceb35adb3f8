package vote

import (
	"context"
	"errors"
	"sync"

	"github.com/marcelojr/cineclube/internal/domain"
)

const cycleKeyLayout = "2006-01-02"

// WinnerCache memoizes the previous cycle's winner. The memo is keyed by the
// preceding cycle's start and is only dropped by an explicit Invalidate call;
// the scheduler triggers that once per rollover, never the cache itself.
type WinnerCache struct {
	windows  domain.WindowRepository
	clock    domain.Clock
	schedule Schedule

	mu        sync.Mutex
	cachedKey string
	cached    domain.RankedCandidate
	valid     bool
}

func NewWinnerCache(windows domain.WindowRepository, clock domain.Clock, schedule Schedule) *WinnerCache {
	return &WinnerCache{
		windows:  windows,
		clock:    clock,
		schedule: schedule,
	}
}

// LastCompletedWinner resolves the winner of the cycle preceding the current
// one. A completed window older than that cycle means the cycle simply had no
// contest, which is a not-found, not a stale winner.
func (c *WinnerCache) LastCompletedWinner(ctx context.Context) (domain.RankedCandidate, error) {
	now := c.clock.Now()
	prevStart := c.schedule.PreviousCycleStart(now)
	key := prevStart.Format(cycleKeyLayout)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && c.cachedKey == key {
		return c.cached, nil
	}

	window, err := c.windows.FindLastCompleted(ctx, now)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.RankedCandidate{}, ErrWindowNotFound
		}
		return domain.RankedCandidate{}, err
	}

	if window.StartsAt.Before(prevStart) {
		return domain.RankedCandidate{}, ErrWindowNotFound
	}

	winner, err := Winner(window.Candidates)
	if err != nil {
		return domain.RankedCandidate{}, err
	}

	c.cached = winner
	c.cachedKey = key
	c.valid = true
	return winner, nil
}

// Invalidate drops the memo; the next read recomputes. Called by the external
// scheduler at every cycle rollover.
func (c *WinnerCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.cachedKey = ""
	c.cached = domain.RankedCandidate{}
}
