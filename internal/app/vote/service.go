// Package vote implements the weekly contest: window scheduling, idempotent
// participation and the ranking that feeds the weekly discussion.
package vote

import (
	"context"
	"errors"
	"fmt"

	"github.com/marcelojr/cineclube/internal/domain"
	"github.com/marcelojr/cineclube/internal/platform/auth"
	"github.com/marcelojr/cineclube/internal/platform/ids"
	"github.com/marcelojr/cineclube/internal/platform/metrics"
)

var (
	ErrInvalidSchedule  = errors.New("window creation not permitted today")
	ErrWindowExists     = errors.New("window already scheduled for this cycle")
	ErrWindowNotFound   = errors.New("vote window not found")
	ErrWindowInactive   = errors.New("vote window not active")
	ErrUnknownCandidate = errors.New("candidate not part of this window")
	ErrDuplicateVote    = errors.New("user already voted in this window")
	ErrEmptyWindow      = errors.New("window has no candidates")
	ErrNoCandidates     = errors.New("candidate snapshot is empty")
	ErrMissingUser      = errors.New("user id is required")
)

// Service concentrates the contest rules and delegates storage to the
// repositories; tallies only ever move inside the participation transaction.
type Service struct {
	windows        domain.WindowRepository
	participations domain.ParticipationRepository
	catalog        domain.CandidateSource
	counter        domain.Counter
	limiter        domain.RateLimiter
	guard          *auth.Guard
	clock          domain.Clock
	ids            *ids.Generator
	schedule       Schedule
	candidateCount int
}

func NewService(
	windows domain.WindowRepository,
	participations domain.ParticipationRepository,
	catalog domain.CandidateSource,
	counter domain.Counter,
	limiter domain.RateLimiter,
	guard *auth.Guard,
	clock domain.Clock,
	idsGen *ids.Generator,
	schedule Schedule,
	candidateCount int,
) *Service {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	if candidateCount <= 0 {
		candidateCount = 5
	}
	return &Service{
		windows:        windows,
		participations: participations,
		catalog:        catalog,
		counter:        counter,
		limiter:        limiter,
		guard:          guard,
		clock:          clock,
		ids:            idsGen,
		schedule:       schedule,
		candidateCount: candidateCount,
	}
}

// OpenWindow creates the next cycle's window with a fresh candidate snapshot.
// Only an admin capability may call it, only on a configured creation day,
// and only once per cycle.
func (s *Service) OpenWindow(ctx context.Context, capability auth.Capability, title string) (domain.VoteWindow, error) {
	if err := s.guard.RequireAdmin(capability); err != nil {
		return domain.VoteWindow{}, err
	}

	now := s.clock.Now()
	if !s.schedule.AllowsCreation(now.Weekday()) {
		return domain.VoteWindow{}, fmt.Errorf("%w: %s", ErrInvalidSchedule, now.Weekday())
	}

	start := s.schedule.NextCycleStart(now)
	end := s.schedule.CycleEnd(start)

	exists, err := s.windows.ExistsOverlapping(ctx, start, end)
	if err != nil {
		return domain.VoteWindow{}, err
	}
	if exists {
		return domain.VoteWindow{}, ErrWindowExists
	}

	movies, err := s.catalog.TopByPopularity(ctx, s.candidateCount)
	if err != nil {
		return domain.VoteWindow{}, err
	}
	if len(movies) == 0 {
		return domain.VoteWindow{}, ErrNoCandidates
	}

	if title == "" {
		title = fmt.Sprintf("Weekly vote %s", start.Format("2006-01-02"))
	}

	window := domain.VoteWindow{
		ID:        domain.WindowID(s.ids.New()),
		Title:     title,
		StartsAt:  start,
		EndsAt:    end,
		CreatedAt: now,
	}

	candidates := make([]domain.Candidate, len(movies))
	for i, movie := range movies {
		candidates[i] = domain.Candidate{
			ID:        domain.CandidateID(s.ids.New()),
			WindowID:  window.ID,
			MovieID:   movie.ID,
			Position:  i,
			CreatedAt: now,
		}
	}
	window.Candidates = candidates

	if err := s.windows.Create(ctx, window); err != nil {
		return domain.VoteWindow{}, err
	}

	metrics.IncWindowOpened()
	return window, nil
}

// RequireAdmin re-exposes the capability check for sibling admin entrypoints
// such as the cycle rollover.
func (s *Service) RequireAdmin(capability auth.Capability) error {
	return s.guard.RequireAdmin(capability)
}

// ActiveWindow returns the window whose interval contains the current instant.
func (s *Service) ActiveWindow(ctx context.Context) (domain.VoteWindow, error) {
	window, err := s.windows.FindActive(ctx, s.clock.Now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.VoteWindow{}, ErrWindowNotFound
		}
		return domain.VoteWindow{}, err
	}
	return window, nil
}

// Options returns a window's immutable candidate snapshot.
func (s *Service) Options(ctx context.Context, windowID domain.WindowID) ([]domain.Candidate, error) {
	window, err := s.findWindow(ctx, windowID)
	if err != nil {
		return nil, err
	}
	return window.Candidates, nil
}

// CastVote registers one user's single vote inside an active window and
// returns the candidate's updated tally snapshot. Uniqueness is enforced by
// the participation repository at the database, not by a prior read here.
func (s *Service) CastVote(ctx context.Context, userID domain.UserID, windowID domain.WindowID, candidateID domain.CandidateID) (domain.Candidate, error) {
	if userID == "" {
		return domain.Candidate{}, ErrMissingUser
	}
	if windowID == "" {
		return domain.Candidate{}, ErrWindowNotFound
	}
	if candidateID == "" {
		return domain.Candidate{}, ErrUnknownCandidate
	}

	window, err := s.findWindow(ctx, windowID)
	if err != nil {
		return domain.Candidate{}, err
	}

	now := s.clock.Now()
	if !window.ActiveAt(now) {
		return domain.Candidate{}, ErrWindowInactive
	}

	if !candidateInSnapshot(window.Candidates, candidateID) {
		return domain.Candidate{}, ErrUnknownCandidate
	}

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, string(userID)); err != nil {
			return domain.Candidate{}, err
		}
	}

	participation := domain.Participation{
		ID:          domain.ParticipationID(s.ids.New()),
		UserID:      userID,
		WindowID:    windowID,
		CandidateID: candidateID,
		VotedAt:     now,
	}

	candidate, err := s.participations.Register(ctx, participation)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return domain.Candidate{}, ErrDuplicateVote
		}
		return domain.Candidate{}, err
	}

	if s.counter != nil {
		if _, err := s.counter.Incr(ctx, CounterKeyWindowTotal(windowID), 1); err != nil {
			return domain.Candidate{}, err
		}
		if _, err := s.counter.Incr(ctx, CounterKeyCandidate(windowID, candidateID), 1); err != nil {
			return domain.Candidate{}, err
		}
	}

	return candidate, nil
}

// Result ranks a window, active or past.
func (s *Service) Result(ctx context.Context, windowID domain.WindowID) ([]domain.RankedCandidate, error) {
	window, err := s.findWindow(ctx, windowID)
	if err != nil {
		return nil, err
	}
	return Rank(window.Candidates), nil
}

// LiveTally is the fast standings row read from the Redis counters.
type LiveTally struct {
	CandidateID domain.CandidateID `json:"candidate_id"`
	MovieID     domain.MovieID     `json:"movie_id"`
	TallyCount  int64              `json:"tally_count"`
}

// LiveStandings reads the counters instead of the durable tallies; cheap but
// eventually consistent, meant for high-frequency polling during the contest.
func (s *Service) LiveStandings(ctx context.Context, windowID domain.WindowID) ([]LiveTally, error) {
	window, err := s.findWindow(ctx, windowID)
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(window.Candidates))
	for i, c := range window.Candidates {
		keys[i] = CounterKeyCandidate(windowID, c.ID)
	}

	totals, err := s.counter.GetAll(ctx, keys)
	if err != nil {
		return nil, err
	}

	standings := make([]LiveTally, len(window.Candidates))
	for i, c := range window.Candidates {
		standings[i] = LiveTally{
			CandidateID: c.ID,
			MovieID:     c.MovieID,
			TallyCount:  totals[keys[i]],
		}
	}
	return standings, nil
}

func (s *Service) findWindow(ctx context.Context, windowID domain.WindowID) (domain.VoteWindow, error) {
	window, err := s.windows.FindByID(ctx, windowID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.VoteWindow{}, ErrWindowNotFound
		}
		return domain.VoteWindow{}, err
	}
	return window, nil
}

func candidateInSnapshot(candidates []domain.Candidate, id domain.CandidateID) bool {
	for _, c := range candidates {
		if c.ID == id {
			return true
		}
	}
	return false
}
