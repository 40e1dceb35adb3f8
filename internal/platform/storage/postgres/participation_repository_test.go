package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/marcelojr/cineclube/internal/domain"
)

func participationFixture(t *testing.T, db *gorm.DB) domain.VoteWindow {
	t.Helper()
	start := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	window := testWindow("w1", start)
	require.NoError(t, NewWindowRepository(db).Create(context.Background(), window))
	return window
}

func TestParticipationRepository_RegisterBumpsTally(t *testing.T) {
	db := setupDB(t)
	window := participationFixture(t, db)
	repo := NewParticipationRepository(db)
	ctx := context.Background()

	votedAt := window.StartsAt.Add(time.Hour)
	candidate, err := repo.Register(ctx, domain.Participation{
		ID:          "p1",
		UserID:      "user-1",
		WindowID:    window.ID,
		CandidateID: window.Candidates[1].ID,
		VotedAt:     votedAt,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), candidate.TallyCount)
	require.NotNil(t, candidate.LastTalliedAt)
	assert.True(t, candidate.LastTalliedAt.Equal(votedAt))

	count, err := repo.CountByWindow(ctx, window.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestParticipationRepository_RegisterKeepsFirstVoteTimestamp(t *testing.T) {
	db := setupDB(t)
	window := participationFixture(t, db)
	repo := NewParticipationRepository(db)
	ctx := context.Background()

	first := window.StartsAt.Add(time.Hour)
	_, err := repo.Register(ctx, domain.Participation{
		ID: "p1", UserID: "user-1", WindowID: window.ID,
		CandidateID: window.Candidates[0].ID, VotedAt: first,
	})
	require.NoError(t, err)

	candidate, err := repo.Register(ctx, domain.Participation{
		ID: "p2", UserID: "user-2", WindowID: window.ID,
		CandidateID: window.Candidates[0].ID, VotedAt: first.Add(5 * time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), candidate.TallyCount)
	assert.True(t, candidate.LastTalliedAt.Equal(first), "COALESCE must keep the first-vote timestamp")
}

func TestParticipationRepository_RegisterDuplicate(t *testing.T) {
	db := setupDB(t)
	window := participationFixture(t, db)
	repo := NewParticipationRepository(db)
	ctx := context.Background()

	vote := domain.Participation{
		ID: "p1", UserID: "user-1", WindowID: window.ID,
		CandidateID: window.Candidates[0].ID, VotedAt: window.StartsAt.Add(time.Hour),
	}
	_, err := repo.Register(ctx, vote)
	require.NoError(t, err)

	// Same user, same window, different row id and candidate: the unique
	// index must reject it and the whole transaction must roll back.
	vote.ID = "p2"
	vote.CandidateID = window.Candidates[1].ID
	_, err = repo.Register(ctx, vote)
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	reloaded, err := NewWindowRepository(db).FindByID(ctx, window.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reloaded.Candidates[0].TallyCount)
	assert.Equal(t, int64(0), reloaded.Candidates[1].TallyCount, "rejected vote must not move any tally")

	count, err := repo.CountByWindow(ctx, window.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestParticipationRepository_RegisterUnknownCandidate(t *testing.T) {
	db := setupDB(t)
	window := participationFixture(t, db)
	repo := NewParticipationRepository(db)

	_, err := repo.Register(context.Background(), domain.Participation{
		ID: "p1", UserID: "user-1", WindowID: window.ID,
		CandidateID: "ghost", VotedAt: window.StartsAt.Add(time.Hour),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The insert rolled back with the failed bump.
	count, err := repo.CountByWindow(context.Background(), window.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestParticipationRepository_RegisterManyVoters(t *testing.T) {
	db := setupDB(t)
	window := participationFixture(t, db)
	repo := NewParticipationRepository(db)
	ctx := context.Background()

	const voters = 25
	for i := 0; i < voters; i++ {
		_, err := repo.Register(ctx, domain.Participation{
			ID:          domain.ParticipationID(fmt.Sprintf("p%02d", i)),
			UserID:      domain.UserID(fmt.Sprintf("user-%02d", i)),
			WindowID:    window.ID,
			CandidateID: window.Candidates[2].ID,
			VotedAt:     window.StartsAt.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	reloaded, err := NewWindowRepository(db).FindByID(ctx, window.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(voters), reloaded.Candidates[2].TallyCount)

	count, err := repo.CountByWindow(ctx, window.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(voters), count)
}

func TestParticipationRepository_SameUserAcrossWindows(t *testing.T) {
	db := setupDB(t)
	repo := NewParticipationRepository(db)
	windows := NewWindowRepository(db)
	ctx := context.Background()

	w1 := testWindow("w1", time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC))
	w2 := testWindow("w2", time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, windows.Create(ctx, w1))
	require.NoError(t, windows.Create(ctx, w2))

	// One vote per window is fine; the uniqueness is scoped to the window.
	_, err := repo.Register(ctx, domain.Participation{
		ID: "p1", UserID: "user-1", WindowID: w1.ID,
		CandidateID: w1.Candidates[0].ID, VotedAt: w1.StartsAt.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = repo.Register(ctx, domain.Participation{
		ID: "p2", UserID: "user-1", WindowID: w2.ID,
		CandidateID: w2.Candidates[0].ID, VotedAt: w2.StartsAt.Add(time.Hour),
	})
	assert.NoError(t, err)
}
