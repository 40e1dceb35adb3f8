package vote

import (
	"sort"

	"github.com/marcelojr/cineclube/internal/domain"
)

// Rank orders a window's candidate snapshot: tally count descending, then
// last-tallied timestamp descending with never-voted candidates after any
// tallied candidate of equal count. Candidates that are still tied (notably
// the all-zero case) keep their snapshot order; the stable sort over the
// position-ordered slice is what guarantees that policy. Ranks are a strict
// 1..N sequence by output position, so equal tallies never share a number.
func Rank(candidates []domain.Candidate) []domain.RankedCandidate {
	ordered := make([]domain.Candidate, len(candidates))
	copy(ordered, candidates)

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.TallyCount != b.TallyCount {
			return a.TallyCount > b.TallyCount
		}
		switch {
		case a.LastTalliedAt == nil && b.LastTalliedAt == nil:
			return false
		case a.LastTalliedAt == nil:
			return false
		case b.LastTalliedAt == nil:
			return true
		default:
			return a.LastTalliedAt.After(*b.LastTalliedAt)
		}
	})

	ranked := make([]domain.RankedCandidate, len(ordered))
	for i, c := range ordered {
		ranked[i] = domain.RankedCandidate{
			Rank:          i + 1,
			CandidateID:   c.ID,
			MovieID:       c.MovieID,
			TallyCount:    c.TallyCount,
			LastTalliedAt: c.LastTalliedAt,
		}
	}
	return ranked
}

// Winner returns the top-ranked candidate of the snapshot.
func Winner(candidates []domain.Candidate) (domain.RankedCandidate, error) {
	if len(candidates) == 0 {
		return domain.RankedCandidate{}, ErrEmptyWindow
	}
	return Rank(candidates)[0], nil
}
