package vote

import (
	"fmt"

	"github.com/marcelojr/cineclube/internal/domain"
)

func CounterKeyWindowTotal(id domain.WindowID) string {
	return fmt.Sprintf("window:%s:total", id)
}

func CounterKeyCandidate(windowID domain.WindowID, candidateID domain.CandidateID) string {
	return fmt.Sprintf("window:%s:candidate:%s", windowID, candidateID)
}
