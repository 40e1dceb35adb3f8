package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marcelojr/cineclube/internal/domain"
)

// ParticipationRepository enforces one-vote-per-user-per-window at the
// database and keeps the tally bump in the same transaction as the insert.
type ParticipationRepository struct {
	db *gorm.DB
}

func NewParticipationRepository(db *gorm.DB) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

type participationModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	UserID      string    `gorm:"column:user_id;uniqueIndex:idx_participations_user_window"`
	WindowID    string    `gorm:"column:window_id;uniqueIndex:idx_participations_user_window"`
	CandidateID string    `gorm:"column:candidate_id;index"`
	VotedAt     time.Time `gorm:"column:voted_at"`
}

func (participationModel) TableName() string {
	return "participations"
}

func fromDomainParticipation(p domain.Participation) participationModel {
	return participationModel{
		ID:          string(p.ID),
		UserID:      string(p.UserID),
		WindowID:    string(p.WindowID),
		CandidateID: string(p.CandidateID),
		VotedAt:     p.VotedAt,
	}
}

// Register inserts the participation and increments the candidate's tally.
// The insert hits the UNIQUE(user_id, window_id) index, so the duplicate
// check and the write share one atomicity boundary; the tally moves through a
// single UPDATE expression, never a read-then-write from application memory.
func (r *ParticipationRepository) Register(ctx context.Context, p domain.Participation) (domain.Candidate, error) {
	var updated candidateModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := fromDomainParticipation(p)
		if err := tx.Create(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrDuplicate
			}
			return fmt.Errorf("gorm participations: insert: %w", err)
		}

		// COALESCE keeps the first-vote timestamp: later votes must not move
		// last_tallied_at forward.
		res := tx.Model(&candidateModel{}).
			Where("id = ? AND window_id = ?", string(p.CandidateID), string(p.WindowID)).
			Updates(map[string]any{
				"tally_count":     gorm.Expr("tally_count + 1"),
				"last_tallied_at": gorm.Expr("COALESCE(last_tallied_at, ?)", p.VotedAt),
			})
		if res.Error != nil {
			return fmt.Errorf("gorm participations: bump tally: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		if err := tx.First(&updated, "id = ?", string(p.CandidateID)).Error; err != nil {
			return fmt.Errorf("gorm participations: reload candidate: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Candidate{}, err
	}

	return updated.toDomain(), nil
}

func (r *ParticipationRepository) CountByWindow(ctx context.Context, windowID domain.WindowID) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&participationModel{}).
		Where("window_id = ?", windowID).
		Count(&total).Error; err != nil {
		return 0, fmt.Errorf("gorm participations: count by window: %w", err)
	}
	return total, nil
}

var _ domain.ParticipationRepository = (*ParticipationRepository)(nil)
