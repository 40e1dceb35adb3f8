package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marcelojr/cineclube/internal/domain"
)

// WindowRepository maps the vote window aggregate onto GORM tables.
type WindowRepository struct {
	db *gorm.DB
}

func NewWindowRepository(db *gorm.DB) *WindowRepository {
	return &WindowRepository{db: db}
}

type windowModel struct {
	ID         string           `gorm:"column:id;primaryKey"`
	Title      string           `gorm:"column:title"`
	StartsAt   time.Time        `gorm:"column:starts_at"`
	EndsAt     time.Time        `gorm:"column:ends_at"`
	CreatedAt  time.Time        `gorm:"column:created_at"`
	Candidates []candidateModel `gorm:"foreignKey:WindowID;references:ID"`
}

func (windowModel) TableName() string {
	return "vote_windows"
}

type candidateModel struct {
	ID            string     `gorm:"column:id;primaryKey"`
	WindowID      string     `gorm:"column:window_id;index"`
	MovieID       string     `gorm:"column:movie_id"`
	Position      int        `gorm:"column:position"`
	TallyCount    int64      `gorm:"column:tally_count"`
	LastTalliedAt *time.Time `gorm:"column:last_tallied_at"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
}

func (candidateModel) TableName() string {
	return "candidates"
}

func (m candidateModel) toDomain() domain.Candidate {
	return domain.Candidate{
		ID:            domain.CandidateID(m.ID),
		WindowID:      domain.WindowID(m.WindowID),
		MovieID:       domain.MovieID(m.MovieID),
		Position:      m.Position,
		TallyCount:    m.TallyCount,
		LastTalliedAt: m.LastTalliedAt,
		CreatedAt:     m.CreatedAt,
	}
}

func (m windowModel) toDomain() domain.VoteWindow {
	w := domain.VoteWindow{
		ID:        domain.WindowID(m.ID),
		Title:     m.Title,
		StartsAt:  m.StartsAt,
		EndsAt:    m.EndsAt,
		CreatedAt: m.CreatedAt,
	}

	candidates := make([]domain.Candidate, len(m.Candidates))
	for i, c := range m.Candidates {
		candidates[i] = c.toDomain()
	}
	w.Candidates = candidates

	return w
}

func fromDomainWindow(w domain.VoteWindow) windowModel {
	model := windowModel{
		ID:        string(w.ID),
		Title:     w.Title,
		StartsAt:  w.StartsAt,
		EndsAt:    w.EndsAt,
		CreatedAt: w.CreatedAt,
	}

	if len(w.Candidates) > 0 {
		model.Candidates = make([]candidateModel, len(w.Candidates))
		for i, c := range w.Candidates {
			model.Candidates[i] = candidateModel{
				ID:            string(c.ID),
				WindowID:      string(c.WindowID),
				MovieID:       string(c.MovieID),
				Position:      c.Position,
				TallyCount:    c.TallyCount,
				LastTalliedAt: c.LastTalliedAt,
				CreatedAt:     c.CreatedAt,
			}
		}
	}

	return model
}

func (r *WindowRepository) Create(ctx context.Context, w domain.VoteWindow) error {
	model := fromDomainWindow(w)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("gorm windows: insert: %w", err)
	}
	return nil
}

func (r *WindowRepository) FindByID(ctx context.Context, id domain.WindowID) (domain.VoteWindow, error) {
	var model windowModel
	if err := r.db.WithContext(ctx).
		Preload("Candidates", candidatesInSnapshotOrder).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.VoteWindow{}, domain.ErrNotFound
		}
		return domain.VoteWindow{}, fmt.Errorf("gorm windows: find by id: %w", err)
	}
	return model.toDomain(), nil
}

func (r *WindowRepository) FindActive(ctx context.Context, at time.Time) (domain.VoteWindow, error) {
	var model windowModel
	if err := r.db.WithContext(ctx).
		Preload("Candidates", candidatesInSnapshotOrder).
		Where("starts_at <= ? AND ends_at > ?", at, at).
		Order("starts_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.VoteWindow{}, domain.ErrNotFound
		}
		return domain.VoteWindow{}, fmt.Errorf("gorm windows: find active: %w", err)
	}
	return model.toDomain(), nil
}

func (r *WindowRepository) ExistsOverlapping(ctx context.Context, start, end time.Time) (bool, error) {
	var total int64
	// Two half-open intervals intersect when each starts before the other ends.
	if err := r.db.WithContext(ctx).
		Model(&windowModel{}).
		Where("starts_at < ? AND ends_at > ?", end, start).
		Count(&total).Error; err != nil {
		return false, fmt.Errorf("gorm windows: count overlapping: %w", err)
	}
	return total > 0, nil
}

func (r *WindowRepository) FindLastCompleted(ctx context.Context, now time.Time) (domain.VoteWindow, error) {
	var model windowModel
	if err := r.db.WithContext(ctx).
		Preload("Candidates", candidatesInSnapshotOrder).
		Where("ends_at <= ?", now).
		Order("ends_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.VoteWindow{}, domain.ErrNotFound
		}
		return domain.VoteWindow{}, fmt.Errorf("gorm windows: find last completed: %w", err)
	}
	return model.toDomain(), nil
}

func candidatesInSnapshotOrder(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

var _ domain.WindowRepository = (*WindowRepository)(nil)
