package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marcelojr/cineclube/internal/domain"
)

// MovieRepository reads the popularity ranking that seeds new windows. The
// catalog rows themselves are written by the (out of scope) catalog service.
type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

type movieModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	Title      string    `gorm:"column:title"`
	Popularity int64     `gorm:"column:popularity"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (movieModel) TableName() string {
	return "movies"
}

func (r *MovieRepository) TopByPopularity(ctx context.Context, n int) ([]domain.Movie, error) {
	var models []movieModel
	if err := r.db.WithContext(ctx).
		Order("popularity DESC, id ASC").
		Limit(n).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm movies: top by popularity: %w", err)
	}

	movies := make([]domain.Movie, len(models))
	for i, model := range models {
		movies[i] = domain.Movie{
			ID:         domain.MovieID(model.ID),
			Title:      model.Title,
			Popularity: model.Popularity,
			CreatedAt:  model.CreatedAt,
		}
	}
	return movies, nil
}

var _ domain.CandidateSource = (*MovieRepository)(nil)
