// Package migrations centralizes the gormigrate versions applied at startup.
package migrations

import (
	"fmt"

	gormigrate "github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/marcelojr/cineclube/internal/domain"
)

func Run(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("migrations: nil db")
	}

	// gormigrate versions the schema instead of running AutoMigrate blindly
	// in production.
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202602010001_init_schema",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&domain.Movie{},
					&domain.VoteWindow{},
					&domain.Candidate{},
					&domain.Participation{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("participations", "candidates", "vote_windows", "movies")
			},
		},
		{
			ID: "202602010002_notifications",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.Notification{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("notifications")
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrations: apply failed: %w", err)
	}

	return nil
}
