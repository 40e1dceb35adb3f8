package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marcelojr/cineclube/internal/domain"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

type notificationModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	UserID    string    `gorm:"column:user_id;index"`
	Type      string    `gorm:"column:type"`
	RelatedID string    `gorm:"column:related_id"`
	Read      bool      `gorm:"column:read"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (notificationModel) TableName() string {
	return "notifications"
}

func (m notificationModel) toDomain() domain.Notification {
	return domain.Notification{
		ID:        domain.NotificationID(m.ID),
		UserID:    domain.UserID(m.UserID),
		Type:      domain.NotificationType(m.Type),
		RelatedID: m.RelatedID,
		Read:      m.Read,
		CreatedAt: m.CreatedAt,
	}
}

func (r *NotificationRepository) Create(ctx context.Context, n domain.Notification) error {
	model := notificationModel{
		ID:        string(n.ID),
		UserID:    string(n.UserID),
		Type:      string(n.Type),
		RelatedID: n.RelatedID,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("gorm notifications: insert: %w", err)
	}
	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID domain.UserID, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	var models []notificationModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm notifications: list by user: %w", err)
	}

	result := make([]domain.Notification, len(models))
	for i, model := range models {
		result[i] = model.toDomain()
	}
	return result, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id domain.NotificationID, userID domain.UserID) error {
	res := r.db.WithContext(ctx).
		Model(&notificationModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return fmt.Errorf("gorm notifications: mark read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.NotificationRepository = (*NotificationRepository)(nil)
