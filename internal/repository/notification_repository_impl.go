package repository

import (
	"clinic-backend/internal/domain/entity"
	domainRepo "clinic-backend/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type notificationRepository struct{}

func NewNotificationRepository() domainRepo.NotificationRepository {
	return &notificationRepository{}
}

func (r *notificationRepository) Create(db *gorm.DB, notification *entity.Notification) error {
	return db.Create(notification).Error
}

func (r *notificationRepository) FindByUserID(db *gorm.DB, userID uuid.UUID, limit, offset int) ([]entity.Notification, int64, error) {
	var total int64
	if err := db.Model(&entity.Notification{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []entity.Notification
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// MarkAsRead only touches the row when it belongs to userID.
// Returns affected rows: 0 = not found or not owned.
func (r *notificationRepository) MarkAsRead(db *gorm.DB, id uuid.UUID, userID uuid.UUID) (int64, error) {
	result := db.Model(&entity.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}
