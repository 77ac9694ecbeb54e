package repository

import (
	"clinic-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(db *gorm.DB, notification *entity.Notification) error
	FindByUserID(db *gorm.DB, userID uuid.UUID, limit, offset int) ([]entity.Notification, int64, error)
	MarkAsRead(db *gorm.DB, id uuid.UUID, userID uuid.UUID) (int64, error)
}
