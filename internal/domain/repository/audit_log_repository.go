package repository

import (
	"clinic-backend/internal/domain/entity"

	"gorm.io/gorm"
)

type AuditLogRepository interface {
	Create(db *gorm.DB, log *entity.AuditLog) error
	FindAll(db *gorm.DB, filter entity.AuditLogFilter, limit, offset int) ([]entity.AuditLog, int64, error)
	FindByID(db *gorm.DB, id int64) (*entity.AuditLog, error)
	// FindByEntityID returns the trail of one entity, oldest first
	FindByEntityID(db *gorm.DB, entityID string) ([]entity.AuditLog, error)
}
