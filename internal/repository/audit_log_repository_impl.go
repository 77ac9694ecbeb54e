package repository

import (
	"errors"

	"clinic-backend/internal/domain/entity"
	domainRepo "clinic-backend/internal/domain/repository"

	"gorm.io/gorm"
)

type auditLogRepository struct{}

func NewAuditLogRepository() domainRepo.AuditLogRepository {
	return &auditLogRepository{}
}

func (r *auditLogRepository) Create(db *gorm.DB, log *entity.AuditLog) error {
	return db.Create(log).Error
}

func (r *auditLogRepository) FindAll(db *gorm.DB, filter entity.AuditLogFilter, limit, offset int) ([]entity.AuditLog, int64, error) {
	query := applyAuditLogFilter(db.Model(&entity.AuditLog{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []entity.AuditLog
	err := query.Preload("User.Role").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (r *auditLogRepository) FindByID(db *gorm.DB, id int64) (*entity.AuditLog, error) {
	var log entity.AuditLog
	err := db.Preload("User.Role").Where("id = ?", id).First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}

func (r *auditLogRepository) FindByEntityID(db *gorm.DB, entityID string) ([]entity.AuditLog, error) {
	logs := []entity.AuditLog{}
	err := db.Preload("User.Role").
		Where("metadata->>'entity_id' = ?", entityID).
		Order("id ASC").
		Find(&logs).Error
	return logs, err
}

func applyAuditLogFilter(db *gorm.DB, filter entity.AuditLogFilter) *gorm.DB {
	if filter.Action != "" {
		db = db.Where("action = ?", filter.Action)
	}
	if filter.EntityID != "" {
		db = db.Where("metadata->>'entity_id' = ?", filter.EntityID)
	}
	return db
}
