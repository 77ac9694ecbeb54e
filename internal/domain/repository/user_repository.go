package repository

import (
	"clinic-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.User, error)
	FindClinicAdmin(db *gorm.DB, clinicID uuid.UUID) (*entity.User, error)
}
