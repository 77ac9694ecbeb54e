package repository

import (
	"clinic-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PatientRepository interface {
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Patient, error)
}
