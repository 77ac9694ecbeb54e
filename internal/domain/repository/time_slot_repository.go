package repository

import (
	"time"

	"clinic-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TimeSlotRepository interface {
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.TimeSlot, error)
	FindActiveByDoctor(db *gorm.DB, doctorID uuid.UUID, now time.Time) (*entity.TimeSlot, error)
	FindActiveByClinicRoom(db *gorm.DB, clinicID uuid.UUID, roomNumber string, now time.Time) ([]entity.TimeSlot, error)
}
