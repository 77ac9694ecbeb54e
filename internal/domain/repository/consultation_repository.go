package repository

import (
	"errors"

	"clinic-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrConsultationConflict is returned by Update when the row was changed since it was read
var ErrConsultationConflict = errors.New("consultation was modified concurrently")

type ConsultationRepository interface {
	Create(db *gorm.DB, consultation *entity.Consultation) error
	Update(db *gorm.DB, consultation *entity.Consultation) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Consultation, error)
	GetLatestOddConsultationNumber(db *gorm.DB, timeSlotID uuid.UUID) (int, error)
	GetLatestEvenConsultationNumber(db *gorm.DB, timeSlotID uuid.UUID) (int, error)
	IsFirstTimeVisit(db *gorm.DB, patientID uuid.UUID) (bool, error)
	GetRealTimeCounts(db *gorm.DB, timeSlotIDs []uuid.UUID) (entity.CountBucket, error)
	GetRealTimeLists(db *gorm.DB, timeSlotIDs []uuid.UUID, limit, offset int) ([]entity.RealTimeRow, int, error)
	GetRealTimeSnapshot(db *gorm.DB, timeSlotIDs []uuid.UUID, limit, offset int) (*entity.RealTimeSnapshot, error)
}
