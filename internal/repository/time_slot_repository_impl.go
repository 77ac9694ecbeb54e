package repository

import (
	"errors"
	"time"

	"clinic-backend/internal/domain/entity"
	domainRepo "clinic-backend/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type timeSlotRepository struct{}

func NewTimeSlotRepository() domainRepo.TimeSlotRepository {
	return &timeSlotRepository{}
}

func (r *timeSlotRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.TimeSlot, error) {
	var slot entity.TimeSlot
	err := db.Preload("Doctor").Where("id = ?", id).First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &slot, nil
}

// FindActiveByDoctor returns the doctor's slot covering now, or nil when there is none
func (r *timeSlotRepository) FindActiveByDoctor(db *gorm.DB, doctorID uuid.UUID, now time.Time) (*entity.TimeSlot, error) {
	var slot entity.TimeSlot
	err := db.Where("doctor_id = ? AND start_at <= ? AND end_at > ?", doctorID, now, now).
		Order("start_at DESC").
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &slot, nil
}

func (r *timeSlotRepository) FindActiveByClinicRoom(db *gorm.DB, clinicID uuid.UUID, roomNumber string, now time.Time) ([]entity.TimeSlot, error) {
	var slots []entity.TimeSlot
	err := db.Where("clinic_id = ? AND room_number = ? AND start_at <= ? AND end_at > ?", clinicID, roomNumber, now, now).
		Order("start_at ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}
