package repository

import (
	"errors"

	"clinic-backend/internal/domain/entity"
	domainRepo "clinic-backend/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type consultationRepository struct{}

func NewConsultationRepository() domainRepo.ConsultationRepository {
	return &consultationRepository{}
}

func (r *consultationRepository) Create(db *gorm.DB, consultation *entity.Consultation) error {
	return db.Omit(clause.Associations).Create(consultation).Error
}

// Update persists the treatments and then the consultation row, conditioned on
// the version that was read. Returns ErrConsultationConflict when another
// writer got there first.
func (r *consultationRepository) Update(db *gorm.DB, consultation *entity.Consultation) error {
	if consultation.AcupunctureTreatment != nil {
		if err := db.Save(consultation.AcupunctureTreatment).Error; err != nil {
			return err
		}
	}
	if consultation.MedicineTreatment != nil {
		if err := db.Save(consultation.MedicineTreatment).Error; err != nil {
			return err
		}
	}

	result := db.Model(&entity.Consultation{}).
		Where("id = ? AND version = ?", consultation.ID, consultation.Version).
		Updates(map[string]interface{}{
			"status":                   consultation.Status,
			"start_at":                 consultation.StartAt,
			"end_at":                   consultation.EndAt,
			"check_out_at":             consultation.CheckOutAt,
			"onsite_cancel_at":         consultation.OnsiteCancelAt,
			"onsite_cancel_reason":     consultation.OnsiteCancelReason,
			"acupuncture_treatment_id": consultation.AcupunctureTreatmentID,
			"medicine_treatment_id":    consultation.MedicineTreatmentID,
			"version":                  gorm.Expr("version + 1"),
			"updated_at":               consultation.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainRepo.ErrConsultationConflict
	}

	consultation.Version++
	return nil
}

func (r *consultationRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Consultation, error) {
	var consultation entity.Consultation
	err := db.Preload("AcupunctureTreatment").
		Preload("MedicineTreatment").
		Preload("TimeSlot").
		Preload("Patient").
		Where("id = ?", id).
		First(&consultation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &consultation, nil
}

// GetLatestOddConsultationNumber returns -1 when the slot has no odd number yet
func (r *consultationRepository) GetLatestOddConsultationNumber(db *gorm.DB, timeSlotID uuid.UUID) (int, error) {
	var latest int
	err := db.Model(&entity.Consultation{}).
		Select("COALESCE(MAX(consultation_number), -1)").
		Where("time_slot_id = ? AND consultation_number % 2 = 1", timeSlotID).
		Scan(&latest).Error
	return latest, err
}

// GetLatestEvenConsultationNumber returns 0 when the slot has no even number yet
func (r *consultationRepository) GetLatestEvenConsultationNumber(db *gorm.DB, timeSlotID uuid.UUID) (int, error) {
	var latest int
	err := db.Model(&entity.Consultation{}).
		Select("COALESCE(MAX(consultation_number), 0)").
		Where("time_slot_id = ? AND consultation_number % 2 = 0", timeSlotID).
		Scan(&latest).Error
	return latest, err
}

func (r *consultationRepository) IsFirstTimeVisit(db *gorm.DB, patientID uuid.UUID) (bool, error) {
	var count int64
	err := db.Model(&entity.Consultation{}).
		Where("patient_id = ? AND status != ?", patientID, entity.StatusOnsiteCancel).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *consultationRepository) GetRealTimeCounts(db *gorm.DB, timeSlotIDs []uuid.UUID) (entity.CountBucket, error) {
	snapshot, err := r.GetRealTimeSnapshot(db, timeSlotIDs, 0, 0)
	if err != nil {
		return entity.CountBucket{}, err
	}
	return snapshot.Counts, nil
}

func (r *consultationRepository) GetRealTimeLists(db *gorm.DB, timeSlotIDs []uuid.UUID, limit, offset int) ([]entity.RealTimeRow, int, error) {
	snapshot, err := r.GetRealTimeSnapshot(db, timeSlotIDs, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return snapshot.Rows, snapshot.TotalCount, nil
}

// GetRealTimeSnapshot reads every consultation of the slots once and derives
// both the counts and the list page from that single result set.
func (r *consultationRepository) GetRealTimeSnapshot(db *gorm.DB, timeSlotIDs []uuid.UUID, limit, offset int) (*entity.RealTimeSnapshot, error) {
	if len(timeSlotIDs) == 0 {
		return entity.NewRealTimeSnapshot(nil, limit, offset), nil
	}

	var records []entity.RealTimeRow
	err := db.Table("consultations").
		Select(`
			consultations.id AS consultation_id,
			consultations.consultation_number,
			consultations.time_slot_id,
			consultations.patient_id,
			COALESCE(patients.full_name, '') AS patient_name,
			consultations.status,
			consultations.check_in_at,
			consultations.is_first_time_visit,
			acupuncture_treatments.bed_id
		`).
		Joins("LEFT JOIN patients ON patients.id = consultations.patient_id").
		Joins("LEFT JOIN acupuncture_treatments ON acupuncture_treatments.id = consultations.acupuncture_treatment_id").
		Where("consultations.time_slot_id IN ?", timeSlotIDs).
		Order("consultations.consultation_number ASC").
		Scan(&records).Error
	if err != nil {
		return nil, err
	}

	return entity.NewRealTimeSnapshot(records, limit, offset), nil
}
