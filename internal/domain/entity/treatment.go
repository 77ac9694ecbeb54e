package entity

import (
	"time"

	"github.com/google/uuid"
)

// AcupunctureDuration is the fixed needling span from StartAt to EndAt
const AcupunctureDuration = 15 * time.Minute

// AcupunctureTreatment is filled incrementally: bed assignment, needling, needle removal
type AcupunctureTreatment struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StartAt        *time.Time `json:"start_at,omitempty"`
	EndAt          *time.Time `json:"end_at,omitempty"`
	BedID          *string    `gorm:"type:varchar(50)" json:"bed_id,omitempty"`
	AssignBedAt    *time.Time `json:"assign_bed_at,omitempty"`
	RemoveNeedleAt *time.Time `json:"remove_needle_at,omitempty"`
	NeedleCounts   *int       `json:"needle_counts,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AcupunctureTreatment) TableName() string {
	return "acupuncture_treatments"
}

func NewAcupunctureTreatment() *AcupunctureTreatment {
	return &AcupunctureTreatment{ID: uuid.New()}
}

// MedicineTreatment records when the patient picked up medicine
type MedicineTreatment struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	GetMedicineAt *time.Time `json:"get_medicine_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MedicineTreatment) TableName() string {
	return "medicine_treatments"
}

func NewMedicineTreatment() *MedicineTreatment {
	return &MedicineTreatment{ID: uuid.New()}
}
