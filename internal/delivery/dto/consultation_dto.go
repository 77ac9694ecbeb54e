package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateConsultationRequest struct {
	PatientID  uuid.UUID `json:"patient_id" validate:"required"`
	TimeSlotID uuid.UUID `json:"time_slot_id" validate:"required"`
	Source     string    `json:"source" validate:"required,oneof=ONLINE_BOOKING ONSITE_REGISTRATION"`
}

type AssignBedRequest struct {
	BedID string `json:"bed_id" validate:"required,notblank,max=50"`
}

type StartAcupunctureRequest struct {
	NeedleCounts int `json:"needle_counts" validate:"gte=0,lte=500"`
}

type OnsiteCancelRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=500"`
}

// Response DTOs

type AcupunctureTreatmentResponse struct {
	ID             uuid.UUID  `json:"id"`
	BedID          *string    `json:"bed_id,omitempty"`
	AssignBedAt    *time.Time `json:"assign_bed_at,omitempty"`
	StartAt        *time.Time `json:"start_at,omitempty"`
	EndAt          *time.Time `json:"end_at,omitempty"`
	NeedleCounts   *int       `json:"needle_counts,omitempty"`
	RemoveNeedleAt *time.Time `json:"remove_needle_at,omitempty"`
}

type MedicineTreatmentResponse struct {
	ID            uuid.UUID  `json:"id"`
	GetMedicineAt *time.Time `json:"get_medicine_at,omitempty"`
}

type ConsultationResponse struct {
	ID                   uuid.UUID                     `json:"id"`
	PatientID            uuid.UUID                     `json:"patient_id"`
	PatientName          string                        `json:"patient_name,omitempty"`
	TimeSlotID           uuid.UUID                     `json:"time_slot_id"`
	Source               string                        `json:"source"`
	ConsultationNumber   int                           `json:"consultation_number"`
	CheckInAt            time.Time                     `json:"check_in_at"`
	IsFirstTimeVisit     bool                          `json:"is_first_time_visit"`
	Status               string                        `json:"status"`
	StartAt              *time.Time                    `json:"start_at,omitempty"`
	EndAt                *time.Time                    `json:"end_at,omitempty"`
	CheckOutAt           *time.Time                    `json:"check_out_at,omitempty"`
	OnsiteCancelAt       *time.Time                    `json:"onsite_cancel_at,omitempty"`
	OnsiteCancelReason   *string                       `json:"onsite_cancel_reason,omitempty"`
	AcupunctureTreatment *AcupunctureTreatmentResponse `json:"acupuncture_treatment,omitempty"`
	MedicineTreatment    *MedicineTreatmentResponse    `json:"medicine_treatment,omitempty"`
	CreatedAt            time.Time                     `json:"created_at"`
	UpdatedAt            time.Time                     `json:"updated_at"`
}
