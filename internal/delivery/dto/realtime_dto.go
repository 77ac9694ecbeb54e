package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RealTimeQuery is read from the query string; admins must name clinic and room
type RealTimeQuery struct {
	ClinicID   *uuid.UUID
	RoomNumber string
	Limit      int
	Offset     int
}

type RealTimeCountsResponse struct {
	TimeSlotIDs                      []uuid.UUID     `json:"time_slot_ids"`
	WaitForConsultationCount         int             `json:"wait_for_consultation_count"`
	WaitForBedAssignedCount          int             `json:"wait_for_bed_assigned_count"`
	WaitForAcupunctureTreatmentCount int             `json:"wait_for_acupuncture_treatment_count"`
	WaitForNeedleRemovedCount        int             `json:"wait_for_needle_removed_count"`
	WaitForMedicineCount             int             `json:"wait_for_medicine_count"`
	CompletedCount                   int             `json:"completed_count"`
	OnsiteCancelCount                int             `json:"onsite_cancel_count"`
	CompletionRate                   decimal.Decimal `json:"completion_rate"`
	CancellationRate                 decimal.Decimal `json:"cancellation_rate"`
}

type RealTimeRowResponse struct {
	ConsultationID     uuid.UUID `json:"consultation_id"`
	ConsultationNumber int       `json:"consultation_number"`
	TimeSlotID         uuid.UUID `json:"time_slot_id"`
	PatientID          uuid.UUID `json:"patient_id"`
	PatientName        string    `json:"patient_name"`
	Status             string    `json:"status"`
	CheckInAt          time.Time `json:"check_in_at"`
	IsFirstTimeVisit   bool      `json:"is_first_time_visit"`
	BedID              *string   `json:"bed_id,omitempty"`
}

type RealTimeListResponse struct {
	TimeSlotIDs []uuid.UUID           `json:"time_slot_ids"`
	Rows        []RealTimeRowResponse `json:"rows"`
	Total       int                   `json:"total"`
	Limit       int                   `json:"limit"`
	Offset      int                   `json:"offset"`
}
