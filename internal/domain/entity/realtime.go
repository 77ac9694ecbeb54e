package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CountBucket holds waiting-room counts for one or more time slots.
// Every status maps to exactly one bucket, so the fields always sum to the
// number of consultations that were counted.
type CountBucket struct {
	WaitForConsultationCount         int `json:"wait_for_consultation_count"`
	WaitForBedAssignedCount          int `json:"wait_for_bed_assigned_count"`
	WaitForAcupunctureTreatmentCount int `json:"wait_for_acupuncture_treatment_count"`
	WaitForNeedleRemovedCount        int `json:"wait_for_needle_removed_count"`
	WaitForMedicineCount             int `json:"wait_for_medicine_count"`
	CompletedCount                   int `json:"completed_count"`
	OnsiteCancelCount                int `json:"onsite_cancel_count"`
}

// Add counts n consultations in the bucket status belongs to
func (b *CountBucket) Add(status ConsultationStatus, n int) {
	switch status {
	case StatusWaitingForConsultation, StatusInConsultation:
		b.WaitForConsultationCount += n
	case StatusWaitingForBedAssignment:
		b.WaitForBedAssignedCount += n
	case StatusWaitingForAcupunctureTreatment, StatusUndergoingAcupunctureTreatment:
		b.WaitForAcupunctureTreatmentCount += n
	case StatusWaitingForNeedleRemoval:
		b.WaitForNeedleRemovedCount += n
	case StatusWaitingForGetMedicine:
		b.WaitForMedicineCount += n
	case StatusCheckOut:
		b.CompletedCount += n
	case StatusOnsiteCancel:
		b.OnsiteCancelCount += n
	}
}

// Total is the number of consultations counted into the bucket
func (b CountBucket) Total() int {
	return b.WaitForConsultationCount +
		b.WaitForBedAssignedCount +
		b.WaitForAcupunctureTreatmentCount +
		b.WaitForNeedleRemovedCount +
		b.WaitForMedicineCount +
		b.CompletedCount +
		b.OnsiteCancelCount
}

// CompletionRate is the checked-out share of all consultations, in percent
func (b CountBucket) CompletionRate() decimal.Decimal {
	return percentage(b.CompletedCount, b.Total())
}

// CancellationRate is the onsite-cancelled share of all consultations, in percent
func (b CountBucket) CancellationRate() decimal.Decimal {
	return percentage(b.OnsiteCancelCount, b.Total())
}

// percentage rounds half away from zero to 2 places; a zero total yields zero
func percentage(part, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
}

// RealTimeRow is one current-patient line of a room/clinic dashboard
type RealTimeRow struct {
	ConsultationID     uuid.UUID          `json:"consultation_id"`
	ConsultationNumber int                `json:"consultation_number"`
	TimeSlotID         uuid.UUID          `json:"time_slot_id"`
	PatientID          uuid.UUID          `json:"patient_id"`
	PatientName        string             `json:"patient_name"`
	Status             ConsultationStatus `json:"status"`
	CheckInAt          time.Time          `json:"check_in_at"`
	IsFirstTimeVisit   bool               `json:"is_first_time_visit"`
	BedID              *string            `json:"bed_id,omitempty"`
}

// RealTimeSnapshot is the count and list view produced from a single read
type RealTimeSnapshot struct {
	Counts     CountBucket
	Rows       []RealTimeRow
	TotalCount int
}

// NewRealTimeSnapshot folds every record into the counts and pages the
// non-terminal ones into the current-patient list. Records are expected in
// consultation-number order.
func NewRealTimeSnapshot(records []RealTimeRow, limit, offset int) *RealTimeSnapshot {
	snapshot := &RealTimeSnapshot{Rows: []RealTimeRow{}}

	current := make([]RealTimeRow, 0, len(records))
	for _, record := range records {
		snapshot.Counts.Add(record.Status, 1)
		if !record.Status.IsTerminal() {
			current = append(current, record)
		}
	}
	snapshot.TotalCount = len(current)

	if offset < 0 {
		offset = 0
	}
	if offset >= len(current) {
		return snapshot
	}
	end := len(current)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	snapshot.Rows = current[offset:end]
	return snapshot
}
