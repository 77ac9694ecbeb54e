package entity

import (
	"time"

	"github.com/google/uuid"
)

// ConsultationSource tells how the patient got into the time slot
type ConsultationSource string

const (
	SourceOnlineBooking      ConsultationSource = "ONLINE_BOOKING"
	SourceOnsiteRegistration ConsultationSource = "ONSITE_REGISTRATION"
)

// Consultation represents one patient visit to one time slot
type Consultation struct {
	ID                 uuid.UUID          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PatientID          uuid.UUID          `gorm:"type:uuid;not null;index" json:"patient_id"`
	TimeSlotID         uuid.UUID          `gorm:"type:uuid;not null;index" json:"time_slot_id"`
	Source             ConsultationSource `gorm:"type:varchar(32);not null" json:"source"`
	ConsultationNumber int                `gorm:"not null" json:"consultation_number"`
	CheckInAt          time.Time          `gorm:"not null" json:"check_in_at"`
	IsFirstTimeVisit   bool               `gorm:"not null;default:false" json:"is_first_time_visit"`

	Status             ConsultationStatus `gorm:"type:varchar(48);not null;index" json:"status"`
	StartAt            *time.Time         `json:"start_at,omitempty"`
	EndAt              *time.Time         `json:"end_at,omitempty"`
	CheckOutAt         *time.Time         `json:"check_out_at,omitempty"`
	OnsiteCancelAt     *time.Time         `json:"onsite_cancel_at,omitempty"`
	OnsiteCancelReason *string            `gorm:"type:text" json:"onsite_cancel_reason,omitempty"`

	AcupunctureTreatmentID *uuid.UUID `gorm:"type:uuid" json:"acupuncture_treatment_id,omitempty"`
	MedicineTreatmentID    *uuid.UUID `gorm:"type:uuid" json:"medicine_treatment_id,omitempty"`

	Version   int       `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Patient              Patient               `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	TimeSlot             TimeSlot              `gorm:"foreignKey:TimeSlotID" json:"time_slot,omitempty"`
	AcupunctureTreatment *AcupunctureTreatment `gorm:"foreignKey:AcupunctureTreatmentID" json:"acupuncture_treatment,omitempty"`
	MedicineTreatment    *MedicineTreatment    `gorm:"foreignKey:MedicineTreatmentID" json:"medicine_treatment,omitempty"`
}

func (Consultation) TableName() string {
	return "consultations"
}

// NewConsultation builds a consultation in its initial status
func NewConsultation(patientID, timeSlotID uuid.UUID, source ConsultationSource, number int, checkInAt time.Time, firstVisit bool) *Consultation {
	return &Consultation{
		ID:                 uuid.New(),
		PatientID:          patientID,
		TimeSlotID:         timeSlotID,
		Source:             source,
		ConsultationNumber: number,
		CheckInAt:          checkInAt,
		IsFirstTimeVisit:   firstVisit,
		Status:             StatusWaitingForConsultation,
	}
}

// TransitionContext returns the facts NextStatus needs about this aggregate
func (c *Consultation) TransitionContext() TransitionContext {
	return TransitionContext{
		HasAcupuncture: c.AcupunctureTreatment != nil,
		HasMedicine:    c.MedicineTreatment != nil,
	}
}

// Payloads for the typed mutators. Each mutator overwrites only its own fields.

type StatusPayload struct {
	Status ConsultationStatus
}

type StartConsultationPayload struct {
	Status  ConsultationStatus
	StartAt time.Time
}

type FinishConsultationPayload struct {
	Status     ConsultationStatus
	EndAt      time.Time
	CheckOutAt *time.Time
}

type AssignBedPayload struct {
	Status      ConsultationStatus
	BedID       string
	AssignBedAt time.Time
}

type StartAcupuncturePayload struct {
	Status       ConsultationStatus
	StartAt      time.Time
	NeedleCounts int
}

type RemoveNeedlePayload struct {
	Status         ConsultationStatus
	RemoveNeedleAt time.Time
	CheckOutAt     *time.Time
}

type GetMedicinePayload struct {
	Status        ConsultationStatus
	GetMedicineAt time.Time
	CheckOutAt    time.Time
}

type CheckOutPayload struct {
	Status     ConsultationStatus
	CheckOutAt time.Time
}

type OnsiteCancelPayload struct {
	Status             ConsultationStatus
	OnsiteCancelAt     time.Time
	OnsiteCancelReason string
}

func (c *Consultation) UpdateToInConsultation(p StartConsultationPayload) {
	c.Status = p.Status
	c.StartAt = timePtr(p.StartAt)
}

// AttachAcupunctureTreatment attaches an empty acupuncture record, keeping an existing one
func (c *Consultation) AttachAcupunctureTreatment(p StatusPayload) {
	c.Status = p.Status
	if c.AcupunctureTreatment == nil {
		t := NewAcupunctureTreatment()
		c.AcupunctureTreatment = t
		c.AcupunctureTreatmentID = &t.ID
	}
}

// AttachMedicineTreatment attaches an empty medicine record, keeping an existing one
func (c *Consultation) AttachMedicineTreatment(p StatusPayload) {
	c.Status = p.Status
	if c.MedicineTreatment == nil {
		t := NewMedicineTreatment()
		c.MedicineTreatment = t
		c.MedicineTreatmentID = &t.ID
	}
}

func (c *Consultation) UpdateToFinishConsultation(p FinishConsultationPayload) {
	c.Status = p.Status
	c.EndAt = timePtr(p.EndAt)
	if p.CheckOutAt != nil {
		c.CheckOutAt = timePtr(*p.CheckOutAt)
	}
}

func (c *Consultation) UpdateToAssignBed(p AssignBedPayload) {
	c.Status = p.Status
	c.AcupunctureTreatment.BedID = stringPtr(p.BedID)
	c.AcupunctureTreatment.AssignBedAt = timePtr(p.AssignBedAt)
}

func (c *Consultation) UpdateToStartAcupuncture(p StartAcupuncturePayload) {
	c.Status = p.Status
	c.AcupunctureTreatment.StartAt = timePtr(p.StartAt)
	c.AcupunctureTreatment.EndAt = timePtr(p.StartAt.Add(AcupunctureDuration))
	c.AcupunctureTreatment.NeedleCounts = intPtr(p.NeedleCounts)
}

func (c *Consultation) UpdateToNeedleRemovalWait(p StatusPayload) {
	c.Status = p.Status
}

func (c *Consultation) UpdateToRemoveNeedle(p RemoveNeedlePayload) {
	c.Status = p.Status
	c.AcupunctureTreatment.RemoveNeedleAt = timePtr(p.RemoveNeedleAt)
	if p.CheckOutAt != nil {
		c.CheckOutAt = timePtr(*p.CheckOutAt)
	}
}

func (c *Consultation) UpdateToGetMedicine(p GetMedicinePayload) {
	c.Status = p.Status
	c.MedicineTreatment.GetMedicineAt = timePtr(p.GetMedicineAt)
	c.CheckOutAt = timePtr(p.CheckOutAt)
}

func (c *Consultation) UpdateToCheckOutAt(p CheckOutPayload) {
	c.Status = p.Status
	c.CheckOutAt = timePtr(p.CheckOutAt)
}

func (c *Consultation) UpdateToOnsiteCancel(p OnsiteCancelPayload) {
	c.Status = p.Status
	c.OnsiteCancelAt = timePtr(p.OnsiteCancelAt)
	c.OnsiteCancelReason = stringPtr(p.OnsiteCancelReason)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func stringPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}
