package entity

import (
	"time"

	"github.com/google/uuid"
)

// TimeSlot is a doctor/clinic/room/period unit consultations are booked against.
// Owned by scheduling setup; the consultation engine only reads it.
type TimeSlot struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DoctorID   uuid.UUID `gorm:"type:uuid;not null;index" json:"doctor_id"`
	ClinicID   uuid.UUID `gorm:"type:uuid;not null;index:idx_time_slots_clinic_room" json:"clinic_id"`
	RoomNumber string    `gorm:"type:varchar(20);not null;index:idx_time_slots_clinic_room" json:"room_number"`
	StartAt    time.Time `gorm:"not null;index" json:"start_at"`
	EndAt      time.Time `gorm:"not null" json:"end_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Doctor User `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

func (TimeSlot) TableName() string {
	return "time_slots"
}

// IsActiveAt reports whether now falls inside [StartAt, EndAt)
func (t *TimeSlot) IsActiveAt(now time.Time) bool {
	return !now.Before(t.StartAt) && now.Before(t.EndAt)
}
