package entity

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies operator notifications
type NotificationType string

const (
	NotificationAbnormalBedAssignmentWaitTime NotificationType = "ABNORMAL_BED_ASSIGNMENT_WAIT_TIME"
	NotificationAbnormalBedWaitTime           NotificationType = "ABNORMAL_BED_WAIT_TIME"
	NotificationAbnormalAcupunctureTime       NotificationType = "ABNORMAL_ACUPUNCTURE_TREATMENT_TIME"
	NotificationAbnormalNeedleRemovalWaitTime NotificationType = "ABNORMAL_NEEDLE_REMOVAL_WAIT_TIME"
	NotificationAbnormalGetMedicineWaitTime   NotificationType = "ABNORMAL_GET_MEDICINE_WAIT_TIME"
	NotificationOnsiteCancellation            NotificationType = "ONSITE_CANCELLATION"
)

// Notification is an in-app message addressed to one user
type Notification struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Title       string           `gorm:"type:varchar(255);not null" json:"title"`
	Content     string           `gorm:"type:text;not null" json:"content"`
	Type        NotificationType `gorm:"type:varchar(64);not null;index" json:"type"`
	ReferenceID *uuid.UUID       `gorm:"type:uuid;index" json:"reference_id,omitempty"`
	IsRead      bool             `gorm:"not null;default:false" json:"is_read"`
	CreatedAt   time.Time        `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
