package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is a clinic staff account (admin or doctor) that receives notifications
type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RoleID    int        `gorm:"not null;index" json:"role_id"`
	ClinicID  *uuid.UUID `gorm:"type:uuid;index" json:"clinic_id,omitempty"`
	Email     string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FullName  string     `gorm:"type:varchar(255);not null" json:"full_name"`
	FCMToken  *string    `gorm:"column:fcm_token;type:text" json:"-"`
	IsActive  *bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Role Role `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// CanReceivePush reports whether a device token is registered for FCM
func (u *User) CanReceivePush() bool {
	return u.FCMToken != nil && *u.FCMToken != ""
}
