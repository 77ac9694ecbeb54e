package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditLog is one committed change to a consultation. It is written in the
// same transaction as the change itself.
type AuditLog struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action    string     `gorm:"type:varchar(100);not null;index" json:"action"`
	Metadata  JSON       `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// AuditLogFilter narrows the audit trail; zero fields match everything.
// Kept in the domain so repositories do not depend on delivery DTOs.
type AuditLogFilter struct {
	Action   string
	EntityID string
}

// JSON maps a jsonb column
type JSON map[string]any

func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSON) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported jsonb value of type %T", value)
	}
	return json.Unmarshal(raw, j)
}

const (
	AuditActionConsultationCreate = "consultation.create"
	AuditEntityConsultation       = "consultation"
)

// AuditActionFor returns the audit action recorded for a consultation event
func AuditActionFor(event ConsultationEvent) string {
	return "consultation." + string(event)
}
