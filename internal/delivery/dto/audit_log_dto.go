package dto

import (
	"time"

	"clinic-backend/internal/domain/entity"

	"github.com/google/uuid"
)

type AuditLogQuery struct {
	Action         string
	ConsultationID *uuid.UUID
	Limit          int
	Offset         int
}

type AuditLogResponse struct {
	ID        int64         `json:"id"`
	Actor     *UserResponse `json:"actor,omitempty"`
	Action    string        `json:"action"`
	OldStatus string        `json:"old_status,omitempty"`
	NewStatus string        `json:"new_status,omitempty"`
	Metadata  entity.JSON   `json:"metadata"`
	CreatedAt time.Time     `json:"created_at"`
}

type AuditLogListResponse struct {
	Logs   []AuditLogResponse `json:"logs"`
	Total  int64              `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// ConsultationHistoryResponse is the audit trail of one consultation, oldest first
type ConsultationHistoryResponse struct {
	ConsultationID uuid.UUID          `json:"consultation_id"`
	Entries        []AuditLogResponse `json:"entries"`
}

type UserResponse struct {
	ID       uuid.UUID  `json:"id"`
	Email    string     `json:"email"`
	FullName string     `json:"full_name"`
	Role     string     `json:"role"`
	ClinicID *uuid.UUID `json:"clinic_id,omitempty"`
}
