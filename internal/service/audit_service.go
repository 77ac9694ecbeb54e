package service

import (
	"context"

	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AuditService interface {
	LogCreate(ctx context.Context, tx *gorm.DB, actorID *uuid.UUID, consultation *entity.Consultation) error
	LogTransition(ctx context.Context, tx *gorm.DB, actorID *uuid.UUID, event entity.ConsultationEvent, consultationID uuid.UUID, from, to entity.ConsultationStatus) error
}

type auditService struct {
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
}

func NewAuditService(log *logrus.Logger, auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{
		log:       log,
		auditRepo: auditRepo,
	}
}

// LogCreate records a check-in, inside the caller's transaction
func (s *auditService) LogCreate(ctx context.Context, tx *gorm.DB, actorID *uuid.UUID, consultation *entity.Consultation) error {
	metadata := entity.JSON{
		"entity":    entity.AuditEntityConsultation,
		"entity_id": consultation.ID.String(),
		"old_value": nil,
		"new_value": entity.JSON{
			"status":              consultation.Status,
			"source":              consultation.Source,
			"consultation_number": consultation.ConsultationNumber,
			"time_slot_id":        consultation.TimeSlotID.String(),
		},
	}

	return s.create(tx, actorID, entity.AuditActionConsultationCreate, metadata)
}

// LogTransition records a status change with the old and new status
func (s *auditService) LogTransition(ctx context.Context, tx *gorm.DB, actorID *uuid.UUID, event entity.ConsultationEvent, consultationID uuid.UUID, from, to entity.ConsultationStatus) error {
	metadata := entity.JSON{
		"entity":    entity.AuditEntityConsultation,
		"entity_id": consultationID.String(),
		"old_value": entity.JSON{"status": from},
		"new_value": entity.JSON{"status": to},
	}

	return s.create(tx, actorID, entity.AuditActionFor(event), metadata)
}

func (s *auditService) create(tx *gorm.DB, actorID *uuid.UUID, action string, metadata entity.JSON) error {
	auditLog := &entity.AuditLog{
		UserID:   actorID,
		Action:   action,
		Metadata: metadata,
	}

	if err := s.auditRepo.Create(tx, auditLog); err != nil {
		s.log.Warnf("Failed to create audit log: %+v", err)
		return err
	}

	return nil
}
