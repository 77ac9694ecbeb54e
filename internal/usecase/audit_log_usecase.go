package usecase

import (
	"context"
	"errors"

	"clinic-backend/internal/converter"
	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/domain/repository"
	"clinic-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrAuditLogNotFound = errors.New("audit log not found")
)

const defaultAuditLogPageSize = 50

type AuditLogUsecase interface {
	GetAllAuditLogs(ctx context.Context, query dto.AuditLogQuery) (*dto.AuditLogListResponse, error)
	GetAuditLog(ctx context.Context, id int64) (*dto.AuditLogResponse, error)
	GetConsultationHistory(ctx context.Context, consultationID uuid.UUID) (*dto.ConsultationHistoryResponse, error)
}

type auditLogUsecase struct {
	db               database.Transactor
	log              *logrus.Logger
	auditLogRepo     repository.AuditLogRepository
	consultationRepo repository.ConsultationRepository
}

func NewAuditLogUsecase(
	db database.Transactor,
	log *logrus.Logger,
	auditLogRepo repository.AuditLogRepository,
	consultationRepo repository.ConsultationRepository,
) AuditLogUsecase {
	return &auditLogUsecase{
		db:               db,
		log:              log,
		auditLogRepo:     auditLogRepo,
		consultationRepo: consultationRepo,
	}
}

func (u *auditLogUsecase) GetAllAuditLogs(ctx context.Context, query dto.AuditLogQuery) (*dto.AuditLogListResponse, error) {
	filter := entity.AuditLogFilter{Action: query.Action}
	if query.ConsultationID != nil {
		filter.EntityID = query.ConsultationID.String()
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultAuditLogPageSize
	}

	logs, total, err := u.auditLogRepo.FindAll(u.db.DB(ctx), filter, limit, query.Offset)
	if err != nil {
		u.log.Warnf("Failed to find audit logs: %+v", err)
		return nil, err
	}

	return &dto.AuditLogListResponse{
		Logs:   converter.AuditLogsToResponses(logs),
		Total:  total,
		Limit:  limit,
		Offset: query.Offset,
	}, nil
}

func (u *auditLogUsecase) GetAuditLog(ctx context.Context, id int64) (*dto.AuditLogResponse, error) {
	auditLog, err := u.auditLogRepo.FindByID(u.db.DB(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find audit log %d: %+v", id, err)
		return nil, err
	}
	if auditLog == nil {
		return nil, ErrAuditLogNotFound
	}

	return converter.AuditLogToResponse(auditLog), nil
}

// GetConsultationHistory lists every recorded step of one consultation, check-in first
func (u *auditLogUsecase) GetConsultationHistory(ctx context.Context, consultationID uuid.UUID) (*dto.ConsultationHistoryResponse, error) {
	db := u.db.DB(ctx)

	consultation, err := u.consultationRepo.FindByID(db, consultationID)
	if err != nil {
		u.log.Warnf("Failed to find consultation %s: %+v", consultationID, err)
		return nil, err
	}
	if consultation == nil {
		return nil, ErrConsultationNotFound
	}

	logs, err := u.auditLogRepo.FindByEntityID(db, consultationID.String())
	if err != nil {
		u.log.Warnf("Failed to find history of consultation %s: %+v", consultationID, err)
		return nil, err
	}

	return &dto.ConsultationHistoryResponse{
		ConsultationID: consultationID,
		Entries:        converter.AuditLogsToResponses(logs),
	}, nil
}
