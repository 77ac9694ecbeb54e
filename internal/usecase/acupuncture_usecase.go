package usecase

import (
	"context"
	"time"

	"clinic-backend/internal/converter"
	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/domain/repository"
	"clinic-backend/internal/infrastructure/database"
	"clinic-backend/internal/service"
	"clinic-backend/pkg/clock"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type AcupunctureUsecase interface {
	AssignBed(ctx context.Context, id uuid.UUID, req *dto.AssignBedRequest) (*dto.ConsultationResponse, error)
	StartAcupuncture(ctx context.Context, id uuid.UUID, req *dto.StartAcupunctureRequest) (*dto.ConsultationResponse, error)
	FinishAcupuncture(ctx context.Context, id uuid.UUID) error
	RemoveNeedle(ctx context.Context, id uuid.UUID) (*dto.ConsultationResponse, error)
}

type acupunctureUsecase struct {
	*consultationEngine
}

func NewAcupunctureUsecase(
	db database.Transactor,
	log *logrus.Logger,
	clk clock.Clock,
	locker service.ConsultationLocker,
	dispatcher service.Dispatcher,
	consultationRepo repository.ConsultationRepository,
	auditService service.AuditService,
	scheduler WaitTimeScheduler,
	publisher RoomPublisher,
) AcupunctureUsecase {
	return &acupunctureUsecase{
		consultationEngine: &consultationEngine{
			db:               db,
			log:              log,
			clock:            clk,
			locker:           locker,
			dispatcher:       dispatcher,
			consultationRepo: consultationRepo,
			auditService:     auditService,
			scheduler:        scheduler,
			publisher:        publisher,
		},
	}
}

func requireAcupuncture(c *entity.Consultation) error {
	if c.AcupunctureTreatment == nil {
		return ErrAcupunctureTreatmentNotFound
	}
	return nil
}

func (u *acupunctureUsecase) AssignBed(ctx context.Context, id uuid.UUID, req *dto.AssignBedRequest) (*dto.ConsultationResponse, error) {
	consultation, err := u.transit(ctx, id, transition{
		event: entity.EventAssignBed,
		check: requireAcupuncture,
		apply: func(c *entity.Consultation, next entity.ConsultationStatus, now time.Time) {
			c.UpdateToAssignBed(entity.AssignBedPayload{Status: next, BedID: req.BedID, AssignBedAt: now})
		},
	})
	if err != nil {
		return nil, err
	}
	return converter.ConsultationToResponse(consultation), nil
}

// StartAcupuncture inserts the needles; the needling span ends AcupunctureDuration later
func (u *acupunctureUsecase) StartAcupuncture(ctx context.Context, id uuid.UUID, req *dto.StartAcupunctureRequest) (*dto.ConsultationResponse, error) {
	consultation, err := u.transit(ctx, id, transition{
		event: entity.EventStartAcupuncture,
		check: requireAcupuncture,
		apply: func(c *entity.Consultation, next entity.ConsultationStatus, now time.Time) {
			c.UpdateToStartAcupuncture(entity.StartAcupuncturePayload{Status: next, StartAt: now, NeedleCounts: req.NeedleCounts})
		},
	})
	if err != nil {
		return nil, err
	}
	return converter.ConsultationToResponse(consultation), nil
}

// FinishAcupuncture is run by the job worker when the needling span is over
func (u *acupunctureUsecase) FinishAcupuncture(ctx context.Context, id uuid.UUID) error {
	_, err := u.transit(ctx, id, transition{
		event: entity.EventAcupunctureFinished,
		check: requireAcupuncture,
		apply: func(c *entity.Consultation, next entity.ConsultationStatus, _ time.Time) {
			c.UpdateToNeedleRemovalWait(entity.StatusPayload{Status: next})
		},
	})
	return err
}

// RemoveNeedle always advances: to medicine pickup when medicine was prescribed, else to checkout
func (u *acupunctureUsecase) RemoveNeedle(ctx context.Context, id uuid.UUID) (*dto.ConsultationResponse, error) {
	consultation, err := u.transit(ctx, id, transition{
		event: entity.EventRemoveNeedle,
		check: requireAcupuncture,
		apply: func(c *entity.Consultation, next entity.ConsultationStatus, now time.Time) {
			payload := entity.RemoveNeedlePayload{Status: next, RemoveNeedleAt: now}
			if next == entity.StatusCheckOut {
				payload.CheckOutAt = &now
			}
			c.UpdateToRemoveNeedle(payload)
		},
	})
	if err != nil {
		return nil, err
	}
	return converter.ConsultationToResponse(consultation), nil
}
