package usecase

import (
	"context"
	"errors"
	"time"

	"clinic-backend/internal/delivery/http/middleware"
	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/domain/repository"
	"clinic-backend/internal/infrastructure/database"
	"clinic-backend/internal/service"
	"clinic-backend/pkg/clock"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// WaitTimeScheduler enqueues the delayed checks for the status a consultation just entered
type WaitTimeScheduler interface {
	Schedule(ctx context.Context, consultation *entity.Consultation) error
}

// RoomPublisher pushes fresh counts and lists for the room of a time slot
type RoomPublisher interface {
	PublishRoomUpdate(ctx context.Context, timeSlotID uuid.UUID) error
}

// transition describes one state-machine event applied by consultationEngine.transit
type transition struct {
	event entity.ConsultationEvent
	// check runs on the loaded aggregate before the state machine is consulted
	check func(c *entity.Consultation) error
	apply func(c *entity.Consultation, next entity.ConsultationStatus, now time.Time)
}

// consultationEngine is shared by every orchestrator. It runs
// read, validate, mutate, persist and audit inside one transaction and
// fires the side channels after commit.
type consultationEngine struct {
	db               database.Transactor
	log              *logrus.Logger
	clock            clock.Clock
	locker           service.ConsultationLocker
	dispatcher       service.Dispatcher
	consultationRepo repository.ConsultationRepository
	auditService     service.AuditService
	scheduler        WaitTimeScheduler
	publisher        RoomPublisher
}

func (e *consultationEngine) transit(ctx context.Context, id uuid.UUID, t transition) (*entity.Consultation, error) {
	unlock := e.locker.Lock(id)
	defer unlock()

	var (
		consultation *entity.Consultation
		from         entity.ConsultationStatus
	)

	err := e.db.WithinTransaction(ctx, func(tx *gorm.DB) error {
		c, err := e.consultationRepo.FindByID(tx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrConsultationNotFound
		}

		if t.check != nil {
			if err := t.check(c); err != nil {
				return err
			}
		}

		next, err := entity.NextStatus(c.Status, t.event, c.TransitionContext())
		if err != nil {
			return err
		}

		from = c.Status
		now := e.clock.Now()
		t.apply(c, next, now)
		c.UpdatedAt = now

		if err := e.consultationRepo.Update(tx, c); err != nil {
			return err
		}

		if err := e.auditService.LogTransition(ctx, tx, actorFromContext(ctx), t.event, c.ID, from, next); err != nil {
			return err
		}

		consultation = c
		return nil
	})
	if err != nil {
		if !isClientError(err) {
			e.log.Warnf("Failed to apply %s to consultation %s: %+v", t.event, id, err)
		}
		return nil, err
	}

	e.log.Infof("Consultation %s: %s -> %s (%s)", id, from, consultation.Status, t.event)

	if from != consultation.Status {
		e.afterCommit(ctx, consultation)
	}

	return consultation, nil
}

// afterCommit hands the side channels to the dispatcher; their failures never reach the caller
func (e *consultationEngine) afterCommit(ctx context.Context, consultation *entity.Consultation) {
	e.dispatcher.Dispatch(ctx, "schedule-wait-check", func(ctx context.Context) error {
		return e.scheduler.Schedule(ctx, consultation)
	})

	timeSlotID := consultation.TimeSlotID
	e.dispatcher.Dispatch(ctx, "publish-room-update", func(ctx context.Context) error {
		return e.publisher.PublishRoomUpdate(ctx, timeSlotID)
	})
}

func actorFromContext(ctx context.Context) *uuid.UUID {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil
	}
	return &userID
}

// isClientError reports errors caused by the request rather than the system
func isClientError(err error) bool {
	return errors.Is(err, ErrConsultationNotFound) ||
		errors.Is(err, ErrAcupunctureTreatmentNotFound) ||
		errors.Is(err, ErrMedicineTreatmentNotFound) ||
		errors.Is(err, ErrTimeSlotNotFound) ||
		errors.Is(err, ErrPatientNotFound) ||
		errors.Is(err, ErrDoctorNotFound) ||
		errors.Is(err, ErrAdminNotFound) ||
		errors.Is(err, entity.ErrInvalidTransition) ||
		errors.Is(err, repository.ErrConsultationConflict)
}
