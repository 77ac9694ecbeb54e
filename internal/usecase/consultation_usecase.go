package usecase

import (
	"context"
	"errors"
	"fmt"
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
	"gorm.io/gorm"
)

var (
	ErrConsultationNotFound         = errors.New("consultation not found")
	ErrTimeSlotNotFound             = errors.New("time slot not found")
	ErrPatientNotFound              = errors.New("patient not found")
	ErrDoctorNotFound               = errors.New("doctor not found")
	ErrAdminNotFound                = errors.New("clinic admin not found")
	ErrAcupunctureTreatmentNotFound = errors.New("acupuncture treatment not found")
	ErrMedicineTreatmentNotFound    = errors.New("medicine treatment not found")
	ErrInvalidSource                = errors.New("invalid consultation source")
)

type ConsultationUsecase interface {
	CreateConsultation(ctx context.Context, req *dto.CreateConsultationRequest) (*dto.ConsultationResponse, error)
	GetConsultation(ctx context.Context, id uuid.UUID) (*dto.ConsultationResponse, error)
	StartConsultation(ctx context.Context, id uuid.UUID) (*dto.ConsultationResponse, error)
	RouteToAcupuncture(ctx context.Context, id uuid.UUID) (*dto.ConsultationResponse, error)
	RouteToMedicine(ctx context.Context, id uuid.UUID) (*dto.ConsultationResponse, error)
	FinishConsultation(ctx context.Context, id uuid.UUID) (*dto.ConsultationResponse, error)
	CheckOut(ctx context.Context, id uuid.UUID) (*dto.ConsultationResponse, error)
	OnsiteCancel(ctx context.Context, id uuid.UUID, req *dto.OnsiteCancelRequest) (*dto.ConsultationResponse, error)
}

type consultationUsecase struct {
	*consultationEngine
	timeSlotRepo        repository.TimeSlotRepository
	patientRepo         repository.PatientRepository
	userRepo            repository.UserRepository
	notificationService service.NotificationService
}

func NewConsultationUsecase(
	db database.Transactor,
	log *logrus.Logger,
	clk clock.Clock,
	locker service.ConsultationLocker,
	dispatcher service.Dispatcher,
	consultationRepo repository.ConsultationRepository,
	timeSlotRepo repository.TimeSlotRepository,
	patientRepo repository.PatientRepository,
	userRepo repository.UserRepository,
	auditService service.AuditService,
	notificationService service.NotificationService,
	scheduler WaitTimeScheduler,
	publisher RoomPublisher,
) ConsultationUsecase {
	return &consultationUsecase{
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
		timeSlotRepo:        timeSlotRepo,
		patientRepo:         patientRepo,
		userRepo:            userRepo,
		notificationService: notificationService,
	}
}

// CreateConsultation checks a patient in to a time slot.
//
// Onsite registrations take odd numbers and online bookings even numbers, so
// both sequences grow independently within one slot. Creation is serialised
// per time slot to keep numbers unique.
func (u *consultationUsecase) CreateConsultation(ctx context.Context, req *dto.CreateConsultationRequest) (*dto.ConsultationResponse, error) {
	source := entity.ConsultationSource(req.Source)
	if source != entity.SourceOnsiteRegistration && source != entity.SourceOnlineBooking {
		return nil, ErrInvalidSource
	}

	unlock := u.locker.Lock(req.TimeSlotID)
	defer unlock()

	var consultation *entity.Consultation
	err := u.db.WithinTransaction(ctx, func(tx *gorm.DB) error {
		slot, err := u.timeSlotRepo.FindByID(tx, req.TimeSlotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return ErrTimeSlotNotFound
		}

		patient, err := u.patientRepo.FindByID(tx, req.PatientID)
		if err != nil {
			return err
		}
		if patient == nil {
			return ErrPatientNotFound
		}

		number, err := u.nextConsultationNumber(tx, slot.ID, source)
		if err != nil {
			return err
		}

		firstVisit, err := u.consultationRepo.IsFirstTimeVisit(tx, patient.ID)
		if err != nil {
			return err
		}

		consultation = entity.NewConsultation(patient.ID, slot.ID, source, number, u.clock.Now(), firstVisit)
		if err := u.consultationRepo.Create(tx, consultation); err != nil {
			return err
		}
		consultation.Patient = *patient

		return u.auditService.LogCreate(ctx, tx, actorFromContext(ctx), consultation)
	})
	if err != nil {
		if !isClientError(err) {
			u.log.Warnf("Failed to create consultation for patient %s: %+v", req.PatientID, err)
		}
		return nil, err
	}

	u.log.Infof("Consultation created: id=%s, slot=%s, number=%d, source=%s", consultation.ID, consultation.TimeSlotID, consultation.ConsultationNumber, source)

	timeSlotID := consultation.TimeSlotID
	u.dispatcher.Dispatch(ctx, "publish-room-update", func(ctx context.Context) error {
		return u.publisher.PublishRoomUpdate(ctx, timeSlotID)
	})

	return converter.ConsultationToResponse(consultation), nil
}

func (u *consultationUsecase) nextConsultationNumber(tx *gorm.DB, timeSlotID uuid.UUID, source entity.ConsultationSource) (int, error) {
	if source == entity.SourceOnsiteRegistration {
		latest, err := u.consultationRepo.GetLatestOddConsultationNumber(tx, timeSlotID)
		if err != nil {
			return 0, fmt.Errorf("latest odd consultation number: %w", err)
		}
		return latest + 2, nil
	}

	latest, err := u.consultationRepo.GetLatestEvenConsultationNumber(tx, timeSlotID)
	if err != nil {
		return 0, fmt.Errorf("latest even consultation number: %w", err)
	}
	return latest + 2, nil
}

func (u *consultationUsecase) GetConsultation(ctx context.Context, id uuid.UUID) (*dto.ConsultationResponse, error) {
	consultation, err := u.consultationRepo.FindByID(u.db.DB(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find consultation %s: %+v", id, err)
		return nil, err
	}
	if consultation == nil {
		return nil, ErrConsultationNotFound
	}

	return converter.ConsultationToResponse(consultation), nil
}

func (u *consultationUsecase) StartConsultation(ctx context.Context, id uuid.UUID) (*dto.ConsultationResponse, error) {
	consultation, err := u.transit(ctx, id, transition{
		event: entity.EventStartConsultation,
		apply: func(c *entity.Consultation, next entity.ConsultationStatus, now time.Time) {
			c.UpdateToInConsultation(entity.StartConsultationPayload{Status: next, StartAt: now})
		},
	})
	if err != nil {
		return nil, err
	}
	return converter.ConsultationToResponse(consultation), nil
}

func (u *consultationUsecase) RouteToAcupuncture(ctx context.Context, id uuid.UUID) (*dto.ConsultationResponse, error) {
	consultation, err := u.transit(ctx, id, transition{
		event: entity.EventRouteToAcupuncture,
		apply: func(c *entity.Consultation, next entity.ConsultationStatus, _ time.Time) {
			c.AttachAcupunctureTreatment(entity.StatusPayload{Status: next})
		},
	})
	if err != nil {
		return nil, err
	}
	return converter.ConsultationToResponse(consultation), nil
}

// RouteToMedicine attaches a medicine record; the status is left untouched
func (u *consultationUsecase) RouteToMedicine(ctx context.Context, id uuid.UUID) (*dto.ConsultationResponse, error) {
	consultation, err := u.transit(ctx, id, transition{
		event: entity.EventRouteToMedicine,
		apply: func(c *entity.Consultation, next entity.ConsultationStatus, _ time.Time) {
			c.AttachMedicineTreatment(entity.StatusPayload{Status: next})
		},
	})
	if err != nil {
		return nil, err
	}
	return converter.ConsultationToResponse(consultation), nil
}

// FinishConsultation ends the doctor's part of a visit that needs no acupuncture
func (u *consultationUsecase) FinishConsultation(ctx context.Context, id uuid.UUID) (*dto.ConsultationResponse, error) {
	consultation, err := u.transit(ctx, id, transition{
		event: entity.EventFinishConsultation,
		apply: func(c *entity.Consultation, next entity.ConsultationStatus, now time.Time) {
			payload := entity.FinishConsultationPayload{Status: next, EndAt: now}
			if next == entity.StatusCheckOut {
				payload.CheckOutAt = &now
			}
			c.UpdateToFinishConsultation(payload)
		},
	})
	if err != nil {
		return nil, err
	}
	return converter.ConsultationToResponse(consultation), nil
}

// CheckOut is idempotent: checking out twice keeps the first checkout time
func (u *consultationUsecase) CheckOut(ctx context.Context, id uuid.UUID) (*dto.ConsultationResponse, error) {
	consultation, err := u.transit(ctx, id, transition{
		event: entity.EventCheckOut,
		apply: func(c *entity.Consultation, next entity.ConsultationStatus, now time.Time) {
			checkOutAt := now
			if c.Status == entity.StatusCheckOut && c.CheckOutAt != nil {
				checkOutAt = *c.CheckOutAt
			}
			c.UpdateToCheckOutAt(entity.CheckOutPayload{Status: next, CheckOutAt: checkOutAt})
		},
	})
	if err != nil {
		return nil, err
	}
	return converter.ConsultationToResponse(consultation), nil
}

// OnsiteCancel cancels a visit and tells the slot's doctor and the clinic admin.
// Both recipients are resolved before anything is written.
func (u *consultationUsecase) OnsiteCancel(ctx context.Context, id uuid.UUID, req *dto.OnsiteCancelRequest) (*dto.ConsultationResponse, error) {
	db := u.db.DB(ctx)

	current, err := u.consultationRepo.FindByID(db, id)
	if err != nil {
		u.log.Warnf("Failed to find consultation %s: %+v", id, err)
		return nil, err
	}
	if current == nil {
		return nil, ErrConsultationNotFound
	}

	slot, err := u.timeSlotRepo.FindByID(db, current.TimeSlotID)
	if err != nil {
		u.log.Warnf("Failed to find time slot %s: %+v", current.TimeSlotID, err)
		return nil, err
	}
	if slot == nil {
		return nil, ErrTimeSlotNotFound
	}

	doctor, err := u.userRepo.FindByID(db, slot.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", slot.DoctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	admin, err := u.userRepo.FindClinicAdmin(db, slot.ClinicID)
	if err != nil {
		u.log.Warnf("Failed to find admin of clinic %s: %+v", slot.ClinicID, err)
		return nil, err
	}
	if admin == nil {
		return nil, ErrAdminNotFound
	}

	consultation, err := u.transit(ctx, id, transition{
		event: entity.EventOnsiteCancel,
		apply: func(c *entity.Consultation, next entity.ConsultationStatus, now time.Time) {
			c.UpdateToOnsiteCancel(entity.OnsiteCancelPayload{
				Status:             next,
				OnsiteCancelAt:     now,
				OnsiteCancelReason: req.Reason,
			})
		},
	})
	if err != nil {
		return nil, err
	}

	for _, recipient := range []uuid.UUID{doctor.ID, admin.ID} {
		notification := service.NotificationRequest{
			Title:       "Onsite cancellation",
			Content:     fmt.Sprintf("Consultation #%d was cancelled onsite: %s", consultation.ConsultationNumber, req.Reason),
			Type:        entity.NotificationOnsiteCancellation,
			ReferenceID: &consultation.ID,
			UserID:      recipient,
		}
		u.dispatcher.Dispatch(ctx, "notify-onsite-cancel", func(ctx context.Context) error {
			_, err := u.notificationService.CreateNotification(ctx, notification)
			return err
		})
	}

	return converter.ConsultationToResponse(consultation), nil
}
