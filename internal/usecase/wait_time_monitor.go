package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clinic-backend/config"
	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/domain/repository"
	"clinic-backend/internal/infrastructure/database"
	"clinic-backend/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Job names handled by the wait-time monitor
const (
	JobWaitCheckBedAssignment = "wait-check:bed-assignment"
	JobWaitCheckBed           = "wait-check:bed"
	JobWaitCheckAcupuncture   = "wait-check:acupuncture"
	JobWaitCheckNeedleRemoval = "wait-check:needle-removal"
	JobWaitCheckGetMedicine   = "wait-check:get-medicine"
	JobAcupunctureFinished    = "acupuncture:finished"
)

// WaitTimeRule is one row of the monitor table. A rule without a
// notification type is an automatic transition instead of a check.
type WaitTimeRule struct {
	JobName      string
	Watched      entity.ConsultationStatus
	Delay        time.Duration
	Notification entity.NotificationType
	Title        string
}

// WaitCheckPayload is what a monitor job carries through the queue
type WaitCheckPayload struct {
	ConsultationID uuid.UUID                 `json:"consultation_id"`
	WatchedStatus  entity.ConsultationStatus `json:"watched_status"`
}

// AcupunctureFinisher performs the automatic end of the needling span
type AcupunctureFinisher interface {
	FinishAcupuncture(ctx context.Context, id uuid.UUID) error
}

// DefaultWaitTimeRules builds the rule table from the configured delays
func DefaultWaitTimeRules(cfg config.MonitorConfig) []WaitTimeRule {
	return []WaitTimeRule{
		{JobWaitCheckBedAssignment, entity.StatusWaitingForBedAssignment, cfg.BedAssignmentDelay, entity.NotificationAbnormalBedAssignmentWaitTime, "Abnormal bed assignment wait time"},
		{JobWaitCheckBed, entity.StatusWaitingForAcupunctureTreatment, cfg.BedDelay, entity.NotificationAbnormalBedWaitTime, "Abnormal bed wait time"},
		{JobWaitCheckAcupuncture, entity.StatusUndergoingAcupunctureTreatment, cfg.AcupunctureDelay, entity.NotificationAbnormalAcupunctureTime, "Abnormal acupuncture treatment time"},
		{JobWaitCheckNeedleRemoval, entity.StatusWaitingForNeedleRemoval, cfg.NeedleRemovalDelay, entity.NotificationAbnormalNeedleRemovalWaitTime, "Abnormal needle removal wait time"},
		{JobWaitCheckGetMedicine, entity.StatusWaitingForGetMedicine, cfg.GetMedicineDelay, entity.NotificationAbnormalGetMedicineWaitTime, "Abnormal medicine pickup wait time"},
		{JobAcupunctureFinished, entity.StatusUndergoingAcupunctureTreatment, entity.AcupunctureDuration, "", ""},
	}
}

// WaitTimeMonitor schedules a delayed check for every monitored status and,
// when the check fires, alerts the clinic admin if the consultation is
// still in that status. Scheduled checks are never cancelled; a check that
// finds the consultation has moved on does nothing.
type WaitTimeMonitor interface {
	WaitTimeScheduler
	Register(finisher AcupunctureFinisher)
}

type waitTimeMonitor struct {
	db                  database.Transactor
	log                 *logrus.Logger
	queue               service.JobQueue
	rules               []WaitTimeRule
	consultationRepo    repository.ConsultationRepository
	timeSlotRepo        repository.TimeSlotRepository
	userRepo            repository.UserRepository
	notificationService service.NotificationService
}

func NewWaitTimeMonitor(
	db database.Transactor,
	log *logrus.Logger,
	queue service.JobQueue,
	rules []WaitTimeRule,
	consultationRepo repository.ConsultationRepository,
	timeSlotRepo repository.TimeSlotRepository,
	userRepo repository.UserRepository,
	notificationService service.NotificationService,
) WaitTimeMonitor {
	return &waitTimeMonitor{
		db:                  db,
		log:                 log,
		queue:               queue,
		rules:               rules,
		consultationRepo:    consultationRepo,
		timeSlotRepo:        timeSlotRepo,
		userRepo:            userRepo,
		notificationService: notificationService,
	}
}

// Register binds every rule to its queue handler
func (m *waitTimeMonitor) Register(finisher AcupunctureFinisher) {
	for _, rule := range m.rules {
		if rule.Notification == "" {
			m.queue.ProcessJob(rule.JobName, func(ctx context.Context, job *service.Job) error {
				return m.handleAutoFinish(ctx, job, finisher)
			})
			continue
		}
		m.queue.ProcessJob(rule.JobName, func(ctx context.Context, job *service.Job) error {
			return m.handleWaitCheck(ctx, job, rule)
		})
	}
}

// Schedule enqueues every rule watching the status the consultation is in now
func (m *waitTimeMonitor) Schedule(ctx context.Context, consultation *entity.Consultation) error {
	var errs []error
	for _, rule := range m.rules {
		if rule.Watched != consultation.Status {
			continue
		}

		payload := WaitCheckPayload{ConsultationID: consultation.ID, WatchedStatus: rule.Watched}
		handle, err := m.queue.AddJob(ctx, rule.JobName, payload, rule.Delay)
		if err != nil {
			m.log.Errorf("Failed to schedule %s for consultation %s: %+v", rule.JobName, consultation.ID, err)
			errs = append(errs, err)
			continue
		}
		m.log.Debugf("Scheduled %s for consultation %s at %s", rule.JobName, consultation.ID, handle.DueAt.Format(time.RFC3339))
	}
	return errors.Join(errs...)
}

func (m *waitTimeMonitor) handleWaitCheck(ctx context.Context, job *service.Job, rule WaitTimeRule) error {
	var payload WaitCheckPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", rule.JobName, err)
	}

	db := m.db.DB(ctx)

	consultation, err := m.consultationRepo.FindByID(db, payload.ConsultationID)
	if err != nil {
		return err
	}
	if consultation == nil {
		return ErrConsultationNotFound
	}

	if consultation.Status != payload.WatchedStatus {
		m.log.Infof("Consultation %s left %s before %s fired, now %s", consultation.ID, payload.WatchedStatus, rule.JobName, consultation.Status)
		return nil
	}

	slot, err := m.timeSlotRepo.FindByID(db, consultation.TimeSlotID)
	if err != nil {
		return err
	}
	if slot == nil {
		return ErrTimeSlotNotFound
	}

	admin, err := m.userRepo.FindClinicAdmin(db, slot.ClinicID)
	if err != nil {
		return err
	}
	if admin == nil {
		return ErrAdminNotFound
	}

	_, err = m.notificationService.CreateNotification(ctx, service.NotificationRequest{
		Title:       rule.Title,
		Content:     fmt.Sprintf("Consultation #%d has been in %s for more than %s", consultation.ConsultationNumber, rule.Watched, rule.Delay),
		Type:        rule.Notification,
		ReferenceID: &consultation.ID,
		UserID:      admin.ID,
	})
	return err
}

func (m *waitTimeMonitor) handleAutoFinish(ctx context.Context, job *service.Job, finisher AcupunctureFinisher) error {
	var payload WaitCheckPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", JobAcupunctureFinished, err)
	}

	err := finisher.FinishAcupuncture(ctx, payload.ConsultationID)
	if errors.Is(err, entity.ErrInvalidTransition) {
		m.log.Infof("Consultation %s already left %s, skipping auto finish", payload.ConsultationID, payload.WatchedStatus)
		return nil
	}
	return err
}
