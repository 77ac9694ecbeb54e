package usecase

import (
	"context"
	"testing"
	"time"

	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/service"
	"clinic-backend/pkg/clock"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// flowFixture wires the three orchestrators over in-memory repositories
type flowFixture struct {
	clock         *clock.Manual
	repo          *memConsultationRepository
	slot          *entity.TimeSlot
	patient       *entity.Patient
	doctor        *entity.User
	admin         *entity.User
	audit         *recordingAuditService
	notifications *recordingNotificationService
	publisher     *recordingPublisher

	consultations ConsultationUsecase
	acupuncture   AcupunctureUsecase
	medicine      MedicineUsecase
}

// newFlowFixture uses scheduler when given, a recordingScheduler otherwise
func newFlowFixture(t *testing.T, scheduler WaitTimeScheduler) *flowFixture {
	t.Helper()

	log := newTestLogger()
	clinicID := uuid.New()

	f := &flowFixture{
		clock:         clock.NewManual(testStart),
		repo:          newMemConsultationRepository(),
		patient:       &entity.Patient{ID: uuid.New(), FullName: "Lin Mei"},
		doctor:        &entity.User{ID: uuid.New(), RoleID: entity.RoleIDDoctor, ClinicID: &clinicID},
		admin:         &entity.User{ID: uuid.New(), RoleID: entity.RoleIDAdmin, ClinicID: &clinicID},
		audit:         &recordingAuditService{},
		notifications: &recordingNotificationService{},
		publisher:     &recordingPublisher{},
	}
	f.slot = &entity.TimeSlot{
		ID:         uuid.New(),
		DoctorID:   f.doctor.ID,
		ClinicID:   clinicID,
		RoomNumber: "101",
		StartAt:    testStart.Add(-time.Hour),
		EndAt:      testStart.Add(3 * time.Hour),
	}

	if scheduler == nil {
		scheduler = &recordingScheduler{}
	}

	locker := service.NewConsultationLocker(log)
	t.Cleanup(locker.Stop)
	dispatcher := service.SyncDispatcher{Log: log}

	f.consultations = NewConsultationUsecase(
		fakeTransactor{}, log, f.clock, locker, dispatcher,
		f.repo, f.timeSlotRepo(), f.patientRepo(), f.userRepo(),
		f.audit, f.notifications, scheduler, f.publisher,
	)
	f.acupuncture = NewAcupunctureUsecase(fakeTransactor{}, log, f.clock, locker, dispatcher, f.repo, f.audit, scheduler, f.publisher)
	f.medicine = NewMedicineUsecase(fakeTransactor{}, log, f.clock, locker, dispatcher, f.repo, f.audit, scheduler, f.publisher)

	return f
}

func (f *flowFixture) timeSlotRepo() *MockTimeSlotRepository {
	return &MockTimeSlotRepository{
		FindByIDFunc: func(id uuid.UUID) (*entity.TimeSlot, error) {
			if id == f.slot.ID {
				return f.slot, nil
			}
			return nil, nil
		},
	}
}

func (f *flowFixture) patientRepo() *MockPatientRepository {
	return &MockPatientRepository{
		FindByIDFunc: func(id uuid.UUID) (*entity.Patient, error) {
			if id == f.patient.ID {
				return f.patient, nil
			}
			return nil, nil
		},
	}
}

func (f *flowFixture) userRepo() *MockUserRepository {
	return &MockUserRepository{
		FindByIDFunc: func(id uuid.UUID) (*entity.User, error) {
			switch id {
			case f.doctor.ID:
				return f.doctor, nil
			case f.admin.ID:
				return f.admin, nil
			}
			return nil, nil
		},
		FindClinicAdminFunc: func(clinicID uuid.UUID) (*entity.User, error) {
			if f.admin != nil && f.admin.ClinicID != nil && *f.admin.ClinicID == clinicID {
				return f.admin, nil
			}
			return nil, nil
		},
	}
}

// checkIn creates an onsite consultation in the fixture's slot
func (f *flowFixture) checkIn(t *testing.T) uuid.UUID {
	t.Helper()

	resp, err := f.consultations.CreateConsultation(context.Background(), &dto.CreateConsultationRequest{
		PatientID:  f.patient.ID,
		TimeSlotID: f.slot.ID,
		Source:     string(entity.SourceOnsiteRegistration),
	})
	require.NoError(t, err)
	return resp.ID
}

// toBedWait moves a fresh consultation to WAITING_FOR_BED_ASSIGNMENT
func (f *flowFixture) toBedWait(t *testing.T) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	id := f.checkIn(t)
	_, err := f.consultations.StartConsultation(ctx, id)
	require.NoError(t, err)
	_, err = f.consultations.RouteToAcupuncture(ctx, id)
	require.NoError(t, err)
	return id
}
