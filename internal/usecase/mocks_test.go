package usecase

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/domain/repository"
	"clinic-backend/internal/infrastructure/database"
	"clinic-backend/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// --- fakeTransactor ---
var _ database.Transactor = fakeTransactor{}

// fakeTransactor runs units of work without a database. Repositories under
// test ignore the *gorm.DB they receive.
type fakeTransactor struct{}

func (fakeTransactor) DB(ctx context.Context) *gorm.DB { return nil }

func (fakeTransactor) WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// --- memConsultationRepository ---
var _ repository.ConsultationRepository = (*memConsultationRepository)(nil)

// memConsultationRepository stores copies, so callers only see writes that went through Update
type memConsultationRepository struct {
	mu            sync.Mutex
	consultations map[uuid.UUID]*entity.Consultation
	patients      map[uuid.UUID]entity.Patient

	LatestOdd   int
	LatestEven  int
	FirstVisit  bool
	UpdateCalls int
	UpdateErr   error

	// BeforeUpdate sees the stored row just before the version check
	BeforeUpdate func(stored *entity.Consultation)
}

func newMemConsultationRepository() *memConsultationRepository {
	return &memConsultationRepository{
		consultations: make(map[uuid.UUID]*entity.Consultation),
		patients:      make(map[uuid.UUID]entity.Patient),
		FirstVisit:    true,
	}
}

func (r *memConsultationRepository) Put(c *entity.Consultation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consultations[c.ID] = cloneConsultation(c)
}

func (r *memConsultationRepository) Get(id uuid.UUID) *entity.Consultation {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.consultations[id]
	if !ok {
		return nil
	}
	return cloneConsultation(c)
}

func (r *memConsultationRepository) Create(db *gorm.DB, consultation *entity.Consultation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if consultation.ConsultationNumber%2 == 1 && consultation.ConsultationNumber > r.LatestOdd {
		r.LatestOdd = consultation.ConsultationNumber
	}
	if consultation.ConsultationNumber%2 == 0 && consultation.ConsultationNumber > r.LatestEven {
		r.LatestEven = consultation.ConsultationNumber
	}
	r.consultations[consultation.ID] = cloneConsultation(consultation)
	return nil
}

func (r *memConsultationRepository) Update(db *gorm.DB, consultation *entity.Consultation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.UpdateCalls++
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	stored, ok := r.consultations[consultation.ID]
	if !ok {
		return errors.New("consultation not stored")
	}
	if r.BeforeUpdate != nil {
		r.BeforeUpdate(stored)
	}
	if stored.Version != consultation.Version {
		return repository.ErrConsultationConflict
	}
	consultation.Version++
	r.consultations[consultation.ID] = cloneConsultation(consultation)
	return nil
}

func (r *memConsultationRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Consultation, error) {
	return r.Get(id), nil
}

func (r *memConsultationRepository) GetLatestOddConsultationNumber(db *gorm.DB, timeSlotID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.LatestOdd, nil
}

func (r *memConsultationRepository) GetLatestEvenConsultationNumber(db *gorm.DB, timeSlotID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.LatestEven, nil
}

func (r *memConsultationRepository) IsFirstTimeVisit(db *gorm.DB, patientID uuid.UUID) (bool, error) {
	return r.FirstVisit, nil
}

func (r *memConsultationRepository) rows(timeSlotIDs []uuid.UUID) []entity.RealTimeRow {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := make(map[uuid.UUID]bool, len(timeSlotIDs))
	for _, id := range timeSlotIDs {
		wanted[id] = true
	}

	var rows []entity.RealTimeRow
	for _, c := range r.consultations {
		if !wanted[c.TimeSlotID] {
			continue
		}
		rows = append(rows, entity.RealTimeRow{
			ConsultationID:     c.ID,
			ConsultationNumber: c.ConsultationNumber,
			TimeSlotID:         c.TimeSlotID,
			PatientID:          c.PatientID,
			Status:             c.Status,
			CheckInAt:          c.CheckInAt,
			IsFirstTimeVisit:   c.IsFirstTimeVisit,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ConsultationNumber < rows[j].ConsultationNumber })
	return rows
}

func (r *memConsultationRepository) GetRealTimeCounts(db *gorm.DB, timeSlotIDs []uuid.UUID) (entity.CountBucket, error) {
	return entity.NewRealTimeSnapshot(r.rows(timeSlotIDs), 0, 0).Counts, nil
}

func (r *memConsultationRepository) GetRealTimeLists(db *gorm.DB, timeSlotIDs []uuid.UUID, limit, offset int) ([]entity.RealTimeRow, int, error) {
	snapshot := entity.NewRealTimeSnapshot(r.rows(timeSlotIDs), limit, offset)
	return snapshot.Rows, snapshot.TotalCount, nil
}

func (r *memConsultationRepository) GetRealTimeSnapshot(db *gorm.DB, timeSlotIDs []uuid.UUID, limit, offset int) (*entity.RealTimeSnapshot, error) {
	return entity.NewRealTimeSnapshot(r.rows(timeSlotIDs), limit, offset), nil
}

func cloneConsultation(c *entity.Consultation) *entity.Consultation {
	out := *c
	if c.AcupunctureTreatment != nil {
		t := *c.AcupunctureTreatment
		out.AcupunctureTreatment = &t
	}
	if c.MedicineTreatment != nil {
		t := *c.MedicineTreatment
		out.MedicineTreatment = &t
	}
	return &out
}

// --- MockTimeSlotRepository ---
var _ repository.TimeSlotRepository = (*MockTimeSlotRepository)(nil)

type MockTimeSlotRepository struct {
	FindByIDFunc               func(id uuid.UUID) (*entity.TimeSlot, error)
	FindActiveByDoctorFunc     func(doctorID uuid.UUID, now time.Time) (*entity.TimeSlot, error)
	FindActiveByClinicRoomFunc func(clinicID uuid.UUID, roomNumber string, now time.Time) ([]entity.TimeSlot, error)
}

func (m *MockTimeSlotRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.TimeSlot, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(id)
	}
	return nil, nil
}

func (m *MockTimeSlotRepository) FindActiveByDoctor(db *gorm.DB, doctorID uuid.UUID, now time.Time) (*entity.TimeSlot, error) {
	if m.FindActiveByDoctorFunc != nil {
		return m.FindActiveByDoctorFunc(doctorID, now)
	}
	return nil, nil
}

func (m *MockTimeSlotRepository) FindActiveByClinicRoom(db *gorm.DB, clinicID uuid.UUID, roomNumber string, now time.Time) ([]entity.TimeSlot, error) {
	if m.FindActiveByClinicRoomFunc != nil {
		return m.FindActiveByClinicRoomFunc(clinicID, roomNumber, now)
	}
	return nil, nil
}

// --- MockPatientRepository ---
var _ repository.PatientRepository = (*MockPatientRepository)(nil)

type MockPatientRepository struct {
	FindByIDFunc func(id uuid.UUID) (*entity.Patient, error)
}

func (m *MockPatientRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Patient, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(id)
	}
	return nil, nil
}

// --- MockUserRepository ---
var _ repository.UserRepository = (*MockUserRepository)(nil)

type MockUserRepository struct {
	FindByIDFunc        func(id uuid.UUID) (*entity.User, error)
	FindClinicAdminFunc func(clinicID uuid.UUID) (*entity.User, error)
}

func (m *MockUserRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(id)
	}
	return nil, nil
}

func (m *MockUserRepository) FindClinicAdmin(db *gorm.DB, clinicID uuid.UUID) (*entity.User, error) {
	if m.FindClinicAdminFunc != nil {
		return m.FindClinicAdminFunc(clinicID)
	}
	return nil, nil
}

// --- recordingAuditService ---
var _ service.AuditService = (*recordingAuditService)(nil)

type auditEntry struct {
	Event          entity.ConsultationEvent
	ConsultationID uuid.UUID
	From, To       entity.ConsultationStatus
}

type recordingAuditService struct {
	mu      sync.Mutex
	Creates []uuid.UUID
	Entries []auditEntry
}

func (a *recordingAuditService) LogCreate(ctx context.Context, tx *gorm.DB, actorID *uuid.UUID, consultation *entity.Consultation) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Creates = append(a.Creates, consultation.ID)
	return nil
}

func (a *recordingAuditService) LogTransition(ctx context.Context, tx *gorm.DB, actorID *uuid.UUID, event entity.ConsultationEvent, consultationID uuid.UUID, from, to entity.ConsultationStatus) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Entries = append(a.Entries, auditEntry{Event: event, ConsultationID: consultationID, From: from, To: to})
	return nil
}

// --- recordingNotificationService ---
var _ service.NotificationService = (*recordingNotificationService)(nil)

type recordingNotificationService struct {
	mu       sync.Mutex
	Requests []service.NotificationRequest
}

func (n *recordingNotificationService) CreateNotification(ctx context.Context, req service.NotificationRequest) (*entity.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Requests = append(n.Requests, req)
	return &entity.Notification{
		ID:          uuid.New(),
		UserID:      req.UserID,
		Title:       req.Title,
		Content:     req.Content,
		Type:        req.Type,
		ReferenceID: req.ReferenceID,
	}, nil
}

func (n *recordingNotificationService) OfType(t entity.NotificationType) []service.NotificationRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []service.NotificationRequest
	for _, req := range n.Requests {
		if req.Type == t {
			out = append(out, req)
		}
	}
	return out
}

// --- recordingScheduler / recordingPublisher ---
var (
	_ WaitTimeScheduler = (*recordingScheduler)(nil)
	_ RoomPublisher     = (*recordingPublisher)(nil)
)

type recordingScheduler struct {
	mu       sync.Mutex
	Statuses []entity.ConsultationStatus
}

func (s *recordingScheduler) Schedule(ctx context.Context, consultation *entity.Consultation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Statuses = append(s.Statuses, consultation.Status)
	return nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	Slots []uuid.UUID
}

func (p *recordingPublisher) PublishRoomUpdate(ctx context.Context, timeSlotID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Slots = append(p.Slots, timeSlotID)
	return nil
}

func (p *recordingPublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Slots)
}

// --- MockBroadcaster ---
var _ service.RealtimeBroadcaster = (*MockBroadcaster)(nil)

type MockBroadcaster struct {
	mu         sync.Mutex
	RoomCounts []service.WaitingCountsUpdate
	RoomLists  []service.RealTimeListUpdate
	ToDoctor   map[string]int
}

func (b *MockBroadcaster) SendUpdatedWaitingCounts(ctx context.Context, update service.WaitingCountsUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.RoomCounts = append(b.RoomCounts, update)
}

func (b *MockBroadcaster) SendUpdatedRealTimeList(ctx context.Context, update service.RealTimeListUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.RoomLists = append(b.RoomLists, update)
}

func (b *MockBroadcaster) SendToDoctor(ctx context.Context, userID uuid.UUID, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ToDoctor == nil {
		b.ToDoctor = make(map[string]int)
	}
	b.ToDoctor[event]++
}
