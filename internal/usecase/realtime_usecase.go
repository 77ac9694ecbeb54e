package usecase

import (
	"context"
	"errors"

	"clinic-backend/internal/converter"
	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/delivery/http/middleware"
	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/domain/repository"
	"clinic-backend/internal/infrastructure/database"
	"clinic-backend/internal/service"
	"clinic-backend/pkg/clock"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxRealTimePageSize = 100

var (
	ErrClinicRoomRequired = errors.New("clinic and room number are required")
	ErrRoleNotAllowed     = errors.New("role cannot view real-time data")
	ErrOtherClinic        = errors.New("cannot view another clinic")
)

type RealTimeUsecase interface {
	RoomPublisher
	GetRealTimeCounts(ctx context.Context, query dto.RealTimeQuery) (*dto.RealTimeCountsResponse, error)
	GetRealTimeList(ctx context.Context, query dto.RealTimeQuery) (*dto.RealTimeListResponse, error)
}

type realTimeUsecase struct {
	db               database.Transactor
	log              *logrus.Logger
	clock            clock.Clock
	pageSize         int
	consultationRepo repository.ConsultationRepository
	timeSlotRepo     repository.TimeSlotRepository
	broadcaster      service.RealtimeBroadcaster
}

func NewRealTimeUsecase(
	db database.Transactor,
	log *logrus.Logger,
	clk clock.Clock,
	pageSize int,
	consultationRepo repository.ConsultationRepository,
	timeSlotRepo repository.TimeSlotRepository,
	broadcaster service.RealtimeBroadcaster,
) RealTimeUsecase {
	if pageSize <= 0 || pageSize > maxRealTimePageSize {
		pageSize = 20
	}

	return &realTimeUsecase{
		db:               db,
		log:              log,
		clock:            clk,
		pageSize:         pageSize,
		consultationRepo: consultationRepo,
		timeSlotRepo:     timeSlotRepo,
		broadcaster:      broadcaster,
	}
}

// GetRealTimeCounts returns all-zero counts, not an error, when no slot is active
func (u *realTimeUsecase) GetRealTimeCounts(ctx context.Context, query dto.RealTimeQuery) (*dto.RealTimeCountsResponse, error) {
	slotIDs, err := u.resolveTimeSlots(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(slotIDs) == 0 {
		return converter.CountBucketToResponse(slotIDs, entity.CountBucket{}), nil
	}

	counts, err := u.consultationRepo.GetRealTimeCounts(u.db.DB(ctx), slotIDs)
	if err != nil {
		u.log.Warnf("Failed to get real-time counts: %+v", err)
		return nil, err
	}

	return converter.CountBucketToResponse(slotIDs, counts), nil
}

func (u *realTimeUsecase) GetRealTimeList(ctx context.Context, query dto.RealTimeQuery) (*dto.RealTimeListResponse, error) {
	limit, offset := u.window(query)

	slotIDs, err := u.resolveTimeSlots(ctx, query)
	if err != nil {
		return nil, err
	}

	response := &dto.RealTimeListResponse{
		TimeSlotIDs: slotIDs,
		Rows:        []dto.RealTimeRowResponse{},
		Limit:       limit,
		Offset:      offset,
	}
	if len(slotIDs) == 0 {
		return response, nil
	}

	rows, total, err := u.consultationRepo.GetRealTimeLists(u.db.DB(ctx), slotIDs, limit, offset)
	if err != nil {
		u.log.Warnf("Failed to get real-time list: %+v", err)
		return nil, err
	}

	response.Rows = converter.RealTimeRowsToResponses(rows)
	response.Total = total
	return response, nil
}

// PublishRoomUpdate recomputes the room of timeSlotID and pushes it to the
// room dashboard and to the slot's doctor
func (u *realTimeUsecase) PublishRoomUpdate(ctx context.Context, timeSlotID uuid.UUID) error {
	db := u.db.DB(ctx)

	slot, err := u.timeSlotRepo.FindByID(db, timeSlotID)
	if err != nil {
		return err
	}
	if slot == nil {
		return ErrTimeSlotNotFound
	}

	active, err := u.timeSlotRepo.FindActiveByClinicRoom(db, slot.ClinicID, slot.RoomNumber, u.clock.Now())
	if err != nil {
		return err
	}
	slotIDs := []uuid.UUID{slot.ID}
	for _, s := range active {
		if s.ID != slot.ID {
			slotIDs = append(slotIDs, s.ID)
		}
	}

	room, err := u.consultationRepo.GetRealTimeSnapshot(db, slotIDs, u.pageSize, 0)
	if err != nil {
		return err
	}

	u.broadcaster.SendUpdatedWaitingCounts(ctx, service.WaitingCountsUpdate{
		ClinicID:   slot.ClinicID,
		RoomNumber: slot.RoomNumber,
		Counts:     room.Counts,
	})
	u.broadcaster.SendUpdatedRealTimeList(ctx, service.RealTimeListUpdate{
		ClinicID:   slot.ClinicID,
		RoomNumber: slot.RoomNumber,
		Rows:       room.Rows,
		TotalCount: room.TotalCount,
	})

	own := room
	if len(slotIDs) > 1 {
		own, err = u.consultationRepo.GetRealTimeSnapshot(db, []uuid.UUID{slot.ID}, u.pageSize, 0)
		if err != nil {
			return err
		}
	}
	u.broadcaster.SendToDoctor(ctx, slot.DoctorID, service.EventUpdatedWaitingCounts, converter.CountBucketToResponse([]uuid.UUID{slot.ID}, own.Counts))
	u.broadcaster.SendToDoctor(ctx, slot.DoctorID, service.EventUpdatedRealTimeList, converter.RealTimeRowsToResponses(own.Rows))

	return nil
}

// resolveTimeSlots picks the slots the caller may see: a doctor their own
// active slot, an admin every active slot of one room in their clinic
func (u *realTimeUsecase) resolveTimeSlots(ctx context.Context, query dto.RealTimeQuery) ([]uuid.UUID, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}
	roleID, _ := middleware.GetRoleIDFromContext(ctx)
	now := u.clock.Now()
	db := u.db.DB(ctx)

	switch roleID {
	case entity.RoleIDDoctor:
		slot, err := u.timeSlotRepo.FindActiveByDoctor(db, userID, now)
		if err != nil {
			u.log.Warnf("Failed to find active time slot of doctor %s: %+v", userID, err)
			return nil, err
		}
		if slot == nil {
			return []uuid.UUID{}, nil
		}
		return []uuid.UUID{slot.ID}, nil

	case entity.RoleIDAdmin:
		// an admin bound to a clinic only sees that clinic
		clinicID, ok := middleware.GetClinicIDFromContext(ctx)
		if query.ClinicID != nil {
			if ok && *query.ClinicID != clinicID {
				return nil, ErrOtherClinic
			}
			clinicID, ok = *query.ClinicID, true
		}
		if !ok || query.RoomNumber == "" {
			return nil, ErrClinicRoomRequired
		}

		slots, err := u.timeSlotRepo.FindActiveByClinicRoom(db, clinicID, query.RoomNumber, now)
		if err != nil {
			u.log.Warnf("Failed to find active time slots of clinic %s room %s: %+v", clinicID, query.RoomNumber, err)
			return nil, err
		}
		ids := make([]uuid.UUID, len(slots))
		for i, s := range slots {
			ids[i] = s.ID
		}
		return ids, nil
	}

	return nil, ErrRoleNotAllowed
}

func (u *realTimeUsecase) window(query dto.RealTimeQuery) (int, int) {
	limit := query.Limit
	if limit <= 0 {
		limit = u.pageSize
	}
	if limit > maxRealTimePageSize {
		limit = maxRealTimePageSize
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
