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

type MedicineUsecase interface {
	DispenseMedicine(ctx context.Context, id uuid.UUID) (*dto.ConsultationResponse, error)
}

type medicineUsecase struct {
	*consultationEngine
}

func NewMedicineUsecase(
	db database.Transactor,
	log *logrus.Logger,
	clk clock.Clock,
	locker service.ConsultationLocker,
	dispatcher service.Dispatcher,
	consultationRepo repository.ConsultationRepository,
	auditService service.AuditService,
	scheduler WaitTimeScheduler,
	publisher RoomPublisher,
) MedicineUsecase {
	return &medicineUsecase{
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

// DispenseMedicine hands over the medicine and checks the patient out
func (u *medicineUsecase) DispenseMedicine(ctx context.Context, id uuid.UUID) (*dto.ConsultationResponse, error) {
	consultation, err := u.transit(ctx, id, transition{
		event: entity.EventDispenseMedicine,
		check: func(c *entity.Consultation) error {
			if c.MedicineTreatment == nil {
				return ErrMedicineTreatmentNotFound
			}
			return nil
		},
		apply: func(c *entity.Consultation, next entity.ConsultationStatus, now time.Time) {
			c.UpdateToGetMedicine(entity.GetMedicinePayload{Status: next, GetMedicineAt: now, CheckOutAt: now})
		},
	})
	if err != nil {
		return nil, err
	}
	return converter.ConsultationToResponse(consultation), nil
}
