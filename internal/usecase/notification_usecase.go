package usecase

import (
	"context"
	"errors"

	"clinic-backend/internal/converter"
	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/delivery/http/middleware"
	"clinic-backend/internal/domain/repository"
	"clinic-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationUsecase interface {
	GetMyNotifications(ctx context.Context, limit, offset int) (*dto.NotificationListResponse, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
}

type notificationUsecase struct {
	db               database.Transactor
	log              *logrus.Logger
	notificationRepo repository.NotificationRepository
}

func NewNotificationUsecase(
	db database.Transactor,
	log *logrus.Logger,
	notificationRepo repository.NotificationRepository,
) NotificationUsecase {
	return &notificationUsecase{
		db:               db,
		log:              log,
		notificationRepo: notificationRepo,
	}
}

func (u *notificationUsecase) GetMyNotifications(ctx context.Context, limit, offset int) (*dto.NotificationListResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	notifications, total, err := u.notificationRepo.FindByUserID(u.db.DB(ctx), userID, limit, offset)
	if err != nil {
		u.log.Warnf("Failed to find notifications for user %s: %+v", userID, err)
		return nil, err
	}

	return &dto.NotificationListResponse{
		Notifications: converter.NotificationsToResponses(notifications),
		Total:         total,
	}, nil
}

// MarkAsRead only touches notifications addressed to the caller
func (u *notificationUsecase) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return errors.New("user not found in context")
	}

	affected, err := u.notificationRepo.MarkAsRead(u.db.DB(ctx), id, userID)
	if err != nil {
		u.log.Warnf("Failed to mark notification %s as read: %+v", id, err)
		return err
	}
	if affected == 0 {
		return ErrNotificationNotFound
	}

	return nil
}
