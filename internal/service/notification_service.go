package service

import (
	"context"
	"fmt"

	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/domain/repository"
	"clinic-backend/internal/infrastructure/database"
	"clinic-backend/pkg/fcm"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type NotificationRequest struct {
	Title       string
	Content     string
	Type        entity.NotificationType
	ReferenceID *uuid.UUID
	UserID      uuid.UUID
}

// NotificationService persists a notification, then pushes it to the
// recipient's device and open dashboard. Only persistence can fail the call.
type NotificationService interface {
	CreateNotification(ctx context.Context, req NotificationRequest) (*entity.Notification, error)
}

type notificationService struct {
	db               database.Transactor
	log              *logrus.Logger
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	pusher           fcm.Pusher
	transport        Transport
}

func NewNotificationService(
	db database.Transactor,
	log *logrus.Logger,
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	pusher fcm.Pusher,
	transport Transport,
) NotificationService {
	return &notificationService{
		db:               db,
		log:              log,
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		pusher:           pusher,
		transport:        transport,
	}
}

func (s *notificationService) CreateNotification(ctx context.Context, req NotificationRequest) (*entity.Notification, error) {
	notification := &entity.Notification{
		ID:          uuid.New(),
		UserID:      req.UserID,
		Title:       req.Title,
		Content:     req.Content,
		Type:        req.Type,
		ReferenceID: req.ReferenceID,
	}

	if err := s.notificationRepo.Create(s.db.DB(ctx), notification); err != nil {
		s.log.Warnf("Failed to create notification for user %s: %+v", req.UserID, err)
		return nil, fmt.Errorf("create notification: %w", err)
	}

	if err := s.transport.SendToUser(UserKey(req.UserID), EventNotification, notification); err != nil {
		s.log.Errorf("Failed to deliver notification %s over websocket: %+v", notification.ID, err)
	}

	s.push(ctx, notification)

	return notification, nil
}

func (s *notificationService) push(ctx context.Context, notification *entity.Notification) {
	user, err := s.userRepo.FindByID(s.db.DB(ctx), notification.UserID)
	if err != nil {
		s.log.Warnf("Failed to find user %s for push: %+v", notification.UserID, err)
		return
	}
	if user == nil || !user.CanReceivePush() {
		return
	}

	data := map[string]string{
		"notification_id": notification.ID.String(),
		"type":            string(notification.Type),
	}
	if notification.ReferenceID != nil {
		data["reference_id"] = notification.ReferenceID.String()
	}

	if err := s.pusher.Push(ctx, *user.FCMToken, notification.Title, notification.Content, data); err != nil {
		s.log.Errorf("Failed to push notification %s: %+v", notification.ID, err)
	}
}
