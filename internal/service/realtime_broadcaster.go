package service

import (
	"context"
	"fmt"

	"clinic-backend/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Events pushed to dashboards
const (
	EventUpdatedWaitingCounts = "updated_waiting_counts"
	EventUpdatedRealTimeList  = "updated_real_time_list"
	EventNotification         = "notification"
)

// Transport delivers one event to whoever is registered under key
type Transport interface {
	SendToUser(key string, event string, payload any) error
}

func RoomKey(clinicID uuid.UUID, roomNumber string) string {
	return fmt.Sprintf("clinic:%s:room:%s", clinicID, roomNumber)
}

func UserKey(userID uuid.UUID) string {
	return fmt.Sprintf("user:%s", userID)
}

type WaitingCountsUpdate struct {
	ClinicID   uuid.UUID          `json:"clinic_id"`
	RoomNumber string             `json:"room_number"`
	Counts     entity.CountBucket `json:"counts"`
}

type RealTimeListUpdate struct {
	ClinicID   uuid.UUID            `json:"clinic_id"`
	RoomNumber string               `json:"room_number"`
	Rows       []entity.RealTimeRow `json:"rows"`
	TotalCount int                  `json:"total_count"`
}

// RealtimeBroadcaster never returns transport errors; they are logged here
type RealtimeBroadcaster interface {
	SendUpdatedWaitingCounts(ctx context.Context, update WaitingCountsUpdate)
	SendUpdatedRealTimeList(ctx context.Context, update RealTimeListUpdate)
	SendToDoctor(ctx context.Context, userID uuid.UUID, event string, payload any)
}

type realtimeBroadcaster struct {
	log       *logrus.Logger
	transport Transport
}

func NewRealtimeBroadcaster(log *logrus.Logger, transport Transport) RealtimeBroadcaster {
	return &realtimeBroadcaster{
		log:       log,
		transport: transport,
	}
}

func (b *realtimeBroadcaster) SendUpdatedWaitingCounts(ctx context.Context, update WaitingCountsUpdate) {
	b.send(RoomKey(update.ClinicID, update.RoomNumber), EventUpdatedWaitingCounts, update)
}

func (b *realtimeBroadcaster) SendUpdatedRealTimeList(ctx context.Context, update RealTimeListUpdate) {
	if update.Rows == nil {
		update.Rows = []entity.RealTimeRow{}
	}
	b.send(RoomKey(update.ClinicID, update.RoomNumber), EventUpdatedRealTimeList, update)
}

func (b *realtimeBroadcaster) SendToDoctor(ctx context.Context, userID uuid.UUID, event string, payload any) {
	b.send(UserKey(userID), event, payload)
}

func (b *realtimeBroadcaster) send(key, event string, payload any) {
	if err := b.transport.SendToUser(key, event, payload); err != nil {
		b.log.Errorf("Failed to send %s to %s: %+v", event, key, err)
	}
}
