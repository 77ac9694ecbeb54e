package converter

import (
	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/domain/entity"
)

func NotificationsToResponses(notifications []entity.Notification) []dto.NotificationResponse {
	responses := make([]dto.NotificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = dto.NotificationResponse{
			ID:          n.ID,
			Title:       n.Title,
			Content:     n.Content,
			Type:        string(n.Type),
			ReferenceID: n.ReferenceID,
			IsRead:      n.IsRead,
			CreatedAt:   n.CreatedAt,
		}
	}
	return responses
}
