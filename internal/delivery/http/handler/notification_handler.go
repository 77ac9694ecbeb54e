package handler

import (
	"net/http"

	"clinic-backend/internal/usecase"
	"clinic-backend/pkg/response"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const defaultNotificationPageSize = 20

type NotificationHandler struct {
	notificationUsecase usecase.NotificationUsecase
}

func NewNotificationHandler(notificationUsecase usecase.NotificationUsecase) *NotificationHandler {
	return &NotificationHandler{
		notificationUsecase: notificationUsecase,
	}
}

func (h *NotificationHandler) GetMyNotifications(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePaging(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if limit == 0 {
		limit = defaultNotificationPageSize
	}

	notifications, err := h.notificationUsecase.GetMyNotifications(r.Context(), limit, offset)
	if err != nil {
		response.InternalServerError(w, "Failed to get notifications")
		return
	}

	response.SuccessWithMeta(w, http.StatusOK, "Notifications retrieved successfully", notifications, response.NewMeta(limit, offset, notifications.Total))
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid notification ID", nil)
		return
	}

	if err := h.notificationUsecase.MarkAsRead(r.Context(), id); err != nil {
		if err == usecase.ErrNotificationNotFound {
			response.NotFound(w, "Notification not found")
			return
		}
		response.InternalServerError(w, "Failed to mark notification as read")
		return
	}

	response.Success(w, http.StatusOK, "Notification marked as read", nil)
}
