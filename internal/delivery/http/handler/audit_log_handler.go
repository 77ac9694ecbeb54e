package handler

import (
	"errors"
	"net/http"
	"strconv"

	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/usecase"
	"clinic-backend/pkg/response"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type AuditLogHandler struct {
	auditLogUsecase usecase.AuditLogUsecase
}

func NewAuditLogHandler(auditLogUsecase usecase.AuditLogUsecase) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogUsecase: auditLogUsecase,
	}
}

func (h *AuditLogHandler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	auditLogID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid audit log ID")
		return
	}

	auditLog, err := h.auditLogUsecase.GetAuditLog(r.Context(), auditLogID)
	if err != nil {
		if errors.Is(err, usecase.ErrAuditLogNotFound) {
			response.NotFound(w, "Audit log not found")
			return
		}
		response.InternalServerError(w, "Failed to get audit log")
		return
	}

	response.Success(w, http.StatusOK, "Audit log retrieved successfully", auditLog)
}

// GetAllAuditLogs accepts ?action=consultation.check_out and ?consultationId=
func (h *AuditLogHandler) GetAllAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePaging(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	query := dto.AuditLogQuery{Action: r.URL.Query().Get("action"), Limit: limit, Offset: offset}
	if raw := r.URL.Query().Get("consultationId"); raw != "" {
		consultationID, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "invalid consultationId")
			return
		}
		query.ConsultationID = &consultationID
	}

	auditLogs, err := h.auditLogUsecase.GetAllAuditLogs(r.Context(), query)
	if err != nil {
		response.InternalServerError(w, "Failed to get audit logs")
		return
	}

	response.SuccessWithMeta(w, http.StatusOK, "Audit logs retrieved successfully", auditLogs, response.NewMeta(auditLogs.Limit, auditLogs.Offset, auditLogs.Total))
}

func (h *AuditLogHandler) GetConsultationHistory(w http.ResponseWriter, r *http.Request) {
	consultationID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.BadRequest(w, "Invalid consultation ID")
		return
	}

	history, err := h.auditLogUsecase.GetConsultationHistory(r.Context(), consultationID)
	if err != nil {
		if errors.Is(err, usecase.ErrConsultationNotFound) {
			response.NotFound(w, "Consultation not found")
			return
		}
		response.InternalServerError(w, "Failed to get consultation history")
		return
	}

	response.Success(w, http.StatusOK, "Consultation history retrieved successfully", history)
}
