package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/domain/repository"
	"clinic-backend/internal/usecase"
	"clinic-backend/pkg/response"
	"clinic-backend/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type ConsultationHandler struct {
	consultationUsecase usecase.ConsultationUsecase
	acupunctureUsecase  usecase.AcupunctureUsecase
	medicineUsecase     usecase.MedicineUsecase
	validator           *validator.CustomValidator
}

func NewConsultationHandler(
	consultationUsecase usecase.ConsultationUsecase,
	acupunctureUsecase usecase.AcupunctureUsecase,
	medicineUsecase usecase.MedicineUsecase,
	validator *validator.CustomValidator,
) *ConsultationHandler {
	return &ConsultationHandler{
		consultationUsecase: consultationUsecase,
		acupunctureUsecase:  acupunctureUsecase,
		medicineUsecase:     medicineUsecase,
		validator:           validator,
	}
}

func (h *ConsultationHandler) CreateConsultation(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateConsultationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	consultation, err := h.consultationUsecase.CreateConsultation(r.Context(), &req)
	if err != nil {
		writeConsultationError(w, err, "Failed to create consultation")
		return
	}

	response.Success(w, http.StatusCreated, "Consultation created successfully", consultation)
}

func (h *ConsultationHandler) GetConsultation(w http.ResponseWriter, r *http.Request) {
	id, ok := consultationID(w, r)
	if !ok {
		return
	}

	consultation, err := h.consultationUsecase.GetConsultation(r.Context(), id)
	if err != nil {
		writeConsultationError(w, err, "Failed to get consultation")
		return
	}

	response.Success(w, http.StatusOK, "Consultation retrieved successfully", consultation)
}

func (h *ConsultationHandler) StartConsultation(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "Consultation started", h.consultationUsecase.StartConsultation)
}

func (h *ConsultationHandler) RouteToAcupuncture(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "Consultation routed to acupuncture", h.consultationUsecase.RouteToAcupuncture)
}

func (h *ConsultationHandler) RouteToMedicine(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "Consultation routed to medicine", h.consultationUsecase.RouteToMedicine)
}

func (h *ConsultationHandler) FinishConsultation(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "Consultation finished", h.consultationUsecase.FinishConsultation)
}

func (h *ConsultationHandler) RemoveNeedle(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "Needles removed", h.acupunctureUsecase.RemoveNeedle)
}

func (h *ConsultationHandler) DispenseMedicine(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "Medicine dispensed", h.medicineUsecase.DispenseMedicine)
}

func (h *ConsultationHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "Consultation checked out", h.consultationUsecase.CheckOut)
}

func (h *ConsultationHandler) AssignBed(w http.ResponseWriter, r *http.Request) {
	id, ok := consultationID(w, r)
	if !ok {
		return
	}

	var req dto.AssignBedRequest
	if !h.decode(w, r, &req) {
		return
	}

	consultation, err := h.acupunctureUsecase.AssignBed(r.Context(), id, &req)
	if err != nil {
		writeConsultationError(w, err, "Failed to assign bed")
		return
	}

	response.Success(w, http.StatusOK, "Bed assigned", consultation)
}

func (h *ConsultationHandler) StartAcupuncture(w http.ResponseWriter, r *http.Request) {
	id, ok := consultationID(w, r)
	if !ok {
		return
	}

	var req dto.StartAcupunctureRequest
	if !h.decode(w, r, &req) {
		return
	}

	consultation, err := h.acupunctureUsecase.StartAcupuncture(r.Context(), id, &req)
	if err != nil {
		writeConsultationError(w, err, "Failed to start acupuncture")
		return
	}

	response.Success(w, http.StatusOK, "Acupuncture started", consultation)
}

func (h *ConsultationHandler) OnsiteCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := consultationID(w, r)
	if !ok {
		return
	}

	var req dto.OnsiteCancelRequest
	if !h.decode(w, r, &req) {
		return
	}

	consultation, err := h.consultationUsecase.OnsiteCancel(r.Context(), id, &req)
	if err != nil {
		writeConsultationError(w, err, "Failed to cancel consultation")
		return
	}

	response.Success(w, http.StatusOK, "Consultation cancelled", consultation)
}

type transitionFunc func(ctx context.Context, id uuid.UUID) (*dto.ConsultationResponse, error)

func (h *ConsultationHandler) runTransition(w http.ResponseWriter, r *http.Request, message string, fn transitionFunc) {
	id, ok := consultationID(w, r)
	if !ok {
		return
	}

	consultation, err := fn(r.Context(), id)
	if err != nil {
		writeConsultationError(w, err, "Failed to update consultation")
		return
	}

	response.Success(w, http.StatusOK, message, consultation)
}

func (h *ConsultationHandler) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return false
	}

	if err := h.validator.Validate(req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return false
	}
	return true
}

func consultationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid consultation ID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func writeConsultationError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, usecase.ErrConsultationNotFound):
		response.NotFound(w, "Consultation not found")
	case errors.Is(err, usecase.ErrTimeSlotNotFound):
		response.NotFound(w, "Time slot not found")
	case errors.Is(err, usecase.ErrPatientNotFound):
		response.NotFound(w, "Patient not found")
	case errors.Is(err, usecase.ErrDoctorNotFound):
		response.NotFound(w, "Doctor not found")
	case errors.Is(err, usecase.ErrAdminNotFound):
		response.NotFound(w, "Clinic admin not found")
	case errors.Is(err, usecase.ErrAcupunctureTreatmentNotFound):
		response.NotFound(w, "Acupuncture treatment not found")
	case errors.Is(err, usecase.ErrMedicineTreatmentNotFound):
		response.NotFound(w, "Medicine treatment not found")
	case errors.Is(err, usecase.ErrInvalidSource):
		response.BadRequest(w, "Invalid consultation source")
	case errors.Is(err, entity.ErrInvalidTransition):
		response.Conflict(w, err.Error())
	case errors.Is(err, repository.ErrConsultationConflict):
		response.Conflict(w, "Consultation was modified by another request, please retry")
	default:
		response.InternalServerError(w, fallback)
	}
}
