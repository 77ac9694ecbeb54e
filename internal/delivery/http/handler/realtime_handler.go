package handler

import (
	"errors"
	"net/http"
	"strconv"

	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/usecase"
	"clinic-backend/pkg/response"

	"github.com/google/uuid"
)

type RealTimeHandler struct {
	realTimeUsecase usecase.RealTimeUsecase
}

func NewRealTimeHandler(realTimeUsecase usecase.RealTimeUsecase) *RealTimeHandler {
	return &RealTimeHandler{
		realTimeUsecase: realTimeUsecase,
	}
}

func (h *RealTimeHandler) GetCounts(w http.ResponseWriter, r *http.Request) {
	query, err := parseRealTimeQuery(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	counts, err := h.realTimeUsecase.GetRealTimeCounts(r.Context(), query)
	if err != nil {
		writeRealTimeError(w, err, "Failed to get real-time counts")
		return
	}

	response.Success(w, http.StatusOK, "Real-time counts retrieved successfully", counts)
}

func (h *RealTimeHandler) GetList(w http.ResponseWriter, r *http.Request) {
	query, err := parseRealTimeQuery(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	list, err := h.realTimeUsecase.GetRealTimeList(r.Context(), query)
	if err != nil {
		writeRealTimeError(w, err, "Failed to get real-time list")
		return
	}

	response.SuccessWithMeta(w, http.StatusOK, "Real-time list retrieved successfully", list, response.NewMeta(list.Limit, list.Offset, int64(list.Total)))
}

func parseRealTimeQuery(r *http.Request) (dto.RealTimeQuery, error) {
	q := r.URL.Query()
	query := dto.RealTimeQuery{RoomNumber: q.Get("roomNumber")}

	if raw := q.Get("clinicId"); raw != "" {
		clinicID, err := uuid.Parse(raw)
		if err != nil {
			return query, errors.New("invalid clinicId")
		}
		query.ClinicID = &clinicID
	}

	limit, offset, err := parsePaging(r)
	if err != nil {
		return query, err
	}
	query.Limit = limit
	query.Offset = offset
	return query, nil
}

// parsePaging reads optional limit/offset; zero limit means the server default
func parsePaging(r *http.Request) (int, int, error) {
	var limit, offset int
	var err error

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			return 0, 0, errors.New("invalid limit")
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil || offset < 0 {
			return 0, 0, errors.New("invalid offset")
		}
	}
	return limit, offset, nil
}

func writeRealTimeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, usecase.ErrClinicRoomRequired):
		response.BadRequest(w, "clinicId and roomNumber are required")
	case errors.Is(err, usecase.ErrRoleNotAllowed), errors.Is(err, usecase.ErrOtherClinic):
		response.Forbidden(w, "")
	default:
		response.InternalServerError(w, fallback)
	}
}
