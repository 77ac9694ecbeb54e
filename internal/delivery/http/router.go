package http

import (
	"errors"
	"fmt"
	"net/http"

	"clinic-backend/internal/delivery/http/handler"
	"clinic-backend/internal/delivery/http/middleware"
	"clinic-backend/internal/delivery/websocket"
	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Router struct {
	router              *mux.Router
	consultationHandler *handler.ConsultationHandler
	realTimeHandler     *handler.RealTimeHandler
	notificationHandler *handler.NotificationHandler
	auditLogHandler     *handler.AuditLogHandler
	wsHandler           *websocket.Handler
	authMiddleware      *middleware.AuthMiddleware
	corsMiddleware      *middleware.CORSMiddleware
	rateLimiter         *middleware.RateLimiter
}

func NewRouter(
	log *logrus.Logger,
	consultationHandler *handler.ConsultationHandler,
	realTimeHandler *handler.RealTimeHandler,
	notificationHandler *handler.NotificationHandler,
	auditLogHandler *handler.AuditLogHandler,
	hub *websocket.Hub,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
	rateLimiter *middleware.RateLimiter,
) *Router {
	return &Router{
		router:              mux.NewRouter(),
		consultationHandler: consultationHandler,
		realTimeHandler:     realTimeHandler,
		notificationHandler: notificationHandler,
		auditLogHandler:     auditLogHandler,
		wsHandler:           websocket.NewHandler(hub, log, SubscriptionKey),
		authMiddleware:      authMiddleware,
		corsMiddleware:      corsMiddleware,
		rateLimiter:         rateLimiter,
	}
}

func (r *Router) Setup() *mux.Router {
	// Preflight requests must match a route for the CORS middleware to run
	r.router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Authenticated routes
	protected := api.NewRoute().Subrouter()
	protected.Use(r.authMiddleware.Authenticate)

	// Consultation lifecycle (clinic staff)
	consultations := protected.PathPrefix("/consultations").Subrouter()
	consultations.Use(middleware.RequireClinicStaff)
	consultations.HandleFunc("", r.consultationHandler.CreateConsultation).Methods(http.MethodPost)
	consultations.HandleFunc("/{id}", r.consultationHandler.GetConsultation).Methods(http.MethodGet)
	consultations.HandleFunc("/{id}/history", r.auditLogHandler.GetConsultationHistory).Methods(http.MethodGet)
	consultations.HandleFunc("/{id}/start", r.consultationHandler.StartConsultation).Methods(http.MethodPost)
	consultations.HandleFunc("/{id}/route-acupuncture", r.consultationHandler.RouteToAcupuncture).Methods(http.MethodPost)
	consultations.HandleFunc("/{id}/route-medicine", r.consultationHandler.RouteToMedicine).Methods(http.MethodPost)
	consultations.HandleFunc("/{id}/finish", r.consultationHandler.FinishConsultation).Methods(http.MethodPost)
	consultations.HandleFunc("/{id}/assign-bed", r.consultationHandler.AssignBed).Methods(http.MethodPost)
	consultations.HandleFunc("/{id}/start-acupuncture", r.consultationHandler.StartAcupuncture).Methods(http.MethodPost)
	consultations.HandleFunc("/{id}/remove-needle", r.consultationHandler.RemoveNeedle).Methods(http.MethodPost)
	consultations.HandleFunc("/{id}/dispense-medicine", r.consultationHandler.DispenseMedicine).Methods(http.MethodPost)
	consultations.HandleFunc("/{id}/check-out", r.consultationHandler.CheckOut).Methods(http.MethodPost)
	consultations.HandleFunc("/{id}/onsite-cancel", r.consultationHandler.OnsiteCancel).Methods(http.MethodPost)

	// Waiting-room dashboard
	realtime := protected.PathPrefix("/realtime").Subrouter()
	realtime.Use(middleware.RequireClinicStaff)
	realtime.HandleFunc("/counts", r.realTimeHandler.GetCounts).Methods(http.MethodGet)
	realtime.HandleFunc("/list", r.realTimeHandler.GetList).Methods(http.MethodGet)

	// Notifications of the current user
	protected.HandleFunc("/notifications", r.notificationHandler.GetMyNotifications).Methods(http.MethodGet)
	protected.HandleFunc("/notifications/{id}/read", r.notificationHandler.MarkAsRead).Methods(http.MethodPut)

	// Live updates
	protected.Handle("/ws", r.wsHandler).Methods(http.MethodGet)

	// Admin routes (protected - admin only)
	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetAllAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	r.router.Use(r.corsMiddleware.Handle)
	r.router.Use(r.rateLimiter.Handle)

	return r.router
}

// SubscriptionKey maps a websocket request to its hub key: staff asking for
// clinicId and roomNumber get the room dashboard, everyone else their own feed
func SubscriptionKey(req *http.Request) (string, error) {
	userID, ok := middleware.GetUserIDFromContext(req.Context())
	if !ok {
		return "", errors.New("user not found in context")
	}

	q := req.URL.Query()
	rawClinicID, roomNumber := q.Get("clinicId"), q.Get("roomNumber")
	if rawClinicID == "" && roomNumber == "" {
		return service.UserKey(userID), nil
	}

	roleID, _ := middleware.GetRoleIDFromContext(req.Context())
	if !entity.IsClinicStaff(roleID) {
		return "", fmt.Errorf("%w: only clinic staff can watch a room", websocket.ErrSubscriptionForbidden)
	}

	clinicID, err := uuid.Parse(rawClinicID)
	if err != nil || roomNumber == "" {
		return "", errors.New("clinicId and roomNumber are required together")
	}
	if own, ok := middleware.GetClinicIDFromContext(req.Context()); ok && own != clinicID {
		return "", fmt.Errorf("%w: room belongs to another clinic", websocket.ErrSubscriptionForbidden)
	}

	return service.RoomKey(clinicID, roomNumber), nil
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
