package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinic-backend/config"
	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/delivery/http/handler"
	"clinic-backend/internal/delivery/http/middleware"
	"clinic-backend/internal/delivery/websocket"
	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/service"
	"clinic-backend/internal/usecase"
	"clinic-backend/pkg/clock"
	"clinic-backend/pkg/jwt"
	"clinic-backend/pkg/response"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ usecase.RealTimeUsecase = (*MockRealTimeUsecase)(nil)

type MockRealTimeUsecase struct {
	GetRealTimeCountsFunc func(ctx context.Context, query dto.RealTimeQuery) (*dto.RealTimeCountsResponse, error)
	GetRealTimeListFunc   func(ctx context.Context, query dto.RealTimeQuery) (*dto.RealTimeListResponse, error)
}

func (m *MockRealTimeUsecase) PublishRoomUpdate(ctx context.Context, timeSlotID uuid.UUID) error {
	return nil
}

func (m *MockRealTimeUsecase) GetRealTimeCounts(ctx context.Context, query dto.RealTimeQuery) (*dto.RealTimeCountsResponse, error) {
	if m.GetRealTimeCountsFunc != nil {
		return m.GetRealTimeCountsFunc(ctx, query)
	}
	return &dto.RealTimeCountsResponse{TimeSlotIDs: []uuid.UUID{}}, nil
}

func (m *MockRealTimeUsecase) GetRealTimeList(ctx context.Context, query dto.RealTimeQuery) (*dto.RealTimeListResponse, error) {
	if m.GetRealTimeListFunc != nil {
		return m.GetRealTimeListFunc(ctx, query)
	}
	return &dto.RealTimeListResponse{TimeSlotIDs: []uuid.UUID{}, Rows: []dto.RealTimeRowResponse{}}, nil
}

type routerFixture struct {
	handler  http.Handler
	jwt      *jwt.JWTService
	mr       *miniredis.Miniredis
	realtime *MockRealTimeUsecase
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	jwtService := jwt.NewJWTService(config.JWTConfig{Secret: "test-secret"})
	realtime := &MockRealTimeUsecase{}
	limiter := middleware.NewRateLimiter(1000, 1000)
	t.Cleanup(limiter.Stop)

	router := NewRouter(
		log,
		&handler.ConsultationHandler{},
		handler.NewRealTimeHandler(realtime),
		&handler.NotificationHandler{},
		&handler.AuditLogHandler{},
		websocket.NewHub(clock.New()),
		middleware.NewAuthMiddleware(jwtService, client),
		middleware.NewCORSMiddleware([]string{"https://desk.clinic.test"}),
		limiter,
	)

	return &routerFixture{handler: router.Setup(), jwt: jwtService, mr: mr, realtime: realtime}
}

func (f *routerFixture) token(t *testing.T, roleID int, clinicID *uuid.UUID) (string, string) {
	t.Helper()
	token, tokenID, err := f.jwt.GenerateAccessToken(uuid.New(), roleID, clinicID, time.Hour)
	require.NoError(t, err)
	return token, tokenID
}

func (f *routerFixture) do(req *http.Request) (*httptest.ResponseRecorder, response.Response) {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var body response.Response
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestRouter_HealthIsPublic(t *testing.T) {
	f := newRouterFixture(t)

	rec, _ := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Authentication(t *testing.T) {
	f := newRouterFixture(t)
	clinicID := uuid.New()

	t.Run("missing token", func(t *testing.T) {
		rec, body := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/realtime/counts", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, body.Success)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/realtime/counts", nil)
		req.Header.Set("Authorization", "Token abc")
		rec, _ := f.do(req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := jwt.NewJWTService(config.JWTConfig{Secret: "another-secret"})
		token, _, err := other.GenerateAccessToken(uuid.New(), entity.RoleIDDoctor, &clinicID, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/realtime/counts", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec, _ := f.do(req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid bearer token", func(t *testing.T) {
		token, _ := f.token(t, entity.RoleIDDoctor, &clinicID)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/realtime/counts", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec, body := f.do(req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, body.Success)
	})

	t.Run("query token fallback", func(t *testing.T) {
		token, _ := f.token(t, entity.RoleIDDoctor, &clinicID)
		rec, _ := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/realtime/counts?access_token="+token, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("revoked token", func(t *testing.T) {
		token, tokenID := f.token(t, entity.RoleIDDoctor, &clinicID)
		require.NoError(t, f.mr.Set(middleware.RevokedTokenKeyPrefix+tokenID, "1"))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/realtime/counts", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec, body := f.do(req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Token has been revoked", body.Message)
	})

	t.Run("redis unavailable", func(t *testing.T) {
		token, _ := f.token(t, entity.RoleIDDoctor, &clinicID)
		f.mr.SetError("ERR store unavailable")
		defer f.mr.SetError("")

		req := httptest.NewRequest(http.MethodGet, "/api/v1/realtime/counts", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec, _ := f.do(req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRouter_RoleGuards(t *testing.T) {
	f := newRouterFixture(t)
	clinicID := uuid.New()

	patient, _ := f.token(t, entity.RoleIDPatient, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/realtime/counts", nil)
	req.Header.Set("Authorization", "Bearer "+patient)
	rec, _ := f.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	doctor, _ := f.token(t, entity.RoleIDDoctor, &clinicID)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit-logs", nil)
	req.Header.Set("Authorization", "Bearer "+doctor)
	rec, _ = f.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRealTimeHandler_QueryAndErrors(t *testing.T) {
	f := newRouterFixture(t)
	clinicID := uuid.New()
	admin, _ := f.token(t, entity.RoleIDAdmin, &clinicID)

	get := func(path string) (*httptest.ResponseRecorder, response.Response) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+admin)
		return f.do(req)
	}

	t.Run("invalid clinicId", func(t *testing.T) {
		rec, _ := get("/api/v1/realtime/counts?clinicId=nope&roomNumber=1")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid limit", func(t *testing.T) {
		rec, _ := get("/api/v1/realtime/list?limit=-1")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("room required", func(t *testing.T) {
		f.realtime.GetRealTimeCountsFunc = func(ctx context.Context, query dto.RealTimeQuery) (*dto.RealTimeCountsResponse, error) {
			return nil, usecase.ErrClinicRoomRequired
		}
		defer func() { f.realtime.GetRealTimeCountsFunc = nil }()

		rec, _ := get("/api/v1/realtime/counts")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("role not allowed", func(t *testing.T) {
		f.realtime.GetRealTimeListFunc = func(ctx context.Context, query dto.RealTimeQuery) (*dto.RealTimeListResponse, error) {
			return nil, usecase.ErrRoleNotAllowed
		}
		defer func() { f.realtime.GetRealTimeListFunc = nil }()

		rec, _ := get("/api/v1/realtime/list")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("other clinic", func(t *testing.T) {
		f.realtime.GetRealTimeCountsFunc = func(ctx context.Context, query dto.RealTimeQuery) (*dto.RealTimeCountsResponse, error) {
			return nil, usecase.ErrOtherClinic
		}
		defer func() { f.realtime.GetRealTimeCountsFunc = nil }()

		rec, _ := get("/api/v1/realtime/counts?clinicId=" + uuid.NewString() + "&roomNumber=1")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("list forwards query and pages", func(t *testing.T) {
		var got dto.RealTimeQuery
		f.realtime.GetRealTimeListFunc = func(ctx context.Context, query dto.RealTimeQuery) (*dto.RealTimeListResponse, error) {
			got = query
			return &dto.RealTimeListResponse{Rows: []dto.RealTimeRowResponse{}, Total: 25, Limit: 10, Offset: 10}, nil
		}
		defer func() { f.realtime.GetRealTimeListFunc = nil }()

		rec, body := get("/api/v1/realtime/list?clinicId=" + clinicID.String() + "&roomNumber=101&limit=10&offset=10")
		require.Equal(t, http.StatusOK, rec.Code)

		require.NotNil(t, got.ClinicID)
		assert.Equal(t, clinicID, *got.ClinicID)
		assert.Equal(t, "101", got.RoomNumber)
		assert.Equal(t, 10, got.Limit)
		assert.Equal(t, 10, got.Offset)

		require.NotNil(t, body.Meta)
		assert.Equal(t, 2, body.Meta.Page)
		assert.Equal(t, 3, body.Meta.TotalPages)
		assert.Equal(t, int64(25), body.Meta.Total)
	})
}

func TestSubscriptionKey(t *testing.T) {
	userID := uuid.New()
	clinicID := uuid.New()

	newRequest := func(query string, roleID int) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ws"+query, nil)
		return req.WithContext(middleware.WithIdentity(req.Context(), userID, roleID, &clinicID))
	}

	t.Run("own feed", func(t *testing.T) {
		key, err := SubscriptionKey(newRequest("", entity.RoleIDPatient))
		require.NoError(t, err)
		assert.Equal(t, service.UserKey(userID), key)
	})

	t.Run("staff room", func(t *testing.T) {
		key, err := SubscriptionKey(newRequest("?clinicId="+clinicID.String()+"&roomNumber=101", entity.RoleIDDoctor))
		require.NoError(t, err)
		assert.Equal(t, service.RoomKey(clinicID, "101"), key)
	})

	t.Run("patient cannot watch a room", func(t *testing.T) {
		_, err := SubscriptionKey(newRequest("?clinicId="+clinicID.String()+"&roomNumber=101", entity.RoleIDPatient))
		assert.ErrorIs(t, err, websocket.ErrSubscriptionForbidden)
	})

	t.Run("staff of another clinic", func(t *testing.T) {
		_, err := SubscriptionKey(newRequest("?clinicId="+uuid.NewString()+"&roomNumber=101", entity.RoleIDAdmin))
		assert.ErrorIs(t, err, websocket.ErrSubscriptionForbidden)
	})

	t.Run("room without clinic", func(t *testing.T) {
		_, err := SubscriptionKey(newRequest("?roomNumber=101", entity.RoleIDAdmin))
		assert.Error(t, err)
	})

	t.Run("no identity", func(t *testing.T) {
		_, err := SubscriptionKey(httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil))
		assert.Error(t, err)
	})
}

func TestRouter_CORS(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://desk.clinic.test")
	rec, _ := f.do(req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://desk.clinic.test", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://elsewhere.test")
	rec, _ = f.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
