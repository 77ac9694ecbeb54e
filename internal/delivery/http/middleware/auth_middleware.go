package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"clinic-backend/pkg/jwt"
	"clinic-backend/pkg/response"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	RoleIDKey   contextKey = "role_id"
	ClinicIDKey contextKey = "clinic_id"
	TokenIDKey  contextKey = "token_id"
)

// RevokedTokenKeyPrefix is written by the identity service on logout
const RevokedTokenKeyPrefix = "revoked_token:"

type AuthMiddleware struct {
	jwtService  *jwt.JWTService
	redisClient *redis.Client
}

func NewAuthMiddleware(jwtService *jwt.JWTService, redisClient *redis.Client) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:  jwtService,
		redisClient: redisClient,
	}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			response.Unauthorized(w, "Authorization header is required")
			return
		}

		// Validate JWT token
		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		// Check if it's an access token
		if claims.TokenType != jwt.AccessToken {
			response.Unauthorized(w, "Invalid token type")
			return
		}

		// Check the token was not revoked
		revokedKey := fmt.Sprintf("%s%s", RevokedTokenKeyPrefix, claims.TokenID)
		revoked, err := m.redisClient.Exists(r.Context(), revokedKey).Result()
		if err != nil {
			response.InternalServerError(w, "Failed to validate token")
			return
		}
		if revoked > 0 {
			response.Unauthorized(w, "Token has been revoked")
			return
		}

		// Add user info to context
		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, RoleIDKey, claims.RoleID)
		ctx = context.WithValue(ctx, TokenIDKey, claims.TokenID)
		if claims.ClinicID != nil {
			ctx = context.WithValue(ctx, ClinicIDKey, *claims.ClinicID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken reads "Bearer <token>", falling back to ?access_token= for
// websocket clients that cannot set headers
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		token := r.URL.Query().Get("access_token")
		return token, token != ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// WithIdentity stores the caller identity the way Authenticate does
func WithIdentity(ctx context.Context, userID uuid.UUID, roleID int, clinicID *uuid.UUID) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, RoleIDKey, roleID)
	if clinicID != nil {
		ctx = context.WithValue(ctx, ClinicIDKey, *clinicID)
	}
	return ctx
}

// GetUserIDFromContext extracts user ID from context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetTokenIDFromContext extracts token ID from context
func GetTokenIDFromContext(ctx context.Context) (string, bool) {
	tokenID, ok := ctx.Value(TokenIDKey).(string)
	return tokenID, ok
}

// GetRoleIDFromContext extracts role ID from context
func GetRoleIDFromContext(ctx context.Context) (int, bool) {
	roleID, ok := ctx.Value(RoleIDKey).(int)
	return roleID, ok
}

// GetClinicIDFromContext extracts the clinic of a staff user from context
func GetClinicIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	clinicID, ok := ctx.Value(ClinicIDKey).(uuid.UUID)
	return clinicID, ok
}
