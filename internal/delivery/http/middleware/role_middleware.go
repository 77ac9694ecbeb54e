package middleware

import (
	"net/http"
	"slices"

	"clinic-backend/internal/domain/entity"
	"clinic-backend/pkg/response"
)

// RequireRole lets the request through when the token role is one of roleIDs
func RequireRole(roleIDs ...int) func(http.Handler) http.Handler {
	return requireRoleFunc(func(roleID int) bool {
		return slices.Contains(roleIDs, roleID)
	})
}

// RequireAdmin guards the clinic administration routes
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(entity.RoleIDAdmin)(next)
}

// RequireClinicStaff guards the consultation desk and the waiting-room dashboard
func RequireClinicStaff(next http.Handler) http.Handler {
	return requireRoleFunc(entity.IsClinicStaff)(next)
}

func requireRoleFunc(allowed func(roleID int) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roleID, ok := GetRoleIDFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "Role information not found")
				return
			}
			if !allowed(roleID) {
				response.Forbidden(w, "You don't have permission to access this resource")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
