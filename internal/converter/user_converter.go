package converter

import (
	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/domain/entity"
)

// UserToResponse converts a User entity to UserResponse DTO
func UserToResponse(user *entity.User) *dto.UserResponse {
	if user == nil {
		return nil
	}

	return &dto.UserResponse{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role.RoleName,
		ClinicID: user.ClinicID,
	}
}
