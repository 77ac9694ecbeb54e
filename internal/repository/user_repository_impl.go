package repository

import (
	"errors"

	"clinic-backend/internal/domain/entity"
	domainRepo "clinic-backend/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepository struct{}

func NewUserRepository() domainRepo.UserRepository {
	return &userRepository{}
}

func (r *userRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	err := db.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// FindClinicAdmin returns the longest-standing active admin of the clinic
func (r *userRepository) FindClinicAdmin(db *gorm.DB, clinicID uuid.UUID) (*entity.User, error) {
	var user entity.User
	err := db.Where("clinic_id = ? AND role_id = ? AND is_active = ?", clinicID, entity.RoleIDAdmin, true).
		Order("created_at ASC").
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
