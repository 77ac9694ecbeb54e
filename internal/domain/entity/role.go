package entity

// Role is a row of the seeded roles table
type Role struct {
	ID          int    `gorm:"primaryKey" json:"id"`
	RoleName    string `gorm:"type:varchar(50);uniqueIndex;not null" json:"role_name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
}

func (Role) TableName() string {
	return "roles"
}

// Seeded role ids
const (
	RoleIDAdmin   = 1
	RoleIDDoctor  = 2
	RoleIDPatient = 3
)

// IsClinicStaff reports whether the role works inside a clinic and may watch its rooms
func IsClinicStaff(roleID int) bool {
	return roleID == RoleIDAdmin || roleID == RoleIDDoctor
}
