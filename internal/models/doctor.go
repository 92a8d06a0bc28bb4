package models

import "github.com/google/uuid"

// DoctorProfile is a browsable doctor listing entry. A profile may be
// linked to a registered user account but does not have to be.
type DoctorProfile struct {
	BaseModel
	UserID          *uuid.UUID `gorm:"type:uuid" json:"user_id"`
	FullName        string     `json:"full_name"`
	Specialty       string     `gorm:"index" json:"specialty"`
	Qualification   string     `json:"qualification"`
	ClinicName      string     `json:"clinic_name"`
	ClinicAddress   string     `json:"clinic_address"`
	Phone           string     `json:"phone"`
	Email           string     `json:"email"`
	ExperienceYears int        `json:"experience_years"`
	About           string     `json:"about"`
	IsActive        bool       `json:"is_active"`
}
