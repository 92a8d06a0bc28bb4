package models

import (
	"time"

	"github.com/google/uuid"
)

// PrescriptionFolder groups a user's prescriptions, e.g. per family member
// or per condition.
type PrescriptionFolder struct {
	BaseModel
	UserID        uuid.UUID      `gorm:"type:uuid;index" json:"user_id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Prescriptions []Prescription `gorm:"foreignKey:FolderID" json:"prescriptions,omitempty"`
}

// Prescription is a stored prescription document with its medicine lines.
type Prescription struct {
	BaseModel
	UserID        uuid.UUID          `gorm:"type:uuid;index" json:"user_id"`
	FolderID      uuid.UUID          `gorm:"type:uuid;index" json:"folder_id"`
	DoctorID      *uuid.UUID         `gorm:"type:uuid" json:"doctor_id"`
	Title         string             `json:"title"`
	IssuedAt      time.Time          `json:"issued_at"`
	Diagnosis     string             `json:"diagnosis"`
	Notes         string             `json:"notes"`
	AttachmentURL string             `json:"attachment_url"`
	Items         []PrescriptionItem `json:"items,omitempty"`
}

// PrescriptionItem is a single medicine line on a prescription.
type PrescriptionItem struct {
	BaseModel
	PrescriptionID uuid.UUID `gorm:"type:uuid;index" json:"prescription_id"`
	MedicineName   string    `json:"medicine_name"`
	Dosage         string    `json:"dosage"`
	Frequency      string    `json:"frequency"`
	DurationDays   int       `json:"duration_days"`
	Instructions   string    `json:"instructions"`
}

// MedicineComparison records a user comparing two medicines, which is a
// rewarded activity.
type MedicineComparison struct {
	BaseModel
	UserID         uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	FirstMedicine  string     `json:"first_medicine"`
	SecondMedicine string     `json:"second_medicine"`
	PrescriptionID *uuid.UUID `gorm:"type:uuid" json:"prescription_id"`
}
