package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/medirx/internal/apperr"
	"github.com/example/medirx/internal/models"
	"github.com/example/medirx/internal/utils"
)

// DoctorHandler manages the browsable doctor directory.
type DoctorHandler struct {
	db *gorm.DB
}

// NewDoctorHandler constructs DoctorHandler.
func NewDoctorHandler(db *gorm.DB) *DoctorHandler {
	return &DoctorHandler{db: db}
}

// ListDoctors returns paginated doctor profiles, optionally filtered by
// specialty.
func (h *DoctorHandler) ListDoctors(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c, "created_at", "created_at", "full_name", "specialty", "experience_years")

	query := h.db.WithContext(c.Context()).Model(&models.DoctorProfile{}).
		Where("is_active = ?", true)
	if specialty := c.Query("specialty"); specialty != "" {
		query = query.Where("LOWER(specialty) = LOWER(?)", specialty)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var doctors []models.DoctorProfile
	if err := pg.Apply(query).Find(&doctors).Error; err != nil {
		return err
	}

	return utils.Paged(c, doctors, total, pg, "")
}

// GetDoctor returns a single doctor profile.
func (h *DoctorHandler) GetDoctor(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid id")
	}

	var doctor models.DoctorProfile
	if err := h.db.WithContext(c.Context()).First(&doctor, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("doctor not found")
		}
		return err
	}

	return utils.OK(c, doctor, "")
}

type doctorRequest struct {
	FullName        string `json:"full_name"`
	Specialty       string `json:"specialty"`
	Qualification   string `json:"qualification"`
	ClinicName      string `json:"clinic_name"`
	ClinicAddress   string `json:"clinic_address"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	ExperienceYears int    `json:"experience_years"`
	About           string `json:"about"`
}

func (r *doctorRequest) validate() error {
	if r.FullName == "" {
		return apperr.BadRequest("full_name is required")
	}
	if r.Specialty == "" {
		return apperr.BadRequest("specialty is required")
	}
	if r.ExperienceYears < 0 {
		return apperr.BadRequest("experience_years cannot be negative")
	}
	return nil
}

// CreateDoctor creates a doctor profile.
func (h *DoctorHandler) CreateDoctor(c *fiber.Ctx) error {
	var req doctorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	doctor := models.DoctorProfile{
		FullName:        req.FullName,
		Specialty:       req.Specialty,
		Qualification:   req.Qualification,
		ClinicName:      req.ClinicName,
		ClinicAddress:   req.ClinicAddress,
		Phone:           req.Phone,
		Email:           req.Email,
		ExperienceYears: req.ExperienceYears,
		About:           req.About,
		IsActive:        true,
	}

	if err := h.db.WithContext(c.Context()).Create(&doctor).Error; err != nil {
		return err
	}

	return utils.Created(c, doctor, "doctor profile created")
}

// UpdateDoctor updates an existing doctor profile.
func (h *DoctorHandler) UpdateDoctor(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid id")
	}

	var doctor models.DoctorProfile
	if err := h.db.WithContext(c.Context()).First(&doctor, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("doctor not found")
		}
		return err
	}

	var req doctorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	doctor.FullName = req.FullName
	doctor.Specialty = req.Specialty
	doctor.Qualification = req.Qualification
	doctor.ClinicName = req.ClinicName
	doctor.ClinicAddress = req.ClinicAddress
	doctor.Phone = req.Phone
	doctor.Email = req.Email
	doctor.ExperienceYears = req.ExperienceYears
	doctor.About = req.About

	if err := h.db.WithContext(c.Context()).Save(&doctor).Error; err != nil {
		return err
	}

	return utils.OK(c, doctor, "doctor profile updated")
}

// DeleteDoctor deactivates a doctor profile rather than removing the row,
// so prescriptions referencing it stay resolvable.
func (h *DoctorHandler) DeleteDoctor(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid id")
	}

	res := h.db.WithContext(c.Context()).Model(&models.DoctorProfile{}).
		Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("doctor not found")
	}

	return utils.OK(c, nil, "doctor profile deactivated")
}
