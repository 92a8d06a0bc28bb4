package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/medirx/internal/apperr"
	"github.com/example/medirx/internal/ledger"
	"github.com/example/medirx/internal/middleware"
	"github.com/example/medirx/internal/models"
	"github.com/example/medirx/internal/utils"
)

// PrescriptionHandler manages folders and prescriptions. Rewarded actions
// are published to the recorder instead of touching the ledger directly.
type PrescriptionHandler struct {
	db       *gorm.DB
	recorder *ledger.Recorder
}

// NewPrescriptionHandler constructs PrescriptionHandler.
func NewPrescriptionHandler(db *gorm.DB, recorder *ledger.Recorder) *PrescriptionHandler {
	return &PrescriptionHandler{db: db, recorder: recorder}
}

// Folder endpoints

type folderRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListFolders returns the user's folders, paginated.
func (h *PrescriptionHandler) ListFolders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	pg := utils.ParsePagination(c, "created_at", "created_at", "name")
	query := h.db.WithContext(c.Context()).Model(&models.PrescriptionFolder{}).
		Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var folders []models.PrescriptionFolder
	if err := pg.Apply(query).Find(&folders).Error; err != nil {
		return err
	}

	return utils.Paged(c, folders, total, pg, "")
}

// CreateFolder creates a prescription folder and records the rewarded
// activity.
func (h *PrescriptionHandler) CreateFolder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	var req folderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if req.Name == "" {
		return apperr.BadRequest("name is required")
	}

	folder := models.PrescriptionFolder{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
	}

	if err := h.db.WithContext(c.Context()).Create(&folder).Error; err != nil {
		return err
	}

	h.recorder.Publish(c.Context(), ledger.ActivityEvent{
		UserID:       userID,
		ActivityCode: ledger.CodeFolderCreated,
		Description:  "folder " + folder.Name,
	})

	return utils.Created(c, folder, "folder created")
}

// UpdateFolder renames a folder.
func (h *PrescriptionHandler) UpdateFolder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid id")
	}

	var req folderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if req.Name == "" {
		return apperr.BadRequest("name is required")
	}

	res := h.db.WithContext(c.Context()).Model(&models.PrescriptionFolder{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"name":        req.Name,
			"description": req.Description,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("folder not found")
	}

	return utils.OK(c, nil, "folder updated")
}

// DeleteFolder removes an empty folder.
func (h *PrescriptionHandler) DeleteFolder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid id")
	}

	var count int64
	if err := h.db.WithContext(c.Context()).Model(&models.Prescription{}).
		Where("folder_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperr.Conflict("folder still contains prescriptions")
	}

	res := h.db.WithContext(c.Context()).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.PrescriptionFolder{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("folder not found")
	}

	return utils.OK(c, nil, "folder deleted")
}

// Prescription endpoints

type prescriptionItemRequest struct {
	MedicineName string `json:"medicine_name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	DurationDays int    `json:"duration_days"`
	Instructions string `json:"instructions"`
}

type prescriptionRequest struct {
	FolderID      string                    `json:"folder_id"`
	DoctorID      string                    `json:"doctor_id"`
	Title         string                    `json:"title"`
	IssuedAt      *time.Time                `json:"issued_at"`
	Diagnosis     string                    `json:"diagnosis"`
	Notes         string                    `json:"notes"`
	AttachmentURL string                    `json:"attachment_url"`
	Items         []prescriptionItemRequest `json:"items"`
}

// ListPrescriptions returns the user's prescriptions, optionally scoped to
// a folder.
func (h *PrescriptionHandler) ListPrescriptions(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	pg := utils.ParsePagination(c, "created_at", "created_at", "title", "issued_at")
	query := h.db.WithContext(c.Context()).Model(&models.Prescription{}).
		Where("user_id = ?", userID)
	if folder := c.Query("folder_id"); folder != "" {
		folderID, err := uuid.Parse(folder)
		if err != nil {
			return apperr.BadRequest("invalid folder_id")
		}
		query = query.Where("folder_id = ?", folderID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var prescriptions []models.Prescription
	if err := pg.Apply(query).Preload("Items").Find(&prescriptions).Error; err != nil {
		return err
	}

	return utils.Paged(c, prescriptions, total, pg, "")
}

// GetPrescription returns one prescription with its items.
func (h *PrescriptionHandler) GetPrescription(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid id")
	}

	var prescription models.Prescription
	err = h.db.WithContext(c.Context()).Preload("Items").
		First(&prescription, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("prescription not found")
	}
	if err != nil {
		return err
	}

	return utils.OK(c, prescription, "")
}

// CreatePrescription stores a prescription with its medicine lines inside
// one of the user's folders.
func (h *PrescriptionHandler) CreatePrescription(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	var req prescriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if req.Title == "" {
		return apperr.BadRequest("title is required")
	}

	folderID, err := uuid.Parse(req.FolderID)
	if err != nil {
		return apperr.BadRequest("invalid folder_id")
	}

	var folder models.PrescriptionFolder
	err = h.db.WithContext(c.Context()).
		First(&folder, "id = ? AND user_id = ?", folderID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("folder not found")
	}
	if err != nil {
		return err
	}

	prescription := models.Prescription{
		UserID:        userID,
		FolderID:      folderID,
		Title:         req.Title,
		Diagnosis:     req.Diagnosis,
		Notes:         req.Notes,
		AttachmentURL: req.AttachmentURL,
		IssuedAt:      time.Now(),
	}
	if req.IssuedAt != nil {
		prescription.IssuedAt = *req.IssuedAt
	}

	if req.DoctorID != "" {
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			return apperr.BadRequest("invalid doctor_id")
		}
		var doctor models.DoctorProfile
		err = h.db.WithContext(c.Context()).First(&doctor, "id = ?", doctorID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("doctor not found")
		}
		if err != nil {
			return err
		}
		prescription.DoctorID = &doctor.ID
	}

	for _, item := range req.Items {
		if item.MedicineName == "" {
			return apperr.BadRequest("medicine_name is required on every item")
		}
		prescription.Items = append(prescription.Items, models.PrescriptionItem{
			MedicineName: item.MedicineName,
			Dosage:       item.Dosage,
			Frequency:    item.Frequency,
			DurationDays: item.DurationDays,
			Instructions: item.Instructions,
		})
	}

	if err := h.db.WithContext(c.Context()).Create(&prescription).Error; err != nil {
		return err
	}

	return utils.Created(c, prescription, "prescription created")
}

// DeletePrescription removes a prescription and its items.
func (h *PrescriptionHandler) DeletePrescription(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid id")
	}

	err = h.db.WithContext(c.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).
			Delete(&models.Prescription{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("prescription not found")
		}
		return tx.Where("prescription_id = ?", id).
			Delete(&models.PrescriptionItem{}).Error
	})
	if err != nil {
		return err
	}

	return utils.OK(c, nil, "prescription deleted")
}
