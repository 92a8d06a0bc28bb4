package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/medirx/internal/apperr"
	"github.com/example/medirx/internal/ledger"
	"github.com/example/medirx/internal/middleware"
	"github.com/example/medirx/internal/models"
	"github.com/example/medirx/internal/utils"
)

// ComparisonHandler records medicine comparisons, a rewarded activity.
type ComparisonHandler struct {
	db       *gorm.DB
	recorder *ledger.Recorder
}

// NewComparisonHandler constructs ComparisonHandler.
func NewComparisonHandler(db *gorm.DB, recorder *ledger.Recorder) *ComparisonHandler {
	return &ComparisonHandler{db: db, recorder: recorder}
}

type comparisonRequest struct {
	FirstMedicine  string `json:"first_medicine"`
	SecondMedicine string `json:"second_medicine"`
	PrescriptionID string `json:"prescription_id"`
}

// CompareMedicines stores a comparison and publishes the reward event.
func (h *ComparisonHandler) CompareMedicines(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	var req comparisonRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if req.FirstMedicine == "" || req.SecondMedicine == "" {
		return apperr.BadRequest("two medicine names are required")
	}

	comparison := models.MedicineComparison{
		UserID:         userID,
		FirstMedicine:  req.FirstMedicine,
		SecondMedicine: req.SecondMedicine,
	}

	if req.PrescriptionID != "" {
		prescriptionID, err := uuid.Parse(req.PrescriptionID)
		if err != nil {
			return apperr.BadRequest("invalid prescription_id")
		}
		comparison.PrescriptionID = &prescriptionID
	}

	if err := h.db.WithContext(c.Context()).Create(&comparison).Error; err != nil {
		return err
	}

	h.recorder.Publish(c.Context(), ledger.ActivityEvent{
		UserID:         userID,
		ActivityCode:   ledger.CodeMedicineCompared,
		PrescriptionID: comparison.PrescriptionID,
		Description:    req.FirstMedicine + " vs " + req.SecondMedicine,
	})

	return utils.Created(c, comparison, "comparison recorded")
}

// ListComparisons returns the user's comparison history, paginated.
func (h *ComparisonHandler) ListComparisons(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	pg := utils.ParsePagination(c, "created_at", "created_at")
	query := h.db.WithContext(c.Context()).Model(&models.MedicineComparison{}).
		Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var comparisons []models.MedicineComparison
	if err := pg.Apply(query).Find(&comparisons).Error; err != nil {
		return err
	}

	return utils.Paged(c, comparisons, total, pg, "")
}
