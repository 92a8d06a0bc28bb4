package handlers

import (
	"math"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/medirx/internal/apperr"
	"github.com/example/medirx/internal/ledger"
	"github.com/example/medirx/internal/middleware"
	"github.com/example/medirx/internal/models"
	"github.com/example/medirx/internal/utils"
)

// RewardHandler exposes the reward ledger to authenticated users.
type RewardHandler struct {
	db     *gorm.DB
	ledger *ledger.Service
}

// NewRewardHandler constructs RewardHandler.
func NewRewardHandler(db *gorm.DB, svc *ledger.Service) *RewardHandler {
	return &RewardHandler{db: db, ledger: svc}
}

// GetBalance returns the user's current point balances.
func (h *RewardHandler) GetBalance(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	balance, err := h.ledger.GetBalance(c.Context(), userID)
	if err != nil {
		return err
	}

	return utils.OK(c, balance, "")
}

// GetRewardDetails returns the merged reward feed, most recent first.
func (h *RewardHandler) GetRewardDetails(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	feed, err := h.ledger.GetRewardDetails(c.Context(), userID)
	if err != nil {
		return err
	}

	return utils.OK(c, feed, "")
}

type convertRequest struct {
	FromType        models.RewardType `json:"from_type"`
	ToType          models.RewardType `json:"to_type"`
	Amount          float64           `json:"amount"`
	Rate            *float64          `json:"rate"`
	ConvertedPoints *float64          `json:"converted_points"`
}

// ConvertRewardPoints exchanges points between reward types. The server
// computes converted points; a client-supplied value that disagrees is
// rejected.
func (h *RewardHandler) ConvertRewardPoints(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	var req convertRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	if req.ConvertedPoints != nil {
		rate := 1.0
		if req.Rate != nil {
			rate = *req.Rate
		}
		// Tolerate float representation noise from clients that round.
		if math.Abs(*req.ConvertedPoints-req.Amount*rate) > 1e-9 {
			return apperr.BadRequest("converted_points does not match amount * rate")
		}
	}

	conversion, err := h.ledger.ConvertPoints(c.Context(), userID, req.FromType, req.ToType, req.Amount, req.Rate)
	if err != nil {
		return err
	}

	return utils.OK(c, conversion, "points converted")
}

// GetConversionSummary returns per-type-pair conversion totals.
func (h *RewardHandler) GetConversionSummary(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	summary, err := h.ledger.GetConversionSummary(c.Context(), userID)
	if err != nil {
		return err
	}

	return utils.OK(c, summary, "")
}

// ListTransactions returns the user's audit transactions, paginated.
func (h *RewardHandler) ListTransactions(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	pg := utils.ParsePagination(c, "created_at", "created_at", "amount")
	query := h.db.WithContext(c.Context()).Model(&models.RewardTransaction{}).
		Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var transactions []models.RewardTransaction
	if err := pg.Apply(query).Find(&transactions).Error; err != nil {
		return err
	}

	return utils.Paged(c, transactions, total, pg, "")
}
