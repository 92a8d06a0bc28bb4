package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/medirx/internal/apperr"
	"github.com/example/medirx/internal/ledger"
	"github.com/example/medirx/internal/models"
	"github.com/example/medirx/internal/utils"
)

// BadgeHandler manages badge configuration and badge assignments.
type BadgeHandler struct {
	db     *gorm.DB
	ledger *ledger.Service
}

// NewBadgeHandler constructs BadgeHandler.
func NewBadgeHandler(db *gorm.DB, svc *ledger.Service) *BadgeHandler {
	return &BadgeHandler{db: db, ledger: svc}
}

type badgeRequest struct {
	Name               string           `json:"name"`
	Description        string           `json:"description"`
	BadgeType          models.BadgeType `json:"badge_type"`
	Heirarchy          int              `json:"heirarchy"`
	RequiredPoints     *float64         `json:"required_points"`
	RequiredActivities *int             `json:"required_activities"`
	IsActive           *bool            `json:"is_active"`
}

func (r *badgeRequest) validate() error {
	if r.Name == "" {
		return apperr.BadRequest("name is required")
	}
	if len(r.Name) > 150 {
		return apperr.BadRequest("name must be 150 characters or fewer")
	}
	if len(r.Description) > 500 {
		return apperr.BadRequest("description must be 500 characters or fewer")
	}
	if !r.BadgeType.Valid() {
		return apperr.BadRequest("badge_type must be PointsMilestone(1), ActivityBased(2) or Special(3)")
	}
	if r.Heirarchy <= 0 {
		return apperr.BadRequest("heirarchy must be positive")
	}
	if r.RequiredPoints != nil && *r.RequiredPoints < 0 {
		return apperr.BadRequest("required_points cannot be negative")
	}
	if r.RequiredActivities != nil && *r.RequiredActivities < 0 {
		return apperr.BadRequest("required_activities cannot be negative")
	}

	switch r.BadgeType {
	case models.BadgePointsMilestone:
		if r.RequiredPoints == nil || *r.RequiredPoints <= 0 {
			return apperr.Unprocessable("PointsMilestone badges require required_points > 0")
		}
	case models.BadgeActivityBased:
		if r.RequiredActivities == nil || *r.RequiredActivities <= 0 {
			return apperr.Unprocessable("ActivityBased badges require required_activities > 0")
		}
	}
	return nil
}

// ListBadges returns paginated badges.
func (h *BadgeHandler) ListBadges(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c, "heirarchy", "heirarchy", "name", "created_at")
	if pg.SortBy == "heirarchy" && c.Query("sort_direction") == "" {
		pg.SortDirection = "asc"
	}

	query := h.db.WithContext(c.Context()).Model(&models.RewardBadge{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var badges []models.RewardBadge
	if err := pg.Apply(query).Find(&badges).Error; err != nil {
		return err
	}

	return utils.Paged(c, badges, total, pg, "")
}

// GetBadge returns a single badge.
func (h *BadgeHandler) GetBadge(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid id")
	}

	var badge models.RewardBadge
	if err := h.db.WithContext(c.Context()).First(&badge, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("badge not found")
		}
		return err
	}

	return utils.OK(c, badge, "")
}

// CreateBadge creates a badge. Names are unique case-insensitively across
// active and inactive badges.
func (h *BadgeHandler) CreateBadge(c *fiber.Ctx) error {
	var req badgeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	taken, err := h.badgeNameTaken(c, req.Name, uuid.Nil)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("badge %q already exists", req.Name)
	}

	badge := models.RewardBadge{
		Name:               req.Name,
		Description:        req.Description,
		BadgeType:          req.BadgeType,
		Heirarchy:          req.Heirarchy,
		RequiredPoints:     req.RequiredPoints,
		RequiredActivities: req.RequiredActivities,
		IsActive:           true,
	}
	if req.IsActive != nil {
		badge.IsActive = *req.IsActive
	}

	if err := h.db.WithContext(c.Context()).Create(&badge).Error; err != nil {
		return err
	}

	return utils.Created(c, badge, "badge created")
}

// UpdateBadge updates a badge.
func (h *BadgeHandler) UpdateBadge(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid id")
	}

	var badge models.RewardBadge
	if err := h.db.WithContext(c.Context()).First(&badge, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("badge not found")
		}
		return err
	}

	var req badgeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	taken, err := h.badgeNameTaken(c, req.Name, badge.ID)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("badge %q already exists", req.Name)
	}

	badge.Name = req.Name
	badge.Description = req.Description
	badge.BadgeType = req.BadgeType
	badge.Heirarchy = req.Heirarchy
	badge.RequiredPoints = req.RequiredPoints
	badge.RequiredActivities = req.RequiredActivities
	if req.IsActive != nil {
		badge.IsActive = *req.IsActive
	}

	if err := h.db.WithContext(c.Context()).Save(&badge).Error; err != nil {
		return err
	}

	return utils.OK(c, badge, "badge updated")
}

// DeleteBadge deactivates a badge; earned assignments stay on record.
func (h *BadgeHandler) DeleteBadge(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid id")
	}

	res := h.db.WithContext(c.Context()).Model(&models.RewardBadge{}).
		Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("badge not found")
	}

	return utils.OK(c, nil, "badge deactivated")
}

// Assignment endpoints

type assignBadgeRequest struct {
	UserID     string     `json:"user_id"`
	BadgeID    string     `json:"badge_id"`
	EarnedDate *time.Time `json:"earned_date"`
}

// AssignBadge awards a badge to a user via the ledger.
func (h *BadgeHandler) AssignBadge(c *fiber.Ctx) error {
	var req assignBadgeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return apperr.BadRequest("invalid user_id")
	}
	badgeID, err := uuid.Parse(req.BadgeID)
	if err != nil {
		return apperr.BadRequest("invalid badge_id")
	}

	row, err := h.ledger.AssignBadge(c.Context(), userID, badgeID, req.EarnedDate)
	if err != nil {
		return err
	}

	return utils.Created(c, row, "badge assigned")
}

// UpdateBadgeAssignment re-targets an assignment or corrects its earned
// date.
func (h *BadgeHandler) UpdateBadgeAssignment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid id")
	}

	var req assignBadgeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return apperr.BadRequest("invalid user_id")
	}
	badgeID, err := uuid.Parse(req.BadgeID)
	if err != nil {
		return apperr.BadRequest("invalid badge_id")
	}

	row, err := h.ledger.UpdateBadgeAssignment(c.Context(), id, userID, badgeID, req.EarnedDate)
	if err != nil {
		return err
	}

	return utils.OK(c, row, "badge assignment updated")
}

// RemoveBadgeAssignment deletes an assignment (admin correction).
func (h *BadgeHandler) RemoveBadgeAssignment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid id")
	}

	if err := h.ledger.RemoveBadgeAssignment(c.Context(), id); err != nil {
		return err
	}

	return utils.OK(c, nil, "badge assignment removed")
}

// ListUserBadges returns the badges a user has earned.
func (h *BadgeHandler) ListUserBadges(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return apperr.BadRequest("invalid user id")
	}

	var rows []models.UserRewardBadge
	err = h.db.WithContext(c.Context()).Preload("Badge").
		Where("user_id = ?", userID).
		Order("earned_date desc").
		Find(&rows).Error
	if err != nil {
		return err
	}

	return utils.OK(c, rows, "")
}

func (h *BadgeHandler) badgeNameTaken(c *fiber.Ctx, name string, excludeID uuid.UUID) (bool, error) {
	query := h.db.WithContext(c.Context()).Model(&models.RewardBadge{}).
		Where("LOWER(name) = LOWER(?)", name)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
