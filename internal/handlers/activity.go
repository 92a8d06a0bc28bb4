package handlers

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/medirx/internal/apperr"
	"github.com/example/medirx/internal/models"
	"github.com/example/medirx/internal/utils"
)

// ActivityHandler manages reward configuration: user activities and the
// rules that fire when they occur. Admin-only.
type ActivityHandler struct {
	db *gorm.DB
}

// NewActivityHandler constructs ActivityHandler.
func NewActivityHandler(db *gorm.DB) *ActivityHandler {
	return &ActivityHandler{db: db}
}

// Activity endpoints

type activityRequest struct {
	ActivityName  string  `json:"activity_name"`
	ActivityPoint float64 `json:"activity_point"`
	Remarks       string  `json:"remarks"`
}

func (r *activityRequest) validate() error {
	if r.ActivityName == "" {
		return apperr.BadRequest("activity_name is required")
	}
	if r.ActivityPoint < 0 {
		return apperr.BadRequest("activity_point cannot be negative")
	}
	return nil
}

// ListActivities returns paginated activities.
func (h *ActivityHandler) ListActivities(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c, "created_at", "created_at", "activity_name", "activity_point")

	query := h.db.WithContext(c.Context()).Model(&models.UserActivity{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var activities []models.UserActivity
	if err := pg.Apply(query).Find(&activities).Error; err != nil {
		return err
	}

	return utils.Paged(c, activities, total, pg, "")
}

// CreateActivity creates an activity. The activity code is generated by
// the system, never taken from the request.
func (h *ActivityHandler) CreateActivity(c *fiber.Ctx) error {
	var req activityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	taken, err := h.activityNameTaken(c, req.ActivityName, uuid.Nil)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("activity %q already exists", req.ActivityName)
	}

	code, err := generateActivityCode()
	if err != nil {
		return apperr.Internal(err)
	}

	activity := models.UserActivity{
		ActivityCode:  code,
		ActivityName:  req.ActivityName,
		ActivityPoint: req.ActivityPoint,
		Remarks:       req.Remarks,
	}

	if err := h.db.WithContext(c.Context()).Create(&activity).Error; err != nil {
		return err
	}

	return utils.Created(c, activity, "activity created")
}

// UpdateActivity updates an activity's name, points or remarks. The code
// is immutable.
func (h *ActivityHandler) UpdateActivity(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid id")
	}

	var activity models.UserActivity
	if err := h.db.WithContext(c.Context()).First(&activity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("activity not found")
		}
		return err
	}

	var req activityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	taken, err := h.activityNameTaken(c, req.ActivityName, activity.ID)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("activity %q already exists", req.ActivityName)
	}

	activity.ActivityName = req.ActivityName
	activity.ActivityPoint = req.ActivityPoint
	activity.Remarks = req.Remarks

	if err := h.db.WithContext(c.Context()).Save(&activity).Error; err != nil {
		return err
	}

	return utils.OK(c, activity, "activity updated")
}

// DeleteActivity removes an activity that no rule references.
func (h *ActivityHandler) DeleteActivity(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid id")
	}

	var activity models.UserActivity
	if err := h.db.WithContext(c.Context()).First(&activity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("activity not found")
		}
		return err
	}

	var rules int64
	if err := h.db.WithContext(c.Context()).Model(&models.RewardRule{}).
		Where("activity_code = ?", activity.ActivityCode).
		Count(&rules).Error; err != nil {
		return err
	}
	if rules > 0 {
		return apperr.Conflict("activity is referenced by %d reward rule(s)", rules)
	}

	if err := h.db.WithContext(c.Context()).Delete(&activity).Error; err != nil {
		return err
	}

	return utils.OK(c, nil, "activity deleted")
}

// Reward rule endpoints

type rewardRuleRequest struct {
	ActivityCode string            `json:"activity_code"`
	DisplayText  string            `json:"display_text"`
	RewardType   models.RewardType `json:"reward_type"`
	Points       float64           `json:"points"`
	IsDeductible bool              `json:"is_deductible"`
	IsActive     *bool             `json:"is_active"`
}

// ListRewardRules returns paginated reward rules.
func (h *ActivityHandler) ListRewardRules(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c, "created_at", "created_at", "activity_code", "points")

	query := h.db.WithContext(c.Context()).Model(&models.RewardRule{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var rules []models.RewardRule
	if err := pg.Apply(query).Find(&rules).Error; err != nil {
		return err
	}

	return utils.Paged(c, rules, total, pg, "")
}

// CreateRewardRule creates a rule for an existing activity.
func (h *ActivityHandler) CreateRewardRule(c *fiber.Ctx) error {
	var req rewardRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	if !req.RewardType.Valid() {
		return apperr.BadRequest("reward_type must be Noncashable(1), Cashable(2) or Money(3)")
	}
	if req.Points <= 0 {
		return apperr.BadRequest("points must be positive")
	}

	var count int64
	if err := h.db.WithContext(c.Context()).Model(&models.UserActivity{}).
		Where("activity_code = ?", req.ActivityCode).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.NotFound("no activity with code %q", req.ActivityCode)
	}

	rule := models.RewardRule{
		ActivityCode: req.ActivityCode,
		DisplayText:  req.DisplayText,
		RewardType:   req.RewardType,
		Points:       req.Points,
		IsDeductible: req.IsDeductible,
		IsActive:     true,
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if err := h.db.WithContext(c.Context()).Create(&rule).Error; err != nil {
		return err
	}

	return utils.Created(c, rule, "reward rule created")
}

// UpdateRewardRule updates a rule.
func (h *ActivityHandler) UpdateRewardRule(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid id")
	}

	var rule models.RewardRule
	if err := h.db.WithContext(c.Context()).First(&rule, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("reward rule not found")
		}
		return err
	}

	var req rewardRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if !req.RewardType.Valid() {
		return apperr.BadRequest("reward_type must be Noncashable(1), Cashable(2) or Money(3)")
	}
	if req.Points <= 0 {
		return apperr.BadRequest("points must be positive")
	}

	rule.DisplayText = req.DisplayText
	rule.RewardType = req.RewardType
	rule.Points = req.Points
	rule.IsDeductible = req.IsDeductible
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if err := h.db.WithContext(c.Context()).Save(&rule).Error; err != nil {
		return err
	}

	return utils.OK(c, rule, "reward rule updated")
}

func (h *ActivityHandler) activityNameTaken(c *fiber.Ctx, name string, excludeID uuid.UUID) (bool, error) {
	query := h.db.WithContext(c.Context()).Model(&models.UserActivity{}).
		Where("LOWER(activity_name) = LOWER(?)", name)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func generateActivityCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ACT-%06d", n.Int64()), nil
}
