package models

import (
	"time"

	"github.com/google/uuid"
)

// BadgeType classifies how a badge is earned.
type BadgeType int

const (
	BadgePointsMilestone BadgeType = 1
	BadgeActivityBased   BadgeType = 2
	BadgeSpecial         BadgeType = 3
)

// Valid reports whether the value is one of the defined badge types.
func (t BadgeType) Valid() bool {
	return t >= BadgePointsMilestone && t <= BadgeSpecial
}

func (t BadgeType) String() string {
	switch t {
	case BadgePointsMilestone:
		return "PointsMilestone"
	case BadgeActivityBased:
		return "ActivityBased"
	case BadgeSpecial:
		return "Special"
	}
	return "Unknown"
}

// RewardBadge is a configurable milestone marker. PointsMilestone badges
// require RequiredPoints > 0, ActivityBased badges RequiredActivities > 0.
type RewardBadge struct {
	BaseModel
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	BadgeType          BadgeType `json:"badge_type"`
	Heirarchy          int       `json:"heirarchy"`
	RequiredPoints     *float64  `json:"required_points"`
	RequiredActivities *int      `json:"required_activities"`
	IsActive           bool      `json:"is_active"`
}

// UserRewardBadge links a user to an earned badge. The (user, badge) pair
// is unique.
type UserRewardBadge struct {
	BaseModel
	UserID     uuid.UUID `gorm:"type:uuid;index:idx_user_badge,unique" json:"user_id"`
	BadgeID    uuid.UUID `gorm:"type:uuid;index:idx_user_badge,unique" json:"badge_id"`
	EarnedDate time.Time `json:"earned_date"`

	Badge *RewardBadge `json:"badge,omitempty"`
}
