package models

import (
	"time"

	"github.com/google/uuid"
)

// RewardType classifies a point balance. Values are fixed by the public
// conversion API and must not be reordered.
type RewardType int

const (
	RewardNoncashable RewardType = 1
	RewardCashable    RewardType = 2
	RewardMoney       RewardType = 3
)

// Valid reports whether the value is one of the defined reward types.
func (t RewardType) Valid() bool {
	return t >= RewardNoncashable && t <= RewardMoney
}

func (t RewardType) String() string {
	switch t {
	case RewardNoncashable:
		return "Noncashable"
	case RewardCashable:
		return "Cashable"
	case RewardMoney:
		return "Money"
	}
	return "Unknown"
}

// UserActivity defines a rewardable user action and its base point value.
// ActivityCode is generated by the system on create.
type UserActivity struct {
	BaseModel
	ActivityCode  string  `gorm:"uniqueIndex" json:"activity_code"`
	ActivityName  string  `json:"activity_name"`
	ActivityPoint float64 `json:"activity_point"`
	Remarks       string  `json:"remarks"`
}

// RewardRule drives what happens to a balance when an activity occurs.
type RewardRule struct {
	BaseModel
	ActivityCode string     `gorm:"index" json:"activity_code"`
	DisplayText  string     `json:"display_text"`
	RewardType   RewardType `json:"reward_type"`
	Points       float64    `json:"points"`
	IsDeductible bool       `json:"is_deductible"`
	IsActive     bool       `json:"is_active"`
}

// PatientReward is a per-prescription ledger entry. Consumed values are
// stored positive and rendered negative in the details feed.
type PatientReward struct {
	BaseModel
	UserID                    uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	PrescriptionID            *uuid.UUID `gorm:"type:uuid" json:"prescription_id"`
	ActivityCode              string     `json:"activity_code"`
	EarnedNonCashablePoints   float64    `json:"earned_non_cashable_points"`
	ConsumedNonCashablePoints float64    `json:"consumed_non_cashable_points"`
	EarnedCashablePoints      float64    `json:"earned_cashable_points"`
	ConsumedCashablePoints    float64    `json:"consumed_cashable_points"`
	ConvertedCashableToMoney  float64    `json:"converted_cashable_to_money"`
	EncashedMoney             float64    `json:"encashed_money"`
	TotalNonCashablePoints    float64    `json:"total_non_cashable_points"`
	TotalCashablePoints       float64    `json:"total_cashable_points"`
}

// RewardTransaction is an immutable audit row written for every balance
// change, snapshotting the resulting balances.
type RewardTransaction struct {
	BaseModel
	UserID             uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	RewardRuleID       *uuid.UUID `gorm:"type:uuid" json:"reward_rule_id"`
	ActivityCode       string     `json:"activity_code"`
	RewardType         RewardType `json:"reward_type"`
	Amount             float64    `json:"amount"`
	NonCashableBalance float64    `json:"non_cashable_balance"`
	CashableBalance    float64    `json:"cashable_balance"`
	CashedMoneyBalance float64    `json:"cashed_money_balance"`
	Description        string     `json:"description"`
}

// RewardPointConversion records an exchange between reward types.
type RewardPointConversion struct {
	BaseModel
	UserID          uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	FromType        RewardType `json:"from_type"`
	ToType          RewardType `json:"to_type"`
	Amount          float64    `json:"amount"`
	Rate            float64    `json:"rate"`
	ConvertedPoints float64    `json:"converted_points"`
}

// UserBalance is the materialized per-user balance, updated in the same
// transaction as every RewardTransaction write.
type UserBalance struct {
	BaseModel
	UserID            uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	NonCashablePoints float64   `json:"non_cashable_points"`
	CashablePoints    float64   `json:"cashable_points"`
	CashedMoney       float64   `json:"cashed_money"`
}

// Of returns the balance amount for the given reward type.
func (b *UserBalance) Of(t RewardType) float64 {
	switch t {
	case RewardNoncashable:
		return b.NonCashablePoints
	case RewardCashable:
		return b.CashablePoints
	case RewardMoney:
		return b.CashedMoney
	}
	return 0
}

// Add applies a signed delta to the balance of the given reward type.
func (b *UserBalance) Add(t RewardType, delta float64) {
	switch t {
	case RewardNoncashable:
		b.NonCashablePoints += delta
	case RewardCashable:
		b.CashablePoints += delta
	case RewardMoney:
		b.CashedMoney += delta
	}
}

// RewardDetail is one entry of the merged reward feed returned by the
// reward-details query. It is not persisted.
type RewardDetail struct {
	RecordType                string     `json:"record_type"`
	CreatedDate               time.Time  `json:"created_date"`
	ActivityCode              string     `json:"activity_code,omitempty"`
	EarnedNonCashablePoints   float64    `json:"earned_non_cashable_points"`
	ConsumedNonCashablePoints float64    `json:"consumed_non_cashable_points"`
	EarnedCashablePoints      float64    `json:"earned_cashable_points"`
	ConsumedCashablePoints    float64    `json:"consumed_cashable_points"`
	ConvertedCashableToMoney  float64    `json:"converted_cashable_to_money"`
	EncashedMoney             float64    `json:"encashed_money"`
	FromType                  RewardType `json:"from_type,omitempty"`
	ToType                    RewardType `json:"to_type,omitempty"`
	ConversionDeductionAmount float64    `json:"conversion_deduction_amount"`
	ConversionAdditionAmount  float64    `json:"conversion_addition_amount"`
}
