// Package ledger applies point-affecting events to user balances and keeps
// the transaction log, balances and badge assignments consistent. Every
// mutation runs in a single database transaction: the balance update and
// its audit row either both commit or neither does.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/medirx/internal/apperr"
	"github.com/example/medirx/internal/models"
)

// Built-in activity codes seeded at startup. Admin-created activities get
// generated codes instead.
const (
	CodeFolderCreated    = "ACT-FOLDER"
	CodeMedicineCompared = "ACT-COMPARE"
)

// Service is the reward ledger. All methods are safe for concurrent use;
// operations on the same user serialize on the UserBalance row.
type Service struct {
	db *gorm.DB
}

// NewService constructs the ledger over a database handle.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Reference ties a recorded activity to the triggering domain object.
type Reference struct {
	PrescriptionID *uuid.UUID
	Description    string
}

// RecordActivity looks up the active reward rule for the activity code,
// applies its point delta to the user's balance and writes the audit
// transaction. A PatientReward row is written when the reference carries a
// prescription.
func (s *Service) RecordActivity(ctx context.Context, userID uuid.UUID, activityCode string, ref Reference) (*models.RewardTransaction, error) {
	var result *models.RewardTransaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rule models.RewardRule
		err := tx.Where("activity_code = ? AND is_active = ?", activityCode, true).
			First(&rule).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("no active reward rule for activity %q", activityCode)
		}
		if err != nil {
			return err
		}

		delta := rule.Points
		if rule.IsDeductible {
			delta = -delta
		}

		balance, err := s.balanceForUpdate(tx, userID)
		if err != nil {
			return err
		}

		if balance.Of(rule.RewardType)+delta < 0 {
			return apperr.Unprocessable("insufficient %s balance for activity %q", rule.RewardType, activityCode)
		}
		balance.Add(rule.RewardType, delta)
		if err := tx.Save(balance).Error; err != nil {
			return err
		}

		trx := &models.RewardTransaction{
			UserID:             userID,
			RewardRuleID:       &rule.ID,
			ActivityCode:       activityCode,
			RewardType:         rule.RewardType,
			Amount:             delta,
			NonCashableBalance: balance.NonCashablePoints,
			CashableBalance:    balance.CashablePoints,
			CashedMoneyBalance: balance.CashedMoney,
			Description:        firstNonEmpty(ref.Description, rule.DisplayText),
		}
		if err := tx.Create(trx).Error; err != nil {
			return err
		}

		if ref.PrescriptionID != nil {
			if err := tx.Create(patientRewardFor(userID, ref.PrescriptionID, activityCode, rule.RewardType, delta, balance)).Error; err != nil {
				return err
			}
		}

		if delta > 0 {
			if err := s.assignMilestones(tx, userID, balance); err != nil {
				return err
			}
		}

		result = trx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ConvertPoints exchanges points between reward types at the given rate
// (1.0 when nil). The source balance is decremented by amount, the target
// incremented by amount*rate, and a conversion row plus its two audit
// transactions are written atomically.
func (s *Service) ConvertPoints(ctx context.Context, userID uuid.UUID, from, to models.RewardType, amount float64, rate *float64) (*models.RewardPointConversion, error) {
	if !from.Valid() || !to.Valid() {
		return nil, apperr.BadRequest("reward type must be Noncashable(1), Cashable(2) or Money(3)")
	}
	if from == to {
		return nil, apperr.Conflict("cannot convert between identical reward types")
	}
	if amount <= 0 {
		return nil, apperr.BadRequest("conversion amount must be positive")
	}

	r := 1.0
	if rate != nil {
		if *rate <= 0 {
			return nil, apperr.BadRequest("conversion rate must be positive")
		}
		r = *rate
	}
	converted := amount * r

	var result *models.RewardPointConversion

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := s.balanceForUpdate(tx, userID)
		if err != nil {
			return err
		}

		if balance.Of(from) < amount {
			return apperr.Unprocessable("insufficient %s balance: have %.2f, need %.2f", from, balance.Of(from), amount)
		}

		balance.Add(from, -amount)
		balance.Add(to, converted)
		if err := tx.Save(balance).Error; err != nil {
			return err
		}

		conversion := &models.RewardPointConversion{
			UserID:          userID,
			FromType:        from,
			ToType:          to,
			Amount:          amount,
			Rate:            r,
			ConvertedPoints: converted,
		}
		if err := tx.Create(conversion).Error; err != nil {
			return err
		}

		// Double-entry audit: one debit, one credit, sharing the balance
		// snapshot after both legs applied.
		legs := []*models.RewardTransaction{
			{UserID: userID, RewardType: from, Amount: -amount, Description: "conversion debit"},
			{UserID: userID, RewardType: to, Amount: converted, Description: "conversion credit"},
		}
		for _, leg := range legs {
			leg.NonCashableBalance = balance.NonCashablePoints
			leg.CashableBalance = balance.CashablePoints
			leg.CashedMoneyBalance = balance.CashedMoney
			if err := tx.Create(leg).Error; err != nil {
				return err
			}
		}

		result = conversion
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AssignBadge awards a badge to a user. Assigning an already-held badge
// fails with a conflict rather than silently succeeding.
func (s *Service) AssignBadge(ctx context.Context, userID, badgeID uuid.UUID, earnedDate *time.Time) (*models.UserRewardBadge, error) {
	var result *models.UserRewardBadge

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		badge, err := s.activeBadge(tx, badgeID)
		if err != nil {
			return err
		}

		assigned, err := s.badgeAlreadyAssigned(tx, userID, badgeID, uuid.Nil)
		if err != nil {
			return err
		}
		if assigned {
			return apperr.Conflict("badge %q already assigned to user", badge.Name)
		}

		when := time.Now()
		if earnedDate != nil {
			when = *earnedDate
		}

		row := &models.UserRewardBadge{UserID: userID, BadgeID: badgeID, EarnedDate: when}
		if err := tx.Create(row).Error; err != nil {
			return err
		}

		result = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateBadgeAssignment re-targets an assignment. The duplicate check runs
// against the new (user, badge) pair but excludes the row itself, so
// touching only the earned date never self-conflicts.
func (s *Service) UpdateBadgeAssignment(ctx context.Context, id, userID, badgeID uuid.UUID, earnedDate *time.Time) (*models.UserRewardBadge, error) {
	var result *models.UserRewardBadge

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.UserRewardBadge
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("badge assignment not found")
			}
			return err
		}

		badge, err := s.activeBadge(tx, badgeID)
		if err != nil {
			return err
		}

		assigned, err := s.badgeAlreadyAssigned(tx, userID, badgeID, id)
		if err != nil {
			return err
		}
		if assigned {
			return apperr.Conflict("badge %q already assigned to user", badge.Name)
		}

		row.UserID = userID
		row.BadgeID = badgeID
		if earnedDate != nil {
			row.EarnedDate = *earnedDate
		}
		if err := tx.Save(&row).Error; err != nil {
			return err
		}

		result = &row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveBadgeAssignment deletes an assignment (admin correction).
func (s *Service) RemoveBadgeAssignment(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.UserRewardBadge{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("badge assignment not found")
	}
	return nil
}

// balanceForUpdate loads (or creates) the user's balance row with a write
// lock so concurrent operations on the same user serialize.
func (s *Service) balanceForUpdate(tx *gorm.DB, userID uuid.UUID) (*models.UserBalance, error) {
	q := tx
	// SQLite serializes writers on its own and rejects FOR UPDATE.
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var balance models.UserBalance
	err := q.Where("user_id = ?", userID).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		balance = models.UserBalance{UserID: userID}
		if err := tx.Create(&balance).Error; err != nil {
			return nil, err
		}
		return &balance, nil
	}
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// assignMilestones awards any active PointsMilestone badge the user now
// qualifies for and does not yet hold. Called after a positive earn inside
// the same transaction.
func (s *Service) assignMilestones(tx *gorm.DB, userID uuid.UUID, balance *models.UserBalance) error {
	totalPoints := balance.NonCashablePoints + balance.CashablePoints

	var badges []models.RewardBadge
	err := tx.Where("badge_type = ? AND is_active = ? AND required_points <= ?",
		models.BadgePointsMilestone, true, totalPoints).
		Find(&badges).Error
	if err != nil {
		return err
	}

	for _, badge := range badges {
		assigned, err := s.badgeAlreadyAssigned(tx, userID, badge.ID, uuid.Nil)
		if err != nil {
			return err
		}
		if assigned {
			continue
		}
		row := &models.UserRewardBadge{UserID: userID, BadgeID: badge.ID, EarnedDate: time.Now()}
		if err := tx.Create(row).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) activeBadge(tx *gorm.DB, badgeID uuid.UUID) (*models.RewardBadge, error) {
	var badge models.RewardBadge
	if err := tx.First(&badge, "id = ?", badgeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("badge not found")
		}
		return nil, err
	}
	if !badge.IsActive {
		return nil, apperr.Conflict("badge %q is not active", badge.Name)
	}
	return &badge, nil
}

// badgeAlreadyAssigned checks the unique (user, badge) pair, excluding
// excludeID so an update never conflicts with the row being updated.
func (s *Service) badgeAlreadyAssigned(tx *gorm.DB, userID, badgeID, excludeID uuid.UUID) (bool, error) {
	q := tx.Model(&models.UserRewardBadge{}).
		Where("user_id = ? AND badge_id = ?", userID, badgeID)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func patientRewardFor(userID uuid.UUID, prescriptionID *uuid.UUID, activityCode string, rt models.RewardType, delta float64, balance *models.UserBalance) *models.PatientReward {
	pr := &models.PatientReward{
		UserID:                 userID,
		PrescriptionID:         prescriptionID,
		ActivityCode:           activityCode,
		TotalNonCashablePoints: balance.NonCashablePoints,
		TotalCashablePoints:    balance.CashablePoints,
	}

	// Consumed values are stored positive; the details feed negates them.
	switch rt {
	case models.RewardNoncashable:
		if delta >= 0 {
			pr.EarnedNonCashablePoints = delta
		} else {
			pr.ConsumedNonCashablePoints = -delta
		}
	case models.RewardCashable:
		if delta >= 0 {
			pr.EarnedCashablePoints = delta
		} else {
			pr.ConsumedCashablePoints = -delta
		}
	case models.RewardMoney:
		if delta >= 0 {
			pr.EncashedMoney = delta
		} else {
			pr.ConvertedCashableToMoney = -delta
		}
	}
	return pr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
