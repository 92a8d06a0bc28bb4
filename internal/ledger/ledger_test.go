package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/medirx/internal/apperr"
	"github.com/example/medirx/internal/ledger"
	"github.com/example/medirx/internal/models"
	"github.com/example/medirx/internal/testutil"
)

func requireStatus(t *testing.T, err error, code int) {
	t.Helper()
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Status())
}

func seedBalance(t *testing.T, db *gorm.DB, userID uuid.UUID, nonCashable, cashable, money float64) {
	t.Helper()
	require.NoError(t, db.Create(&models.UserBalance{
		UserID:            userID,
		NonCashablePoints: nonCashable,
		CashablePoints:    cashable,
		CashedMoney:       money,
	}).Error)
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestConvertPointsValidation(t *testing.T) {
	svc := ledger.NewService(testutil.NewTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.ConvertPoints(ctx, userID, models.RewardCashable, models.RewardCashable, 10, nil)
	requireStatus(t, err, 409)

	_, err = svc.ConvertPoints(ctx, userID, models.RewardNoncashable, models.RewardCashable, 0, nil)
	requireStatus(t, err, 400)

	_, err = svc.ConvertPoints(ctx, userID, models.RewardNoncashable, models.RewardCashable, -5, nil)
	requireStatus(t, err, 400)

	_, err = svc.ConvertPoints(ctx, userID, models.RewardType(0), models.RewardCashable, 10, nil)
	requireStatus(t, err, 400)

	_, err = svc.ConvertPoints(ctx, userID, models.RewardNoncashable, models.RewardType(7), 10, nil)
	requireStatus(t, err, 400)
}

func TestConvertPointsDefaultRate(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	userID := uuid.New()
	seedBalance(t, db, userID, 100, 0, 0)

	conversion, err := svc.ConvertPoints(context.Background(), userID, models.RewardNoncashable, models.RewardCashable, 10, nil)
	require.NoError(t, err)
	require.Equal(t, 1.0, conversion.Rate)
	require.Equal(t, 10.0, conversion.ConvertedPoints)

	var balance models.UserBalance
	require.NoError(t, db.First(&balance, "user_id = ?", userID).Error)
	require.Equal(t, 90.0, balance.NonCashablePoints)
	require.Equal(t, 10.0, balance.CashablePoints)

	var transactions int64
	require.NoError(t, db.Model(&models.RewardTransaction{}).
		Where("user_id = ?", userID).Count(&transactions).Error)
	require.Equal(t, int64(2), transactions)
}

func TestConvertPointsExplicitRate(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	userID := uuid.New()
	seedBalance(t, db, userID, 0, 200, 0)

	conversion, err := svc.ConvertPoints(context.Background(), userID, models.RewardCashable, models.RewardMoney, 100, floatPtr(0.5))
	require.NoError(t, err)
	require.Equal(t, 50.0, conversion.ConvertedPoints)

	var balance models.UserBalance
	require.NoError(t, db.First(&balance, "user_id = ?", userID).Error)
	require.Equal(t, 100.0, balance.CashablePoints)
	require.Equal(t, 50.0, balance.CashedMoney)
}

func TestConvertPointsInsufficientBalance(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	userID := uuid.New()
	seedBalance(t, db, userID, 5, 0, 0)

	_, err := svc.ConvertPoints(context.Background(), userID, models.RewardNoncashable, models.RewardCashable, 10, nil)
	requireStatus(t, err, 422)

	// Nothing committed.
	var balance models.UserBalance
	require.NoError(t, db.First(&balance, "user_id = ?", userID).Error)
	require.Equal(t, 5.0, balance.NonCashablePoints)

	var conversions int64
	require.NoError(t, db.Model(&models.RewardPointConversion{}).Count(&conversions).Error)
	require.Zero(t, conversions)
}

func TestRecordActivityEarn(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	userID := uuid.New()

	require.NoError(t, db.Create(&models.RewardRule{
		ActivityCode: "ACT-TEST",
		DisplayText:  "test activity",
		RewardType:   models.RewardNoncashable,
		Points:       15,
		IsActive:     true,
	}).Error)

	prescriptionID := uuid.New()
	trx, err := svc.RecordActivity(context.Background(), userID, "ACT-TEST", ledger.Reference{
		PrescriptionID: &prescriptionID,
	})
	require.NoError(t, err)
	require.Equal(t, 15.0, trx.Amount)
	require.Equal(t, 15.0, trx.NonCashableBalance)

	var balance models.UserBalance
	require.NoError(t, db.First(&balance, "user_id = ?", userID).Error)
	require.Equal(t, 15.0, balance.NonCashablePoints)

	var reward models.PatientReward
	require.NoError(t, db.First(&reward, "user_id = ?", userID).Error)
	require.Equal(t, 15.0, reward.EarnedNonCashablePoints)
	require.Equal(t, 15.0, reward.TotalNonCashablePoints)
	require.NotNil(t, reward.PrescriptionID)
	require.Equal(t, prescriptionID, *reward.PrescriptionID)
}

func TestRecordActivityDeduct(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	userID := uuid.New()
	seedBalance(t, db, userID, 12, 0, 0)

	require.NoError(t, db.Create(&models.RewardRule{
		ActivityCode: "ACT-SPEND",
		RewardType:   models.RewardNoncashable,
		Points:       5,
		IsDeductible: true,
		IsActive:     true,
	}).Error)

	trx, err := svc.RecordActivity(context.Background(), userID, "ACT-SPEND", ledger.Reference{})
	require.NoError(t, err)
	require.Equal(t, -5.0, trx.Amount)
	require.Equal(t, 7.0, trx.NonCashableBalance)

	_, err = svc.RecordActivity(context.Background(), userID, "ACT-SPEND", ledger.Reference{})
	require.NoError(t, err)

	// Deducting below zero is refused and nothing is written.
	_, err = svc.RecordActivity(context.Background(), userID, "ACT-SPEND", ledger.Reference{})
	requireStatus(t, err, 422)

	var balance models.UserBalance
	require.NoError(t, db.First(&balance, "user_id = ?", userID).Error)
	require.Equal(t, 2.0, balance.NonCashablePoints)
}

func TestRecordActivityRuleNotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)

	_, err := svc.RecordActivity(context.Background(), uuid.New(), "ACT-MISSING", ledger.Reference{})
	requireStatus(t, err, 404)

	require.NoError(t, db.Create(&models.RewardRule{
		ActivityCode: "ACT-OFF",
		RewardType:   models.RewardNoncashable,
		Points:       5,
		IsActive:     false,
	}).Error)

	_, err = svc.RecordActivity(context.Background(), uuid.New(), "ACT-OFF", ledger.Reference{})
	requireStatus(t, err, 404)
}

func TestAssignBadgeDuplicate(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	userID := uuid.New()

	badge := models.RewardBadge{
		Name:           "Gold",
		BadgeType:      models.BadgePointsMilestone,
		Heirarchy:      1,
		RequiredPoints: floatPtr(500),
		IsActive:       true,
	}
	require.NoError(t, db.Create(&badge).Error)

	row, err := svc.AssignBadge(context.Background(), userID, badge.ID, nil)
	require.NoError(t, err)
	require.False(t, row.EarnedDate.IsZero())

	_, err = svc.AssignBadge(context.Background(), userID, badge.ID, nil)
	requireStatus(t, err, 409)

	var count int64
	require.NoError(t, db.Model(&models.UserRewardBadge{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestAssignBadgeMissingOrInactive(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)

	_, err := svc.AssignBadge(context.Background(), uuid.New(), uuid.New(), nil)
	requireStatus(t, err, 404)

	badge := models.RewardBadge{
		Name:      "Retired",
		BadgeType: models.BadgeSpecial,
		Heirarchy: 9,
		IsActive:  false,
	}
	require.NoError(t, db.Create(&badge).Error)

	_, err = svc.AssignBadge(context.Background(), uuid.New(), badge.ID, nil)
	requireStatus(t, err, 409)
}

func TestUpdateBadgeAssignmentExcludesSelf(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	userID := uuid.New()

	badge := models.RewardBadge{
		Name:               "Streak",
		BadgeType:          models.BadgeActivityBased,
		Heirarchy:          2,
		RequiredActivities: intPtr(7),
		IsActive:           true,
	}
	require.NoError(t, db.Create(&badge).Error)

	row, err := svc.AssignBadge(context.Background(), userID, badge.ID, nil)
	require.NoError(t, err)

	// Correcting only the earned date must not conflict with the row
	// itself.
	newDate := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	updated, err := svc.UpdateBadgeAssignment(context.Background(), row.ID, userID, badge.ID, &newDate)
	require.NoError(t, err)
	require.True(t, updated.EarnedDate.Equal(newDate))
}

func TestUpdateBadgeAssignmentConflictsWithOtherRow(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	userID := uuid.New()

	first := models.RewardBadge{Name: "First", BadgeType: models.BadgeSpecial, Heirarchy: 1, IsActive: true}
	second := models.RewardBadge{Name: "Second", BadgeType: models.BadgeSpecial, Heirarchy: 2, IsActive: true}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&second).Error)

	_, err := svc.AssignBadge(context.Background(), userID, first.ID, nil)
	require.NoError(t, err)
	rowTwo, err := svc.AssignBadge(context.Background(), userID, second.ID, nil)
	require.NoError(t, err)

	// Re-targeting the second assignment onto the already-held first badge
	// must conflict.
	_, err = svc.UpdateBadgeAssignment(context.Background(), rowTwo.ID, userID, first.ID, nil)
	requireStatus(t, err, 409)
}

func TestMilestoneBadgeAutoAssigned(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	userID := uuid.New()

	badge := models.RewardBadge{
		Name:           "Bronze",
		BadgeType:      models.BadgePointsMilestone,
		Heirarchy:      3,
		RequiredPoints: floatPtr(10),
		IsActive:       true,
	}
	require.NoError(t, db.Create(&badge).Error)

	require.NoError(t, db.Create(&models.RewardRule{
		ActivityCode: "ACT-EARN",
		RewardType:   models.RewardNoncashable,
		Points:       10,
		IsActive:     true,
	}).Error)

	_, err := svc.RecordActivity(context.Background(), userID, "ACT-EARN", ledger.Reference{})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.UserRewardBadge{}).
		Where("user_id = ? AND badge_id = ?", userID, badge.ID).
		Count(&count).Error)
	require.Equal(t, int64(1), count)

	// Earning again does not duplicate the badge.
	_, err = svc.RecordActivity(context.Background(), userID, "ACT-EARN", ledger.Reference{})
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.UserRewardBadge{}).
		Where("user_id = ? AND badge_id = ?", userID, badge.ID).
		Count(&count).Error)
	require.Equal(t, int64(1), count)
}
