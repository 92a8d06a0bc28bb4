package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/example/medirx/internal/ledger"
	"github.com/example/medirx/internal/models"
	"github.com/example/medirx/internal/testutil"
)

func TestRewardDetailsFeed(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	userID := uuid.New()

	older := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	reward := models.PatientReward{
		UserID:                    userID,
		ActivityCode:              "ACT-SPEND",
		ConsumedNonCashablePoints: 5,
	}
	reward.CreatedAt = older
	require.NoError(t, db.Create(&reward).Error)

	conversion := models.RewardPointConversion{
		UserID:          userID,
		FromType:        models.RewardNoncashable,
		ToType:          models.RewardCashable,
		Amount:          10,
		Rate:            1,
		ConvertedPoints: 10,
	}
	conversion.CreatedAt = newer
	require.NoError(t, db.Create(&conversion).Error)

	feed, err := svc.GetRewardDetails(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, feed, 2)

	// Most recent first.
	require.Equal(t, ledger.RecordTypeConversion, feed[0].RecordType)
	require.Equal(t, ledger.RecordTypePatientReward, feed[1].RecordType)

	// Deductions are negative magnitudes, additions positive.
	require.Equal(t, -10.0, feed[0].ConversionDeductionAmount)
	require.Equal(t, 10.0, feed[0].ConversionAdditionAmount)
	require.Equal(t, -5.0, feed[1].ConsumedNonCashablePoints)
}

func TestRewardDetailsIncludesMoneyAmounts(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	userID := uuid.New()

	reward := models.PatientReward{
		UserID:                   userID,
		ActivityCode:             "ACT-CASHOUT",
		ConvertedCashableToMoney: 3,
		EncashedMoney:            7,
	}
	require.NoError(t, db.Create(&reward).Error)

	feed, err := svc.GetRewardDetails(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	require.Equal(t, -3.0, feed[0].ConvertedCashableToMoney)
	require.Equal(t, 7.0, feed[0].EncashedMoney)
}

func TestRewardDetailsScopedToUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	userID := uuid.New()

	require.NoError(t, db.Create(&models.PatientReward{
		UserID:                  uuid.New(),
		EarnedNonCashablePoints: 3,
	}).Error)

	feed, err := svc.GetRewardDetails(context.Background(), userID)
	require.NoError(t, err)
	require.Empty(t, feed)
}

func TestConversionSummary(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	userID := uuid.New()
	seedBalance(t, db, userID, 100, 100, 0)

	_, err := svc.ConvertPoints(context.Background(), userID, models.RewardNoncashable, models.RewardCashable, 10, nil)
	require.NoError(t, err)
	_, err = svc.ConvertPoints(context.Background(), userID, models.RewardNoncashable, models.RewardCashable, 20, nil)
	require.NoError(t, err)
	_, err = svc.ConvertPoints(context.Background(), userID, models.RewardCashable, models.RewardMoney, 50, floatPtr(0.5))
	require.NoError(t, err)

	summary, err := svc.GetConversionSummary(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, summary, 2)

	require.Equal(t, models.RewardNoncashable, summary[0].FromType)
	require.Equal(t, models.RewardCashable, summary[0].ToType)
	require.Equal(t, 2, summary[0].ConversionCount)
	require.Equal(t, 30.0, summary[0].TotalAmount)
	require.Equal(t, 30.0, summary[0].TotalConvertedPoints)

	require.Equal(t, models.RewardCashable, summary[1].FromType)
	require.Equal(t, models.RewardMoney, summary[1].ToType)
	require.Equal(t, 1, summary[1].ConversionCount)
	require.Equal(t, 50.0, summary[1].TotalAmount)
	require.Equal(t, 25.0, summary[1].TotalConvertedPoints)
}

func TestGetBalanceZeroWhenEmpty(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	userID := uuid.New()

	balance, err := svc.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, userID, balance.UserID)
	require.Zero(t, balance.NonCashablePoints)
	require.Zero(t, balance.CashablePoints)
	require.Zero(t, balance.CashedMoney)
}
