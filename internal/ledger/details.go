package ledger

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/medirx/internal/models"
)

// Feed record types.
const (
	RecordTypePatientReward = "PatientReward"
	RecordTypeConversion    = "Conversion"
)

// GetBalance returns the user's current balance, zero-valued when the user
// has no ledger history yet.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error) {
	var balance models.UserBalance
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserBalance{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// GetRewardDetails merges the user's PatientReward rows and conversions
// into one chronological feed, most recent first. Deductions are rendered
// as negative magnitudes, additions as positive ones.
func (s *Service) GetRewardDetails(ctx context.Context, userID uuid.UUID) ([]models.RewardDetail, error) {
	db := s.db.WithContext(ctx)

	var rewards []models.PatientReward
	if err := db.Where("user_id = ?", userID).Order("created_at asc").Find(&rewards).Error; err != nil {
		return nil, err
	}

	var conversions []models.RewardPointConversion
	if err := db.Where("user_id = ?", userID).Order("created_at asc").Find(&conversions).Error; err != nil {
		return nil, err
	}

	feed := make([]models.RewardDetail, 0, len(rewards)+len(conversions))
	for _, r := range rewards {
		feed = append(feed, models.RewardDetail{
			RecordType:                RecordTypePatientReward,
			CreatedDate:               r.CreatedAt,
			ActivityCode:              r.ActivityCode,
			EarnedNonCashablePoints:   math.Abs(r.EarnedNonCashablePoints),
			ConsumedNonCashablePoints: -math.Abs(r.ConsumedNonCashablePoints),
			EarnedCashablePoints:      math.Abs(r.EarnedCashablePoints),
			ConsumedCashablePoints:    -math.Abs(r.ConsumedCashablePoints),
			ConvertedCashableToMoney:  -math.Abs(r.ConvertedCashableToMoney),
			EncashedMoney:             math.Abs(r.EncashedMoney),
		})
	}
	for _, c := range conversions {
		feed = append(feed, models.RewardDetail{
			RecordType:                RecordTypeConversion,
			CreatedDate:               c.CreatedAt,
			FromType:                  c.FromType,
			ToType:                    c.ToType,
			ConversionDeductionAmount: -math.Abs(c.Amount),
			ConversionAdditionAmount:  math.Abs(c.ConvertedPoints),
		})
	}

	// Stable: ties keep insertion order.
	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].CreatedDate.After(feed[j].CreatedDate)
	})

	return feed, nil
}

// ConversionSummary aggregates a user's conversions for one (from, to)
// type pair.
type ConversionSummary struct {
	FromType             models.RewardType `json:"from_type"`
	ToType               models.RewardType `json:"to_type"`
	ConversionCount      int               `json:"conversion_count"`
	TotalAmount          float64           `json:"total_amount"`
	TotalConvertedPoints float64           `json:"total_converted_points"`
}

// GetConversionSummary returns per-type-pair conversion totals.
func (s *Service) GetConversionSummary(ctx context.Context, userID uuid.UUID) ([]ConversionSummary, error) {
	var conversions []models.RewardPointConversion
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&conversions).Error
	if err != nil {
		return nil, err
	}

	type pair struct{ from, to models.RewardType }
	grouped := make(map[pair]*ConversionSummary)
	for _, c := range conversions {
		key := pair{c.FromType, c.ToType}
		sum, ok := grouped[key]
		if !ok {
			sum = &ConversionSummary{FromType: c.FromType, ToType: c.ToType}
			grouped[key] = sum
		}
		sum.ConversionCount++
		sum.TotalAmount += c.Amount
		sum.TotalConvertedPoints += c.ConvertedPoints
	}

	summaries := make([]ConversionSummary, 0, len(grouped))
	for _, sum := range grouped {
		summaries = append(summaries, *sum)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].FromType != summaries[j].FromType {
			return summaries[i].FromType < summaries[j].FromType
		}
		return summaries[i].ToType < summaries[j].ToType
	})

	return summaries, nil
}
