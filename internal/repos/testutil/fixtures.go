package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/types"
)

func SeedBeneficiary(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.Beneficiary {
	tb.Helper()
	b := &types.Beneficiary{
		ID:                uuid.New(),
		Email:             email,
		FullName:          "Ana Souza",
		Phone:             "+55 11 99999-0000",
		AddressStreet:     "Rua das Flores",
		AddressNumber:     "120",
		AddressCity:       "Sao Paulo",
		AddressState:      "SP",
		AddressPostalCode: "01310-100",
	}
	if err := tx.WithContext(ctx).Create(b).Error; err != nil {
		tb.Fatalf("seed beneficiary: %v", err)
	}
	return b
}

func SeedReward(tb testing.TB, ctx context.Context, tx *gorm.DB, kind types.RewardKind, code string, config map[string]any) *types.Reward {
	tb.Helper()
	var raw datatypes.JSON
	if config != nil {
		b, err := json.Marshal(config)
		if err != nil {
			tb.Fatalf("marshal delivery config: %v", err)
		}
		raw = datatypes.JSON(b)
	}
	r := &types.Reward{
		ID:             uuid.New(),
		Code:           code,
		Name:           "Reward " + code,
		Kind:           kind,
		DeliveryConfig: raw,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed reward: %v", err)
	}
	return r
}

func SeedUserReward(tb testing.TB, ctx context.Context, tx *gorm.DB, beneficiary *types.Beneficiary, reward *types.Reward, status types.UserRewardStatus) *types.UserReward {
	tb.Helper()
	now := time.Now().UTC()
	expires := now.AddDate(0, 0, 90)
	ur := &types.UserReward{
		ID:             uuid.New(),
		BeneficiaryID:  beneficiary.ID,
		RewardID:       reward.ID,
		Status:         status,
		RedemptionCode: fmt.Sprintf("RWD-%s", uuid.NewString()[:8]),
		ClaimedAt:      &now,
		ExpiresAt:      &expires,
	}
	if err := tx.WithContext(ctx).Create(ur).Error; err != nil {
		tb.Fatalf("seed user reward: %v", err)
	}
	ur.Reward = reward
	return ur
}

func SeedQuestionnaire(tb testing.TB, ctx context.Context, tx *gorm.DB, beneficiary *types.Beneficiary, scores types.RiskScores, completed bool) *types.HealthQuestionnaire {
	tb.Helper()
	raw, err := json.Marshal(scores)
	if err != nil {
		tb.Fatalf("marshal risk scores: %v", err)
	}
	q := &types.HealthQuestionnaire{
		ID:            uuid.New(),
		BeneficiaryID: beneficiary.ID,
		RiskScores:    datatypes.JSON(raw),
	}
	if completed {
		now := time.Now().UTC()
		q.CompletedAt = &now
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed questionnaire: %v", err)
	}
	return q
}
