package rewards

import (
	"context"
	"testing"
	"time"

	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/repos/testutil"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

func TestServiceUpgradeExtendsActiveGrant(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	repo := repos.NewServiceAccessRepo(db, log)
	benefRepo := repos.NewBeneficiaryRepo(db, log)
	handler := NewServiceUpgradeHandler(log, repo, benefRepo)

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "upgrade-extend@test.dev")
	reward := testutil.SeedReward(t, ctx, tx, types.RewardKindServiceUpgrade, "PREMIUM30", map[string]any{
		"service_type":        "premium",
		"duration_days":       30,
		"features":            map[string]bool{"telehealth": true},
		"priority_scheduling": true,
	})
	ur := testutil.SeedUserReward(t, ctx, tx, beneficiary, reward, types.UserRewardStatusClaimed)

	first, err := handler.Deliver(ctx, tx, ur)
	if err != nil {
		t.Fatalf("first deliver: %v", err)
	}
	if first["extended"] != false {
		t.Fatal("first delivery must create, not extend")
	}
	firstExpiry := first["expires_at"].(time.Time)

	second, err := handler.Deliver(ctx, tx, ur)
	if err != nil {
		t.Fatalf("second deliver: %v", err)
	}
	if second["extended"] != true {
		t.Fatal("second delivery over an active grant must extend")
	}
	secondExpiry := second["expires_at"].(time.Time)

	gained := secondExpiry.Sub(firstExpiry)
	if gained < 29*24*time.Hour || gained > 31*24*time.Hour {
		t.Fatalf("expected roughly 30 days of extension, got %s", gained)
	}

	access, err := repo.GetByBeneficiaryAndService(ctx, tx, beneficiary.ID, "premium")
	if err != nil {
		t.Fatalf("load access: %v", err)
	}
	if !access.ExpiresAt.Equal(secondExpiry) {
		t.Fatalf("stored expiry %v does not match returned %v", access.ExpiresAt, secondExpiry)
	}
}

func TestServiceUpgradeMergesFeatureFlags(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	repo := repos.NewServiceAccessRepo(db, log)
	benefRepo := repos.NewBeneficiaryRepo(db, log)
	handler := NewServiceUpgradeHandler(log, repo, benefRepo)

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "upgrade-merge@test.dev")

	rewardA := testutil.SeedReward(t, ctx, tx, types.RewardKindServiceUpgrade, "UPG-A", map[string]any{
		"service_type": "premium",
		"features":     map[string]bool{"telehealth": true},
	})
	rewardB := testutil.SeedReward(t, ctx, tx, types.RewardKindServiceUpgrade, "UPG-B", map[string]any{
		"service_type": "premium",
		"features":     map[string]bool{"nutrition": true},
	})
	urA := testutil.SeedUserReward(t, ctx, tx, beneficiary, rewardA, types.UserRewardStatusClaimed)
	urB := testutil.SeedUserReward(t, ctx, tx, beneficiary, rewardB, types.UserRewardStatusClaimed)

	if _, err := handler.Deliver(ctx, tx, urA); err != nil {
		t.Fatalf("deliver A: %v", err)
	}
	details, err := handler.Deliver(ctx, tx, urB)
	if err != nil {
		t.Fatalf("deliver B: %v", err)
	}

	features := details["features"].(map[string]bool)
	if !features["telehealth"] || !features["nutrition"] {
		t.Fatalf("expected feature flags to merge, got %v", features)
	}

	loaded, err := benefRepo.GetByID(ctx, tx, beneficiary.ID)
	if err != nil {
		t.Fatalf("load beneficiary: %v", err)
	}
	settings, err := types.DecodeSettings(loaded.Settings)
	if err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if grant, ok := settings.Services["premium"]; !ok || !grant.Active {
		t.Fatalf("expected premium grant mirrored into settings, got %v", settings.Services)
	}
}
