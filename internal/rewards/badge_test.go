package rewards

import (
	"context"
	"strings"
	"testing"

	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/repos/testutil"
	"github.com/vidaplus/onboarding-backend/internal/services"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

func TestBadgeDeliverAwardsOnce(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	badgeRepo := repos.NewBadgeRepo(db, log)
	benefRepo := repos.NewBeneficiaryRepo(db, log)
	ptsRepo := repos.NewPointsTransactionRepo(db, log)
	gamification := services.NewGamificationService(db, log, badgeRepo, benefRepo, ptsRepo)
	handler := NewBadgeHandler(log, badgeRepo, gamification)

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "badge-once@test.dev")
	reward := testutil.SeedReward(t, ctx, tx, types.RewardKindBadge, "WELCOME", map[string]any{
		"badge_slug":   "welcome_aboard",
		"badge_name":   "Welcome Aboard",
		"points_value": 25,
	})
	ur := testutil.SeedUserReward(t, ctx, tx, beneficiary, reward, types.UserRewardStatusClaimed)

	first, err := handler.Deliver(ctx, tx, ur)
	if err != nil {
		t.Fatalf("first deliver: %v", err)
	}
	if first["newly_granted"] != true {
		t.Fatalf("expected first delivery to grant, got %v", first)
	}
	if first["points_awarded"] != 25 {
		t.Fatalf("expected 25 points on grant, got %v", first["points_awarded"])
	}

	second, err := handler.Deliver(ctx, tx, ur)
	if err != nil {
		t.Fatalf("second deliver: %v", err)
	}
	if second["newly_granted"] != false || second["points_awarded"] != 0 {
		t.Fatalf("repeat delivery must be a no-op, got %v", second)
	}

	var loaded types.Beneficiary
	if err := tx.WithContext(ctx).Where("id = ?", beneficiary.ID).First(&loaded).Error; err != nil {
		t.Fatalf("load beneficiary: %v", err)
	}
	if loaded.Points != 25 {
		t.Fatalf("expected balance 25 after double delivery, got %d", loaded.Points)
	}

	badges, err := gamification.BadgesFor(ctx, tx, beneficiary.ID)
	if err != nil {
		t.Fatalf("list badges: %v", err)
	}
	if len(badges) != 1 {
		t.Fatalf("expected exactly one badge grant, got %d", len(badges))
	}
}

func TestBadgeSlugDefaultsToRewardCode(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	badgeRepo := repos.NewBadgeRepo(db, log)
	benefRepo := repos.NewBeneficiaryRepo(db, log)
	ptsRepo := repos.NewPointsTransactionRepo(db, log)
	gamification := services.NewGamificationService(db, log, badgeRepo, benefRepo, ptsRepo)
	handler := NewBadgeHandler(log, badgeRepo, gamification)

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "badge-slug@test.dev")
	reward := testutil.SeedReward(t, ctx, tx, types.RewardKindBadge, "STARTER", nil)
	ur := testutil.SeedUserReward(t, ctx, tx, beneficiary, reward, types.UserRewardStatusClaimed)

	details, err := handler.Deliver(ctx, tx, ur)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if details["badge_slug"] != "reward_STARTER" {
		t.Fatalf("expected fallback slug, got %v", details["badge_slug"])
	}

	status, err := handler.Redeem(ctx, tx, ur, nil)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if status["held"] != true {
		t.Fatalf("expected badge to be held after delivery, got %v", status)
	}
}

func TestBadgeRedeemBeforeDelivery(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	badgeRepo := repos.NewBadgeRepo(db, log)
	benefRepo := repos.NewBeneficiaryRepo(db, log)
	ptsRepo := repos.NewPointsTransactionRepo(db, log)
	gamification := services.NewGamificationService(db, log, badgeRepo, benefRepo, ptsRepo)
	handler := NewBadgeHandler(log, badgeRepo, gamification)

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "badge-early@test.dev")
	reward := testutil.SeedReward(t, ctx, tx, types.RewardKindBadge, "EARLY", map[string]any{
		"badge_slug": "early_bird",
	})
	ur := testutil.SeedUserReward(t, ctx, tx, beneficiary, reward, types.UserRewardStatusClaimed)

	_, err := handler.Redeem(ctx, tx, ur, nil)
	if err == nil {
		t.Fatal("expected redeem before delivery to fail")
	}
	if !strings.Contains(err.Error(), "not delivered") {
		t.Fatalf("unexpected error %v", err)
	}
}
