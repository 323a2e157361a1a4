package rewards

import (
	"context"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/repos/testutil"
	"github.com/vidaplus/onboarding-backend/internal/services"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

// newTestService wires a dispatcher whose repos and transactions all run on
// the rollback transaction owned by the test.
func newTestService(t *testing.T, tx *gorm.DB, extra ...Handler) (*Service, repos.UserRewardRepo) {
	t.Helper()
	log := testutil.Logger(t)

	benefRepo := repos.NewBeneficiaryRepo(tx, log)
	rewardRepo := repos.NewRewardRepo(tx, log)
	userRewardRepo := repos.NewUserRewardRepo(tx, log)
	badgeRepo := repos.NewBadgeRepo(tx, log)
	ptsRepo := repos.NewPointsTransactionRepo(tx, log)
	gamification := services.NewGamificationService(tx, log, badgeRepo, benefRepo, ptsRepo)

	handlers := append([]Handler{NewBadgeHandler(log, badgeRepo, gamification)}, extra...)
	svc := NewService(tx, log, userRewardRepo, rewardRepo, benefRepo, ptsRepo, handlers...)
	return svc, userRewardRepo
}

func TestClaimDeliverRedeemLifecycle(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	svc, userRewardRepo := newTestService(t, tx)

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "lifecycle@test.dev")
	reward := testutil.SeedReward(t, ctx, tx, types.RewardKindBadge, "LIFECYCLE", map[string]any{
		"badge_slug": "lifecycle_badge",
	})

	claim, err := svc.Claim(ctx, beneficiary.ID, reward.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claim.Status != types.UserRewardStatusClaimed {
		t.Fatalf("expected claimed status, got %s", claim.Status)
	}
	if !strings.HasPrefix(claim.RedemptionCode, "RWD-") {
		t.Fatalf("unexpected redemption code %q", claim.RedemptionCode)
	}
	if claim.ExpiresAt == nil || time.Until(*claim.ExpiresAt) < 80*24*time.Hour {
		t.Fatalf("expected ~90 day expiry window, got %v", claim.ExpiresAt)
	}

	delivery := svc.Deliver(ctx, claim.ID)
	if !delivery.Success {
		t.Fatalf("deliver failed: %s", delivery.Error)
	}
	stored, err := userRewardRepo.GetByID(ctx, tx, claim.ID)
	if err != nil {
		t.Fatalf("reload claim: %v", err)
	}
	if stored.Status != types.UserRewardStatusDelivered {
		t.Fatalf("expected delivered status, got %s", stored.Status)
	}
	if stored.DeliveredAt == nil {
		t.Fatal("expected delivered_at to be set")
	}
	if len(stored.DeliveryDetails) == 0 {
		t.Fatal("expected delivery details to be recorded")
	}

	// Repeat delivery is allowed and stays delivered.
	if again := svc.Deliver(ctx, claim.ID); !again.Success {
		t.Fatalf("repeat deliver failed: %s", again.Error)
	}

	redemption := svc.Redeem(ctx, claim.RedemptionCode, nil)
	if !redemption.Success {
		t.Fatalf("redeem failed: %s", redemption.Error)
	}
	stored, _ = userRewardRepo.GetByID(ctx, tx, claim.ID)
	if stored.Status != types.UserRewardStatusRedeemed {
		t.Fatalf("expected redeemed status, got %s", stored.Status)
	}
	if stored.RedeemedAt == nil {
		t.Fatal("expected redeemed_at to be set")
	}
}

func TestRedeemRequiresDelivery(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	svc, _ := newTestService(t, tx)

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "redeem-early@test.dev")
	reward := testutil.SeedReward(t, ctx, tx, types.RewardKindBadge, "EARLY", nil)

	claim, err := svc.Claim(ctx, beneficiary.ID, reward.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	result := svc.Redeem(ctx, claim.RedemptionCode, nil)
	if result.Success {
		t.Fatal("redeeming an undelivered reward must fail")
	}
	if !strings.Contains(result.Error, "not been delivered") {
		t.Fatalf("unexpected error %q", result.Error)
	}
}

func TestClaimChecksPointsBalance(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	svc, _ := newTestService(t, tx)
	log := testutil.Logger(t)

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "points-cost@test.dev")
	reward := testutil.SeedReward(t, ctx, tx, types.RewardKindBadge, "PRICY", nil)
	if err := tx.Model(&types.Reward{}).Where("id = ?", reward.ID).UpdateColumn("points_cost", 100).Error; err != nil {
		t.Fatalf("set points cost: %v", err)
	}

	if _, err := svc.Claim(ctx, beneficiary.ID, reward.ID); err == nil || !strings.Contains(err.Error(), "insufficient points") {
		t.Fatalf("expected insufficient points error, got %v", err)
	}

	benefRepo := repos.NewBeneficiaryRepo(tx, log)
	if err := benefRepo.AddPoints(ctx, tx, beneficiary.ID, 150); err != nil {
		t.Fatalf("grant points: %v", err)
	}
	claim, err := svc.Claim(ctx, beneficiary.ID, reward.ID)
	if err != nil {
		t.Fatalf("claim with balance: %v", err)
	}
	if claim.Status != types.UserRewardStatusClaimed {
		t.Fatalf("expected claimed, got %s", claim.Status)
	}

	loaded, err := benefRepo.GetByID(ctx, tx, beneficiary.ID)
	if err != nil {
		t.Fatalf("load beneficiary: %v", err)
	}
	if loaded.Points != 50 {
		t.Fatalf("expected 50 points left after claim, got %d", loaded.Points)
	}
}

type panicHandler struct{ baseHandler }

func (panicHandler) Kind() types.RewardKind { return types.RewardKindPhysicalItem }
func (panicHandler) Deliver(context.Context, *gorm.DB, *types.UserReward) (map[string]any, error) {
	panic("wired wrong")
}
func (panicHandler) Redeem(context.Context, *gorm.DB, *types.UserReward, map[string]any) (map[string]any, error) {
	panic("wired wrong")
}

func TestDeliverRecoversFromHandlerPanic(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	svc, userRewardRepo := newTestService(t, tx, panicHandler{})

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "panic@test.dev")
	reward := testutil.SeedReward(t, ctx, tx, types.RewardKindPhysicalItem, "BOOM", nil)
	ur := testutil.SeedUserReward(t, ctx, tx, beneficiary, reward, types.UserRewardStatusClaimed)

	result := svc.Deliver(ctx, ur.ID)
	if result.Success {
		t.Fatal("expected delivery to fail when the handler panics")
	}
	if !strings.Contains(result.Error, "panicked") {
		t.Fatalf("unexpected error %q", result.Error)
	}

	stored, err := userRewardRepo.GetByID(ctx, tx, ur.ID)
	if err != nil {
		t.Fatalf("reload claim: %v", err)
	}
	if stored.Status != types.UserRewardStatusFailed {
		t.Fatalf("expected failed status after panic, got %s", stored.Status)
	}
}

func TestDeliverMarksExpiredClaims(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	svc, userRewardRepo := newTestService(t, tx)

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "expired@test.dev")
	reward := testutil.SeedReward(t, ctx, tx, types.RewardKindBadge, "EXPIRED", nil)
	ur := testutil.SeedUserReward(t, ctx, tx, beneficiary, reward, types.UserRewardStatusClaimed)

	past := time.Now().UTC().Add(-time.Hour)
	if err := tx.Model(&types.UserReward{}).Where("id = ?", ur.ID).UpdateColumn("expires_at", past).Error; err != nil {
		t.Fatalf("backdate expiry: %v", err)
	}

	result := svc.Deliver(ctx, ur.ID)
	if result.Success {
		t.Fatal("expected expired claim to fail delivery")
	}

	stored, err := userRewardRepo.GetByID(ctx, tx, ur.ID)
	if err != nil {
		t.Fatalf("reload claim: %v", err)
	}
	if stored.Status != types.UserRewardStatusExpired {
		t.Fatalf("expected expired status, got %s", stored.Status)
	}
}
