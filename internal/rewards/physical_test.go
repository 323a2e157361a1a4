package rewards

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/repos/testutil"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

func TestPhysicalDeliverSnapshotsAddress(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	repo := repos.NewShippingOrderRepo(db, log)
	benefRepo := repos.NewBeneficiaryRepo(db, log)
	handler := NewPhysicalItemHandler(log, repo, benefRepo)

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "physical-snapshot@test.dev")
	reward := testutil.SeedReward(t, ctx, tx, types.RewardKindPhysicalItem, "KIT", map[string]any{
		"item_name": "Wellness Kit",
		"eta_days":  5,
	})
	ur := testutil.SeedUserReward(t, ctx, tx, beneficiary, reward, types.UserRewardStatusClaimed)

	if _, err := handler.Deliver(ctx, tx, ur); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	// A later address change must not rewrite the order's snapshot.
	if err := tx.Model(&types.Beneficiary{}).Where("id = ?", beneficiary.ID).
		UpdateColumn("address_street", "Avenida Nova").Error; err != nil {
		t.Fatalf("update address: %v", err)
	}

	order, err := repo.GetLatest(ctx, tx, beneficiary.ID, reward.ID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	var snapshot types.ShippingAddress
	if err := json.Unmarshal(order.AddressSnapshot, &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.Street != "Rua das Flores" {
		t.Fatalf("snapshot changed with the profile, got %q", snapshot.Street)
	}
}

func TestPhysicalDeliverRequiresAddress(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	handler := NewPhysicalItemHandler(log, repos.NewShippingOrderRepo(db, log), repos.NewBeneficiaryRepo(db, log))

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "physical-noaddr@test.dev")
	if err := tx.Model(&types.Beneficiary{}).Where("id = ?", beneficiary.ID).
		UpdateColumns(map[string]any{"address_street": "", "address_postal_code": ""}).Error; err != nil {
		t.Fatalf("clear address: %v", err)
	}
	reward := testutil.SeedReward(t, ctx, tx, types.RewardKindPhysicalItem, "KIT2", nil)
	ur := testutil.SeedUserReward(t, ctx, tx, beneficiary, reward, types.UserRewardStatusClaimed)

	if _, err := handler.Deliver(ctx, tx, ur); err == nil || !strings.Contains(err.Error(), "shipping address") {
		t.Fatalf("expected address error, got %v", err)
	}
}

func TestPhysicalEveryDeliveryShips(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	repo := repos.NewShippingOrderRepo(db, log)
	handler := NewPhysicalItemHandler(log, repo, repos.NewBeneficiaryRepo(db, log))

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "physical-two@test.dev")
	reward := testutil.SeedReward(t, ctx, tx, types.RewardKindPhysicalItem, "KIT3", nil)
	ur := testutil.SeedUserReward(t, ctx, tx, beneficiary, reward, types.UserRewardStatusClaimed)

	first, err := handler.Deliver(ctx, tx, ur)
	if err != nil {
		t.Fatalf("first deliver: %v", err)
	}
	second, err := handler.Deliver(ctx, tx, ur)
	if err != nil {
		t.Fatalf("second deliver: %v", err)
	}
	if first["order_id"] == second["order_id"] {
		t.Fatal("each delivery must create its own shipping order")
	}

	var count int64
	if err := tx.Model(&types.ShippingOrder{}).
		Where("beneficiary_id = ? AND reward_id = ?", beneficiary.ID, reward.ID).
		Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 orders, got %d", count)
	}
}
