package rewards

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/repos/testutil"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

func TestDigitalDeliverIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	repo := repos.NewDigitalAccessRepo(db, log)
	handler := NewDigitalItemHandler(log, repo, "https://dl.test.dev")

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "digital-idem@test.dev")
	reward := testutil.SeedReward(t, ctx, tx, types.RewardKindDigitalItem, "DIG-A", map[string]any{
		"report_type": "health_report",
		"valid_days":  30,
	})
	ur := testutil.SeedUserReward(t, ctx, tx, beneficiary, reward, types.UserRewardStatusClaimed)

	first, err := handler.Deliver(ctx, tx, ur)
	if err != nil {
		t.Fatalf("first deliver: %v", err)
	}
	if first["newly_created"] != true {
		t.Fatal("expected first delivery to create the access record")
	}

	second, err := handler.Deliver(ctx, tx, ur)
	if err != nil {
		t.Fatalf("second deliver: %v", err)
	}
	if second["newly_created"] != false {
		t.Fatal("expected repeat delivery to reuse the access record")
	}
	if first["download_token"] != second["download_token"] {
		t.Fatalf("download token changed on repeat delivery: %v -> %v",
			first["download_token"], second["download_token"])
	}
}

func TestDigitalRedeemDownloadCounts(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	repo := repos.NewDigitalAccessRepo(db, log)
	handler := NewDigitalItemHandler(log, repo, "https://dl.test.dev")

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "digital-dl@test.dev")
	reward := testutil.SeedReward(t, ctx, tx, types.RewardKindDigitalItem, "DIG-B", map[string]any{
		"report_type": "wellness_plan",
	})
	ur := testutil.SeedUserReward(t, ctx, tx, beneficiary, reward, types.UserRewardStatusDelivered)

	if _, err := handler.Deliver(ctx, tx, ur); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	out, err := handler.Redeem(ctx, tx, ur, map[string]any{"action": "download"})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	url, _ := out["download_url"].(string)
	if !strings.HasPrefix(url, "https://dl.test.dev/d/") {
		t.Fatalf("unexpected download url %q", url)
	}
	if out["download_count"] != 1 {
		t.Fatalf("expected download_count 1, got %v", out["download_count"])
	}

	out, err = handler.Redeem(ctx, tx, ur, map[string]any{"action": "download"})
	if err != nil {
		t.Fatalf("second download: %v", err)
	}
	if out["download_count"] != 2 {
		t.Fatalf("expected download_count 2, got %v", out["download_count"])
	}

	access, err := repo.GetByBeneficiaryAndReward(ctx, tx, beneficiary.ID, reward.ID)
	if err != nil {
		t.Fatalf("reload access: %v", err)
	}
	if access.DownloadCount != 2 {
		t.Fatalf("stored download count %d, want 2", access.DownloadCount)
	}
}

func TestDigitalRedeemExpiryAndRegenerate(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	repo := repos.NewDigitalAccessRepo(db, log)
	handler := NewDigitalItemHandler(log, repo, "")

	beneficiary := testutil.SeedBeneficiary(t, ctx, tx, "digital-exp@test.dev")
	reward := testutil.SeedReward(t, ctx, tx, types.RewardKindDigitalItem, "DIG-C", nil)
	ur := testutil.SeedUserReward(t, ctx, tx, beneficiary, reward, types.UserRewardStatusDelivered)

	if _, err := handler.Deliver(ctx, tx, ur); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	access, err := repo.GetByBeneficiaryAndReward(ctx, tx, beneficiary.ID, reward.ID)
	if err != nil {
		t.Fatalf("load access: %v", err)
	}
	if err := tx.Model(&types.DigitalAccess{}).Where("id = ?", access.ID).
		UpdateColumn("expires_at", time.Now().UTC().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("backdate expiry: %v", err)
	}

	if _, err := handler.Redeem(ctx, tx, ur, map[string]any{"action": "download"}); err == nil {
		t.Fatal("expected expired download to be rejected")
	}

	// Preview still works after expiry and reports it.
	out, err := handler.Redeem(ctx, tx, ur, map[string]any{"action": "preview"})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if out["expired"] != true {
		t.Fatal("expected preview to flag expiry")
	}

	out, err = handler.Redeem(ctx, tx, ur, map[string]any{"action": "regenerate"})
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	newPath, _ := out["asset_path"].(string)
	if newPath == "" || newPath == access.AssetPath {
		t.Fatalf("expected a fresh asset path, got %q", newPath)
	}

	if _, err := handler.Redeem(ctx, tx, ur, map[string]any{"action": "shred"}); err == nil {
		t.Fatal("expected unknown action to be rejected")
	}
}
