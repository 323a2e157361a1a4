package rewards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type physicalConfig struct {
	ItemName string `json:"item_name"`
	EtaDays  int    `json:"eta_days"`
}

// PhysicalItemHandler creates a shipping order snapshotting the current
// address. Every deliver call ships: claims of physical rewards are not
// de-duplicated.
type PhysicalItemHandler struct {
	baseHandler
	log       *logger.Logger
	repo      repos.ShippingOrderRepo
	benefRepo repos.BeneficiaryRepo
}

func NewPhysicalItemHandler(baseLog *logger.Logger, repo repos.ShippingOrderRepo, benefRepo repos.BeneficiaryRepo) *PhysicalItemHandler {
	return &PhysicalItemHandler{
		log:       baseLog.With("handler", "PhysicalItemHandler"),
		repo:      repo,
		benefRepo: benefRepo,
	}
}

func (h *PhysicalItemHandler) Kind() types.RewardKind { return types.RewardKindPhysicalItem }

func (h *PhysicalItemHandler) Deliver(ctx context.Context, tx *gorm.DB, ur *types.UserReward) (map[string]any, error) {
	cfg := physicalConfig{EtaDays: 7}
	if err := decodeConfig(ur.Reward.DeliveryConfig, &cfg); err != nil {
		return nil, err
	}
	if cfg.ItemName == "" {
		cfg.ItemName = ur.Reward.Name
	}

	beneficiary, err := h.benefRepo.GetByID(ctx, tx, ur.BeneficiaryID)
	if err != nil {
		return nil, fmt.Errorf("load beneficiary: %w", err)
	}
	if beneficiary.AddressStreet == "" || beneficiary.AddressPostalCode == "" {
		return nil, fmt.Errorf("beneficiary has no shipping address")
	}

	snapshot, err := json.Marshal(beneficiary.ShippingAddress())
	if err != nil {
		return nil, fmt.Errorf("snapshot address: %w", err)
	}

	now := time.Now().UTC()
	order := &types.ShippingOrder{
		ID:                uuid.New(),
		BeneficiaryID:     ur.BeneficiaryID,
		RewardID:          ur.RewardID,
		ItemName:          cfg.ItemName,
		AddressSnapshot:   datatypes.JSON(snapshot),
		Status:            types.ShippingStatusPending,
		EstimatedDelivery: now.AddDate(0, 0, cfg.EtaDays),
	}
	if _, err := h.repo.Create(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("create shipping order: %w", err)
	}

	return map[string]any{
		"order_id":           order.ID.String(),
		"item_name":          order.ItemName,
		"status":             string(order.Status),
		"estimated_delivery": order.EstimatedDelivery,
	}, nil
}

func (h *PhysicalItemHandler) Redeem(ctx context.Context, tx *gorm.DB, ur *types.UserReward, _ map[string]any) (map[string]any, error) {
	order, err := h.repo.GetLatest(ctx, tx, ur.BeneficiaryID, ur.RewardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no shipping order for this reward")
		}
		return nil, err
	}
	return map[string]any{
		"order_id":           order.ID.String(),
		"status":             string(order.Status),
		"tracking_code":      order.TrackingCode,
		"estimated_delivery": order.EstimatedDelivery,
	}, nil
}
