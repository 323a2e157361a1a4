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

type upgradeConfig struct {
	ServiceType        string          `json:"service_type"`
	DurationDays       int             `json:"duration_days"`
	Features           map[string]bool `json:"features"`
	PriorityScheduling bool            `json:"priority_scheduling"`
	SpecialistAccess   bool            `json:"specialist_access"`
	DirectMessaging    bool            `json:"direct_messaging"`
}

// ServiceUpgradeHandler grants or extends premium service access. The grant
// is keyed per beneficiary+service_type: a delivery while a grant is still
// active extends its expiry instead of resetting it. Feature flags merge
// into the existing set, never replace it.
type ServiceUpgradeHandler struct {
	baseHandler
	log       *logger.Logger
	repo      repos.ServiceAccessRepo
	benefRepo repos.BeneficiaryRepo
}

func NewServiceUpgradeHandler(baseLog *logger.Logger, repo repos.ServiceAccessRepo, benefRepo repos.BeneficiaryRepo) *ServiceUpgradeHandler {
	return &ServiceUpgradeHandler{
		log:       baseLog.With("handler", "ServiceUpgradeHandler"),
		repo:      repo,
		benefRepo: benefRepo,
	}
}

func (h *ServiceUpgradeHandler) Kind() types.RewardKind { return types.RewardKindServiceUpgrade }

func (h *ServiceUpgradeHandler) Deliver(ctx context.Context, tx *gorm.DB, ur *types.UserReward) (map[string]any, error) {
	cfg := upgradeConfig{ServiceType: "premium", DurationDays: 30}
	if err := decodeConfig(ur.Reward.DeliveryConfig, &cfg); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	duration := time.Duration(cfg.DurationDays) * 24 * time.Hour

	var expiresAt time.Time
	var extended bool
	var mergedFeatures datatypes.JSON

	// The multi-step grant is all-or-nothing.
	err := tx.Transaction(func(inner *gorm.DB) error {
		existing, err := h.repo.GetByBeneficiaryAndServiceForUpdate(ctx, inner, ur.BeneficiaryID, cfg.ServiceType)
		switch {
		case err == nil:
			// Active grants extend from their current expiry; lapsed ones
			// restart from now.
			base := now
			if existing.ExpiresAt.After(now) {
				base = existing.ExpiresAt
				extended = true
			}
			expiresAt = base.Add(duration)
			mergedFeatures, err = mergeFeatureFlags(existing.Features, cfg.Features)
			if err != nil {
				return err
			}
			if err := h.repo.Extend(ctx, inner, existing.ID, expiresAt, mergedFeatures); err != nil {
				return fmt.Errorf("extend service access: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			expiresAt = now.Add(duration)
			mergedFeatures, err = mergeFeatureFlags(nil, cfg.Features)
			if err != nil {
				return err
			}
			if _, err := h.repo.Create(ctx, inner, &types.ServiceAccess{
				ID:            uuid.New(),
				BeneficiaryID: ur.BeneficiaryID,
				ServiceType:   cfg.ServiceType,
				Features:      mergedFeatures,
				StartsAt:      now,
				ExpiresAt:     expiresAt,
				Active:        true,
			}); err != nil {
				return fmt.Errorf("create service access: %w", err)
			}
		default:
			return err
		}

		patch := types.BeneficiarySettings{
			Services: map[string]types.GrantInfo{
				cfg.ServiceType: {Active: true, ExpiresAt: &expiresAt},
			},
		}
		if cfg.PriorityScheduling {
			patch.Scheduling = &types.SchedulingSettings{PriorityScheduling: true}
			patch.Priority = &types.PrioritySettings{Enabled: true, ExpiresAt: &expiresAt}
		}
		if cfg.SpecialistAccess {
			patch.Specialists = &types.SpecialistSettings{SpecialistAccess: true}
		}
		if cfg.DirectMessaging {
			patch.Messaging = &types.MessagingSettings{DirectChannel: true}
		}
		if err := h.benefRepo.MergeSettings(ctx, inner, ur.BeneficiaryID, patch); err != nil {
			return fmt.Errorf("merge beneficiary settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var featureMap map[string]bool
	_ = json.Unmarshal(mergedFeatures, &featureMap)
	return map[string]any{
		"service_type": cfg.ServiceType,
		"expires_at":   expiresAt,
		"extended":     extended,
		"features":     featureMap,
	}, nil
}

func (h *ServiceUpgradeHandler) Redeem(ctx context.Context, tx *gorm.DB, ur *types.UserReward, data map[string]any) (map[string]any, error) {
	cfg := upgradeConfig{ServiceType: "premium"}
	if err := decodeConfig(ur.Reward.DeliveryConfig, &cfg); err != nil {
		return nil, err
	}

	access, err := h.repo.GetByBeneficiaryAndService(ctx, tx, ur.BeneficiaryID, cfg.ServiceType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("service upgrade not delivered yet")
		}
		return nil, err
	}
	now := time.Now().UTC()
	if now.After(access.ExpiresAt) {
		return nil, fmt.Errorf("service access expired")
	}

	action, _ := data["action"].(string)
	if action == "" {
		action = "access"
	}
	switch action {
	case "schedule":
		return map[string]any{
			"service_type": access.ServiceType,
			"action":       "schedule",
			"message":      "priority scheduling window opened",
			"expires_at":   access.ExpiresAt,
		}, nil
	case "access":
		var featureMap map[string]bool
		_ = json.Unmarshal(access.Features, &featureMap)
		return map[string]any{
			"service_type": access.ServiceType,
			"action":       "access",
			"features":     featureMap,
			"expires_at":   access.ExpiresAt,
		}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
}

func mergeFeatureFlags(existing datatypes.JSON, incoming map[string]bool) (datatypes.JSON, error) {
	merged := map[string]bool{}
	if len(existing) > 0 && string(existing) != "null" {
		if err := json.Unmarshal(existing, &merged); err != nil {
			return nil, fmt.Errorf("decode features: %w", err)
		}
	}
	for k, v := range incoming {
		if v {
			merged[k] = true
		} else if _, ok := merged[k]; !ok {
			merged[k] = false
		}
	}
	encoded, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}
