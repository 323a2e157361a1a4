package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type featureConfig struct {
	Features     []string `json:"features"`
	DurationDays int      `json:"duration_days"`
}

// FeatureUnlockHandler enables a set of features for the beneficiary. A
// feature already unlocked keeps its original UnlockedAt; only a previously
// disabled row is flipped back on.
type FeatureUnlockHandler struct {
	baseHandler
	log       *logger.Logger
	repo      repos.FeatureAccessRepo
	benefRepo repos.BeneficiaryRepo
}

func NewFeatureUnlockHandler(baseLog *logger.Logger, repo repos.FeatureAccessRepo, benefRepo repos.BeneficiaryRepo) *FeatureUnlockHandler {
	return &FeatureUnlockHandler{
		log:       baseLog.With("handler", "FeatureUnlockHandler"),
		repo:      repo,
		benefRepo: benefRepo,
	}
}

func (h *FeatureUnlockHandler) Kind() types.RewardKind { return types.RewardKindFeatureUnlock }

func (h *FeatureUnlockHandler) Deliver(ctx context.Context, tx *gorm.DB, ur *types.UserReward) (map[string]any, error) {
	var cfg featureConfig
	if err := decodeConfig(ur.Reward.DeliveryConfig, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Features) == 0 {
		return nil, fmt.Errorf("no features configured")
	}

	now := time.Now().UTC()
	var expiresAt *time.Time
	if cfg.DurationDays > 0 {
		e := now.AddDate(0, 0, cfg.DurationDays)
		expiresAt = &e
	}

	unlocked := make([]string, 0, len(cfg.Features))
	grants := map[string]types.FeatureGrant{}
	for _, key := range cfg.Features {
		row, created, err := h.repo.GetOrCreate(ctx, tx, &types.FeatureAccess{
			BeneficiaryID: ur.BeneficiaryID,
			FeatureKey:    key,
			UnlockedAt:    now,
			ExpiresAt:     expiresAt,
		})
		if err != nil {
			return nil, fmt.Errorf("unlock %s: %w", key, err)
		}
		if !created && !row.Enabled {
			if err := h.repo.SetEnabled(ctx, tx, row.ID, true); err != nil {
				return nil, err
			}
			row.Enabled = true
		}
		if created {
			unlocked = append(unlocked, key)
		}
		grants[key] = types.FeatureGrant{
			Enabled:    true,
			UnlockedAt: row.UnlockedAt,
			ExpiresAt:  row.ExpiresAt,
		}
	}

	if err := h.benefRepo.MergePermissions(ctx, tx, ur.BeneficiaryID, types.BeneficiaryPermissions{Features: grants}); err != nil {
		return nil, fmt.Errorf("merge permissions: %w", err)
	}

	return map[string]any{
		"features":       cfg.Features,
		"newly_unlocked": unlocked,
	}, nil
}

func (h *FeatureUnlockHandler) Redeem(ctx context.Context, tx *gorm.DB, ur *types.UserReward, data map[string]any) (map[string]any, error) {
	feature, _ := data["feature"].(string)
	now := time.Now().UTC()

	if feature != "" {
		row, err := h.repo.GetByKey(ctx, tx, ur.BeneficiaryID, feature)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("feature %q not unlocked", feature)
			}
			return nil, err
		}
		if !row.Enabled {
			return nil, fmt.Errorf("feature %q is disabled", feature)
		}
		if row.ExpiresAt != nil && now.After(*row.ExpiresAt) {
			return nil, fmt.Errorf("feature %q access expired", feature)
		}
		return map[string]any{
			"feature":     row.FeatureKey,
			"enabled":     true,
			"unlocked_at": row.UnlockedAt,
			"expires_at":  row.ExpiresAt,
		}, nil
	}

	rows, err := h.repo.ListEnabled(ctx, tx, ur.BeneficiaryID)
	if err != nil {
		return nil, err
	}
	features := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if row.ExpiresAt != nil && now.After(*row.ExpiresAt) {
			continue
		}
		features = append(features, map[string]any{
			"feature":     row.FeatureKey,
			"unlocked_at": row.UnlockedAt,
			"expires_at":  row.ExpiresAt,
		})
	}
	return map[string]any{"features": features}, nil
}
