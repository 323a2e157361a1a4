package rewards

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/services"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type badgeConfig struct {
	Slug        string `json:"badge_slug"`
	Name        string `json:"badge_name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	PointsValue int    `json:"points_value"`
}

// BadgeHandler grants a badge and its point value. Idempotency rides on the
// beneficiary+badge unique constraint: the second delivery finds the grant
// already present and awards nothing.
type BadgeHandler struct {
	baseHandler
	log          *logger.Logger
	badgeRepo    repos.BadgeRepo
	gamification services.GamificationService
}

func NewBadgeHandler(baseLog *logger.Logger, badgeRepo repos.BadgeRepo, gamification services.GamificationService) *BadgeHandler {
	return &BadgeHandler{
		log:          baseLog.With("handler", "BadgeHandler"),
		badgeRepo:    badgeRepo,
		gamification: gamification,
	}
}

func (h *BadgeHandler) Kind() types.RewardKind { return types.RewardKindBadge }

func (h *BadgeHandler) Deliver(ctx context.Context, tx *gorm.DB, ur *types.UserReward) (map[string]any, error) {
	var cfg badgeConfig
	if err := decodeConfig(ur.Reward.DeliveryConfig, &cfg); err != nil {
		return nil, err
	}
	if cfg.Slug == "" {
		cfg.Slug = "reward_" + ur.Reward.Code
	}
	if cfg.Name == "" {
		cfg.Name = ur.Reward.Name
	}

	awarded, err := h.gamification.AwardBadge(ctx, tx, ur.BeneficiaryID, &types.Badge{
		Slug:        cfg.Slug,
		Name:        cfg.Name,
		Description: cfg.Description,
		Icon:        cfg.Icon,
		PointsValue: cfg.PointsValue,
	})
	if err != nil {
		return nil, err
	}

	def, err := h.badgeRepo.GetBySlug(ctx, tx, cfg.Slug)
	if err != nil {
		return nil, fmt.Errorf("load badge: %w", err)
	}

	details := map[string]any{
		"badge_id":   def.ID.String(),
		"badge_slug": def.Slug,
		"badge_name": def.Name,
	}
	if awarded != nil {
		details["newly_granted"] = true
		details["points_awarded"] = awarded.PointsValue
	} else {
		details["newly_granted"] = false
		details["points_awarded"] = 0
	}
	return details, nil
}

// Redeem is a status query: badges are active as soon as they are delivered.
func (h *BadgeHandler) Redeem(ctx context.Context, tx *gorm.DB, ur *types.UserReward, _ map[string]any) (map[string]any, error) {
	var cfg badgeConfig
	if err := decodeConfig(ur.Reward.DeliveryConfig, &cfg); err != nil {
		return nil, err
	}
	if cfg.Slug == "" {
		cfg.Slug = "reward_" + ur.Reward.Code
	}

	def, err := h.badgeRepo.GetBySlug(ctx, tx, cfg.Slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("badge not delivered yet")
		}
		return nil, err
	}
	held, err := h.badgeRepo.Held(ctx, tx, ur.BeneficiaryID, def.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"badge_slug": def.Slug,
		"badge_name": def.Name,
		"held":       held,
	}, nil
}
