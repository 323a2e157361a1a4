package rewards

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type priorityConfig struct {
	Services     []string `json:"services"`
	Level        string   `json:"level"`
	DurationDays int      `json:"duration_days"`
}

// PriorityAccessHandler creates a new time-boxed grant on every delivery;
// redemption selects the highest-level active grant covering the requested
// service.
type PriorityAccessHandler struct {
	baseHandler
	log       *logger.Logger
	repo      repos.PriorityAccessRepo
	benefRepo repos.BeneficiaryRepo
}

func NewPriorityAccessHandler(baseLog *logger.Logger, repo repos.PriorityAccessRepo, benefRepo repos.BeneficiaryRepo) *PriorityAccessHandler {
	return &PriorityAccessHandler{
		log:       baseLog.With("handler", "PriorityAccessHandler"),
		repo:      repo,
		benefRepo: benefRepo,
	}
}

func (h *PriorityAccessHandler) Kind() types.RewardKind { return types.RewardKindPriorityAccess }

func (h *PriorityAccessHandler) Deliver(ctx context.Context, tx *gorm.DB, ur *types.UserReward) (map[string]any, error) {
	cfg := priorityConfig{Level: types.PriorityLevelStandard, DurationDays: 30}
	if err := decodeConfig(ur.Reward.DeliveryConfig, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Services) == 0 {
		cfg.Services = []string{"scheduling"}
	}
	if types.PriorityLevelRank(cfg.Level) == 0 {
		return nil, fmt.Errorf("unknown priority level %q", cfg.Level)
	}

	servicesJSON, err := json.Marshal(cfg.Services)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.AddDate(0, 0, cfg.DurationDays)
	grant := &types.PriorityAccessGrant{
		ID:            uuid.New(),
		BeneficiaryID: ur.BeneficiaryID,
		RewardID:      ur.RewardID,
		Services:      datatypes.JSON(servicesJSON),
		Level:         cfg.Level,
		ExpiresAt:     expiresAt,
	}
	if _, err := h.repo.Create(ctx, tx, grant); err != nil {
		return nil, fmt.Errorf("create priority grant: %w", err)
	}

	patch := types.BeneficiarySettings{
		Priority: &types.PrioritySettings{
			Enabled:   true,
			Level:     cfg.Level,
			Services:  cfg.Services,
			ExpiresAt: &expiresAt,
		},
	}
	if err := h.benefRepo.MergeSettings(ctx, tx, ur.BeneficiaryID, patch); err != nil {
		return nil, fmt.Errorf("merge beneficiary settings: %w", err)
	}

	return map[string]any{
		"grant_id":   grant.ID.String(),
		"services":   cfg.Services,
		"level":      cfg.Level,
		"expires_at": expiresAt,
	}, nil
}

func (h *PriorityAccessHandler) Redeem(ctx context.Context, tx *gorm.DB, ur *types.UserReward, data map[string]any) (map[string]any, error) {
	service, _ := data["service"].(string)
	if service == "" {
		service = "scheduling"
	}

	now := time.Now().UTC()
	grants, err := h.repo.ListActive(ctx, tx, ur.BeneficiaryID, now)
	if err != nil {
		return nil, err
	}

	best := selectGrant(grants, service)
	if best == nil {
		return nil, fmt.Errorf("no active priority access for %q", service)
	}

	if err := h.repo.AppendUsage(ctx, tx, best.ID, types.PriorityUsage{Service: service, UsedAt: now}, best.UsageLog); err != nil {
		return nil, err
	}

	result := map[string]any{
		"grant_id":   best.ID.String(),
		"service":    service,
		"level":      best.Level,
		"expires_at": best.ExpiresAt,
	}
	switch service {
	case "scheduling":
		result["next_available_slot"] = now.Add(2 * time.Hour)
	case "support":
		result["queue_position"] = 1
	case "consultation":
		result["specialist"] = "on_call"
		result["eta_minutes"] = 15
	}
	return result, nil
}

// selectGrant picks the highest-level unexpired grant covering the service.
func selectGrant(grants []*types.PriorityAccessGrant, service string) *types.PriorityAccessGrant {
	var best *types.PriorityAccessGrant
	for _, g := range grants {
		var services []string
		if err := json.Unmarshal(g.Services, &services); err != nil {
			continue
		}
		covered := false
		for _, s := range services {
			if s == service {
				covered = true
				break
			}
		}
		if !covered {
			continue
		}
		if best == nil || types.PriorityLevelRank(g.Level) > types.PriorityLevelRank(best.Level) {
			best = g
		}
	}
	return best
}
