package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type digitalConfig struct {
	ReportType string `json:"report_type"`
	ValidDays  int    `json:"valid_days"`
}

// DigitalItemHandler provisions access to a generated digital asset behind a
// download token. One access record per beneficiary+reward.
type DigitalItemHandler struct {
	baseHandler
	log         *logger.Logger
	repo        repos.DigitalAccessRepo
	downloadURL string
}

func NewDigitalItemHandler(baseLog *logger.Logger, repo repos.DigitalAccessRepo, downloadBaseURL string) *DigitalItemHandler {
	if downloadBaseURL == "" {
		downloadBaseURL = "https://downloads.vidaplus.com.br"
	}
	return &DigitalItemHandler{
		log:         baseLog.With("handler", "DigitalItemHandler"),
		repo:        repo,
		downloadURL: downloadBaseURL,
	}
}

func (h *DigitalItemHandler) Kind() types.RewardKind { return types.RewardKindDigitalItem }

func (h *DigitalItemHandler) Deliver(ctx context.Context, tx *gorm.DB, ur *types.UserReward) (map[string]any, error) {
	cfg := digitalConfig{ReportType: string(types.DigitalReportGeneric), ValidDays: 30}
	if err := decodeConfig(ur.Reward.DeliveryConfig, &cfg); err != nil {
		return nil, err
	}
	reportType := normalizeReportType(cfg.ReportType)

	token, err := randomToken(16)
	if err != nil {
		return nil, err
	}

	access, created, err := h.repo.GetOrCreate(ctx, tx, &types.DigitalAccess{
		BeneficiaryID: ur.BeneficiaryID,
		RewardID:      ur.RewardID,
		ReportType:    reportType,
		AssetPath:     assetPath(reportType, ur.BeneficiaryID),
		DownloadToken: token,
		ExpiresAt:     time.Now().UTC().AddDate(0, 0, cfg.ValidDays),
	})
	if err != nil {
		return nil, fmt.Errorf("provision digital access: %w", err)
	}

	return map[string]any{
		"report_type":    string(access.ReportType),
		"download_token": access.DownloadToken,
		"expires_at":     access.ExpiresAt,
		"newly_created":  created,
	}, nil
}

func (h *DigitalItemHandler) Redeem(ctx context.Context, tx *gorm.DB, ur *types.UserReward, data map[string]any) (map[string]any, error) {
	access, err := h.repo.GetByBeneficiaryAndReward(ctx, tx, ur.BeneficiaryID, ur.RewardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("digital item not delivered yet")
		}
		return nil, err
	}

	action, _ := data["action"].(string)
	if action == "" {
		action = "download"
	}

	now := time.Now().UTC()
	switch action {
	case "download":
		if now.After(access.ExpiresAt) {
			return nil, fmt.Errorf("download access expired")
		}
		if err := h.repo.IncrementDownloads(ctx, tx, access.ID); err != nil {
			return nil, err
		}
		return map[string]any{
			"download_url":   h.downloadURL + "/d/" + access.DownloadToken,
			"report_type":    string(access.ReportType),
			"download_count": access.DownloadCount + 1,
			"expires_at":     access.ExpiresAt,
		}, nil
	case "preview":
		return map[string]any{
			"report_type":    string(access.ReportType),
			"asset_path":     access.AssetPath,
			"download_count": access.DownloadCount,
			"expires_at":     access.ExpiresAt,
			"expired":        now.After(access.ExpiresAt),
		}, nil
	case "regenerate":
		newPath := assetPath(access.ReportType, ur.BeneficiaryID)
		if err := h.repo.UpdateAsset(ctx, tx, access.ID, newPath); err != nil {
			return nil, err
		}
		return map[string]any{
			"report_type": string(access.ReportType),
			"asset_path":  newPath,
			"regenerated": true,
		}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
}

func normalizeReportType(raw string) types.DigitalReportType {
	switch types.DigitalReportType(raw) {
	case types.DigitalReportHealth, types.DigitalReportWellness, types.DigitalReportNutrition, types.DigitalReportExercise:
		return types.DigitalReportType(raw)
	default:
		return types.DigitalReportGeneric
	}
}

func assetPath(reportType types.DigitalReportType, beneficiaryID uuid.UUID) string {
	return fmt.Sprintf("digital/%s/%s/%s.pdf", reportType, beneficiaryID, uuid.NewString())
}
