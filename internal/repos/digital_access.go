package repos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type DigitalAccessRepo interface {
	// GetOrCreate keys on beneficiary+reward; repeat deliveries reuse the
	// existing access record and its token. Returns whether a row was created.
	GetOrCreate(ctx context.Context, tx *gorm.DB, access *types.DigitalAccess) (*types.DigitalAccess, bool, error)
	GetByBeneficiaryAndReward(ctx context.Context, tx *gorm.DB, beneficiaryID, rewardID uuid.UUID) (*types.DigitalAccess, error)
	IncrementDownloads(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	UpdateAsset(ctx context.Context, tx *gorm.DB, id uuid.UUID, assetPath string) error
}

type digitalAccessRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDigitalAccessRepo(db *gorm.DB, baseLog *logger.Logger) DigitalAccessRepo {
	return &digitalAccessRepo{db: db, log: baseLog.With("repo", "DigitalAccessRepo")}
}

func (r *digitalAccessRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, access *types.DigitalAccess) (*types.DigitalAccess, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if access == nil || access.BeneficiaryID == uuid.Nil || access.RewardID == uuid.Nil {
		return nil, false, fmt.Errorf("missing beneficiary or reward id")
	}

	var result types.DigitalAccess
	res := transaction.WithContext(ctx).
		Where(types.DigitalAccess{BeneficiaryID: access.BeneficiaryID, RewardID: access.RewardID}).
		Attrs(types.DigitalAccess{
			ID:            uuid.New(),
			ReportType:    access.ReportType,
			AssetPath:     access.AssetPath,
			DownloadToken: access.DownloadToken,
			ExpiresAt:     access.ExpiresAt,
		}).
		FirstOrCreate(&result)
	if res.Error != nil {
		return nil, false, res.Error
	}
	return &result, res.RowsAffected > 0, nil
}

func (r *digitalAccessRepo) GetByBeneficiaryAndReward(ctx context.Context, tx *gorm.DB, beneficiaryID, rewardID uuid.UUID) (*types.DigitalAccess, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.DigitalAccess
	if err := transaction.WithContext(ctx).
		Where("beneficiary_id = ? AND reward_id = ?", beneficiaryID, rewardID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *digitalAccessRepo) IncrementDownloads(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.DigitalAccess{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error
}

func (r *digitalAccessRepo) UpdateAsset(ctx context.Context, tx *gorm.DB, id uuid.UUID, assetPath string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.DigitalAccess{}).
		Where("id = ?", id).
		UpdateColumn("asset_path", assetPath).Error
}
