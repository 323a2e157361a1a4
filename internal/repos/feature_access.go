package repos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type FeatureAccessRepo interface {
	// GetOrCreate keys on beneficiary+feature_key. An existing row keeps its
	// UnlockedAt; only a previously disabled row is re-enabled.
	GetOrCreate(ctx context.Context, tx *gorm.DB, access *types.FeatureAccess) (*types.FeatureAccess, bool, error)
	GetByKey(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID, featureKey string) (*types.FeatureAccess, error)
	ListEnabled(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID) ([]*types.FeatureAccess, error)
	SetEnabled(ctx context.Context, tx *gorm.DB, id uuid.UUID, enabled bool) error
}

type featureAccessRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeatureAccessRepo(db *gorm.DB, baseLog *logger.Logger) FeatureAccessRepo {
	return &featureAccessRepo{db: db, log: baseLog.With("repo", "FeatureAccessRepo")}
}

func (r *featureAccessRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, access *types.FeatureAccess) (*types.FeatureAccess, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if access == nil || access.BeneficiaryID == uuid.Nil || access.FeatureKey == "" {
		return nil, false, fmt.Errorf("missing beneficiary or feature key")
	}

	var result types.FeatureAccess
	res := transaction.WithContext(ctx).
		Where(types.FeatureAccess{BeneficiaryID: access.BeneficiaryID, FeatureKey: access.FeatureKey}).
		Attrs(types.FeatureAccess{
			ID:         uuid.New(),
			Enabled:    true,
			UnlockedAt: access.UnlockedAt,
			ExpiresAt:  access.ExpiresAt,
		}).
		FirstOrCreate(&result)
	if res.Error != nil {
		return nil, false, res.Error
	}
	return &result, res.RowsAffected > 0, nil
}

func (r *featureAccessRepo) GetByKey(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID, featureKey string) (*types.FeatureAccess, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.FeatureAccess
	if err := transaction.WithContext(ctx).
		Where("beneficiary_id = ? AND feature_key = ?", beneficiaryID, featureKey).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *featureAccessRepo) ListEnabled(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID) ([]*types.FeatureAccess, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.FeatureAccess
	if beneficiaryID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("beneficiary_id = ? AND enabled = ?", beneficiaryID, true).
		Order("unlocked_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *featureAccessRepo) SetEnabled(ctx context.Context, tx *gorm.DB, id uuid.UUID, enabled bool) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.FeatureAccess{}).
		Where("id = ?", id).
		UpdateColumn("enabled", enabled).Error
}
