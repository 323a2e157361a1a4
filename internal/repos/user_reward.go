package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type UserRewardRepo interface {
	Create(ctx context.Context, tx *gorm.DB, claims []*types.UserReward) ([]*types.UserReward, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.UserReward, error)
	GetByRedemptionCode(ctx context.Context, tx *gorm.DB, code string) (*types.UserReward, error)
	GetByBeneficiaryID(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID) ([]*types.UserReward, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.UserRewardStatus, at time.Time) error
	SetDeliveryDetails(ctx context.Context, tx *gorm.DB, id uuid.UUID, details datatypes.JSON) error
	RedemptionCodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error)
}

type userRewardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRewardRepo(db *gorm.DB, baseLog *logger.Logger) UserRewardRepo {
	return &userRewardRepo{db: db, log: baseLog.With("repo", "UserRewardRepo")}
}

func (r *userRewardRepo) Create(ctx context.Context, tx *gorm.DB, claims []*types.UserReward) ([]*types.UserReward, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(claims) == 0 {
		return []*types.UserReward{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}

func (r *userRewardRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.UserReward, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil {
		return nil, fmt.Errorf("missing user reward id")
	}

	var result types.UserReward
	if err := transaction.WithContext(ctx).
		Preload("Reward").
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *userRewardRepo) GetByRedemptionCode(ctx context.Context, tx *gorm.DB, code string) (*types.UserReward, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if code == "" {
		return nil, fmt.Errorf("missing redemption code")
	}

	var result types.UserReward
	if err := transaction.WithContext(ctx).
		Preload("Reward").
		Where("redemption_code = ?", code).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *userRewardRepo) GetByBeneficiaryID(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID) ([]*types.UserReward, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.UserReward
	if beneficiaryID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Preload("Reward").
		Where("beneficiary_id = ?", beneficiaryID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userRewardRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.UserRewardStatus, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil {
		return fmt.Errorf("missing user reward id")
	}

	updates := map[string]any{"status": status, "updated_at": at}
	switch status {
	case types.UserRewardStatusDelivered:
		updates["delivered_at"] = at
	case types.UserRewardStatusRedeemed:
		updates["redeemed_at"] = at
	}

	return transaction.WithContext(ctx).
		Model(&types.UserReward{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *userRewardRepo) SetDeliveryDetails(ctx context.Context, tx *gorm.DB, id uuid.UUID, details datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil {
		return fmt.Errorf("missing user reward id")
	}

	return transaction.WithContext(ctx).
		Model(&types.UserReward{}).
		Where("id = ?", id).
		UpdateColumn("delivery_details", details).Error
}

func (r *userRewardRepo) RedemptionCodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.UserReward{}).
		Where("redemption_code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
