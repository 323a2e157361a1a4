package repos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type DiscountCodeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, code *types.DiscountCode) (*types.DiscountCode, error)
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.DiscountCode, error)
	GetByCodeForUpdate(ctx context.Context, tx *gorm.DB, code string) (*types.DiscountCode, error)
	GetByBeneficiaryAndReward(ctx context.Context, tx *gorm.DB, beneficiaryID, rewardID uuid.UUID) (*types.DiscountCode, error)
	CodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error)
	RecordUse(ctx context.Context, tx *gorm.DB, id uuid.UUID, usage types.DiscountUsage, priorLog datatypes.JSON) error
}

type discountCodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDiscountCodeRepo(db *gorm.DB, baseLog *logger.Logger) DiscountCodeRepo {
	return &discountCodeRepo{db: db, log: baseLog.With("repo", "DiscountCodeRepo")}
}

func (r *discountCodeRepo) Create(ctx context.Context, tx *gorm.DB, code *types.DiscountCode) (*types.DiscountCode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if code == nil {
		return nil, fmt.Errorf("missing discount code")
	}

	if err := transaction.WithContext(ctx).Create(code).Error; err != nil {
		return nil, err
	}
	return code, nil
}

func (r *discountCodeRepo) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.DiscountCode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if code == "" {
		return nil, fmt.Errorf("missing code")
	}

	var result types.DiscountCode
	if err := transaction.WithContext(ctx).
		Where("code = ?", code).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *discountCodeRepo) GetByCodeForUpdate(ctx context.Context, tx *gorm.DB, code string) (*types.DiscountCode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if code == "" {
		return nil, fmt.Errorf("missing code")
	}

	var result types.DiscountCode
	if err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *discountCodeRepo) GetByBeneficiaryAndReward(ctx context.Context, tx *gorm.DB, beneficiaryID, rewardID uuid.UUID) (*types.DiscountCode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.DiscountCode
	if err := transaction.WithContext(ctx).
		Where("beneficiary_id = ? AND reward_id = ?", beneficiaryID, rewardID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *discountCodeRepo) CodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.DiscountCode{}).
		Where("code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// RecordUse increments used_count with a guard on max_uses and appends the
// usage entry. The guarded UPDATE keeps exhaustion correct under concurrent
// redemptions.
func (r *discountCodeRepo) RecordUse(ctx context.Context, tx *gorm.DB, id uuid.UUID, usage types.DiscountUsage, priorLog datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var entries []types.DiscountUsage
	if len(priorLog) > 0 && string(priorLog) != "null" {
		if err := json.Unmarshal(priorLog, &entries); err != nil {
			return fmt.Errorf("decode usage log: %w", err)
		}
	}
	entries = append(entries, usage)
	encoded, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode usage log: %w", err)
	}

	res := transaction.WithContext(ctx).
		Model(&types.DiscountCode{}).
		Where("id = ? AND used_count < max_uses", id).
		Updates(map[string]any{
			"used_count": gorm.Expr("used_count + 1"),
			"usage_log":  datatypes.JSON(encoded),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("discount code exhausted")
	}
	return nil
}
