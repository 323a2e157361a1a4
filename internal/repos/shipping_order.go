package repos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type ShippingOrderRepo interface {
	Create(ctx context.Context, tx *gorm.DB, order *types.ShippingOrder) (*types.ShippingOrder, error)
	GetLatest(ctx context.Context, tx *gorm.DB, beneficiaryID, rewardID uuid.UUID) (*types.ShippingOrder, error)
	ListForBeneficiary(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID) ([]*types.ShippingOrder, error)
}

type shippingOrderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewShippingOrderRepo(db *gorm.DB, baseLog *logger.Logger) ShippingOrderRepo {
	return &shippingOrderRepo{db: db, log: baseLog.With("repo", "ShippingOrderRepo")}
}

func (r *shippingOrderRepo) Create(ctx context.Context, tx *gorm.DB, order *types.ShippingOrder) (*types.ShippingOrder, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if order == nil || order.BeneficiaryID == uuid.Nil {
		return nil, fmt.Errorf("missing beneficiary id")
	}

	if err := transaction.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *shippingOrderRepo) GetLatest(ctx context.Context, tx *gorm.DB, beneficiaryID, rewardID uuid.UUID) (*types.ShippingOrder, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.ShippingOrder
	if err := transaction.WithContext(ctx).
		Where("beneficiary_id = ? AND reward_id = ?", beneficiaryID, rewardID).
		Order("created_at DESC").
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *shippingOrderRepo) ListForBeneficiary(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID) ([]*types.ShippingOrder, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ShippingOrder
	if beneficiaryID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("beneficiary_id = ?", beneficiaryID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
