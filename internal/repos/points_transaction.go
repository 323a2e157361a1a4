package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type PointsTransactionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entries []*types.PointsTransaction) ([]*types.PointsTransaction, error)
	GetByBeneficiaryID(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID) ([]*types.PointsTransaction, error)
	SumForBeneficiary(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID) (int64, error)
}

type pointsTransactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPointsTransactionRepo(db *gorm.DB, baseLog *logger.Logger) PointsTransactionRepo {
	return &pointsTransactionRepo{db: db, log: baseLog.With("repo", "PointsTransactionRepo")}
}

func (r *pointsTransactionRepo) Create(ctx context.Context, tx *gorm.DB, entries []*types.PointsTransaction) ([]*types.PointsTransaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(entries) == 0 {
		return []*types.PointsTransaction{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *pointsTransactionRepo) GetByBeneficiaryID(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID) ([]*types.PointsTransaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.PointsTransaction
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

func (r *pointsTransactionRepo) SumForBeneficiary(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var total *int64
	if err := transaction.WithContext(ctx).
		Model(&types.PointsTransaction{}).
		Where("beneficiary_id = ?", beneficiaryID).
		Select("SUM(points)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}
