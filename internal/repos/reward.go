package repos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type RewardRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rewards []*types.Reward) ([]*types.Reward, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Reward, error)
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.Reward, error)
	ListByKind(ctx context.Context, tx *gorm.DB, kind types.RewardKind) ([]*types.Reward, error)
}

type rewardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRewardRepo(db *gorm.DB, baseLog *logger.Logger) RewardRepo {
	return &rewardRepo{db: db, log: baseLog.With("repo", "RewardRepo")}
}

func (r *rewardRepo) Create(ctx context.Context, tx *gorm.DB, rewards []*types.Reward) ([]*types.Reward, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rewards) == 0 {
		return []*types.Reward{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}

func (r *rewardRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Reward, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil {
		return nil, fmt.Errorf("missing reward id")
	}

	var result types.Reward
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *rewardRepo) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.Reward, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if code == "" {
		return nil, fmt.Errorf("missing reward code")
	}

	var result types.Reward
	if err := transaction.WithContext(ctx).
		Where("code = ?", code).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *rewardRepo) ListByKind(ctx context.Context, tx *gorm.DB, kind types.RewardKind) ([]*types.Reward, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Reward
	if err := transaction.WithContext(ctx).
		Where("kind = ?", kind).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
