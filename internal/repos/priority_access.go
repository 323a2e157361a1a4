package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type PriorityAccessRepo interface {
	Create(ctx context.Context, tx *gorm.DB, grant *types.PriorityAccessGrant) (*types.PriorityAccessGrant, error)
	ListActive(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID, now time.Time) ([]*types.PriorityAccessGrant, error)
	AppendUsage(ctx context.Context, tx *gorm.DB, id uuid.UUID, usage types.PriorityUsage, priorLog datatypes.JSON) error
}

type priorityAccessRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPriorityAccessRepo(db *gorm.DB, baseLog *logger.Logger) PriorityAccessRepo {
	return &priorityAccessRepo{db: db, log: baseLog.With("repo", "PriorityAccessRepo")}
}

func (r *priorityAccessRepo) Create(ctx context.Context, tx *gorm.DB, grant *types.PriorityAccessGrant) (*types.PriorityAccessGrant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if grant == nil || grant.BeneficiaryID == uuid.Nil {
		return nil, fmt.Errorf("missing beneficiary id")
	}

	if err := transaction.WithContext(ctx).Create(grant).Error; err != nil {
		return nil, err
	}
	return grant, nil
}

func (r *priorityAccessRepo) ListActive(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID, now time.Time) ([]*types.PriorityAccessGrant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.PriorityAccessGrant
	if beneficiaryID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("beneficiary_id = ? AND expires_at > ?", beneficiaryID, now).
		Order("expires_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *priorityAccessRepo) AppendUsage(ctx context.Context, tx *gorm.DB, id uuid.UUID, usage types.PriorityUsage, priorLog datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var entries []types.PriorityUsage
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

	return transaction.WithContext(ctx).
		Model(&types.PriorityAccessGrant{}).
		Where("id = ?", id).
		UpdateColumn("usage_log", datatypes.JSON(encoded)).Error
}
