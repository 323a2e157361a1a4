package repos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type BeneficiaryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, beneficiaries []*types.Beneficiary) ([]*types.Beneficiary, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Beneficiary, error)
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Beneficiary, error)
	AddPoints(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta int) error
	MergeSettings(ctx context.Context, tx *gorm.DB, id uuid.UUID, patch types.BeneficiarySettings) error
	MergePermissions(ctx context.Context, tx *gorm.DB, id uuid.UUID, patch types.BeneficiaryPermissions) error
}

type beneficiaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBeneficiaryRepo(db *gorm.DB, baseLog *logger.Logger) BeneficiaryRepo {
	return &beneficiaryRepo{db: db, log: baseLog.With("repo", "BeneficiaryRepo")}
}

func (r *beneficiaryRepo) Create(ctx context.Context, tx *gorm.DB, beneficiaries []*types.Beneficiary) ([]*types.Beneficiary, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(beneficiaries) == 0 {
		return []*types.Beneficiary{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&beneficiaries).Error; err != nil {
		return nil, err
	}
	return beneficiaries, nil
}

func (r *beneficiaryRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Beneficiary, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil {
		return nil, fmt.Errorf("missing beneficiary id")
	}

	var result types.Beneficiary
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *beneficiaryRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Beneficiary, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil {
		return nil, fmt.Errorf("missing beneficiary id")
	}

	var result types.Beneficiary
	if err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *beneficiaryRepo) AddPoints(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil {
		return fmt.Errorf("missing beneficiary id")
	}

	return transaction.WithContext(ctx).
		Model(&types.Beneficiary{}).
		Where("id = ?", id).
		UpdateColumn("points", gorm.Expr("points + ?", delta)).Error
}

// MergeSettings read-modify-writes the settings bag under a row lock so two
// handlers merging different sub-sections cannot clobber each other.
func (r *beneficiaryRepo) MergeSettings(ctx context.Context, tx *gorm.DB, id uuid.UUID, patch types.BeneficiarySettings) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		b, err := r.GetByIDForUpdate(ctx, inner, id)
		if err != nil {
			return err
		}
		current, err := types.DecodeSettings(b.Settings)
		if err != nil {
			return fmt.Errorf("decode settings: %w", err)
		}
		current.Merge(patch)
		encoded, err := types.EncodeSettings(current)
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		return inner.Model(&types.Beneficiary{}).
			Where("id = ?", id).
			UpdateColumn("settings", encoded).Error
	})
}

func (r *beneficiaryRepo) MergePermissions(ctx context.Context, tx *gorm.DB, id uuid.UUID, patch types.BeneficiaryPermissions) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		b, err := r.GetByIDForUpdate(ctx, inner, id)
		if err != nil {
			return err
		}
		current, err := types.DecodePermissions(b.Permissions)
		if err != nil {
			return fmt.Errorf("decode permissions: %w", err)
		}
		current.Merge(patch)
		encoded, err := types.EncodePermissions(current)
		if err != nil {
			return fmt.Errorf("encode permissions: %w", err)
		}
		return inner.Model(&types.Beneficiary{}).
			Where("id = ?", id).
			UpdateColumn("permissions", encoded).Error
	})
}
