package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type ServiceAccessRepo interface {
	GetByBeneficiaryAndService(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID, serviceType string) (*types.ServiceAccess, error)
	GetByBeneficiaryAndServiceForUpdate(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID, serviceType string) (*types.ServiceAccess, error)
	Create(ctx context.Context, tx *gorm.DB, access *types.ServiceAccess) (*types.ServiceAccess, error)
	Extend(ctx context.Context, tx *gorm.DB, id uuid.UUID, expiresAt time.Time, features datatypes.JSON) error
}

type serviceAccessRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewServiceAccessRepo(db *gorm.DB, baseLog *logger.Logger) ServiceAccessRepo {
	return &serviceAccessRepo{db: db, log: baseLog.With("repo", "ServiceAccessRepo")}
}

func (r *serviceAccessRepo) GetByBeneficiaryAndService(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID, serviceType string) (*types.ServiceAccess, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.ServiceAccess
	if err := transaction.WithContext(ctx).
		Where("beneficiary_id = ? AND service_type = ?", beneficiaryID, serviceType).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *serviceAccessRepo) GetByBeneficiaryAndServiceForUpdate(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID, serviceType string) (*types.ServiceAccess, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.ServiceAccess
	if err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("beneficiary_id = ? AND service_type = ?", beneficiaryID, serviceType).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *serviceAccessRepo) Create(ctx context.Context, tx *gorm.DB, access *types.ServiceAccess) (*types.ServiceAccess, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if access == nil || access.BeneficiaryID == uuid.Nil || access.ServiceType == "" {
		return nil, fmt.Errorf("missing beneficiary or service type")
	}

	if err := transaction.WithContext(ctx).Create(access).Error; err != nil {
		return nil, err
	}
	return access, nil
}

func (r *serviceAccessRepo) Extend(ctx context.Context, tx *gorm.DB, id uuid.UUID, expiresAt time.Time, features datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	updates := map[string]any{
		"expires_at": expiresAt,
		"active":     true,
	}
	if len(features) > 0 {
		updates["features"] = features
	}
	return transaction.WithContext(ctx).
		Model(&types.ServiceAccess{}).
		Where("id = ?", id).
		Updates(updates).Error
}
