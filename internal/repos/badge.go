package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type BadgeRepo interface {
	GetOrCreateBySlug(ctx context.Context, tx *gorm.DB, badge *types.Badge) (*types.Badge, error)
	GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Badge, error)
	// Grant inserts the earned record unless the beneficiary already holds the
	// badge; the unique constraint carries the idempotency under concurrency.
	Grant(ctx context.Context, tx *gorm.DB, beneficiaryID, badgeID uuid.UUID, at time.Time) (bool, error)
	Held(ctx context.Context, tx *gorm.DB, beneficiaryID, badgeID uuid.UUID) (bool, error)
	ListForBeneficiary(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID) ([]*types.BeneficiaryBadge, error)
}

type badgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBadgeRepo(db *gorm.DB, baseLog *logger.Logger) BadgeRepo {
	return &badgeRepo{db: db, log: baseLog.With("repo", "BadgeRepo")}
}

func (r *badgeRepo) GetOrCreateBySlug(ctx context.Context, tx *gorm.DB, badge *types.Badge) (*types.Badge, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if badge == nil || badge.Slug == "" {
		return nil, fmt.Errorf("missing badge slug")
	}

	var result types.Badge
	if err := transaction.WithContext(ctx).
		Where(types.Badge{Slug: badge.Slug}).
		Attrs(types.Badge{
			ID:          uuid.New(),
			Name:        badge.Name,
			Description: badge.Description,
			Icon:        badge.Icon,
			PointsValue: badge.PointsValue,
		}).
		FirstOrCreate(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *badgeRepo) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Badge, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if slug == "" {
		return nil, fmt.Errorf("missing badge slug")
	}

	var result types.Badge
	if err := transaction.WithContext(ctx).
		Where("slug = ?", slug).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *badgeRepo) Grant(ctx context.Context, tx *gorm.DB, beneficiaryID, badgeID uuid.UUID, at time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if beneficiaryID == uuid.Nil || badgeID == uuid.Nil {
		return false, fmt.Errorf("missing beneficiary or badge id")
	}

	row := &types.BeneficiaryBadge{
		ID:            uuid.New(),
		BeneficiaryID: beneficiaryID,
		BadgeID:       badgeID,
		EarnedAt:      at,
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "beneficiary_id"}, {Name: "badge_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *badgeRepo) Held(ctx context.Context, tx *gorm.DB, beneficiaryID, badgeID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.BeneficiaryBadge{}).
		Where("beneficiary_id = ? AND badge_id = ?", beneficiaryID, badgeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *badgeRepo) ListForBeneficiary(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID) ([]*types.BeneficiaryBadge, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.BeneficiaryBadge
	if beneficiaryID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Preload("Badge").
		Where("beneficiary_id = ?", beneficiaryID).
		Order("earned_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
