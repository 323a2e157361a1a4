package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

// GamificationService owns the points ledger and badge grants. AwardBadge is
// idempotent at the badge level: awarding an already-held badge is a no-op
// returning nil.
type GamificationService interface {
	AwardPoints(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID, points int, reason, description string) error
	AwardBadge(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID, badge *types.Badge) (*types.Badge, error)
	BadgesFor(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID) ([]*types.BeneficiaryBadge, error)
}

type gamificationService struct {
	db        *gorm.DB
	log       *logger.Logger
	badgeRepo repos.BadgeRepo
	benefRepo repos.BeneficiaryRepo
	ptsRepo   repos.PointsTransactionRepo
}

func NewGamificationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	badgeRepo repos.BadgeRepo,
	benefRepo repos.BeneficiaryRepo,
	ptsRepo repos.PointsTransactionRepo,
) GamificationService {
	return &gamificationService{
		db:        db,
		log:       baseLog.With("service", "GamificationService"),
		badgeRepo: badgeRepo,
		benefRepo: benefRepo,
		ptsRepo:   ptsRepo,
	}
}

func (s *gamificationService) AwardPoints(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID, points int, reason, description string) error {
	if beneficiaryID == uuid.Nil {
		return fmt.Errorf("missing beneficiary id")
	}
	if points == 0 {
		return nil
	}

	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	return transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		entry := &types.PointsTransaction{
			ID:            uuid.New(),
			BeneficiaryID: beneficiaryID,
			Points:        points,
			Reason:        reason,
			Description:   description,
		}
		if _, err := s.ptsRepo.Create(ctx, inner, []*types.PointsTransaction{entry}); err != nil {
			return fmt.Errorf("record points transaction: %w", err)
		}
		if err := s.benefRepo.AddPoints(ctx, inner, beneficiaryID, points); err != nil {
			return fmt.Errorf("update points balance: %w", err)
		}
		return nil
	})
}

// AwardBadge grants the badge (creating its definition on first use) and
// awards its point value exactly once, on the grant that actually inserted.
func (s *gamificationService) AwardBadge(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID, badge *types.Badge) (*types.Badge, error) {
	if beneficiaryID == uuid.Nil {
		return nil, fmt.Errorf("missing beneficiary id")
	}
	if badge == nil || badge.Slug == "" {
		return nil, fmt.Errorf("missing badge slug")
	}

	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	var awarded *types.Badge
	err := transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		def, err := s.badgeRepo.GetOrCreateBySlug(ctx, inner, badge)
		if err != nil {
			return fmt.Errorf("badge definition: %w", err)
		}
		granted, err := s.badgeRepo.Grant(ctx, inner, beneficiaryID, def.ID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("grant badge: %w", err)
		}
		if !granted {
			return nil
		}
		if def.PointsValue > 0 {
			if err := s.AwardPoints(ctx, inner, beneficiaryID, def.PointsValue, "badge_"+def.Slug, "Badge earned: "+def.Name); err != nil {
				return err
			}
		}
		awarded = def
		return nil
	})
	if err != nil {
		return nil, err
	}
	return awarded, nil
}

func (s *gamificationService) BadgesFor(ctx context.Context, tx *gorm.DB, beneficiaryID uuid.UUID) ([]*types.BeneficiaryBadge, error) {
	return s.badgeRepo.ListForBeneficiary(ctx, tx, beneficiaryID)
}
