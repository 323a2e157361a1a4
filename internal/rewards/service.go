package rewards

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

const (
	redemptionCodePrefix   = "RWD-"
	redemptionCodeLength   = 10
	redemptionCodeAttempts = 10
	defaultClaimValidDays  = 90
)

type claimConfig struct {
	ClaimValidDays int `json:"claim_valid_days"`
}

// Service routes claims through the handler registered for the reward's kind.
// Every Deliver and Redeem runs inside one transaction, so a handler that
// fails mid-sequence leaves no partial rows behind. A handler panic is caught
// and reported as a failed delivery instead of taking the process down.
type Service struct {
	db       *gorm.DB
	log      *logger.Logger
	handlers map[types.RewardKind]Handler

	userRewardRepo repos.UserRewardRepo
	rewardRepo     repos.RewardRepo
	benefRepo      repos.BeneficiaryRepo
	pointsRepo     repos.PointsTransactionRepo
}

func NewService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRewardRepo repos.UserRewardRepo,
	rewardRepo repos.RewardRepo,
	benefRepo repos.BeneficiaryRepo,
	pointsRepo repos.PointsTransactionRepo,
	handlers ...Handler,
) *Service {
	registry := make(map[types.RewardKind]Handler, len(handlers))
	for _, h := range handlers {
		registry[h.Kind()] = h
	}
	return &Service{
		db:             db,
		log:            baseLog.With("service", "RewardService"),
		handlers:       registry,
		userRewardRepo: userRewardRepo,
		rewardRepo:     rewardRepo,
		benefRepo:      benefRepo,
		pointsRepo:     pointsRepo,
	}
}

func (s *Service) handlerFor(kind types.RewardKind) (Handler, error) {
	h, ok := s.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("no handler registered for reward kind %q", kind)
	}
	return h, nil
}

// Claim reserves a catalog reward for the beneficiary. The claim gets a
// unique redemption code and an expiry window; points-priced rewards deduct
// the cost from the beneficiary's balance in the same transaction.
func (s *Service) Claim(ctx context.Context, beneficiaryID, rewardID uuid.UUID) (*types.UserReward, error) {
	reward, err := s.rewardRepo.GetByID(ctx, nil, rewardID)
	if err != nil {
		return nil, fmt.Errorf("load reward: %w", err)
	}
	if _, err := s.handlerFor(reward.Kind); err != nil {
		return nil, err
	}

	var cfg claimConfig
	if err := decodeConfig(reward.DeliveryConfig, &cfg); err != nil {
		return nil, err
	}
	validDays := cfg.ClaimValidDays
	if validDays <= 0 {
		validDays = defaultClaimValidDays
	}

	now := time.Now().UTC()
	expiresAt := now.AddDate(0, 0, validDays)

	var claim *types.UserReward
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if reward.PointsCost > 0 {
			beneficiary, err := s.benefRepo.GetByIDForUpdate(ctx, tx, beneficiaryID)
			if err != nil {
				return fmt.Errorf("load beneficiary: %w", err)
			}
			if beneficiary.Points < reward.PointsCost {
				return fmt.Errorf("insufficient points: have %d, need %d", beneficiary.Points, reward.PointsCost)
			}
			if err := s.benefRepo.AddPoints(ctx, tx, beneficiaryID, -reward.PointsCost); err != nil {
				return err
			}
			if _, err := s.pointsRepo.Create(ctx, tx, []*types.PointsTransaction{{
				BeneficiaryID: beneficiaryID,
				Points:        -reward.PointsCost,
				Reason:        "reward_claim",
				Description:   fmt.Sprintf("Claimed reward %s", reward.Code),
			}}); err != nil {
				return err
			}
		}

		code, err := s.generateRedemptionCode(ctx, tx)
		if err != nil {
			return err
		}

		claim = &types.UserReward{
			BeneficiaryID:  beneficiaryID,
			RewardID:       reward.ID,
			Status:         types.UserRewardStatusClaimed,
			RedemptionCode: code,
			ClaimedAt:      &now,
			ExpiresAt:      &expiresAt,
		}
		if _, err := s.userRewardRepo.Create(ctx, tx, []*types.UserReward{claim}); err != nil {
			return fmt.Errorf("create claim: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	claim.Reward = reward
	s.log.Info("Reward claimed", "beneficiary_id", beneficiaryID, "reward_code", reward.Code)
	return claim, nil
}

func (s *Service) generateRedemptionCode(ctx context.Context, tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < redemptionCodeAttempts; attempt++ {
		suffix, err := randomCode(redemptionCodeLength)
		if err != nil {
			return "", err
		}
		code := redemptionCodePrefix + suffix
		exists, err := s.userRewardRepo.RedemptionCodeExists(ctx, tx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique redemption code")
}

// Deliver provisions the claimed reward. Calling it again for an already
// delivered claim re-runs the handler, which every kind implements
// idempotently, so retries after a timeout are safe.
func (s *Service) Deliver(ctx context.Context, userRewardID uuid.UUID) DeliveryResult {
	ur, err := s.userRewardRepo.GetByID(ctx, nil, userRewardID)
	if err != nil {
		return DeliveryResult{Success: false, Error: fmt.Sprintf("load claim: %v", err)}
	}
	if ur.Reward == nil {
		return DeliveryResult{Success: false, Error: "claim has no reward attached"}
	}

	handler, err := s.handlerFor(ur.Reward.Kind)
	if err != nil {
		return DeliveryResult{Success: false, Error: err.Error()}
	}

	now := time.Now().UTC()
	if ur.IsExpired(now) {
		if err := s.userRewardRepo.UpdateStatus(ctx, nil, ur.ID, types.UserRewardStatusExpired, now); err != nil {
			s.log.Error("Failed to mark claim expired", "user_reward_id", ur.ID, "error", err)
		}
		return DeliveryResult{Success: false, Error: "reward claim has expired"}
	}

	switch ur.Status {
	case types.UserRewardStatusClaimed, types.UserRewardStatusFailed, types.UserRewardStatusDelivered:
	default:
		return DeliveryResult{Success: false, Error: fmt.Sprintf("reward in status %q is not deliverable", ur.Status)}
	}
	if ur.Status == types.UserRewardStatusClaimed && !handler.Validate(ur, now) {
		return DeliveryResult{Success: false, Error: "reward claim failed validation"}
	}

	var details map[string]any
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var handlerErr error
		details, handlerErr = s.runDeliver(ctx, tx, handler, ur)
		if handlerErr != nil {
			return handlerErr
		}

		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("encode delivery details: %w", err)
		}
		if err := s.userRewardRepo.SetDeliveryDetails(ctx, tx, ur.ID, datatypes.JSON(raw)); err != nil {
			return err
		}
		if ur.Status != types.UserRewardStatusDelivered {
			if err := s.userRewardRepo.UpdateStatus(ctx, tx, ur.ID, types.UserRewardStatusDelivered, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("Reward delivery failed", "user_reward_id", ur.ID, "kind", ur.Reward.Kind, "error", err)
		if ur.Status != types.UserRewardStatusDelivered {
			if markErr := s.userRewardRepo.UpdateStatus(ctx, nil, ur.ID, types.UserRewardStatusFailed, now); markErr != nil {
				s.log.Error("Failed to mark claim failed", "user_reward_id", ur.ID, "error", markErr)
			}
		}
		return DeliveryResult{Success: false, Error: err.Error()}
	}

	s.log.Info("Reward delivered", "user_reward_id", ur.ID, "kind", ur.Reward.Kind)
	return DeliveryResult{Success: true, Details: details}
}

// runDeliver isolates the handler call so a panicking handler rolls the
// transaction back and surfaces as an ordinary delivery error.
func (s *Service) runDeliver(ctx context.Context, tx *gorm.DB, handler Handler, ur *types.UserReward) (details map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delivery handler panicked: %v", r)
		}
	}()
	return handler.Deliver(ctx, tx, ur)
}

// Redeem performs the kind-specific use action against a previously delivered
// claim, identified by its redemption code. Redeeming again is allowed; kinds
// with a use budget enforce it themselves.
func (s *Service) Redeem(ctx context.Context, redemptionCode string, data map[string]any) RedemptionResult {
	ur, err := s.userRewardRepo.GetByRedemptionCode(ctx, nil, redemptionCode)
	if err != nil {
		return RedemptionResult{Success: false, Error: "redemption code not found"}
	}
	if ur.Reward == nil {
		return RedemptionResult{Success: false, Error: "claim has no reward attached"}
	}

	handler, err := s.handlerFor(ur.Reward.Kind)
	if err != nil {
		return RedemptionResult{Success: false, Error: err.Error()}
	}

	now := time.Now().UTC()
	if ur.IsExpired(now) {
		if err := s.userRewardRepo.UpdateStatus(ctx, nil, ur.ID, types.UserRewardStatusExpired, now); err != nil {
			s.log.Error("Failed to mark claim expired", "user_reward_id", ur.ID, "error", err)
		}
		return RedemptionResult{Success: false, Error: "reward claim has expired"}
	}

	switch ur.Status {
	case types.UserRewardStatusDelivered, types.UserRewardStatusRedeemed:
	case types.UserRewardStatusClaimed, types.UserRewardStatusFailed:
		return RedemptionResult{Success: false, Error: "reward has not been delivered yet"}
	default:
		return RedemptionResult{Success: false, Error: fmt.Sprintf("reward in status %q is not redeemable", ur.Status)}
	}

	var result map[string]any
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var handlerErr error
		result, handlerErr = s.runRedeem(ctx, tx, handler, ur, data)
		if handlerErr != nil {
			return handlerErr
		}
		if ur.Status == types.UserRewardStatusDelivered {
			if err := s.userRewardRepo.UpdateStatus(ctx, tx, ur.ID, types.UserRewardStatusRedeemed, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Warn("Reward redemption failed", "user_reward_id", ur.ID, "kind", ur.Reward.Kind, "error", err)
		return RedemptionResult{Success: false, Error: err.Error()}
	}

	s.log.Info("Reward redeemed", "user_reward_id", ur.ID, "kind", ur.Reward.Kind)
	return RedemptionResult{Success: true, Result: result}
}

func (s *Service) runRedeem(ctx context.Context, tx *gorm.DB, handler Handler, ur *types.UserReward, data map[string]any) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("redemption handler panicked: %v", r)
		}
	}()
	return handler.Redeem(ctx, tx, ur, data)
}
