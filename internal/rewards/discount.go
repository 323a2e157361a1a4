package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vidaplus/onboarding-backend/internal/logger"
	"github.com/vidaplus/onboarding-backend/internal/repos"
	"github.com/vidaplus/onboarding-backend/internal/types"
)

type discountConfig struct {
	Prefix        string          `json:"prefix"`
	DiscountType  string          `json:"discount_type"`
	Value         decimal.Decimal `json:"value"`
	MinimumAmount decimal.Decimal `json:"minimum_amount"`
	ValidDays     int             `json:"valid_days"`
	MaxUses       int             `json:"max_uses"`
}

// DiscountHandler mints a unique discount code per claim and applies it to
// order amounts at redemption time.
type DiscountHandler struct {
	baseHandler
	log  *logger.Logger
	repo repos.DiscountCodeRepo
}

func NewDiscountHandler(baseLog *logger.Logger, repo repos.DiscountCodeRepo) *DiscountHandler {
	return &DiscountHandler{log: baseLog.With("handler", "DiscountHandler"), repo: repo}
}

func (h *DiscountHandler) Kind() types.RewardKind { return types.RewardKindDiscount }

func (h *DiscountHandler) Deliver(ctx context.Context, tx *gorm.DB, ur *types.UserReward) (map[string]any, error) {
	cfg := discountConfig{Prefix: "SAVE", DiscountType: string(types.DiscountTypePercentage), ValidDays: 30, MaxUses: 1}
	if err := decodeConfig(ur.Reward.DeliveryConfig, &cfg); err != nil {
		return nil, err
	}

	// Repeat delivery returns the code already minted for this claim.
	existing, err := h.repo.GetByBeneficiaryAndReward(ctx, tx, ur.BeneficiaryID, ur.RewardID)
	if err == nil {
		return discountDetails(existing, false), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	code, err := h.generateCode(ctx, tx, cfg.Prefix)
	if err != nil {
		return nil, err
	}

	record := &types.DiscountCode{
		ID:            uuid.New(),
		BeneficiaryID: ur.BeneficiaryID,
		RewardID:      ur.RewardID,
		Code:          code,
		DiscountType:  types.DiscountType(cfg.DiscountType),
		Value:         cfg.Value,
		MinimumAmount: cfg.MinimumAmount,
		MaxUses:       cfg.MaxUses,
		ValidUntil:    time.Now().UTC().AddDate(0, 0, cfg.ValidDays),
	}
	if _, err := h.repo.Create(ctx, tx, record); err != nil {
		return nil, fmt.Errorf("create discount code: %w", err)
	}
	return discountDetails(record, true), nil
}

func (h *DiscountHandler) Redeem(ctx context.Context, tx *gorm.DB, ur *types.UserReward, data map[string]any) (map[string]any, error) {
	code, _ := data["code"].(string)
	if code == "" {
		return nil, fmt.Errorf("missing discount code")
	}
	rawAmount, ok := data["order_amount"]
	if !ok {
		return nil, fmt.Errorf("missing order amount")
	}
	amount, err := toDecimal(rawAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid order amount: %w", err)
	}

	record, err := h.repo.GetByCodeForUpdate(ctx, tx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("unknown discount code")
		}
		return nil, err
	}

	now := time.Now().UTC()
	if now.After(record.ValidUntil) {
		return nil, fmt.Errorf("discount code expired")
	}
	if record.UsedCount >= record.MaxUses {
		return nil, fmt.Errorf("discount code exhausted")
	}

	discount := ComputeDiscount(record, amount)
	if discount.IsZero() {
		// Below the minimum order amount: no discount and no use consumed.
		return map[string]any{
			"code":           record.Code,
			"discount":       "0",
			"order_amount":   amount.StringFixed(2),
			"minimum_amount": record.MinimumAmount.StringFixed(2),
		}, nil
	}

	orderRef, _ := data["order_reference"].(string)
	usage := types.DiscountUsage{
		OrderReference: orderRef,
		OrderAmount:    amount,
		Discount:       discount,
		UsedAt:         now,
	}
	if err := h.repo.RecordUse(ctx, tx, record.ID, usage, record.UsageLog); err != nil {
		return nil, err
	}

	return map[string]any{
		"code":           record.Code,
		"discount":       discount.StringFixed(2),
		"order_amount":   amount.StringFixed(2),
		"remaining_uses": record.MaxUses - record.UsedCount - 1,
	}, nil
}

// ComputeDiscount applies the code to an order amount: zero below the
// minimum, percentage rounded to 2dp, fixed capped at the order amount.
func ComputeDiscount(record *types.DiscountCode, amount decimal.Decimal) decimal.Decimal {
	if record.MinimumAmount.IsPositive() && amount.LessThan(record.MinimumAmount) {
		return decimal.Zero
	}
	switch record.DiscountType {
	case types.DiscountTypePercentage:
		return amount.Mul(record.Value).Div(decimal.NewFromInt(100)).Round(2)
	case types.DiscountTypeFixed:
		if record.Value.GreaterThan(amount) {
			return amount
		}
		return record.Value
	default:
		return decimal.Zero
	}
}

// generateCode loops until an unused PREFIX-XXXXXXXX code is found.
func (h *DiscountHandler) generateCode(ctx context.Context, tx *gorm.DB, prefix string) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		suffix, err := randomCode(8)
		if err != nil {
			return "", err
		}
		code := prefix + "-" + suffix
		exists, err := h.repo.CodeExists(ctx, tx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate unique discount code")
}

func discountDetails(record *types.DiscountCode, created bool) map[string]any {
	return map[string]any{
		"code":          record.Code,
		"discount_type": string(record.DiscountType),
		"value":         record.Value.StringFixed(2),
		"max_uses":      record.MaxUses,
		"valid_until":   record.ValidUntil,
		"newly_created": created,
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case string:
		return decimal.NewFromString(t)
	case decimal.Decimal:
		return t, nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported amount type %T", v)
	}
}
