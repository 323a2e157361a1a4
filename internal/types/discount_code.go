package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// DiscountCode is the artifact minted by the discount handler. Multi-use up
// to MaxUses; every application is appended to UsageLog.
type DiscountCode struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BeneficiaryID uuid.UUID       `gorm:"type:uuid;not null;index" json:"beneficiary_id"`
	Beneficiary   *Beneficiary    `gorm:"constraint:OnDelete:CASCADE;foreignKey:BeneficiaryID;references:ID" json:"beneficiary,omitempty"`
	RewardID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"reward_id"`
	Reward        *Reward         `gorm:"constraint:OnDelete:CASCADE;foreignKey:RewardID;references:ID" json:"reward,omitempty"`
	Code          string          `gorm:"uniqueIndex;not null;column:code" json:"code"`
	DiscountType  DiscountType    `gorm:"not null;column:discount_type" json:"discount_type"`
	Value         decimal.Decimal `gorm:"type:decimal(10,2);not null;column:value" json:"value"`
	MinimumAmount decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0;column:minimum_amount" json:"minimum_amount"`
	MaxUses       int             `gorm:"not null;default:1;column:max_uses" json:"max_uses"`
	UsedCount     int             `gorm:"not null;default:0;column:used_count" json:"used_count"`
	ValidUntil    time.Time       `gorm:"not null;column:valid_until" json:"valid_until"`
	UsageLog      datatypes.JSON  `gorm:"type:jsonb;column:usage_log" json:"usage_log"`
	CreatedAt     time.Time       `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (DiscountCode) TableName() string { return "discount_code" }

type DiscountUsage struct {
	OrderReference string          `json:"order_reference,omitempty"`
	OrderAmount    decimal.Decimal `json:"order_amount"`
	Discount       decimal.Decimal `json:"discount"`
	UsedAt         time.Time       `json:"used_at"`
}
