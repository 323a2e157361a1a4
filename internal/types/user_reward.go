package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type UserRewardStatus string

const (
	UserRewardStatusPending   UserRewardStatus = "pending"
	UserRewardStatusClaimed   UserRewardStatus = "claimed"
	UserRewardStatusDelivered UserRewardStatus = "delivered"
	UserRewardStatusRedeemed  UserRewardStatus = "redeemed"
	UserRewardStatusExpired   UserRewardStatus = "expired"
	UserRewardStatusFailed    UserRewardStatus = "failed"
)

// UserReward is a single claim of a Reward by a beneficiary. Rows are never
// deleted; terminal states are expired/failed.
type UserReward struct {
	ID              uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BeneficiaryID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"beneficiary_id"`
	Beneficiary     *Beneficiary     `gorm:"constraint:OnDelete:CASCADE;foreignKey:BeneficiaryID;references:ID" json:"beneficiary,omitempty"`
	RewardID        uuid.UUID        `gorm:"type:uuid;not null;index" json:"reward_id"`
	Reward          *Reward          `gorm:"constraint:OnDelete:CASCADE;foreignKey:RewardID;references:ID" json:"reward,omitempty"`
	Status          UserRewardStatus `gorm:"not null;default:'pending';index;column:status" json:"status"`
	RedemptionCode  string           `gorm:"uniqueIndex;not null;column:redemption_code" json:"redemption_code"`
	DeliveryDetails datatypes.JSON   `gorm:"type:jsonb;column:delivery_details" json:"delivery_details"`
	ClaimedAt       *time.Time       `gorm:"column:claimed_at" json:"claimed_at,omitempty"`
	DeliveredAt     *time.Time       `gorm:"column:delivered_at" json:"delivered_at,omitempty"`
	RedeemedAt      *time.Time       `gorm:"column:redeemed_at" json:"redeemed_at,omitempty"`
	ExpiresAt       *time.Time       `gorm:"index;column:expires_at" json:"expires_at,omitempty"`
	CreatedAt       time.Time        `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserReward) TableName() string { return "user_reward" }

func (ur *UserReward) IsExpired(now time.Time) bool {
	return ur.ExpiresAt != nil && now.After(*ur.ExpiresAt)
}
