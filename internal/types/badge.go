package types

import (
	"time"

	"github.com/google/uuid"
)

type Badge struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Slug        string    `gorm:"uniqueIndex;not null;column:slug" json:"slug"`
	Name        string    `gorm:"not null;column:name" json:"name"`
	Description string    `gorm:"column:description" json:"description"`
	Icon        string    `gorm:"column:icon" json:"icon"`
	PointsValue int       `gorm:"not null;default:0;column:points_value" json:"points_value"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Badge) TableName() string { return "badge" }

// BeneficiaryBadge records an earned badge. The composite unique index is the
// idempotency key: the same badge cannot be granted twice.
type BeneficiaryBadge struct {
	ID            uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BeneficiaryID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:ux_beneficiary_badge" json:"beneficiary_id"`
	Beneficiary   *Beneficiary `gorm:"constraint:OnDelete:CASCADE;foreignKey:BeneficiaryID;references:ID" json:"beneficiary,omitempty"`
	BadgeID       uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:ux_beneficiary_badge" json:"badge_id"`
	Badge         *Badge       `gorm:"constraint:OnDelete:CASCADE;foreignKey:BadgeID;references:ID" json:"badge,omitempty"`
	EarnedAt      time.Time    `gorm:"not null;column:earned_at" json:"earned_at"`
	CreatedAt     time.Time    `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:now()" json:"updated_at"`
}

func (BeneficiaryBadge) TableName() string { return "beneficiary_badge" }
