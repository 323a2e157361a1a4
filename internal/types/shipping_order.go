package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ShippingStatus string

const (
	ShippingStatusPending   ShippingStatus = "pending"
	ShippingStatusShipped   ShippingStatus = "shipped"
	ShippingStatusDelivered ShippingStatus = "delivered"
)

// ShippingOrder is created per deliver call. Every claim of a physical
// reward ships; deliveries are not de-duplicated.
type ShippingOrder struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BeneficiaryID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"beneficiary_id"`
	Beneficiary       *Beneficiary   `gorm:"constraint:OnDelete:CASCADE;foreignKey:BeneficiaryID;references:ID" json:"beneficiary,omitempty"`
	RewardID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"reward_id"`
	Reward            *Reward        `gorm:"constraint:OnDelete:CASCADE;foreignKey:RewardID;references:ID" json:"reward,omitempty"`
	ItemName          string         `gorm:"not null;column:item_name" json:"item_name"`
	AddressSnapshot   datatypes.JSON `gorm:"type:jsonb;not null;column:address_snapshot" json:"address_snapshot"`
	Status            ShippingStatus `gorm:"not null;default:'pending';index;column:status" json:"status"`
	TrackingCode      string         `gorm:"column:tracking_code" json:"tracking_code"`
	EstimatedDelivery time.Time      `gorm:"not null;column:estimated_delivery" json:"estimated_delivery"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (ShippingOrder) TableName() string { return "shipping_order" }
