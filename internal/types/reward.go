package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RewardKind string

const (
	RewardKindBadge          RewardKind = "badge"
	RewardKindDiscount       RewardKind = "discount"
	RewardKindDigitalItem    RewardKind = "digital_item"
	RewardKindServiceUpgrade RewardKind = "service_upgrade"
	RewardKindPhysicalItem   RewardKind = "physical_item"
	RewardKindPriorityAccess RewardKind = "priority_access"
	RewardKindFeatureUnlock  RewardKind = "feature_unlock"
)

// Reward is a catalog item. Rows are read-only once published; handlers
// interpret DeliveryConfig per kind.
type Reward struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Code           string         `gorm:"uniqueIndex;not null;column:code" json:"code"`
	Name           string         `gorm:"not null;column:name" json:"name"`
	Description    string         `gorm:"column:description" json:"description"`
	Kind           RewardKind     `gorm:"not null;index;column:kind" json:"kind"`
	DeliveryConfig datatypes.JSON `gorm:"type:jsonb;column:delivery_config" json:"delivery_config"`
	IsPremium      bool           `gorm:"not null;default:false;column:is_premium" json:"is_premium"`
	PointsCost     int            `gorm:"not null;default:0;column:points_cost" json:"points_cost"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Reward) TableName() string { return "reward" }
