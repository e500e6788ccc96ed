package models

import (
	"cws/src/types"
	"time"
)

// SpaceOwner extends a User with the owner approval workflow. Listings and
// payouts are scoped through the owner's BusinessInfo, never the user row.
type SpaceOwner struct {
	ID                 uint                 `gorm:"primarykey" json:"id"`
	UserID             uint                 `gorm:"uniqueIndex" json:"user_id"`
	ApprovalStatus     types.ApprovalStatus `gorm:"default:'pending'" json:"approval_status"`
	OnboardingComplete bool                 `gorm:"default:false" json:"onboarding_complete"`
	PlanTier           types.PlanTier       `gorm:"default:'basic'" json:"plan_tier"`
	ApprovedBy         *uint                `json:"-"`
	ApprovedAt         *time.Time           `json:"approved_at,omitempty"`
	RejectionReason    *string              `json:"rejection_reason,omitempty"`

	User     User          `gorm:"foreignKey:user_id" json:"user,omitempty"`
	Business *BusinessInfo `gorm:"foreignKey:owner_id" json:"business,omitempty"`

	types.Timestamps
}
