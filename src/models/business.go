package models

import (
	"cws/src/types"

	"github.com/google/uuid"
)

// BusinessInfo is the legal entity under which an owner's spaces are grouped.
// One per SpaceOwner.
type BusinessInfo struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	OwnerID      uint   `gorm:"uniqueIndex" json:"owner_id"`
	LegalName    string `json:"legal_name,omitempty"`
	TaxID        string `json:"tax_id,omitempty"`
	Address      string `json:"address,omitempty"`
	City         string `json:"city,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`

	Owner  SpaceOwner `gorm:"foreignKey:owner_id" json:"-"`
	Spaces []Space    `gorm:"foreignKey:business_id" json:"spaces,omitempty"`

	types.Timestamps
}

// BusinessBalance is the running ledger per business. PendingAmount accrues
// owner payouts as bookings confirm and is the pool payouts draw from;
// CurrentBalance tracks the earned (redeemed) portion.
type BusinessBalance struct {
	ID             uint    `gorm:"primarykey" json:"id"`
	BusinessID     uint    `gorm:"uniqueIndex" json:"business_id"`
	CurrentBalance float64 `gorm:"default:0" json:"current_balance"`
	PendingAmount  float64 `gorm:"default:0" json:"pending_amount"`
	TotalWithdrawn float64 `gorm:"default:0" json:"total_withdrawn"`

	Business BusinessInfo `gorm:"foreignKey:business_id" json:"-"`

	types.Timestamps
}

type SpaceOwnerPayout struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	BusinessID  uint               `json:"business_id"`
	Amount      float64            `json:"amount"`
	Status      types.PayoutStatus `gorm:"default:'authorized'" json:"status"`
	ReferenceID string             `json:"reference_id,omitempty"`
	RequestedBy uint               `json:"-"`

	Business BusinessInfo `gorm:"foreignKey:business_id" json:"-"`

	types.Timestamps
}
