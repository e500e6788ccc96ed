package models

import (
	"cws/src/types"
	"time"

	"github.com/google/uuid"
)

type Booking struct {
	ID      uint `gorm:"primarykey" json:"id"`
	UserID  uint `json:"user_id,omitempty"`
	SpaceID uint `json:"space_id,omitempty"`

	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
	Seats     uint      `json:"seats,omitempty"`
	FullDay   bool      `json:"full_day"`

	BaseAmount  float64 `json:"base_amount"`
	TaxAmount   float64 `json:"tax_amount"`
	TotalAmount float64 `json:"total_amount"`
	// OwnerPayout is derived from BaseAmount minus platform commission,
	// independent of consumer-facing tax.
	OwnerPayout float64 `json:"owner_payout"`
	Currency    string  `gorm:"default:'inr'" json:"currency,omitempty"`

	// Issued once at creation, immutable afterwards. Uniqueness is enforced
	// by the index, not by randomness.
	RedemptionCode string     `gorm:"uniqueIndex" json:"redemption_code,omitempty"`
	IsRedeemed     bool       `gorm:"default:false" json:"is_redeemed"`
	RedeemedAt     *time.Time `json:"redeemed_at,omitempty"`
	RedeemedBy     *uint      `json:"redeemed_by,omitempty"`

	Status types.BookingStatus `gorm:"default:'pending'" json:"status,omitempty"`

	// The booker's professional tag frozen at creation time, so later profile
	// edits do not shift the analytics bucket.
	Category types.ProfessionalCategory `json:"category,omitempty"`

	TransactionID *uuid.UUID `gorm:"type:uuid" json:"transaction_id,omitempty"`

	User  *User  `gorm:"foreignKey:user_id" json:"user,omitempty"`
	Space *Space `gorm:"foreignKey:space_id" json:"space,omitempty"`

	types.Timestamps
}
