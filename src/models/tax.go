package models

import "cws/src/types"

// TaxConfiguration is an admin-managed percentage rule. Rules in use are
// soft-disabled via IsEnabled rather than deleted.
type TaxConfiguration struct {
	ID         uint               `gorm:"primarykey" json:"id"`
	Name       string             `json:"name,omitempty"`
	Percentage float64            `json:"percentage"`
	AppliesTo  types.TaxAppliesTo `gorm:"default:'booking'" json:"applies_to"`
	IsEnabled  bool               `gorm:"default:true" json:"is_enabled"`
	CreatedBy  uint               `json:"-"`

	types.Timestamps
}
