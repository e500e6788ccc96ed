package models

import "cws/src/types"

// Review is at most one per (user, space); eligibility requires a redeemed
// booking on that space.
type Review struct {
	ID      uint `gorm:"primarykey" json:"id"`
	UserID  uint `gorm:"uniqueIndex:user_space_review" json:"user_id,omitempty"`
	SpaceID uint `gorm:"uniqueIndex:user_space_review" json:"space_id,omitempty"`

	Rating      uint   `json:"rating"`
	Comment     string `json:"comment,omitempty"`
	Cleanliness uint   `json:"cleanliness,omitempty"`
	Wifi        uint   `json:"wifi,omitempty"`
	Comfort     uint   `json:"comfort,omitempty"`
	Location    uint   `json:"location,omitempty"`

	User  *User  `gorm:"foreignKey:user_id" json:"user,omitempty"`
	Space *Space `gorm:"foreignKey:space_id" json:"-"`

	types.Timestamps
}
