package models

import (
	"cws/src/types"
	"time"
)

type User struct {
	ID            uint                       `gorm:"primarykey" json:"id"`
	Name          string                     `json:"name,omitempty"`
	Email         string                     `gorm:"uniqueIndex" json:"email,omitempty"`
	Password      string                     `json:"-"`
	Phone         string                     `json:"phone,omitempty"`
	City          string                     `json:"city,omitempty"`
	Category      types.ProfessionalCategory `gorm:"default:'other'" json:"category,omitempty"`
	Role          types.AccountRole          `gorm:"default:'user'" json:"role,omitempty"`
	IsActive      bool                       `gorm:"default:true" json:"is_active"`
	EmailVerified bool                       `gorm:"default:false" json:"email_verified"`
	OTP           *string                    `json:"-"`
	OTPExpiresAt  *time.Time                 `json:"-"`
	LastActive    *time.Time                 `json:"last_active,omitempty"`

	Bookings []Booking `gorm:"foreignKey:user_id" json:"bookings,omitempty"`
	Reviews  []Review  `gorm:"foreignKey:user_id" json:"reviews,omitempty"`

	types.Timestamps
}
