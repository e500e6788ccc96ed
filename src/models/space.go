package models

import (
	"cws/src/types"
)

// CategoryTally holds the per-space professional-category counters, one per
// fixed category. Display analytics only; bumped on redemption.
type CategoryTally struct {
	TallyDeveloper  uint `gorm:"default:0" json:"tally_developer"`
	TallyDesigner   uint `gorm:"default:0" json:"tally_designer"`
	TallyWriter     uint `gorm:"default:0" json:"tally_writer"`
	TallyMarketer   uint `gorm:"default:0" json:"tally_marketer"`
	TallyConsultant uint `gorm:"default:0" json:"tally_consultant"`
	TallyFounder    uint `gorm:"default:0" json:"tally_founder"`
	TallyFreelancer uint `gorm:"default:0" json:"tally_freelancer"`
	TallyStudent    uint `gorm:"default:0" json:"tally_student"`
	TallyArtist     uint `gorm:"default:0" json:"tally_artist"`
	TallyOther      uint `gorm:"default:0" json:"tally_other"`
}

// TallyColumn resolves a professional category to its counter column.
// Unknown values land in tally_other.
func TallyColumn(category types.ProfessionalCategory) string {
	switch types.NormalizeCategory(string(category)) {
	case types.CATEGORY_DEVELOPER:
		return "tally_developer"
	case types.CATEGORY_DESIGNER:
		return "tally_designer"
	case types.CATEGORY_WRITER:
		return "tally_writer"
	case types.CATEGORY_MARKETER:
		return "tally_marketer"
	case types.CATEGORY_CONSULTANT:
		return "tally_consultant"
	case types.CATEGORY_FOUNDER:
		return "tally_founder"
	case types.CATEGORY_FREELANCER:
		return "tally_freelancer"
	case types.CATEGORY_STUDENT:
		return "tally_student"
	case types.CATEGORY_ARTIST:
		return "tally_artist"
	default:
		return "tally_other"
	}
}

type Space struct {
	ID          uint             `gorm:"primarykey" json:"id"`
	BusinessID  uint             `json:"business_id,omitempty"`
	Name        string           `json:"name,omitempty"`
	Slug        string           `gorm:"uniqueIndex" json:"slug,omitempty"`
	Description string           `json:"description,omitempty"`
	Address     string           `json:"address,omitempty"`
	City        string           `gorm:"index" json:"city,omitempty"`
	Latitude    float64          `json:"latitude,omitempty"`
	Longitude   float64          `json:"longitude,omitempty"`
	TotalSeats  uint             `json:"total_seats"`
	// Invariant: 0 <= available_seats <= total_seats. Mutated only inside a
	// transaction holding the row lock.
	AvailableSeats uint             `json:"available_seats"`
	HourlyRate     float64          `json:"hourly_rate"`
	DailyRate      float64          `json:"daily_rate"`
	Amenities      types.JSONBArray `gorm:"type:jsonb" json:"amenities,omitempty"`
	Images         types.JSONBArray `gorm:"type:jsonb" json:"images,omitempty"`
	IsActive       bool             `gorm:"default:true" json:"is_active"`

	CategoryTally

	Business BusinessInfo `gorm:"foreignKey:business_id" json:"-"`
	Bookings []Booking    `gorm:"foreignKey:space_id" json:"bookings,omitempty"`
	Reviews  []Review     `gorm:"foreignKey:space_id" json:"reviews,omitempty"`

	types.Timestamps
}
