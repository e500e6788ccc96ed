package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any
type JSONBArray []any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

func (a JSONBArray) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONBArray) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

// AccountRole is the authorization role of an account. It is deliberately a
// separate type from ProfessionalCategory; the two must never be conflated.
type AccountRole string

const (
	ROLE_USER      AccountRole = "user"
	ROLE_OWNER     AccountRole = "owner"
	ROLE_ADMIN     AccountRole = "admin"
	ROLE_MODERATOR AccountRole = "moderator"
)

// ProfessionalCategory is a self-reported tag used only for per-space
// analytics tallies. It grants no permissions.
type ProfessionalCategory string

const (
	CATEGORY_DEVELOPER  ProfessionalCategory = "developer"
	CATEGORY_DESIGNER   ProfessionalCategory = "designer"
	CATEGORY_WRITER     ProfessionalCategory = "writer"
	CATEGORY_MARKETER   ProfessionalCategory = "marketer"
	CATEGORY_CONSULTANT ProfessionalCategory = "consultant"
	CATEGORY_FOUNDER    ProfessionalCategory = "founder"
	CATEGORY_FREELANCER ProfessionalCategory = "freelancer"
	CATEGORY_STUDENT    ProfessionalCategory = "student"
	CATEGORY_ARTIST     ProfessionalCategory = "artist"
	CATEGORY_OTHER      ProfessionalCategory = "other"
)

func ProfessionalCategories() []ProfessionalCategory {
	return []ProfessionalCategory{
		CATEGORY_DEVELOPER,
		CATEGORY_DESIGNER,
		CATEGORY_WRITER,
		CATEGORY_MARKETER,
		CATEGORY_CONSULTANT,
		CATEGORY_FOUNDER,
		CATEGORY_FREELANCER,
		CATEGORY_STUDENT,
		CATEGORY_ARTIST,
		CATEGORY_OTHER,
	}
}

// NormalizeCategory maps unknown or legacy tags to the default bucket so the
// analytics tally never fails a redemption.
func NormalizeCategory(v string) ProfessionalCategory {
	c := ProfessionalCategory(v)
	for _, known := range ProfessionalCategories() {
		if c == known {
			return c
		}
	}
	return CATEGORY_OTHER
}

type BookingStatus string

const (
	BOOKING_PENDING   BookingStatus = "pending"
	BOOKING_CONFIRMED BookingStatus = "confirmed"
	BOOKING_CANCELED  BookingStatus = "cancelled"
	BOOKING_COMPLETED BookingStatus = "completed"
)

type ApprovalStatus string

const (
	APPROVAL_PENDING  ApprovalStatus = "pending"
	APPROVAL_APPROVED ApprovalStatus = "approved"
	APPROVAL_REJECTED ApprovalStatus = "rejected"
)

type TaxAppliesTo string

const (
	TAX_APPLIES_BOOKING TaxAppliesTo = "booking"
	TAX_APPLIES_PAYOUT  TaxAppliesTo = "owner_payout"
	TAX_APPLIES_BOTH    TaxAppliesTo = "both"
)

type TransactionStatus string

const (
	TRANSACTION_PENDING  TransactionStatus = "pending"
	TRANSACTION_PAID     TransactionStatus = "paid"
	TRANSACTION_CANCELED TransactionStatus = "canceled"
)

type TransactionKind string

const (
	TRANSACTION_BOOKING      TransactionKind = "booking"
	TRANSACTION_PLAN_UPGRADE TransactionKind = "plan_upgrade"
)

type PayoutStatus string

const (
	PAYOUT_AUTHORIZED PayoutStatus = "authorized"
	PAYOUT_SETTLED    PayoutStatus = "settled"
)

type PlanTier string

const (
	PLAN_BASIC   PlanTier = "basic"
	PLAN_PREMIUM PlanTier = "premium"
)

type Claims struct {
	Email    string      `json:"email"`
	Role     AccountRole `json:"role"`
	IsActive bool        `json:"is_active"`
	jwt.RegisteredClaims
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type RegisterUserRequestBody struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone,omitempty"`
	City     string `json:"city,omitempty"`
	Category string `json:"category,omitempty"`
}

type LoginRequestBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type VerifyEmailRequestBody struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6"`
}

type UpdateProfileRequestBody struct {
	Name     *string `json:"name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	City     *string `json:"city,omitempty"`
	Category *string `json:"category,omitempty"`
}

type ResendOTPRequestBody struct {
	Email string `json:"email" binding:"required,email"`
}

type RegisterOwnerRequestBody struct {
	LegalName    string `json:"legal_name" binding:"required"`
	TaxID        string `json:"tax_id" binding:"required"`
	Address      string `json:"address" binding:"required"`
	City         string `json:"city" binding:"required"`
	PostalCode   string `json:"postal_code,omitempty"`
	ContactEmail string `json:"contact_email" binding:"required,email"`
	ContactPhone string `json:"contact_phone,omitempty"`
}

type CreateSpaceRequestBody struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description,omitempty"`
	Address     string     `json:"address" binding:"required"`
	City        string     `json:"city" binding:"required"`
	Latitude    float64    `json:"latitude,omitempty"`
	Longitude   float64    `json:"longitude,omitempty"`
	TotalSeats  uint       `json:"total_seats" binding:"required,min=1"`
	HourlyRate  float64    `json:"hourly_rate" binding:"required,gt=0"`
	DailyRate   float64    `json:"daily_rate" binding:"required,gt=0"`
	Amenities   JSONBArray `json:"amenities,omitempty"`
	Images      JSONBArray `json:"images,omitempty"`
}

type UpdateSpaceRequestBody struct {
	Name        *string     `json:"name,omitempty"`
	Description *string     `json:"description,omitempty"`
	Address     *string     `json:"address,omitempty"`
	City        *string     `json:"city,omitempty"`
	TotalSeats  *uint       `json:"total_seats,omitempty" binding:"omitempty,min=1"`
	HourlyRate  *float64    `json:"hourly_rate,omitempty" binding:"omitempty,gt=0"`
	DailyRate   *float64    `json:"daily_rate,omitempty" binding:"omitempty,gt=0"`
	Amenities   *JSONBArray `json:"amenities,omitempty"`
	Images      *JSONBArray `json:"images,omitempty"`
	IsActive    *bool       `json:"is_active,omitempty"`
}

type CreateBookingRequestBody struct {
	SpaceID   uint   `json:"space_id" binding:"required"`
	StartTime string `json:"start_time" binding:"required,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	EndTime   string `json:"end_time" binding:"required,bookabledate,gtdate=StartTime" time_format:"2006-01-02 15:04:05 -07:00"`
	Seats     uint   `json:"seats" binding:"required,min=1"`
	FullDay   bool   `json:"full_day,omitempty"`
}

type RedeemBookingRequestBody struct {
	RedemptionCode string `json:"redemptionCode" binding:"required"`
}

type CreateReviewRequestBody struct {
	SpaceID     uint   `json:"space_id" binding:"required"`
	Rating      uint   `json:"rating" binding:"required,min=1,max=5"`
	Comment     string `json:"comment,omitempty"`
	Cleanliness uint   `json:"cleanliness,omitempty" binding:"omitempty,min=1,max=5"`
	Wifi        uint   `json:"wifi,omitempty" binding:"omitempty,min=1,max=5"`
	Comfort     uint   `json:"comfort,omitempty" binding:"omitempty,min=1,max=5"`
	Location    uint   `json:"location,omitempty" binding:"omitempty,min=1,max=5"`
}

type CreateTaxRequestBody struct {
	Name       string  `json:"name" binding:"required"`
	Percentage float64 `json:"percentage" binding:"required,gt=0,lte=100"`
	AppliesTo  string  `json:"applies_to" binding:"required,oneof=booking owner_payout both"`
}

type UpdateTaxRequestBody struct {
	Name       *string  `json:"name,omitempty"`
	Percentage *float64 `json:"percentage,omitempty" binding:"omitempty,gt=0,lte=100"`
	AppliesTo  *string  `json:"applies_to,omitempty" binding:"omitempty,oneof=booking owner_payout both"`
	IsEnabled  *bool    `json:"is_enabled,omitempty"`
}

type CreatePayoutRequestBody struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

type CreateOrderRequestBody struct {
	BookingID uint `json:"booking_id" binding:"required"`
}

type CreatePlanOrderRequestBody struct {
	Tier string `json:"tier" binding:"required,oneof=premium"`
}

type SpacesQueryFilters struct {
	City     string  `form:"city,omitempty"`
	Seats    uint    `form:"seats,omitempty"`
	MaxRate  float64 `form:"max_rate,omitempty"`
	Page     int     `form:"page,omitempty"`
	PageSize int     `form:"page_size,omitempty"`
}

type DateRangeQueryFilters struct {
	From string `form:"from,omitempty"`
	To   string `form:"to,omitempty"`
}

type OwnersQueryFilters struct {
	Status string `form:"status,omitempty" binding:"omitempty,oneof=pending approved rejected"`
}

// TaxLine is one applied tax rule in a booking quote breakdown.
type TaxLine struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
	Amount     float64 `json:"amount"`
}

// BookingQuote is the computed financial breakdown for a prospective booking.
type BookingQuote struct {
	Units       uint      `json:"units"`
	FullDay     bool      `json:"full_day"`
	BaseAmount  float64   `json:"base_amount"`
	TaxAmount   float64   `json:"tax_amount"`
	TotalAmount float64   `json:"total_amount"`
	OwnerPayout float64   `json:"owner_payout"`
	Taxes       []TaxLine `json:"taxes,omitempty"`
}

type APIResponseSpace struct {
	ID             uint       `json:"id"`
	Name           string     `json:"name,omitempty"`
	Slug           string     `json:"slug,omitempty"`
	Description    string     `json:"description,omitempty"`
	City           string     `json:"city,omitempty"`
	Address        string     `json:"address,omitempty"`
	TotalSeats     uint       `json:"total_seats,omitempty"`
	AvailableSeats uint       `json:"available_seats"`
	HourlyRate     float64    `json:"hourly_rate,omitempty"`
	DailyRate      float64    `json:"daily_rate,omitempty"`
	Amenities      JSONBArray `json:"amenities,omitempty"`
	Images         JSONBArray `json:"images,omitempty"`
	RatingAverage  float64    `json:"rating_average,omitempty"`
	RatingCount    int64      `json:"rating_count,omitempty"`
}
