package utils

import (
	"crypto/rand"
	"cws/src/config"
	"cws/src/db"
	"cws/src/models"
	"cws/src/types"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInsufficientCapacity = errors.New("not enough seats available")
	ErrMalformedTimeRange   = errors.New("end time must be after start time")
	ErrAlreadyRedeemed      = errors.New("booking has already been redeemed")
	ErrInvalidBookingState  = errors.New("booking is not in a redeemable state")
	ErrBookingNotCancelable = errors.New("booking can no longer be cancelled")
	ErrInsufficientBalance  = errors.New("payout amount exceeds pending balance")
)

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password string, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func GenerateJWT(user *models.User) (string, error) {
	expirationTime := time.Now().Add(24 * time.Hour)
	claims := &types.Claims{
		Email:    user.Email,
		Role:     user.Role,
		IsActive: user.IsActive,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(int(user.ID)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.Get().JWTSecret))
}

// GenerateOTP returns a 6-digit code and its expiry.
func GenerateOTP() (string, time.Time) {
	n, _ := rand.Int(rand.Reader, big.NewInt(1000000))
	return fmt.Sprintf("%06d", n.Int64()), time.Now().Add(10 * time.Minute)
}

const redemptionCodePrefix = "CWS"

// GenerateRedemptionCode issues a namespaced code with a time component and a
// random suffix. Global uniqueness is the unique index's job; this only keeps
// collisions improbable.
func GenerateRedemptionCode() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixNano(), 36))
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		log.Printf("Error generating code suffix: %s\n", err.Error())
	}
	return fmt.Sprintf("%s-%s-%s", redemptionCodePrefix, ts, strings.ToUpper(hex.EncodeToString(suffix)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BillableUnits derives the number of chargeable units from a time range.
// Hourly units unless fullDay; both round partial units up.
func BillableUnits(start time.Time, end time.Time, fullDay bool) (uint, error) {
	if !end.After(start) {
		return 0, ErrMalformedTimeRange
	}
	hours := math.Ceil(end.Sub(start).Hours())
	if fullDay {
		days := math.Ceil(hours / 24)
		if days < 1 {
			days = 1
		}
		return uint(days), nil
	}
	if hours < 1 {
		hours = 1
	}
	return uint(hours), nil
}

// QuoteFromTaxes applies the enabled tax rules to a base amount. Rules with
// applies_to=both count on both sides independently.
func QuoteFromTaxes(baseAmount float64, taxes []models.TaxConfiguration) *types.BookingQuote {
	quote := &types.BookingQuote{
		BaseAmount: round2(baseAmount),
	}
	var taxAmount, commission float64
	for _, t := range taxes {
		if !t.IsEnabled {
			continue
		}
		amount := round2(t.Percentage / 100 * baseAmount)
		if t.AppliesTo == types.TAX_APPLIES_BOOKING || t.AppliesTo == types.TAX_APPLIES_BOTH {
			taxAmount += amount
			quote.Taxes = append(quote.Taxes, types.TaxLine{
				Name:       t.Name,
				Percentage: t.Percentage,
				Amount:     amount,
			})
		}
		if t.AppliesTo == types.TAX_APPLIES_PAYOUT || t.AppliesTo == types.TAX_APPLIES_BOTH {
			commission += amount
		}
	}
	quote.TaxAmount = round2(taxAmount)
	quote.TotalAmount = round2(baseAmount + taxAmount)
	quote.OwnerPayout = round2(baseAmount - commission)
	return quote
}

// ComputeBookingQuote prices a prospective booking against a space's rates
// and the enabled tax configuration.
func ComputeBookingQuote(tx *gorm.DB, space *models.Space, start time.Time, end time.Time, seats uint, fullDay bool) (*types.BookingQuote, error) {
	units, err := BillableUnits(start, end, fullDay)
	if err != nil {
		return nil, err
	}
	rate := space.HourlyRate
	if fullDay {
		rate = space.DailyRate
	}
	baseAmount := rate * float64(units) * float64(seats)

	var taxes []models.TaxConfiguration
	if err := tx.
		Model(&models.TaxConfiguration{}).
		Where(&models.TaxConfiguration{IsEnabled: true}).
		Find(&taxes).
		Error; err != nil {
		return nil, err
	}
	quote := QuoteFromTaxes(baseAmount, taxes)
	quote.Units = units
	quote.FullDay = fullDay
	return quote, nil
}

// CreateBooking prices and persists a booking and decrements the space's
// available seats in one transaction, holding the Space row lock across the
// check-and-decrement so concurrent requests cannot oversell.
func CreateBooking(userId uint, category types.ProfessionalCategory, params *types.CreateBookingRequestBody) (*models.Booking, error) {
	start, err := time.Parse(config.TIME_PARSE_FORMAT, params.StartTime)
	if err != nil {
		return nil, ErrMalformedTimeRange
	}
	end, err := time.Parse(config.TIME_PARSE_FORMAT, params.EndTime)
	if err != nil {
		return nil, ErrMalformedTimeRange
	}

	var booking models.Booking
	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		var space models.Space
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(&models.Space{ID: params.SpaceID, IsActive: true}).
			First(&space).
			Error; err != nil {
			return err
		}
		if params.Seats > space.AvailableSeats {
			return ErrInsufficientCapacity
		}
		quote, err := ComputeBookingQuote(tx, &space, start, end, params.Seats, params.FullDay)
		if err != nil {
			return err
		}
		booking = models.Booking{
			UserID:         userId,
			SpaceID:        space.ID,
			StartTime:      start,
			EndTime:        end,
			Seats:          params.Seats,
			FullDay:        params.FullDay,
			BaseAmount:     quote.BaseAmount,
			TaxAmount:      quote.TaxAmount,
			TotalAmount:    quote.TotalAmount,
			OwnerPayout:    quote.OwnerPayout,
			Currency:       config.Get().Currency,
			RedemptionCode: GenerateRedemptionCode(),
			Status:         types.BOOKING_PENDING,
			Category:       types.NormalizeCategory(string(category)),
		}
		if err := tx.Create(&booking).Error; err != nil {
			err = fmt.Errorf("error in Booking transaction: %s", err.Error())
			log.Println(err.Error())
			return err
		}
		res := tx.
			Model(&models.Space{}).
			Where("id = ? AND available_seats >= ?", space.ID, params.Seats).
			UpdateColumn("available_seats", gorm.Expr("available_seats - ?", params.Seats))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientCapacity
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// ConfirmBooking moves a pending booking to confirmed and accrues the owner
// payout on the business's pending balance. Runs inside the caller's
// transaction.
func ConfirmBooking(tx *gorm.DB, bookingId uint) (*models.Booking, error) {
	var booking models.Booking
	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(&models.Booking{ID: bookingId}).
		Preload("Space").
		First(&booking).
		Error; err != nil {
		return nil, err
	}
	if booking.Status != types.BOOKING_PENDING {
		return nil, ErrInvalidBookingState
	}
	if err := tx.
		Model(&models.Booking{}).
		Where(&models.Booking{ID: bookingId}).
		Update("status", types.BOOKING_CONFIRMED).
		Error; err != nil {
		return nil, err
	}
	booking.Status = types.BOOKING_CONFIRMED
	if err := creditPendingBalance(tx, booking.Space.BusinessID, booking.OwnerPayout); err != nil {
		return nil, err
	}
	return &booking, nil
}

func creditPendingBalance(tx *gorm.DB, businessId uint, amount float64) error {
	var balance models.BusinessBalance
	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(models.BusinessBalance{BusinessID: businessId}).
		FirstOrCreate(&balance).
		Error; err != nil {
		return err
	}
	return tx.
		Model(&models.BusinessBalance{}).
		Where("business_id = ?", businessId).
		UpdateColumn("pending_amount", gorm.Expr("pending_amount + ?", amount)).
		Error
}

// CancelBooking cancels a pending or confirmed booking and restores exactly
// the booked seats, never above total_seats. Completed and cancelled are
// terminal.
func CancelBooking(userId uint, bookingId uint) (*models.Booking, error) {
	var booking models.Booking
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(&models.Booking{ID: bookingId, UserID: userId}).
			Preload("Space").
			First(&booking).
			Error; err != nil {
			return err
		}
		if booking.Status != types.BOOKING_PENDING && booking.Status != types.BOOKING_CONFIRMED {
			return ErrBookingNotCancelable
		}
		wasConfirmed := booking.Status == types.BOOKING_CONFIRMED
		if err := tx.
			Model(&models.Booking{}).
			Where(&models.Booking{ID: bookingId}).
			Update("status", types.BOOKING_CANCELED).
			Error; err != nil {
			return err
		}
		booking.Status = types.BOOKING_CANCELED
		if err := tx.
			Model(&models.Space{}).
			Where("id = ?", booking.SpaceID).
			UpdateColumn("available_seats", gorm.Expr(
				"LEAST(available_seats + ?, total_seats)", booking.Seats,
			)).
			Error; err != nil {
			return err
		}
		if wasConfirmed {
			if err := tx.
				Model(&models.BusinessBalance{}).
				Where("business_id = ?", booking.Space.BusinessID).
				UpdateColumn("pending_amount", gorm.Expr(
					"GREATEST(pending_amount - ?, 0)", booking.OwnerPayout,
				)).
				Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// RedeemBooking consumes a confirmed booking by its single-use code, scoped
// to spaces owned by the acting owner. Redemption is terminal: seats are not
// restored, and one per-space category counter is bumped from the booking's
// frozen professional tag.
func RedeemBooking(actingUserId uint, code string) (*models.Booking, error) {
	var booking models.Booking
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		var owner models.SpaceOwner
		if err := tx.
			Where(&models.SpaceOwner{UserID: actingUserId}).
			First(&owner).
			Error; err != nil {
			return err
		}
		var business models.BusinessInfo
		if err := tx.
			Where(&models.BusinessInfo{OwnerID: owner.ID}).
			First(&business).
			Error; err != nil {
			return err
		}
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(&models.Booking{RedemptionCode: code}).
			Joins("Space").
			Where("\"Space\".business_id = ?", business.ID).
			First(&booking).
			Error; err != nil {
			return err
		}
		if booking.IsRedeemed {
			return ErrAlreadyRedeemed
		}
		if booking.Status != types.BOOKING_CONFIRMED {
			return ErrInvalidBookingState
		}
		now := time.Now()
		if err := tx.
			Model(&models.Booking{}).
			Where(&models.Booking{ID: booking.ID}).
			Updates(map[string]any{
				"is_redeemed": true,
				"redeemed_at": now,
				"redeemed_by": owner.ID,
				"status":      types.BOOKING_COMPLETED,
			}).
			Error; err != nil {
			return err
		}
		booking.IsRedeemed = true
		booking.RedeemedAt = &now
		booking.RedeemedBy = &owner.ID
		booking.Status = types.BOOKING_COMPLETED

		// Best-effort analytics; a tally failure must not fail the redemption.
		column := models.TallyColumn(booking.Category)
		if err := tx.
			Model(&models.Space{}).
			Where("id = ?", booking.SpaceID).
			UpdateColumn(column, gorm.Expr(column+" + 1")).
			Error; err != nil {
			log.Printf("Error updating tally [%s] for Space [%d]: %s\n", column, booking.SpaceID, err.Error())
		}

		if err := tx.
			Model(&models.BusinessBalance{}).
			Where("business_id = ?", business.ID).
			UpdateColumn("current_balance", gorm.Expr("current_balance + ?", booking.OwnerPayout)).
			Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// AuthorizePayout draws from a business's pending balance; the amount check,
// ledger mutation and payout row are one transaction with the balance row
// locked.
func AuthorizePayout(actingUserId uint, amount float64) (*models.SpaceOwnerPayout, error) {
	var payout models.SpaceOwnerPayout
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		var owner models.SpaceOwner
		if err := tx.
			Where(&models.SpaceOwner{UserID: actingUserId}).
			First(&owner).
			Error; err != nil {
			return err
		}
		var business models.BusinessInfo
		if err := tx.
			Where(&models.BusinessInfo{OwnerID: owner.ID}).
			First(&business).
			Error; err != nil {
			return err
		}
		var balance models.BusinessBalance
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(&models.BusinessBalance{BusinessID: business.ID}).
			First(&balance).
			Error; err != nil {
			return err
		}
		if amount > balance.PendingAmount {
			return ErrInsufficientBalance
		}
		if err := tx.
			Model(&models.BusinessBalance{}).
			Where("business_id = ?", business.ID).
			UpdateColumns(map[string]any{
				"pending_amount":  gorm.Expr("pending_amount - ?", amount),
				"total_withdrawn": gorm.Expr("total_withdrawn + ?", amount),
			}).
			Error; err != nil {
			return err
		}
		payout = models.SpaceOwnerPayout{
			BusinessID:  business.ID,
			Amount:      round2(amount),
			Status:      types.PAYOUT_AUTHORIZED,
			RequestedBy: actingUserId,
		}
		if err := tx.Create(&payout).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// EligibleToReview reports whether the user holds at least one redeemed
// booking for the space.
func EligibleToReview(tx *gorm.DB, userId uint, spaceId uint) (bool, error) {
	var count int64
	err := tx.
		Model(&models.Booking{}).
		Where(&models.Booking{UserID: userId, SpaceID: spaceId, IsRedeemed: true}).
		Count(&count).
		Error
	return count > 0, err
}
