package main

import (
	"cws/src/db"
	"cws/src/lib/mailer"
	"cws/src/models"
	"cws/src/prometheus"
	"cws/src/types"
	"cws/src/utils"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var errOwnerNotApproved = errors.New("owner account is not approved")

// ownerBusiness resolves the acting user to their business row. Every owner
// query goes through this so listings and ledgers stay scoped.
func ownerBusiness(tx *gorm.DB, userId uint) (*models.BusinessInfo, error) {
	var owner models.SpaceOwner
	if err := tx.
		Where(&models.SpaceOwner{UserID: userId}).
		First(&owner).
		Error; err != nil {
		return nil, err
	}
	var business models.BusinessInfo
	if err := tx.
		Where(&models.BusinessInfo{OwnerID: owner.ID}).
		First(&business).
		Error; err != nil {
		return nil, err
	}
	return &business, nil
}

// approvedOwner additionally requires the approval workflow to have passed.
func approvedOwner(tx *gorm.DB, userId uint) (*models.SpaceOwner, error) {
	var owner models.SpaceOwner
	if err := tx.
		Where(&models.SpaceOwner{UserID: userId}).
		First(&owner).
		Error; err != nil {
		return nil, err
	}
	if owner.ApprovalStatus != types.APPROVAL_APPROVED {
		return nil, errOwnerNotApproved
	}
	return &owner, nil
}

func ownerHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/owner/redeem-booking", func(ctx *gin.Context) {
			var body types.RedeemBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			booking, err := utils.RedeemBooking(userId, body.RedemptionCode)
			if err != nil {
				switch {
				case errors.Is(err, gorm.ErrRecordNotFound):
					prometheus.RecordRedemption("not_found")
					ctx.JSON(http.StatusNotFound, gin.H{"error": "no matching booking for this code"})
				case errors.Is(err, utils.ErrAlreadyRedeemed):
					prometheus.RecordRedemption("already_redeemed")
					ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				case errors.Is(err, utils.ErrInvalidBookingState):
					prometheus.RecordRedemption("invalid_state")
					ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				default:
					prometheus.RecordRedemption("error")
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				}
				return
			}
			prometheus.RecordRedemption("success")
			var booker models.User
			if err := db.GetDb().First(&booker, booking.UserID).Error; err == nil {
				mailer.Dispatch(booker.Email, "Checked in",
					fmt.Sprintf("<p>Your booking #%d has been redeemed. Enjoy your session!</p>", booking.ID))
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		GET("/owner/bookings", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var filters types.DateRangeQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var bookings []models.Booking
			err := db.Transaction(func(tx *gorm.DB) error {
				business, err := ownerBusiness(tx, userId)
				if err != nil {
					return err
				}
				q := tx.
					Model(&models.Booking{}).
					Joins("Space").
					Where("\"Space\".business_id = ?", business.ID)
				if filters.From != "" {
					q = q.Where("bookings.start_time >= ?", filters.From)
				}
				if filters.To != "" {
					q = q.Where("bookings.start_time <= ?", filters.To)
				}
				return q.
					Preload("User").
					Order("bookings.created_at DESC").
					Limit(200).
					Find(&bookings).
					Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		GET("/owner/dashboard", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var out gin.H
			err := db.Transaction(func(tx *gorm.DB) error {
				business, err := ownerBusiness(tx, userId)
				if err != nil {
					return err
				}
				var totals struct {
					Bookings  int64
					Completed int64
					Revenue   float64
				}
				if err := tx.
					Model(&models.Booking{}).
					Select(
						"COUNT(*) AS bookings, "+
							"COUNT(*) FILTER (WHERE bookings.status = ?) AS completed, "+
							"COALESCE(SUM(bookings.owner_payout) FILTER (WHERE bookings.status = ?), 0) AS revenue",
						types.BOOKING_COMPLETED, types.BOOKING_COMPLETED,
					).
					Joins("Space").
					Where("\"Space\".business_id = ?", business.ID).
					Scan(&totals).
					Error; err != nil {
					return err
				}
				var spaces []models.Space
				if err := tx.
					Model(&models.Space{}).
					Where(&models.Space{BusinessID: business.ID}).
					Find(&spaces).
					Error; err != nil {
					return err
				}
				// Category tallies are rolled up across the business's spaces
				// for the professional-mix widget.
				tallies := map[string]uint{}
				for _, s := range spaces {
					tallies["developer"] += s.TallyDeveloper
					tallies["designer"] += s.TallyDesigner
					tallies["writer"] += s.TallyWriter
					tallies["marketer"] += s.TallyMarketer
					tallies["consultant"] += s.TallyConsultant
					tallies["founder"] += s.TallyFounder
					tallies["freelancer"] += s.TallyFreelancer
					tallies["student"] += s.TallyStudent
					tallies["artist"] += s.TallyArtist
					tallies["other"] += s.TallyOther
				}
				var balance models.BusinessBalance
				if err := tx.
					Where(models.BusinessBalance{BusinessID: business.ID}).
					FirstOrCreate(&balance).
					Error; err != nil {
					return err
				}
				out = gin.H{
					"bookings_total":     totals.Bookings,
					"bookings_completed": totals.Completed,
					"revenue":            totals.Revenue,
					"spaces":             len(spaces),
					"tallies":            tallies,
					"balance":            balance,
				}
				return nil
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": out})
		}).
		GET("/owner/balance", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var balance models.BusinessBalance
			err := db.Transaction(func(tx *gorm.DB) error {
				business, err := ownerBusiness(tx, userId)
				if err != nil {
					return err
				}
				return tx.
					Where(models.BusinessBalance{BusinessID: business.ID}).
					FirstOrCreate(&balance).
					Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": balance})
		}).
		POST("/owner/payouts", func(ctx *gin.Context) {
			var body types.CreatePayoutRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			payout, err := utils.AuthorizePayout(userId, body.Amount)
			if err != nil {
				if errors.Is(err, utils.ErrInsufficientBalance) {
					ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
					return
				}
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			prometheus.PayoutsCounter.Inc()
			email := ctx.GetString("email")
			mailer.Dispatch(email, "Payout authorized",
				fmt.Sprintf("<p>Your payout of %.2f has been authorized. Reference: %s</p>", payout.Amount, payout.ID))
			ctx.JSON(http.StatusCreated, gin.H{"data": payout})
		}).
		GET("/owner/payouts", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var payouts []models.SpaceOwnerPayout
			err := db.Transaction(func(tx *gorm.DB) error {
				business, err := ownerBusiness(tx, userId)
				if err != nil {
					return err
				}
				return tx.
					Model(&models.SpaceOwnerPayout{}).
					Where(&models.SpaceOwnerPayout{BusinessID: business.ID}).
					Order("created_at DESC").
					Find(&payouts).
					Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payouts, "count": len(payouts)})
		})
	return g
}
