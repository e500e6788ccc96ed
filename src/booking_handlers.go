package main

import (
	"cws/src/config"
	"cws/src/db"
	"cws/src/lib"
	"cws/src/lib/mailer"
	"cws/src/models"
	"cws/src/prometheus"
	"cws/src/types"
	"cws/src/utils"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func bookingErrorStatus(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrInsufficientCapacity):
		return http.StatusConflict
	case errors.Is(err, utils.ErrMalformedTimeRange):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrBookingNotCancelable),
		errors.Is(err, utils.ErrInvalidBookingState),
		errors.Is(err, utils.ErrAlreadyRedeemed):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/bookings/quote", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			start, err := time.Parse(config.TIME_PARSE_FORMAT, body.StartTime)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			end, err := time.Parse(config.TIME_PARSE_FORMAT, body.EndTime)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var quote *types.BookingQuote
			err = db.Transaction(func(tx *gorm.DB) error {
				var space models.Space
				if err := tx.
					Where(&models.Space{ID: body.SpaceID, IsActive: true}).
					First(&space).
					Error; err != nil {
					return err
				}
				quote, err = utils.ComputeBookingQuote(tx, &space, start, end, body.Seats, body.FullDay)
				return err
			})
			if err != nil {
				ctx.JSON(bookingErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": quote})
		}).
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			category := types.ProfessionalCategory(ctx.GetString("category"))
			booking, err := utils.CreateBooking(userId, category, &body)
			if err != nil {
				ctx.JSON(bookingErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			prometheus.RecordBookingOperation("create")
			email := ctx.GetString("email")
			mailer.Dispatch(email, "Booking received",
				fmt.Sprintf("<p>Your booking #%d is awaiting payment.</p><p>Total due: %.2f %s.</p>",
					booking.ID, booking.TotalAmount, booking.Currency))
			ctx.JSON(http.StatusCreated, gin.H{"data": booking})
		}).
		GET("/bookings", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var bookings []models.Booking
			if err := db.
				Model(&models.Booking{}).
				Where(&models.Booking{UserID: userId}).
				Preload("Space").
				Order("created_at DESC").
				Limit(100).
				Find(&bookings).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var booking models.Booking
			if err := db.
				Model(&models.Booking{}).
				Where(&models.Booking{ID: params.ID, UserID: userId}).
				Preload("Space").
				First(&booking).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		GET("/bookings/:id/qr", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var booking models.Booking
			if err := db.
				Model(&models.Booking{}).
				Where(&models.Booking{ID: params.ID, UserID: userId}).
				First(&booking).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			if booking.Status != types.BOOKING_CONFIRMED {
				ctx.JSON(http.StatusConflict, gin.H{"error": "booking is not confirmed"})
				return
			}
			filepath, err := lib.SaveRedemptionQR(booking.RedemptionCode)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.FileAttachment(filepath, fmt.Sprintf("booking-%d.jpeg", booking.ID))
		}).
		PUT("/bookings/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			booking, err := utils.CancelBooking(userId, params.ID)
			if err != nil {
				ctx.JSON(bookingErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			prometheus.RecordBookingOperation("cancel")
			email := ctx.GetString("email")
			mailer.Dispatch(email, "Booking cancelled",
				fmt.Sprintf("<p>Your booking #%d has been cancelled and the seats released.</p>", booking.ID))
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		})
	return g
}
