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
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"
)

func paymentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/payments/orders", func(ctx *gin.Context) {
			var body types.CreateOrderRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var txn models.Transaction
			var order *lib.GatewayOrder
			err := db.Transaction(func(tx *gorm.DB) error {
				var booking models.Booking
				if err := tx.
					Where(&models.Booking{ID: body.BookingID, UserID: userId}).
					First(&booking).
					Error; err != nil {
					return err
				}
				if booking.Status != types.BOOKING_PENDING {
					return utils.ErrInvalidBookingState
				}
				var err error
				order, err = lib.CreateGatewayOrder(booking.TotalAmount, booking.Currency, booking.RedemptionCode)
				if err != nil {
					log.Printf("Error creating gateway order for Booking [%d]: %s\n", booking.ID, err.Error())
					return err
				}
				txn = models.Transaction{
					BookingID:   &booking.ID,
					Kind:        types.TRANSACTION_BOOKING,
					Amount:      booking.TotalAmount,
					Currency:    booking.Currency,
					ReferenceID: order.OrderID,
					Status:      types.TRANSACTION_PENDING,
					Metadata: types.JSONB{
						"booking_id": booking.ID,
					},
				}
				if err := tx.Create(&txn).Error; err != nil {
					return err
				}
				return tx.
					Model(&models.Booking{}).
					Where("id = ?", booking.ID).
					Update("transaction_id", txn.ID).
					Error
			})
			if err != nil {
				ctx.JSON(bookingErrorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": gin.H{"order": order, "transaction": txn}})
		}).
		POST("/payments/plan-orders", func(ctx *gin.Context) {
			var body types.CreatePlanOrderRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var txn models.Transaction
			var order *lib.GatewayOrder
			err := db.Transaction(func(tx *gorm.DB) error {
				owner, err := approvedOwner(tx, userId)
				if err != nil {
					return err
				}
				if owner.PlanTier == types.PLAN_PREMIUM {
					return fmt.Errorf("owner is already on the %s plan", types.PLAN_PREMIUM)
				}
				order, err = lib.CreateGatewayOrder(premiumPlanPrice, config.Get().Currency, fmt.Sprintf("plan:%d", owner.ID))
				if err != nil {
					return err
				}
				txn = models.Transaction{
					Kind:        types.TRANSACTION_PLAN_UPGRADE,
					Amount:      premiumPlanPrice,
					Currency:    config.Get().Currency,
					ReferenceID: order.OrderID,
					Status:      types.TRANSACTION_PENDING,
					Metadata: types.JSONB{
						"owner_id": owner.ID,
						"tier":     body.Tier,
					},
				}
				return tx.Create(&txn).Error
			})
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": gin.H{"order": order, "transaction": txn}})
		})
	return g
}

// Plan upgrade price in major units. Single tier for now.
const premiumPlanPrice float64 = 4999

// stripeWebhookRoute receives payment gateway events. It is mounted outside
// the session middleware; authenticity comes from the signature check alone.
func stripeWebhookRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/stripe", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		whsecret := config.Get().StripeWebhookSecret
		event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), whsecret)
		if err != nil {
			log.Printf("Error verifying webhook signature: %s\n", err.Error())
			ctx.Status(http.StatusBadRequest)
			return
		}
		log.Printf("[StripeEvent] %s\n", event.Type)
		switch event.Type {
		case "payment_intent.succeeded":
			var pi stripe.PaymentIntent
			if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
				log.Printf("[Stripe] Error parsing PaymentIntent: %s\n", err.Error())
				break
			}
			log.Printf("[PaymentIntent] ID: %s %s\n", pi.ID, pi.Status)
			if err := settlePaidIntent(pi.ID); err != nil {
				log.Printf("Error settling PaymentIntent %s: %s\n", pi.ID, err.Error())
				ctx.Status(http.StatusUnprocessableEntity)
				return
			}
		case "payment_intent.payment_failed", "payment_intent.canceled":
			var pi stripe.PaymentIntent
			if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
				log.Printf("[Stripe] Error parsing PaymentIntent: %s\n", err.Error())
				break
			}
			db := db.GetDb()
			if err := db.
				Model(&models.Transaction{}).
				Where(&models.Transaction{ReferenceID: pi.ID, Status: types.TRANSACTION_PENDING}).
				Update("status", types.TRANSACTION_CANCELED).
				Error; err != nil {
				log.Printf("Error canceling transaction for PaymentIntent %s: %s\n", pi.ID, err.Error())
			}
		}
		ctx.Status(http.StatusOK)
	})
	return apiv1
}

// settlePaidIntent marks the matching transaction paid and applies the paid
// effect: bookings confirm and accrue the owner's pending balance, plan
// upgrades flip the tier. Re-delivered events are no-ops once the transaction
// left pending.
func settlePaidIntent(referenceId string) error {
	db := db.GetDb()
	var confirmed *models.Booking
	err := db.Transaction(func(tx *gorm.DB) error {
		var txn models.Transaction
		if err := tx.
			Where(&models.Transaction{ReferenceID: referenceId}).
			First(&txn).
			Error; err != nil {
			return err
		}
		if txn.Status != types.TRANSACTION_PENDING {
			return nil
		}
		if err := tx.
			Model(&models.Transaction{}).
			Where("id = ?", txn.ID).
			Update("status", types.TRANSACTION_PAID).
			Error; err != nil {
			return err
		}
		switch txn.Kind {
		case types.TRANSACTION_BOOKING:
			if txn.BookingID == nil {
				return fmt.Errorf("no booking found for transaction [%s]", txn.ID)
			}
			booking, err := utils.ConfirmBooking(tx, *txn.BookingID)
			if err != nil {
				return err
			}
			confirmed = booking
		case types.TRANSACTION_PLAN_UPGRADE:
			ownerId, ok := txn.Metadata["owner_id"].(float64)
			if !ok {
				return fmt.Errorf("no owner found for transaction [%s]", txn.ID)
			}
			if err := tx.
				Model(&models.SpaceOwner{}).
				Where("id = ?", uint(ownerId)).
				Update("plan_tier", types.PLAN_PREMIUM).
				Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if confirmed != nil {
		prometheus.RecordBookingOperation("confirm")
		var user models.User
		if err := db.First(&user, confirmed.UserID).Error; err == nil {
			mailer.Dispatch(user.Email, "Booking confirmed",
				fmt.Sprintf("<p>Your booking #%d is confirmed.</p><p>Show code <b>%s</b> at the space to check in.</p>",
					confirmed.ID, confirmed.RedemptionCode))
		}
	}
	return nil
}
