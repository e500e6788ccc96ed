package main

import (
	"cws/src/db"
	"cws/src/lib/mailer"
	"cws/src/models"
	"cws/src/types"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func adminHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/admin/taxes", func(ctx *gin.Context) {
			db := db.GetDb()
			var taxes []models.TaxConfiguration
			if err := db.
				Model(&models.TaxConfiguration{}).
				Order("created_at ASC").
				Find(&taxes).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": taxes, "count": len(taxes)})
		}).
		POST("/admin/taxes", func(ctx *gin.Context) {
			var body types.CreateTaxRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			tax := models.TaxConfiguration{
				Name:       body.Name,
				Percentage: body.Percentage,
				AppliesTo:  types.TaxAppliesTo(body.AppliesTo),
				IsEnabled:  true,
				CreatedBy:  userId,
			}
			db := db.GetDb()
			if err := db.Create(&tax).Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": tax})
		}).
		PUT("/admin/taxes/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateTaxRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var tax models.TaxConfiguration
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Where(&models.TaxConfiguration{ID: params.ID}).
					First(&tax).
					Error; err != nil {
					return err
				}
				updates := map[string]any{}
				if body.Name != nil {
					updates["name"] = *body.Name
				}
				if body.Percentage != nil {
					updates["percentage"] = *body.Percentage
				}
				if body.AppliesTo != nil {
					updates["applies_to"] = *body.AppliesTo
				}
				if body.IsEnabled != nil {
					updates["is_enabled"] = *body.IsEnabled
				}
				if len(updates) == 0 {
					return nil
				}
				if err := tx.
					Model(&models.TaxConfiguration{}).
					Where("id = ?", tax.ID).
					Updates(updates).
					Error; err != nil {
					return err
				}
				return tx.First(&tax, tax.ID).Error
			})
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": tax})
		}).
		DELETE("/admin/taxes/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			// Rules already applied to bookings stay on record; delete only
			// disables the rule for future quotes.
			db := db.GetDb()
			res := db.
				Model(&models.TaxConfiguration{}).
				Where("id = ?", params.ID).
				Update("is_enabled", false)
			if res.Error != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": res.Error.Error()})
				return
			}
			if res.RowsAffected == 0 {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "tax rule not found"})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		GET("/admin/owners", func(ctx *gin.Context) {
			var filters types.OwnersQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			q := db.
				Model(&models.SpaceOwner{}).
				Preload("User").
				Preload("Business")
			if filters.Status != "" {
				q = q.Where("approval_status = ?", filters.Status)
			}
			var owners []models.SpaceOwner
			if err := q.
				Order("created_at ASC").
				Find(&owners).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": owners, "count": len(owners)})
		}).
		PUT("/admin/owners/:id/approve", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			adminId := ctx.GetUint("id")
			var owner models.SpaceOwner
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Where(&models.SpaceOwner{ID: params.ID}).
					Preload("User").
					First(&owner).
					Error; err != nil {
					return err
				}
				if owner.ApprovalStatus == types.APPROVAL_APPROVED {
					return nil
				}
				now := time.Now()
				if err := tx.
					Model(&models.SpaceOwner{}).
					Where("id = ?", owner.ID).
					Updates(map[string]any{
						"approval_status":  types.APPROVAL_APPROVED,
						"approved_by":      adminId,
						"approved_at":      now,
						"rejection_reason": nil,
					}).
					Error; err != nil {
					return err
				}
				owner.ApprovalStatus = types.APPROVAL_APPROVED
				owner.ApprovedBy = &adminId
				owner.ApprovedAt = &now
				return nil
			})
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			mailer.Dispatch(owner.User.Email, "Owner account approved",
				"<p>Your space owner account has been approved. You can now publish listings.</p>")
			ctx.JSON(http.StatusOK, gin.H{"data": owner})
		}).
		PUT("/admin/owners/:id/reject", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body struct {
				Reason string `json:"reason" binding:"required"`
			}
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var owner models.SpaceOwner
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Where(&models.SpaceOwner{ID: params.ID}).
					Preload("User").
					First(&owner).
					Error; err != nil {
					return err
				}
				if err := tx.
					Model(&models.SpaceOwner{}).
					Where("id = ?", owner.ID).
					Updates(map[string]any{
						"approval_status":  types.APPROVAL_REJECTED,
						"rejection_reason": body.Reason,
					}).
					Error; err != nil {
					return err
				}
				owner.ApprovalStatus = types.APPROVAL_REJECTED
				owner.RejectionReason = &body.Reason
				return nil
			})
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			mailer.Dispatch(owner.User.Email, "Owner application update",
				fmt.Sprintf("<p>Your space owner application was not approved.</p><p>Reason: %s</p>", body.Reason))
			ctx.JSON(http.StatusOK, gin.H{"data": owner})
		}).
		GET("/admin/dashboard", func(ctx *gin.Context) {
			db := db.GetDb()
			var out gin.H
			err := db.Transaction(func(tx *gorm.DB) error {
				var users, owners, spaces int64
				if err := tx.Model(&models.User{}).Count(&users).Error; err != nil {
					return err
				}
				if err := tx.Model(&models.SpaceOwner{}).Count(&owners).Error; err != nil {
					return err
				}
				if err := tx.Model(&models.Space{}).Where("is_active = true").Count(&spaces).Error; err != nil {
					return err
				}
				var totals struct {
					Bookings   int64
					Completed  int64
					Gross      float64
					Commission float64
				}
				if err := tx.
					Model(&models.Booking{}).
					Select(
						"COUNT(*) AS bookings, "+
							"COUNT(*) FILTER (WHERE status = ?) AS completed, "+
							"COALESCE(SUM(total_amount) FILTER (WHERE status IN ?), 0) AS gross, "+
							"COALESCE(SUM(base_amount - owner_payout) FILTER (WHERE status IN ?), 0) AS commission",
						types.BOOKING_COMPLETED,
						[]types.BookingStatus{types.BOOKING_CONFIRMED, types.BOOKING_COMPLETED},
						[]types.BookingStatus{types.BOOKING_CONFIRMED, types.BOOKING_COMPLETED},
					).
					Scan(&totals).
					Error; err != nil {
					return err
				}
				out = gin.H{
					"users":              users,
					"owners":             owners,
					"active_spaces":      spaces,
					"bookings_total":     totals.Bookings,
					"bookings_completed": totals.Completed,
					"gross_volume":       totals.Gross,
					"commission_earned":  totals.Commission,
				}
				return nil
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": out})
		})
	return g
}
