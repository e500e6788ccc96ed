package main

import (
	"cws/src/db"
	"cws/src/models"
	"cws/src/types"
	"cws/src/utils"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var errNotEligibleToReview = errors.New("a redeemed booking on this space is required to review it")

func reviewHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/reviews", func(ctx *gin.Context) {
			var body types.CreateReviewRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			var review models.Review
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var space models.Space
				if err := tx.
					Where(&models.Space{ID: body.SpaceID}).
					First(&space).
					Error; err != nil {
					return err
				}
				eligible, err := utils.EligibleToReview(tx, userId, space.ID)
				if err != nil {
					return err
				}
				if !eligible {
					return errNotEligibleToReview
				}
				// One review per user and space; a repeat submission revises
				// the existing one.
				if err := tx.
					Where(&models.Review{UserID: userId, SpaceID: space.ID}).
					First(&review).
					Error; err != nil {
					if !errors.Is(err, gorm.ErrRecordNotFound) {
						return err
					}
					review = models.Review{
						UserID:      userId,
						SpaceID:     space.ID,
						Rating:      body.Rating,
						Comment:     body.Comment,
						Cleanliness: body.Cleanliness,
						Wifi:        body.Wifi,
						Comfort:     body.Comfort,
						Location:    body.Location,
					}
					return tx.Create(&review).Error
				}
				if err := tx.
					Model(&models.Review{}).
					Where("id = ?", review.ID).
					Updates(map[string]any{
						"rating":      body.Rating,
						"comment":     body.Comment,
						"cleanliness": body.Cleanliness,
						"wifi":        body.Wifi,
						"comfort":     body.Comfort,
						"location":    body.Location,
					}).
					Error; err != nil {
					return err
				}
				return tx.First(&review, review.ID).Error
			})
			if err != nil {
				if errors.Is(err, errNotEligibleToReview) {
					ctx.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
					return
				}
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": review})
		}).
		GET("/reviews", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var reviews []models.Review
			if err := db.
				Model(&models.Review{}).
				Where(&models.Review{UserID: userId}).
				Order("created_at DESC").
				Find(&reviews).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": reviews, "count": len(reviews)})
		}).
		DELETE("/reviews/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var review models.Review
				if err := tx.
					Where(&models.Review{ID: params.ID, UserID: userId}).
					First(&review).
					Error; err != nil {
					return err
				}
				return tx.Delete(&review).Error
			})
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
