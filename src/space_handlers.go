package main

import (
	"cws/src/db"
	"cws/src/models"
	"cws/src/types"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

func spaceToResponse(space *models.Space, ratingAvg float64, ratingCount int64) *types.APIResponseSpace {
	return &types.APIResponseSpace{
		ID:             space.ID,
		Name:           space.Name,
		Slug:           space.Slug,
		Description:    space.Description,
		City:           space.City,
		Address:        space.Address,
		TotalSeats:     space.TotalSeats,
		AvailableSeats: space.AvailableSeats,
		HourlyRate:     space.HourlyRate,
		DailyRate:      space.DailyRate,
		Amenities:      space.Amenities,
		Images:         space.Images,
		RatingAverage:  ratingAvg,
		RatingCount:    ratingCount,
	}
}

// publicSpaceHandlers serves the consumer-facing catalog. No session needed.
func publicSpaceHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/spaces", func(ctx *gin.Context) {
			var filters types.SpacesQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			page := filters.Page
			if page < 1 {
				page = 1
			}
			pageSize := filters.PageSize
			if pageSize < 1 || pageSize > 100 {
				pageSize = 20
			}
			db := db.GetDb()
			q := db.
				Model(&models.Space{}).
				Where(&models.Space{IsActive: true})
			if filters.City != "" {
				q = q.Where("city = ?", filters.City)
			}
			if filters.Seats > 0 {
				q = q.Where("available_seats >= ?", filters.Seats)
			}
			if filters.MaxRate > 0 {
				q = q.Where("hourly_rate <= ?", filters.MaxRate)
			}
			var count int64
			if err := q.Count(&count).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			var spaces []models.Space
			if err := q.
				Order("created_at DESC").
				Offset((page - 1) * pageSize).
				Limit(pageSize).
				Find(&spaces).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			data := make([]*types.APIResponseSpace, 0, len(spaces))
			for i := range spaces {
				data = append(data, spaceToResponse(&spaces[i], 0, 0))
			}
			ctx.JSON(http.StatusOK, gin.H{"data": data, "count": count, "page": page})
		}).
		GET("/spaces/:slug", func(ctx *gin.Context) {
			slugParam := ctx.Params.ByName("slug")
			db := db.GetDb()
			var space models.Space
			if err := db.
				Model(&models.Space{}).
				Where(&models.Space{Slug: slugParam, IsActive: true}).
				First(&space).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			var agg struct {
				Avg   float64
				Count int64
			}
			if err := db.
				Model(&models.Review{}).
				Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
				Where("space_id = ?", space.ID).
				Scan(&agg).
				Error; err != nil {
				log.Printf("Error aggregating reviews for Space [%d]: %s\n", space.ID, err.Error())
			}
			ctx.JSON(http.StatusOK, gin.H{"data": spaceToResponse(&space, agg.Avg, agg.Count)})
		}).
		GET("/spaces/:slug/reviews", func(ctx *gin.Context) {
			slugParam := ctx.Params.ByName("slug")
			db := db.GetDb()
			var space models.Space
			if err := db.
				Model(&models.Space{}).
				Where(&models.Space{Slug: slugParam}).
				First(&space).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			var reviews []models.Review
			if err := db.
				Model(&models.Review{}).
				Where(&models.Review{SpaceID: space.ID}).
				Preload("User").
				Order("created_at DESC").
				Limit(100).
				Find(&reviews).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": reviews, "count": len(reviews)})
		})
	return g
}

// ownerSpaceHandlers manages an owner's own listings, scoped through the
// owner's business so one owner can never touch another's rows.
func ownerSpaceHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/owner/spaces", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var spaces []models.Space
			err := db.Transaction(func(tx *gorm.DB) error {
				business, err := ownerBusiness(tx, userId)
				if err != nil {
					return err
				}
				return tx.
					Model(&models.Space{}).
					Where(&models.Space{BusinessID: business.ID}).
					Order("created_at DESC").
					Find(&spaces).
					Error
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": spaces, "count": len(spaces)})
		}).
		POST("/owner/spaces", func(ctx *gin.Context) {
			var body types.CreateSpaceRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			var space models.Space
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				owner, err := approvedOwner(tx, userId)
				if err != nil {
					return err
				}
				var business models.BusinessInfo
				if err := tx.
					Where(&models.BusinessInfo{OwnerID: owner.ID}).
					First(&business).
					Error; err != nil {
					return err
				}
				space = models.Space{
					BusinessID:     business.ID,
					Name:           body.Name,
					Slug:           slug.Make(body.Name),
					Description:    body.Description,
					Address:        body.Address,
					City:           body.City,
					Latitude:       body.Latitude,
					Longitude:      body.Longitude,
					TotalSeats:     body.TotalSeats,
					AvailableSeats: body.TotalSeats,
					HourlyRate:     body.HourlyRate,
					DailyRate:      body.DailyRate,
					Amenities:      body.Amenities,
					Images:         body.Images,
					IsActive:       true,
				}
				return tx.Create(&space).Error
			})
			if err != nil {
				if errors.Is(err, errOwnerNotApproved) {
					ctx.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": space})
		}).
		PUT("/owner/spaces/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateSpaceRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			var space models.Space
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				business, err := ownerBusiness(tx, userId)
				if err != nil {
					return err
				}
				if err := tx.
					Where(&models.Space{ID: params.ID, BusinessID: business.ID}).
					First(&space).
					Error; err != nil {
					return err
				}
				updates := map[string]any{}
				if body.Name != nil {
					updates["name"] = *body.Name
					updates["slug"] = slug.Make(*body.Name)
				}
				if body.Description != nil {
					updates["description"] = *body.Description
				}
				if body.Address != nil {
					updates["address"] = *body.Address
				}
				if body.City != nil {
					updates["city"] = *body.City
				}
				if body.TotalSeats != nil {
					// Shrinking below the outstanding seat count would break
					// the availability invariant, so clamp availability too.
					booked := space.TotalSeats - space.AvailableSeats
					if *body.TotalSeats < booked {
						return errors.New("total seats cannot drop below booked seats")
					}
					updates["total_seats"] = *body.TotalSeats
					updates["available_seats"] = *body.TotalSeats - booked
				}
				if body.HourlyRate != nil {
					updates["hourly_rate"] = *body.HourlyRate
				}
				if body.DailyRate != nil {
					updates["daily_rate"] = *body.DailyRate
				}
				if body.Amenities != nil {
					updates["amenities"] = *body.Amenities
				}
				if body.Images != nil {
					updates["images"] = *body.Images
				}
				if body.IsActive != nil {
					updates["is_active"] = *body.IsActive
				}
				if len(updates) == 0 {
					return nil
				}
				if err := tx.
					Model(&models.Space{}).
					Where("id = ?", space.ID).
					Updates(updates).
					Error; err != nil {
					return err
				}
				return tx.First(&space, space.ID).Error
			})
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": space})
		}).
		DELETE("/owner/spaces/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				business, err := ownerBusiness(tx, userId)
				if err != nil {
					return err
				}
				var space models.Space
				if err := tx.
					Where(&models.Space{ID: params.ID, BusinessID: business.ID}).
					First(&space).
					Error; err != nil {
					return err
				}
				// Listings with history are deactivated, not dropped.
				return tx.
					Model(&models.Space{}).
					Where("id = ?", space.ID).
					Update("is_active", false).
					Error
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
