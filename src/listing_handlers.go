package main

import (
	"eduspace/src/db"
	"eduspace/src/middlewares"
	"eduspace/src/models"
	"eduspace/src/types"
	"eduspace/src/utils"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func ownerProjection(tx *gorm.DB) *gorm.DB {
	return tx.Select("id", "name", "school_name", "email", "phone")
}

func ownerProjectionFull(tx *gorm.DB) *gorm.DB {
	return tx.Select("id", "name", "school_name", "school_address", "email", "phone")
}

// publicListingHandlers are reachable without a token.
func publicListingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/listings", func(ctx *gin.Context) {
			var filters types.ListingQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			listings := make([]models.Listing, 0)
			db := db.GetDb()
			query := db.
				Model(&models.Listing{}).
				Where(&models.Listing{Status: types.LISTING_ACTIVE})
			if filters.Category != "" {
				query = query.Where("category = ?", filters.Category)
			}
			if filters.Location != "" {
				query = query.Where("location ILIKE ?", fmt.Sprintf("%%%s%%", filters.Location))
			}
			if filters.MinPrice != nil {
				query = query.Where("price >= ?", *filters.MinPrice)
			}
			if filters.MaxPrice != nil {
				query = query.Where("price <= ?", *filters.MaxPrice)
			}
			if filters.MinCapacity != nil {
				query = query.Where("capacity >= ?", *filters.MinCapacity)
			}
			if filters.MaxCapacity != nil {
				query = query.Where("capacity <= ?", *filters.MaxCapacity)
			}
			if filters.Search != "" {
				term := fmt.Sprintf("%%%s%%", filters.Search)
				query = query.Where("name ILIKE ? OR description ILIKE ? OR location ILIKE ?", term, term, term)
			}
			if err := query.
				Preload("Owner", ownerProjection).
				Order("created_at desc").
				Find(&listings).
				Error; err != nil {
				log.Printf("Error retrieving listings: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "listings": listings, "count": len(listings)})
		}).
		GET("/listings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			var listing models.Listing
			db := db.GetDb()
			// No status filter here: a single fetch returns inactive and
			// pending listings too, unlike the list endpoint.
			if err := db.
				Model(&models.Listing{}).
				Where(&models.Listing{ID: params.ID}).
				Preload("Owner", ownerProjectionFull).
				First(&listing).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Listing not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "listing": listing})
		})
	return g
}

// listingHandlers require an authenticated school account.
func listingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	create := g.Group("")
	create.Use(middlewares.RequireOperation(middlewares.OpListingCreate))
	create.
		POST("/listings", func(ctx *gin.Context) {
			var body types.CreateListingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			if !body.Category.Valid() {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid listing category"})
				return
			}
			userId := ctx.GetUint("id")
			id, err := utils.CreateNewListing(&body, userId)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"success": true, "id": id})
		})

	owned := g.Group("")
	owned.Use(middlewares.RequireOperation(middlewares.OpListingManage))
	owned.
		GET("/listings/mine", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			listings := make([]models.Listing, 0)
			db := db.GetDb()
			if err := db.
				Model(&models.Listing{}).
				Where(&models.Listing{OwnerID: userId}).
				Order("created_at desc").
				Find(&listings).
				Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "listings": listings, "count": len(listings)})
		}).
		PUT("/listings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			var body types.CreateListingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			if !body.Category.Valid() {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid listing category"})
				return
			}
			userId := ctx.GetUint("id")
			var listing models.Listing
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Where(&models.Listing{ID: params.ID}).
					First(&listing).
					Error; err != nil {
					return err
				}
				if listing.OwnerID != userId {
					return errors.New("not authorized to update this listing")
				}
				updates := map[string]any{
					"name":         body.Name,
					"description":  body.Description,
					"category":     body.Category,
					"capacity":     body.Capacity,
					"price":        body.Price,
					"location":     body.Location,
					"latitude":     body.Latitude,
					"longitude":    body.Longitude,
					"amenities":    types.JSONBArray(body.Amenities),
					"images":       types.JSONBArray(body.Images),
				}
				if body.Availability != "" {
					updates["availability"] = body.Availability
				}
				if body.Status != "" {
					updates["status"] = body.Status
				}
				if err := tx.
					Model(&models.Listing{}).
					Where(&models.Listing{ID: params.ID}).
					Updates(updates).
					Error; err != nil {
					return err
				}
				return tx.First(&listing, params.ID).Error
			})
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Listing not found"})
					return
				}
				if err.Error() == "not authorized to update this listing" {
					ctx.JSON(http.StatusForbidden, gin.H{"success": false, "message": err.Error()})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "listing": listing})
		}).
		DELETE("/listings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var listing models.Listing
				if err := tx.
					Where(&models.Listing{ID: params.ID}).
					First(&listing).
					Error; err != nil {
					return err
				}
				if listing.OwnerID != userId {
					return errors.New("not authorized to delete this listing")
				}
				return utils.DeleteListingCascade(tx, params.ID)
			})
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Listing not found"})
					return
				}
				if err.Error() == "not authorized to delete this listing" {
					ctx.JSON(http.StatusForbidden, gin.H{"success": false, "message": err.Error()})
					return
				}
				log.Printf("Error deleting listing %d: %s\n", params.ID, err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Listing deleted"})
		})
	return g
}
