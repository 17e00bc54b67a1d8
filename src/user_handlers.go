package main

import (
	"context"
	"eduspace/src/db"
	"eduspace/src/lib"
	"eduspace/src/middlewares"
	"eduspace/src/models"
	"eduspace/src/types"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func userHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		PUT("/users/profile", func(ctx *gin.Context) {
			var body types.UpdateProfileRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			updates := map[string]any{}
			if body.Name != nil {
				updates["name"] = *body.Name
			}
			if body.Phone != nil {
				updates["phone"] = *body.Phone
			}
			if body.Avatar != nil {
				updates["avatar"] = *body.Avatar
			}
			if body.SchoolName != nil {
				updates["school_name"] = *body.SchoolName
			}
			if body.SchoolAddress != nil {
				updates["school_address"] = *body.SchoolAddress
			}
			if body.Subject != nil {
				updates["subject"] = *body.Subject
			}
			if body.ExperienceYears != nil {
				updates["experience_years"] = *body.ExperienceYears
			}
			var user models.User
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if len(updates) > 0 {
					if err := tx.
						Model(&models.User{}).
						Where(&models.User{ID: userId}).
						Updates(updates).
						Error; err != nil {
						return err
					}
				}
				return tx.First(&user, userId).Error
			})
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			if rd := lib.GetRedisClient(); rd != nil {
				if _, err := rd.Del(context.Background(), fmt.Sprintf("%d:user", userId)).Result(); err != nil {
					log.Printf("[redis] Error invalidating user cache: %s\n", err.Error())
				}
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "user": user.Projection()})
		})

	favorites := g.Group("")
	favorites.Use(middlewares.RequireOperation(middlewares.OpFavorites))
	favorites.
		GET("/users/favorites", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var user models.User
			db := db.GetDb()
			if err := db.
				Preload("Favorites").
				First(&user, userId).
				Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			favorites := user.Favorites
			if favorites == nil {
				favorites = []*models.Listing{}
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "favorites": favorites, "count": len(favorites)})
		}).
		POST("/users/favorites/:id", func(ctx *gin.Context) {
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
				user := models.User{ID: userId}
				return tx.Model(&user).Association("Favorites").Append(&listing)
			})
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Listing added to favorites"})
		}).
		DELETE("/users/favorites/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			db := db.GetDb()
			user := models.User{ID: userId}
			listing := models.Listing{ID: params.ID}
			if err := db.Model(&user).Association("Favorites").Delete(&listing); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Listing removed from favorites"})
		})
	return g
}
