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
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func adminUserProjection(tx *gorm.DB) *gorm.DB {
	return tx.Select("id", "name", "email", "role", "phone", "avatar", "verified",
		"school_name", "school_address", "subject", "experience_years", "created_at")
}

// bookingMatchesSearch runs the post-fetch substring search across the
// populated projections and purpose text.
func bookingMatchesSearch(b *models.Booking, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	fields := []string{b.Purpose}
	if b.Listing != nil {
		fields = append(fields, b.Listing.Name, b.Listing.Location)
	}
	if b.Teacher != nil {
		fields = append(fields, b.Teacher.Name, b.Teacher.Email)
	}
	if b.School != nil {
		fields = append(fields, b.School.Name, b.School.SchoolName, b.School.Email)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func adminHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	admin := g.Group("")
	admin.Use(middlewares.RequireOperation(middlewares.OpAdminAccess))
	admin.
		GET("/admin/stats", func(ctx *gin.Context) {
			db := db.GetDb()
			var stats types.AdminStats
			var errs []error
			var mu sync.Mutex
			var wg sync.WaitGroup

			// The counts are independent reads, so they run concurrently.
			count := func(dest *int64, query func(tx *gorm.DB) *gorm.DB) {
				defer wg.Done()
				if err := query(db.Session(&gorm.Session{NewDB: true})).Count(dest).Error; err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
			wg.Add(7)
			go count(&stats.TotalTeachers, func(tx *gorm.DB) *gorm.DB {
				return tx.Model(&models.User{}).Where(&models.User{Role: types.ROLE_TEACHER})
			})
			go count(&stats.TotalSchools, func(tx *gorm.DB) *gorm.DB {
				return tx.Model(&models.User{}).Where(&models.User{Role: types.ROLE_SCHOOL})
			})
			go count(&stats.TotalListings, func(tx *gorm.DB) *gorm.DB {
				return tx.Model(&models.Listing{})
			})
			go count(&stats.ActiveListings, func(tx *gorm.DB) *gorm.DB {
				return tx.Model(&models.Listing{}).Where(&models.Listing{Status: types.LISTING_ACTIVE})
			})
			go count(&stats.TotalBookings, func(tx *gorm.DB) *gorm.DB {
				return tx.Model(&models.Booking{})
			})
			go count(&stats.PendingBookings, func(tx *gorm.DB) *gorm.DB {
				return tx.Model(&models.Booking{}).Where(&models.Booking{Status: types.BOOKING_PENDING})
			})
			go count(&stats.ConfirmedBookings, func(tx *gorm.DB) *gorm.DB {
				return tx.Model(&models.Booking{}).Where(&models.Booking{Status: types.BOOKING_CONFIRMED})
			})

			wg.Add(1)
			go func() {
				defer wg.Done()
				var revenue struct{ Total float64 }
				if err := db.Session(&gorm.Session{NewDB: true}).
					Model(&models.Booking{}).
					Select("COALESCE(SUM(total_price), 0) as total").
					Where("status IN (?)", []types.BookingStatus{types.BOOKING_CONFIRMED, types.BOOKING_COMPLETED}).
					Scan(&revenue).
					Error; err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
					return
				}
				stats.TotalRevenue = revenue.Total
			}()
			wg.Wait()

			if len(errs) > 0 {
				log.Printf("Error computing admin stats: %s\n", errs[0].Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": errs[0].Error()})
				return
			}

			recent := make([]models.Booking, 0)
			if err := bookingPreloads(db.Model(&models.Booking{})).
				Order("created_at desc").
				Limit(10).
				Find(&recent).
				Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "stats": stats, "recent_bookings": recent})
		}).
		GET("/admin/users", func(ctx *gin.Context) {
			var filters types.AdminUsersQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			db := db.GetDb()
			query := adminUserProjection(db.Model(&models.User{})).
				Where("role <> ?", types.ROLE_ADMIN)
			if filters.Role != "" {
				query = query.Where("role = ?", filters.Role)
			}
			if filters.Search != "" {
				term := fmt.Sprintf("%%%s%%", filters.Search)
				query = query.Where("name ILIKE ? OR email ILIKE ? OR school_name ILIKE ? OR phone ILIKE ?", term, term, term, term)
			}
			users := make([]models.User, 0)
			if err := query.Order("created_at desc").Find(&users).Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "users": users, "count": len(users)})
		}).
		DELETE("/admin/users/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var user models.User
				if err := tx.
					Where(&models.User{ID: params.ID}).
					First(&user).
					Error; err != nil {
					return err
				}
				// Admin accounts can never be deleted, not even by
				// another admin.
				if user.Role == types.ROLE_ADMIN {
					return errors.New("admin accounts cannot be deleted")
				}
				return utils.DeleteUserCascade(tx, &user)
			})
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
					return
				}
				if err.Error() == "admin accounts cannot be deleted" {
					ctx.JSON(http.StatusForbidden, gin.H{"success": false, "message": err.Error()})
					return
				}
				log.Printf("Error deleting user %d: %s\n", params.ID, err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted"})
		}).
		GET("/admin/listings", func(ctx *gin.Context) {
			var filters types.AdminListingsQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			db := db.GetDb()
			query := db.Model(&models.Listing{})
			if filters.Search != "" {
				term := fmt.Sprintf("%%%s%%", filters.Search)
				query = query.Where("name ILIKE ? OR location ILIKE ? OR category ILIKE ?", term, term, term)
			}
			listings := make([]models.Listing, 0)
			if err := query.
				Preload("Owner", ownerProjection).
				Order("created_at desc").
				Find(&listings).
				Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "listings": listings, "count": len(listings)})
		}).
		DELETE("/admin/listings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var listing models.Listing
				if err := tx.
					Where(&models.Listing{ID: params.ID}).
					First(&listing).
					Error; err != nil {
					return err
				}
				return utils.DeleteListingCascade(tx, params.ID)
			})
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Listing not found"})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Listing deleted"})
		}).
		GET("/admin/bookings", func(ctx *gin.Context) {
			var filters types.AdminBookingsQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			db := db.GetDb()
			query := bookingPreloads(db.Model(&models.Booking{}))
			if filters.Status != "" {
				query = query.Where("status = ?", filters.Status)
			}
			fetched := make([]models.Booking, 0)
			if err := query.Order("created_at desc").Find(&fetched).Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			// The free-text search runs in memory over the populated
			// projections since it spans joined entities.
			bookings := make([]models.Booking, 0, len(fetched))
			for i := range fetched {
				if bookingMatchesSearch(&fetched[i], filters.Search) {
					bookings = append(bookings, fetched[i])
				}
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "bookings": bookings, "count": len(bookings)})
		}).
		PATCH("/admin/bookings/:id/status", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			var body types.UpdateBookingStatusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			if !body.NewStatus.Valid() {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid booking status"})
				return
			}
			var booking models.Booking
			db := db.GetDb()
			// Admin overrides bypass the transition graph entirely.
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.Booking{}).
					Where(&models.Booking{ID: params.ID}).
					First(&booking).
					Error; err != nil {
					return err
				}
				if err := tx.
					Model(&models.Booking{}).
					Where(&models.Booking{ID: params.ID}).
					Update("status", body.NewStatus).
					Error; err != nil {
					return err
				}
				booking.Status = body.NewStatus
				return nil
			})
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Booking not found"})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
		}).
		DELETE("/admin/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			db := db.GetDb()
			result := db.Where(&models.Booking{ID: params.ID}).Delete(&models.Booking{})
			if result.Error != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": result.Error.Error()})
				return
			}
			if result.RowsAffected == 0 {
				ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Booking not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Booking deleted"})
		})
	return g
}
