package main

import (
	"eduspace/src/db"
	"eduspace/src/middlewares"
	"eduspace/src/models"
	"eduspace/src/types"
	"eduspace/src/utils"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func bookingPreloads(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Listing").
		Preload("Teacher", func(tx *gorm.DB) *gorm.DB {
			return tx.Select("id", "name", "email", "phone", "subject")
		}).
		Preload("School", func(tx *gorm.DB) *gorm.DB {
			return tx.Select("id", "name", "school_name", "email", "phone")
		})
}

func bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			var booking models.Booking
			db := db.GetDb()
			if err := bookingPreloads(db.Model(&models.Booking{})).
				Where(&models.Booking{ID: params.ID}).
				First(&booking).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Booking not found"})
				return
			}
			// Visible to either party of the booking only.
			if booking.TeacherID != userId && booking.SchoolID != userId {
				ctx.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Not authorized to view this booking"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
		})

	teacher := g.Group("")
	teacher.Use(middlewares.RequireOperation(middlewares.OpBookingCreate))
	teacher.
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			if !body.TimeSlot.Valid() {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid time slot"})
				return
			}
			userId := ctx.GetUint("id")
			booking, status, err := utils.CreateNewBooking(&body, userId)
			if err != nil {
				log.Printf("error creating booking: %s\n", err.Error())
				ctx.JSON(status, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(status, gin.H{"success": true, "booking": booking})
		}).
		GET("/bookings/mine", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			bookings := make([]models.Booking, 0)
			db := db.GetDb()
			if err := bookingPreloads(db.Model(&models.Booking{})).
				Where(&models.Booking{TeacherID: userId}).
				Order("created_at desc").
				Find(&bookings).
				Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "bookings": bookings, "count": len(bookings)})
		})

	cancel := g.Group("")
	cancel.Use(middlewares.RequireOperation(middlewares.OpBookingCancel))
	cancel.
		PUT("/bookings/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			var booking models.Booking
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.Booking{}).
					Where(&models.Booking{ID: params.ID}).
					First(&booking).
					Error; err != nil {
					return err
				}
				if booking.TeacherID != userId {
					return errors.New("not authorized to cancel this booking")
				}
				if !utils.CanCancel(booking.Status) {
					return errors.New("cannot cancel this booking")
				}
				if err := tx.
					Model(&models.Booking{}).
					Where(&models.Booking{ID: params.ID}).
					Update("status", types.BOOKING_CANCELLED).
					Error; err != nil {
					return err
				}
				booking.Status = types.BOOKING_CANCELLED
				return nil
			})
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Booking not found"})
					return
				}
				if err.Error() == "not authorized to cancel this booking" {
					ctx.JSON(http.StatusForbidden, gin.H{"success": false, "message": err.Error()})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
		})

	school := g.Group("")
	school.Use(middlewares.RequireOperation(middlewares.OpBookingDecide))
	school.
		GET("/bookings/requests", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			bookings := make([]models.Booking, 0)
			db := db.GetDb()
			if err := bookingPreloads(db.Model(&models.Booking{})).
				Where(&models.Booking{SchoolID: userId}).
				Order("created_at desc").
				Find(&bookings).
				Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "bookings": bookings, "count": len(bookings)})
		}).
		PATCH("/bookings/:id/status", func(ctx *gin.Context) {
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
			userId := ctx.GetUint("id")
			var booking models.Booking
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Model(&models.Booking{}).
					Where(&models.Booking{ID: params.ID}).
					First(&booking).
					Error; err != nil {
					return err
				}
				if booking.SchoolID != userId {
					return errors.New("not authorized to update this booking")
				}
				// The owning school may move the booking to any known
				// status, matching the permissive owner-side behavior of
				// the original workflow. Only teacher-side cancels are
				// constrained by the state graph.
				if err := tx.
					Model(&models.Booking{}).
					Where(&models.Booking{ID: params.ID}).
					Update("status", body.NewStatus).
					Error; err != nil {
					return err
				}
				return bookingPreloads(tx.Model(&models.Booking{})).
					Where(&models.Booking{ID: params.ID}).
					First(&booking).
					Error
			})
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Booking not found"})
					return
				}
				if err.Error() == "not authorized to update this booking" {
					ctx.JSON(http.StatusForbidden, gin.H{"success": false, "message": err.Error()})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
		})
	return g
}
