package boot

import (
	"eduspace/src/db"
	"eduspace/src/lib"
	"eduspace/src/models"
	"eduspace/src/types"
	"eduspace/src/utils"
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.Booking{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

// EnsureAdminUser provisions the admin account from env. Registration
// rejects role=admin unconditionally, so this is the only way an admin
// account comes to exist.
func EnsureAdminUser() {
	email := strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		var admin models.User
		if err := tx.
			Where("lower(email) = ?", email).
			First(&admin).
			Error; err == nil {
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		hashed, err := utils.HashPassword(password)
		if err != nil {
			return err
		}
		admin = models.User{
			Name:     "Administrator",
			Email:    email,
			Password: hashed,
			Role:     types.ROLE_ADMIN,
			Verified: true,
		}
		return tx.Create(&admin).Error
	})
	if err != nil {
		log.Printf("Error provisioning admin user: %s\n", err.Error())
		return
	}
}

// InitScheduler starts the background sweep that clears expired
// password-reset tokens. Booking statuses are never touched by jobs.
func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	j, err := sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(ClearExpiredResetTokens),
	)
	if err != nil {
		log.Printf("Error scheduling job: %s\n", err.Error())
		return
	}
	log.Printf("Job ID: %s\n", j.ID().String())
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	err = sched.Shutdown()
	if err != nil {
		log.Println("An error has occurred while stopping Scheduler. Check logs for info")
		return
	}
}

func ClearExpiredResetTokens() {
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.User{}).
			Where("reset_password_token <> ''").
			Where("reset_password_expires < ?", time.Now()).
			Updates(map[string]any{
				"reset_password_token":   "",
				"reset_password_expires": nil,
			}).Error
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		log.Printf("Error while clearing expired reset tokens: %s\n", err.Error())
	}
}
