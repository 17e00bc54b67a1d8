package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"eduspace/src/config"
	"eduspace/src/db"
	"eduspace/src/models"
	"eduspace/src/types"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func GenerateJWT(email string, userId uint, role types.Role) (string, error) {
	now := time.Now()
	claims := types.Claims{
		Email: email,
		Role:  string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userId),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(config.GetJWTExpiry())),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(config.GetJWTSecret())
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hashed string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}

// NewResetToken returns the plaintext token handed to the user and the
// one-way hash that gets persisted. The plaintext is never stored.
func NewResetToken() (plaintext string, hashed string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	plaintext = hex.EncodeToString(buf)
	return plaintext, HashResetToken(plaintext), nil
}

func HashResetToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// ComputeTotalPrice applies the day-rate rule: full day costs the listed
// price, either half-day slot costs 60% of it, rounded.
func ComputeTotalPrice(price float64, slot types.TimeSlot) float64 {
	if slot == types.SLOT_FULL_DAY {
		return price
	}
	return math.Round(price * 0.6)
}

// CanCancel reports whether a teacher may cancel a booking from the
// given status. Rejected, cancelled and completed are terminal.
func CanCancel(status types.BookingStatus) bool {
	return status == types.BOOKING_PENDING || status == types.BOOKING_CONFIRMED
}

func CreateNewListing(params *types.CreateListingRequestBody, ownerId uint) (uint, error) {
	status := params.Status
	if status == "" {
		status = types.LISTING_ACTIVE
	}
	availability := params.Availability
	if availability == "" {
		availability = types.AVAILABILITY_BOTH
	}
	listing := models.Listing{
		Name:         params.Name,
		Description:  params.Description,
		Category:     params.Category,
		Capacity:     params.Capacity,
		Price:        params.Price,
		Location:     params.Location,
		Latitude:     params.Latitude,
		Longitude:    params.Longitude,
		Amenities:    types.JSONBArray(params.Amenities),
		Images:       types.JSONBArray(params.Images),
		Availability: availability,
		Status:       status,
		OwnerID:      ownerId,
	}

	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if err := tx.Where(&models.User{ID: ownerId}).First(&owner).Error; err != nil {
			return err
		}
		if owner.Role != types.ROLE_SCHOOL {
			return errors.New("only school accounts can create listings")
		}
		if err := tx.Create(&listing).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		log.Printf("Error creating listing: %s\n", err.Error())
		return 0, err
	}
	return listing.ID, nil
}

func CreateNewBooking(params *types.CreateBookingRequestBody, teacherId uint) (*models.Booking, int, error) {
	date, err := time.Parse(config.DATE_PARSE_FORMAT, params.Date)
	if err != nil {
		return nil, 400, err
	}
	var booking models.Booking
	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		var listing models.Listing
		if err := tx.Where(&models.Listing{ID: params.ListingID}).First(&listing).Error; err != nil {
			return err
		}
		if params.Attendees > listing.Capacity {
			return fmt.Errorf("attendee count exceeds listing capacity of %d", listing.Capacity)
		}
		booking = models.Booking{
			ListingID:           listing.ID,
			TeacherID:           teacherId,
			SchoolID:            listing.OwnerID,
			Date:                date,
			TimeSlot:            params.TimeSlot,
			TotalPrice:          ComputeTotalPrice(listing.Price, params.TimeSlot),
			Status:              types.BOOKING_PENDING,
			Purpose:             params.Purpose,
			Attendees:           params.Attendees,
			SpecialRequirements: params.SpecialRequirements,
			PaymentStatus:       types.PAYMENT_PENDING,
			PaymentMethod:       types.PAYMENT_CASH,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		if err := tx.
			Preload("Listing").
			Preload("Teacher").
			Preload("School").
			First(&booking, booking.ID).
			Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 404, errors.New("Listing does not exist")
		}
		log.Printf("Error creating booking: %s\n", err.Error())
		return nil, 400, err
	}
	return &booking, 201, nil
}

// DeleteListingCascade removes a listing and every booking referencing
// it inside one transaction so a crash cannot orphan bookings.
func DeleteListingCascade(tx *gorm.DB, listingId uint) error {
	if err := tx.
		Where(&models.Booking{ListingID: listingId}).
		Delete(&models.Booking{}).
		Error; err != nil {
		return err
	}
	if err := tx.
		Where(&models.Listing{ID: listingId}).
		Delete(&models.Listing{}).
		Error; err != nil {
		return err
	}
	return nil
}

// DeleteUserCascade removes a user together with their listings and
// bookings. School users take their listings' bookings with them;
// teacher users take the bookings they requested.
func DeleteUserCascade(tx *gorm.DB, user *models.User) error {
	if user.Role == types.ROLE_SCHOOL {
		var listingIds []uint
		if err := tx.
			Model(&models.Listing{}).
			Where(&models.Listing{OwnerID: user.ID}).
			Pluck("id", &listingIds).
			Error; err != nil {
			return err
		}
		if len(listingIds) > 0 {
			if err := tx.
				Where("listing_id IN (?)", listingIds).
				Delete(&models.Booking{}).
				Error; err != nil {
				return err
			}
			if err := tx.
				Where("id IN (?)", listingIds).
				Delete(&models.Listing{}).
				Error; err != nil {
				return err
			}
		}
	} else if user.Role == types.ROLE_TEACHER {
		if err := tx.
			Where(&models.Booking{TeacherID: user.ID}).
			Delete(&models.Booking{}).
			Error; err != nil {
			return err
		}
	}
	if err := tx.
		Where(&models.User{ID: user.ID}).
		Delete(&models.User{}).
		Error; err != nil {
		return err
	}
	return nil
}
