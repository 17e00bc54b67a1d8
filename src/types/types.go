package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// JSONBArray stores an ordered list (amenity tags, image URLs) as jsonb.
type JSONBArray []string

func (a JSONBArray) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONBArray) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type Role string

const (
	ROLE_TEACHER Role = "teacher"
	ROLE_SCHOOL  Role = "school"
	ROLE_ADMIN   Role = "admin"
)

type ListingCategory string

const (
	CATEGORY_CLASSROOM       ListingCategory = "Classroom"
	CATEGORY_LABORATORY      ListingCategory = "Laboratory"
	CATEGORY_AUDITORIUM      ListingCategory = "Auditorium"
	CATEGORY_SPORTS_HALL     ListingCategory = "Sports Hall"
	CATEGORY_LIBRARY         ListingCategory = "Library"
	CATEGORY_CONFERENCE_ROOM ListingCategory = "Conference Room"
)

func (c ListingCategory) Valid() bool {
	switch c {
	case CATEGORY_CLASSROOM, CATEGORY_LABORATORY, CATEGORY_AUDITORIUM,
		CATEGORY_SPORTS_HALL, CATEGORY_LIBRARY, CATEGORY_CONFERENCE_ROOM:
		return true
	}
	return false
}

type ListingAvailability string

const (
	AVAILABILITY_WEEKDAYS ListingAvailability = "Weekdays"
	AVAILABILITY_WEEKENDS ListingAvailability = "Weekends"
	AVAILABILITY_BOTH     ListingAvailability = "Both"
)

type ListingStatus string

const (
	LISTING_ACTIVE   ListingStatus = "active"
	LISTING_INACTIVE ListingStatus = "inactive"
	LISTING_PENDING  ListingStatus = "pending"
)

type BookingStatus string

const (
	BOOKING_PENDING   BookingStatus = "pending"
	BOOKING_CONFIRMED BookingStatus = "confirmed"
	BOOKING_REJECTED  BookingStatus = "rejected"
	BOOKING_CANCELLED BookingStatus = "cancelled"
	BOOKING_COMPLETED BookingStatus = "completed"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BOOKING_PENDING, BOOKING_CONFIRMED, BOOKING_REJECTED,
		BOOKING_CANCELLED, BOOKING_COMPLETED:
		return true
	}
	return false
}

type TimeSlot string

const (
	SLOT_FULL_DAY         TimeSlot = "full_day"
	SLOT_HALF_DAY_MORNING TimeSlot = "half_day_morning"
	SLOT_HALF_DAY_EVENING TimeSlot = "half_day_evening"
)

func (t TimeSlot) Valid() bool {
	switch t {
	case SLOT_FULL_DAY, SLOT_HALF_DAY_MORNING, SLOT_HALF_DAY_EVENING:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PAYMENT_PENDING  PaymentStatus = "pending"
	PAYMENT_PAID     PaymentStatus = "paid"
	PAYMENT_REFUNDED PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PAYMENT_CASH          PaymentMethod = "cash"
	PAYMENT_UPI           PaymentMethod = "upi"
	PAYMENT_CARD          PaymentMethod = "card"
	PAYMENT_BANK_TRANSFER PaymentMethod = "bank_transfer"
)

type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type RegisterRequestBody struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     Role   `json:"role" binding:"required"`
	Phone    string `json:"phone,omitempty"`

	SchoolName    string `json:"school_name,omitempty"`
	SchoolAddress string `json:"school_address,omitempty"`

	Subject         string `json:"subject,omitempty"`
	ExperienceYears uint   `json:"experience_years,omitempty"`
}

type LoginRequestBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequestBody struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequestBody struct {
	Password string `json:"password" binding:"required,min=6"`
}

// UpdateProfileRequestBody is the typed whitelist for partial profile
// updates. Role and email are deliberately absent.
type UpdateProfileRequestBody struct {
	Name            *string `json:"name,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	Avatar          *string `json:"avatar,omitempty"`
	SchoolName      *string `json:"school_name,omitempty"`
	SchoolAddress   *string `json:"school_address,omitempty"`
	Subject         *string `json:"subject,omitempty"`
	ExperienceYears *uint   `json:"experience_years,omitempty"`
}

type CreateListingRequestBody struct {
	Name         string              `json:"name" binding:"required"`
	Description  string              `json:"description" binding:"required"`
	Category     ListingCategory     `json:"category" binding:"required"`
	Capacity     uint                `json:"capacity" binding:"required,min=1"`
	Price        float64             `json:"price" binding:"min=0"`
	Location     string              `json:"location" binding:"required"`
	Latitude     *float64            `json:"latitude,omitempty"`
	Longitude    *float64            `json:"longitude,omitempty"`
	Amenities    []string            `json:"amenities,omitempty"`
	Images       []string            `json:"images,omitempty"`
	Availability ListingAvailability `json:"availability,omitempty"`
	Status       ListingStatus       `json:"status,omitempty"`
}

type ListingQueryFilters struct {
	Category    string   `form:"category"`
	Location    string   `form:"location"`
	MinPrice    *float64 `form:"min_price"`
	MaxPrice    *float64 `form:"max_price"`
	MinCapacity *uint    `form:"min_capacity"`
	MaxCapacity *uint    `form:"max_capacity"`
	Search      string   `form:"search"`
}

type CreateBookingRequestBody struct {
	ListingID           uint     `json:"listing" binding:"required"`
	Date                string   `json:"date" binding:"required,bookabledate"`
	TimeSlot            TimeSlot `json:"time_slot" binding:"required"`
	Purpose             string   `json:"purpose" binding:"required"`
	Attendees           uint     `json:"attendees" binding:"required,min=1"`
	SpecialRequirements string   `json:"special_requirements,omitempty"`
}

type UpdateBookingStatusRequestBody struct {
	NewStatus BookingStatus `json:"new_status" binding:"required"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type AdminUsersQueryFilters struct {
	Role   string `form:"role"`
	Search string `form:"search"`
}

type AdminListingsQueryFilters struct {
	Search string `form:"search"`
}

type AdminBookingsQueryFilters struct {
	Status string `form:"status"`
	Search string `form:"search"`
}

type APIResponseUser struct {
	ID       uint   `json:"id"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Verified bool   `json:"verified,omitempty"`

	SchoolName      string `json:"school_name,omitempty"`
	SchoolAddress   string `json:"school_address,omitempty"`
	Subject         string `json:"subject,omitempty"`
	ExperienceYears uint   `json:"experience_years,omitempty"`
}

// AdminStats is the aggregate snapshot served to the admin dashboard.
type AdminStats struct {
	TotalTeachers     int64   `json:"total_teachers"`
	TotalSchools      int64   `json:"total_schools"`
	TotalListings     int64   `json:"total_listings"`
	ActiveListings    int64   `json:"active_listings"`
	TotalBookings     int64   `json:"total_bookings"`
	PendingBookings   int64   `json:"pending_bookings"`
	ConfirmedBookings int64   `json:"confirmed_bookings"`
	TotalRevenue      float64 `json:"total_revenue"`
}
