package models

import (
	"eduspace/src/types"
	"time"
)

// SchoolID is a snapshot of the listing's owner captured at creation
// time, not a live reference.
type Booking struct {
	ID                  uint                `gorm:"primarykey" json:"id"`
	ListingID           uint                `gorm:"index" json:"listing_id,omitempty"`
	TeacherID           uint                `gorm:"index" json:"teacher_id,omitempty"`
	SchoolID            uint                `gorm:"index" json:"school_id,omitempty"`
	Date                time.Time           `json:"date,omitempty"`
	TimeSlot            types.TimeSlot      `json:"time_slot,omitempty"`
	TotalPrice          float64             `json:"total_price"`
	Status              types.BookingStatus `gorm:"index;default:'pending'" json:"status,omitempty"`
	Purpose             string              `json:"purpose,omitempty"`
	Attendees           uint                `json:"attendees,omitempty"`
	SpecialRequirements string              `json:"special_requirements,omitempty"`
	PaymentStatus       types.PaymentStatus `gorm:"default:'pending'" json:"payment_status,omitempty"`
	PaymentMethod       types.PaymentMethod `gorm:"default:'cash'" json:"payment_method,omitempty"`

	Listing *Listing `gorm:"foreignKey:listing_id" json:"listing,omitempty"`
	Teacher *User    `gorm:"foreignKey:teacher_id" json:"teacher,omitempty"`
	School  *User    `gorm:"foreignKey:school_id" json:"school,omitempty"`

	types.Timestamps
}
