package models

import "eduspace/src/types"

type Listing struct {
	ID           uint                      `gorm:"primarykey" json:"id"`
	Name         string                    `json:"name,omitempty"`
	Description  string                    `json:"description,omitempty"`
	Category     types.ListingCategory     `gorm:"index" json:"category,omitempty"`
	Capacity     uint                      `json:"capacity,omitempty"`
	Price        float64                   `json:"price"`
	Location     string                    `json:"location,omitempty"`
	Latitude     *float64                  `json:"latitude,omitempty"`
	Longitude    *float64                  `json:"longitude,omitempty"`
	Amenities    types.JSONBArray          `gorm:"type:jsonb" json:"amenities,omitempty"`
	Images       types.JSONBArray          `gorm:"type:jsonb" json:"images,omitempty"`
	Availability types.ListingAvailability `gorm:"default:'Both'" json:"availability,omitempty"`
	Status       types.ListingStatus       `gorm:"index;default:'active'" json:"status,omitempty"`
	Rating       float32                   `json:"rating"`
	ReviewsCount uint                      `json:"reviews_count"`
	OwnerID      uint                      `gorm:"index" json:"owner_id,omitempty"`

	Owner    *User     `gorm:"foreignKey:owner_id" json:"owner,omitempty"`
	Bookings []Booking `gorm:"foreignKey:listing_id" json:"bookings,omitempty"`

	types.Timestamps
}
