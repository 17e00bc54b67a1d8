package models

import (
	"eduspace/src/types"
	"time"
)

type User struct {
	ID       uint       `gorm:"primarykey" json:"id"`
	Name     string     `json:"name,omitempty"`
	Email    string     `gorm:"uniqueIndex" json:"email,omitempty"`
	Password string     `json:"-"`
	GoogleID string     `json:"-"`
	Role     types.Role `gorm:"index" json:"role,omitempty"`
	Phone    string     `json:"phone,omitempty"`
	Avatar   string     `json:"avatar,omitempty"`
	Verified bool       `json:"verified,omitempty"`

	SchoolName    string `json:"school_name,omitempty"`
	SchoolAddress string `json:"school_address,omitempty"`

	Subject         string `json:"subject,omitempty"`
	ExperienceYears uint   `json:"experience_years,omitempty"`

	ResetPasswordToken   string     `json:"-"`
	ResetPasswordExpires *time.Time `json:"-"`

	Listings  []Listing  `gorm:"foreignKey:owner_id" json:"listings,omitempty"`
	Favorites []*Listing `gorm:"many2many:user_favorites;" json:"favorites,omitempty"`

	types.Timestamps
}

// Projection returns the public shape of a user, never the password hash
// or reset-token fields.
func (u *User) Projection() types.APIResponseUser {
	return types.APIResponseUser{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		Phone:           u.Phone,
		Avatar:          u.Avatar,
		Verified:        u.Verified,
		SchoolName:      u.SchoolName,
		SchoolAddress:   u.SchoolAddress,
		Subject:         u.Subject,
		ExperienceYears: u.ExperienceYears,
	}
}
