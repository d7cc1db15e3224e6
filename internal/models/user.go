package models

import "time"

type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone,omitempty"`
	Email      string    `json:"email,omitempty"`
	Role       string    `json:"role"`
	Rating     float64   `json:"rating"`
	TotalTrips int64     `json:"totalTrips"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Summary returns the public driver card for u.
func (u *User) Summary() *DriverSummary {
	return &DriverSummary{
		ID:         u.ID,
		Name:       u.Name,
		Phone:      u.Phone,
		Rating:     u.Rating,
		TotalTrips: u.TotalTrips,
		IsVerified: u.IsVerified,
	}
}

// Contact returns the driver contact shown on bookings.
func (u *User) Contact() *DriverContact {
	return &DriverContact{ID: u.ID, Name: u.Name, Phone: u.Phone, Rating: u.Rating}
}

// ProfileUpdate carries optional profile changes. Empty fields are left as-is.
type ProfileUpdate struct {
	Name  string
	Phone string
}
