package models

import "time"

type Booking struct {
	ID            string    `json:"id"`
	RideID        string    `json:"rideId"`
	PassengerID   string    `json:"passengerId"`
	DriverID      string    `json:"driverId"`
	PaymentMethod string    `json:"paymentMethod"`
	PaymentStatus string    `json:"paymentStatus"`
	Status        string    `json:"status"`
	PricePaid     float64   `json:"pricePaid"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewBooking is the ledger input for a reservation that already holds a seat.
type NewBooking struct {
	RideID        string
	PassengerID   string
	DriverID      string
	PaymentMethod string
	PricePaid     float64
}

// BookingRideSummary is the ride part of a passenger's booking list.
type BookingRideSummary struct {
	ID            string    `json:"id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	Date          time.Time `json:"date"`
	Time          string    `json:"time"`
	Mode          string    `json:"mode"`
	VehicleInfo   string    `json:"vehicleInfo,omitempty"`
	VehicleNumber string    `json:"vehicleNumber,omitempty"`
	Status        string    `json:"status"`
}

// DriverContact is the driver part of a passenger's booking list.
type DriverContact struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Phone  string  `json:"phone"`
	Rating float64 `json:"rating"`
}

// BookingView is a booking joined with ride and driver display fields.
// Ride and Driver are nil when the referenced record no longer resolves.
type BookingView struct {
	*Booking
	Ride   *BookingRideSummary `json:"ride"`
	Driver *DriverContact      `json:"driver"`
}
