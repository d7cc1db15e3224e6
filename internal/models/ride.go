package models

import "time"

type Ride struct {
	ID            string    `json:"id"`
	DriverID      string    `json:"driverId"`
	Mode          string    `json:"mode"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	Date          time.Time `json:"date"`
	Time          string    `json:"time"`
	Price         float64   `json:"price"`
	SeatsOffered  int64     `json:"seatsOffered"`
	SeatsBooked   int64     `json:"seatsBooked"`
	VehicleInfo   string    `json:"vehicleInfo,omitempty"`
	VehicleNumber string    `json:"vehicleNumber,omitempty"`
	RideDetails   string    `json:"rideDetails,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// SeatsAvailable never reports a negative count.
func (r *Ride) SeatsAvailable() int64 {
	if r.SeatsBooked >= r.SeatsOffered {
		return 0
	}
	return r.SeatsOffered - r.SeatsBooked
}

// ReservationToken captures the ride state observed by a successful seat
// reservation. SeatsBookedBefore is the count prior to the increment.
type ReservationToken struct {
	RideID            string
	DriverID          string
	PricePerSeat      float64
	SeatsOffered      int64
	SeatsBookedBefore int64
	ReservedAt        time.Time
}

// RideFilter narrows ride search. Empty fields do not filter.
type RideFilter struct {
	From     string
	To       string
	Mode     string
	FromDate time.Time
}

// DriverSummary is the public driver card shown next to rides.
type DriverSummary struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	Rating     float64 `json:"rating"`
	TotalTrips int64   `json:"totalTrips"`
	IsVerified bool    `json:"isVerified"`
}

// RideView is a ride together with its driver card.
type RideView struct {
	*Ride
	Driver *DriverSummary `json:"driver"`
}
