package models

const (
	RideStatusActive    = "Active"
	RideStatusCompleted = "Completed"
	RideStatusCancelled = "Cancelled"
)

const (
	BookingStatusUpcoming  = "Upcoming"
	BookingStatusCompleted = "Completed"
	BookingStatusCancelled = "Cancelled"
)

const (
	PaymentMethodUPI  = "upi"
	PaymentMethodCash = "cash"
)

const (
	PaymentStatusPending   = "Pending"
	PaymentStatusCompleted = "Completed"
	PaymentStatusRefunded  = "Refunded"
)

const (
	ModeCar  = "car"
	ModeBike = "bike"
)

const (
	RoleUser   = "user"
	RoleDriver = "driver"
	RoleAdmin  = "admin"
)

const (
	// DateLayout is the calendar format used for ride dates on the wire and in storage.
	DateLayout = "2006-01-02"

	// DefaultSeatsOffered applies when a driver publishes a ride without a seat count.
	DefaultSeatsOffered = 1

	// MaxSeatsOffered caps a single ride's capacity unless configured otherwise.
	MaxSeatsOffered = 8

	// DefaultTokenTTLHours matches the 30-day session of the web client.
	DefaultTokenTTLHours = 30 * 24

	// BookingRateLimitAttempts is the default number of booking attempts per window.
	BookingRateLimitAttempts = 10

	// BookingRateLimitWindow is the default window for booking attempts, in seconds.
	BookingRateLimitWindow = 60

	// EventQueueSize bounds the relay's in-memory queue.
	EventQueueSize = 1000
)

// InitialPaymentStatus returns the payment status a new booking starts with.
// UPI bookings are pre-paid by the client; cash is settled with the driver.
func InitialPaymentStatus(method string) string {
	if method == PaymentMethodUPI {
		return PaymentStatusCompleted
	}
	return PaymentStatusPending
}

// ValidPaymentMethod reports whether method is accepted for bookings.
func ValidPaymentMethod(method string) bool {
	return method == PaymentMethodUPI || method == PaymentMethodCash
}

// ValidMode reports whether mode is a known ride mode.
func ValidMode(mode string) bool {
	return mode == ModeCar || mode == ModeBike
}
