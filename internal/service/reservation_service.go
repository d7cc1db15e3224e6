package service

import (
	"context"
	"errors"
	"math"
	"time"

	"gatisathi/internal/config"
	"gatisathi/internal/domain"
	"gatisathi/internal/events"
	"gatisathi/internal/metrics"
	"gatisathi/internal/models"

	"github.com/rs/zerolog"
)

const defaultCompensationTimeout = 5 * time.Second

// BookingPolicy holds the deployer-controlled booking rules.
type BookingPolicy struct {
	AllowSelfBooking      bool
	AllowDuplicateBooking bool
	RateLimitAttempts     int
	RateLimitWindow       time.Duration
	CompensationTimeout   time.Duration
}

// DefaultBookingPolicy allows self and duplicate bookings and does not rate limit.
func DefaultBookingPolicy() BookingPolicy {
	return BookingPolicy{
		AllowSelfBooking:      true,
		AllowDuplicateBooking: true,
		CompensationTimeout:   defaultCompensationTimeout,
	}
}

func PolicyFromConfig(cfg config.BookingConfig) BookingPolicy {
	return BookingPolicy{
		AllowSelfBooking:      cfg.SelfBookingAllowed(),
		AllowDuplicateBooking: cfg.DuplicateBookingAllowed(),
		RateLimitAttempts:     cfg.RateLimitAttempts,
		RateLimitWindow:       time.Duration(cfg.RateLimitWindow) * time.Second,
		CompensationTimeout:   time.Duration(cfg.CompensationTimeout) * time.Millisecond,
	}
}

type BookSeatRequest struct {
	RideID        string
	PassengerID   string
	PaymentMethod string
	PricePaid     float64
}

// ReservationService is the only entry point that changes seat counts on
// behalf of passengers.
type ReservationService struct {
	inventory domain.RideInventory
	ledger    domain.BookingLedger
	limiter   domain.RateLimiter
	eventBus  domain.EventPublisher
	policy    BookingPolicy
	logger    *zerolog.Logger
}

func NewReservationService(
	inventory domain.RideInventory,
	ledger domain.BookingLedger,
	limiter domain.RateLimiter,
	eventBus domain.EventPublisher,
	policy BookingPolicy,
	logger *zerolog.Logger,
) *ReservationService {
	if policy.CompensationTimeout <= 0 {
		policy.CompensationTimeout = defaultCompensationTimeout
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "reservation").Logger()

	return &ReservationService{
		inventory: inventory,
		ledger:    ledger,
		limiter:   limiter,
		eventBus:  eventBus,
		policy:    policy,
		logger:    &l,
	}
}

// BookSeat reserves one seat and records the booking. A reserved seat is
// released again unless the booking is persisted.
func (s *ReservationService) BookSeat(ctx context.Context, req BookSeatRequest) (booking *models.Booking, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveReservation(outcomeOf(err), started)
	}()

	if req.PassengerID == "" {
		return nil, ErrUnauthorized
	}
	if !models.ValidPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	if req.PricePaid < 0 || math.IsNaN(req.PricePaid) || math.IsInf(req.PricePaid, 0) {
		return nil, ErrInvalidPrice
	}
	if err := s.checkRateLimit(ctx, req.PassengerID); err != nil {
		return nil, err
	}
	if err := s.checkPolicies(ctx, req); err != nil {
		return nil, err
	}

	token, err := s.inventory.TryReserveSeat(ctx, req.RideID)
	if err != nil {
		return nil, inventoryError("reserve seat", err)
	}

	committed := false
	defer func() {
		if !committed {
			s.compensate(ctx, token.RideID)
		}
	}()

	booking, err = s.ledger.CreateBooking(ctx, models.NewBooking{
		RideID:        token.RideID,
		PassengerID:   req.PassengerID,
		DriverID:      token.DriverID,
		PaymentMethod: req.PaymentMethod,
		PricePaid:     req.PricePaid,
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("ride_id", req.RideID).
			Str("passenger_id", req.PassengerID).
			Msg("failed to record booking after reserving seat")
		return nil, persistenceError("create booking", err)
	}
	committed = true

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("ride_id", booking.RideID).
		Str("passenger_id", booking.PassengerID).
		Int64("seats_booked", token.SeatsBookedBefore+1).
		Int64("seats_offered", token.SeatsOffered).
		Msg("seat booked")
	s.publish(events.EventBookingCreated, booking)
	return booking, nil
}

// CancelBooking cancels an upcoming booking held by callerID and returns its seat.
func (s *ReservationService) CancelBooking(ctx context.Context, bookingID, callerID string) (*models.Booking, error) {
	if callerID == "" {
		return nil, ErrUnauthorized
	}

	booking, err := s.ledger.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrBookingNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, persistenceError("get booking", err)
	}
	if booking.PassengerID != callerID {
		return nil, ErrForbidden
	}
	if booking.Status != models.BookingStatusUpcoming {
		return nil, ErrBookingNotCancellable
	}

	paymentStatus := booking.PaymentStatus
	if paymentStatus == models.PaymentStatusCompleted {
		paymentStatus = models.PaymentStatusRefunded
	}

	err = s.ledger.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, models.BookingStatusCancelled, paymentStatus)
	if err != nil {
		if errors.Is(err, domain.ErrConcurrentModification) {
			return nil, ErrBookingNotCancellable
		}
		return nil, persistenceError("cancel booking", err)
	}

	// The booking is cancelled from here on, so the seat goes back even if
	// the caller has gone away.
	rctx, cancel := s.detached(ctx)
	defer cancel()
	if err := s.inventory.ReleaseSeat(rctx, booking.RideID); err != nil {
		s.logger.Error().Err(err).
			Str("booking_id", booking.ID).
			Str("ride_id", booking.RideID).
			Msg("booking cancelled but seat release failed")
	}

	booking.Status = models.BookingStatusCancelled
	booking.PaymentStatus = paymentStatus
	booking.Version++
	booking.UpdatedAt = time.Now().UTC()
	if fresh, err := s.ledger.GetBooking(rctx, booking.ID); err == nil {
		booking = fresh
	}

	s.logger.Info().Str("booking_id", booking.ID).Str("ride_id", booking.RideID).Msg("booking cancelled")
	s.publish(events.EventBookingCancelled, booking)
	return booking, nil
}

func (s *ReservationService) checkRateLimit(ctx context.Context, passengerID string) error {
	if s.limiter == nil || s.policy.RateLimitAttempts <= 0 || s.policy.RateLimitWindow <= 0 {
		return nil
	}
	allowed, err := s.limiter.Allow(ctx, "booking:"+passengerID, s.policy.RateLimitAttempts, s.policy.RateLimitWindow)
	if err != nil {
		s.logger.Warn().Err(err).Str("passenger_id", passengerID).Msg("rate limiter unavailable, allowing attempt")
		return nil
	}
	if !allowed {
		return ErrTooManyAttempts
	}
	return nil
}

// checkPolicies runs the optional read-only pre-checks. The reservation
// itself stays a single conditional write.
func (s *ReservationService) checkPolicies(ctx context.Context, req BookSeatRequest) error {
	if s.policy.AllowSelfBooking && s.policy.AllowDuplicateBooking {
		return nil
	}

	ride, err := s.inventory.GetRide(ctx, req.RideID)
	if err != nil {
		return inventoryError("get ride", err)
	}
	if !s.policy.AllowSelfBooking && ride.DriverID == req.PassengerID {
		return ErrSelfBooking
	}
	if !s.policy.AllowDuplicateBooking {
		n, err := s.ledger.CountActiveByRideAndPassenger(ctx, req.RideID, req.PassengerID)
		if err != nil {
			return persistenceError("count bookings", err)
		}
		if n > 0 {
			return ErrDuplicateBooking
		}
	}
	return nil
}

// compensate releases a reserved seat on a context that survives caller
// cancellation.
func (s *ReservationService) compensate(ctx context.Context, rideID string) {
	cctx, cancel := s.detached(ctx)
	defer cancel()

	if err := s.inventory.ReleaseSeat(cctx, rideID); err != nil {
		metrics.IncCompensation("failed")
		s.logger.Error().Err(err).Str("ride_id", rideID).Msg("compensating seat release failed")
		return
	}
	metrics.IncCompensation("released")
	s.logger.Warn().Str("ride_id", rideID).Msg("reserved seat released after failed booking")
}

func (s *ReservationService) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.policy.CompensationTimeout)
}

func (s *ReservationService) publish(eventType string, b *models.Booking) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:     b.ID,
		RideID:        b.RideID,
		PassengerID:   b.PassengerID,
		DriverID:      b.DriverID,
		PaymentMethod: b.PaymentMethod,
		PaymentStatus: b.PaymentStatus,
		Status:        b.Status,
		PricePaid:     b.PricePaid,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", b.ID).Msg("publish event error")
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeBooked
	case errors.Is(err, ErrRideNotFound):
		return metrics.OutcomeRideNotFound
	case errors.Is(err, ErrRideNotActive):
		return metrics.OutcomeRideNotActive
	case errors.Is(err, ErrRideFull):
		return metrics.OutcomeRideFull
	case errors.Is(err, ErrPersistence):
		return metrics.OutcomePersistenceError
	default:
		return metrics.OutcomeRejected
	}
}
