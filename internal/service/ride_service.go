package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gatisathi/internal/domain"
	"gatisathi/internal/events"
	"gatisathi/internal/models"

	"github.com/rs/zerolog"
)

// PublishRideRequest is a driver's ride offer as received from the client.
type PublishRideRequest struct {
	From          string
	To            string
	Date          string
	Time          string
	Price         float64
	SeatsOffered  int64
	Mode          string
	VehicleInfo   string
	VehicleNumber string
	RideDetails   string
}

type RideService struct {
	inventory       domain.RideInventory
	users           domain.UserDirectory
	eventBus        domain.EventPublisher
	maxSeatsOffered int64
	logger          *zerolog.Logger
}

func NewRideService(inventory domain.RideInventory, users domain.UserDirectory, eventBus domain.EventPublisher, maxSeatsOffered int64, logger *zerolog.Logger) *RideService {
	if maxSeatsOffered <= 0 {
		maxSeatsOffered = models.MaxSeatsOffered
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "rides").Logger()
	return &RideService{
		inventory:       inventory,
		users:           users,
		eventBus:        eventBus,
		maxSeatsOffered: maxSeatsOffered,
		logger:          &l,
	}
}

func (s *RideService) Publish(ctx context.Context, driverID string, req PublishRideRequest) (*models.Ride, error) {
	if driverID == "" {
		return nil, ErrUnauthorized
	}
	ride, err := s.buildRide(driverID, req)
	if err != nil {
		return nil, err
	}

	if err := s.inventory.CreateRide(ctx, ride); err != nil {
		return nil, persistenceError("create ride", err)
	}

	if s.users != nil {
		if err := s.users.IncrementTotalTrips(ctx, driverID); err != nil {
			s.logger.Warn().Err(err).Str("driver_id", driverID).Msg("failed to increment driver trips")
		}
	}

	s.logger.Info().Str("ride_id", ride.ID).Str("driver_id", driverID).Int64("seats_offered", ride.SeatsOffered).Msg("ride published")
	if s.eventBus != nil {
		payload := events.RideEventPayload{
			RideID:       ride.ID,
			DriverID:     ride.DriverID,
			Mode:         ride.Mode,
			From:         ride.From,
			To:           ride.To,
			Date:         ride.Date.Format(models.DateLayout),
			Time:         ride.Time,
			Price:        ride.Price,
			SeatsOffered: ride.SeatsOffered,
			OccurredAt:   time.Now().UTC(),
		}
		if err := s.eventBus.PublishJSON(events.EventRidePublished, payload); err != nil {
			s.logger.Error().Err(err).Str("ride_id", ride.ID).Msg("publish event error")
		}
	}
	return ride, nil
}

func (s *RideService) buildRide(driverID string, req PublishRideRequest) (*models.Ride, error) {
	from, to, tm := strings.TrimSpace(req.From), strings.TrimSpace(req.To), strings.TrimSpace(req.Time)
	switch {
	case from == "":
		return nil, fmt.Errorf("%w: from is required", ErrInvalidRide)
	case to == "":
		return nil, fmt.Errorf("%w: to is required", ErrInvalidRide)
	case tm == "":
		return nil, fmt.Errorf("%w: time is required", ErrInvalidRide)
	}

	date, err := time.Parse(models.DateLayout, strings.TrimSpace(req.Date))
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidRide)
	}
	if req.Price < 0 || math.IsNaN(req.Price) || math.IsInf(req.Price, 0) {
		return nil, fmt.Errorf("%w: price must be a non-negative number", ErrInvalidRide)
	}

	seats := req.SeatsOffered
	if seats == 0 {
		seats = models.DefaultSeatsOffered
	}
	if seats < 1 || seats > s.maxSeatsOffered {
		return nil, fmt.Errorf("%w: seatsOffered must be between 1 and %d", ErrInvalidRide, s.maxSeatsOffered)
	}

	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = models.ModeCar
	}
	if !models.ValidMode(mode) {
		return nil, fmt.Errorf("%w: mode must be car or bike", ErrInvalidRide)
	}

	return &models.Ride{
		DriverID:      driverID,
		Mode:          mode,
		From:          from,
		To:            to,
		Date:          date,
		Time:          tm,
		Price:         req.Price,
		SeatsOffered:  seats,
		VehicleInfo:   strings.TrimSpace(req.VehicleInfo),
		VehicleNumber: strings.TrimSpace(req.VehicleNumber),
		RideDetails:   strings.TrimSpace(req.RideDetails),
		Status:        models.RideStatusActive,
	}, nil
}

// Search lists active rides matching the filter with driver cards attached.
func (s *RideService) Search(ctx context.Context, filter models.RideFilter) ([]*models.RideView, error) {
	rides, err := s.inventory.SearchRides(ctx, filter)
	if err != nil {
		return nil, persistenceError("search rides", err)
	}
	return s.withDrivers(ctx, rides)
}

func (s *RideService) ListMine(ctx context.Context, driverID string) ([]*models.Ride, error) {
	if driverID == "" {
		return nil, ErrUnauthorized
	}
	rides, err := s.inventory.ListRidesByDriver(ctx, driverID)
	if err != nil {
		return nil, persistenceError("list rides", err)
	}
	if rides == nil {
		rides = []*models.Ride{}
	}
	return rides, nil
}

func (s *RideService) Get(ctx context.Context, id string) (*models.RideView, error) {
	ride, err := s.inventory.GetRide(ctx, id)
	if err != nil {
		return nil, inventoryError("get ride", err)
	}
	views, err := s.withDrivers(ctx, []*models.Ride{ride})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// UpdateStatus lets the owning driver complete or cancel an active ride.
func (s *RideService) UpdateStatus(ctx context.Context, rideID, callerID, status string) (*models.Ride, error) {
	if callerID == "" {
		return nil, ErrUnauthorized
	}
	if status != models.RideStatusCompleted && status != models.RideStatusCancelled {
		return nil, ErrInvalidRideStatus
	}

	ride, err := s.inventory.GetRide(ctx, rideID)
	if err != nil {
		return nil, inventoryError("get ride", err)
	}
	if ride.DriverID != callerID {
		return nil, ErrForbidden
	}

	if err := s.inventory.UpdateRideStatus(ctx, rideID, status); err != nil {
		return nil, inventoryError("update ride status", err)
	}

	updated, err := s.inventory.GetRide(ctx, rideID)
	if err != nil {
		return nil, inventoryError("get ride", err)
	}
	s.logger.Info().Str("ride_id", rideID).Str("status", status).Msg("ride status changed")
	return updated, nil
}

func (s *RideService) withDrivers(ctx context.Context, rides []*models.Ride) ([]*models.RideView, error) {
	cards := make(map[string]*models.DriverSummary)
	views := make([]*models.RideView, 0, len(rides))

	for _, ride := range rides {
		card, ok := cards[ride.DriverID]
		if !ok && s.users != nil {
			user, err := s.users.GetUserByID(ctx, ride.DriverID)
			switch {
			case err == nil:
				card = user.Summary()
			case errors.Is(err, domain.ErrUserNotFound):
			default:
				return nil, persistenceError("get driver", err)
			}
			cards[ride.DriverID] = card
		}
		views = append(views, &models.RideView{Ride: ride, Driver: card})
	}
	return views, nil
}
