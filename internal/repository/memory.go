package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gatisathi/internal/domain"
	"gatisathi/internal/models"

	"github.com/google/uuid"
)

// MemoryInventory is a process-local ride inventory guarded by a single mutex.
type MemoryInventory struct {
	mu    sync.Mutex
	rides map[string]*models.Ride
}

func NewMemoryInventory() *MemoryInventory {
	return &MemoryInventory{rides: make(map[string]*models.Ride)}
}

func (r *MemoryInventory) CreateRide(_ context.Context, ride *models.Ride) error {
	if ride.ID == "" {
		ride.ID = uuid.NewString()
	}
	if ride.Status == "" {
		ride.Status = models.RideStatusActive
	}
	if ride.Mode == "" {
		ride.Mode = models.ModeCar
	}
	now := time.Now().UTC()
	ride.CreatedAt = now
	ride.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *ride
	r.rides[ride.ID] = &stored
	return nil
}

func (r *MemoryInventory) GetRide(_ context.Context, id string) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[id]
	if !ok {
		return nil, domain.ErrRideNotFound
	}
	cp := *ride
	return &cp, nil
}

func (r *MemoryInventory) TryReserveSeat(_ context.Context, id string) (*models.ReservationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[id]
	switch {
	case !ok:
		return nil, domain.ErrRideNotFound
	case ride.Status != models.RideStatusActive:
		return nil, domain.ErrRideNotActive
	case ride.SeatsBooked >= ride.SeatsOffered:
		return nil, domain.ErrRideFull
	}

	now := time.Now().UTC()
	token := &models.ReservationToken{
		RideID:            id,
		DriverID:          ride.DriverID,
		PricePerSeat:      ride.Price,
		SeatsOffered:      ride.SeatsOffered,
		SeatsBookedBefore: ride.SeatsBooked,
		ReservedAt:        now,
	}
	ride.SeatsBooked++
	ride.UpdatedAt = now
	return token, nil
}

func (r *MemoryInventory) ReleaseSeat(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[id]
	if !ok {
		return domain.ErrRideNotFound
	}
	if ride.SeatsBooked > 0 {
		ride.SeatsBooked--
	}
	ride.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryInventory) SearchRides(_ context.Context, filter models.RideFilter) ([]*models.Ride, error) {
	r.mu.Lock()
	var rides []*models.Ride
	for _, ride := range r.rides {
		if ride.Status == models.RideStatusActive && MatchesFilter(ride, filter) {
			cp := *ride
			rides = append(rides, &cp)
		}
	}
	r.mu.Unlock()

	sort.SliceStable(rides, func(i, j int) bool { return rideBefore(rides[i], rides[j]) })
	return rides, nil
}

func (r *MemoryInventory) ListRidesByDriver(_ context.Context, driverID string) ([]*models.Ride, error) {
	r.mu.Lock()
	var rides []*models.Ride
	for _, ride := range r.rides {
		if ride.DriverID == driverID {
			cp := *ride
			rides = append(rides, &cp)
		}
	}
	r.mu.Unlock()

	sort.SliceStable(rides, func(i, j int) bool { return rideBefore(rides[j], rides[i]) })
	return rides, nil
}

func (r *MemoryInventory) UpdateRideStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[id]
	if !ok {
		return domain.ErrRideNotFound
	}
	if ride.Status != models.RideStatusActive {
		return domain.ErrRideNotActive
	}
	ride.Status = status
	ride.UpdatedAt = time.Now().UTC()
	return nil
}

// MatchesFilter applies the search filter to a single ride. Place names match
// as case-insensitive substrings.
func MatchesFilter(ride *models.Ride, f models.RideFilter) bool {
	if from := strings.TrimSpace(f.From); from != "" &&
		!strings.Contains(strings.ToLower(ride.From), strings.ToLower(from)) {
		return false
	}
	if to := strings.TrimSpace(f.To); to != "" &&
		!strings.Contains(strings.ToLower(ride.To), strings.ToLower(to)) {
		return false
	}
	if f.Mode != "" && ride.Mode != f.Mode {
		return false
	}
	if !f.FromDate.IsZero() && ride.Date.Format(models.DateLayout) < f.FromDate.Format(models.DateLayout) {
		return false
	}
	return true
}

func rideBefore(a, b *models.Ride) bool {
	da, db := a.Date.Format(models.DateLayout), b.Date.Format(models.DateLayout)
	if da != db {
		return da < db
	}
	return a.Time < b.Time
}

// MemoryLedger is a process-local booking ledger.
type MemoryLedger struct {
	mu       sync.Mutex
	bookings []*models.Booking
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (l *MemoryLedger) CreateBooking(_ context.Context, in models.NewBooking) (*models.Booking, error) {
	now := time.Now().UTC()
	b := &models.Booking{
		ID:            uuid.NewString(),
		RideID:        in.RideID,
		PassengerID:   in.PassengerID,
		DriverID:      in.DriverID,
		PaymentMethod: in.PaymentMethod,
		PaymentStatus: models.InitialPaymentStatus(in.PaymentMethod),
		Status:        models.BookingStatusUpcoming,
		PricePaid:     in.PricePaid,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.bookings = append(l.bookings, b)
	cp := *b
	return &cp, nil
}

func (l *MemoryLedger) GetBooking(_ context.Context, id string) (*models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range l.bookings {
		if b.ID == id {
			cp := *b
			return &cp, nil
		}
	}
	return nil, domain.ErrBookingNotFound
}

// ListByPassenger returns bookings newest first.
func (l *MemoryLedger) ListByPassenger(_ context.Context, passengerID string) ([]*models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*models.Booking
	for i := len(l.bookings) - 1; i >= 0; i-- {
		if b := l.bookings[i]; b.PassengerID == passengerID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (l *MemoryLedger) CountActiveByRideAndPassenger(_ context.Context, rideID, passengerID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, b := range l.bookings {
		if b.RideID == rideID && b.PassengerID == passengerID && b.Status != models.BookingStatusCancelled {
			n++
		}
	}
	return n, nil
}

func (l *MemoryLedger) UpdateBookingStatusWithVersion(_ context.Context, id string, fromVersion int64, status, paymentStatus string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range l.bookings {
		if b.ID != id {
			continue
		}
		if b.Version != fromVersion {
			return domain.ErrConcurrentModification
		}
		b.Status = status
		b.PaymentStatus = paymentStatus
		b.Version++
		b.UpdatedAt = time.Now().UTC()
		return nil
	}
	return domain.ErrConcurrentModification
}

// Len reports the number of ledger rows.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.bookings)
}

// MemoryUserDirectory is a process-local user store.
type MemoryUserDirectory struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func NewMemoryUserDirectory() *MemoryUserDirectory {
	return &MemoryUserDirectory{users: make(map[string]*models.User)}
}

func (d *MemoryUserDirectory) GetUserByID(_ context.Context, id string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (d *MemoryUserDirectory) FindUserByContact(_ context.Context, phone, email string) (*models.User, error) {
	if phone == "" && email == "" {
		return nil, domain.ErrUserNotFound
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if (phone == "" || u.Phone == phone) && (email == "" || u.Email == email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (d *MemoryUserDirectory) CreateUser(_ context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *user
	d.users[user.ID] = &cp
	return nil
}

func (d *MemoryUserDirectory) UpdateUserProfile(_ context.Context, id string, update models.ProfileUpdate) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if update.Name != "" {
		u.Name = update.Name
	}
	if update.Phone != "" {
		u.Phone = update.Phone
	}
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	return &cp, nil
}

func (d *MemoryUserDirectory) IncrementTotalTrips(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.TotalTrips++
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryRateLimiter is the in-process fallback for RedisRateLimiter.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{entries: make(map[string]*rateLimitEntry)}
}

func (r *MemoryRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.entries[key] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}
