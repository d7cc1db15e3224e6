package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"gatisathi/internal/config"
	"gatisathi/internal/domain"
	"gatisathi/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var errNilClient = errors.New("redis client is nil")

const (
	rideKeyPrefix   = "ride:"
	activeRidesKey  = "rides:active"
	driverRidesKey  = "rides:driver:"
	rateLimitPrefix = "rate_limit:"
)

// Script result codes shared by the ride scripts.
const (
	codeOK        = 0
	codeNotFound  = -1
	codeNotActive = -2
	codeFull      = -3
)

// reserveScript checks status and capacity and increments seats_booked in one step.
var reserveScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return {-1} end
if redis.call('HGET', KEYS[1], 'status') ~= ARGV[1] then return {-2} end
local offered = tonumber(redis.call('HGET', KEYS[1], 'seats_offered'))
local booked = tonumber(redis.call('HGET', KEYS[1], 'seats_booked'))
if booked >= offered then return {-3} end
redis.call('HINCRBY', KEYS[1], 'seats_booked', 1)
redis.call('HSET', KEYS[1], 'updated_at', ARGV[2])
return {0, booked, offered, redis.call('HGET', KEYS[1], 'driver_id'), redis.call('HGET', KEYS[1], 'price')}
`)

var releaseScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
local booked = tonumber(redis.call('HGET', KEYS[1], 'seats_booked'))
if booked > 0 then redis.call('HINCRBY', KEYS[1], 'seats_booked', -1) end
redis.call('HSET', KEYS[1], 'updated_at', ARGV[1])
return 0
`)

var statusScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
if redis.call('HGET', KEYS[1], 'status') ~= ARGV[1] then return -2 end
redis.call('HSET', KEYS[1], 'status', ARGV[2], 'updated_at', ARGV[3])
redis.call('SREM', KEYS[2], ARGV[4])
return 0
`)

// NewRedisClient builds a client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return errNilClient
	}
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// RedisInventory keeps rides as hashes and reserves seats with Lua scripts.
type RedisInventory struct {
	client *redis.Client
}

func NewRedisInventory(client *redis.Client) *RedisInventory {
	return &RedisInventory{client: client}
}

func rideKey(id string) string {
	return rideKeyPrefix + id
}

func (r *RedisInventory) CreateRide(ctx context.Context, ride *models.Ride) error {
	if r.client == nil {
		return errNilClient
	}
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

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, rideKey(ride.ID), rideFields(ride))
		pipe.SAdd(ctx, driverRidesKey+ride.DriverID, ride.ID)
		if ride.Status == models.RideStatusActive {
			pipe.SAdd(ctx, activeRidesKey, ride.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create ride in redis: %w", err)
	}
	return nil
}

func (r *RedisInventory) GetRide(ctx context.Context, id string) (*models.Ride, error) {
	if r.client == nil {
		return nil, errNilClient
	}
	fields, err := r.client.HGetAll(ctx, rideKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get ride from redis: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrRideNotFound
	}
	return parseRide(fields)
}

func (r *RedisInventory) TryReserveSeat(ctx context.Context, id string) (*models.ReservationToken, error) {
	if r.client == nil {
		return nil, errNilClient
	}
	now := time.Now().UTC()
	res, err := reserveScript.Run(ctx, r.client, []string{rideKey(id)},
		models.RideStatusActive, now.Format(time.RFC3339Nano)).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve seat in redis: %w", err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("unexpected reserve script result")
	}

	code, _ := res[0].(int64)
	if err := codeError(code); err != nil {
		return nil, err
	}
	if len(res) != 5 {
		return nil, fmt.Errorf("unexpected reserve script result length %d", len(res))
	}

	booked, _ := res[1].(int64)
	offered, _ := res[2].(int64)
	driverID, _ := res[3].(string)
	priceStr, _ := res[4].(string)
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ride price: %w", err)
	}

	return &models.ReservationToken{
		RideID:            id,
		DriverID:          driverID,
		PricePerSeat:      price,
		SeatsOffered:      offered,
		SeatsBookedBefore: booked,
		ReservedAt:        now,
	}, nil
}

func (r *RedisInventory) ReleaseSeat(ctx context.Context, id string) error {
	if r.client == nil {
		return errNilClient
	}
	code, err := releaseScript.Run(ctx, r.client, []string{rideKey(id)},
		time.Now().UTC().Format(time.RFC3339Nano)).Int64()
	if err != nil {
		return fmt.Errorf("failed to release seat in redis: %w", err)
	}
	return codeError(code)
}

func (r *RedisInventory) SearchRides(ctx context.Context, filter models.RideFilter) ([]*models.Ride, error) {
	rides, err := r.loadSet(ctx, activeRidesKey)
	if err != nil {
		return nil, err
	}

	matched := rides[:0]
	for _, ride := range rides {
		if ride.Status == models.RideStatusActive && MatchesFilter(ride, filter) {
			matched = append(matched, ride)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return rideBefore(matched[i], matched[j]) })
	return matched, nil
}

func (r *RedisInventory) ListRidesByDriver(ctx context.Context, driverID string) ([]*models.Ride, error) {
	rides, err := r.loadSet(ctx, driverRidesKey+driverID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rides, func(i, j int) bool { return rideBefore(rides[j], rides[i]) })
	return rides, nil
}

func (r *RedisInventory) UpdateRideStatus(ctx context.Context, id, status string) error {
	if r.client == nil {
		return errNilClient
	}
	code, err := statusScript.Run(ctx, r.client, []string{rideKey(id), activeRidesKey},
		models.RideStatusActive, status, time.Now().UTC().Format(time.RFC3339Nano), id).Int64()
	if err != nil {
		return fmt.Errorf("failed to update ride status in redis: %w", err)
	}
	return codeError(code)
}

func (r *RedisInventory) loadSet(ctx context.Context, setKey string) ([]*models.Ride, error) {
	if r.client == nil {
		return nil, errNilClient
	}
	ids, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rides from redis: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, rideKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load rides from redis: %w", err)
	}

	rides := make([]*models.Ride, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		ride, err := parseRide(fields)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, nil
}

func codeError(code int64) error {
	switch code {
	case codeOK:
		return nil
	case codeNotFound:
		return domain.ErrRideNotFound
	case codeNotActive:
		return domain.ErrRideNotActive
	case codeFull:
		return domain.ErrRideFull
	default:
		return fmt.Errorf("unexpected script result %d", code)
	}
}

func rideFields(ride *models.Ride) map[string]interface{} {
	return map[string]interface{}{
		"id":             ride.ID,
		"driver_id":      ride.DriverID,
		"mode":           ride.Mode,
		"from":           ride.From,
		"to":             ride.To,
		"date":           ride.Date.Format(models.DateLayout),
		"time":           ride.Time,
		"price":          strconv.FormatFloat(ride.Price, 'f', -1, 64),
		"seats_offered":  ride.SeatsOffered,
		"seats_booked":   ride.SeatsBooked,
		"vehicle_info":   ride.VehicleInfo,
		"vehicle_number": ride.VehicleNumber,
		"ride_details":   ride.RideDetails,
		"status":         ride.Status,
		"created_at":     ride.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":     ride.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func parseRide(f map[string]string) (*models.Ride, error) {
	ride := &models.Ride{
		ID:            f["id"],
		DriverID:      f["driver_id"],
		Mode:          f["mode"],
		From:          f["from"],
		To:            f["to"],
		Time:          f["time"],
		VehicleInfo:   f["vehicle_info"],
		VehicleNumber: f["vehicle_number"],
		RideDetails:   f["ride_details"],
		Status:        f["status"],
	}

	var err error
	if ride.Date, err = time.Parse(models.DateLayout, f["date"]); err != nil {
		return nil, fmt.Errorf("failed to parse ride date: %w", err)
	}
	if ride.Price, err = strconv.ParseFloat(f["price"], 64); err != nil {
		return nil, fmt.Errorf("failed to parse ride price: %w", err)
	}
	if ride.SeatsOffered, err = strconv.ParseInt(f["seats_offered"], 10, 64); err != nil {
		return nil, fmt.Errorf("failed to parse seats offered: %w", err)
	}
	if ride.SeatsBooked, err = strconv.ParseInt(f["seats_booked"], 10, 64); err != nil {
		return nil, fmt.Errorf("failed to parse seats booked: %w", err)
	}
	ride.CreatedAt, _ = time.Parse(time.RFC3339Nano, f["created_at"])
	ride.UpdatedAt, _ = time.Parse(time.RFC3339Nano, f["updated_at"])
	return ride, nil
}

// RedisRateLimiter counts attempts with INCR and a window TTL.
type RedisRateLimiter struct {
	client *redis.Client
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, errNilClient
	}
	k := rateLimitPrefix + key
	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, k, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return count <= int64(limit), nil
}
