package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gatisathi/internal/models"

	"gopkg.in/yaml.v2"
)

type seedRide struct {
	ID            string  `yaml:"id"`
	DriverID      string  `yaml:"driver_id"`
	Mode          string  `yaml:"mode"`
	From          string  `yaml:"from"`
	To            string  `yaml:"to"`
	Date          string  `yaml:"date"`
	Time          string  `yaml:"time"`
	Price         float64 `yaml:"price"`
	SeatsOffered  int64   `yaml:"seats_offered"`
	VehicleInfo   string  `yaml:"vehicle_info"`
	VehicleNumber string  `yaml:"vehicle_number"`
	RideDetails   string  `yaml:"ride_details"`
}

// LoadSeedRides reads rides to preload into an empty inventory.
func LoadSeedRides(path string) ([]*models.Ride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seed struct {
		Rides []seedRide `yaml:"rides"`
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed rides: %w", err)
	}

	rides := make([]*models.Ride, 0, len(seed.Rides))
	for i, s := range seed.Rides {
		if strings.TrimSpace(s.DriverID) == "" || strings.TrimSpace(s.From) == "" || strings.TrimSpace(s.To) == "" {
			return nil, fmt.Errorf("seed ride %d: driver_id, from and to are required", i)
		}
		date, err := time.Parse(models.DateLayout, strings.TrimSpace(s.Date))
		if err != nil {
			return nil, fmt.Errorf("seed ride %d: invalid date %q", i, s.Date)
		}
		if s.SeatsOffered < 1 {
			return nil, fmt.Errorf("seed ride %d: seats_offered must be at least 1", i)
		}
		rides = append(rides, &models.Ride{
			ID:            s.ID,
			DriverID:      s.DriverID,
			Mode:          s.Mode,
			From:          s.From,
			To:            s.To,
			Date:          date,
			Time:          s.Time,
			Price:         s.Price,
			SeatsOffered:  s.SeatsOffered,
			VehicleInfo:   s.VehicleInfo,
			VehicleNumber: s.VehicleNumber,
			RideDetails:   s.RideDetails,
			Status:        models.RideStatusActive,
		})
	}
	return rides, nil
}
