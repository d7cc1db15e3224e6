package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"gatisathi/internal/models"
	"gatisathi/internal/service"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

type loginRequest struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	res, err := s.services.Users.Login(r.Context(), body.Phone, body.Email)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request, caller Caller) {
	user, err := s.services.Users.Me(r.Context(), caller.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type profileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (s *HTTPServer) handleUpdateProfile(w http.ResponseWriter, r *http.Request, caller Caller) {
	var body profileRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	user, err := s.services.Users.UpdateProfile(r.Context(), caller.UserID, models.ProfileUpdate{Name: body.Name, Phone: body.Phone})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleSearchRides(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.RideFilter{
		From: strings.TrimSpace(q.Get("from")),
		To:   strings.TrimSpace(q.Get("to")),
		Mode: strings.ToLower(strings.TrimSpace(q.Get("mode"))),
	}
	if dateStr := strings.TrimSpace(q.Get("date")); dateStr != "" {
		date, err := time.Parse(models.DateLayout, dateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid date format; expected YYYY-MM-DD")
			return
		}
		filter.FromDate = date
	}

	rides, err := s.services.Rides.Search(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rides)
}

type publishRideRequest struct {
	From          string  `json:"from"`
	To            string  `json:"to"`
	Date          string  `json:"date"`
	Time          string  `json:"time"`
	Price         float64 `json:"price"`
	SeatsOffered  int64   `json:"seatsOffered"`
	Mode          string  `json:"mode"`
	VehicleInfo   string  `json:"vehicleInfo"`
	VehicleNumber string  `json:"vehicleNumber"`
	RideDetails   string  `json:"rideDetails"`
}

func (s *HTTPServer) handlePublishRide(w http.ResponseWriter, r *http.Request, caller Caller) {
	var body publishRideRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	ride, err := s.services.Rides.Publish(r.Context(), caller.UserID, service.PublishRideRequest(body))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ride)
}

func (s *HTTPServer) handleMyRides(w http.ResponseWriter, r *http.Request, caller Caller) {
	rides, err := s.services.Rides.ListMine(r.Context(), caller.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rides)
}

func (s *HTTPServer) handleGetRide(w http.ResponseWriter, r *http.Request) {
	ride, err := s.services.Rides.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

type rideStatusRequest struct {
	Status string `json:"status"`
}

func (s *HTTPServer) handleRideStatus(w http.ResponseWriter, r *http.Request, caller Caller) {
	var body rideStatusRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	ride, err := s.services.Rides.UpdateStatus(r.Context(), mux.Vars(r)["id"], caller.UserID, strings.TrimSpace(body.Status))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

type bookSeatRequest struct {
	RideID        string  `json:"rideId"`
	PaymentMethod string  `json:"paymentMethod"`
	PricePaid     float64 `json:"pricePaid"`
}

func (s *HTTPServer) handleBookSeat(w http.ResponseWriter, r *http.Request, caller Caller) {
	var body bookSeatRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	rideID := strings.TrimSpace(body.RideID)
	if rideID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "rideId is required")
		return
	}

	booking, err := s.services.Reservations.BookSeat(r.Context(), service.BookSeatRequest{
		RideID:        rideID,
		PassengerID:   caller.UserID,
		PaymentMethod: strings.ToLower(strings.TrimSpace(body.PaymentMethod)),
		PricePaid:     body.PricePaid,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleMyBookings(w http.ResponseWriter, r *http.Request, caller Caller) {
	views, err := s.services.Bookings.ListMine(r.Context(), caller.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request, caller Caller) {
	booking, err := s.services.Reservations.CancelBooking(r.Context(), mux.Vars(r)["id"], caller.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}
