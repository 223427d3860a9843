package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/relieflink/relief-gateway/internal/domain"
	"github.com/relieflink/relief-gateway/internal/downstream"
)

type VolunteerClient interface {
	UpdateVolunteerLocation(ctx context.Context, email, lat, lon, address string) error
	GetNearbyRequests(ctx context.Context, lat, lon string) ([]domain.HelpRequest, error)
	VerifyHelpRequest(ctx context.Context, victimID, timestamp, note, verifierEmail string) (bool, error)
	UpdateRequestStatus(ctx context.Context, victimID, timestamp, status string) (bool, error)
}

type VolunteerHandler struct {
	client   VolunteerClient
	geocoder Geocoder
	log      zerolog.Logger
}

func NewVolunteerHandler(client VolunteerClient, geocoder Geocoder, log zerolog.Logger) *VolunteerHandler {
	return &VolunteerHandler{client: client, geocoder: geocoder, log: log}
}

type updateLocationBody struct {
	Latitude  string `json:"latitude" validate:"required,coordinate"`
	Longitude string `json:"longitude" validate:"required,coordinate"`
}

// UpdateLocation records the volunteer's current position. The address is
// reverse geocoded best-effort; coordinates stand in when that fails.
func (h *VolunteerHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUser(w, r)
	if !ok {
		return
	}

	var body updateLocationBody
	if !decodeBody(w, r, &body) {
		return
	}
	if !validateRequest(w, r, body) {
		return
	}

	address := downstream.FallbackAddress(body.Latitude, body.Longitude)
	geoCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	if resolved, err := h.geocoder.ReverseGeocode(geoCtx, body.Latitude, body.Longitude); err == nil {
		address = resolved
	} else {
		h.log.Debug().Err(err).Msg("reverse_geocode_failed")
	}
	cancel()

	if err := h.client.UpdateVolunteerLocation(r.Context(), user.Email, body.Latitude, body.Longitude, address); err != nil {
		handleDownstreamError(w, r, err, "failed to update location")
		return
	}

	sendData(w, http.StatusOK, domain.VolunteerLocation{
		Email:       user.Email,
		Latitude:    body.Latitude,
		Longitude:   body.Longitude,
		Address:     address,
		LastUpdated: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

type nearbyRequestView struct {
	requestView
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// Nearby returns pending requests near the given point, annotated with
// great-circle distance and display urgency. Requests whose stored
// coordinates do not parse keep a null distance.
func (h *VolunteerHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	lat := r.URL.Query().Get("lat")
	lon := r.URL.Query().Get("lon")
	if lat == "" || lon == "" {
		sendError(w, r, "validation_failed", "lat and lon query parameters are required", http.StatusBadRequest)
		return
	}

	originLat, latErr := strconv.ParseFloat(lat, 64)
	originLon, lonErr := strconv.ParseFloat(lon, 64)
	if latErr != nil || lonErr != nil {
		sendError(w, r, "validation_failed", "lat and lon must be decimal coordinates", http.StatusBadRequest)
		return
	}

	requests, err := h.client.GetNearbyRequests(r.Context(), lat, lon)
	if err != nil {
		handleDownstreamError(w, r, err, "failed to fetch nearby requests")
		return
	}

	views := make([]nearbyRequestView, 0, len(requests))
	for _, req := range requests {
		view := nearbyRequestView{
			requestView: requestView{
				HelpRequest:  req,
				UrgencyLabel: domain.UrgencyLabel(req.RequestType, req.Urgency),
			},
		}
		reqLat, latErr := strconv.ParseFloat(req.Latitude, 64)
		reqLon, lonErr := strconv.ParseFloat(req.Longitude, 64)
		if latErr == nil && lonErr == nil {
			d := domain.DistanceKm(originLat, originLon, reqLat, reqLon)
			view.DistanceKm = &d
		}
		views = append(views, view)
	}

	sendData(w, http.StatusOK, views)
}

type verifyBody struct {
	Note string `json:"verification_note" validate:"required,max=500"`
}

// VerifyRequest marks a pending request verified, recording the volunteer as
// the verifier.
func (h *VolunteerHandler) VerifyRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUser(w, r)
	if !ok {
		return
	}

	victimID := chi.URLParam(r, "victimID")
	timestamp := chi.URLParam(r, "timestamp")

	var body verifyBody
	if !decodeBody(w, r, &body) {
		return
	}
	if !validateRequest(w, r, body) {
		return
	}

	verified, err := h.client.VerifyHelpRequest(r.Context(), victimID, timestamp, body.Note, user.Email)
	if err != nil {
		handleDownstreamError(w, r, err, "failed to verify request")
		return
	}
	if !verified {
		sendError(w, r, "conflict_state", "request cannot be verified", http.StatusConflict)
		return
	}

	sendData(w, http.StatusOK, true)
}

type updateStatusBody struct {
	Status string `json:"status" validate:"required,oneof=pending verified in_progress completed cancelled"`
}

// UpdateStatus moves an assigned request through its lifecycle.
func (h *VolunteerHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	victimID := chi.URLParam(r, "victimID")
	timestamp := chi.URLParam(r, "timestamp")

	var body updateStatusBody
	if !decodeBody(w, r, &body) {
		return
	}
	if !validateRequest(w, r, body) {
		return
	}

	updated, err := h.client.UpdateRequestStatus(r.Context(), victimID, timestamp, body.Status)
	if err != nil {
		handleDownstreamError(w, r, err, "failed to update request status")
		return
	}
	if !updated {
		sendError(w, r, "conflict_state", "status transition not allowed", http.StatusConflict)
		return
	}

	sendData(w, http.StatusOK, true)
}
