package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/relieflink/relief-gateway/internal/domain"
	"github.com/relieflink/relief-gateway/internal/downstream"
)

const defaultOrganizationID = "organization@disasterrelief.com"

type VictimClient interface {
	CreateHelpRequest(ctx context.Context, req domain.HelpRequest) (bool, error)
	GetUserRequests(ctx context.Context, email string) ([]domain.HelpRequest, error)
	CancelHelpRequest(ctx context.Context, victimID, timestamp string) (bool, error)
}

// Geocoder resolves coordinates to an address. Failures degrade to raw
// coordinates and never fail the request.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon string) (string, error)
}

type VictimHandler struct {
	client   VictimClient
	geocoder Geocoder
	log      zerolog.Logger
}

func NewVictimHandler(client VictimClient, geocoder Geocoder, log zerolog.Logger) *VictimHandler {
	return &VictimHandler{client: client, geocoder: geocoder, log: log}
}

type createRequestBody struct {
	RequestType string `json:"request_type" validate:"required,oneof=food medical shelter evacuation supplies"`
	Description string `json:"description" validate:"required,max=1000"`
	Urgency     string `json:"urgency" validate:"required,oneof=low medium high critical"`
	Latitude    string `json:"latitude" validate:"required,coordinate"`
	Longitude   string `json:"longitude" validate:"required,coordinate"`
}

// CreateRequest files a help request for the signed-in victim. The location
// string is resolved by reverse geocoding, falling back to the raw coordinate
// pair when the geocoder is unavailable.
func (h *VictimHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUser(w, r)
	if !ok {
		return
	}

	var body createRequestBody
	if !decodeBody(w, r, &body) {
		return
	}
	if !validateRequest(w, r, body) {
		return
	}

	location := h.resolveLocation(r.Context(), body.Latitude, body.Longitude)

	// New requests land with the coordinating organization until one claims
	// them explicitly.
	orgID := defaultOrganizationID
	req := domain.HelpRequest{
		VictimID:       user.Email,
		RequestType:    body.RequestType,
		Description:    body.Description,
		Urgency:        body.Urgency,
		Location:       location,
		Status:         "pending",
		Timestamp:      time.Now().UTC().Format(time.RFC3339Nano),
		Latitude:       body.Latitude,
		Longitude:      body.Longitude,
		OrganizationID: &orgID,
	}

	created, err := h.client.CreateHelpRequest(r.Context(), req)
	if err != nil {
		handleDownstreamError(w, r, err, "failed to create help request")
		return
	}
	if !created {
		sendError(w, r, "conflict_state", "help request was not accepted", http.StatusConflict)
		return
	}

	sendData(w, http.StatusCreated, req)
}

func (h *VictimHandler) resolveLocation(ctx context.Context, lat, lon string) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	address, err := h.geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		h.log.Debug().Err(err).Msg("reverse_geocode_failed")
		return downstream.FallbackAddress(lat, lon)
	}
	return address
}

type requestView struct {
	domain.HelpRequest
	UrgencyLabel string `json:"urgency_label"`
}

func annotateRequests(requests []domain.HelpRequest) []requestView {
	views := make([]requestView, 0, len(requests))
	for _, req := range requests {
		views = append(views, requestView{
			HelpRequest:  req,
			UrgencyLabel: domain.UrgencyLabel(req.RequestType, req.Urgency),
		})
	}
	return views
}

// ListOwnRequests returns the victim's requests with display-ready urgency
// wording attached.
func (h *VictimHandler) ListOwnRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUser(w, r)
	if !ok {
		return
	}

	requests, err := h.client.GetUserRequests(r.Context(), user.Email)
	if err != nil {
		handleDownstreamError(w, r, err, "failed to fetch requests")
		return
	}

	sendData(w, http.StatusOK, annotateRequests(requests))
}

// CancelRequest cancels one of the victim's own requests. The victim ID comes
// from the session, never from the URL, so one victim cannot cancel another's.
func (h *VictimHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUser(w, r)
	if !ok {
		return
	}

	timestamp := chi.URLParam(r, "timestamp")
	if timestamp == "" {
		sendError(w, r, "validation_failed", "timestamp is required", http.StatusBadRequest)
		return
	}

	cancelled, err := h.client.CancelHelpRequest(r.Context(), user.Email, timestamp)
	if err != nil {
		handleDownstreamError(w, r, err, "failed to cancel request")
		return
	}
	if !cancelled {
		sendError(w, r, "conflict_state", "request cannot be cancelled", http.StatusConflict)
		return
	}

	sendData(w, http.StatusOK, true)
}
