package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/relieflink/relief-gateway/internal/domain"
)

type OrganizationClient interface {
	GetAllRequests(ctx context.Context) ([]domain.HelpRequest, error)
	AssignVolunteerToRequest(ctx context.Context, requestKey, volunteerEmail string) (bool, error)
	ApproveVolunteerRequest(ctx context.Context, victimID, timestamp string) (bool, error)
	GetAllVolunteers(ctx context.Context) ([]domain.User, error)
	CreateSupplyBundle(ctx context.Context, bundle domain.SupplyBundle) (bool, error)
	GetOrganizationSupplyBundles(ctx context.Context) ([]domain.SupplyBundle, error)
	DistributeSupplyBundle(ctx context.Context, bundleID, volunteerEmail string) (bool, error)
	GetOrganizationDonations(ctx context.Context) ([]domain.Donation, error)
}

type OrganizationHandler struct {
	client OrganizationClient
	log    zerolog.Logger
}

func NewOrganizationHandler(client OrganizationClient, log zerolog.Logger) *OrganizationHandler {
	return &OrganizationHandler{client: client, log: log}
}

// ListRequests returns every help request with display urgency attached.
func (h *OrganizationHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.client.GetAllRequests(r.Context())
	if err != nil {
		handleDownstreamError(w, r, err, "failed to fetch requests")
		return
	}
	sendData(w, http.StatusOK, annotateRequests(requests))
}

type assignBody struct {
	VolunteerEmail string `json:"volunteer_email" validate:"required,email"`
}

// AssignVolunteer assigns a volunteer to a request. The backend keys requests
// by victim ID plus timestamp; the composite key arrives joined by an
// underscore.
func (h *OrganizationHandler) AssignVolunteer(w http.ResponseWriter, r *http.Request) {
	victimID := chi.URLParam(r, "victimID")
	timestamp := chi.URLParam(r, "timestamp")

	var body assignBody
	if !decodeBody(w, r, &body) {
		return
	}
	if !validateRequest(w, r, body) {
		return
	}

	requestKey := victimID + "_" + timestamp
	assigned, err := h.client.AssignVolunteerToRequest(r.Context(), requestKey, body.VolunteerEmail)
	if err != nil {
		handleDownstreamError(w, r, err, "failed to assign volunteer")
		return
	}
	if !assigned {
		sendError(w, r, "conflict_state", "request cannot be assigned", http.StatusConflict)
		return
	}

	sendData(w, http.StatusOK, true)
}

// ApproveRequest approves a volunteer's pending assignment.
func (h *OrganizationHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	victimID := chi.URLParam(r, "victimID")
	timestamp := chi.URLParam(r, "timestamp")

	approved, err := h.client.ApproveVolunteerRequest(r.Context(), victimID, timestamp)
	if err != nil {
		handleDownstreamError(w, r, err, "failed to approve request")
		return
	}
	if !approved {
		sendError(w, r, "conflict_state", "request cannot be approved", http.StatusConflict)
		return
	}

	sendData(w, http.StatusOK, true)
}

func (h *OrganizationHandler) ListVolunteers(w http.ResponseWriter, r *http.Request) {
	volunteers, err := h.client.GetAllVolunteers(r.Context())
	if err != nil {
		handleDownstreamError(w, r, err, "failed to fetch volunteers")
		return
	}
	sendData(w, http.StatusOK, volunteers)
}

type supplyItemBody struct {
	Name     string `json:"name" validate:"required,max=100"`
	Quantity uint32 `json:"quantity" validate:"required,gt=0"`
	Unit     string `json:"unit" validate:"required,max=20"`
}

type createBundleBody struct {
	Name        string           `json:"name" validate:"required,max=100"`
	Description string           `json:"description" validate:"max=500"`
	Items       []supplyItemBody `json:"items" validate:"required,min=1,dive"`
}

// CreateBundle registers a new supply bundle. The gateway assigns the ID and
// creation time so the backend stores a complete record.
func (h *OrganizationHandler) CreateBundle(w http.ResponseWriter, r *http.Request) {
	var body createBundleBody
	if !decodeBody(w, r, &body) {
		return
	}
	if !validateRequest(w, r, body) {
		return
	}

	items := make([]domain.SupplyItem, 0, len(body.Items))
	for _, item := range body.Items {
		items = append(items, domain.SupplyItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Unit:     item.Unit,
		})
	}

	bundle := domain.SupplyBundle{
		ID:          uuid.NewString(),
		Name:        body.Name,
		Description: body.Description,
		Items:       items,
		Status:      "available",
		CreatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}

	created, err := h.client.CreateSupplyBundle(r.Context(), bundle)
	if err != nil {
		handleDownstreamError(w, r, err, "failed to create bundle")
		return
	}
	if !created {
		sendError(w, r, "conflict_state", "bundle was not accepted", http.StatusConflict)
		return
	}

	sendData(w, http.StatusCreated, bundle)
}

func (h *OrganizationHandler) ListBundles(w http.ResponseWriter, r *http.Request) {
	bundles, err := h.client.GetOrganizationSupplyBundles(r.Context())
	if err != nil {
		handleDownstreamError(w, r, err, "failed to fetch bundles")
		return
	}
	sendData(w, http.StatusOK, bundles)
}

// DistributeBundle hands a bundle to a volunteer for delivery.
func (h *OrganizationHandler) DistributeBundle(w http.ResponseWriter, r *http.Request) {
	bundleID := chi.URLParam(r, "bundleID")

	var body assignBody
	if !decodeBody(w, r, &body) {
		return
	}
	if !validateRequest(w, r, body) {
		return
	}

	distributed, err := h.client.DistributeSupplyBundle(r.Context(), bundleID, body.VolunteerEmail)
	if err != nil {
		handleDownstreamError(w, r, err, "failed to distribute bundle")
		return
	}
	if !distributed {
		sendError(w, r, "conflict_state", "bundle cannot be distributed", http.StatusConflict)
		return
	}

	sendData(w, http.StatusOK, true)
}

func (h *OrganizationHandler) ListDonations(w http.ResponseWriter, r *http.Request) {
	donations, err := h.client.GetOrganizationDonations(r.Context())
	if err != nil {
		handleDownstreamError(w, r, err, "failed to fetch donations")
		return
	}
	sendData(w, http.StatusOK, donations)
}
