package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/relieflink/relief-gateway/internal/domain"
	"github.com/relieflink/relief-gateway/internal/events"
	"github.com/relieflink/relief-gateway/middleware"
)

type AdminClient interface {
	GetAllUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, email string, user domain.User) (bool, error)
	DeleteUser(ctx context.Context, email string) (bool, error)
	ClearDatabase(ctx context.Context) (bool, error)
	ClearHelpRequests(ctx context.Context) (bool, error)
	ClearVolunteerLocations(ctx context.Context) (bool, error)
	ClearSupplyBundles(ctx context.Context) (bool, error)
	ClearDonations(ctx context.Context) (bool, error)
}

type AdminHandler struct {
	client AdminClient
	events events.Publisher
	log    zerolog.Logger
}

func NewAdminHandler(client AdminClient, publisher events.Publisher, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{client: client, events: publisher, log: log}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.client.GetAllUsers(r.Context())
	if err != nil {
		handleDownstreamError(w, r, err, "failed to fetch users")
		return
	}
	sendData(w, http.StatusOK, users)
}

type updateUserBody struct {
	Name     string `json:"name" validate:"required,max=100"`
	UserType string `json:"user_type" validate:"required,user_type"`
	Phone    string `json:"phone" validate:"max=30"`
	Address  string `json:"address" validate:"max=200"`
}

// UpdateUser rewrites a user's profile fields. The email key is immutable and
// the is_admin flag is never writable through this endpoint.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	var body updateUserBody
	if !decodeBody(w, r, &body) {
		return
	}
	if !validateRequest(w, r, body) {
		return
	}

	user := domain.User{
		Email:    email,
		Name:     body.Name,
		UserType: string(domain.ParseRole(body.UserType)),
		Phone:    body.Phone,
		Address:  body.Address,
	}

	updated, err := h.client.UpdateUser(r.Context(), email, user)
	if err != nil {
		handleDownstreamError(w, r, err, "failed to update user")
		return
	}
	if !updated {
		sendError(w, r, "resource_not_found", "user not found", http.StatusNotFound)
		return
	}

	sendData(w, http.StatusOK, true)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	deleted, err := h.client.DeleteUser(r.Context(), email)
	if err != nil {
		handleDownstreamError(w, r, err, "failed to delete user")
		return
	}
	if !deleted {
		sendError(w, r, "resource_not_found", "user not found", http.StatusNotFound)
		return
	}

	h.audit(r, "delete_user:"+email)
	sendData(w, http.StatusOK, true)
}

// Maintenance endpoints wipe whole data categories. Every call is published
// to the audit exchange with the acting admin.

func (h *AdminHandler) ClearDatabase(w http.ResponseWriter, r *http.Request) {
	h.clear(w, r, "clear_database", h.client.ClearDatabase)
}

func (h *AdminHandler) ClearHelpRequests(w http.ResponseWriter, r *http.Request) {
	h.clear(w, r, "clear_help_requests", h.client.ClearHelpRequests)
}

func (h *AdminHandler) ClearVolunteerLocations(w http.ResponseWriter, r *http.Request) {
	h.clear(w, r, "clear_volunteer_locations", h.client.ClearVolunteerLocations)
}

func (h *AdminHandler) ClearSupplyBundles(w http.ResponseWriter, r *http.Request) {
	h.clear(w, r, "clear_supply_bundles", h.client.ClearSupplyBundles)
}

func (h *AdminHandler) ClearDonations(w http.ResponseWriter, r *http.Request) {
	h.clear(w, r, "clear_donations", h.client.ClearDonations)
}

func (h *AdminHandler) clear(w http.ResponseWriter, r *http.Request, action string, op func(context.Context) (bool, error)) {
	cleared, err := op(r.Context())
	if err != nil {
		handleDownstreamError(w, r, err, "maintenance operation failed")
		return
	}

	h.audit(r, action)
	sendData(w, http.StatusOK, cleared)
}

func (h *AdminHandler) audit(r *http.Request, action string) {
	actor := ""
	if snap := middleware.GetSession(r.Context()); snap.User != nil {
		actor = snap.User.Email
	}
	if err := h.events.PublishMaintenance(r.Context(), action, actor); err != nil {
		h.log.Warn().Err(err).Str("action", action).Msg("audit_publish_failed")
	}
}
