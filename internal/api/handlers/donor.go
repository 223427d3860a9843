package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/relieflink/relief-gateway/internal/domain"
)

type DonorClient interface {
	MakeDonation(ctx context.Context, donation domain.Donation) (bool, error)
	GetDonorDonations(ctx context.Context, email string) ([]domain.Donation, error)
}

type DonorHandler struct {
	client DonorClient
	log    zerolog.Logger
}

func NewDonorHandler(client DonorClient, log zerolog.Logger) *DonorHandler {
	return &DonorHandler{client: client, log: log}
}

type donateBody struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// Donate records a monetary donation attributed to the signed-in donor.
func (h *DonorHandler) Donate(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUser(w, r)
	if !ok {
		return
	}

	var body donateBody
	if !decodeBody(w, r, &body) {
		return
	}
	if !validateRequest(w, r, body) {
		return
	}

	donation := domain.Donation{
		ID:         uuid.NewString(),
		Amount:     body.Amount,
		DonorName:  user.Name,
		DonorEmail: user.Email,
		Date:       time.Now().UTC().Format(time.RFC3339Nano),
	}

	accepted, err := h.client.MakeDonation(r.Context(), donation)
	if err != nil {
		handleDownstreamError(w, r, err, "failed to record donation")
		return
	}
	if !accepted {
		sendError(w, r, "conflict_state", "donation was not accepted", http.StatusConflict)
		return
	}

	sendData(w, http.StatusCreated, donation)
}

// ListOwnDonations returns the donor's donation history, distribution details
// included.
func (h *DonorHandler) ListOwnDonations(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUser(w, r)
	if !ok {
		return
	}

	donations, err := h.client.GetDonorDonations(r.Context(), user.Email)
	if err != nil {
		handleDownstreamError(w, r, err, "failed to fetch donations")
		return
	}

	sendData(w, http.StatusOK, donations)
}
