package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/relieflink/relief-gateway/internal/domain"
	"github.com/relieflink/relief-gateway/internal/downstream"
	"github.com/relieflink/relief-gateway/middleware"
)

func sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func sendData(w http.ResponseWriter, status int, data any) {
	sendJSON(w, status, map[string]any{"data": data})
}

func sendError(w http.ResponseWriter, r *http.Request, code string, message string, status int) {
	resp := domain.APIError{}
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.RequestID = middleware.GetRequestID(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func handleDownstreamError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	switch {
	case errors.Is(err, downstream.ErrNotFound):
		sendError(w, r, "resource_not_found", "resource not found", http.StatusNotFound)
	case errors.Is(err, downstream.ErrTimeout):
		sendError(w, r, "upstream_timeout", "relief service timeout", http.StatusGatewayTimeout)
	case errors.Is(err, downstream.ErrUnauthorized):
		sendError(w, r, "unauthorized", "not authorized", http.StatusUnauthorized)
	default:
		var se *downstream.StatusError
		if errors.As(err, &se) {
			sendError(w, r, se.Code, se.Message, se.StatusCode)
			return
		}
		sendError(w, r, "internal_error", defaultMsg, http.StatusBadGateway)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		sendError(w, r, "validation_failed", "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// sessionUser returns the signed-in user from the request's session snapshot.
// Routes behind a gate always have one; the fallback guards direct calls.
func sessionUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	snap := middleware.GetSession(r.Context())
	if !snap.Authenticated || snap.User == nil {
		sendError(w, r, "unauthorized", "auth required", http.StatusUnauthorized)
		return nil, false
	}
	return snap.User, true
}
