package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/relieflink/relief-gateway/internal/domain"
	"github.com/relieflink/relief-gateway/internal/downstream"
	"github.com/relieflink/relief-gateway/internal/events"
	"github.com/relieflink/relief-gateway/middleware"
)

const sessionTokenTTL = 24 * time.Hour

type AuthClient interface {
	GetUser(ctx context.Context, email string) (*domain.User, error)
	RegisterUser(ctx context.Context, user domain.User) (bool, error)
	VerifyPassword(ctx context.Context, email, password string) (bool, error)
	OrganizationLogin(ctx context.Context, email, password string) (bool, error)
	AdminLogin(ctx context.Context, email, password string) (bool, error)
}

// SessionStore is the slice of the session manager the auth endpoints use.
type SessionStore interface {
	Begin(user *domain.User) string
	Clear(sid string)
	Refresh(sid string, user *domain.User)
}

type AuthHandler struct {
	client   AuthClient
	sessions SessionStore
	secret   []byte
	events   events.Publisher
	log      zerolog.Logger
}

func NewAuthHandler(client AuthClient, sessions SessionStore, secret string, publisher events.Publisher, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		client:   client,
		sessions: sessions,
		secret:   []byte(secret),
		events:   publisher,
		log:      log,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string       `json:"token"`
	Route string       `json:"route"`
	Role  string       `json:"role"`
	User  *domain.User `json:"user"`
}

// Login verifies credentials against the relief backend, opens a session, and
// returns a signed token plus the caller's dashboard route. The session may
// still be loading its admin flag when this returns; gated routes answer 202
// until it settles.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateRequest(w, r, req) {
		return
	}

	ok, err := h.client.VerifyPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		handleDownstreamError(w, r, err, "login failed")
		return
	}
	if !ok {
		sendError(w, r, "invalid_credentials", "invalid email or password", http.StatusUnauthorized)
		return
	}

	user, err := h.client.GetUser(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, downstream.ErrNotFound) {
			sendError(w, r, "invalid_credentials", "invalid email or password", http.StatusUnauthorized)
			return
		}
		handleDownstreamError(w, r, err, "login failed")
		return
	}

	h.openSession(w, r, user)
}

// OrganizationLogin uses the backend's dedicated organization credential check
// so that non-organization accounts cannot sign in through this door.
func (h *AuthHandler) OrganizationLogin(w http.ResponseWriter, r *http.Request) {
	h.specialLogin(w, r, h.client.OrganizationLogin)
}

// AdminLogin is the admin sign-in door; the session's admin flag is still
// resolved independently afterwards.
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.specialLogin(w, r, h.client.AdminLogin)
}

func (h *AuthHandler) specialLogin(w http.ResponseWriter, r *http.Request, verify func(context.Context, string, string) (bool, error)) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateRequest(w, r, req) {
		return
	}

	ok, err := verify(r.Context(), req.Email, req.Password)
	if err != nil {
		handleDownstreamError(w, r, err, "login failed")
		return
	}
	if !ok {
		sendError(w, r, "invalid_credentials", "invalid email or password", http.StatusUnauthorized)
		return
	}

	user, err := h.client.GetUser(r.Context(), req.Email)
	if err != nil {
		handleDownstreamError(w, r, err, "login failed")
		return
	}

	h.openSession(w, r, user)
}

func (h *AuthHandler) openSession(w http.ResponseWriter, r *http.Request, user *domain.User) {
	sid := h.sessions.Begin(user)

	token, err := h.signToken(sid, user.Email)
	if err != nil {
		h.log.Error().Err(err).Msg("token_signing_failed")
		sendError(w, r, "internal_error", "failed to create session", http.StatusInternalServerError)
		return
	}

	route, role := domain.DashboardRoute(user)
	if role == domain.RoleUnknown {
		h.log.Warn().Str("email", user.Email).Str("user_type", user.UserType).Msg("unknown_role")
		_ = h.events.PublishSessionAnomaly(r.Context(), user.Email, user.UserType)
	}

	sendData(w, http.StatusOK, loginResponse{
		Token: token,
		Route: route,
		Role:  string(role),
		User:  user,
	})
}

func (h *AuthHandler) signToken(sid, email string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": sid,
		"sub": email,
		"iat": now.Unix(),
		"exp": now.Add(sessionTokenTTL).Unix(),
	})
	return token.SignedString(h.secret)
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,max=100"`
	UserType string `json:"user_type" validate:"required,user_type"`
	Phone    string `json:"phone" validate:"max=30"`
	Address  string `json:"address" validate:"max=200"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateRequest(w, r, req) {
		return
	}

	user := domain.User{
		Email:    req.Email,
		Name:     req.Name,
		UserType: string(domain.ParseRole(req.UserType)),
		Phone:    req.Phone,
		Address:  req.Address,
	}

	ok, err := h.client.RegisterUser(r.Context(), user)
	if err != nil {
		handleDownstreamError(w, r, err, "registration failed")
		return
	}
	if !ok {
		sendError(w, r, "conflict_state", "user already exists", http.StatusConflict)
		return
	}

	sendData(w, http.StatusCreated, true)
}

// Logout destroys the session. A token presented afterwards resolves to no
// session and the gates treat the request as anonymous.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sid := middleware.GetSessionID(r.Context()); sid != "" {
		h.sessions.Clear(sid)
	}
	sendData(w, http.StatusOK, true)
}

type meResponse struct {
	User    *domain.User `json:"user"`
	Admin   bool         `json:"admin"`
	Loading bool         `json:"loading"`
}

// Me returns the current session snapshot, loading flag included, so clients
// can poll until admin resolution settles.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	snap := middleware.GetSession(r.Context())
	if !snap.Authenticated {
		sendError(w, r, "unauthorized", "auth required", http.StatusUnauthorized)
		return
	}
	sendData(w, http.StatusOK, meResponse{
		User:    snap.User,
		Admin:   snap.Admin,
		Loading: snap.Loading,
	})
}

type dashboardResponse struct {
	Route string `json:"route"`
	Role  string `json:"role"`
}

// Dashboard resolves the caller's dashboard destination. Total: an
// unrecognized role falls back to the login route and is reported as an
// anomaly instead of erroring.
func (h *AuthHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	snap := middleware.GetSession(r.Context())

	route, role := domain.DashboardRoute(snap.User)
	if role == domain.RoleUnknown && snap.User != nil {
		h.log.Warn().Str("email", snap.User.Email).Str("user_type", snap.User.UserType).Msg("unknown_role")
		_ = h.events.PublishSessionAnomaly(r.Context(), snap.User.Email, snap.User.UserType)
	}

	sendData(w, http.StatusOK, dashboardResponse{Route: route, Role: string(role)})
}
