package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/relieflink/relief-gateway/internal/domain"
	"github.com/relieflink/relief-gateway/internal/downstream"
	"github.com/relieflink/relief-gateway/internal/events"
	"github.com/relieflink/relief-gateway/middleware"
)

type mockAuthClient struct {
	mock.Mock
}

func (m *mockAuthClient) GetUser(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockAuthClient) RegisterUser(ctx context.Context, user domain.User) (bool, error) {
	args := m.Called(ctx, user)
	return args.Bool(0), args.Error(1)
}

func (m *mockAuthClient) VerifyPassword(ctx context.Context, email, password string) (bool, error) {
	args := m.Called(ctx, email, password)
	return args.Bool(0), args.Error(1)
}

func (m *mockAuthClient) OrganizationLogin(ctx context.Context, email, password string) (bool, error) {
	args := m.Called(ctx, email, password)
	return args.Bool(0), args.Error(1)
}

func (m *mockAuthClient) AdminLogin(ctx context.Context, email, password string) (bool, error) {
	args := m.Called(ctx, email, password)
	return args.Bool(0), args.Error(1)
}

type stubSessionStore struct {
	began   []*domain.User
	cleared []string
}

func (s *stubSessionStore) Begin(user *domain.User) string {
	s.began = append(s.began, user)
	return "sid-test"
}

func (s *stubSessionStore) Clear(sid string) {
	s.cleared = append(s.cleared, sid)
}

func (s *stubSessionStore) Refresh(sid string, user *domain.User) {}

func newAuthHandler(client AuthClient, store SessionStore) *AuthHandler {
	return NewAuthHandler(client, store, "test-secret", events.NoopPublisher{}, zerolog.Nop())
}

func TestLogin_Success(t *testing.T) {
	client := new(mockAuthClient)
	store := &stubSessionStore{}
	h := newAuthHandler(client, store)

	user := &domain.User{Email: "v@example.com", Name: "Vic", UserType: "victim"}
	client.On("VerifyPassword", mock.Anything, "v@example.com", "pass1234").Return(true, nil)
	client.On("GetUser", mock.Anything, "v@example.com").Return(user, nil)

	req := httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email":"v@example.com","password":"pass1234"}`))
	w := httptest.NewRecorder()
	h.Login(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data loginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.Token)
	assert.Equal(t, domain.VictimDashboard, resp.Data.Route)
	assert.Equal(t, "victim", resp.Data.Role)
	require.Len(t, store.began, 1)
	assert.Equal(t, "v@example.com", store.began[0].Email)
}

func TestLogin_WrongPassword(t *testing.T) {
	client := new(mockAuthClient)
	h := newAuthHandler(client, &stubSessionStore{})

	client.On("VerifyPassword", mock.Anything, "v@example.com", "nope1234").Return(false, nil)

	req := httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email":"v@example.com","password":"nope1234"}`))
	w := httptest.NewRecorder()
	h.Login(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	client.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
}

func TestLogin_UnknownUserSameAsWrongPassword(t *testing.T) {
	// A missing account answers exactly like a bad password so the endpoint
	// does not leak which emails exist.
	client := new(mockAuthClient)
	h := newAuthHandler(client, &stubSessionStore{})

	client.On("VerifyPassword", mock.Anything, "ghost@example.com", "pass1234").Return(true, nil)
	client.On("GetUser", mock.Anything, "ghost@example.com").Return(nil, downstream.ErrNotFound)

	req := httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email":"ghost@example.com","password":"pass1234"}`))
	w := httptest.NewRecorder()
	h.Login(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp domain.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_credentials", resp.Error.Code)
}

func TestLogin_BackendTimeout(t *testing.T) {
	client := new(mockAuthClient)
	h := newAuthHandler(client, &stubSessionStore{})

	client.On("VerifyPassword", mock.Anything, mock.Anything, mock.Anything).Return(false, downstream.ErrTimeout)

	req := httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email":"v@example.com","password":"pass1234"}`))
	w := httptest.NewRecorder()
	h.Login(w, req)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestLogin_ValidationFailure(t *testing.T) {
	client := new(mockAuthClient)
	h := newAuthHandler(client, &stubSessionStore{})

	req := httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email":"not-an-email","password":"x"}`))
	w := httptest.NewRecorder()
	h.Login(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	client.AssertNotCalled(t, "VerifyPassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrganizationLogin_UsesDedicatedCheck(t *testing.T) {
	client := new(mockAuthClient)
	store := &stubSessionStore{}
	h := newAuthHandler(client, store)

	org := &domain.User{Email: "org@example.com", UserType: "organization"}
	client.On("OrganizationLogin", mock.Anything, "org@example.com", "pass1234").Return(true, nil)
	client.On("GetUser", mock.Anything, "org@example.com").Return(org, nil)

	req := httptest.NewRequest("POST", "/api/auth/organization/login",
		strings.NewReader(`{"email":"org@example.com","password":"pass1234"}`))
	w := httptest.NewRecorder()
	h.OrganizationLogin(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data loginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.OrgDashboard, resp.Data.Route)
	client.AssertNotCalled(t, "VerifyPassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_Conflict(t *testing.T) {
	client := new(mockAuthClient)
	h := newAuthHandler(client, &stubSessionStore{})

	client.On("RegisterUser", mock.Anything, mock.Anything).Return(false, nil)

	req := httptest.NewRequest("POST", "/api/auth/register",
		strings.NewReader(`{"email":"v@example.com","password":"pass1234","name":"Vic","user_type":"victim"}`))
	w := httptest.NewRecorder()
	h.Register(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegister_RejectsUnknownRole(t *testing.T) {
	client := new(mockAuthClient)
	h := newAuthHandler(client, &stubSessionStore{})

	req := httptest.NewRequest("POST", "/api/auth/register",
		strings.NewReader(`{"email":"v@example.com","password":"pass1234","name":"Vic","user_type":"guest"}`))
	w := httptest.NewRecorder()
	h.Register(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	client.AssertNotCalled(t, "RegisterUser", mock.Anything, mock.Anything)
}

func TestLogout_ClearsSession(t *testing.T) {
	store := &stubSessionStore{}
	h := newAuthHandler(new(mockAuthClient), store)

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	ctx := context.WithValue(req.Context(), middleware.SessionIDKey, "sid-test")
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	h.Logout(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"sid-test"}, store.cleared)
}

func TestDashboard_UnknownRoleFallsBackToLogin(t *testing.T) {
	h := newAuthHandler(new(mockAuthClient), &stubSessionStore{})

	req := httptest.NewRequest("GET", "/api/auth/dashboard", nil)
	snap := domain.Session{
		Authenticated: true,
		User:          &domain.User{Email: "x@example.com", UserType: "guest"},
	}
	req = req.WithContext(context.WithValue(req.Context(), middleware.SessionKey, snap))

	w := httptest.NewRecorder()
	h.Dashboard(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data dashboardResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.LoginPath, resp.Data.Route)
	assert.Equal(t, "unknown", resp.Data.Role)
}

func TestMe_ReportsLoadingFlag(t *testing.T) {
	h := newAuthHandler(new(mockAuthClient), &stubSessionStore{})

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	snap := domain.Session{
		Authenticated: true,
		Loading:       true,
		User:          &domain.User{Email: "a@example.com", UserType: "admin"},
	}
	req = req.WithContext(context.WithValue(req.Context(), middleware.SessionKey, snap))

	w := httptest.NewRecorder()
	h.Me(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data meResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Loading)
	assert.False(t, resp.Data.Admin)
}
