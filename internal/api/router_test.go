package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relieflink/relief-gateway/internal/config"
	"github.com/relieflink/relief-gateway/internal/domain"
	"github.com/relieflink/relief-gateway/internal/downstream"
	"github.com/relieflink/relief-gateway/internal/events"
	"github.com/relieflink/relief-gateway/internal/session"
)

type fixedGeocoder struct{}

func (fixedGeocoder) ReverseGeocode(ctx context.Context, lat, lon string) (string, error) {
	return "Test Street", nil
}

// fakeBackend emulates the relief service's envelope responses.
func fakeBackend(t *testing.T, admins map[string]bool) *httptest.Server {
	t.Helper()

	mux := chi.NewRouter()
	mux.Post("/v1/auth/verify-password", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": true})
	})
	mux.Get("/v1/users/{email}", func(w http.ResponseWriter, r *http.Request) {
		email := chi.URLParam(r, "email")
		userType := "victim"
		if admins[email] {
			userType = "admin"
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"email": email, "name": "Test", "user_type": userType},
		})
	})
	mux.Get("/v1/users/{email}/admin", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": admins[chi.URLParam(r, "email")]})
	})
	mux.Get("/v1/users/{email}/requests", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	})
	mux.Get("/v1/users", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	})
	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T, admins map[string]bool) (http.Handler, *session.Manager) {
	t.Helper()

	backend := fakeBackend(t, admins)

	cfg := &config.Config{
		Port:             "0",
		ReliefServiceURL: backend.URL,
		JWTSecret:        "router-test-secret",
		AllowedOrigins:   []string{"*"},
		LoginRateLimit:   100,
		LoginRateWindow:  time.Minute,
		GlobalRateLimit:  1000,
	}

	relief := downstream.NewReliefClient(backend.URL, downstream.NewClient(downstream.ClientConfig{
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}))
	sessions := session.NewManager(relief, zerolog.Nop())

	router := NewRouter(Deps{
		Cfg:      cfg,
		Log:      zerolog.Nop(),
		Relief:   relief,
		Geocoder: fixedGeocoder{},
		Sessions: sessions,
		Events:   events.NoopPublisher{},
	})
	return router, sessions
}

func loginAs(t *testing.T, router http.Handler, email string) string {
	t.Helper()

	body := `{"email":"` + email + `","password":"pass1234"}`
	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)
	return resp.Data.Token
}

func TestRouter_Healthz(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ProtectedWithoutTokenRedirects(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest("GET", "/api/victim/requests", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, domain.LoginPath, w.Header().Get("Location"))
}

func TestRouter_LoginThenProtected(t *testing.T) {
	router, sessions := newTestRouter(t, nil)

	token := loginAs(t, router, "v@example.com")
	sessions.Wait()

	req := httptest.NewRequest("GET", "/api/victim/requests", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRouter_AdminGateBlocksNonAdmin(t *testing.T) {
	router, sessions := newTestRouter(t, nil)

	token := loginAs(t, router, "v@example.com")
	sessions.Wait()

	req := httptest.NewRequest("GET", "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, domain.LoginPath, w.Header().Get("Location"))
}

func TestRouter_AdminGateAllowsVerifiedAdmin(t *testing.T) {
	router, sessions := newTestRouter(t, map[string]bool{"a@example.com": true})

	token := loginAs(t, router, "a@example.com")
	sessions.Wait()

	req := httptest.NewRequest("GET", "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRouter_LogoutInvalidatesToken(t *testing.T) {
	router, sessions := newTestRouter(t, nil)

	token := loginAs(t, router, "v@example.com")
	sessions.Wait()

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// The token still verifies, but the session behind it is gone.
	req = httptest.NewRequest("GET", "/api/victim/requests", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestRouter_OrganizationGateRedirectsVictim(t *testing.T) {
	router, sessions := newTestRouter(t, nil)

	token := loginAs(t, router, "v@example.com")
	sessions.Wait()

	req := httptest.NewRequest("GET", "/api/organization/requests", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, domain.OrgLoginPath, w.Header().Get("Location"))
}

func TestRouter_MetricsExposed(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
