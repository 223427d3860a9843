package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relieflink/relief-gateway/internal/domain"
)

const testSecret = "test-secret"

type stubSessions struct {
	sessions map[string]domain.Session
}

func (s *stubSessions) Snapshot(id string) (domain.Session, bool) {
	snap, ok := s.sessions[id]
	if !ok {
		return domain.Anonymous(), false
	}
	return snap, true
}

func signTestToken(t *testing.T, sid string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": sid,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func gatedServer(mw *SessionMiddleware, gate func(http.Handler) http.Handler) http.Handler {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("content"))
	})
	return mw.Attach(gate(next))
}

func doGated(t *testing.T, handler http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestProtected_AnonymousRedirectsToLogin(t *testing.T) {
	mw := NewSessionMiddleware(testSecret, &stubSessions{sessions: map[string]domain.Session{}})
	handler := gatedServer(mw, mw.Protected)

	w := doGated(t, handler, "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, domain.LoginPath, w.Header().Get("Location"))
}

func TestProtected_AuthenticatedRenders(t *testing.T) {
	sessions := &stubSessions{sessions: map[string]domain.Session{
		"sid-1": {Authenticated: true, User: &domain.User{Email: "a@b.c", UserType: "victim"}},
	}}
	mw := NewSessionMiddleware(testSecret, sessions)
	handler := gatedServer(mw, mw.Protected)

	w := doGated(t, handler, signTestToken(t, "sid-1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "content", w.Body.String())
}

func TestGates_LoadingAnswers202(t *testing.T) {
	sessions := &stubSessions{sessions: map[string]domain.Session{
		"sid-1": {Authenticated: true, Loading: true, User: &domain.User{Email: "a@b.c"}},
	}}
	mw := NewSessionMiddleware(testSecret, sessions)
	token := signTestToken(t, "sid-1")

	for _, gate := range []func(http.Handler) http.Handler{mw.Protected, mw.AdminOnly, mw.OrganizationOnly} {
		w := doGated(t, gatedServer(mw, gate), token)
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "loading", body["status"])
	}
}

func TestAdminOnly_ForgedTokenBuysNothing(t *testing.T) {
	// A token signed with the wrong key resolves to no session at all.
	sessions := &stubSessions{sessions: map[string]domain.Session{
		"sid-1": {Authenticated: true, Admin: true, User: &domain.User{Email: "a@b.c"}},
	}}
	mw := NewSessionMiddleware(testSecret, sessions)
	handler := gatedServer(mw, mw.AdminOnly)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sid": "sid-1"})
	signed, err := forged.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	w := doGated(t, handler, signed)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, domain.LoginPath, w.Header().Get("Location"))
}

func TestAdminOnly_UserRecordFlagNotTrusted(t *testing.T) {
	// The session record carries admin=false even though the user claims
	// is_admin; the gate follows the session.
	sessions := &stubSessions{sessions: map[string]domain.Session{
		"sid-1": {
			Authenticated: true,
			Admin:         false,
			User:          &domain.User{Email: "spoof@example.com", UserType: "admin", IsAdmin: true},
		},
	}}
	mw := NewSessionMiddleware(testSecret, sessions)
	handler := gatedServer(mw, mw.AdminOnly)

	w := doGated(t, handler, signTestToken(t, "sid-1"))
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestAdminOnly_VerifiedAdminRenders(t *testing.T) {
	sessions := &stubSessions{sessions: map[string]domain.Session{
		"sid-1": {Authenticated: true, Admin: true, User: &domain.User{Email: "a@b.c", UserType: "admin"}},
	}}
	mw := NewSessionMiddleware(testSecret, sessions)
	handler := gatedServer(mw, mw.AdminOnly)

	w := doGated(t, handler, signTestToken(t, "sid-1"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOrganizationOnly_WrongRoleRedirectsToOrgLogin(t *testing.T) {
	sessions := &stubSessions{sessions: map[string]domain.Session{
		"sid-1": {Authenticated: true, User: &domain.User{Email: "v@b.c", UserType: "victim"}},
	}}
	mw := NewSessionMiddleware(testSecret, sessions)
	handler := gatedServer(mw, mw.OrganizationOnly)

	w := doGated(t, handler, signTestToken(t, "sid-1"))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, domain.OrgLoginPath, w.Header().Get("Location"))
}

func TestOrganizationOnly_OrganizationRenders(t *testing.T) {
	sessions := &stubSessions{sessions: map[string]domain.Session{
		"sid-1": {Authenticated: true, User: &domain.User{Email: "o@b.c", UserType: "Organization"}},
	}}
	mw := NewSessionMiddleware(testSecret, sessions)
	handler := gatedServer(mw, mw.OrganizationOnly)

	w := doGated(t, handler, signTestToken(t, "sid-1"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAttach_UnknownSessionIsAnonymous(t *testing.T) {
	mw := NewSessionMiddleware(testSecret, &stubSessions{sessions: map[string]domain.Session{}})
	handler := gatedServer(mw, mw.Protected)

	// Valid signature, but the session was cleared (logout).
	w := doGated(t, handler, signTestToken(t, "gone"))
	assert.Equal(t, http.StatusSeeOther, w.Code)
}
