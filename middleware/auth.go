package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/relieflink/relief-gateway/internal/domain"
)

type contextKey string

const (
	SessionKey   contextKey = "session"
	SessionIDKey contextKey = "session_id"
)

// SessionReader exposes the server-side session snapshot the gates consume.
// The bearer token only identifies the session; every authorization fact is
// read from here, so a forged role claim buys nothing.
type SessionReader interface {
	Snapshot(id string) (domain.Session, bool)
}

type SessionMiddleware struct {
	secret   []byte
	sessions SessionReader
}

func NewSessionMiddleware(secret string, sessions SessionReader) *SessionMiddleware {
	return &SessionMiddleware{secret: []byte(secret), sessions: sessions}
}

// Attach resolves the bearer token into a session snapshot and stores it in
// the request context. Requests without a valid token pass through as
// anonymous; the gates decide what that means per route.
func (m *SessionMiddleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			next.ServeHTTP(w, r)
			return
		}

		claims := &jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			next.ServeHTTP(w, r)
			return
		}

		sid, _ := (*claims)["sid"].(string)
		if sid == "" {
			next.ServeHTTP(w, r)
			return
		}

		snap, ok := m.sessions.Snapshot(sid)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), SessionKey, snap)
		ctx = context.WithValue(ctx, SessionIDKey, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Protected renders only for authenticated sessions.
func (m *SessionMiddleware) Protected(next http.Handler) http.Handler {
	return m.gate(domain.GateProtected, "protected", next)
}

// AdminOnly renders only when the backend-verified admin flag is set.
func (m *SessionMiddleware) AdminOnly(next http.Handler) http.Handler {
	return m.gate(domain.GateAdmin, "admin", next)
}

// OrganizationOnly renders only for authenticated organization users.
func (m *SessionMiddleware) OrganizationOnly(next http.Handler) http.Handler {
	return m.gate(domain.GateOrganization, "organization", next)
}

func (m *SessionMiddleware) gate(kind domain.GateKind, name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := GetSession(r.Context())

		switch domain.EvaluateGate(kind, snap) {
		case domain.GateLoading:
			gateOutcomesTotal.WithLabelValues(name, "loading").Inc()
			w.Header().Set("Retry-After", "1")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"status": "loading"})
		case domain.GateRedirectLogin:
			gateOutcomesTotal.WithLabelValues(name, "redirect_login").Inc()
			http.Redirect(w, r, domain.LoginPath, http.StatusSeeOther)
		case domain.GateRedirectOrgLogin:
			gateOutcomesTotal.WithLabelValues(name, "redirect_org_login").Inc()
			http.Redirect(w, r, domain.OrgLoginPath, http.StatusSeeOther)
		default:
			gateOutcomesTotal.WithLabelValues(name, "render").Inc()
			next.ServeHTTP(w, r)
		}
	})
}

// GetSession returns the session snapshot from context. Anonymous when none
// was attached.
func GetSession(ctx context.Context) domain.Session {
	if snap, ok := ctx.Value(SessionKey).(domain.Session); ok {
		return snap
	}
	return domain.Anonymous()
}

// GetSessionID returns the opaque session ID from context, or "".
func GetSessionID(ctx context.Context) string {
	if sid, ok := ctx.Value(SessionIDKey).(string); ok {
		return sid
	}
	return ""
}
