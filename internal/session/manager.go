package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/relieflink/relief-gateway/internal/domain"
)

// AdminChecker verifies admin privilege against the relief backend. The
// locally cached user record claims a role and an is_admin flag, but gating
// never trusts either: privilege is re-verified remotely on every sign-in.
type AdminChecker interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

const resolveTimeout = 5 * time.Second

type record struct {
	user          *domain.User
	authenticated bool
	admin         bool
	loading       bool
	// gen increments on every transition that can trigger a resolution, so a
	// result that arrives late is discarded instead of clobbering newer state.
	gen uint64
}

// Manager owns all session state. It is the only mutator; gates and handlers
// read immutable snapshots. The mutex stands in for the original's
// single-threaded event loop: transitions are serialized, and the async admin
// resolution re-enters through the same lock.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*record
	checker  AdminChecker
	log      zerolog.Logger
	wg       sync.WaitGroup
}

func NewManager(checker AdminChecker, log zerolog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*record),
		checker:  checker,
		log:      log,
	}
}

// Begin creates a session for an authenticated user and schedules the
// admin-status resolution. The returned ID is opaque; callers wrap it in a
// signed token. The session stays loading until the resolution releases it.
func (m *Manager) Begin(user *domain.User) string {
	sid := uuid.NewString()

	m.mu.Lock()
	rec := &record{
		user:          user,
		authenticated: true,
		loading:       true,
	}
	m.sessions[sid] = rec
	gen := rec.gen

	email := ""
	if user != nil {
		email = user.Email
	}

	if email == "" {
		// No identity to verify: release immediately, no privilege.
		rec.loading = false
		rec.admin = false
		m.mu.Unlock()
		return sid
	}
	m.mu.Unlock()

	m.wg.Add(1)
	go m.resolveAdmin(sid, email, gen)

	return sid
}

// resolveAdmin queries the backend and applies the result only if the session
// still exists, still belongs to the same email, and no newer resolution has
// started. Every outcome - success, failure, malformed response - releases
// the loading flag for its generation; failure resolves to admin=false, never
// admin=true.
func (m *Manager) resolveAdmin(sid, email string, gen uint64) {
	defer m.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	isAdmin, err := m.checker.IsAdmin(ctx, email)
	if err != nil {
		m.log.Warn().Err(err).Str("email", email).Msg("admin_check_failed")
		isAdmin = false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[sid]
	if !ok {
		// Logged out while the check was in flight.
		return
	}
	if rec.gen != gen || rec.user == nil || rec.user.Email != email {
		// A newer resolution owns the loading flag now.
		return
	}

	rec.admin = isAdmin
	rec.loading = false
}

// Snapshot returns an immutable view of the session for gate evaluation.
func (m *Manager) Snapshot(sid string) (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[sid]
	if !ok {
		return domain.Anonymous(), false
	}
	return domain.Session{
		Authenticated: rec.authenticated,
		Admin:         rec.admin,
		Loading:       rec.loading,
		User:          rec.user,
	}, true
}

// Clear destroys the session (logout). A resolution still in flight finds the
// session gone and discards its result.
func (m *Manager) Clear(sid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sid)
}

// Refresh replaces the session's user record and re-runs the admin-status
// resolution, invalidating any resolution still in flight.
func (m *Manager) Refresh(sid string, user *domain.User) {
	m.mu.Lock()
	rec, ok := m.sessions[sid]
	if !ok {
		m.mu.Unlock()
		return
	}
	rec.user = user
	rec.gen++
	rec.loading = true
	gen := rec.gen

	email := ""
	if user != nil {
		email = user.Email
	}
	if email == "" {
		rec.loading = false
		rec.admin = false
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.wg.Add(1)
	go m.resolveAdmin(sid, email, gen)
}

// Wait blocks until all scheduled resolutions have completed. Test hook.
func (m *Manager) Wait() {
	m.wg.Wait()
}
