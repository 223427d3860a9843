package domain

// Session is the snapshot of authorization facts a gate consumes. Admin is
// meaningful only while Authenticated is true and User is present; it is
// resolved against the backend, never read from User.IsAdmin.
type Session struct {
	Authenticated bool
	Admin         bool
	Loading       bool
	User          *User
}

// Anonymous is the resolved state of a request with no session: nothing to
// load, nothing granted.
func Anonymous() Session {
	return Session{}
}

type GateKind int

const (
	GateProtected GateKind = iota
	GateAdmin
	GateOrganization
)

type GateOutcome int

const (
	// GateLoading: session facts are still resolving; protected content must
	// not be produced yet.
	GateLoading GateOutcome = iota
	GateRedirectLogin
	GateRedirectOrgLogin
	GateRender
)

// EvaluateGate is the pure navigation-guard decision. The Loading check comes
// first in every gate so a half-resolved session can never flash protected
// content before the admin check completes.
func EvaluateGate(kind GateKind, s Session) GateOutcome {
	if s.Loading {
		return GateLoading
	}

	switch kind {
	case GateAdmin:
		if !s.Authenticated || !s.Admin {
			return GateRedirectLogin
		}
	case GateOrganization:
		if !s.Authenticated || s.User == nil || s.User.Role() != RoleOrganization {
			return GateRedirectOrgLogin
		}
	default:
		if !s.Authenticated {
			return GateRedirectLogin
		}
	}
	return GateRender
}

// Dashboard destinations. LoginPath doubles as the fail-safe target for
// unrecognized roles.
const (
	LoginPath        = "/login"
	OrgLoginPath     = "/organization/login"
	AdminDashboard   = "/admin"
	VictimDashboard  = "/victim/dashboard"
	VolDashboard     = "/volunteer/dashboard"
	OrgDashboard     = "/organization/dashboard"
	DonorDashboard   = "/donor/dashboard"
)

// DashboardRoute maps an authenticated user to exactly one destination. It is
// total: an absent user or an unrecognized role falls back to the login path
// instead of failing. The returned Role lets callers flag anomalies.
func DashboardRoute(user *User) (string, Role) {
	if user == nil {
		return LoginPath, RoleUnknown
	}
	role := user.Role()
	switch role {
	case RoleAdmin:
		return AdminDashboard, role
	case RoleVolunteer:
		return VolDashboard, role
	case RoleVictim:
		return VictimDashboard, role
	case RoleOrganization:
		return OrgDashboard, role
	case RoleDonor:
		return DonorDashboard, role
	default:
		return LoginPath, RoleUnknown
	}
}
