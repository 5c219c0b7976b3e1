package authz

import (
	"strings"

	"github.com/krancour/cloudbalance"
	"github.com/krancour/cloudbalance/session"
)

// Decision is the outcome of checking a session against a route.
type Decision int

const (
	// Wait means a request that may change identity is in flight and no
	// decision should be made until it settles.
	Wait Decision = iota
	// Allow means the route may be entered.
	Allow
	// RedirectToLogin means there is no authenticated session.
	RedirectToLogin
	// RedirectToDefault means the session is authenticated but its role may
	// not enter the route.
	RedirectToDefault
	// NotFound means no route matches the path.
	NotFound
)

func (d Decision) String() string {
	switch d {
	case Wait:
		return "Wait"
	case Allow:
		return "Allow"
	case RedirectToLogin:
		return "RedirectToLogin"
	case RedirectToDefault:
		return "RedirectToDefault"
	case NotFound:
		return "NotFound"
	}
	return "Unknown"
}

// Check gates entry to a route that requires authentication. An empty allow
// list admits any authenticated role.
func Check(state session.State, allowed []cloudbalance.Role) Decision {
	if state.IsLoading {
		return Wait
	}
	if !state.IsAuthenticated {
		return RedirectToLogin
	}
	if len(allowed) == 0 {
		return Allow
	}
	role := state.Role()
	for _, allowedRole := range allowed {
		if role == allowedRole {
			return Allow
		}
	}
	return RedirectToDefault
}

// Route describes a navigable view.
type Route struct {
	Path string
	// Public routes may be entered without a session.
	Public bool
	// GuestOnly routes are public routes that an authenticated session is
	// redirected away from, e.g. the login view.
	GuestOnly bool
	// Allowed lists the roles that may enter a non-public route. Empty means
	// any authenticated role.
	Allowed []cloudbalance.Role
}

const (
	LoginPath          = "/login"
	ForgotPasswordPath = "/forgot-password"
	ResetPasswordPath  = "/reset-password"
	DefaultPath        = "/dashboard"
	UsersPath          = "/users"
	OnboardingPath     = "/onboarding"
	AWSServicesPath    = "/aws-services"
	CostExplorerPath   = "/cost-explorer"
	rootPath           = "/"
)

// Routes is the CloudBalance route table.
var Routes = []Route{
	{Path: LoginPath, Public: true, GuestOnly: true},
	{Path: ForgotPasswordPath, Public: true},
	{Path: ResetPasswordPath, Public: true},
	{Path: DefaultPath},
	{
		Path:    UsersPath,
		Allowed: []cloudbalance.Role{cloudbalance.RoleAdmin, cloudbalance.RoleReadOnly},
	},
	{
		Path:    OnboardingPath,
		Allowed: []cloudbalance.Role{cloudbalance.RoleAdmin},
	},
	{Path: AWSServicesPath, Allowed: cloudbalance.Roles},
	{Path: CostExplorerPath, Allowed: cloudbalance.Roles},
}

// Guard resolves paths against a route table.
type Guard struct {
	routes map[string]Route
}

func NewGuard(routes []Route) *Guard {
	g := &Guard{
		routes: make(map[string]Route, len(routes)),
	}
	for _, route := range routes {
		g.routes[normalize(route.Path)] = route
	}
	return g
}

// DefaultGuard returns a Guard over Routes.
func DefaultGuard() *Guard {
	return NewGuard(Routes)
}

// Route returns the route registered for the path, if any.
func (g *Guard) Route(path string) (Route, bool) {
	route, ok := g.routes[normalize(path)]
	return route, ok
}

// Resolve decides what happens when the session navigates to path. The
// second return value is where to go instead, when the decision is a
// redirect.
func (g *Guard) Resolve(state session.State, path string) (Decision, string) {
	path = normalize(path)
	if path == rootPath {
		if state.IsLoading {
			return Wait, ""
		}
		if state.IsAuthenticated {
			return RedirectToDefault, DefaultPath
		}
		return RedirectToLogin, LoginPath
	}
	route, ok := g.routes[path]
	if !ok {
		return NotFound, ""
	}
	if route.Public {
		if route.GuestOnly && state.IsAuthenticated {
			return RedirectToDefault, DefaultPath
		}
		return Allow, ""
	}
	switch decision := Check(state, route.Allowed); decision {
	case RedirectToLogin:
		return decision, LoginPath
	case RedirectToDefault:
		return decision, DefaultPath
	default:
		return decision, ""
	}
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = "/" + strings.Trim(path, "/")
	return strings.ToLower(path)
}
