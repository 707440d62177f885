package coach

// Route is a navigable screen.
type Route int

const (
	RouteSignIn Route = iota
	RouteSignUp
	RouteDashboard
	RouteChat
)

func (r Route) String() string {
	switch r {
	case RouteSignIn:
		return "signin"
	case RouteSignUp:
		return "signup"
	case RouteDashboard:
		return "dashboard"
	case RouteChat:
		return "chat"
	default:
		return "unknown"
	}
}

// Protected reports whether r requires an authenticated session.
func (r Route) Protected() bool {
	return r == RouteDashboard || r == RouteChat
}

// Decision is the outcome of guarding a navigation.
type Decision struct {
	// Wait is set while the session is still being restored; the caller
	// shows a neutral waiting state and asks again later.
	Wait bool
	// Route is where to go: the requested route when allowed, otherwise
	// the redirect target. Unset when Wait is true.
	Route Route
}

// Allowed reports whether d lets the caller proceed to target.
func (d Decision) Allowed(target Route) bool {
	return !d.Wait && d.Route == target
}

// Guard decides where a navigation to target lands given the session
// status. Protected routes send unauthenticated users to sign-in; the
// sign-in and sign-up routes send authenticated users to the dashboard.
func Guard(status AuthStatus, target Route) Decision {
	if status.Restoring {
		return Decision{Wait: true}
	}
	switch {
	case target.Protected() && !status.Authenticated:
		return Decision{Route: RouteSignIn}
	case !target.Protected() && status.Authenticated:
		return Decision{Route: RouteDashboard}
	}
	return Decision{Route: target}
}
