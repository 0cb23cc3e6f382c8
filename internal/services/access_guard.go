package services

import (
	"context"

	"storefront/internal/models"
)

// Redirect targets used by guard decisions.
const (
	LoginRoute = "/login"
	HomeRoute  = "/"
)

// Decision is a guard verdict. When Allowed is false, RedirectTo names
// where the caller should send the user instead.
type Decision struct {
	Allowed    bool
	RedirectTo string
}

// AccessGuard gates entry into protected flows. It owns no cart or
// order state; it only consults the session store, and always waits for
// session readiness before deciding so a pending revalidation is never
// mistaken for "logged out".
type AccessGuard struct {
	session *SessionStore
}

// NewAccessGuard creates a new AccessGuard.
func NewAccessGuard(session *SessionStore) *AccessGuard {
	return &AccessGuard{
		session: session,
	}
}

// RequireAuth admits any authenticated user. Unauthenticated access
// redirects to login.
func (g *AccessGuard) RequireAuth(ctx context.Context) (Decision, error) {
	if err := g.session.AwaitReady(ctx); err != nil {
		return Decision{}, err
	}

	if g.session.IsLoggedIn() {
		return Decision{Allowed: true}, nil
	}
	return Decision{RedirectTo: LoginRoute}, nil
}

// RequireRole admits only authenticated users with the given role.
// Unauthenticated access redirects to login; an authenticated user with
// the wrong role is sent to the neutral default route, not login.
func (g *AccessGuard) RequireRole(ctx context.Context, role models.Role) (Decision, error) {
	if err := g.session.AwaitReady(ctx); err != nil {
		return Decision{}, err
	}

	if !g.session.IsLoggedIn() {
		return Decision{RedirectTo: LoginRoute}, nil
	}
	if g.session.Role() == role {
		return Decision{Allowed: true}, nil
	}
	return Decision{RedirectTo: HomeRoute}, nil
}
