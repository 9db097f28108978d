package auth

import (
	"context"
	"slices"

	"realestate-crm/backend/pkg/models"
)

type userKey struct{}

type scopesKey struct{}

// WithUser returns a context carrying the authenticated CRM user.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the CRM user stored by RequireAuth.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey{}).(*models.User)
	return u, ok && u != nil
}

func withScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, scopesKey{}, scopes)
}

// HasScope reports whether the request was granted scope. Sessions without
// scope claims (cookie logins, dev bypass) are granted every scope.
func HasScope(ctx context.Context, scope string) bool {
	scopes, ok := ctx.Value(scopesKey{}).([]string)
	if !ok || len(scopes) == 0 {
		return true
	}
	return slices.Contains(scopes, scope)
}
