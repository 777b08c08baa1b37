// Package identity wraps the hosted identity provider. The provider
// is authoritative for whether authentication succeeded; nothing here
// stores credentials locally.
package identity

import (
	"context"
	"net/http"
	"strings"
)

const ProviderGoogle = "oauth_google"

// User is the provider's view of an authenticated user.
type User struct {
	ID                      string
	Email                   string
	FirstName               string
	LastName                string
	ImageURL                string
	Phone                   string
	PasswordEnabled         bool
	OAuthProviders          []string
	PasswordPromptCompleted bool
}

func (u *User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

func (u *User) HasOAuth(provider string) bool {
	for _, p := range u.OAuthProviders {
		if p == provider {
			return true
		}
	}
	return false
}

// Provider is the session-facing surface of the identity service.
// UserFromRequest returns nil, nil when the request carries no valid
// session.
type Provider interface {
	UserFromRequest(ctx context.Context, r *http.Request) (*User, error)
	SetPassword(ctx context.Context, userID, password string) error
}
