package profile

import "time"

// Auth provider labels derived at sync time.
const (
	AuthPassword       = "password"
	AuthGoogle         = "google"
	AuthGooglePassword = "google+password"
)

// Profile is the mirrored user row. The identity provider stays
// authoritative for authentication itself; this row is authoritative
// for the has-password and prompt-completed flags, which the provider
// does not reliably expose for this integration.
type Profile struct {
	ID                      string    `json:"id"`
	ProviderID              string    `json:"providerId"`
	Email                   *string   `json:"email,omitempty"`
	FirstName               *string   `json:"firstName,omitempty"`
	LastName                *string   `json:"lastName,omitempty"`
	Name                    *string   `json:"name,omitempty"`
	PhoneNumber             string    `json:"phoneNumber"`
	HasPassword             bool      `json:"hasPassword"`
	AuthProvider            string    `json:"authProvider"`
	PasswordPromptCompleted bool      `json:"passwordPromptCompleted"`
	IsAdmin                 bool      `json:"isAdmin"`
	CreatedAt               time.Time `json:"createdAt"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

// AuthProviderLabel consolidates the two credential signals into the
// stored label.
func AuthProviderLabel(hasPassword, hasOAuth bool) string {
	switch {
	case hasOAuth && hasPassword:
		return AuthGooglePassword
	case hasOAuth:
		return AuthGoogle
	default:
		return AuthPassword
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
