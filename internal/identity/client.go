package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const sessionCookie = "__session"

var ErrPasswordRejected = errors.New("identity: provider rejected the password update")

// Client talks to the identity provider's server-side REST API with
// the instance secret key. Session tokens come from the browser; the
// secret key never leaves the server.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(baseURL, secretKey string, log *zap.Logger) (*Client, error) {
	if secretKey == "" {
		return nil, errors.New("identity: secret key is not configured")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		secret:  secretKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}, nil
}

// providerUser mirrors the provider's user resource.
type providerUser struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ImageURL       string `json:"image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
	PhoneNumbers []struct {
		PhoneNumber string `json:"phone_number"`
	} `json:"phone_numbers"`
	PasswordEnabled  bool `json:"password_enabled"`
	ExternalAccounts []struct {
		Provider string `json:"provider"`
	} `json:"external_accounts"`
	PublicMetadata struct {
		HasCompletedPasswordSetupPrompt bool `json:"hasCompletedPasswordSetupPrompt"`
	} `json:"public_metadata"`
}

func (p providerUser) toUser() *User {
	u := &User{
		ID:                      p.ID,
		FirstName:               p.FirstName,
		LastName:                p.LastName,
		ImageURL:                p.ImageURL,
		PasswordEnabled:         p.PasswordEnabled,
		PasswordPromptCompleted: p.PublicMetadata.HasCompletedPasswordSetupPrompt,
	}
	if len(p.EmailAddresses) > 0 {
		u.Email = p.EmailAddresses[0].EmailAddress
	}
	if len(p.PhoneNumbers) > 0 {
		u.Phone = p.PhoneNumbers[0].PhoneNumber
	}
	for _, a := range p.ExternalAccounts {
		u.OAuthProviders = append(u.OAuthProviders, a.Provider)
	}
	return u
}

// sessionToken pulls the provider session token from the request:
// the session cookie first, then an Authorization bearer.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// UserFromRequest resolves the session carried by the request to the
// provider's current user. No session, an expired session, or a
// revoked one all come back as nil, nil.
func (c *Client) UserFromRequest(ctx context.Context, r *http.Request) (*User, error) {
	token := sessionToken(r)
	if token == "" {
		return nil, nil
	}

	body, _ := json.Marshal(map[string]string{"token": token})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sessions/introspect", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: introspect session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("identity: introspect session: %d %s", resp.StatusCode, resp.Status)
	}

	var pu providerUser
	if err := json.NewDecoder(resp.Body).Decode(&pu); err != nil {
		return nil, fmt.Errorf("identity: decode user: %w", err)
	}
	if pu.ID == "" {
		return nil, nil
	}
	return pu.toUser(), nil
}

// SetPassword sets a password on the provider account through the
// backend API, keeping other sessions signed in. The provider's
// password_enabled flag is verified on the response.
func (c *Client) SetPassword(ctx context.Context, userID, password string) error {
	body, _ := json.Marshal(map[string]any{
		"password":                   password,
		"sign_out_of_other_sessions": false,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+"/v1/users/"+userID, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity: update password: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.log.Warn("password update rejected",
			zap.Int("status", resp.StatusCode), zap.ByteString("body", raw))
		return fmt.Errorf("%w: status %d", ErrPasswordRejected, resp.StatusCode)
	}

	var pu providerUser
	if err := json.NewDecoder(resp.Body).Decode(&pu); err != nil {
		return fmt.Errorf("identity: decode user: %w", err)
	}
	if !pu.PasswordEnabled {
		return ErrPasswordRejected
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Content-Type", "application/json")
}
