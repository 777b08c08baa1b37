package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veltaire/storefront/internal/events"
	"github.com/veltaire/storefront/internal/identity"
	"github.com/veltaire/storefront/internal/kafka"
	"github.com/veltaire/storefront/internal/profile"
)

type fakeIdentity struct {
	user           *identity.User
	err            error
	setPasswordErr error
	passwordsSet   []string
}

func (f *fakeIdentity) UserFromRequest(ctx context.Context, r *http.Request) (*identity.User, error) {
	return f.user, f.err
}

func (f *fakeIdentity) SetPassword(ctx context.Context, userID, password string) error {
	if f.setPasswordErr != nil {
		return f.setPasswordErr
	}
	f.passwordsSet = append(f.passwordsSet, password)
	return nil
}

type fakeStore struct {
	rows    map[string]*profile.Profile
	seq     int
	findErr error
}

func newFakeStore() *fakeStore { return &fakeStore{rows: map[string]*profile.Profile{}} }

func (s *fakeStore) FindByProviderID(ctx context.Context, providerID string) (*profile.Profile, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.rows[providerID], nil
}

func (s *fakeStore) Insert(ctx context.Context, p *profile.Profile) error {
	s.seq++
	cp := *p
	cp.ID = fmt.Sprintf("row-%d", s.seq)
	s.rows[p.ProviderID] = &cp
	return nil
}

func (s *fakeStore) UpdateByID(ctx context.Context, id string, p *profile.Profile) error {
	cp := *p
	cp.ID = id
	s.rows[p.ProviderID] = &cp
	return nil
}

type fakeProfiles struct {
	has    bool
	hasErr error
	setErr error
	labels []string
	hashes []*string
}

func (f *fakeProfiles) HasPassword(ctx context.Context, providerID string) (bool, error) {
	return f.has, f.hasErr
}

func (f *fakeProfiles) SetPasswordState(ctx context.Context, providerID, authProvider string, passwordHash *string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.labels = append(f.labels, authProvider)
	f.hashes = append(f.hashes, passwordHash)
	return nil
}

func oauthUser() *identity.User {
	return &identity.User{
		ID:             "user_42",
		Email:          "anna@example.com",
		FirstName:      "Anna",
		LastName:       "Keller",
		OAuthProviders: []string{identity.ProviderGoogle},
	}
}

func newAccountHandler(id *fakeIdentity, store *fakeStore, profiles *fakeProfiles) *AccountHandler {
	return &AccountHandler{
		Identity: id,
		Bridge:   profile.NewBridge(store, zap.NewNop()),
		Profiles: profiles,
		Service:  "test",
		Log:      zap.NewNop(),
	}
}

func do(h http.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

func TestSyncUnauthorized(t *testing.T) {
	h := newAccountHandler(&fakeIdentity{}, newFakeStore(), &fakeProfiles{})

	w := do(h.sync, http.MethodPost, "/api/account/sync", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["success"])
}

func TestSyncCreatesRow(t *testing.T) {
	store := newFakeStore()
	h := newAccountHandler(&fakeIdentity{user: oauthUser()}, store, &fakeProfiles{})

	w := do(h.sync, http.MethodPost, "/api/account/sync", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["created"])
	require.Len(t, store.rows, 1)
	assert.Equal(t, profile.AuthGoogle, store.rows["user_42"].AuthProvider)

	// second sync is idempotent
	w = do(h.sync, http.MethodPost, "/api/account/sync", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["created"])
	assert.Len(t, store.rows, 1)
}

func TestSyncSchemaErrorIsDiagnosable(t *testing.T) {
	store := newFakeStore()
	store.findErr = fmt.Errorf("query: %w", profile.ErrTableMissing)
	h := newAccountHandler(&fakeIdentity{user: oauthUser()}, store, &fakeProfiles{})

	w := do(h.sync, http.MethodPost, "/api/account/sync", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, profile.CodeSchemaMissingTable, body["code"])
	assert.Equal(t, "database table not found", body["error"])
}

func TestPasswordStatus(t *testing.T) {
	h := newAccountHandler(&fakeIdentity{user: oauthUser()}, newFakeStore(), &fakeProfiles{has: true})

	w := do(h.passwordStatus, http.MethodGet, "/api/account/password-status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["hasPassword"])
}

func TestStateUnauthenticated(t *testing.T) {
	h := newAccountHandler(&fakeIdentity{}, newFakeStore(), &fakeProfiles{})

	w := do(h.state, http.MethodGet, "/api/account/state", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "unauthenticated", body["state"])
	assert.Equal(t, false, body["shouldShowPasswordPrompt"])
}

func TestStatePromptSuppressedWhileUnresolved(t *testing.T) {
	profiles := &fakeProfiles{hasErr: fmt.Errorf("timeout")}
	h := newAccountHandler(&fakeIdentity{user: oauthUser()}, newFakeStore(), profiles)

	w := do(h.state, http.MethodGet, "/api/account/state", "")
	body := decodeBody(t, w)
	assert.Equal(t, "oauth-only", body["state"])
	assert.Equal(t, false, body["shouldShowPasswordPrompt"], "unresolved check never shows the prompt")
}

func TestStatePromptShownWhenPasswordAbsent(t *testing.T) {
	h := newAccountHandler(&fakeIdentity{user: oauthUser()}, newFakeStore(), &fakeProfiles{has: false})

	w := do(h.state, http.MethodGet, "/api/account/state", "")
	body := decodeBody(t, w)
	assert.Equal(t, "oauth-only", body["state"])
	assert.Equal(t, true, body["shouldShowPasswordPrompt"])
}

func TestStatePasswordEnabled(t *testing.T) {
	h := newAccountHandler(&fakeIdentity{user: oauthUser()}, newFakeStore(), &fakeProfiles{has: true})

	w := do(h.state, http.MethodGet, "/api/account/state", "")
	body := decodeBody(t, w)
	assert.Equal(t, "password-enabled", body["state"])
	assert.Equal(t, false, body["shouldShowPasswordPrompt"])
}

func TestCreatePasswordTooShort(t *testing.T) {
	h := newAccountHandler(&fakeIdentity{user: oauthUser()}, newFakeStore(), &fakeProfiles{})

	w := do(h.createPassword, http.MethodPost, "/api/account/password", `{"newPassword":"short"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePasswordSuccess(t *testing.T) {
	id := &fakeIdentity{user: oauthUser()}
	profiles := &fakeProfiles{}
	h := newAccountHandler(id, newFakeStore(), profiles)

	w := do(h.createPassword, http.MethodPost, "/api/account/password", `{"newPassword":"correct horse battery"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"correct horse battery"}, id.passwordsSet)
	require.Len(t, profiles.labels, 1)
	assert.Equal(t, profile.AuthGooglePassword, profiles.labels[0])
	assert.Nil(t, profiles.hashes[0], "no client hash on provider-set passwords")
}

func TestCreatePasswordProviderRejection(t *testing.T) {
	id := &fakeIdentity{user: oauthUser(), setPasswordErr: identity.ErrPasswordRejected}
	h := newAccountHandler(id, newFakeStore(), &fakeProfiles{})

	w := do(h.createPassword, http.MethodPost, "/api/account/password", `{"newPassword":"correct horse battery"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestPromptCompletedRequiresHash(t *testing.T) {
	h := newAccountHandler(&fakeIdentity{user: oauthUser()}, newFakeStore(), &fakeProfiles{})

	w := do(h.promptCompleted, http.MethodPost, "/api/account/password-prompt-completed", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPromptCompletedStoresHash(t *testing.T) {
	profiles := &fakeProfiles{}
	h := newAccountHandler(&fakeIdentity{user: oauthUser()}, newFakeStore(), profiles)

	w := do(h.promptCompleted, http.MethodPost, "/api/account/password-prompt-completed", `{"passwordHash":"9f86d081"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, profiles.hashes, 1)
	require.NotNil(t, profiles.hashes[0])
	assert.Equal(t, "9f86d081", *profiles.hashes[0])
	assert.Equal(t, profile.AuthGooglePassword, profiles.labels[0])
}

func TestSyncPublishesProfileEvent(t *testing.T) {
	pub := &fakePublisher{}
	h := newAccountHandler(&fakeIdentity{user: oauthUser()}, newFakeStore(), &fakeProfiles{})
	h.Producer = pub

	w := do(h.sync, http.MethodPost, "/api/account/sync", "")
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, pub.envelopes, 1)
	env := pub.envelopes[0]
	assert.Equal(t, events.EventProfileSynced, env.EventType)

	p, err := kafka.UnwrapPayload[events.ProfileSyncedPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, "user_42", p.ProviderUserID)
	assert.True(t, p.Created)
	assert.Equal(t, profile.AuthGoogle, p.AuthProvider)
}
