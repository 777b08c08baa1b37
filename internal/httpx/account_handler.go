package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/veltaire/storefront/internal/authstate"
	"github.com/veltaire/storefront/internal/events"
	"github.com/veltaire/storefront/internal/identity"
	"github.com/veltaire/storefront/internal/kafka"
	"github.com/veltaire/storefront/internal/profile"
)

const minPasswordLen = 8

// PasswordStore is the slice of the profile repo the account surface
// needs; satisfied by *profile.Repo.
type PasswordStore interface {
	HasPassword(ctx context.Context, providerID string) (bool, error)
	SetPasswordState(ctx context.Context, providerID, authProvider string, passwordHash *string) error
}

type AccountHandler struct {
	Identity identity.Provider
	Bridge   *profile.Bridge
	Profiles PasswordStore
	Producer Publisher // optional
	Service  string
	Log      *zap.Logger
}

func (h *AccountHandler) Register(r *chi.Mux) {
	r.Post("/api/account/sync", h.sync)
	r.Get("/api/account/password-status", h.passwordStatus)
	r.Get("/api/account/state", h.state)
	r.Post("/api/account/password", h.createPassword)
	r.Post("/api/account/password-prompt-completed", h.promptCompleted)
}

// currentUser resolves the session or answers 401. A provider outage
// is a 503, not an auth failure.
func (h *AccountHandler) currentUser(w http.ResponseWriter, r *http.Request) (*identity.User, bool) {
	u, err := h.Identity.UserFromRequest(r.Context(), r)
	if err != nil {
		h.Log.Warn("identity lookup failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "error": "identity provider unavailable"})
		return nil, false
	}
	if u == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "unauthorized"})
		return nil, false
	}
	return u, true
}

// sync upserts the mirrored profile row. Idempotent: called after
// sign-up, sign-in, OAuth callbacks, and password setup.
func (h *AccountHandler) sync(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res := h.Bridge.Sync(ctx, u)
	if !res.OK {
		var msg string
		switch res.Code {
		case profile.CodeSchemaMissingTable:
			msg = "database table not found"
		case profile.CodeSchemaMissingColumn:
			msg = "database schema mismatch - missing required columns"
		default:
			msg = "failed to sync user profile"
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": msg, "code": res.Code})
		return
	}

	h.publishSynced(r, u.ID, res)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "created": res.Created})
}

func (h *AccountHandler) passwordStatus(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	has, err := h.Profiles.HasPassword(ctx, u.ID)
	if err != nil {
		h.Log.Warn("password status lookup failed", zap.String("user_id", u.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "failed to check password status"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "hasPassword": has})
}

// state is the server-side reconciliation of the auth state machine.
// A failed mirrored-profile check reports PasswordUnknown, which
// suppresses the prompt rather than showing it speculatively.
func (h *AccountHandler) state(w http.ResponseWriter, r *http.Request) {
	u, err := h.Identity.UserFromRequest(r.Context(), r)
	if err != nil {
		h.Log.Warn("identity lookup failed", zap.Error(err))
		writeJSON(w, http.StatusOK, authstate.Reconcile(authstate.Inputs{}))
		return
	}
	if u == nil {
		writeJSON(w, http.StatusOK, authstate.Reconcile(authstate.Inputs{Loaded: true}))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	check := authstate.PasswordUnknown
	if has, err := h.Profiles.HasPassword(ctx, u.ID); err == nil {
		if has {
			check = authstate.PasswordPresent
		} else {
			check = authstate.PasswordAbsent
		}
	} else {
		h.Log.Warn("password check unresolved", zap.String("user_id", u.ID), zap.Error(err))
	}

	snap := authstate.Reconcile(authstate.Inputs{
		Loaded:   true,
		HasUser:  true,
		HasOAuth: u.HasOAuth(identity.ProviderGoogle),
		Password: check,
	})
	writeJSON(w, http.StatusOK, snap)
}

// createPassword sets a password on the provider account, then flips
// the mirrored flags that the prompt decision reads.
func (h *AccountHandler) createPassword(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req struct {
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid json"})
		return
	}
	if len(req.NewPassword) < minPasswordLen {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "password must be at least 8 characters"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.Identity.SetPassword(ctx, u.ID, req.NewPassword); err != nil {
		h.Log.Warn("provider password update failed", zap.String("user_id", u.ID), zap.Error(err))
		code := http.StatusBadGateway
		if !errors.Is(err, identity.ErrPasswordRejected) {
			code = http.StatusInternalServerError
		}
		writeJSON(w, code, map[string]any{"success": false, "error": "failed to create password"})
		return
	}

	label := profile.AuthProviderLabel(true, u.HasOAuth(identity.ProviderGoogle))
	if err := h.Profiles.SetPasswordState(ctx, u.ID, label, nil); err != nil {
		// provider accepted the password; the mirror catches up on the
		// next sync
		h.Log.Warn("mirrored password state update failed", zap.String("user_id", u.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "passwordEnabled": true})
}

// promptCompleted stores a client-computed password hash and marks the
// prompt done. Plaintext passwords are never accepted here.
func (h *AccountHandler) promptCompleted(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req struct {
		PasswordHash string `json:"passwordHash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid json"})
		return
	}
	if req.PasswordHash == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "password hash is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	label := profile.AuthProviderLabel(true, u.HasOAuth(identity.ProviderGoogle))
	if err := h.Profiles.SetPasswordState(ctx, u.ID, label, &req.PasswordHash); err != nil {
		msg := "failed to update profile"
		switch {
		case errors.Is(err, profile.ErrTableMissing):
			msg = "database table not found"
		case errors.Is(err, profile.ErrColumnMissing):
			msg = "database schema mismatch - missing required columns"
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": msg})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AccountHandler) publishSynced(r *http.Request, providerUserID string, res profile.SyncResult) {
	if h.Producer == nil {
		return
	}
	env := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     events.EventProfileSynced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: providerUserID,
	}
	env.Payload = kafka.MustMarshal(events.ProfileSyncedPayload{
		ProviderUserID: providerUserID,
		Created:        res.Created,
		AuthProvider:   res.AuthProvider,
	})
	h.Producer.Publish(events.PartitionKey(providerUserID), kafka.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventProfileSynced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
