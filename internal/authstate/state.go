// Package authstate derives a single authentication state from two
// asynchronous inputs: the identity provider's load state and the
// mirrored profile's has-password flag. The mirrored database is the
// sole truth source for the password prompt decision; the provider's
// own password-enabled signal proved unreliable for this integration
// and is intentionally ignored here. PasswordSource isolates that
// trust boundary so it can be swapped back once the upstream signal
// is fixed.
package authstate

import (
	"context"
	"sync"
)

type State string

const (
	// StateAuthenticating: the identity provider has not finished loading.
	StateAuthenticating State = "authenticating"
	// StateUnauthenticated: provider loaded, no user.
	StateUnauthenticated State = "unauthenticated"
	// StateAuthenticated: user present with neither a confirmed
	// password nor an OAuth connection. Not reachable in the normal
	// flow, handled anyway.
	StateAuthenticated State = "authenticated"
	// StateOAuthOnly: user present, no password, OAuth connection exists.
	StateOAuthOnly State = "oauth-only"
	// StatePasswordEnabled: user present, mirrored profile confirms a password.
	StatePasswordEnabled State = "password-enabled"
)

// PasswordCheck is the tri-state result of the asynchronous mirrored
// profile lookup. Unknown means in flight or failed.
type PasswordCheck int

const (
	PasswordUnknown PasswordCheck = iota
	PasswordAbsent
	PasswordPresent
)

// PasswordSource answers the has-password question from whichever
// system is currently trusted for it.
type PasswordSource interface {
	HasPassword(ctx context.Context, providerUserID string) (bool, error)
}

type Inputs struct {
	Loaded   bool
	HasUser  bool
	HasOAuth bool
	Password PasswordCheck
}

type Snapshot struct {
	State State `json:"state"`
	// ShouldShowPasswordPrompt is true only on an affirmative "no
	// password" answer. An unresolved check suppresses the prompt;
	// it is never shown speculatively.
	ShouldShowPasswordPrompt bool `json:"shouldShowPasswordPrompt"`
	HasPassword              bool `json:"hasPassword"`
	HasOAuth                 bool `json:"hasOAuth"`
}

// Reconcile recomputes the snapshot from current inputs. Pure.
func Reconcile(in Inputs) Snapshot {
	if !in.Loaded {
		return Snapshot{State: StateAuthenticating}
	}
	if !in.HasUser {
		return Snapshot{State: StateUnauthenticated}
	}

	hasPassword := in.Password == PasswordPresent

	var state State
	switch {
	case hasPassword:
		state = StatePasswordEnabled
	case in.HasOAuth:
		state = StateOAuthOnly
	default:
		state = StateAuthenticated
	}

	return Snapshot{
		State:                    state,
		ShouldShowPasswordPrompt: in.Password == PasswordAbsent,
		HasPassword:              hasPassword,
		HasOAuth:                 in.HasOAuth,
	}
}

// Session adds the per-session latch on top of Reconcile: once the
// check resolves to PasswordPresent, the prompt stays off for the rest
// of the session no matter what later inputs report.
type Session struct {
	mu               sync.Mutex
	passwordObserved bool
}

func (s *Session) Observe(in Inputs) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if in.Password == PasswordPresent {
		s.passwordObserved = true
	}
	if s.passwordObserved {
		in.Password = PasswordPresent
	}
	return Reconcile(in)
}

// SyncGuard bounds the background profile sync to one shot per mounted
// session. Explicit state, not a package-level variable; repeats after
// Reset are safe because the sync upsert is idempotent.
type SyncGuard struct {
	mu    sync.Mutex
	fired bool
}

// TryFire reports whether the caller won the single shot.
func (g *SyncGuard) TryFire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fired {
		return false
	}
	g.fired = true
	return true
}

func (g *SyncGuard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fired = false
}
