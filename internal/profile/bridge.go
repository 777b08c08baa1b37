package profile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/veltaire/storefront/internal/identity"
)

// Sync result codes, stable for callers and logs.
const (
	CodeSynced              = "synced"
	CodeSchemaMissingTable  = "schema_missing_table"
	CodeSchemaMissingColumn = "schema_missing_column"
	CodeInternal            = "internal"
)

// Store is the slice of the repo the bridge needs; satisfied by *Repo.
type Store interface {
	FindByProviderID(ctx context.Context, providerID string) (*Profile, error)
	Insert(ctx context.Context, p *Profile) error
	UpdateByID(ctx context.Context, id string, p *Profile) error
}

// SyncResult is always populated; Sync never panics through to the
// caller because callers treat it as a best-effort background write.
type SyncResult struct {
	OK      bool
	Created bool
	Code    string
	// AuthProvider is the derived label written to the row, set on success.
	AuthProvider string
	Err          error
}

// Bridge reconciles the identity provider's user with the mirrored
// profile row: create-if-absent, update-if-present, idempotent on
// every sign-in, OAuth callback, and password-setup completion.
type Bridge struct {
	Store Store
	Log   *zap.Logger
}

func NewBridge(store Store, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{Store: store, Log: log}
}

func (b *Bridge) Sync(ctx context.Context, u *identity.User) (res SyncResult) {
	defer func() {
		if r := recover(); r != nil {
			b.Log.Error("profile sync panicked", zap.Any("panic", r), zap.String("user_id", u.ID))
			res = SyncResult{Code: CodeInternal, Err: fmt.Errorf("profile: sync panic: %v", r)}
		}
	}()

	existing, err := b.Store.FindByProviderID(ctx, u.ID)
	if err != nil {
		return b.failure("find", u.ID, err)
	}

	hasOAuth := u.HasOAuth(identity.ProviderGoogle)
	hasPassword := u.PasswordEnabled
	promptCompleted := u.PasswordPromptCompleted
	if existing != nil {
		// The mirrored row owns these flags; the provider's signal is
		// unreliable and must never clear them.
		hasPassword = hasPassword || existing.HasPassword
		promptCompleted = promptCompleted || existing.PasswordPromptCompleted
	}

	phone := u.Phone
	if phone == "" {
		phone = u.Email
	}

	next := &Profile{
		ProviderID:              u.ID,
		Email:                   strPtr(u.Email),
		FirstName:               strPtr(u.FirstName),
		LastName:                strPtr(u.LastName),
		Name:                    strPtr(u.FullName()),
		PhoneNumber:             phone,
		HasPassword:             hasPassword,
		AuthProvider:            AuthProviderLabel(hasPassword, hasOAuth),
		PasswordPromptCompleted: promptCompleted,
		IsAdmin:                 false, // set out-of-band only
	}

	if existing != nil {
		if err := b.Store.UpdateByID(ctx, existing.ID, next); err != nil {
			return b.failure("update", u.ID, err)
		}
		return SyncResult{OK: true, Code: CodeSynced, AuthProvider: next.AuthProvider}
	}

	if err := b.Store.Insert(ctx, next); err != nil {
		return b.failure("insert", u.ID, err)
	}
	return SyncResult{OK: true, Created: true, Code: CodeSynced, AuthProvider: next.AuthProvider}
}

func (b *Bridge) failure(op, userID string, err error) SyncResult {
	code := CodeInternal
	switch {
	case errors.Is(err, ErrTableMissing):
		code = CodeSchemaMissingTable
	case errors.Is(err, ErrColumnMissing):
		code = CodeSchemaMissingColumn
	}
	b.Log.Error("profile sync failed",
		zap.String("op", op), zap.String("user_id", userID), zap.String("code", code), zap.Error(err))
	return SyncResult{Code: code, Err: err}
}
