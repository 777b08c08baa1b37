package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema problems get their own sentinels so operators can tell a
// missing migration apart from a generic failure.
var (
	ErrTableMissing  = errors.New("profile: users table does not exist")
	ErrColumnMissing = errors.New("profile: users table is missing a required column")
)

const (
	pgUndefinedTable  = "42P01"
	pgUndefinedColumn = "42703"
)

func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUndefinedTable:
			return fmt.Errorf("%w: %s", ErrTableMissing, pgErr.Message)
		case pgUndefinedColumn:
			return fmt.Errorf("%w: %s", ErrColumnMissing, pgErr.Message)
		}
	}
	return err
}

type Repo struct{ DB *pgxpool.Pool }

const profileColumns = `id, provider_id, email, first_name, last_name, name, phone_number,
       has_password, auth_provider, password_prompt_completed, is_admin, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.ProviderID, &p.Email, &p.FirstName, &p.LastName, &p.Name,
		&p.PhoneNumber, &p.HasPassword, &p.AuthProvider, &p.PasswordPromptCompleted,
		&p.IsAdmin, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByProviderID returns nil, nil when no row exists for the
// provider user id.
func (r *Repo) FindByProviderID(ctx context.Context, providerID string) (*Profile, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+profileColumns+` FROM users WHERE provider_id=$1`, providerID)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return p, nil
}

func (r *Repo) Insert(ctx context.Context, p *Profile) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO users(provider_id, email, first_name, last_name, name, phone_number,
		                  has_password, auth_provider, password_prompt_completed, is_admin)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ProviderID, p.Email, p.FirstName, p.LastName, p.Name, p.PhoneNumber,
		p.HasPassword, p.AuthProvider, p.PasswordPromptCompleted, p.IsAdmin,
	)
	return classify(err)
}

// UpdateByID refreshes the synced fields on an existing row. is_admin
// is deliberately left alone; it is set out-of-band.
func (r *Repo) UpdateByID(ctx context.Context, id string, p *Profile) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE users
		SET email=$2, first_name=$3, last_name=$4, name=$5, phone_number=$6,
		    has_password=$7, auth_provider=$8, password_prompt_completed=$9, updated_at=now()
		WHERE id=$1`,
		id, p.Email, p.FirstName, p.LastName, p.Name, p.PhoneNumber,
		p.HasPassword, p.AuthProvider, p.PasswordPromptCompleted,
	)
	return classify(err)
}

// SetPasswordState flips the password flags after a successful
// password setup, optionally storing a client-computed hash. Plaintext
// passwords never reach this layer.
func (r *Repo) SetPasswordState(ctx context.Context, providerID, authProvider string, passwordHash *string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE users
		SET has_password=true, password_prompt_completed=true, auth_provider=$2,
		    password_hash=COALESCE($3, password_hash), updated_at=now()
		WHERE provider_id=$1`,
		providerID, authProvider, passwordHash,
	)
	return classify(err)
}

// HasPassword reads the authoritative flag for the password prompt
// decision. Absent row reads as false.
func (r *Repo) HasPassword(ctx context.Context, providerID string) (bool, error) {
	var has bool
	err := r.DB.QueryRow(ctx, `SELECT has_password FROM users WHERE provider_id=$1`, providerID).Scan(&has)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classify(err)
	}
	return has, nil
}
