package accounts

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by the store when no account matches.
var ErrNotFound = errors.New("account not found")

// CreateParams carries the fields for a new account record.
type CreateParams struct {
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Status       Status
}

// Store is the credential store contract. Implementations must make
// RegisterFailedAttempt and ConsumeMFACode atomic against concurrent
// callers: two simultaneous logins for the same account must not
// under-count failures or double-spend a code.
type Store interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)

	// RegisterFailedAttempt increments failed_attempts and, when the new
	// value reaches threshold, sets lock_until to lockUntil, all in one
	// conditional update. It reports the new count and whether the
	// account is now locked.
	RegisterFailedAttempt(ctx context.Context, id int64, threshold int, lockUntil time.Time) (attempts int, locked bool, err error)

	// ResetLockout sets failed_attempts to 0 and clears lock_until.
	ResetLockout(ctx context.Context, id int64) error

	// SetMFACode stores a new code and expiry, replacing any prior
	// unexpired code (last-write-wins).
	SetMFACode(ctx context.Context, id int64, code string, expiry time.Time) error

	// ConsumeMFACode clears mfa_code and mfa_expiry only if the stored
	// code still equals code. It reports false when the code was already
	// consumed or replaced, which makes verification single-use.
	ConsumeMFACode(ctx context.Context, id int64, code string) (bool, error)

	// ClearMFACode unconditionally clears the code fields. Used on
	// expiry-driven rejection.
	ClearMFACode(ctx context.Context, id int64) error

	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	Create(ctx context.Context, params CreateParams) (*Account, error)
}
