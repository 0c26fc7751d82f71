package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mora-fusion/server/internal/domain/accounts"
)

const accountColumns = `user_id, name, email, password_hash, role, status,
       failed_attempts, lock_until, mfa_code, mfa_expiry, created_at`

func (r *AccountRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT `+accountColumns+`
  FROM users
 WHERE lower(email) = lower($1)
 LIMIT 1
`, email)
	return scanAccount(row)
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*accounts.Account, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT `+accountColumns+`
  FROM users
 WHERE user_id = $1
`, id)
	return scanAccount(row)
}

// RegisterFailedAttempt bumps the counter and arms the lock in a single
// statement so two concurrent failures cannot read the same count. The
// lock timestamp is only written on the attempt that crosses the
// threshold; later failures while locked leave it in place.
func (r *AccountRepository) RegisterFailedAttempt(ctx context.Context, id int64, threshold int, lockUntil time.Time) (int, bool, error) {
	row := r.queryer().QueryRow(ctx, `
UPDATE users
   SET failed_attempts = failed_attempts + 1,
       lock_until = CASE
           WHEN failed_attempts + 1 >= $2 AND (lock_until IS NULL OR lock_until <= now())
           THEN $3
           ELSE lock_until
       END
 WHERE user_id = $1
RETURNING failed_attempts, lock_until
`, id, threshold, lockUntil)

	var attempts int
	var lockedUntil *time.Time
	if err := row.Scan(&attempts, &lockedUntil); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, accounts.ErrNotFound
		}
		return 0, false, fmt.Errorf("register failed attempt: %w", err)
	}
	locked := lockedUntil != nil && lockedUntil.After(time.Now())
	return attempts, locked, nil
}

func (r *AccountRepository) ResetLockout(ctx context.Context, id int64) error {
	tag, err := r.queryer().Exec(ctx, `
UPDATE users SET failed_attempts = 0, lock_until = NULL WHERE user_id = $1
`, id)
	if err != nil {
		return fmt.Errorf("reset lockout: %w", err)
	}
	return requireRow(tag)
}

func (r *AccountRepository) SetMFACode(ctx context.Context, id int64, code string, expiry time.Time) error {
	tag, err := r.queryer().Exec(ctx, `
UPDATE users SET mfa_code = $2, mfa_expiry = $3 WHERE user_id = $1
`, id, code, expiry)
	if err != nil {
		return fmt.Errorf("set mfa code: %w", err)
	}
	return requireRow(tag)
}

// ConsumeMFACode only clears the code when it still matches, so exactly
// one of two racing verifications wins. Zero rows affected means the code
// was already spent or replaced.
func (r *AccountRepository) ConsumeMFACode(ctx context.Context, id int64, code string) (bool, error) {
	tag, err := r.queryer().Exec(ctx, `
UPDATE users SET mfa_code = NULL, mfa_expiry = NULL
 WHERE user_id = $1 AND mfa_code = $2
`, id, code)
	if err != nil {
		return false, fmt.Errorf("consume mfa code: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *AccountRepository) ClearMFACode(ctx context.Context, id int64) error {
	_, err := r.queryer().Exec(ctx, `
UPDATE users SET mfa_code = NULL, mfa_expiry = NULL WHERE user_id = $1
`, id)
	if err != nil {
		return fmt.Errorf("clear mfa code: %w", err)
	}
	return nil
}

func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := r.queryer().Exec(ctx, `
UPDATE users SET password_hash = $2 WHERE user_id = $1
`, id, hash)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return requireRow(tag)
}

func (r *AccountRepository) UpdateStatus(ctx context.Context, id int64, status accounts.Status) error {
	tag, err := r.queryer().Exec(ctx, `
UPDATE users SET status = $2 WHERE user_id = $1
`, id, string(status))
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return requireRow(tag)
}

func (r *AccountRepository) Create(ctx context.Context, params accounts.CreateParams) (*accounts.Account, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO users (name, email, password_hash, role, status)
VALUES ($1, lower($2), $3, $4, $5)
RETURNING `+accountColumns+`
`, params.Name, params.Email, params.PasswordHash, params.Role, string(params.Status))
	account, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, accounts.ErrEmailTaken
		}
		return nil, err
	}
	return account, nil
}

func scanAccount(row pgx.Row) (*accounts.Account, error) {
	var a accounts.Account
	if err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.PasswordHash,
		&a.Role,
		&a.Status,
		&a.FailedAttempts,
		&a.LockUntil,
		&a.MFACode,
		&a.MFAExpiry,
		&a.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, accounts.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

func requireRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return accounts.ErrNotFound
	}
	return nil
}
