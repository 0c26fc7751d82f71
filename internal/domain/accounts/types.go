package accounts

import "time"

// Status is the account lifecycle state. New registrations start pending
// and must be approved by an admin before they can log in.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Account is one credential record. FailedAttempts, LockUntil, MFACode and
// MFAExpiry are mutated only by the login flow; the access-control gates
// never write them. MFACode and MFAExpiry are both nil or both set.
type Account struct {
	ID             int64
	Name           string
	Email          string
	PasswordHash   string
	Role           string
	Status         Status
	FailedAttempts int
	LockUntil      *time.Time
	MFACode        *string
	MFAExpiry      *time.Time
	CreatedAt      time.Time
}

// Locked reports whether the account is under an active lockout at now.
func (a *Account) Locked(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

// Challenge is the password-stage success response: the caller must come
// back with the one-time code before any token is issued.
type Challenge struct {
	AccountID  int64
	PendingMFA bool
}

// Session is the result of a verified second factor.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Identity  SessionIdentity
}

type SessionIdentity struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
