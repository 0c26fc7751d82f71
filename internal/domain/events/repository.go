// Package events holds the resource side of the ownership checks. Event
// scheduling business rules live outside this server; what matters here
// is who owns an event and the audited mutation surface.
package events

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("event not found")

// Event is the owned resource the ownership gate protects.
type Event struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	Location    string    `json:"location,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Owner is the resolved ownership record for one resource.
type Owner struct {
	OwnerID     int64
	DisplayName string
}

// OwnerLookup is the narrow contract the ownership gate needs: resolve a
// resource id to its owner, or ErrNotFound.
type OwnerLookup interface {
	GetOwner(ctx context.Context, eventID int64) (*Owner, error)
}

// UpdateParams carries the mutable event fields.
type UpdateParams struct {
	Name        string
	Description string
	StartsAt    time.Time
	Location    string
}

// Repository is the event store contract.
type Repository interface {
	OwnerLookup
	GetByID(ctx context.Context, id int64) (*Event, error)
	List(ctx context.Context, limit int32) ([]Event, error)
	Create(ctx context.Context, ownerID int64, params UpdateParams) (*Event, error)
	Update(ctx context.Context, id int64, params UpdateParams) (*Event, error)
	Delete(ctx context.Context, id int64) error
}
