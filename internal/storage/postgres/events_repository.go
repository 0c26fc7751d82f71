package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mora-fusion/server/internal/domain/events"
)

const eventColumns = `event_id, owner_id, name, description, starts_at, location, created_at`

func (r *EventRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

// GetOwner resolves just the ownership columns so the gate does not pull
// the whole row on every request.
func (r *EventRepository) GetOwner(ctx context.Context, eventID int64) (*events.Owner, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT owner_id, name FROM events WHERE event_id = $1
`, eventID)

	var owner events.Owner
	if err := row.Scan(&owner.OwnerID, &owner.DisplayName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event owner: %w", err)
	}
	return &owner, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT `+eventColumns+` FROM events WHERE event_id = $1
`, id)
	return scanEvent(row)
}

func (r *EventRepository) List(ctx context.Context, limit int32) ([]events.Event, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT `+eventColumns+` FROM events ORDER BY starts_at ASC, event_id ASC LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var e events.Event
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Name, &e.Description, &e.StartsAt, &e.Location, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

func (r *EventRepository) Create(ctx context.Context, ownerID int64, params events.UpdateParams) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO events (owner_id, name, description, starts_at, location)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+eventColumns+`
`, ownerID, params.Name, params.Description, params.StartsAt, params.Location)
	return scanEvent(row)
}

func (r *EventRepository) Update(ctx context.Context, id int64, params events.UpdateParams) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, `
UPDATE events
   SET name = $2, description = $3, starts_at = $4, location = $5
 WHERE event_id = $1
RETURNING `+eventColumns+`
`, id, params.Name, params.Description, params.StartsAt, params.Location)
	return scanEvent(row)
}

func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM events WHERE event_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (*events.Event, error) {
	var e events.Event
	if err := row.Scan(&e.ID, &e.OwnerID, &e.Name, &e.Description, &e.StartsAt, &e.Location, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return &e, nil
}
