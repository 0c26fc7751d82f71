package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mora-fusion/server/internal/audit"
)

func (r *AuditRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

// Insert appends one entry. audit_logs has no update or delete path; the
// only writes the schema permits are inserts.
func (r *AuditRepository) Insert(ctx context.Context, entry audit.Entry) error {
	_, err := r.queryer().Exec(ctx, `
INSERT INTO audit_logs (
    actor_user_id, actor_role, action_type,
    resource_type, resource_id, resource_name,
    status, denial_reason, ip_address,
    old_values, new_values, details, timestamp
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`,
		entry.ActorID,
		nullIfEmpty(entry.ActorRole),
		string(entry.Action),
		nullIfEmpty(entry.ResourceType),
		entry.ResourceID,
		nullIfEmpty(entry.ResourceName),
		string(entry.Outcome),
		nullIfEmpty(entry.DenialReason),
		nullIfEmpty(entry.IPAddress),
		nullIfEmptyBytes(entry.OldValues),
		nullIfEmptyBytes(entry.NewValues),
		nullIfEmpty(entry.Details),
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	var sb strings.Builder
	sb.WriteString(`
SELECT log_id, actor_user_id, actor_role, action_type,
       resource_type, resource_id, resource_name,
       status, denial_reason, ip_address,
       old_values, new_values, details, timestamp
  FROM audit_logs`)

	var args []any
	var conds []string
	if filter.ActorID != nil {
		args = append(args, *filter.ActorID)
		conds = append(conds, "actor_user_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Outcome != "" {
		args = append(args, string(filter.Outcome))
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		sb.WriteString("\n WHERE " + strings.Join(conds, " AND "))
	}
	args = append(args, filter.Limit)
	sb.WriteString("\n ORDER BY timestamp DESC, log_id DESC\n LIMIT $" + strconv.Itoa(len(args)))

	rows, err := r.queryer().Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var actorRole, resourceType, resourceName, denialReason, ip, details *string
		if err := rows.Scan(
			&e.ID,
			&e.ActorID,
			&actorRole,
			&e.Action,
			&resourceType,
			&e.ResourceID,
			&resourceName,
			&e.Outcome,
			&denialReason,
			&ip,
			&e.OldValues,
			&e.NewValues,
			&details,
			&e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.ActorRole = derefString(actorRole)
		e.ResourceType = derefString(resourceType)
		e.ResourceName = derefString(resourceName)
		e.DenialReason = derefString(denialReason)
		e.IPAddress = derefString(ip)
		e.Details = derefString(details)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

func nullIfEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func nullIfEmptyBytes(value []byte) []byte {
	if len(value) == 0 {
		return nil
	}
	return value
}
