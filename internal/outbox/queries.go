package outbox

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Queries is the worker's database/sql access to the outbox table.
type Queries struct {
	tx *sql.Tx
}

// NewQueries binds queries to a transaction.
func NewQueries(tx *sql.Tx) *Queries {
	return &Queries{tx: tx}
}

// FetchUnsent returns up to limit unsent events in commit order, row-locked
// so concurrent workers never publish the same event twice.
func (q *Queries) FetchUnsent(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	rows, err := q.tx.QueryContext(ctx,
		`SELECT id, room_id, event_type, payload, created_at
		 FROM outbox
		 WHERE sent_at IS NULL
		 ORDER BY created_at
		 LIMIT $1
		 FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.RoomID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox events: %w", err)
	}
	return events, nil
}

// MarkSent stamps sent_at on the given events.
func (q *Queries) MarkSent(ctx context.Context, ids []uuid.UUID) error {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	_, err := q.tx.ExecContext(ctx,
		`UPDATE outbox SET sent_at = now() WHERE id = ANY($1::uuid[])`,
		pq.Array(strs),
	)
	if err != nil {
		return fmt.Errorf("mark outbox events sent: %w", err)
	}
	return nil
}
