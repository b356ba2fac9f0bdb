package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Insert records an event inside the caller's transaction, so the event
// commits or rolls back together with the state transition it describes.
func Insert(ctx context.Context, tx pgx.Tx, roomID uuid.UUID, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO outbox (id, room_id, event_type, payload) VALUES ($1, $2, $3, $4)`,
		uuid.New(), roomID, eventType, data,
	)
	if err != nil {
		return fmt.Errorf("insert %s outbox event: %w", eventType, err)
	}
	return nil
}
