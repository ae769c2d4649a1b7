package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// insertOutboxEvent records an event inside the mutating transaction so
// it becomes visible to the relay only if the mutation commits. The
// timestamp is the database's transaction start time, never the
// application clock.
func insertOutboxEvent(ctx context.Context, tx pgx.Tx, branchID string, counterID *string, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, branch_id, counter_id, type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, uuid.NewString(), branchID, counterID, eventType, payloadJSON)
	return err
}

const zeroUUID = "00000000-0000-0000-0000-000000000000"

// outboxGraceDefault bounds how long a producing transaction may stay
// open without its events being jumped by the relay cursor.
const outboxGraceDefault = 5 * time.Second

// ListOutboxEvents returns committed events past the offset. Rows
// younger than the grace window are withheld: the cursor orders by
// created_at, which is the producer's transaction start time, so an
// event from a still-open transaction would otherwise be skipped
// forever once the cursor moved past it.
func (s *Store) ListOutboxEvents(ctx context.Context, offset store.OutboxOffset, limit int) ([]store.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset.LastEventID == "" {
		offset.LastEventID = zeroUUID
	}
	if offset.LastEventTime.IsZero() {
		offset.LastEventTime = time.Unix(0, 0).UTC()
	}
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, branch_id, counter_id, type, payload, created_at
		FROM outbox_events
		WHERE (created_at, event_id) > ($1, $2)
		  AND created_at <= now() - make_interval(secs => $3)
		ORDER BY created_at ASC, event_id ASC
		LIMIT $4
	`, offset.LastEventTime, offset.LastEventID, s.outboxGrace.Seconds(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []store.OutboxEvent
	for rows.Next() {
		var event store.OutboxEvent
		var counterID sql.NullString
		if err := rows.Scan(&event.EventID, &event.BranchID, &counterID, &event.Type, &event.Payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		event.CounterID = nullStringPtr(counterID)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) GetRelayOffset(ctx context.Context, consumer string) (store.OutboxOffset, error) {
	var offset store.OutboxOffset
	row := s.pool.QueryRow(ctx, `
		SELECT last_event_time, last_event_id
		FROM relay_offsets
		WHERE consumer = $1
	`, consumer)
	if err := row.Scan(&offset.LastEventTime, &offset.LastEventID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.OutboxOffset{}, nil
		}
		return store.OutboxOffset{}, err
	}
	return offset, nil
}

func (s *Store) UpdateRelayOffset(ctx context.Context, consumer string, offset store.OutboxOffset) error {
	if offset.LastEventID == "" {
		offset.LastEventID = zeroUUID
	}
	if offset.LastEventTime.IsZero() {
		offset.LastEventTime = time.Unix(0, 0).UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO relay_offsets (consumer, last_event_time, last_event_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (consumer)
		DO UPDATE SET last_event_time = EXCLUDED.last_event_time, last_event_id = EXCLUDED.last_event_id
	`, consumer, offset.LastEventTime, offset.LastEventID)
	return err
}

func (s *Store) CleanupOutbox(ctx context.Context, before time.Time) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM outbox_events
		WHERE created_at < $1
	`, before)
	return err
}
