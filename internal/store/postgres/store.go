package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/models"
	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ticketNumberPad is a minimum width; sequences past 999 render at full
// length.
const ticketNumberPad = 3

type Store struct {
	pool           *pgxpool.Pool
	fallbackPrefix string
	outboxGrace    time.Duration
}

type Options struct {
	// FallbackPrefix is used when a service resolves without a usable
	// prefix. Empty means fail fast instead of degrading.
	FallbackPrefix string
	// OutboxGrace is how long a committed outbox row stays invisible to
	// relay reads, covering producing transactions that commit late.
	OutboxGrace time.Duration
}

func NewStore(pool *pgxpool.Pool, options Options) *Store {
	grace := options.OutboxGrace
	if grace <= 0 {
		grace = outboxGraceDefault
	}
	return &Store{
		pool:           pool,
		fallbackPrefix: options.FallbackPrefix,
		outboxGrace:    grace,
	}
}

func formatTicketNumber(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%0*d", prefix, ticketNumberPad, seq)
}

func (s *Store) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.TicketDetail, error) {
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.TicketDetail{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	prefix, err := s.resolvePrefix(ctx, tx, input.ServiceID)
	if err != nil {
		return models.TicketDetail{}, err
	}

	seq, err := allocateSequence(ctx, tx, input.ServiceID, input.BranchID, createdAt)
	if err != nil {
		return models.TicketDetail{}, err
	}
	ticketNumber := formatTicketNumber(prefix, seq)

	ticketID := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO tickets (
			ticket_id, ticket_number, branch_id, service_id,
			status, priority_level, customer_name, customer_phone, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, ticketID, ticketNumber, input.BranchID, input.ServiceID,
		models.StatusWaiting, input.PriorityLevel,
		nullIfEmpty(input.CustomerName), nullIfEmpty(input.CustomerPhone), createdAt)
	if err != nil {
		err = mapReferenceError(err)
		return models.TicketDetail{}, err
	}

	ticket := models.Ticket{
		TicketID:      ticketID,
		TicketNumber:  ticketNumber,
		BranchID:      input.BranchID,
		ServiceID:     input.ServiceID,
		Status:        models.StatusWaiting,
		PriorityLevel: input.PriorityLevel,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		CreatedAt:     createdAt,
	}
	if err = insertOutboxEvent(ctx, tx, ticket.BranchID, nil, store.EventTicketCreated, ticket); err != nil {
		return models.TicketDetail{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.TicketDetail{}, err
	}

	// Display names are resolved outside the write transaction.
	return s.GetTicket(ctx, ticketID)
}

func (s *Store) CallNext(ctx context.Context, input store.CallNextInput) (models.TicketDetail, bool, error) {
	calledAt := input.CalledAt
	if calledAt.IsZero() {
		calledAt = time.Now().UTC()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.TicketDetail{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	counter, err := lockCounter(ctx, tx, input.CounterID)
	if err != nil {
		return models.TicketDetail{}, false, err
	}
	if !counter.IsActive || counter.IsPaused {
		err = store.ErrCounterUnavailable
		return models.TicketDetail{}, false, err
	}

	// Dispatch for a branch is serialized with a transaction-scoped
	// advisory lock. A bare FOR UPDATE on the head row is not enough:
	// LIMIT runs before the row lock, so a caller blocked on a ticket
	// that gets dispatched re-checks only that row, skips it, and sees
	// an empty result instead of the next waiting ticket.
	_, err = tx.Exec(ctx, `
		SELECT pg_advisory_xact_lock(hashtextextended('ticket_dispatch:' || $1, 0))
	`, counter.BranchID)
	if err != nil {
		return models.TicketDetail{}, false, err
	}

	// Uncontended under the advisory lock; FOR UPDATE still fences
	// concurrent status patches on the same ticket.
	query := `
		SELECT ticket_id
		FROM tickets
		WHERE status = $1 AND branch_id = $2
	`
	args := []interface{}{models.StatusWaiting, counter.BranchID}
	if input.ServiceID != "" {
		query += " AND service_id = $3"
		args = append(args, input.ServiceID)
	}
	query += `
		ORDER BY priority_level DESC, created_at ASC
		LIMIT 1
		FOR UPDATE
	`

	var ticketID string
	row := tx.QueryRow(ctx, query, args...)
	if err = row.Scan(&ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Empty queue is a normal outcome, not an error.
			err = tx.Commit(ctx)
			return models.TicketDetail{}, false, err
		}
		return models.TicketDetail{}, false, err
	}

	ticket, err := dispatchTicket(ctx, tx, ticketID, counter, calledAt)
	if err != nil {
		return models.TicketDetail{}, false, err
	}

	if err = insertOutboxEvent(ctx, tx, ticket.BranchID, nil, store.EventTicketUpdated, ticket); err != nil {
		return models.TicketDetail{}, false, err
	}
	called := map[string]interface{}{
		"ticket_number": ticket.TicketNumber,
		"counter_name":  counter.Name,
		"timestamp":     calledAt,
	}
	if err = insertOutboxEvent(ctx, tx, ticket.BranchID, &counter.CounterID, store.EventTicketCalled, called); err != nil {
		return models.TicketDetail{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.TicketDetail{}, false, err
	}

	detail, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return models.TicketDetail{}, false, err
	}
	return detail, true, nil
}

func (s *Store) PatchTicket(ctx context.Context, ticketID string, patch store.TicketPatch) (models.TicketDetail, error) {
	occurredAt := patch.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.TicketDetail{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var currentStatus string
	row := tx.QueryRow(ctx, `
		SELECT status
		FROM tickets
		WHERE ticket_id = $1
		FOR UPDATE
	`, ticketID)
	if err = row.Scan(&currentStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrTicketNotFound
		}
		return models.TicketDetail{}, err
	}

	assignments := []string{}
	args := []interface{}{}
	argPos := 1

	if patch.Status != nil && *patch.Status != currentStatus {
		if !store.CanTransition(currentStatus, *patch.Status) {
			err = store.ErrInvalidTransition
			return models.TicketDetail{}, err
		}
		assignments = append(assignments, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *patch.Status)
		argPos++

		if *patch.Status == models.StatusServing {
			assignments = append(assignments,
				fmt.Sprintf("called_at = COALESCE(called_at, $%d)", argPos),
				fmt.Sprintf("started_at = COALESCE(started_at, $%d)", argPos))
			args = append(args, occurredAt)
			argPos++
		}
		if store.IsTerminal(*patch.Status) {
			assignments = append(assignments, fmt.Sprintf("ended_at = $%d", argPos))
			args = append(args, occurredAt)
			argPos++
		}
	}
	if patch.CounterID != nil {
		assignments = append(assignments, fmt.Sprintf("counter_id = $%d", argPos))
		args = append(args, nullIfEmpty(*patch.CounterID))
		argPos++
	}
	if patch.ServedBy != nil {
		assignments = append(assignments, fmt.Sprintf("served_by = $%d", argPos))
		args = append(args, nullIfEmpty(*patch.ServedBy))
		argPos++
	}
	if patch.PriorityLevel != nil {
		assignments = append(assignments, fmt.Sprintf("priority_level = $%d", argPos))
		args = append(args, *patch.PriorityLevel)
		argPos++
	}

	if len(assignments) == 0 {
		if err = tx.Commit(ctx); err != nil {
			return models.TicketDetail{}, err
		}
		return s.GetTicket(ctx, ticketID)
	}

	updateQuery := fmt.Sprintf(`
		UPDATE tickets
		SET %s
		WHERE ticket_id = $%d
		RETURNING %s
	`, strings.Join(assignments, ", "), argPos, ticketColumns)
	args = append(args, ticketID)

	var ticket models.Ticket
	row = tx.QueryRow(ctx, updateQuery, args...)
	if ticket, err = scanTicket(row); err != nil {
		err = mapReferenceError(err)
		return models.TicketDetail{}, err
	}

	if err = insertOutboxEvent(ctx, tx, ticket.BranchID, ticket.CounterID, store.EventTicketUpdated, ticket); err != nil {
		return models.TicketDetail{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.TicketDetail{}, err
	}

	return s.GetTicket(ctx, ticketID)
}

func (s *Store) GetTicket(ctx context.Context, ticketID string) (models.TicketDetail, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+detailColumns+`
		FROM tickets t
		JOIN services s ON s.service_id = t.service_id
		JOIN branches b ON b.branch_id = t.branch_id
		LEFT JOIN counters c ON c.counter_id = t.counter_id
		WHERE t.ticket_id = $1
	`, ticketID)
	detail, err := scanTicketDetail(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.TicketDetail{}, store.ErrTicketNotFound
		}
		return models.TicketDetail{}, err
	}
	return detail, nil
}

func (s *Store) ListTickets(ctx context.Context, filter store.TicketFilter) ([]models.TicketDetail, error) {
	query := `
		SELECT ` + detailColumns + `
		FROM tickets t
		JOIN services s ON s.service_id = t.service_id
		JOIN branches b ON b.branch_id = t.branch_id
		LEFT JOIN counters c ON c.counter_id = t.counter_id
		WHERE 1 = 1
	`
	args := []interface{}{}
	argPos := 1
	if filter.BranchID != "" {
		query += fmt.Sprintf(" AND t.branch_id = $%d", argPos)
		args = append(args, filter.BranchID)
		argPos++
	}
	if filter.ServiceID != "" {
		query += fmt.Sprintf(" AND t.service_id = $%d", argPos)
		args = append(args, filter.ServiceID)
		argPos++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND t.status = $%d", argPos)
		args = append(args, filter.Status)
		argPos++
	}
	query += " ORDER BY t.priority_level DESC, t.created_at ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.TicketDetail
	for rows.Next() {
		detail, err := scanTicketDetail(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) DeleteTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var ticket models.Ticket
	row := tx.QueryRow(ctx, `
		DELETE FROM tickets
		WHERE ticket_id = $1
		RETURNING `+ticketColumns+`
	`, ticketID)
	if ticket, err = scanTicket(row); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}

	if err = insertOutboxEvent(ctx, tx, ticket.BranchID, ticket.CounterID, store.EventTicketDeleted, ticket); err != nil {
		return models.Ticket{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

// allocateSequence issues the next per-service, per-branch, per-day
// number. The counter row is created idempotently, then locked for the
// remainder of the transaction, so no two transactions can compute the
// same value for one key and a rollback leaves the counter untouched.
func allocateSequence(ctx context.Context, tx pgx.Tx, serviceID, branchID string, day time.Time) (int64, error) {
	seqDate := day.UTC().Format("2006-01-02")

	_, err := tx.Exec(ctx, `
		INSERT INTO ticket_sequences (service_id, branch_id, seq_date, value)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (service_id, branch_id, seq_date) DO NOTHING
	`, serviceID, branchID, seqDate)
	if err != nil {
		return 0, err
	}

	var current int64
	row := tx.QueryRow(ctx, `
		SELECT value
		FROM ticket_sequences
		WHERE service_id = $1 AND branch_id = $2 AND seq_date = $3
		FOR UPDATE
	`, serviceID, branchID, seqDate)
	if err := row.Scan(&current); err != nil {
		return 0, err
	}

	next := current + 1
	_, err = tx.Exec(ctx, `
		UPDATE ticket_sequences
		SET value = $1
		WHERE service_id = $2 AND branch_id = $3 AND seq_date = $4
	`, next, serviceID, branchID, seqDate)
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) resolvePrefix(ctx context.Context, tx pgx.Tx, serviceID string) (string, error) {
	var prefix string
	row := tx.QueryRow(ctx, `
		SELECT prefix
		FROM services
		WHERE service_id = $1 AND active = TRUE
	`, serviceID)
	err := row.Scan(&prefix)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if s.fallbackPrefix != "" {
			return s.fallbackPrefix, nil
		}
		return "", store.ErrServiceNotFound
	case err != nil:
		return "", err
	}
	if prefix != "" {
		return prefix, nil
	}
	if s.fallbackPrefix != "" {
		return s.fallbackPrefix, nil
	}
	// The service exists but carries no prefix and no fallback is
	// configured. That is a configuration problem, not a missing entity.
	return "", store.ErrTicketPrefixUnset
}

type counterRow struct {
	CounterID string
	BranchID  string
	Name      string
	StaffID   *string
	IsActive  bool
	IsPaused  bool
}

func lockCounter(ctx context.Context, tx pgx.Tx, counterID string) (counterRow, error) {
	var counter counterRow
	var staffID sql.NullString
	row := tx.QueryRow(ctx, `
		SELECT counter_id, branch_id, name, staff_id, is_active, is_paused
		FROM counters
		WHERE counter_id = $1
		FOR SHARE
	`, counterID)
	if err := row.Scan(&counter.CounterID, &counter.BranchID, &counter.Name, &staffID, &counter.IsActive, &counter.IsPaused); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return counterRow{}, store.ErrCounterNotFound
		}
		return counterRow{}, err
	}
	counter.StaffID = nullStringPtr(staffID)
	return counter, nil
}

func dispatchTicket(ctx context.Context, tx pgx.Tx, ticketID string, counter counterRow, calledAt time.Time) (models.Ticket, error) {
	row := tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = $1,
			counter_id = $2,
			served_by = $3,
			called_at = $4,
			started_at = $4
		WHERE ticket_id = $5
		RETURNING `+ticketColumns+`
	`, models.StatusServing, counter.CounterID, counter.StaffID, calledAt, ticketID)
	return scanTicket(row)
}

const ticketColumns = `ticket_id, ticket_number, branch_id, service_id, counter_id, served_by,
	status, priority_level, customer_name, customer_phone,
	created_at, called_at, started_at, ended_at`

const detailColumns = `t.ticket_id, t.ticket_number, t.branch_id, t.service_id, t.counter_id, t.served_by,
	t.status, t.priority_level, t.customer_name, t.customer_phone,
	t.created_at, t.called_at, t.started_at, t.ended_at,
	s.name, b.name, c.name`

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var ticket models.Ticket
	var counterID, servedBy, customerName, customerPhone sql.NullString
	var calledAt, startedAt, endedAt sql.NullTime
	err := row.Scan(
		&ticket.TicketID, &ticket.TicketNumber, &ticket.BranchID, &ticket.ServiceID,
		&counterID, &servedBy, &ticket.Status, &ticket.PriorityLevel,
		&customerName, &customerPhone,
		&ticket.CreatedAt, &calledAt, &startedAt, &endedAt,
	)
	if err != nil {
		return models.Ticket{}, err
	}
	ticket.CounterID = nullStringPtr(counterID)
	ticket.ServedBy = nullStringPtr(servedBy)
	ticket.CustomerName = customerName.String
	ticket.CustomerPhone = customerPhone.String
	ticket.CalledAt = nullTimePtr(calledAt)
	ticket.StartedAt = nullTimePtr(startedAt)
	ticket.EndedAt = nullTimePtr(endedAt)
	return ticket, nil
}

func scanTicketDetail(row pgx.Row) (models.TicketDetail, error) {
	var detail models.TicketDetail
	var counterID, servedBy, customerName, customerPhone, counterName sql.NullString
	var calledAt, startedAt, endedAt sql.NullTime
	err := row.Scan(
		&detail.TicketID, &detail.TicketNumber, &detail.BranchID, &detail.ServiceID,
		&counterID, &servedBy, &detail.Status, &detail.PriorityLevel,
		&customerName, &customerPhone,
		&detail.CreatedAt, &calledAt, &startedAt, &endedAt,
		&detail.ServiceName, &detail.BranchName, &counterName,
	)
	if err != nil {
		return models.TicketDetail{}, err
	}
	detail.CounterID = nullStringPtr(counterID)
	detail.ServedBy = nullStringPtr(servedBy)
	detail.CustomerName = customerName.String
	detail.CustomerPhone = customerPhone.String
	detail.CalledAt = nullTimePtr(calledAt)
	detail.StartedAt = nullTimePtr(startedAt)
	detail.EndedAt = nullTimePtr(endedAt)
	detail.CounterName = nullStringPtr(counterName)
	return detail, nil
}

// mapReferenceError converts foreign-key violations into the matching
// not-found sentinel so callers see a client error instead of a 500.
func mapReferenceError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23503" {
		return err
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "branch"):
		return store.ErrBranchNotFound
	case strings.Contains(pgErr.ConstraintName, "service"):
		return store.ErrServiceNotFound
	case strings.Contains(pgErr.ConstraintName, "counter"):
		return store.ErrCounterNotFound
	default:
		return store.ErrInvalidReference
	}
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	return &value.Time
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	return &value.String
}
