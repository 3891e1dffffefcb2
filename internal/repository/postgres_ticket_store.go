package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/noc-incidents/internal/domain"
)

// PostgresTicketStore keeps tickets in the incident_tickets table. Creation
// order is the table's sequence column.
type PostgresTicketStore struct {
	pool  *pgxpool.Pool
	now   func() time.Time
	newID func() string
}

// NewPostgresTicketStore instantiates the store.
func NewPostgresTicketStore(pool *pgxpool.Pool) *PostgresTicketStore {
	return &PostgresTicketStore{pool: pool, now: time.Now, newID: uuid.NewString}
}

func (s *PostgresTicketStore) Create(ctx context.Context, d domain.IncidentDescriptor) (domain.Ticket, error) {
	ticket := domain.NewTicket(s.newID(), d, s.now().UTC().Truncate(time.Second))
	const query = `
        INSERT INTO incident_tickets (ticket_id, issue_type, severity, description, solution, priority, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	if _, err := s.pool.Exec(ctx, query,
		ticket.TicketID,
		ticket.IssueType,
		ticket.Severity,
		ticket.Description,
		ticket.Solution,
		ticket.Priority,
		ticket.Timestamp,
	); err != nil {
		return domain.Ticket{}, err
	}
	return ticket, nil
}

func (s *PostgresTicketStore) List(ctx context.Context) ([]domain.Ticket, error) {
	const query = `
        SELECT ticket_id, issue_type, severity, description, solution, priority, created_at
        FROM incident_tickets ORDER BY seq`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (s *PostgresTicketStore) Find(ctx context.Context, id string) (domain.Ticket, error) {
	const query = `
        SELECT ticket_id, issue_type, severity, description, solution, priority, created_at
        FROM incident_tickets WHERE ticket_id=$1`
	ticket, err := scanTicket(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Ticket{}, ErrTicketNotFound
	}
	return ticket, err
}

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var t domain.Ticket
	if err := row.Scan(
		&t.TicketID,
		&t.IssueType,
		&t.Severity,
		&t.Description,
		&t.Solution,
		&t.Priority,
		&t.Timestamp,
	); err != nil {
		return domain.Ticket{}, err
	}
	t.Timestamp = t.Timestamp.UTC()
	return t, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
