package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/spec-kit/noc-incidents/internal/domain"
)

// ErrTicketNotFound is returned by Find for unknown ticket ids.
var ErrTicketNotFound = errors.New("ticket not found")

// StoreCorruptionError reports persisted ticket data that cannot be read.
type StoreCorruptionError struct {
	Path string
	Err  error
}

func (e *StoreCorruptionError) Error() string {
	return fmt.Sprintf("ticket store %s is corrupt: %v", e.Path, e.Err)
}

func (e *StoreCorruptionError) Unwrap() error { return e.Err }

// TicketStore persists incident tickets. Tickets are append-only: once
// Create returns, the ticket is durable and visible to List and Find in
// creation order.
type TicketStore interface {
	Create(ctx context.Context, d domain.IncidentDescriptor) (domain.Ticket, error)
	List(ctx context.Context) ([]domain.Ticket, error)
	Find(ctx context.Context, id string) (domain.Ticket, error)
}
