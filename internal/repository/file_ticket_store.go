package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/noc-incidents/internal/domain"
)

// FileTicketStoreOptions tunes a FileTicketStore.
type FileTicketStoreOptions struct {
	// RecoverCorrupt treats an unreadable store file as empty. The bad file
	// is moved aside on the next Create.
	RecoverCorrupt bool
	Logger         *zap.Logger
	Now            func() time.Time
	NewID          func() string
}

// FileTicketStore keeps all tickets in a single JSON array on disk.
//
// Writers serialize on an in-process mutex and an advisory lock on
// "<path>.lock", so concurrent processes sharing the file do not lose
// updates. Every write replaces the file with a temp-file rename; readers
// take no lock and always see a complete collection.
type FileTicketStore struct {
	path string
	opts FileTicketStoreOptions
	mu   sync.Mutex
	lock *flock.Flock
}

// NewFileTicketStore opens a store at path, creating its directory.
func NewFileTicketStore(path string, opts FileTicketStoreOptions) (*FileTicketStore, error) {
	if path == "" {
		return nil, errors.New("ticket store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ticket store directory: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &FileTicketStore{path: path, opts: opts, lock: flock.New(path + ".lock")}, nil
}

// Path returns the backing file.
func (s *FileTicketStore) Path() string {
	return s.path
}

// Create stamps d with a fresh id and the current
// time, appends it and persists the whole collection before returning.
func (s *FileTicketStore) Create(ctx context.Context, d domain.IncidentDescriptor) (domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return domain.Ticket{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return domain.Ticket{}, fmt.Errorf("lock ticket store: %w", err)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.opts.Logger.Warn("unlock ticket store", zap.Error(err))
		}
	}()

	tickets, err := s.load()
	if err != nil {
		var corrupt *StoreCorruptionError
		if !s.opts.RecoverCorrupt || !errors.As(err, &corrupt) {
			return domain.Ticket{}, err
		}
		if err := s.quarantine(corrupt); err != nil {
			return domain.Ticket{}, err
		}
		tickets = nil
	}

	ticket := domain.NewTicket(s.opts.NewID(), d, s.opts.Now().UTC().Truncate(time.Second))
	tickets = append(tickets, ticket)
	if err := s.persist(tickets); err != nil {
		return domain.Ticket{}, err
	}
	return ticket, nil
}

// List returns every ticket in creation order.
func (s *FileTicketStore) List(ctx context.Context) ([]domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tickets, err := s.load()
	if err != nil {
		return s.recoverRead(err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// Find returns the ticket with the given id or ErrTicketNotFound.
func (s *FileTicketStore) Find(ctx context.Context, id string) (domain.Ticket, error) {
	tickets, err := s.List(ctx)
	if err != nil {
		return domain.Ticket{}, err
	}
	for _, t := range tickets {
		if t.TicketID == id {
			return t, nil
		}
	}
	return domain.Ticket{}, ErrTicketNotFound
}

func (s *FileTicketStore) load() ([]domain.Ticket, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ticket store: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var tickets []domain.Ticket
	if err := json.Unmarshal(data, &tickets); err != nil {
		return nil, &StoreCorruptionError{Path: s.path, Err: err}
	}
	return tickets, nil
}

func (s *FileTicketStore) recoverRead(err error) ([]domain.Ticket, error) {
	var corrupt *StoreCorruptionError
	if !s.opts.RecoverCorrupt || !errors.As(err, &corrupt) {
		return nil, err
	}
	s.opts.Logger.Error("ticket store unreadable, serving empty store", zap.Error(err))
	return []domain.Ticket{}, nil
}

func (s *FileTicketStore) quarantine(corrupt *StoreCorruptionError) error {
	aside := fmt.Sprintf("%s.corrupt.%d", s.path, s.opts.Now().Unix())
	if err := os.Rename(s.path, aside); err != nil {
		return fmt.Errorf("move corrupt ticket store aside: %w", err)
	}
	s.opts.Logger.Error("ticket store corrupt, starting empty",
		zap.String("quarantined", aside),
		zap.Error(corrupt))
	return nil
}

func (s *FileTicketStore) persist(tickets []domain.Ticket) error {
	data, err := json.MarshalIndent(tickets, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal tickets: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if _, err := os.Stat(tmpPath); err == nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace ticket store: %w", err)
	}
	return nil
}

// Ping reports whether the store file is readable.
func (s *FileTicketStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.load()
	return err
}
