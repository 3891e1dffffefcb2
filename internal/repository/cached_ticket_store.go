package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/noc-incidents/internal/domain"
)

// TicketCache is a read-through cache of individual tickets.
type TicketCache interface {
	Get(ctx context.Context, id string) (domain.Ticket, bool, error)
	Set(ctx context.Context, t domain.Ticket) error
}

// CachedTicketStore fronts a TicketStore with a TicketCache for Find.
// Tickets never change after creation, so cached entries cannot go stale.
// Cache failures are logged and fall through to the store.
type CachedTicketStore struct {
	store  TicketStore
	cache  TicketCache
	logger *zap.Logger
}

// NewCachedTicketStore wraps store.
func NewCachedTicketStore(store TicketStore, cache TicketCache, logger *zap.Logger) *CachedTicketStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedTicketStore{store: store, cache: cache, logger: logger}
}

func (s *CachedTicketStore) Create(ctx context.Context, d domain.IncidentDescriptor) (domain.Ticket, error) {
	t, err := s.store.Create(ctx, d)
	if err != nil {
		return t, err
	}
	if err := s.cache.Set(ctx, t); err != nil {
		s.logger.Warn("cache ticket", zap.String("ticket_id", t.TicketID), zap.Error(err))
	}
	return t, nil
}

func (s *CachedTicketStore) List(ctx context.Context) ([]domain.Ticket, error) {
	return s.store.List(ctx)
}

func (s *CachedTicketStore) Find(ctx context.Context, id string) (domain.Ticket, error) {
	t, ok, err := s.cache.Get(ctx, id)
	if err != nil {
		s.logger.Warn("ticket cache lookup", zap.String("ticket_id", id), zap.Error(err))
	}
	if ok {
		return t, nil
	}
	t, err = s.store.Find(ctx, id)
	if err != nil {
		return t, err
	}
	if err := s.cache.Set(ctx, t); err != nil {
		s.logger.Warn("cache ticket", zap.String("ticket_id", id), zap.Error(err))
	}
	return t, nil
}

const ticketCachePrefix = "noc:ticket:"

// RedisTicketCache stores tickets as JSON strings with a TTL.
type RedisTicketCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTicketCache instantiates the cache. A zero ttl keeps entries
// until evicted.
func NewRedisTicketCache(client *redis.Client, ttl time.Duration) *RedisTicketCache {
	return &RedisTicketCache{client: client, ttl: ttl}
}

func (c *RedisTicketCache) Get(ctx context.Context, id string) (domain.Ticket, bool, error) {
	data, err := c.client.Get(ctx, ticketCachePrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Ticket{}, false, nil
	}
	if err != nil {
		return domain.Ticket{}, false, err
	}
	var t domain.Ticket
	if err := json.Unmarshal(data, &t); err != nil {
		return domain.Ticket{}, false, err
	}
	return t, true, nil
}

func (c *RedisTicketCache) Set(ctx context.Context, t domain.Ticket) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, ticketCachePrefix+t.TicketID, data, c.ttl).Err()
}
