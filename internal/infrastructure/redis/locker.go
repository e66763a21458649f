package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wms-platform/fulfillment-service/internal/application"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
)

const (
	defaultLockTTL      = 30 * time.Second
	defaultPollInterval = 25 * time.Millisecond
	releaseTimeout      = 2 * time.Second
)

// releaseScript deletes the key only while it still holds the owner token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// lockStore defines the operations used by Locker
type lockStore interface {
	SetNX(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

type clientStore struct {
	client redis.UniversalClient
}

func (s clientStore) SetNX(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, owner, ttl).Result()
}

func (s clientStore) Release(ctx context.Context, key, owner string) error {
	return releaseScript.Run(ctx, s.client, []string{key}, owner).Err()
}

// Locker implements application.Locker with Redis SETNX + TTL, so replicas
// sharing a Redis serialize on the same keys. A crashed holder's keys expire
// after the TTL.
type Locker struct {
	store        lockStore
	ttl          time.Duration
	pollInterval time.Duration
	logger       *logging.Logger
}

var _ application.Locker = (*Locker)(nil)

// NewLocker creates a Redis-backed locker
func NewLocker(client redis.UniversalClient, ttl time.Duration, logger *logging.Logger) *Locker {
	return newLocker(clientStore{client: client}, ttl, logger)
}

func newLocker(store lockStore, ttl time.Duration, logger *logging.Logger) *Locker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Locker{
		store:        store,
		ttl:          ttl,
		pollInterval: defaultPollInterval,
		logger:       logger.WithComponent("redis-locker"),
	}
}

func lockKey(key string) string {
	return buildKey("lock", key)
}

// Lock acquires every key in sorted order, polling until ctx is done
func (l *Locker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = application.SortedKeys(keys)
	owner := uuid.NewString()
	acquired := make([]string, 0, len(keys))

	for _, key := range keys {
		if err := l.acquire(ctx, lockKey(key), owner); err != nil {
			l.releaseAll(acquired, owner)
			return nil, fmt.Errorf("%w: %s: %v", application.ErrLockNotAcquired, key, err)
		}
		acquired = append(acquired, lockKey(key))
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.releaseAll(acquired, owner) })
	}, nil
}

func (l *Locker) acquire(ctx context.Context, key, owner string) error {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.store.SetNX(ctx, key, owner, l.ttl)
		if err != nil {
			return fmt.Errorf("setnx: %w", err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// releaseAll runs detached from the caller's context, which may be done already
func (l *Locker) releaseAll(keys []string, owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	for i := len(keys) - 1; i >= 0; i-- {
		if err := l.store.Release(ctx, keys[i], owner); err != nil {
			l.logger.WithError(err).Warn("Failed to release lock; it expires with its TTL", "key", keys[i])
		}
	}
}
