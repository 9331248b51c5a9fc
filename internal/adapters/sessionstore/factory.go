// Package sessionstore provides the conversation session backends: an
// in-memory map for single-process runs and a Redis driver for deployments
// where sessions must survive restarts or be shared across instances.
package sessionstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/growex/quotebot/internal/domain"
	"github.com/growex/quotebot/internal/ports"
)

type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

var (
	ErrInvalidStoreType = errors.New("invalid session store type")
	ErrInvalidConfig    = errors.New("invalid session store config")
)

// NewStore creates a session store of the given type. The Redis driver
// requires WithRedisClient.
func NewStore(storeType StoreType, opts ...StoreOption) (ports.SessionStore, error) {
	config := &storeConfig{}
	for _, opt := range opts {
		opt(config)
	}

	switch storeType {
	case StoreTypeMemory:
		return &memoryStore{
			sessions: make(map[string]domain.Session),
		}, nil

	case StoreTypeRedis:
		if config.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		ttl := config.redisTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		return &redisStore{
			client: config.redisClient,
			ttl:    ttl,
		}, nil

	default:
		return nil, ErrInvalidStoreType
	}
}

// memoryStore keeps sessions in a map. Values are stored by copy so callers
// never share a pointer with the store.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func (s *memoryStore) Get(ctx context.Context, userID string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[userID]
	if !exists {
		return nil, nil
	}
	copied := session
	return &copied, nil
}

func (s *memoryStore) Put(ctx context.Context, session *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if session == nil || session.UserID == "" {
		return ErrInvalidConfig
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.UserID] = *session
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	return nil
}

// redisStore serializes sessions to JSON under a prefixed key with a TTL.
// The TTL is refreshed on every read so an active conversation never lapses
// mid-flow.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

const redisKeyPrefix = "quotebot:session:"

func (s *redisStore) Get(ctx context.Context, userID string) (*domain.Session, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	session, err := decodeSession([]byte(val))
	if err != nil {
		return nil, err
	}

	_ = s.client.Expire(ctx, redisKeyPrefix+userID, s.ttl).Err()

	return session, nil
}

func (s *redisStore) Put(ctx context.Context, session *domain.Session) error {
	if session == nil || session.UserID == "" {
		return ErrInvalidConfig
	}

	val, err := encodeSession(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+session.UserID, val, s.ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, userID string) error {
	return s.client.Del(ctx, redisKeyPrefix+userID).Err()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
