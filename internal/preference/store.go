package preference

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StorageKey names the preference slot.
const StorageKey = "preferredLang"

var (
	// ErrNoValue means the slot has never been written. It is the first-run
	// case, not a failure.
	ErrNoValue = errors.New("preference: no stored value")
	// ErrUnavailable means the persistence layer is disabled or unreachable.
	ErrUnavailable = errors.New("preference: store unavailable")
)

// Store is a single key-value slot holding a mode name.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, value string) error
}

// Slots hands out the Store of one viewer.
type Slots interface {
	Slot(viewerID string) Store
}

// MemoryStore keeps the slot in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	value string
	set   bool
}

// NewMemoryStore returns an empty slot.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return "", ErrNoValue
	}
	return s.value, nil
}

func (s *MemoryStore) Save(_ context.Context, value string) error {
	s.mu.Lock()
	s.value, s.set = value, true
	s.mu.Unlock()
	return nil
}

// DisabledStore stands in when persistence is turned off.
type DisabledStore struct{}

func (DisabledStore) Load(context.Context) (string, error) { return "", ErrUnavailable }
func (DisabledStore) Save(context.Context, string) error   { return ErrUnavailable }

// MemorySlots keeps one MemoryStore per viewer for the process lifetime.
type MemorySlots struct {
	mu     sync.Mutex
	stores map[string]*MemoryStore
}

func NewMemorySlots() *MemorySlots {
	return &MemorySlots{stores: make(map[string]*MemoryStore)}
}

func (m *MemorySlots) Slot(viewerID string) Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[viewerID]
	if !ok {
		s = NewMemoryStore()
		m.stores[viewerID] = s
	}
	return s
}

// RedisSlots stores each viewer's mode under StorageKey:<viewerID>.
// A zero ttl keeps the value until it is changed.
type RedisSlots struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSlots(rdb *redis.Client, ttl time.Duration) *RedisSlots {
	return &RedisSlots{rdb: rdb, ttl: ttl}
}

func (r *RedisSlots) Slot(viewerID string) Store {
	return &redisStore{rdb: r.rdb, key: StorageKey + ":" + viewerID, ttl: r.ttl}
}

type redisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func (s *redisStore) Load(ctx context.Context) (string, error) {
	v, err := s.rdb.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoValue
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, nil
}

func (s *redisStore) Save(ctx context.Context, value string) error {
	if err := s.rdb.Set(ctx, s.key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
