package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrEmpty is returned by Pop when nothing arrived before the timeout.
	ErrEmpty = errors.New("queue empty")
	// ErrLockHeld is returned by TryLock when another holder owns the key.
	ErrLockHeld = errors.New("lock held by another worker")
)

// Queue is a FIFO of job ids.
type Queue interface {
	Push(ctx context.Context, name, id string) error
	Pop(ctx context.Context, name string, timeout time.Duration) (string, error)
}

// Locker hands out expiring exclusive locks.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, err error)
}

type redisQueue struct {
	rdb *redis.Client
}

func NewRedisQueue(rdb *redis.Client) Queue {
	return &redisQueue{rdb: rdb}
}

func (q *redisQueue) Push(ctx context.Context, name, id string) error {
	return q.rdb.LPush(ctx, name, id).Err()
}

func (q *redisQueue) Pop(ctx context.Context, name string, timeout time.Duration) (string, error) {
	res, err := q.rdb.BRPop(ctx, timeout, name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrEmpty
		}
		return "", err
	}
	// res is [queueName, value]
	if len(res) < 2 || res[1] == "" {
		return "", ErrEmpty
	}
	return res[1], nil
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

type redisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) Locker {
	return &redisLocker{rdb: rdb}
}

func (l *redisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
	}, nil
}

// MemoryQueue is an in-process Queue for single-instance deployments without Redis.
type MemoryQueue struct {
	mu    sync.Mutex
	lists map[string]chan string
	size  int
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 1024
	}
	return &MemoryQueue{lists: make(map[string]chan string), size: size}
}

func (q *MemoryQueue) list(name string) chan string {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, ok := q.lists[name]
	if !ok {
		ch = make(chan string, q.size)
		q.lists[name] = ch
	}
	return ch
}

func (q *MemoryQueue) Push(ctx context.Context, name, id string) error {
	select {
	case q.list(name) <- id:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop blocks up to timeout; zero waits until ctx is done.
func (q *MemoryQueue) Pop(ctx context.Context, name string, timeout time.Duration) (string, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case id := <-q.list(name):
		return id, nil
	case <-expired:
		return "", ErrEmpty
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// MemoryLocker is the in-process counterpart of the Redis locker.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryLock
	clock func() time.Time
}

type memoryLock struct {
	token   string
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]memoryLock), clock: time.Now}
}

func (l *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return nil, ErrLockHeld
	}
	token := uuid.NewString()
	l.held[key] = memoryLock{token: token, expires: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, ok := l.held[key]; ok && cur.token == token {
			delete(l.held, key)
		}
		return nil
	}, nil
}
