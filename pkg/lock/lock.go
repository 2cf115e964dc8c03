package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrTimeout is returned when a lock could not be acquired in time.
var ErrTimeout = errors.New("timeout acquiring lock")

// Locker serializes work on a key. Acquire blocks until the key is free and
// returns a token that must be handed back to Release.
type Locker interface {
	Acquire(ctx context.Context, key string) (string, error)
	Release(ctx context.Context, key, token string) error
}

// RedisLocker is a Locker shared by every process talking to the same Redis.
type RedisLocker struct {
	client         *redis.Client
	prefix         string
	lockTTL        time.Duration
	acquireTimeout time.Duration
}

// NewRedis creates a RedisLocker.
//   - prefix: namespace prepended to every key (e.g. "mediable:")
//   - ttl: how long a lock is held before auto-expiry (prevents deadlock)
//   - acquireTimeout: max time to wait when trying to acquire a lock
func NewRedis(client *redis.Client, prefix string, ttl, acquireTimeout time.Duration) *RedisLocker {
	return &RedisLocker{
		client:         client,
		prefix:         prefix,
		lockTTL:        ttl,
		acquireTimeout: acquireTimeout,
	}
}

// Acquire attempts to obtain the lock for key, blocking with exponential
// backoff until success or timeout.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (string, error) {
	token := uuid.New().String()
	deadline := time.Now().Add(l.acquireTimeout)
	backoff := 50 * time.Millisecond

	for {
		ok, err := l.client.SetNX(ctx, l.prefix+key, token, l.lockTTL).Result()
		if err != nil {
			return "", fmt.Errorf("redis setnx: %w", err)
		}
		if ok {
			return token, nil
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("%w %s after %s", ErrTimeout, key, l.acquireTimeout)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}

		// exponential backoff, max 500ms
		backoff *= 2
		if backoff > 500*time.Millisecond {
			backoff = 500 * time.Millisecond
		}
	}
}

// releaseScript atomically checks that the lock value matches before deleting,
// preventing a client from releasing a lock it no longer owns.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

// Release releases the lock only if it is still owned by token.
func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	_, err := releaseScript.Run(ctx, l.client, []string{l.prefix + key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// KeyedMutex is an in-process Locker. A key's slot lives only while someone
// holds or waits for it.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*keySlot
}

type keySlot struct {
	sem   chan struct{}
	owner string
	refs  int // holder plus waiters
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*keySlot)}
}

func (m *KeyedMutex) ref(key string) *keySlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[key]
	if !ok {
		slot = &keySlot{sem: make(chan struct{}, 1)}
		m.slots[key] = slot
	}
	slot.refs++
	return slot
}

// unref expects m.mu to be held.
func (m *KeyedMutex) unref(key string, slot *keySlot) {
	slot.refs--
	if slot.refs == 0 {
		delete(m.slots, key)
	}
}

func (m *KeyedMutex) Acquire(ctx context.Context, key string) (string, error) {
	slot := m.ref(key)
	select {
	case slot.sem <- struct{}{}:
		token := uuid.New().String()
		m.mu.Lock()
		slot.owner = token
		m.mu.Unlock()
		return token, nil
	case <-ctx.Done():
		m.mu.Lock()
		m.unref(key, slot)
		m.mu.Unlock()
		return "", ctx.Err()
	}
}

func (m *KeyedMutex) Release(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[key]
	if !ok || slot.owner == "" {
		return nil
	}
	if slot.owner != token {
		return fmt.Errorf("release lock %s: not owner", key)
	}
	slot.owner = ""
	<-slot.sem
	m.unref(key, slot)
	return nil
}
