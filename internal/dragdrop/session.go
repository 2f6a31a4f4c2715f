package dragdrop

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Session is what BeginDrag hands out: the identity of the entry being dragged.
// Nothing about the entry's time is captured; the drop re-reads it from the store.
type Session struct {
	Token      string    `json:"token"`
	TeamID     string    `json:"teamId"`
	PostID     string    `json:"postId"`
	ScheduleID string    `json:"scheduleId"`
	StartedAt  time.Time `json:"startedAt"`
}

// SessionStore keeps in-flight drags. Take is destructive: a token resolves at most once.
type SessionStore interface {
	Put(ctx context.Context, s Session, ttl time.Duration) error
	Take(ctx context.Context, token string) (Session, bool, error)
}

type memoryItem struct {
	session Session
	expires time.Time
}

// MemoryStore is a single-process SessionStore. Expired sessions are invisible to Take and are
// removed by Sweep.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]memoryItem{}, now: time.Now}
}

func (m *MemoryStore) Put(_ context.Context, s Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[s.Token] = memoryItem{session: s, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Take(_ context.Context, token string) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[token]
	if !ok {
		return Session{}, false, nil
	}
	delete(m.items, token)
	if !m.now().Before(it.expires) {
		return Session{}, false, nil
	}
	return it.session, true, nil
}

// Sweep drops every session that expired at or before now and reports how many went.
func (m *MemoryStore) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, it := range m.items {
		if !now.Before(it.expires) {
			delete(m.items, k)
			n++
		}
	}
	return n
}

// Len is the number of sessions currently held, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

const redisKeyPrefix = "dragdrop:"

// RedisStore shares drag sessions across API replicas. Redis expires keys on its own, so there is
// nothing to sweep.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// ConnectRedis parses a redis:// URL and pings the server before returning the client.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (r *RedisStore) Put(ctx context.Context, s Session, ttl time.Duration) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("drag session marshal: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+s.Token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("drag session store: %w", err)
	}
	return nil
}

func (r *RedisStore) Take(ctx context.Context, token string) (Session, bool, error) {
	payload, err := r.client.GetDel(ctx, redisKeyPrefix+token).Bytes()
	if err == redis.Nil {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("drag session take: %w", err)
	}
	var s Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return Session{}, false, fmt.Errorf("drag session unmarshal: %w", err)
	}
	return s, true, nil
}
