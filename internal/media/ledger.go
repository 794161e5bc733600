package media

import (
	"context"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultLedgerKey is the Redis hash holding orphaned blob URLs and their retry counts.
const DefaultLedgerKey = "media:orphans"

// OrphanLedger remembers blob URLs whose cleanup failed so they can be retried.
type OrphanLedger interface {
	// Record adds url with zero attempts; recording a known url keeps its count.
	Record(ctx context.Context, url string) error
	// Entries returns every recorded url with its failed attempt count.
	Entries(ctx context.Context) (map[string]int, error)
	// Attempt increments the attempt count for url and returns the new value.
	Attempt(ctx context.Context, url string) (int, error)
	// Forget removes url.
	Forget(ctx context.Context, url string) error
}

// RedisLedger stores the ledger in a single Redis hash.
type RedisLedger struct {
	client *redis.Client
	key    string
}

// NewRedisLedger creates a RedisLedger. An empty key selects DefaultLedgerKey.
func NewRedisLedger(client *redis.Client, key string) *RedisLedger {
	if key == "" {
		key = DefaultLedgerKey
	}
	return &RedisLedger{client: client, key: key}
}

func (l *RedisLedger) Record(ctx context.Context, url string) error {
	return l.client.HSetNX(ctx, l.key, url, 0).Err()
}

func (l *RedisLedger) Entries(ctx context.Context) (map[string]int, error) {
	raw, err := l.client.HGetAll(ctx, l.key).Result()
	if err != nil {
		return nil, err
	}
	entries := make(map[string]int, len(raw))
	for url, value := range raw {
		// a malformed count is treated as a fresh entry
		attempts, _ := strconv.Atoi(value)
		entries[url] = attempts
	}
	return entries, nil
}

func (l *RedisLedger) Attempt(ctx context.Context, url string) (int, error) {
	n, err := l.client.HIncrBy(ctx, l.key, url, 1).Result()
	return int(n), err
}

func (l *RedisLedger) Forget(ctx context.Context, url string) error {
	return l.client.HDel(ctx, l.key, url).Err()
}

// MemoryLedger keeps the ledger in process memory; entries are lost on restart.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]int
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]int)}
}

func (l *MemoryLedger) Record(_ context.Context, url string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[url]; !ok {
		l.entries[url] = 0
	}
	return nil
}

func (l *MemoryLedger) Entries(_ context.Context) (map[string]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int, len(l.entries))
	for k, v := range l.entries {
		out[k] = v
	}
	return out, nil
}

func (l *MemoryLedger) Attempt(_ context.Context, url string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[url]++
	return l.entries[url], nil
}

func (l *MemoryLedger) Forget(_ context.Context, url string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, url)
	return nil
}
