package convstate

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/storehouse-ng/storefront-chat/lru"
)

const defaultShards = 32

// MemoryConfig configures a MemoryStore.
type MemoryConfig struct {
	Capacity int           // total sessions held; least recently used are evicted beyond it
	TTL      time.Duration // inactivity lifetime of a state
	Shards   int           // default 32
	Now      func() time.Time
}

type shard struct {
	mu    sync.Mutex
	cache *lru.Cache[string, State]
}

// MemoryStore is an in-process Store split into independently locked shards.
type MemoryStore struct {
	shards []*shard
}

// NewMemoryStore creates a sharded in-memory store.
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	if cfg.Shards <= 0 {
		cfg.Shards = defaultShards
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	perShard := (cfg.Capacity + cfg.Shards - 1) / cfg.Shards
	if perShard < 1 {
		perShard = 1
	}

	m := &MemoryStore{shards: make([]*shard, cfg.Shards)}
	for i := range m.shards {
		m.shards[i] = &shard{
			cache: lru.New[string, State](perShard,
				lru.WithTTL[string, State](cfg.TTL),
				lru.WithClock[string, State](cfg.Now),
			),
		}
	}
	return m
}

func (m *MemoryStore) shardFor(sessionID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return m.shards[h.Sum32()%uint32(len(m.shards))]
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (State, bool, error) {
	sh := m.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	s, ok := sh.cache.Peek(sessionID)
	if !ok {
		return State{}, false, nil
	}
	return s.Clone(), true, nil
}

func (m *MemoryStore) Update(ctx context.Context, sessionID string, fn UpdateFunc) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}

	sh := m.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	current, exists := sh.cache.Get(sessionID)
	s := current.Clone()
	if fn(&s, exists) {
		sh.cache.Put(sessionID, s.Clone())
	}
	return s, nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	sh := m.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.cache.Delete(sessionID)
	return nil
}

func (m *MemoryStore) Sweep(_ context.Context) (int, error) {
	removed := 0
	for _, sh := range m.shards {
		sh.mu.Lock()
		removed += sh.cache.Sweep()
		sh.mu.Unlock()
	}
	return removed, nil
}

// CacheStats sums the cache counters of all shards.
func (m *MemoryStore) CacheStats() lru.Metrics {
	var total lru.Metrics
	for _, sh := range m.shards {
		s := sh.cache.Metrics()
		total.Hits += s.Hits
		total.Misses += s.Misses
		total.Evictions += s.Evictions
		total.Expirations += s.Expirations
	}
	return total
}

// Len returns the number of stored sessions, including expired ones not yet swept.
func (m *MemoryStore) Len() int {
	n := 0
	for _, sh := range m.shards {
		n += sh.cache.Len()
	}
	return n
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
