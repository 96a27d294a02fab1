package filecache

import (
	"context"
	"errors"
	"fmt"
	"hash/maphash"
	"sort"
	"sync"
	"sync/atomic"
)

// ErrCorrupt means a non-empty store could not be read. The session must not
// continue; the store should be reset.
var ErrCorrupt = errors.New("file cache is corrupt or unreadable")

// shardCount is the number of lock stripes. Must be a power of two.
const shardCount = 64

// Store is the durable backend of a Cache.
type Store interface {
	// Load returns every persisted record. An absent or empty store yields
	// no records and no error; an unreadable store returns an error wrapping ErrCorrupt.
	Load(ctx context.Context) ([]Record, error)
	// Save durably replaces the persisted state with records. It must be
	// atomic: after a crash either the previous or the new state is visible.
	Save(ctx context.Context, records []Record) error
	// Reset discards all persisted records.
	Reset(ctx context.Context) error
	// Location describes where the store lives, for diagnostics.
	Location() string
	// Close releases store resources.
	Close() error
}

type shard struct {
	mu      sync.RWMutex
	records map[string]Record
}

// Cache is the in-memory view of the change-detection cache. Lookups take a
// shared lock on one stripe; writes take the exclusive lock of the stripe
// owning the key, so writes to the same path are linearized and writes to
// disjoint paths are never lost.
type Cache struct {
	store  Store
	seed   maphash.Seed
	shards [shardCount]shard

	dirty atomic.Int64
}

// Open creates a cache backed by store and loads its persisted records.
func Open(ctx context.Context, store Store) (*Cache, error) {
	c := &Cache{
		store: store,
		seed:  maphash.MakeSeed(),
	}

	for i := range c.shards {
		c.shards[i].records = make(map[string]Record)
	}

	records, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cache from %s: %w", store.Location(), err)
	}

	for _, rec := range records {
		if !rec.Outcome.Valid() {
			return nil, fmt.Errorf("load cache from %s: %w: invalid outcome %d for %q",
				store.Location(), ErrCorrupt, rec.Outcome, rec.Path)
		}

		key := Key(rec.Path)
		rec.Path = key
		c.shardFor(key).records[key] = rec
	}

	return c, nil
}

func (c *Cache) shardFor(key string) *shard {
	h := maphash.String(c.seed, key)

	return &c.shards[h&(shardCount-1)]
}

// Lookup returns the record for path, if any.
func (c *Cache) Lookup(path string) (Record, bool) {
	key := Key(path)
	s := c.shardFor(key)

	s.mu.RLock()
	rec, ok := s.records[key]
	s.mu.RUnlock()

	return rec, ok
}

// Record creates or replaces the entry for path.
func (c *Cache) Record(path string, size int64, outcome Outcome) {
	key := Key(path)
	s := c.shardFor(key)

	s.mu.Lock()
	s.records[key] = Record{Path: key, Size: size, Outcome: outcome}
	s.mu.Unlock()

	c.dirty.Add(1)
}

// Len returns the number of records.
func (c *Cache) Len() int {
	total := 0

	for i := range c.shards {
		s := &c.shards[i]
		s.mu.RLock()
		total += len(s.records)
		s.mu.RUnlock()
	}

	return total
}

// Snapshot returns every record sorted by path.
func (c *Cache) Snapshot() []Record {
	out := make([]Record, 0, c.Len())

	for i := range c.shards {
		s := &c.shards[i]
		s.mu.RLock()

		for _, rec := range s.records {
			out = append(out, rec)
		}

		s.mu.RUnlock()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	return out
}

// CountByOutcome tallies records per outcome.
func (c *Cache) CountByOutcome() map[Outcome]int {
	counts := make(map[Outcome]int)

	for i := range c.shards {
		s := &c.shards[i]
		s.mu.RLock()

		for _, rec := range s.records {
			counts[rec.Outcome]++
		}

		s.mu.RUnlock()
	}

	return counts
}

// Dirty reports how many Record calls happened since the last Persist.
func (c *Cache) Dirty() int64 {
	return c.dirty.Load()
}

// Persist writes the current contents to the store.
func (c *Cache) Persist(ctx context.Context) error {
	pending := c.dirty.Load()

	err := c.store.Save(ctx, c.Snapshot())
	if err != nil {
		return fmt.Errorf("persist cache to %s: %w", c.store.Location(), err)
	}

	c.dirty.Add(-pending)

	return nil
}

// Reset clears every record in memory and in the store. It is a maintenance
// operation and must not run concurrently with a session.
func (c *Cache) Reset(ctx context.Context) error {
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		clear(s.records)
		s.mu.Unlock()
	}

	c.dirty.Store(0)

	err := c.store.Reset(ctx)
	if err != nil {
		return fmt.Errorf("reset cache at %s: %w", c.store.Location(), err)
	}

	return nil
}

// Location returns the store location.
func (c *Cache) Location() string {
	return c.store.Location()
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}
