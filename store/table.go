// Package store implements a concurrent open-addressing hash table with
// quadratic probing, region locks and online growth.
package store

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
)

const growthThreshold = 75

// Merger combines the value already stored for a key with an incoming one.
// existing is the zero value when the key occupies a fresh slot.
// It runs while the slot's region is locked and must not call back into the table.
type Merger[V any] func(existing, incoming V) V

// Config sizes a Table and chooses its lock regions.
type Config struct {
	// Initial number of slots
	Size int
	// The table grows to Factor*size+1 slots
	Factor int
	// Growth past MaxSize slots fails with ErrResourceExhausted. Zero means unbounded.
	MaxSize int
	Regions Regions
	Logger  *slog.Logger
}

// DefaultConfig starts at 4096 slots, doubles on growth and never stops growing.
func DefaultConfig() Config {
	return Config{
		Size:    4096,
		Factor:  2,
		Regions: SqrtRegions{},
		Logger:  slog.Default(),
	}
}

type data[K, V any] struct {
	keys   []K
	values []V
	hashes []uint64
	locks  []sync.Mutex
}

func (d *data[K, V]) size() int { return len(d.keys) }

// Table is a concurrent open addressing hash table.
//
// Collisions are resolved by quadratic open addressing under region locks. The
// table grows when more than three quarters of its slots are in use or a lookup
// runs past the collision limit. Entries are never removed.
type Table[K, V any] struct {
	hasher  Hasher[K]
	regions Regions
	factor  int
	maxSize int
	log     *slog.Logger

	current atomic.Pointer[data[K, V]]
	growMu  sync.Mutex
	used    atomic.Int64
	grows   atomic.Int64
}

// New returns an empty table. Unset fields of cfg take their DefaultConfig values.
func New[K, V any](hasher Hasher[K], cfg Config) *Table[K, V] {
	def := DefaultConfig()
	if cfg.Size < 1 {
		cfg.Size = def.Size
	}
	if cfg.Factor < 2 {
		cfg.Factor = def.Factor
	}
	if cfg.Regions == nil {
		cfg.Regions = def.Regions
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	t := &Table[K, V]{
		hasher:  hasher,
		regions: cfg.Regions,
		factor:  cfg.Factor,
		maxSize: cfg.MaxSize,
		log:     cfg.Logger,
	}
	t.current.Store(t.alloc(cfg.Size))
	return t
}

func (t *Table[K, V]) alloc(size int) *data[K, V] {
	return &data[K, V]{
		keys:   make([]K, size),
		values: make([]V, size),
		hashes: make([]uint64, size),
		locks:  make([]sync.Mutex, t.regions.Buckets(size)),
	}
}

// The number of slots tried before the table is considered too full
func maxCollision(size int) int {
	return 32 + int(math.Sqrt(float64(size)))/16
}

func slotOf(hash uint64, i, size int) int {
	return int((hash + uint64(i)*uint64(i)) % uint64(size))
}

func (t *Table[K, V]) Size() int { return t.current.Load().size() }

// The number of occupied slots
func (t *Table[K, V]) Usage() int { return int(t.used.Load()) }

// The number of times the table has grown
func (t *Table[K, V]) Grows() int { return int(t.grows.Load()) }

// Locks the region guarding offset in d.
// Returns false, with nothing locked, if d is no longer the current data.
func (t *Table[K, V]) lock(d *data[K, V], offset int) (*sync.Mutex, bool) {
	mu := &d.locks[t.regions.BucketOf(offset, d.size())]
	mu.Lock()
	if t.current.Load() != d {
		mu.Unlock()
		return nil, false
	}
	return mu, true
}

func (t *Table[K, V]) hash(key K, hint uint64) uint64 {
	if hint != 0 {
		return hint
	}
	return t.hasher.Hash(key)
}

// Get looks up key. A zero hint means the hash is computed from the key.
func (t *Table[K, V]) Get(key K, hint uint64) (V, bool) {
	var zero V
	if !t.hasher.Valid(key) {
		return zero, false
	}
	h := t.hash(key, hint)
retry:
	for {
		d := t.current.Load()
		mc := maxCollision(d.size())
		for i := 0; i < mc; i++ {
			idx := slotOf(h, i, d.size())
			mu, ok := t.lock(d, idx)
			if !ok {
				continue retry
			}
			k := d.keys[idx]
			if !t.hasher.Valid(k) {
				mu.Unlock()
				return zero, false
			}
			if t.hasher.Equal(k, key) {
				v := d.values[idx]
				mu.Unlock()
				return v, true
			}
			mu.Unlock()
		}
		return zero, false
	}
}

// Insert stores value for key unless the key is already present.
// Returns the stored value and true if the key was newly inserted.
func (t *Table[K, V]) Insert(key K, value V, hint uint64) (V, bool, error) {
	v, delta, err := t.upsert(key, value, nil, hint)
	return v, delta == 1, err
}

// MergeInsert finds or creates the slot for key and stores merge(existing, value) in it.
// Returns the value now stored and the usage delta: 1 if the key took a fresh slot, 0 otherwise.
func (t *Table[K, V]) MergeInsert(key K, value V, merge Merger[V], hint uint64) (V, int, error) {
	return t.upsert(key, value, merge, hint)
}

// A nil merge keeps an existing value and stores value in a fresh slot.
func (t *Table[K, V]) upsert(key K, value V, merge Merger[V], hint uint64) (V, int, error) {
	var zero V
	if !t.hasher.Valid(key) {
		return zero, 0, fmt.Errorf("%w: %v", ErrInvalidKey, key)
	}
	h := t.hash(key, hint)
	for {
		d := t.current.Load()
		v, delta, res := t.mergeInto(d, key, value, merge, h)
		switch res {
		case merged:
			if delta == 1 && t.used.Add(1)*100 > int64(d.size())*growthThreshold {
				// The insert itself succeeded, running out of room surfaces on a later exhausted lookup.
				if err := t.grow(d, t.factor); err != nil {
					t.log.Warn("Table is over its growth threshold", "size", d.size(), "err", err)
				}
			}
			return v, delta, nil
		case exhausted:
			used := t.Usage()
			if used < d.size()/10 {
				t.log.Warn("Collision limit reached at a suspiciously high collision rate, check the hash function",
					"size", d.size(), "used", used)
			} else {
				t.log.Warn("Collision limit reached, growing table", "size", d.size(), "used", used)
			}
			if err := t.grow(d, t.factor); err != nil {
				return zero, 0, err
			}
		}
	}
}

type mergeResult int

const (
	merged mergeResult = iota
	stale
	exhausted
)

func (t *Table[K, V]) mergeInto(d *data[K, V], key K, value V, merge Merger[V], h uint64) (V, int, mergeResult) {
	var zero V
	mc := maxCollision(d.size())
	for i := 0; i < mc; i++ {
		idx := slotOf(h, i, d.size())
		mu, ok := t.lock(d, idx)
		if !ok {
			return zero, 0, stale
		}
		k := d.keys[idx]
		if !t.hasher.Valid(k) {
			d.keys[idx] = key
			d.hashes[idx] = h
			if merge != nil {
				value = merge(zero, value)
			}
			d.values[idx] = value
			v := d.values[idx]
			mu.Unlock()
			return v, 1, merged
		}
		if t.hasher.Equal(k, key) {
			if merge != nil {
				d.values[idx] = merge(d.values[idx], value)
			}
			v := d.values[idx]
			mu.Unlock()
			return v, 0, merged
		}
		mu.Unlock()
	}
	return zero, 0, exhausted
}

// Grow replaces the backing data with one factor times larger.
func (t *Table[K, V]) Grow(factor int) error {
	if factor < 2 {
		factor = t.factor
	}
	return t.grow(t.current.Load(), factor)
}

// grow is a no-op if d has already been replaced by another goroutine.
func (t *Table[K, V]) grow(d *data[K, V], factor int) error {
	t.growMu.Lock()
	defer t.growMu.Unlock()
	if t.current.Load() != d {
		return nil
	}

	for i := range d.locks {
		d.locks[i].Lock()
	}
	defer func() {
		for i := range d.locks {
			d.locks[i].Unlock()
		}
	}()

	size := d.size()
	for {
		size = factor*size + 1
		if t.maxSize > 0 && size > t.maxSize {
			return fmt.Errorf("%w: table of %d slots cannot grow to %d (max %d)", ErrResourceExhausted, d.size(), size, t.maxSize)
		}
		nd := t.alloc(size)
		if t.rehash(d, nd) {
			t.current.Store(nd)
			t.grows.Add(1)
			t.log.Debug("Grew table", "from", d.size(), "to", size, "used", t.Usage())
			return nil
		}
	}
}

// Moves every entry of d into nd. Returns false if some entry found no free slot.
func (t *Table[K, V]) rehash(d, nd *data[K, V]) bool {
	mc := maxCollision(nd.size())
outer:
	for j, k := range d.keys {
		if !t.hasher.Valid(k) {
			continue
		}
		h := d.hashes[j]
		for i := 0; i < mc; i++ {
			idx := slotOf(h, i, nd.size())
			if !t.hasher.Valid(nd.keys[idx]) {
				nd.keys[idx] = k
				nd.hashes[idx] = h
				nd.values[idx] = d.values[j]
				continue outer
			}
		}
		return false
	}
	return true
}
