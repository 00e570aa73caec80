package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStore is the process-local physical store shared by all limiters.
// Each consumer works on its own Table, so cleanup and growth of one namespace
// never touch another.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]*Table
	closed atomic.Bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]*Table),
	}
}

// Table returns the handle for namespace, creating it on first use.
// Returns nil once the store is closed; a nil *Table behaves as unavailable.
func (s *MemoryStore) Table(namespace string) *Table {
	if s == nil || s.closed.Load() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[namespace]
	if !ok {
		t = &Table{namespace: namespace, store: s}
		s.tables[namespace] = t
	}
	return t
}

// Tables returns a TableFunc handing out the tables of s.
func (s *MemoryStore) Tables() TableFunc {
	return func(namespace string) Store {
		return s.Table(namespace)
	}
}

// Namespaces lists the tables created so far.
func (s *MemoryStore) Namespaces() []string {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	return names
}

// Available reports whether the store accepts writes.
func (s *MemoryStore) Available() bool {
	return s != nil && !s.closed.Load()
}

// Close tears the store down. Tables handed out earlier stay safe to call
// but report absent entries and refuse writes. Safe to call multiple times.
func (s *MemoryStore) Close() error {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tables {
		t.counters.Clear()
		t.lockouts.Clear()
	}
	s.tables = make(map[string]*Table)
	return nil
}

type counterEntry struct {
	mu    sync.Mutex
	count int64
	start time.Time
	// dead is set when the entry is removed from the map; holders must reload.
	dead bool
}

// Table is one namespace of a MemoryStore. Counters are guarded per key,
// so unrelated identifiers never contend on a shared lock.
type Table struct {
	namespace string
	store     *MemoryStore
	counters  sync.Map // CounterKey -> *counterEntry
	lockouts  sync.Map // string -> time.Time
}

var _ Store = (*Table)(nil)

// Namespace returns the table name.
func (t *Table) Namespace() string {
	if t == nil {
		return ""
	}
	return t.namespace
}

// Available reports whether the table can serve reads and writes.
func (t *Table) Available() bool {
	return t != nil && t.store != nil && !t.store.closed.Load()
}

func (t *Table) loadOrInit(key CounterKey, now time.Time) *counterEntry {
	if v, ok := t.counters.Load(key); ok {
		return v.(*counterEntry)
	}
	v, _ := t.counters.LoadOrStore(key, &counterEntry{start: now})
	return v.(*counterEntry)
}

// GetOrInit returns the entry of key, creating a zero entry starting at now.
func (t *Table) GetOrInit(key CounterKey, now time.Time) Entry {
	if !t.Available() {
		return Entry{}
	}
	for {
		e := t.loadOrInit(key, now)
		e.mu.Lock()
		if e.dead {
			e.mu.Unlock()
			continue
		}
		snap := Entry{Count: e.count, WindowStart: e.start}
		e.mu.Unlock()
		return snap
	}
}

// Increment counts one attempt, rotating a stale window first.
func (t *Table) Increment(key CounterKey, now time.Time) (int64, error) {
	if !t.Available() {
		return 0, ErrStoreUnavailable
	}
	for {
		e := t.loadOrInit(key, now)
		e.mu.Lock()
		if e.dead {
			e.mu.Unlock()
			continue
		}
		if now.Sub(e.start) >= key.Window {
			e.start = now
			e.count = 0
		}
		e.count++
		n := e.count
		e.mu.Unlock()
		return n, nil
	}
}

// Read returns the entry of key without creating or rotating it.
func (t *Table) Read(key CounterKey) (Entry, bool) {
	if !t.Available() {
		return Entry{}, false
	}
	v, ok := t.counters.Load(key)
	if !ok {
		return Entry{}, false
	}
	e := v.(*counterEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead {
		return Entry{}, false
	}
	return Entry{Count: e.count, WindowStart: e.start}, true
}

// Delete removes the entry of key.
func (t *Table) Delete(key CounterKey) error {
	if !t.Available() {
		return ErrStoreUnavailable
	}
	if v, ok := t.counters.LoadAndDelete(key); ok {
		e := v.(*counterEntry)
		e.mu.Lock()
		e.dead = true
		e.mu.Unlock()
	}
	return nil
}

// SetLockout locks identifier until the later of until and any existing deadline.
func (t *Table) SetLockout(identifier string, until time.Time) error {
	if !t.Available() {
		return ErrStoreUnavailable
	}
	for {
		cur, loaded := t.lockouts.LoadOrStore(identifier, until)
		if !loaded {
			return nil
		}
		if !cur.(time.Time).Before(until) {
			return nil
		}
		if t.lockouts.CompareAndSwap(identifier, cur, until) {
			return nil
		}
	}
}

// GetLockout returns the lockout deadline of identifier.
func (t *Table) GetLockout(identifier string) (time.Time, bool) {
	if !t.Available() {
		return time.Time{}, false
	}
	v, ok := t.lockouts.Load(identifier)
	if !ok {
		return time.Time{}, false
	}
	return v.(time.Time), true
}

// ClearLockout removes the lockout of identifier.
func (t *Table) ClearLockout(identifier string) error {
	if !t.Available() {
		return ErrStoreUnavailable
	}
	t.lockouts.Delete(identifier)
	return nil
}

// ScanExpired lists counters past their grace window and lockouts past their deadline.
func (t *Table) ScanExpired(now time.Time) Expired {
	var out Expired
	if !t.Available() {
		return out
	}

	t.counters.Range(func(k, v any) bool {
		key := k.(CounterKey)
		e := v.(*counterEntry)
		e.mu.Lock()
		expired := !e.dead && counterExpired(e.start, key.Window, now)
		e.mu.Unlock()
		if expired {
			out.Counters = append(out.Counters, key)
		}
		return true
	})

	t.lockouts.Range(func(k, v any) bool {
		if !v.(time.Time).After(now) {
			out.Lockouts = append(out.Lockouts, k.(string))
		}
		return true
	})

	return out
}

// EvictCounter deletes key if it is still expired at now.
func (t *Table) EvictCounter(key CounterKey, now time.Time) bool {
	if !t.Available() {
		return false
	}
	v, ok := t.counters.Load(key)
	if !ok {
		return false
	}
	e := v.(*counterEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead || !counterExpired(e.start, key.Window, now) {
		return false
	}
	e.dead = true
	t.counters.CompareAndDelete(key, e)
	return true
}

// EvictLockout deletes the lockout of identifier if it is still expired at now.
func (t *Table) EvictLockout(identifier string, now time.Time) bool {
	if !t.Available() {
		return false
	}
	v, ok := t.lockouts.Load(identifier)
	if !ok || v.(time.Time).After(now) {
		return false
	}
	return t.lockouts.CompareAndDelete(identifier, v)
}

// Len returns the number of stored counters and lockouts.
func (t *Table) Len() (counters, lockouts int) {
	if !t.Available() {
		return 0, 0
	}
	t.counters.Range(func(_, _ any) bool {
		counters++
		return true
	})
	t.lockouts.Range(func(_, _ any) bool {
		lockouts++
		return true
	})
	return counters, lockouts
}
