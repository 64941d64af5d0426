// Package cache holds the two-tier listing cache: a bounded fast tier that
// survives restarts and an unbounded full tier rebuilt on demand.
package cache

import (
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HansLove/HouzeMaster-front/internal/property"
)

const (
	// DefaultLimit bounds the fast tier.
	DefaultLimit = 10
	// DefaultTTL is how long a fetch stays fresh.
	DefaultTTL = 5 * time.Minute
)

// Options configures a Store. Zero values get defaults.
type Options struct {
	Limit     int
	TTL       time.Duration
	Now       func() time.Time
	Persister Persister
	Logger    *zap.Logger
}

// Status is a point-in-time summary of the store.
type Status struct {
	FastCount   int           `json:"fast_count"`
	AllCount    int           `json:"all_count"`
	Limit       int           `json:"limit"`
	TTL         time.Duration `json:"ttl"`
	LastFetch   time.Time     `json:"last_fetch"`
	Valid       bool          `json:"valid"`
	Loading     bool          `json:"loading"`
	Initialized bool          `json:"initialized"`
	Error       string        `json:"error,omitempty"`
}

// Store is safe for concurrent use.
type Store struct {
	limit     int
	ttl       time.Duration
	now       func() time.Time
	persister Persister
	logger    *zap.Logger

	mu          sync.RWMutex
	fast        []property.DisplayRecord
	all         []property.DisplayRecord
	lastFetch   time.Time
	loading     int
	initialized bool
	err         string
}

// NewStore creates a store and restores the persisted fast tier, if any.
func NewStore(opts Options) *Store {
	s := &Store{
		limit:     opts.Limit,
		ttl:       opts.TTL,
		now:       opts.Now,
		persister: opts.Persister,
		logger:    opts.Logger,
		fast:      []property.DisplayRecord{},
		all:       []property.DisplayRecord{},
	}
	if s.limit <= 0 {
		s.limit = DefaultLimit
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.restore()
	return s
}

func (s *Store) restore() {
	if s.persister == nil {
		return
	}
	snap, err := s.persister.Load()
	if err != nil {
		s.logger.Warn("restoring cache snapshot", zap.Error(err))
		return
	}
	if snap == nil {
		return
	}
	s.fast = truncate(snap.Fast, s.limit)
	s.lastFetch = snap.LastFetch
	s.logger.Debug("restored cache snapshot",
		zap.Int("fast", len(s.fast)),
		zap.Time("last_fetch", s.lastFetch),
	)
}

// persist must be called with mu held.
func (s *Store) persist() {
	if s.persister == nil {
		return
	}
	snap := Snapshot{Fast: slices.Clone(s.fast), LastFetch: s.lastFetch}
	if err := s.persister.Save(snap); err != nil {
		s.logger.Warn("saving cache snapshot", zap.Error(err))
	}
}

// Limit returns the fast tier bound.
func (s *Store) Limit() int {
	return s.limit
}

// SetAll replaces the full tier, marks the store initialized and stamps
// the fetch time.
func (s *Store) SetAll(records []property.DisplayRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = slices.Clone(records)
	if s.all == nil {
		s.all = []property.DisplayRecord{}
	}
	s.initialized = true
	s.lastFetch = s.now()
	s.persist()
}

// UpdateFast derives the fast tier from records: featured first, order
// otherwise preserved, truncated to the limit.
func (s *Store) UpdateFast(records []property.DisplayRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fast = truncate(property.FeaturedFirst(records), s.limit)
	s.persist()
}

// SetFast replaces the fast tier as given, truncated to the limit.
func (s *Store) SetFast(records []property.DisplayRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fast = truncate(records, s.limit)
	s.persist()
}

// Add puts r at the front of the fast tier, replacing any entry with the
// same ID.
func (s *Store) Add(r property.DisplayRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]property.DisplayRecord, 0, len(s.fast)+1)
	next = append(next, r)
	for _, f := range s.fast {
		if f.ID != r.ID {
			next = append(next, f)
		}
	}
	s.fast = truncate(next, s.limit)
	s.persist()
}

// Remove drops the fast tier entry with the given ID.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fast = slices.DeleteFunc(s.fast, func(r property.DisplayRecord) bool {
		return r.ID == id
	})
	s.persist()
}

// Clear empties the fast tier only. The full tier and timestamp stay until
// the next successful fetch overwrites them.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fast = []property.DisplayRecord{}
	s.persist()
}

// Reset returns the store to its empty state, including the persisted
// snapshot.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fast = []property.DisplayRecord{}
	s.all = []property.DisplayRecord{}
	s.lastFetch = time.Time{}
	s.loading = 0
	s.initialized = false
	s.err = ""
	s.persist()
}

// Valid reports whether the last fetch is inside the TTL window.
func (s *Store) Valid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valid()
}

func (s *Store) valid() bool {
	if s.lastFetch.IsZero() {
		return false
	}
	return s.now().Sub(s.lastFetch) < s.ttl
}

// Fast returns a copy of the fast tier.
func (s *Store) Fast() []property.DisplayRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.fast)
}

// All returns a copy of the full tier.
func (s *Store) All() []property.DisplayRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.all)
}

// Featured returns featured records from the full tier.
func (s *Store) Featured() []property.DisplayRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return property.Featured(s.all)
}

// ByType returns full tier records whose type matches t.
func (s *Store) ByType(t string) []property.DisplayRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return property.ByType(s.all, t)
}

// ByCity returns full tier records whose location mentions city.
func (s *Store) ByCity(city string) []property.DisplayRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return property.ByCity(s.all, city)
}

// BySlug looks in the full tier, then the fast tier.
func (s *Store) BySlug(slug string) (property.DisplayRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tier := range [][]property.DisplayRecord{s.all, s.fast} {
		for _, r := range tier {
			if r.Slug == slug {
				return r, true
			}
		}
	}
	return property.DisplayRecord{}, false
}

// LastFetch returns the time of the last successful fetch.
func (s *Store) LastFetch() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFetch
}

// BeginLoading marks a fetch in flight. Every call must be paired with
// EndLoading.
func (s *Store) BeginLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading++
}

// EndLoading marks a fetch finished.
func (s *Store) EndLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading > 0 {
		s.loading--
	}
}

// Loading reports whether any fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// Initialized reports whether the full tier has been loaded since start.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// SetError records the message of the last failed fetch. An empty
// message clears it.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = msg
}

// Err returns the last recorded fetch error, or "".
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Status summarizes the store.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		FastCount:   len(s.fast),
		AllCount:    len(s.all),
		Limit:       s.limit,
		TTL:         s.ttl,
		LastFetch:   s.lastFetch,
		Valid:       s.valid(),
		Loading:     s.loading > 0,
		Initialized: s.initialized,
		Error:       s.err,
	}
}

func truncate(records []property.DisplayRecord, n int) []property.DisplayRecord {
	if len(records) > n {
		records = records[:n]
	}
	out := slices.Clone(records)
	if out == nil {
		out = []property.DisplayRecord{}
	}
	return out
}
