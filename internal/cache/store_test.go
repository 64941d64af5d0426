package cache

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/HansLove/HouzeMaster-front/internal/db"
	"github.com/HansLove/HouzeMaster-front/internal/property"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func listing(id string, featured bool) property.DisplayRecord {
	return property.DisplayRecord{
		ID:           id,
		Title:        "Listing " + id,
		Slug:         "listing-" + id,
		Featured:     featured,
		PropertyType: "Casa",
		Location:     "Centro, Tulum",
		City:         "Tulum",
		Amenities:    []string{},
		Tags:         []string{},
		Images:       []string{},
	}
}

func ids(records []property.DisplayRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestUpdateFastBound(t *testing.T) {
	s := NewStore(Options{})

	records := make([]property.DisplayRecord, 25)
	for i := range records {
		records[i] = listing(fmt.Sprintf("L%02d", i), false)
	}

	s.SetAll(records)
	s.UpdateFast(records)

	assert.Len(t, s.Fast(), 10)
	assert.Len(t, s.All(), 25)
	assert.Equal(t, "L00", s.Fast()[0].ID)
}

func TestUpdateFastFeaturedFirst(t *testing.T) {
	s := NewStore(Options{})
	s.UpdateFast([]property.DisplayRecord{
		listing("A", false),
		listing("B", true),
		listing("C", false),
		listing("D", true),
	})

	assert.Equal(t, []string{"B", "D", "A", "C"}, ids(s.Fast()))
}

func TestValidity(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(Options{Now: clock.Now})

	assert.False(t, s.Valid(), "empty store is never valid")

	s.SetAll([]property.DisplayRecord{listing("A", false)})
	assert.True(t, s.Valid())

	clock.Advance(4*time.Minute + 59*time.Second)
	assert.True(t, s.Valid())

	clock.Advance(time.Second)
	assert.False(t, s.Valid())
}

func TestClearKeepsFullTier(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(Options{Now: clock.Now})

	records := []property.DisplayRecord{listing("A", false), listing("B", false)}
	s.SetAll(records)
	s.UpdateFast(records)
	fetched := s.LastFetch()

	s.Clear()

	assert.Empty(t, s.Fast())
	assert.NotNil(t, s.Fast())
	assert.Len(t, s.All(), 2)
	assert.Equal(t, fetched, s.LastFetch())
	assert.True(t, s.Initialized())
}

func TestSetFastTruncates(t *testing.T) {
	s := NewStore(Options{Limit: 2})
	s.SetFast([]property.DisplayRecord{listing("A", false), listing("B", true), listing("C", true)})

	assert.Equal(t, []string{"A", "B"}, ids(s.Fast()))
}

func TestAddAndRemove(t *testing.T) {
	s := NewStore(Options{Limit: 3})
	s.SetFast([]property.DisplayRecord{listing("A", false), listing("B", false), listing("C", false)})

	s.Add(listing("D", false))
	assert.Equal(t, []string{"D", "A", "B"}, ids(s.Fast()))

	updated := listing("B", true)
	s.Add(updated)
	assert.Equal(t, []string{"B", "D", "A"}, ids(s.Fast()))
	assert.True(t, s.Fast()[0].Featured)

	s.Remove("D")
	assert.Equal(t, []string{"B", "A"}, ids(s.Fast()))

	s.Remove("missing")
	assert.Equal(t, []string{"B", "A"}, ids(s.Fast()))
}

func TestSubsets(t *testing.T) {
	s := NewStore(Options{})

	a := listing("A", true)
	b := listing("B", false)
	b.PropertyType = "Departamento"
	b.Location = "Valle, Monterrey"
	b.City = "Monterrey"
	s.SetAll([]property.DisplayRecord{a, b})

	assert.Equal(t, []string{"A"}, ids(s.Featured()))
	assert.Equal(t, []string{"B"}, ids(s.ByType("depa")))
	assert.Equal(t, []string{"A"}, ids(s.ByCity("tulum")))
	assert.Empty(t, s.ByCity("Cancún"))
}

func TestBySlug(t *testing.T) {
	s := NewStore(Options{})
	s.SetAll([]property.DisplayRecord{listing("A", false)})
	s.SetFast([]property.DisplayRecord{listing("Z", false)})

	got, ok := s.BySlug("listing-A")
	require.True(t, ok)
	assert.Equal(t, "A", got.ID)

	got, ok = s.BySlug("listing-Z")
	require.True(t, ok)
	assert.Equal(t, "Z", got.ID)

	_, ok = s.BySlug("nope")
	assert.False(t, ok)
}

func TestFlagsAndStatus(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(Options{Now: clock.Now})

	s.BeginLoading()
	s.BeginLoading()
	s.EndLoading()
	assert.True(t, s.Loading())
	s.EndLoading()
	assert.False(t, s.Loading())
	s.EndLoading()
	assert.False(t, s.Loading())

	s.SetError("boom")
	s.SetAll([]property.DisplayRecord{listing("A", false)})
	s.UpdateFast(s.All())

	st := s.Status()
	assert.Equal(t, Status{
		FastCount:   1,
		AllCount:    1,
		Limit:       DefaultLimit,
		TTL:         DefaultTTL,
		LastFetch:   clock.Now(),
		Valid:       true,
		Initialized: true,
		Error:       "boom",
	}, st)

	s.SetError("")
	assert.Empty(t, s.Err())
}

func TestReset(t *testing.T) {
	s := NewStore(Options{})
	s.SetAll([]property.DisplayRecord{listing("A", false)})
	s.UpdateFast(s.All())
	s.SetError("x")

	s.Reset()

	assert.Empty(t, s.Fast())
	assert.Empty(t, s.All())
	assert.True(t, s.LastFetch().IsZero())
	assert.False(t, s.Initialized())
	assert.False(t, s.Valid())
	assert.Empty(t, s.Err())
}

func TestReturnedSlicesAreCopies(t *testing.T) {
	s := NewStore(Options{})
	s.SetAll([]property.DisplayRecord{listing("A", false)})
	s.UpdateFast(s.All())

	fast := s.Fast()
	fast[0].ID = "mutated"
	all := s.All()
	all[0].ID = "mutated"

	assert.Equal(t, "A", s.Fast()[0].ID)
	assert.Equal(t, "A", s.All()[0].ID)
}

func TestPersistRoundTrip(t *testing.T) {
	sqlDB, err := db.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	clock := newFakeClock()
	first := NewStore(Options{Now: clock.Now, Persister: NewSQLPersister(sqlDB, "")})

	records := []property.DisplayRecord{listing("A", false), listing("B", true), listing("C", false)}
	first.SetAll(records)
	first.UpdateFast(records)

	second := NewStore(Options{Now: clock.Now, Persister: NewSQLPersister(sqlDB, "")})

	assert.Equal(t, []string{"B", "A", "C"}, ids(second.Fast()))
	assert.True(t, second.LastFetch().Equal(clock.Now()))
	assert.True(t, second.Valid())
	assert.Empty(t, second.All(), "full tier never persists")
	assert.False(t, second.Initialized())

	second.Clear()
	third := NewStore(Options{Now: clock.Now, Persister: NewSQLPersister(sqlDB, "")})
	assert.Empty(t, third.Fast())
	assert.True(t, third.LastFetch().Equal(clock.Now()))
}

func TestPersistRestoreTruncates(t *testing.T) {
	sqlDB, err := db.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	p := NewSQLPersister(sqlDB, "custom")
	require.NoError(t, p.Save(Snapshot{Fast: []property.DisplayRecord{
		listing("A", false), listing("B", false), listing("C", false),
	}}))

	s := NewStore(Options{Limit: 2, Persister: p})
	assert.Equal(t, []string{"A", "B"}, ids(s.Fast()))
}

func TestSQLPersisterEmpty(t *testing.T) {
	sqlDB, err := db.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	snap, err := NewSQLPersister(sqlDB, "").Load()
	require.NoError(t, err)
	assert.Nil(t, snap)
}

type failingPersister struct{}

func (failingPersister) Load() (*Snapshot, error) { return nil, errors.New("disk gone") }
func (failingPersister) Save(Snapshot) error { return errors.New("disk gone") }

func TestPersistFailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := NewStore(Options{Persister: failingPersister{}, Logger: zap.New(core)})

	s.SetFast([]property.DisplayRecord{listing("A", false)})

	assert.Equal(t, []string{"A"}, ids(s.Fast()))
	assert.Equal(t, 1, logs.FilterMessage("restoring cache snapshot").Len())
	assert.Equal(t, 1, logs.FilterMessage("saving cache snapshot").Len())
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore(Options{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r := listing(fmt.Sprintf("%d-%d", i, j), j%2 == 0)
				s.Add(r)
				s.SetAll([]property.DisplayRecord{r})
				_ = s.Fast()
				_ = s.Status()
				_, _ = s.BySlug(r.Slug)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, len(s.Fast()), DefaultLimit)
}
