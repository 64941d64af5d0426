// Package catalog coordinates the sheet source, the display transformer
// and the cache store.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/HansLove/HouzeMaster-front/internal/cache"
	"github.com/HansLove/HouzeMaster-front/internal/property"
)

// DefaultFetchTimeout bounds one upstream fetch including retries.
const DefaultFetchTimeout = 60 * time.Second

const fetchKey = "listings"

var errSuperseded = errors.New("fetch superseded by refresh")

// ErrClosed is returned by fetches attempted after Close.
var ErrClosed = errors.New("catalog closed")

// Source yields the raw rows of the listings sheet.
type Source interface {
	Fetch(ctx context.Context) ([]property.SourceRecord, error)
}

// Options configures a Service. Zero values get defaults.
type Options struct {
	FetchTimeout time.Duration
	Logger       *zap.Logger
}

// Service serves listings from the cache, fetching on a miss.
type Service struct {
	source       Source
	store        *cache.Store
	transformer  *property.Transformer
	logger       *zap.Logger
	fetchTimeout time.Duration

	group singleflight.Group

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	closed bool
}

// NewService creates a service. A nil transformer uses the default locale.
func NewService(source Source, store *cache.Store, transformer *property.Transformer, opts Options) *Service {
	if transformer == nil {
		transformer = property.NewTransformer(property.DefaultLocale)
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		source:       source,
		store:        store,
		transformer:  transformer,
		logger:       opts.Logger,
		fetchTimeout: opts.FetchTimeout,
	}
}

// Store returns the underlying cache.
func (s *Service) Store() *cache.Store {
	return s.store
}

// Listings returns the fast tier. A valid, non-empty cache is served
// without touching the network. Otherwise the sheet is fetched; if that
// fails and an expired fast tier exists, the expired tier is returned and
// the failure is recorded on the store.
func (s *Service) Listings(ctx context.Context) ([]property.DisplayRecord, error) {
	if s.store.Valid() {
		if fast := s.store.Fast(); len(fast) > 0 {
			return fast, nil
		}
	}
	return s.load(ctx)
}

// Refresh clears the fast tier and fetches unconditionally. Any fetch
// already in flight is cancelled and its result discarded.
func (s *Service) Refresh(ctx context.Context) ([]property.DisplayRecord, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("refreshing listings: %w", ErrClosed)
	}

	s.store.Clear()
	s.supersede()
	s.group.Forget(fetchKey)

	return s.load(ctx)
}

// Close cancels any fetch in flight and discards its result. After Close
// no fetch writes the store, so the store's persister may be closed.
// Queries keep serving what is already cached.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.supersede()
}

// supersede invalidates the running fetch generation and cancels it.
func (s *Service) supersede() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Init loads the full tier once per process. A fast tier restored from
// disk is served by Listings but the full tier starts empty.
func (s *Service) Init(ctx context.Context) error {
	if s.store.Initialized() {
		return nil
	}
	_, err := s.load(ctx)
	return err
}

// Search matches the full tier against query.
func (s *Service) Search(query string) []property.DisplayRecord {
	return property.Search(s.store.All(), query)
}

// Filter applies c to the full tier.
func (s *Service) Filter(c property.Criteria) []property.DisplayRecord {
	return property.Filter(s.store.All(), c)
}

// Featured returns featured records of the full tier.
func (s *Service) Featured() []property.DisplayRecord {
	return s.store.Featured()
}

// All returns the full tier.
func (s *Service) All() []property.DisplayRecord {
	return s.store.All()
}

// BySlug finds one listing by slug.
func (s *Service) BySlug(slug string) (property.DisplayRecord, bool) {
	return s.store.BySlug(slug)
}

// load joins the in-flight fetch or starts one. The caller's context only
// bounds how long it waits; the fetch itself runs on its own deadline.
func (s *Service) load(ctx context.Context) ([]property.DisplayRecord, error) {
	for {
		ch := s.group.DoChan(fetchKey, func() (any, error) {
			return s.fetch()
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if errors.Is(res.Err, errSuperseded) {
				continue
			}
			if res.Err != nil {
				return s.fallback(res.Err)
			}
			return slices.Clone(res.Val.([]property.DisplayRecord)), nil
		}
	}
}

func (s *Service) fallback(err error) ([]property.DisplayRecord, error) {
	if stale := s.store.Fast(); len(stale) > 0 {
		s.logger.Warn("serving stale listings",
			zap.Int("count", len(stale)),
			zap.Time("last_fetch", s.store.LastFetch()),
			zap.Error(err),
		)
		return stale, nil
	}
	return nil, fmt.Errorf("loading listings: %w", err)
}

func (s *Service) fetch() ([]property.DisplayRecord, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	gen := s.gen
	ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	log := s.logger.With(zap.String("fetch_id", uuid.NewString()), zap.Uint64("generation", gen))

	s.store.BeginLoading()
	defer s.store.EndLoading()
	s.store.SetError("")

	start := time.Now()
	records, err := s.source.Fetch(ctx)
	if err != nil {
		if s.superseded(gen) {
			log.Debug("fetch cancelled", zap.Error(err))
			return nil, errSuperseded
		}
		s.store.SetError(err.Error())
		log.Warn("fetching listings", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return nil, err
	}

	display := s.build(records, log)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		log.Debug("discarding superseded fetch", zap.Int("records", len(display)))
		return nil, errSuperseded
	}
	s.store.SetAll(display)
	s.store.UpdateFast(display)

	log.Info("fetched listings",
		zap.Int("rows", len(records)),
		zap.Int("published", len(display)),
		zap.Duration("duration", time.Since(start)),
	)
	return s.store.Fast(), nil
}

func (s *Service) superseded(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen != s.gen
}

// build keeps published rows, drops duplicate IDs and slugs (first one
// wins), transforms them and orders featured first.
func (s *Service) build(records []property.SourceRecord, log *zap.Logger) []property.DisplayRecord {
	seenIDs := make(map[string]bool)
	seenSlugs := make(map[string]bool)
	out := make([]property.DisplayRecord, 0, len(records))

	for _, r := range records {
		if !r.Status.Published() {
			continue
		}
		if r.ListingID != "" && seenIDs[r.ListingID] {
			log.Warn("skipping duplicate listing id", zap.String("listing_id", r.ListingID))
			continue
		}
		if r.Slug != "" && seenSlugs[r.Slug] {
			log.Warn("skipping duplicate slug", zap.String("slug", r.Slug), zap.String("listing_id", r.ListingID))
			continue
		}
		seenIDs[r.ListingID] = true
		seenSlugs[r.Slug] = true
		out = append(out, s.transformer.Display(r))
	}

	return property.FeaturedFirst(out)
}
