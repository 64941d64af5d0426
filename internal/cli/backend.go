package cli

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/HansLove/HouzeMaster-front/internal/cache"
	"github.com/HansLove/HouzeMaster-front/internal/catalog"
	"github.com/HansLove/HouzeMaster-front/internal/client"
	"github.com/HansLove/HouzeMaster-front/internal/logging"
	"github.com/HansLove/HouzeMaster-front/internal/property"
)

// backend answers listing queries, either from a local catalog or from a
// running hm server.
type backend interface {
	Listings(ctx context.Context) (*client.ListingsResponse, error)
	All(ctx context.Context) (*client.ListingsResponse, error)
	Featured(ctx context.Context) (*client.ListingsResponse, error)
	Search(ctx context.Context, query string) (*client.ListingsResponse, error)
	Filter(ctx context.Context, criteria property.Criteria) (*client.ListingsResponse, error)
	Refresh(ctx context.Context) (*client.ListingsResponse, error)
	Listing(ctx context.Context, slug string) (*property.DisplayRecord, error)
	CacheStatus(ctx context.Context) (*client.CacheStatus, error)
	Close() error
}

// openBackend returns a remote backend when a server URL is configured and
// a local one otherwise.
func openBackend() (backend, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if cfg.ServerURL != "" {
		return remoteBackend{client.New(cfg.ServerURL, cfg.AdminToken)}, nil
	}

	logger, err := logging.Setup(cfg.DevMode)
	if err != nil {
		return nil, err
	}
	svc, database, err := openCatalog(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &localBackend{svc: svc, database: database, logger: logger}, nil
}

type remoteBackend struct {
	*client.Client
}

func (remoteBackend) Close() error {
	return nil
}

// localBackend serves queries from the sheet through the local cache.
type localBackend struct {
	svc      *catalog.Service
	database *sql.DB
	logger   *zap.Logger
}

func (b *localBackend) Listings(ctx context.Context) (*client.ListingsResponse, error) {
	records, err := b.svc.Listings(ctx)
	if err != nil {
		return nil, err
	}
	return b.response(records), nil
}

func (b *localBackend) All(ctx context.Context) (*client.ListingsResponse, error) {
	if err := b.svc.Init(ctx); err != nil {
		return nil, err
	}
	return b.response(b.svc.All()), nil
}

func (b *localBackend) Featured(ctx context.Context) (*client.ListingsResponse, error) {
	if err := b.svc.Init(ctx); err != nil {
		return nil, err
	}
	return b.response(b.svc.Featured()), nil
}

func (b *localBackend) Search(ctx context.Context, query string) (*client.ListingsResponse, error) {
	if err := b.svc.Init(ctx); err != nil {
		return nil, err
	}
	return b.response(b.svc.Search(query)), nil
}

func (b *localBackend) Filter(ctx context.Context, criteria property.Criteria) (*client.ListingsResponse, error) {
	if err := b.svc.Init(ctx); err != nil {
		return nil, err
	}
	return b.response(b.svc.Filter(criteria)), nil
}

func (b *localBackend) Refresh(ctx context.Context) (*client.ListingsResponse, error) {
	records, err := b.svc.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return b.response(records), nil
}

// Listing checks the restored fast tier before fetching the sheet.
func (b *localBackend) Listing(ctx context.Context, slug string) (*property.DisplayRecord, error) {
	if rec, ok := b.svc.BySlug(slug); ok {
		return &rec, nil
	}
	if err := b.svc.Init(ctx); err != nil {
		return nil, err
	}
	rec, ok := b.svc.BySlug(slug)
	if !ok {
		return nil, fmt.Errorf("listing %q not found", slug)
	}
	return &rec, nil
}

func (b *localBackend) CacheStatus(_ context.Context) (*client.CacheStatus, error) {
	return statusFromStore(b.svc.Store().Status()), nil
}

func (b *localBackend) Close() error {
	b.svc.Close()
	_ = b.logger.Sync()
	return b.database.Close()
}

func (b *localBackend) response(records []property.DisplayRecord) *client.ListingsResponse {
	store := b.svc.Store()
	if records == nil {
		records = []property.DisplayRecord{}
	}
	return &client.ListingsResponse{
		Listings: records,
		Count:    len(records),
		Stale:    !store.Valid(),
		Warning:  store.Err(),
	}
}

func statusFromStore(st cache.Status) *client.CacheStatus {
	out := &client.CacheStatus{
		FastCount:   st.FastCount,
		AllCount:    st.AllCount,
		Limit:       st.Limit,
		TTL:         st.TTL.String(),
		Valid:       st.Valid,
		Loading:     st.Loading,
		Initialized: st.Initialized,
		Error:       st.Error,
	}
	if !st.LastFetch.IsZero() {
		last := st.LastFetch
		out.LastFetch = &last
	}
	return out
}

// closeBackend closes b, logging any error.
func closeBackend(b backend) {
	if err := b.Close(); err != nil {
		zap.L().Warn("closing backend", zap.Error(err))
	}
}
