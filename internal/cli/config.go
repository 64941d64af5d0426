package cli

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/HansLove/HouzeMaster-front/internal/cache"
	"github.com/HansLove/HouzeMaster-front/internal/catalog"
	"github.com/HansLove/HouzeMaster-front/internal/config"
	"github.com/HansLove/HouzeMaster-front/internal/db"
	"github.com/HansLove/HouzeMaster-front/internal/property"
	"github.com/HansLove/HouzeMaster-front/internal/sheets"
)

// loadConfig reads config from file and environment, then applies the
// global flags on top.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{File: flagConfig, EnvFile: flagEnvFile})
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}

	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	if flagLocale != "" {
		cfg.Locale = flagLocale
	}
	if flagServer != "" {
		cfg.ServerURL = flagServer
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

// newSource builds the sheet reader selected by cfg.Source.
func newSource(cfg config.Config, logger *zap.Logger) (catalog.Source, error) {
	opts := sheets.Options{
		Retry:  cfg.Retry(),
		Logger: logger.Named("sheets"),
	}

	if cfg.Source == config.SourceAPI {
		src, err := sheets.NewAPISource(sheets.APIConfig{
			SpreadsheetID: cfg.Sheets.SpreadsheetID,
			Range:         cfg.Sheets.Range,
			APIKey:        cfg.Sheets.APIKey,
			AccessToken:   cfg.Sheets.AccessToken,
			BaseURL:       cfg.Sheets.BaseURL,
		}, opts)
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	src, err := sheets.NewCSVSource(cfg.CSVURL, opts)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// openCatalog opens the cache database and wires a catalog service over
// the configured source. The caller closes the returned database.
func openCatalog(cfg config.Config, logger *zap.Logger) (*catalog.Service, *sql.DB, error) {
	path, err := cfg.ResolveDBPath()
	if err != nil {
		return nil, nil, err
	}
	database, err := db.Open(path)
	if err != nil {
		return nil, nil, err
	}

	source, err := newSource(cfg, logger)
	if err != nil {
		closeDB(database)
		return nil, nil, fmt.Errorf("creating %s source: %w", cfg.Source, err)
	}

	store := cache.NewStore(cache.Options{
		Limit:     cfg.Cache.Limit,
		TTL:       cfg.Cache.TTL,
		Persister: cache.NewSQLPersister(database, cache.DefaultKey),
		Logger:    logger.Named("cache"),
	})

	svc := catalog.NewService(source, store, property.NewTransformer(cfg.Locale), catalog.Options{
		FetchTimeout: cfg.Fetch.Timeout,
		Logger:       logger.Named("catalog"),
	})
	return svc, database, nil
}

// closeDB closes the database, logging any error.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		zap.L().Warn("closing database", zap.Error(err))
	}
}
