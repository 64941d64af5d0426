// Package config loads hm settings from defaults, a YAML file, a .env
// file and HM_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/HansLove/HouzeMaster-front/internal/cache"
	"github.com/HansLove/HouzeMaster-front/internal/catalog"
	"github.com/HansLove/HouzeMaster-front/internal/db"
	"github.com/HansLove/HouzeMaster-front/internal/httpx"
	"github.com/HansLove/HouzeMaster-front/internal/property"
	"github.com/HansLove/HouzeMaster-front/internal/sheets"
)

// Source kinds.
const (
	SourceCSV = "csv"
	SourceAPI = "api"
)

// Config holds every setting hm reads.
type Config struct {
	Source     string       `yaml:"source"`
	CSVURL     string       `yaml:"csv_url"`
	Sheets     SheetsConfig `yaml:"sheets"`
	Cache      CacheConfig  `yaml:"cache"`
	Fetch      FetchConfig  `yaml:"fetch"`
	DBPath     string       `yaml:"db_path,omitempty"`
	Locale     string       `yaml:"locale"`
	DevMode    bool         `yaml:"dev_mode"`
	Port       int          `yaml:"port"`
	AdminToken string       `yaml:"admin_token,omitempty"`
	ServerURL  string       `yaml:"server_url,omitempty"`
}

// SheetsConfig configures the Sheets API source.
type SheetsConfig struct {
	SpreadsheetID string `yaml:"spreadsheet_id,omitempty"`
	Range         string `yaml:"range,omitempty"`
	APIKey        string `yaml:"api_key,omitempty"`
	AccessToken   string `yaml:"access_token,omitempty"`
	BaseURL       string `yaml:"base_url,omitempty"`
}

// CacheConfig configures the listing cache.
type CacheConfig struct {
	Limit int           `yaml:"limit"`
	TTL   time.Duration `yaml:"ttl"`
}

// FetchConfig configures upstream fetches.
type FetchConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
}

// Default returns the built-in settings.
func Default() Config {
	retry := httpx.DefaultRetryConfig()
	return Config{
		Source: SourceCSV,
		CSVURL: sheets.DefaultCSVURL,
		Sheets: SheetsConfig{
			Range:   "listings",
			BaseURL: sheets.DefaultAPIBaseURL,
		},
		Cache: CacheConfig{
			Limit: cache.DefaultLimit,
			TTL:   cache.DefaultTTL,
		},
		Fetch: FetchConfig{
			Timeout:     catalog.DefaultFetchTimeout,
			MaxAttempts: retry.MaxAttempts,
			BaseDelay:   retry.BaseDelay,
		},
		Locale: property.DefaultLocale,
		Port:   8080,
	}
}

// DefaultPath returns ~/.config/houzemaster/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "houzemaster", "config.yaml"), nil
}

// LoadOptions says where to read from. An empty File falls back to
// DefaultPath and an empty EnvFile to ".env"; both are optional in that
// case. Explicit paths must exist.
type LoadOptions struct {
	File    string
	EnvFile string
	// Lookup reads environment variables. Defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// Load builds a validated Config.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	if err := loadFile(&cfg, opts.File); err != nil {
		return Config{}, err
	}
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return Config{}, err
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// loadEnvFile exports the file's variables into the process environment.
// Variables already set win.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	env := envReader{lookup: lookup}

	env.str("HM_SOURCE", &cfg.Source)
	env.str("HM_CSV_URL", &cfg.CSVURL)
	env.str("HM_SHEETS_SPREADSHEET_ID", &cfg.Sheets.SpreadsheetID)
	env.str("HM_SHEETS_RANGE", &cfg.Sheets.Range)
	env.str("HM_SHEETS_API_KEY", &cfg.Sheets.APIKey)
	env.str("HM_SHEETS_ACCESS_TOKEN", &cfg.Sheets.AccessToken)
	env.str("HM_SHEETS_BASE_URL", &cfg.Sheets.BaseURL)
	env.integer("HM_CACHE_LIMIT", &cfg.Cache.Limit)
	env.duration("HM_CACHE_TTL", &cfg.Cache.TTL)
	env.duration("HM_FETCH_TIMEOUT", &cfg.Fetch.Timeout)
	env.integer("HM_FETCH_MAX_ATTEMPTS", &cfg.Fetch.MaxAttempts)
	env.duration("HM_FETCH_BASE_DELAY", &cfg.Fetch.BaseDelay)
	env.str("HM_DB_PATH", &cfg.DBPath)
	env.str("HM_LOCALE", &cfg.Locale)
	env.boolean("HM_DEV_MODE", &cfg.DevMode)
	env.integer("HM_PORT", &cfg.Port)
	env.str("HM_ADMIN_TOKEN", &cfg.AdminToken)
	env.str("HM_SERVER_URL", &cfg.ServerURL)

	return errors.Join(env.errs...)
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return
	}
	*dst = n
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return
	}
	*dst = d
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return
	}
	*dst = b
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	switch c.Source {
	case SourceCSV:
		if strings.TrimSpace(c.CSVURL) == "" {
			errs = append(errs, errors.New("csv_url is required when source is csv"))
		}
	case SourceAPI:
		if c.Sheets.SpreadsheetID == "" {
			errs = append(errs, errors.New("sheets.spreadsheet_id is required when source is api"))
		}
		if c.Sheets.APIKey == "" && c.Sheets.AccessToken == "" {
			errs = append(errs, errors.New("sheets.api_key or sheets.access_token is required when source is api"))
		}
	default:
		errs = append(errs, fmt.Errorf("source must be %q or %q, got %q", SourceCSV, SourceAPI, c.Source))
	}

	if !property.ValidLocale(c.Locale) {
		errs = append(errs, fmt.Errorf("locale must be one of %s, got %q", strings.Join(property.Locales(), ", "), c.Locale))
	}
	if c.Cache.Limit <= 0 {
		errs = append(errs, fmt.Errorf("cache.limit must be positive, got %d", c.Cache.Limit))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch.timeout must be positive, got %s", c.Fetch.Timeout))
	}
	if c.Fetch.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("fetch.max_attempts must be at least 1, got %d", c.Fetch.MaxAttempts))
	}
	if c.Fetch.BaseDelay < 0 {
		errs = append(errs, fmt.Errorf("fetch.base_delay must not be negative, got %s", c.Fetch.BaseDelay))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}

	return errors.Join(errs...)
}

// Retry returns the upstream retry policy.
func (c Config) Retry() httpx.RetryConfig {
	retry := httpx.DefaultRetryConfig()
	retry.MaxAttempts = c.Fetch.MaxAttempts
	if c.Fetch.BaseDelay > 0 {
		retry.BaseDelay = c.Fetch.BaseDelay
	}
	return retry
}

// ResolveDBPath returns DBPath or the default database location.
func (c Config) ResolveDBPath() (string, error) {
	if c.DBPath != "" {
		return c.DBPath, nil
	}
	return db.DefaultPath()
}
