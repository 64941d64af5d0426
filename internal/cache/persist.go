package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/HansLove/HouzeMaster-front/internal/db"
	"github.com/HansLove/HouzeMaster-front/internal/property"
)

// DefaultKey is the kv_store key holding the snapshot.
const DefaultKey = "property-cache"

// Snapshot is the durable part of the store.
type Snapshot struct {
	Fast      []property.DisplayRecord `json:"fast"`
	LastFetch time.Time                `json:"last_fetch"`
}

// Persister loads and saves snapshots. Load returns nil, nil when nothing
// has been saved.
type Persister interface {
	Load() (*Snapshot, error)
	Save(Snapshot) error
}

// SQLPersister keeps the snapshot as JSON in the kv_store table.
type SQLPersister struct {
	kv  *db.KV
	key string
}

// NewSQLPersister stores under key, or DefaultKey when key is empty.
func NewSQLPersister(sqlDB *sql.DB, key string) *SQLPersister {
	if key == "" {
		key = DefaultKey
	}
	return &SQLPersister{kv: db.NewKV(sqlDB), key: key}
}

// Load reads the snapshot.
func (p *SQLPersister) Load() (*Snapshot, error) {
	raw, err := p.kv.Get(p.key)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

// Save writes the snapshot.
func (p *SQLPersister) Save(snap Snapshot) error {
	if snap.Fast == nil {
		snap.Fast = []property.DisplayRecord{}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return p.kv.Put(p.key, string(data))
}
