package db

import (
	"database/sql"
	"fmt"
)

// migrations run in order on every Open and must be idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS kv_store (
		key        TEXT     PRIMARY KEY,
		value      TEXT     NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
