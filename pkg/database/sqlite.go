package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/noah-isme/campus-timetable-api/pkg/config"
)

// DefaultSQLitePath is used when no path is configured.
const DefaultSQLitePath = "./data/timetable.db"

// NewSQLite opens (creating if needed) the local database file.
func NewSQLite(cfg config.SQLiteConfig) (*sqlx.DB, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultSQLitePath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	// a single writer avoids SQLITE_BUSY on the document row
	return Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000", Pool{MaxOpen: 1})
}
