// Package journal records break activity in a local sqlite database.
package journal

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultDBName = "journal.db"

// DB wraps the gorm handle.
type DB struct {
	*gorm.DB
}

// DefaultPath returns $XDG_STATE_HOME/<app>/journal.db, falling back to
// ~/.local/state/<app>/journal.db.
func DefaultPath(appName string) (string, error) {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, appName, defaultDBName), nil
}

// Connect opens (creating if needed) the database at path and migrates it.
func Connect(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	wrapped := &DB{db}
	if err := wrapped.Initialize(); err != nil {
		wrapped.Close()
		return nil, err
	}
	return wrapped, nil
}

// Initialize creates or updates the schema.
func (db *DB) Initialize() error {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return fmt.Errorf("initialize journal schema: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
