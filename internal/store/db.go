// Package store persists items, completion records and ignore scopes in
// SQLite through gorm. A single Store satisfies calendar.ItemSource,
// completion.Store and ignore.Store.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	appLog "taskcal/internal/log"
)

var ErrNotFound = errors.New("store: not found")

// Store wraps a migrated gorm handle.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open opens (and migrates) the SQLite database at dsn.
func Open(dsn string) (*Store, error) {
	db, err := NewDB(dsn)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NewDB opens a SQLite database and runs migrations.
func NewDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "taskcal.db"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		gormWriter{},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.AutoMigrate(&ItemRow{}, &CompletionRow{}, &IgnoreScopeRow{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	appLog.Info("database ready", "dsn", dsn)
	return db, nil
}

// gormWriter routes gorm's own log lines through the application logger.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...any) {
	appLog.Warn("gorm", "detail", strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
