package repository

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"prayerflow/internal/model"
)

// DefaultPath is where the task database lives when nothing else is configured.
const DefaultPath = "prayerflow.db"

// Options tweak how the database is opened.
type Options struct {
	// NowFunc overrides the clock used for created_at/updated_at. Its result is
	// always stored in UTC.
	NowFunc func() time.Time
	// LogLevel sets gorm's logger level. Defaults to Warn.
	LogLevel logger.LogLevel
}

// NewDB opens the SQLite task database and makes sure the schema exists.
// The pool is capped at a single connection; TaskStore serializes access to it.
func NewDB(dsn string, opts Options) (*gorm.DB, error) {
	if dsn == "" {
		dsn = DefaultPath
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	level := opts.LogLevel
	if level == 0 {
		level = logger.Warn
	}
	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	clock := opts.NowFunc
	if clock == nil {
		clock = time.Now
	}

	// Timestamps are compared as text by ORDER BY, so they must share one offset.
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  dbLogger,
		NowFunc: func() time.Time { return clock().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := ensureSchema(db); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return db, nil
}

// ensureSchema creates the tasks table when it is missing. An existing table is
// never altered, so reopening a database leaves its schema and rows alone.
func ensureSchema(db *gorm.DB) error {
	m := db.Migrator()
	if m.HasTable(&model.Task{}) {
		return nil
	}
	return m.CreateTable(&model.Task{})
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	// Ignore DSNs with explicit mode=memory or network.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	// Strip file: prefix if present.
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
