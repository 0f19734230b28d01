// Package repo implements the data persistence layer of the commit
// database: database bootstrapping, the per-import dimension resolver, the
// transactional importer, and the history query builder/executor.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/nhnb/postsai/internal/domain"
)

// Dialect identifies the SQL flavor of the underlying store. The query
// builder needs it to pick the regex-match operator and to decide whether
// full-text relevance matching is available.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectMySQL
	DialectPostgres
)

// RegexpOp returns the dialect's regex-match operator.
func (d Dialect) RegexpOp() string {
	if d == DialectPostgres {
		return "~"
	}
	return "REGEXP"
}

// NotRegexpOp returns the dialect's negated regex-match operator.
func (d Dialect) NotRegexpOp() string {
	if d == DialectPostgres {
		return "!~"
	}
	return "NOT REGEXP"
}

// Options controls database bootstrapping.
type Options struct {
	// Driver is "sqlite", "mysql" or "postgres".
	Driver string
	// DSN is the driver-specific connection string (a file path for sqlite).
	DSN string
	// LockWaitTimeout extends the store's row-lock wait so concurrent
	// imports serialize on dimension rows instead of failing (MySQL only).
	LockWaitTimeout time.Duration
	// Tracing attaches the OpenTelemetry GORM plugin when true.
	Tracing bool
}

// Open connects to the configured store, applies session settings, and
// returns the handle together with its dialect.
func Open(opts Options) (*gorm.DB, Dialect, error) {
	var (
		db      *gorm.DB
		dialect Dialect
		err     error
	)

	switch opts.Driver {
	case "", "sqlite":
		dialect = DialectSQLite
		db, err = openSQLite(opts.DSN)
	case "mysql":
		dialect = DialectMySQL
		db, err = gorm.Open(mysql.Open(opts.DSN), &gorm.Config{})
		if err == nil {
			// Concurrent imports rely on row-level locking; give waiters a
			// generous timeout instead of application-level mutual exclusion.
			lockWait := int(opts.LockWaitTimeout / time.Second)
			if lockWait <= 0 {
				lockWait = 500
			}
			db.Exec(fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", lockWait))
		}
	case "postgres":
		dialect = DialectPostgres
		db, err = gorm.Open(postgres.Open(opts.DSN), &gorm.Config{})
	default:
		return nil, dialect, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
	if err != nil {
		return nil, dialect, err
	}

	if opts.Tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, dialect, err
		}
	}

	return db, dialect, nil
}

// openSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func openSQLite(path string) (*gorm.DB, error) {
	// Fail early if the parent directory does not exist (instead of a
	// confusing sqlite "out of memory (14)" later).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates or updates the dimension and fact tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Repository{},
		&domain.Person{},
		&domain.Directory{},
		&domain.File{},
		&domain.Branch{},
		&domain.Description{},
		&domain.CommitID{},
		&domain.Checkin{},
		&domain.ImportAction{},
	)
}
