// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/vinovest/sqlx"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultSQLitePath = "./data/campusvote.db"
	connectTimeout    = 10 * time.Second
)

// dialect describes how a driver's DSN is prepared and its pool sized.
type dialect struct {
	prepare  func(dsn string) (string, error)
	setup    func(ctx context.Context, db *sqlx.DB) error
	maxOpen  int
	maxIdle  int
	lifetime time.Duration
}

var dialects = map[string]dialect{
	DriverSQLite: {
		prepare:  prepareSQLite,
		setup:    tuneSQLite,
		maxOpen:  10,
		maxIdle:  5,
		lifetime: time.Hour,
	},
	DriverPostgres: {
		prepare: func(dsn string) (string, error) {
			if dsn == "" {
				return "", fmt.Errorf("postgres requires a DSN")
			}
			return dsn, nil
		},
		maxOpen:  20,
		maxIdle:  5,
		lifetime: time.Hour,
	},
}

// Open connects to the database, verifies the connection and applies all
// pending migrations. An empty driver means SQLite.
func Open(driver, dsn string) (*sqlx.DB, error) {
	driver = lo.Ternary(driver == "", DriverSQLite, driver)
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	dsn, err := d.prepare(dsn)
	if err != nil {
		return nil, err
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// each connection to an in-memory SQLite database sees its own schema
	if driver == DriverSQLite && isMemoryDSN(dsn) {
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(d.maxOpen)
		conn.SetMaxIdleConns(d.maxIdle)
		conn.SetConnMaxLifetime(d.lifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := initialize(ctx, conn, driver, d); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func initialize(ctx context.Context, conn *sqlx.DB, driver string, d dialect) error {
	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("connect to %s: %w", driver, err)
	}
	if d.setup != nil {
		if err := d.setup(ctx, conn); err != nil {
			return err
		}
	}
	return RunMigrations(conn.DB, driver)
}

func isMemoryDSN(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// prepareSQLite creates the parent directory of file databases and appends
// connection parameters the caller did not set. Parameters in the DSN apply
// to every pooled connection, unlike a PRAGMA run once after opening.
func prepareSQLite(dsn string) (string, error) {
	if dsn == "" {
		dsn = defaultSQLitePath
	}

	if !isMemoryDSN(dsn) {
		path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return "", err
		}
	}

	missing := lo.FilterMap(sqliteParams, func(p dsnParam, _ int) (string, bool) {
		return p.param, !strings.Contains(dsn, p.marker)
	})
	if len(missing) == 0 {
		return dsn, nil
	}

	sep := lo.Ternary(strings.Contains(dsn, "?"), "&", "?")
	return dsn + sep + strings.Join(missing, "&"), nil
}

// dsnParam is a connection parameter appended unless marker already
// occurs in the DSN.
type dsnParam struct{ marker, param string }

var sqliteParams = []dsnParam{
	{"busy_timeout", "_pragma=busy_timeout(5000)"},
	{"foreign_keys", "_pragma=foreign_keys(1)"},
	{"_time_format", "_time_format=sqlite"},
	{"_txlock", "_txlock=immediate"},
}

// tuneSQLite applies database-wide settings. journal_mode persists in the
// file, the rest only affect the connection they run on.
func tuneSQLite(ctx context.Context, db *sqlx.DB) error {
	for _, pragma := range []string{
		"journal_mode = WAL",
		"synchronous = NORMAL",
		"temp_store = MEMORY",
		"mmap_size = 134217728",
		"journal_size_limit = 27103364",
		"cache_size = 2000",
	} {
		if _, err := db.ExecContext(ctx, "PRAGMA "+pragma); err != nil {
			return fmt.Errorf("pragma %s: %w", pragma, err)
		}
	}
	return nil
}
