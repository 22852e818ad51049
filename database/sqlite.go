package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"inventory/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// driverName is mattn/go-sqlite3 with a unicode_lower() SQL function, which
// the item search needs because SQLite's own lower() only folds ASCII.
const driverName = "sqlite3_inventory"

// migrationsTable keeps the table name the deployment has always used.
const migrationsTable = "migrations"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("unicode_lower", strings.ToLower, true)
		},
	})
}

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateName       = errors.New("name already exists")
	ErrCategoryInUse       = errors.New("category is in use")
	ErrLocationInUse       = errors.New("location is in use")
	ErrLocationHasChildren = errors.New("location has child locations")
	ErrLocationCycle       = errors.New("location cannot be moved below itself")
	ErrInvalidReference    = errors.New("referenced record does not exist")
)

// Store is the SQLite-backed repository for every inventory entity.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func dsn(path string) string {
	return path + "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
}

func ensureDir(path string) error {
	dbDir := filepath.Dir(path)
	if dbDir != "." && dbDir != "" {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}
	return nil
}

// Open connects to the database at path, creating it if needed, and applies
// all pending migrations.
func Open(path string) (*Store, error) {
	if err := ensureDir(path); err != nil {
		logger.Error("Open: %v", err)
		return nil, err
	}

	db, err := sql.Open(driverName, dsn(path))
	if err != nil {
		logger.Error("Failed to open database: %v", err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		logger.Error("Failed to connect to database: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(path); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func newMigrator(path string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src,
		fmt.Sprintf("sqlite3://%s&x-migrations-table=%s", dsn(path), migrationsTable))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}
	return m, nil
}

// Migrate applies every embedded migration not yet recorded in the database.
// Running it against an up-to-date database is a no-op.
func Migrate(path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	m, err := newMigrator(path)
	if err != nil {
		logger.Error("Migrate: %v", err)
		return err
	}
	defer m.Close()

	logger.Info("Applying database migrations...")
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Failed to apply migrations: %v", err)
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully (or no changes).")
	return nil
}

// MigrationState describes where a database stands relative to the embedded
// migrations.
type MigrationState struct {
	Current uint
	Dirty   bool
	Latest  uint
	Pending []uint
}

// MigrationStatus inspects the database at path without changing it.
func MigrationStatus(path string) (MigrationState, error) {
	var state MigrationState
	if err := ensureDir(path); err != nil {
		return state, err
	}
	m, err := newMigrator(path)
	if err != nil {
		return state, err
	}
	defer m.Close()

	current, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return state, fmt.Errorf("reading migration version: %w", err)
	}
	state.Current, state.Dirty = current, dirty

	versions, err := embeddedVersions()
	if err != nil {
		return state, err
	}
	for _, v := range versions {
		if v > state.Current {
			state.Pending = append(state.Pending, v)
		}
		state.Latest = v
	}
	return state, nil
}

func embeddedVersions() ([]uint, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		return nil, fmt.Errorf("reading first migration: %w", err)
	}
	versions := []uint{v}
	for {
		next, err := src.Next(v)
		if errors.Is(err, os.ErrNotExist) {
			return versions, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading migration after %d: %w", v, err)
		}
		versions = append(versions, next)
		v = next
	}
}

// classifyWriteError maps SQLite constraint failures onto the package errors.
func classifyWriteError(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %v", ErrDuplicateName, err)
	case sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	return err
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func idArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// idBatchSize bounds the number of IDs bound into one IN (...) list, well
// below SQLite's host parameter limit.
const idBatchSize = 500

// idBatches splits ids into slices of at most idBatchSize.
func idBatches(ids []int64) [][]int64 {
	var out [][]int64
	for start := 0; start < len(ids); start += idBatchSize {
		out = append(out, ids[start:min(start+idBatchSize, len(ids))])
	}
	return out
}

// countExisting returns how many of ids exist in table. The table name is
// never user input.
func countExisting(ctx context.Context, q queryer, table string, ids []int64) (int, error) {
	total := 0
	for _, batch := range idBatches(ids) {
		var n int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id IN (%s)", table, placeholders(len(batch)))
		if err := q.QueryRowContext(ctx, query, idArgs(batch)...).Scan(&n); err != nil {
			return 0, fmt.Errorf("counting %s: %w", table, err)
		}
		total += n
	}
	return total, nil
}

// rollback is deferred by every transaction; after a commit it is a no-op.
func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.Error("rollback failed: %v", err)
	}
}
