package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// Config describes how to reach the store. It is passed in explicitly; nothing is global.
type Config struct {
	// Driver is one of DriverSQLite, DriverPostgres, DriverMySQL. Empty means SQLite.
	Driver string
	// DSN addresses Postgres or MySQL. MySQL DSNs are rewritten to parse DATE columns as UTC.
	DSN string
	// Path is the SQLite database file.
	Path string
	// BusyTimeout bounds how long SQLite waits for the write lock.
	BusyTimeout time.Duration
	// MaxOpenConns caps the pool; zero leaves the driver default.
	MaxOpenConns int
	// Seed installs the default administrator and sample books on first run.
	Seed bool
}

// Database provides the catalog, loan ledger and account directory over one SQL connection pool.
type Database struct {
	db  *sqlx.DB
	eng *engine
	log zerolog.Logger
	now func() time.Time
}

// Option configures a Database.
type Option func(*Database)

// WithLogger sets the logger used for store events.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Database) { d.log = l }
}

// WithClock replaces time.Now, which decides loan dates and overdue labels.
func WithClock(now func() time.Time) Option {
	return func(d *Database) { d.now = now }
}

// NewDatabase opens (or creates) the store described by cfg, applies schema
// migrations and seeds a fresh store when cfg.Seed is set.
func NewDatabase(ctx context.Context, cfg Config, opts ...Option) (*Database, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}
	eng, err := engineFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(2 * time.Minute)

	database := &Database{db: db, eng: eng, log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(database)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Join(ErrConnectionFailure, err)
	}
	if err := database.applyMigrations(ctx, cfg.Seed); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

func dataSource(cfg Config) (string, error) {
	if cfg.Driver != DriverSQLite {
		if cfg.DSN == "" {
			return "", fmt.Errorf("%s driver needs a DSN", cfg.Driver)
		}
		if cfg.Driver == DriverMySQL {
			return mysqlDataSource(cfg.DSN)
		}
		return cfg.DSN, nil
	}
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.Path == "" {
		return "", errors.New("sqlite driver needs a database path")
	}
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create db dir: %w", err)
		}
	}
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	// _txlock=immediate makes every transaction take the write lock up front.
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=1&_txlock=immediate",
		cfg.Path, busy.Milliseconds()), nil
}

// mysqlDataSource forces parseTime and a UTC location so loan dates scan into
// time.Time and round-trip without shifting a day.
func mysqlDataSource(dsn string) (string, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc.FormatDSN(), nil
}

// Close closes the connection pool.
func (d *Database) Close() error { return d.db.Close() }

// Ping checks that the store is still reachable.
func (d *Database) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return errors.Join(ErrConnectionFailure, err)
	}
	return nil
}

// Now is the store clock, the reference for loan dates and overdue labels.
func (d *Database) Now() time.Time { return d.now() }

func (d *Database) today() time.Time { return dateOf(d.now()) }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func (d *Database) applyMigrations(ctx context.Context, seed bool) error {
	if d.eng.driver == DriverSQLite {
		// WAL improves write concurrency.
		if _, err := d.db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			return d.classify(err, "enable WAL")
		}
	}

	if _, err := d.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS meta (name VARCHAR(64) PRIMARY KEY, value VARCHAR(255));`); err != nil {
		return d.classify(err, "create meta table")
	}

	var current int
	versionQuery := d.eng.sql.From("meta").Select("value").Where(goqu.Ex{"name": "schema_version"}).Prepared(true)
	if err := d.get(ctx, d.db, &current, versionQuery); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return d.classify(err, "read schema version")
	}
	if current >= schemaVersion {
		return nil
	}

	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, stmt := range d.eng.schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration: %w", err)
			}
		}
		if current == 0 && seed {
			if err := d.seed(ctx, tx); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
		}
		var stmt sqlBuilder = d.eng.sql.Update("meta").
			Set(goqu.Record{"value": fmt.Sprint(schemaVersion)}).
			Where(goqu.Ex{"name": "schema_version"}).Prepared(true)
		if current == 0 {
			stmt = d.eng.sql.Insert("meta").
				Rows(goqu.Record{"name": "schema_version", "value": fmt.Sprint(schemaVersion)}).Prepared(true)
		}
		_, err := d.exec(ctx, tx, stmt)
		return err
	})
	if err != nil {
		return err
	}
	d.log.Info().Int("from", current).Int("to", schemaVersion).Msg("schema migrated")
	return nil
}

// ---------------------------------------------------------------------------
// Transactions and statement helpers
// ---------------------------------------------------------------------------

// withTx runs fn inside one transaction, committing only if fn returns nil.
func (d *Database) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return d.classify(err, "begin transaction")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		d.log.Debug().Err(err).Msg("transaction rolled back")
		return err
	}
	if err := tx.Commit(); err != nil {
		return d.classify(err, "commit")
	}
	return nil
}

type sqlBuilder interface {
	ToSQL() (string, []interface{}, error)
}

func (d *Database) get(ctx context.Context, q sqlx.QueryerContext, dest any, b sqlBuilder) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	d.log.Debug().Str("sql", query).Msg("query")
	return sqlx.GetContext(ctx, q, dest, query, args...)
}

func (d *Database) sel(ctx context.Context, q sqlx.QueryerContext, dest any, b sqlBuilder) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	d.log.Debug().Str("sql", query).Msg("query")
	return sqlx.SelectContext(ctx, q, dest, query, args...)
}

func (d *Database) exec(ctx context.Context, e sqlx.ExecerContext, b sqlBuilder) (sql.Result, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build statement: %w", err)
	}
	d.log.Debug().Str("sql", query).Msg("exec")
	return e.ExecContext(ctx, query, args...)
}

// insert runs ins and returns the id of the new row.
func (d *Database) insert(ctx context.Context, q sqlx.ExtContext, ins *goqu.InsertDataset) (int64, error) {
	if d.eng.returning {
		var id int64
		err := d.get(ctx, q, &id, ins.Returning("id").Prepared(true))
		return id, err
	}
	res, err := d.exec(ctx, q, ins.Prepared(true))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// count runs a COUNT(*) over table filtered by where.
func (d *Database) count(ctx context.Context, q sqlx.QueryerContext, table string, where goqu.Ex) (int, error) {
	var n int
	err := d.get(ctx, q, &n, d.eng.sql.From(table).Select(goqu.COUNT(goqu.Star())).Where(where).Prepared(true))
	return n, err
}

// lockSelect adds FOR UPDATE on engines that support row locks.
func (d *Database) lockSelect(ds *goqu.SelectDataset) *goqu.SelectDataset {
	if d.eng.rowLocks {
		return ds.ForUpdate(exp.Wait)
	}
	return ds
}

// classify wraps err with an operation description and, for connection failures,
// ErrConnectionFailure.
func (d *Database) classify(err error, op string) error {
	if unreachable(err) {
		return fmt.Errorf("%s: %w", op, errors.Join(ErrConnectionFailure, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}
