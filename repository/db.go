// Package repository opens the Bun database that backs the user store and
// runs its migrations.
package repository

import (
	"context"
	"database/sql"
	"io/fs"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"

	auth "github.com/goliatone/go-auth-service"
)

// Driver names the database engine behind a DSN
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// MigrationsLabel names the embedded migration source in reports
const MigrationsLabel = "data/sql/migrations"

// DefaultPingTimeout bounds the connectivity check on Open
const DefaultPingTimeout = 5 * time.Second

var registerModels sync.Once

// DriverFor returns the driver for dsn. postgres:// and postgresql:// URLs
// select Postgres, anything else is a SQLite DSN.
func DriverFor(dsn string) Driver {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// Config is the persistence client configuration
type Config struct {
	DSN            string
	Debug          bool
	PingTimeout    time.Duration
	OtelIdentifier string
}

func (c Config) GetDebug() bool    { return c.Debug }
func (c Config) GetServer() string { return c.DSN }
func (c Config) GetDSN() string    { return c.DSN }

// GetDriver returns the database/sql driver name for the DSN
func (c Config) GetDriver() string {
	if DriverFor(c.DSN) == DriverPostgres {
		return "pgx"
	}
	return sqliteshim.ShimName
}

func (c Config) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return DefaultPingTimeout
	}
	return c.PingTimeout
}

func (c Config) GetOtelIdentifier() string {
	if c.OtelIdentifier == "" {
		return "authsvc"
	}
	return c.OtelIdentifier
}

// Open connects to the configured database and returns a persistence client
// with the user migrations registered for both dialects. Debug mode logs
// every query.
func Open(ctx context.Context, cfg Config) (*persistence.Client, error) {
	sqldb, err := sql.Open(cfg.GetDriver(), cfg.GetDSN())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open database").
			WithMetadata(map[string]any{"driver": string(DriverFor(cfg.DSN))})
	}

	var dialect schema.Dialect
	switch DriverFor(cfg.DSN) {
	case DriverPostgres:
		dialect = pgdialect.New()
	default:
		// SQLite allows a single writer
		sqldb.SetMaxOpenConns(1)
		dialect = sqlitedialect.New()
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.GetPingTimeout())
	defer cancel()

	if err := sqldb.PingContext(pingCtx); err != nil {
		_ = sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to reach database").
			WithMetadata(map[string]any{"driver": string(DriverFor(cfg.DSN))})
	}

	registerModels.Do(func() {
		persistence.RegisterModel((*auth.User)(nil))
	})

	client, err := persistence.New(cfg, sqldb, dialect)
	if err != nil {
		_ = sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create persistence client")
	}

	migrationsFS, err := fs.Sub(auth.GetMigrationsFS(), MigrationsLabel)
	if err != nil {
		_ = sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load migrations")
	}

	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel(MigrationsLabel),
		persistence.WithValidationTargets(string(DriverPostgres), string(DriverSQLite)),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		_ = sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "invalid migration layout")
	}

	return client, nil
}

// Migrate applies every pending migration
func Migrate(ctx context.Context, client *persistence.Client) error {
	if err := client.Migrate(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to run migrations")
	}
	return nil
}

// Close releases the client connection pool
func Close(db *bun.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}
