// Package pg implementa el directorio de usuarios sobre PostgreSQL usando el
// driver pgx a través de database/sql.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/authgate/internal/observability/logger"
	migrations "github.com/dropDatabas3/authgate/migrations/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Config parámetros de conexión y pool.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store implementa repository.UserRepository.
type Store struct {
	db *sql.DB
}

// New envuelve un *sql.DB ya abierto (tests con sqlmock).
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open parsea el DSN con pgx, abre el pool de database/sql y hace ping.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("pg: empty dsn")
	}
	connCfg, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	db := stdlib.OpenDB(*connCfg)

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	db.SetMaxOpenConns(maxOpen)
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}

	logger.L().Info("postgres connected",
		logger.Component("store.pg"),
		logger.String("host", connCfg.Host),
		logger.String("database", connCfg.Database),
		logger.Int("max_open_conns", maxOpen),
	)
	return &Store{db: db}, nil
}

// DB expone el *sql.DB subyacente (migraciones).
func (s *Store) DB() *sql.DB { return s.db }

// Ping verifica la conexión.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close cierra el pool (idempotente a nivel database/sql).
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// gooseUp es un seam para tests.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// Migrate aplica las migraciones embebidas con goose.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("pg: goose dialect: %w", err)
	}
	if err := gooseUp(ctx, s.db, "."); err != nil {
		return fmt.Errorf("pg: migrate: %w", err)
	}
	logger.L().Info("migrations applied", logger.Component("store.pg"))
	return nil
}
