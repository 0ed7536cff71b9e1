package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/mpsingh12/imageshop/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsTable = "baskets_schema_migrations"

type PostgresOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// MigrationsDir overrides the migrations compiled into the binary.
	MigrationsDir string
	MaxOpenConns  int
}

func (o PostgresOptions) DSN() string {
	sslMode := o.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(o.User, o.Password),
		Host:     o.Host + ":" + strconv.Itoa(o.Port),
		Path:     "/" + o.DBName,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

// PostgresStore keeps one row per basket with the items as a JSONB array.
type PostgresStore struct {
	db            *sql.DB
	migrationsDir string
}

func OpenPostgres(ctx context.Context, o PostgresOptions) (*PostgresStore, error) {
	db, err := sql.Open("postgres", o.DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, unavailable("ping postgres", err)
	}

	maxOpen := o.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 50
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(max(1, maxOpen/5))

	return &PostgresStore{db: db, migrationsDir: o.MigrationsDir}, nil
}

// Migrate brings the schema up to date. Already being current is not an error.
func (p *PostgresStore) Migrate() error {
	driver, err := postgres.WithInstance(p.db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	var m *migrate.Migrate
	if p.migrationsDir != "" {
		m, err = migrate.NewWithDatabaseInstance("file://"+p.migrationsDir, "postgres", driver)
	} else {
		var src source.Driver
		if src, err = iofs.New(migrationsFS, "migrations"); err != nil {
			return fmt.Errorf("embedded migrations: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, "postgres", driver)
	}
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

const (
	selectBasketSQL = `SELECT owner_id, items, created_at, updated_at FROM baskets WHERE owner_id = $1`
	upsertBasketSQL = `
		INSERT INTO baskets (owner_id, items, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id) DO UPDATE
		SET items = EXCLUDED.items, updated_at = EXCLUDED.updated_at`
	deleteBasketSQL = `DELETE FROM baskets WHERE owner_id = $1`
)

func (p *PostgresStore) Get(ctx context.Context, key string) (*domain.Basket, error) {
	var (
		basket domain.Basket
		items  []byte
	)
	row := p.db.QueryRowContext(ctx, selectBasketSQL, key)
	switch err := row.Scan(&basket.OwnerID, &items, &basket.CreatedAt, &basket.UpdatedAt); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, unavailable("get basket", err)
	}

	if err := json.Unmarshal(items, &basket.Items); err != nil {
		return nil, unavailable("decode basket items", err)
	}
	return &basket, nil
}

func (p *PostgresStore) Put(ctx context.Context, basket *domain.Basket) error {
	items, err := json.Marshal(basket.Items)
	if err != nil {
		return fmt.Errorf("encode basket items: %w", err)
	}

	// lib/pq sends []byte as bytea; JSONB needs text.
	if _, err := p.db.ExecContext(ctx, upsertBasketSQL, basket.OwnerID, string(items), basket.CreatedAt, basket.UpdatedAt); err != nil {
		return unavailable("put basket", err)
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, basket *domain.Basket) error {
	if _, err := p.db.ExecContext(ctx, deleteBasketSQL, basket.OwnerID); err != nil {
		return unavailable("delete basket", err)
	}
	return nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}
