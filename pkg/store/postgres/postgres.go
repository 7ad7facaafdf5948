// Package postgres stores archive rules in PostgreSQL.
//
// Only the rule repository lives here; tags, the node index and job
// registrations always stay in the SQLite store. Migrations are embedded and
// applied with golang-migrate on Connect.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mdhemmi/files-archive/pkg/archive"
	"github.com/mdhemmi/files-archive/pkg/store"
)

const backend = "postgres"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config contains PostgreSQL connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// MaxConns limits the pool size. Zero keeps the pgxpool default.
	MaxConns int32
}

// DSN returns the libpq style connection URL.
func (c *Config) DSN() string {
	return c.url("postgres")
}

// MigrateURL returns the URL golang-migrate's pgx/v5 driver expects.
func (c *Config) MigrateURL() string {
	return c.url("pgx5")
}

func (c *Config) url(scheme string) string {
	u := url.URL{
		Scheme: scheme,
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u.RawQuery = url.Values{"sslmode": []string{sslMode}}.Encode()
	return u.String()
}

// Repository is the PostgreSQL rule repository.
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect opens a pool, verifies it with a ping and applies migrations.
func Connect(ctx context.Context, config *Config) (*Repository, error) {
	logger := slog.Default().With("component", "store.postgres")

	if err := Migrate(config, logger); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(config.DSN())
	if err != nil {
		return nil, store.NewStorageError(backend, "parse_dsn", err)
	}
	if config.MaxConns > 0 {
		poolCfg.MaxConns = config.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, store.NewStorageError(backend, "connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, store.NewStorageError(backend, "ping", err)
	}

	logger.Info("PostgreSQL rule store connected",
		"host", config.Host,
		"port", config.Port,
		"database", config.Database,
	)
	return &Repository{pool: pool, logger: logger}, nil
}

// Migrate applies the embedded migrations.
func Migrate(config *Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return store.NewStorageError(backend, "migrations_source", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, config.MigrateURL())
	if err != nil {
		return store.NewStorageError(backend, "migrate_init", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return store.NewStorageError(backend, "migrate_up", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("migrations applied", "version", version, "dirty", dirty)
	return nil
}

// Ping checks the connection with a short timeout.
func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.pool.Ping(ctx); err != nil {
		return store.NewStorageError(backend, "ping", err)
	}
	return nil
}

// Close closes the pool.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

const ruleColumns = `id, tag_id, time_unit, time_amount, time_after`

// CreateRule inserts rule and sets its ID.
func (r *Repository) CreateRule(ctx context.Context, rule *archive.Rule) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO archive_rules (tag_id, time_unit, time_amount, time_after)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		rule.TagID, int16(rule.TimeUnit), rule.TimeAmount, int16(rule.TimeAfter),
	).Scan(&rule.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("tag %d: %w", rule.TagID, store.ErrDuplicateRule)
	}
	if err != nil {
		return store.NewStorageError(backend, "create_rule", err)
	}
	return nil
}

// GetRule returns the rule with the given id.
func (r *Repository) GetRule(ctx context.Context, id int64) (*archive.Rule, error) {
	rule, err := scanRule(r.pool.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM archive_rules WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("rule %d: %w", id, archive.ErrRuleNotFound)
	}
	if err != nil {
		return nil, store.NewStorageError(backend, "get_rule", err)
	}
	return rule, nil
}

// FetchByTag returns the rule bound to tagID.
func (r *Repository) FetchByTag(ctx context.Context, tagID int64) (*archive.Rule, error) {
	rule, err := scanRule(r.pool.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM archive_rules WHERE tag_id = $1`, tagID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("tag %d: %w", tagID, archive.ErrRuleNotFound)
	}
	if err != nil {
		return nil, store.NewStorageError(backend, "fetch_rule", err)
	}
	return rule, nil
}

// ListRules returns all rules ordered by id.
func (r *Repository) ListRules(ctx context.Context) ([]*archive.Rule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+ruleColumns+` FROM archive_rules ORDER BY id`)
	if err != nil {
		return nil, store.NewStorageError(backend, "list_rules", err)
	}
	defer rows.Close()

	var rules []*archive.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, store.NewStorageError(backend, "list_rules", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStorageError(backend, "list_rules", err)
	}
	return rules, nil
}

// DeleteRule removes the rule with the given id.
func (r *Repository) DeleteRule(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM archive_rules WHERE id = $1`, id)
	if err != nil {
		return store.NewStorageError(backend, "delete_rule", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rule %d: %w", id, archive.ErrRuleNotFound)
	}
	return nil
}

func scanRule(row pgx.Row) (*archive.Rule, error) {
	var (
		rule            archive.Rule
		unit, timeAfter int16
	)
	if err := row.Scan(&rule.ID, &rule.TagID, &unit, &rule.TimeAmount, &timeAfter); err != nil {
		return nil, err
	}
	rule.TimeUnit = archive.TimeUnit(unit)
	rule.TimeAfter = archive.TimeAfterMode(timeAfter)
	return &rule, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
