// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/opensource-finance/pepscore/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Table names.
const (
	tablePeps                = "peps"
	tableRelatedPersonsLinks = "related_persons_links"
	tableDeclarations        = "declarations"
	tableProperties          = "properties"
	tablePropertyRights      = "property_rights"
	tableVehicles            = "vehicles"
	tableVehicleRights       = "vehicle_rights"
	tableMoney               = "money_assets"
	tableIncomes             = "incomes"
	tableTransactions        = "transactions"
	tableRegions             = "ratu_regions"
	tableCities              = "ratu_cities"
	tableExchangeRates       = "exchange_rates"
	tablePepScorings         = "pep_scorings"
)

var errMapping = map[error]error{sql.ErrNoRows: ErrNotFound}

func wrapErr(err error) error {
	for k, v := range errMapping {
		if errors.Is(err, k) {
			return v
		}
	}
	return err
}

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

var _ domain.Repository = (*SQLRepository)(nil)

// New creates a new repository based on configuration and runs migrations.
func New(ctx context.Context, cfg domain.RepositoryConfig) (*SQLRepository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(ctx, cfg)
	case "postgres":
		db, err = openPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 && cfg.SQLitePath != memoryPath {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate(ctx context.Context) error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.ExecContext(ctx, schema); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// builder returns a squirrel statement builder with the driver's placeholder format.
func (r *SQLRepository) builder() squirrel.StatementBuilderType {
	if r.driver == "postgres" {
		return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	}
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
}

func (r *SQLRepository) query(ctx context.Context, q squirrel.Sqlizer) (*sql.Rows, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return r.db.QueryContext(ctx, query, args...)
}

func (r *SQLRepository) queryRow(ctx context.Context, q squirrel.Sqlizer, dest ...any) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return wrapErr(r.db.QueryRowContext(ctx, query, args...).Scan(dest...))
}

func (r *SQLRepository) exec(ctx context.Context, q squirrel.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// upsert inserts one row into table, replacing the non-key columns on key conflict.
// columns and values are parallel; keys must be a subset of columns.
func (r *SQLRepository) upsert(ctx context.Context, table string, keys, columns []string, values ...any) error {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	set := make([]string, 0, len(columns))
	for _, c := range columns {
		if !isKey[c] {
			set = append(set, c+" = excluded."+c)
		}
	}

	suffix := fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", strings.Join(keys, ", "))
	if len(set) > 0 {
		suffix = fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(keys, ", "), strings.Join(set, ", "))
	}

	q := r.builder().Insert(table).Columns(columns...).Values(values...).Suffix(suffix)
	if err := r.exec(ctx, q); err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

// Nullable column helpers.

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func floatParam(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func intParam(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}

func timeParam(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	i := n.Int64
	return &i
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time.UTC()
	return &t
}

func propertyTypeStrings(types []domain.PropertyType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
