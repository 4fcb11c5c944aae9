// Package domain defines the core interfaces and types for pepscore.
package domain

import (
	"context"
	"time"
)

// DeclarationStore is the read-only query interface the scoring rules run against.
type DeclarationStore interface {
	// Declarations and people
	GetDeclaration(ctx context.Context, declarationID int64) (*Declaration, error)
	DeclarationExists(ctx context.Context, declarationID int64) (bool, error)
	ListDeclarationsByPep(ctx context.Context, pepID int64) ([]*Declaration, error)
	ListDeclarationIDs(ctx context.Context, filter DeclarationFilter) ([]int64, error)
	GetPep(ctx context.Context, pepID int64) (*Pep, error)
	ListRelatedPersonsLinks(ctx context.Context, pepID int64, category string) ([]*RelatedPersonsLink, error)

	// Rights held by people, joined with the asset
	ListPropertyRights(ctx context.Context, filter RightFilter) ([]*PropertyRightRecord, error)
	ListVehicleRights(ctx context.Context, filter RightFilter) ([]*VehicleRightRecord, error)

	// Assets attached to declarations
	ListProperties(ctx context.Context, declarationIDs []int64, types []PropertyType) ([]*Property, error)
	ListVehicles(ctx context.Context, declarationIDs []int64) ([]*Vehicle, error)
	ListMoney(ctx context.Context, declarationIDs []int64) ([]*Money, error)
	ListIncomes(ctx context.Context, declarationIDs []int64) ([]*Income, error)
	ListTransactions(ctx context.Context, declarationIDs []int64) ([]*Transaction, error)

	// Geography
	GetCity(ctx context.Context, cityID int64) (*RatuCity, error)
	ListCities(ctx context.Context, cityIDs []int64) ([]*RatuCity, error)
	GetRegion(ctx context.Context, regionID int64) (*RatuRegion, error)
}

// ScoringStore is the persistence sink for rule results.
type ScoringStore interface {
	// UpsertScoring creates or replaces the row keyed by (declaration, pep, rule).
	UpsertScoring(ctx context.Context, scoring *PepScoring) error
	// DeleteScoring removes the row keyed by (declaration, pep, rule), if any.
	DeleteScoring(ctx context.Context, declarationID, pepID int64, ruleID string) error
	ListScorings(ctx context.Context, declarationID int64) ([]*PepScoring, error)
}

// DeclarationWriter loads registry data. Used by import tooling and tests.
type DeclarationWriter interface {
	SavePep(ctx context.Context, pep *Pep) error
	SaveRelatedPersonsLink(ctx context.Context, link *RelatedPersonsLink) error
	SaveDeclaration(ctx context.Context, decl *Declaration) error
	SaveProperty(ctx context.Context, p *Property) error
	SavePropertyRight(ctx context.Context, r *PropertyRight) error
	SaveVehicle(ctx context.Context, v *Vehicle) error
	SaveVehicleRight(ctx context.Context, r *VehicleRight) error
	SaveMoney(ctx context.Context, m *Money) error
	SaveIncome(ctx context.Context, i *Income) error
	SaveTransaction(ctx context.Context, t *Transaction) error
	SaveRegion(ctx context.Context, r *RatuRegion) error
	SaveCity(ctx context.Context, c *RatuCity) error
	SaveExchangeRate(ctx context.Context, rate *ExchangeRate) error
}

// Repository bundles everything the SQL store provides.
type Repository interface {
	DeclarationStore
	ScoringStore
	DeclarationWriter

	// GetUSDRate returns how many USD one unit of currency was worth in year.
	GetUSDRate(ctx context.Context, currency string, year int) (float64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// DeclarationFilter narrows ListDeclarationIDs. Zero values mean "any".
type DeclarationFilter struct {
	PepID    int64
	YearFrom int
	YearTo   int
	Limit    int
}

// RightFilter narrows right lookups.
type RightFilter struct {
	PepIDs           []int64
	PropertyTypes    []PropertyType
	ValuationMissing bool
	AcquiredFrom     time.Time
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
