package tax

import (
	"context"

	"github.com/aydintd/carsi/internal/domain"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Calculator defines the interface for tax calculation.
// Implementations: Engine (rule-driven), MockCalculator (tests).
type Calculator interface {
	// CalculateTax computes the tax breakdown for a monetary amount
	// under the given condition set. Configuration gaps degrade to a
	// zero-rate result with a signal; only invalid input returns an error.
	CalculateTax(ctx context.Context, amount decimal.Decimal, conditions domain.Conditions) (*domain.TaxComputation, error)
}

// Store provides read access to tax configuration. The engine performs
// no writes; implementations are internal/postgres.TaxStore and the
// CachedStore decorator.
type Store interface {
	// GetTaxClassByCode returns the class with the given code, or a
	// domain.ENOTFOUND error when no such class exists.
	GetTaxClassByCode(ctx context.Context, code string) (*domain.TaxClass, error)

	// ListRatesForClass returns the active rates owned by a class,
	// ordered by priority ascending, then insertion order.
	ListRatesForClass(ctx context.Context, classID pgtype.UUID) ([]domain.TaxRate, error)

	// ListRulesForEntityType returns active rules for an entity type
	// joined with their bound rate and the rate's class name, ordered
	// by priority ascending, then insertion order. Constraint matching
	// happens in the engine, not in the store.
	ListRulesForEntityType(ctx context.Context, entityType domain.EntityType) ([]RuleWithRate, error)
}

// RuleWithRate is a rule joined with the rate it binds and that rate's
// owning class name, as returned by the store in one pass.
type RuleWithRate struct {
	Rule      domain.TaxRule
	Rate      domain.TaxRate
	ClassName string
}

// Engine is the rule-driven tax calculator. It is a pure, read-mostly
// computation: no internal mutable state, safe for concurrent use.
type Engine struct {
	store            Store
	defaultCountry   string
	defaultClassCode string
}

// Compile-time check that Engine implements Calculator.
var _ Calculator = (*Engine)(nil)

// NewEngine creates a tax engine backed by the given store.
// defaultCountry and defaultClassCode fill in absent condition fields
// (typically "TR" and "standard").
func NewEngine(store Store, defaultCountry, defaultClassCode string) *Engine {
	return &Engine{
		store:            store,
		defaultCountry:   defaultCountry,
		defaultClassCode: defaultClassCode,
	}
}
