package tax

import (
	"context"

	"github.com/aydintd/carsi/internal/domain"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// MockStore is a test implementation of Store with overridable funcs.
type MockStore struct {
	GetTaxClassByCodeFunc      func(ctx context.Context, code string) (*domain.TaxClass, error)
	ListRatesForClassFunc      func(ctx context.Context, classID pgtype.UUID) ([]domain.TaxRate, error)
	ListRulesForEntityTypeFunc func(ctx context.Context, entityType domain.EntityType) ([]RuleWithRate, error)
}

// GetTaxClassByCode delegates to the configured func or reports not found.
func (m *MockStore) GetTaxClassByCode(ctx context.Context, code string) (*domain.TaxClass, error) {
	if m.GetTaxClassByCodeFunc != nil {
		return m.GetTaxClassByCodeFunc(ctx, code)
	}
	return nil, domain.NotFound("taxclass.get", "tax class", code)
}

// ListRatesForClass delegates to the configured func or returns no rates.
func (m *MockStore) ListRatesForClass(ctx context.Context, classID pgtype.UUID) ([]domain.TaxRate, error) {
	if m.ListRatesForClassFunc != nil {
		return m.ListRatesForClassFunc(ctx, classID)
	}
	return nil, nil
}

// ListRulesForEntityType delegates to the configured func or returns no rules.
func (m *MockStore) ListRulesForEntityType(ctx context.Context, entityType domain.EntityType) ([]RuleWithRate, error) {
	if m.ListRulesForEntityTypeFunc != nil {
		return m.ListRulesForEntityTypeFunc(ctx, entityType)
	}
	return nil, nil
}

// MockCalculator is a test implementation of Calculator.
type MockCalculator struct {
	CalculateTaxFunc func(ctx context.Context, amount decimal.Decimal, conditions domain.Conditions) (*domain.TaxComputation, error)
}

// CalculateTax delegates to the configured function or returns a zero-tax result.
func (m *MockCalculator) CalculateTax(ctx context.Context, amount decimal.Decimal, conditions domain.Conditions) (*domain.TaxComputation, error) {
	if m.CalculateTaxFunc != nil {
		return m.CalculateTaxFunc(ctx, amount, conditions)
	}
	return &domain.TaxComputation{
		BaseAmount:    amount,
		TaxAmount:     decimal.Zero,
		TotalWithTax:  amount,
		EffectiveRate: decimal.Zero,
		Tier:          domain.TierZero,
	}, nil
}
