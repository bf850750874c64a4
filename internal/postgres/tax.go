package postgres

import (
	"context"
	"errors"

	"github.com/aydintd/carsi/internal/domain"
	"github.com/aydintd/carsi/internal/tax"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaxStore implements tax.Store (engine reads) plus the admin write
// operations consumed by service.TaxConfigService.
type TaxStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that TaxStore implements tax.Store.
var _ tax.Store = (*TaxStore)(nil)

// NewTaxStore creates a PostgreSQL-backed tax store.
func NewTaxStore(pool *pgxpool.Pool) *TaxStore {
	return &TaxStore{pool: pool}
}

const taxClassColumns = `id, name, code, description, default_rate, is_active, created_at, updated_at`

const taxRateColumns = `id, tax_class_id, name, code, rate, type, country_code, region,
	is_compound, priority, effective_from, effective_until, is_active, created_at, updated_at`

// GetTaxClassByCode returns the class with the given code.
func (s *TaxStore) GetTaxClassByCode(ctx context.Context, code string) (*domain.TaxClass, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+taxClassColumns+`
		FROM tax_classes
		WHERE code = $1
	`, code)

	class, err := scanTaxClass(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("taxclass.get", "tax class", code)
		}
		return nil, domain.Internal(err, "taxclass.get", "failed to load tax class")
	}
	return class, nil
}

// ListRatesForClass returns the active rates owned by a class, ordered
// by priority then insertion order.
func (s *TaxStore) ListRatesForClass(ctx context.Context, classID pgtype.UUID) ([]domain.TaxRate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+taxRateColumns+`
		FROM tax_rates
		WHERE tax_class_id = $1 AND is_active = true
		ORDER BY priority, created_at, id
	`, classID)
	if err != nil {
		return nil, domain.Internal(err, "taxrate.list_for_class", "failed to list tax rates")
	}
	defer rows.Close()

	var rates []domain.TaxRate
	for rows.Next() {
		rate, err := scanTaxRate(rows)
		if err != nil {
			return nil, domain.Internal(err, "taxrate.list_for_class", "failed to scan tax rate")
		}
		rates = append(rates, *rate)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "taxrate.list_for_class", "failed to read tax rates")
	}
	return rates, nil
}

// ListRulesForEntityType returns active rules for an entity type joined
// with their bound rate and class name. Ordering by priority then
// insertion realizes the deterministic equal-priority stacking order.
func (s *TaxStore) ListRulesForEntityType(ctx context.Context, entityType domain.EntityType) ([]tax.RuleWithRate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			ru.id, ru.tax_rate_id, ru.entity_type, ru.entity_id, ru.country_code, ru.region,
			ru.postal_code_from, ru.postal_code_to, ru.customer_type,
			ru.order_amount_from, ru.order_amount_to, ru.priority, ru.stop_processing,
			ru.date_from, ru.date_to, ru.is_active, ru.created_at, ru.updated_at,
			ra.id, ra.tax_class_id, ra.name, ra.code, ra.rate, ra.type, ra.country_code, ra.region,
			ra.is_compound, ra.priority, ra.effective_from, ra.effective_until, ra.is_active,
			ra.created_at, ra.updated_at,
			tc.name
		FROM tax_rules ru
		JOIN tax_rates ra ON ra.id = ru.tax_rate_id
		JOIN tax_classes tc ON tc.id = ra.tax_class_id
		WHERE ru.entity_type = $1 AND ru.is_active = true
		ORDER BY ru.priority, ru.created_at, ru.id
	`, string(entityType))
	if err != nil {
		return nil, domain.Internal(err, "taxrule.list_for_entity", "failed to list tax rules")
	}
	defer rows.Close()

	var out []tax.RuleWithRate
	for rows.Next() {
		var (
			rule domain.TaxRule
			rate domain.TaxRate

			ruleRegion       pgtype.Text
			rulePostalFrom   pgtype.Text
			rulePostalTo     pgtype.Text
			ruleCustomerType pgtype.Text
			ruleAmountFrom   pgtype.Numeric
			ruleAmountTo     pgtype.Numeric
			ruleDateFrom     pgtype.Date
			ruleDateTo       pgtype.Date

			rateValue     pgtype.Numeric
			rateRegion    pgtype.Text
			rateEffFrom   pgtype.Date
			rateEffUntil  pgtype.Date
			className     string
			ruleEntityTyp string
			rateTyp       string
		)

		err := rows.Scan(
			&rule.ID, &rule.TaxRateID, &ruleEntityTyp, &rule.EntityID, &rule.CountryCode, &ruleRegion,
			&rulePostalFrom, &rulePostalTo, &ruleCustomerType,
			&ruleAmountFrom, &ruleAmountTo, &rule.Priority, &rule.StopProcessing,
			&ruleDateFrom, &ruleDateTo, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
			&rate.ID, &rate.TaxClassID, &rate.Name, &rate.Code, &rateValue, &rateTyp, &rate.CountryCode, &rateRegion,
			&rate.IsCompound, &rate.Priority, &rateEffFrom, &rateEffUntil, &rate.IsActive,
			&rate.CreatedAt, &rate.UpdatedAt,
			&className,
		)
		if err != nil {
			return nil, domain.Internal(err, "taxrule.list_for_entity", "failed to scan tax rule")
		}

		rule.EntityType = domain.EntityType(ruleEntityTyp)
		rule.Region = textToStringPtr(ruleRegion)
		rule.PostalCodeFrom = textToStringPtr(rulePostalFrom)
		rule.PostalCodeTo = textToStringPtr(rulePostalTo)
		if ruleCustomerType.Valid {
			rule.CustomerType = domain.CustomerType(ruleCustomerType.String)
		}
		rule.OrderAmountFrom = numericPtrToDecimalPtr(ruleAmountFrom)
		rule.OrderAmountTo = numericPtrToDecimalPtr(ruleAmountTo)
		rule.DateFrom = dateToTimePtr(ruleDateFrom)
		rule.DateTo = dateToTimePtr(ruleDateTo)

		rate.Type = domain.RateType(rateTyp)
		rate.Rate = numericToDecimal(rateValue)
		rate.Region = textToStringPtr(rateRegion)
		rate.EffectiveFrom = dateToTimePtr(rateEffFrom)
		rate.EffectiveUntil = dateToTimePtr(rateEffUntil)

		out = append(out, tax.RuleWithRate{Rule: rule, Rate: rate, ClassName: className})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "taxrule.list_for_entity", "failed to read tax rules")
	}
	return out, nil
}

// scanTaxClass scans one tax_classes row.
func scanTaxClass(row pgx.Row) (*domain.TaxClass, error) {
	var (
		class       domain.TaxClass
		description pgtype.Text
		defaultRate pgtype.Numeric
	)
	err := row.Scan(
		&class.ID, &class.Name, &class.Code, &description, &defaultRate,
		&class.IsActive, &class.CreatedAt, &class.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		class.Description = description.String
	}
	class.DefaultRate = numericToDecimal(defaultRate)
	return &class, nil
}

// scanTaxRate scans one tax_rates row.
func scanTaxRate(row pgx.Row) (*domain.TaxRate, error) {
	var (
		rate     domain.TaxRate
		value    pgtype.Numeric
		typ      string
		region   pgtype.Text
		effFrom  pgtype.Date
		effUntil pgtype.Date
	)
	err := row.Scan(
		&rate.ID, &rate.TaxClassID, &rate.Name, &rate.Code, &value, &typ, &rate.CountryCode, &region,
		&rate.IsCompound, &rate.Priority, &effFrom, &effUntil, &rate.IsActive,
		&rate.CreatedAt, &rate.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rate.Rate = numericToDecimal(value)
	rate.Type = domain.RateType(typ)
	rate.Region = textToStringPtr(region)
	rate.EffectiveFrom = dateToTimePtr(effFrom)
	rate.EffectiveUntil = dateToTimePtr(effUntil)
	return &rate, nil
}
