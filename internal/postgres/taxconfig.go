package postgres

import (
	"context"
	"errors"

	"github.com/aydintd/carsi/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Admin write path for tax configuration. Validation happens in
// service.TaxConfigService; this layer maps constraint failures onto
// domain error codes.

// =============================================================================
// TAX CLASSES
// =============================================================================

// CreateTaxClass inserts a new tax class and returns the stored row.
func (s *TaxStore) CreateTaxClass(ctx context.Context, class *domain.TaxClass) (*domain.TaxClass, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO tax_classes (name, code, description, default_rate, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+taxClassColumns+`
	`, class.Name, class.Code, stringPtrToText(&class.Description), decimalToNumeric(class.DefaultRate), class.IsActive)

	created, err := scanTaxClass(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflict("taxclass.create", "a tax class with this code already exists")
		}
		return nil, domain.Internal(err, "taxclass.create", "failed to create tax class")
	}
	return created, nil
}

// GetTaxClass returns a class by ID.
func (s *TaxStore) GetTaxClass(ctx context.Context, id pgtype.UUID) (*domain.TaxClass, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+taxClassColumns+`
		FROM tax_classes
		WHERE id = $1
	`, id)

	class, err := scanTaxClass(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("taxclass.get", "tax class", uuidString(id))
		}
		return nil, domain.Internal(err, "taxclass.get", "failed to load tax class")
	}
	return class, nil
}

// ListTaxClasses returns all classes ordered by name.
func (s *TaxStore) ListTaxClasses(ctx context.Context) ([]domain.TaxClass, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+taxClassColumns+`
		FROM tax_classes
		ORDER BY name
	`)
	if err != nil {
		return nil, domain.Internal(err, "taxclass.list", "failed to list tax classes")
	}
	defer rows.Close()

	var classes []domain.TaxClass
	for rows.Next() {
		class, err := scanTaxClass(rows)
		if err != nil {
			return nil, domain.Internal(err, "taxclass.list", "failed to scan tax class")
		}
		classes = append(classes, *class)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "taxclass.list", "failed to read tax classes")
	}
	return classes, nil
}

// UpdateTaxClass updates a class and returns the stored row.
func (s *TaxStore) UpdateTaxClass(ctx context.Context, class *domain.TaxClass) (*domain.TaxClass, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE tax_classes
		SET name = $2, code = $3, description = $4, default_rate = $5, is_active = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+taxClassColumns+`
	`, class.ID, class.Name, class.Code, stringPtrToText(&class.Description), decimalToNumeric(class.DefaultRate), class.IsActive)

	updated, err := scanTaxClass(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("taxclass.update", "tax class", uuidString(class.ID))
		}
		if isUniqueViolation(err) {
			return nil, domain.Conflict("taxclass.update", "a tax class with this code already exists")
		}
		return nil, domain.Internal(err, "taxclass.update", "failed to update tax class")
	}
	return updated, nil
}

// DeleteTaxClass removes a class. Deletion is blocked at the database
// level when rates still reference the class.
func (s *TaxStore) DeleteTaxClass(ctx context.Context, id pgtype.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tax_classes WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Conflict("taxclass.delete", "tax class is referenced by tax rates")
		}
		return domain.Internal(err, "taxclass.delete", "failed to delete tax class")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("taxclass.delete", "tax class", uuidString(id))
	}
	return nil
}

// CountRatesForClass returns how many rates reference a class.
func (s *TaxStore) CountRatesForClass(ctx context.Context, classID pgtype.UUID) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM tax_rates WHERE tax_class_id = $1`, classID).Scan(&count)
	if err != nil {
		return 0, domain.Internal(err, "taxclass.count_rates", "failed to count tax rates")
	}
	return count, nil
}

// =============================================================================
// TAX RATES
// =============================================================================

// CreateTaxRate inserts a new tax rate and returns the stored row.
func (s *TaxStore) CreateTaxRate(ctx context.Context, rate *domain.TaxRate) (*domain.TaxRate, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO tax_rates (
			tax_class_id, name, code, rate, type, country_code, region,
			is_compound, priority, effective_from, effective_until, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+taxRateColumns+`
	`, rate.TaxClassID, rate.Name, rate.Code, decimalToNumeric(rate.Rate), string(rate.Type),
		rate.CountryCode, stringPtrToText(rate.Region), rate.IsCompound, rate.Priority,
		timePtrToDate(rate.EffectiveFrom), timePtrToDate(rate.EffectiveUntil), rate.IsActive)

	created, err := scanTaxRate(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflict("taxrate.create", "a tax rate with this code already exists")
		}
		if isForeignKeyViolation(err) {
			return nil, domain.Invalid("taxrate.create", "tax class does not exist")
		}
		return nil, domain.Internal(err, "taxrate.create", "failed to create tax rate")
	}
	return created, nil
}

// GetTaxRate returns a rate by ID.
func (s *TaxStore) GetTaxRate(ctx context.Context, id pgtype.UUID) (*domain.TaxRate, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+taxRateColumns+`
		FROM tax_rates
		WHERE id = $1
	`, id)

	rate, err := scanTaxRate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("taxrate.get", "tax rate", uuidString(id))
		}
		return nil, domain.Internal(err, "taxrate.get", "failed to load tax rate")
	}
	return rate, nil
}

// ListTaxRates returns all rates, optionally filtered by class.
func (s *TaxStore) ListTaxRates(ctx context.Context, classID *pgtype.UUID) ([]domain.TaxRate, error) {
	query := `
		SELECT ` + taxRateColumns + `
		FROM tax_rates
		ORDER BY priority, created_at, id
	`
	args := []any{}
	if classID != nil {
		query = `
			SELECT ` + taxRateColumns + `
			FROM tax_rates
			WHERE tax_class_id = $1
			ORDER BY priority, created_at, id
		`
		args = append(args, *classID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.Internal(err, "taxrate.list", "failed to list tax rates")
	}
	defer rows.Close()

	var rates []domain.TaxRate
	for rows.Next() {
		rate, err := scanTaxRate(rows)
		if err != nil {
			return nil, domain.Internal(err, "taxrate.list", "failed to scan tax rate")
		}
		rates = append(rates, *rate)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "taxrate.list", "failed to read tax rates")
	}
	return rates, nil
}

// UpdateTaxRate updates a rate and returns the stored row.
func (s *TaxStore) UpdateTaxRate(ctx context.Context, rate *domain.TaxRate) (*domain.TaxRate, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE tax_rates
		SET tax_class_id = $2, name = $3, code = $4, rate = $5, type = $6, country_code = $7,
			region = $8, is_compound = $9, priority = $10, effective_from = $11,
			effective_until = $12, is_active = $13, updated_at = now()
		WHERE id = $1
		RETURNING `+taxRateColumns+`
	`, rate.ID, rate.TaxClassID, rate.Name, rate.Code, decimalToNumeric(rate.Rate), string(rate.Type),
		rate.CountryCode, stringPtrToText(rate.Region), rate.IsCompound, rate.Priority,
		timePtrToDate(rate.EffectiveFrom), timePtrToDate(rate.EffectiveUntil), rate.IsActive)

	updated, err := scanTaxRate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("taxrate.update", "tax rate", uuidString(rate.ID))
		}
		if isUniqueViolation(err) {
			return nil, domain.Conflict("taxrate.update", "a tax rate with this code already exists")
		}
		return nil, domain.Internal(err, "taxrate.update", "failed to update tax rate")
	}
	return updated, nil
}

// DeleteTaxRate removes a rate. Deletion is blocked at the database
// level when rules still reference the rate.
func (s *TaxStore) DeleteTaxRate(ctx context.Context, id pgtype.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tax_rates WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Conflict("taxrate.delete", "tax rate is referenced by tax rules")
		}
		return domain.Internal(err, "taxrate.delete", "failed to delete tax rate")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("taxrate.delete", "tax rate", uuidString(id))
	}
	return nil
}

// CountRulesForRate returns how many rules reference a rate.
func (s *TaxStore) CountRulesForRate(ctx context.Context, rateID pgtype.UUID) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM tax_rules WHERE tax_rate_id = $1`, rateID).Scan(&count)
	if err != nil {
		return 0, domain.Internal(err, "taxrate.count_rules", "failed to count tax rules")
	}
	return count, nil
}

// =============================================================================
// TAX RULES
// =============================================================================

const taxRuleColumns = `id, tax_rate_id, entity_type, entity_id, country_code, region,
	postal_code_from, postal_code_to, customer_type, order_amount_from, order_amount_to,
	priority, stop_processing, date_from, date_to, is_active, created_at, updated_at`

// CreateTaxRule inserts a new tax rule and returns the stored row.
func (s *TaxStore) CreateTaxRule(ctx context.Context, rule *domain.TaxRule) (*domain.TaxRule, error) {
	var customerType pgtype.Text
	if rule.CustomerType != "" {
		customerType = pgtype.Text{String: string(rule.CustomerType), Valid: true}
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO tax_rules (
			tax_rate_id, entity_type, entity_id, country_code, region,
			postal_code_from, postal_code_to, customer_type,
			order_amount_from, order_amount_to, priority, stop_processing,
			date_from, date_to, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+taxRuleColumns+`
	`, rule.TaxRateID, string(rule.EntityType), rule.EntityID, rule.CountryCode, stringPtrToText(rule.Region),
		stringPtrToText(rule.PostalCodeFrom), stringPtrToText(rule.PostalCodeTo), customerType,
		decimalPtrToNumeric(rule.OrderAmountFrom), decimalPtrToNumeric(rule.OrderAmountTo),
		rule.Priority, rule.StopProcessing, timePtrToDate(rule.DateFrom), timePtrToDate(rule.DateTo), rule.IsActive)

	created, err := scanTaxRule(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.Invalid("taxrule.create", "tax rate does not exist")
		}
		return nil, domain.Internal(err, "taxrule.create", "failed to create tax rule")
	}
	return created, nil
}

// GetTaxRule returns a rule by ID.
func (s *TaxStore) GetTaxRule(ctx context.Context, id pgtype.UUID) (*domain.TaxRule, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+taxRuleColumns+`
		FROM tax_rules
		WHERE id = $1
	`, id)

	rule, err := scanTaxRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("taxrule.get", "tax rule", uuidString(id))
		}
		return nil, domain.Internal(err, "taxrule.get", "failed to load tax rule")
	}
	return rule, nil
}

// ListTaxRules returns all rules ordered by priority then insertion.
func (s *TaxStore) ListTaxRules(ctx context.Context) ([]domain.TaxRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+taxRuleColumns+`
		FROM tax_rules
		ORDER BY priority, created_at, id
	`)
	if err != nil {
		return nil, domain.Internal(err, "taxrule.list", "failed to list tax rules")
	}
	defer rows.Close()

	var rules []domain.TaxRule
	for rows.Next() {
		rule, err := scanTaxRule(rows)
		if err != nil {
			return nil, domain.Internal(err, "taxrule.list", "failed to scan tax rule")
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "taxrule.list", "failed to read tax rules")
	}
	return rules, nil
}

// UpdateTaxRule updates a rule and returns the stored row.
func (s *TaxStore) UpdateTaxRule(ctx context.Context, rule *domain.TaxRule) (*domain.TaxRule, error) {
	var customerType pgtype.Text
	if rule.CustomerType != "" {
		customerType = pgtype.Text{String: string(rule.CustomerType), Valid: true}
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE tax_rules
		SET tax_rate_id = $2, entity_type = $3, entity_id = $4, country_code = $5, region = $6,
			postal_code_from = $7, postal_code_to = $8, customer_type = $9,
			order_amount_from = $10, order_amount_to = $11, priority = $12, stop_processing = $13,
			date_from = $14, date_to = $15, is_active = $16, updated_at = now()
		WHERE id = $1
		RETURNING `+taxRuleColumns+`
	`, rule.ID, rule.TaxRateID, string(rule.EntityType), rule.EntityID, rule.CountryCode, stringPtrToText(rule.Region),
		stringPtrToText(rule.PostalCodeFrom), stringPtrToText(rule.PostalCodeTo), customerType,
		decimalPtrToNumeric(rule.OrderAmountFrom), decimalPtrToNumeric(rule.OrderAmountTo),
		rule.Priority, rule.StopProcessing, timePtrToDate(rule.DateFrom), timePtrToDate(rule.DateTo), rule.IsActive)

	updated, err := scanTaxRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("taxrule.update", "tax rule", uuidString(rule.ID))
		}
		if isForeignKeyViolation(err) {
			return nil, domain.Invalid("taxrule.update", "tax rate does not exist")
		}
		return nil, domain.Internal(err, "taxrule.update", "failed to update tax rule")
	}
	return updated, nil
}

// DeleteTaxRule removes a rule.
func (s *TaxStore) DeleteTaxRule(ctx context.Context, id pgtype.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tax_rules WHERE id = $1`, id)
	if err != nil {
		return domain.Internal(err, "taxrule.delete", "failed to delete tax rule")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("taxrule.delete", "tax rule", uuidString(id))
	}
	return nil
}

// scanTaxRule scans one tax_rules row.
func scanTaxRule(row pgx.Row) (*domain.TaxRule, error) {
	var (
		rule         domain.TaxRule
		entityType   string
		region       pgtype.Text
		postalFrom   pgtype.Text
		postalTo     pgtype.Text
		customerType pgtype.Text
		amountFrom   pgtype.Numeric
		amountTo     pgtype.Numeric
		dateFrom     pgtype.Date
		dateTo       pgtype.Date
	)
	err := row.Scan(
		&rule.ID, &rule.TaxRateID, &entityType, &rule.EntityID, &rule.CountryCode, &region,
		&postalFrom, &postalTo, &customerType, &amountFrom, &amountTo,
		&rule.Priority, &rule.StopProcessing, &dateFrom, &dateTo, &rule.IsActive,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rule.EntityType = domain.EntityType(entityType)
	rule.Region = textToStringPtr(region)
	rule.PostalCodeFrom = textToStringPtr(postalFrom)
	rule.PostalCodeTo = textToStringPtr(postalTo)
	if customerType.Valid {
		rule.CustomerType = domain.CustomerType(customerType.String)
	}
	rule.OrderAmountFrom = numericPtrToDecimalPtr(amountFrom)
	rule.OrderAmountTo = numericPtrToDecimalPtr(amountTo)
	rule.DateFrom = dateToTimePtr(dateFrom)
	rule.DateTo = dateToTimePtr(dateTo)
	return &rule, nil
}

// uuidString formats a pgtype.UUID for error messages.
func uuidString(id pgtype.UUID) string {
	v, err := id.Value()
	if err != nil || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
