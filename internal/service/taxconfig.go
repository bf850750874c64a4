package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aydintd/carsi/internal/domain"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// ConfigStore is the write-side persistence surface for tax
// configuration. Implemented by postgres.TaxStore.
type ConfigStore interface {
	CreateTaxClass(ctx context.Context, class *domain.TaxClass) (*domain.TaxClass, error)
	GetTaxClass(ctx context.Context, id pgtype.UUID) (*domain.TaxClass, error)
	ListTaxClasses(ctx context.Context) ([]domain.TaxClass, error)
	UpdateTaxClass(ctx context.Context, class *domain.TaxClass) (*domain.TaxClass, error)
	DeleteTaxClass(ctx context.Context, id pgtype.UUID) error
	CountRatesForClass(ctx context.Context, classID pgtype.UUID) (int64, error)

	CreateTaxRate(ctx context.Context, rate *domain.TaxRate) (*domain.TaxRate, error)
	GetTaxRate(ctx context.Context, id pgtype.UUID) (*domain.TaxRate, error)
	ListTaxRates(ctx context.Context, classID *pgtype.UUID) ([]domain.TaxRate, error)
	UpdateTaxRate(ctx context.Context, rate *domain.TaxRate) (*domain.TaxRate, error)
	DeleteTaxRate(ctx context.Context, id pgtype.UUID) error
	CountRulesForRate(ctx context.Context, rateID pgtype.UUID) (int64, error)

	CreateTaxRule(ctx context.Context, rule *domain.TaxRule) (*domain.TaxRule, error)
	GetTaxRule(ctx context.Context, id pgtype.UUID) (*domain.TaxRule, error)
	ListTaxRules(ctx context.Context) ([]domain.TaxRule, error)
	UpdateTaxRule(ctx context.Context, rule *domain.TaxRule) (*domain.TaxRule, error)
	DeleteTaxRule(ctx context.Context, id pgtype.UUID) error
}

// Invalidator drops cached tax configuration after a write.
// Implemented by tax.CachedStore.
type Invalidator interface {
	Invalidate()
}

// TaxConfigService provides the admin CRUD surface for tax classes,
// rates, and rules, with semantic validation and cache invalidation.
type TaxConfigService interface {
	CreateTaxClass(ctx context.Context, class *domain.TaxClass) (*domain.TaxClass, error)
	GetTaxClass(ctx context.Context, id pgtype.UUID) (*domain.TaxClass, error)
	ListTaxClasses(ctx context.Context) ([]domain.TaxClass, error)
	UpdateTaxClass(ctx context.Context, class *domain.TaxClass) (*domain.TaxClass, error)
	DeleteTaxClass(ctx context.Context, id pgtype.UUID) error

	CreateTaxRate(ctx context.Context, rate *domain.TaxRate) (*domain.TaxRate, error)
	GetTaxRate(ctx context.Context, id pgtype.UUID) (*domain.TaxRate, error)
	ListTaxRates(ctx context.Context, classID *pgtype.UUID) ([]domain.TaxRate, error)
	UpdateTaxRate(ctx context.Context, rate *domain.TaxRate) (*domain.TaxRate, error)
	DeleteTaxRate(ctx context.Context, id pgtype.UUID) error

	CreateTaxRule(ctx context.Context, rule *domain.TaxRule) (*domain.TaxRule, error)
	GetTaxRule(ctx context.Context, id pgtype.UUID) (*domain.TaxRule, error)
	ListTaxRules(ctx context.Context) ([]domain.TaxRule, error)
	UpdateTaxRule(ctx context.Context, rule *domain.TaxRule) (*domain.TaxRule, error)
	DeleteTaxRule(ctx context.Context, id pgtype.UUID) error
}

type taxConfigService struct {
	store  ConfigStore
	cache  Invalidator
	logger *slog.Logger
}

// NewTaxConfigService creates the admin tax configuration service.
// cache may be nil when no read cache is in front of the store.
func NewTaxConfigService(store ConfigStore, cache Invalidator, logger *slog.Logger) TaxConfigService {
	if logger == nil {
		logger = slog.Default()
	}
	return &taxConfigService{store: store, cache: cache, logger: logger}
}

// invalidate drops the engine's read cache after any successful write
// so calculations see fresh configuration immediately.
func (s *taxConfigService) invalidate() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}

// =============================================================================
// TAX CLASSES
// =============================================================================

func validateTaxClass(op string, class *domain.TaxClass) error {
	var err error
	if class.Name == "" {
		err = domain.AddFieldError(err, "name", "name is required")
	}
	if class.Code == "" {
		err = domain.AddFieldError(err, "code", "code is required")
	}
	if class.DefaultRate.IsNegative() || class.DefaultRate.GreaterThan(decimal.NewFromInt(1)) {
		err = domain.AddFieldError(err, "default_rate", "default rate must be between 0 and 1")
	}
	return withOp(err, op)
}

// withOp stamps the failing operation onto a ValidationError.
func withOp(err error, op string) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		ve.Op = op
	}
	return err
}

func (s *taxConfigService) CreateTaxClass(ctx context.Context, class *domain.TaxClass) (*domain.TaxClass, error) {
	if err := validateTaxClass("taxclass.create", class); err != nil {
		return nil, err
	}
	created, err := s.store.CreateTaxClass(ctx, class)
	if err != nil {
		return nil, err
	}
	s.invalidate()
	s.logger.Info("tax class created", "code", created.Code)
	return created, nil
}

func (s *taxConfigService) GetTaxClass(ctx context.Context, id pgtype.UUID) (*domain.TaxClass, error) {
	return s.store.GetTaxClass(ctx, id)
}

func (s *taxConfigService) ListTaxClasses(ctx context.Context) ([]domain.TaxClass, error) {
	return s.store.ListTaxClasses(ctx)
}

func (s *taxConfigService) UpdateTaxClass(ctx context.Context, class *domain.TaxClass) (*domain.TaxClass, error) {
	if err := validateTaxClass("taxclass.update", class); err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateTaxClass(ctx, class)
	if err != nil {
		return nil, err
	}
	s.invalidate()
	return updated, nil
}

// DeleteTaxClass blocks deletion while rates still reference the class;
// removing tax configuration out from under products is an explicit
// two-step operation, never a cascade.
func (s *taxConfigService) DeleteTaxClass(ctx context.Context, id pgtype.UUID) error {
	count, err := s.store.CountRatesForClass(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.Conflict("taxclass.delete", "tax class is referenced by tax rates")
	}
	if err := s.store.DeleteTaxClass(ctx, id); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// =============================================================================
// TAX RATES
// =============================================================================

func validateTaxRate(op string, rate *domain.TaxRate) error {
	var err error
	if rate.Name == "" {
		err = domain.AddFieldError(err, "name", "name is required")
	}
	if rate.Code == "" {
		err = domain.AddFieldError(err, "code", "code is required")
	}
	if rate.CountryCode == "" {
		err = domain.AddFieldError(err, "country_code", "country code is required")
	}
	if !rate.Type.Valid() {
		err = domain.AddFieldError(err, "type", "type must be percentage or fixed")
	}
	switch rate.Type {
	case domain.RateTypePercentage:
		// Percentage values are fractions; callers must not exceed [0,1].
		if rate.Rate.IsNegative() || rate.Rate.GreaterThan(decimal.NewFromInt(1)) {
			err = domain.AddFieldError(err, "rate", "percentage rate must be between 0 and 1")
		}
	case domain.RateTypeFixed:
		if rate.Rate.IsNegative() {
			err = domain.AddFieldError(err, "rate", "fixed rate must not be negative")
		}
	}
	if !rate.TaxClassID.Valid {
		err = domain.AddFieldError(err, "tax_class_id", "tax class is required")
	}
	return withOp(err, op)
}

func (s *taxConfigService) CreateTaxRate(ctx context.Context, rate *domain.TaxRate) (*domain.TaxRate, error) {
	if err := validateTaxRate("taxrate.create", rate); err != nil {
		return nil, err
	}
	if inverted(rate.EffectiveFrom, rate.EffectiveUntil) {
		// Stored as-is but never effective; worth flagging for the admin.
		s.logger.Warn("tax rate has an inverted effective window", "code", rate.Code)
	}
	created, err := s.store.CreateTaxRate(ctx, rate)
	if err != nil {
		return nil, err
	}
	s.invalidate()
	s.logger.Info("tax rate created", "code", created.Code, "type", string(created.Type))
	return created, nil
}

func (s *taxConfigService) GetTaxRate(ctx context.Context, id pgtype.UUID) (*domain.TaxRate, error) {
	return s.store.GetTaxRate(ctx, id)
}

func (s *taxConfigService) ListTaxRates(ctx context.Context, classID *pgtype.UUID) ([]domain.TaxRate, error) {
	return s.store.ListTaxRates(ctx, classID)
}

func (s *taxConfigService) UpdateTaxRate(ctx context.Context, rate *domain.TaxRate) (*domain.TaxRate, error) {
	if err := validateTaxRate("taxrate.update", rate); err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateTaxRate(ctx, rate)
	if err != nil {
		return nil, err
	}
	s.invalidate()
	return updated, nil
}

func (s *taxConfigService) DeleteTaxRate(ctx context.Context, id pgtype.UUID) error {
	count, err := s.store.CountRulesForRate(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.Conflict("taxrate.delete", "tax rate is referenced by tax rules")
	}
	if err := s.store.DeleteTaxRate(ctx, id); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// =============================================================================
// TAX RULES
// =============================================================================

func validateTaxRule(op string, rule *domain.TaxRule) error {
	var err error
	if !rule.TaxRateID.Valid {
		err = domain.AddFieldError(err, "tax_rate_id", "tax rate is required")
	}
	if !rule.EntityType.Valid() {
		err = domain.AddFieldError(err, "entity_type", "entity type must be one of product, category, customer, shipping, payment")
	}
	if rule.CountryCode == "" {
		err = domain.AddFieldError(err, "country_code", "country code is required")
	}
	if rule.CustomerType != "" && !rule.CustomerType.Valid() {
		err = domain.AddFieldError(err, "customer_type", "customer type must be individual or company")
	}
	if rule.PostalCodeFrom != nil && rule.PostalCodeTo != nil && *rule.PostalCodeFrom > *rule.PostalCodeTo {
		err = domain.AddFieldError(err, "postal_code_from", "postal code range is inverted")
	}
	if rule.OrderAmountFrom != nil && rule.OrderAmountTo != nil && rule.OrderAmountFrom.GreaterThan(*rule.OrderAmountTo) {
		err = domain.AddFieldError(err, "order_amount_from", "order amount range is inverted")
	}
	return withOp(err, op)
}

func (s *taxConfigService) CreateTaxRule(ctx context.Context, rule *domain.TaxRule) (*domain.TaxRule, error) {
	if err := validateTaxRule("taxrule.create", rule); err != nil {
		return nil, err
	}
	created, err := s.store.CreateTaxRule(ctx, rule)
	if err != nil {
		return nil, err
	}
	s.invalidate()
	s.logger.Info("tax rule created",
		"entity_type", string(created.EntityType),
		"priority", created.Priority,
		"stop_processing", created.StopProcessing)
	return created, nil
}

func (s *taxConfigService) GetTaxRule(ctx context.Context, id pgtype.UUID) (*domain.TaxRule, error) {
	return s.store.GetTaxRule(ctx, id)
}

func (s *taxConfigService) ListTaxRules(ctx context.Context) ([]domain.TaxRule, error) {
	return s.store.ListTaxRules(ctx)
}

func (s *taxConfigService) UpdateTaxRule(ctx context.Context, rule *domain.TaxRule) (*domain.TaxRule, error) {
	if err := validateTaxRule("taxrule.update", rule); err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateTaxRule(ctx, rule)
	if err != nil {
		return nil, err
	}
	s.invalidate()
	return updated, nil
}

func (s *taxConfigService) DeleteTaxRule(ctx context.Context, id pgtype.UUID) error {
	if err := s.store.DeleteTaxRule(ctx, id); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// inverted reports whether a date window can never contain any date.
func inverted(from, until *time.Time) bool {
	return from != nil && until != nil && from.After(*until)
}
