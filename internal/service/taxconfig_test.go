package service_test

import (
	"context"
	"testing"

	"github.com/aydintd/carsi/internal/domain"
	"github.com/aydintd/carsi/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// configStoreMock implements service.ConfigStore with overridable funcs.
// Unconfigured calls succeed by echoing their input.
type configStoreMock struct {
	createClassFunc    func(ctx context.Context, class *domain.TaxClass) (*domain.TaxClass, error)
	deleteClassFunc    func(ctx context.Context, id pgtype.UUID) error
	countRatesForClass int64
	countRulesForRate  int64
	deletedRates       []pgtype.UUID
	deletedClasses     []pgtype.UUID
}

func (m *configStoreMock) CreateTaxClass(ctx context.Context, class *domain.TaxClass) (*domain.TaxClass, error) {
	if m.createClassFunc != nil {
		return m.createClassFunc(ctx, class)
	}
	return class, nil
}

func (m *configStoreMock) GetTaxClass(ctx context.Context, id pgtype.UUID) (*domain.TaxClass, error) {
	return &domain.TaxClass{ID: id}, nil
}

func (m *configStoreMock) ListTaxClasses(ctx context.Context) ([]domain.TaxClass, error) {
	return nil, nil
}

func (m *configStoreMock) UpdateTaxClass(ctx context.Context, class *domain.TaxClass) (*domain.TaxClass, error) {
	return class, nil
}

func (m *configStoreMock) DeleteTaxClass(ctx context.Context, id pgtype.UUID) error {
	if m.deleteClassFunc != nil {
		return m.deleteClassFunc(ctx, id)
	}
	m.deletedClasses = append(m.deletedClasses, id)
	return nil
}

func (m *configStoreMock) CountRatesForClass(ctx context.Context, classID pgtype.UUID) (int64, error) {
	return m.countRatesForClass, nil
}

func (m *configStoreMock) CreateTaxRate(ctx context.Context, rate *domain.TaxRate) (*domain.TaxRate, error) {
	return rate, nil
}

func (m *configStoreMock) GetTaxRate(ctx context.Context, id pgtype.UUID) (*domain.TaxRate, error) {
	return &domain.TaxRate{ID: id}, nil
}

func (m *configStoreMock) ListTaxRates(ctx context.Context, classID *pgtype.UUID) ([]domain.TaxRate, error) {
	return nil, nil
}

func (m *configStoreMock) UpdateTaxRate(ctx context.Context, rate *domain.TaxRate) (*domain.TaxRate, error) {
	return rate, nil
}

func (m *configStoreMock) DeleteTaxRate(ctx context.Context, id pgtype.UUID) error {
	m.deletedRates = append(m.deletedRates, id)
	return nil
}

func (m *configStoreMock) CountRulesForRate(ctx context.Context, rateID pgtype.UUID) (int64, error) {
	return m.countRulesForRate, nil
}

func (m *configStoreMock) CreateTaxRule(ctx context.Context, rule *domain.TaxRule) (*domain.TaxRule, error) {
	return rule, nil
}

func (m *configStoreMock) GetTaxRule(ctx context.Context, id pgtype.UUID) (*domain.TaxRule, error) {
	return &domain.TaxRule{ID: id}, nil
}

func (m *configStoreMock) ListTaxRules(ctx context.Context) ([]domain.TaxRule, error) {
	return nil, nil
}

func (m *configStoreMock) UpdateTaxRule(ctx context.Context, rule *domain.TaxRule) (*domain.TaxRule, error) {
	return rule, nil
}

func (m *configStoreMock) DeleteTaxRule(ctx context.Context, id pgtype.UUID) error {
	return nil
}

type invalidatorMock struct {
	calls int
}

func (m *invalidatorMock) Invalidate() { m.calls++ }

func testUUID(t *testing.T) pgtype.UUID {
	t.Helper()
	var id pgtype.UUID
	require.NoError(t, id.Scan(uuid.New().String()))
	return id
}

func validClass(t *testing.T) *domain.TaxClass {
	t.Helper()
	return &domain.TaxClass{
		Name:        "Standart KDV",
		Code:        "standard",
		DefaultRate: decimal.RequireFromString("0.18"),
		IsActive:    true,
	}
}

func validRate(t *testing.T) *domain.TaxRate {
	t.Helper()
	return &domain.TaxRate{
		TaxClassID:  testUUID(t),
		Name:        "KDV 18",
		Code:        "kdv-18",
		Rate:        decimal.RequireFromString("0.18"),
		Type:        domain.RateTypePercentage,
		CountryCode: "TR",
		IsActive:    true,
	}
}

func Test_TaxConfigService_CreateTaxClass_Validation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *domain.TaxClass)
		wantField string
	}{
		{
			name:      "missing name",
			mutate:    func(c *domain.TaxClass) { c.Name = "" },
			wantField: "name",
		},
		{
			name:      "missing code",
			mutate:    func(c *domain.TaxClass) { c.Code = "" },
			wantField: "code",
		},
		{
			name:      "default rate above 1",
			mutate:    func(c *domain.TaxClass) { c.DefaultRate = decimal.RequireFromString("1.18") },
			wantField: "default_rate",
		},
		{
			name:      "negative default rate",
			mutate:    func(c *domain.TaxClass) { c.DefaultRate = decimal.RequireFromString("-0.01") },
			wantField: "default_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := service.NewTaxConfigService(&configStoreMock{}, nil, nil)
			class := validClass(t)
			tt.mutate(class)

			_, err := svc.CreateTaxClass(context.Background(), class)

			require.Error(t, err)
			assert.True(t, domain.IsValidationError(err))
			assert.Contains(t, domain.GetValidationFields(err), tt.wantField)
		})
	}
}

func Test_TaxConfigService_CreateTaxRate_Validation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *domain.TaxRate)
		wantField string
	}{
		{
			name:      "unknown type",
			mutate:    func(r *domain.TaxRate) { r.Type = "flat" },
			wantField: "type",
		},
		{
			name:      "percentage above 1",
			mutate:    func(r *domain.TaxRate) { r.Rate = decimal.RequireFromString("18") },
			wantField: "rate",
		},
		{
			name: "negative fixed rate",
			mutate: func(r *domain.TaxRate) {
				r.Type = domain.RateTypeFixed
				r.Rate = decimal.RequireFromString("-5")
			},
			wantField: "rate",
		},
		{
			name:      "missing country",
			mutate:    func(r *domain.TaxRate) { r.CountryCode = "" },
			wantField: "country_code",
		},
		{
			name:      "missing class",
			mutate:    func(r *domain.TaxRate) { r.TaxClassID = pgtype.UUID{} },
			wantField: "tax_class_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := service.NewTaxConfigService(&configStoreMock{}, nil, nil)
			rate := validRate(t)
			tt.mutate(rate)

			_, err := svc.CreateTaxRate(context.Background(), rate)

			require.Error(t, err)
			assert.True(t, domain.IsValidationError(err))
			assert.Contains(t, domain.GetValidationFields(err), tt.wantField)
		})
	}
}

func Test_TaxConfigService_CreateTaxRule_Validation(t *testing.T) {
	base := func(t *testing.T) *domain.TaxRule {
		return &domain.TaxRule{
			TaxRateID:   testUUID(t),
			EntityType:  domain.EntityTypeProduct,
			CountryCode: "TR",
			IsActive:    true,
		}
	}

	t.Run("inverted postal range", func(t *testing.T) {
		svc := service.NewTaxConfigService(&configStoreMock{}, nil, nil)
		rule := base(t)
		from, to := "34999", "34000"
		rule.PostalCodeFrom, rule.PostalCodeTo = &from, &to

		_, err := svc.CreateTaxRule(context.Background(), rule)

		require.Error(t, err)
		assert.Contains(t, domain.GetValidationFields(err), "postal_code_from")
	})

	t.Run("inverted order amount range", func(t *testing.T) {
		svc := service.NewTaxConfigService(&configStoreMock{}, nil, nil)
		rule := base(t)
		from := decimal.RequireFromString("500")
		to := decimal.RequireFromString("100")
		rule.OrderAmountFrom, rule.OrderAmountTo = &from, &to

		_, err := svc.CreateTaxRule(context.Background(), rule)

		require.Error(t, err)
		assert.Contains(t, domain.GetValidationFields(err), "order_amount_from")
	})

	t.Run("invalid entity type", func(t *testing.T) {
		svc := service.NewTaxConfigService(&configStoreMock{}, nil, nil)
		rule := base(t)
		rule.EntityType = "warehouse"

		_, err := svc.CreateTaxRule(context.Background(), rule)

		require.Error(t, err)
		assert.Contains(t, domain.GetValidationFields(err), "entity_type")
	})
}

func Test_TaxConfigService_DeleteTaxClass_BlockedWhenReferenced(t *testing.T) {
	store := &configStoreMock{countRatesForClass: 2}
	svc := service.NewTaxConfigService(store, nil, nil)

	err := svc.DeleteTaxClass(context.Background(), testUUID(t))

	require.Error(t, err)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.Empty(t, store.deletedClasses, "delete must not reach the store")
}

func Test_TaxConfigService_DeleteTaxRate_BlockedWhenReferenced(t *testing.T) {
	store := &configStoreMock{countRulesForRate: 1}
	svc := service.NewTaxConfigService(store, nil, nil)

	err := svc.DeleteTaxRate(context.Background(), testUUID(t))

	require.Error(t, err)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.Empty(t, store.deletedRates)
}

func Test_TaxConfigService_WritesInvalidateCache(t *testing.T) {
	store := &configStoreMock{}
	cache := &invalidatorMock{}
	svc := service.NewTaxConfigService(store, cache, nil)

	_, err := svc.CreateTaxClass(context.Background(), validClass(t))
	require.NoError(t, err)
	_, err = svc.CreateTaxRate(context.Background(), validRate(t))
	require.NoError(t, err)
	require.NoError(t, svc.DeleteTaxRate(context.Background(), testUUID(t)))

	assert.Equal(t, 3, cache.calls, "every successful write drops the read cache")
}

func Test_TaxConfigService_ValidationFailureDoesNotInvalidate(t *testing.T) {
	cache := &invalidatorMock{}
	svc := service.NewTaxConfigService(&configStoreMock{}, cache, nil)

	class := validClass(t)
	class.Code = ""
	_, err := svc.CreateTaxClass(context.Background(), class)

	require.Error(t, err)
	assert.Zero(t, cache.calls)
}

func Test_ScenarioConditions(t *testing.T) {
	for _, name := range service.ScenarioNames() {
		c, err := service.ScenarioConditions(name)
		require.NoError(t, err, "scenario %s", name)
		assert.NotEmpty(t, c.CountryCode)
	}

	export, err := service.ScenarioConditions("export")
	require.NoError(t, err)
	assert.True(t, export.IsExport)
	assert.Equal(t, domain.CustomerTypeCompany, export.CustomerType)

	_, err = service.ScenarioConditions("unknown")
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}
