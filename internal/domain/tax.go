package domain

import (
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// RateType determines how a tax rate value is interpreted.
type RateType string

const (
	// RateTypePercentage interprets the rate value as a fraction of the base (0.18 = 18%).
	RateTypePercentage RateType = "percentage"
	// RateTypeFixed interprets the rate value as a flat currency amount.
	RateTypeFixed RateType = "fixed"
)

// Valid returns true for a known rate type.
func (t RateType) Valid() bool {
	return t == RateTypePercentage || t == RateTypeFixed
}

// EntityType identifies what kind of entity a tax rule binds to.
type EntityType string

const (
	EntityTypeProduct  EntityType = "product"
	EntityTypeCategory EntityType = "category"
	EntityTypeCustomer EntityType = "customer"
	EntityTypeShipping EntityType = "shipping"
	EntityTypePayment  EntityType = "payment"
)

// Valid returns true for a known entity type.
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeProduct, EntityTypeCategory, EntityTypeCustomer, EntityTypeShipping, EntityTypePayment:
		return true
	}
	return false
}

// CustomerType distinguishes retail individuals from companies.
// The empty string means "any customer type".
type CustomerType string

const (
	CustomerTypeIndividual CustomerType = "individual"
	CustomerTypeCompany    CustomerType = "company"
)

// Valid returns true for a known customer type.
func (t CustomerType) Valid() bool {
	return t == CustomerTypeIndividual || t == CustomerTypeCompany
}

// TaxClass is a named bucket of tax rates that products are assigned to.
// DefaultRate is the flat fallback used only when the class has no
// effective TaxRate for the evaluation date and country.
type TaxClass struct {
	ID          pgtype.UUID
	Name        string
	Code        string
	Description string
	DefaultRate decimal.Decimal // fraction in [0,1]
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaxRate is a single rate record owned by a TaxClass.
type TaxRate struct {
	ID             pgtype.UUID
	TaxClassID     pgtype.UUID
	Name           string
	Code           string
	Rate           decimal.Decimal // fraction for percentage, currency amount for fixed
	Type           RateType
	CountryCode    string
	Region         *string
	IsCompound     bool
	Priority       int32 // lower = applied earlier
	EffectiveFrom  *time.Time
	EffectiveUntil *time.Time
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EffectiveOn reports whether the rate applies on the given date.
// An inverted window (from after until) is treated as never effective.
func (r TaxRate) EffectiveOn(date time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.EffectiveFrom != nil && r.EffectiveUntil != nil && r.EffectiveFrom.After(*r.EffectiveUntil) {
		return false
	}
	if r.EffectiveFrom != nil && date.Before(*r.EffectiveFrom) {
		return false
	}
	if r.EffectiveUntil != nil && date.After(*r.EffectiveUntil) {
		return false
	}
	return true
}

// AppliesToCountry reports whether the rate is scoped to the given
// country (and region, when the rate carries one).
func (r TaxRate) AppliesToCountry(countryCode, region string) bool {
	if !strings.EqualFold(r.CountryCode, countryCode) {
		return false
	}
	if r.Region != nil && *r.Region != "" && !strings.EqualFold(*r.Region, region) {
		return false
	}
	return true
}

// TaxRule is a conditional binding of a tax rate to a jurisdiction,
// entity and customer scenario. Nil constraints are wildcards: a rule
// matches a condition set iff every non-nil constraint is satisfied.
type TaxRule struct {
	ID              pgtype.UUID
	TaxRateID       pgtype.UUID
	EntityType      EntityType
	EntityID        pgtype.UUID // zero UUID (Valid=false) applies to all entities of the type
	CountryCode     string
	Region          *string
	PostalCodeFrom  *string
	PostalCodeTo    *string
	CustomerType    CustomerType // "" = any
	OrderAmountFrom *decimal.Decimal
	OrderAmountTo   *decimal.Decimal
	Priority        int32
	StopProcessing  bool
	DateFrom        *time.Time
	DateTo          *time.Time
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Matches evaluates every constraint on the rule against the condition
// set. Each constraint is a pure predicate; absent constraints pass.
func (r TaxRule) Matches(c Conditions) bool {
	if !r.IsActive {
		return false
	}
	if r.EntityType != c.EntityType {
		return false
	}
	if r.EntityID.Valid && (!c.EntityID.Valid || r.EntityID.Bytes != c.EntityID.Bytes) {
		return false
	}
	if !strings.EqualFold(r.CountryCode, c.CountryCode) {
		return false
	}
	if r.Region != nil && *r.Region != "" && !strings.EqualFold(*r.Region, c.Region) {
		return false
	}
	if !r.matchesPostalCode(c.PostalCode) {
		return false
	}
	if r.CustomerType != "" && r.CustomerType != c.CustomerType {
		return false
	}
	if !r.matchesOrderAmount(c.OrderAmount) {
		return false
	}
	if !r.matchesDate(c.EvaluationDate) {
		return false
	}
	return true
}

// matchesPostalCode checks the postal-code range constraint. Turkish
// postal codes are fixed-width numeric strings, so lexicographic
// comparison orders them correctly.
func (r TaxRule) matchesPostalCode(postalCode string) bool {
	if r.PostalCodeFrom == nil && r.PostalCodeTo == nil {
		return true
	}
	if postalCode == "" {
		return false
	}
	if r.PostalCodeFrom != nil && postalCode < *r.PostalCodeFrom {
		return false
	}
	if r.PostalCodeTo != nil && postalCode > *r.PostalCodeTo {
		return false
	}
	return true
}

func (r TaxRule) matchesOrderAmount(amount *decimal.Decimal) bool {
	if r.OrderAmountFrom == nil && r.OrderAmountTo == nil {
		return true
	}
	if amount == nil {
		return false
	}
	if r.OrderAmountFrom != nil && amount.LessThan(*r.OrderAmountFrom) {
		return false
	}
	if r.OrderAmountTo != nil && amount.GreaterThan(*r.OrderAmountTo) {
		return false
	}
	return true
}

// matchesDate checks the rule's date window. An inverted window is
// treated as never matching, same as TaxRate.EffectiveOn.
func (r TaxRule) matchesDate(date time.Time) bool {
	if r.DateFrom != nil && r.DateTo != nil && r.DateFrom.After(*r.DateTo) {
		return false
	}
	if r.DateFrom != nil && date.Before(*r.DateFrom) {
		return false
	}
	if r.DateTo != nil && date.After(*r.DateTo) {
		return false
	}
	return true
}

// Conditions is the caller-supplied condition set for one calculation.
// It is not persisted. Callers resolve product -> tax class themselves
// and pass the class code; an empty TaxClassCode selects the configured
// default class.
type Conditions struct {
	CountryCode    string
	Region         string
	PostalCode     string
	CustomerType   CustomerType // "" = unspecified
	OrderAmount    *decimal.Decimal
	EntityType     EntityType
	EntityID       pgtype.UUID
	IsExport       bool
	EvaluationDate time.Time
	TaxClassCode   string
}

// ResolutionTier identifies which tier of the rule -> rate -> class
// default -> zero fallback chain produced a result.
type ResolutionTier string

const (
	TierRule         ResolutionTier = "rule"
	TierClassRate    ResolutionTier = "class_rate"
	TierClassDefault ResolutionTier = "class_default"
	TierZero         ResolutionTier = "zero"
)

// Signal is a non-fatal configuration-gap warning surfaced alongside a
// usable (zero-tax) result so checkout never hard-fails on missing data.
type Signal string

const (
	SignalNone                Signal = ""
	SignalTaxClassUnavailable Signal = "tax_class_unavailable"
	SignalNoTaxConfiguration  Signal = "no_tax_configuration"
)

// AppliedRate is one rate's contribution within a computation.
type AppliedRate struct {
	RateID            pgtype.UUID
	Name              string
	RateValue         decimal.Decimal
	Type              RateType
	AmountContributed decimal.Decimal
	IsCompound        bool
}

// TaxComputation is the full breakdown returned per calculation.
type TaxComputation struct {
	BaseAmount    decimal.Decimal
	TaxAmount     decimal.Decimal
	TotalWithTax  decimal.Decimal
	EffectiveRate decimal.Decimal // full precision, not rounded for display
	TaxClassName  string
	AppliedRates  []AppliedRate
	Tier          ResolutionTier
	Signal        Signal
}
