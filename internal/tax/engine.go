package tax

import (
	"context"
	"time"

	"github.com/aydintd/carsi/internal/domain"
	"github.com/shopspring/decimal"
)

// CalculateTax computes the cascading tax breakdown for an amount under
// the given conditions. Negative amounts are rejected; everything else
// produces a full breakdown, falling back through rule -> class rate ->
// class default -> zero when configuration is missing.
func (e *Engine) CalculateTax(ctx context.Context, amount decimal.Decimal, conditions domain.Conditions) (*domain.TaxComputation, error) {
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	conditions = e.normalize(amount, conditions)

	res, err := e.resolve(ctx, conditions)
	if err != nil {
		return nil, err
	}

	return compute(amount, res), nil
}

// normalize fills in the optional condition fields the spec defaults:
// evaluation date (now), entity type (product), country and class code
// (engine configuration), and order amount (the base amount itself).
func (e *Engine) normalize(amount decimal.Decimal, c domain.Conditions) domain.Conditions {
	if c.EvaluationDate.IsZero() {
		c.EvaluationDate = time.Now().UTC()
	}
	if c.EntityType == "" {
		c.EntityType = domain.EntityTypeProduct
	}
	if c.CountryCode == "" {
		c.CountryCode = e.defaultCountry
	}
	if c.TaxClassCode == "" {
		c.TaxClassCode = e.defaultClassCode
	}
	if c.OrderAmount == nil {
		c.OrderAmount = &amount
	}
	return c
}

// compute turns an ordered candidate list into the breakdown.
//
// Non-compound rates are computed against the original base amount.
// Compound rates are computed against base plus all contributions
// already accumulated from earlier rates, compound or not. Fixed rates
// contribute their literal value regardless of base. Contributions are
// rounded to 2 decimal places at the point of contribution; the
// effective rate is left at full division precision.
func compute(base decimal.Decimal, res *resolution) *domain.TaxComputation {
	applied := make([]domain.AppliedRate, 0, len(res.candidates))
	taxAmount := decimal.Zero

	for _, cand := range res.candidates {
		var contribution decimal.Decimal
		switch {
		case cand.rate.Type == domain.RateTypeFixed:
			contribution = cand.rate.Rate.Round(2)
		case cand.rate.IsCompound:
			contribution = base.Add(taxAmount).Mul(cand.rate.Rate).Round(2)
		default:
			contribution = base.Mul(cand.rate.Rate).Round(2)
		}

		applied = append(applied, domain.AppliedRate{
			RateID:            cand.rate.ID,
			Name:              cand.rate.Name,
			RateValue:         cand.rate.Rate,
			Type:              cand.rate.Type,
			AmountContributed: contribution,
			IsCompound:        cand.rate.IsCompound,
		})
		taxAmount = taxAmount.Add(contribution)
	}

	effectiveRate := decimal.Zero
	if base.IsPositive() {
		effectiveRate = taxAmount.Div(base)
	}

	return &domain.TaxComputation{
		BaseAmount:    base,
		TaxAmount:     taxAmount,
		TotalWithTax:  base.Add(taxAmount),
		EffectiveRate: effectiveRate,
		TaxClassName:  res.className,
		AppliedRates:  applied,
		Tier:          res.tier,
		Signal:        res.signal,
	}
}
