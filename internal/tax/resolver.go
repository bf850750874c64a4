package tax

import (
	"context"

	"github.com/aydintd/carsi/internal/domain"
)

// candidate is one rate scheduled for application, with its display
// name and owning class name already resolved.
type candidate struct {
	rate      domain.TaxRate
	className string
}

// resolution is the tagged outcome of the rule -> class rate -> class
// default -> zero fallback chain. Candidates are in application order.
type resolution struct {
	candidates []candidate
	tier       domain.ResolutionTier
	signal     domain.Signal
	className  string
}

// resolve walks the three-tier fallback chain for a condition set.
// Store errors are returned as-is; configuration gaps are not errors
// and produce a zero-tier resolution with a signal instead.
func (e *Engine) resolve(ctx context.Context, c domain.Conditions) (*resolution, error) {
	// Tier 1: conditional rules.
	rules, err := e.store.ListRulesForEntityType(ctx, c.EntityType)
	if err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, "tax.resolve", "failed to load tax rules")
	}

	// Rules arrive ordered by priority then insertion, so equal-priority
	// matches stack deterministically. A matching stop_processing rule is
	// consumed and then ends the walk.
	var matched []candidate
	for _, rr := range rules {
		if !rr.Rule.Matches(c) {
			continue
		}
		// A rule whose bound rate is inactive or outside its effective
		// window is skipped entirely, stop flag included.
		if !rr.Rate.EffectiveOn(c.EvaluationDate) {
			continue
		}
		matched = append(matched, candidate{rate: rr.Rate, className: rr.ClassName})
		if rr.Rule.StopProcessing {
			break
		}
	}
	if len(matched) > 0 {
		return &resolution{
			candidates: matched,
			tier:       domain.TierRule,
			className:  matched[0].className,
		}, nil
	}

	// Tier 2: the class's own effective rates.
	class, err := e.store.GetTaxClassByCode(ctx, c.TaxClassCode)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return &resolution{
				tier:   domain.TierZero,
				signal: domain.SignalNoTaxConfiguration,
			}, nil
		}
		return nil, domain.WrapError(err, domain.EINTERNAL, "tax.resolve", "failed to load tax class")
	}
	if !class.IsActive {
		return &resolution{
			tier:      domain.TierZero,
			signal:    domain.SignalTaxClassUnavailable,
			className: class.Name,
		}, nil
	}

	rates, err := e.store.ListRatesForClass(ctx, class.ID)
	if err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, "tax.resolve", "failed to load tax rates")
	}

	var effective []candidate
	for _, r := range rates {
		if !r.EffectiveOn(c.EvaluationDate) {
			continue
		}
		if !r.AppliesToCountry(c.CountryCode, c.Region) {
			continue
		}
		effective = append(effective, candidate{rate: r, className: class.Name})
	}
	if len(effective) > 0 {
		return &resolution{
			candidates: effective,
			tier:       domain.TierClassRate,
			className:  class.Name,
		}, nil
	}

	// Tier 3: the class-level flat default, as a single synthetic
	// percentage rate named after the class.
	return &resolution{
		candidates: []candidate{{
			rate: domain.TaxRate{
				Name:        class.Name,
				Code:        class.Code,
				Rate:        class.DefaultRate,
				Type:        domain.RateTypePercentage,
				CountryCode: c.CountryCode,
				IsActive:    true,
			},
			className: class.Name,
		}},
		tier:      domain.TierClassDefault,
		className: class.Name,
	}, nil
}
