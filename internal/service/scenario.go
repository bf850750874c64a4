package service

import (
	"github.com/aydintd/carsi/internal/domain"
)

// Named condition presets for the admin test-calculation tool and the
// cart tax-scenario endpoint. A scenario is pure sugar: it expands to
// an ordinary condition set before reaching the engine.
//
// The export preset targets an EU destination; the zero rating itself
// comes from an export tax rule in the data, never from engine code.
var scenarios = map[string]domain.Conditions{
	"domestic-individual": {
		CountryCode:  "TR",
		CustomerType: domain.CustomerTypeIndividual,
	},
	"domestic-company": {
		CountryCode:  "TR",
		CustomerType: domain.CustomerTypeCompany,
	},
	"export": {
		CountryCode:  "DE",
		CustomerType: domain.CustomerTypeCompany,
		IsExport:     true,
	},
}

// ScenarioConditions expands a named scenario into its condition set.
func ScenarioConditions(name string) (domain.Conditions, error) {
	c, ok := scenarios[name]
	if !ok {
		return domain.Conditions{}, domain.Errorf(domain.EINVALID, "tax.scenario", "unknown scenario: %s", name)
	}
	return c, nil
}

// ScenarioNames lists the available scenario presets.
func ScenarioNames() []string {
	return []string{"domestic-individual", "domestic-company", "export"}
}
