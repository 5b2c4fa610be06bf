package assump

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/tax-engine/params"
	"github.com/warp/tax-engine/policy"
)

// consumptionSchema declares marginal propensities to consume out of
// four deductible-expense categories. A nonzero propensity makes those
// expenses respond to after-tax income changes.
const consumptionSchema = `{
"_MPC_e17500": {
    "long_name": "Marginal propensity to consume medical expenses",
    "description": "Fraction of a marginal after-tax dollar spent on deductible medical care.",
    "section_1": "Consumption Response", "section_2": "Propensities",
    "value_type": "real",
    "cpi_inflatable": false, "cpi_inflated": false,
    "row_label": ["2013"],
    "value": [0.0],
    "valid_values": {"min": 0, "max": 1},
    "invalid_action": "stop", "invalid_minmsg": "", "invalid_maxmsg": ""
},
"_MPC_e18400": {
    "long_name": "Marginal propensity to consume state and local taxes",
    "description": "Fraction of a marginal after-tax dollar spent on deductible state/local taxes.",
    "section_1": "Consumption Response", "section_2": "Propensities",
    "value_type": "real",
    "cpi_inflatable": false, "cpi_inflated": false,
    "row_label": ["2013"],
    "value": [0.0],
    "valid_values": {"min": 0, "max": 1},
    "invalid_action": "stop", "invalid_minmsg": "", "invalid_maxmsg": ""
},
"_MPC_e19800": {
    "long_name": "Marginal propensity to consume charitable giving",
    "description": "Fraction of a marginal after-tax dollar given to deductible charity.",
    "section_1": "Consumption Response", "section_2": "Propensities",
    "value_type": "real",
    "cpi_inflatable": false, "cpi_inflated": false,
    "row_label": ["2013"],
    "value": [0.0],
    "valid_values": {"min": 0, "max": 1},
    "invalid_action": "stop", "invalid_minmsg": "", "invalid_maxmsg": ""
},
"_MPC_e20400": {
    "long_name": "Marginal propensity to consume miscellaneous deductibles",
    "description": "Fraction of a marginal after-tax dollar spent on miscellaneous deductible expenses.",
    "section_1": "Consumption Response", "section_2": "Propensities",
    "value_type": "real",
    "cpi_inflatable": false, "cpi_inflated": false,
    "row_label": ["2013"],
    "value": [0.0],
    "valid_values": {"min": 0, "max": 1},
    "invalid_action": "stop", "invalid_minmsg": "", "invalid_maxmsg": ""
}
}`

// Consumption is the marginal-propensity parameter group. All
// propensities are zero under baseline assumptions, which makes the
// consumption response a no-op.
type Consumption struct {
	*params.Parameters
}

// NewConsumption returns the all-zero baseline propensities.
func NewConsumption() (*Consumption, error) {
	sch, err := params.LoadSchema([]byte(consumptionSchema),
		policy.JSONStartYear, policy.DefaultNumYears, nil)
	if err != nil {
		return nil, fmt.Errorf("assump: loading consumption schema: %w", err)
	}
	return &Consumption{Parameters: params.New(sch, zeroRates{})}, nil
}

// HasResponse reports whether any propensity is nonzero in the current
// year, i.e. whether applying the response would change anything.
func (c *Consumption) HasResponse() bool {
	for _, name := range c.Schema().Names() {
		row, err := c.Current(name)
		if err != nil {
			continue
		}
		if !row[0].Number.IsZero() {
			return true
		}
	}
	return false
}

// MPC returns the current-year marginal propensity for one expense
// category (named by its schema parameter, e.g. "_MPC_e17500").
func (c *Consumption) MPC(name string) (decimal.Decimal, error) {
	row, err := c.Current(name)
	if err != nil {
		return decimal.Zero, err
	}
	return row[0].Number, nil
}
