// Package assump holds the non-policy assumption parameter groups:
// growth-difference series that shift the baseline economic outlook,
// and consumption-response propensities. Both are small parameter sets
// driven by the same engine as tax-law parameters, so they share its
// reform protocol, projection, and validation behavior.
package assump

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/tax-engine/params"
	"github.com/warp/tax-engine/policy"
)

// growdiffSchema declares the additive growth-difference series. The
// values are deltas on the baseline fractional growth rates, zero under
// baseline assumptions.
const growdiffSchema = `{
"_ACPIU": {
    "long_name": "CPI-U price inflation rate difference",
    "description": "Added to the baseline price inflation rate for the year.",
    "section_1": "Growth Differences", "section_2": "Prices",
    "value_type": "real",
    "cpi_inflatable": false, "cpi_inflated": false,
    "row_label": ["2013"],
    "value": [0.0],
    "valid_values": {"min": -0.1, "max": 0.1},
    "invalid_action": "warn", "invalid_minmsg": "", "invalid_maxmsg": ""
},
"_AWAGE": {
    "long_name": "Average wage growth rate difference",
    "description": "Added to the baseline wage growth rate for the year.",
    "section_1": "Growth Differences", "section_2": "Wages",
    "value_type": "real",
    "cpi_inflatable": false, "cpi_inflated": false,
    "row_label": ["2013"],
    "value": [0.0],
    "valid_values": {"min": -0.1, "max": 0.1},
    "invalid_action": "warn", "invalid_minmsg": "", "invalid_maxmsg": ""
}
}`

// GrowDiff is a year-by-year set of growth-rate differences. Two
// instances usually exist side by side: one describing the baseline
// outlook and one describing the outlook under a behavioral response.
type GrowDiff struct {
	*params.Parameters
}

// NewGrowDiff returns an all-zero growth-difference set.
func NewGrowDiff() (*GrowDiff, error) {
	sch, err := params.LoadSchema([]byte(growdiffSchema),
		policy.JSONStartYear, policy.DefaultNumYears, nil)
	if err != nil {
		return nil, fmt.Errorf("assump: loading growdiff schema: %w", err)
	}
	return &GrowDiff{Parameters: params.New(sch, zeroRates{})}, nil
}

// HasAnyResponse reports whether any difference in any year is nonzero.
func (gd *GrowDiff) HasAnyResponse() bool {
	for _, name := range gd.Schema().Names() {
		rows, err := gd.Horizon(name)
		if err != nil {
			continue
		}
		for _, row := range rows {
			if !row[0].Number.IsZero() {
				return true
			}
		}
	}
	return false
}

// ApplyTo folds the differences into the growth assumptions, year by
// year. The caller re-derives any dependent projections afterwards
// (params.Parameters.Reindex).
func (gd *GrowDiff) ApplyTo(gf *policy.GrowFactors) error {
	prices, err := gd.Horizon("_ACPIU")
	if err != nil {
		return err
	}
	wages, err := gd.Horizon("_AWAGE")
	if err != nil {
		return err
	}
	for i := range prices {
		year := gd.StartYear() + i
		if !prices[i][0].Number.IsZero() {
			if err := gf.AddPriceDiff(year, prices[i][0].Number); err != nil {
				return err
			}
		}
		if !wages[i][0].Number.IsZero() {
			if err := gf.AddWageDiff(year, wages[i][0].Number); err != nil {
				return err
			}
		}
	}
	return nil
}

// zeroRates backs assumption parameter groups, none of which are
// price- or wage-indexed.
type zeroRates struct{}

func (zeroRates) Inflation(int) decimal.Decimal  { return decimal.Zero }
func (zeroRates) WageGrowth(int) decimal.Decimal { return decimal.Zero }
