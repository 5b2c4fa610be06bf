// Package policy carries the current-law parameter schema and the
// reform machinery that projects it across the budget window.
//
// PURPOSE:
// This file provides GrowFactors, the source of year-over-year price
// and wage growth rates used to extrapolate inflation-indexed
// parameters. Rates are keyed by the year the transition starts from,
// so Inflation(2016) is the rate applied when deriving a 2017 value
// from a 2016 value.
//
// KEY CONCEPTS:
// - Baseline series: built-in price (CPI-U) and wage (average earnings)
//   growth assumptions covering the full budget window.
// - Growth differences: additive deltas layered on the baseline by
//   assumption reforms, kept separate so they can be inspected.
// - Price offset: an additive adjustment to the price series only,
//   installed when a reform changes the indexing measure itself.
//
// SEE ALSO:
// - params/parameters.go: consumes these rates through params.Rates.
// - assump/growdiff.go: produces the growth-difference deltas.
package policy

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ===== RATE TABLE =====

// Baseline growth assumptions by transition-start year. A rate for
// year y governs the y -> y+1 step.
var baselinePrice = map[int]string{
	2013: "0.0148", 2014: "0.0010", 2015: "0.0127", 2016: "0.0213",
	2017: "0.0211", 2018: "0.0218", 2019: "0.0124", 2020: "0.0426",
	2021: "0.0690", 2022: "0.0387", 2023: "0.0271", 2024: "0.0231",
	2025: "0.0226", 2026: "0.0225", 2027: "0.0224", 2028: "0.0223",
	2029: "0.0223",
}

var baselineWage = map[int]string{
	2013: "0.0345", 2014: "0.0349", 2015: "0.0112", 2016: "0.0346",
	2017: "0.0362", 2018: "0.0365", 2019: "0.0276", 2020: "0.0887",
	2021: "0.0354", 2022: "0.0444", 2023: "0.0453", 2024: "0.0398",
	2025: "0.0382", 2026: "0.0370", 2027: "0.0364", 2028: "0.0361",
	2029: "0.0359",
}

// ===== GROWFACTORS =====

// GrowFactors supplies the price and wage growth rates used to
// extrapolate indexed parameters. The zero value is not usable; call
// NewGrowFactors.
type GrowFactors struct {
	firstYear int
	lastYear  int

	price map[int]decimal.Decimal
	wage  map[int]decimal.Decimal

	// Additive adjustments layered on the baseline series. priceDiff
	// and wageDiff come from assumption reforms; priceOffset comes
	// from indexing-measure reforms and applies to prices only.
	priceDiff   map[int]decimal.Decimal
	wageDiff    map[int]decimal.Decimal
	priceOffset map[int]decimal.Decimal
}

// NewGrowFactors returns the baseline growth assumptions covering the
// full budget window.
func NewGrowFactors() *GrowFactors {
	gf := &GrowFactors{
		firstYear:   JSONStartYear,
		lastYear:    LastBudgetYear,
		price:       make(map[int]decimal.Decimal, len(baselinePrice)),
		wage:        make(map[int]decimal.Decimal, len(baselineWage)),
		priceDiff:   make(map[int]decimal.Decimal),
		wageDiff:    make(map[int]decimal.Decimal),
		priceOffset: make(map[int]decimal.Decimal),
	}
	for year, rate := range baselinePrice {
		gf.price[year] = decimal.RequireFromString(rate)
	}
	for year, rate := range baselineWage {
		gf.wage[year] = decimal.RequireFromString(rate)
	}
	return gf
}

// FirstYear reports the first year the rate series covers.
func (gf *GrowFactors) FirstYear() int { return gf.firstYear }

// LastYear reports the last year of the budget window.
func (gf *GrowFactors) LastYear() int { return gf.lastYear }

// Inflation returns the price growth rate for the year -> year+1
// transition, including any growth difference and indexing offset.
func (gf *GrowFactors) Inflation(year int) decimal.Decimal {
	rate := gf.price[year]
	if d, ok := gf.priceDiff[year]; ok {
		rate = rate.Add(d)
	}
	if off, ok := gf.priceOffset[year]; ok {
		rate = rate.Add(off)
	}
	return rate
}

// WageGrowth returns the wage growth rate for the year -> year+1
// transition, including any growth difference.
func (gf *GrowFactors) WageGrowth(year int) decimal.Decimal {
	rate := gf.wage[year]
	if d, ok := gf.wageDiff[year]; ok {
		rate = rate.Add(d)
	}
	return rate
}

// AddPriceDiff adds delta to the price growth rate for a single year.
// Repeated calls accumulate.
func (gf *GrowFactors) AddPriceDiff(year int, delta decimal.Decimal) error {
	if err := gf.checkYear(year); err != nil {
		return err
	}
	gf.priceDiff[year] = gf.priceDiff[year].Add(delta)
	return nil
}

// AddWageDiff adds delta to the wage growth rate for a single year.
// Repeated calls accumulate.
func (gf *GrowFactors) AddWageDiff(year int, delta decimal.Decimal) error {
	if err := gf.checkYear(year); err != nil {
		return err
	}
	gf.wageDiff[year] = gf.wageDiff[year].Add(delta)
	return nil
}

// SetPriceOffset installs the indexing offset for a single year,
// replacing any previous offset for that year.
func (gf *GrowFactors) SetPriceOffset(year int, offset decimal.Decimal) error {
	if err := gf.checkYear(year); err != nil {
		return err
	}
	gf.priceOffset[year] = offset
	return nil
}

func (gf *GrowFactors) checkYear(year int) error {
	if year < gf.firstYear || year > gf.lastYear {
		return fmt.Errorf("year %d outside growth-rate window [%d, %d]",
			year, gf.firstYear, gf.lastYear)
	}
	return nil
}

// DeepCopy returns an independent copy, including any applied
// differences and offsets.
func (gf *GrowFactors) DeepCopy() *GrowFactors {
	cp := &GrowFactors{
		firstYear:   gf.firstYear,
		lastYear:    gf.lastYear,
		price:       make(map[int]decimal.Decimal, len(gf.price)),
		wage:        make(map[int]decimal.Decimal, len(gf.wage)),
		priceDiff:   make(map[int]decimal.Decimal, len(gf.priceDiff)),
		wageDiff:    make(map[int]decimal.Decimal, len(gf.wageDiff)),
		priceOffset: make(map[int]decimal.Decimal, len(gf.priceOffset)),
	}
	for y, r := range gf.price {
		cp.price[y] = r
	}
	for y, r := range gf.wage {
		cp.wage[y] = r
	}
	for y, r := range gf.priceDiff {
		cp.priceDiff[y] = r
	}
	for y, r := range gf.wageDiff {
		cp.wageDiff[y] = r
	}
	for y, r := range gf.priceOffset {
		cp.priceOffset[y] = r
	}
	return cp
}
