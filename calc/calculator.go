/*
calculator.go - Policy-plus-records orchestration

PURPOSE:
  Calculator binds one Policy to one set of filing-unit Records and
  keeps the two on the same calendar year. It snapshots the policy
  parameters into a law once per year, runs the per-unit pipeline in
  tax.go over every record, and supports marginal-rate probes that
  optionally feed a consumption response back into expense fields.

KEY CONCEPTS:
  - Year lockstep: AdvanceToYear moves the policy cursor, ages the
    records with the policy's wage growth, and refreshes the law
    snapshot. The three never drift apart.
  - Finite-difference MTRs: MTR perturbs primary wages by one cent on
    a copy of the unit and reports the tax deltas per dollar.

USAGE:
  pol, _ := policy.New()
  recs, _ := calc.NewRecords(units, 2013)
  c, _ := calc.NewCalculator(pol, recs)
  _ = c.AdvanceToYear(2018)
  results := c.CalcAll()

SEE ALSO:
  - tax.go for the per-unit pipeline
  - law.go for the parameter snapshot
*/
package calc

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/tax-engine/assump"
	"github.com/warp/tax-engine/params"
	"github.com/warp/tax-engine/policy"
)

// ErrUnknownUnit reports an MTR probe for a filing-unit ID that is
// not in the records.
var ErrUnknownUnit = errors.New("calc: unknown filing unit")

// mtrDelta is the wage perturbation used by MTR. One cent keeps the
// perturbed unit inside its bracket for any realistic income.
var mtrDelta = decimal.RequireFromString("0.01")

// Calculator evaluates a Policy over a set of Records.
type Calculator struct {
	pol  *policy.Policy
	recs *Records
	cons *assump.Consumption
	lw   *law
}

// NewCalculator binds pol and recs. Records dated before the policy's
// current year are aged forward to it.
func NewCalculator(pol *policy.Policy, recs *Records) (*Calculator, error) {
	if recs.Year() > pol.CurrentYear() {
		return nil, fmt.Errorf("calc: records at %d are ahead of policy year %d",
			recs.Year(), pol.CurrentYear())
	}
	if err := recs.AgeTo(pol.CurrentYear(), pol.GrowFactors()); err != nil {
		return nil, err
	}
	lw, err := loadLaw(pol)
	if err != nil {
		return nil, err
	}
	return &Calculator{pol: pol, recs: recs, lw: lw}, nil
}

// SetConsumption installs consumption-response assumptions used by
// MTR probes. A nil value restores the static default.
func (c *Calculator) SetConsumption(cons *assump.Consumption) { c.cons = cons }

// CurrentYear returns the calendar year both the policy and the
// records sit on.
func (c *Calculator) CurrentYear() int { return c.pol.CurrentYear() }

// Records returns the filing units the calculator operates on.
func (c *Calculator) Records() *Records { return c.recs }

// Policy returns the bound policy.
func (c *Calculator) Policy() *policy.Policy { return c.pol }

// PolicyParam returns the current-year row of a policy parameter.
func (c *Calculator) PolicyParam(name string) (params.Row, error) {
	return c.pol.Current(name)
}

// AdvanceToYear moves policy and records forward to year and
// refreshes the parameter snapshot. Years only move forward.
func (c *Calculator) AdvanceToYear(year int) error {
	if err := c.pol.SetYear(year); err != nil {
		return err
	}
	if err := c.recs.AgeTo(year, c.pol.GrowFactors()); err != nil {
		return err
	}
	lw, err := loadLaw(c.pol)
	if err != nil {
		return err
	}
	c.lw = lw
	return nil
}

// CalcAll runs the full tax pipeline over every filing unit and
// returns one Result per unit, in record order.
func (c *Calculator) CalcAll() []Result {
	out := make([]Result, 0, c.recs.Count())
	for _, u := range c.recs.Units() {
		out = append(out, computeUnit(c.lw, u))
	}
	return out
}

// WeightedTotal runs CalcAll and sums sel(result) weighted by each
// unit's sampling weight.
func (c *Calculator) WeightedTotal(sel func(*Result) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, u := range c.recs.Units() {
		res := computeUnit(c.lw, u)
		total = total.Add(sel(&res).Mul(u.Weight))
	}
	return total
}

// MarginalRates holds the finite-difference marginal tax rates of one
// filing unit with respect to primary wages.
type MarginalRates struct {
	Payroll   decimal.Decimal
	IncomeTax decimal.Decimal
	Combined  decimal.Decimal
}

// MTR probes the marginal tax rates of the identified unit by adding
// one cent of primary wages. When consumption assumptions with a
// response are installed, the marginal dollar also raises the unit's
// deductible expenses by the matching propensities.
func (c *Calculator) MTR(unitID string) (MarginalRates, error) {
	u, ok := c.recs.Unit(unitID)
	if !ok {
		return MarginalRates{}, fmt.Errorf("%w: %q", ErrUnknownUnit, unitID)
	}
	base := computeUnit(c.lw, u)

	probe := *u
	probe.WageSelf = probe.WageSelf.Add(mtrDelta)
	if c.cons != nil && c.cons.HasResponse() {
		if err := c.applyConsumptionResponse(&probe); err != nil {
			return MarginalRates{}, err
		}
	}
	bumped := computeUnit(c.lw, &probe)

	return MarginalRates{
		Payroll:   bumped.Payroll.Sub(base.Payroll).Div(mtrDelta),
		IncomeTax: bumped.IncomeTax.Sub(base.IncomeTax).Div(mtrDelta),
		Combined:  bumped.CombinedTax.Sub(base.CombinedTax).Div(mtrDelta),
	}, nil
}

// consumption propensities and the expense fields they feed
var mpcFields = []struct {
	param string
	field func(u *FilingUnit) *decimal.Decimal
}{
	{"_MPC_e17500", func(u *FilingUnit) *decimal.Decimal { return &u.MedicalExpenses }},
	{"_MPC_e18400", func(u *FilingUnit) *decimal.Decimal { return &u.StateLocalTaxes }},
	{"_MPC_e19800", func(u *FilingUnit) *decimal.Decimal { return &u.Charity }},
	{"_MPC_e20400", func(u *FilingUnit) *decimal.Decimal { return &u.MiscExpenses }},
}

func (c *Calculator) applyConsumptionResponse(u *FilingUnit) error {
	for _, m := range mpcFields {
		mpc, err := c.cons.MPC(m.param)
		if err != nil {
			return err
		}
		if mpc.IsZero() {
			continue
		}
		f := m.field(u)
		*f = f.Add(mpc.Mul(mtrDelta))
	}
	return nil
}
