/*
Package calc computes tax liabilities for filing units under a policy.

PURPOSE (records.go):
  Records holds the filing-unit micro data a Calculator operates on:
  demographics, income amounts, itemizable expenses, and a sampling
  weight for aggregation. Data is anchored to a calendar year and aged
  forward with wage growth when the Calculator advances, so a unit's
  2013 wages become plausible 2020 wages by 2020.

OWNERSHIP:
  A Calculator owns its Records. Callers keep a pre-aging copy via
  DeepCopy when they need to rewind or run a second scenario.
*/
package calc

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/tax-engine/policy"
)

// ===== FILING STATUS =====

// FilingStatus indexes the five-column parameter vectors.
type FilingStatus int

const (
	Single FilingStatus = iota
	Joint
	Separate
	HeadOfHousehold
	Widow

	NumFilingStatuses = 5
)

func (fs FilingStatus) String() string {
	switch fs {
	case Single:
		return "single"
	case Joint:
		return "joint"
	case Separate:
		return "separate"
	case HeadOfHousehold:
		return "head_of_household"
	case Widow:
		return "widow"
	}
	return fmt.Sprintf("FilingStatus(%d)", int(fs))
}

// Valid reports whether the status indexes a parameter column.
func (fs FilingStatus) Valid() bool { return fs >= Single && fs < NumFilingStatuses }

// ===== FILING UNIT =====

// FilingUnit is one tax return plus the demographics the law cares
// about. Money fields are annual dollar amounts.
type FilingUnit struct {
	ID     string
	Weight decimal.Decimal // sampling weight for population totals
	Status FilingStatus

	Age         int
	SpouseAge   int // 0 when unmarried
	Blind       bool
	SpouseBlind bool

	NumDependents int // all claimed dependents
	NumChildren   int // qualifying children for the child credits
	NumEITCKids   int // qualifying children for the earned income credit

	// ClaimedAsDependent marks filers claimable on another return,
	// which limits their standard deduction and AMT exemption.
	ClaimedAsDependent bool

	// Income
	WageSelf   decimal.Decimal
	WageSpouse decimal.Decimal
	Interest   decimal.Decimal
	Dividends  decimal.Decimal
	CapGains   decimal.Decimal

	// Itemizable expenses
	MedicalExpenses decimal.Decimal
	StateLocalTaxes decimal.Decimal
	RealEstateTaxes decimal.Decimal
	CasualtyLosses  decimal.Decimal
	MiscExpenses    decimal.Decimal
	InterestPaid    decimal.Decimal
	Charity         decimal.Decimal

	// Other expenses
	ChildCareExpenses decimal.Decimal
}

// Earnings is combined wage income.
func (u *FilingUnit) Earnings() decimal.Decimal {
	return u.WageSelf.Add(u.WageSpouse)
}

// moneyFields lists the dollar amounts aged by wage growth, in one
// place so aging and tests cannot drift apart.
func (u *FilingUnit) moneyFields() []*decimal.Decimal {
	return []*decimal.Decimal{
		&u.WageSelf, &u.WageSpouse, &u.Interest, &u.Dividends, &u.CapGains,
		&u.MedicalExpenses, &u.StateLocalTaxes, &u.RealEstateTaxes,
		&u.CasualtyLosses, &u.MiscExpenses, &u.InterestPaid, &u.Charity,
		&u.ChildCareExpenses,
	}
}

// ===== RECORDS =====

// Records is a weighted collection of filing units anchored to a data
// year.
type Records struct {
	units    []*FilingUnit
	dataYear int
	year     int // year the amounts currently describe
}

// NewRecords wraps filing units anchored to dataYear. Units with an
// invalid filing status are rejected up front so the tax pipeline
// never indexes a parameter vector out of range.
func NewRecords(units []*FilingUnit, dataYear int) (*Records, error) {
	for _, u := range units {
		if !u.Status.Valid() {
			return nil, fmt.Errorf("calc: unit %s has invalid filing status %d", u.ID, u.Status)
		}
		if u.Weight.IsNegative() {
			return nil, fmt.Errorf("calc: unit %s has negative weight", u.ID)
		}
	}
	return &Records{units: units, dataYear: dataYear, year: dataYear}, nil
}

// DataYear is the year the raw amounts were collected for.
func (r *Records) DataYear() int { return r.dataYear }

// Year is the year the (possibly aged) amounts currently describe.
func (r *Records) Year() int { return r.year }

// Count returns the number of filing units.
func (r *Records) Count() int { return len(r.units) }

// Units exposes the filing units. The slice is shared; mutate through
// it only before handing the Records to a Calculator.
func (r *Records) Units() []*FilingUnit { return r.units }

// Unit finds a filing unit by ID.
func (r *Records) Unit(id string) (*FilingUnit, bool) {
	for _, u := range r.units {
		if u.ID == id {
			return u, true
		}
	}
	return nil, false
}

// AgeTo grows every money amount by the wage growth series, one year
// at a time, from the current year to the target year. Rewinding is
// not supported; use a DeepCopy taken earlier.
func (r *Records) AgeTo(year int, gf *policy.GrowFactors) error {
	if year < r.year {
		return fmt.Errorf("calc: cannot age records backwards from %d to %d", r.year, year)
	}
	one := decimal.NewFromInt(1)
	for y := r.year; y < year; y++ {
		factor := one.Add(gf.WageGrowth(y))
		for _, u := range r.units {
			for _, f := range u.moneyFields() {
				*f = f.Mul(factor)
			}
		}
	}
	r.year = year
	return nil
}

// DeepCopy returns an independent copy of the collection.
func (r *Records) DeepCopy() *Records {
	units := make([]*FilingUnit, len(r.units))
	for i, u := range r.units {
		cp := *u
		units[i] = &cp
	}
	return &Records{units: units, dataYear: r.dataYear, year: r.year}
}
