// PURPOSE:
// This file defines Policy, the current-law parameter set projected
// across the budget window together with the machinery for applying
// reforms to it. Policy embeds the generic parameter engine and adds
// the pieces that are specific to tax law: the embedded current-law
// schema, the registry of removed parameters, and the special handling
// of the _cpi_offset indexing parameter.
//
// KEY CONCEPTS:
// - Current-law baseline: the parameter values a fresh Policy holds,
//   extrapolated from the embedded schema with baseline growth rates.
// - Reform: a year-keyed set of parameter changes applied on top of
//   whatever state the Policy currently holds. Reforms compound.
// - Indexing offset: reforms to _cpi_offset change the rate at which
//   every price-indexed parameter grows, so they are applied first and
//   the projection is re-derived before other provisions land.
//
// USAGE:
//   pol, err := policy.New()
//   err = pol.ImplementReform(params.Reform{
//       2020: {"_II_em": []any{9000.0}},
//   })
//   pol.SetYear(2020)
//   row, err := pol.Current("_II_em")
//
// SEE ALSO:
// - params/parameters.go: the generic engine Policy embeds.
// - growfactors.go: the growth rates reforms may adjust.
package policy

import (
	_ "embed"
	"fmt"

	"github.com/warp/tax-engine/params"
)

// ===== BUDGET WINDOW =====

const (
	// JSONStartYear is the first year the embedded schema describes.
	JSONStartYear = 2013

	// LastBudgetYear is the final year of the projection window.
	LastBudgetYear = 2030

	// DefaultNumYears is the length of the projection window.
	DefaultNumYears = LastBudgetYear - JSONStartYear + 1
)

//go:embed policy_current_law.json
var currentLawJSON []byte

// removedParams maps parameter names that earlier schema revisions
// carried to the message reported when a reform still uses them.
var removedParams = map[string]string{
	"_DependentCredit_Child_c":     "absorbed into _CTC_c in the 2018 schema revision",
	"_FilerCredit_c":               "dropped from the schema; use _CTC_c and _EITC_c instead",
	"_ALD_Investment_ec_base_code": "no longer supported",
}

// ===== POLICY =====

// Policy is the full set of tax-law parameters projected across the
// budget window. It embeds the generic parameter engine, so all of
// its accessors (Current, Horizon, SetYear, Metadata, ...) apply.
type Policy struct {
	*params.Parameters

	gf *GrowFactors
}

// New returns a current-law Policy projected with baseline growth
// assumptions.
func New() (*Policy, error) {
	return NewWithGrowFactors(NewGrowFactors())
}

// NewWithGrowFactors returns a current-law Policy projected with the
// given growth assumptions. The Policy takes ownership of gf; callers
// that need the original unchanged should pass gf.DeepCopy().
func NewWithGrowFactors(gf *GrowFactors) (*Policy, error) {
	if gf == nil {
		return nil, fmt.Errorf("policy: nil grow factors")
	}
	schema, err := params.LoadSchema(currentLawJSON, JSONStartYear, DefaultNumYears, removedParams)
	if err != nil {
		return nil, fmt.Errorf("policy: loading current-law schema: %w", err)
	}
	return &Policy{Parameters: params.New(schema, gf), gf: gf}, nil
}

// GrowFactors exposes the growth assumptions the Policy projects with.
func (p *Policy) GrowFactors() *GrowFactors { return p.gf }

// DeepCopy returns an independent Policy. Reforms applied to the copy,
// including indexing-offset reforms, leave the original untouched.
func (p *Policy) DeepCopy() *Policy {
	gf := p.gf.DeepCopy()
	return &Policy{
		Parameters: p.Parameters.DeepCopyWithRates(gf),
		gf:         gf,
	}
}

// ===== REFORMS =====

// ImplementReform applies a reform and raises on validation errors.
// Invalid reform structure (unknown parameters, bad years, wrong
// types) is rejected before any state changes. Value-range violations
// with a stop action surface as a *params.ValidationReport; warnings
// accumulate and are available from Warnings.
func (p *Policy) ImplementReform(reform params.Reform) error {
	return p.ImplementReformWithOptions(reform, params.UpdateOptions{RaiseErrors: true})
}

// ImplementReformWithOptions applies a reform with explicit control
// over whether value-range errors are raised or merely recorded.
func (p *Policy) ImplementReformWithOptions(reform params.Reform, opts params.UpdateOptions) error {
	// the indexing offset applies in a separate stage, so the whole
	// document must compile before either stage mutates anything
	if err := p.Parameters.CheckReform(reform); err != nil {
		return err
	}
	offsets, rest := splitIndexingReform(reform)
	if len(offsets) > 0 {
		if err := p.Parameters.UpdateWithOptions(offsets, opts); err != nil {
			return err
		}
		if err := p.installPriceOffsets(); err != nil {
			return err
		}
		p.Parameters.Reindex()
	}
	if len(rest) == 0 {
		return nil
	}
	return p.Parameters.UpdateWithOptions(rest, opts)
}

// splitIndexingReform separates _cpi_offset provisions from the rest
// of the reform so the offset can take effect before other provisions
// are projected.
func splitIndexingReform(reform params.Reform) (offsets, rest params.Reform) {
	offsets = params.Reform{}
	rest = params.Reform{}
	for year, mods := range reform {
		for name, value := range mods {
			target := rest
			if params.Canonical(name) == "_cpi_offset" {
				target = offsets
			}
			if _, ok := target[year]; !ok {
				target[year] = params.ParamMods{}
			}
			target[year][name] = value
		}
	}
	return offsets, rest
}

// installPriceOffsets pushes the projected _cpi_offset series into the
// growth assumptions so indexed parameters grow at the offset rate.
func (p *Policy) installPriceOffsets() error {
	rows, err := p.Parameters.Horizon("_cpi_offset")
	if err != nil {
		return err
	}
	for i, row := range rows {
		year := p.Parameters.StartYear() + i
		if err := p.gf.SetPriceOffset(year, row[0].Number); err != nil {
			return err
		}
	}
	return nil
}
