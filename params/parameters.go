/*
parameters.go - Live parameter state and the projection engine

PURPOSE:
  Parameters is the live state built from a Schema: one dense full-horizon
  array per parameter (one row per calendar year, no gaps), the per-year
  cpi-flag state, the current-year cursor, and the warning/error reports
  accumulated by validation.

PROJECTION:
  Rows with a declared default are copied verbatim. Every later row is
  derived from its predecessor: compounded by the growth rate when the cpi
  flag for the transition is set, carried flat otherwise. Compounding is
  strictly multiplicative with no intermediate rounding; decimal.Decimal
  keeps multi-decade products exact. Vector components inflate
  independently by the same scalar rate.

OWNERSHIP:
  The projection engine and the reform protocol (reform.go) jointly own
  the arrays. Accessors return copies; consumers never see internal
  slices. DeepCopy produces a fully independent instance for callers that
  need isolation before independent mutation.

YEAR CURSOR:
  SetYear advances monotonically within the horizon and only changes what
  Current() reads. It never mutates arrays.

SEE ALSO:
  - reform.go: Update, the reform application protocol
  - validate.go: Range validation feeding the reports
*/
package params

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PARAMETERS - Projected full-horizon state
// =============================================================================

type Parameters struct {
	schema *Schema
	rates  Rates

	currentYear int

	// arrays[name][i] is the value for calendar year startYear+i.
	arrays map[string][]Row

	// flags[name][i] records whether the value transitioning INTO year
	// startYear+i+1 is compounded (true) or carried flat (false).
	flags map[string][]bool

	// known[name] is the index of the last explicitly installed row
	// (declared default or reform override); rows after it are derived.
	known map[string]int

	// baseline holds the pre-reform projection, frozen at construction.
	// Validation's "default" bounds compare against it. Never mutated,
	// so deep copies share it.
	baseline map[string][]Row

	warnings string
	errors   string
}

// New builds fully projected parameter state from the schema defaults.
// The rates provider is consulted lazily on every derivation, so rate
// adjustments (growth-difference assumptions, cpi offsets) made before a
// Reindex call take effect without rebuilding.
func New(schema *Schema, rates Rates) *Parameters {
	p := &Parameters{
		schema: schema,
		rates:  rates,

		currentYear: schema.StartYear(),
		arrays:      make(map[string][]Row, len(schema.order)),
		flags:       make(map[string][]bool, len(schema.order)),
		known:       make(map[string]int, len(schema.order)),
	}
	for _, name := range schema.order {
		sp := schema.specs[name]
		flags := make([]bool, schema.NumYears())
		if sp.CPIInflatable {
			for i := range flags {
				flags[i] = sp.CPIInflated
			}
		}
		p.flags[name] = flags

		rows := make([]Row, schema.NumYears())
		for i, def := range sp.Defaults {
			rows[i] = def.Clone()
		}
		p.arrays[name] = rows
		p.known[name] = len(sp.Defaults) - 1
		p.deriveTail(name, len(sp.Defaults))
	}
	p.baseline = make(map[string][]Row, len(p.arrays))
	for name, rows := range p.arrays {
		frozen := make([]Row, len(rows))
		for i, r := range rows {
			frozen[i] = r.Clone()
		}
		p.baseline[name] = frozen
	}
	return p
}

// deriveTail recomputes rows[from:] for one parameter, each row derived
// from its predecessor under the current cpi-flag state and growth rates.
func (p *Parameters) deriveTail(name string, from int) {
	sp := p.schema.specs[name]
	rows := p.arrays[name]
	flags := p.flags[name]
	for i := from; i < len(rows); i++ {
		if i == 0 {
			continue // first row is always declared
		}
		prev := rows[i-1]
		if sp.ValueType == TypeReal && flags[i-1] {
			year := p.schema.StartYear() + i - 1
			rows[i] = prev.Inflate(p.rateFor(sp, year))
		} else {
			rows[i] = prev.Clone()
		}
	}
}

// rateFor selects the growth-rate series configured for the parameter.
func (p *Parameters) rateFor(sp *Spec, year int) decimal.Decimal {
	if sp.IndexSeries == IndexWage {
		return p.rates.WageGrowth(year)
	}
	return p.rates.Inflation(year)
}

// =============================================================================
// ACCESSORS - Read-only views
// =============================================================================

// Schema returns the immutable schema this state was built from.
func (p *Parameters) Schema() *Schema { return p.schema }

// StartYear returns the first calendar year of the horizon.
func (p *Parameters) StartYear() int { return p.schema.StartYear() }

// EndYear returns the last supported calendar year.
func (p *Parameters) EndYear() int { return p.schema.EndYear() }

// NumYears returns the horizon length.
func (p *Parameters) NumYears() int { return p.schema.NumYears() }

// CurrentYear returns the year cursor.
func (p *Parameters) CurrentYear() int { return p.currentYear }

// SetYear advances the current-year cursor. The cursor is monotonic: it
// never decreases, and it must stay within the horizon. On error the
// state is unchanged.
func (p *Parameters) SetYear(year int) error {
	if year < p.schema.StartYear() || year > p.schema.EndYear() {
		return fmt.Errorf("%w: %d not in [%d, %d]",
			ErrYearOutOfRange, year, p.schema.StartYear(), p.schema.EndYear())
	}
	if year < p.currentYear {
		return fmt.Errorf("%w: set_year(%d) after year advanced to %d",
			ErrReformsPast, year, p.currentYear)
	}
	p.currentYear = year
	return nil
}

// Current returns a copy of the parameter's row for the current year.
// The name may be given with or without the leading underscore.
func (p *Parameters) Current(name string) (Row, error) {
	rows, err := p.horizon(name)
	if err != nil {
		return nil, err
	}
	return rows[p.currentYear-p.schema.StartYear()].Clone(), nil
}

// Horizon returns a copy of the parameter's full-horizon array, row i
// corresponding to calendar year StartYear()+i.
func (p *Parameters) Horizon(name string) ([]Row, error) {
	rows, err := p.horizon(name)
	if err != nil {
		return nil, err
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out, nil
}

// Lookup is the explicit two-mode accessor: fullHorizon=true returns the
// whole array, false returns just the current-year row (wrapped in a
// one-element slice so both shapes share a type).
func (p *Parameters) Lookup(name string, fullHorizon bool) ([]Row, error) {
	if fullHorizon {
		return p.Horizon(name)
	}
	row, err := p.Current(name)
	if err != nil {
		return nil, err
	}
	return []Row{row}, nil
}

func (p *Parameters) horizon(name string) ([]Row, error) {
	rows, ok := p.arrays[Canonical(name)]
	if !ok {
		if reason, removed := p.schema.RemovedReason(name); removed {
			return nil, &ReformError{Name: name, Msg: reason, Kind: ErrRemovedParameter}
		}
		return nil, &ReformError{Name: name, Msg: "no such parameter", Kind: ErrUnknownParameter}
	}
	return rows, nil
}

// CPIFlags returns a copy of the per-year flag state for a parameter.
func (p *Parameters) CPIFlags(name string) ([]bool, error) {
	if _, err := p.horizon(name); err != nil {
		return nil, err
	}
	flags := p.flags[Canonical(name)]
	out := make([]bool, len(flags))
	copy(out, flags)
	return out, nil
}

// Warnings returns the accumulated out-of-range warnings report.
func (p *Parameters) Warnings() string { return p.warnings }

// Errors returns the accumulated out-of-range errors report.
func (p *Parameters) Errors() string { return p.errors }

// =============================================================================
// DEEP COPY
// =============================================================================

// DeepCopy returns a fully independent copy: no shared sub-arrays, so the
// copy and the original may be mutated without coordination. The schema
// and rates provider are immutable and remain shared.
func (p *Parameters) DeepCopy() *Parameters {
	cp := &Parameters{
		schema:      p.schema,
		rates:       p.rates,
		currentYear: p.currentYear,
		arrays:      make(map[string][]Row, len(p.arrays)),
		flags:       make(map[string][]bool, len(p.flags)),
		known:       make(map[string]int, len(p.known)),
		baseline:    p.baseline,
		warnings:    p.warnings,
		errors:      p.errors,
	}
	for name, rows := range p.arrays {
		nrows := make([]Row, len(rows))
		for i, r := range rows {
			nrows[i] = r.Clone()
		}
		cp.arrays[name] = nrows
	}
	for name, flags := range p.flags {
		nflags := make([]bool, len(flags))
		copy(nflags, flags)
		cp.flags[name] = nflags
	}
	for name, k := range p.known {
		cp.known[name] = k
	}
	return cp
}

// DeepCopyWithRates is DeepCopy with the rates provider swapped out.
// Callers that copy a mutable provider alongside the parameters use
// this to keep the copy's projection bound to the copied provider.
func (p *Parameters) DeepCopyWithRates(rates Rates) *Parameters {
	cp := p.DeepCopy()
	cp.rates = rates
	return cp
}

// =============================================================================
// REINDEXING - Re-derive after a growth-rate change
// =============================================================================

// Reindex re-derives every parameter's projected tail (the rows after its
// last explicitly installed row) against the rates provider. Call after
// adjusting growth rates, e.g. when a reform changes the cpi offset or a
// growth-difference assumption changes the baseline.
func (p *Parameters) Reindex() {
	for _, name := range p.schema.order {
		p.deriveTail(name, p.known[name]+1)
	}
}

// =============================================================================
// METADATA - Schema round-trip for documentation/UI generation
// =============================================================================

// Meta is the documentation view of one parameter.
type Meta struct {
	Name          string   `json:"name"`
	LongName      string   `json:"long_name"`
	Description   string   `json:"description"`
	Section1      string   `json:"section_1"`
	Section2      string   `json:"section_2"`
	ValueType     string   `json:"value_type"`
	CPIInflatable bool     `json:"cpi_inflatable"`
	CPIInflated   bool     `json:"cpi_inflated"`
	RowLabels     []string `json:"row_label"`
	Value         []Row    `json:"-"`
	ValueDisplay  []string `json:"value"`
	CurrentValue  string   `json:"current_value"`
}

// Metadata returns the full schema plus current values, keyed by
// canonical parameter name.
func (p *Parameters) Metadata() map[string]Meta {
	out := make(map[string]Meta, len(p.schema.order))
	for _, name := range p.schema.order {
		sp := p.schema.specs[name]
		rows := make([]Row, len(sp.Defaults))
		display := make([]string, len(sp.Defaults))
		for i, r := range sp.Defaults {
			rows[i] = r.Clone()
			display[i] = r.Display(sp.ValueType)
		}
		cur, _ := p.Current(name)
		out[name] = Meta{
			Name:          sp.Name,
			LongName:      sp.LongName,
			Description:   sp.Description,
			Section1:      sp.Section1,
			Section2:      sp.Section2,
			ValueType:     string(sp.ValueType),
			CPIInflatable: sp.CPIInflatable,
			CPIInflated:   sp.CPIInflated,
			RowLabels:     append([]string(nil), sp.RowLabels...),
			Value:         rows,
			ValueDisplay:  display,
			CurrentValue:  cur.Display(sp.ValueType),
		}
	}
	return out
}
