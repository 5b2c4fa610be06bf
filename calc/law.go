/*
law.go - Current-year parameter snapshot

PURPOSE:
  The pipeline in tax.go reads dozens of parameter values per unit.
  law snapshots them once per year into typed fields, so a CalcAll
  over many filing units does the name lookups exactly once and a
  misspelled parameter name fails loudly at snapshot time.
*/
package calc

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/tax-engine/params"
	"github.com/warp/tax-engine/policy"
)

// law is the flat current-year view of the policy parameters the
// pipeline consumes.
type law struct {
	// payroll
	ssTrt, ssCap, mcTrt, amedtRt decimal.Decimal
	amedtEc                      []decimal.Decimal

	// exemptions
	iiEm, iiPrt decimal.Decimal
	iiEmPS      []decimal.Decimal

	// standard deduction
	stdDep       decimal.Decimal
	std, stdAged []decimal.Decimal

	// regular rates and brackets
	rt  [7]decimal.Decimal
	brk [7][]decimal.Decimal

	// AMT
	amtRt1, amtRt2, amtBrk1 decimal.Decimal
	amtEm                   []decimal.Decimal
	amtKTAge                int

	// itemized deductions
	medFrt, medAdd4Aged decimal.Decimal
	hc                  [7]decimal.Decimal
	charityCrtAll       decimal.Decimal
	idCrt               decimal.Decimal
	idC                 []decimal.Decimal

	// benefit surtax
	surtaxTrt, surtaxCrt decimal.Decimal
	surtaxEm             []decimal.Decimal
	surtaxSwitch         [7]bool

	// credits
	cdccC, cdccPS, cdccCrt decimal.Decimal
	ctcC, actcC, actcRt    decimal.Decimal
	actcThd                decimal.Decimal
	eitcC, eitcRt          []decimal.Decimal
	eitcPS, eitcPrt        []decimal.Decimal
	eitcMinAge, eitcMaxAge int
	eitcIndiv              bool
}

// haircut parameters in deduction-category order
var haircutNames = [7]string{
	"_ID_Medical_hc", "_ID_StateLocalTax_hc", "_ID_RealEstate_hc",
	"_ID_Casualty_hc", "_ID_Miscellaneous_hc", "_ID_InterestPaid_hc",
	"_ID_Charity_hc",
}

func loadLaw(pol *policy.Policy) (*law, error) {
	g := getter{pol: pol}
	lw := &law{
		ssTrt:   g.scalar("_FICA_ss_trt"),
		ssCap:   g.scalar("_SS_Earnings_c"),
		mcTrt:   g.scalar("_FICA_mc_trt"),
		amedtRt: g.scalar("_AMEDT_rt"),
		amedtEc: g.vector("_AMEDT_ec", NumFilingStatuses),

		iiEm:   g.scalar("_II_em"),
		iiPrt:  g.scalar("_II_prt"),
		iiEmPS: g.vector("_II_em_ps", NumFilingStatuses),

		stdDep:  g.scalar("_STD_Dep"),
		std:     g.vector("_STD", NumFilingStatuses),
		stdAged: g.vector("_STD_Aged", NumFilingStatuses),

		amtRt1:   g.scalar("_AMT_rt1"),
		amtRt2:   g.scalar("_AMT_rt2"),
		amtBrk1:  g.scalar("_AMT_brk1"),
		amtEm:    g.vector("_AMT_em", NumFilingStatuses),
		amtKTAge: g.integer("_AMT_KT_c_Age"),

		medFrt:        g.scalar("_ID_Medical_frt"),
		medAdd4Aged:   g.scalar("_ID_Medical_frt_add4aged"),
		charityCrtAll: g.scalar("_ID_Charity_crt_all"),
		idCrt:         g.scalar("_ID_crt"),
		idC:           g.vector("_ID_c", NumFilingStatuses),

		surtaxTrt: g.scalar("_ID_BenefitSurtax_trt"),
		surtaxCrt: g.scalar("_ID_BenefitSurtax_crt"),
		surtaxEm:  g.vector("_ID_BenefitSurtax_em", NumFilingStatuses),

		cdccC:   g.scalar("_CDCC_c"),
		cdccPS:  g.scalar("_CDCC_ps"),
		cdccCrt: g.scalar("_CDCC_crt"),
		ctcC:    g.scalar("_CTC_c"),
		actcC:   g.scalar("_ACTC_c"),
		actcRt:  g.scalar("_ACTC_rt"),
		actcThd: g.scalar("_ACTC_Income_thd"),

		eitcC:      g.vector("_EITC_c", 4),
		eitcRt:     g.vector("_EITC_rt", 4),
		eitcPS:     g.vector("_EITC_ps", 4),
		eitcPrt:    g.vector("_EITC_prt", 4),
		eitcMinAge: g.integer("_EITC_MinEligAge"),
		eitcMaxAge: g.integer("_EITC_MaxEligAge"),
		eitcIndiv:  g.boolean("_EITC_indiv"),
	}
	for i := 0; i < 7; i++ {
		lw.rt[i] = g.scalar(fmt.Sprintf("_II_rt%d", i+1))
		lw.brk[i] = g.vector(fmt.Sprintf("_II_brk%d", i+1), NumFilingStatuses)
		lw.hc[i] = g.scalar(haircutNames[i])
	}
	switches := g.boolVector("_ID_BenefitSurtax_Switch", 7)
	copy(lw.surtaxSwitch[:], switches)
	if g.err != nil {
		return nil, fmt.Errorf("calc: snapshotting %d parameters: %w",
			pol.CurrentYear(), g.err)
	}
	return lw, nil
}

// getter accumulates the first lookup failure instead of forcing an
// error check per parameter.
type getter struct {
	pol *policy.Policy
	err error
}

func (g *getter) row(name string, width int) params.Row {
	if g.err != nil {
		return nil
	}
	row, err := g.pol.Current(name)
	if err != nil {
		g.err = err
		return nil
	}
	if len(row) != width {
		g.err = fmt.Errorf("%s has %d columns, want %d", name, len(row), width)
		return nil
	}
	return row
}

func (g *getter) scalar(name string) decimal.Decimal {
	row := g.row(name, 1)
	if row == nil {
		return decimal.Zero
	}
	return row[0].Number
}

func (g *getter) integer(name string) int {
	row := g.row(name, 1)
	if row == nil {
		return 0
	}
	return int(row[0].Number.IntPart())
}

func (g *getter) boolean(name string) bool {
	row := g.row(name, 1)
	if row == nil {
		return false
	}
	return row[0].Bool
}

func (g *getter) vector(name string, width int) []decimal.Decimal {
	row := g.row(name, width)
	if row == nil {
		return make([]decimal.Decimal, width)
	}
	out := make([]decimal.Decimal, width)
	for i, cell := range row {
		out[i] = cell.Number
	}
	return out
}

func (g *getter) boolVector(name string, width int) []bool {
	row := g.row(name, width)
	if row == nil {
		return make([]bool, width)
	}
	out := make([]bool, width)
	for i, cell := range row {
		out[i] = cell.Bool
	}
	return out
}
