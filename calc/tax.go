/*
tax.go - The per-unit liability pipeline

PURPOSE:
  Computes one filing unit's payroll tax, income tax, and credits from
  a snapshot of the current-year parameter values. The pipeline runs
  stages in statute order: payroll, AGI, deductions, exemptions,
  regular tax, AMT, the itemized-benefit surtax, then credits.

DEDUCTION CATEGORIES:
  Itemized expenses live in seven categories, indexed consistently
  everywhere (haircuts, the surtax switch vector, reporting):
    0 medical, 1 state/local tax, 2 real estate, 3 casualty,
    4 miscellaneous, 5 interest paid, 6 charity

SURTAX SEMANTICS:
  The benefit surtax taxes the tax saving attributable to the switched
  deduction categories: liability is recomputed with those categories
  excluded, and the difference above the AGI-fraction or dollar
  exemption is taxed at the surtax rate. A 100% surtax with no
  exemption is therefore equivalent to a 100% haircut on the same
  categories.
*/
package calc

import (
	"github.com/shopspring/decimal"
)

// ===== RESULT =====

// Result is one filing unit's computed liabilities for one year.
type Result struct {
	UnitID string
	Weight decimal.Decimal

	Payroll decimal.Decimal
	AGI     decimal.Decimal

	StandardDeduction decimal.Decimal
	ItemizedDeduction decimal.Decimal
	Exemptions        decimal.Decimal
	TaxableIncome     decimal.Decimal

	RegularTax decimal.Decimal
	AMT        decimal.Decimal
	Surtax     decimal.Decimal

	CDCC decimal.Decimal
	CTC  decimal.Decimal
	ACTC decimal.Decimal
	EITC decimal.Decimal

	// IncomeTax is regular + AMT + surtax net of credits; refundable
	// credits can push it negative. CombinedTax adds payroll.
	IncomeTax   decimal.Decimal
	CombinedTax decimal.Decimal
}

var (
	zero = decimal.Zero
	one  = decimal.NewFromInt(1)
)

func dmax(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

func dmin(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// ===== PIPELINE =====

func computeUnit(lw *law, u *FilingUnit) Result {
	res := Result{UnitID: u.ID, Weight: u.Weight}
	col := int(u.Status)

	res.Payroll = payrollTax(lw, u, col)
	res.AGI = u.Earnings().Add(u.Interest).Add(u.Dividends).Add(u.CapGains)

	res.StandardDeduction = standardDeduction(lw, u, col)
	allowed := allowedDeductions(lw, u, res.AGI)
	res.ItemizedDeduction = capItemized(lw, u, sum7(allowed), col)
	res.Exemptions = exemptions(lw, u, res.AGI, col)

	dedUsed := dmax(res.StandardDeduction, res.ItemizedDeduction)
	res.TaxableIncome = dmax(zero, res.AGI.Sub(dedUsed).Sub(res.Exemptions))
	res.RegularTax = bracketTax(lw, col, res.TaxableIncome)
	res.AMT = alternativeMinimumTax(lw, u, res.AGI, res.RegularTax, col)
	res.Surtax = benefitSurtax(lw, u, res.AGI, res.Exemptions,
		res.StandardDeduction, allowed, dedUsed, res.RegularTax, col)

	res.CDCC = childCareCredit(lw, u, res.AGI)
	res.EITC = earnedIncomeCredit(lw, u, res.AGI)

	// nonrefundable credits burn down the pre-credit liability in
	// statute order; the refundable ACTC picks up unused child credit
	preCredit := res.RegularTax.Add(res.AMT).Add(res.Surtax)
	cdccUsed := dmin(res.CDCC, preCredit)
	ctcPotential := lw.ctcC.Mul(decimal.NewFromInt(int64(u.NumChildren)))
	ctcUsed := dmin(ctcPotential, preCredit.Sub(cdccUsed))
	res.CTC = ctcUsed
	res.ACTC = additionalChildCredit(lw, u, ctcPotential, ctcUsed)

	res.IncomeTax = preCredit.Sub(cdccUsed).Sub(ctcUsed).Sub(res.EITC).Sub(res.ACTC)
	res.CombinedTax = res.IncomeTax.Add(res.Payroll)
	return res
}

// ===== PAYROLL =====

func payrollTax(lw *law, u *FilingUnit, col int) decimal.Decimal {
	tax := zero
	for _, wage := range []decimal.Decimal{u.WageSelf, u.WageSpouse} {
		if wage.IsZero() {
			continue
		}
		tax = tax.Add(lw.ssTrt.Mul(dmin(wage, lw.ssCap)))
		tax = tax.Add(lw.mcTrt.Mul(wage))
	}
	// additional medicare applies to combined earnings over the
	// filing-status exclusion
	excess := dmax(zero, u.Earnings().Sub(lw.amedtEc[col]))
	return tax.Add(lw.amedtRt.Mul(excess))
}

// ===== DEDUCTIONS =====

func standardDeduction(lw *law, u *FilingUnit, col int) decimal.Decimal {
	if u.ClaimedAsDependent {
		return lw.stdDep
	}
	std := lw.std[col]
	extras := 0
	if u.Age >= 65 {
		extras++
	}
	if u.Blind {
		extras++
	}
	if u.Status == Joint {
		if u.SpouseAge >= 65 {
			extras++
		}
		if u.SpouseBlind {
			extras++
		}
	}
	return std.Add(lw.stdAged[col].Mul(decimal.NewFromInt(int64(extras))))
}

// allowedDeductions applies the per-category floors and haircuts and
// returns the seven category amounts.
func allowedDeductions(lw *law, u *FilingUnit, agi decimal.Decimal) [7]decimal.Decimal {
	var out [7]decimal.Decimal

	frt := lw.medFrt
	if u.Age >= 65 || (u.Status == Joint && u.SpouseAge >= 65) {
		frt = frt.Add(lw.medAdd4Aged)
	}
	medical := dmax(zero, u.MedicalExpenses.Sub(frt.Mul(agi)))
	out[0] = medical.Mul(one.Sub(lw.hc[0]))

	out[1] = u.StateLocalTaxes.Mul(one.Sub(lw.hc[1]))
	out[2] = u.RealEstateTaxes.Mul(one.Sub(lw.hc[2]))
	out[3] = u.CasualtyLosses.Mul(one.Sub(lw.hc[3]))
	out[4] = u.MiscExpenses.Mul(one.Sub(lw.hc[4]))
	out[5] = u.InterestPaid.Mul(one.Sub(lw.hc[5]))

	charity := dmin(u.Charity, lw.charityCrtAll.Mul(agi))
	out[6] = charity.Mul(one.Sub(lw.hc[6]))
	return out
}

func sum7(a [7]decimal.Decimal) decimal.Decimal {
	total := zero
	for _, v := range a {
		total = total.Add(v)
	}
	return total
}

// capItemized applies the overall ceilings: the benefit fraction of
// gross deductible expenses and the dollar cap by filing status.
func capItemized(lw *law, u *FilingUnit, total decimal.Decimal, col int) decimal.Decimal {
	gross := u.MedicalExpenses.Add(u.StateLocalTaxes).Add(u.RealEstateTaxes).
		Add(u.CasualtyLosses).Add(u.MiscExpenses).Add(u.InterestPaid).Add(u.Charity)
	capped := dmin(total, lw.idCrt.Mul(gross))
	return dmin(capped, lw.idC[col])
}

// ===== EXEMPTIONS =====

func exemptions(lw *law, u *FilingUnit, agi decimal.Decimal, col int) decimal.Decimal {
	n := 1 + u.NumDependents
	if u.Status == Joint {
		n++
	}
	em := lw.iiEm.Mul(decimal.NewFromInt(int64(n)))
	excess := dmax(zero, agi.Sub(lw.iiEmPS[col]))
	return dmax(zero, em.Sub(lw.iiPrt.Mul(excess)))
}

// ===== REGULAR TAX =====

func bracketTax(lw *law, col int, taxable decimal.Decimal) decimal.Decimal {
	tax := zero
	lower := zero
	for i := 0; i < 7; i++ {
		upper := lw.brk[i][col]
		band := dmin(taxable, upper).Sub(lower)
		if band.IsPositive() {
			tax = tax.Add(lw.rt[i].Mul(band))
		}
		if taxable.LessThanOrEqual(upper) {
			break
		}
		lower = upper
	}
	return tax
}

// ===== AMT =====

// alternativeMinimumTax computes a two-rate tentative tax on AGI above
// the exemption, owed to the extent it exceeds the regular tax. Young
// dependents get their exemption limited to earnings.
func alternativeMinimumTax(lw *law, u *FilingUnit, agi, regular decimal.Decimal, col int) decimal.Decimal {
	exemption := lw.amtEm[col]
	if u.ClaimedAsDependent && u.Age < lw.amtKTAge {
		exemption = dmin(exemption, u.Earnings())
	}
	base := dmax(zero, agi.Sub(exemption))
	tentative := lw.amtRt1.Mul(dmin(base, lw.amtBrk1))
	over := dmax(zero, base.Sub(lw.amtBrk1))
	tentative = tentative.Add(lw.amtRt1.Add(lw.amtRt2).Mul(over))
	return dmax(zero, tentative.Sub(regular))
}

// ===== BENEFIT SURTAX =====

func benefitSurtax(lw *law, u *FilingUnit, agi, exempt, std decimal.Decimal,
	allowed [7]decimal.Decimal, dedUsed, regular decimal.Decimal, col int) decimal.Decimal {
	if lw.surtaxTrt.IsZero() {
		return zero
	}
	// recompute with the switched categories excluded
	remaining := zero
	for i, v := range allowed {
		if !lw.surtaxSwitch[i] {
			remaining = remaining.Add(v)
		}
	}
	dedWithout := dmax(std, capItemized(lw, u, remaining, col))
	taxableWithout := dmax(zero, agi.Sub(dedWithout).Sub(exempt))
	benefit := bracketTax(lw, col, taxableWithout).Sub(regular)

	disregard := dmax(lw.surtaxCrt.Mul(agi), lw.surtaxEm[col])
	return lw.surtaxTrt.Mul(dmax(zero, benefit.Sub(disregard)))
}

// ===== CREDITS =====

func childCareCredit(lw *law, u *FilingUnit, agi decimal.Decimal) decimal.Decimal {
	if u.NumChildren == 0 || u.ChildCareExpenses.IsZero() {
		return zero
	}
	eligibleKids := u.NumChildren
	if eligibleKids > 2 {
		eligibleKids = 2
	}
	expenses := dmin(u.ChildCareExpenses, lw.cdccC.Mul(decimal.NewFromInt(int64(eligibleKids))))

	// the credit rate steps down 1 point per $2000 of AGI above the
	// phaseout start, floored at 20%
	rate := lw.cdccCrt
	if agi.GreaterThan(lw.cdccPS) {
		steps := agi.Sub(lw.cdccPS).Div(decimal.NewFromInt(2000)).Floor()
		rate = dmax(decimal.RequireFromString("0.2"),
			rate.Sub(steps.Mul(decimal.RequireFromString("0.01"))))
	}
	return expenses.Mul(rate)
}

func additionalChildCredit(lw *law, u *FilingUnit, potential, used decimal.Decimal) decimal.Decimal {
	if u.NumChildren == 0 {
		return zero
	}
	unused := potential.Sub(used)
	if !unused.IsPositive() {
		return zero
	}
	ceiling := lw.actcC.Mul(decimal.NewFromInt(int64(u.NumChildren)))
	earnedOver := dmax(zero, u.Earnings().Sub(lw.actcThd))
	return dmin(dmin(unused, ceiling), lw.actcRt.Mul(earnedOver))
}

func earnedIncomeCredit(lw *law, u *FilingUnit, agi decimal.Decimal) decimal.Decimal {
	if lw.eitcIndiv && u.Status == Joint {
		// individual-filer basis: each spouse phases in on their own
		// earnings; qualifying kids attach to the primary filer
		return eitcAmount(lw, u.NumEITCKids, u.WageSelf, u.WageSelf, u.Age).
			Add(eitcAmount(lw, 0, u.WageSpouse, u.WageSpouse, u.SpouseAge))
	}
	return eitcAmount(lw, u.NumEITCKids, u.Earnings(), dmax(agi, u.Earnings()), u.Age)
}

func eitcAmount(lw *law, kids int, earned, phaseoutIncome decimal.Decimal, age int) decimal.Decimal {
	if kids > 3 {
		kids = 3
	}
	if kids == 0 && (age < lw.eitcMinAge || age > lw.eitcMaxAge) {
		return zero
	}
	phasein := dmin(lw.eitcRt[kids].Mul(earned), lw.eitcC[kids])
	over := dmax(zero, phaseoutIncome.Sub(lw.eitcPS[kids]))
	return dmax(zero, phasein.Sub(lw.eitcPrt[kids].Mul(over)))
}
