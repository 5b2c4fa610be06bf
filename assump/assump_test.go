package assump_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/warp/tax-engine/assump"
	"github.com/warp/tax-engine/params"
	"github.com/warp/tax-engine/policy"
)

// =============================================================================
// GROWDIFF TESTS
// =============================================================================

func TestGrowDiff_BaselineIsAllZero(t *testing.T) {
	gd, err := assump.NewGrowDiff()
	if err != nil {
		t.Fatal(err)
	}
	if gd.HasAnyResponse() {
		t.Error("fresh growdiff should report no response")
	}
}

func TestGrowDiff_ReformAndApply(t *testing.T) {
	// GIVEN: A growdiff lowering price inflation by 0.001 from 2019 on
	// WHEN: Applied to baseline growth assumptions
	// THEN: The 2019+ price rates drop by exactly that delta; wages and
	//       earlier years are untouched

	gd, err := assump.NewGrowDiff()
	if err != nil {
		t.Fatal(err)
	}
	if err := gd.Update(params.Reform{2019: {"_ACPIU": []any{-0.001}}}); err != nil {
		t.Fatal(err)
	}
	if !gd.HasAnyResponse() {
		t.Error("nonzero growdiff should report a response")
	}

	gf := policy.NewGrowFactors()
	base2018 := gf.Inflation(2018)
	base2019 := gf.Inflation(2019)
	baseWage := gf.WageGrowth(2019)
	if err := gd.ApplyTo(gf); err != nil {
		t.Fatal(err)
	}

	delta := decimal.RequireFromString("-0.001")
	if !gf.Inflation(2019).Equal(base2019.Add(delta)) {
		t.Errorf("2019 price rate = %s, want %s", gf.Inflation(2019), base2019.Add(delta))
	}
	if !gf.Inflation(2018).Equal(base2018) {
		t.Errorf("2018 price rate changed: %s", gf.Inflation(2018))
	}
	if !gf.WageGrowth(2019).Equal(baseWage) {
		t.Errorf("wage rate changed by a price-only diff: %s", gf.WageGrowth(2019))
	}
}

func TestGrowDiff_AppliedRatesReachPolicyProjection(t *testing.T) {
	// GIVEN: A policy built on growdiff-adjusted assumptions
	// THEN: Indexed tails grow at the adjusted rate

	gd, err := assump.NewGrowDiff()
	if err != nil {
		t.Fatal(err)
	}
	if err := gd.Update(params.Reform{2019: {"_ACPIU": []any{0.005}}}); err != nil {
		t.Fatal(err)
	}
	gf := policy.NewGrowFactors()
	if err := gd.ApplyTo(gf); err != nil {
		t.Fatal(err)
	}
	pol, err := policy.NewWithGrowFactors(gf)
	if err != nil {
		t.Fatal(err)
	}

	base, err := policy.New()
	if err != nil {
		t.Fatal(err)
	}
	adjusted, _ := pol.Horizon("_II_em")
	baseline, _ := base.Horizon("_II_em")
	i := 2020 - policy.JSONStartYear
	if !adjusted[i][0].Number.GreaterThan(baseline[i][0].Number) {
		t.Errorf("2020 _II_em with faster inflation (%s) should exceed baseline (%s)",
			adjusted[i][0].Number, baseline[i][0].Number)
	}
}

// =============================================================================
// CONSUMPTION TESTS
// =============================================================================

func TestConsumption_BaselineHasNoResponse(t *testing.T) {
	c, err := assump.NewConsumption()
	if err != nil {
		t.Fatal(err)
	}
	if c.HasResponse() {
		t.Error("all-zero propensities should report no response")
	}
}

func TestConsumption_ReformSetsPropensity(t *testing.T) {
	c, err := assump.NewConsumption()
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Update(params.Reform{2014: {"_MPC_e19800": []any{0.2}}}); err != nil {
		t.Fatal(err)
	}
	if err := c.SetYear(2014); err != nil {
		t.Fatal(err)
	}
	mpc, err := c.MPC("_MPC_e19800")
	if err != nil {
		t.Fatal(err)
	}
	if !mpc.Equal(decimal.RequireFromString("0.2")) {
		t.Errorf("MPC = %s, want 0.2", mpc)
	}
	if !c.HasResponse() {
		t.Error("nonzero propensity should report a response")
	}
}

func TestConsumption_RangeStopsBadPropensity(t *testing.T) {
	c, err := assump.NewConsumption()
	if err != nil {
		t.Fatal(err)
	}
	err = c.Update(params.Reform{2014: {"_MPC_e17500": []any{1.5}}})
	if err == nil {
		t.Fatal("propensity above 1 should fail validation")
	}
}
