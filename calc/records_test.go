package calc_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/warp/tax-engine/calc"
	"github.com/warp/tax-engine/policy"
)

func TestNewRecordsValidation(t *testing.T) {
	// an out-of-range status would index parameter vectors out of bounds
	if _, err := calc.NewRecords([]*calc.FilingUnit{
		{ID: "x", Status: calc.FilingStatus(9)},
	}, 2013); err == nil {
		t.Error("invalid filing status accepted")
	}
	if _, err := calc.NewRecords([]*calc.FilingUnit{
		{ID: "x", Status: calc.Single, Weight: dec("-1")},
	}, 2013); err == nil {
		t.Error("negative weight accepted")
	}
}

func TestRecordsAging(t *testing.T) {
	gf := policy.NewGrowFactors()
	recs, err := calc.NewRecords([]*calc.FilingUnit{
		{ID: "u", Status: calc.Single, Age: 40, WageSelf: dec("1000"), Interest: dec("500")},
	}, 2013)
	if err != nil {
		t.Fatal(err)
	}

	// GIVEN aging from 2013 to 2015
	if err := recs.AgeTo(2015, gf); err != nil {
		t.Fatal(err)
	}

	// THEN every money amount compounds by the two wage transitions
	one := decimal.NewFromInt(1)
	factor := one.Add(gf.WageGrowth(2013)).Mul(one.Add(gf.WageGrowth(2014)))
	u := recs.Units()[0]
	if want := dec("1000").Mul(factor); !u.WageSelf.Equal(want) {
		t.Errorf("WageSelf = %s, want %s", u.WageSelf, want)
	}
	if want := dec("500").Mul(factor); !u.Interest.Equal(want) {
		t.Errorf("Interest = %s, want %s", u.Interest, want)
	}
	if recs.Year() != 2015 || recs.DataYear() != 2013 {
		t.Errorf("year = %d, dataYear = %d", recs.Year(), recs.DataYear())
	}

	// AND rewinding is refused
	if err := recs.AgeTo(2014, gf); err == nil {
		t.Error("aging backwards accepted")
	}
}

func TestRecordsDeepCopy(t *testing.T) {
	recs, err := calc.NewRecords([]*calc.FilingUnit{
		{ID: "u", Status: calc.Single, Age: 40, WageSelf: dec("1000")},
	}, 2013)
	if err != nil {
		t.Fatal(err)
	}
	cp := recs.DeepCopy()

	if err := recs.AgeTo(2016, policy.NewGrowFactors()); err != nil {
		t.Fatal(err)
	}
	if !cp.Units()[0].WageSelf.Equal(dec("1000")) {
		t.Errorf("copy aged with the original: %s", cp.Units()[0].WageSelf)
	}
	if cp.Year() != 2013 {
		t.Errorf("copy year = %d", cp.Year())
	}
}

func TestUnitLookup(t *testing.T) {
	recs, err := calc.NewRecords([]*calc.FilingUnit{
		{ID: "a", Status: calc.Single, Age: 30},
		{ID: "b", Status: calc.Joint, Age: 40},
	}, 2013)
	if err != nil {
		t.Fatal(err)
	}
	if u, ok := recs.Unit("b"); !ok || u.Status != calc.Joint {
		t.Error("lookup by ID failed")
	}
	if _, ok := recs.Unit("zzz"); ok {
		t.Error("phantom unit found")
	}
}
