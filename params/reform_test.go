package params_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/tax-engine/params"
)

// =============================================================================
// LEVEL OVERRIDE TESTS
// =============================================================================

func TestReform_LevelOverrideReprojectsTail(t *testing.T) {
	// GIVEN: _fee projected at 2% from its 2014 value of 110
	// WHEN: A reform sets _fee to 200 in 2016
	// THEN: 2016 holds 200, 2017 holds 204, and earlier years are untouched

	p := newFixture(t)
	require.NoError(t, p.Update(params.Reform{2016: {"_fee": []any{200.0}}}))

	assert.True(t, numberAt(t, p, "_fee", 2015).Equal(dec("112.2")), "pre-reform year changed")
	assert.True(t, numberAt(t, p, "_fee", 2016).Equal(dec("200")))
	assert.True(t, numberAt(t, p, "_fee", 2017).Equal(dec("204")))
	assert.True(t, numberAt(t, p, "_fee", 2018).Equal(dec("208.08")))
}

func TestReform_MultiRowOverrideCoversConsecutiveYears(t *testing.T) {
	// GIVEN: A reform carrying two rows starting in 2014
	// THEN: 2014 and 2015 hold the rows and 2016 is derived from the last

	p := newFixture(t)
	require.NoError(t, p.Update(params.Reform{2014: {"_fee": []any{120.0, 130.0}}}))

	assert.True(t, numberAt(t, p, "_fee", 2014).Equal(dec("120")))
	assert.True(t, numberAt(t, p, "_fee", 2015).Equal(dec("130")))
	assert.True(t, numberAt(t, p, "_fee", 2016).Equal(dec("132.6")))
}

func TestReform_LaterReformAtEarlierYearSupersedes(t *testing.T) {
	// GIVEN: A reform that set _fee to 700 in 2016
	// WHEN: A second reform sets _fee to 600 in 2014
	// THEN: The 2014 override's projection replaces the 2016 one entirely

	p := newFixture(t)
	require.NoError(t, p.Update(params.Reform{2016: {"_fee": []any{700.0}}}))
	require.NoError(t, p.Update(params.Reform{2014: {"_fee": []any{600.0}}}))

	assert.True(t, numberAt(t, p, "_fee", 2016).Equal(dec("624.24")),
		"2016 should be 600 compounded twice, not the superseded 700")
}

func TestReform_VectorOverride(t *testing.T) {
	p := newFixture(t)
	require.NoError(t, p.Update(params.Reform{
		2015: {"_bands": []any{[]any{100.0, 200.0, 300.0}}},
	}))

	rows, err := p.Horizon("_bands")
	require.NoError(t, err)
	assert.True(t, rows[yearIdx(2015)][1].Number.Equal(dec("200")))
	assert.True(t, rows[yearIdx(2016)][1].Number.Equal(dec("204")))
}

func TestReform_EmptyReformIsANoOp(t *testing.T) {
	p := newFixture(t)
	before, err := p.Horizon("_fee")
	require.NoError(t, err)

	require.NoError(t, p.Update(params.Reform{}))

	after, err := p.Horizon("_fee")
	require.NoError(t, err)
	for i := range before {
		assert.True(t, before[i][0].Number.Equal(after[i][0].Number))
	}
}

// =============================================================================
// CPI FLAG OVERRIDE TESTS
// =============================================================================

func TestReform_FlagOffFreezesFromThatYear(t *testing.T) {
	// GIVEN: _fee indexed through 2015, reaching 112.2
	// WHEN: A reform turns indexing off in 2015
	// THEN: 2015 keeps its value and every later year carries it flat

	p := newFixture(t)
	require.NoError(t, p.Update(params.Reform{2015: {"_fee_cpi": false}}))

	for _, year := range []int{2015, 2016, 2017, 2018} {
		assert.True(t, numberAt(t, p, "_fee", year).Equal(dec("112.2")),
			"year %d should be frozen at 112.2", year)
	}
	flags, err := p.CPIFlags("_fee")
	require.NoError(t, err)
	assert.True(t, flags[yearIdx(2014)], "flags before the reform year must survive")
	assert.False(t, flags[yearIdx(2015)])
}

func TestReform_FlagAndLevelSameYear_OrderIndependent(t *testing.T) {
	// GIVEN: Two identical parameter states
	// WHEN: One applies the flag then the level, the other the reverse,
	//       as two separate reforms at the same year
	// THEN: The projected horizons agree

	a := newFixture(t)
	require.NoError(t, a.Update(params.Reform{2015: {"_fee_cpi": false}}))
	require.NoError(t, a.Update(params.Reform{2015: {"_fee": []any{500.0}}}))

	b := newFixture(t)
	require.NoError(t, b.Update(params.Reform{2015: {"_fee": []any{500.0}}}))
	require.NoError(t, b.Update(params.Reform{2015: {"_fee_cpi": false}}))

	ra, err := a.Horizon("_fee")
	require.NoError(t, err)
	rb, err := b.Horizon("_fee")
	require.NoError(t, err)
	for i := range ra {
		assert.True(t, ra[i][0].Number.Equal(rb[i][0].Number),
			"year %d: %s vs %s", fixtureStart+i, ra[i][0].Number, rb[i][0].Number)
	}
	// and both freeze the override value
	assert.True(t, numberAt(t, a, "_fee", 2018).Equal(dec("500")))
}

func TestReform_FlagBackOnResumesCompoundingFromThatYear(t *testing.T) {
	p := newFixture(t)
	require.NoError(t, p.Update(params.Reform{2014: {"_fee_cpi": false}}))
	require.NoError(t, p.Update(params.Reform{2016: {"_fee_cpi": true}}))

	// frozen at the declared 110 through 2016, compounding resumes after
	assert.True(t, numberAt(t, p, "_fee", 2016).Equal(dec("110")))
	assert.True(t, numberAt(t, p, "_fee", 2017).Equal(dec("112.2")))
}

// =============================================================================
// STRUCTURAL ERROR TESTS - No partial application, ever
// =============================================================================

func TestReform_UnknownParameterRejectedWithoutMutation(t *testing.T) {
	// GIVEN: A reform mixing a good override with an unknown name
	// THEN: The whole reform is rejected and the good override never lands

	p := newFixture(t)
	err := p.Update(params.Reform{2015: {
		"_fee":     []any{999.0},
		"_no_such": []any{1.0},
	}})
	require.Error(t, err)
	assert.ErrorIs(t, err, params.ErrUnknownParameter)
	assert.True(t, numberAt(t, p, "_fee", 2015).Equal(dec("112.2")),
		"structural failure must not partially apply")
}

func TestReform_RemovedParameterGetsActionableError(t *testing.T) {
	p := newFixture(t)

	err := p.Update(params.Reform{2015: {"_old_fee": []any{1.0}}})
	assert.ErrorIs(t, err, params.ErrRemovedParameter)
	assert.Contains(t, err.Error(), "schema revision 2")

	err = p.Update(params.Reform{2015: {"_old_fee_cpi": true}})
	assert.ErrorIs(t, err, params.ErrRemovedParameter)
}

func TestReform_FlagOnNonInflatableRejected(t *testing.T) {
	p := newFixture(t)
	err := p.Update(params.Reform{2015: {"_rate_cpi": false}})
	assert.ErrorIs(t, err, params.ErrNotInflatable)
}

func TestReform_TypeMismatches(t *testing.T) {
	p := newFixture(t)

	// boolean for a real parameter
	err := p.Update(params.Reform{2015: {"_fee": []any{true}}})
	assert.ErrorIs(t, err, params.ErrTypeMismatch)

	// fractional value for an integer parameter
	err = p.Update(params.Reform{2015: {"_count": []any{2.5}}})
	assert.ErrorIs(t, err, params.ErrTypeMismatch)

	// number for a boolean parameter
	err = p.Update(params.Reform{2015: {"_active": []any{1.0}}})
	assert.ErrorIs(t, err, params.ErrTypeMismatch)

	// non-boolean cpi flag payload
	err = p.Update(params.Reform{2015: {"_fee_cpi": "yes"}})
	assert.ErrorIs(t, err, params.ErrTypeMismatch)
}

func TestReform_ShapeMismatches(t *testing.T) {
	p := newFixture(t)

	// vector row for a scalar parameter
	err := p.Update(params.Reform{2015: {"_fee": []any{[]any{1.0, 2.0}}}})
	assert.ErrorIs(t, err, params.ErrShapeMismatch)

	// scalar row for a vector parameter
	err = p.Update(params.Reform{2015: {"_bands": []any{1.0}}})
	assert.ErrorIs(t, err, params.ErrShapeMismatch)

	// wrong vector width
	err = p.Update(params.Reform{2015: {"_bands": []any{[]any{1.0, 2.0}}}})
	assert.ErrorIs(t, err, params.ErrShapeMismatch)
}

func TestReform_MalformedContainers(t *testing.T) {
	p := newFixture(t)

	// value container must be a list
	err := p.Update(params.Reform{2015: {"_fee": 200.0}})
	assert.ErrorIs(t, err, params.ErrMalformedReform)

	// and must not be empty
	err = p.Update(params.Reform{2015: {"_fee": []any{}}})
	assert.ErrorIs(t, err, params.ErrMalformedReform)

	// a year mapping to nothing is malformed
	err = p.Update(params.Reform{2015: nil})
	assert.ErrorIs(t, err, params.ErrMalformedReform)
}

func TestReform_YearBounds(t *testing.T) {
	p := newFixture(t)

	err := p.Update(params.Reform{2012: {"_fee": []any{1.0}}})
	assert.ErrorIs(t, err, params.ErrYearOutOfRange)

	err = p.Update(params.Reform{2019: {"_fee": []any{1.0}}})
	assert.ErrorIs(t, err, params.ErrYearOutOfRange)

	// rows running past the final supported year
	err = p.Update(params.Reform{2017: {"_fee": []any{1.0, 2.0, 3.0}}})
	assert.ErrorIs(t, err, params.ErrYearOutOfRange)
}

func TestReform_BeforeCurrentYearRejected(t *testing.T) {
	// GIVEN: The cursor advanced to 2016
	// WHEN: A reform targets 2015
	// THEN: It is rejected and nothing changes

	p := newFixture(t)
	require.NoError(t, p.SetYear(2016))

	err := p.Update(params.Reform{2015: {"_fee": []any{999.0}}})
	assert.ErrorIs(t, err, params.ErrReformsPast)
	assert.True(t, numberAt(t, p, "_fee", 2015).Equal(dec("112.2")))
}

func TestReform_IsStructuralClassifier(t *testing.T) {
	p := newFixture(t)

	err := p.Update(params.Reform{2015: {"_nope": []any{1.0}}})
	assert.True(t, params.IsStructural(err))

	// a validation failure is NOT structural
	err = p.Update(params.Reform{2015: {"_relief_c": []any{5000.0}}})
	require.Error(t, err)
	assert.False(t, params.IsStructural(err))
}
