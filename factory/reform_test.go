package factory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/tax-engine/factory"
	"github.com/warp/tax-engine/policy"
)

// =============================================================================
// DOCUMENT PARSING TESTS
// =============================================================================

const sampleReform = `// reform raising the exemption
{
  "policy": {
    "2020": {"_II_em": [9000]},       // level override
    "2021": {"_II_em_cpi": false}
  }
}`

func TestReadParamObjects_InlineText(t *testing.T) {
	docs, err := factory.ReadParamObjects(sampleReform, "")
	require.NoError(t, err)

	require.Contains(t, docs.Policy, 2020)
	require.Contains(t, docs.Policy, 2021)
	assert.Contains(t, docs.Policy[2020], "_II_em")
	assert.Equal(t, false, docs.Policy[2021]["_II_em_cpi"])
	assert.Empty(t, docs.Consumption)
	assert.Empty(t, docs.GrowDiffBaseline)
}

func TestReadParamObjects_ParsedReformApplies(t *testing.T) {
	// GIVEN: A document parsed from JSON (cells arrive as json.Number)
	// WHEN: Implemented on a current-law policy
	// THEN: The typed engine accepts it end to end

	docs, err := factory.ReadParamObjects(sampleReform, "")
	require.NoError(t, err)

	pol, err := policy.New()
	require.NoError(t, err)
	require.NoError(t, pol.ImplementReform(docs.Policy))

	rows, err := pol.Horizon("_II_em")
	require.NoError(t, err)
	got := rows[2020-policy.JSONStartYear][0].Number
	assert.True(t, got.Equal(decimal.NewFromInt(9000)), "2020 _II_em = %s", got)
	// indexing off in 2021 freezes the 9000
	got = rows[2022-policy.JSONStartYear][0].Number
	assert.True(t, got.Equal(decimal.NewFromInt(9000)), "2022 _II_em = %s", got)
}

func TestReadParamObjects_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reform.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleReform), 0o644))

	docs, err := factory.ReadParamObjects(path, "")
	require.NoError(t, err)
	assert.Contains(t, docs.Policy, 2020)
}

func TestReadParamObjects_RejectsNonJSONURL(t *testing.T) {
	// the suffix check fires before any request goes out
	_, err := factory.ReadParamObjects("https://example.com/reform", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".json")
}

func TestReadParamObjects_AssumptionDocument(t *testing.T) {
	assumpDoc := `{
	  "consumption": {"2020": {"_MPC_e19800": [0.2]}},
	  "growdiff_baseline": {"2019": {"_ACPIU": [0.001]}},
	  "growdiff_response": {}
	}`
	docs, err := factory.ReadParamObjects("", assumpDoc)
	require.NoError(t, err)
	assert.Contains(t, docs.Consumption, 2020)
	assert.Contains(t, docs.GrowDiffBaseline, 2019)
	assert.Empty(t, docs.GrowDiffResponse)
}

func TestReadParamObjects_MisplacedGroupsRejected(t *testing.T) {
	// an assumption group inside the reform document
	_, err := factory.ReadParamObjects(`{"consumption": {}}`, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assumption document")

	// the policy group inside the assumption document
	_, err = factory.ReadParamObjects("", `{"policy": {}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reform document")

	// an unknown group anywhere
	_, err = factory.ReadParamObjects(`{"policies": {}}`, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized")
}

func TestReadParamObjects_BadYearKeyRejected(t *testing.T) {
	_, err := factory.ReadParamObjects(`{"policy": {"someday": {"_II_em": [9000]}}}`, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calendar-year")
}

func TestReadParamObjects_InvalidJSONRejected(t *testing.T) {
	_, err := factory.ReadParamObjects(`{"policy": {`, "")
	require.Error(t, err)
}

// =============================================================================
// COMMENT STRIPPING TESTS
// =============================================================================

func TestStripComments(t *testing.T) {
	in := `{
  "policy": {} // trailing comment
  // whole-line comment
}`
	out := factory.StripComments(in)
	assert.NotContains(t, out, "comment")
	assert.Contains(t, out, `"policy"`)
}

func TestStripComments_PreservesSlashesInStrings(t *testing.T) {
	in := `{"url": "http://example.com//x"}`
	assert.Equal(t, in, factory.StripComments(in))
}

// =============================================================================
// DOCUMENTATION TESTS
// =============================================================================

func TestReformDocumentation_NoChanges(t *testing.T) {
	docs, err := factory.ReadParamObjects("", "")
	require.NoError(t, err)

	doc, err := factory.ReformDocumentation(docs)
	require.NoError(t, err)

	want := "REFORM DOCUMENTATION\n" +
		"Baseline Growth-Difference Assumption Values by Year:\n" +
		"none: using default baseline growth assumptions\n" +
		"Policy Reform Parameter Values by Year:\n" +
		"none: using current-law policy parameters\n"
	assert.Equal(t, want, doc)
}

func TestReformDocumentation_PolicyChanges(t *testing.T) {
	docs, err := factory.ReadParamObjects(sampleReform, "")
	require.NoError(t, err)

	doc, err := factory.ReformDocumentation(docs)
	require.NoError(t, err)

	assert.Contains(t, doc, "2020:\n")
	assert.Contains(t, doc, " _II_em : 9000\n")
	assert.Contains(t, doc, "  name: Personal and dependent exemption amount\n")
	assert.Contains(t, doc, "  baseline_value: ")
	assert.Contains(t, doc, " _II_em_cpi : false\n")
	// the growth-difference section still renders its none line
	assert.Contains(t, doc, "none: using default baseline growth assumptions\n")
}
