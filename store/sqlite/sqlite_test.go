package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/tax-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReformRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	rec := sqlite.ReformRecord{
		ID:          "r1",
		Name:        "raise-exemption",
		Description: "personal exemption to 9000 in 2020",
		PolicyJSON:  `{"policy": {"_II_em": {"2020": [9000]}}}`,
	}
	require.NoError(t, s.SaveReform(ctx, rec))

	got, err := s.GetReform(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "raise-exemption", got.Name)
	assert.Equal(t, rec.PolicyJSON, got.PolicyJSON)
	assert.Equal(t, 1, got.Version)
	assert.False(t, got.CreatedAt.IsZero())

	byName, err := s.GetReformByName(ctx, "raise-exemption")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, "r1", byName.ID)
}

func TestReformUpdateBumpsVersion(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	rec := sqlite.ReformRecord{ID: "r1", Name: "v", PolicyJSON: `{"policy": {}}`}
	require.NoError(t, s.SaveReform(ctx, rec))
	rec.PolicyJSON = `{"policy": {"_CTC_c": {"2019": [2000]}}}`
	require.NoError(t, s.SaveReform(ctx, rec))

	got, err := s.GetReform(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, rec.PolicyJSON, got.PolicyJSON)
}

func TestReformNameUniqueness(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveReform(ctx, sqlite.ReformRecord{
		ID: "r1", Name: "dup", PolicyJSON: "{}",
	}))
	err := s.SaveReform(ctx, sqlite.ReformRecord{
		ID: "r2", Name: "dup", PolicyJSON: "{}",
	})
	assert.True(t, sqlite.IsUniqueConstraintError(err), "got %v", err)
}

func TestMissingRowsReturnNil(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	reform, err := s.GetReform(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, reform)

	unitSet, err := s.GetUnitSet(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, unitSet)

	run, err := s.GetRun(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestUnitSetRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveUnitSet(ctx, sqlite.UnitSetRecord{
		ID: "u1", Name: "sample", DataYear: 2013,
		UnitsJSON: `[{"id": "a", "status": "single", "wage_self": "50000"}]`,
	}))

	got, err := s.GetUnitSet(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2013, got.DataYear)

	sets, err := s.ListUnitSets(ctx)
	require.NoError(t, err)
	assert.Len(t, sets, 1)
}

func TestScenarioRunLifecycle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, sqlite.ScenarioRun{
		ID: "run1", ReformID: "r1", UnitSetID: "u1",
		StartYear: 2013, EndYear: 2015,
	}))

	// pending -> running -> completed
	got, err := s.GetRun(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, sqlite.RunPending, got.Status)
	assert.Nil(t, got.StartedAt)

	require.NoError(t, s.StartRun(ctx, "run1"))
	got, err = s.GetRun(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, sqlite.RunRunning, got.Status)
	assert.NotNil(t, got.StartedAt)

	require.NoError(t, s.CompleteRun(ctx, "run1", `{"total_combined": "1234.5"}`))
	got, err = s.GetRun(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, sqlite.RunCompleted, got.Status)
	assert.Equal(t, `{"total_combined": "1234.5"}`, got.ResultsJSON)
	assert.NotNil(t, got.CompletedAt)
}

func TestFailedRunKeepsError(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, sqlite.ScenarioRun{
		ID: "run1", UnitSetID: "u1", StartYear: 2013, EndYear: 2013,
	}))
	require.NoError(t, s.FailRun(ctx, "run1", "unknown parameter _II_emm"))

	got, err := s.GetRun(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, sqlite.RunFailed, got.Status)
	assert.Equal(t, "unknown parameter _II_emm", got.Error)
	// current-law runs have no reform
	assert.Equal(t, "", got.ReformID)
}

func TestListRunsFiltersByStatus(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.CreateRun(ctx, sqlite.ScenarioRun{
			ID: id, UnitSetID: "u1", StartYear: 2013, EndYear: 2013,
		}))
	}
	require.NoError(t, s.StartRun(ctx, "b"))

	pending, err := s.ListRuns(ctx, sqlite.RunPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	all, err := s.ListRuns(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestReset(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveReform(ctx, sqlite.ReformRecord{ID: "r1", Name: "x", PolicyJSON: "{}"}))
	require.NoError(t, s.Reset(ctx))

	reforms, err := s.ListReforms(ctx)
	require.NoError(t, err)
	assert.Empty(t, reforms)
}
