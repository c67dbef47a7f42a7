package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfg-analytics/oee-cli/internal/model"
	"github.com/mfg-analytics/oee-cli/internal/store"
)

func TestRunAnalysis(t *testing.T) {
	cfg = testConfig()
	st := seedStore(t)

	w, err := model.ParseWindow("2026-03-01", "2026-03-01")
	require.NoError(t, err)

	outcome, err := runAnalysis(context.Background(), st, analysisRequest{
		Window:  w,
		Step:    24 * time.Hour,
		Persist: true,
	})
	require.NoError(t, err)
	require.Len(t, outcome.Results, 1)

	res := outcome.Results[0]
	assert.Equal(t, "CNC001", res.UnitID)
	assert.InDelta(t, 0.687, res.OEE, 1e-3)
	assert.NotEmpty(t, res.BottleneckLevel)

	// Results must have been persisted.
	saved, err := st.ListResults(context.Background(), w)
	require.NoError(t, err)
	assert.Len(t, saved, 1)
}

func TestRunAnalysis_NoRecords(t *testing.T) {
	cfg = testConfig()
	st := seedStore(t)

	w, err := model.ParseWindow("2030-01-01", "2030-01-02")
	require.NoError(t, err)

	_, err = runAnalysis(context.Background(), st, analysisRequest{Window: w, Step: 24 * time.Hour})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestRunAnalysis_UnknownUnitIsGap(t *testing.T) {
	cfg = testConfig()
	st := seedStore(t)

	w, err := model.ParseWindow("2026-03-01", "2026-03-01")
	require.NoError(t, err)

	outcome, err := runAnalysis(context.Background(), st, analysisRequest{
		Window: w,
		Step:   24 * time.Hour,
		Units:  []string{"CNC001", "CNC099"},
	})
	require.NoError(t, err)
	assert.Len(t, outcome.Results, 1)
	require.Len(t, outcome.Gaps, 1)
	assert.Equal(t, "CNC099", outcome.Gaps[0].UnitID)
}

func TestOpenStore_SQLiteDefault(t *testing.T) {
	cfg = testConfig()
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = t.TempDir() + "/cli.db"

	st, err := openStore(context.Background())
	require.NoError(t, err)
	defer st.Close()

	_, err = st.ListRecords(context.Background(), store.RecordFilter{})
	assert.NoError(t, err)
}
