package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfg-analytics/oee-cli/internal/fetcher"
	"github.com/mfg-analytics/oee-cli/internal/model"
	"github.com/mfg-analytics/oee-cli/internal/normalize"
)

func TestWriteRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.xlsx")
	ts := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	datasets := map[model.SourceType][]model.Record{
		model.SourceEquipment: {
			{
				UnitID: "CNC001", SourceType: model.SourceEquipment, Timestamp: ts,
				Fields: map[string]model.Field{
					"status":           model.TextField("running"),
					"run_minutes":      model.NumberField(400),
					"downtime_minutes": model.ImputedNumber(0, model.FillDefault),
					"failure_count":    model.NumberField(1),
					"warning":          model.TextField("normal"),
				},
			},
		},
	}

	require.NoError(t, WriteRecords(path, normalize.DefaultSchemas(), datasets))

	table, err := fetcher.ReadXLSX(path, "equipment")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"equipment_id", "timestamp",
		"status", "run_minutes", "downtime_minutes", "failure_count", "warning",
		"imputed_fields",
	}, table.Header)
	require.Len(t, table.Rows, 1)

	row := table.Rows[0]
	assert.Equal(t, "CNC001", row[0])
	assert.Equal(t, "2026-03-01 08:00:00", row[1])
	assert.Equal(t, "running", row[2])
	assert.Equal(t, "downtime_minutes", row[len(row)-1])
}

func TestWriteRecords_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.xlsx")
	err := WriteRecords(path, normalize.DefaultSchemas(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to write")
}

func TestWriteResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.xlsx")
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	results := []model.MetricResult{
		{
			UnitID:              "CNC001",
			Window:              model.Window{Start: start, End: start.Add(24 * time.Hour)},
			Availability:        0.833,
			Performance:         0.875,
			Quality:             0.943,
			OEE:                 0.687,
			TEEP:                0.229,
			CompositeEfficiency: 0.787,
			BottleneckLevel:     model.BottleneckMinor,
		},
	}

	require.NoError(t, WriteResults(path, results))

	table, err := fetcher.ReadXLSX(path, "metrics")
	require.NoError(t, err)
	assert.Equal(t, resultColumns, table.Header)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "2026-03-01", table.Rows[0][0])
	assert.Equal(t, "CNC001", table.Rows[0][2])
	assert.Equal(t, "minor", table.Rows[0][len(resultColumns)-1])
}

func TestWriteResults_Empty(t *testing.T) {
	err := WriteResults(filepath.Join(t.TempDir(), "metrics.xlsx"), nil)
	require.Error(t, err)
}
