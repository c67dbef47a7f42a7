package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfg-analytics/oee-cli/internal/config"
	"github.com/mfg-analytics/oee-cli/internal/model"
)

var testDay = model.Window{
	Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
}

func testEngine() *Engine {
	return NewEngine(config.MetricsConfig{IdealCycleTimeMinutes: 1})
}

func equipmentRecord(unit string, ts time.Time, run, down float64) model.Record {
	return model.Record{
		UnitID: unit, SourceType: model.SourceEquipment, Timestamp: ts,
		Fields: map[string]model.Field{
			"status":           model.TextField("running"),
			"run_minutes":      model.NumberField(run),
			"downtime_minutes": model.NumberField(down),
			"failure_count":    model.NumberField(0),
			"warning":          model.TextField("normal"),
		},
	}
}

func materialRecord(unit string, ts time.Time, total, good float64) model.Record {
	return model.Record{
		UnitID: unit, SourceType: model.SourceMaterial, Timestamp: ts,
		Fields: map[string]model.Field{
			"total_count": model.NumberField(total),
			"good_count":  model.NumberField(good),
		},
	}
}

func personnelRecord(unit string, ts time.Time, result string, skill float64) model.Record {
	return model.Record{
		UnitID: "W001", SourceType: model.SourcePersonnel, Timestamp: ts,
		Fields: map[string]model.Field{
			"equipment_id":   model.TextField(unit),
			"operation_type": model.TextField("loading"),
			"duration_hours": model.NumberField(1),
			"result":         model.TextField(result),
			"skill_level":    model.NumberField(skill),
		},
	}
}

func environmentRecord(ts time.Time, temp, humidity, pm25 float64) model.Record {
	return model.Record{
		UnitID: "TEMP001", SourceType: model.SourceEnvironment, Timestamp: ts,
		Fields: map[string]model.Field{
			"temperature": model.NumberField(temp),
			"humidity":    model.NumberField(humidity),
			"pm25":        model.NumberField(pm25),
			"location":    model.TextField("zone-a"),
			"warning":     model.TextField("normal"),
		},
	}
}

func shiftInputs() Inputs {
	ts := testDay.Start.Add(8 * time.Hour)
	return Inputs{
		UnitID: "CNC001",
		Window: testDay,
		Equipment: []model.Record{
			equipmentRecord("CNC001", ts, 400, 80),
		},
		Material: []model.Record{
			materialRecord("CNC001", ts, 350, 330),
		},
		Personnel: []model.Record{
			personnelRecord("CNC001", ts, "normal", 0.9),
		},
		Environment: []model.Record{
			environmentRecord(ts, 22, 55, 40),
		},
	}
}

func TestCompute_ShiftExample(t *testing.T) {
	res, err := testEngine().Compute(shiftInputs())
	require.NoError(t, err)

	// 480 planned minutes, 400 run, 350 produced, 330 good.
	assert.InDelta(t, 0.833, res.Availability, 1e-3)
	assert.InDelta(t, 0.875, res.Performance, 1e-3)
	assert.InDelta(t, 0.943, res.Quality, 1e-3)
	assert.InDelta(t, 0.687, res.OEE, 1e-3)
	assert.InDelta(t, res.Availability*res.Performance*res.Quality, res.OEE, 1e-9)

	// 480 of 1440 calendar minutes were planned.
	assert.InDelta(t, 1.0/3, res.Utilization, 1e-9)
	assert.InDelta(t, res.OEE*res.Utilization, res.TEEP, 1e-9)

	assert.InDelta(t, 0.9, res.PersonnelScore, 1e-9)
	assert.InDelta(t, 1.0, res.EnvironmentScore, 1e-9)
	assert.InDelta(t, 0.6*res.OEE+0.25*0.9+0.15*1.0, res.CompositeEfficiency, 1e-9)

	assert.InDelta(t, 1-res.Quality, res.ScrapRate, 1e-9)
	assert.InDelta(t, 52.5, res.TaktUnitsPerHour, 1e-9)
	// Running units get no downtime attribution.
	assert.Empty(t, res.DowntimeByStatus)
	assert.Equal(t, 4, res.RecordCount)
	assert.Zero(t, res.ImputedRecords)
}

func TestCompute_RatiosStayInRange(t *testing.T) {
	in := shiftInputs()
	// More units than the run time could ideally produce.
	in.Material = []model.Record{materialRecord("CNC001", testDay.Start, 900, 900)}

	res, err := testEngine().Compute(in)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Performance)
	assert.Equal(t, 1.0, res.Quality)
	assert.LessOrEqual(t, res.OEE, 1.0)
}

func TestCompute_NoEquipment(t *testing.T) {
	in := shiftInputs()
	in.Equipment = nil

	_, err := testEngine().Compute(in)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestCompute_ZeroProduction(t *testing.T) {
	in := shiftInputs()
	in.Material = []model.Record{materialRecord("CNC001", testDay.Start, 0, 0)}

	_, err := testEngine().Compute(in)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInsufficientData)

	in.Material = nil
	_, err = testEngine().Compute(in)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestCompute_ZeroPlannedTime(t *testing.T) {
	in := shiftInputs()
	in.Equipment = []model.Record{equipmentRecord("CNC001", testDay.Start, 0, 0)}

	_, err := testEngine().Compute(in)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestCompute_MissingSubScoreSources(t *testing.T) {
	in := shiftInputs()
	in.Personnel = nil
	_, err := testEngine().Compute(in)
	assert.ErrorIs(t, err, model.ErrInsufficientData)

	in = shiftInputs()
	in.Environment = nil
	_, err = testEngine().Compute(in)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestPersonnelScore(t *testing.T) {
	ts := testDay.Start
	records := []model.Record{
		personnelRecord("CNC001", ts, "normal", 0.8),
		personnelRecord("CNC001", ts, "abnormal", 0.6),
	}

	score, err := personnelScore(records)
	require.NoError(t, err)
	// Half the operations ended normally, mean skill 0.7.
	assert.InDelta(t, 0.35, score, 1e-9)
}

func TestEnvironmentScore(t *testing.T) {
	ts := testDay.Start
	records := []model.Record{
		environmentRecord(ts, 22, 55, 40),  // all three in band
		environmentRecord(ts, 35, 55, 200), // only humidity in band
	}

	score, err := environmentScore(records)
	require.NoError(t, err)
	assert.InDelta(t, (1.0+1.0/3)/2, score, 1e-9)
}

func TestCompute_DowntimeByStatus(t *testing.T) {
	in := shiftInputs()

	fault := equipmentRecord("CNC001", testDay.Start.Add(10*time.Hour), 0, 60)
	fault.Fields["status"] = model.TextField("fault")
	maint := equipmentRecord("CNC001", testDay.Start.Add(14*time.Hour), 0, 30)
	maint.Fields["status"] = model.TextField("maintenance")
	in.Equipment = append(in.Equipment, fault, maint)

	res, err := testEngine().Compute(in)
	require.NoError(t, err)

	// The running record's 80 downtime minutes are not attributed.
	assert.InDelta(t, 60, res.DowntimeByStatus["fault"], 1e-9)
	assert.InDelta(t, 30, res.DowntimeByStatus["maintenance"], 1e-9)
	assert.Len(t, res.DowntimeByStatus, 2)
}

func TestCompute_CountsImputedRecords(t *testing.T) {
	in := shiftInputs()
	rec := in.Equipment[0]
	rec.Fields = map[string]model.Field{
		"status":           rec.Fields["status"],
		"run_minutes":      model.ImputedNumber(400, model.FillCarryForward),
		"downtime_minutes": rec.Fields["downtime_minutes"],
		"failure_count":    rec.Fields["failure_count"],
		"warning":          rec.Fields["warning"],
	}
	in.Equipment = []model.Record{rec}

	res, err := testEngine().Compute(in)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ImputedRecords)
}
