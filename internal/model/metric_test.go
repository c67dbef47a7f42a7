package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBottleneck(t *testing.T) {
	tests := []struct {
		score float64
		want  BottleneckLevel
	}{
		{4.6, BottleneckSevere},
		{2.6, BottleneckModerate},
		{1.0, BottleneckMinor},
		// Boundaries are strict: > not >=.
		{4.5, BottleneckModerate},
		{2.5, BottleneckMinor},
		{0, BottleneckMinor},
		{5, BottleneckSevere},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyBottleneck(tt.score), "score %v", tt.score)
	}
}

func TestMetricResult_Row(t *testing.T) {
	w := Window{
		Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	m := MetricResult{
		UnitID:              "CNC001",
		Window:              w,
		Availability:        0.833,
		Performance:         0.875,
		Quality:             0.943,
		OEE:                 0.687,
		TEEP:                0.229,
		CompositeEfficiency: 0.61,
		BottleneckLevel:     BottleneckModerate,
	}

	row := m.Row()
	assert.Equal(t, "2026-03-01", row.StartTime)
	// The single-day range comes back with the same inclusive end date the
	// dashboard sent.
	assert.Equal(t, "2026-03-01", row.EndTime)
	assert.Equal(t, "CNC001", row.UnitID)
	assert.Equal(t, "moderate", row.BottleneckLevel)
	assert.Equal(t, 0.687, row.OEE)

	// A sub-daily window is not day-aligned; its end date stays put.
	m.Window.End = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-01", m.Row().EndTime)
}

func TestRecord_Accessors(t *testing.T) {
	r := Record{
		UnitID:     "CNC002",
		SourceType: SourceEquipment,
		Fields: map[string]Field{
			"run_minutes": NumberField(400),
			"status":      TextField("running"),
			"failures":    ImputedNumber(0, FillDefault),
		},
	}

	v, ok := r.Number("run_minutes")
	assert.True(t, ok)
	assert.Equal(t, 400.0, v)

	s, ok := r.Text("status")
	assert.True(t, ok)
	assert.Equal(t, "running", s)

	// Kind mismatches and missing fields report absent.
	_, ok = r.Number("status")
	assert.False(t, ok)
	_, ok = r.Text("missing")
	assert.False(t, ok)

	assert.True(t, r.Imputed())
	delete(r.Fields, "failures")
	assert.False(t, r.Imputed())
}

func TestSourceType_Valid(t *testing.T) {
	for _, s := range SourceTypes {
		assert.True(t, s.Valid())
	}
	assert.False(t, SourceType("operation").Valid())
}
