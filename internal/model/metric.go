package model

// BottleneckLevel classifies a unit's 0-5 bottleneck score. This scale is
// distinct from the 0-1 efficiency ratios and must not be conflated with them.
type BottleneckLevel string

const (
	BottleneckSevere   BottleneckLevel = "severe"
	BottleneckModerate BottleneckLevel = "moderate"
	BottleneckMinor    BottleneckLevel = "minor"
)

// ClassifyBottleneck maps a 0-5 bottleneck score to a severity level.
// Comparisons are strict: exactly 4.5 is moderate, exactly 2.5 is minor.
func ClassifyBottleneck(score float64) BottleneckLevel {
	switch {
	case score > 4.5:
		return BottleneckSevere
	case score > 2.5:
		return BottleneckModerate
	default:
		return BottleneckMinor
	}
}

// MetricResult holds the composite efficiency scores for one equipment unit
// over one window, plus provenance. Results are recomputed fresh per
// requested window and never patched after aggregation.
type MetricResult struct {
	UnitID string `json:"unit_id"`
	Window Window `json:"window"`

	Availability        float64 `json:"availability"`
	Performance         float64 `json:"performance"`
	Quality             float64 `json:"quality"`
	OEE                 float64 `json:"oee"`
	Utilization         float64 `json:"utilization"`
	TEEP                float64 `json:"teep"`
	CompositeEfficiency float64 `json:"composite_efficiency"`

	PersonnelScore   float64 `json:"personnel_score"`
	EnvironmentScore float64 `json:"environment_score"`

	BottleneckScore float64         `json:"bottleneck_score"`
	BottleneckLevel BottleneckLevel `json:"bottleneck_level"`

	// Diagnostics recovered per window.
	TaktUnitsPerHour  float64            `json:"takt_units_per_hour"`
	CycleHoursPerUnit float64            `json:"cycle_hours_per_unit"`
	ScrapRate         float64            `json:"scrap_rate"`
	// DowntimeByStatus breaks downtime minutes out by non-running equipment
	// status (stopped, maintenance, fault, idle).
	DowntimeByStatus map[string]float64 `json:"downtime_by_status,omitempty"`

	RecordCount    int `json:"record_count"`
	ImputedRecords int `json:"imputed_records"`
}

// MetricRow is the dashboard-facing JSON shape consumed by the external
// reporting collaborator. Dates are YYYY-MM-DD strings.
type MetricRow struct {
	StartTime           string  `json:"start_time"`
	EndTime             string  `json:"end_time"`
	UnitID              string  `json:"unit_id,omitempty"`
	Availability        float64 `json:"availability"`
	Performance         float64 `json:"performance"`
	Quality             float64 `json:"quality"`
	OEE                 float64 `json:"oee"`
	TEEP                float64 `json:"teep"`
	CompositeEfficiency float64 `json:"composite_efficiency"`
	BottleneckLevel     string  `json:"bottleneck_level"`
}

// Row converts the result to the collaborator contract shape. Day-aligned
// windows render the inclusive end date, mirroring how ParseWindow reads
// date ranges; sub-daily windows keep the exclusive bound's date.
func (m MetricResult) Row() MetricRow {
	end := m.Window.End
	if end.Hour() == 0 && end.Minute() == 0 && end.Second() == 0 {
		end = end.AddDate(0, 0, -1)
	}
	return MetricRow{
		StartTime:           m.Window.Start.Format(DateFormat),
		EndTime:             end.Format(DateFormat),
		UnitID:              m.UnitID,
		Availability:        m.Availability,
		Performance:         m.Performance,
		Quality:             m.Quality,
		OEE:                 m.OEE,
		TEEP:                m.TEEP,
		CompositeEfficiency: m.CompositeEfficiency,
		BottleneckLevel:     string(m.BottleneckLevel),
	}
}

// Gap records a window/unit for which no MetricResult could be computed.
// Gaps are surfaced in reports explicitly rather than masked as zeros.
type Gap struct {
	UnitID string `json:"unit_id"`
	Window Window `json:"window"`
	Reason string `json:"reason"`
}
