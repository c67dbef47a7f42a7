// Package metrics computes equipment efficiency for window/unit pairs from
// normalized records: availability, performance, quality, OEE, TEEP, and the
// weighted composite score. Ratios with a zero denominator are refused with
// ErrInsufficientData rather than reported as zero.
package metrics

import (
	"github.com/rotisserie/eris"

	"github.com/mfg-analytics/oee-cli/internal/config"
	"github.com/mfg-analytics/oee-cli/internal/model"
)

// Engine computes metric results. It is stateless and safe for concurrent
// use.
type Engine struct {
	idealCycleMinutes float64
}

// NewEngine builds an Engine from the metrics configuration.
func NewEngine(cfg config.MetricsConfig) *Engine {
	return &Engine{idealCycleMinutes: cfg.IdealCycleTimeMinutes}
}

// Inputs is the record set for one window/unit computation. Equipment and
// material records belong to the unit; personnel records reference it;
// environment records cover the whole shop floor for the window.
type Inputs struct {
	UnitID string
	Window model.Window

	Equipment   []model.Record
	Material    []model.Record
	Personnel   []model.Record
	Environment []model.Record
}

// Compute derives the full metric result for one window/unit. The
// computation is all-or-nothing: any missing denominator or absent source
// fails the whole result with ErrInsufficientData, which callers surface as
// a gap.
func (e *Engine) Compute(in Inputs) (model.MetricResult, error) {
	res := model.MetricResult{UnitID: in.UnitID, Window: in.Window}

	if len(in.Equipment) == 0 {
		return res, eris.Wrapf(model.ErrInsufficientData, "metrics: no equipment records for %s in %s", in.UnitID, in.Window)
	}

	var runMinutes, downMinutes float64
	downByStatus := make(map[string]float64)
	for _, r := range in.Equipment {
		run, _ := r.Number("run_minutes")
		down, _ := r.Number("downtime_minutes")
		runMinutes += run
		downMinutes += down
		// Downtime is only attributable when the unit was actually down.
		if status, ok := r.Text("status"); ok && status != "running" && down > 0 {
			downByStatus[status] += down
		}
	}
	plannedMinutes := runMinutes + downMinutes
	if plannedMinutes <= 0 {
		return res, eris.Wrapf(model.ErrInsufficientData, "metrics: zero planned time for %s in %s", in.UnitID, in.Window)
	}
	res.Availability = clamp01(runMinutes / plannedMinutes)

	var total, good float64
	for _, r := range in.Material {
		t, _ := r.Number("total_count")
		g, _ := r.Number("good_count")
		total += t
		good += g
	}
	if total <= 0 {
		return res, eris.Wrapf(model.ErrInsufficientData, "metrics: zero production count for %s in %s", in.UnitID, in.Window)
	}
	if runMinutes <= 0 {
		return res, eris.Wrapf(model.ErrInsufficientData, "metrics: zero run time for %s in %s", in.UnitID, in.Window)
	}
	res.Performance = clamp01(e.idealCycleMinutes * total / runMinutes)
	res.Quality = clamp01(good / total)
	res.OEE = res.Availability * res.Performance * res.Quality

	calendarMinutes := in.Window.Duration().Minutes()
	res.Utilization = clamp01(plannedMinutes / calendarMinutes)
	res.TEEP = res.OEE * res.Utilization

	personnel, err := subScores[model.SourcePersonnel](in.Personnel)
	if err != nil {
		return res, eris.Wrapf(err, "metrics: %s in %s", in.UnitID, in.Window)
	}
	environment, err := subScores[model.SourceEnvironment](in.Environment)
	if err != nil {
		return res, eris.Wrapf(err, "metrics: %s in %s", in.UnitID, in.Window)
	}
	res.PersonnelScore = personnel
	res.EnvironmentScore = environment
	res.CompositeEfficiency = weightEquipment*res.OEE + weightPersonnel*personnel + weightEnvironment*environment

	res.ScrapRate = 1 - res.Quality
	res.TaktUnitsPerHour = total / (runMinutes / 60)
	res.CycleHoursPerUnit = runMinutes / 60 / total
	if len(downByStatus) > 0 {
		res.DowntimeByStatus = downByStatus
	}

	for _, group := range [][]model.Record{in.Equipment, in.Material, in.Personnel, in.Environment} {
		for _, r := range group {
			res.RecordCount++
			if r.Imputed() {
				res.ImputedRecords++
			}
		}
	}

	return res, nil
}

// clamp01 bounds a derived ratio to [0, 1]. Input values are never clamped;
// this only guards ratios like performance when actual cycle time beats the
// ideal.
func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
