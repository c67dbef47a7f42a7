// Package aggregate rolls window/unit metric results up into fleet-level
// summaries: bottleneck rankings, trend direction, and the plain-text report.
package aggregate

import (
	"sort"

	"github.com/mfg-analytics/oee-cli/internal/model"
)

// Bottleneck component weights over fleet-normalized failure, downtime, and
// warning rates. The weighted sum is scaled to the 0-5 score band.
const (
	bottleneckScale = 5.0
	weightFailures  = 0.5
	weightDowntime  = 0.3
	weightWarnings  = 0.2
)

// UnitStats accumulates the equipment trouble indicators for one unit over
// the whole analysis span.
type UnitStats struct {
	UnitID        string
	Failures      float64
	DowntimeHours float64
	Warnings      float64
}

// CollectUnitStats sums failures, downtime, and non-normal warnings per unit
// from equipment records. Output is sorted by unit ID.
func CollectUnitStats(records []model.Record) []UnitStats {
	byUnit := make(map[string]*UnitStats)
	for _, r := range records {
		if r.SourceType != model.SourceEquipment {
			continue
		}
		s, ok := byUnit[r.UnitID]
		if !ok {
			s = &UnitStats{UnitID: r.UnitID}
			byUnit[r.UnitID] = s
		}
		if v, ok := r.Number("failure_count"); ok {
			s.Failures += v
		}
		if v, ok := r.Number("downtime_minutes"); ok {
			s.DowntimeHours += v / 60
		}
		if w, ok := r.Text("warning"); ok && w != "normal" {
			s.Warnings++
		}
	}

	out := make([]UnitStats, 0, len(byUnit))
	for _, s := range byUnit {
		out = append(out, *s)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].UnitID < out[b].UnitID })
	return out
}

// BottleneckScores rates each unit 0-5 against the worst unit in the fleet.
// A component whose fleet maximum is zero contributes nothing, so a trouble-
// free fleet scores all zeros.
func BottleneckScores(stats []UnitStats) map[string]float64 {
	var maxFailures, maxDowntime, maxWarnings float64
	for _, s := range stats {
		maxFailures = max(maxFailures, s.Failures)
		maxDowntime = max(maxDowntime, s.DowntimeHours)
		maxWarnings = max(maxWarnings, s.Warnings)
	}

	scores := make(map[string]float64, len(stats))
	for _, s := range stats {
		var score float64
		if maxFailures > 0 {
			score += weightFailures * s.Failures / maxFailures
		}
		if maxDowntime > 0 {
			score += weightDowntime * s.DowntimeHours / maxDowntime
		}
		if maxWarnings > 0 {
			score += weightWarnings * s.Warnings / maxWarnings
		}
		scores[s.UnitID] = bottleneckScale * score
	}
	return scores
}

// ApplyBottlenecks stamps each result with its unit's fleet-relative
// bottleneck score and severity. Scores are computed once over the whole
// record span, so a unit carries the same rating across its windows.
func ApplyBottlenecks(results []model.MetricResult, records []model.Record) []model.MetricResult {
	scores := BottleneckScores(CollectUnitStats(records))

	out := make([]model.MetricResult, len(results))
	for i, res := range results {
		res.BottleneckScore = scores[res.UnitID]
		res.BottleneckLevel = model.ClassifyBottleneck(res.BottleneckScore)
		out[i] = res
	}
	return out
}
