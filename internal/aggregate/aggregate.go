package aggregate

import (
	"sort"

	"github.com/mfg-analytics/oee-cli/internal/model"
)

// Trend is the direction of fleet OEE between the first and last window.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// Summary is the fleet-level rollup of one batch: mean scores, trend, the
// severity census, and every window/unit gap. Gaps stay visible; they are
// never averaged away.
type Summary struct {
	Units   []string
	Windows int

	MeanAvailability float64
	MeanPerformance  float64
	MeanQuality      float64
	MeanOEE          float64
	MeanTEEP         float64
	MeanComposite    float64

	Trend Trend

	SeverityCounts map[model.BottleneckLevel]int

	RecordCount    int
	ImputedRecords int

	Gaps []model.Gap
}

// Summarize rolls results and gaps up into a fleet summary. Trend compares
// mean OEE of the earliest window against the latest; differences within
// epsilon count as flat.
func Summarize(results []model.MetricResult, gaps []model.Gap, epsilon float64) Summary {
	s := Summary{
		SeverityCounts: make(map[model.BottleneckLevel]int),
		Gaps:           gaps,
	}

	units := make(map[string]struct{})
	windows := make(map[model.Window]struct{})
	unitSeverity := make(map[string]model.BottleneckLevel)

	for _, r := range results {
		units[r.UnitID] = struct{}{}
		windows[r.Window] = struct{}{}
		unitSeverity[r.UnitID] = r.BottleneckLevel

		s.MeanAvailability += r.Availability
		s.MeanPerformance += r.Performance
		s.MeanQuality += r.Quality
		s.MeanOEE += r.OEE
		s.MeanTEEP += r.TEEP
		s.MeanComposite += r.CompositeEfficiency
		s.RecordCount += r.RecordCount
		s.ImputedRecords += r.ImputedRecords
	}

	if n := float64(len(results)); n > 0 {
		s.MeanAvailability /= n
		s.MeanPerformance /= n
		s.MeanQuality /= n
		s.MeanOEE /= n
		s.MeanTEEP /= n
		s.MeanComposite /= n
	}

	for unit := range units {
		s.Units = append(s.Units, unit)
	}
	sort.Strings(s.Units)
	s.Windows = len(windows)

	for _, level := range unitSeverity {
		s.SeverityCounts[level]++
	}

	s.Trend = trend(results, epsilon)
	return s
}

// trend compares mean OEE across the earliest and latest windows present.
func trend(results []model.MetricResult, epsilon float64) Trend {
	if len(results) == 0 {
		return TrendFlat
	}

	first, last := results[0].Window, results[0].Window
	for _, r := range results {
		if r.Window.Start.Before(first.Start) {
			first = r.Window
		}
		if r.Window.Start.After(last.Start) {
			last = r.Window
		}
	}
	if first == last {
		return TrendFlat
	}

	diff := windowMeanOEE(results, last) - windowMeanOEE(results, first)
	switch {
	case diff > epsilon:
		return TrendUp
	case diff < -epsilon:
		return TrendDown
	}
	return TrendFlat
}

func windowMeanOEE(results []model.MetricResult, w model.Window) float64 {
	var sum float64
	var n int
	for _, r := range results {
		if r.Window == w {
			sum += r.OEE
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
