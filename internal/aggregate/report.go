package aggregate

import (
	"fmt"
	"strings"

	"github.com/mfg-analytics/oee-cli/internal/model"
)

// FormatReport renders the batch outcome as a plain-text report: fleet
// summary, per-window/unit scores, bottleneck ranking, and the gap list.
func FormatReport(s Summary, results []model.MetricResult) string {
	var sb strings.Builder

	sb.WriteString("EFFICIENCY ANALYSIS REPORT\n")
	sb.WriteString("==========================\n\n")

	fmt.Fprintf(&sb, "Units analyzed:  %d (%s)\n", len(s.Units), strings.Join(s.Units, ", "))
	fmt.Fprintf(&sb, "Windows:         %d\n", s.Windows)
	fmt.Fprintf(&sb, "Records used:    %d (%d with imputed fields)\n", s.RecordCount, s.ImputedRecords)
	fmt.Fprintf(&sb, "OEE trend:       %s\n\n", s.Trend)

	sb.WriteString("Fleet means\n")
	sb.WriteString("-----------\n")
	fmt.Fprintf(&sb, "  availability  %.3f\n", s.MeanAvailability)
	fmt.Fprintf(&sb, "  performance   %.3f\n", s.MeanPerformance)
	fmt.Fprintf(&sb, "  quality       %.3f\n", s.MeanQuality)
	fmt.Fprintf(&sb, "  OEE           %.3f\n", s.MeanOEE)
	fmt.Fprintf(&sb, "  TEEP          %.3f\n", s.MeanTEEP)
	fmt.Fprintf(&sb, "  composite     %.3f\n\n", s.MeanComposite)

	if len(results) > 0 {
		sb.WriteString("Window results\n")
		sb.WriteString("--------------\n")
		fmt.Fprintf(&sb, "  %-12s %-12s %-8s %6s %6s %6s %6s %6s %6s\n",
			"start", "end", "unit", "avail", "perf", "qual", "oee", "teep", "comp")
		for _, r := range results {
			fmt.Fprintf(&sb, "  %-12s %-12s %-8s %6.3f %6.3f %6.3f %6.3f %6.3f %6.3f\n",
				r.Window.Start.Format(model.DateFormat),
				r.Window.End.Format(model.DateFormat),
				r.UnitID,
				r.Availability, r.Performance, r.Quality, r.OEE, r.TEEP, r.CompositeEfficiency)
		}
		sb.WriteString("\n")

		sb.WriteString("Bottlenecks\n")
		sb.WriteString("-----------\n")
		seen := make(map[string]bool)
		for _, r := range results {
			if seen[r.UnitID] {
				continue
			}
			seen[r.UnitID] = true
			fmt.Fprintf(&sb, "  %-8s score %.2f  %s\n", r.UnitID, r.BottleneckScore, r.BottleneckLevel)
		}
		sb.WriteString("\n")
	}

	if len(s.Gaps) > 0 {
		sb.WriteString("Gaps (no result computed)\n")
		sb.WriteString("-------------------------\n")
		for _, g := range s.Gaps {
			fmt.Fprintf(&sb, "  %-8s %s  %s\n", g.UnitID, g.Window, g.Reason)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
