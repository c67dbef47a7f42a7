package model

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

// DateFormat is the date shape the dashboard collaborator exchanges.
const DateFormat = "2006-01-02"

// Window is a half-open time interval [Start, End) over which metrics are
// aggregated.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow validates start < end and returns the window.
func NewWindow(start, end time.Time) (Window, error) {
	if !start.Before(end) {
		return Window{}, eris.Errorf("window: start %s must be before end %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Window{Start: start, End: end}, nil
}

// ParseWindow builds a window from YYYY-MM-DD date strings. The end date is
// inclusive on input and converted to the exclusive bound of the following
// midnight, matching how the dashboard sends date ranges.
func ParseWindow(startDate, endDate string) (Window, error) {
	start, err := time.Parse(DateFormat, startDate)
	if err != nil {
		return Window{}, eris.Wrapf(err, "window: parse start date %q", startDate)
	}
	end, err := time.Parse(DateFormat, endDate)
	if err != nil {
		return Window{}, eris.Wrapf(err, "window: parse end date %q", endDate)
	}
	return NewWindow(start, end.Add(24*time.Hour))
}

// Contains reports whether t falls inside [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Duration returns End - Start.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Split partitions the window into consecutive non-overlapping sub-windows
// of the given step. The final sub-window is truncated at End.
func (w Window) Split(step time.Duration) []Window {
	if step <= 0 || step >= w.Duration() {
		return []Window{w}
	}
	var out []Window
	for start := w.Start; start.Before(w.End); start = start.Add(step) {
		end := start.Add(step)
		if end.After(w.End) {
			end = w.End
		}
		out = append(out, Window{Start: start, End: end})
	}
	return out
}

// Rolling returns overlapping sub-windows of the given size advancing by
// step. Overlap only happens when step < size, which callers request
// explicitly.
func (w Window) Rolling(size, step time.Duration) []Window {
	if size <= 0 || step <= 0 || size >= w.Duration() {
		return []Window{w}
	}
	var out []Window
	for start := w.Start; start.Add(size).Before(w.End) || start.Add(size).Equal(w.End); start = start.Add(step) {
		out = append(out, Window{Start: start, End: start.Add(size)})
	}
	return out
}

// String renders the window for logs and reports.
func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}
