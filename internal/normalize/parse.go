package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
)

var (
	idDigits   = regexp.MustCompile(`\d+`)
	numberUnit = regexp.MustCompile(`^([0-9]*\.?[0-9]+)\s*([a-z]*)$`)
)

// missingMarkers are cell values meaning "no value". Matched after trimming
// and lowercasing.
var missingMarkers = map[string]struct{}{
	"": {}, "-": {}, "na": {}, "n/a": {}, "null": {}, "none": {}, "nan": {},
}

// StandardizeID rewrites a raw identifier to the canonical prefix plus a
// zero-padded three-digit number (CNC001, W012, TEMP003). It keeps the
// digits and discards whatever prefix the source used; IDs without digits
// are unusable.
func StandardizeID(raw, prefix string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
	digits := idDigits.FindString(s)
	if digits == "" {
		return "", false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%s%03d", prefix, n), true
}

// timestampLayouts are tried in order. Date-only values parse to midnight.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// ParseTimestamp coerces a raw cell into a UTC timestamp. Integer values are
// read as unix seconds.
func ParseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if _, missing := missingMarkers[strings.ToLower(s)]; missing {
		return time.Time{}, eris.New("normalize: empty timestamp")
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("normalize: unparseable timestamp %q", s)
}

// ParseNumber coerces a raw cell into a float. With hours set, a trailing
// d/h/m/s (or spelled-out) unit converts the value to hours. Returns false
// for missing or unparseable cells; range checks happen in the caller.
func ParseNumber(raw string, hours bool) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if _, missing := missingMarkers[s]; missing {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")

	if hours {
		m := numberUnit.FindStringSubmatch(s)
		if m == nil {
			return 0, false
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		factor, ok := hourFactor(m[2])
		if !ok {
			return 0, false
		}
		return v * factor, true
	}

	v, err := cast.ToFloat64E(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// hourFactor maps a unit suffix to its hours multiplier. A bare number is
// already in hours.
func hourFactor(unit string) (float64, bool) {
	switch unit {
	case "", "h", "hr", "hrs", "hour", "hours":
		return 1, true
	case "d", "day", "days":
		return 24, true
	case "m", "min", "mins", "minute", "minutes":
		return 1.0 / 60, true
	case "s", "sec", "secs", "second", "seconds":
		return 1.0 / 3600, true
	}
	return 0, false
}

// normalizeHeader folds a header cell for alias matching: lowercase, spaces
// and dashes become underscores.
func normalizeHeader(h string) string {
	s := strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// cleanText trims and lowercases a categorical cell, mapping missing markers
// to the empty string.
func cleanText(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if _, missing := missingMarkers[s]; missing {
		return ""
	}
	return s
}
