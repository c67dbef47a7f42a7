package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustWindow(t *testing.T, start, end string) Window {
	t.Helper()
	s, err := time.Parse(time.RFC3339, start)
	require.NoError(t, err)
	e, err := time.Parse(time.RFC3339, end)
	require.NoError(t, err)
	w, err := NewWindow(s, e)
	require.NoError(t, err)
	return w
}

func TestNewWindow_Invalid(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := NewWindow(at, at)
	require.Error(t, err)

	_, err = NewWindow(at.Add(time.Hour), at)
	require.Error(t, err)
}

func TestWindow_HalfOpen(t *testing.T) {
	w := mustWindow(t, "2026-03-01T00:00:00Z", "2026-03-02T00:00:00Z")

	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(w.End.Add(-time.Nanosecond)))
	assert.False(t, w.Contains(w.End))
	assert.False(t, w.Contains(w.Start.Add(-time.Nanosecond)))
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("2026-03-01", "2026-03-03")
	require.NoError(t, err)

	// End date is inclusive on input: the window runs to the next midnight.
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), w.End)

	_, err = ParseWindow("03/01/2026", "2026-03-03")
	require.Error(t, err)

	_, err = ParseWindow("2026-03-03", "2026-03-01")
	require.Error(t, err)
}

func TestWindow_Split(t *testing.T) {
	w := mustWindow(t, "2026-03-01T00:00:00Z", "2026-03-03T12:00:00Z")

	parts := w.Split(24 * time.Hour)
	require.Len(t, parts, 3)
	assert.Equal(t, w.Start, parts[0].Start)
	assert.Equal(t, parts[0].End, parts[1].Start)
	// Last part is truncated at the outer end.
	assert.Equal(t, w.End, parts[2].End)
	assert.Equal(t, 12*time.Hour, parts[2].Duration())

	// Zero or oversized step returns the window unchanged.
	assert.Equal(t, []Window{w}, w.Split(0))
	assert.Equal(t, []Window{w}, w.Split(96*time.Hour))
}

func TestWindow_Rolling(t *testing.T) {
	w := mustWindow(t, "2026-03-01T00:00:00Z", "2026-03-02T00:00:00Z")

	// 12h windows every 6h: 00-12, 06-18, 12-24.
	parts := w.Rolling(12*time.Hour, 6*time.Hour)
	require.Len(t, parts, 3)
	assert.Equal(t, parts[0].End, parts[1].Start.Add(6*time.Hour))
	assert.Equal(t, w.End, parts[2].End)
}
