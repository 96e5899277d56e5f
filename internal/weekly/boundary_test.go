package weekly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utc(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestWeekStart(t *testing.T) {
	// 2024-01-07 is a Sunday.
	tests := []struct {
		name     string
		boundary Boundary
		in       time.Time
		want     time.Time
	}{
		{
			name:     "exactly on boundary",
			boundary: Default,
			in:       utc(2024, 1, 7, 0, 0),
			want:     utc(2024, 1, 7, 0, 0),
		},
		{
			name:     "one nanosecond before boundary",
			boundary: Default,
			in:       utc(2024, 1, 7, 0, 0).Add(-time.Nanosecond),
			want:     utc(2023, 12, 31, 0, 0),
		},
		{
			name:     "mid week wednesday",
			boundary: Default,
			in:       utc(2024, 1, 10, 15, 30),
			want:     utc(2024, 1, 7, 0, 0),
		},
		{
			name:     "saturday night",
			boundary: Default,
			in:       utc(2024, 1, 13, 23, 59),
			want:     utc(2024, 1, 7, 0, 0),
		},
		{
			name:     "non-utc input is normalized",
			boundary: Default,
			in:       time.Date(2024, 1, 7, 1, 0, 0, 0, time.FixedZone("CET", 3600)),
			want:     utc(2024, 1, 7, 0, 0),
		},
		{
			name:     "monday 09:00 boundary, same day before offset",
			boundary: Boundary{Weekday: time.Monday, Offset: 9 * time.Hour},
			in:       utc(2024, 1, 8, 8, 59),
			want:     utc(2024, 1, 1, 9, 0),
		},
		{
			name:     "monday 09:00 boundary, same day after offset",
			boundary: Boundary{Weekday: time.Monday, Offset: 9 * time.Hour},
			in:       utc(2024, 1, 8, 9, 1),
			want:     utc(2024, 1, 8, 9, 0),
		},
		{
			name:     "across year end",
			boundary: Boundary{Weekday: time.Friday},
			in:       utc(2024, 1, 2, 12, 0),
			want:     utc(2023, 12, 29, 0, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.boundary.WeekStart(tt.in)
			assert.True(t, tt.want.Equal(got), "WeekStart(%v) = %v, want %v", tt.in, got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestWeekStartProperties(t *testing.T) {
	boundaries := []Boundary{
		Default,
		{Weekday: time.Wednesday, Offset: 18*time.Hour + 30*time.Minute},
	}
	start := utc(2023, 12, 20, 0, 0)

	for _, b := range boundaries {
		for i := 0; i < 24*21; i++ {
			ts := start.Add(time.Duration(i)*time.Hour + 17*time.Minute)
			ws := b.WeekStart(ts)

			require.False(t, ws.After(ts), "%s: WeekStart(%v)=%v is after input", b, ts, ws)
			require.True(t, ts.Sub(ws) < Week, "%s: %v is more than a week after %v", b, ts, ws)
			require.True(t, ws.Equal(b.WeekStart(ws)), "%s: WeekStart is not idempotent at %v", b, ws)
			require.Equal(t, b.Weekday, ws.Weekday())

			// Any other instant in the same week maps to the same start.
			later := ws.Add(Week - time.Nanosecond)
			require.True(t, ws.Equal(b.WeekStart(later)))
		}
	}
}

func TestNext(t *testing.T) {
	assert.True(t, utc(2024, 1, 14, 0, 0).Equal(Default.Next(utc(2024, 1, 7, 0, 0))))
	assert.True(t, utc(2024, 1, 14, 0, 0).Equal(Default.Next(utc(2024, 1, 10, 12, 0))))
	assert.True(t, utc(2024, 1, 7, 0, 0).Equal(Default.Next(utc(2024, 1, 6, 23, 59))))
}

func TestWindow(t *testing.T) {
	t.Run("mid week covers week start to ref", func(t *testing.T) {
		ref := utc(2024, 1, 10, 12, 0)
		w := Default.Window(ref)
		assert.True(t, utc(2024, 1, 7, 0, 0).Equal(w.Start))
		assert.True(t, ref.Equal(w.End))
	})

	t.Run("ref on boundary covers the week that just closed", func(t *testing.T) {
		ref := utc(2024, 1, 14, 0, 0)
		w := Default.Window(ref)
		assert.True(t, utc(2024, 1, 7, 0, 0).Equal(w.Start))
		assert.True(t, ref.Equal(w.End))
		assert.True(t, w.Contains(utc(2024, 1, 13, 23, 59)))
		assert.False(t, w.Contains(ref))
	})

	t.Run("window start is always a boundary", func(t *testing.T) {
		for i := 0; i < 14; i++ {
			ref := utc(2024, 1, 1, 6, 0).AddDate(0, 0, i)
			w := Default.Window(ref)
			assert.True(t, w.Start.Equal(Default.WeekStart(w.Start)))
		}
	})
}

func TestParseBoundary(t *testing.T) {
	tests := []struct {
		weekday, tod string
		want         Boundary
		wantErr      bool
	}{
		{"", "", Default, false},
		{"sunday", "00:00", Default, false},
		{"Mon", "09:30", Boundary{Weekday: time.Monday, Offset: 9*time.Hour + 30*time.Minute}, false},
		{" SATURDAY ", "23:59", Boundary{Weekday: time.Saturday, Offset: 23*time.Hour + 59*time.Minute}, false},
		{"funday", "00:00", Boundary{}, true},
		{"sunday", "24:00", Boundary{}, true},
		{"sunday", "7pm", Boundary{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.weekday+"/"+tt.tod, func(t *testing.T) {
			got, err := ParseBoundary(tt.weekday, tt.tod)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidBoundary)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBoundaryString(t *testing.T) {
	b := Boundary{Weekday: time.Monday, Offset: 9*time.Hour + 5*time.Minute}
	assert.Equal(t, "Monday 09:05 UTC", b.String())
}
