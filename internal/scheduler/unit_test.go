package scheduler

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in   string
		want Unit
	}{
		{"once", Once},
		{"second", Seconds},
		{"seconds", Seconds},
		{"Minutes", Minutes},
		{"hour", Hours},
		{"days", Days},
		{"week", Weeks},
		{"months", Months},
		{" year ", Years},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUnit(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParseUnit(t, got.String()))
		})
	}

	_, err := ParseUnit("fortnight")
	assert.True(t, errors.Is(err, ErrConfig))
}

func mustParseUnit(t *testing.T, s string) Unit {
	u, err := ParseUnit(s)
	require.NoError(t, err)
	return u
}

func TestUnit_Advance(t *testing.T) {
	tests := []struct {
		name string
		unit Unit
		from string
		n    int
		want string
	}{
		{"seconds", Seconds, "2024-01-01 23:59:58", 3, "2024-01-02 00:00:01"},
		{"minutes", Minutes, "2024-01-01 10:00:00", 90, "2024-01-01 11:30:00"},
		{"hours", Hours, "2024-01-01 22:00:00", 5, "2024-01-02 03:00:00"},
		{"days across month", Days, "2024-01-31 10:00:00", 1, "2024-02-01 10:00:00"},
		{"weeks are seven days", Weeks, "2024-01-05 09:31:00", 2, "2024-01-19 09:31:00"},
		{"month end clamps in leap year", Months, "2024-01-31 08:00:00", 1, "2024-02-29 08:00:00"},
		{"month end clamps", Months, "2023-01-31 08:00:00", 1, "2023-02-28 08:00:00"},
		{"months across year", Months, "2024-11-15 00:00:00", 3, "2025-02-15 00:00:00"},
		{"leap day plus a year", Years, "2024-02-29 12:00:00", 1, "2025-02-28 12:00:00"},
		{"years", Years, "2024-07-21 00:00:00", 4, "2028-07-21 00:00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, at(tt.want), tt.unit.advance(at(tt.from), tt.n))
		})
	}
}

func TestAddMonths_Negative(t *testing.T) {
	assert.Equal(t, at("2023-12-31 00:00:00"), addMonths(at("2024-03-31 00:00:00"), -3))
	assert.Equal(t, at("2024-02-29 00:00:00"), addMonths(at("2024-03-31 00:00:00"), -1))
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 29, daysIn(2024, time.February))
	assert.Equal(t, 28, daysIn(2100, time.February))
	assert.Equal(t, 31, daysIn(2024, time.December))
}
