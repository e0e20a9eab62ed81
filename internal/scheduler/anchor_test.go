package scheduler

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnchor(t *testing.T) {
	// Monday.
	ref := at("2024-01-01 09:00:00")

	tests := []struct {
		name string
		text string
		want string
	}{
		{"time of day", "09:31", "2024-01-01 09:31:00"},
		{"time with seconds", "10:00:15", "2024-01-01 10:00:15"},
		{"weekday and time", "friday 09:31", "2024-01-05 09:31:00"},
		{"weekday today", "Monday", "2024-01-01 00:00:00"},
		{"short weekday", "sat 7:05", "2024-01-06 07:05:00"},
		{"day of month and time", "09 09:31", "2024-01-09 09:31:00"},
		{"day of month after time", "14:12 21", "2024-01-21 14:12:00"},
		{"full timestamp", "1970-01-01 00:00:00", "1970-01-01 00:00:00"},
		{"date only", "2025-03-04", "2025-03-04 00:00:00"},
		{"iso with t", "2025-03-04T05:06:07", "2025-03-04 05:06:07"},
		{"rfc3339", "2025-03-04T05:06:07Z", "2025-03-04 05:06:07"},
		{"month and day", "07-21", "2024-07-21 00:00:00"},
		{"month name", "march 3 10:00", "2024-03-03 10:00:00"},
		{"year and month name", "2026 dec 25", "2026-12-25 00:00:00"},
		{"full width digits", "０９：３１", "2024-01-01 09:31:00"},
		{"trailing comma", "friday, 09:31", "2024-01-05 09:31:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnchor(tt.text, ref)
			require.NoError(t, err)
			assert.Equal(t, at(tt.want), got)
		})
	}
}

func TestParseAnchor_BareDayMissingFromMonth(t *testing.T) {
	got, err := ParseAnchor("31 08:00", at("2024-04-10 12:00:00"))
	require.NoError(t, err)
	assert.Equal(t, at("2024-05-31 08:00:00"), got)
	assert.Equal(t, 31, got.Day())
}

func TestParseAnchor_KeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	got, err := ParseAnchor("10:00", time.Date(2024, 1, 1, 9, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, 10, got.Hour())
}

func TestParseAnchor_Errors(t *testing.T) {
	ref := at("2024-01-01 09:00:00")
	for _, text := range []string{
		"",
		"   ",
		"tomorrow",
		"25:00",
		"10:61",
		"13-01",
		"02-30",
		"00-10",
		"10:00 11:00",
		"1 2 3",
		"friday monday",
	} {
		t.Run(text, func(t *testing.T) {
			_, err := ParseAnchor(text, ref)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrAnchor), "got %v", err)
		})
	}
}
