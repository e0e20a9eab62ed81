package clock

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"", ModeLive},
		{"live", ModeLive},
		{"BackTrack", ModeBackTrack},
		{"livetrack", ModeLiveTrack},
		{"live_track", ModeLiveTrack},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseMode("paper")
	assert.True(t, errors.Is(err, ErrUnknownMode))
}

func TestLive(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	c := NewLive(loc, "")

	assert.Equal(t, ModeLive, c.Mode())
	assert.Equal(t, loc, c.Now().Location())
	assert.WithinDuration(t, time.Now(), c.Now(), time.Second)
}

func TestReplay_AdvanceTo(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewReplay(start)
	assert.Equal(t, ModeBackTrack, c.Mode())

	c.AdvanceTo(start.Add(time.Hour))
	assert.Equal(t, start.Add(time.Hour), c.Now())

	c.AdvanceTo(start)
	assert.Equal(t, start.Add(time.Hour), c.Now(), "replay clock must not go back")

	c.Set(start)
	assert.Equal(t, start, c.Now())
}
