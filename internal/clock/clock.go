// Package clock provides the time sources the scheduler runs against:
// the wall clock for live operation and an advanceable logical clock for
// historical replay.
package clock

import (
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// Mode is the temporal mode of an application.
type Mode string

const (
	ModeLive      Mode = "live"
	ModeBackTrack Mode = "backtrack"
	ModeLiveTrack Mode = "livetrack"
)

// ErrUnknownMode is returned by ParseMode for unsupported values.
var ErrUnknownMode = errors.New("unknown run mode")

// ParseMode parses a run mode name. Empty input means live.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLive:
		return ModeLive, nil
	case ModeBackTrack:
		return ModeBackTrack, nil
	case ModeLiveTrack, "live_track":
		return ModeLiveTrack, nil
	}
	return "", errors.WithHint(errors.Wrapf(ErrUnknownMode, "%q", s),
		"expected one of: live, livetrack, backtrack")
}

// Clock supplies the current instant and the active mode.
type Clock interface {
	Now() time.Time
	Mode() Mode
}

// Advancer is implemented by clocks that a replay driver may move forward.
type Advancer interface {
	AdvanceTo(t time.Time)
}

// Live reads the wall clock in a fixed location.
type Live struct {
	loc  *time.Location
	mode Mode
}

// NewLive returns a wall clock. A nil location means time.Local.
func NewLive(loc *time.Location, mode Mode) *Live {
	if loc == nil {
		loc = time.Local
	}
	if mode == "" {
		mode = ModeLive
	}
	return &Live{loc: loc, mode: mode}
}

func (c *Live) Now() time.Time { return time.Now().In(c.loc) }

func (c *Live) Mode() Mode { return c.mode }

// Location returns the clock's location.
func (c *Live) Location() *time.Location { return c.loc }

// Replay is a logical clock that only moves when told to.
type Replay struct {
	mu  sync.RWMutex
	now time.Time
}

// NewReplay returns a replay clock positioned at start.
func NewReplay(start time.Time) *Replay {
	return &Replay{now: start}
}

func (c *Replay) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *Replay) Mode() Mode { return ModeBackTrack }

// AdvanceTo moves the clock to t. Moving backwards is ignored so that
// readers never observe time going back.
func (c *Replay) AdvanceTo(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.now) {
		c.now = t
	}
}

// Set positions the clock at t unconditionally.
func (c *Replay) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
