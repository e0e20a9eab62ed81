package builders

import (
	"time"

	"github.com/aatumaykin/tempo/internal/clock"
	"github.com/aatumaykin/tempo/internal/config"
	"github.com/aatumaykin/tempo/internal/logger"
	"github.com/cockroachdb/errors"
)

type ClockBuilder struct {
	config *config.Config
	logger *logger.Logger
}

func NewClockBuilder(cfg *config.Config, log *logger.Logger) *ClockBuilder {
	return &ClockBuilder{
		config: cfg,
		logger: log,
	}
}

// Build returns the clock for the configured mode and the replay horizon.
// Outside backtrack mode the horizon is zero.
func (b *ClockBuilder) Build() (clock.Clock, time.Time, error) {
	mode, err := b.config.Scheduler.RunMode()
	if err != nil {
		return nil, time.Time{}, err
	}
	loc, err := b.config.Scheduler.Location()
	if err != nil {
		return nil, time.Time{}, err
	}

	if mode != clock.ModeBackTrack {
		b.logger.Info("using wall clock",
			logger.Field{Key: "mode", Value: string(mode)},
			logger.Field{Key: "timezone", Value: loc.String()})
		return clock.NewLive(loc, mode), time.Time{}, nil
	}

	start, end, err := b.config.Scheduler.Window(loc)
	if err != nil {
		return nil, time.Time{}, err
	}
	if start.IsZero() {
		return nil, time.Time{}, errors.WithHint(errors.New("backtrack mode needs scheduler.start"),
			"set scheduler.start or pass --start to tempo replay")
	}

	b.logger.Info("using replay clock",
		logger.Field{Key: "start", Value: start},
		logger.Field{Key: "end", Value: end})
	return clock.NewReplay(start), end, nil
}
