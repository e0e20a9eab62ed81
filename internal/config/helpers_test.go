package config

import (
	"context"

	"github.com/aatumaykin/tempo/internal/logger"
	"github.com/aatumaykin/tempo/internal/scheduler"
)

func testLogger() *logger.Logger {
	return logger.Nop()
}

func noopCallback(context.Context, scheduler.FireEvent) error {
	return nil
}
