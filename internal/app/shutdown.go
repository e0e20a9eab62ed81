package app

import (
	"context"
	"time"
)

const metricsShutdownTimeout = 5 * time.Second

// Shutdown performs graceful shutdown of all components.
// It stops the application in the following order:
//  1. Cancels the application context and waits for the jobs file watcher
//  2. Unloads the scheduler driver, which cancels every job
//  3. Stops the metrics server
//  4. Stops the dispatcher
//
// The method is thread-safe and does nothing when the application is not
// running.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return nil
	}

	a.cancel()

	if a.watchDone != nil {
		<-a.watchDone
		a.watchDone = nil
	}

	if a.driver != nil {
		if err := a.dispatcher.DeregisterEventSource(a.driver.Name()); err != nil {
			a.logger.Error("Failed to unload scheduler driver", err)
		}
	}

	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		if err := a.metricsServer.Stop(ctx); err != nil {
			a.logger.Error("Failed to stop metrics server", err)
		}
		cancel()
		a.metricsServer = nil
	}

	busErr := a.dispatcher.Stop()
	if busErr != nil {
		a.logger.Error("Failed to stop dispatcher", busErr)
	}

	a.scheduler = nil
	a.driver = nil
	a.started = false

	a.logger.Info("Application shutdown complete")

	return busErr
}
