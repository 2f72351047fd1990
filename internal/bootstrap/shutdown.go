package bootstrap

import (
	"time"

	"github.com/moonyandfriends/badbot-discord-automod/internal/logging"
)

const drainTimeout = 15 * time.Second

// Shutdown closes the gateway first so no new intake arrives, then drains
// in-flight pipeline runs best effort. Enforcement runs are never canceled
// mid-flight.
func Shutdown(c *Components) error {
	logging.Info("Starting graceful shutdown...")

	logging.Info("Closing Discord session...")
	if err := c.Session.Close(); err != nil {
		logging.Warn("Discord session close failed: %v", err)
	}

	logging.Info("Draining in-flight pipeline runs...")
	c.Coordinator.Drain(drainTimeout)

	logging.Info("Stopping watchdog...")
	c.Watchdog.Stop()

	logging.Info("Stopping health endpoint...")
	if err := c.WebServer.Stop(); err != nil {
		logging.Warn("Health endpoint stop failed: %v", err)
	}

	logging.Info("Graceful shutdown complete")
	return nil
}
