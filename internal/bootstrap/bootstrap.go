package bootstrap

import (
	"fmt"
	"os"

	"github.com/moonyandfriends/badbot-discord-automod/internal/bot"
	"github.com/moonyandfriends/badbot-discord-automod/internal/config"
	"github.com/moonyandfriends/badbot-discord-automod/internal/logging"
	"github.com/moonyandfriends/badbot-discord-automod/internal/metrics"
	"github.com/moonyandfriends/badbot-discord-automod/internal/pipeline"
	"github.com/moonyandfriends/badbot-discord-automod/internal/tracker"
	"github.com/moonyandfriends/badbot-discord-automod/internal/watchdog"
	"github.com/moonyandfriends/badbot-discord-automod/internal/web"
)

// Bootstrap owns the startup lifecycle: load config, wire components, start,
// shut down.
type Bootstrap struct {
	Config      *config.Config
	Components  *Components
	initialized bool
}

// Components holds every wired part of the running bot.
type Components struct {
	Session     *bot.Session
	Tracker     *tracker.Tracker
	Coordinator *pipeline.Coordinator
	Registry    *metrics.Registry
	Watchdog    *watchdog.Watchdog
	WebServer   *web.Server
}

func New() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration and wires every component. Configuration
// problems are fatal; the process must not start on a bad snapshot.
func (b *Bootstrap) Initialize() error {
	b.initializeLogging()

	if err := b.loadConfig(); err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	if err := Wire(b); err != nil {
		return fmt.Errorf("component wiring failed: %w", err)
	}

	b.initialized = true
	logging.Info("Bootstrap complete")
	return nil
}

func (b *Bootstrap) initializeLogging() {
	level := os.Getenv("badbot_log_level")
	if level == "" {
		level = "info"
	}
	logging.Init(level)
}

func (b *Bootstrap) loadConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Info("Loaded %d servers and %d webhooks from environment", len(cfg.Servers), len(cfg.Webhooks))
	b.Config = cfg
	return nil
}

// Start connects the gateway and brings up the monitoring surfaces.
func (b *Bootstrap) Start() error {
	if !b.initialized {
		return fmt.Errorf("bootstrap not initialized")
	}
	return StartAll(b.Components)
}

func (b *Bootstrap) Shutdown() error {
	return Shutdown(b.Components)
}
