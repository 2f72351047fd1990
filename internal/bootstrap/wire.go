package bootstrap

import (
	"fmt"
	"time"

	"github.com/moonyandfriends/badbot-discord-automod/internal/bot"
	"github.com/moonyandfriends/badbot-discord-automod/internal/classifier"
	"github.com/moonyandfriends/badbot-discord-automod/internal/enforcer"
	"github.com/moonyandfriends/badbot-discord-automod/internal/logging"
	"github.com/moonyandfriends/badbot-discord-automod/internal/metrics"
	"github.com/moonyandfriends/badbot-discord-automod/internal/notifier"
	"github.com/moonyandfriends/badbot-discord-automod/internal/pipeline"
	"github.com/moonyandfriends/badbot-discord-automod/internal/tracker"
	"github.com/moonyandfriends/badbot-discord-automod/internal/watchdog"
	"github.com/moonyandfriends/badbot-discord-automod/internal/web"
)

// Wire builds every component and connects them. The Discord session is
// created (and the token validated) here; the websocket opens in StartAll.
func Wire(b *Bootstrap) error {
	logging.Info("Wiring components...")
	cfg := b.Config

	metrics.InitGlobalRegistry()
	registry := metrics.GetRegistry()

	// Only the gateway is watchdog-monitored: it produces steady heartbeat
	// acks, so silence there is a true liveness failure. The pipeline is
	// event-driven and can legitimately idle for days.
	watchdogInst := watchdog.New(30 * time.Second)
	watchdogInst.RegisterComponent("gateway", 5*time.Minute)

	enforcementTracker := tracker.New()

	if err := bot.Initialize(cfg.Bot.Token, cfg.Pipeline.BanTimeout); err != nil {
		return err
	}
	session := bot.GetSession()

	// Ban permission per guild is resolved once at startup; the enforcer
	// reads the immutable result for the life of the process.
	communities := make([]enforcer.Community, 0, len(cfg.Servers))
	communityNames := make(map[string]string, len(cfg.Servers))
	for _, server := range cfg.Servers {
		permitted := session.CheckBanPermission(server.GuildID)
		if !permitted {
			logging.Warn("Bot lacks ban permission in %s (%s)", server.GuildName, server.GuildID)
		}
		communities = append(communities, enforcer.Community{
			ID:           server.GuildID,
			Name:         server.GuildName,
			BanPermitted: permitted,
		})
		communityNames[server.GuildID] = server.GuildName
	}

	gateway := classifier.NewGateway(cfg.Classifier)
	crossEnforcer := enforcer.New(session, communities, cfg.Pipeline.BanInterval)
	poster := notifier.NewWebhookPoster(cfg.Pipeline.WebhookTimeout)
	dispatcher := notifier.NewDispatcher(poster, cfg.Webhooks, cfg.Pipeline.WebhookInterval)
	resultLogger := bot.NewResultLogger(session, cfg)

	coordinator := pipeline.NewCoordinator(pipeline.Options{
		Classifier:     gateway,
		Tracker:        enforcementTracker,
		Enforcer:       crossEnforcer,
		Notifier:       dispatcher,
		ResultLogger:   resultLogger,
		Registry:       registry,
		CommunityNames: communityNames,
		RetryDelay:     cfg.Classifier.RetryDelay,
	})

	session.SetupEventHandlers(coordinator, cfg, watchdogInst)

	webServer := web.NewServer(cfg, enforcementTracker, registry, watchdogInst)

	b.Components = &Components{
		Session:     session,
		Tracker:     enforcementTracker,
		Coordinator: coordinator,
		Registry:    registry,
		Watchdog:    watchdogInst,
		WebServer:   webServer,
	}

	logging.Info("Component wiring complete")
	return nil
}

// StartAll opens the gateway connection and starts monitoring.
func StartAll(c *Components) error {
	logging.Info("Starting components...")

	c.Watchdog.Start()
	logging.Info("Watchdog started")

	if err := c.Session.Connect(); err != nil {
		return fmt.Errorf("gateway connection failed: %w", err)
	}
	logging.Info("Discord session connected")

	c.WebServer.Start()

	logging.Info("All components started")
	return nil
}
