package bot

import (
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/moonyandfriends/badbot-discord-automod/internal/config"
	"github.com/moonyandfriends/badbot-discord-automod/internal/logging"
	"github.com/moonyandfriends/badbot-discord-automod/internal/models"
	"github.com/moonyandfriends/badbot-discord-automod/internal/watchdog"
)

// Submitter is the pipeline entry point the session feeds intake events to.
type Submitter interface {
	Submit(event models.IntakeEvent)
}

// SetupEventHandlers registers the Discord event handlers. Must be called
// before Connect.
func (s *Session) SetupEventHandlers(pipeline Submitter, cfg *config.Config, wd *watchdog.Watchdog) {
	logging.Info("Setting up Discord event handlers...")

	s.discord.AddHandler(func(sess *discordgo.Session, r *discordgo.Ready) {
		logging.Info("Monitoring %d servers", len(cfg.Servers))

		for _, server := range cfg.Servers {
			if _, err := sess.Guild(server.GuildID); err != nil {
				logging.Warn("❌ Cannot access server %s (%s)", server.GuildName, server.GuildID)
			} else {
				logging.Info("✅ Connected to %s (%s)", server.GuildName, server.GuildID)
			}
		}

		if wd != nil {
			wd.Heartbeat("gateway")
		}
	})

	s.discord.AddHandler(func(sess *discordgo.Session, e *discordgo.AutoModerationActionExecution) {
		s.handleAutoModEvent(pipeline, cfg, e)
	})

	if wd != nil {
		go s.gatewayLivenessLoop(wd)
	}
}

// handleAutoModEvent filters AutoMod triggers down to block-message actions
// on monitored guilds and feeds the pipeline.
func (s *Session) handleAutoModEvent(pipeline Submitter, cfg *config.Config, e *discordgo.AutoModerationActionExecution) {
	logging.Debug("Received AutoMod event from guild %s", e.GuildID)

	if e.Action.Type != discordgo.AutoModerationRuleActionBlockMessage {
		logging.Debug("Ignoring non-block-message AutoMod action")
		return
	}

	server, ok := cfg.FindServer(e.GuildID)
	if !ok {
		logging.Debug("Guild %s not in monitoring list", e.GuildID)
		return
	}

	if e.UserID == "" {
		logging.Warn("No user ID in AutoMod payload from guild %s", e.GuildID)
		return
	}

	content := e.Content
	if content == "" {
		content = e.MatchedKeyword
	}
	if strings.TrimSpace(content) == "" {
		logging.Info("No content to analyze from guild %s, skipping", server.GuildName)
		return
	}

	offenderName := s.MemberDisplayName(e.GuildID, e.UserID)
	logging.Info("Analyzing content from user %s (%s) in %s", offenderName, e.UserID, server.GuildName)

	pipeline.Submit(models.IntakeEvent{
		OffenderID:   e.UserID,
		OffenderName: offenderName,
		CommunityID:  e.GuildID,
		Content:      content,
		Timestamp:    time.Now(),
	})
}

// gatewayLivenessLoop feeds the watchdog while the gateway connection keeps
// acknowledging heartbeats.
func (s *Session) gatewayLivenessLoop(wd *watchdog.Watchdog) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if time.Since(s.discord.LastHeartbeatAck) < 2*time.Minute {
			wd.Heartbeat("gateway")
		}
	}
}
