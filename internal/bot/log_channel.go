package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/moonyandfriends/badbot-discord-automod/internal/config"
	"github.com/moonyandfriends/badbot-discord-automod/internal/logging"
	"github.com/moonyandfriends/badbot-discord-automod/internal/models"
)

const (
	logColorRed   = 0xFF0000
	logColorGreen = 0x00FF00
)

// ResultLogger mirrors pipeline verdicts into the originating server's log
// channel, when one is configured.
type ResultLogger struct {
	session *Session
	cfg     *config.Config
}

func NewResultLogger(session *Session, cfg *config.Config) *ResultLogger {
	return &ResultLogger{session: session, cfg: cfg}
}

// LogScamResult posts the red enforcement summary embed.
func (rl *ResultLogger) LogScamResult(notice *models.Notice) {
	channelID := rl.logChannelFor(notice.CommunityID)
	if channelID == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🚨 Scammer Banned",
		Description: fmt.Sprintf("User <@%s> has been banned from all monitored servers.", notice.OffenderID),
		Color:       logColorRed,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Scam Message",
				Value:  fmt.Sprintf("```%s```", clip(notice.Excerpt, 1000)),
				Inline: false,
			},
			{
				Name:   "Ban Results",
				Value:  fmt.Sprintf("Banned from %d/%d servers", notice.SuccessCount(), len(notice.Outcomes)),
				Inline: true,
			},
		},
	}

	rl.send(channelID, embed)
}

// LogSafeResult posts the green all-clear embed for a flagged message the
// classifier judged safe.
func (rl *ResultLogger) LogSafeResult(event models.IntakeEvent, verdict models.Verdict) {
	channelID := rl.logChannelFor(event.CommunityID)
	if channelID == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "✅ Message Analyzed",
		Description: fmt.Sprintf("Message from <@%s> was flagged by AutoMod but determined to be safe.", event.OffenderID),
		Color:       logColorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Message Content",
				Value:  fmt.Sprintf("```%s```", clip(event.Content, 1000)),
				Inline: false,
			},
			{
				Name:   "Verdict",
				Value:  clip(verdict.Rationale, 1024),
				Inline: false,
			},
		},
	}

	rl.send(channelID, embed)
}

func (rl *ResultLogger) logChannelFor(guildID string) string {
	server, ok := rl.cfg.FindServer(guildID)
	if !ok {
		return ""
	}
	return server.LogChannelID
}

func (rl *ResultLogger) send(channelID string, embed *discordgo.MessageEmbed) {
	if _, err := rl.session.discord.ChannelMessageSendEmbed(channelID, embed); err != nil {
		logging.Warn("Failed to send log embed to channel %s: %v", channelID, err)
	}
}

func clip(s string, max int) string {
	if s == "" {
		return "(none)"
	}
	if len(s) <= max {
		return s
	}
	return s[:max]
}
