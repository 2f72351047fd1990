package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/moonyandfriends/badbot-discord-automod/internal/models"
)

const (
	colorRed = 0xFF0000

	footerText     = "BadBot AutoMod System"
	excerptLimit   = 1000
	rationaleLimit = 1024
)

// BuildNoticeEmbed renders an enforcement notice as the Discord embed posted
// to notification webhooks.
func BuildNoticeEmbed(notice *models.Notice) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🚨 Scammer Detected and Banned",
		Description: "A user has been banned across all monitored servers for posting scam content.",
		Color:       colorRed,
		Timestamp:   notice.Timestamp.UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "👤 User Information",
				Value:  fmt.Sprintf("**Username:** %s\n**User ID:** %s", notice.OffenderName, notice.OffenderID),
				Inline: false,
			},
			{
				Name:   "📝 Scam Message",
				Value:  fmt.Sprintf("```%s```", truncate(notice.Excerpt, excerptLimit)),
				Inline: false,
			},
			{
				Name:   "🏠 Source Server",
				Value:  fmt.Sprintf("**Name:** %s\n**ID:** %s", notice.CommunityName, notice.CommunityID),
				Inline: true,
			},
			{
				Name:   "🔨 Ban Results",
				Value:  formatOutcomes(notice),
				Inline: true,
			},
			{
				Name:   "🤖 Verdict",
				Value:  truncate(notice.Rationale, rationaleLimit),
				Inline: false,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: footerText},
	}
}

func formatOutcomes(notice *models.Notice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Banned from %d/%d servers\n", notice.SuccessCount(), len(notice.Outcomes))
	for _, o := range notice.Outcomes {
		fmt.Fprintf(&b, "• %s: `%s`\n", o.CommunityName, o.Tag)
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, max int) string {
	if s == "" {
		return "(none)"
	}
	if len(s) <= max {
		return s
	}
	return s[:max]
}
