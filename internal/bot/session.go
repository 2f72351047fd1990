package bot

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/moonyandfriends/badbot-discord-automod/internal/enforcer"
	"github.com/moonyandfriends/badbot-discord-automod/internal/logging"
)

// Session wraps the Discord connection. It is the pipeline's platform
// collaborator: it delivers AutoMod trigger events and carries out ban and
// permission-check calls.
type Session struct {
	discord *discordgo.Session
	token   string
	botID   string
	botName string
}

var globalSession *Session

// Initialize creates the Discord session. Connect must be called separately
// so event handlers can be registered first.
func Initialize(token string, banTimeout time.Duration) error {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentMessageContent |
		discordgo.IntentAutoModerationExecution

	// Bounded per-call timeout for REST calls keeps the pipeline live when
	// the API hangs.
	dg.Client.Timeout = banTimeout

	// Resolving the bot identity up front validates the token before any
	// other startup work and lets permission checks run pre-connect.
	user, err := dg.User("@me")
	if err != nil {
		return fmt.Errorf("failed to validate Discord token: %w", err)
	}

	globalSession = &Session{
		discord: dg,
		token:   token,
		botID:   user.ID,
		botName: user.Username,
	}

	return nil
}

// GetSession returns the global Discord session.
func GetSession() *Session {
	return globalSession
}

// GetDiscord returns the underlying discordgo session.
func (s *Session) GetDiscord() *discordgo.Session {
	return s.discord
}

// Connect opens the Discord websocket connection.
func (s *Session) Connect() error {
	if err := s.discord.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	logging.Info("Bot is online as %s", s.botName)
	return nil
}

// Close closes the Discord connection.
func (s *Session) Close() error {
	if s.discord != nil {
		return s.discord.Close()
	}
	return nil
}

// BanUser bans the offender in a guild. Discord bans by user ID, so the
// offender does not need to be a current member. Errors are mapped onto the
// enforcer's failure sentinels.
func (s *Session) BanUser(guildID, offenderID, reason string) error {
	err := s.discord.GuildBanCreateWithReason(guildID, offenderID, reason, 0)
	if err == nil {
		return nil
	}
	return mapDiscordError(err)
}

// IsBanned reports whether the offender already has a ban entry in a guild.
func (s *Session) IsBanned(guildID, offenderID string) (bool, error) {
	_, err := s.discord.GuildBan(guildID, offenderID)
	if err == nil {
		return true, nil
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		if restErr.Message.Code == discordgo.ErrCodeUnknownBan {
			return false, nil
		}
	}

	return false, mapDiscordError(err)
}

// CheckBanPermission resolves at startup whether the bot may ban members in
// a guild, from the guild owner and the bot member's role permissions.
func (s *Session) CheckBanPermission(guildID string) bool {
	guild, err := s.discord.Guild(guildID)
	if err != nil {
		logging.Warn("Cannot access guild %s for permission check: %v", guildID, err)
		return false
	}

	if guild.OwnerID == s.botID {
		return true
	}

	member, err := s.discord.GuildMember(guildID, s.botID)
	if err != nil {
		logging.Warn("Cannot fetch bot member in guild %s: %v", guildID, err)
		return false
	}

	var permissions int64
	for _, role := range guild.Roles {
		if role.ID == guildID {
			permissions |= role.Permissions
			continue
		}
		for _, memberRole := range member.Roles {
			if role.ID == memberRole {
				permissions |= role.Permissions
				break
			}
		}
	}

	if permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return permissions&discordgo.PermissionBanMembers != 0
}

// MemberDisplayName returns the offender's display name in a guild, falling
// back to a stable placeholder when the member is unavailable.
func (s *Session) MemberDisplayName(guildID, userID string) string {
	member, err := s.discord.State.Member(guildID, userID)
	if err != nil || member == nil {
		member, err = s.discord.GuildMember(guildID, userID)
	}
	if err == nil && member != nil {
		if member.Nick != "" {
			return member.Nick
		}
		if member.User != nil && member.User.Username != "" {
			return member.User.Username
		}
	}
	return fmt.Sprintf("User %s", userID)
}

func mapDiscordError(err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
			return fmt.Errorf("%w: %v", enforcer.ErrPermissionDenied, err)
		case discordgo.ErrCodeUnknownUser, discordgo.ErrCodeUnknownMember:
			return fmt.Errorf("%w: %v", enforcer.ErrUnknownUser, err)
		}
		return err
	}
	return fmt.Errorf("%w: %v", enforcer.ErrNetwork, err)
}
