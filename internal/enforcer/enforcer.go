package enforcer

import (
	"context"
	"errors"
	"time"

	"github.com/moonyandfriends/badbot-discord-automod/internal/logging"
	"github.com/moonyandfriends/badbot-discord-automod/internal/models"
	"github.com/moonyandfriends/badbot-discord-automod/internal/pacing"
)

// Sentinel ban failures the platform session maps Discord errors onto. The
// outcome tag for anything else falls back to a generic reason.
var (
	ErrPermissionDenied = errors.New("permission_denied")
	ErrUnknownUser      = errors.New("unknown_user")
	ErrNetwork          = errors.New("network_error")
)

// Banner is the slice of the platform session the enforcer needs.
type Banner interface {
	IsBanned(guildID, offenderID string) (bool, error)
	BanUser(guildID, offenderID, reason string) error
}

// Community is one monitored guild with its startup-resolved ban permission.
type Community struct {
	ID           string
	Name         string
	BanPermitted bool
}

// Enforcer issues ban requests across every monitored community for a
// confirmed offender, in configured order, isolating per-community failures
// and pacing successive requests to respect the platform's rate limits.
type Enforcer struct {
	session     Banner
	communities []Community
	interval    time.Duration
}

func New(session Banner, communities []Community, interval time.Duration) *Enforcer {
	return &Enforcer{
		session:     session,
		communities: communities,
		interval:    interval,
	}
}

// Enforce bans the offender in every configured community. It always returns
// one outcome per community, in configured order; a failure in one community
// never aborts the rest. The pacing interval applies between successive ban
// attempts of this run only.
func (e *Enforcer) Enforce(ctx context.Context, offenderID, reason string) []models.Outcome {
	outcomes := make([]models.Outcome, 0, len(e.communities))
	pacer := pacing.New(e.interval)

	for _, community := range e.communities {
		outcome := models.Outcome{
			CommunityID:   community.ID,
			CommunityName: community.Name,
		}

		if !community.BanPermitted {
			outcome.Tag = models.OutcomeSkipped("permission_denied")
			logging.Warn("Skipping ban of %s in %s: no ban permission", offenderID, community.Name)
			outcomes = append(outcomes, outcome)
			continue
		}

		if err := pacer.Wait(ctx); err != nil {
			outcome.Tag = models.OutcomeFailed("canceled")
			outcomes = append(outcomes, outcome)
			continue
		}

		outcome.Tag = e.banOne(community, offenderID, reason)
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

func (e *Enforcer) banOne(community Community, offenderID, reason string) string {
	banned, err := e.session.IsBanned(community.ID, offenderID)
	if err != nil {
		// Best-effort check; fall through to the ban attempt.
		logging.Debug("Ban lookup failed for %s in %s: %v", offenderID, community.Name, err)
	} else if banned {
		logging.Info("User %s already banned in %s", offenderID, community.Name)
		return models.OutcomeAlreadyBanned
	}

	if err := e.session.BanUser(community.ID, offenderID, reason); err != nil {
		logging.Error("Ban failed for %s in %s: %v", offenderID, community.Name, err)
		return models.OutcomeFailed(failReason(err))
	}

	logging.Info("Banned user %s in %s", offenderID, community.Name)
	return models.OutcomeBanned
}

func failReason(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrUnknownUser):
		return "unknown_user"
	case errors.Is(err, ErrNetwork):
		return "network_error"
	default:
		return "ban_error"
	}
}
