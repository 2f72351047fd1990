package notifier

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/moonyandfriends/badbot-discord-automod/internal/config"
	"github.com/moonyandfriends/badbot-discord-automod/internal/logging"
	"github.com/moonyandfriends/badbot-discord-automod/internal/models"
	"github.com/moonyandfriends/badbot-discord-automod/internal/pacing"
)

const webhookUsername = "BadBot AutoMod"

// Delivery records one attempt against one notification target.
type Delivery struct {
	URL    string
	Scoped bool
	Err    error
}

// Report summarizes where a notice went. Dropped means no target existed
// for the originating community, which is a valid configuration, not an
// error.
type Report struct {
	Deliveries []Delivery
	Dropped    bool
}

// Delivered returns the number of successful deliveries.
func (r Report) Delivered() int {
	count := 0
	for _, d := range r.Deliveries {
		if d.Err == nil {
			count++
		}
	}
	return count
}

// Dispatcher routes enforcement notices to webhook targets. Targets scoped
// to the originating community's name (case-insensitive) claim the notice;
// otherwise it falls back to every general target.
type Dispatcher struct {
	poster   Poster
	targets  []config.WebhookConfig
	interval time.Duration
}

func NewDispatcher(poster Poster, targets []config.WebhookConfig, interval time.Duration) *Dispatcher {
	return &Dispatcher{
		poster:   poster,
		targets:  targets,
		interval: interval,
	}
}

type webhookPayload struct {
	Username string                    `json:"username"`
	Embeds   []*discordgo.MessageEmbed `json:"embeds"`
}

// Notify delivers the notice to every matching target. Deliveries are
// independent: one target failing never blocks the rest. Successive posts
// for the same notice are paced by the configured interval.
func (d *Dispatcher) Notify(ctx context.Context, notice *models.Notice) Report {
	targets := d.route(notice.CommunityName)
	if len(targets) == 0 {
		if len(d.targets) == 0 {
			logging.Info("No webhooks configured, skipping notification for user %s", notice.OffenderID)
		} else {
			logging.Warn("Notice for user %s undeliverable: no target matches server %q and no general targets exist",
				notice.OffenderID, notice.CommunityName)
		}
		return Report{Dropped: true}
	}

	payload, err := json.Marshal(webhookPayload{
		Username: webhookUsername,
		Embeds:   []*discordgo.MessageEmbed{BuildNoticeEmbed(notice)},
	})
	if err != nil {
		logging.Error("Failed to encode notice payload for user %s: %v", notice.OffenderID, err)
		return Report{Dropped: true}
	}

	report := Report{Deliveries: make([]Delivery, 0, len(targets))}
	pacer := pacing.New(d.interval)

	for _, target := range targets {
		delivery := Delivery{URL: target.URL, Scoped: target.Scope != ""}

		if err := pacer.Wait(ctx); err != nil {
			delivery.Err = err
			report.Deliveries = append(report.Deliveries, delivery)
			continue
		}

		if err := d.poster.Post(target.URL, payload); err != nil {
			logging.Error("Webhook delivery failed for %s: %v", target.URL, err)
			delivery.Err = err
		} else {
			logging.Info("Sent notification for user %s to %s", notice.OffenderID, target.URL)
		}
		report.Deliveries = append(report.Deliveries, delivery)
	}

	return report
}

// route selects the targets for a notice. Every scoped target matching the
// community name wins; with no scoped match the notice goes to every general
// target. When two communities share a display name they share scoped
// targets; scope matching is by name only.
func (d *Dispatcher) route(communityName string) []config.WebhookConfig {
	var scoped, general []config.WebhookConfig

	for _, target := range d.targets {
		switch {
		case target.Scope == "":
			general = append(general, target)
		case strings.EqualFold(target.Scope, communityName):
			scoped = append(scoped, target)
		}
	}

	if len(scoped) > 0 {
		return scoped
	}
	return general
}
