package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/moonyandfriends/badbot-discord-automod/internal/classifier"
	"github.com/moonyandfriends/badbot-discord-automod/internal/logging"
	"github.com/moonyandfriends/badbot-discord-automod/internal/metrics"
	"github.com/moonyandfriends/badbot-discord-automod/internal/models"
	"github.com/moonyandfriends/badbot-discord-automod/internal/notifier"
	"github.com/moonyandfriends/badbot-discord-automod/internal/tracker"
)

// State of one in-flight intake event.
type State uint8

const (
	StateReceived State = iota
	StateClassifying
	StateDiscarded
	StateEnforcing
	StateNotifying
	StateDone
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateClassifying:
		return "classifying"
	case StateDiscarded:
		return "discarded"
	case StateEnforcing:
		return "enforcing"
	case StateNotifying:
		return "notifying"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Classifier produces a verdict for a flagged message.
type Classifier interface {
	Classify(text, communityHint string) (models.Verdict, error)
}

// Enforcer runs the cross-community ban sequence for a confirmed offender.
type Enforcer interface {
	Enforce(ctx context.Context, offenderID, reason string) []models.Outcome
}

// Notifier fans an enforcement notice out to the configured targets.
type Notifier interface {
	Notify(ctx context.Context, notice *models.Notice) notifier.Report
}

// ResultLogger mirrors pipeline results into the originating community's
// log channel. Optional; a nil logger disables it.
type ResultLogger interface {
	LogScamResult(notice *models.Notice)
	LogSafeResult(event models.IntakeEvent, verdict models.Verdict)
}

// Coordinator drives each intake event through
// received → classifying → (discarded | enforcing) → notifying → done.
// Every event is an independent goroutine; the tracker's claim table is the
// only synchronization between them.
type Coordinator struct {
	classifier Classifier
	tracker    *tracker.Tracker
	enforcer   Enforcer
	notifier   Notifier
	resultLog  ResultLogger
	registry   *metrics.Registry

	communityNames map[string]string
	retryDelay     time.Duration

	wg sync.WaitGroup
}

type Options struct {
	Classifier     Classifier
	Tracker        *tracker.Tracker
	Enforcer       Enforcer
	Notifier       Notifier
	ResultLogger   ResultLogger
	Registry       *metrics.Registry
	CommunityNames map[string]string
	RetryDelay     time.Duration
}

func NewCoordinator(opts Options) *Coordinator {
	registry := opts.Registry
	if registry == nil {
		registry = metrics.GetRegistry()
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 3 * time.Second
	}

	return &Coordinator{
		classifier:     opts.Classifier,
		tracker:        opts.Tracker,
		enforcer:       opts.Enforcer,
		notifier:       opts.Notifier,
		resultLog:      opts.ResultLogger,
		registry:       registry,
		communityNames: opts.CommunityNames,
		retryDelay:     retryDelay,
	}
}

// Submit hands an intake event to the pipeline and returns immediately.
func (c *Coordinator) Submit(event models.IntakeEvent) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.process(context.Background(), event)
	}()
}

// Drain waits for in-flight events to finish, up to the timeout. Best
// effort only; enforcement runs are never canceled mid-flight.
func (c *Coordinator) Drain(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		logging.Warn("Pipeline drain timed out after %v", timeout)
	}
}

func (c *Coordinator) process(ctx context.Context, event models.IntakeEvent) {
	state := StateReceived
	c.registry.IncEventsReceived()

	logging.Debug("Event for user %s from guild %s entered pipeline", event.OffenderID, event.CommunityID)

	// Duplicate offenders skip classification entirely; the outcome is moot.
	if c.tracker.IsTracked(event.OffenderID) {
		logging.Debug("User %s already processed, skipping", event.OffenderID)
		c.registry.IncDuplicateOffenders()
		c.discard(event, state)
		return
	}

	state = StateClassifying
	verdict, err := c.classifyWithRetry(event)
	if err != nil {
		logging.Error("Classification failed for user %s, treating as not scam: %v", event.OffenderID, err)
		c.registry.IncClassifierFailures()
		c.discard(event, state)
		return
	}

	if !verdict.IsScam {
		logging.Info("Message from user %s determined not to be a scam", event.OffenderID)
		if c.resultLog != nil {
			c.resultLog.LogSafeResult(event, verdict)
		}
		c.discard(event, state)
		return
	}

	if !c.tracker.TryClaim(event.OffenderID) {
		logging.Debug("User %s claimed by a concurrent event, skipping", event.OffenderID)
		c.registry.IncDuplicateOffenders()
		c.discard(event, state)
		return
	}

	state = StateEnforcing
	c.registry.IncScamsConfirmed()
	logging.Info("Scam confirmed for user %s: %s", event.OffenderID, verdict.Rationale)

	reason := banReason(event.Content)
	outcomes := c.enforcer.Enforce(ctx, event.OffenderID, reason)
	c.recordOutcomes(outcomes)

	state = StateNotifying
	notice := &models.Notice{
		OffenderID:    event.OffenderID,
		OffenderName:  event.OffenderName,
		CommunityID:   event.CommunityID,
		CommunityName: c.communityName(event.CommunityID),
		Excerpt:       event.Content,
		Rationale:     verdict.Rationale,
		Outcomes:      outcomes,
		Timestamp:     time.Now(),
	}

	report := c.notifier.Notify(ctx, notice)
	c.registry.AddNoticesSent(report.Delivered())
	c.registry.AddNoticeFailures(len(report.Deliveries) - report.Delivered())

	if c.resultLog != nil {
		c.resultLog.LogScamResult(notice)
	}

	c.tracker.Finalize(event.OffenderID)
	state = StateDone
	logging.Info("Pipeline %s for user %s: %d/%d banned, %d notifications delivered",
		state, event.OffenderID, notice.SuccessCount(), len(outcomes), report.Delivered())
}

// classifyWithRetry applies the transient-failure policy: at most one retry
// after a short fixed delay, then the failure propagates and the event is
// treated as not-scam. False negatives are preferred over pipeline stalls.
func (c *Coordinator) classifyWithRetry(event models.IntakeEvent) (models.Verdict, error) {
	var verdict models.Verdict

	operation := func() error {
		v, err := c.classifier.Classify(event.Content, c.communityName(event.CommunityID))
		if err != nil {
			var transient *classifier.TransientError
			if errors.As(err, &transient) {
				return err
			}
			return backoff.Permanent(err)
		}
		verdict = v
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.registry.IncClassifierRetries()
		logging.Warn("Transient classifier failure for user %s, retrying in %v: %v", event.OffenderID, wait, err)
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), 1)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return models.Verdict{}, err
	}

	return verdict, nil
}

func (c *Coordinator) discard(event models.IntakeEvent, from State) {
	c.registry.IncEventsDiscarded()
	logging.Debug("Event for user %s discarded from state %s", event.OffenderID, from)
}

func (c *Coordinator) recordOutcomes(outcomes []models.Outcome) {
	banned, failed := 0, 0
	for _, o := range outcomes {
		switch {
		case o.Tag == models.OutcomeBanned:
			banned++
		case o.Failed():
			failed++
		}
	}
	c.registry.AddBansExecuted(banned)
	c.registry.AddBanFailures(failed)
}

func (c *Coordinator) communityName(communityID string) string {
	if name, ok := c.communityNames[communityID]; ok {
		return name
	}
	return communityID
}

func banReason(content string) string {
	const limit = 100
	if len(content) > limit {
		content = content[:limit]
	}
	return fmt.Sprintf("Scam detected by AI classifier. Original message: %s...", content)
}
