package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moonyandfriends/badbot-discord-automod/internal/classifier"
	"github.com/moonyandfriends/badbot-discord-automod/internal/metrics"
	"github.com/moonyandfriends/badbot-discord-automod/internal/models"
	"github.com/moonyandfriends/badbot-discord-automod/internal/notifier"
	"github.com/moonyandfriends/badbot-discord-automod/internal/tracker"
)

type fakeClassifier struct {
	mu      sync.Mutex
	calls   int
	replies []func() (models.Verdict, error)
	delay   time.Duration
}

func (f *fakeClassifier) Classify(text, hint string) (models.Verdict, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	if idx >= len(f.replies) {
		idx = len(f.replies) - 1
	}
	return f.replies[idx]()
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func scamReply(rationale string) func() (models.Verdict, error) {
	return func() (models.Verdict, error) {
		return models.Verdict{IsScam: true, Rationale: rationale}, nil
	}
}

func safeReply() func() (models.Verdict, error) {
	return func() (models.Verdict, error) {
		return models.Verdict{IsScam: false, Rationale: "benign"}, nil
	}
}

func transientReply() func() (models.Verdict, error) {
	return func() (models.Verdict, error) {
		return models.Verdict{}, &classifier.TransientError{Err: errors.New("rate limited")}
	}
}

type fakeEnforcer struct {
	calls    int32
	outcomes []models.Outcome
}

func (f *fakeEnforcer) Enforce(ctx context.Context, offenderID, reason string) []models.Outcome {
	atomic.AddInt32(&f.calls, 1)
	return f.outcomes
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []*models.Notice
}

func (f *fakeNotifier) Notify(ctx context.Context, notice *models.Notice) notifier.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice)
	return notifier.Report{Deliveries: []notifier.Delivery{{URL: "https://hooks.test/1"}}}
}

func (f *fakeNotifier) noticeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notices)
}

type harness struct {
	coordinator *Coordinator
	classifier  *fakeClassifier
	enforcer    *fakeEnforcer
	notifier    *fakeNotifier
	tracker     *tracker.Tracker
	registry    *metrics.Registry
}

func newHarness(cls *fakeClassifier, outcomes []models.Outcome) *harness {
	enf := &fakeEnforcer{outcomes: outcomes}
	not := &fakeNotifier{}
	tr := tracker.New()
	registry := metrics.NewRegistry()

	c := NewCoordinator(Options{
		Classifier:     cls,
		Tracker:        tr,
		Enforcer:       enf,
		Notifier:       not,
		Registry:       registry,
		CommunityNames: map[string]string{"100": "Server A", "200": "Server B"},
		RetryDelay:     10 * time.Millisecond,
	})

	return &harness{
		coordinator: c,
		classifier:  cls,
		enforcer:    enf,
		notifier:    not,
		tracker:     tr,
		registry:    registry,
	}
}

func intakeEvent() models.IntakeEvent {
	return models.IntakeEvent{
		OffenderID:   "U1",
		OffenderName: "scammer",
		CommunityID:  "100",
		Content:      "click here to claim your free NFT",
		Timestamp:    time.Now(),
	}
}

func TestScamFlowEndToEnd(t *testing.T) {
	outcomes := []models.Outcome{
		{CommunityID: "100", CommunityName: "Server A", Tag: models.OutcomeBanned},
		{CommunityID: "200", CommunityName: "Server B", Tag: models.OutcomeAlreadyBanned},
	}
	h := newHarness(&fakeClassifier{replies: []func() (models.Verdict, error){scamReply("invite spam")}}, outcomes)

	h.coordinator.process(context.Background(), intakeEvent())

	if got := atomic.LoadInt32(&h.enforcer.calls); got != 1 {
		t.Fatalf("enforce calls = %d, want 1", got)
	}
	if h.notifier.noticeCount() != 1 {
		t.Fatalf("notices = %d, want 1", h.notifier.noticeCount())
	}

	notice := h.notifier.notices[0]
	if notice.CommunityName != "Server A" {
		t.Fatalf("notice community = %s, want Server A", notice.CommunityName)
	}
	if notice.Rationale != "invite spam" {
		t.Fatalf("notice rationale = %s", notice.Rationale)
	}
	if len(notice.Outcomes) != 2 {
		t.Fatalf("notice outcomes = %d, want 2", len(notice.Outcomes))
	}

	rec, ok := h.tracker.Get("U1")
	if !ok || rec.State != tracker.StateCompleted {
		t.Fatalf("offender not finalized: %+v", rec)
	}

	// A second identical event must be discarded with no new side effects,
	// without spending another classification call.
	h.coordinator.process(context.Background(), intakeEvent())

	if got := atomic.LoadInt32(&h.enforcer.calls); got != 1 {
		t.Fatalf("duplicate caused a second enforcement run")
	}
	if h.notifier.noticeCount() != 1 {
		t.Fatalf("duplicate caused a second notification")
	}
	if h.classifier.callCount() != 1 {
		t.Fatalf("duplicate consumed a classification call")
	}
}

func TestNotScamDiscardedWithoutSideEffects(t *testing.T) {
	h := newHarness(&fakeClassifier{replies: []func() (models.Verdict, error){safeReply()}}, nil)

	h.coordinator.process(context.Background(), intakeEvent())

	if atomic.LoadInt32(&h.enforcer.calls) != 0 {
		t.Fatalf("not-scam verdict must not enforce")
	}
	if h.notifier.noticeCount() != 0 {
		t.Fatalf("not-scam verdict must not notify")
	}
	if h.tracker.IsTracked("U1") {
		t.Fatalf("not-scam verdict must not claim the offender")
	}
}

func TestTransientFailureRetriesOnceThenDegrades(t *testing.T) {
	cls := &fakeClassifier{replies: []func() (models.Verdict, error){transientReply()}}
	h := newHarness(cls, nil)

	h.coordinator.process(context.Background(), intakeEvent())

	if got := cls.callCount(); got != 2 {
		t.Fatalf("classifier calls = %d, want 2 (one retry)", got)
	}
	if atomic.LoadInt32(&h.enforcer.calls) != 0 {
		t.Fatalf("degraded classification must not enforce")
	}
	if h.tracker.IsTracked("U1") {
		t.Fatalf("degraded classification must not claim the offender")
	}
}

func TestTransientFailureThenSuccess(t *testing.T) {
	cls := &fakeClassifier{replies: []func() (models.Verdict, error){
		transientReply(),
		scamReply("second attempt verdict"),
	}}
	h := newHarness(cls, []models.Outcome{
		{CommunityID: "100", CommunityName: "Server A", Tag: models.OutcomeBanned},
	})

	h.coordinator.process(context.Background(), intakeEvent())

	if got := cls.callCount(); got != 2 {
		t.Fatalf("classifier calls = %d, want 2", got)
	}
	if atomic.LoadInt32(&h.enforcer.calls) != 1 {
		t.Fatalf("recovered classification must enforce")
	}
}

func TestTerminalClassifierErrorNotRetried(t *testing.T) {
	cls := &fakeClassifier{replies: []func() (models.Verdict, error){
		func() (models.Verdict, error) {
			return models.Verdict{}, errors.New("bad api key")
		},
	}}
	h := newHarness(cls, nil)

	h.coordinator.process(context.Background(), intakeEvent())

	if got := cls.callCount(); got != 1 {
		t.Fatalf("classifier calls = %d, want 1 (no retry for terminal errors)", got)
	}
	if atomic.LoadInt32(&h.enforcer.calls) != 0 {
		t.Fatalf("failed classification must not enforce")
	}
}

func TestConcurrentEventsEnforceAtMostOnce(t *testing.T) {
	cls := &fakeClassifier{
		replies: []func() (models.Verdict, error){scamReply("invite spam")},
		delay:   20 * time.Millisecond,
	}
	h := newHarness(cls, []models.Outcome{
		{CommunityID: "100", CommunityName: "Server A", Tag: models.OutcomeBanned},
	})

	// Near-simultaneous triggers from different communities for the same
	// offender; TryClaim must let exactly one through.
	for i := 0; i < 8; i++ {
		event := intakeEvent()
		if i%2 == 1 {
			event.CommunityID = "200"
		}
		h.coordinator.Submit(event)
	}

	h.coordinator.Drain(5 * time.Second)

	if got := atomic.LoadInt32(&h.enforcer.calls); got != 1 {
		t.Fatalf("enforce calls = %d, want exactly 1", got)
	}
	if h.notifier.noticeCount() != 1 {
		t.Fatalf("notices = %d, want exactly 1", h.notifier.noticeCount())
	}
}

func TestMetricsCountBranches(t *testing.T) {
	h := newHarness(&fakeClassifier{replies: []func() (models.Verdict, error){scamReply("r")}}, []models.Outcome{
		{CommunityID: "100", CommunityName: "Server A", Tag: models.OutcomeBanned},
		{CommunityID: "200", CommunityName: "Server B", Tag: models.OutcomeFailed("network_error")},
	})

	h.coordinator.process(context.Background(), intakeEvent())

	if got := h.registry.EventsReceived(); got != 1 {
		t.Fatalf("events_received = %d, want 1", got)
	}
	if got := h.registry.ScamsConfirmed(); got != 1 {
		t.Fatalf("scams_confirmed = %d, want 1", got)
	}
	if got := h.registry.BansExecuted(); got != 1 {
		t.Fatalf("bans_executed = %d, want 1", got)
	}
}
