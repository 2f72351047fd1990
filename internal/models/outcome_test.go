package models

import "testing"

func TestOutcomeTagHelpers(t *testing.T) {
	failed := Outcome{Tag: OutcomeFailed("network_error")}
	if failed.Tag != "failed:network_error" {
		t.Fatalf("tag = %s", failed.Tag)
	}
	if !failed.Failed() || failed.Succeeded() {
		t.Fatalf("failed outcome misclassified")
	}

	skipped := Outcome{Tag: OutcomeSkipped("permission_denied")}
	if skipped.Tag != "skipped:permission_denied" {
		t.Fatalf("tag = %s", skipped.Tag)
	}
	if skipped.Failed() || skipped.Succeeded() {
		t.Fatalf("skipped outcome misclassified")
	}

	if !(Outcome{Tag: OutcomeBanned}).Succeeded() {
		t.Fatalf("banned outcome not counted as success")
	}
	if !(Outcome{Tag: OutcomeAlreadyBanned}).Succeeded() {
		t.Fatalf("already_banned outcome not counted as success")
	}
}

func TestNoticeSuccessCount(t *testing.T) {
	notice := Notice{Outcomes: []Outcome{
		{Tag: OutcomeBanned},
		{Tag: OutcomeAlreadyBanned},
		{Tag: OutcomeFailed("ban_error")},
		{Tag: OutcomeSkipped("permission_denied")},
	}}

	if got := notice.SuccessCount(); got != 2 {
		t.Fatalf("success count = %d, want 2", got)
	}
}
