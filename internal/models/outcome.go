package models

import (
	"fmt"
	"strings"
	"time"
)

// Outcome tags for a single community's ban attempt.
const (
	OutcomeBanned        = "banned"
	OutcomeAlreadyBanned = "already_banned"
	outcomeFailedPrefix  = "failed:"
	outcomeSkippedPrefix = "skipped:"
)

// OutcomeFailed builds a failed:<reason> tag.
func OutcomeFailed(reason string) string {
	return outcomeFailedPrefix + reason
}

// OutcomeSkipped builds a skipped:<reason> tag.
func OutcomeSkipped(reason string) string {
	return outcomeSkippedPrefix + reason
}

// Outcome is the result of one ban attempt against one community.
type Outcome struct {
	CommunityID   string
	CommunityName string
	Tag           string
}

// Succeeded reports whether the offender ended up banned in this community,
// either by this run or previously.
func (o Outcome) Succeeded() bool {
	return o.Tag == OutcomeBanned || o.Tag == OutcomeAlreadyBanned
}

// Failed reports whether this attempt recorded a failure tag.
func (o Outcome) Failed() bool {
	return strings.HasPrefix(o.Tag, outcomeFailedPrefix)
}

func (o Outcome) String() string {
	return fmt.Sprintf("%s=%s", o.CommunityName, o.Tag)
}

// Notice is the structured enforcement report delivered to notification
// targets after an enforcement run completes.
type Notice struct {
	OffenderID    string
	OffenderName  string
	CommunityID   string
	CommunityName string
	Excerpt       string
	Rationale     string
	Outcomes      []Outcome
	Timestamp     time.Time
}

// SuccessCount returns how many communities the offender is banned in.
func (n *Notice) SuccessCount() int {
	count := 0
	for _, o := range n.Outcomes {
		if o.Succeeded() {
			count++
		}
	}
	return count
}
