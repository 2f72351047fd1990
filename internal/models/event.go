package models

import "time"

// IntakeEvent is one AutoMod block-message trigger entering the pipeline.
// Events are ephemeral; nothing retains them after processing finishes.
type IntakeEvent struct {
	OffenderID   string
	OffenderName string
	CommunityID  string
	Content      string
	Timestamp    time.Time
}

// Verdict is the classifier's answer for a single intake event.
type Verdict struct {
	IsScam    bool
	Rationale string
}
