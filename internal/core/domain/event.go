package domain

import "time"

// SyncOutcome describes how a sync resolved the user record.
type SyncOutcome string

const (
	SyncOutcomeCreated  SyncOutcome = "created"
	SyncOutcomeExisting SyncOutcome = "existing"
)

// SyncEvent is the audit record written after every successful sync.
type SyncEvent struct {
	ID         string
	UserID     int64
	Email      string
	SubjectID  string
	Provider   string
	Outcome    SyncOutcome
	OccurredAt time.Time
}
