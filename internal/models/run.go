package models

import (
	"time"
)

// TriggerSource says what started a fleet run.
type TriggerSource string

const (
	TriggerCalendar TriggerSource = "calendar"
	TriggerManual   TriggerSource = "manual"
	TriggerCLI      TriggerSource = "cli"
)

// RunFailure is one user's failed job.
type RunFailure struct {
	UserID int64  `bson:"user_id" json:"user_id"`
	Error  string `bson:"error" json:"error"`
}

// RunSummary is the operator-facing report of one fleet aggregation run.
type RunSummary struct {
	RunID      string        `bson:"run_id" json:"run_id"`
	Trigger    TriggerSource `bson:"trigger" json:"trigger"`
	Reference  time.Time     `bson:"reference" json:"reference"`
	WeekOf     time.Time     `bson:"week_of" json:"week_of"`
	StartedAt  time.Time     `bson:"started_at" json:"started_at"`
	FinishedAt time.Time     `bson:"finished_at" json:"finished_at"`

	Users            int `bson:"users" json:"users"`
	Created          int `bson:"created" json:"created"`
	SkippedNoPosts   int `bson:"skipped_no_posts" json:"skipped_no_posts"`
	SkippedNoOutput  int `bson:"skipped_no_output" json:"skipped_no_output"`
	SkippedDuplicate int `bson:"skipped_duplicate" json:"skipped_duplicate"`
	Failed           int `bson:"failed" json:"failed"`

	Failures       []RunFailure `bson:"failures" json:"failures"`
	DirectoryError string       `bson:"directory_error,omitempty" json:"directory_error,omitempty"`
	Cancelled      bool         `bson:"cancelled" json:"cancelled"`
}

// Duration is how long the run took.
func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
