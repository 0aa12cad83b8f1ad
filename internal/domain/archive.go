package domain

import "time"

// RunStatus is the terminal state of an archived run.
type RunStatus string

const (
	RunStatusDone    RunStatus = "done"
	RunStatusAborted RunStatus = "aborted"
)

// ArchivedRun is the persisted summary of a finished run.
type ArchivedRun struct {
	RunID        string
	Topic        string
	Status       RunStatus
	ArticleCount int
	WarningCount int
	Reason       string
	Markdown     string
	CreatedAt    time.Time
}
