package models

import (
	"encoding/json"
	"time"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IngestRun journals one crawl batch handed to the reconciler.
type IngestRun struct {
	ID            int64      `json:"id" db:"id"`
	Source        string     `json:"source" db:"source"`
	StartedAt     time.Time  `json:"started_at" db:"started_at"`
	FinishedAt    *time.Time `json:"finished_at" db:"finished_at"`
	Status        RunStatus  `json:"status" db:"status"`
	Observations  int        `json:"observations" db:"observations"`
	RecordsNew    int        `json:"records_new" db:"records_new"`
	PriceChanges  int        `json:"price_changes" db:"price_changes"`
	Unchanged     int        `json:"unchanged" db:"unchanged"`
	ErrorsCount   int        `json:"errors_count" db:"errors_count"`
	ErrorMessage  string     `json:"error_message" db:"error_message"`
}

type CommandType string

const (
	CmdRefreshAlerts CommandType = "refresh_alerts"
	CmdPruneHistory  CommandType = "prune_history"
)

// Command is a manual trigger queued by the monitoring surface and
// polled by the scheduler.
type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}
