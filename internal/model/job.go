package model

import "time"

// JobStatus tracks a queued matching job through its lifecycle.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

// MatchJob is one durable fire-and-forget matching request. Invoice intake
// enqueues a job; the background dispatcher claims and runs it, decoupled
// from the HTTP request that created the invoice.
type MatchJob struct {
	ID         string     `json:"id"`
	InvoiceID  string     `json:"invoice_id"`
	Status     JobStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
