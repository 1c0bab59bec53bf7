package models

import "time"

// JobStatus is the lifecycle status of an embedding job.
type JobStatus string

const (
	// JobPending means the job has been created but no worker picked it up.
	JobPending JobStatus = "pending"
	// JobProcessing means a worker is embedding items.
	JobProcessing JobStatus = "processing"
	// JobCompleted means every selected item was embedded.
	JobCompleted JobStatus = "completed"
	// JobError means the job failed before any useful progress.
	JobError JobStatus = "error"
	// JobPartialSuccess means some items were embedded and some failed.
	JobPartialSuccess JobStatus = "partial_success"
)

// IsTerminal reports whether the status is final. Terminal states are
// immutable once set.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobError || s == JobPartialSuccess
}

// EmbeddingJob tracks one incremental embedding run for a tenant.
// ItemsProcessed is monotonically non-decreasing; the worker checkpoints
// it in batches rather than per item.
type EmbeddingJob struct {
	ID             string     `json:"id" db:"id"`
	TenantID       string     `json:"tenant_id" db:"tenant_id"`
	Status         JobStatus  `json:"status" db:"status"`
	StartedAt      *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	TotalItems     int        `json:"total_items" db:"total_items"`
	ItemsProcessed int        `json:"items_processed" db:"items_processed"`
	ErrorDetail    string     `json:"error_detail,omitempty" db:"error_detail"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}
