package model

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// BatchRun records the outcome of one batch invocation.
// It is owned by the command that started the batch and passed explicitly.
type BatchRun struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
	Total      int            `json:"total"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Skipped    int            `json:"skipped"` // No eligibility passage found
	Failures   []BatchFailure `json:"failures,omitempty"`

	mu sync.Mutex
}

// BatchFailure describes one document that did not produce a rule
type BatchFailure struct {
	Source  string `json:"source"`
	Reason  string `json:"reason"`
	Skipped bool   `json:"skipped,omitempty"`
}

// NewBatchRun starts a run record for total documents
func NewBatchRun(total int) *BatchRun {
	return &BatchRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Total:     total,
	}
}

// RecordSuccess counts a document that produced a rule
func (r *BatchRun) RecordSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Succeeded++
}

// RecordFailure counts a document that errored
func (r *BatchRun) RecordFailure(source string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed++
	r.Failures = append(r.Failures, BatchFailure{Source: source, Reason: err.Error()})
}

// RecordSkip counts a document with no eligibility content
func (r *BatchRun) RecordSkip(source string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Skipped++
	r.Failures = append(r.Failures, BatchFailure{Source: source, Reason: err.Error(), Skipped: true})
}

// Finish stamps the end time
func (r *BatchRun) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FinishedAt = time.Now().UTC()
}

// Duration returns the wall time of a finished run
func (r *BatchRun) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
