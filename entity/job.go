package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is an end state of the job lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one tracked stitching request. The repository stores jobs as
// immutable snapshots: every mutation goes through JobRepository.Update,
// which clones the current record, applies the change and swaps the whole
// record under the registry lock. Exactly one worker mutates a job after
// creation; everything else only reads.
type Job struct {
	ID           uuid.UUID     `json:"id"`
	Mode         StitchMode    `json:"mode"`
	Options      StitchOptions `json:"options"`
	Status       JobStatus     `json:"status"`
	Progress     int           `json:"progress"`
	Inputs       []string      `json:"inputs"`
	CreatedAt    time.Time     `json:"created_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	OutputFile   string        `json:"output_file,omitempty"`
}

func NewJob(id uuid.UUID, inputs []string, mode StitchMode, opts StitchOptions) *Job {
	return &Job{
		ID:        id,
		Mode:      mode,
		Options:   opts,
		Status:    JobStatusPending,
		Progress:  0,
		Inputs:    inputs,
		CreatedAt: time.Now(),
	}
}

// Clone returns a deep copy so that readers never share mutable state with
// the owning worker.
func (j *Job) Clone() *Job {
	clone := *j
	clone.Inputs = make([]string, len(j.Inputs))
	copy(clone.Inputs, j.Inputs)
	if j.CompletedAt != nil {
		completedAt := *j.CompletedAt
		clone.CompletedAt = &completedAt
	}
	return &clone
}
