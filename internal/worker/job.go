package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"sheet2pdf/internal/render"
	"sheet2pdf/internal/store"
)

type JobStatus string

const (
	StatusPending    JobStatus = "PENDING"
	StatusProcessing JobStatus = "PROCESSING"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
)

// ConversionJob represents a single workbook to PDF conversion.
type ConversionJob struct {
	// ID is the unique UUID v4 for the job.
	ID string
	// InputKey is the storage key of the uploaded workbook.
	InputKey string
	// OutputKey is where the PDF is stored once the job completes.
	OutputKey string
	// Email is the recipient address for notifications. Empty means none.
	Email string
	// Timestamps for job lifecycle tracking.
	Submitted time.Time
	Started   time.Time
	Finished  time.Time
	Status    JobStatus
	Error     error
	// Result holds drawing statistics of a completed conversion.
	Result *render.Result

	// Context manages the lifecycle/cancellation of the job.
	Ctx    context.Context
	Cancel context.CancelFunc

	mu sync.Mutex
}

// NewConversionJob creates a pending job. An empty inputKey defaults to
// InputKeyFor(ID).
func NewConversionJob(inputKey, email string, timeout time.Duration) *ConversionJob {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	id := uuid.New().String()
	if inputKey == "" {
		inputKey = InputKeyFor(id)
	}
	return &ConversionJob{
		ID:        id,
		InputKey:  inputKey,
		Email:     email,
		Submitted: time.Now(),
		Status:    StatusPending,
		Ctx:       ctx,
		Cancel:    cancel,
	}
}

// InputKeyFor returns the storage key an upload for job id is written to.
func InputKeyFor(id string) string {
	return "uploads/" + id + ".xlsx"
}

func (j *ConversionJob) update(fn func(*ConversionJob)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(j)
}

// Snapshot returns a copy of the job's current state.
func (j *ConversionJob) Snapshot() store.Conversion {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.record()
}

func (j *ConversionJob) record() store.Conversion {
	c := store.Conversion{
		ID:        j.ID,
		InputKey:  j.InputKey,
		OutputKey: j.OutputKey,
		Email:     j.Email,
		Status:    string(j.Status),
		Submitted: j.Submitted,
		Started:   j.Started,
		Finished:  j.Finished,
	}
	if j.Error != nil {
		c.Error = j.Error.Error()
	}
	if j.Result != nil {
		c.Sheets = j.Result.Sheets
		c.Pages = j.Result.Pages
		c.Rows = j.Result.Rows
	}
	return c
}
