package jobstore

import (
	"context"
	"errors"
	"time"

	"github.com/granitehq/granite/internal/domain"
)

// ErrNotFound is returned when a job id is not present in the store.
var ErrNotFound = errors.New("job not found")

// Store is the registry of generation jobs. Implementations must be safe
// for one writer (the orchestrator) and many concurrent readers per job.
type Store interface {
	// Create persists a new job. An empty ID is assigned a fresh uuid.
	Create(ctx context.Context, job *domain.Job) error

	// Get returns a snapshot of the job or ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Job, error)

	// Update applies mutate to the job atomically with respect to
	// concurrent readers and returns the updated snapshot. The mutation
	// is discarded when mutate returns an error.
	Update(ctx context.Context, id string, mutate func(*domain.Job) error) (*domain.Job, error)

	// ListByStatus returns up to limit jobs in the given status,
	// oldest first. A limit <= 0 means no limit.
	ListByStatus(ctx context.Context, status domain.JobStatus, limit int) ([]domain.Job, error)

	// Count returns the number of jobs in the store.
	Count(ctx context.Context) (int64, error)

	// DeleteTerminalBefore removes completed and failed jobs created
	// before cutoff and returns the ids of the removed jobs. Queued and
	// running jobs are never removed.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}
