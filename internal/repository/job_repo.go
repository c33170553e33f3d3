package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/granitehq/granite/internal/domain"
	"github.com/granitehq/granite/internal/jobstore"
	"gorm.io/gorm"
)

// JobRepository is the gorm-backed jobstore.Store. Jobs persisted here
// survive process restarts, unlike the in-memory store.
type JobRepository struct {
	db *gorm.DB
}

var _ jobstore.Store = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *JobRepository: repository instance bound to db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job record, assigning a uuid when the ID is empty.
func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(job).Error
}

// Get retrieves a job by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
// Returns:
//   - *domain.Job: job record if found.
//   - error: jobstore.ErrNotFound if no record exists, non-nil on other failures.
func (r *JobRepository) Get(ctx context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, jobstore.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// Update applies mutate to the job inside a transaction so concurrent
// readers only ever observe the record before or after the mutation.
func (r *JobRepository) Update(ctx context.Context, id string, mutate func(*domain.Job) error) (*domain.Job, error) {
	var updated domain.Job
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job domain.Job
		if err := tx.First(&job, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return jobstore.ErrNotFound
			}
			return err
		}
		if err := mutate(&job); err != nil {
			return err
		}
		if err := tx.Save(&job).Error; err != nil {
			return err
		}
		updated = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListByStatus retrieves jobs by status, oldest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - status: job status to filter by.
//   - limit: maximum number of records to return; <= 0 means no limit.
// Returns:
//   - []domain.Job: matching job records.
//   - error: non-nil if the query fails.
func (r *JobRepository) ListByStatus(ctx context.Context, status domain.JobStatus, limit int) ([]domain.Job, error) {
	var jobs []domain.Job
	query := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// Count returns the total number of job records.
func (r *JobRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Job{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteTerminalBefore removes completed and failed jobs created before cutoff.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - cutoff: jobs created before this instant are eligible.
// Returns:
//   - []string: ids of the removed jobs.
//   - error: non-nil if the delete fails.
func (r *JobRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	terminal := []domain.JobStatus{domain.JobStatusCompleted, domain.JobStatusFailed}

	var ids []string
	if err := r.db.WithContext(ctx).Model(&domain.Job{}).
		Where("status IN ? AND created_at < ?", terminal, cutoff).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := r.db.WithContext(ctx).
		Delete(&domain.Job{}, "id IN ?", ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
