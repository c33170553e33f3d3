package jobstore

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/granitehq/granite/internal/domain"
)

const shardCount = 16

// MemoryStore is an in-process Store backed by a sharded map. Sharding
// keeps status polls for unrelated jobs from serializing behind a single
// mutex while the orchestrator writes.
type MemoryStore struct {
	shards [shardCount]memoryShard
}

type memoryShard struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// NewMemoryStore creates an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	for i := range s.shards {
		s.shards[i].jobs = make(map[string]*domain.Job)
	}
	return s
}

func (s *MemoryStore) shard(id string) *memoryShard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.shards[h.Sum32()%shardCount]
}

// Create persists a new job, assigning a uuid when the ID is empty.
func (s *MemoryStore) Create(ctx context.Context, job *domain.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	sh := s.shard(job.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.jobs[job.ID] = job.Clone()
	return nil
}

// Get returns a snapshot of the job or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	job, ok := sh.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job.Clone(), nil
}

// Update applies mutate under the shard lock and returns the new snapshot.
func (s *MemoryStore) Update(ctx context.Context, id string, mutate func(*domain.Job) error) (*domain.Job, error) {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	job, ok := sh.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}

	// Mutate a copy so a failed mutation leaves the record untouched.
	next := job.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now()
	sh.jobs[id] = next
	return next.Clone(), nil
}

// ListByStatus returns up to limit jobs in the given status, oldest first.
func (s *MemoryStore) ListByStatus(ctx context.Context, status domain.JobStatus, limit int) ([]domain.Job, error) {
	var out []domain.Job
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for _, job := range sh.jobs {
			if job.Status == status {
				out = append(out, *job.Clone())
			}
		}
		sh.mu.RUnlock()
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of jobs across all shards.
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	var n int64
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		n += int64(len(sh.jobs))
		sh.mu.RUnlock()
	}
	return n, nil
}

// DeleteTerminalBefore removes terminal jobs created before cutoff.
func (s *MemoryStore) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	var removed []string
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for id, job := range sh.jobs {
			if job.Status.IsTerminal() && job.CreatedAt.Before(cutoff) {
				delete(sh.jobs, id)
				removed = append(removed, id)
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}
