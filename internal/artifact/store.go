// Package artifact persists the final rendered video for a job.
// One artifact per job, written exactly once, read many times.
package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/granitehq/granite/internal/storage"
)

// ErrNotFound is returned when no artifact has been saved for a job.
var ErrNotFound = errors.New("artifact not found")

// ErrAlreadySaved is returned on a second Save for the same job. Callers
// hitting this have a sequencing bug, it is not a normal path.
var ErrAlreadySaved = errors.New("artifact already saved for job")

const videoContentType = "video/mp4"

// Store keeps job artifacts in object storage under videos/<job-id>.mp4.
type Store struct {
	storage storage.ObjectStorage
}

// NewStore creates an artifact store over the given object storage.
func NewStore(objectStorage storage.ObjectStorage) *Store {
	return &Store{storage: objectStorage}
}

// Key returns the storage key for a job's artifact.
func (s *Store) Key(jobID string) string {
	return fmt.Sprintf("videos/%s.mp4", jobID)
}

// Save persists the artifact for a job and returns its storage key.
// Saving twice for the same job returns ErrAlreadySaved.
func (s *Store) Save(ctx context.Context, jobID string, data []byte) (string, error) {
	key := s.Key(jobID)

	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to check artifact existence: %w", err)
	}
	if exists {
		return "", ErrAlreadySaved
	}

	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), videoContentType); err != nil {
		return "", fmt.Errorf("failed to save artifact: %w", err)
	}
	return key, nil
}

// Load opens the artifact stream for a job and returns its size.
// A missing artifact yields ErrNotFound, distinct from transport errors.
func (s *Store) Load(ctx context.Context, jobID string) (io.ReadCloser, int64, error) {
	key := s.Key(jobID)

	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to check artifact existence: %w", err)
	}
	if !exists {
		return nil, 0, ErrNotFound
	}

	size, err := s.storage.Stat(ctx, key)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to stat artifact: %w", err)
	}
	reader, err := s.storage.Download(ctx, key)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load artifact: %w", err)
	}
	return reader, size, nil
}

// Delete removes the artifact for a job, ignoring absence. Used by the
// retention sweeper when it evicts terminal jobs.
func (s *Store) Delete(ctx context.Context, jobID string) error {
	return s.storage.Delete(ctx, s.Key(jobID))
}
