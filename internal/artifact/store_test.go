package artifact

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/granitehq/granite/internal/storage"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	return NewStore(local)
}

func TestStoreSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	data := []byte("pretend this is an mp4")

	key, err := s.Save(ctx, "job-1", data)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if key != "videos/job-1.mp4" {
		t.Errorf("Save returned key %q", key)
	}

	reader, size, err := s.Load(ctx, "job-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer reader.Close()
	if size != int64(len(data)) {
		t.Errorf("Load size = %d, want %d", size, len(data))
	}
	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("reading artifact failed: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Load returned %q, want %q", got, data)
	}
}

func TestStoreSaveTwice(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	if _, err := s.Save(ctx, "job-1", []byte("first")); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if _, err := s.Save(ctx, "job-1", []byte("second")); !errors.Is(err, ErrAlreadySaved) {
		t.Fatalf("second Save returned %v, want ErrAlreadySaved", err)
	}

	// The original artifact must be untouched.
	reader, _, err := s.Load(ctx, "job-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer reader.Close()
	got, _ := io.ReadAll(reader)
	if string(got) != "first" {
		t.Errorf("second Save overwrote the artifact: %q", got)
	}
}

func TestStoreLoadNotFound(t *testing.T) {
	s := testStore(t)
	_, _, err := s.Load(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load returned %v, want ErrNotFound", err)
	}
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	s.Save(ctx, "job-1", []byte("data"))
	if err := s.Delete(ctx, "job-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, _, err := s.Load(ctx, "job-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after Delete returned %v, want ErrNotFound", err)
	}

	// Deleting an absent artifact is not an error.
	if err := s.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Delete of missing artifact returned %v", err)
	}
}
