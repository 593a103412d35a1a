package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("unexpected error acquiring lock: %v", err)
	}

	lockPath := filepath.Join(dir, LockFileName)
	data, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("lock file not written: %v", err)
	}
	if !strings.HasPrefix(string(data), "pid=") {
		t.Errorf("lock file missing pid, got %q", data)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("unexpected error releasing lock: %v", err)
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("lock file should be removed on release")
	}
}

func TestAcquireConflict(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("unexpected error acquiring first lock: %v", err)
	}
	defer first.Release()

	_, err = AcquireLock(dir)
	if err == nil {
		t.Fatal("expected second acquire to fail")
	}
	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected *LockError, got %v", err)
	}
	if !strings.Contains(lockErr.HolderInfo, "running") {
		t.Errorf("expected holder info to mention our running pid, got %q", lockErr.HolderInfo)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	lock, err := AcquireLock(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("first release failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second release should be a no-op, got %v", err)
	}
}

func TestExtractPID(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"pid=1234\n", 1234},
		{"pid=", 0},
		{"no pid here", 0},
		{"junk pid=77 trailing", 77},
	}
	for _, tt := range tests {
		if got := extractPID(tt.content); got != tt.want {
			t.Errorf("extractPID(%q) = %d, want %d", tt.content, got, tt.want)
		}
	}
}
