package tools

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestLockMechanism(t *testing.T) {
	oldDataDir := dataDir
	dataDir = t.TempDir()
	defer func() { dataDir = oldDataDir }()

	lockPath := filepath.Join(dataDir, lockFile)

	readLockPID := func(t *testing.T) int {
		t.Helper()
		data, err := os.ReadFile(lockPath)
		if err != nil {
			t.Fatalf("Lock file not found: %v", err)
		}
		pid, err := strconv.Atoi(string(data))
		if err != nil {
			t.Fatalf("Invalid PID in lock file: %v", err)
		}
		return pid
	}

	t.Run("acquire and release lock", func(t *testing.T) {
		os.Remove(lockPath)

		// The search directory does not exist yet; acquireLock creates it
		if err := acquireLock(); err != nil {
			t.Fatalf("Failed to acquire lock: %v", err)
		}
		if pid := readLockPID(t); pid != os.Getpid() {
			t.Errorf("Lock has wrong PID: got %d, want %d", pid, os.Getpid())
		}

		if err := releaseLock(); err != nil {
			t.Fatalf("Failed to release lock: %v", err)
		}
		if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
			t.Error("Lock file should be removed after release")
		}
	})

	t.Run("clean stale lock", func(t *testing.T) {
		stalePID := 99999
		if err := os.WriteFile(lockPath, []byte(strconv.Itoa(stalePID)), 0644); err != nil {
			t.Fatalf("Failed to create stale lock: %v", err)
		}

		if err := acquireLock(); err != nil {
			t.Fatalf("Failed to acquire lock after stale lock: %v", err)
		}
		if pid := readLockPID(t); pid != os.Getpid() {
			t.Errorf("Expected our PID after cleaning stale lock, got %d", pid)
		}
		releaseLock()
	})

	t.Run("clean corrupted lock", func(t *testing.T) {
		if err := os.WriteFile(lockPath, []byte("not-a-pid"), 0644); err != nil {
			t.Fatalf("Failed to create corrupted lock: %v", err)
		}

		if err := acquireLock(); err != nil {
			t.Fatalf("Failed to acquire lock after corrupted lock: %v", err)
		}
		releaseLock()
	})

	t.Run("reacquire same lock", func(t *testing.T) {
		os.Remove(lockPath)

		if err := acquireLock(); err != nil {
			t.Fatalf("Failed to acquire lock: %v", err)
		}
		// Same PID, succeeds immediately
		if err := acquireLock(); err != nil {
			t.Fatalf("Failed to reacquire lock: %v", err)
		}
		releaseLock()
	})

	t.Run("foreign lock is not released", func(t *testing.T) {
		// PID 1 always exists on Unix
		if err := os.WriteFile(lockPath, []byte("1"), 0644); err != nil {
			t.Fatalf("Failed to create lock: %v", err)
		}
		defer os.Remove(lockPath)

		if err := releaseLock(); err != nil {
			t.Fatalf("releaseLock failed: %v", err)
		}
		if _, err := os.Stat(lockPath); err != nil {
			t.Error("Lock held by another process should survive releaseLock")
		}
	})

	t.Run("timeout on held lock", func(t *testing.T) {
		if testing.Short() {
			t.Skip("waits for lockTimeout")
		}

		if err := os.WriteFile(lockPath, []byte("1"), 0644); err != nil {
			t.Fatalf("Failed to create lock: %v", err)
		}
		defer os.Remove(lockPath)

		start := time.Now()
		err := acquireLock()
		elapsed := time.Since(start)

		if err == nil {
			t.Fatal("Expected error acquiring held lock, got nil")
		}
		if elapsed < lockTimeout || elapsed > lockTimeout+2*lockRetryWait {
			t.Errorf("Expected timeout of ~%v, got %v", lockTimeout, elapsed)
		}
	})

	t.Run("is process running", func(t *testing.T) {
		if !isProcessRunning(os.Getpid()) {
			t.Error("Our own process should be detected as running")
		}
		if isProcessRunning(99999) {
			t.Error("Non-existent process should not be detected as running")
		}
		if isProcessRunning(0) {
			t.Error("PID 0 should not be detected as running")
		}
	})
}
