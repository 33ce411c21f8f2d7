package lock_test

import (
	"errors"
	"testing"

	"github.com/0xRadioAc7iv/bitcaskdb/internal/lock"
)

func TestLockFile(t *testing.T) {
	t.Run("second lock on a held directory fails with ErrLocked", func(t *testing.T) {
		dir := t.TempDir()

		f, err := lock.LockDirectory(dir)
		if err != nil {
			t.Fatalf("could not take initial lock: %v", err)
		}

		_, err = lock.LockDirectory(dir)
		if !errors.Is(err, lock.ErrLocked) {
			t.Fatalf("expected ErrLocked, got %v", err)
		}

		if err := lock.UnlockDirectory(f); err != nil {
			t.Fatalf("unlock failed: %v", err)
		}
	})

	t.Run("lock can be taken again after release", func(t *testing.T) {
		dir := t.TempDir()

		f, err := lock.LockDirectory(dir)
		if err != nil {
			t.Fatalf("could not take initial lock: %v", err)
		}
		if err := lock.UnlockDirectory(f); err != nil {
			t.Fatalf("unlock failed: %v", err)
		}

		f, err = lock.LockDirectory(dir)
		if err != nil {
			t.Fatalf("lock was supposed to be free: %v", err)
		}
		lock.UnlockDirectory(f)
	})

	t.Run("missing directory is not reported as contention", func(t *testing.T) {
		_, err := lock.LockDirectory(t.TempDir() + "/does-not-exist")
		if err == nil || errors.Is(err, lock.ErrLocked) {
			t.Fatalf("expected a plain open error, got %v", err)
		}
	})
}
