package store

import (
	"testing"
	"time"

	"github.com/smartpantry/smartpantry/internal/database"
	"github.com/smartpantry/smartpantry/internal/model"
)

func setupBackupTestDB(t *testing.T) *BackupStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewBackupStore(db)
}

func TestBackupLifecycle(t *testing.T) {
	bs := setupBackupTestDB(t)

	b, err := bs.Create("backups/pantry-20260830.db")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Status != model.BackupStatusUploading {
		t.Errorf("status = %q, want uploading", b.Status)
	}

	if err := bs.MarkCompleted(b.ID, 4096); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	got, err := bs.GetByID(b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.BackupStatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.SizeBytes != 4096 {
		t.Errorf("size = %d, want 4096", got.SizeBytes)
	}
}

func TestBackupMarkFailed(t *testing.T) {
	bs := setupBackupTestDB(t)

	b, err := bs.Create("backups/pantry-x.db")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := bs.MarkFailed(b.ID, "upload timed out"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	got, err := bs.GetByID(b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.BackupStatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.ErrorMessage != "upload timed out" {
		t.Errorf("error = %q", got.ErrorMessage)
	}
}

func TestBackupListCompletedOlderThan(t *testing.T) {
	bs := setupBackupTestDB(t)

	b, err := bs.Create("backups/pantry-old.db")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := bs.MarkCompleted(b.ID, 100); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	// A cutoff in the future captures the fresh row, one in the past does not.
	future := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02 15:04:05")
	old, err := bs.ListCompletedOlderThan(future)
	if err != nil {
		t.Fatalf("list older: %v", err)
	}
	if len(old) != 1 {
		t.Fatalf("expected 1 backup, got %d", len(old))
	}

	past := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02 15:04:05")
	old, err = bs.ListCompletedOlderThan(past)
	if err != nil {
		t.Fatalf("list older: %v", err)
	}
	if len(old) != 0 {
		t.Fatalf("expected 0 backups, got %d", len(old))
	}
}
