package repositories

import (
	"database/sql"
	"testing"

	"yt2mp3/internal/models"
	"yt2mp3/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestSessionRepository(t *testing.T) {
	t.Run("Save And Load Round Trip", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		saved := models.Session{Token: "tok", Username: "ana", IsAdmin: true}
		if err := repo.SaveSession(saved); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}

		got, err := repo.LoadSession()
		if err != nil {
			t.Fatalf("failed to load session: %v", err)
		}
		if got != saved {
			t.Errorf("loaded %+v, want %+v", got, saved)
		}
	})

	t.Run("Save Replaces The Single Row", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		if err := repo.SaveSession(models.Session{Token: "first", Username: "ana"}); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}
		if err := repo.SaveSession(models.Session{Token: "second", Username: "bob"}); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}

		got, err := repo.LoadSession()
		if err != nil {
			t.Fatalf("failed to load session: %v", err)
		}
		if got.Token != "second" || got.Username != "bob" {
			t.Errorf("expected second session to win, got %+v", got)
		}
	})

	t.Run("Empty Table Loads Empty Session", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		got, err := repo.LoadSession()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Authenticated() {
			t.Errorf("expected empty session, got %+v", got)
		}
	})

	t.Run("Clear Is Idempotent", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		if err := repo.SaveSession(models.Session{Token: "tok", Username: "ana"}); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}
		if err := repo.ClearSession(); err != nil {
			t.Fatalf("failed to clear session: %v", err)
		}
		if err := repo.ClearSession(); err != nil {
			t.Fatalf("expected idempotent clear, got %v", err)
		}

		got, err := repo.LoadSession()
		if err != nil {
			t.Fatalf("failed to load session: %v", err)
		}
		if got.Authenticated() {
			t.Errorf("expected cleared session, got %+v", got)
		}
	})
}

func TestDownloadRepository(t *testing.T) {
	jobs := []models.Download{
		{ID: "b", Status: models.StatusReady, Filename: "b.mp3", OwnerUsername: "bob", Timestamp: "2026-08-02T10:00:00Z"},
		{ID: "a", Status: models.StatusPending, Filename: "a.mp3", OwnerUsername: "ana", Timestamp: "2026-08-01T10:00:00Z"},
	}

	t.Run("ReplaceAll And List Preserve Order", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))

		if err := repo.ReplaceAll(jobs); err != nil {
			t.Fatalf("failed to replace downloads: %v", err)
		}

		got, err := repo.List()
		if err != nil {
			t.Fatalf("failed to list downloads: %v", err)
		}
		if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
			t.Errorf("expected server order preserved, got %+v", got)
		}
		if got[0] != jobs[0] || got[1] != jobs[1] {
			t.Errorf("round trip mismatch: %+v vs %+v", got, jobs)
		}
	})

	t.Run("ReplaceAll Drops Previous Rows", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))

		if err := repo.ReplaceAll(jobs); err != nil {
			t.Fatalf("failed to seed downloads: %v", err)
		}
		if err := repo.ReplaceAll(jobs[:1]); err != nil {
			t.Fatalf("failed to replace downloads: %v", err)
		}

		got, err := repo.List()
		if err != nil {
			t.Fatalf("failed to list downloads: %v", err)
		}
		if len(got) != 1 || got[0].ID != "b" {
			t.Errorf("expected single remaining row, got %+v", got)
		}
	})

	t.Run("Idless Records Are Skipped", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))

		withBlank := append([]models.Download{{Filename: "ghost.mp3"}}, jobs...)
		if err := repo.ReplaceAll(withBlank); err != nil {
			t.Fatalf("failed to replace downloads: %v", err)
		}

		got, err := repo.List()
		if err != nil {
			t.Fatalf("failed to list downloads: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected blank-id record skipped, got %+v", got)
		}
	})

	t.Run("Empty Replace Clears The Mirror", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))

		if err := repo.ReplaceAll(jobs); err != nil {
			t.Fatalf("failed to seed downloads: %v", err)
		}
		if err := repo.ReplaceAll(nil); err != nil {
			t.Fatalf("failed to clear downloads: %v", err)
		}

		got, err := repo.List()
		if err != nil {
			t.Fatalf("failed to list downloads: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected empty mirror, got %+v", got)
		}
	})
}
