package cache

import (
	"testing"

	"yt2mp3/internal/models"
)

func dl(id, filename, owner, status, ts string) models.Download {
	return models.Download{
		ID:            id,
		Status:        status,
		Filename:      filename,
		OwnerUsername: owner,
		Timestamp:     ts,
	}
}

func TestDeriveView(t *testing.T) {
	t.Run("Empty Term Preserves Order Without Grouping", func(t *testing.T) {
		jobs := []models.Download{
			dl("1", "song.mp3", "ana", models.StatusReady, "2026-08-01T10:00:00Z"),
			dl("2", "song.mp3", "bob", models.StatusReady, "2026-08-02T10:00:00Z"),
			dl("3", "other.mp3", "ana", models.StatusPending, "2026-08-03T10:00:00Z"),
		}

		entries := DeriveView(jobs, "")
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}
		for i, want := range []string{"1", "2", "3"} {
			if entries[i].ID != want {
				t.Errorf("entry %d: expected id %s, got %s", i, want, entries[i].ID)
			}
			if entries[i].Copies != 1 {
				t.Errorf("entry %d: expected 1 copy, got %d", i, entries[i].Copies)
			}
		}
	})

	t.Run("Term Collapses Same Title", func(t *testing.T) {
		jobs := []models.Download{
			dl("1", "Song.mp3", "ana", models.StatusPending, "2026-08-02T10:00:00Z"),
			dl("2", "  song.mp3 ", "bob", models.StatusReady, "2026-08-01T10:00:00Z"),
			dl("3", "another.mp3", "ana", models.StatusReady, "2026-08-03T10:00:00Z"),
		}

		entries := DeriveView(jobs, "song")
		if len(entries) != 1 {
			t.Fatalf("expected 1 bucket, got %d", len(entries))
		}

		e := entries[0]
		if e.ID != "2" {
			t.Errorf("expected ready copy as representative, got id %s", e.ID)
		}
		if e.Copies != 2 {
			t.Errorf("expected 2 copies, got %d", e.Copies)
		}
		if len(e.Owners) != 2 || e.Owners[0] != "ana" || e.Owners[1] != "bob" {
			t.Errorf("expected owners [ana bob], got %v", e.Owners)
		}
	})

	t.Run("Newest Wins Within Same Readiness", func(t *testing.T) {
		jobs := []models.Download{
			dl("old", "track.mp3", "ana", models.StatusReady, "2026-08-01T10:00:00Z"),
			dl("new", "track.mp3", "ana", models.StatusReady, "2026-08-05T10:00:00Z"),
		}

		entries := DeriveView(jobs, "track")
		if len(entries) != 1 || entries[0].ID != "new" {
			t.Errorf("expected newest ready copy, got %+v", entries)
		}
		if len(entries[0].Owners) != 1 {
			t.Errorf("expected a single distinct owner, got %v", entries[0].Owners)
		}
	})

	t.Run("Buckets Sorted Newest First", func(t *testing.T) {
		jobs := []models.Download{
			dl("1", "alpha.mp3", "ana", models.StatusReady, "2026-08-01T10:00:00Z"),
			dl("2", "beta.mp3", "ana", models.StatusReady, "2026-08-04T10:00:00Z"),
			dl("3", "gamma.mp3", "ana", models.StatusReady, "2026-08-02T10:00:00Z"),
		}

		entries := DeriveView(jobs, "ana")
		if len(entries) != 3 {
			t.Fatalf("expected 3 buckets, got %d", len(entries))
		}
		for i, want := range []string{"2", "3", "1"} {
			if entries[i].ID != want {
				t.Errorf("position %d: expected id %s, got %s", i, want, entries[i].ID)
			}
		}
	})

	t.Run("Term Matches Owner Too", func(t *testing.T) {
		jobs := []models.Download{
			dl("1", "track.mp3", "Bobby", models.StatusReady, "2026-08-01T10:00:00Z"),
			dl("2", "other.mp3", "ana", models.StatusReady, "2026-08-02T10:00:00Z"),
		}

		entries := DeriveView(jobs, "bob")
		if len(entries) != 1 || entries[0].ID != "1" {
			t.Errorf("expected owner match only, got %+v", entries)
		}
	})

	t.Run("Nameless Downloads Are Excluded From Grouping", func(t *testing.T) {
		jobs := []models.Download{
			dl("1", "", "ana", models.StatusPending, "2026-08-01T10:00:00Z"),
			dl("2", "song.mp3", "ana", models.StatusReady, "2026-08-02T10:00:00Z"),
		}

		entries := DeriveView(jobs, "ana")
		if len(entries) != 1 || entries[0].ID != "2" {
			t.Errorf("expected only named download, got %+v", entries)
		}
	})

	t.Run("No Match Yields Empty View", func(t *testing.T) {
		jobs := []models.Download{
			dl("1", "song.mp3", "ana", models.StatusReady, "2026-08-01T10:00:00Z"),
		}
		if entries := DeriveView(jobs, "zzz"); len(entries) != 0 {
			t.Errorf("expected empty view, got %+v", entries)
		}
	})
}
