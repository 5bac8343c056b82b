package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"yt2mp3/internal/models"
)

type fakeLister struct {
	responses map[string]string
	err       error
	calls     int
}

func (f *fakeLister) GetJSON(ctx context.Context, path string, out any) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	raw, ok := f.responses[path]
	if !ok {
		return errors.New("unexpected path " + path)
	}
	return json.Unmarshal([]byte(raw), out)
}

type fakeReconciler struct {
	last  []models.Download
	calls int
}

func (f *fakeReconciler) Reconcile(jobs []models.Download) {
	f.calls++
	f.last = jobs
}

type fakeMirror struct {
	last  []models.Download
	calls int
}

func (f *fakeMirror) ReplaceAll(jobs []models.Download) error {
	f.calls++
	f.last = jobs
	return nil
}

func TestCacheRefresh(t *testing.T) {
	listing := `[
		{"id":"1","status":"ready","filename":"a.mp3","owner_username":"ana","timestamp":"2026-08-01T10:00:00Z"},
		{"id":"2","status":"pending","filename":"b.mp3","owner_username":"ana","timestamp":"2026-08-02T10:00:00Z"}
	]`

	t.Run("Replaces Snapshot And Reconciles", func(t *testing.T) {
		lister := &fakeLister{responses: map[string]string{"/my_downloads": listing}}
		rec := &fakeReconciler{}
		mirror := &fakeMirror{}
		c := NewCache(lister, rec, mirror, nil)

		if err := c.Refresh(context.Background(), ScopeMine); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if jobs := c.Jobs(); len(jobs) != 2 || jobs[0].ID != "1" {
			t.Errorf("unexpected snapshot %+v", jobs)
		}
		if rec.calls != 1 || len(rec.last) != 2 {
			t.Errorf("expected one reconcile with 2 jobs, got calls=%d jobs=%d", rec.calls, len(rec.last))
		}
		if mirror.calls != 1 || len(mirror.last) != 2 {
			t.Errorf("expected one mirror write with 2 jobs, got calls=%d jobs=%d", mirror.calls, len(mirror.last))
		}
	})

	t.Run("Admin Scope Hits The All-Users Listing", func(t *testing.T) {
		lister := &fakeLister{responses: map[string]string{"/videos": listing}}
		c := NewCache(lister, nil, nil, nil)

		if err := c.Refresh(context.Background(), ScopeAll); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if c.Scope() != ScopeAll {
			t.Errorf("expected ScopeAll, got %v", c.Scope())
		}
	})

	t.Run("Failed Fetch Keeps Previous Snapshot", func(t *testing.T) {
		lister := &fakeLister{responses: map[string]string{"/my_downloads": listing}}
		rec := &fakeReconciler{}
		c := NewCache(lister, rec, nil, nil)

		if err := c.Refresh(context.Background(), ScopeMine); err != nil {
			t.Fatalf("seed refresh failed: %v", err)
		}

		lister.err = errors.New("gateway down")
		if err := c.Refresh(context.Background(), ScopeMine); err == nil {
			t.Fatal("expected error")
		}

		if jobs := c.Jobs(); len(jobs) != 2 {
			t.Errorf("expected snapshot preserved, got %+v", jobs)
		}
		if rec.calls != 1 {
			t.Errorf("expected no reconcile on failure, got %d calls", rec.calls)
		}
	})
}

func TestCacheSearch(t *testing.T) {
	t.Run("Setting The Term Never Hits The Network", func(t *testing.T) {
		lister := &fakeLister{}
		c := NewCache(lister, nil, nil, nil)

		c.SetSearchTerm("  Song  ")
		if lister.calls != 0 {
			t.Errorf("expected zero network calls, got %d", lister.calls)
		}
		if c.SearchTerm() != "Song" {
			t.Errorf("expected trimmed term, got %q", c.SearchTerm())
		}
	})

	t.Run("View Applies The Term To The Snapshot", func(t *testing.T) {
		lister := &fakeLister{responses: map[string]string{"/my_downloads": `[
			{"id":"1","status":"ready","filename":"keep.mp3","owner_username":"ana","timestamp":"2026-08-01T10:00:00Z"},
			{"id":"2","status":"ready","filename":"drop.mp3","owner_username":"ana","timestamp":"2026-08-02T10:00:00Z"}
		]`}}
		c := NewCache(lister, nil, nil, nil)
		if err := c.Refresh(context.Background(), ScopeMine); err != nil {
			t.Fatalf("refresh failed: %v", err)
		}

		c.SetSearchTerm("keep")
		entries := c.View()
		if len(entries) != 1 || entries[0].ID != "1" {
			t.Errorf("expected filtered view, got %+v", entries)
		}
	})
}

func TestCacheClear(t *testing.T) {
	lister := &fakeLister{responses: map[string]string{"/my_downloads": `[
		{"id":"1","status":"ready","filename":"a.mp3","owner_username":"ana","timestamp":"2026-08-01T10:00:00Z"}
	]`}}
	c := NewCache(lister, nil, nil, nil)
	if err := c.Refresh(context.Background(), ScopeMine); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	c.SetSearchTerm("a")

	c.Clear()

	if len(c.Jobs()) != 0 {
		t.Error("expected empty snapshot")
	}
	if c.SearchTerm() != "" {
		t.Error("expected cleared search term")
	}
}
