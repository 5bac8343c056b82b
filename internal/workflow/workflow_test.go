package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"yt2mp3/internal/api"
	"yt2mp3/internal/cache"
	"yt2mp3/internal/poller"
	"yt2mp3/internal/session"
	"yt2mp3/internal/shared"
)

type fakeGateway struct {
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func (f *fakeGateway) PostJSON(ctx context.Context, path string, body, out any) error {
	return f.serve(path, out)
}

func (f *fakeGateway) GetJSON(ctx context.Context, path string, out any) error {
	return f.serve(path, out)
}

func (f *fakeGateway) Delete(ctx context.Context, path string) (*api.Response, error) {
	f.calls = append(f.calls, path)
	if err, ok := f.errs[path]; ok {
		return nil, err
	}
	return &api.Response{StatusCode: http.StatusOK}, nil
}

func (f *fakeGateway) FileURL(id string) string {
	return "http://api.local/download/" + id + "?token=tok"
}

func (f *fakeGateway) serve(path string, out any) error {
	f.calls = append(f.calls, path)
	if err, ok := f.errs[path]; ok {
		return err
	}
	raw, ok := f.responses[path]
	if !ok {
		return fmt.Errorf("%w: not found", shared.ErrRequestFailed)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}

type fakeRegistrar struct {
	started   []string
	cancelled []string
}

func (f *fakeRegistrar) Start(jobID string)  { f.started = append(f.started, jobID) }
func (f *fakeRegistrar) Cancel(jobID string) { f.cancelled = append(f.cancelled, jobID) }

type fakeRefresher struct {
	refreshes int
	err       error
}

func (f *fakeRefresher) Refresh(ctx context.Context, scope cache.Scope) error {
	f.refreshes++
	return f.err
}

func (f *fakeRefresher) Scope() cache.Scope { return cache.ScopeMine }

func TestControllerSubmit(t *testing.T) {
	t.Run("Blank URL Never Hits The Network", func(t *testing.T) {
		gw := &fakeGateway{}
		c := NewController(gw, &fakeRegistrar{}, &fakeRefresher{}, nil)

		_, err := c.Submit(context.Background(), "   ")
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
		if len(gw.calls) != 0 {
			t.Errorf("expected zero network calls, got %v", gw.calls)
		}
	})

	t.Run("Accepted Job Becomes Active And Polled", func(t *testing.T) {
		gw := &fakeGateway{responses: map[string]string{
			"/download": `{"file_id":"f1","filename":"song.mp3"}`,
		}}
		reg := &fakeRegistrar{}
		ref := &fakeRefresher{}
		c := NewController(gw, reg, ref, nil)

		job, err := c.Submit(context.Background(), "https://youtu.be/x")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if job.ID != "f1" || job.Filename != "song.mp3" {
			t.Errorf("unexpected job %+v", job)
		}
		if c.State() != StatePolling {
			t.Errorf("expected polling state, got %v", c.State())
		}
		if len(reg.started) != 1 || reg.started[0] != "f1" {
			t.Errorf("expected poller for f1, got %v", reg.started)
		}
		if ref.refreshes != 1 {
			t.Errorf("expected one refresh, got %d", ref.refreshes)
		}
	})

	t.Run("Rejected Submission Returns To Idle", func(t *testing.T) {
		gw := &fakeGateway{errs: map[string]error{
			"/download": fmt.Errorf("%w: Invalid YouTube URL", shared.ErrRequestFailed),
		}}
		c := NewController(gw, &fakeRegistrar{}, &fakeRefresher{}, nil)

		_, err := c.Submit(context.Background(), "https://example.com/nope")
		if !errors.Is(err, shared.ErrRequestFailed) {
			t.Errorf("expected ErrRequestFailed, got %v", err)
		}
		if c.State() != StateIdle {
			t.Errorf("expected idle state, got %v", c.State())
		}
		if _, ok := c.Active(); ok {
			t.Error("expected no active job")
		}
	})
}

func TestControllerCheckStatusNow(t *testing.T) {
	submit := func(t *testing.T, c *Controller) {
		t.Helper()
		if _, err := c.Submit(context.Background(), "https://youtu.be/x"); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	t.Run("No Active Job Still Refreshes", func(t *testing.T) {
		ref := &fakeRefresher{}
		c := NewController(&fakeGateway{}, &fakeRegistrar{}, ref, nil)

		_, err := c.CheckStatusNow(context.Background())
		if !errors.Is(err, shared.ErrNoActiveJob) {
			t.Errorf("expected ErrNoActiveJob, got %v", err)
		}
		if ref.refreshes != 1 {
			t.Errorf("expected one refresh, got %d", ref.refreshes)
		}
	})

	t.Run("Ready Job Advances The State", func(t *testing.T) {
		gw := &fakeGateway{responses: map[string]string{
			"/download":  `{"file_id":"f1","filename":"song.mp3"}`,
			"/status/f1": `{"ready":true}`,
		}}
		ref := &fakeRefresher{}
		c := NewController(gw, &fakeRegistrar{}, ref, nil)
		submit(t, c)

		ready, err := c.CheckStatusNow(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !ready {
			t.Error("expected ready")
		}
		if c.State() != StateReady {
			t.Errorf("expected ready state, got %v", c.State())
		}
		if ref.refreshes != 2 {
			t.Errorf("expected refresh after the check, got %d", ref.refreshes)
		}
	})

	t.Run("Pending Job Keeps Polling", func(t *testing.T) {
		gw := &fakeGateway{responses: map[string]string{
			"/download":  `{"file_id":"f1","filename":"song.mp3"}`,
			"/status/f1": `{"ready":false}`,
		}}
		c := NewController(gw, &fakeRegistrar{}, &fakeRefresher{}, nil)
		submit(t, c)

		ready, err := c.CheckStatusNow(context.Background())
		if err != nil || ready {
			t.Errorf("expected pending, got ready=%v err=%v", ready, err)
		}
		if c.State() != StatePolling {
			t.Errorf("expected polling state, got %v", c.State())
		}
	})
}

func TestControllerFetchActiveFile(t *testing.T) {
	t.Run("No Active Job", func(t *testing.T) {
		c := NewController(&fakeGateway{}, &fakeRegistrar{}, &fakeRefresher{}, nil)
		if _, _, err := c.FetchActiveFile(); !errors.Is(err, shared.ErrNoActiveJob) {
			t.Errorf("expected ErrNoActiveJob, got %v", err)
		}
	})

	t.Run("Returns URL And Sanitized Name", func(t *testing.T) {
		gw := &fakeGateway{responses: map[string]string{
			"/download": `{"file_id":"f1","filename":"a/b:c.mp3"}`,
		}}
		c := NewController(gw, &fakeRegistrar{}, &fakeRefresher{}, nil)
		if _, err := c.Submit(context.Background(), "https://youtu.be/x"); err != nil {
			t.Fatalf("submit failed: %v", err)
		}

		u, name, err := c.FetchActiveFile()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(u, "/download/f1") {
			t.Errorf("unexpected url %q", u)
		}
		if name != "b_c.mp3" {
			t.Errorf("expected sanitized name, got %q", name)
		}
	})
}

func TestControllerDeleteJob(t *testing.T) {
	newActive := func(t *testing.T) (*Controller, *fakeRegistrar, *fakeRefresher) {
		t.Helper()
		gw := &fakeGateway{responses: map[string]string{
			"/download": `{"file_id":"f1","filename":"song.mp3"}`,
		}}
		reg := &fakeRegistrar{}
		ref := &fakeRefresher{}
		c := NewController(gw, reg, ref, nil)
		if _, err := c.Submit(context.Background(), "https://youtu.be/x"); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		return c, reg, ref
	}

	t.Run("Deleting The Active Job Clears It", func(t *testing.T) {
		c, reg, ref := newActive(t)

		if err := c.DeleteJob(context.Background(), "f1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, ok := c.Active(); ok {
			t.Error("expected active job cleared")
		}
		if c.State() != StateIdle {
			t.Errorf("expected idle state, got %v", c.State())
		}
		if len(reg.cancelled) != 1 || reg.cancelled[0] != "f1" {
			t.Errorf("expected poller cancelled, got %v", reg.cancelled)
		}
		if ref.refreshes != 2 {
			t.Errorf("expected refresh after delete, got %d", ref.refreshes)
		}
	})

	t.Run("Deleting Another Job Keeps The Active One", func(t *testing.T) {
		c, reg, _ := newActive(t)

		if err := c.DeleteJob(context.Background(), "other"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if job, ok := c.Active(); !ok || job.ID != "f1" {
			t.Errorf("expected active job preserved, got %+v ok=%v", job, ok)
		}
		if len(reg.cancelled) != 0 {
			t.Errorf("expected no cancellations, got %v", reg.cancelled)
		}
	})

	t.Run("Server Rejection Leaves State Alone", func(t *testing.T) {
		c, _, ref := newActive(t)
		gw := c.gateway.(*fakeGateway)
		gw.errs = map[string]error{
			"/delete/f1": fmt.Errorf("%w: Not yours", shared.ErrRequestFailed),
		}

		err := c.DeleteJob(context.Background(), "f1")
		if !errors.Is(err, shared.ErrRequestFailed) {
			t.Errorf("expected ErrRequestFailed, got %v", err)
		}
		if _, ok := c.Active(); !ok {
			t.Error("expected active job preserved")
		}
		if ref.refreshes != 1 {
			t.Errorf("expected no refresh on failure, got %d", ref.refreshes)
		}
	})
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Plain Name", "song.mp3", "song.mp3"},
		{"Path Stripped", "../../etc/passwd", "passwd"},
		{"Unsafe Characters Replaced", `a:b*c?.mp3`, "a_b_c_.mp3"},
		{"Control Characters Replaced", "a\x00b.mp3", "a_b.mp3"},
		{"Empty Falls Back", "", "download.mp3"},
		{"Dot Falls Back", ".", "download.mp3"},
		{"Whitespace Falls Back", "   ", "download.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestInvalidationCascade wires the real gateway, session store, poller
// registry, cache and controller together and verifies that a server-side
// 401 tears everything down: cleared session, zero pollers, no active job.
func TestInvalidationCascade(t *testing.T) {
	expired := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if expired && r.URL.Path != "/login" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/login":
			fmt.Fprint(w, `{"token":"tok","user":"ana","is_admin":false}`)
		case "/download":
			fmt.Fprint(w, `{"file_id":"f1","filename":"song.mp3"}`)
		case "/my_downloads":
			fmt.Fprint(w, `[{"id":"f1","status":"pending","filename":"song.mp3","owner_username":"ana","timestamp":"2026-08-01T10:00:00Z"}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	store := session.NewStore(nil, false, nil)
	client := api.NewClient(server.URL, nil, store, nil)
	store.SetGateway(client)

	reg := poller.NewRegistry(client, nil, poller.Options{Interval: time.Hour})
	dl := cache.NewCache(client, reg, nil, nil)
	ctrl := NewController(client, reg, dl, nil)

	store.OnTeardown(reg.CancelAll)
	store.OnTeardown(dl.Clear)
	store.OnTeardown(ctrl.Reset)

	ctx := context.Background()
	if err := store.Login(ctx, "ana", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := ctrl.Submit(ctx, "https://youtu.be/x"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one poller, got %d", reg.Len())
	}

	// The server drops the session; the next refresh sees a 401.
	expired = true
	if err := dl.Refresh(ctx, cache.ScopeMine); !errors.Is(err, shared.ErrSessionInvalidated) {
		t.Fatalf("expected ErrSessionInvalidated, got %v", err)
	}

	if store.Authenticated() {
		t.Error("expected session cleared")
	}
	if reg.Len() != 0 {
		t.Errorf("expected zero pollers, got %d", reg.Len())
	}
	if _, ok := ctrl.Active(); ok {
		t.Error("expected active job cleared")
	}
	if len(dl.Jobs()) != 0 {
		t.Error("expected cache cleared")
	}
	reg.Wait()
}
