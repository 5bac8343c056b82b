// package workflow drives the conversion lifecycle for the single active
// job: submit, poll, fetch, delete.
//
// The [Controller] is a state machine over Idle → Submitting → Polling →
// Ready. It owns only the active-job bookkeeping; listing lives in the
// cache and background polling in the registry.
package workflow

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"yt2mp3/internal/api"
	"yt2mp3/internal/cache"
	"yt2mp3/internal/models"
	"yt2mp3/internal/shared"
)

// State of the active conversion.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StatePolling
	StateReady
)

func (s State) String() string {
	switch s {
	case StateSubmitting:
		return "submitting"
	case StatePolling:
		return "polling"
	case StateReady:
		return "ready"
	default:
		return "idle"
	}
}

// ActiveJob identifies the most recently submitted conversion.
type ActiveJob struct {
	ID       string
	Filename string
}

// Gateway is the slice of the API client the controller needs.
type Gateway interface {
	PostJSON(ctx context.Context, path string, body, out any) error
	GetJSON(ctx context.Context, path string, out any) error
	Delete(ctx context.Context, path string) (*api.Response, error)
	FileURL(id string) string
}

// Registrar manages background pollers for submitted jobs.
type Registrar interface {
	Start(jobID string)
	Cancel(jobID string)
}

// Refresher re-fetches the download listing after a mutation.
type Refresher interface {
	Refresh(ctx context.Context, scope cache.Scope) error
	Scope() cache.Scope
}

// Controller owns the active conversion job.
type Controller struct {
	mu     sync.Mutex
	state  State
	active ActiveJob

	gateway  Gateway
	registry Registrar
	cache    Refresher
	logger   *log.Logger
}

// NewController creates an idle controller.
func NewController(gateway Gateway, registry Registrar, cache Refresher, logger *log.Logger) *Controller {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Controller{gateway: gateway, registry: registry, cache: cache, logger: logger}
}

// Submit sends a conversion request for the given video URL. A blank URL
// fails validation before any network traffic; a rejected submission returns
// to idle after surfacing the error. On acceptance the job becomes the
// active one, a poller is registered and the listing refreshes.
func (c *Controller) Submit(ctx context.Context, videoURL string) (ActiveJob, error) {
	videoURL = strings.TrimSpace(videoURL)
	if videoURL == "" {
		return ActiveJob{}, fmt.Errorf("%w: a video URL is required", shared.ErrValidation)
	}

	c.setState(StateSubmitting)

	var resp models.SubmitResponse
	body := map[string]string{"url": videoURL}
	if err := c.gateway.PostJSON(ctx, "/download", body, &resp); err != nil {
		c.setState(StateIdle)
		return ActiveJob{}, err
	}

	job := ActiveJob{ID: resp.FileID, Filename: resp.Filename}

	c.mu.Lock()
	c.active = job
	c.state = StatePolling
	c.mu.Unlock()

	c.logger.Info("conversion submitted", "job", job.ID, "filename", job.Filename)

	c.registry.Start(job.ID)
	c.refresh(ctx)

	return job, nil
}

// CheckStatusNow performs a one-shot status check of the active job and
// refreshes the listing regardless of the outcome.
func (c *Controller) CheckStatusNow(ctx context.Context) (bool, error) {
	c.mu.Lock()
	job := c.active
	c.mu.Unlock()

	if job.ID == "" {
		c.refresh(ctx)
		return false, fmt.Errorf("%w: nothing has been submitted", shared.ErrNoActiveJob)
	}

	var st models.StatusResponse
	err := c.gateway.GetJSON(ctx, "/status/"+url.PathEscape(job.ID), &st)
	if err == nil && st.Ready {
		c.setState(StateReady)
	}

	c.refresh(ctx)

	if err != nil {
		return false, err
	}
	return st.Ready, nil
}

// FetchActiveFile returns the retrieval URL and a filesystem-safe filename
// for the active job. The caller performs the actual transfer.
func (c *Controller) FetchActiveFile() (string, string, error) {
	c.mu.Lock()
	job := c.active
	c.mu.Unlock()

	if job.ID == "" || job.Filename == "" {
		return "", "", fmt.Errorf("%w: nothing has been submitted", shared.ErrNoActiveJob)
	}

	return c.gateway.FileURL(job.ID), SanitizeFilename(job.Filename), nil
}

// DeleteJob removes a job server-side. Deleting the active job also clears
// the local active state and its poller; either way the listing refreshes.
func (c *Controller) DeleteJob(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: a job id is required", shared.ErrValidation)
	}

	if _, err := c.gateway.Delete(ctx, "/delete/"+url.PathEscape(id)); err != nil {
		return err
	}

	c.mu.Lock()
	wasActive := c.active.ID == id
	if wasActive {
		c.active = ActiveJob{}
		c.state = StateIdle
	}
	c.mu.Unlock()

	if wasActive {
		c.registry.Cancel(id)
	}
	c.logger.Info("job deleted", "job", id, "was_active", wasActive)

	c.refresh(ctx)
	return nil
}

// Reset drops the active job without server interaction. Wired to the
// session store's teardown hooks.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.active = ActiveJob{}
	c.state = StateIdle
	c.mu.Unlock()
}

// Active returns the active job, if any.
func (c *Controller) Active() (ActiveJob, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active, c.active.ID != ""
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// refresh re-fetches the listing in the cache's current scope. Refresh
// failures after a successful mutation are logged, not propagated; the
// mutation itself already succeeded.
func (c *Controller) refresh(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Refresh(ctx, c.cache.Scope()); err != nil {
		c.logger.Warn("refresh after mutation failed", "err", err)
	}
}

// unsafeFilenameChars covers path separators and the characters Windows
// refuses in filenames.
var unsafeFilenameChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_",
)

// SanitizeFilename reduces a server-suggested filename to a safe basename,
// falling back to "download.mp3" when nothing usable remains.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = filepath.Base(name)
	name = unsafeFilenameChars.Replace(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return '_'
		}
		return r
	}, name)

	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "download.mp3"
	}
	return name
}
