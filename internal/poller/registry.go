// package poller manages the background status polling tasks, one per
// in-flight conversion job.
//
// Registration is idempotent per job id, so two views asking to watch the
// same job never produce duplicate tickers. Pollers self-terminate on the
// job's terminal state or on any request failure; the only global
// cancellation events are logout and session invalidation, which call
// [Registry.CancelAll] through the session store's teardown hooks.
package poller

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"yt2mp3/internal/models"
	"yt2mp3/internal/shared"
)

// DefaultInterval balances status staleness against request volume.
const DefaultInterval = 2500 * time.Millisecond

// Gateway is the slice of the API client a poller needs.
type Gateway interface {
	GetJSON(ctx context.Context, path string, out any) error
}

// Options configures the registry.
type Options struct {
	// Interval between status checks; DefaultInterval when zero.
	Interval time.Duration
	// MaxAttempts caps checks per job. Zero keeps the reference behavior of
	// polling until the job resolves or the registry is torn down.
	MaxAttempts int
}

type handle struct {
	cancel context.CancelFunc
}

// Registry owns the poller map. All mutation goes through its methods.
type Registry struct {
	mu      sync.Mutex
	pollers map[string]*handle

	gateway     Gateway
	logger      *log.Logger
	interval    time.Duration
	maxAttempts int
	onReady     func(jobID string)

	wg sync.WaitGroup
}

// NewRegistry creates an empty registry.
func NewRegistry(gw Gateway, logger *log.Logger, opts Options) *Registry {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Registry{
		pollers:     make(map[string]*handle),
		gateway:     gw,
		logger:      logger,
		interval:    interval,
		maxAttempts: opts.MaxAttempts,
	}
}

// OnReady sets the callback fired after a poller observes its job's ready
// state and has deregistered itself. Wired to the download cache refresh.
func (r *Registry) OnReady(fn func(jobID string)) {
	r.onReady = fn
}

// Start registers a poller for the given job id. A no-op when a poller for
// that id is already live.
func (r *Registry) Start(jobID string) {
	if jobID == "" {
		return
	}

	r.mu.Lock()
	if _, exists := r.pollers[jobID]; exists {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{cancel: cancel}
	r.pollers[jobID] = h
	r.mu.Unlock()

	r.wg.Add(1)
	go r.poll(ctx, jobID, h)
}

// Cancel stops the poller for the given job id, if any.
func (r *Registry) Cancel(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.pollers[jobID]; ok {
		h.cancel()
		delete(r.pollers, jobID)
	}
}

// CancelAll stops every live poller. Safe to call with none active.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	for id, h := range r.pollers {
		h.cancel()
		delete(r.pollers, id)
	}
	r.mu.Unlock()
}

// Reconcile aligns the registry with a freshly fetched download list:
// pollers whose job disappeared or already shows ready are cancelled, and
// every non-ready job gets a poller if it lacks one.
func (r *Registry) Reconcile(jobs []models.Download) {
	present := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		present[j.ID] = j.Ready()
	}

	r.mu.Lock()
	for id, h := range r.pollers {
		ready, ok := present[id]
		if !ok || ready {
			h.cancel()
			delete(r.pollers, id)
		}
	}
	r.mu.Unlock()

	for _, j := range jobs {
		if !j.Ready() {
			r.Start(j.ID)
		}
	}
}

// Active returns the ids of all live pollers.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.pollers))
	for id := range r.pollers {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of live pollers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pollers)
}

// Wait blocks until every poller goroutine has exited. Test helper.
func (r *Registry) Wait() {
	r.wg.Wait()
}

func (r *Registry) poll(ctx context.Context, jobID string, h *handle) {
	defer r.wg.Done()
	defer r.remove(jobID, h)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var st models.StatusResponse
		if err := r.gateway.GetJSON(ctx, "/status/"+url.PathEscape(jobID), &st); err != nil {
			// Background poll failures are expected (job deleted elsewhere,
			// session expired, logout mid-request); terminate silently and
			// let the initiating caller surface its own errors.
			r.logger.Debug("poller stopped", "job", jobID, "err", err)
			return
		}

		if st.Ready {
			// Deregister before the refresh so the refreshed list never
			// observes a poller for a ready job.
			r.remove(jobID, h)
			if r.onReady != nil {
				r.onReady(jobID)
			}
			return
		}

		attempts++
		if r.maxAttempts > 0 && attempts >= r.maxAttempts {
			r.logger.Debug("poller reached attempt cap", "job", jobID, "attempts", attempts)
			return
		}
	}
}

// remove deletes the registration only if it still belongs to this poller,
// so a cancelled-then-restarted job id is never clobbered.
func (r *Registry) remove(jobID string, h *handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.pollers[jobID]; ok && cur == h {
		h.cancel()
		delete(r.pollers, jobID)
	}
}
