// package cache keeps the client's last-known download list and derives the
// presented view from it.
//
// The cache is the reconciliation point of the data flow: every refresh
// replaces the snapshot wholesale, mirrors it to local storage and hands the
// fresh list to the poller registry so background polling always matches
// what the user can see.
package cache

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"yt2mp3/internal/models"
	"yt2mp3/internal/shared"
)

// Scope selects which server listing a refresh targets.
type Scope int

const (
	// ScopeMine lists only the viewer's downloads.
	ScopeMine Scope = iota
	// ScopeAll lists every user's downloads. Admin only.
	ScopeAll
)

// Path returns the API path backing the scope.
func (s Scope) Path() string {
	if s == ScopeAll {
		return "/videos"
	}
	return "/my_downloads"
}

// Lister is the slice of the API client the cache needs.
type Lister interface {
	GetJSON(ctx context.Context, path string, out any) error
}

// Reconciler re-aligns background polling with a fresh download list.
type Reconciler interface {
	Reconcile(jobs []models.Download)
}

// Mirror persists the snapshot locally so a later offline session can still
// show the last-known list.
type Mirror interface {
	ReplaceAll(jobs []models.Download) error
}

// Cache holds the current download snapshot and search term.
type Cache struct {
	mu         sync.Mutex
	jobs       []models.Download
	searchTerm string
	scope      Scope

	gateway  Lister
	registry Reconciler
	mirror   Mirror
	logger   *log.Logger
}

// NewCache creates an empty cache. mirror may be nil when local persistence
// is disabled.
func NewCache(gateway Lister, registry Reconciler, mirror Mirror, logger *log.Logger) *Cache {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Cache{gateway: gateway, registry: registry, mirror: mirror, logger: logger}
}

// Refresh fetches the listing for the given scope and replaces the snapshot.
// The mirror write and poller reconciliation happen on every successful
// fetch; a failed fetch leaves the previous snapshot untouched.
func (c *Cache) Refresh(ctx context.Context, scope Scope) error {
	var jobs []models.Download
	if err := c.gateway.GetJSON(ctx, scope.Path(), &jobs); err != nil {
		return err
	}

	c.mu.Lock()
	c.jobs = jobs
	c.scope = scope
	c.mu.Unlock()

	if c.mirror != nil {
		if err := c.mirror.ReplaceAll(jobs); err != nil {
			c.logger.Warn("failed to mirror downloads", "err", err)
		}
	}

	if c.registry != nil {
		c.registry.Reconcile(jobs)
	}

	c.logger.Debug("downloads refreshed", "scope", scope.Path(), "count", len(jobs))
	return nil
}

// SetSearchTerm updates the filter term. Purely local; the view is
// re-derived from the existing snapshot without any network traffic.
func (c *Cache) SetSearchTerm(term string) {
	c.mu.Lock()
	c.searchTerm = strings.TrimSpace(term)
	c.mu.Unlock()
}

// SearchTerm returns the current filter term.
func (c *Cache) SearchTerm() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searchTerm
}

// Scope returns the scope of the last successful refresh.
func (c *Cache) Scope() Scope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scope
}

// Jobs returns a copy of the raw snapshot.
func (c *Cache) Jobs() []models.Download {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Download, len(c.jobs))
	copy(out, c.jobs)
	return out
}

// View derives the presented entries from the snapshot and search term.
func (c *Cache) View() []Entry {
	c.mu.Lock()
	jobs := make([]models.Download, len(c.jobs))
	copy(jobs, c.jobs)
	term := c.searchTerm
	c.mu.Unlock()
	return DeriveView(jobs, term)
}

// Clear drops the snapshot and search term. Wired to the session store's
// teardown hooks so logout and invalidation leave no stale listing behind.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.jobs = nil
	c.searchTerm = ""
	c.scope = ScopeMine
	c.mu.Unlock()
}
