package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"yt2mp3/internal/api"
	"yt2mp3/internal/cache"
	"yt2mp3/internal/poller"
	"yt2mp3/internal/repositories"
	"yt2mp3/internal/session"
	"yt2mp3/internal/shared"
	"yt2mp3/internal/workflow"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	logger     *log.Logger
	output     io.Writer
	httpClient *http.Client

	db        *sql.DB
	mirror    *repositories.DownloadRepository
	session   *session.Store
	client    *api.Client
	registry  *poller.Registry
	downloads *cache.Cache
	workflow  *workflow.Controller
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner and wires the session store, gateway,
// poller registry, download cache and workflow controller together.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	// Per-process correlation id; log lines from concurrent pollers trace
	// back to one client instance.
	opts.Logger = shared.WithLogger(opts.Logger, "client", shared.GenerateID())
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Config.RequestTimeout()}
	}

	r := &Runner{
		config:     opts.Config,
		logger:     opts.Logger,
		output:     opts.Output,
		httpClient: opts.HTTPClient,
	}

	var keeper session.Keeper
	if opts.Config.Session.Persist {
		if db, err := shared.NewDatabase(opts.Config.Database.Path); err != nil {
			r.logger.Warn("failed to open local database, persistence disabled", "err", err)
		} else {
			shared.ConfigureDatabase(db, opts.Config.Database.MaxOpenConns, opts.Config.Database.MaxIdleConns)
			r.db = db
			keeper = repositories.NewSessionRepository(db)
			r.mirror = repositories.NewDownloadRepository(db)
		}
	}

	r.session = session.NewStore(keeper, r.db != nil, r.logger)
	r.client = api.NewClient(opts.Config.Server.BaseURL, r.httpClient, r.session, r.logger)
	r.session.SetGateway(r.client)

	r.registry = poller.NewRegistry(r.client, r.logger, poller.Options{
		Interval:    opts.Config.PollInterval(),
		MaxAttempts: opts.Config.Poller.MaxAttempts,
	})

	var mirror cache.Mirror
	if r.mirror != nil {
		mirror = r.mirror
	}
	r.downloads = cache.NewCache(r.client, r.registry, mirror, r.logger)
	r.workflow = workflow.NewController(r.client, r.registry, r.downloads, r.logger)

	r.registry.OnReady(func(jobID string) {
		if err := r.downloads.Refresh(context.Background(), r.downloads.Scope()); err != nil {
			r.logger.Debug("refresh after ready failed", "job", jobID, "err", err)
		}
	})

	r.session.OnTeardown(r.registry.CancelAll)
	r.session.OnTeardown(r.downloads.Clear)
	r.session.OnTeardown(r.workflow.Reset)

	return r
}

// Close releases the local database handle, if any.
func (r *Runner) Close() {
	r.registry.CancelAll()
	if r.db != nil {
		r.db.Close()
	}
}

// RedirectLogs points all log output at w. Every wired component shares the
// runner's logger instance, so the redirect covers their output too.
func (r *Runner) RedirectLogs(w io.Writer) {
	r.logger.SetOutput(w)
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		authCommand, convertCommand, statusCommand, getCommand, deleteCommand,
		downloadsCommand, adminCommand, watchCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// ensureSession guarantees an authenticated session: already live, restored
// from the local database, or established from credentials in flags or
// environment.
func (r *Runner) ensureSession(ctx context.Context, cmd *cli.Command) error {
	if r.session.Authenticated() {
		return nil
	}

	if r.config.Session.Persist {
		if err := r.session.Restore(ctx); err == nil {
			return nil
		}
	}

	username := cmd.String("username")
	if username == "" {
		username = os.Getenv("YT2MP3_USERNAME")
	}
	password := cmd.String("password")
	if password == "" {
		password = os.Getenv("YT2MP3_PASSWORD")
	}

	if username == "" || password == "" {
		return fmt.Errorf("%w: provide --username/--password or set YT2MP3_USERNAME and YT2MP3_PASSWORD", shared.ErrNotAuthenticated)
	}

	return r.session.Login(ctx, username, password)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
