package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"yt2mp3/internal/shared"
	"yt2mp3/internal/ui"
)

// Watch launches the live download listing.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureSession(ctx, cmd); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	logFile, err := shared.OpenLogFile("./tmp/yt2mp3-watch.log")
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	r.RedirectLogs(logFile)

	model := ui.NewModel(ctx, r.downloads, r.session, r.config.PollInterval())
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return model.Err()
}
