package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/urfave/cli/v3"

	"yt2mp3/internal/cache"
	"yt2mp3/internal/models"
	"yt2mp3/internal/shared"
)

// DownloadsList lists downloads: the viewer's own, every user's with --all
// (admin only), or the local mirror with --cached.
func (r *Runner) DownloadsList(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("cached") {
		return r.listCached(cmd)
	}

	if err := r.ensureSession(ctx, cmd); err != nil {
		return err
	}

	scope := cache.ScopeMine
	if cmd.Bool("all") {
		if !r.session.IsAdmin() {
			return fmt.Errorf("%w: --all requires an admin account", shared.ErrValidation)
		}
		scope = cache.ScopeAll
	}

	r.downloads.SetSearchTerm(cmd.String("search"))
	if err := r.downloads.Refresh(ctx, scope); err != nil {
		return err
	}

	entries := r.downloads.View()
	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}
	return r.printEntries(entries)
}

// DownloadsUser lists another user's downloads.
func (r *Runner) DownloadsUser(ctx context.Context, cmd *cli.Command) error {
	username := strings.TrimSpace(cmd.StringArg("username"))
	if username == "" {
		return fmt.Errorf("%w: a username is required", shared.ErrValidation)
	}

	if err := r.ensureSession(ctx, cmd); err != nil {
		return err
	}

	var jobs []models.Download
	if err := r.client.GetJSON(ctx, "/user_downloads/"+url.PathEscape(username), &jobs); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(jobs, true)
	}

	entries := make([]cache.Entry, len(jobs))
	for i, j := range jobs {
		entries[i] = cache.Entry{Download: j, Copies: 1}
	}
	return r.printEntries(entries)
}

// listCached prints the locally mirrored listing without network traffic.
func (r *Runner) listCached(cmd *cli.Command) error {
	if r.mirror == nil {
		return fmt.Errorf("%w: local persistence is disabled, enable [session] persist", shared.ErrValidation)
	}

	jobs, err := r.mirror.List()
	if err != nil {
		return err
	}

	term := cmd.String("search")
	entries := cache.DeriveView(jobs, term)
	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}
	return r.printEntries(entries)
}

func (r *Runner) printEntries(entries []cache.Entry) error {
	if len(entries) == 0 {
		return r.writePlain("No downloads\n")
	}

	viewer := r.session.Username()
	isAdmin := r.session.IsAdmin()

	headers := []string{"ID", "FILENAME", "STATUS", "OWNER", "SUBMITTED", "COPIES", "DEL"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		owner := e.OwnerUsername
		if len(e.Owners) > 1 {
			owner = strings.Join(e.Owners, ", ")
		}
		submitted := ""
		if ts := e.SubmittedAt(); !ts.IsZero() {
			submitted = ts.Format("2006-01-02 15:04")
		}
		deletable := ""
		if e.CanDelete(viewer, isAdmin) {
			deletable = "✓"
		}
		rows = append(rows, []string{
			e.ID, e.Filename, e.Status, owner, submitted, fmt.Sprintf("%d", e.Copies), deletable,
		})
	}

	if stdoutIsTerminal() {
		return r.writePlain("%s\n", renderTable(headers, rows, []columnAlignment{
			alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft,
		}))
	}

	for _, row := range rows {
		if err := r.writePlain("%s\n", strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}
