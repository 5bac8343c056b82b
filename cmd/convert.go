package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"yt2mp3/internal/models"
	"yt2mp3/internal/shared"
	"yt2mp3/internal/workflow"
)

// Convert submits a YouTube URL for conversion. With --wait it blocks until
// the job resolves; with --save it also fetches the MP3.
func (r *Runner) Convert(ctx context.Context, cmd *cli.Command) error {
	videoURL := cmd.StringArg("url")
	wait := cmd.Bool("wait") || cmd.Bool("save")

	if err := r.ensureSession(ctx, cmd); err != nil {
		return err
	}

	job, err := r.workflow.Submit(ctx, videoURL)
	if err != nil {
		return err
	}

	r.writePlain("✓ Submitted: %s (job %s)\n", job.Filename, job.ID)

	if !wait {
		return r.writePlain("Run 'yt2mp3 status' to check progress\n")
	}

	if err := r.waitUntilReady(ctx, job.ID); err != nil {
		return err
	}
	r.writePlain("✓ Ready: %s\n", job.Filename)

	if !cmd.Bool("save") {
		return nil
	}
	return r.fetchActive(ctx, cmd.String("output"))
}

// waitUntilReady polls the active job at the configured interval until it
// reports ready or the context ends. The foreground wait reuses the same
// one-shot check the status command exposes.
func (r *Runner) waitUntilReady(ctx context.Context, jobID string) error {
	ticker := time.NewTicker(r.config.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		ready, err := r.workflow.CheckStatusNow(ctx)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		r.logger.Debug("still converting", "job", jobID)
	}
}

// Status checks a job's status: the given id, or the active job when no id
// is passed.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureSession(ctx, cmd); err != nil {
		return err
	}

	if id := cmd.StringArg("id"); id != "" {
		var st models.StatusResponse
		if err := r.client.GetJSON(ctx, "/status/"+url.PathEscape(id), &st); err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(st, false)
		}
		if st.Ready {
			return r.writePlain("✓ Job %s is ready\n", id)
		}
		return r.writePlain("… Job %s is still converting\n", id)
	}

	ready, err := r.workflow.CheckStatusNow(ctx)
	if err != nil {
		return err
	}

	job, _ := r.workflow.Active()
	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"id": job.ID, "filename": job.Filename, "ready": ready}, false)
	}
	if ready {
		return r.writePlain("✓ %s is ready (job %s)\n", job.Filename, job.ID)
	}
	return r.writePlain("… %s is still converting (job %s)\n", job.Filename, job.ID)
}

// Get downloads a finished MP3 to disk: the given id, or the active job.
func (r *Runner) Get(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureSession(ctx, cmd); err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if id == "" {
		return r.fetchActive(ctx, cmd.String("output"))
	}

	// Resolve a filename from the current listing; the Content-Disposition
	// header can still override it.
	suggested := "download.mp3"
	for _, j := range r.downloads.Jobs() {
		if j.ID == id && j.Filename != "" {
			suggested = workflow.SanitizeFilename(j.Filename)
			break
		}
	}

	return r.saveFile(ctx, r.client.FileURL(id), suggested, cmd.String("output"))
}

// Delete removes a download from the server.
func (r *Runner) Delete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: a job id is required", shared.ErrValidation)
	}

	if err := r.ensureSession(ctx, cmd); err != nil {
		return err
	}

	if err := r.workflow.DeleteJob(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted %s\n", id)
}

func (r *Runner) fetchActive(ctx context.Context, outputPath string) error {
	fileURL, suggested, err := r.workflow.FetchActiveFile()
	if err != nil {
		return err
	}
	return r.saveFile(ctx, fileURL, suggested, outputPath)
}

// saveFile streams the MP3 to disk. A filename in the Content-Disposition
// header wins over the suggested name; an explicit --output wins over both.
func (r *Runner) saveFile(ctx context.Context, fileURL, suggested, outputPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build file request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrRequestFailed, resp.StatusCode, string(body))
	}

	name := suggested
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if fn := params["filename"]; fn != "" {
				name = workflow.SanitizeFilename(fn)
			}
		}
	}

	path := outputPath
	if path == "" {
		path = filepath.Join(r.config.Downloads.Dir, name)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	r.logger.Info("file saved", "path", path, "bytes", written)
	return r.writePlain("✓ Saved %s (%d bytes)\n", path, written)
}
