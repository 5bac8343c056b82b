package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"yt2mp3/internal/cache"
	"yt2mp3/internal/models"
)

var _ list.Item = entryItem{}

// entryItem wraps [cache.Entry] to implement [list.Item].
type entryItem struct {
	entry   cache.Entry
	viewer  string
	isAdmin bool
}

func (i entryItem) FilterValue() string { return i.entry.Filename }

func (i entryItem) Title() string {
	name := i.entry.Filename
	if name == "" {
		name = "(no filename yet)"
	}
	if i.entry.Copies > 1 {
		name = fmt.Sprintf("%s ×%d", name, i.entry.Copies)
	}
	return name
}

func (i entryItem) Description() string {
	parts := []string{statusLabel(i.entry.Status)}

	switch {
	case len(i.entry.Owners) > 1:
		parts = append(parts, "owners: "+strings.Join(i.entry.Owners, ", "))
	case i.entry.OwnerUsername != "":
		parts = append(parts, i.entry.OwnerUsername)
	}

	if ts := i.entry.SubmittedAt(); !ts.IsZero() {
		parts = append(parts, ts.Format("2006-01-02 15:04"))
	}
	if i.entry.CanDelete(i.viewer, i.isAdmin) {
		parts = append(parts, "deletable")
	}

	return strings.Join(parts, " • ")
}

func statusLabel(status string) string {
	switch status {
	case models.StatusReady:
		return styles.ok.Render("ready")
	case models.StatusFailed:
		return styles.err.Render("failed")
	case models.StatusPending, models.StatusProcessing:
		return styles.warn.Render(status)
	default:
		return status
	}
}
