package cache

import (
	"sort"
	"strings"

	"yt2mp3/internal/models"
)

// Entry is one row of the presented download view. With no search term
// active it wraps a single download; with a term active it represents a
// title bucket, annotated with how many copies exist and who owns them.
type Entry struct {
	models.Download

	// Copies counts the downloads collapsed into this entry.
	Copies int
	// Owners lists the distinct owners across the copies, in order of
	// first appearance. Ownerless downloads contribute no owner.
	Owners []string
}

// DeriveView computes the entries to present for a snapshot and search term.
//
// Without a term, every download is its own entry in snapshot order. With a
// term, downloads are first filtered by case-insensitive substring match on
// filename or owner, then collapsed into one entry per title. Each bucket is
// represented by its newest ready copy, falling back to the newest copy of
// any status, and buckets are ordered newest-first by that representative.
func DeriveView(jobs []models.Download, term string) []Entry {
	term = strings.ToLower(strings.TrimSpace(term))

	if term == "" {
		entries := make([]Entry, 0, len(jobs))
		for _, j := range jobs {
			e := Entry{Download: j, Copies: 1}
			if owner := strings.TrimSpace(j.OwnerUsername); owner != "" {
				e.Owners = []string{owner}
			}
			entries = append(entries, e)
		}
		return entries
	}

	var matched []models.Download
	for _, j := range jobs {
		if matchesTerm(j, term) {
			matched = append(matched, j)
		}
	}

	type bucket struct {
		rep    models.Download
		copies int
		owners []string
		seen   map[string]bool
	}

	buckets := make(map[string]*bucket)
	var order []string

	for _, j := range matched {
		key := j.TitleKey()
		if key == "" {
			continue
		}

		b, ok := buckets[key]
		if !ok {
			b = &bucket{rep: j, seen: make(map[string]bool)}
			buckets[key] = b
			order = append(order, key)
		} else if prefer(j, b.rep) {
			b.rep = j
		}
		b.copies++

		if owner := strings.TrimSpace(j.OwnerUsername); owner != "" && !b.seen[owner] {
			b.seen[owner] = true
			b.owners = append(b.owners, owner)
		}
	}

	entries := make([]Entry, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		entries = append(entries, Entry{Download: b.rep, Copies: b.copies, Owners: b.owners})
	}

	sort.SliceStable(entries, func(i, k int) bool {
		return entries[i].SubmittedAt().After(entries[k].SubmittedAt())
	})

	return entries
}

func matchesTerm(j models.Download, term string) bool {
	return strings.Contains(strings.ToLower(j.Filename), term) ||
		strings.Contains(strings.ToLower(j.OwnerUsername), term)
}

// prefer reports whether candidate should replace the current representative:
// ready copies beat non-ready ones, and within the same readiness the newer
// submission wins.
func prefer(candidate, current models.Download) bool {
	if candidate.Ready() != current.Ready() {
		return candidate.Ready()
	}
	return candidate.SubmittedAt().After(current.SubmittedAt())
}
