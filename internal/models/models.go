package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Download status values reported by the backend.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
	StatusUnknown    = "unknown"
)

// Download is a single conversion job tracked by an opaque server-assigned id.
//
// Records are replaced wholesale on every list refresh; the client never
// mutates individual fields.
type Download struct {
	ID            string
	Status        string
	Filename      string
	OwnerUsername string
	Timestamp     string
}

// downloadWire carries every field name the two backend generations emit.
type downloadWire struct {
	ID            string  `json:"id"`
	FileID        string  `json:"file_id"`
	Status        *string `json:"status"`
	Filename      string  `json:"filename"`
	OwnerUsername *string `json:"owner_username"`
	Owner         *string `json:"owner"`
	Timestamp     *string `json:"timestamp"`
	TS            *string `json:"ts"`
	CreatedAt     *string `json:"created_at"`
}

// UnmarshalJSON decodes a download record honoring the field-name fallback
// chains: id|file_id, owner_username|owner, timestamp|ts|created_at. A missing
// status decodes as "unknown".
func (d *Download) UnmarshalJSON(data []byte) error {
	var w downloadWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	d.ID = w.ID
	if d.ID == "" {
		d.ID = w.FileID
	}

	d.Status = StatusUnknown
	if w.Status != nil && *w.Status != "" {
		d.Status = *w.Status
	}

	d.Filename = w.Filename

	switch {
	case w.OwnerUsername != nil:
		d.OwnerUsername = *w.OwnerUsername
	case w.Owner != nil:
		d.OwnerUsername = *w.Owner
	}

	switch {
	case w.Timestamp != nil:
		d.Timestamp = *w.Timestamp
	case w.TS != nil:
		d.Timestamp = *w.TS
	case w.CreatedAt != nil:
		d.Timestamp = *w.CreatedAt
	}

	return nil
}

// MarshalJSON emits the canonical field names.
func (d Download) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"id":             d.ID,
		"status":         d.Status,
		"filename":       d.Filename,
		"owner_username": d.OwnerUsername,
		"timestamp":      d.Timestamp,
	})
}

// Ready reports whether the job reached its terminal success state.
func (d Download) Ready() bool {
	return d.Status == StatusReady
}

// timestampLayouts covers the backend's naive-UTC isoformat output with and
// without fractional seconds, plus zoned RFC 3339 for safety.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// SubmittedAt parses the record's timestamp. The zero time is returned for
// absent or unparseable values, which sorts such records last.
func (d Download) SubmittedAt() time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, d.Timestamp); err == nil {
			return t
		}
	}
	return time.Time{}
}

// CanDelete reports whether the delete control should be enabled for the
// given viewer. Display hint only; the server re-checks ownership.
func (d Download) CanDelete(viewer string, isAdmin bool) bool {
	if d.OwnerUsername == "" {
		return true
	}
	return d.OwnerUsername == viewer || isAdmin
}

// TitleKey returns the case-insensitive trimmed filename used for grouping
// duplicate-title search results. Empty for records with no filename yet.
func (d Download) TitleKey() string {
	return strings.ToLower(strings.TrimSpace(d.Filename))
}

// Session is the authenticated identity for the current client instance.
type Session struct {
	Token    string
	Username string
	IsAdmin  bool
}

// Authenticated reports whether the session carries a token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Account is a backend user record as returned by GET /users.
type Account struct {
	Username  string `json:"username"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at"`
}

// LoginResponse is the body of a successful POST /login.
type LoginResponse struct {
	Token   string `json:"token"`
	User    string `json:"user"`
	IsAdmin bool   `json:"is_admin"`
}

// MeResponse is the body of GET /me.
type MeResponse struct {
	User    string `json:"user"`
	IsAdmin bool   `json:"is_admin"`
}

// SubmitResponse is the body of a successful POST /download.
type SubmitResponse struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
}

// StatusResponse is the body of GET /status/:id.
type StatusResponse struct {
	Ready bool `json:"ready"`
}

// ResetPasswordResponse is the body of the admin password reset endpoint.
// The temporary password is shown exactly once.
type ResetPasswordResponse struct {
	TempPassword string `json:"temp_password"`
}
