package repositories

import (
	"database/sql"
	"fmt"

	"yt2mp3/internal/models"
)

// SessionRepository implements [session.Keeper] over the single-row session
// table. Row id 1 is the only row; saving replaces it.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// SaveSession upserts the session into row 1.
func (r *SessionRepository) SaveSession(s models.Session) error {
	query := `
		INSERT INTO session (id, token, username, is_admin, saved_at)
		VALUES (1, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			username = excluded.username,
			is_admin = excluded.is_admin,
			saved_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.Exec(query, s.Token, s.Username, boolToInt(s.IsAdmin)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// LoadSession returns the stored session. An empty session with no error
// means nothing was stored.
func (r *SessionRepository) LoadSession() (models.Session, error) {
	query := `SELECT token, username, is_admin FROM session WHERE id = 1`

	var (
		token    string
		username string
		isAdmin  int
	)

	err := r.db.QueryRow(query).Scan(&token, &username, &isAdmin)
	if err == sql.ErrNoRows {
		return models.Session{}, nil
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	return models.Session{Token: token, Username: username, IsAdmin: isAdmin != 0}, nil
}

// ClearSession removes the stored session. Clearing an empty table is not
// an error.
func (r *SessionRepository) ClearSession() error {
	if _, err := r.db.Exec(`DELETE FROM session WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
