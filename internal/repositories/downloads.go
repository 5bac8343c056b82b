package repositories

import (
	"database/sql"
	"fmt"

	"yt2mp3/internal/models"
)

// DownloadRepository mirrors the last-fetched download listing. The mirror
// is replaced wholesale on every refresh, matching the cache's replace-only
// update model; position preserves the server's ordering.
type DownloadRepository struct {
	db *sql.DB
}

// NewDownloadRepository creates a new [DownloadRepository] with the given database connection
func NewDownloadRepository(db *sql.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// ReplaceAll swaps the mirrored listing for the given one in a single
// transaction.
func (r *DownloadRepository) ReplaceAll(jobs []models.Download) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM downloads`); err != nil {
		return fmt.Errorf("failed to clear downloads mirror: %w", err)
	}

	query := `
		INSERT INTO downloads (id, status, filename, owner_username, submitted_at, position)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	for i, j := range jobs {
		if j.ID == "" {
			continue
		}
		if _, err := tx.Exec(query, j.ID, j.Status, j.Filename, j.OwnerUsername, j.Timestamp, i); err != nil {
			return fmt.Errorf("failed to insert download %s: %w", j.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit downloads mirror: %w", err)
	}

	return nil
}

// List returns the mirrored listing in its original server order.
func (r *DownloadRepository) List() ([]models.Download, error) {
	query := `
		SELECT id, status, filename, owner_username, submitted_at
		FROM downloads
		ORDER BY position ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads mirror: %w", err)
	}
	defer rows.Close()

	var jobs []models.Download
	for rows.Next() {
		var (
			id       string
			status   string
			filename sql.NullString
			owner    sql.NullString
			ts       sql.NullString
		)

		if err := rows.Scan(&id, &status, &filename, &owner, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}

		jobs = append(jobs, models.Download{
			ID:            id,
			Status:        status,
			Filename:      filename.String,
			OwnerUsername: owner.String,
			Timestamp:     ts.String,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return jobs, nil
}
