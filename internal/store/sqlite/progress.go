package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/readleafapp/readleaf-server/internal/domain"
	"github.com/readleafapp/readleaf-server/internal/store"
)

// progressColumns is the ordered list of columns selected in progress queries.
// Must match the scan order in scanProgress.
const progressColumns = `id, book_id, session_id, current_page, current_percentage,
	pages_read, progress_date, notes, created_at, updated_at`

// scanProgress scans a row into a domain.ProgressLog.
func scanProgress(scanner interface{ Scan(dest ...any) error }) (*domain.ProgressLog, error) {
	var p domain.ProgressLog

	var (
		notes     sql.NullString
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&p.ID,
		&p.BookID,
		&p.SessionID,
		&p.CurrentPage,
		&p.CurrentPercentage,
		&p.PagesRead,
		&p.ProgressDate,
		&notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Notes = notes.String

	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// CreateProgress inserts a progress log row.
func (s *Store) CreateProgress(ctx context.Context, log *domain.ProgressLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress_logs (
			id, book_id, session_id, current_page, current_percentage,
			pages_read, progress_date, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.BookID, log.SessionID, log.CurrentPage, log.CurrentPercentage,
		log.PagesRead, log.ProgressDate, nullString(log.Notes),
		formatTime(log.CreatedAt), formatTime(log.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert progress: %w", err)
	}
	return nil
}

// GetProgress retrieves a progress log by ID.
// Returns store.ErrProgressNotFound if the entry does not exist.
func (s *Store) GetProgress(ctx context.Context, id string) (*domain.ProgressLog, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM progress_logs WHERE id = ?`, id)

	p, err := scanProgress(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrProgressNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetSessionProgress returns a session's progress timeline ordered by
// progress date, ties broken by creation time. This is the order the
// monotonicity validator walks.
func (s *Store) GetSessionProgress(ctx context.Context, sessionID string) ([]*domain.ProgressLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+progressColumns+` FROM progress_logs
		WHERE session_id = ?
		ORDER BY progress_date ASC, created_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.ProgressLog
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, p)
	}
	return logs, rows.Err()
}

// GetLatestProgress returns the most recently created entry for a session.
// Returns store.ErrProgressNotFound if the session has no progress yet.
func (s *Store) GetLatestProgress(ctx context.Context, sessionID string) (*domain.ProgressLog, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM progress_logs
		WHERE session_id = ?
		ORDER BY created_at DESC
		LIMIT 1`, sessionID)

	p, err := scanProgress(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrProgressNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListAllProgress returns every progress log across all sessions ordered by
// progress date. The streak rebuild walks this to recompute daily totals.
func (s *Store) ListAllProgress(ctx context.Context) ([]*domain.ProgressLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+progressColumns+` FROM progress_logs
		ORDER BY progress_date ASC, created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.ProgressLog
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, p)
	}
	return logs, rows.Err()
}

// UpdateProgress writes back a progress log's mutable fields.
// Returns store.ErrProgressNotFound if the entry does not exist.
func (s *Store) UpdateProgress(ctx context.Context, log *domain.ProgressLog) error {
	log.UpdatedAt = time.Now()

	res, err := s.db.ExecContext(ctx, `
		UPDATE progress_logs SET
			current_page = ?, current_percentage = ?, pages_read = ?,
			progress_date = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		log.CurrentPage, log.CurrentPercentage, log.PagesRead,
		log.ProgressDate, nullString(log.Notes),
		formatTime(log.UpdatedAt), log.ID,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrProgressNotFound
	}
	return nil
}

// DeleteProgress removes a progress log.
// Returns store.ErrProgressNotFound if the entry does not exist.
func (s *Store) DeleteProgress(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM progress_logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrProgressNotFound
	}
	return nil
}
