package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/readleafapp/readleaf-server/internal/domain"
	"github.com/readleafapp/readleaf-server/internal/store"
)

// sessionColumns is the ordered list of columns selected in session queries.
// Must match the scan order in scanSession.
const sessionColumns = `id, book_id, session_number, status, is_active,
	started_date, completed_date, rating, review, created_at, updated_at`

// scanSession scans a row into a domain.ReadingSession.
func scanSession(scanner interface{ Scan(dest ...any) error }) (*domain.ReadingSession, error) {
	var sess domain.ReadingSession

	var (
		status        string
		isActive      int
		startedDate   sql.NullString
		completedDate sql.NullString
		rating        sql.NullInt64
		review        sql.NullString
		createdAt     string
		updatedAt     string
	)

	err := scanner.Scan(
		&sess.ID,
		&sess.BookID,
		&sess.SessionNumber,
		&status,
		&isActive,
		&startedDate,
		&completedDate,
		&rating,
		&review,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	sess.Status = domain.SessionStatus(status)
	sess.IsActive = isActive != 0
	sess.StartedDate = startedDate.String
	sess.CompletedDate = completedDate.String
	sess.Rating = intPtr(rating)
	sess.Review = review.String

	sess.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	sess.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &sess, nil
}

// CreateSession inserts a reading session row.
// Returns store.ErrActiveSessionExists if the book already has an active
// session and the new one claims to be active.
func (s *Store) CreateSession(ctx context.Context, session *domain.ReadingSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reading_sessions (
			id, book_id, session_number, status, is_active,
			started_date, completed_date, rating, review,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.BookID, session.SessionNumber,
		string(session.Status), boolToInt(session.IsActive),
		nullString(session.StartedDate), nullString(session.CompletedDate),
		nullIntPtr(session.Rating), nullString(session.Review),
		formatTime(session.CreatedAt), formatTime(session.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "idx_sessions_one_active") {
			return store.ErrActiveSessionExists
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
// Returns store.ErrSessionNotFound if the session does not exist.
func (s *Store) GetSession(ctx context.Context, id string) (*domain.ReadingSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM reading_sessions WHERE id = ?`, id)

	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// GetActiveSession retrieves the book's single active session.
// Returns store.ErrSessionNotFound if the book has no active session.
func (s *Store) GetActiveSession(ctx context.Context, bookID string) (*domain.ReadingSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM reading_sessions
		WHERE book_id = ? AND is_active = 1`, bookID)

	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// GetBookSessions returns all sessions for a book, newest attempt first.
func (s *Store) GetBookSessions(ctx context.Context, bookID string) ([]*domain.ReadingSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM reading_sessions
		WHERE book_id = ?
		ORDER BY session_number DESC`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.ReadingSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// UpdateSession writes back a session's mutable fields.
// Returns store.ErrSessionNotFound if the session does not exist.
func (s *Store) UpdateSession(ctx context.Context, session *domain.ReadingSession) error {
	session.UpdatedAt = time.Now()

	res, err := s.db.ExecContext(ctx, `
		UPDATE reading_sessions SET
			status = ?, is_active = ?, started_date = ?, completed_date = ?,
			rating = ?, review = ?, updated_at = ?
		WHERE id = ?`,
		string(session.Status), boolToInt(session.IsActive),
		nullString(session.StartedDate), nullString(session.CompletedDate),
		nullIntPtr(session.Rating), nullString(session.Review),
		formatTime(session.UpdatedAt), session.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "idx_sessions_one_active") {
			return store.ErrActiveSessionExists
		}
		return fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

// TouchSession bumps a session's updated_at without changing anything else.
func (s *Store) TouchSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reading_sessions SET updated_at = ? WHERE id = ?`,
		formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

// NextSessionNumber returns max(session_number)+1 for a book, starting at 1.
// Numbers are never reused, even after deletions of later attempts, because
// the max is taken over all surviving rows at assignment time.
func (s *Store) NextSessionNumber(ctx context.Context, bookID string) (int, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(session_number) FROM reading_sessions WHERE book_id = ?`,
		bookID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("next session number: %w", err)
	}
	return int(max.Int64) + 1, nil
}
