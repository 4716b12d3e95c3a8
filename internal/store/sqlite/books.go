package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"fmt"
	"strings"
	"time"

	"github.com/readleafapp/readleaf-server/internal/domain"
	"github.com/readleafapp/readleaf-server/internal/store"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
const bookColumns = `id, calibre_id, title, authors, total_pages, rating,
	created_at, updated_at`

// scanBook scans a sql.Row (or sql.Rows via its Scan method) into a domain.Book.
func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var b domain.Book

	var (
		authors    string
		totalPages sql.NullInt64
		rating     sql.NullInt64
		createdAt  string
		updatedAt  string
	)

	err := scanner.Scan(
		&b.ID,
		&b.CalibreID,
		&b.Title,
		&authors,
		&totalPages,
		&rating,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.TotalPages = intPtr(totalPages)
	b.Rating = intPtr(rating)

	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	b.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	if authors != "" {
		if err := json.Unmarshal([]byte(authors), &b.Authors); err != nil {
			return nil, fmt.Errorf("unmarshal authors: %w", err)
		}
	}

	return &b, nil
}

// marshalAuthors encodes the author list for the authors text column.
func marshalAuthors(authors []string) (string, error) {
	if len(authors) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(authors)
	if err != nil {
		return "", fmt.Errorf("marshal authors: %w", err)
	}
	return string(raw), nil
}

// CreateBook inserts a book row and indexes it for search.
// Returns store.ErrAlreadyExists if the Calibre ID is already ingested.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	authors, err := marshalAuthors(book.Authors)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO books (
			id, calibre_id, title, authors, total_pages, rating,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID, book.CalibreID, book.Title, authors,
		nullIntPtr(book.TotalPages), nullIntPtr(book.Rating),
		formatTime(book.CreatedAt), formatTime(book.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert book: %w", err)
	}

	if err := s.searchIndexer.IndexBook(ctx, book); err != nil {
		s.logger.Warn("failed to index book", "book_id", book.ID, "error", err)
	}

	return nil
}

// GetBook retrieves a book by ID.
// Returns store.ErrBookNotFound if the book does not exist.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id)

	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetBookByCalibreID retrieves a book by its Calibre library ID.
// Returns store.ErrBookNotFound if no such book has been ingested.
func (s *Store) GetBookByCalibreID(ctx context.Context, calibreID int64) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE calibre_id = ?`, calibreID)

	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBook updates a book row and refreshes the search index.
// Returns store.ErrBookNotFound if the book does not exist.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	authors, err := marshalAuthors(book.Authors)
	if err != nil {
		return err
	}

	book.UpdatedAt = time.Now()

	res, err := s.db.ExecContext(ctx, `
		UPDATE books SET
			title = ?, authors = ?, total_pages = ?, rating = ?, updated_at = ?
		WHERE id = ?`,
		book.Title, authors, nullIntPtr(book.TotalPages), nullIntPtr(book.Rating),
		formatTime(book.UpdatedAt), book.ID,
	)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrBookNotFound
	}

	if err := s.searchIndexer.IndexBook(ctx, book); err != nil {
		s.logger.Warn("failed to reindex book", "book_id", book.ID, "error", err)
	}

	return nil
}

// ListBooks returns all books ordered by title.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY title COLLATE NOCASE ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// DeleteBook removes a book. Sessions and progress logs cascade.
// Returns store.ErrBookNotFound if the book does not exist.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrBookNotFound
	}

	if err := s.searchIndexer.DeleteBook(ctx, id); err != nil {
		s.logger.Warn("failed to remove book from index", "book_id", id, "error", err)
	}

	return nil
}
