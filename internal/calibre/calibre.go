// Package calibre reads book metadata out of a Calibre library's
// metadata.db. The database is opened read-only; Calibre stays the owner
// of all bibliographic metadata.
package calibre

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// MetadataFile is the well-known database filename inside a Calibre library.
const MetadataFile = "metadata.db"

// Book is one row of Calibre metadata, reduced to the fields the tracker
// consumes.
type Book struct {
	CalibreID int64
	Title     string
	Authors   []string
	Rating    *int // 1-5, already halved from Calibre's 0-10 scale
	Pages     *int // from the count_pages custom column, when the library has one
}

// Reader reads from a Calibre metadata.db.
type Reader struct {
	db   *sql.DB
	path string
}

// Open opens the metadata.db inside libraryPath read-only.
func Open(libraryPath string) (*Reader, error) {
	dbPath := filepath.Join(libraryPath, MetadataFile)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("calibre library at %s: %w", libraryPath, err)
	}

	// immutable would be wrong here: Calibre rewrites the file in place and
	// the watcher re-reads it, so plain read-only mode is what we want.
	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open calibre metadata: %w", err)
	}
	return &Reader{db: db, path: dbPath}, nil
}

// Close closes the underlying database.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Path returns the metadata.db path, for the filesystem watcher.
func (r *Reader) Path() string {
	return r.path
}

// authorSep joins multi-author names in the aggregated query. Unit
// separator, because author names routinely contain commas.
const authorSep = "\x1f"

// pageCounts reads the count_pages custom column, keyed by Calibre book ID.
// Custom columns live in per-column tables named custom_column_<id>; the
// column registry maps labels to those IDs. Libraries without the column
// (or without any custom columns at all) yield an empty map.
func (r *Reader) pageCounts(ctx context.Context) (map[int64]int, error) {
	var registry string
	err := r.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'custom_columns'`).Scan(&registry)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("probe custom columns: %w", err)
	}

	var columnID int64
	err = r.db.QueryRowContext(ctx,
		`SELECT id FROM custom_columns WHERE label = 'count_pages' AND datatype = 'int'`).Scan(&columnID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve count_pages column: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT book, value FROM custom_column_%d`, columnID))
	if err != nil {
		return nil, fmt.Errorf("query count_pages values: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var book int64
		var value int
		if err := rows.Scan(&book, &value); err != nil {
			return nil, err
		}
		if value > 0 {
			counts[book] = value
		}
	}
	return counts, rows.Err()
}

// ReadBooks returns all books in the library ordered by Calibre ID.
func (r *Reader) ReadBooks(ctx context.Context) ([]Book, error) {
	pages, err := r.pageCounts(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.title,
			(SELECT group_concat(a.name, ?)
				FROM books_authors_link l JOIN authors a ON a.id = l.author
				WHERE l.book = b.id),
			(SELECT r.rating
				FROM books_ratings_link rl JOIN ratings r ON r.id = rl.rating
				WHERE rl.book = b.id)
		FROM books b
		ORDER BY b.id ASC`, authorSep)
	if err != nil {
		return nil, fmt.Errorf("query calibre books: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		var authors sql.NullString
		var rating sql.NullInt64
		if err := rows.Scan(&b.CalibreID, &b.Title, &authors, &rating); err != nil {
			return nil, err
		}
		if authors.Valid && authors.String != "" {
			b.Authors = strings.Split(authors.String, authorSep)
		}
		// Calibre stores ratings as 0-10 half-stars.
		if rating.Valid && rating.Int64 > 0 {
			v := int(rating.Int64 / 2)
			b.Rating = &v
		}
		if p, ok := pages[b.CalibreID]; ok {
			b.Pages = &p
		}
		books = append(books, b)
	}
	return books, rows.Err()
}
