package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readleafapp/readleaf-server/internal/calibre"
	"github.com/readleafapp/readleaf-server/internal/store"
)

// fakeCalibre serves a fixed book list.
type fakeCalibre struct {
	books []calibre.Book
}

func (f *fakeCalibre) ReadBooks(context.Context) ([]calibre.Book, error) {
	return f.books, nil
}

// fakeSearcher returns fixed IDs for any query.
type fakeSearcher struct {
	ids []string
}

func (f *fakeSearcher) SearchBooks(context.Context, string, int) ([]string, error) {
	return f.ids, nil
}

func setupLibraryService(t *testing.T, cal CalibreSource) (*LibraryService, store.Store) {
	t.Helper()
	st := newTestStore(t)
	return NewLibraryService(st, cal, testLogger()), st
}

func TestIngestCalibreAddsAndUpdates(t *testing.T) {
	rating := 4
	cal := &fakeCalibre{books: []calibre.Book{
		{CalibreID: 1, Title: "Dune", Authors: []string{"Frank Herbert"}, Rating: &rating},
		{CalibreID: 2, Title: "Hyperion", Authors: []string{"Dan Simmons"}},
	}}
	svc, st := setupLibraryService(t, cal)
	ctx := context.Background()

	res, err := svc.IngestCalibre(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 0, res.Updated)

	// Second pass with no changes.
	res, err = svc.IngestCalibre(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 2, res.Unchanged)

	// Calibre rename flows through; local fields survive.
	book, err := st.GetBookByCalibreID(ctx, 1)
	require.NoError(t, err)
	pages := 412
	book.TotalPages = &pages
	require.NoError(t, st.UpdateBook(ctx, book))

	cal.books[0].Title = "Dune (Deluxe Edition)"
	res, err = svc.IngestCalibre(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	book, err = st.GetBookByCalibreID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Dune (Deluxe Edition)", book.Title)
	require.NotNil(t, book.TotalPages)
	assert.Equal(t, 412, *book.TotalPages)
}

func TestIngestCalibreSeedsPageCounts(t *testing.T) {
	cal := &fakeCalibre{books: []calibre.Book{
		{CalibreID: 1, Title: "Dune", Authors: []string{"Frank Herbert"}, Pages: intp(412)},
		{CalibreID: 2, Title: "Hyperion", Authors: []string{"Dan Simmons"}},
	}}
	svc, st := setupLibraryService(t, cal)
	ctx := context.Background()

	_, err := svc.IngestCalibre(ctx)
	require.NoError(t, err)

	book, err := st.GetBookByCalibreID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, book.TotalPages)
	assert.Equal(t, 412, *book.TotalPages)

	book, err = st.GetBookByCalibreID(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, book.TotalPages)

	// The column appearing later fills a still-unset count.
	cal.books[1].Pages = intp(500)
	res, err := svc.IngestCalibre(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	book, err = st.GetBookByCalibreID(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, book.TotalPages)
	assert.Equal(t, 500, *book.TotalPages)

	// A locally edited count is never overwritten by Calibre.
	local := 450
	book.TotalPages = &local
	require.NoError(t, st.UpdateBook(ctx, book))
	cal.books[1].Pages = intp(999)

	_, err = svc.IngestCalibre(ctx)
	require.NoError(t, err)
	book, err = st.GetBookByCalibreID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 450, *book.TotalPages)
}

func TestIngestCalibreWithoutLibrary(t *testing.T) {
	svc, _ := setupLibraryService(t, nil)

	_, err := svc.IngestCalibre(context.Background())
	require.Error(t, err)
	assert.Equal(t, "No Calibre library configured", err.Error())
}

func TestUpdateBookTotalPages(t *testing.T) {
	svc, st := setupLibraryService(t, nil)
	ctx := context.Background()

	createTestBook(t, st, "book-1", 1, 0)

	book, err := svc.UpdateBook(ctx, "book-1", UpdateBookInput{TotalPages: intp(350)})
	require.NoError(t, err)
	require.NotNil(t, book.TotalPages)
	assert.Equal(t, 350, *book.TotalPages)

	_, err = svc.UpdateBook(ctx, "book-1", UpdateBookInput{TotalPages: intp(0)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive")

	_, err = svc.UpdateBook(ctx, "book-1", UpdateBookInput{Rating: floatp(3.5)})
	require.Error(t, err)
}

func TestSearchBooksSkipsStaleHits(t *testing.T) {
	svc, st := setupLibraryService(t, nil)
	ctx := context.Background()

	createTestBook(t, st, "book-1", 1, 0)
	svc.SetSearcher(&fakeSearcher{ids: []string{"book-1", "book-deleted"}})

	books, err := svc.SearchBooks(ctx, "anything", 10)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "book-1", books[0].ID)
}
