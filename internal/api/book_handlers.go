package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/readleafapp/readleaf-server/internal/color"
	"github.com/readleafapp/readleaf-server/internal/domain"
	"github.com/readleafapp/readleaf-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns all books in the library, sorted by title",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/search",
		Summary:     "Search books",
		Description: "Full-text search over book titles and authors",
		Tags:        []string{"Books"},
	}, s.handleSearchBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a book by ID",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Updates tracker-owned book fields (total pages, rating)",
		Tags:        []string{"Books"},
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "ingestLibrary",
		Method:      http.MethodPost,
		Path:        "/api/v1/library/ingest",
		Summary:     "Ingest Calibre library",
		Description: "Scans the configured Calibre library and upserts books",
		Tags:        []string{"Library"},
	}, s.handleIngestLibrary)
}

// === DTOs ===

// BookResponse contains book data in API responses.
type BookResponse struct {
	ID         string    `json:"id" doc:"Book ID"`
	CalibreID  int64     `json:"calibre_id" doc:"ID in the Calibre library"`
	Title      string    `json:"title" doc:"Book title"`
	Authors    []string  `json:"authors,omitempty" doc:"Author names"`
	TotalPages *int      `json:"total_pages,omitempty" doc:"Total pages, if known"`
	Rating     *int      `json:"rating,omitempty" doc:"1-5 star rating"`
	CoverColor string    `json:"cover_color" doc:"Deterministic placeholder color for books without covers"`
	CreatedAt  time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt  time.Time `json:"updated_at" doc:"Last update time"`
}

// ListBooksResponse contains a list of books.
type ListBooksResponse struct {
	Books []BookResponse `json:"books" doc:"List of books"`
}

// ListBooksOutput wraps the list books response for Huma.
type ListBooksOutput struct {
	Body ListBooksResponse
}

// SearchBooksInput contains search query parameters.
type SearchBooksInput struct {
	Query string `query:"q" required:"true" doc:"Search query"`
	Limit int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum results"`
}

// GetBookInput contains parameters for getting a book.
type GetBookInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// UpdateBookRequest is the request body for updating a book.
type UpdateBookRequest struct {
	TotalPages *int     `json:"totalPages,omitempty" doc:"Total pages, must be positive"`
	Rating     *float64 `json:"rating,omitempty" doc:"1-5 star rating"`
}

// UpdateBookInput wraps the update book request for Huma.
type UpdateBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body UpdateBookRequest
}

// BookOutput wraps a single book response for Huma.
type BookOutput struct {
	Body BookResponse
}

// IngestResponse reports the outcome of a library ingest.
type IngestResponse struct {
	Added     int `json:"added" doc:"Books created"`
	Updated   int `json:"updated" doc:"Books with refreshed metadata"`
	Unchanged int `json:"unchanged" doc:"Books already up to date"`
}

// IngestOutput wraps the ingest response for Huma.
type IngestOutput struct {
	Body IngestResponse
}

func toBookResponse(b *domain.Book) BookResponse {
	return BookResponse{
		ID:         b.ID,
		CalibreID:  b.CalibreID,
		Title:      b.Title,
		Authors:    b.Authors,
		TotalPages: b.TotalPages,
		Rating:     b.Rating,
		CoverColor: color.ForBook(b.ID),
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func toBookList(books []*domain.Book) ListBooksResponse {
	resp := make([]BookResponse, len(books))
	for i, b := range books {
		resp[i] = toBookResponse(b)
	}
	return ListBooksResponse{Books: resp}
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, _ *struct{}) (*ListBooksOutput, error) {
	books, err := s.services.Library.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	return &ListBooksOutput{Body: toBookList(books)}, nil
}

func (s *Server) handleSearchBooks(ctx context.Context, input *SearchBooksInput) (*ListBooksOutput, error) {
	books, err := s.services.Library.SearchBooks(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, err
	}
	return &ListBooksOutput{Body: toBookList(books)}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*BookOutput, error) {
	book, err := s.services.Library.GetBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: toBookResponse(book)}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	book, err := s.services.Library.UpdateBook(ctx, input.ID, service.UpdateBookInput{
		TotalPages: input.Body.TotalPages,
		Rating:     input.Body.Rating,
	})
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: toBookResponse(book)}, nil
}

func (s *Server) handleIngestLibrary(ctx context.Context, _ *struct{}) (*IngestOutput, error) {
	result, err := s.services.Library.IngestCalibre(ctx)
	if err != nil {
		return nil, err
	}
	return &IngestOutput{Body: IngestResponse{
		Added:     result.Added,
		Updated:   result.Updated,
		Unchanged: result.Unchanged,
	}}, nil
}
