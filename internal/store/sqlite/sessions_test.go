package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/readleafapp/readleaf-server/internal/domain"
	"github.com/readleafapp/readleaf-server/internal/store"
)

func TestCreateAndGetSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestBook(t, s, "book-s1", 1, 300)

	sess := domain.NewReadingSession("sess-1", "book-s1", 1, domain.StatusToRead)
	sess.StartedDate = "2026-08-10"
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, err := s.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.BookID != "book-s1" {
		t.Errorf("BookID: got %q", got.BookID)
	}
	if got.SessionNumber != 1 {
		t.Errorf("SessionNumber: got %d, want 1", got.SessionNumber)
	}
	if got.Status != domain.StatusToRead {
		t.Errorf("Status: got %q", got.Status)
	}
	if !got.IsActive {
		t.Error("IsActive: expected true")
	}
	if got.StartedDate != "2026-08-10" {
		t.Errorf("StartedDate: got %q", got.StartedDate)
	}
	if got.CompletedDate != "" {
		t.Errorf("CompletedDate: got %q, want empty", got.CompletedDate)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetSession(context.Background(), "missing")
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestOnlyOneActiveSessionPerBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestBook(t, s, "book-s2", 2, 300)

	first := domain.NewReadingSession("sess-2a", "book-s2", 1, domain.StatusReading)
	if err := s.CreateSession(ctx, first); err != nil {
		t.Fatalf("CreateSession first: %v", err)
	}

	second := domain.NewReadingSession("sess-2b", "book-s2", 2, domain.StatusToRead)
	err := s.CreateSession(ctx, second)
	if !errors.Is(err, store.ErrActiveSessionExists) {
		t.Fatalf("expected ErrActiveSessionExists, got %v", err)
	}

	// Archiving the first frees the slot.
	first.Archive()
	if err := s.UpdateSession(ctx, first); err != nil {
		t.Fatalf("UpdateSession archive: %v", err)
	}
	if err := s.CreateSession(ctx, second); err != nil {
		t.Fatalf("CreateSession after archive: %v", err)
	}
}

func TestSessionNumberUniquePerBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestBook(t, s, "book-s3", 3, 300)

	first := domain.NewReadingSession("sess-3a", "book-s3", 1, domain.StatusRead)
	first.IsActive = false
	if err := s.CreateSession(ctx, first); err != nil {
		t.Fatalf("CreateSession first: %v", err)
	}

	dup := domain.NewReadingSession("sess-3b", "book-s3", 1, domain.StatusToRead)
	err := s.CreateSession(ctx, dup)
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGetActiveSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestBook(t, s, "book-s4", 4, 300)

	archived := domain.NewReadingSession("sess-4a", "book-s4", 1, domain.StatusDNF)
	archived.IsActive = false
	if err := s.CreateSession(ctx, archived); err != nil {
		t.Fatalf("CreateSession archived: %v", err)
	}

	_, err := s.GetActiveSession(ctx, "book-s4")
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound with only archived sessions, got %v", err)
	}

	active := domain.NewReadingSession("sess-4b", "book-s4", 2, domain.StatusReading)
	if err := s.CreateSession(ctx, active); err != nil {
		t.Fatalf("CreateSession active: %v", err)
	}

	got, err := s.GetActiveSession(ctx, "book-s4")
	if err != nil {
		t.Fatalf("GetActiveSession: %v", err)
	}
	if got.ID != "sess-4b" {
		t.Errorf("got %q, want sess-4b", got.ID)
	}
}

func TestGetBookSessionsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestBook(t, s, "book-s5", 5, 300)

	for i := 1; i <= 3; i++ {
		sess := domain.NewReadingSession(
			"sess-5-"+string(rune('a'+i-1)), "book-s5", i, domain.StatusRead)
		sess.IsActive = i == 3
		if err := s.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession %d: %v", i, err)
		}
	}

	sessions, err := s.GetBookSessions(ctx, "book-s5")
	if err != nil {
		t.Fatalf("GetBookSessions: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	for i, want := range []int{3, 2, 1} {
		if sessions[i].SessionNumber != want {
			t.Errorf("sessions[%d]: got number %d, want %d", i, sessions[i].SessionNumber, want)
		}
	}
}

func TestNextSessionNumber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestBook(t, s, "book-s6", 6, 300)

	n, err := s.NextSessionNumber(ctx, "book-s6")
	if err != nil {
		t.Fatalf("NextSessionNumber: %v", err)
	}
	if n != 1 {
		t.Errorf("fresh book: got %d, want 1", n)
	}

	sess := domain.NewReadingSession("sess-6a", "book-s6", 4, domain.StatusRead)
	sess.IsActive = false
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	n, err = s.NextSessionNumber(ctx, "book-s6")
	if err != nil {
		t.Fatalf("NextSessionNumber: %v", err)
	}
	if n != 5 {
		t.Errorf("after number 4 exists: got %d, want 5", n)
	}
}

func TestUpdateSessionFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestBook(t, s, "book-s7", 7, 300)

	sess := domain.NewReadingSession("sess-7", "book-s7", 1, domain.StatusReading)
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	rating := 5
	sess.Status = domain.StatusRead
	sess.CompletedDate = "2026-08-20"
	sess.Rating = &rating
	sess.Review = "Loved it."
	if err := s.UpdateSession(ctx, sess); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}

	got, err := s.GetSession(ctx, "sess-7")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Status != domain.StatusRead {
		t.Errorf("Status: got %q", got.Status)
	}
	if got.CompletedDate != "2026-08-20" {
		t.Errorf("CompletedDate: got %q", got.CompletedDate)
	}
	if got.Rating == nil || *got.Rating != 5 {
		t.Errorf("Rating: got %v", got.Rating)
	}
	if got.Review != "Loved it." {
		t.Errorf("Review: got %q", got.Review)
	}
}
