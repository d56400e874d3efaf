// Package memstore provides map-backed implementations of the catalog,
// ledger and user stores. It backs unit tests and the server's DSN-less
// development mode.
//
// Availability adjustments lock only the targeted book, so operations on
// different books never serialize against each other; status transitions
// are a compare-and-set under the ledger lock.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSuraphong/library-testing/internal/lending"
	"github.com/MrSuraphong/library-testing/internal/model"
)

type bookEntry struct {
	mu   sync.Mutex
	book model.Book
}

type txEntry struct {
	tx  model.Transaction
	seq uint64
}

var (
	_ lending.CatalogStore = (*Store)(nil)
	_ lending.LoanLedger   = (*Store)(nil)
)

// Store holds the whole library state in memory.
type Store struct {
	mu    sync.RWMutex // guards the books map itself
	books map[string]*bookEntry

	txMu  sync.Mutex
	txs   map[string]*txEntry
	txSeq uint64

	userMu sync.RWMutex
	users  map[string]*model.User // keyed by id

	now func() time.Time
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		books: make(map[string]*bookEntry),
		txs:   make(map[string]*txEntry),
		users: make(map[string]*model.User),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the store's clock. Used by tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// ─── Catalog ──────────────────────────────────────────────────────────────────

// CreateBook inserts a new catalog entry with all copies available.
func (s *Store) CreateBook(ctx context.Context, req model.CreateBookRequest) (*model.Book, error) {
	now := s.now()
	book := model.Book{
		ID:              uuid.New().String(),
		Title:           req.Title,
		Author:          req.Author,
		TotalCopies:     req.Quantity,
		AvailableCopies: req.Quantity,
		CoverImage:      req.CoverImage,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.mu.Lock()
	s.books[book.ID] = &bookEntry{book: book}
	s.mu.Unlock()

	out := book
	return &out, nil
}

// GetBook returns a copy of the book or lending.ErrNotFound.
func (s *Store) GetBook(ctx context.Context, id string) (*model.Book, error) {
	s.mu.RLock()
	entry, ok := s.books[id]
	s.mu.RUnlock()
	if !ok {
		return nil, lending.ErrNotFound
	}

	entry.mu.Lock()
	book := entry.book
	entry.mu.Unlock()
	return &book, nil
}

// ListBooks returns all books ordered by creation time descending.
func (s *Store) ListBooks(ctx context.Context) ([]model.Book, error) {
	s.mu.RLock()
	entries := make([]*bookEntry, 0, len(s.books))
	for _, entry := range s.books {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	books := make([]model.Book, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		books = append(books, entry.book)
		entry.mu.Unlock()
	}
	sort.Slice(books, func(i, j int) bool {
		if !books[i].CreatedAt.Equal(books[j].CreatedAt) {
			return books[i].CreatedAt.After(books[j].CreatedAt)
		}
		return books[i].ID < books[j].ID
	})
	return books, nil
}

// AdjustAvailability applies availableCopies += delta as an atomic
// check-and-write under the book's own lock.
func (s *Store) AdjustAvailability(ctx context.Context, id string, delta int) (*model.Book, error) {
	s.mu.RLock()
	entry, ok := s.books[id]
	s.mu.RUnlock()
	if !ok {
		return nil, lending.ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	next := entry.book.AvailableCopies + delta
	if next < 0 {
		return nil, lending.ErrInsufficientCopies
	}
	if next > entry.book.TotalCopies {
		return nil, lending.ErrCapacityExceeded
	}
	entry.book.AvailableCopies = next
	entry.book.UpdatedAt = s.now()

	book := entry.book
	return &book, nil
}

// UpdateBook edits a catalog entry. When TotalCopies changes, available is
// re-derived as total minus the book's active loans; shrinking the total
// below the active loan count fails with lending.ErrConflict.
func (s *Store) UpdateBook(ctx context.Context, id string, req model.UpdateBookRequest) (*model.Book, error) {
	s.mu.RLock()
	entry, ok := s.books[id]
	s.mu.RUnlock()
	if !ok {
		return nil, lending.ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if req.Title != nil {
		entry.book.Title = strings.TrimSpace(*req.Title)
	}
	if req.Author != nil {
		entry.book.Author = strings.TrimSpace(*req.Author)
	}
	if req.CoverImage != nil {
		entry.book.CoverImage = *req.CoverImage
	}
	if req.TotalCopies != nil {
		active := s.countActive(id)
		if *req.TotalCopies < active {
			return nil, lending.ErrConflict
		}
		entry.book.TotalCopies = *req.TotalCopies
		entry.book.AvailableCopies = *req.TotalCopies - active
	}
	entry.book.UpdatedAt = s.now()

	book := entry.book
	return &book, nil
}

// DeleteBook removes a catalog entry, failing with lending.ErrConflict
// while unreturned loans still reference it.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return lending.ErrNotFound
	}
	if s.countActive(id) > 0 {
		return lending.ErrConflict
	}
	delete(s.books, id)
	return nil
}

// countActive reports the book's unreturned loans. Callers hold a catalog
// lock, so the count cannot race a concurrent delete of the same book.
func (s *Store) countActive(bookID string) int {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	n := 0
	for _, entry := range s.txs {
		if entry.tx.BookID == bookID && entry.tx.Status == model.StatusBorrowed {
			n++
		}
	}
	return n
}

// ─── Ledger ───────────────────────────────────────────────────────────────────

// CreateTransaction appends a new borrowed transaction.
func (s *Store) CreateTransaction(ctx context.Context, userID, bookID string) (*model.Transaction, error) {
	tx := model.Transaction{
		ID:         uuid.New().String(),
		BookID:     bookID,
		UserID:     userID,
		Status:     model.StatusBorrowed,
		BorrowDate: s.now(),
	}

	s.txMu.Lock()
	s.txSeq++
	s.txs[tx.ID] = &txEntry{tx: tx, seq: s.txSeq}
	s.txMu.Unlock()

	out := tx
	return &out, nil
}

// MarkReturned transitions borrowed -> returned exactly once.
func (s *Store) MarkReturned(ctx context.Context, id string, returnDate time.Time) (*model.Transaction, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	entry, ok := s.txs[id]
	if !ok {
		return nil, lending.ErrNotFound
	}
	if entry.tx.Status == model.StatusReturned {
		return nil, lending.ErrAlreadyReturned
	}
	entry.tx.Status = model.StatusReturned
	rd := returnDate
	entry.tx.ReturnDate = &rd

	tx := entry.tx
	return &tx, nil
}

// FindActiveByUser returns the user's borrowed transactions, newest first.
func (s *Store) FindActiveByUser(ctx context.Context, userID string) ([]model.Transaction, error) {
	return s.findByUser(userID, true), nil
}

// FindAllByUser returns the user's full history, newest first.
func (s *Store) FindAllByUser(ctx context.Context, userID string) ([]model.Transaction, error) {
	return s.findByUser(userID, false), nil
}

func (s *Store) findByUser(userID string, activeOnly bool) []model.Transaction {
	s.txMu.Lock()
	entries := make([]*txEntry, 0)
	for _, entry := range s.txs {
		if entry.tx.UserID != userID {
			continue
		}
		if activeOnly && entry.tx.Status != model.StatusBorrowed {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].tx.BorrowDate.Equal(entries[j].tx.BorrowDate) {
			return entries[i].tx.BorrowDate.After(entries[j].tx.BorrowDate)
		}
		return entries[i].seq > entries[j].seq
	})
	txs := make([]model.Transaction, 0, len(entries))
	for _, entry := range entries {
		tx := entry.tx
		if tx.ReturnDate != nil {
			rd := *tx.ReturnDate
			tx.ReturnDate = &rd
		}
		txs = append(txs, tx)
	}
	s.txMu.Unlock()
	return txs
}

// ─── Users ────────────────────────────────────────────────────────────────────

// CreateUser inserts a user, failing with lending.ErrConflict on a
// duplicate username.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	s.userMu.Lock()
	defer s.userMu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return lending.ErrConflict
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

// GetUser returns a user by id or lending.ErrNotFound.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	s.userMu.RLock()
	defer s.userMu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, lending.ErrNotFound
	}
	out := *user
	return &out, nil
}

// GetUserByUsername returns a user by username or lending.ErrNotFound.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.userMu.RLock()
	defer s.userMu.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			out := *user
			return &out, nil
		}
	}
	return nil, lending.ErrNotFound
}

// UpdateUser replaces the mutable profile fields of a user.
func (s *Store) UpdateUser(ctx context.Context, id string, profilePicture, bio string) (*model.User, error) {
	s.userMu.Lock()
	defer s.userMu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, lending.ErrNotFound
	}
	user.ProfilePicture = profilePicture
	user.Bio = bio
	out := *user
	return &out, nil
}
