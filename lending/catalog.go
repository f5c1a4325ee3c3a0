package lending

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

func newBookID() BookID {
	return uuid.NewString()
}

// AddBook creates a catalog entry from the supplied attributes. An empty id
// lets the ledger allocate one; a supplied id that already exists fails with
// ErrDuplicateBookID. The new entry starts available with a zero counter.
func (l *Ledger) AddBook(ctx context.Context, book NewBook) (Book, error) {
	start := time.Now()

	added, err := l.addBook(ctx, book)
	l.finishOperation(opAddBook, start, err)

	return added, err
}

func (l *Ledger) addBook(ctx context.Context, book NewBook) (Book, error) {
	if err := book.validate(); err != nil {
		return Book{}, err
	}

	id := strings.TrimSpace(book.ID)
	if id == "" {
		id = newBookID()
	}

	lock := l.bookLock(id)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	if _, exists := l.books[id]; exists {
		l.mu.Unlock()
		return Book{}, ErrDuplicateBookID
	}

	entry := &Book{
		ID:          id,
		Title:       strings.TrimSpace(book.Title),
		Author:      strings.TrimSpace(book.Author),
		Tags:        slices.Clone(book.Tags),
		Publisher:   book.Publisher,
		ISBN:        book.ISBN,
		Pages:       book.Pages,
		Language:    book.Language,
		CoverURL:    book.CoverURL,
		Description: book.Description,
		Available:   true,
		CreatedAt:   l.clock(),
	}
	l.books[id] = entry
	added := entry.clone()
	l.mu.Unlock()

	undo := func() {
		delete(l.books, id)
	}
	if err := l.persistAfterCommit(ctx, persistCatalog, undo); err != nil {
		return Book{}, err
	}

	l.logOperation(opAddBook, logAttrBookID, id)

	return added, nil
}

// EditBook merges the non-nil patch fields into the book. Availability, the
// times-issued counter, the rating, and the reviews are ledger-owned and
// cannot be edited.
func (l *Ledger) EditBook(ctx context.Context, id BookID, patch BookPatch) (Book, error) {
	start := time.Now()

	edited, err := l.editBook(ctx, id, patch)
	l.finishOperation(opEditBook, start, err)

	return edited, err
}

func (l *Ledger) editBook(ctx context.Context, id BookID, patch BookPatch) (Book, error) {
	if err := patch.validate(); err != nil {
		return Book{}, err
	}

	lock := l.bookLock(id)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	book, ok := l.books[id]
	if !ok {
		l.mu.Unlock()
		return Book{}, ErrBookNotFound
	}

	prior := book.clone()
	patch.applyTo(book)
	edited := book.clone()
	l.mu.Unlock()

	undo := func() {
		*book = prior
	}
	if err := l.persistAfterCommit(ctx, persistCatalog, undo); err != nil {
		return Book{}, err
	}

	l.logOperation(opEditBook, logAttrBookID, id)

	return edited, nil
}

// RemoveBook deletes a catalog entry and retracts its id from every
// borrower's favorites. A book with an open loan cannot be removed; its
// closed loan records stay in the ledger for history and auditing.
func (l *Ledger) RemoveBook(ctx context.Context, id BookID) error {
	start := time.Now()

	err := l.removeBook(ctx, id)
	l.finishOperation(opRemoveBook, start, err)

	return err
}

func (l *Ledger) removeBook(ctx context.Context, id BookID) error {
	lock := l.bookLock(id)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	book, ok := l.books[id]
	if !ok {
		l.mu.Unlock()
		return ErrBookNotFound
	}

	if _, onLoan := l.activeByBook[id]; onLoan {
		l.mu.Unlock()
		return ErrBookInUse
	}

	delete(l.books, id)

	var retractedFrom []*BorrowerProfile
	for _, profile := range l.profiles {
		if profile.removeFavorite(id) {
			retractedFrom = append(retractedFrom, profile)
		}
	}
	l.mu.Unlock()

	undo := func() {
		l.books[id] = book
		// Membership is restored; the slot within the favorites list is not.
		for _, profile := range retractedFrom {
			profile.Favorites = append(profile.Favorites, id)
		}
	}
	if err := l.persistAfterCommit(ctx, persistCatalog|persistProfiles, undo); err != nil {
		return err
	}

	l.logOperation(opRemoveBook, logAttrBookID, id)

	return nil
}

// AddReview appends a borrower's rating to the book and recomputes the mean
// rating. The borrower must be registered.
func (l *Ledger) AddReview(ctx context.Context, bookID BookID, borrowerID BorrowerID, rating int, comment string) (Book, error) {
	start := time.Now()

	reviewed, err := l.addReview(ctx, bookID, borrowerID, rating, comment)
	l.finishOperation(opAddReview, start, err)

	return reviewed, err
}

func (l *Ledger) addReview(ctx context.Context, bookID BookID, borrowerID BorrowerID, rating int, comment string) (Book, error) {
	if rating < 1 || rating > 5 {
		return Book{}, ErrInvalidRating
	}

	lock := l.bookLock(bookID)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	book, ok := l.books[bookID]
	if !ok {
		l.mu.Unlock()
		return Book{}, ErrBookNotFound
	}

	if _, ok = l.profiles[borrowerID]; !ok {
		l.mu.Unlock()
		return Book{}, ErrBorrowerNotFound
	}

	prior := book.clone()
	book.Reviews = append(book.Reviews, Review{
		BorrowerID: borrowerID,
		Rating:     rating,
		Comment:    strings.TrimSpace(comment),
		AddedAt:    l.clock(),
	})
	book.Rating = book.meanRating()
	reviewed := book.clone()
	l.mu.Unlock()

	undo := func() {
		*book = prior
	}
	if err := l.persistAfterCommit(ctx, persistCatalog, undo); err != nil {
		return Book{}, err
	}

	l.logOperation(opAddReview, logAttrBookID, bookID, logAttrBorrowerID, borrowerID)

	return reviewed, nil
}

// GetBook returns a copy of the catalog entry.
func (l *Ledger) GetBook(id BookID) (Book, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	book, ok := l.books[id]
	if !ok {
		return Book{}, ErrBookNotFound
	}

	return book.clone(), nil
}

// ListBooks returns copies of every catalog entry matching the filter,
// ordered by book id ascending.
func (l *Ledger) ListBooks(filter Filter) []Book {
	l.mu.RLock()
	out := make([]Book, 0, len(l.books))
	for _, book := range l.books {
		if filter.Matches(*book) {
			out = append(out, book.clone())
		}
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}
