package lending

import (
	"context"
	"sort"
	"strings"
	"time"
)

// RegisterBorrower creates a profile for a new borrower. The id is
// caller-supplied (an email or account id from the excluded auth layer);
// registering an existing id fails with ErrDuplicateBorrower.
func (l *Ledger) RegisterBorrower(ctx context.Context, id BorrowerID, name, email string) (BorrowerProfile, error) {
	start := time.Now()

	registered, err := l.registerBorrower(ctx, id, name, email)
	l.finishOperation(opRegisterBorrower, start, err)

	return registered, err
}

func (l *Ledger) registerBorrower(ctx context.Context, id BorrowerID, name, email string) (BorrowerProfile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return BorrowerProfile{}, ErrMissingBorrowerID
	}

	lock := l.borrowerLock(id)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	if _, exists := l.profiles[id]; exists {
		l.mu.Unlock()
		return BorrowerProfile{}, ErrDuplicateBorrower
	}

	profile := &BorrowerProfile{
		ID:       id,
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		JoinedAt: l.clock(),
	}
	l.profiles[id] = profile
	registered := profile.clone()
	l.mu.Unlock()

	undo := func() {
		delete(l.profiles, id)
	}
	if err := l.persistAfterCommit(ctx, persistProfiles, undo); err != nil {
		return BorrowerProfile{}, err
	}

	l.logOperation(opRegisterBorrower, logAttrBorrowerID, id)

	return registered, nil
}

// AddFavorite puts bookID into the borrower's favorites. Favorites are
// independent of loan state: a borrower may favorite a book they hold or
// one on loan to someone else.
func (l *Ledger) AddFavorite(ctx context.Context, borrowerID BorrowerID, bookID BookID) error {
	start := time.Now()

	err := l.addFavorite(ctx, borrowerID, bookID)
	l.finishOperation(opAddFavorite, start, err)

	return err
}

func (l *Ledger) addFavorite(ctx context.Context, borrowerID BorrowerID, bookID BookID) error {
	lock := l.borrowerLock(borrowerID)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	profile, ok := l.profiles[borrowerID]
	if !ok {
		l.mu.Unlock()
		return ErrBorrowerNotFound
	}

	if _, ok = l.books[bookID]; !ok {
		l.mu.Unlock()
		return ErrBookNotFound
	}

	if profile.IsFavorite(bookID) {
		l.mu.Unlock()
		return ErrAlreadyFavorite
	}

	profile.Favorites = append(profile.Favorites, bookID)
	l.mu.Unlock()

	undo := func() {
		profile.removeFavorite(bookID)
	}
	if err := l.persistAfterCommit(ctx, persistProfiles, undo); err != nil {
		return err
	}

	l.logOperation(opAddFavorite, logAttrBorrowerID, borrowerID, logAttrBookID, bookID)

	return nil
}

// RemoveFavorite drops bookID from the borrower's favorites. Removing a
// book that is not a favorite fails with ErrNotFavorite and changes
// nothing, so repeated removals are safe.
func (l *Ledger) RemoveFavorite(ctx context.Context, borrowerID BorrowerID, bookID BookID) error {
	start := time.Now()

	err := l.removeFavorite(ctx, borrowerID, bookID)
	l.finishOperation(opRemoveFavorite, start, err)

	return err
}

func (l *Ledger) removeFavorite(ctx context.Context, borrowerID BorrowerID, bookID BookID) error {
	lock := l.borrowerLock(borrowerID)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	profile, ok := l.profiles[borrowerID]
	if !ok {
		l.mu.Unlock()
		return ErrBorrowerNotFound
	}

	if !profile.removeFavorite(bookID) {
		l.mu.Unlock()
		return ErrNotFavorite
	}
	l.mu.Unlock()

	undo := func() {
		// Membership is restored; the slot within the favorites list is not.
		profile.Favorites = append(profile.Favorites, bookID)
	}
	if err := l.persistAfterCommit(ctx, persistProfiles, undo); err != nil {
		return err
	}

	l.logOperation(opRemoveFavorite, logAttrBorrowerID, borrowerID, logAttrBookID, bookID)

	return nil
}

// Profile returns a copy of the borrower's profile.
func (l *Ledger) Profile(borrowerID BorrowerID) (BorrowerProfile, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	profile, ok := l.profiles[borrowerID]
	if !ok {
		return BorrowerProfile{}, ErrBorrowerNotFound
	}

	return profile.clone(), nil
}

// Borrowers returns copies of every profile, ordered by borrower id.
func (l *Ledger) Borrowers() []BorrowerProfile {
	l.mu.RLock()
	out := make([]BorrowerProfile, 0, len(l.profiles))
	for _, profile := range l.profiles {
		out = append(out, profile.clone())
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}
