package lending

import (
	"sort"
	"strings"
)

// Scoring weights of the hybrid recommender. A shared author with the seed
// set outweighs everything else, then tag overlap, then popularity, then a
// small bonus for being on the shelf right now.
const (
	scoreAuthorMatch       = 6.0
	scorePerTagOverlap     = 2.0
	scorePopularityDivisor = 5.0
	scoreAvailability      = 1.0

	seedSize = 3
)

type scoredBook struct {
	book  *Book
	score float64
}

// Recommend ranks catalog books for a borrower. It is a pure projection:
// the same catalog, ledger, and profile state always yields the same
// ordered result.
//
// Borrowers without history (no loans, no favorites) get the most popular
// available books. Otherwise the borrower's up-to-three most recently
// issued books form a seed; every book outside the history is scored by
// author match, tag overlap with the seed (case-insensitive), popularity,
// and availability, ranked descending with ties by book id. Should fewer
// than topN books score above zero, popular available books pad the tail.
func (l *Ledger) Recommend(borrowerID BorrowerID, topN int) []Book {
	if topN <= 0 {
		return nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	history := l.historyLocked(borrowerID)
	if len(history) == 0 {
		return l.popularAvailableLocked(topN, nil)
	}

	seedAuthors, seedTags := l.seedTraitsLocked(borrowerID)

	scored := make([]scoredBook, 0, len(l.books))
	for _, book := range l.books {
		if _, known := history[book.ID]; known {
			continue
		}

		if score := scoreBook(book, seedAuthors, seedTags); score > 0 {
			scored = append(scored, scoredBook{book: book, score: score})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}

		return scored[i].book.ID < scored[j].book.ID
	})

	out := make([]Book, 0, topN)
	selected := make(map[BookID]struct{}, topN)
	for _, candidate := range scored {
		if len(out) == topN {
			break
		}

		out = append(out, candidate.book.clone())
		selected[candidate.book.ID] = struct{}{}
	}

	if len(out) < topN {
		exclude := make(map[BookID]struct{}, len(history)+len(selected))
		for id := range history {
			exclude[id] = struct{}{}
		}
		for id := range selected {
			exclude[id] = struct{}{}
		}

		out = append(out, l.popularAvailableLocked(topN-len(out), exclude)...)
	}

	return out
}

// historyLocked collects the distinct book ids the borrower has ever been
// issued, plus their favorites.
func (l *Ledger) historyLocked(borrowerID BorrowerID) map[BookID]struct{} {
	history := make(map[BookID]struct{})
	for _, record := range l.records {
		if record.BorrowerID == borrowerID {
			history[record.BookID] = struct{}{}
		}
	}

	if profile, ok := l.profiles[borrowerID]; ok {
		for _, id := range profile.Favorites {
			history[id] = struct{}{}
		}
	}

	return history
}

// seedLocked returns the borrower's up-to-three distinct most recently
// issued book ids. Favorites never issued carry no issue time and cannot
// seed. The stable sort keeps equal issue times in append order, so the
// seed is deterministic.
func (l *Ledger) seedLocked(borrowerID BorrowerID) []BookID {
	var borrowed []*LoanRecord
	for _, record := range l.records {
		if record.BorrowerID == borrowerID {
			borrowed = append(borrowed, record)
		}
	}

	sort.SliceStable(borrowed, func(i, j int) bool {
		return borrowed[i].IssuedAt.Before(borrowed[j].IssuedAt)
	})

	seen := make(map[BookID]struct{}, seedSize)
	seed := make([]BookID, 0, seedSize)
	for i := len(borrowed) - 1; i >= 0 && len(seed) < seedSize; i-- {
		id := borrowed[i].BookID
		if _, dup := seen[id]; dup {
			continue
		}

		seen[id] = struct{}{}
		seed = append(seed, id)
	}

	return seed
}

// seedTraitsLocked derives the lowercased author and tag sets of the seed
// books. Seed books since removed from the catalog contribute nothing.
func (l *Ledger) seedTraitsLocked(borrowerID BorrowerID) (seedAuthors, seedTags map[string]struct{}) {
	seedAuthors = make(map[string]struct{})
	seedTags = make(map[string]struct{})

	for _, id := range l.seedLocked(borrowerID) {
		book, ok := l.books[id]
		if !ok {
			continue
		}

		if author := normalized(book.Author); author != "" {
			seedAuthors[author] = struct{}{}
		}

		for _, tag := range book.Tags {
			if tag = normalized(tag); tag != "" {
				seedTags[tag] = struct{}{}
			}
		}
	}

	return seedAuthors, seedTags
}

func scoreBook(book *Book, seedAuthors, seedTags map[string]struct{}) float64 {
	score := 0.0

	if author := normalized(book.Author); author != "" {
		if _, match := seedAuthors[author]; match {
			score += scoreAuthorMatch
		}
	}

	// Tag overlap is a set intersection; duplicate tags on a book count once.
	bookTags := make(map[string]struct{}, len(book.Tags))
	for _, tag := range book.Tags {
		if tag = normalized(tag); tag != "" {
			bookTags[tag] = struct{}{}
		}
	}
	for tag := range bookTags {
		if _, match := seedTags[tag]; match {
			score += scorePerTagOverlap
		}
	}

	score += float64(book.TimesIssued) / scorePopularityDivisor

	if book.Available {
		score += scoreAvailability
	}

	return score
}

// popularAvailableLocked returns up to limit available books outside the
// exclude set, by times issued descending with ties by book id ascending.
func (l *Ledger) popularAvailableLocked(limit int, exclude map[BookID]struct{}) []Book {
	candidates := make([]*Book, 0, len(l.books))
	for _, book := range l.books {
		if !book.Available {
			continue
		}

		if _, skip := exclude[book.ID]; skip {
			continue
		}

		candidates = append(candidates, book)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].TimesIssued != candidates[j].TimesIssued {
			return candidates[i].TimesIssued > candidates[j].TimesIssued
		}

		return candidates[i].ID < candidates[j].ID
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]Book, 0, len(candidates))
	for _, book := range candidates {
		out = append(out, book.clone())
	}

	return out
}

func normalized(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
