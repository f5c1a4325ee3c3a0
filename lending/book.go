package lending

import (
	"slices"
	"strings"
	"time"
)

// Book is a single catalog entry. Availability, the times-issued counter,
// the rating, and the review list are ledger-owned and never touched by the
// administrative edit operation.
type Book struct {
	ID          BookID    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Tags        []string  `json:"tags,omitempty"`
	Publisher   string    `json:"publisher,omitempty"`
	ISBN        string    `json:"isbn,omitempty"`
	Pages       int       `json:"pages,omitempty"`
	Language    string    `json:"language,omitempty"`
	CoverURL    string    `json:"cover_url,omitempty"`
	Description string    `json:"description,omitempty"`
	Available   bool      `json:"available"`
	TimesIssued int       `json:"times_issued"`
	Rating      float64   `json:"rating,omitempty"`
	Reviews     []Review  `json:"reviews,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Review is a borrower's rating of a book, kept on the catalog entry.
type Review struct {
	BorrowerID BorrowerID `json:"borrower_id"`
	Rating     int        `json:"rating"`
	Comment    string     `json:"comment,omitempty"`
	AddedAt    time.Time  `json:"added_at"`
}

// NewBook carries the caller-supplied attributes for AddBook. An empty ID
// lets the ledger allocate one.
type NewBook struct {
	ID          BookID
	Title       string
	Author      string
	Tags        []string
	Publisher   string
	ISBN        string
	Pages       int
	Language    string
	CoverURL    string
	Description string
}

// BookPatch is a partial update for EditBook. Nil fields are left untouched.
type BookPatch struct {
	Title       *string
	Author      *string
	Tags        *[]string
	Publisher   *string
	ISBN        *string
	Pages       *int
	Language    *string
	CoverURL    *string
	Description *string
}

func (n NewBook) validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return ErrMissingTitle
	}

	if strings.TrimSpace(n.Author) == "" {
		return ErrMissingAuthor
	}

	return nil
}

func (p BookPatch) validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrMissingTitle
	}

	if p.Author != nil && strings.TrimSpace(*p.Author) == "" {
		return ErrMissingAuthor
	}

	return nil
}

// applyTo merges the non-nil patch fields into book.
func (p BookPatch) applyTo(book *Book) {
	if p.Title != nil {
		book.Title = *p.Title
	}

	if p.Author != nil {
		book.Author = *p.Author
	}

	if p.Tags != nil {
		book.Tags = slices.Clone(*p.Tags)
	}

	if p.Publisher != nil {
		book.Publisher = *p.Publisher
	}

	if p.ISBN != nil {
		book.ISBN = *p.ISBN
	}

	if p.Pages != nil {
		book.Pages = *p.Pages
	}

	if p.Language != nil {
		book.Language = *p.Language
	}

	if p.CoverURL != nil {
		book.CoverURL = *p.CoverURL
	}

	if p.Description != nil {
		book.Description = *p.Description
	}
}

// clone returns a value copy with its own tag and review slices, so callers
// can never alias ledger-internal state.
func (b *Book) clone() Book {
	out := *b
	out.Tags = slices.Clone(b.Tags)
	out.Reviews = slices.Clone(b.Reviews)

	return out
}

// HasTag reports whether the book carries tag, compared case-insensitively.
func (b Book) HasTag(tag string) bool {
	want := strings.ToLower(tag)
	for _, t := range b.Tags {
		if strings.ToLower(t) == want {
			return true
		}
	}

	return false
}

// meanRating recomputes the rating from the review list.
func (b *Book) meanRating() float64 {
	if len(b.Reviews) == 0 {
		return 0
	}

	sum := 0
	for _, r := range b.Reviews {
		sum += r.Rating
	}

	return float64(sum) / float64(len(b.Reviews))
}
