package lending

import (
	"slices"
	"time"
)

// BorrowerProfile holds a borrower's identity and favorites. Loan history is
// never stored here; it is derived from the ledger on demand.
type BorrowerProfile struct {
	ID        BorrowerID `json:"id"`
	Name      string     `json:"name,omitempty"`
	Email     string     `json:"email,omitempty"`
	Favorites []BookID   `json:"favorites,omitempty"`
	JoinedAt  time.Time  `json:"joined_at"`
}

// IsFavorite reports whether bookID is in the favorites set.
func (p BorrowerProfile) IsFavorite(bookID BookID) bool {
	return slices.Contains(p.Favorites, bookID)
}

func (p *BorrowerProfile) clone() BorrowerProfile {
	out := *p
	out.Favorites = slices.Clone(p.Favorites)

	return out
}

// removeFavorite drops bookID from the favorites, reporting whether it was
// present.
func (p *BorrowerProfile) removeFavorite(bookID BookID) bool {
	idx := slices.Index(p.Favorites, bookID)
	if idx < 0 {
		return false
	}

	p.Favorites = slices.Delete(p.Favorites, idx, idx+1)

	return true
}
