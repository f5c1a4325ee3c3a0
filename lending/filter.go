package lending

import (
	"strings"
)

// AvailabilityPredicate narrows a catalog filter by availability.
type AvailabilityPredicate uint8

// Availability predicates for Filter.
const (
	AnyAvailability AvailabilityPredicate = iota
	OnlyAvailable
	OnlyUnavailable
)

// Filter defines the criteria for ListBooks. The zero value matches every
// book. Text matching is a case-insensitive substring test over title,
// author, and id; all supplied tags must be present on a matching book.
type Filter struct {
	query        string
	tags         []string
	availability AvailabilityPredicate
}

// FilterBuilder assembles a Filter; obtain one from BuildFilter and finish
// with Finalize.
type FilterBuilder struct {
	filter Filter
}

// BuildFilter starts a catalog filter definition.
func BuildFilter() *FilterBuilder {
	return &FilterBuilder{}
}

// Matching sets the case-insensitive substring matched against title,
// author, and id. An empty string disables the text predicate.
func (b *FilterBuilder) Matching(query string) *FilterBuilder {
	b.filter.query = strings.ToLower(strings.TrimSpace(query))

	return b
}

// WithTags requires every given tag to be present on a matching book.
func (b *FilterBuilder) WithTags(tags ...string) *FilterBuilder {
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}

		b.filter.tags = append(b.filter.tags, tag)
	}

	return b
}

// OnlyAvailable restricts matches to books that can be issued right now.
func (b *FilterBuilder) OnlyAvailable() *FilterBuilder {
	b.filter.availability = OnlyAvailable

	return b
}

// OnlyUnavailable restricts matches to books currently on loan.
func (b *FilterBuilder) OnlyUnavailable() *FilterBuilder {
	b.filter.availability = OnlyUnavailable

	return b
}

// Finalize returns the assembled Filter.
func (b *FilterBuilder) Finalize() Filter {
	out := b.filter
	out.tags = append([]string(nil), b.filter.tags...)

	return out
}

// Matches reports whether book satisfies every predicate of the filter.
func (f Filter) Matches(book Book) bool {
	switch f.availability {
	case OnlyAvailable:
		if !book.Available {
			return false
		}
	case OnlyUnavailable:
		if book.Available {
			return false
		}
	}

	for _, tag := range f.tags {
		if !book.HasTag(tag) {
			return false
		}
	}

	if f.query == "" {
		return true
	}

	return strings.Contains(strings.ToLower(book.Title), f.query) ||
		strings.Contains(strings.ToLower(book.Author), f.query) ||
		strings.Contains(strings.ToLower(book.ID), f.query)
}
