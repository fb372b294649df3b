package store

import "errors"

// Sentinel errors returned by the repositories. Handlers match on these
// to pick the user-facing message.
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateUsername = errors.New("username already exists")
)

// PageSize is the fixed number of rows per listing page.
const PageSize = 5

// Page is one page of a filtered listing. Pages are 1-based; a page
// beyond the result set is returned empty rather than as an error.
type Page[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	Total      int64
	TotalPages int
}

// HasPrev reports whether a previous page exists.
func (p Page[T]) HasPrev() bool {
	return p.Page > 1
}

// HasNext reports whether a next page exists.
func (p Page[T]) HasNext() bool {
	return p.Page < p.TotalPages
}

// PrevPage returns the previous page index, clamped to 1.
func (p Page[T]) PrevPage() int {
	if p.Page <= 1 {
		return 1
	}
	return p.Page - 1
}

// NextPage returns the next page index, clamped to the last page.
func (p Page[T]) NextPage() int {
	if p.Page >= p.TotalPages {
		return p.TotalPages
	}
	return p.Page + 1
}

// newPage assembles a Page from a counted query result.
func newPage[T any](items []T, page int, total int64) Page[T] {
	totalPages := int((total + PageSize - 1) / PageSize)
	return Page[T]{
		Items:      items,
		Page:       page,
		PageSize:   PageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}
