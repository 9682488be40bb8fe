// Package utils holds small helpers with no domain knowledge.
package utils

import "strconv"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a 1-based page request with a bounded size.
type Page struct {
	Number int
	Size   int
}

// NewPage clamps number to at least 1 and size to (0, MaxPageSize]; a
// non-positive size means DefaultPageSize.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

// ParsePage reads raw query values; unparsable values take the defaults.
func ParsePage(number, size string) Page {
	return NewPage(AtoiDefault(number, 1), AtoiDefault(size, DefaultPageSize))
}

// Offset is the number of rows before the page.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// Bounds returns the half-open slice range of the page within n items.
// Pages past the end yield an empty range at n.
func (p Page) Bounds(n int) (start, end int) {
	start = min(p.Offset(), n)
	return start, min(start+p.Size, n)
}

// TotalPages is the number of pages needed for total items.
func (p Page) TotalPages(total int64) int {
	if total <= 0 {
		return 0
	}
	return int((total + int64(p.Size) - 1) / int64(p.Size))
}

// AtoiDefault parses s as a decimal int, returning def when s is empty or
// invalid.
func AtoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
