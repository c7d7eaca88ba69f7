package model

const (
	// DefaultPageSize applies when a listing request names no size.
	DefaultPageSize = 20
	// MaxPageSize caps a single listing window.
	MaxPageSize = 100
)

// Page selects a window of a listing. Pages are numbered from 1.
type Page struct {
	Number int
	Size   int
}

// Limit returns the clamped window size.
func (p Page) Limit() int {
	if p.Size <= 0 {
		return DefaultPageSize
	}
	if p.Size > MaxPageSize {
		return MaxPageSize
	}
	return p.Size
}

// Offset returns the number of rows preceding the window.
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit()
}
