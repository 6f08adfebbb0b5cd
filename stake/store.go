package stake

import "context"

// Store persists stake books.
type Store interface {
	// GetBook returns the owner's book or a not-found error.
	GetBook(ctx context.Context, owner string) (*Book, error)
	// SaveBook writes book if the stored version still equals
	// expectedVersion. An expectedVersion of 0 inserts a new book. On
	// success book.Version is expectedVersion+1.
	SaveBook(ctx context.Context, book *Book, expectedVersion int64) error
	// ListBooks returns every book, ordered by owner.
	ListBooks(ctx context.Context) ([]*Book, error)
}
