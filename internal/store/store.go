// Package store holds the connection to the document database that movie
// records live in.
package store

import (
	"context"
	"errors"

	"github.com/dannyrandall/moviesdb/internal/movies"
)

var (
	// ErrNotFound is returned when no record has the requested identifier.
	ErrNotFound = errors.New("movie not found")

	// ErrInvalidID is returned when an identifier string can't be parsed
	// into the backend's identifier type.
	ErrInvalidID = errors.New("invalid movie id")

	// ErrNotAcknowledged is returned when the database didn't confirm a write.
	ErrNotAcknowledged = errors.New("write not acknowledged")
)

// Store is a single collection of movie documents. Implementations are safe
// for concurrent use and are opened once per process.
type Store interface {
	// Insert stores doc under a newly assigned identifier and returns it.
	// Any identifier already present in doc is ignored.
	Insert(ctx context.Context, doc movies.Document) (string, error)

	Get(ctx context.Context, id string) (movies.Document, error)

	// UpdateName sets the name field of the record and returns the record
	// as it is after the update.
	UpdateName(ctx context.Context, id, name string) (movies.Document, error)

	// Delete removes the record and returns it as it was before removal.
	Delete(ctx context.Context, id string) (movies.Document, error)

	List(ctx context.Context) ([]movies.Document, error)

	// Page returns at most limit records after skipping skip records,
	// ordered by identifier ascending.
	Page(ctx context.Context, skip, limit int64) ([]movies.Document, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
