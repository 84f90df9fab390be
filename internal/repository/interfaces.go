package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/sola-scriptura-text-search/internal/bible"
	"github.com/sola-scriptura-text-search/internal/models"
)

// ErrNotFound is returned when a stored bible does not exist
var ErrNotFound = errors.New("not found")

// TextIndex defines operations on the verse full-text index
type TextIndex interface {
	// Search runs a query and returns raw hits in ranked order
	Search(ctx context.Context, criteria models.SearchCriteria) (*models.SearchResults, error)
	// Replace makes the indexed documents under ref exactly docs
	Replace(ctx context.Context, ref models.EntityRef, docs []models.VerseDocument) (models.IndexStats, error)
	// DocCount returns the number of indexed verses
	DocCount(ctx context.Context) (uint64, error)
	// BibleIDs returns the bibles that have indexed verses
	BibleIDs(ctx context.Context) ([]uuid.UUID, error)
}

// BibleRepository defines persistence of whole bibles
type BibleRepository interface {
	// ListBibles loads every stored bible with its text
	ListBibles(ctx context.Context) ([]*bible.Bible, error)
	// GetBible loads one bible, or returns ErrNotFound
	GetBible(ctx context.Context, id uuid.UUID) (*bible.Bible, error)
	// SaveBible inserts or replaces a bible and all of its text
	SaveBible(ctx context.Context, b *bible.Bible) error
	// DeleteBible removes a bible, or returns ErrNotFound
	DeleteBible(ctx context.Context, id uuid.UUID) error
}
