package storage

import (
	"context"

	"airbnb-similarity/models"
)

// Store is the persistence sink and source any backend must satisfy.
type Store interface {
	// FetchAll returns every stored listing ordered by id.
	FetchAll(ctx context.Context) ([]*models.Listing, error)
	// GetByID returns the listing or (nil, nil) when absent.
	GetByID(ctx context.Context, id int64) (*models.Listing, error)
	// GetByIDs returns the listings present among ids, in the order of ids.
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Listing, error)
	// List returns one page of listings ordered by id.
	List(ctx context.Context, offset, limit int) ([]*models.Listing, error)
	// UpsertAll writes listings in a single transaction, replacing rows that
	// share an id.
	UpsertAll(ctx context.Context, listings []*models.Listing) error
	Close() error
}

// DatasetReader loads a raw tabular dataset.
type DatasetReader interface {
	Read() (*models.RawDataset, error)
}

// ListingWriter exports listings to a flat file.
type ListingWriter interface {
	Write(listings []*models.Listing) error
	Close() error
}
