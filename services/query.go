package services

import (
	"context"
	"fmt"

	"airbnb-similarity/models"
	"airbnb-similarity/storage"
)

// QueryService answers read-only lookups against persisted pipeline output.
type QueryService struct {
	store storage.Store
}

func NewQueryService(store storage.Store) *QueryService {
	return &QueryService{store: store}
}

// GetByID returns the listing with id, or ErrNotFound.
func (q *QueryService) GetByID(ctx context.Context, id int64) (*models.Listing, error) {
	l, err := q.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if l == nil {
		return nil, ErrNotFound
	}
	return l, nil
}

// List returns one page of listings ordered by id.
func (q *QueryService) List(ctx context.Context, offset, limit int) ([]*models.Listing, error) {
	listings, err := q.store.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return listings, nil
}

// GetListingsInCluster returns the full records of every listing in id's
// cluster, the listing itself included, in membership order. A listing that
// has not been clustered yet has no membership set and yields ErrNotFound.
func (q *QueryService) GetListingsInCluster(ctx context.Context, id int64) ([]*models.Listing, error) {
	l, err := q.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := l.MemberIDs()
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	members, err := q.store.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if len(members) == 0 {
		return nil, ErrNotFound
	}
	return members, nil
}
