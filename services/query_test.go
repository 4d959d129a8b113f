package services

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airbnb-similarity/models"
)

// memStore is a map-backed storage.Store.
type memStore struct {
	rows map[int64]*models.Listing
	err  error
}

func newMemStore(listings ...*models.Listing) *memStore {
	m := &memStore{rows: make(map[int64]*models.Listing)}
	for _, l := range listings {
		m.rows[l.ID] = l
	}
	return m
}

func (m *memStore) FetchAll(context.Context) ([]*models.Listing, error) {
	var out []*models.Listing
	for _, l := range m.rows {
		out = append(out, l)
	}
	return out, m.err
}

func (m *memStore) GetByID(_ context.Context, id int64) (*models.Listing, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rows[id], nil
}

func (m *memStore) GetByIDs(_ context.Context, ids []int64) ([]*models.Listing, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.Listing
	for _, id := range ids {
		if l, ok := m.rows[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) List(_ context.Context, offset, limit int) ([]*models.Listing, error) {
	if m.err != nil {
		return nil, m.err
	}
	ids := make([]int64, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := []*models.Listing{}
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, m.rows[ids[i]])
	}
	return out, nil
}

func (m *memStore) UpsertAll(_ context.Context, listings []*models.Listing) error {
	for _, l := range listings {
		m.rows[l.ID] = l
	}
	return m.err
}

func (m *memStore) Close() error { return nil }

func clustered(id int64, label int, members string) *models.Listing {
	l := &models.Listing{ID: id}
	l.SetCluster(label, members)
	return l
}

func TestQueryGetByID(t *testing.T) {
	q := NewQueryService(newMemStore(clustered(1, 0, "1,2")))

	l, err := q.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), l.ID)

	_, err = q.GetByID(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueryGetListingsInCluster(t *testing.T) {
	q := NewQueryService(newMemStore(
		clustered(3, 0, "3,1,2"),
		clustered(1, 0, "3,1,2"),
		clustered(2, 0, "3,1,2"),
		clustered(9, NoiseLabel, "9"),
	))

	got, err := q.GetListingsInCluster(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{3, 1, 2}, []int64{got[0].ID, got[1].ID, got[2].ID})

	noise, err := q.GetListingsInCluster(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, noise, 1)
	assert.Equal(t, int64(9), noise[0].ID)
}

func TestQueryGetListingsInClusterNotFound(t *testing.T) {
	q := NewQueryService(newMemStore(&models.Listing{ID: 5}))

	_, err := q.GetListingsInCluster(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = q.GetListingsInCluster(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound, "unclustered listing has no membership set")
}

func TestQueryStoreError(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection reset")
	q := NewQueryService(store)

	_, err := q.GetByID(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestQueryList(t *testing.T) {
	q := NewQueryService(newMemStore(&models.Listing{ID: 3}, &models.Listing{ID: 1}, &models.Listing{ID: 2}))

	page, err := q.List(context.Background(), 1, 5)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(2), page[0].ID)
	assert.Equal(t, int64(3), page[1].ID)
}
