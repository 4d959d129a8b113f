package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airbnb-similarity/models"
	"airbnb-similarity/services"
	"airbnb-similarity/storage"
	"airbnb-similarity/utils"
)

// brokenStore fails every call.
type brokenStore struct{ storage.Store }

func (brokenStore) GetByID(context.Context, int64) (*models.Listing, error) {
	return nil, errors.New("disk on fire")
}

func testServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	a := &models.Listing{ID: 1, Neighbourhood: "Chelsea", Price: 150}
	a.SetCluster(0, "1,2")
	b := &models.Listing{ID: 2, Neighbourhood: "SoHo", Price: 180}
	b.SetCluster(0, "1,2")
	c := &models.Listing{ID: 3, Neighbourhood: "Harlem"}
	require.NoError(t, store.UpsertAll(ctx, []*models.Listing{a, b, c}))

	return NewServer(":0", services.NewQueryService(store), utils.NewNopLogger())
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetListing(t *testing.T) {
	rec := get(t, testServer(t).Handler(), "/v1/listing/1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var l models.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &l))
	assert.Equal(t, int64(1), l.ID)
	assert.Equal(t, "Chelsea", l.Neighbourhood)
	assert.Equal(t, "1,2", l.ListingsInCluster)
}

func TestGetListingStatusCodes(t *testing.T) {
	h := testServer(t).Handler()
	tests := []struct {
		path   string
		status int
		detail string
	}{
		{"/v1/listing/999", http.StatusNotFound, "Listing not found"},
		{"/v1/listing/abc", http.StatusBadRequest, "listing id must be an integer"},
		{"/v1/listing/999/similar", http.StatusNotFound, "Listing not found"},
		{"/v1/listing/3/similar", http.StatusNotFound, "Listing not found"},
		{"/v1/listing/1.5/similar", http.StatusBadRequest, "listing id must be an integer"},
		{"/v1/listings?limit=0", http.StatusBadRequest, "limit must be a positive integer"},
		{"/v1/listings?skip=-1", http.StatusBadRequest, "skip must be a non-negative integer"},
	}
	for _, tt := range tests {
		rec := get(t, h, tt.path)
		assert.Equal(t, tt.status, rec.Code, tt.path)

		var body errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), tt.path)
		assert.Equal(t, tt.detail, body.Detail, tt.path)
	}
}

func TestGetSimilar(t *testing.T) {
	rec := get(t, testServer(t).Handler(), "/v1/listing/2/similar")
	require.Equal(t, http.StatusOK, rec.Code)

	var body similarResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.ListingID)
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Listings, 2)
	assert.Equal(t, int64(1), body.Listings[0].ID)
	assert.Equal(t, int64(2), body.Listings[1].ID)
}

func TestListListings(t *testing.T) {
	rec := get(t, testServer(t).Handler(), "/v1/listings?skip=1&limit=500")
	require.Equal(t, http.StatusOK, rec.Code)

	var body listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, maxPageSize, body.Limit)
	require.Len(t, body.Listings, 2)
	assert.Equal(t, int64(2), body.Listings[0].ID)
}

func TestStoreErrorIsGeneric500(t *testing.T) {
	s := NewServer(":0", services.NewQueryService(brokenStore{}), utils.NewNopLogger())
	rec := get(t, s.Handler(), "/v1/listing/1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
	assert.Contains(t, rec.Body.String(), "internal error")
}

func TestHealth(t *testing.T) {
	rec := get(t, testServer(t).Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
