package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"airbnb-similarity/models"
	"airbnb-similarity/services"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type errorResponse struct {
	Detail string `json:"detail"`
}

type similarResponse struct {
	ListingID int64             `json:"listing_id"`
	Count     int               `json:"count"`
	Listings  []*models.Listing `json:"listings"`
}

type listResponse struct {
	Skip     int               `json:"skip"`
	Limit    int               `json:"limit"`
	Listings []*models.Listing `json:"listings"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	id, ok := listingID(w, r)
	if !ok {
		return
	}
	l, err := s.query.GetByID(r.Context(), id)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleGetSimilar(w http.ResponseWriter, r *http.Request) {
	id, ok := listingID(w, r)
	if !ok {
		return
	}
	members, err := s.query.GetListingsInCluster(r.Context(), id)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, similarResponse{ListingID: id, Count: len(members), Listings: members})
}

func (s *Server) handleListListings(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil || skip < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "skip must be a non-negative integer"})
		return
	}
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil || limit < 1 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "limit must be a positive integer"})
		return
	}
	limit = min(limit, maxPageSize)

	listings, err := s.query.List(r.Context(), skip, limit)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Skip: skip, Limit: limit, Listings: listings})
}

func listingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "listing id must be an integer"})
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

// writeQueryError maps query errors to responses. Store failures are logged
// and answered with a generic body.
func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: "Listing not found"})
		return
	}
	s.logger.Error("[api] %s %s: %v", r.Method, r.URL.Path, err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
