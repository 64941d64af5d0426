package web

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/HansLove/HouzeMaster-front/internal/cache"
	"github.com/HansLove/HouzeMaster-front/internal/property"
)

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := map[string]string{"error": msg}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// listingsResponse wraps a list of listings with the cache state it came
// from. Stale is true when the cache window has passed, which happens
// when the last fetch failed and older data is served instead.
type listingsResponse struct {
	Listings []property.DisplayRecord `json:"listings"`
	Count    int                      `json:"count"`
	Stale    bool                     `json:"stale"`
	Warning  string                   `json:"warning,omitempty"`
}

func (s *Server) respondListings(w http.ResponseWriter, records []property.DisplayRecord) {
	if records == nil {
		records = []property.DisplayRecord{}
	}
	store := s.catalog.Store()
	apiJSON(w, listingsResponse{
		Listings: records,
		Count:    len(records),
		Stale:    !store.Valid(),
		Warning:  store.Err(),
	}, http.StatusOK)
}

// ensureLoaded makes sure the full tier has been fetched once. It writes
// an error and returns false when the first fetch fails.
func (s *Server) ensureLoaded(w http.ResponseWriter, r *http.Request) bool {
	if err := s.catalog.Init(r.Context()); err != nil {
		s.logger.Warn("loading full tier", zap.Error(err))
		apiError(w, err.Error(), http.StatusBadGateway)
		return false
	}
	return true
}

// apiListings returns the fast tier.
func (s *Server) apiListings(w http.ResponseWriter, r *http.Request) {
	records, err := s.catalog.Listings(r.Context())
	if err != nil {
		apiError(w, err.Error(), http.StatusBadGateway)
		return
	}
	s.respondListings(w, records)
}

// apiRefresh forces a refetch and returns the new fast tier.
func (s *Server) apiRefresh(w http.ResponseWriter, r *http.Request) {
	records, err := s.catalog.Refresh(r.Context())
	if err != nil {
		apiError(w, err.Error(), http.StatusBadGateway)
		return
	}
	s.respondListings(w, records)
}

func (s *Server) apiAllListings(w http.ResponseWriter, r *http.Request) {
	if !s.ensureLoaded(w, r) {
		return
	}
	s.respondListings(w, s.catalog.All())
}

func (s *Server) apiFeatured(w http.ResponseWriter, r *http.Request) {
	if !s.ensureLoaded(w, r) {
		return
	}
	s.respondListings(w, s.catalog.Featured())
}

func (s *Server) apiSearch(w http.ResponseWriter, r *http.Request) {
	if !s.ensureLoaded(w, r) {
		return
	}
	s.respondListings(w, s.catalog.Search(r.URL.Query().Get("q")))
}

func (s *Server) apiFilter(w http.ResponseWriter, r *http.Request) {
	criteria, err := ParseCriteria(r.URL.Query())
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.ensureLoaded(w, r) {
		return
	}
	s.respondListings(w, s.catalog.Filter(criteria))
}

// apiGetListing returns one listing by slug.
func (s *Server) apiGetListing(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(r.PathValue("slug"))
	if slug == "" {
		apiError(w, "slug is required", http.StatusBadRequest)
		return
	}
	if rec, ok := s.catalog.BySlug(slug); ok {
		apiJSON(w, rec, http.StatusOK)
		return
	}
	if !s.ensureLoaded(w, r) {
		return
	}
	rec, ok := s.catalog.BySlug(slug)
	if !ok {
		apiError(w, "listing not found", http.StatusNotFound)
		return
	}
	apiJSON(w, rec, http.StatusOK)
}

func (s *Server) apiCacheStatus(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, cacheStatusResponse(s.catalog.Store().Status()), http.StatusOK)
}

// cacheStatusResponse renders the TTL as text rather than nanoseconds.
func cacheStatusResponse(st cache.Status) map[string]any {
	resp := map[string]any{
		"fast_count":  st.FastCount,
		"all_count":   st.AllCount,
		"limit":       st.Limit,
		"ttl":         st.TTL.String(),
		"valid":       st.Valid,
		"loading":     st.Loading,
		"initialized": st.Initialized,
	}
	if !st.LastFetch.IsZero() {
		resp["last_fetch"] = st.LastFetch
	}
	if st.Error != "" {
		resp["error"] = st.Error
	}
	return resp
}

// ParseCriteria reads filter criteria from query parameters. Absent or
// blank parameters leave the criterion unset.
func ParseCriteria(q url.Values) (property.Criteria, error) {
	c := property.Criteria{
		PropertyType:  strings.TrimSpace(q.Get("property_type")),
		OperationType: strings.TrimSpace(q.Get("operation_type")),
		City:          strings.TrimSpace(q.Get("city")),
	}

	var err error
	if c.MinPrice, err = floatParam(q, "min_price"); err != nil {
		return c, err
	}
	if c.MaxPrice, err = floatParam(q, "max_price"); err != nil {
		return c, err
	}
	if c.MinBedrooms, err = intParam(q, "min_bedrooms"); err != nil {
		return c, err
	}
	if c.MaxBedrooms, err = intParam(q, "max_bedrooms"); err != nil {
		return c, err
	}

	if v := strings.TrimSpace(q.Get("featured")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("featured must be true or false")
		}
		c.FeaturedOnly = b
	}
	return c, nil
}

func floatParam(q url.Values, key string) (*float64, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%s must be a non-negative number", key)
	}
	return &f, nil
}

func intParam(q url.Values, key string) (*int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return &n, nil
}
