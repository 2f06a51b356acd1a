package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/grantnilsson/ShowTracker/internal/services"
)

// CatalogHandler handles external catalog requests
type CatalogHandler struct {
	catalog *services.CatalogService
	logger  *log.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog *services.CatalogService, logger *log.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// writeCatalogError relays a catalog failure with the upstream status
// attached, so the client can distinguish a dead catalog from a dead app.
func (h *CatalogHandler) writeCatalogError(w http.ResponseWriter, op string, err error) {
	h.logger.Printf("%s: %v", op, err)

	var catalogErr *services.CatalogError
	if errors.As(err, &catalogErr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":          "Catalog request failed",
			"upstreamStatus": catalogErr.StatusCode,
		})
		return
	}
	http.Error(w, `{"error":"Catalog request failed"}`, http.StatusInternalServerError)
}

// Search handles GET /api/catalog/search
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	text := query.Get("query")
	if text == "" {
		http.Error(w, `{"error":"Query parameter is required"}`, http.StatusBadRequest)
		return
	}

	mediaType := query.Get("type")
	if mediaType == "" {
		mediaType = services.MediaTypeAll
	}

	response, err := h.catalog.SearchByTitle(r.Context(), text, query.Get("yearFrom"), query.Get("yearTo"), mediaType)
	if err != nil {
		h.writeCatalogError(w, "Failed to search catalog", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// Discover handles GET /api/catalog/discover
func (h *CatalogHandler) Discover(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var genreIDs []int
	for _, raw := range strings.Split(query.Get("genres"), ",") {
		if raw == "" {
			continue
		}
		id, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, `{"error":"Invalid genre ID"}`, http.StatusBadRequest)
			return
		}
		genreIDs = append(genreIDs, id)
	}
	if len(genreIDs) == 0 {
		http.Error(w, `{"error":"At least one genre ID is required"}`, http.StatusBadRequest)
		return
	}

	mediaType := query.Get("type")
	if mediaType != services.MediaTypeMovie && mediaType != services.MediaTypeTV {
		http.Error(w, `{"error":"Type must be movie or tv"}`, http.StatusBadRequest)
		return
	}

	response, err := h.catalog.SearchByGenre(r.Context(), genreIDs, mediaType, query.Get("yearFrom"), query.Get("yearTo"))
	if err != nil {
		h.writeCatalogError(w, "Failed to discover by genre", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// PlotSearch handles GET /api/catalog/plot
func (h *CatalogHandler) PlotSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	text := query.Get("text")
	if text == "" {
		http.Error(w, `{"error":"Text parameter is required"}`, http.StatusBadRequest)
		return
	}

	response, err := h.catalog.SearchByPlotSubstring(r.Context(), text, query.Get("yearFrom"), query.Get("yearTo"))
	if err != nil {
		h.writeCatalogError(w, "Failed to search by plot", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RatingSearch handles GET /api/catalog/rating
func (h *CatalogHandler) RatingSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	min, err := strconv.Atoi(query.Get("min"))
	if err != nil || min < 0 || min > 100 {
		http.Error(w, `{"error":"min must be 0-100"}`, http.StatusBadRequest)
		return
	}
	max, err := strconv.Atoi(query.Get("max"))
	if err != nil || max < min || max > 100 {
		http.Error(w, `{"error":"max must be min-100"}`, http.StatusBadRequest)
		return
	}

	mediaType := query.Get("type")
	if mediaType != services.MediaTypeMovie && mediaType != services.MediaTypeTV {
		http.Error(w, `{"error":"Type must be movie or tv"}`, http.StatusBadRequest)
		return
	}

	response, err := h.catalog.SearchByRating(r.Context(), min, max, mediaType)
	if err != nil {
		h.writeCatalogError(w, "Failed to search by rating", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetMovie handles GET /api/catalog/movie/{id}
func (h *CatalogHandler) GetMovie(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"Invalid movie ID"}`, http.StatusBadRequest)
		return
	}

	movie, err := h.catalog.GetMovieDetails(r.Context(), id)
	if err != nil {
		h.writeCatalogError(w, "Failed to fetch movie details", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(movie)
}

// GetTV handles GET /api/catalog/tv/{id}
func (h *CatalogHandler) GetTV(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"Invalid TV ID"}`, http.StatusBadRequest)
		return
	}

	tv, err := h.catalog.GetTVDetails(r.Context(), id)
	if err != nil {
		h.writeCatalogError(w, "Failed to fetch tv details", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tv)
}

// Genres handles GET /api/catalog/genres
func (h *CatalogHandler) Genres(w http.ResponseWriter, r *http.Request) {
	vocabulary, err := h.catalog.GetGenreVocabulary(r.Context())
	if err != nil {
		h.writeCatalogError(w, "Failed to fetch genres", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(vocabulary)
}
