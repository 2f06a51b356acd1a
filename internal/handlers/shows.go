package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/grantnilsson/ShowTracker/internal/models"
	"github.com/grantnilsson/ShowTracker/internal/services"
)

// ShowHandler handles watchlist requests
type ShowHandler struct {
	library *services.LibraryService
	logger  *log.Logger
}

// NewShowHandler creates a new show handler
func NewShowHandler(library *services.LibraryService, logger *log.Logger) *ShowHandler {
	return &ShowHandler{
		library: library,
		logger:  logger,
	}
}

// List handles GET /api/shows. Filter and sort parameters are optional;
// without them the full collection comes back in updatedAt-descending
// order.
func (h *ShowHandler) List(w http.ResponseWriter, r *http.Request) {
	shows, err := h.library.ListShows(r.Context())
	if err != nil {
		h.logger.Printf("Failed to list shows: %v", err)
		http.Error(w, `{"error":"Failed to fetch shows"}`, http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	filter := models.ListFilter{
		Query:  query.Get("query"),
		Type:   query.Get("type"),
		Status: query.Get("status"),
	}
	shows = models.FilterShows(shows, filter)
	if sortBy := query.Get("sortBy"); sortBy != "" {
		shows = models.SortShows(shows, sortBy)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(shows)
}

// Create handles POST /api/shows
func (h *ShowHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft models.ShowDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if err := draft.Validate(); err != nil {
		h.logger.Printf("Rejected show draft: %v", err)
		http.Error(w, `{"error":"Invalid show"}`, http.StatusBadRequest)
		return
	}

	show, err := h.library.CreateShow(r.Context(), draft)
	if err != nil {
		h.logger.Printf("Failed to create show: %v", err)
		http.Error(w, `{"error":"Failed to create show"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(show)
}

// Get handles GET /api/shows/{id}
func (h *ShowHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.showID(w, r)
	if !ok {
		return
	}

	show, err := h.library.GetShow(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrShowNotFound) {
			http.Error(w, `{"error":"Show not found"}`, http.StatusNotFound)
			return
		}
		h.logger.Printf("Failed to get show: %v", err)
		http.Error(w, `{"error":"Failed to fetch show"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(show)
}

// Update handles PUT /api/shows/{id}
func (h *ShowHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.showID(w, r)
	if !ok {
		return
	}

	var update models.ShowUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	show, err := h.library.UpdateShow(r.Context(), id, update)
	if err != nil {
		if errors.Is(err, services.ErrShowNotFound) {
			http.Error(w, `{"error":"Show not found"}`, http.StatusNotFound)
			return
		}
		h.logger.Printf("Failed to update show: %v", err)
		http.Error(w, `{"error":"Failed to update show"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(show)
}

// Delete handles DELETE /api/shows/{id}
func (h *ShowHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.showID(w, r)
	if !ok {
		return
	}

	deleted, err := h.library.DeleteShow(r.Context(), id)
	if err != nil {
		h.logger.Printf("Failed to delete show: %v", err)
		http.Error(w, `{"error":"Failed to delete show"}`, http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, `{"error":"Show not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// AddComment handles POST /api/shows/{id}/comments
func (h *ShowHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.showID(w, r)
	if !ok {
		return
	}

	var input struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Text == "" {
		http.Error(w, `{"error":"Comment text is required"}`, http.StatusBadRequest)
		return
	}

	show, err := h.library.AddComment(r.Context(), id, input.Text)
	if err != nil {
		if errors.Is(err, services.ErrShowNotFound) {
			http.Error(w, `{"error":"Show not found"}`, http.StatusNotFound)
			return
		}
		h.logger.Printf("Failed to add comment: %v", err)
		http.Error(w, `{"error":"Failed to add comment"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(show)
}

// Migrate handles POST /api/migrate: the one-shot, destructive
// cache-to-database bootstrap. The client clears its cache only after a
// successful response.
func (h *ShowHandler) Migrate(w http.ResponseWriter, r *http.Request) {
	count, err := h.library.MigrateLocalToRemote(r.Context())
	if err != nil {
		h.logger.Printf("Failed to migrate cache to database: %v", err)
		http.Error(w, `{"error":"Failed to migrate data"}`, http.StatusInternalServerError)
		return
	}

	message := "Nothing to migrate"
	if count > 0 {
		message = "Migration complete"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"migrated": count,
		"message":  message,
	})
}

func (h *ShowHandler) showID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"Invalid show ID"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
