package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grantnilsson/ShowTracker/internal/models"
	"github.com/redis/go-redis/v9"
)

// cacheKey is the single well-known key holding the entire show
// collection as one JSON document.
const cacheKey = "showtracker:shows"

// CacheService is the Redis-backed local show store. It mirrors the
// database when the database is reachable and stands in for it when it
// is not. Every operation loads the whole document, works on it in
// memory, and writes it back; the library is assumed to be the only
// writer.
type CacheService struct {
	client *redis.Client
}

// NewCacheService creates a new CacheService
func NewCacheService(client *redis.Client) *CacheService {
	return &CacheService{client: client}
}

// load reads the cached collection. A missing document is an empty
// collection, not an error.
func (s *CacheService) load(ctx context.Context) ([]models.Show, error) {
	raw, err := s.client.Get(ctx, cacheKey).Result()
	if err == redis.Nil {
		return []models.Show{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read show cache: %w", err)
	}

	var shows []models.Show
	if err := json.Unmarshal([]byte(raw), &shows); err != nil {
		return nil, fmt.Errorf("failed to decode show cache: %w", err)
	}
	for i := range shows {
		shows[i].CompletedSeasons = models.NormalizeSeasons(shows[i].CompletedSeasons)
		if shows[i].Comments == nil {
			shows[i].Comments = []models.Comment{}
		}
	}
	return shows, nil
}

// save writes the collection back as one document, with no expiry.
func (s *CacheService) save(ctx context.Context, shows []models.Show) error {
	data, err := json.Marshal(shows)
	if err != nil {
		return fmt.Errorf("failed to encode show cache: %w", err)
	}
	if err := s.client.Set(ctx, cacheKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write show cache: %w", err)
	}
	return nil
}

// ListShows returns the cached collection ordered by updatedAt descending
func (s *CacheService) ListShows(ctx context.Context) ([]models.Show, error) {
	shows, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return models.SortShows(shows, models.SortByUpdatedDesc), nil
}

// GetShow returns one cached show or ErrShowNotFound
func (s *CacheService) GetShow(ctx context.Context, id uuid.UUID) (*models.Show, error) {
	shows, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range shows {
		if shows[i].ID == id {
			return &shows[i], nil
		}
	}
	return nil, ErrShowNotFound
}

// CreateShow synthesizes a show locally: fresh random id, current
// timestamps, empty comment list.
func (s *CacheService) CreateShow(ctx context.Context, draft models.ShowDraft) (*models.Show, error) {
	shows, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	show := models.Show{
		ID:                   uuid.New(),
		Name:                 draft.Name,
		Description:          draft.Description,
		Type:                 draft.Type,
		ReleaseYear:          draft.ReleaseYear,
		RottenTomatoesRating: draft.RottenTomatoesRating,
		MyRating:             draft.MyRating,
		NumberOfSeasons:      draft.NumberOfSeasons,
		CompletedSeasons:     models.NormalizeSeasons(draft.CompletedSeasons),
		CurrentProgress:      draft.CurrentProgress,
		TrailerLink:          draft.TrailerLink,
		PosterURL:            draft.PosterURL,
		WatchStatus:          draft.WatchStatus,
		CreatedAt:            now,
		UpdatedAt:            now,
		Comments:             []models.Comment{},
	}

	shows = append(shows, show)
	if err := s.save(ctx, shows); err != nil {
		return nil, err
	}
	return &show, nil
}

// UpdateShow merges the supplied fields into the cached show
func (s *CacheService) UpdateShow(ctx context.Context, id uuid.UUID, update models.ShowUpdate) (*models.Show, error) {
	shows, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for i := range shows {
		if shows[i].ID == id {
			update.Apply(&shows[i], time.Now())
			if err := s.save(ctx, shows); err != nil {
				return nil, err
			}
			return &shows[i], nil
		}
	}
	return nil, ErrShowNotFound
}

// DeleteShow removes the cached show and everything it carries
func (s *CacheService) DeleteShow(ctx context.Context, id uuid.UUID) (bool, error) {
	shows, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	filtered := shows[:0]
	for _, show := range shows {
		if show.ID != id {
			filtered = append(filtered, show)
		}
	}
	if len(filtered) == len(shows) {
		return false, nil
	}
	if err := s.save(ctx, filtered); err != nil {
		return false, err
	}
	return true, nil
}

// AddComment prepends a fresh comment, keeping the newest-first order
func (s *CacheService) AddComment(ctx context.Context, id uuid.UUID, text string) (*models.Show, error) {
	shows, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for i := range shows {
		if shows[i].ID == id {
			comment := models.Comment{
				ID:        uuid.New(),
				Text:      text,
				CreatedAt: time.Now(),
			}
			shows[i].Comments = append([]models.Comment{comment}, shows[i].Comments...)
			if err := s.save(ctx, shows); err != nil {
				return nil, err
			}
			return &shows[i], nil
		}
	}
	return nil, ErrShowNotFound
}

// Snapshot returns the raw cached collection in stored order. Used by the
// migration path, which must preserve original ids and timestamps.
func (s *CacheService) Snapshot(ctx context.Context) ([]models.Show, error) {
	return s.load(ctx)
}

// WriteSnapshot overwrites the whole document with a fresh copy of the
// database collection. A snapshot read while a local-only write is in
// flight can drop that write; the mirror is best-effort by contract.
func (s *CacheService) WriteSnapshot(ctx context.Context, shows []models.Show) error {
	return s.save(ctx, shows)
}
