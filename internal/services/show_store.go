package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/grantnilsson/ShowTracker/internal/models"
)

// ErrShowNotFound is the typed absence result shared by every backend.
// It is a result, not a failure: the library never falls back to the
// cache because of it.
var ErrShowNotFound = errors.New("show not found")

// ShowStore is the abstract show repository both backends satisfy: the
// Postgres source of truth and the Redis cache mirror. The Library is a
// composition of one of each plus the fallback policy.
type ShowStore interface {
	// ListShows returns every show, ordered by updatedAt descending,
	// with completed seasons decoded and progress attached.
	ListShows(ctx context.Context) ([]models.Show, error)

	// GetShow returns one show with comments newest-first, or
	// ErrShowNotFound.
	GetShow(ctx context.Context, id uuid.UUID) (*models.Show, error)

	// CreateShow assigns a fresh id and current timestamps to the draft
	// and persists it with an empty comment list.
	CreateShow(ctx context.Context, draft models.ShowDraft) (*models.Show, error)

	// UpdateShow merges only the supplied fields, always advances
	// updatedAt, and returns the updated show or ErrShowNotFound.
	UpdateShow(ctx context.Context, id uuid.UUID, update models.ShowUpdate) (*models.Show, error)

	// DeleteShow removes the show and everything it owns. It reports
	// false when the id does not exist.
	DeleteShow(ctx context.Context, id uuid.UUID) (bool, error)

	// AddComment appends a comment with a fresh id and current timestamp
	// and returns the full updated show, or ErrShowNotFound.
	AddComment(ctx context.Context, id uuid.UUID, text string) (*models.Show, error)
}
