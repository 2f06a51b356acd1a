package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/grantnilsson/ShowTracker/internal/models"
)

// RemoteStore is the database-backed side of the library: a ShowStore
// that can also be bulk-replaced by the one-shot migration and loaded
// record-by-record by the file import.
type RemoteStore interface {
	ShowStore
	ReplaceAllShows(ctx context.Context, shows []models.Show) (int, error)
	ImportShow(ctx context.Context, show models.Show) error
}

// LocalStore is the cache side: a ShowStore whose whole collection can be
// read and overwritten as one document.
type LocalStore interface {
	ShowStore
	Snapshot(ctx context.Context) ([]models.Show, error)
	WriteSnapshot(ctx context.Context, shows []models.Show) error
}

// LibraryService is the only component that mutates durable state. Every
// operation attempts the database first; on failure it performs the
// equivalent operation against the cache. After a successful database
// write the cache mirror is refreshed in the background, and a refresh
// failure never fails the calling operation.
//
// Known, accepted hazards: two racing edits to the same show are
// last-write-wins with no version check, and a mirror refresh can
// overwrite a local-only write that landed in between.
type LibraryService struct {
	remote RemoteStore
	local  LocalStore
	logger *log.Logger

	// mirrorTimeout bounds the background refresh; it is detached from
	// the caller's context on purpose.
	mirrorTimeout time.Duration
	// mirrorDone, when non-nil, receives a signal after each refresh
	// attempt. Tests use it to wait for the mirror.
	mirrorDone chan struct{}
}

// NewLibraryService creates a new LibraryService
func NewLibraryService(remote RemoteStore, local LocalStore, logger *log.Logger) *LibraryService {
	return &LibraryService{
		remote:        remote,
		local:         local,
		logger:        logger,
		mirrorTimeout: 10 * time.Second,
	}
}

// fallback runs the remote operation and, on failure, the local one. A
// typed not-found is a result, not a failure: it is returned as-is. On
// remote success the mirror refresh is kicked off and the result returned
// untouched. Defining the policy once keeps every entity operation from
// growing its own slightly different copy.
func fallback[T any](s *LibraryService, op string, remote func() (T, error), local func() (T, error)) (T, error) {
	value, err := remote()
	if err == nil {
		s.refreshMirror()
		return value, nil
	}
	if errors.Is(err, ErrShowNotFound) {
		return value, err
	}
	s.logger.Printf("%s: database unavailable, falling back to cache: %v", op, err)
	return local()
}

// refreshMirror copies the full database collection over the cache
// document, fire-and-forget.
func (s *LibraryService) refreshMirror() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.mirrorTimeout)
		defer cancel()
		defer s.signalMirrorDone()

		shows, err := s.remote.ListShows(ctx)
		if err != nil {
			s.logger.Printf("mirror refresh: failed to list shows: %v", err)
			return
		}
		if err := s.local.WriteSnapshot(ctx, shows); err != nil {
			s.logger.Printf("mirror refresh: failed to write cache: %v", err)
		}
	}()
}

func (s *LibraryService) signalMirrorDone() {
	if s.mirrorDone != nil {
		s.mirrorDone <- struct{}{}
	}
}

// ListShows returns every show, database-ordered by updatedAt descending
// when the database answers, otherwise whatever the cache last mirrored.
func (s *LibraryService) ListShows(ctx context.Context) ([]models.Show, error) {
	shows, err := s.remote.ListShows(ctx)
	if err == nil {
		// The fresh listing is itself the new mirror; no second fetch.
		go func() {
			mirrorCtx, cancel := context.WithTimeout(context.Background(), s.mirrorTimeout)
			defer cancel()
			defer s.signalMirrorDone()
			if err := s.local.WriteSnapshot(mirrorCtx, shows); err != nil {
				s.logger.Printf("mirror refresh: failed to write cache: %v", err)
			}
		}()
		return shows, nil
	}
	s.logger.Printf("ListShows: database unavailable, falling back to cache: %v", err)
	return s.local.ListShows(ctx)
}

// GetShow returns one show, re-deriving from the cached listing when the
// database is unreachable. A database not-found is final.
func (s *LibraryService) GetShow(ctx context.Context, id uuid.UUID) (*models.Show, error) {
	return fallback(s, "GetShow",
		func() (*models.Show, error) { return s.remote.GetShow(ctx, id) },
		func() (*models.Show, error) {
			shows, err := s.local.ListShows(ctx)
			if err != nil {
				return nil, err
			}
			for i := range shows {
				if shows[i].ID == id {
					return &shows[i], nil
				}
			}
			return nil, ErrShowNotFound
		},
	)
}

// CreateShow persists the draft in the database, or synthesizes it in the
// cache only when the database refuses the write.
func (s *LibraryService) CreateShow(ctx context.Context, draft models.ShowDraft) (*models.Show, error) {
	return fallback(s, "CreateShow",
		func() (*models.Show, error) { return s.remote.CreateShow(ctx, draft) },
		func() (*models.Show, error) { return s.local.CreateShow(ctx, draft) },
	)
}

// UpdateShow merges the supplied fields on whichever backend accepts it
func (s *LibraryService) UpdateShow(ctx context.Context, id uuid.UUID, update models.ShowUpdate) (*models.Show, error) {
	return fallback(s, "UpdateShow",
		func() (*models.Show, error) { return s.remote.UpdateShow(ctx, id, update) },
		func() (*models.Show, error) { return s.local.UpdateShow(ctx, id, update) },
	)
}

// DeleteShow removes the show on whichever backend is active. A false
// flag means the id was not found there.
func (s *LibraryService) DeleteShow(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted, err := s.remote.DeleteShow(ctx, id)
	if err == nil {
		s.refreshMirror()
		return deleted, nil
	}
	s.logger.Printf("DeleteShow: database unavailable, falling back to cache: %v", err)
	return s.local.DeleteShow(ctx, id)
}

// AddComment appends the comment on whichever backend is active
func (s *LibraryService) AddComment(ctx context.Context, id uuid.UUID, text string) (*models.Show, error) {
	return fallback(s, "AddComment",
		func() (*models.Show, error) { return s.remote.AddComment(ctx, id, text) },
		func() (*models.Show, error) { return s.local.AddComment(ctx, id, text) },
	)
}

// MigrateLocalToRemote is the one-shot bootstrap that moves the cached
// collection into the database. An empty cache means nothing to migrate:
// the count is zero and the database is never touched.
//
// WARNING: when the cache is non-empty this DESTROYS every show, comment,
// and progress row already in the database and re-creates the cached
// collection with its original ids and timestamps. It is not incremental
// and must not be re-run against a database the user wants to keep.
// Callers clear the cache only after this returns successfully.
func (s *LibraryService) MigrateLocalToRemote(ctx context.Context) (int, error) {
	shows, err := s.local.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	if len(shows) == 0 {
		return 0, nil
	}

	count, err := s.remote.ReplaceAllShows(ctx, shows)
	if err != nil {
		return 0, err
	}
	s.logger.Printf("Migrated %d shows from cache to database", count)
	return count, nil
}
