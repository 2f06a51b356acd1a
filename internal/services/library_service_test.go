package services

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantnilsson/ShowTracker/internal/models"
)

var errBackendDown = errors.New("connection refused")

// memStore is an in-memory ShowStore standing in for either backend. It
// implements both RemoteStore and LocalStore so one type covers the
// whole fallback matrix; flipping fail simulates a database outage.
type memStore struct {
	mu           sync.Mutex
	shows        []models.Show
	fail         bool
	replaceCalls int
	snapshots    int
}

func (m *memStore) ListShows(ctx context.Context) ([]models.Show, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errBackendDown
	}
	out := make([]models.Show, len(m.shows))
	copy(out, m.shows)
	return out, nil
}

func (m *memStore) GetShow(ctx context.Context, id uuid.UUID) (*models.Show, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errBackendDown
	}
	for i := range m.shows {
		if m.shows[i].ID == id {
			show := m.shows[i]
			return &show, nil
		}
	}
	return nil, ErrShowNotFound
}

func (m *memStore) CreateShow(ctx context.Context, draft models.ShowDraft) (*models.Show, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errBackendDown
	}
	now := time.Now()
	show := models.Show{
		ID:               uuid.New(),
		Name:             draft.Name,
		Description:      draft.Description,
		Type:             draft.Type,
		ReleaseYear:      draft.ReleaseYear,
		MyRating:         draft.MyRating,
		CompletedSeasons: models.NormalizeSeasons(draft.CompletedSeasons),
		CurrentProgress:  draft.CurrentProgress,
		WatchStatus:      draft.WatchStatus,
		CreatedAt:        now,
		UpdatedAt:        now,
		Comments:         []models.Comment{},
	}
	m.shows = append(m.shows, show)
	return &show, nil
}

func (m *memStore) UpdateShow(ctx context.Context, id uuid.UUID, update models.ShowUpdate) (*models.Show, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errBackendDown
	}
	for i := range m.shows {
		if m.shows[i].ID == id {
			update.Apply(&m.shows[i], time.Now())
			show := m.shows[i]
			return &show, nil
		}
	}
	return nil, ErrShowNotFound
}

func (m *memStore) DeleteShow(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return false, errBackendDown
	}
	for i := range m.shows {
		if m.shows[i].ID == id {
			m.shows = append(m.shows[:i], m.shows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) AddComment(ctx context.Context, id uuid.UUID, text string) (*models.Show, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errBackendDown
	}
	for i := range m.shows {
		if m.shows[i].ID == id {
			comment := models.Comment{ID: uuid.New(), Text: text, CreatedAt: time.Now()}
			m.shows[i].Comments = append([]models.Comment{comment}, m.shows[i].Comments...)
			show := m.shows[i]
			return &show, nil
		}
	}
	return nil, ErrShowNotFound
}

func (m *memStore) ReplaceAllShows(ctx context.Context, shows []models.Show) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceCalls++
	if m.fail {
		return 0, errBackendDown
	}
	m.shows = make([]models.Show, len(shows))
	copy(m.shows, shows)
	return len(shows), nil
}

func (m *memStore) ImportShow(ctx context.Context, show models.Show) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errBackendDown
	}
	m.shows = append(m.shows, show)
	return nil
}

func (m *memStore) Snapshot(ctx context.Context) ([]models.Show, error) {
	return m.ListShows(ctx)
}

func (m *memStore) WriteSnapshot(ctx context.Context, shows []models.Show) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errBackendDown
	}
	m.snapshots++
	m.shows = make([]models.Show, len(shows))
	copy(m.shows, shows)
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shows)
}

func (m *memStore) snapshotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots
}

func newTestLibrary() (*LibraryService, *memStore, *memStore) {
	remote := &memStore{}
	local := &memStore{}
	library := NewLibraryService(remote, local, log.New(io.Discard, "", 0))
	library.mirrorDone = make(chan struct{}, 8)
	return library, remote, local
}

func waitForMirror(t *testing.T, library *LibraryService) {
	t.Helper()
	select {
	case <-library.mirrorDone:
	case <-time.After(2 * time.Second):
		t.Fatal("mirror refresh never completed")
	}
}

func draft(name string) models.ShowDraft {
	return models.ShowDraft{
		Name:        name,
		Type:        models.TypeMovie,
		ReleaseYear: 2015,
		WatchStatus: models.StatusWantToWatch,
	}
}

func TestCreateShow_RemoteSuccessRefreshesMirror(t *testing.T) {
	library, remote, local := newTestLibrary()

	show, err := library.CreateShow(context.Background(), draft("Heat"))
	require.NoError(t, err)
	require.NotNil(t, show)
	assert.NotEqual(t, uuid.Nil, show.ID)

	waitForMirror(t, library)
	assert.Equal(t, 1, remote.count())
	assert.Equal(t, 1, local.count())
	assert.Equal(t, 1, local.snapshotCount())
}

func TestCreateShow_RemoteDownSynthesizesLocally(t *testing.T) {
	library, remote, local := newTestLibrary()
	remote.fail = true

	show, err := library.CreateShow(context.Background(), draft("Heat"))
	require.NoError(t, err)
	require.NotNil(t, show)
	assert.NotEqual(t, uuid.Nil, show.ID)
	assert.False(t, show.CreatedAt.IsZero())
	assert.Equal(t, show.CreatedAt, show.UpdatedAt)

	// The write landed in the cache only.
	assert.Equal(t, 0, remote.count())
	assert.Equal(t, 1, local.count())

	// And it is readable back through the same degraded path.
	got, err := library.GetShow(context.Background(), show.ID)
	require.NoError(t, err)
	assert.Equal(t, "Heat", got.Name)
}

func TestGetShow_NotFoundDoesNotFallBack(t *testing.T) {
	library, _, local := newTestLibrary()

	// Seed the cache with a show the database does not have. A healthy
	// database answering not-found must win over a stale cache hit.
	cached, err := local.CreateShow(context.Background(), draft("Stale"))
	require.NoError(t, err)

	_, err = library.GetShow(context.Background(), cached.ID)
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestUpdateShow_AdvancesUpdatedAt(t *testing.T) {
	library, _, _ := newTestLibrary()

	show, err := library.CreateShow(context.Background(), draft("Heat"))
	require.NoError(t, err)
	waitForMirror(t, library)

	status := models.StatusCompleted
	updated, err := library.UpdateShow(context.Background(), show.ID, models.ShowUpdate{WatchStatus: &status})
	require.NoError(t, err)
	waitForMirror(t, library)

	assert.Equal(t, models.StatusCompleted, updated.WatchStatus)
	assert.Equal(t, "Heat", updated.Name)
	assert.False(t, updated.UpdatedAt.Before(show.UpdatedAt))
}

func TestUpdateShow_UnknownIDIsNotFound(t *testing.T) {
	library, _, _ := newTestLibrary()

	name := "x"
	_, err := library.UpdateShow(context.Background(), uuid.New(), models.ShowUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestDeleteShow_ThenGetIsNotFound(t *testing.T) {
	library, _, _ := newTestLibrary()

	show, err := library.CreateShow(context.Background(), draft("Heat"))
	require.NoError(t, err)
	waitForMirror(t, library)

	deleted, err := library.DeleteShow(context.Background(), show.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	waitForMirror(t, library)

	_, err = library.GetShow(context.Background(), show.ID)
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestDeleteShow_UnknownIDReportsFalse(t *testing.T) {
	library, _, _ := newTestLibrary()

	deleted, err := library.DeleteShow(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteShow_FallsBackWhenRemoteDown(t *testing.T) {
	library, remote, _ := newTestLibrary()

	show, err := library.CreateShow(context.Background(), draft("Heat"))
	require.NoError(t, err)
	waitForMirror(t, library)

	remote.fail = true
	deleted, err := library.DeleteShow(context.Background(), show.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestAddComment_FallsBackWhenRemoteDown(t *testing.T) {
	library, remote, _ := newTestLibrary()

	show, err := library.CreateShow(context.Background(), draft("Heat"))
	require.NoError(t, err)
	waitForMirror(t, library)

	remote.fail = true
	updated, err := library.AddComment(context.Background(), show.ID, "rewatch soon")
	require.NoError(t, err)
	require.Len(t, updated.Comments, 1)
	assert.Equal(t, "rewatch soon", updated.Comments[0].Text)
}

func TestListShows_FallsBackToCacheWhenRemoteDown(t *testing.T) {
	library, remote, _ := newTestLibrary()

	_, err := library.CreateShow(context.Background(), draft("Heat"))
	require.NoError(t, err)
	waitForMirror(t, library)

	remote.fail = true
	shows, err := library.ListShows(context.Background())
	require.NoError(t, err)
	require.Len(t, shows, 1)
	assert.Equal(t, "Heat", shows[0].Name)
}

func TestListShows_MirrorsFreshListing(t *testing.T) {
	library, remote, local := newTestLibrary()

	_, err := remote.CreateShow(context.Background(), draft("Heat"))
	require.NoError(t, err)
	_, err = remote.CreateShow(context.Background(), draft("Andor"))
	require.NoError(t, err)

	shows, err := library.ListShows(context.Background())
	require.NoError(t, err)
	require.Len(t, shows, 2)

	waitForMirror(t, library)
	assert.Equal(t, 2, local.count())
}

func TestMigrateLocalToRemote_EmptyCacheNeverTouchesRemote(t *testing.T) {
	library, remote, _ := newTestLibrary()

	count, err := library.MigrateLocalToRemote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, remote.replaceCalls)
}

func TestMigrateLocalToRemote_ReplacesAndPreservesIdentity(t *testing.T) {
	library, remote, local := newTestLibrary()

	// The database already holds a show the migration must wipe.
	_, err := remote.CreateShow(context.Background(), draft("Doomed"))
	require.NoError(t, err)

	cached, err := local.CreateShow(context.Background(), draft("Heat"))
	require.NoError(t, err)

	count, err := library.MigrateLocalToRemote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, remote.replaceCalls)

	migrated, err := remote.GetShow(context.Background(), cached.ID)
	require.NoError(t, err)
	assert.Equal(t, cached.ID, migrated.ID)
	assert.Equal(t, cached.CreatedAt, migrated.CreatedAt)
	assert.Equal(t, cached.UpdatedAt, migrated.UpdatedAt)

	_, err = remote.GetShow(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, ErrShowNotFound)
	assert.Equal(t, 1, remote.count())
}

func TestMigrateLocalToRemote_RemoteFailureSurfaces(t *testing.T) {
	library, remote, local := newTestLibrary()

	_, err := local.CreateShow(context.Background(), draft("Heat"))
	require.NoError(t, err)

	remote.fail = true
	_, err = library.MigrateLocalToRemote(context.Background())
	assert.ErrorIs(t, err, errBackendDown)
}
