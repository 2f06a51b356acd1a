package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantnilsson/ShowTracker/internal/models"
)

func newTestCache(t *testing.T) *CacheService {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheService(client)
}

func TestCacheService_EmptyKeyIsEmptyCollection(t *testing.T) {
	cache := newTestCache(t)

	shows, err := cache.ListShows(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, shows)
	assert.Empty(t, shows)
}

func TestCacheService_CreateAndGet(t *testing.T) {
	cache := newTestCache(t)

	created, err := cache.CreateShow(context.Background(), draft("Heat"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	assert.NotNil(t, created.Comments)
	assert.NotNil(t, created.CompletedSeasons)

	got, err := cache.GetShow(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Heat", got.Name)

	_, err = cache.GetShow(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestCacheService_UpdateMergesSuppliedFieldsOnly(t *testing.T) {
	cache := newTestCache(t)

	created, err := cache.CreateShow(context.Background(), draft("Heat"))
	require.NoError(t, err)

	rating := 4.5
	updated, err := cache.UpdateShow(context.Background(), created.ID, models.ShowUpdate{MyRating: &rating})
	require.NoError(t, err)
	require.NotNil(t, updated.MyRating)
	assert.Equal(t, 4.5, *updated.MyRating)
	assert.Equal(t, "Heat", updated.Name)
	assert.Equal(t, models.StatusWantToWatch, updated.WatchStatus)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
}

func TestCacheService_UpdateUnknownIDIsNotFound(t *testing.T) {
	cache := newTestCache(t)

	name := "x"
	_, err := cache.UpdateShow(context.Background(), uuid.New(), models.ShowUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestCacheService_DeleteRemovesShowAndOwnedData(t *testing.T) {
	cache := newTestCache(t)

	created, err := cache.CreateShow(context.Background(), draft("Heat"))
	require.NoError(t, err)
	_, err = cache.AddComment(context.Background(), created.ID, "great score")
	require.NoError(t, err)

	keep, err := cache.CreateShow(context.Background(), draft("Andor"))
	require.NoError(t, err)

	deleted, err := cache.DeleteShow(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = cache.GetShow(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrShowNotFound)

	// The other show and its data are untouched.
	got, err := cache.GetShow(context.Background(), keep.ID)
	require.NoError(t, err)
	assert.Equal(t, "Andor", got.Name)

	deleted, err = cache.DeleteShow(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestCacheService_CommentsNewestFirst(t *testing.T) {
	cache := newTestCache(t)

	created, err := cache.CreateShow(context.Background(), draft("Heat"))
	require.NoError(t, err)

	_, err = cache.AddComment(context.Background(), created.ID, "first")
	require.NoError(t, err)
	got, err := cache.AddComment(context.Background(), created.ID, "second")
	require.NoError(t, err)

	require.Len(t, got.Comments, 2)
	assert.Equal(t, "second", got.Comments[0].Text)
	assert.Equal(t, "first", got.Comments[1].Text)

	_, err = cache.AddComment(context.Background(), uuid.New(), "orphan")
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestCacheService_ListOrderedByUpdatedDesc(t *testing.T) {
	cache := newTestCache(t)

	first, err := cache.CreateShow(context.Background(), draft("Older"))
	require.NoError(t, err)
	_, err = cache.CreateShow(context.Background(), draft("Newer"))
	require.NoError(t, err)

	// Touching the older show moves it back to the top.
	status := models.StatusWatching
	time.Sleep(5 * time.Millisecond)
	_, err = cache.UpdateShow(context.Background(), first.ID, models.ShowUpdate{WatchStatus: &status})
	require.NoError(t, err)

	shows, err := cache.ListShows(context.Background())
	require.NoError(t, err)
	require.Len(t, shows, 2)
	assert.Equal(t, "Older", shows[0].Name)
	assert.Equal(t, "Newer", shows[1].Name)
}

func TestCacheService_SeasonsNormalizedOnLoad(t *testing.T) {
	cache := newTestCache(t)

	d := draft("Andor")
	d.Type = models.TypeTVSeries
	d.CompletedSeasons = []int{3, 1, 3, 2}
	created, err := cache.CreateShow(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, created.CompletedSeasons)

	got, err := cache.GetShow(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got.CompletedSeasons)
}

func TestCacheService_SnapshotRoundTrip(t *testing.T) {
	cache := newTestCache(t)

	created, err := cache.CreateShow(context.Background(), draft("Heat"))
	require.NoError(t, err)

	snapshot, err := cache.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, created.ID, snapshot[0].ID)

	// The mirror overwrite replaces the whole document.
	require.NoError(t, cache.WriteSnapshot(context.Background(), nil))
	shows, err := cache.ListShows(context.Background())
	require.NoError(t, err)
	assert.Empty(t, shows)
}
