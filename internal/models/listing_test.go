package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listFixture() []Show {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rating := func(v float64) *float64 { return &v }
	return []Show{
		{Name: "The Bear", Description: "Kitchen chaos", Type: TypeTVSeries, ReleaseYear: 2022, WatchStatus: StatusCompleted, MyRating: rating(9), CreatedAt: now.Add(-96 * time.Hour), UpdatedAt: now},
		{Name: "Heat", Description: "Cops and robbers in LA", Type: TypeMovie, ReleaseYear: 1995, WatchStatus: StatusWatching, CreatedAt: now.Add(-72 * time.Hour), UpdatedAt: now},
		{Name: "Free Solo", Description: "Climbing El Capitan without ropes", Type: TypeDocumentary, ReleaseYear: 2018, WatchStatus: StatusWantToWatch, MyRating: rating(8), CreatedAt: now.Add(-48 * time.Hour), UpdatedAt: now},
		{Name: "Andor", Description: "A spy story", Type: TypeTVSeries, ReleaseYear: 2022, WatchStatus: StatusWatchingOnHold, MyRating: rating(8.5), CreatedAt: now.Add(-24 * time.Hour), UpdatedAt: now},
	}
}

func names(shows []Show) []string {
	out := make([]string, len(shows))
	for i, s := range shows {
		out[i] = s.Name
	}
	return out
}

func TestSortShows_StatusPriority(t *testing.T) {
	// Equal updatedAt everywhere, so only the fixed status ranking decides.
	sorted := SortShows(listFixture(), SortByStatus)
	assert.Equal(t, []string{"Heat", "Andor", "Free Solo", "The Bear"}, names(sorted))
}

func TestSortShows_StatusTiesBreakByUpdatedDesc(t *testing.T) {
	now := time.Now()
	shows := []Show{
		{Name: "older", WatchStatus: StatusWatching, UpdatedAt: now.Add(-time.Hour)},
		{Name: "newer", WatchStatus: StatusWatching, UpdatedAt: now},
	}
	sorted := SortShows(shows, SortByStatus)
	assert.Equal(t, []string{"newer", "older"}, names(sorted))
}

func TestSortShows_Name(t *testing.T) {
	asc := SortShows(listFixture(), SortByNameAsc)
	assert.Equal(t, []string{"Andor", "Free Solo", "Heat", "The Bear"}, names(asc))

	desc := SortShows(listFixture(), SortByNameDesc)
	assert.Equal(t, []string{"The Bear", "Heat", "Free Solo", "Andor"}, names(desc))
}

func TestSortShows_RatingMissingCountsAsZero(t *testing.T) {
	asc := SortShows(listFixture(), SortByRatingAsc)
	// Heat has no rating and sorts first ascending.
	assert.Equal(t, "Heat", asc[0].Name)

	desc := SortShows(listFixture(), SortByRatingDesc)
	assert.Equal(t, "The Bear", desc[0].Name)
	assert.Equal(t, "Heat", desc[len(desc)-1].Name)
}

func TestSortShows_Year(t *testing.T) {
	asc := SortShows(listFixture(), SortByYearAsc)
	assert.Equal(t, "Heat", asc[0].Name)

	desc := SortShows(listFixture(), SortByYearDesc)
	assert.Equal(t, 2022, desc[0].ReleaseYear)
}

func TestSortShows_Added(t *testing.T) {
	desc := SortShows(listFixture(), SortByAddedDesc)
	assert.Equal(t, "Andor", desc[0].Name)

	asc := SortShows(listFixture(), SortByAddedAsc)
	assert.Equal(t, "The Bear", asc[0].Name)
}

func TestSortShows_DoesNotMutateInput(t *testing.T) {
	shows := listFixture()
	original := names(shows)
	_ = SortShows(shows, SortByNameAsc)
	assert.Equal(t, original, names(shows))
}

func TestFilterShows_QueryMatchesNameOrDescription(t *testing.T) {
	byName := FilterShows(listFixture(), ListFilter{Query: "bear"})
	require.Len(t, byName, 1)
	assert.Equal(t, "The Bear", byName[0].Name)

	byDescription := FilterShows(listFixture(), ListFilter{Query: "el capitan"})
	require.Len(t, byDescription, 1)
	assert.Equal(t, "Free Solo", byDescription[0].Name)
}

func TestFilterShows_PredicatesCombineWithAnd(t *testing.T) {
	filtered := FilterShows(listFixture(), ListFilter{
		Query:  "a",
		Type:   string(TypeTVSeries),
		Status: string(StatusWatchingOnHold),
	})
	require.Len(t, filtered, 1)
	assert.Equal(t, "Andor", filtered[0].Name)
}

func TestFilterShows_AllSentinelIsNoOp(t *testing.T) {
	filtered := FilterShows(listFixture(), ListFilter{Type: FilterAll, Status: FilterAll})
	assert.Len(t, filtered, len(listFixture()))
}
