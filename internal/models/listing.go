package models

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// FilterAll is the sentinel that turns a type or status filter off.
const FilterAll = "all"

// Sort keys selectable for the show list. Exactly one is active at a time.
const (
	SortByStatus      = "status"
	SortByNameAsc     = "name-asc"
	SortByNameDesc    = "name-desc"
	SortByRatingDesc  = "rating-desc"
	SortByRatingAsc   = "rating-asc"
	SortByYearDesc    = "year-desc"
	SortByYearAsc     = "year-asc"
	SortByUpdatedDesc = "updated-desc"
	SortByUpdatedAsc  = "updated-asc"
	SortByAddedDesc   = "added-desc"
	SortByAddedAsc    = "added-asc"
)

// statusPriority is the fixed default ranking: actively watched shows
// first, finished ones last.
var statusPriority = map[WatchStatus]int{
	StatusWatching:       0,
	StatusWatchingOnHold: 1,
	StatusWantToWatch:    2,
	StatusCompleted:      3,
}

// ListFilter holds the independent, AND-combined list predicates. A zero
// Query and FilterAll (or empty) Type/Status leave that predicate off.
type ListFilter struct {
	Query  string
	Type   string
	Status string
}

// Matches reports whether a single show passes every active predicate.
func (f ListFilter) Matches(show Show) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(show.Name), q) &&
			!strings.Contains(strings.ToLower(show.Description), q) {
			return false
		}
	}
	if f.Type != "" && f.Type != FilterAll && string(show.Type) != f.Type {
		return false
	}
	if f.Status != "" && f.Status != FilterAll && string(show.WatchStatus) != f.Status {
		return false
	}
	return true
}

// FilterShows returns the subset of shows passing the filter. The input
// slice is never modified.
func FilterShows(shows []Show, filter ListFilter) []Show {
	out := make([]Show, 0, len(shows))
	for _, show := range shows {
		if filter.Matches(show) {
			out = append(out, show)
		}
	}
	return out
}

// nameCollator compares show names the way a user-facing list expects,
// not by raw byte order.
var nameCollator = collate.New(language.English, collate.Loose)

// SortShows returns a new slice ordered by the selected sort key. An
// unknown key leaves the input order untouched. The ordering is stable
// and deterministic for any given input.
func SortShows(shows []Show, sortBy string) []Show {
	out := make([]Show, len(shows))
	copy(out, shows)

	less := lessFunc(sortBy)
	if less == nil {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	return out
}

func lessFunc(sortBy string) func(a, b Show) bool {
	switch sortBy {
	case SortByStatus:
		return func(a, b Show) bool {
			ap, bp := statusPriority[a.WatchStatus], statusPriority[b.WatchStatus]
			if ap != bp {
				return ap < bp
			}
			// Same status: most recently touched first.
			return a.UpdatedAt.After(b.UpdatedAt)
		}
	case SortByNameAsc:
		return func(a, b Show) bool {
			return nameCollator.CompareString(a.Name, b.Name) < 0
		}
	case SortByNameDesc:
		return func(a, b Show) bool {
			return nameCollator.CompareString(b.Name, a.Name) < 0
		}
	case SortByRatingDesc:
		return func(a, b Show) bool { return ratingOrZero(b) < ratingOrZero(a) }
	case SortByRatingAsc:
		return func(a, b Show) bool { return ratingOrZero(a) < ratingOrZero(b) }
	case SortByYearDesc:
		return func(a, b Show) bool { return b.ReleaseYear < a.ReleaseYear }
	case SortByYearAsc:
		return func(a, b Show) bool { return a.ReleaseYear < b.ReleaseYear }
	case SortByUpdatedDesc:
		return func(a, b Show) bool { return a.UpdatedAt.After(b.UpdatedAt) }
	case SortByUpdatedAsc:
		return func(a, b Show) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case SortByAddedDesc:
		return func(a, b Show) bool { return a.CreatedAt.After(b.CreatedAt) }
	case SortByAddedAsc:
		return func(a, b Show) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
	return nil
}

func ratingOrZero(s Show) float64 {
	if s.MyRating == nil {
		return 0
	}
	return *s.MyRating
}
