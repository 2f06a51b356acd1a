package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ShowType classifies a tracked item.
type ShowType string

const (
	TypeMovie       ShowType = "movie"
	TypeTVSeries    ShowType = "tv_series"
	TypeDocumentary ShowType = "documentary"
)

// WatchStatus is the user's standing with a show.
type WatchStatus string

const (
	StatusWantToWatch    WatchStatus = "want_to_watch"
	StatusWatching       WatchStatus = "watching"
	StatusWatchingOnHold WatchStatus = "watching_on_hold"
	StatusCompleted      WatchStatus = "completed"
)

// ValidShowType reports whether t is one of the known show types.
func ValidShowType(t ShowType) bool {
	switch t {
	case TypeMovie, TypeTVSeries, TypeDocumentary:
		return true
	}
	return false
}

// ValidWatchStatus reports whether s is one of the known watch statuses.
func ValidWatchStatus(s WatchStatus) bool {
	switch s {
	case StatusWantToWatch, StatusWatching, StatusWatchingOnHold, StatusCompleted:
		return true
	}
	return false
}

// Progress is the user's last-known position within a show. Season and
// episode apply to series; TimeWatched is free text for movies and
// documentaries.
type Progress struct {
	Season      *int    `json:"season,omitempty"`
	Episode     *int    `json:"episode,omitempty"`
	TimeWatched *string `json:"timeWatched,omitempty"`
}

// Comment is a free-text note owned by exactly one show. Comments are
// immutable after creation and are removed only by deleting the parent.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Show is the root entity of the watchlist.
type Show struct {
	ID                   uuid.UUID   `json:"id"`
	Name                 string      `json:"name"`
	Description          string      `json:"description"`
	Type                 ShowType    `json:"type"`
	ReleaseYear          int         `json:"releaseYear"`
	RottenTomatoesRating *int        `json:"rottenTomatoesRating,omitempty"`
	MyRating             *float64    `json:"myRating,omitempty"`
	NumberOfSeasons      *int        `json:"numberOfSeasons,omitempty"`
	CompletedSeasons     []int       `json:"completedSeasons"`
	CurrentProgress      *Progress   `json:"currentProgress,omitempty"`
	TrailerLink          *string     `json:"trailerLink,omitempty"`
	PosterURL            *string     `json:"posterUrl,omitempty"`
	WatchStatus          WatchStatus `json:"watchStatus"`
	CreatedAt            time.Time   `json:"createdAt"`
	UpdatedAt            time.Time   `json:"updatedAt"`
	Comments             []Comment   `json:"comments"`
}

// ShowDraft is the input for creating a show. The backend that accepts the
// write assigns the id and both timestamps; comments always start empty.
type ShowDraft struct {
	Name                 string      `json:"name"`
	Description          string      `json:"description"`
	Type                 ShowType    `json:"type"`
	ReleaseYear          int         `json:"releaseYear"`
	RottenTomatoesRating *int        `json:"rottenTomatoesRating,omitempty"`
	MyRating             *float64    `json:"myRating,omitempty"`
	NumberOfSeasons      *int        `json:"numberOfSeasons,omitempty"`
	CompletedSeasons     []int       `json:"completedSeasons,omitempty"`
	CurrentProgress      *Progress   `json:"currentProgress,omitempty"`
	TrailerLink          *string     `json:"trailerLink,omitempty"`
	PosterURL            *string     `json:"posterUrl,omitempty"`
	WatchStatus          WatchStatus `json:"watchStatus"`
}

// Validate checks the fields a draft must carry before any backend will
// accept it.
func (d ShowDraft) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !ValidShowType(d.Type) {
		return fmt.Errorf("invalid show type %q", d.Type)
	}
	if !ValidWatchStatus(d.WatchStatus) {
		return fmt.Errorf("invalid watch status %q", d.WatchStatus)
	}
	if d.ReleaseYear < 1900 || d.ReleaseYear > time.Now().Year()+5 {
		return fmt.Errorf("implausible release year %d", d.ReleaseYear)
	}
	return nil
}

// ShowUpdate carries a partial update: only non-nil fields are merged into
// the existing show. CurrentProgress replaces the whole progress record,
// never individual fields of it.
type ShowUpdate struct {
	Name                 *string      `json:"name,omitempty"`
	Description          *string      `json:"description,omitempty"`
	Type                 *ShowType    `json:"type,omitempty"`
	ReleaseYear          *int         `json:"releaseYear,omitempty"`
	RottenTomatoesRating *int         `json:"rottenTomatoesRating,omitempty"`
	MyRating             *float64     `json:"myRating,omitempty"`
	NumberOfSeasons      *int         `json:"numberOfSeasons,omitempty"`
	CompletedSeasons     *[]int       `json:"completedSeasons,omitempty"`
	CurrentProgress      *Progress    `json:"currentProgress,omitempty"`
	TrailerLink          *string      `json:"trailerLink,omitempty"`
	PosterURL            *string      `json:"posterUrl,omitempty"`
	WatchStatus          *WatchStatus `json:"watchStatus,omitempty"`
}

// Apply merges the update into show in place and refreshes UpdatedAt.
// UpdatedAt advances even when no field is supplied.
func (u ShowUpdate) Apply(show *Show, now time.Time) {
	if u.Name != nil {
		show.Name = *u.Name
	}
	if u.Description != nil {
		show.Description = *u.Description
	}
	if u.Type != nil {
		show.Type = *u.Type
	}
	if u.ReleaseYear != nil {
		show.ReleaseYear = *u.ReleaseYear
	}
	if u.RottenTomatoesRating != nil {
		show.RottenTomatoesRating = u.RottenTomatoesRating
	}
	if u.MyRating != nil {
		show.MyRating = u.MyRating
	}
	if u.NumberOfSeasons != nil {
		show.NumberOfSeasons = u.NumberOfSeasons
	}
	if u.CompletedSeasons != nil {
		show.CompletedSeasons = NormalizeSeasons(*u.CompletedSeasons)
	}
	if u.CurrentProgress != nil {
		p := *u.CurrentProgress
		show.CurrentProgress = &p
	}
	if u.TrailerLink != nil {
		show.TrailerLink = u.TrailerLink
	}
	if u.PosterURL != nil {
		show.PosterURL = u.PosterURL
	}
	if u.WatchStatus != nil {
		show.WatchStatus = *u.WatchStatus
	}
	show.UpdatedAt = now
}

// NormalizeSeasons returns the canonical form of a completed-seasons set:
// sorted ascending, duplicates removed, never nil.
func NormalizeSeasons(seasons []int) []int {
	out := make([]int, 0, len(seasons))
	seen := make(map[int]bool, len(seasons))
	for _, s := range seasons {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Ints(out)
	return out
}

// EncodeSeasons serializes a completed-seasons set to its stored scalar
// form, a JSON int array. The set is normalized before encoding.
func EncodeSeasons(seasons []int) (string, error) {
	data, err := json.Marshal(NormalizeSeasons(seasons))
	if err != nil {
		return "", fmt.Errorf("failed to encode completed seasons: %w", err)
	}
	return string(data), nil
}

// DecodeSeasons parses the stored scalar form back into a set. The empty
// and absent cases both decode to an empty set, never nil; every storage
// backend must honor this identically.
func DecodeSeasons(raw string) ([]int, error) {
	if raw == "" {
		return []int{}, nil
	}
	var seasons []int
	if err := json.Unmarshal([]byte(raw), &seasons); err != nil {
		return nil, fmt.Errorf("failed to decode completed seasons: %w", err)
	}
	return NormalizeSeasons(seasons), nil
}
