package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Media types used by the catalog service.
const (
	MediaTypeMovie = "movie"
	MediaTypeTV    = "tv"
	MediaTypeAll   = "all"
)

// movieToTVGenre remaps movie-only genre ids to their nearest series
// equivalent before querying the tv discovery endpoint; the two genre
// vocabularies are not the same. 878 is Science Fiction, 10765 is the
// combined Sci-Fi & Fantasy tv genre.
var movieToTVGenre = map[int]int{
	878: 10765,
}

// movieDiscoverMinVotes suppresses obscure entries in movie discovery.
// TV vote counts run much lower, so the same floor would return
// near-empty result sets there and is not applied.
const movieDiscoverMinVotes = 10

// CatalogError is the typed failure for any non-success response from
// the catalog service. It carries the upstream HTTP status; there are no
// retries, a single failure is terminal for that operation.
type CatalogError struct {
	StatusCode int
	Body       string
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog API error: status %d, body: %s", e.StatusCode, e.Body)
}

// CatalogService handles interactions with The Movie Database API
type CatalogService struct {
	client       *http.Client
	apiKey       string
	baseURL      string
	imageBaseURL string
}

// CatalogConfig holds catalog service configuration
type CatalogConfig struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
}

// NewCatalogService creates a new catalog service
func NewCatalogService(cfg CatalogConfig) *CatalogService {
	return &CatalogService{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// CatalogResult is the single normalized search hit. Movie and tv hits
// carry their name and date under different keys upstream; the variant is
// resolved here at the boundary and discriminated by MediaType.
type CatalogResult struct {
	ID          int     `json:"id"`
	DisplayName string  `json:"displayName"`
	Overview    string  `json:"overview"`
	MediaType   string  `json:"mediaType"`
	ReleaseDate string  `json:"releaseDate,omitempty"`
	PosterPath  *string `json:"posterPath,omitempty"`
	GenreIDs    []int   `json:"genreIds"`
	VoteAverage float64 `json:"voteAverage"`
	VoteCount   int     `json:"voteCount"`
}

// SearchResponse is one page of normalized results
type SearchResponse struct {
	Page         int             `json:"page"`
	Results      []CatalogResult `json:"results"`
	TotalPages   int             `json:"totalPages"`
	TotalResults int             `json:"totalResults"`
}

// Genre is one entry of the external genre vocabulary
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GenreVocabulary carries the deduplicated union plus each list on its
// own; a media-type-filtered UI must not offer a genre irrelevant to the
// selected type.
type GenreVocabulary struct {
	Genres      []Genre `json:"genres"`
	MovieGenres []Genre `json:"movieGenres"`
	TVGenres    []Genre `json:"tvGenres"`
}

// DetailedMovie is the full movie record for preview display
type DetailedMovie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  *string `json:"poster_path"`
	PosterURL   string  `json:"posterUrl,omitempty"`
	Genres      []Genre `json:"genres"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Runtime     *int    `json:"runtime"`
	Tagline     string  `json:"tagline"`
	Homepage    string  `json:"homepage"`
}

// DetailedTV is the full series record for preview display
type DetailedTV struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	Overview         string  `json:"overview"`
	FirstAirDate     string  `json:"first_air_date"`
	PosterPath       *string `json:"poster_path"`
	PosterURL        string  `json:"posterUrl,omitempty"`
	Genres           []Genre `json:"genres"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	NumberOfSeasons  int     `json:"number_of_seasons"`
	NumberOfEpisodes int     `json:"number_of_episodes"`
	Homepage         string  `json:"homepage"`
}

// rawResult is the heterogeneous upstream shape before normalization
type rawResult struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	PosterPath   *string `json:"poster_path"`
	GenreIDs     []int   `json:"genre_ids"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	MediaType    string  `json:"media_type"`
}

type rawSearchResponse struct {
	Page         int         `json:"page"`
	Results      []rawResult `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}

// normalize resolves the movie/tv shape split. Discover and the
// type-specific search endpoints omit media_type, so the caller supplies
// it as the fallback. Hits that are neither movies nor series (the multi
// endpoint also returns people) are dropped.
func (r rawSearchResponse) normalize(fallbackType string) SearchResponse {
	out := SearchResponse{
		Page:         r.Page,
		Results:      make([]CatalogResult, 0, len(r.Results)),
		TotalPages:   r.TotalPages,
		TotalResults: r.TotalResults,
	}
	for _, raw := range r.Results {
		mediaType := raw.MediaType
		if mediaType == "" {
			mediaType = fallbackType
		}
		if mediaType != MediaTypeMovie && mediaType != MediaTypeTV {
			continue
		}

		result := CatalogResult{
			ID:          raw.ID,
			Overview:    raw.Overview,
			MediaType:   mediaType,
			PosterPath:  raw.PosterPath,
			GenreIDs:    raw.GenreIDs,
			VoteAverage: raw.VoteAverage,
			VoteCount:   raw.VoteCount,
		}
		if mediaType == MediaTypeMovie {
			result.DisplayName = raw.Title
			result.ReleaseDate = raw.ReleaseDate
		} else {
			result.DisplayName = raw.Name
			result.ReleaseDate = raw.FirstAirDate
		}
		out.Results = append(out.Results, result)
	}
	return out
}

// doRequest performs an HTTP request to the catalog API
func (s *CatalogService) doRequest(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	url := fmt.Sprintf("%s%s", s.baseURL, endpoint)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
	req.Header.Set("Content-Type", "application/json")

	q := req.URL.Query()
	q.Add("language", "en-US")
	q.Add("include_adult", "false")
	for key, value := range params {
		q.Add(key, value)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &CatalogError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

func (s *CatalogService) search(ctx context.Context, endpoint string, params map[string]string, fallbackType string) (*SearchResponse, error) {
	body, err := s.doRequest(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	var raw rawSearchResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal search results: %w", err)
	}

	response := raw.normalize(fallbackType)
	return &response, nil
}

// yearRangeParams expresses an inclusive year range as Jan 1 / Dec 31
// bounds on the media type's release-date field.
func yearRangeParams(params map[string]string, mediaType, yearFrom, yearTo string) {
	field := "primary_release_date"
	if mediaType == MediaTypeTV {
		field = "first_air_date"
	}
	if yearFrom != "" {
		params[field+".gte"] = yearFrom + "-01-01"
	}
	if yearTo != "" {
		params[field+".lte"] = yearTo + "-12-31"
	}
}

// SearchByTitle searches the catalog by title. With mediaType "all" the
// combined multi endpoint is used, which does not support server-side
// year filtering: results come back unfiltered by year, a documented and
// accepted limitation. The type-specific endpoints apply the year range
// server-side.
func (s *CatalogService) SearchByTitle(ctx context.Context, query, yearFrom, yearTo, mediaType string) (*SearchResponse, error) {
	params := map[string]string{"query": query}

	switch mediaType {
	case MediaTypeMovie:
		yearRangeParams(params, MediaTypeMovie, yearFrom, yearTo)
		return s.search(ctx, "/search/movie", params, MediaTypeMovie)
	case MediaTypeTV:
		yearRangeParams(params, MediaTypeTV, yearFrom, yearTo)
		return s.search(ctx, "/search/tv", params, MediaTypeTV)
	default:
		return s.search(ctx, "/search/multi", params, "")
	}
}

// SearchByGenre runs a discovery query sorted by descending popularity.
// Movie genre ids are remapped to their series equivalents before hitting
// the tv endpoint.
func (s *CatalogService) SearchByGenre(ctx context.Context, genreIDs []int, mediaType, yearFrom, yearTo string) (*SearchResponse, error) {
	endpoint := "/discover/movie"
	if mediaType == MediaTypeTV {
		endpoint = "/discover/tv"
		mapped := make([]int, len(genreIDs))
		for i, id := range genreIDs {
			if tvID, ok := movieToTVGenre[id]; ok {
				mapped[i] = tvID
			} else {
				mapped[i] = id
			}
		}
		genreIDs = mapped
	}

	ids := make([]string, len(genreIDs))
	for i, id := range genreIDs {
		ids[i] = strconv.Itoa(id)
	}

	params := map[string]string{
		"with_genres": strings.Join(ids, ","),
		"sort_by":     "popularity.desc",
	}
	if mediaType == MediaTypeMovie {
		params["vote_count.gte"] = strconv.Itoa(movieDiscoverMinVotes)
	}
	yearRangeParams(params, mediaType, yearFrom, yearTo)

	return s.search(ctx, endpoint, params, mediaType)
}

// SearchByPlotSubstring finds results whose overview contains the given
// text. The catalog has no plot search, so this runs the combined title
// search and post-filters locally: a case-insensitive substring match on
// the overview, then the year window derived from whichever release-date
// field is present. Entries with no release date pass the year filter.
func (s *CatalogService) SearchByPlotSubstring(ctx context.Context, text, yearFrom, yearTo string) (*SearchResponse, error) {
	response, err := s.SearchByTitle(ctx, text, "", "", MediaTypeAll)
	if err != nil {
		return nil, err
	}

	fromYear := 0
	toYear := 9999
	if yearFrom != "" {
		if y, err := strconv.Atoi(yearFrom); err == nil {
			fromYear = y
		}
	}
	if yearTo != "" {
		if y, err := strconv.Atoi(yearTo); err == nil {
			toYear = y
		}
	}

	needle := strings.ToLower(text)
	filtered := make([]CatalogResult, 0, len(response.Results))
	for _, result := range response.Results {
		if !strings.Contains(strings.ToLower(result.Overview), needle) {
			continue
		}
		if len(result.ReleaseDate) >= 4 {
			year, err := strconv.Atoi(result.ReleaseDate[:4])
			if err == nil && (year < fromYear || year > toYear) {
				continue
			}
		}
		filtered = append(filtered, result)
	}

	response.Results = filtered
	response.TotalResults = len(filtered)
	return response, nil
}

// SearchByRating discovers titles inside a percentage score window,
// converted back to the catalog's 0-10 vote scale. A high vote-count
// floor keeps barely-rated titles out of a rating-sorted listing.
func (s *CatalogService) SearchByRating(ctx context.Context, minPercent, maxPercent int, mediaType string) (*SearchResponse, error) {
	endpoint := "/discover/movie"
	if mediaType == MediaTypeTV {
		endpoint = "/discover/tv"
	}

	params := map[string]string{
		"vote_average.gte": strconv.FormatFloat(float64(minPercent)/10, 'f', -1, 64),
		"vote_average.lte": strconv.FormatFloat(float64(maxPercent)/10, 'f', -1, 64),
		"vote_count.gte":   "100",
		"sort_by":          "vote_average.desc",
	}

	return s.search(ctx, endpoint, params, mediaType)
}

// GetMovieDetails retrieves the full movie record by external id
func (s *CatalogService) GetMovieDetails(ctx context.Context, id int) (*DetailedMovie, error) {
	body, err := s.doRequest(ctx, fmt.Sprintf("/movie/%d", id), nil)
	if err != nil {
		return nil, err
	}

	var movie DetailedMovie
	if err := json.Unmarshal(body, &movie); err != nil {
		return nil, fmt.Errorf("failed to unmarshal movie details: %w", err)
	}
	if movie.PosterPath != nil {
		movie.PosterURL = s.ImageURL(*movie.PosterPath, "")
	}
	return &movie, nil
}

// GetTVDetails retrieves the full series record by external id
func (s *CatalogService) GetTVDetails(ctx context.Context, id int) (*DetailedTV, error) {
	body, err := s.doRequest(ctx, fmt.Sprintf("/tv/%d", id), nil)
	if err != nil {
		return nil, err
	}

	var tv DetailedTV
	if err := json.Unmarshal(body, &tv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tv details: %w", err)
	}
	if tv.PosterPath != nil {
		tv.PosterURL = s.ImageURL(*tv.PosterPath, "")
	}
	return &tv, nil
}

// GetGenreVocabulary fetches the movie and tv genre lists concurrently
// and returns their deduplicated union alongside each individual list.
func (s *CatalogService) GetGenreVocabulary(ctx context.Context) (*GenreVocabulary, error) {
	type genreList struct {
		Genres []Genre `json:"genres"`
	}

	var (
		wg              sync.WaitGroup
		movies, tv      genreList
		movieErr, tvErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		body, err := s.doRequest(ctx, "/genre/movie/list", nil)
		if err != nil {
			movieErr = err
			return
		}
		movieErr = json.Unmarshal(body, &movies)
	}()
	go func() {
		defer wg.Done()
		body, err := s.doRequest(ctx, "/genre/tv/list", nil)
		if err != nil {
			tvErr = err
			return
		}
		tvErr = json.Unmarshal(body, &tv)
	}()
	wg.Wait()

	if movieErr != nil {
		return nil, fmt.Errorf("failed to fetch movie genres: %w", movieErr)
	}
	if tvErr != nil {
		return nil, fmt.Errorf("failed to fetch tv genres: %w", tvErr)
	}

	seen := make(map[int]bool)
	union := make([]Genre, 0, len(movies.Genres)+len(tv.Genres))
	for _, genre := range append(append([]Genre{}, movies.Genres...), tv.Genres...) {
		if !seen[genre.ID] {
			seen[genre.ID] = true
			union = append(union, genre)
		}
	}

	return &GenreVocabulary{
		Genres:      union,
		MovieGenres: movies.Genres,
		TVGenres:    tv.Genres,
	}, nil
}

// ScoreToPercent converts the catalog's 0-10 vote average to a 0-100
// display score.
func ScoreToPercent(voteAverage float64) int {
	return int(math.Round(voteAverage * 10))
}

// ImageURL returns the full URL for an image path at the given size
// (w200, w500, original). An empty path yields an empty string.
func (s *CatalogService) ImageURL(path, size string) string {
	if path == "" {
		return ""
	}
	if size == "" {
		size = "w500"
	}
	return fmt.Sprintf("%s/%s%s", s.imageBaseURL, size, path)
}
