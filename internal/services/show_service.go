package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grantnilsson/ShowTracker/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ShowService is the Postgres-backed show store, the source of truth
// whenever the database is reachable.
type ShowService struct {
	db *pgxpool.Pool
}

// NewShowService creates a new ShowService
func NewShowService(db *pgxpool.Pool) *ShowService {
	return &ShowService{db: db}
}

const showColumns = `
	id, name, description, type, release_year, rotten_tomatoes_rating,
	my_rating, number_of_seasons, completed_seasons, trailer_link,
	poster_url, watch_status, created_at, updated_at
`

// scanShow scans one shows row. Comments and progress are attached
// separately.
func scanShow(row pgx.Row) (*models.Show, error) {
	var show models.Show
	var rawSeasons *string
	err := row.Scan(
		&show.ID,
		&show.Name,
		&show.Description,
		&show.Type,
		&show.ReleaseYear,
		&show.RottenTomatoesRating,
		&show.MyRating,
		&show.NumberOfSeasons,
		&rawSeasons,
		&show.TrailerLink,
		&show.PosterURL,
		&show.WatchStatus,
		&show.CreatedAt,
		&show.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	encoded := ""
	if rawSeasons != nil {
		encoded = *rawSeasons
	}
	seasons, err := models.DecodeSeasons(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode completed seasons for show %s: %w", show.ID, err)
	}
	show.CompletedSeasons = seasons
	show.Comments = []models.Comment{}
	return &show, nil
}

// ListShows retrieves all shows ordered by updatedAt descending
func (s *ShowService) ListShows(ctx context.Context) ([]models.Show, error) {
	query := `SELECT ` + showColumns + ` FROM shows ORDER BY updated_at DESC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query shows: %w", err)
	}
	defer rows.Close()

	shows := []models.Show{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		show, err := scanShow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan show: %w", err)
		}
		index[show.ID] = len(shows)
		shows = append(shows, *show)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shows: %w", err)
	}

	if err := s.attachComments(ctx, shows, index); err != nil {
		return nil, err
	}
	if err := s.attachProgress(ctx, shows, index); err != nil {
		return nil, err
	}

	return shows, nil
}

func (s *ShowService) attachComments(ctx context.Context, shows []models.Show, index map[uuid.UUID]int) error {
	rows, err := s.db.Query(ctx, `
		SELECT show_id, id, text, created_at
		FROM comments
		ORDER BY created_at DESC
	`)
	if err != nil {
		return fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var showID uuid.UUID
		var comment models.Comment
		if err := rows.Scan(&showID, &comment.ID, &comment.Text, &comment.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan comment: %w", err)
		}
		if i, ok := index[showID]; ok {
			shows[i].Comments = append(shows[i].Comments, comment)
		}
	}
	return rows.Err()
}

func (s *ShowService) attachProgress(ctx context.Context, shows []models.Show, index map[uuid.UUID]int) error {
	rows, err := s.db.Query(ctx, `SELECT show_id, season, episode, time_watched FROM progress`)
	if err != nil {
		return fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var showID uuid.UUID
		var progress models.Progress
		if err := rows.Scan(&showID, &progress.Season, &progress.Episode, &progress.TimeWatched); err != nil {
			return fmt.Errorf("failed to scan progress: %w", err)
		}
		if i, ok := index[showID]; ok {
			shows[i].CurrentProgress = &progress
		}
	}
	return rows.Err()
}

// GetShow retrieves a single show by ID with its comments newest-first
func (s *ShowService) GetShow(ctx context.Context, id uuid.UUID) (*models.Show, error) {
	query := `SELECT ` + showColumns + ` FROM shows WHERE id = $1`

	show, err := scanShow(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, fmt.Errorf("failed to get show: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, text, created_at
		FROM comments
		WHERE show_id = $1
		ORDER BY created_at DESC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var comment models.Comment
		if err := rows.Scan(&comment.ID, &comment.Text, &comment.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		show.Comments = append(show.Comments, comment)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}

	var progress models.Progress
	err = s.db.QueryRow(ctx, `
		SELECT season, episode, time_watched FROM progress WHERE show_id = $1
	`, id).Scan(&progress.Season, &progress.Episode, &progress.TimeWatched)
	if err == nil {
		show.CurrentProgress = &progress
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}

	return show, nil
}

// CreateShow inserts a new show with a fresh id and current timestamps
func (s *ShowService) CreateShow(ctx context.Context, draft models.ShowDraft) (*models.Show, error) {
	encoded, err := models.EncodeSeasons(draft.CompletedSeasons)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	now := time.Now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO shows (
			id, name, description, type, release_year, rotten_tomatoes_rating,
			my_rating, number_of_seasons, completed_seasons, trailer_link,
			poster_url, watch_status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	`,
		id, draft.Name, draft.Description, draft.Type, draft.ReleaseYear,
		draft.RottenTomatoesRating, draft.MyRating, draft.NumberOfSeasons,
		encoded, draft.TrailerLink, draft.PosterURL, draft.WatchStatus, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create show: %w", err)
	}

	if draft.CurrentProgress != nil {
		p := draft.CurrentProgress
		_, err = tx.Exec(ctx, `
			INSERT INTO progress (show_id, season, episode, time_watched)
			VALUES ($1, $2, $3, $4)
		`, id, p.Season, p.Episode, p.TimeWatched)
		if err != nil {
			return nil, fmt.Errorf("failed to create progress: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit show: %w", err)
	}

	return s.GetShow(ctx, id)
}

// UpdateShow merges only the supplied fields into an existing show.
// updated_at is always reset, even when nothing else changed.
func (s *ShowService) UpdateShow(ctx context.Context, id uuid.UUID, update models.ShowUpdate) (*models.Show, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Build dynamic update query
	query := `UPDATE shows SET updated_at = NOW()`
	args := []interface{}{}
	argCount := 0

	addField := func(column string, value interface{}) {
		argCount++
		query += fmt.Sprintf(`, %s = $%d`, column, argCount)
		args = append(args, value)
	}

	if update.Name != nil {
		addField("name", *update.Name)
	}
	if update.Description != nil {
		addField("description", *update.Description)
	}
	if update.Type != nil {
		addField("type", *update.Type)
	}
	if update.ReleaseYear != nil {
		addField("release_year", *update.ReleaseYear)
	}
	if update.RottenTomatoesRating != nil {
		addField("rotten_tomatoes_rating", *update.RottenTomatoesRating)
	}
	if update.MyRating != nil {
		addField("my_rating", *update.MyRating)
	}
	if update.NumberOfSeasons != nil {
		addField("number_of_seasons", *update.NumberOfSeasons)
	}
	if update.CompletedSeasons != nil {
		encoded, err := models.EncodeSeasons(*update.CompletedSeasons)
		if err != nil {
			return nil, err
		}
		addField("completed_seasons", encoded)
	}
	if update.TrailerLink != nil {
		addField("trailer_link", *update.TrailerLink)
	}
	if update.PosterURL != nil {
		addField("poster_url", *update.PosterURL)
	}
	if update.WatchStatus != nil {
		addField("watch_status", *update.WatchStatus)
	}

	argCount++
	query += fmt.Sprintf(` WHERE id = $%d`, argCount)
	args = append(args, id)

	result, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update show: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, ErrShowNotFound
	}

	// Progress is upserted as a replace-all of the record, never a
	// partial merge of its fields.
	if update.CurrentProgress != nil {
		p := update.CurrentProgress
		_, err = tx.Exec(ctx, `
			INSERT INTO progress (show_id, season, episode, time_watched)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (show_id) DO UPDATE
			SET season = $2, episode = $3, time_watched = $4
		`, id, p.Season, p.Episode, p.TimeWatched)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert progress: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}

	return s.GetShow(ctx, id)
}

// DeleteShow removes a show; owned comments and progress go with it via
// ON DELETE CASCADE. Reports false when the id does not exist.
func (s *ShowService) DeleteShow(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := s.db.Exec(ctx, `DELETE FROM shows WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete show: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// AddComment appends a comment to a show and returns the updated show
func (s *ShowService) AddComment(ctx context.Context, id uuid.UUID, text string) (*models.Show, error) {
	result, err := s.db.Exec(ctx, `
		INSERT INTO comments (id, show_id, text, created_at)
		SELECT $1, $2, $3, NOW()
		WHERE EXISTS (SELECT 1 FROM shows WHERE id = $2)
	`, uuid.New(), id, text)
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, ErrShowNotFound
	}

	return s.GetShow(ctx, id)
}

// ReplaceAllShows destructively replaces every show, comment, and
// progress row with the given collection, preserving original ids and
// timestamps. This backs the one-shot cache-to-database migration; it is
// NOT incremental and NOT safe against a database the user wants to keep.
func (s *ShowService) ReplaceAllShows(ctx context.Context, shows []models.Show) (int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Children first, then shows.
	for _, table := range []string{"comments", "progress", "shows"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table); err != nil {
			return 0, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, show := range shows {
		if err := insertShowWithRelations(ctx, tx, show); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit migration: %w", err)
	}

	return len(shows), nil
}

// ImportShow inserts one fully-formed show, keeping its id, timestamps,
// comments, and progress exactly as given. Used by the file import.
func (s *ShowService) ImportShow(ctx context.Context, show models.Show) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertShowWithRelations(ctx, tx, show); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

func insertShowWithRelations(ctx context.Context, tx pgx.Tx, show models.Show) error {
	encoded, err := models.EncodeSeasons(show.CompletedSeasons)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO shows (
			id, name, description, type, release_year, rotten_tomatoes_rating,
			my_rating, number_of_seasons, completed_seasons, trailer_link,
			poster_url, watch_status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		show.ID, show.Name, show.Description, show.Type, show.ReleaseYear,
		show.RottenTomatoesRating, show.MyRating, show.NumberOfSeasons,
		encoded, show.TrailerLink, show.PosterURL, show.WatchStatus,
		show.CreatedAt, show.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert show %q: %w", show.Name, err)
	}

	for _, comment := range show.Comments {
		_, err = tx.Exec(ctx, `
			INSERT INTO comments (id, show_id, text, created_at)
			VALUES ($1, $2, $3, $4)
		`, comment.ID, show.ID, comment.Text, comment.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert comment on %q: %w", show.Name, err)
		}
	}

	if show.CurrentProgress != nil {
		p := show.CurrentProgress
		_, err = tx.Exec(ctx, `
			INSERT INTO progress (show_id, season, episode, time_watched)
			VALUES ($1, $2, $3, $4)
		`, show.ID, p.Season, p.Episode, p.TimeWatched)
		if err != nil {
			return fmt.Errorf("failed to insert progress on %q: %w", show.Name, err)
		}
	}

	return nil
}
