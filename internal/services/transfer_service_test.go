package services

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantnilsson/ShowTracker/internal/models"
)

func newTestTransfer() (*TransferService, *memStore) {
	store := &memStore{}
	return NewTransferService(store, log.New(io.Discard, "", 0)), store
}

func TestExport_WritesVersionedDocument(t *testing.T) {
	transfer, store := newTestTransfer()
	_, err := store.CreateShow(context.Background(), draft("Heat"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.json")
	doc, err := transfer.Export(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "1.0", doc.Version)
	assert.False(t, doc.ExportedAt.IsZero())
	assert.Len(t, doc.Shows, 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk ExportDocument
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, doc.Version, onDisk.Version)
	require.Len(t, onDisk.Shows, 1)
	assert.Equal(t, "Heat", onDisk.Shows[0].Name)
}

func TestImport_TalliesPerRecord(t *testing.T) {
	transfer, store := newTestTransfer()

	existing, err := store.CreateShow(context.Background(), draft("Already Here"))
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	doc := ExportDocument{
		ExportedAt: now,
		Version:    "1.0",
		Shows: []models.Show{
			// Fresh record, imported with its identity intact.
			{
				ID:          uuid.New(),
				Name:        "Heat",
				Type:        models.TypeMovie,
				ReleaseYear: 1995,
				WatchStatus: models.StatusCompleted,
				CreatedAt:   now.Add(-48 * time.Hour),
				UpdatedAt:   now.Add(-24 * time.Hour),
				Comments:    []models.Comment{},
			},
			// Id collision, skipped.
			*existing,
			// Missing name, counted as failed without aborting the rest.
			{
				ID:          uuid.New(),
				Type:        models.TypeMovie,
				WatchStatus: models.StatusWatching,
			},
			// Imported even though it comes after a bad record.
			{
				ID:          uuid.New(),
				Name:        "Andor",
				Type:        models.TypeTVSeries,
				ReleaseYear: 2022,
				WatchStatus: models.StatusWatching,
				CreatedAt:   now,
				UpdatedAt:   now,
				Comments:    []models.Comment{},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "import.json")
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	summary, err := transfer.Import(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 3, store.count())

	imported, err := store.GetShow(context.Background(), doc.Shows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Shows[0].CreatedAt, imported.CreatedAt)
	assert.Equal(t, doc.Shows[0].UpdatedAt, imported.UpdatedAt)
}

func TestImport_RejectsUnsupportedVersion(t *testing.T) {
	transfer, _ := newTestTransfer()

	path := filepath.Join(t.TempDir(), "import.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"2.0","shows":[]}`), 0o644))

	_, err := transfer.Import(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export version")
}

func TestImport_MissingFile(t *testing.T) {
	transfer, _ := newTestTransfer()

	_, err := transfer.Import(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
