package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/grantnilsson/ShowTracker/internal/models"
)

// exportVersion tags the export document format
const exportVersion = "1.0"

// ExportDocument is the versioned wire format for out-of-band backend
// migration. Distinct from the cache-to-database migration: this one goes
// through a file.
type ExportDocument struct {
	ExportedAt time.Time     `json:"exportedAt"`
	Version    string        `json:"version"`
	Shows      []models.Show `json:"shows"`
}

// ImportSummary is the per-record tally of a bulk import
type ImportSummary struct {
	Total    int
	Imported int
	Skipped  int
	Failed   int
}

// TransferService moves the full collection between the database and a
// JSON file.
type TransferService struct {
	store  RemoteStore
	logger *log.Logger
}

// NewTransferService creates a new TransferService
func NewTransferService(store RemoteStore, logger *log.Logger) *TransferService {
	return &TransferService{store: store, logger: logger}
}

// Export writes the whole collection to path as a versioned JSON document
func (s *TransferService) Export(ctx context.Context, path string) (*ExportDocument, error) {
	shows, err := s.store.ListShows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read shows for export: %w", err)
	}

	doc := &ExportDocument{
		ExportedAt: time.Now().UTC(),
		Version:    exportVersion,
		Shows:      shows,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write export file: %w", err)
	}

	s.logger.Printf("Exported %d shows to %s", len(doc.Shows), path)
	return doc, nil
}

// Import reads a versioned JSON document from path and loads its shows
// into the database incrementally: a show whose id already exists is
// skipped, a malformed record is logged and skipped, and the import
// always runs to the end and reports a tally instead of aborting.
func (s *TransferService) Import(ctx context.Context, path string) (*ImportSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}

	var doc ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode import file: %w", err)
	}
	if doc.Version != exportVersion {
		return nil, fmt.Errorf("unsupported export version %q", doc.Version)
	}

	summary := &ImportSummary{Total: len(doc.Shows)}
	for _, show := range doc.Shows {
		if err := validateImportRecord(show); err != nil {
			s.logger.Printf("Skipping malformed record %q: %v", show.Name, err)
			summary.Failed++
			continue
		}

		_, err := s.store.GetShow(ctx, show.ID)
		if err == nil {
			s.logger.Printf("Skipping %q (already exists)", show.Name)
			summary.Skipped++
			continue
		}
		if !errors.Is(err, ErrShowNotFound) {
			s.logger.Printf("Failed to check %q: %v", show.Name, err)
			summary.Failed++
			continue
		}

		if err := s.store.ImportShow(ctx, show); err != nil {
			s.logger.Printf("Failed to import %q: %v", show.Name, err)
			summary.Failed++
			continue
		}
		summary.Imported++
	}

	s.logger.Printf("Import finished: %d imported, %d skipped, %d failed (of %d)",
		summary.Imported, summary.Skipped, summary.Failed, summary.Total)
	return summary, nil
}

func validateImportRecord(show models.Show) error {
	if show.ID == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if show.Name == "" {
		return fmt.Errorf("missing name")
	}
	if !models.ValidShowType(show.Type) {
		return fmt.Errorf("invalid type %q", show.Type)
	}
	if !models.ValidWatchStatus(show.WatchStatus) {
		return fmt.Errorf("invalid watch status %q", show.WatchStatus)
	}
	return nil
}
