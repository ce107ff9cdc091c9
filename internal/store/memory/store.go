// Package memory implements the in-memory deduplicating image store, with a
// TSV batch commit through a blob provider.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/openglam/smithsonian-harvester/internal/harvest"
	"github.com/openglam/smithsonian-harvester/internal/storage"
)

const tsvContentType = "text/tab-separated-values"

// tsvColumns is the committed batch's column order.
var tsvColumns = []string{
	"foreign_identifier",
	"foreign_landing_url",
	"image_url",
	"thumbnail_url",
	"license_url",
	"title",
	"creator",
	"meta_data",
	"tags",
}

// Store accumulates image records in memory, deduplicating by foreign
// identifier while preserving first-seen order. Commit renders the batch
// as TSV and writes it through the blob provider.
type Store struct {
	blob       storage.Provider
	objectPath string
	logger     *zap.Logger

	records []harvest.ImageRecord
	seen    map[string]struct{}
}

// New builds a Store committing to the given blob object path.
func New(blob storage.Provider, objectPath string, logger *zap.Logger) (*Store, error) {
	if blob == nil {
		return nil, fmt.Errorf("blob provider is required")
	}
	if strings.TrimSpace(objectPath) == "" {
		return nil, fmt.Errorf("object path is required")
	}
	return &Store{
		blob:       blob,
		objectPath: objectPath,
		logger:     logger,
		seen:       make(map[string]struct{}),
	}, nil
}

// AddItem accepts a record unless a record with the same foreign identifier
// was already added; duplicates are dropped silently. Returns the running
// total of unique records.
func (s *Store) AddItem(_ context.Context, rec harvest.ImageRecord) (int, error) {
	if err := validate(rec); err != nil {
		return len(s.records), err
	}
	if _, dup := s.seen[rec.ForeignID]; dup {
		s.logger.Debug("duplicate foreign identifier dropped",
			zap.String("foreign_id", rec.ForeignID),
		)
		return len(s.records), nil
	}
	s.seen[rec.ForeignID] = struct{}{}
	s.records = append(s.records, rec)
	return len(s.records), nil
}

// Commit writes the accumulated batch as TSV and returns the final count.
func (s *Store) Commit(ctx context.Context) (int, error) {
	var buf bytes.Buffer
	buf.WriteString(strings.Join(tsvColumns, "\t"))
	buf.WriteByte('\n')
	for _, rec := range s.records {
		line, err := renderLine(rec)
		if err != nil {
			return 0, fmt.Errorf("render record %s: %w", rec.ForeignID, err)
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	uri, err := s.blob.PutObject(ctx, s.objectPath, tsvContentType, &buf)
	if err != nil {
		return 0, fmt.Errorf("write image batch: %w", err)
	}
	s.logger.Info("image batch committed",
		zap.String("uri", uri),
		zap.Int("images", len(s.records)),
	)
	return len(s.records), nil
}

func validate(rec harvest.ImageRecord) error {
	if rec.ForeignID == "" {
		return fmt.Errorf("foreign identifier is required")
	}
	if rec.ForeignLandingURL == "" {
		return fmt.Errorf("foreign landing url is required")
	}
	if rec.ImageURL == "" {
		return fmt.Errorf("image url is required")
	}
	return nil
}

func renderLine(rec harvest.ImageRecord) (string, error) {
	metaJSON, err := json.Marshal(rec.MetaData)
	if err != nil {
		return "", fmt.Errorf("marshal meta data: %w", err)
	}
	// nil tags stay distinct from an empty list: JSON null vs [].
	tagsJSON, err := json.Marshal(rec.Tags)
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}

	fields := []string{
		sanitize(rec.ForeignID),
		sanitize(rec.ForeignLandingURL),
		sanitize(rec.ImageURL),
		sanitize(rec.ThumbnailURL),
		sanitize(rec.LicenseURL),
		sanitize(rec.Title),
		sanitize(rec.Creator),
		string(metaJSON),
		string(tagsJSON),
	}
	return strings.Join(fields, "\t"), nil
}

var fieldSanitizer = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

func sanitize(field string) string {
	return fieldSanitizer.Replace(field)
}
