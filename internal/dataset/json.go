// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package dataset

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// JSONMetadataSource reads book metadata from a JSON file holding an array of
// book objects, as exported by the external book-metadata API. Entries
// without a publication year or categories are skipped.
type JSONMetadataSource struct {
	path   string
	logger zerolog.Logger
}

// NewJSONMetadataSource creates a metadata source backed by the JSON file at path.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewJSONMetadataSource(path string, logger zerolog.Logger) *JSONMetadataSource {
	return &JSONMetadataSource{
		path:   path,
		logger: logger.With().Str("component", "json-metadata").Logger(),
	}
}

// Books reads all book records from the JSON file.
func (s *JSONMetadataSource) Books(ctx context.Context) ([]BookRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrSourceUnavailable, s.path, err)
	}

	var raw []BookRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrSourceUnavailable, s.path, err)
	}

	books := make([]BookRecord, 0, len(raw))
	skipped := 0

	for _, b := range raw {
		if b.ID == "" || len(b.Categories) == 0 || b.Year <= 0 {
			skipped++
			continue
		}
		books = append(books, b)
	}

	if skipped > 0 {
		s.logger.Debug().
			Int("skipped", skipped).
			Int("loaded", len(books)).
			Msg("skipped book entries without usable metadata")
	}

	return books, nil
}
