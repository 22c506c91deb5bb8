// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// CSVRatingSource reads rating triples from a CSV file with a header row of
// user_id,book_id,rating. Malformed rows are skipped and counted; a missing
// or unreadable file is fatal.
type CSVRatingSource struct {
	path   string
	logger zerolog.Logger
}

// NewCSVRatingSource creates a rating source backed by the CSV file at path.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCSVRatingSource(path string, logger zerolog.Logger) *CSVRatingSource {
	return &CSVRatingSource{
		path:   path,
		logger: logger.With().Str("component", "csv-ratings").Logger(),
	}
}

// Ratings reads all rating triples from the CSV file.
func (s *CSVRatingSource) Ratings(ctx context.Context) ([]Rating, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrSourceUnavailable, s.path, err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // row length validated per record

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("%w: read header of %s: %v", ErrSourceUnavailable, s.path, err)
	}

	var ratings []Rating
	skipped := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrSourceUnavailable, s.path, err)
		}

		r, ok := parseRatingRow(record)
		if !ok {
			skipped++
			continue
		}
		ratings = append(ratings, r)
	}

	if skipped > 0 {
		s.logger.Debug().
			Int("skipped", skipped).
			Int("loaded", len(ratings)).
			Msg("skipped malformed rating rows")
	}

	return ratings, nil
}

// parseRatingRow parses a single CSV row into a Rating.
func parseRatingRow(record []string) (Rating, bool) {
	if len(record) < 3 {
		return Rating{}, false
	}

	userID := strings.TrimSpace(record[0])
	itemID := strings.TrimSpace(record[1])
	if userID == "" || itemID == "" {
		return Rating{}, false
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
	if err != nil || score < 0 || score > MaxScale {
		return Rating{}, false
	}

	return Rating{UserID: userID, ItemID: itemID, Score: score}, true
}

// CSVMetadataSource reads book metadata from a CSV file with a header row of
// book_id,title,categories,year. Categories are separated by semicolons.
// Rows without a parseable year or a non-empty category set are skipped.
type CSVMetadataSource struct {
	path   string
	logger zerolog.Logger
}

// NewCSVMetadataSource creates a metadata source backed by the CSV file at path.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCSVMetadataSource(path string, logger zerolog.Logger) *CSVMetadataSource {
	return &CSVMetadataSource{
		path:   path,
		logger: logger.With().Str("component", "csv-metadata").Logger(),
	}
}

// Books reads all book records from the CSV file.
func (s *CSVMetadataSource) Books(ctx context.Context) ([]BookRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrSourceUnavailable, s.path, err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("%w: read header of %s: %v", ErrSourceUnavailable, s.path, err)
	}

	var books []BookRecord
	skipped := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrSourceUnavailable, s.path, err)
		}

		b, ok := parseBookRow(record)
		if !ok {
			skipped++
			continue
		}
		books = append(books, b)
	}

	if skipped > 0 {
		s.logger.Debug().
			Int("skipped", skipped).
			Int("loaded", len(books)).
			Msg("skipped book rows without usable metadata")
	}

	return books, nil
}

// parseBookRow parses a single CSV row into a BookRecord.
// Rows without a year or categories do not produce a record.
func parseBookRow(record []string) (BookRecord, bool) {
	if len(record) < 4 {
		return BookRecord{}, false
	}

	id := strings.TrimSpace(record[0])
	if id == "" {
		return BookRecord{}, false
	}

	categories := splitCategories(record[2])
	if len(categories) == 0 {
		return BookRecord{}, false
	}

	year, err := strconv.Atoi(strings.TrimSpace(record[3]))
	if err != nil || year <= 0 {
		return BookRecord{}, false
	}

	return BookRecord{
		ID:         id,
		Title:      strings.TrimSpace(record[1]),
		Categories: categories,
		Year:       year,
	}, true
}

// splitCategories splits a semicolon-separated category list, dropping
// empty entries.
func splitCategories(raw string) []string {
	var categories []string
	for _, c := range strings.Split(raw, ";") {
		c = strings.TrimSpace(c)
		if c != "" {
			categories = append(categories, c)
		}
	}
	return categories
}
