// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"
)

// SQLSource reads ratings and book metadata from a DuckDB database file.
// The database is expected to contain a `ratings` table with
// (user_id, book_id, rating) columns and a `books` table with
// (book_id, title, categories, year) columns, where categories is a
// semicolon-separated list. This matches the export produced by the web
// layer's persistence schema.
type SQLSource struct {
	conn   *sql.DB
	logger zerolog.Logger
}

// OpenSQLSource opens the DuckDB database at path.
// The parent directory must exist; a missing database file is fatal.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func OpenSQLSource(path string, logger zerolog.Logger) (*SQLSource, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("%w: database directory %s: %v", ErrSourceUnavailable, dir, err)
		}
	}

	conn, err := sql.Open("duckdb", path+"?access_mode=read_only")
	if err != nil {
		return nil, fmt.Errorf("%w: open database %s: %v", ErrSourceUnavailable, path, err)
	}

	return &SQLSource{
		conn:   conn,
		logger: logger.With().Str("component", "sql-source").Logger(),
	}, nil
}

// Close releases the database connection.
func (s *SQLSource) Close() error {
	return s.conn.Close()
}

// Ratings reads all rating triples from the ratings table.
func (s *SQLSource) Ratings(ctx context.Context) ([]Rating, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT user_id, book_id, rating FROM ratings ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("%w: query ratings: %v", ErrSourceUnavailable, err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // error on close after read is not actionable

	var ratings []Rating
	skipped := 0

	for rows.Next() {
		var r Rating
		if err := rows.Scan(&r.UserID, &r.ItemID, &r.Score); err != nil {
			return nil, fmt.Errorf("%w: scan rating row: %v", ErrSourceUnavailable, err)
		}
		if r.UserID == "" || r.ItemID == "" || r.Score < 0 || r.Score > MaxScale {
			skipped++
			continue
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate ratings: %v", ErrSourceUnavailable, err)
	}

	if skipped > 0 {
		s.logger.Debug().Int("skipped", skipped).Msg("skipped out-of-range rating rows")
	}

	return ratings, nil
}

// Books reads all book records from the books table.
// Rows with NULL year or empty categories are skipped.
func (s *SQLSource) Books(ctx context.Context) ([]BookRecord, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT book_id, title, categories, year FROM books ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("%w: query books: %v", ErrSourceUnavailable, err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // error on close after read is not actionable

	var books []BookRecord
	skipped := 0

	for rows.Next() {
		var (
			id, title  string
			categories sql.NullString
			year       sql.NullInt64
		)
		if err := rows.Scan(&id, &title, &categories, &year); err != nil {
			return nil, fmt.Errorf("%w: scan book row: %v", ErrSourceUnavailable, err)
		}

		cats := splitCategories(categories.String)
		if id == "" || len(cats) == 0 || !year.Valid || year.Int64 <= 0 {
			skipped++
			continue
		}

		books = append(books, BookRecord{
			ID:         id,
			Title:      title,
			Categories: cats,
			Year:       int(year.Int64),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate books: %v", ErrSourceUnavailable, err)
	}

	if skipped > 0 {
		s.logger.Debug().Int("skipped", skipped).Msg("skipped book rows without usable metadata")
	}

	return books, nil
}
