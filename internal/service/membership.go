// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// StaticMembership resolves clubs from an in-memory table. Unknown clubs
// resolve to no members.
type StaticMembership struct {
	clubs map[string][]string
}

// NewStaticMembership creates a membership provider over a club-to-members
// table. The table is not copied; callers must not mutate it afterward.
func NewStaticMembership(clubs map[string][]string) *StaticMembership {
	return &StaticMembership{clubs: clubs}
}

// Members returns the club's member ids in table order.
func (m *StaticMembership) Members(_ context.Context, clubID string) ([]string, error) {
	return m.clubs[clubID], nil
}

var _ MembershipProvider = (*StaticMembership)(nil)

// LoadMembershipCSV reads a club membership table from a CSV file with a
// club_id,user_id header. Member order within a club follows file order.
func LoadMembershipCSV(path string) (*StaticMembership, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("open membership file: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 2

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read membership header: %w", err)
	}
	if strings.TrimSpace(header[0]) != "club_id" || strings.TrimSpace(header[1]) != "user_id" {
		return nil, fmt.Errorf("unexpected membership header %v", header)
	}

	clubs := make(map[string][]string)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read membership row: %w", err)
		}

		club := strings.TrimSpace(record[0])
		user := strings.TrimSpace(record[1])
		if club == "" || user == "" {
			continue
		}
		clubs[club] = append(clubs[club], user)
	}

	return NewStaticMembership(clubs), nil
}
