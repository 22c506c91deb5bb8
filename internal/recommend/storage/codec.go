// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package storage

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrSnapshotNotFound is returned when no snapshot exists for the requested
// engine and version.
var ErrSnapshotNotFound = errors.New("storage: snapshot not found")

// ErrSnapshotInvalid is returned when a snapshot exists but fails integrity
// or format checks. Callers fall back to retraining.
var ErrSnapshotInvalid = errors.New("storage: snapshot invalid")

// SnapshotMetadata describes a stored snapshot.
type SnapshotMetadata struct {
	// Name is the engine name ("itemcf", "content", "popularity").
	Name string

	// Version is the engine's model version at save time.
	Version int

	// TrainedAt is when the model was trained.
	TrainedAt time.Time

	// SavedAt is when the snapshot was written.
	SavedAt time.Time

	// Checksum is the SHA-256 of the uncompressed payload.
	Checksum string

	// SizeBytes is the compressed payload size.
	SizeBytes int64
}

// snapshotBlob is the stored envelope: metadata plus the gzip-compressed
// gob payload.
type snapshotBlob struct {
	Metadata       SnapshotMetadata
	CompressedData []byte
}

// encodeSnapshot serializes state into a storable blob, filling in checksum,
// size and save time on the metadata.
func encodeSnapshot(state any, meta SnapshotMetadata) ([]byte, error) {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(state); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	raw := payload.Bytes()
	hash := sha256.Sum256(raw)
	meta.Checksum = hex.EncodeToString(hash[:])

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}

	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now()

	var out bytes.Buffer
	blob := snapshotBlob{Metadata: meta, CompressedData: compressed.Bytes()}
	if err := gob.NewEncoder(&out).Encode(blob); err != nil {
		return nil, fmt.Errorf("encode snapshot envelope: %w", err)
	}
	return out.Bytes(), nil
}

// decodeSnapshot verifies and deserializes a stored blob into target.
// Corruption of any kind surfaces as ErrSnapshotInvalid.
func decodeSnapshot(data []byte, target any) (*SnapshotMetadata, error) {
	var blob snapshotBlob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&blob); err != nil {
		return nil, fmt.Errorf("%w: read envelope: %v", ErrSnapshotInvalid, err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(blob.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrSnapshotInvalid, err)
	}
	defer func() { _ = gzr.Close() }()

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrSnapshotInvalid, err)
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != blob.Metadata.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch: expected %s, got %s",
			ErrSnapshotInvalid, blob.Metadata.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", ErrSnapshotInvalid, err)
	}

	return &blob.Metadata, nil
}
