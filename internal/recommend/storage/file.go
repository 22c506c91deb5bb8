// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Store persists engine snapshots by name and version. Version 0 on Load
// means "latest".
type Store interface {
	Save(ctx context.Context, name string, version int, state any, meta SnapshotMetadata) error
	Load(ctx context.Context, name string, version int, target any) (*SnapshotMetadata, error)
	LatestVersion(name string) (int, bool)
	Prune(ctx context.Context, name string, keep int) error
}

// FileStore keeps snapshots as files named {name}_v{version}.gob.gz under a
// base directory.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex

	// latest version per engine name, populated at open and on save
	versions map[string][]int
}

// NewFileStore opens a file-backed snapshot store, creating the directory if
// needed and indexing any snapshots already present.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}

	s := &FileStore{
		baseDir:  baseDir,
		versions: make(map[string][]int),
	}
	if err := s.scan(); err != nil {
		return nil, fmt.Errorf("scan snapshots: %w", err)
	}
	return s, nil
}

func (s *FileStore) scan() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, version, ok := parseSnapshotFilename(entry.Name())
		if !ok {
			continue
		}
		s.versions[name] = append(s.versions[name], version)
	}

	for name := range s.versions {
		sort.Ints(s.versions[name])
	}
	return nil
}

// parseSnapshotFilename splits "{name}_v{version}.gob.gz" into its parts.
func parseSnapshotFilename(filename string) (name string, version int, ok bool) {
	const suffix = ".gob.gz"
	if len(filename) <= len(suffix) || filename[len(filename)-len(suffix):] != suffix {
		return "", 0, false
	}
	stem := filename[:len(filename)-len(suffix)]

	// Split on the last "_v" so engine names may contain underscores.
	split := -1
	for i := len(stem) - 2; i >= 1; i-- {
		if stem[i-1] == '_' && stem[i] == 'v' {
			split = i - 1
			break
		}
	}
	if split <= 0 {
		return "", 0, false
	}

	if _, err := fmt.Sscanf(stem[split+2:], "%d", &version); err != nil || version <= 0 {
		return "", 0, false
	}
	return stem[:split], version, true
}

func (s *FileStore) path(name string, version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d.gob.gz", name, version))
}

// Save writes a snapshot. An existing snapshot at the same version is
// overwritten.
func (s *FileStore) Save(ctx context.Context, name string, version int, state any, meta SnapshotMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	meta.Name = name
	meta.Version = version
	blob, err := encodeSnapshot(state, meta)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Write to a temp file and rename so readers never see a torn write.
	tmp, err := os.CreateTemp(s.baseDir, name+"_*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(name, version)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("publish snapshot: %w", err)
	}

	s.recordVersion(name, version)
	return nil
}

// recordVersion inserts version into the sorted version list if absent.
// Caller holds the write lock.
func (s *FileStore) recordVersion(name string, version int) {
	versions := s.versions[name]
	i := sort.SearchInts(versions, version)
	if i < len(versions) && versions[i] == version {
		return
	}
	versions = append(versions, 0)
	copy(versions[i+1:], versions[i:])
	versions[i] = version
	s.versions[name] = versions
}

// Load reads a snapshot into target. Version 0 loads the latest.
func (s *FileStore) Load(ctx context.Context, name string, version int, target any) (*SnapshotMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		versions := s.versions[name]
		if len(versions) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		version = versions[len(versions)-1]
	}

	blob, err := os.ReadFile(s.path(name, version))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s v%d", ErrSnapshotNotFound, name, version)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	return decodeSnapshot(blob, target)
}

// LatestVersion returns the newest stored version for an engine.
func (s *FileStore) LatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.versions[name]
	if len(versions) == 0 {
		return 0, false
	}
	return versions[len(versions)-1], true
}

// Prune deletes all but the newest keep versions of an engine's snapshots.
func (s *FileStore) Prune(ctx context.Context, name string, keep int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if keep < 1 {
		keep = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.versions[name]
	if len(versions) <= keep {
		return nil
	}

	drop := versions[:len(versions)-keep]
	for _, v := range drop {
		if err := os.Remove(s.path(name, v)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("prune snapshot %s v%d: %w", name, v, err)
		}
	}
	s.versions[name] = append([]int(nil), versions[len(versions)-keep:]...)
	return nil
}

var _ Store = (*FileStore)(nil)
