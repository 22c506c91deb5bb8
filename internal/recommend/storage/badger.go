// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// BadgerStore persists snapshots in a BadgerDB key-value store, for
// deployments that already run one and prefer a single data directory over
// loose files. Keys follow snapshot:{name}:v{version}.
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger

	mu       sync.RWMutex
	versions map[string][]int
}

// NewBadgerStore opens or creates a Badger-backed snapshot store at path.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBadgerStore(path string, logger zerolog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logger is too chatty; we log ourselves

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	s := &BadgerStore{
		db:       db,
		logger:   logger.With().Str("component", "snapshot_store").Logger(),
		versions: make(map[string][]int),
	}
	if err := s.scan(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("scan snapshots: %w", err)
	}
	return s, nil
}

func snapshotKey(name string, version int) []byte {
	return []byte(fmt.Sprintf("snapshot:%s:v%d", name, version))
}

func (s *BadgerStore) scan() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte("snapshot:")

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			rest := strings.TrimPrefix(string(it.Item().Key()), "snapshot:")
			sep := strings.LastIndexByte(rest, ':')
			if sep <= 0 {
				continue
			}
			var version int
			if _, err := fmt.Sscanf(rest[sep+1:], "v%d", &version); err != nil || version <= 0 {
				continue
			}
			engine := rest[:sep]
			s.versions[engine] = append(s.versions[engine], version)
		}

		for name := range s.versions {
			sort.Ints(s.versions[name])
		}
		return nil
	})
}

// Save writes a snapshot under snapshot:{name}:v{version}.
func (s *BadgerStore) Save(ctx context.Context, name string, version int, state any, meta SnapshotMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	meta.Name = name
	meta.Version = version
	blob, err := encodeSnapshot(state, meta)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(name, version), blob)
	})
	if err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}

	s.mu.Lock()
	s.recordVersion(name, version)
	s.mu.Unlock()

	s.logger.Debug().
		Str("engine", name).
		Int("version", version).
		Int("bytes", len(blob)).
		Msg("snapshot stored")
	return nil
}

// recordVersion inserts version into the sorted version list if absent.
// Caller holds the write lock.
func (s *BadgerStore) recordVersion(name string, version int) {
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
func (s *BadgerStore) Load(ctx context.Context, name string, version int, target any) (*SnapshotMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	if version == 0 {
		versions := s.versions[name]
		if len(versions) == 0 {
			s.mu.RUnlock()
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		version = versions[len(versions)-1]
	}
	s.mu.RUnlock()

	var blob []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(name, version))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s v%d", ErrSnapshotNotFound, name, version)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	return decodeSnapshot(blob, target)
}

// LatestVersion returns the newest stored version for an engine.
func (s *BadgerStore) LatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.versions[name]
	if len(versions) == 0 {
		return 0, false
	}
	return versions[len(versions)-1], true
}

// Prune deletes all but the newest keep versions of an engine's snapshots.
func (s *BadgerStore) Prune(ctx context.Context, name string, keep int) error {
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
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, v := range drop {
			if err := txn.Delete(snapshotKey(name, v)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("prune snapshots for %s: %w", name, err)
	}

	s.versions[name] = append([]int(nil), versions[len(versions)-keep:]...)
	return nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var _ Store = (*BadgerStore)(nil)
