// Package storagenode implements the content server: a Badger-backed store
// for file bytes, counters, undo snapshots and checkpoint blobs, the TCP
// listener serving content operations, and the registration/heartbeat link
// to the coordinator.
package storagenode

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/scribefs/scribe/internal/protocol"
	"github.com/scribefs/scribe/internal/sentence"
)

// Key prefixes. Every file's state lives under its name in five keyspaces;
// the checkpoint keys match the locator format the coordinator records.
func keyContent(name string) []byte { return []byte("content/" + name) }
func keyUndo(name string) []byte    { return []byte("undo/" + name) }
func keyMeta(name string) []byte    { return []byte("meta/" + name) }
func keyCheckpoint(name, tag string) []byte {
	return []byte("checkpoint/" + name + "/" + tag)
}
func keyCheckpointMeta(name, tag string) []byte {
	return []byte("checkpointmeta/" + name + "/" + tag)
}
func keyCheckpointMetaPrefix(name string) []byte {
	return []byte("checkpointmeta/" + name + "/")
}
func keyCheckpointPrefix(name string) []byte {
	return []byte("checkpoint/" + name + "/")
}

// FileMeta is the storage-side counter record, the authoritative version of
// the coordinator's advisory cache.
type FileMeta struct {
	Words      int       `json:"words"`
	Chars      int       `json:"chars"`
	Sentences  int       `json:"sentences"`
	ModifiedAt time.Time `json:"modified_at"`
}

// CheckpointInfo describes one stored checkpoint.
type CheckpointInfo struct {
	Tag       string    `json:"tag"`
	CreatedAt time.Time `json:"created_at"`
}

// Store owns the node's Badger database.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store under dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store at %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// metaFor recomputes the counter record for content.
func metaFor(content []byte) FileMeta {
	c := sentence.Count(string(content))
	return FileMeta{
		Words:      c.Words,
		Chars:      c.Chars,
		Sentences:  c.Sentences,
		ModifiedAt: time.Now(),
	}
}

// setContent writes content and its recomputed meta inside txn.
func setContent(txn *badger.Txn, name string, content []byte) error {
	if err := txn.Set(keyContent(name), content); err != nil {
		return fmt.Errorf("store content: %w", err)
	}
	metaBytes, err := json.Marshal(metaFor(content))
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := txn.Set(keyMeta(name), metaBytes); err != nil {
		return fmt.Errorf("store meta: %w", err)
	}
	return nil
}

// getValue copies the value under key, mapping a missing key to notFound.
func getValue(txn *badger.Txn, key []byte, notFound error) ([]byte, error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Create initializes an empty file. Creating a file that already exists is a
// no-op so a client retrying after a dropped response converges.
func (s *Store) Create(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(keyContent(name)); err == nil {
			return nil
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		return setContent(txn, name, []byte{})
	})
}

// Read returns the file's current content.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var content []byte
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		content, err = getValue(txn, keyContent(name), protocol.NewFileNotFound(name))
		return err
	})
	if err != nil {
		return nil, err
	}
	return content, nil
}

// Write replaces the file's content, saving the previous content as the
// undo snapshot first.
func (s *Store) Write(ctx context.Context, name string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		previous, err := getValue(txn, keyContent(name), protocol.NewFileNotFound(name))
		if err != nil {
			return err
		}
		if err := txn.Set(keyUndo(name), previous); err != nil {
			return fmt.Errorf("store undo snapshot: %w", err)
		}
		return setContent(txn, name, content)
	})
}

// Replicate replaces the content without touching the undo snapshot. The
// replica's history belongs to the primary.
func (s *Store) Replicate(ctx context.Context, name string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return setContent(txn, name, content)
	})
}

// Meta returns the counter record.
func (s *Store) Meta(ctx context.Context, name string) (FileMeta, error) {
	var meta FileMeta
	if err := ctx.Err(); err != nil {
		return meta, err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		raw, err := getValue(txn, keyMeta(name), protocol.NewFileNotFound(name))
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, &meta)
	})
	return meta, err
}

// Delete removes every key belonging to the file: content, meta, undo
// snapshot and all checkpoints. Deleting a file that is not stored here
// succeeds; the client's node-side cleanup is best effort.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range [][]byte{keyContent(name), keyMeta(name), keyUndo(name)} {
			if err := txn.Delete(key); err != nil && err != badger.ErrKeyNotFound {
				return err
			}
		}
		for _, prefix := range [][]byte{keyCheckpointPrefix(name), keyCheckpointMetaPrefix(name)} {
			if err := deletePrefix(txn, prefix); err != nil {
				return err
			}
		}
		return nil
	})
}

// deletePrefix removes every key under prefix. Keys are collected before
// deletion because the iterator must not observe its own writes.
func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false

	it := txn.NewIterator(opts)
	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// Undo swaps the content with the undo snapshot. The swap is two-way: a
// second Undo restores the state before the first.
func (s *Store) Undo(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		snapshot, err := getValue(txn, keyUndo(name),
			protocol.NewFileNotFound(name))
		if err != nil {
			return err
		}
		current, err := getValue(txn, keyContent(name), protocol.NewFileNotFound(name))
		if err != nil {
			return err
		}

		if err := txn.Set(keyUndo(name), current); err != nil {
			return fmt.Errorf("store undo snapshot: %w", err)
		}
		return setContent(txn, name, snapshot)
	})
}

// Checkpoint stores the current content as the blob for tag. Re-creating an
// existing tag overwrites it, matching the coordinator's catalog upsert.
func (s *Store) Checkpoint(ctx context.Context, name, tag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		content, err := getValue(txn, keyContent(name), protocol.NewFileNotFound(name))
		if err != nil {
			return err
		}
		if err := txn.Set(keyCheckpoint(name, tag), content); err != nil {
			return fmt.Errorf("store checkpoint blob: %w", err)
		}

		info, err := json.Marshal(CheckpointInfo{Tag: tag, CreatedAt: time.Now()})
		if err != nil {
			return fmt.Errorf("encode checkpoint meta: %w", err)
		}
		return txn.Set(keyCheckpointMeta(name, tag), info)
	})
}

// Checkpoints lists the file's checkpoints, oldest first.
func (s *Store) Checkpoints(ctx context.Context, name string) ([]CheckpointInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []CheckpointInfo{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyCheckpointMetaPrefix(name)

		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var info CheckpointInfo
				if err := json.Unmarshal(val, &info); err != nil {
					return err
				}
				out = append(out, info)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Revert restores the checkpoint blob as the current content, saving the
// pre-revert content as the undo snapshot so the revert itself can be
// undone.
func (s *Store) Revert(ctx context.Context, name, tag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		blob, err := getValue(txn, keyCheckpoint(name, tag),
			protocol.NewCheckpointNotFound(name, tag))
		if err != nil {
			return err
		}
		current, err := getValue(txn, keyContent(name), protocol.NewFileNotFound(name))
		if err != nil {
			return err
		}

		if err := txn.Set(keyUndo(name), current); err != nil {
			return fmt.Errorf("store undo snapshot: %w", err)
		}
		return setContent(txn, name, blob)
	})
}

// FileCount counts the files stored here, for the metrics gauge.
func (s *Store) FileCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("content/")
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// CacheStats is a snapshot of one Badger cache's counters.
type CacheStats struct {
	Hits   uint64
	Misses uint64
	Ratio  float64
}

// CacheStats reports the block and index cache counters of the underlying
// Badger instance.
func (s *Store) CacheStats() (block, index CacheStats) {
	if m := s.db.BlockCacheMetrics(); m != nil {
		block = CacheStats{Hits: m.Hits(), Misses: m.Misses(), Ratio: m.Ratio()}
	}
	if m := s.db.IndexCacheMetrics(); m != nil {
		index = CacheStats{Hits: m.Hits(), Misses: m.Misses(), Ratio: m.Ratio()}
	}
	return block, index
}
