package catalog

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/scribefs/scribe/internal/sentence"
)

// CreateFile inserts a new catalog entry. The caller fills Name, Owner,
// IsFolder and the placement ids; timestamps are set here.
func (s *Store) CreateFile(ctx context.Context, entry *FileEntry) error {
	now := time.Now()
	entry.CreatedAt = now
	entry.ModifiedAt = now
	entry.AccessedAt = now

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrFileExists
		}
		return err
	}
	return nil
}

// GetFile retrieves a catalog entry by name with its access list preloaded.
func (s *Store) GetFile(ctx context.Context, name string) (*FileEntry, error) {
	return getByField[FileEntry](s.db, ctx, "name", name, ErrFileNotFound, "Grants")
}

// ListFiles returns every catalog entry ordered by name, access lists
// preloaded. Visibility filtering is the caller's concern.
func (s *Store) ListFiles(ctx context.Context) ([]*FileEntry, error) {
	return listAll[FileEntry](s.db, ctx, "name", "Grants")
}

// CountFiles returns the number of catalog entries.
func (s *Store) CountFiles(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&FileEntry{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteFile removes the entry and, in the same transaction, every grant,
// access request, checkpoint, and undo row referencing it. Returns the
// deleted entry so the caller can hand its placement back to the client.
func (s *Store) DeleteFile(ctx context.Context, name string) (*FileEntry, error) {
	var entry *FileEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var f FileEntry
		if err := tx.Where("name = ?", name).First(&f).Error; err != nil {
			return convertNotFoundError(err, ErrFileNotFound)
		}

		for _, model := range []any{&AccessGrant{}, &AccessRequest{}, &Checkpoint{}, &UndoRecord{}} {
			if err := tx.Where("file_id = ?", f.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&f).Error; err != nil {
			return err
		}
		entry = &f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// TouchAccessed bumps accessed_at, called on READ redirects. Best effort;
// a miss is not an error because the read itself already succeeded.
func (s *Store) TouchAccessed(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).
		Model(&FileEntry{}).
		Where("name = ?", name).
		Update("accessed_at", time.Now()).Error
}

// CommitWrite records a committed sentence edit: modified_at and the last
// editor are updated, the advisory counters are refreshed when the client
// reported them, and an undo_history row is appended, all in one
// transaction.
func (s *Store) CommitWrite(ctx context.Context, name, editor string, sentenceIdx int, counters *sentence.Counters) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var f FileEntry
		if err := tx.Where("name = ?", name).First(&f).Error; err != nil {
			return convertNotFoundError(err, ErrFileNotFound)
		}

		updates := map[string]any{
			"modified_at": time.Now(),
			"last_editor": editor,
		}
		if counters != nil {
			updates["word_count"] = counters.Words
			updates["char_count"] = counters.Chars
			updates["sentence_count"] = counters.Sentences
		}
		if err := tx.Model(&f).Updates(updates).Error; err != nil {
			return err
		}

		return tx.Create(&UndoRecord{
			FileID:      f.ID,
			Editor:      editor,
			Sentence:    sentenceIdx,
			CommittedAt: time.Now(),
		}).Error
	})
}
