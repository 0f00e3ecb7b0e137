package catalog

import (
	"context"
	"time"

	"gorm.io/gorm/clause"
)

// UpsertCheckpoint records a checkpoint tag for the file. Re-creating an
// existing tag replaces the locator and timestamp; the storage node
// overwrites the blob the same way.
func (s *Store) UpsertCheckpoint(ctx context.Context, fileID uint, tag, locator, createdBy string) error {
	cp := Checkpoint{
		FileID:    fileID,
		Tag:       tag,
		Locator:   locator,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "file_id"}, {Name: "tag"}},
			DoUpdates: clause.AssignmentColumns([]string{"locator", "created_by", "created_at"}),
		}).
		Create(&cp).Error
}

// GetCheckpoint retrieves the checkpoint for (fileID, tag).
func (s *Store) GetCheckpoint(ctx context.Context, fileID uint, tag string) (*Checkpoint, error) {
	var cp Checkpoint
	err := s.db.WithContext(ctx).
		Where("file_id = ? AND tag = ?", fileID, tag).
		First(&cp).Error
	if err != nil {
		return nil, convertNotFoundError(err, ErrCheckpointNotFound)
	}
	return &cp, nil
}

// ListCheckpoints returns the file's checkpoints oldest first.
func (s *Store) ListCheckpoints(ctx context.Context, fileID uint) ([]*Checkpoint, error) {
	out := []*Checkpoint{}
	err := s.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("created_at").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// History returns the file's commit audit rows, newest first, capped at
// limit (0 means no cap).
func (s *Store) History(ctx context.Context, fileID uint, limit int) ([]*UndoRecord, error) {
	out := []*UndoRecord{}
	q := s.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("committed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
