package catalog

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertGrant creates or replaces the grant for (fileID, username). A second
// grant for the same pair overwrites the bitmask, matching the access-list
// law that only the latest grant survives.
func (s *Store) UpsertGrant(ctx context.Context, fileID uint, username string, permissions int) error {
	grant := AccessGrant{
		FileID:      fileID,
		Username:    username,
		Permissions: permissions,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "file_id"}, {Name: "username"}},
			DoUpdates: clause.AssignmentColumns([]string{"permissions", "updated_at"}),
		}).
		Create(&grant).Error
}

// RemoveGrant deletes the grant for (fileID, username). Returns
// ErrGrantNotFound when there was nothing to remove; revocation handlers may
// treat that as success.
func (s *Store) RemoveGrant(ctx context.Context, fileID uint, username string) error {
	result := s.db.WithContext(ctx).
		Where("file_id = ? AND username = ?", fileID, username).
		Delete(&AccessGrant{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrGrantNotFound
	}
	return nil
}

// CreateRequest inserts a pending access request.
func (s *Store) CreateRequest(ctx context.Context, fileID uint, requester string, permissions int) error {
	return s.db.WithContext(ctx).Create(&AccessRequest{
		FileID:      fileID,
		Requester:   requester,
		Permissions: permissions,
		Status:      RequestPending,
	}).Error
}

// PendingRequest is an access request joined with the file it refers to.
type PendingRequest struct {
	AccessRequest
	FileName string `json:"file_name"`
	Owner    string `json:"owner"`
}

// PendingForOwner lists pending requests against files the given user owns,
// oldest first.
func (s *Store) PendingForOwner(ctx context.Context, owner string) ([]PendingRequest, error) {
	out := []PendingRequest{}
	err := s.db.WithContext(ctx).
		Table("access_requests").
		Select("access_requests.*, files.name AS file_name, files.owner AS owner").
		Joins("JOIN files ON files.id = access_requests.file_id").
		Where("files.owner = ? AND access_requests.status = ?", owner, RequestPending).
		Order("access_requests.created_at").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListRequests lists every access request joined with its file, newest
// first. Served by the admin API.
func (s *Store) ListRequests(ctx context.Context) ([]PendingRequest, error) {
	out := []PendingRequest{}
	err := s.db.WithContext(ctx).
		Table("access_requests").
		Select("access_requests.*, files.name AS file_name, files.owner AS owner").
		Joins("JOIN files ON files.id = access_requests.file_id").
		Order("access_requests.created_at DESC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveRequest marks a request approved or denied. Resolution is
// record-keeping only: the grant, if the owner wants one, is a separate
// ADDACCESS.
func (s *Store) ResolveRequest(ctx context.Context, id uint, status string) error {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&AccessRequest{}).
		Where("id = ? AND status = ?", id, RequestPending).
		Updates(map[string]any{"status": status, "resolved_at": &now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return convertNotFoundError(gorm.ErrRecordNotFound, ErrRequestNotFound)
	}
	return nil
}
