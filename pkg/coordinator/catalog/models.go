// Package catalog is the coordinator's persistent store: the file catalog,
// access grants, access requests, checkpoint records, and the commit audit
// trail. It supports SQLite (single-node, default) and PostgreSQL backends
// via GORM.
package catalog

import (
	"time"

	"github.com/scribefs/scribe/internal/protocol"
)

// FileEntry is the authoritative catalog record for a file or folder.
//
// Placement fields reference registry node ids that were alive at creation
// time; the registry, not the catalog, is authoritative for current liveness.
// The counters are advisory caches refreshed at commit time - the storage
// node owns the authoritative values.
type FileEntry struct {
	ID uint `gorm:"primarykey" json:"id"`

	// Name is the flat, case-sensitive catalog key.
	Name string `gorm:"uniqueIndex;not null" json:"name"`

	// Owner is the creating user. Ownership never changes.
	Owner string `gorm:"index;not null" json:"owner"`

	// IsFolder marks folder entries. Folders get no replica and no content.
	IsFolder bool `json:"is_folder"`

	// PrimaryNodeID is the registry id of the node holding the content.
	PrimaryNodeID int `json:"primary_node_id"`

	// ReplicaNodeID is the read-failover node id, 0 when none was assigned.
	ReplicaNodeID int `json:"replica_node_id"`

	// Advisory content counters, refreshed on commit.
	WordCount     int `json:"word_count"`
	CharCount     int `json:"char_count"`
	SentenceCount int `json:"sentence_count"`

	// LastEditor is the user of the most recent committed write.
	LastEditor string `json:"last_editor"`

	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	AccessedAt time.Time `json:"accessed_at"`

	// Grants is the file's access list. The owner never appears here.
	Grants []AccessGrant `gorm:"foreignKey:FileID" json:"grants,omitempty"`
}

// TableName overrides the GORM default.
func (FileEntry) TableName() string {
	return "files"
}

// Allows reports whether user holds every permission bit in required on this
// file. The owner implicitly holds read and write.
func (f *FileEntry) Allows(user string, required int) bool {
	if f.Owner == user {
		return true
	}
	for _, g := range f.Grants {
		if g.Username == user {
			return g.Permissions&required == required
		}
	}
	return false
}

// Grant returns the grant for user, if one exists.
func (f *FileEntry) Grant(user string) (AccessGrant, bool) {
	for _, g := range f.Grants {
		if g.Username == user {
			return g, true
		}
	}
	return AccessGrant{}, false
}

// AccessGrant gives a non-owner user a permission bitmask on a file. At most
// one grant exists per (file, user); re-granting replaces the bitmask.
type AccessGrant struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	FileID   uint   `gorm:"uniqueIndex:idx_grant_file_user;not null" json:"file_id"`
	Username string `gorm:"uniqueIndex:idx_grant_file_user;not null" json:"username"`

	// Permissions is the protocol bitmask: 1=read, 2=write, 3=both.
	Permissions int `gorm:"not null" json:"permissions"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the GORM default.
func (AccessGrant) TableName() string {
	return "access_control"
}

// CanRead reports whether the grant includes the read bit.
func (g AccessGrant) CanRead() bool {
	return g.Permissions&protocol.PermRead != 0
}

// CanWrite reports whether the grant includes the write bit.
func (g AccessGrant) CanWrite() bool {
	return g.Permissions&protocol.PermWrite != 0
}

// Access request states. Approval is record-keeping: resolving a request does
// not create a grant, the owner issues ADDACCESS separately.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestDenied   = "denied"
)

// AccessRequest is a user's petition for access to a file they cannot see.
type AccessRequest struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	FileID    uint   `gorm:"index;not null" json:"file_id"`
	Requester string `gorm:"not null" json:"requester"`

	// Permissions is the requested bitmask.
	Permissions int `gorm:"not null" json:"permissions"`

	// Status is pending, approved, or denied.
	Status string `gorm:"not null;default:pending" json:"status"`

	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// TableName overrides the GORM default.
func (AccessRequest) TableName() string {
	return "access_requests"
}

// Checkpoint records a named content snapshot. The blob itself lives on the
// storage node under Locator; the coordinator only keeps the registry of
// tags so LISTCHECKPOINTS and REVERT can be authorized without touching the
// node.
type Checkpoint struct {
	ID     uint   `gorm:"primarykey" json:"id"`
	FileID uint   `gorm:"uniqueIndex:idx_checkpoint_file_tag;not null" json:"file_id"`
	Tag    string `gorm:"uniqueIndex:idx_checkpoint_file_tag;not null" json:"tag"`

	// Locator is the storage-side key of the blob.
	Locator string `gorm:"not null" json:"locator"`

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the GORM default.
func (Checkpoint) TableName() string {
	return "checkpoints"
}

// UndoRecord is one row of the commit audit trail: who committed which
// sentence of which file, and when. The content snapshots backing UNDO live
// on the storage node; this table exists so the admin API can answer "who
// touched this file" after the fact.
type UndoRecord struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	FileID   uint   `gorm:"index;not null" json:"file_id"`
	Editor   string `gorm:"not null" json:"editor"`
	Sentence int    `json:"sentence"`

	CommittedAt time.Time `json:"committed_at"`
}

// TableName overrides the GORM default.
func (UndoRecord) TableName() string {
	return "undo_history"
}

// AllModels returns every model for GORM AutoMigrate.
func AllModels() []any {
	return []any{
		&FileEntry{},
		&AccessGrant{},
		&AccessRequest{},
		&Checkpoint{},
		&UndoRecord{},
	}
}
