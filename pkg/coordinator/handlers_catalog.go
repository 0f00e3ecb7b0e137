package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/scribefs/scribe/internal/logger"
	"github.com/scribefs/scribe/internal/protocol"
	"github.com/scribefs/scribe/pkg/coordinator/catalog"
)

// viewTimeFormat renders timestamps in the long listing.
const viewTimeFormat = "2006-01-02 15:04:05"

// create handles CREATE: place the file on the least loaded alive node,
// insert the catalog entry, and hand the endpoints back so the client can
// initialize content on the node(s).
func (s *Service) create(ctx context.Context, req *protocol.Message) (string, error) {
	return s.createEntry(ctx, req, false)
}

// createFolder handles CREATEFOLDER. Folders take a primary like files but
// never a replica, and the client has no content to initialize.
func (s *Service) createFolder(ctx context.Context, req *protocol.Message) (string, error) {
	return s.createEntry(ctx, req, true)
}

func (s *Service) createEntry(ctx context.Context, req *protocol.Message, folder bool) (string, error) {
	if err := protocol.ValidateName(req.Filename); err != nil {
		return "", err
	}
	if err := protocol.ValidateUsername(req.Username); err != nil {
		return "", err
	}

	primary, replica, err := s.registry.Place(!folder)
	if err != nil {
		return "", err
	}

	entry := &catalog.FileEntry{
		Name:          req.Filename,
		Owner:         req.Username,
		IsFolder:      folder,
		PrimaryNodeID: primary.ID,
	}
	if replica != nil {
		entry.ReplicaNodeID = replica.ID
	}

	if err := s.catalog.CreateFile(ctx, entry); err != nil {
		s.registry.ReleasePlacement(primary.ID)
		if errors.Is(err, catalog.ErrFileExists) {
			return "", protocol.NewFileExists(req.Filename)
		}
		return "", fmt.Errorf("catalog create: %w", err)
	}

	logger.Info("Catalog entry created",
		logger.File(req.Filename),
		logger.Owner(req.Username),
		logger.NodeID(primary.ID))

	if folder {
		return fmt.Sprintf("Folder created: %s", req.Filename), nil
	}

	redirect := protocol.Redirect{Primary: primary.Address, Sentence: -1}
	if replica != nil {
		redirect.Replica = replica.Address
	}
	return redirect.Encode(), nil
}

// read handles READ: authorize, resolve endpoints, bump accessed_at.
func (s *Service) read(ctx context.Context, req *protocol.Message) (string, error) {
	entry, err := s.authorize(ctx, req.Filename, req.Username, protocol.PermRead)
	if err != nil {
		return "", err
	}
	redirect, err := s.endpoints(entry)
	if err != nil {
		return "", err
	}

	if err := s.catalog.TouchAccessed(ctx, req.Filename); err != nil {
		logger.Warn("Failed to bump accessed_at",
			logger.File(req.Filename), logger.Err(err))
	}
	return redirect.Encode(), nil
}

// lookup serves INFO, STREAM and UNDO: pure authorization plus endpoint
// resolution with the given required permission.
func (s *Service) lookup(ctx context.Context, req *protocol.Message, required int) (string, error) {
	entry, err := s.authorize(ctx, req.Filename, req.Username, required)
	if err != nil {
		return "", err
	}
	redirect, err := s.endpoints(entry)
	if err != nil {
		return "", err
	}
	return redirect.Encode(), nil
}

// delete handles DELETE. Only the owner may delete. The catalog row and
// everything referencing it go in one transaction, locks on the file are
// dropped, and the endpoints are returned so the client can tell the node(s)
// to remove the bytes; node addresses are returned even for dead nodes
// because the client's cleanup is best effort anyway. When no endpoint
// resolves at all (the registry restarted since the file was placed) the
// response is a plain acknowledgement: the catalog delete stands and there
// is nothing to redirect to.
func (s *Service) delete(ctx context.Context, req *protocol.Message) (string, error) {
	if err := protocol.ValidateName(req.Filename); err != nil {
		return "", err
	}
	if err := protocol.ValidateUsername(req.Username); err != nil {
		return "", err
	}

	entry, err := s.catalog.GetFile(ctx, req.Filename)
	if err != nil {
		if errors.Is(err, catalog.ErrFileNotFound) {
			return "", protocol.NewFileNotFound(req.Filename)
		}
		return "", fmt.Errorf("catalog lookup: %w", err)
	}
	if entry.Owner != req.Username {
		return "", protocol.NewNotOwner(req.Filename, "Only owner can delete file")
	}

	redirect := protocol.Redirect{Sentence: -1}
	if n, ok := s.registry.Get(entry.PrimaryNodeID); ok {
		redirect.Primary = n.Address
	}
	if entry.ReplicaNodeID != 0 {
		if n, ok := s.registry.Get(entry.ReplicaNodeID); ok {
			redirect.Replica = n.Address
		}
	}

	if _, err := s.catalog.DeleteFile(ctx, req.Filename); err != nil {
		return "", fmt.Errorf("catalog delete: %w", err)
	}
	s.registry.DecrementFiles(entry.PrimaryNodeID)
	s.locks.ReleaseFile(req.Filename)

	logger.Info("Catalog entry deleted",
		logger.File(req.Filename),
		logger.Owner(req.Username))

	if redirect.Primary == "" {
		redirect.Primary, redirect.Replica = redirect.Replica, ""
	}
	if redirect.Primary == "" {
		return "File deleted", nil
	}
	return redirect.Encode(), nil
}

// view handles VIEW. Without "all" the listing holds exactly the files where
// the user is owner or grantee; "long" switches to the detailed line format.
func (s *Service) view(ctx context.Context, req *protocol.Message) (string, error) {
	if err := protocol.ValidateUsername(req.Username); err != nil {
		return "", err
	}
	all, long := parseViewFlags(string(req.Payload))

	entries, err := s.catalog.ListFiles(ctx)
	if err != nil {
		return "", fmt.Errorf("catalog list: %w", err)
	}

	var lines []string
	for _, entry := range entries {
		if !all {
			if _, granted := entry.Grant(req.Username); entry.Owner != req.Username && !granted {
				continue
			}
		}
		if long {
			marker := "-"
			if entry.IsFolder {
				marker = "d"
			}
			lines = append(lines, fmt.Sprintf("%s %-30s %-15s %5dw %3ds  %s",
				marker, entry.Name, entry.Owner,
				entry.WordCount, entry.SentenceCount,
				entry.CreatedAt.Format(viewTimeFormat)))
		} else {
			lines = append(lines, entry.Name)
		}
	}

	if len(lines) == 0 {
		return "No files found", nil
	}
	return strings.Join(lines, "\n"), nil
}

// parseViewFlags accepts the documented flag spellings in any order,
// separated by spaces or pipes.
func parseViewFlags(payload string) (all, long bool) {
	fields := strings.FieldsFunc(payload, func(r rune) bool {
		return r == ' ' || r == '|'
	})
	for _, f := range fields {
		switch f {
		case "a", "-a", "all":
			all = true
		case "l", "-l", "long":
			long = true
		}
	}
	return all, long
}

// list handles LIST: the registered user roster.
func (s *Service) list(req *protocol.Message) (string, error) {
	names := s.users.List()
	if len(names) == 0 {
		return "No registered users", nil
	}

	var b strings.Builder
	b.WriteString("Registered Users:")
	for _, name := range names {
		b.WriteString("\n  ")
		b.WriteString(name)
	}
	return b.String(), nil
}
