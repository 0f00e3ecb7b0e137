package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/scribefs/scribe/internal/logger"
	"github.com/scribefs/scribe/internal/protocol"
	"github.com/scribefs/scribe/pkg/coordinator/catalog"
)

// getOwnedFile resolves the file and verifies the caller owns it, with the
// handler-specific not_owner message.
func (s *Service) getOwnedFile(ctx context.Context, name, caller, notOwnerMsg string) (*catalog.FileEntry, error) {
	if err := protocol.ValidateName(name); err != nil {
		return nil, err
	}
	if err := protocol.ValidateUsername(caller); err != nil {
		return nil, err
	}

	entry, err := s.catalog.GetFile(ctx, name)
	if err != nil {
		if errors.Is(err, catalog.ErrFileNotFound) {
			return nil, protocol.NewFileNotFound(name)
		}
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}
	if entry.Owner != caller {
		return nil, protocol.NewNotOwner(name, notOwnerMsg)
	}
	return entry, nil
}

// addAccess handles ADDACCESS, payload "<target>|<perms>". The grant is an
// upsert: re-granting replaces the bitmask. Granting to the owner is a no-op
// success since ownership already implies both bits.
func (s *Service) addAccess(ctx context.Context, req *protocol.Message) (string, error) {
	parts := strings.SplitN(strings.TrimSpace(string(req.Payload)), "|", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", protocol.NewInvalidParam("Invalid access payload")
	}
	target := parts[0]
	perms, err := strconv.Atoi(parts[1])
	if err != nil || perms < protocol.PermRead || perms > protocol.PermRead|protocol.PermWrite {
		return "", protocol.NewInvalidParam("Invalid permissions")
	}

	entry, err := s.getOwnedFile(ctx, req.Filename, req.Username, "Only owner can grant access")
	if err != nil {
		return "", err
	}
	if target == entry.Owner {
		return fmt.Sprintf("Access granted to %s", target), nil
	}
	if !s.users.Has(target) {
		return "", protocol.NewUserNotFound(target)
	}

	if err := s.catalog.UpsertGrant(ctx, entry.ID, target, perms); err != nil {
		return "", fmt.Errorf("catalog grant: %w", err)
	}

	logger.Info("Access granted",
		logger.File(req.Filename),
		logger.Owner(req.Username),
		logger.Target(target),
		logger.Count(perms))
	return fmt.Sprintf("Access granted to %s", target), nil
}

// remAccess handles REMACCESS, payload "<target>". Revoking a grant that
// does not exist succeeds; the end state is the same.
func (s *Service) remAccess(ctx context.Context, req *protocol.Message) (string, error) {
	target := strings.TrimSpace(string(req.Payload))
	if target == "" {
		return "", protocol.NewInvalidParam("Invalid access payload")
	}

	entry, err := s.getOwnedFile(ctx, req.Filename, req.Username, "Only owner can revoke access")
	if err != nil {
		return "", err
	}
	if !s.users.Has(target) {
		return "", protocol.NewUserNotFound(target)
	}

	if err := s.catalog.RemoveGrant(ctx, entry.ID, target); err != nil && !errors.Is(err, catalog.ErrGrantNotFound) {
		return "", fmt.Errorf("catalog revoke: %w", err)
	}

	logger.Info("Access revoked",
		logger.File(req.Filename),
		logger.Owner(req.Username),
		logger.Target(target))
	return fmt.Sprintf("Access revoked from %s", target), nil
}

// requestAccess handles REQUESTACCESS. The payload is the requested bitmask,
// optionally prefixed "REQUEST|". Recording only: resolution never writes a
// grant, the owner issues ADDACCESS separately.
func (s *Service) requestAccess(ctx context.Context, req *protocol.Message) (string, error) {
	payload := strings.TrimSpace(string(req.Payload))
	if i := strings.LastIndex(payload, "|"); i >= 0 {
		payload = payload[i+1:]
	}
	perms, err := strconv.Atoi(payload)
	if err != nil || perms < protocol.PermRead || perms > protocol.PermRead|protocol.PermWrite {
		return "", protocol.NewInvalidParam("Invalid permissions")
	}

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
	if entry.Owner == req.Username {
		return "", protocol.NewInvalidParam("You already own this file")
	}

	if err := s.catalog.CreateRequest(ctx, entry.ID, req.Username, perms); err != nil {
		return "", fmt.Errorf("catalog request: %w", err)
	}

	logger.Info("Access requested",
		logger.File(req.Filename),
		logger.User(req.Username),
		logger.Count(perms))
	return "Access request submitted", nil
}

// viewRequests handles VIEWREQUESTS: pending requests against files the
// caller owns, oldest first.
func (s *Service) viewRequests(ctx context.Context, req *protocol.Message) (string, error) {
	if err := protocol.ValidateUsername(req.Username); err != nil {
		return "", err
	}

	pending, err := s.catalog.PendingForOwner(ctx, req.Username)
	if err != nil {
		return "", fmt.Errorf("catalog requests: %w", err)
	}
	if len(pending) == 0 {
		return "No pending requests", nil
	}

	var b strings.Builder
	b.WriteString("Pending Access Requests:")
	for _, r := range pending {
		fmt.Fprintf(&b, "\n  %d. %s requests %s on %s",
			r.ID, r.Requester, permissionName(r.Permissions), r.FileName)
	}
	return b.String(), nil
}

// permissionName renders a permission bitmask for listings.
func permissionName(perms int) string {
	switch perms {
	case protocol.PermRead:
		return "read"
	case protocol.PermWrite:
		return "write"
	case protocol.PermRead | protocol.PermWrite:
		return "read+write"
	default:
		return strconv.Itoa(perms)
	}
}
