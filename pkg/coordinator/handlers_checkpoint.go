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

// checkpoint handles the CHECKPOINT tag. The payload selects the
// sub-command: "CREATE|<tag>", "LIST", or "REVERT|<tag>". LIST and REVERT
// also arrive as their own tags; all three forms converge here.
func (s *Service) checkpoint(ctx context.Context, req *protocol.Message) (string, error) {
	subcmd, tag, _ := strings.Cut(strings.TrimSpace(string(req.Payload)), "|")
	switch strings.ToUpper(subcmd) {
	case "CREATE":
		return s.checkpointCreate(ctx, req, tag)
	case "LIST":
		return s.listCheckpoints(ctx, req)
	case "REVERT":
		return s.revert(ctx, req, tag)
	default:
		return "", protocol.NewInvalidParam("Unknown checkpoint command")
	}
}

// checkpointCreate records the tag in the catalog and redirects the client
// to the node that stores the blob. The locator is the node-side key; the
// coordinator never touches the blob itself. Re-creating an existing tag
// replaces it, on both sides.
func (s *Service) checkpointCreate(ctx context.Context, req *protocol.Message, tag string) (string, error) {
	if tag == "" {
		return "", protocol.NewInvalidParam("Invalid checkpoint tag")
	}

	entry, err := s.authorize(ctx, req.Filename, req.Username, protocol.PermRead)
	if err != nil {
		return "", err
	}
	redirect, err := s.endpoints(entry)
	if err != nil {
		return "", err
	}

	locator := fmt.Sprintf("checkpoint/%s/%s", req.Filename, tag)
	if err := s.catalog.UpsertCheckpoint(ctx, entry.ID, tag, locator, req.Username); err != nil {
		return "", fmt.Errorf("catalog checkpoint: %w", err)
	}

	logger.Info("Checkpoint recorded",
		logger.File(req.Filename),
		logger.Checkpoint(tag),
		logger.User(req.Username))

	redirect.Command = "CREATE|" + tag
	return redirect.Encode(), nil
}

// listCheckpoints handles LISTCHECKPOINTS: authorization plus a redirect
// telling the node to render its checkpoint list.
func (s *Service) listCheckpoints(ctx context.Context, req *protocol.Message) (string, error) {
	entry, err := s.authorize(ctx, req.Filename, req.Username, protocol.PermRead)
	if err != nil {
		return "", err
	}
	redirect, err := s.endpoints(entry)
	if err != nil {
		return "", err
	}
	redirect.Command = "LIST"
	return redirect.Encode(), nil
}

// revert handles REVERT. The tag must exist in the catalog before the client
// is sent to the node; write permission is required because reverting
// replaces content.
func (s *Service) revert(ctx context.Context, req *protocol.Message, tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", protocol.NewInvalidParam("Invalid checkpoint tag")
	}

	entry, err := s.authorize(ctx, req.Filename, req.Username, protocol.PermWrite)
	if err != nil {
		return "", err
	}
	if _, err := s.catalog.GetCheckpoint(ctx, entry.ID, tag); err != nil {
		if errors.Is(err, catalog.ErrCheckpointNotFound) {
			return "", protocol.NewCheckpointNotFound(req.Filename, tag)
		}
		return "", fmt.Errorf("catalog checkpoint: %w", err)
	}

	redirect, err := s.endpoints(entry)
	if err != nil {
		return "", err
	}
	redirect.Command = "REVERT|" + tag
	return redirect.Encode(), nil
}
