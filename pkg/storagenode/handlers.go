package storagenode

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/scribefs/scribe/internal/protocol"
	"github.com/scribefs/scribe/internal/sentence"
	"github.com/scribefs/scribe/internal/telemetry"
)

const infoTimeFormat = "2006-01-02 15:04:05"

// handle routes one content operation to the store.
func (s *Server) handle(ctx context.Context, req *protocol.Message) (string, error) {
	if err := protocol.ValidateUsername(req.Username); err != nil {
		return "", err
	}
	if err := protocol.ValidateName(req.Filename); err != nil {
		return "", err
	}

	switch req.Type {
	case protocol.TagCreate:
		return s.create(ctx, req)
	case protocol.TagRead:
		return s.read(ctx, req)
	case protocol.TagWrite:
		return s.write(ctx, req)
	case protocol.TagDelete:
		return s.delete(ctx, req)
	case protocol.TagInfo:
		return s.info(ctx, req)
	case protocol.TagUndo:
		return s.undo(ctx, req)
	case protocol.TagCheckpoint, protocol.TagListCheckpts, protocol.TagRevert:
		return s.checkpoint(ctx, req)
	case protocol.TagReplicate:
		return s.replicate(ctx, req)
	default:
		return "", protocol.NewInvalidParam(fmt.Sprintf("Unknown request type %q", req.Type))
	}
}

func (s *Server) create(ctx context.Context, req *protocol.Message) (string, error) {
	if err := s.store.Create(ctx, req.Filename); err != nil {
		return "", err
	}
	s.updateFileGauge(ctx)
	return "File created", nil
}

func (s *Server) read(ctx context.Context, req *protocol.Message) (string, error) {
	content, err := s.store.Read(ctx, req.Filename)
	if err != nil {
		return "", err
	}
	telemetry.SetAttributes(ctx, telemetry.ContentBytes(len(content)))
	if s.metrics != nil {
		s.metrics.RecordBytesTransferred("read", uint64(len(content)))
	}
	return string(content), nil
}

// write stores new content. The payload is either full replacement content
// or "<sentence>|<word>|<text>" for a single word edit applied server-side.
func (s *Server) write(ctx context.Context, req *protocol.Message) (string, error) {
	payload := string(req.Payload)

	content := payload
	if edit, isEdit, err := parseWordEdit(payload); err != nil {
		return "", err
	} else if isEdit {
		current, err := s.store.Read(ctx, req.Filename)
		if err != nil {
			return "", err
		}
		content, err = applyWordEdit(string(current), edit)
		if err != nil {
			return "", err
		}
	}

	if err := s.store.Write(ctx, req.Filename, []byte(content)); err != nil {
		return "", err
	}
	telemetry.SetAttributes(ctx, telemetry.ContentBytes(len(content)))
	if s.metrics != nil {
		s.metrics.RecordBytesTransferred("write", uint64(len(content)))
	}
	return "Write successful", nil
}

func (s *Server) delete(ctx context.Context, req *protocol.Message) (string, error) {
	if err := s.store.Delete(ctx, req.Filename); err != nil {
		return "", err
	}
	s.updateFileGauge(ctx)
	return "File deleted", nil
}

func (s *Server) info(ctx context.Context, req *protocol.Message) (string, error) {
	meta, err := s.store.Meta(ctx, req.Filename)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Words: %d | Characters: %d | Sentences: %d | Modified: %s",
		meta.Words, meta.Chars, meta.Sentences,
		meta.ModifiedAt.Format(infoTimeFormat)), nil
}

func (s *Server) undo(ctx context.Context, req *protocol.Message) (string, error) {
	if err := s.store.Undo(ctx, req.Filename); err != nil {
		return "", err
	}
	return "Undo successful", nil
}

// checkpoint handles the CREATE|<tag>, LIST and REVERT|<tag> payload forms.
func (s *Server) checkpoint(ctx context.Context, req *protocol.Message) (string, error) {
	subcmd, rest, _ := strings.Cut(string(req.Payload), "|")

	switch strings.ToUpper(strings.TrimSpace(subcmd)) {
	case "CREATE":
		tag := strings.TrimSpace(rest)
		if tag == "" {
			return "", protocol.NewInvalidParam("Checkpoint tag required")
		}
		telemetry.SetAttributes(ctx, telemetry.CheckpointTag(tag))
		if err := s.store.Checkpoint(ctx, req.Filename, tag); err != nil {
			return "", err
		}
		return fmt.Sprintf("Checkpoint '%s' created", tag), nil

	case "LIST":
		checkpoints, err := s.store.Checkpoints(ctx, req.Filename)
		if err != nil {
			return "", err
		}
		if len(checkpoints) == 0 {
			return "No checkpoints", nil
		}
		var b strings.Builder
		b.WriteString("Checkpoints:")
		for _, cp := range checkpoints {
			fmt.Fprintf(&b, "\n  %s  %s", cp.Tag, cp.CreatedAt.Format(infoTimeFormat))
		}
		return b.String(), nil

	case "REVERT":
		tag := strings.TrimSpace(rest)
		if tag == "" {
			return "", protocol.NewInvalidParam("Checkpoint tag required")
		}
		telemetry.SetAttributes(ctx, telemetry.CheckpointTag(tag))
		if err := s.store.Revert(ctx, req.Filename, tag); err != nil {
			return "", err
		}
		return fmt.Sprintf("Reverted to checkpoint '%s'", tag), nil

	default:
		return "", protocol.NewInvalidParam("Unknown checkpoint command")
	}
}

func (s *Server) replicate(ctx context.Context, req *protocol.Message) (string, error) {
	if err := s.store.Replicate(ctx, req.Filename, req.Payload); err != nil {
		return "", err
	}
	if s.metrics != nil {
		s.metrics.RecordBytesTransferred("write", uint64(len(req.Payload)))
	}
	s.updateFileGauge(ctx)
	return "Replicated successfully", nil
}

// streamFile answers a STREAM request with a start frame, one frame per word
// paced by the configured delay, and an end frame. A write error aborts the
// stream and the connection.
func (s *Server) streamFile(ctx context.Context, conn net.Conn, req *protocol.Message) error {
	ctx, span := telemetry.StartNodeSpan(ctx, req.Type,
		telemetry.Username(req.Username),
		telemetry.Filename(req.Filename),
		telemetry.NodeID(s.id))
	sent := 0
	defer func() {
		span.SetAttributes(telemetry.StreamWords(sent))
		span.End()
	}()

	content, err := s.store.Read(ctx, req.Filename)
	if err != nil {
		return protocol.WriteMessage(conn, protocol.ErrorResponse(req, err), s.maxPayload)
	}

	delay := s.cfg.StreamDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	frame := func(tag, word string) *protocol.Message {
		return &protocol.Message{
			Type:     tag,
			Username: req.Username,
			Filename: req.Filename,
			Payload:  []byte(word),
		}
	}

	if err := protocol.WriteMessage(conn, frame(protocol.TagStreamStart, ""), s.maxPayload); err != nil {
		return err
	}
	for _, word := range sentence.Words(string(content)) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if err := protocol.WriteMessage(conn, frame(protocol.TagStreamWord, word), s.maxPayload); err != nil {
			return err
		}
		sent++
		if s.metrics != nil {
			s.metrics.RecordStreamWord()
		}
	}
	return protocol.WriteMessage(conn, frame(protocol.TagStreamEnd, ""), s.maxPayload)
}

// updateFileGauge refreshes the stored-files metric; failures only log.
func (s *Server) updateFileGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	count, err := s.store.FileCount(ctx)
	if err != nil {
		return
	}
	s.metrics.SetFilesStored(count)
}
