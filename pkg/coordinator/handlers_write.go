package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/scribefs/scribe/internal/logger"
	"github.com/scribefs/scribe/internal/protocol"
	"github.com/scribefs/scribe/internal/sentence"
	"github.com/scribefs/scribe/internal/telemetry"
	"github.com/scribefs/scribe/pkg/coordinator/catalog"
)

// writeLock handles WRITE_LOCK, phase one of a write: authorize, resolve the
// endpoints, then take the sentence lock for this session. The endpoint
// lookup runs first so a client facing dead nodes is never left holding a
// lock it cannot use.
//
// The sentence index is opaque here: the coordinator enforces mutual
// exclusion only, range checks against content happen on the storage side
// and in the client.
func (s *Service) writeLock(ctx context.Context, sess *Session, req *protocol.Message) (string, error) {
	idx, err := parseSentenceIndex(string(req.Payload))
	if err != nil {
		return "", err
	}

	entry, err := s.authorize(ctx, req.Filename, req.Username, protocol.PermWrite)
	if err != nil {
		return "", err
	}
	redirect, err := s.endpoints(entry)
	if err != nil {
		return "", err
	}

	if err := s.locks.Acquire(req.Filename, idx, req.Username, sess.Token); err != nil {
		return "", err
	}

	telemetry.SetAttributes(ctx, telemetry.SentenceIndex(idx))
	logger.Debug("Sentence lock acquired",
		logger.File(req.Filename),
		logger.Sentence(idx),
		logger.User(req.Username),
		logger.Session(sess.Token))

	redirect.Sentence = idx
	return redirect.Encode(), nil
}

// writeCommit handles ETIRW, phase two: release the lock matching all four
// of (file, sentence, user, session) and record the commit in the catalog.
// A commit for a lock not held is a silent no-op acknowledgement; it may
// legitimately arrive after the holding session already died.
func (s *Service) writeCommit(ctx context.Context, sess *Session, req *protocol.Message) (string, error) {
	idx, counters, err := parseCommitPayload(string(req.Payload))
	if err != nil {
		return "", err
	}
	telemetry.SetAttributes(ctx, telemetry.SentenceIndex(idx))

	if !s.locks.Release(req.Filename, idx, req.Username, sess.Token) {
		return "Committed", nil
	}

	if err := s.catalog.CommitWrite(ctx, req.Filename, req.Username, idx, counters); err != nil {
		// The file may have been deleted between lock and commit; the lock
		// is already gone either way.
		if errors.Is(err, catalog.ErrFileNotFound) {
			return "Committed", nil
		}
		return "", fmt.Errorf("catalog commit: %w", err)
	}

	logger.Debug("Write committed",
		logger.File(req.Filename),
		logger.Sentence(idx),
		logger.User(req.Username),
		logger.Session(sess.Token))
	return "Committed", nil
}

// parseSentenceIndex decodes a bare 0-based sentence index.
func parseSentenceIndex(payload string) (int, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(payload))
	if err != nil || idx < 0 {
		return 0, protocol.NewInvalidParam("Invalid sentence index")
	}
	return idx, nil
}

// parseCommitPayload decodes an ETIRW payload: either the bare sentence
// index, or "<idx>|<words>|<chars>|<sentences>" when the client reports the
// post-edit counters so the catalog can refresh its advisory cache.
func parseCommitPayload(payload string) (int, *sentence.Counters, error) {
	parts := strings.Split(strings.TrimSpace(payload), "|")

	idx, err := strconv.Atoi(parts[0])
	if err != nil || idx < 0 {
		return 0, nil, protocol.NewInvalidParam("Invalid sentence index")
	}
	if len(parts) == 1 {
		return idx, nil, nil
	}
	if len(parts) != 4 {
		return 0, nil, protocol.NewInvalidParam("Invalid commit payload")
	}

	var c sentence.Counters
	for i, dst := range []*int{&c.Words, &c.Chars, &c.Sentences} {
		n, err := strconv.Atoi(parts[i+1])
		if err != nil || n < 0 {
			return 0, nil, protocol.NewInvalidParam("Invalid commit payload")
		}
		*dst = n
	}
	return idx, &c, nil
}
