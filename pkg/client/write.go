package client

import (
	"fmt"
	"strconv"

	"github.com/scribefs/scribe/internal/logger"
	"github.com/scribefs/scribe/internal/protocol"
	"github.com/scribefs/scribe/internal/sentence"
)

// WordEdit is one word replacement within the locked sentence. An index
// equal to the current word count appends.
type WordEdit struct {
	Index int
	Text  string
}

// Write runs the two-phase write protocol:
//
//  1. WRITE_LOCK the sentence at the coordinator, which resolves the
//     storage endpoints.
//  2. READ the current content from the node (replica failover), parse
//     sentences, apply the word edits locally.
//  3. WRITE the reassembled content to the primary node.
//  4. ETIRW to the coordinator: releases the lock and updates the catalog
//     counters.
//  5. Best-effort REPLICATE to the replica.
//
// A sentence index equal to the current count appends a new sentence. An
// out-of-range edit aborts before anything is written; the lock is released
// when the session closes.
func (c *Client) Write(file string, sentenceIdx int, edits []WordEdit) (string, error) {
	if sentenceIdx < 0 {
		return "", protocol.NewInvalidParam("Invalid sentence index")
	}

	redirect, err := c.redirectCall(protocol.TagWriteLock, file, strconv.Itoa(sentenceIdx))
	if err != nil {
		return "", err
	}

	resp, err := c.nodeCallFailover(redirect, protocol.TagRead, file, "")
	if err != nil {
		return "", err
	}

	content, err := applyEdits(string(resp.Payload), sentenceIdx, edits)
	if err != nil {
		return "", err
	}

	if _, err := c.nodeCall(redirect.Primary, protocol.TagWrite, file, content); err != nil {
		return "", err
	}

	counters := sentence.Count(content)
	commit, err := c.call(protocol.TagWriteCommit, file,
		fmt.Sprintf("%d|%d|%d|%d", sentenceIdx, counters.Words, counters.Chars, counters.Sentences))
	if err != nil {
		return "", err
	}

	if redirect.Replica != "" {
		if _, err := c.nodeCall(redirect.Replica, protocol.TagReplicate, file, content); err != nil {
			logger.Warn("Replication failed",
				logger.File(file),
				logger.NodeAddr(redirect.Replica),
				logger.Err(err))
		}
	}
	return string(commit.Payload), nil
}

// applyEdits applies the word edits to the indexed sentence and rebuilds the
// content. Index checks happen here, before the node sees any write.
func applyEdits(content string, sentenceIdx int, edits []WordEdit) (string, error) {
	sentences := sentence.Split(content)
	if sentenceIdx > len(sentences) {
		return "", protocol.NewInvalidParam(
			fmt.Sprintf("Sentence index %d out of range (file has %d)", sentenceIdx, len(sentences)))
	}

	var words []string
	if sentenceIdx < len(sentences) {
		words = sentence.Words(sentences[sentenceIdx])
	} else {
		sentences = append(sentences, "")
	}

	for _, edit := range edits {
		switch {
		case edit.Index < 0 || edit.Index > len(words):
			return "", protocol.NewInvalidParam(
				fmt.Sprintf("Word index %d out of range (sentence has %d words)", edit.Index, len(words)))
		case edit.Index == len(words):
			words = append(words, edit.Text)
		default:
			words[edit.Index] = edit.Text
		}
	}

	sentences[sentenceIdx] = sentence.Join(words)
	return sentence.Join(sentences), nil
}
