package storagenode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/scribefs/scribe/internal/protocol"
	"github.com/scribefs/scribe/internal/sentence"
)

// wordEdit is the single-word form of WRITE: "<sentence>|<word>|<text>".
type wordEdit struct {
	Sentence int
	Word     int
	Text     string
}

// parseWordEdit recognizes the word-edit payload form. ok is false when the
// payload is full replacement content instead; err is set only when the
// payload looks like an edit but is malformed.
func parseWordEdit(payload string) (wordEdit, bool, error) {
	parts := strings.SplitN(payload, "|", 3)
	if len(parts) != 3 {
		return wordEdit{}, false, nil
	}
	sentIdx, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return wordEdit{}, false, nil
	}
	wordIdx, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return wordEdit{}, false, nil
	}
	if sentIdx < 0 || wordIdx < 0 {
		return wordEdit{}, true, protocol.NewInvalidParam("Invalid edit indices")
	}
	text := strings.TrimSpace(parts[2])
	if text == "" {
		return wordEdit{}, true, protocol.NewInvalidParam("Empty edit text")
	}
	return wordEdit{Sentence: sentIdx, Word: wordIdx, Text: text}, true, nil
}

// applyWordEdit applies one word edit to content and returns the rebuilt
// content. A sentence index equal to the sentence count appends a new
// sentence; a word index equal to the word count appends to the sentence.
func applyWordEdit(content string, edit wordEdit) (string, error) {
	sentences := sentence.Split(content)

	if edit.Sentence > len(sentences) {
		return "", protocol.NewInvalidParam(fmt.Sprintf("Sentence index %d out of range", edit.Sentence))
	}
	if edit.Sentence == len(sentences) {
		if edit.Word != 0 {
			return "", protocol.NewInvalidParam(fmt.Sprintf("Word index %d out of range", edit.Word))
		}
		sentences = append(sentences, edit.Text)
		return sentence.Join(sentences), nil
	}

	words := sentence.Words(sentences[edit.Sentence])
	switch {
	case edit.Word < len(words):
		words[edit.Word] = edit.Text
	case edit.Word == len(words):
		words = append(words, edit.Text)
	default:
		return "", protocol.NewInvalidParam(fmt.Sprintf("Word index %d out of range", edit.Word))
	}

	sentences[edit.Sentence] = strings.Join(words, " ")
	return sentence.Join(sentences), nil
}
