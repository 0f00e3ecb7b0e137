// Package sentence implements the content parsing rules shared by clients
// and storage nodes. Both sides parse file content independently, so the
// rules here are wire contract: changing them desynchronizes sentence
// indices between peers.
package sentence

import "strings"

// IsTerminator reports whether r ends a sentence. Every occurrence of a
// terminator splits, regardless of context; "e.g." is two sentences. That is
// observable protocol behavior, not a parsing bug.
func IsTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// Split breaks content into sentences. The terminator stays with the
// preceding sentence, surrounding whitespace is trimmed, and empty pieces
// are dropped.
func Split(content string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, r := range content {
		current.WriteRune(r)
		if IsTerminator(r) {
			flush()
		}
	}
	flush()
	return sentences
}

// Words breaks a sentence into whitespace-separated words.
func Words(s string) []string {
	return strings.Fields(s)
}

// Join reassembles sentences into file content with single spaces between
// them, mirroring how clients rebuild content after an edit.
func Join(sentences []string) string {
	return strings.Join(sentences, " ")
}

// Counters are the advisory statistics a storage node keeps per file.
type Counters struct {
	Words     int
	Chars     int
	Sentences int
}

// Count computes the counters for content. Chars counts bytes, matching the
// INFO output of the original storage-side metadata.
func Count(content string) Counters {
	return Counters{
		Words:     len(strings.Fields(content)),
		Chars:     len(content),
		Sentences: len(Split(content)),
	}
}
