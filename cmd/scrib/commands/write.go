package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scribefs/scribe/internal/cli/prompt"
	"github.com/scribefs/scribe/pkg/client"
)

var writeEdits []string

var writeCmd = &cobra.Command{
	Use:   "write <file> <sentence>",
	Short: "Edit one sentence of a document",
	Long: `Lock one sentence and apply word edits to it. Each edit is
"<word_index> <text>": an index inside the sentence replaces that word,
the index one past the end appends. Locking the sentence index one past
the last sentence appends a new sentence.

Edits can be given with repeated --edit flags; without them an
interactive loop prompts for one edit per line until ETIRW.

Examples:
  scrib write notes.txt 0 --edit "0 Hello" --edit "1 world."
  scrib write notes.txt 2`,
	Args: cobra.ExactArgs(2),
	RunE: runWrite,
}

func init() {
	writeCmd.Flags().StringArrayVar(&writeEdits, "edit", nil, `word edit as "<word_index> <text>" (repeatable)`)
}

func runWrite(cmd *cobra.Command, args []string) error {
	file := args[0]
	sentenceIdx, err := strconv.Atoi(args[1])
	if err != nil || sentenceIdx < 0 {
		return fmt.Errorf("invalid sentence index %q", args[1])
	}

	edits, err := collectEdits(writeEdits)
	if err != nil {
		return err
	}
	if len(edits) == 0 {
		return fmt.Errorf("no edits given")
	}

	return withClient(func(c *client.Client) error {
		msg, err := c.Write(file, sentenceIdx, edits)
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	})
}

// collectEdits parses --edit flags, or prompts interactively when none
// were given.
func collectEdits(flags []string) ([]client.WordEdit, error) {
	if len(flags) > 0 {
		edits := make([]client.WordEdit, 0, len(flags))
		for _, raw := range flags {
			edit, err := parseEdit(raw)
			if err != nil {
				return nil, err
			}
			edits = append(edits, edit)
		}
		return edits, nil
	}

	fmt.Println(`Enter edits as "<word_index> <text>", one per line. ETIRW finishes.`)
	var edits []client.WordEdit
	for {
		line, err := prompt.Input("edit", "")
		if err != nil {
			if prompt.IsAborted(err) {
				return nil, fmt.Errorf("aborted")
			}
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "ETIRW") {
			return edits, nil
		}
		edit, err := parseEdit(line)
		if err != nil {
			fmt.Println(err)
			continue
		}
		edits = append(edits, edit)
	}
}

func parseEdit(raw string) (client.WordEdit, error) {
	idxStr, text, found := strings.Cut(strings.TrimSpace(raw), " ")
	if !found {
		return client.WordEdit{}, fmt.Errorf("edit %q: want \"<word_index> <text>\"", raw)
	}
	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 0 {
		return client.WordEdit{}, fmt.Errorf("edit %q: invalid word index %q", raw, idxStr)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return client.WordEdit{}, fmt.Errorf("edit %q: empty text", raw)
	}
	return client.WordEdit{Index: idx, Text: text}, nil
}
