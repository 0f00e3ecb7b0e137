package commands

import (
	"testing"

	"github.com/scribefs/scribe/internal/protocol"
)

func TestParseEdit(t *testing.T) {
	edit, err := parseEdit("0 Hello")
	if err != nil {
		t.Fatalf("parseEdit: %v", err)
	}
	if edit.Index != 0 || edit.Text != "Hello" {
		t.Fatalf("got %+v", edit)
	}

	edit, err = parseEdit("3 two words")
	if err != nil {
		t.Fatalf("parseEdit: %v", err)
	}
	if edit.Index != 3 || edit.Text != "two words" {
		t.Fatalf("got %+v", edit)
	}

	for _, raw := range []string{"", "hello", "-1 x", "2 ", "2"} {
		if _, err := parseEdit(raw); err == nil {
			t.Errorf("parseEdit(%q) expected error", raw)
		}
	}
}

func TestCollectEditsFromFlags(t *testing.T) {
	edits, err := collectEdits([]string{"0 The", "1 end."})
	if err != nil {
		t.Fatalf("collectEdits: %v", err)
	}
	if len(edits) != 2 || edits[1].Text != "end." {
		t.Fatalf("got %+v", edits)
	}

	if _, err := collectEdits([]string{"bad"}); err == nil {
		t.Fatal("expected error for malformed flag")
	}
}

func TestParsePerms(t *testing.T) {
	cases := map[string]int{
		"R":  protocol.PermRead,
		"w":  protocol.PermWrite,
		"RW": protocol.PermRead | protocol.PermWrite,
		"wr": protocol.PermRead | protocol.PermWrite,
	}
	for in, want := range cases {
		got, err := parsePerms(in)
		if err != nil {
			t.Fatalf("parsePerms(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("parsePerms(%q) = %d, want %d", in, got, want)
		}
	}
	if _, err := parsePerms("X"); err == nil {
		t.Fatal("expected error for invalid perms")
	}
}

func TestPermBits(t *testing.T) {
	got, err := permBits(true, true)
	if err != nil {
		t.Fatalf("permBits: %v", err)
	}
	if got != protocol.PermRead|protocol.PermWrite {
		t.Fatalf("got %d", got)
	}
	if _, err := permBits(false, false); err == nil {
		t.Fatal("expected error when no permission flags set")
	}
}
