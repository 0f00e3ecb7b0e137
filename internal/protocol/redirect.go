package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Redirect is the coordinator's endpoint payload pointing a client at the
// storage node(s) serving a file. On the wire it is ASCII:
//
//	SS:<host>:<port>[|REPLICA:<host>:<port>][|SENTENCE:<n> | |CMD:<subcmd>]
//
// The segments appear in that order. The CMD segment consumes the rest of
// the payload, because sub-commands themselves contain '|' separators
// ("CREATE|snap1").
type Redirect struct {
	// Primary is the host:port of the node that serves the request.
	Primary string

	// Replica is the host:port of the failover node, empty when none was
	// assigned or its node is dead.
	Replica string

	// Sentence is the locked sentence index for WRITE_LOCK redirects, -1
	// otherwise.
	Sentence int

	// Command is the sub-command echo for checkpoint redirects, empty
	// otherwise.
	Command string
}

// Encode renders the redirect in wire form.
func (r Redirect) Encode() string {
	var b strings.Builder
	b.WriteString("SS:")
	b.WriteString(r.Primary)
	if r.Replica != "" {
		b.WriteString("|REPLICA:")
		b.WriteString(r.Replica)
	}
	if r.Sentence >= 0 {
		fmt.Fprintf(&b, "|SENTENCE:%d", r.Sentence)
	} else if r.Command != "" {
		b.WriteString("|CMD:")
		b.WriteString(r.Command)
	}
	return b.String()
}

// ParseRedirect decodes a redirect payload. Unknown segments are rejected so
// a garbled payload surfaces instead of silently losing an endpoint.
func ParseRedirect(s string) (Redirect, error) {
	r := Redirect{Sentence: -1}
	if !strings.HasPrefix(s, "SS:") {
		return r, fmt.Errorf("redirect payload missing SS segment: %q", s)
	}

	segments := strings.Split(s, "|")
	for i := 0; i < len(segments); i++ {
		seg := segments[i]
		switch {
		case strings.HasPrefix(seg, "SS:"):
			r.Primary = seg[len("SS:"):]
		case strings.HasPrefix(seg, "REPLICA:"):
			r.Replica = seg[len("REPLICA:"):]
		case strings.HasPrefix(seg, "SENTENCE:"):
			n, err := strconv.Atoi(seg[len("SENTENCE:"):])
			if err != nil {
				return r, fmt.Errorf("redirect sentence index: %w", err)
			}
			r.Sentence = n
		case strings.HasPrefix(seg, "CMD:"):
			// The sub-command owns the remainder of the payload.
			r.Command = strings.Join(segments[i:], "|")[len("CMD:"):]
			i = len(segments)
		default:
			return r, fmt.Errorf("redirect payload has unknown segment: %q", seg)
		}
	}

	if r.Primary == "" {
		return r, fmt.Errorf("redirect payload has empty primary endpoint: %q", s)
	}
	return r, nil
}
