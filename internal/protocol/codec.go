package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// frameOverhead is headroom on top of the payload bound for the envelope's
// other fields (tag, username, filename, error message, XDR padding).
const frameOverhead = 4 << 10

// ErrFrameTooLarge is returned when a frame announces or produces a body
// larger than the negotiated bound. The connection is unusable afterwards
// because the stream position is lost.
var ErrFrameTooLarge = errors.New("protocol: frame exceeds maximum size")

// ErrEmptyFrame is returned when a frame announces a zero-length body.
var ErrEmptyFrame = errors.New("protocol: empty frame")

// ReadMessage reads one length-prefixed frame from r and decodes its XDR
// body. maxPayload bounds the Payload field; zero selects
// DefaultMaxPayloadSize. io.EOF is returned unwrapped when the peer closes
// the connection cleanly between frames.
func ReadMessage(r io.Reader, maxPayload uint32) (*Message, error) {
	if maxPayload == 0 {
		maxPayload = DefaultMaxPayloadSize
	}

	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if length == 0 {
		return nil, ErrEmptyFrame
	}
	if length > maxPayload+frameOverhead {
		return nil, ErrFrameTooLarge
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}

	var msg Message
	if _, err := xdr.Unmarshal(bytes.NewReader(body), &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if uint32(len(msg.Payload)) > maxPayload {
		return nil, ErrFrameTooLarge
	}
	return &msg, nil
}

// WriteMessage encodes msg as an XDR body and writes it to w behind a 32-bit
// big-endian length prefix. The frame is assembled in memory and written
// with a single Write so concurrent writers on the same connection cannot
// interleave partial frames.
func WriteMessage(w io.Writer, msg *Message, maxPayload uint32) error {
	if maxPayload == 0 {
		maxPayload = DefaultMaxPayloadSize
	}
	if uint32(len(msg.Payload)) > maxPayload {
		return ErrFrameTooLarge
	}

	var body bytes.Buffer
	if _, err := xdr.Marshal(&body, msg); err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if uint32(body.Len()) > maxPayload+frameOverhead {
		return ErrFrameTooLarge
	}

	frame := make([]byte, 4+body.Len())
	binary.BigEndian.PutUint32(frame[:4], uint32(body.Len()))
	copy(frame[4:], body.Bytes())

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
