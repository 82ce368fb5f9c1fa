// Package adminproto frames the admin control-plane message spec.md §6
// describes: a fixed-shape request (add/del a named virtual disk) and a one
// byte response code, sent over a local Unix socket. Framing uses
// cloudwego/gopkg/bufiox the way the teacher's internal/queue frames its own
// fixed-width descriptors over mmap'd memory, adapted here to a socket byte
// stream instead of shared memory.
package adminproto

import (
	"errors"
	"fmt"

	"github.com/cloudwego/gopkg/bufiox"
)

// MaxNameLength bounds the device name carried in a Request. Longer names
// are rejected by NewRequest with ErrNameTooLong before any byte reaches the
// wire, matching thin_cli's "input too long" / exit code 2 behaviour.
const MaxNameLength = 255

// Opcode selects the admin operation a Request performs.
type Opcode uint8

const (
	OpAdd Opcode = 1
	OpDel Opcode = 2
)

func (op Opcode) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpDel:
		return "del"
	default:
		return "unknown"
	}
}

// ResponseCode is the single byte a server sends back.
type ResponseCode uint8

const (
	CodeOkay ResponseCode = 0
	CodeFail ResponseCode = 1
)

// ErrNameTooLong is returned by NewRequest when name exceeds MaxNameLength.
var ErrNameTooLong = errors.New("adminproto: device name too long")

// Request is the fixed-shape message spec.md §6 describes: an opcode and a
// device name. On the wire it is always 1 (opcode) + 1 (name length) +
// MaxNameLength (name, zero-padded) bytes, so a reader can always consume
// exactly WireSize bytes without a separate length-prefix round trip.
type Request struct {
	Op   Opcode
	Name string
}

// NewRequest validates name's length before constructing a Request.
func NewRequest(op Opcode, name string) (Request, error) {
	if len(name) > MaxNameLength {
		return Request{}, ErrNameTooLong
	}
	return Request{Op: op, Name: name}, nil
}

// WireSize is the fixed number of bytes a Request occupies on the wire.
const WireSize = 1 + 1 + MaxNameLength

// WriteRequest encodes req into w and flushes it.
func WriteRequest(w bufiox.Writer, req Request) error {
	if len(req.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	buf, err := w.Malloc(WireSize)
	if err != nil {
		return fmt.Errorf("adminproto: malloc request: %w", err)
	}
	buf[0] = byte(req.Op)
	buf[1] = byte(len(req.Name))
	for i := 2; i < WireSize; i++ {
		buf[i] = 0
	}
	copy(buf[2:], req.Name)
	return w.Flush()
}

// ReadRequest decodes exactly one fixed-shape Request from r.
func ReadRequest(r bufiox.Reader) (Request, error) {
	buf, err := r.Next(WireSize)
	if err != nil {
		return Request{}, fmt.Errorf("adminproto: read request: %w", err)
	}
	op := Opcode(buf[0])
	n := int(buf[1])
	if n > MaxNameLength {
		return Request{}, ErrNameTooLong
	}
	name := string(buf[2 : 2+n])
	return Request{Op: op, Name: name}, nil
}

// WriteResponse encodes code into w and flushes it.
func WriteResponse(w bufiox.Writer, code ResponseCode) error {
	buf, err := w.Malloc(1)
	if err != nil {
		return fmt.Errorf("adminproto: malloc response: %w", err)
	}
	buf[0] = byte(code)
	return w.Flush()
}

// ReadResponse decodes the one-byte response code.
func ReadResponse(r bufiox.Reader) (ResponseCode, error) {
	buf, err := r.Next(1)
	if err != nil {
		return 0, fmt.Errorf("adminproto: read response: %w", err)
	}
	return ResponseCode(buf[0]), nil
}
