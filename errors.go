package blkback

import (
	"errors"
	"fmt"
)

// ErrCode is a high-level error category, one per spec.md §7 taxonomy entry.
type ErrCode string

const (
	ErrCodeUnsupportedProtocol ErrCode = "unsupported protocol"
	ErrCodeUnsupportedOp       ErrCode = "unsupported operation"
	ErrCodeInvalidSegmentCount ErrCode = "invalid segment count"
	ErrCodeInvalidSectorRange  ErrCode = "invalid sector range"
	ErrCodeOutOfMemory         ErrCode = "out of memory"
	ErrCodeGrantMapFailed      ErrCode = "grant map failed"
	ErrCodeGrantUnmapFailed    ErrCode = "grant unmap failed"
	ErrCodeSubmitFailed        ErrCode = "image subsystem rejected request"
	ErrCodeImageError          ErrCode = "image subsystem reported error"
	ErrCodeNotifyFailed        ErrCode = "event channel notify failed"
	ErrCodeInvalidParameters   ErrCode = "invalid parameters"
)

// Error is a structured go-blkback error carrying enough context to log and
// to match against by code.
type Error struct {
	Op    string  // operation that failed ("attach", "detach", "queue")
	DevID uint32  // device id, 0 if not applicable
	Code  ErrCode // high-level category
	Msg   string  // human-readable message
	Inner error   // wrapped error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		return fmt.Sprintf("blkback: %s: %s (dev=%d)", e.Op, msg, e.DevID)
	}
	return fmt.Sprintf("blkback: %s", msg)
}

func (e *Error) Unwrap() error { return e.Inner }

func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// NewError builds a structured error for op with the given code and message.
func NewError(op string, code ErrCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// WrapError wraps inner with op, preserving its code if it is already a
// structured *Error, otherwise defaulting to ErrCodeImageError.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	var be *Error
	if errors.As(inner, &be) {
		return &Error{Op: op, DevID: be.DevID, Code: be.Code, Msg: be.Msg, Inner: be.Inner}
	}
	return &Error{Op: op, Code: ErrCodeImageError, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is a *Error (possibly wrapped) with the given
// code.
func IsCode(err error, code ErrCode) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// Sentinel errors for the spec §7 taxonomy, for callers that prefer
// errors.Is over code comparison.
var (
	ErrUnsupportedProtocol = NewError("translate", ErrCodeUnsupportedProtocol, "ring variant not recognised")
	ErrUnsupportedOp       = NewError("translate", ErrCodeUnsupportedOp, "request op is not read or write")
	ErrInvalidSegmentCount = NewError("translate", ErrCodeInvalidSegmentCount, "segment count out of range")
	ErrInvalidSectorRange  = NewError("translate", ErrCodeInvalidSectorRange, "segment sector range invalid")
	ErrOutOfMemory         = NewError("translate", ErrCodeOutOfMemory, "bounce or pool allocation failed")
	ErrGrantMapFailed      = NewError("grant", ErrCodeGrantMapFailed, "hypervisor rejected grant map")
	ErrGrantUnmapFailed    = NewError("grant", ErrCodeGrantUnmapFailed, "hypervisor rejected grant unmap")
	ErrSubmitFailed        = NewError("engine", ErrCodeSubmitFailed, "image subsystem rejected descriptor")
	ErrImageError          = NewError("engine", ErrCodeImageError, "image subsystem reported async error")
	ErrNotifyFailed        = NewError("engine", ErrCodeNotifyFailed, "event channel notify failed")
	ErrInvalidParameters   = NewError("attach", ErrCodeInvalidParameters, "invalid attach parameters")
)
