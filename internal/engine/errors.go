package engine

import "errors"

// ErrSubmitFailed is returned when the image subsystem rejects a descriptor
// synchronously (queue_request returns non-zero).
var ErrSubmitFailed = errors.New("engine: image subsystem rejected request")

// ErrUnknownSlot names the case where a completion callback's descriptor
// carries a slot index the pool does not recognise. The engine's completion
// callback has no error return: it logs that case and drops the completion
// rather than panicking, and does not return this value.
var ErrUnknownSlot = errors.New("engine: completion for unknown slot")
