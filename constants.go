package blkback

import (
	"github.com/behrlich/go-blkback/internal/constants"
	"github.com/behrlich/go-blkback/internal/wire"
)

// Re-exported wire-protocol constants, for callers that want to validate
// ring sizing or segment counts without importing internal/wire directly.
const (
	MaxSegments    = wire.MaxSegments
	SectorSize     = wire.SectorSize
	PageSize       = wire.PageSize
	SectorsPerPage = wire.SectorsPerPage
)

// Re-exported attach defaults.
const (
	DefaultRingSize = constants.DefaultRingSize
)

// ProtocolVariant tags which of the three wire layouts a Blkif negotiated.
type ProtocolVariant = wire.ProtocolVariant

const (
	ProtocolNative = wire.ProtocolNative
	ProtocolX86_32 = wire.ProtocolX86_32
	ProtocolX86_64 = wire.ProtocolX86_64
)

// Request, Segment and Response mirror the ring wire layout. Decoding them
// out of shared ring memory is the caller's responsibility (spec.md §6
// calls consumer-side request enumeration "outside the core's scope"); a
// Blkif consumes already-decoded Request values via QueueRequests.
type Request = wire.Request
type Segment = wire.Segment
type Response = wire.Response
type Status = wire.Status

const (
	OpRead  = wire.OpRead
	OpWrite = wire.OpWrite
)

const (
	StatusOkay       = wire.StatusOkay
	StatusError      = wire.StatusError
	StatusEOpNotSupp = wire.StatusEOpNotSupp
)
