// Package wire defines the on-the-wire ring request/response layouts for
// the three protocol variants a guest may negotiate (native, 32-bit compat,
// 64-bit compat) and the manual marshal/unmarshal code for each.
package wire

// MaxSegments is the largest number of segments a single ring request may
// carry (BLKIF_MAX_SEGMENTS_PER_REQUEST in the source protocol).
const MaxSegments = 11

// SectorSize is the fixed sector unit used by the ring protocol.
const SectorSize = 512

// PageSize is the guest page size a bounce buffer segment covers.
const PageSize = 4096

// SectorsPerPage is PageSize / SectorSize.
const SectorsPerPage = PageSize / SectorSize

// Operation codes recognised by the core. Any other value fails translation
// with UnsupportedOp.
const (
	OpRead  uint8 = 0
	OpWrite uint8 = 1
)

// Status is the response status code, mirroring the protocol's signed
// 16-bit status field.
type Status int16

const (
	StatusOkay        Status = 0
	StatusError       Status = -1
	StatusEOpNotSupp  Status = -2
)

// ProtocolVariant tags which of the three wire layouts a Blkif negotiated
// at attach time. Immutable for the life of the Blkif.
type ProtocolVariant uint8

const (
	ProtocolNative ProtocolVariant = iota
	ProtocolX86_32
	ProtocolX86_64
)

func (v ProtocolVariant) String() string {
	switch v {
	case ProtocolNative:
		return "native"
	case ProtocolX86_32:
		return "x86_32"
	case ProtocolX86_64:
		return "x86_64"
	default:
		return "unknown"
	}
}
