package constants

// Default configuration constants for attaching a Blkif.
const (
	// DefaultRingSize is the default number of request/response slots a
	// ring holds when AttachParams.RingSize is left at zero.
	DefaultRingSize = 32
)
