package wire

import "errors"

// ErrUnsupportedProtocol is returned when a ProtocolVariant tag is not one
// of the three known layouts.
var ErrUnsupportedProtocol = errors.New("wire: unsupported protocol variant")

// ErrShortBuffer is returned when a decode target has fewer bytes than the
// variant's encoded size requires.
var ErrShortBuffer = errors.New("wire: buffer shorter than encoded layout")
