package translate

import "errors"

// ErrUnsupportedOp is returned when the wire request's operation code is
// not READ or WRITE.
var ErrUnsupportedOp = errors.New("translate: unsupported operation")

// ErrInvalidSegmentCount is returned when nr_segments is outside
// [1, MaxSegments].
var ErrInvalidSegmentCount = errors.New("translate: invalid segment count")

// ErrInvalidSectorRange is returned when a segment's sector range is not
// first_sect <= last_sect <= 7.
var ErrInvalidSectorRange = errors.New("translate: invalid sector range")
