package blkback

import "golang.org/x/sys/unix"

// MmapRegion maps size bytes of fd at offset into process memory, for a
// caller that has already obtained a descriptor onto shared ring memory
// (e.g. from a gntdev/privcmd-style device) and wants to hand the result to
// AttachParams.RingBacking. Grounded on the teacher's own mmapQueues use of
// golang.org/x/sys/unix for its char-device-backed ring memory, applied here
// to a Xen shared ring region instead of a ublk queue region.
func MmapRegion(fd int, offset int64, size int) ([]byte, error) {
	return unix.Mmap(fd, offset, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

// MunmapRegion releases memory obtained from MmapRegion.
func MunmapRegion(b []byte) error {
	return unix.Munmap(b)
}
