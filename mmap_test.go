package blkback

import (
	"os"
	"testing"
)

func TestMmapRegionRoundTrip(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "ring")
	if err != nil {
		t.Fatalf("CreateTemp failed: %v", err)
	}
	defer f.Close()

	const size = 4096
	if err := f.Truncate(size); err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}

	region, err := MmapRegion(int(f.Fd()), 0, size)
	if err != nil {
		t.Fatalf("MmapRegion failed: %v", err)
	}
	if len(region) != size {
		t.Fatalf("region len = %d, want %d", len(region), size)
	}

	region[0] = 0x42
	if err := MunmapRegion(region); err != nil {
		t.Fatalf("MunmapRegion failed: %v", err)
	}

	buf := make([]byte, 1)
	if _, err := f.ReadAt(buf, 0); err != nil {
		t.Fatalf("ReadAt failed: %v", err)
	}
	if buf[0] != 0x42 {
		t.Fatalf("file content after unmap = %x, want 0x42", buf[0])
	}
}
