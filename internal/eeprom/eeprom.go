package eeprom

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Region is a small byte-addressable persistent region, the shape of the
// EEPROM block the credential layout lives in. Reads of never-written bytes
// return zero.
type Region interface {
	// ReadAt copies len(p) bytes starting at off into p.
	ReadAt(p []byte, off int) error

	// WriteAt writes p starting at off and makes it durable before
	// returning.
	WriteAt(p []byte, off int) error

	// Size returns the region size in bytes.
	Size() int
}

// FileRegion persists a fixed-size region in a single file. The whole region
// is held in memory and flushed with fsync on every write, which is cheap at
// this size and keeps the content safe across power loss.
type FileRegion struct {
	mu   sync.Mutex
	path string
	buf  []byte
}

// OpenFileRegion opens (or creates) a file-backed region of the given size.
// An existing shorter file is zero-extended; a longer one is truncated to
// size on the next write.
func OpenFileRegion(path string, size int) (*FileRegion, error) {
	if size <= 0 {
		return nil, fmt.Errorf("region size must be positive, got %d", size)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	buf := make([]byte, size)
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read storage region: %w", err)
	}
	copy(buf, data)

	return &FileRegion{path: path, buf: buf}, nil
}

// ReadAt copies bytes from the in-memory image of the region.
func (r *FileRegion) ReadAt(p []byte, off int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := checkBounds(len(r.buf), len(p), off); err != nil {
		return err
	}
	copy(p, r.buf[off:off+len(p)])
	return nil
}

// WriteAt updates the region and rewrites the backing file durably.
func (r *FileRegion) WriteAt(p []byte, off int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := checkBounds(len(r.buf), len(p), off); err != nil {
		return err
	}
	copy(r.buf[off:off+len(p)], p)

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open storage region: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(r.buf); err != nil {
		return fmt.Errorf("failed to write storage region: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync storage region: %w", err)
	}
	return nil
}

// Size returns the region size in bytes.
func (r *FileRegion) Size() int {
	return len(r.buf)
}

// MemRegion is an in-memory Region for tests and the simulator rig.
type MemRegion struct {
	mu  sync.Mutex
	buf []byte
}

// NewMemRegion creates an in-memory region of the given size.
func NewMemRegion(size int) *MemRegion {
	return &MemRegion{buf: make([]byte, size)}
}

// ReadAt copies bytes from the region into p.
func (r *MemRegion) ReadAt(p []byte, off int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := checkBounds(len(r.buf), len(p), off); err != nil {
		return err
	}
	copy(p, r.buf[off:off+len(p)])
	return nil
}

// WriteAt writes p into the region at off.
func (r *MemRegion) WriteAt(p []byte, off int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := checkBounds(len(r.buf), len(p), off); err != nil {
		return err
	}
	copy(r.buf[off:off+len(p)], p)
	return nil
}

// Size returns the region size in bytes.
func (r *MemRegion) Size() int {
	return len(r.buf)
}

func checkBounds(size, n, off int) error {
	if off < 0 || n < 0 || off+n > size {
		return fmt.Errorf("access [%d,%d) out of region bounds [0,%d)", off, off+n, size)
	}
	return nil
}
