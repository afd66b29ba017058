package symcc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// CoverageMap filters branches whose negation has already been attempted.
type CoverageMap interface {
	// Visit records key and returns true if it had not been seen before.
	Visit(key uint64) (bool, error)
	Close() error
}

// BitmapSize is the size of an AFL-style coverage bitmap.
const BitmapSize = 1 << 16

// BitmapCoverage is a fixed-size hashed coverage bitmap. Collisions make some
// new keys look visited, which only skips solver queries.
type BitmapCoverage struct {
	path   string
	bitmap []byte
	dirty  bool
}

// NewBitmapCoverage returns an in-memory bitmap.
func NewBitmapCoverage() *BitmapCoverage {
	return &BitmapCoverage{bitmap: make([]byte, BitmapSize)}
}

// OpenBitmapCoverage returns a bitmap backed by the file at path. The file is
// read if it exists and written back on Close.
func OpenBitmapCoverage(path string) (*BitmapCoverage, error) {
	c := NewBitmapCoverage()
	c.path = path

	buf, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	} else if err != nil {
		return nil, fmt.Errorf("read coverage map: %w", err)
	} else if len(buf) != BitmapSize {
		return nil, fmt.Errorf("coverage map %s: unexpected size %d", path, len(buf))
	}
	copy(c.bitmap, buf)
	return c, nil
}

// Visit marks the bucket of key.
func (c *BitmapCoverage) Visit(key uint64) (bool, error) {
	i := key & (BitmapSize - 1)
	if c.bitmap[i] != 0 {
		return false, nil
	}
	c.bitmap[i] = 1
	c.dirty = true
	return true, nil
}

// Flush writes the bitmap to its file, if any.
func (c *BitmapCoverage) Flush() error {
	if c.path == "" || !c.dirty {
		return nil
	}
	if err := os.WriteFile(c.path, c.bitmap, 0666); err != nil {
		return fmt.Errorf("write coverage map: %w", err)
	}
	c.dirty = false
	return nil
}

// Close flushes the bitmap.
func (c *BitmapCoverage) Close() error {
	return c.Flush()
}
