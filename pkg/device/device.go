// Package device provides the block-oriented storage abstraction that
// pkg/udf reads through. BlockDevice mirrors the distilled specification's
// external "disk read" collaborator, concretely implemented here against
// a regular file opened through an afero.Fs — grounded on altmount's use
// of spf13/afero as the filesystem indirection layer in front of its FUSE
// backend (internal/fuse/file.go).
package device

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// BlockDevice reads fixed-size sectors from an underlying image. All
// offsets are sector-relative; callers needing sub-sector precision
// pass a non-zero byteOffset.
type BlockDevice interface {
	ReadAt(sector uint32, byteOffset int, buf []byte) error
	SectorSize() int
}

// FileDevice is a BlockDevice backed by an afero.File. Using
// afero.NewMemMapFs() lets tests build synthetic UDF images entirely
// in memory; production code uses afero.NewOsFs().
type FileDevice struct {
	f          afero.File
	sectorSize int
}

// Open opens name through fs and wraps it as a FileDevice reading
// sectorSize-byte sectors (go-udf always mounts with sectorSize ==
// udf.SectorSize).
func Open(fs afero.Fs, name string, sectorSize int) (*FileDevice, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	f, err := fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("device: open %s: %w", name, err)
	}
	return &FileDevice{f: f, sectorSize: sectorSize}, nil
}

func (d *FileDevice) SectorSize() int { return d.sectorSize }

// ReadAt fills buf starting at the given sector plus byteOffset. A
// short read (truncated image) is reported as io.ErrUnexpectedEOF.
func (d *FileDevice) ReadAt(sector uint32, byteOffset int, buf []byte) error {
	pos := int64(sector)*int64(d.sectorSize) + int64(byteOffset)
	n, err := d.f.ReadAt(buf, pos)
	if err != nil && err != io.EOF {
		return fmt.Errorf("device: read at %d: %w", pos, err)
	}
	if n != len(buf) {
		return fmt.Errorf("device: read at %d: %w", pos, io.ErrUnexpectedEOF)
	}
	return nil
}

// Close releases the underlying file.
func (d *FileDevice) Close() error {
	return d.f.Close()
}
