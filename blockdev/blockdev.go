// Package blockdev abstracts the random-access block device that a FAT
// volume is stored on. Every block is exactly BlockSize bytes; callers supply
// the read/write callbacks and fatfs never learns anything about the
// underlying medium (SD card, disk image file, flash partition).
package blockdev

import (
	"io"

	"github.com/danlamb/fatfs/ferrors"
)

// BlockSize is the only sector size this library supports, per the BPB
// decoder's validation rule.
const BlockSize = 512

// ReadFunc fetches one block's worth of data into buf, which is always
// exactly BlockSize bytes long.
type ReadFunc func(blockNo uint32, buf []byte) error

// WriteFunc writes one block's worth of data from buf, which is always
// exactly BlockSize bytes long.
type WriteFunc func(blockNo uint32, buf []byte) error

// Device is the adapter the rest of fatfs reads and writes through. It is a
// pure forwarder to the caller-supplied callbacks: errors are propagated
// upward and converted to ferrors.ErrIOFailed at the boundary.
type Device struct {
	read  ReadFunc
	write WriteFunc
}

// FromFunctions builds a Device directly from read/write callbacks: the Go
// form of the read(buf, block_no, user) / write(buf, block_no, user)
// callbacks of C-style block device APIs, with any user context captured by
// the closures.
func FromFunctions(read ReadFunc, write WriteFunc) Device {
	return Device{read: read, write: write}
}

// FromReaderAt builds a read-only Device over an io.ReaderAt, e.g. an
// *os.File opened on a disk image, or an io.SectionReader already positioned
// at a partition's start.
func FromReaderAt(r io.ReaderAt) Device {
	return Device{
		read: func(blockNo uint32, buf []byte) error {
			_, err := r.ReadAt(buf, int64(blockNo)*BlockSize)
			return err
		},
	}
}

// FromReadWriterAt builds a read/write Device over an io.ReaderAt +
// io.WriterAt pair, such as the in-memory image backing used by tests.
func FromReadWriterAt(r io.ReaderAt, w io.WriterAt) Device {
	return Device{
		read: func(blockNo uint32, buf []byte) error {
			_, err := r.ReadAt(buf, int64(blockNo)*BlockSize)
			return err
		},
		write: func(blockNo uint32, buf []byte) error {
			_, err := w.WriteAt(buf, int64(blockNo)*BlockSize)
			return err
		},
	}
}

// ReadBlock fetches block blockNo into buf. buf must be exactly BlockSize
// bytes long.
func (d Device) ReadBlock(blockNo uint32, buf []byte) error {
	if len(buf) != BlockSize {
		return ferrors.ErrInvalidArgument.WithMessage("buffer must be exactly one block")
	}
	if err := d.read(blockNo, buf); err != nil {
		return ferrors.ErrIOFailed.WrapError(err)
	}
	return nil
}

// WriteBlock writes buf to block blockNo. buf must be exactly BlockSize bytes
// long.
func (d Device) WriteBlock(blockNo uint32, buf []byte) error {
	if len(buf) != BlockSize {
		return ferrors.ErrInvalidArgument.WithMessage("buffer must be exactly one block")
	}
	if d.write == nil {
		return ferrors.ErrReadOnlyFileSystem
	}
	if err := d.write(blockNo, buf); err != nil {
		return ferrors.ErrIOFailed.WrapError(err)
	}
	return nil
}

// ReadOnly reports whether the device has no write callback configured.
func (d Device) ReadOnly() bool {
	return d.write == nil
}
