package fatimage

import (
	"io"

	"github.com/danlamb/fatfs/blockdev"
)

// deviceFromSeeker adapts an io.ReadWriteSeeker backing a complete disk
// image into a blockdev.Device, translating each block request into a seek
// plus a read or write.
func deviceFromSeeker(rws io.ReadWriteSeeker) blockdev.Device {
	read := func(blockNo uint32, buf []byte) error {
		if _, err := rws.Seek(int64(blockNo)*blockdev.BlockSize, io.SeekStart); err != nil {
			return err
		}
		_, err := io.ReadFull(rws, buf)
		return err
	}
	write := func(blockNo uint32, buf []byte) error {
		if _, err := rws.Seek(int64(blockNo)*blockdev.BlockSize, io.SeekStart); err != nil {
			return err
		}
		_, err := rws.Write(buf)
		return err
	}
	return blockdev.FromFunctions(read, write)
}
