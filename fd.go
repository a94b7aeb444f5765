package fatfs

import (
	"errors"
	"io"
	"time"

	"github.com/danlamb/fatfs/blockdev"
	"github.com/danlamb/fatfs/ferrors"
	"github.com/danlamb/fatfs/internal/blockcache"
	"github.com/danlamb/fatfs/internal/dirent"
	"github.com/danlamb/fatfs/internal/fat"
	"github.com/danlamb/fatfs/internal/partition"
)

// fileDescriptor is one entry of FS.files. It lives from Open to Close.
type fileDescriptor struct {
	open      bool
	oflag     OpenFlag
	partIndex int

	offset         int64
	currentCluster fat.ClusterID

	size         uint32
	firstCluster fat.ClusterID
	isDir        bool
	readOnlyAttr bool
	writeTime    uint16
	writeDate    uint16
}

// Open resolves path against the currently active partition and returns a
// file descriptor index, allocating the lowest-numbered free slot. oflag
// must set at least one of RDONLY/WRONLY.
func (fs *FS) Open(path string, oflag OpenFlag) (int, error) {
	if !oflag.canRead() && !oflag.canWrite() {
		return -1, ferrors.ErrInvalidArgument.WithMessage("oflag must set RDONLY or WRONLY")
	}

	fdIndex := -1
	for i := range fs.files {
		if !fs.files[i].open {
			fdIndex = i
			break
		}
	}
	if fdIndex < 0 {
		return -1, ferrors.ErrTooManyOpenFiles
	}

	rec := fs.activeRecord()
	entry, err := dirent.Resolve(fs.dev, fs.caches[classData], rec, path)
	if err != nil {
		return -1, err
	}
	if !entry.Exists {
		if oflag&CREAT != 0 {
			return -1, ferrors.ErrNotImplemented.WithMessage("file creation is not implemented")
		}
		return -1, ferrors.ErrNotFound
	}
	if entry.IsDir {
		return -1, ferrors.ErrIsADirectory
	}
	if oflag.canWrite() && (fs.readOnly || entry.ReadOnly) {
		return -1, ferrors.ErrPermissionDenied
	}

	fs.files[fdIndex] = fileDescriptor{
		open:           true,
		oflag:          oflag,
		partIndex:      fs.active,
		offset:         0,
		currentCluster: entry.FirstCluster,
		size:           entry.Size,
		firstCluster:   entry.FirstCluster,
		isDir:          entry.IsDir,
		readOnlyAttr:   entry.ReadOnly,
		writeTime:      entry.WriteTime,
		writeDate:      entry.WriteDate,
	}
	return fdIndex, nil
}

func (fs *FS) lookupFD(fd int) (*fileDescriptor, error) {
	if fd < 0 || fd >= len(fs.files) || !fs.files[fd].open {
		return nil, ferrors.ErrInvalidFileDescriptor
	}
	return &fs.files[fd], nil
}

// Close releases fd. If it was opened for write, dirty cache blocks are
// flushed first.
func (fs *FS) Close(fd int) error {
	f, err := fs.lookupFD(fd)
	if err != nil {
		return err
	}
	if f.oflag.canWrite() {
		if err := fs.Sync(); err != nil {
			return err
		}
	}
	*f = fileDescriptor{}
	return nil
}

func clusterBytes(rec *partition.Record) int64 {
	return int64(rec.BlocksPerCluster) * blockdev.BlockSize
}

// Read fills buf with up to len(buf) bytes starting at fd's current offset,
// clamped to size-offset, and advances the offset by the number of bytes
// read. It operates in three phases: an unaligned head read through the
// cache, an aligned bulk body read that bypasses the cache and writes
// directly into buf, and an unaligned tail read through the cache. Bypassed
// body blocks are never inserted into the cache, so a long sequential read
// can't evict blocks another open file still needs.
func (fs *FS) Read(fd int, buf []byte) (int, error) {
	f, err := fs.lookupFD(fd)
	if err != nil {
		return 0, err
	}
	if !f.oflag.canRead() {
		return 0, ferrors.ErrPermissionDenied
	}
	if len(buf) == 0 {
		return 0, nil
	}

	remaining := int64(f.size) - f.offset
	if remaining < 0 {
		remaining = 0
	}
	n := int64(len(buf))
	if n > remaining {
		n = remaining
	}
	if n <= 0 {
		return 0, nil
	}

	rec := &fs.records[f.partIndex]
	cache := fs.caches[classData]
	cursor := fat.NewChainedCursor(rec, f.currentCluster, f.offset)

	var produced int64
	offset := f.offset

	for produced < n {
		toGo := n - produced
		byteInBlock := offset % blockdev.BlockSize

		if fat.IsEndOfChain(cursor.Cluster()) {
			return int(produced), ferrors.ErrFileSystemCorrupted.WithMessage(
				"cluster chain ended before the claimed file size was reached")
		}

		switch {
		case byteInBlock != 0:
			slot, err := cache.Get(fs.dev, cursor.Block())
			if err != nil {
				return int(produced), err
			}
			tail := int64(blockdev.BlockSize) - byteInBlock
			chunk := tail
			if chunk > toGo {
				chunk = toGo
			}
			copy(buf[produced:produced+chunk], slot.Bytes()[byteInBlock:byteInBlock+chunk])
			produced += chunk
			offset += chunk
			if chunk == tail {
				if err := advanceChained(fs.dev, fs.caches[classFAT], cursor); err != nil {
					return int(produced), err
				}
			}

		case toGo >= blockdev.BlockSize:
			if err := fs.dev.ReadBlock(cursor.Block(), buf[produced:produced+blockdev.BlockSize]); err != nil {
				return int(produced), err
			}
			produced += blockdev.BlockSize
			offset += blockdev.BlockSize
			if err := advanceChained(fs.dev, fs.caches[classFAT], cursor); err != nil {
				return int(produced), err
			}

		default:
			slot, err := cache.Get(fs.dev, cursor.Block())
			if err != nil {
				return int(produced), err
			}
			copy(buf[produced:produced+toGo], slot.Bytes()[:toGo])
			produced += toGo
			offset += toGo
		}
	}

	f.offset = offset
	f.currentCluster = cursor.Cluster()
	return int(produced), nil
}

// advanceChained advances cursor by one block, treating a natural
// end-of-chain as expected: the final advance past the last data block of a
// file is allowed to hit EOC, since the caller only ever asks for up to
// f.size bytes and will not attempt to read past it.
func advanceChained(dev blockdev.Device, cache *blockcache.Cache, cursor *fat.ChainedCursor) error {
	err := cursor.Advance(dev, cache)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Lseek repositions fd's offset and, if necessary, walks the cluster chain
// so that currentCluster again contains the cluster covering the new offset.
func (fs *FS) Lseek(fd int, off int64, whence int) (int64, error) {
	f, err := fs.lookupFD(fd)
	if err != nil {
		return -1, err
	}

	var target int64
	switch whence {
	case SeekSet:
		target = off
	case SeekCur:
		target = f.offset + off
	case SeekEnd:
		target = int64(f.size) + off
	default:
		return -1, ferrors.ErrInvalidArgument.WithMessage("invalid whence")
	}
	if target < 0 || target > int64(f.size) {
		return -1, ferrors.ErrInvalidArgument.WithMessage("seek target out of range")
	}

	rec := &fs.records[f.partIndex]
	cb := clusterBytes(rec)
	targetClusterIndex := target / cb
	currentClusterIndex := f.offset / cb

	switch {
	case targetClusterIndex == currentClusterIndex:
		// Still within the cluster currentCluster already points at.
	case targetClusterIndex > currentClusterIndex:
		steps := targetClusterIndex - currentClusterIndex
		cluster := f.currentCluster
		for i := int64(0); i < steps; i++ {
			next, err := fat.NextCluster(fs.dev, fs.caches[classFAT], rec, cluster)
			if err != nil {
				return -1, err
			}
			cluster = next
		}
		f.currentCluster = cluster
	default:
		cluster := f.firstCluster
		for i := int64(0); i < targetClusterIndex; i++ {
			next, err := fat.NextCluster(fs.dev, fs.caches[classFAT], rec, cluster)
			if err != nil {
				return -1, err
			}
			cluster = next
		}
		f.currentCluster = cluster
	}

	f.offset = target
	return target, nil
}

// Write is not yet implemented; the write path is reserved for a future
// release.
func (fs *FS) Write(fd int, buf []byte) (int, error) {
	if _, err := fs.lookupFD(fd); err != nil {
		return 0, err
	}
	if fs.readOnly {
		return 0, ferrors.ErrReadOnlyFileSystem
	}
	return 0, ferrors.ErrNotImplemented
}

// FileStat is the subset of POSIX struct stat this library reports.
type FileStat struct {
	Size    int64
	Mode    uint32
	ModTime time.Time
	IsDir   bool
}

func modeFor(isDir, readOnly bool) uint32 {
	mode := uint32(ModeFile)
	if isDir {
		mode = ModeDir
	}
	mode |= modeRXAll
	if !readOnly {
		mode |= modeWAll
	}
	return mode
}

// decodeTimestamp converts a packed FAT date/time pair into a time.Time:
// date is year(7) month(4) day(5), time is hour(5) minute(6) second/2(5).
func decodeTimestamp(date, wtime uint16) time.Time {
	year := 1980 + int(date>>9)
	month := time.Month((date >> 5) & 0xF)
	day := int(date & 0x1F)
	hour := int(wtime >> 11)
	minute := int((wtime >> 5) & 0x3F)
	second := int(wtime&0x1F) * 2
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}
	}
	return time.Date(year, month, day, hour, minute, second, 0, time.UTC)
}

// Stat resolves path and reports its size, mode, and modification time
// without opening a file descriptor.
func (fs *FS) Stat(path string) (FileStat, error) {
	rec := fs.activeRecord()
	entry, err := dirent.Resolve(fs.dev, fs.caches[classData], rec, path)
	if err != nil {
		return FileStat{}, err
	}
	if !entry.Exists {
		return FileStat{}, ferrors.ErrNotFound
	}
	return FileStat{
		Size:    int64(entry.Size),
		Mode:    modeFor(entry.IsDir, entry.ReadOnly),
		ModTime: decodeTimestamp(entry.WriteDate, entry.WriteTime),
		IsDir:   entry.IsDir,
	}, nil
}

// Fstat reports the same information as Stat for an already-open fd.
func (fs *FS) Fstat(fd int) (FileStat, error) {
	f, err := fs.lookupFD(fd)
	if err != nil {
		return FileStat{}, err
	}
	return FileStat{
		Size:    int64(f.size),
		Mode:    modeFor(f.isDir, f.readOnlyAttr),
		ModTime: decodeTimestamp(f.writeDate, f.writeTime),
		IsDir:   f.isDir,
	}, nil
}
