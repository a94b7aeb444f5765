package fatfs

import (
	"time"

	"github.com/danlamb/fatfs/ferrors"
	"github.com/danlamb/fatfs/internal/dirent"
	"github.com/danlamb/fatfs/internal/fat"
)

// DirEntry is one decoded entry of a directory listing, as returned by
// ReadDir. Long-file-name and volume-label entries are never surfaced here.
type DirEntry struct {
	Name    string
	Size    int64
	IsDir   bool
	Mode    uint32
	ModTime time.Time
}

// ReadDir resolves path to a directory and returns its visible entries. It
// is the one directory-iteration convenience this library offers; there is
// no opendir/readdir cursor protocol, since callers resolving paths never
// need more than a single pass over one directory's contents.
func (fs *FS) ReadDir(path string) ([]DirEntry, error) {
	rec := fs.activeRecord()
	cache := fs.caches[classData]

	entry, err := dirent.Resolve(fs.dev, cache, rec, path)
	if err != nil {
		return nil, err
	}
	if !entry.Exists {
		return nil, ferrors.ErrNotFound
	}
	if !entry.IsDir {
		return nil, ferrors.ErrNotADirectory
	}

	var cursor fat.Cursor
	if len(dirent.SplitPath(path)) == 0 {
		cursor = fat.RootDirCursor(rec)
	} else {
		cursor = fat.DirCursor(rec, entry.FirstCluster)
	}

	raw, err := dirent.List(fs.dev, cache, cursor)
	if err != nil {
		return nil, err
	}

	out := make([]DirEntry, len(raw))
	for i, e := range raw {
		out[i] = DirEntry{
			Name:    e.Name,
			Size:    int64(e.Size),
			IsDir:   e.IsDir,
			Mode:    modeFor(e.IsDir, e.ReadOnly),
			ModTime: decodeTimestamp(e.WriteDate, e.WriteTime),
		}
	}
	return out, nil
}
