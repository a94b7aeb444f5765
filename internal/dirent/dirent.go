// Package dirent implements 8.3 short-name canonicalization and directory
// walking: given a target name and a starting directory cursor, find the
// matching entry or the point at which the directory ran out.
//
// The walk is block-at-a-time over a Cursor (see package fat) and stops as
// soon as a match or the end of the directory is found, since path
// resolution never needs the whole listing decoded at once.
package dirent

import (
	"errors"
	"io"

	"github.com/danlamb/fatfs/blockdev"
	"github.com/danlamb/fatfs/ferrors"
	"github.com/danlamb/fatfs/internal/blockcache"
	"github.com/danlamb/fatfs/internal/bytesx"
	"github.com/danlamb/fatfs/internal/fat"
	"github.com/danlamb/fatfs/internal/partition"
)

// Size of one on-disk directory entry, in bytes.
const Size = 32

// Attribute flags, as they appear at offset 11 of a raw directory entry.
const (
	AttrReadOnly   = 0x01
	AttrHidden     = 0x02
	AttrSystem     = 0x04
	AttrVolumeID   = 0x08
	AttrDirectory  = 0x10
	AttrArchive    = 0x20
	AttrLongName   = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID
)

// Entry is a decoded directory entry: the pieces the path resolver and
// file-descriptor layer need, nothing more (no long-name reconstruction, per
// the non-goal on LFN support).
type Entry struct {
	Exists         bool
	IsDir          bool
	ReadOnly       bool
	Name           string
	Size           uint32
	FirstCluster   fat.ClusterID
	DirEntryBlock  uint32
	DirEntryOffset uint16
	WriteTime      uint16
	WriteDate      uint16
}

// isPermitted reports whether b is on the whitelist of bytes allowed verbatim
// in a canonical 8.3 name; anything else, once upper-cased, becomes '!'.
func isPermitted(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '$', '%', '-', '_', '@', '~', '`', '!', '(', ')', '{', '}', '^', '#', '&':
		return true
	}
	return false
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

// Canonicalize83 converts a single path component into its 11-byte,
// space-padded short-name form (name up to 8 characters, extension up to 3,
// no dot). It is idempotent: canonicalizing an already-canonical 11-byte
// string (re-decoded as a path component) yields the same result.
func Canonicalize83(component string) [11]byte {
	var out [11]byte
	for i := range out {
		out[i] = ' '
	}

	nameEnd := len(component)
	for i, c := range []byte(component) {
		if c == '.' || c == '/' || c == '\\' || c == 0 {
			nameEnd = i
			break
		}
	}
	name := component[:nameEnd]
	if len(name) > 8 {
		name = name[:8]
	}
	for i := 0; i < len(name); i++ {
		c := upper(name[i])
		if !isPermitted(c) {
			c = '!'
		}
		out[i] = c
	}

	if nameEnd >= len(component) || component[nameEnd] != '.' {
		return out
	}

	rest := component[nameEnd+1:]
	extEnd := len(rest)
	for i, c := range []byte(rest) {
		if c == '/' || c == '\\' || c == 0 {
			extEnd = i
			break
		}
	}
	ext := rest[:extEnd]
	if len(ext) > 3 {
		ext = ext[:3]
	}
	for i := 0; i < len(ext); i++ {
		c := upper(ext[i])
		if !isPermitted(c) {
			c = '!'
		}
		out[8+i] = c
	}

	return out
}

// SplitPath breaks a slash- or backslash-separated path into non-empty,
// non-"." components.
func SplitPath(path string) []string {
	var components []string
	start := 0
	flush := func(end int) {
		segment := path[start:end]
		if segment != "" && segment != "." {
			components = append(components, segment)
		}
		start = end + 1
	}
	for i := 0; i < len(path); i++ {
		if path[i] == '/' || path[i] == '\\' {
			flush(i)
		}
	}
	flush(len(path))
	return components
}

// decode reads one 32-byte raw entry into an Entry. ok is false for an
// entry that should be skipped (deleted) and true otherwise; done is true
// when raw[0] == 0x00, signaling the end of the directory.
//
// A long-name entry (attribute 0x0F) is decoded and compared like any other:
// its first 11 bytes hold UTF-16 name fragments, not a short name, so it can
// never match a canonicalized target, and guarding against it buys nothing.
func decode(raw []byte) (e Entry, ok bool, done bool) {
	if raw[0] == 0x00 {
		return Entry{}, false, true
	}
	if raw[0] == 0xE5 {
		return Entry{}, false, false
	}
	attr := raw[11]

	firstCluster := fat.ClusterID(uint32(bytesx.Word(raw[20:22]))<<16 | uint32(bytesx.Word(raw[26:28])))
	e = Entry{
		Exists:       true,
		IsDir:        attr&AttrDirectory != 0,
		ReadOnly:     attr&AttrReadOnly != 0,
		Name:         decodeName(raw[0:11]),
		Size:         bytesx.DWord(raw[28:32]),
		FirstCluster: firstCluster,
		WriteTime:    bytesx.Word(raw[22:24]),
		WriteDate:    bytesx.Word(raw[24:26]),
	}
	return e, true, false
}

// decodeName turns an 11-byte short-name field back into a "NAME.EXT" (or
// bare "NAME") display string, trimming the space padding.
func decodeName(raw []byte) string {
	name := trimTrailingSpaces(raw[0:8])
	ext := trimTrailingSpaces(raw[8:11])
	if ext == "" {
		return name
	}
	return name + "." + ext
}

func trimTrailingSpaces(raw []byte) string {
	end := len(raw)
	for end > 0 && raw[end-1] == ' ' {
		end--
	}
	return string(raw[:end])
}

// Lookup scans the directory starting at cursor for an entry whose 11-byte
// short name equals target, reading each block through cache's Data class.
// It returns Entry{Exists: false} and a nil error if the directory ends
// without a match. A genuine device I/O or chain-corruption failure is
// returned as an error; running off the end of the directory (io.EOF from
// the cursor) without an explicit 0x00 terminator is treated the same as
// finding one, since conforming directories are sized in whole clusters and
// a writer needn't pad the final cluster with an explicit terminator entry.
func Lookup(dev blockdev.Device, cache *blockcache.Cache, cursor fat.Cursor, target [11]byte) (Entry, error) {
	for {
		slot, err := cache.Get(dev, cursor.Block())
		if err != nil {
			return Entry{}, err
		}

		data := slot.Bytes()
		for offset := 0; offset < blockdev.BlockSize; offset += Size {
			raw := data[offset : offset+Size]
			entry, ok, done := decode(raw)
			if done {
				return Entry{Exists: false}, nil
			}
			if !ok {
				continue
			}
			if bytesx.Equal(raw[0:11], target[:]) {
				entry.DirEntryBlock = cursor.Block()
				entry.DirEntryOffset = uint16(offset)
				return entry, nil
			}
		}

		if err := cursor.Advance(dev, cache); err != nil {
			if errors.Is(err, io.EOF) {
				return Entry{Exists: false}, nil
			}
			return Entry{}, err
		}
	}
}

// List walks every entry of the directory starting at cursor and returns the
// visible ones: deleted slots, the volume-label entry, and long-name entries
// are all omitted, since none of them name a file or subdirectory a caller
// can do anything useful with.
func List(dev blockdev.Device, cache *blockcache.Cache, cursor fat.Cursor) ([]Entry, error) {
	var entries []Entry
	for {
		slot, err := cache.Get(dev, cursor.Block())
		if err != nil {
			return nil, err
		}

		data := slot.Bytes()
		for offset := 0; offset < blockdev.BlockSize; offset += Size {
			raw := data[offset : offset+Size]
			entry, ok, done := decode(raw)
			if done {
				return entries, nil
			}
			if !ok {
				continue
			}
			attr := raw[11]
			if attr == AttrLongName || attr&AttrVolumeID != 0 {
				continue
			}
			entry.DirEntryBlock = cursor.Block()
			entry.DirEntryOffset = uint16(offset)
			entries = append(entries, entry)
		}

		if err := cursor.Advance(dev, cache); err != nil {
			if errors.Is(err, io.EOF) {
				return entries, nil
			}
			return nil, err
		}
	}
}

// FindVolumeLabel scans the directory at cursor for the volume-label entry
// (attribute exactly AttrVolumeID, never the long-name combination that also
// sets that bit) and returns its 11-byte field trimmed of space padding.
func FindVolumeLabel(dev blockdev.Device, cache *blockcache.Cache, cursor fat.Cursor) (string, bool, error) {
	for {
		slot, err := cache.Get(dev, cursor.Block())
		if err != nil {
			return "", false, err
		}

		data := slot.Bytes()
		for offset := 0; offset < blockdev.BlockSize; offset += Size {
			raw := data[offset : offset+Size]
			if raw[0] == 0x00 {
				return "", false, nil
			}
			if raw[0] == 0xE5 {
				continue
			}
			if raw[11] == AttrVolumeID {
				return trimTrailingSpaces(raw[0:11]), true, nil
			}
		}

		if err := cursor.Advance(dev, cache); err != nil {
			if errors.Is(err, io.EOF) {
				return "", false, nil
			}
			return "", false, err
		}
	}
}

// Resolve walks path component by component starting at the root directory
// of rec, returning the Entry for the final component. Non-terminal
// components that resolve to a non-directory fail with
// ferrors.ErrNotADirectory; a terminal component that doesn't exist is
// reported via Entry.Exists == false with a nil error, not an error return,
// so callers (e.g. Open with O_CREAT) can distinguish "doesn't exist yet"
// from a genuine failure.
func Resolve(dev blockdev.Device, cache *blockcache.Cache, rec *partition.Record, path string) (Entry, error) {
	components := SplitPath(path)
	if len(components) == 0 {
		return Entry{Exists: true, IsDir: true, FirstCluster: rootCluster(rec)}, nil
	}

	cursor := fat.RootDirCursor(rec)
	for i, component := range components {
		target := Canonicalize83(component)
		entry, err := Lookup(dev, cache, cursor, target)
		if err != nil {
			return Entry{}, err
		}

		isTerminal := i == len(components)-1
		if !entry.Exists {
			if isTerminal {
				return entry, nil
			}
			return Entry{}, ferrors.ErrNotFound
		}

		if !isTerminal {
			if !entry.IsDir {
				return Entry{}, ferrors.ErrNotADirectory
			}
			cursor = fat.DirCursor(rec, entry.FirstCluster)
		} else {
			return entry, nil
		}
	}
	return Entry{}, ferrors.ErrNotFound
}

func rootCluster(rec *partition.Record) fat.ClusterID {
	if rec.Kind == partition.FAT32 {
		return fat.ClusterID(rec.RootDirCluster)
	}
	return 0
}
