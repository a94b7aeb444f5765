package fat

import "github.com/danlamb/fatfs/internal/partition"

// RootDirCursor returns a Cursor positioned at the start of rec's root
// directory: a ChainedCursor at RootDirCluster for FAT32, or a LinearCursor
// bounded to the fixed root-directory block run for FAT16.
func RootDirCursor(rec *partition.Record) Cursor {
	if rec.Kind == partition.FAT32 {
		return NewChainedCursor(rec, ClusterID(rec.RootDirCluster), 0)
	}
	blocksInRootDir := rec.FirstDataBlock - rec.RootDirBlock
	return NewLinearCursor(rec.RootDirBlock, blocksInRootDir)
}

// DirCursor returns a Cursor positioned at the start of the directory whose
// first cluster is firstCluster. Subdirectories are always cluster chains,
// even on FAT16, since only the root directory uses the legacy fixed-size
// layout.
func DirCursor(rec *partition.Record, firstCluster ClusterID) Cursor {
	return NewChainedCursor(rec, firstCluster, 0)
}
