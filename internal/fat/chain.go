// Package fat implements the FAT chain walker (following a singly-linked
// cluster chain) and the cluster position cursors that translate a
// (cluster, byte-offset) pair into a sequence of absolute blocks.
//
// Cluster arithmetic is polymorphic over FAT16 and FAT32: FAT16's 16-bit
// End-of-Chain codes are normalized into the FAT32 numeric range as they're
// read, so the rest of the package never needs a second, version-specific
// chain walker.
package fat

import (
	"github.com/danlamb/fatfs/blockdev"
	"github.com/danlamb/fatfs/ferrors"
	"github.com/danlamb/fatfs/internal/blockcache"
	"github.com/danlamb/fatfs/internal/bytesx"
	"github.com/danlamb/fatfs/internal/partition"
)

// ClusterID is a cluster number. Cluster numbering starts at 2; 0 and 1 are
// reserved and never valid data clusters.
type ClusterID uint32

const (
	// FreeCluster is the FAT entry value marking a cluster as unallocated.
	FreeCluster ClusterID = 0x00000000
	// BadCluster is the FAT entry value marking a cluster as defective.
	BadCluster ClusterID = 0x0FFFFFF7
	// EOCThreshold is the lowest value considered End-of-Chain once FAT16
	// codes have been normalized into the FAT32 numeric range.
	EOCThreshold ClusterID = 0x0FFFFFF8
)

// IsEndOfChain reports whether c is an End-of-Chain marker.
func IsEndOfChain(c ClusterID) bool {
	return c >= EOCThreshold
}

// RawEntry reads the FAT entry for cluster without judging whether the
// value is a legal chain continuation, so callers that need to inspect
// entries directly -- a free-cluster scan, a consistency checker -- can see
// Free and Bad values instead of having them rejected.
func RawEntry(dev blockdev.Device, cache *blockcache.Cache, rec *partition.Record, cluster ClusterID) (ClusterID, error) {
	entrySize := uint32(2)
	if rec.Kind == partition.FAT32 {
		entrySize = 4
	}

	byteOffset := entrySize * uint32(cluster)
	blockNo := rec.FirstBlock + rec.NumReservedBlocks + byteOffset/blockdev.BlockSize
	byteInBlock := byteOffset % blockdev.BlockSize

	slot, err := cache.Get(dev, blockNo)
	if err != nil {
		return 0, err
	}

	if rec.Kind == partition.FAT32 {
		return ClusterID(bytesx.DWord(slot.Bytes()[byteInBlock:byteInBlock+4]) & 0x0FFFFFFF), nil
	}
	word := ClusterID(bytesx.Word(slot.Bytes()[byteInBlock : byteInBlock+2]))
	if word >= 0xFFF7 {
		word |= 0x0FFF0000
	}
	return word, nil
}

// NextCluster returns the cluster that follows cluster in the chain, reading
// the FAT through cache. FS.Read and FS.Lseek pass the FAT-class cache, so a
// long data read never evicts the metadata needed to keep following it; the
// directory walks in package dirent advance through the one cache they are
// given, which fatfs passes as the data cache.
//
// It fails if the raw FAT entry is Free or Bad; that is chain corruption, not
// a value the caller should ever try to use as a data cluster. An
// End-of-Chain value is returned successfully -- the caller decides whether
// that is expected (end of file) or an error (short read against a claimed
// file size).
func NextCluster(dev blockdev.Device, cache *blockcache.Cache, rec *partition.Record, cluster ClusterID) (ClusterID, error) {
	raw, err := RawEntry(dev, cache, rec, cluster)
	if err != nil {
		return 0, err
	}
	if raw == FreeCluster || raw == BadCluster {
		return 0, ferrors.ErrFileSystemCorrupted.WithMessage("cluster chain references a free or bad cluster")
	}
	return raw, nil
}

// SetNextCluster writes value as the FAT entry following cluster, marking
// the backing block dirty. Reserved for the write path.
func SetNextCluster(dev blockdev.Device, cache *blockcache.Cache, rec *partition.Record, cluster ClusterID, value ClusterID) error {
	entrySize := uint32(2)
	if rec.Kind == partition.FAT32 {
		entrySize = 4
	}

	byteOffset := entrySize * uint32(cluster)
	blockNo := rec.FirstBlock + rec.NumReservedBlocks + byteOffset/blockdev.BlockSize
	byteInBlock := byteOffset % blockdev.BlockSize

	slot, err := cache.Get(dev, blockNo)
	if err != nil {
		return err
	}

	if rec.Kind == partition.FAT32 {
		existing := bytesx.DWord(slot.Bytes()[byteInBlock : byteInBlock+4])
		merged := (existing & 0xF0000000) | (uint32(value) & 0x0FFFFFFF)
		bytesx.PutDWord(slot.Bytes()[byteInBlock:byteInBlock+4], merged)
	} else {
		bytesx.PutWord(slot.Bytes()[byteInBlock:byteInBlock+2], uint16(value))
	}
	cache.MarkDirty(slot)
	return nil
}

// FirstBlockOfCluster returns the absolute block number of the first block
// of the given data cluster.
func FirstBlockOfCluster(rec *partition.Record, cluster ClusterID) uint32 {
	return rec.FirstDataBlock + (uint32(cluster)-2)*rec.BlocksPerCluster
}
