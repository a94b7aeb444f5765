package fat

import (
	"io"

	"github.com/danlamb/fatfs/blockdev"
	"github.com/danlamb/fatfs/internal/blockcache"
	"github.com/danlamb/fatfs/internal/partition"
)

// Cursor walks a sequence of absolute blocks one block at a time. It has two
// implementations: ChainedCursor, which follows a FAT cluster chain (file
// data and the FAT32 root directory), and LinearCursor, which walks a
// contiguous run of blocks (the FAT16 root directory).
//
// Modeling the walk as two concrete types instead of a single iterator with
// a magic cluster_no==0 meaning "linear, not chained" keeps callers that walk
// a directory from ever special-casing a sentinel cluster number.
type Cursor interface {
	// Block returns the current absolute block number.
	Block() uint32
	// Advance moves to the next block in the sequence. It returns io.EOF if
	// it walks past the last block of a FAT16 root directory or past the
	// End-of-Chain marker of a cluster chain; any other error is a genuine
	// device failure or chain corruption.
	Advance(dev blockdev.Device, cache *blockcache.Cache) error
}

// ChainedCursor walks the blocks of a FAT cluster chain, cluster by cluster
// and block by block within each cluster.
type ChainedCursor struct {
	rec             *partition.Record
	cluster         ClusterID
	blockInCluster  uint32
	clusterStartBlk uint32
}

// NewChainedCursor creates a cursor positioned at byteOffset, where
// firstCluster is the cluster that contains byteOffset (the chain's first
// cluster when byteOffset is within the first cluster). Only byteOffset's
// position within that cluster is used; the chain is not walked.
func NewChainedCursor(rec *partition.Record, firstCluster ClusterID, byteOffset int64) *ChainedCursor {
	clusterBytes := int64(rec.BlocksPerCluster) * blockdev.BlockSize
	blockInCluster := uint32((byteOffset % clusterBytes) / blockdev.BlockSize)
	return &ChainedCursor{
		rec:             rec,
		cluster:         firstCluster,
		blockInCluster:  blockInCluster,
		clusterStartBlk: FirstBlockOfCluster(rec, firstCluster),
	}
}

func (c *ChainedCursor) Block() uint32 {
	return c.clusterStartBlk + c.blockInCluster
}

// Cluster returns the cluster the cursor currently points into.
func (c *ChainedCursor) Cluster() ClusterID {
	return c.cluster
}

func (c *ChainedCursor) Advance(dev blockdev.Device, cache *blockcache.Cache) error {
	c.blockInCluster++
	if c.blockInCluster < c.rec.BlocksPerCluster {
		return nil
	}

	next, err := NextCluster(dev, cache, c.rec, c.cluster)
	if err != nil {
		return err
	}
	if IsEndOfChain(next) {
		c.cluster = next
		return io.EOF
	}

	c.cluster = next
	c.blockInCluster = 0
	c.clusterStartBlk = FirstBlockOfCluster(c.rec, next)
	return nil
}

// LinearCursor walks a bounded run of contiguous blocks: the FAT16 root
// directory, which predates cluster-based allocation and instead occupies a
// fixed run of blocks right before the data region.
type LinearCursor struct {
	startBlock uint32
	offset     uint32
	count      uint32
}

// NewLinearCursor creates a cursor over count blocks starting at startBlock.
func NewLinearCursor(startBlock, count uint32) *LinearCursor {
	return &LinearCursor{startBlock: startBlock, count: count}
}

func (c *LinearCursor) Block() uint32 {
	return c.startBlock + c.offset
}

func (c *LinearCursor) Advance(dev blockdev.Device, cache *blockcache.Cache) error {
	c.offset++
	if c.offset >= c.count {
		return io.EOF
	}
	return nil
}

// Remaining reports how many blocks, including the current one, are left to
// read before the linear cursor runs out.
func (c *LinearCursor) Remaining() uint32 {
	return c.count - c.offset
}
