package fat_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danlamb/fatfs/blockdev"
	"github.com/danlamb/fatfs/internal/blockcache"
	"github.com/danlamb/fatfs/internal/bpb"
	"github.com/danlamb/fatfs/internal/fat"
	"github.com/danlamb/fatfs/internal/fatimage"
	"github.com/danlamb/fatfs/internal/partition"
)

// buildRecord synthesizes a one-file fixture and returns its decoded
// partition record, a fresh FAT-class cache, and the backing device.
func buildRecord(t *testing.T, kind string, files []fatimage.FileSpec) (*partition.Record, *blockcache.Cache, blockdev.Device) {
	t.Helper()
	dev, err := fatimage.Build(fatimage.Options{Kind: kind, Partitioning: "none", Files: files})
	require.NoError(t, err)

	records, err := partition.Discover(dev)
	require.NoError(t, err)
	require.NoError(t, bpb.DecodeAll(dev, records))

	return &records[0], blockcache.New(4), dev
}

// firstFileCluster reads the root directory's sole non-label entry and
// returns its first cluster.
func firstFileCluster(t *testing.T, dev blockdev.Device, rec *partition.Record) fat.ClusterID {
	t.Helper()
	cursor := fat.RootDirCursor(rec)
	buf := make([]byte, blockdev.BlockSize)
	require.NoError(t, dev.ReadBlock(cursor.Block(), buf))

	for offset := 0; offset < blockdev.BlockSize; offset += 32 {
		raw := buf[offset : offset+32]
		if raw[0] == 0x00 {
			break
		}
		if raw[11] == 0x08 { // volume label
			continue
		}
		hi := uint32(raw[20]) | uint32(raw[21])<<8
		lo := uint32(raw[26]) | uint32(raw[27])<<8
		return fat.ClusterID(hi<<16 | lo)
	}
	t.Fatal("no file entry found in root directory fixture")
	return 0
}

func TestIsEndOfChain(t *testing.T) {
	require.False(t, fat.IsEndOfChain(0x0000123))
	require.True(t, fat.IsEndOfChain(fat.EOCThreshold))
	require.True(t, fat.IsEndOfChain(0x0FFFFFFF))
}

func TestNextCluster_FollowsChain(t *testing.T) {
	rec, cache, dev := buildRecord(t, "fat32", []fatimage.FileSpec{
		{Name: "BIG.BIN", Data: make([]byte, 512*3)},
	})
	first := firstFileCluster(t, dev, rec)

	second, err := fat.NextCluster(dev, cache, rec, first)
	require.NoError(t, err)
	require.Equal(t, first+1, second)

	third, err := fat.NextCluster(dev, cache, rec, second)
	require.NoError(t, err)
	require.Equal(t, first+2, third)

	last, err := fat.NextCluster(dev, cache, rec, third)
	require.NoError(t, err)
	require.True(t, fat.IsEndOfChain(last))
}

func TestNextCluster_RejectsFreeCluster(t *testing.T) {
	rec, cache, dev := buildRecord(t, "fat16", []fatimage.FileSpec{
		{Name: "A.TXT", Data: []byte("x")},
	})
	// A cluster number within range but never allocated to any file is
	// still Free in the FAT.
	_, err := fat.NextCluster(dev, cache, rec, fat.ClusterID(rec.NumClusters))
	require.Error(t, err)
}

func TestFirstBlockOfCluster(t *testing.T) {
	rec, _, _ := buildRecord(t, "fat32", []fatimage.FileSpec{{Name: "A.TXT", Data: []byte("x")}})
	b2 := fat.FirstBlockOfCluster(rec, 2)
	b3 := fat.FirstBlockOfCluster(rec, 3)
	require.Equal(t, rec.BlocksPerCluster, b3-b2)
}

func TestChainedCursor_AdvanceHitsEOF(t *testing.T) {
	rec, cache, dev := buildRecord(t, "fat32", []fatimage.FileSpec{
		{Name: "SMALL.TXT", Data: []byte("hi")},
	})
	first := firstFileCluster(t, dev, rec)

	cursor := fat.NewChainedCursor(rec, first, 0)
	err := cursor.Advance(dev, cache)
	require.True(t, errors.Is(err, io.EOF), "single-cluster file chain must hit EOF on the first advance")
	require.True(t, fat.IsEndOfChain(cursor.Cluster()), "cursor must report the EOC sentinel after Advance returns io.EOF, so callers can distinguish a genuine end-of-chain from a short read")
}

func TestLinearCursor_Advance(t *testing.T) {
	var zero blockdev.Device
	var cache *blockcache.Cache

	cursor := fat.NewLinearCursor(100, 2)
	require.Equal(t, uint32(100), cursor.Block())
	require.EqualValues(t, 2, cursor.Remaining())

	require.NoError(t, cursor.Advance(zero, cache))
	require.Equal(t, uint32(101), cursor.Block())

	err := cursor.Advance(zero, cache)
	require.True(t, errors.Is(err, io.EOF))
}
