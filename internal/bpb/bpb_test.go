package bpb_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danlamb/fatfs/internal/bpb"
	"github.com/danlamb/fatfs/internal/fatimage"
	"github.com/danlamb/fatfs/internal/partition"
)

func TestDecode_FAT16(t *testing.T) {
	dev, err := fatimage.Build(fatimage.Options{Kind: "fat16", Partitioning: "none"})
	require.NoError(t, err)

	records, err := partition.Discover(dev)
	require.NoError(t, err)
	require.NoError(t, bpb.DecodeAll(dev, records))

	require.Equal(t, partition.FAT16, records[0].Kind)
	require.EqualValues(t, 4085, records[0].NumClusters)
	require.EqualValues(t, 1, records[0].BlocksPerCluster)
}

func TestDecode_FAT32(t *testing.T) {
	dev, err := fatimage.Build(fatimage.Options{Kind: "fat32", Partitioning: "none"})
	require.NoError(t, err)

	records, err := partition.Discover(dev)
	require.NoError(t, err)
	require.NoError(t, bpb.DecodeAll(dev, records))

	require.Equal(t, partition.FAT32, records[0].Kind)
	require.EqualValues(t, 65525, records[0].NumClusters)
	require.EqualValues(t, 2, records[0].RootDirCluster)
}

func TestSelectActive_PrefersBoot(t *testing.T) {
	records := []partition.Record{
		{Kind: partition.FAT16, Boot: false},
		{Kind: partition.FAT16, Boot: true},
		{Kind: partition.FAT32, Boot: false},
	}
	idx, err := bpb.SelectActive(records, -1)
	require.NoError(t, err)
	require.Equal(t, 1, idx)
}

func TestSelectActive_NoFATPartition(t *testing.T) {
	records := []partition.Record{{Kind: partition.Unknown}}
	_, err := bpb.SelectActive(records, -1)
	require.Error(t, err)
}

func TestSelectActive_ExplicitIndex(t *testing.T) {
	records := []partition.Record{
		{Kind: partition.Unknown},
		{Kind: partition.FAT32},
	}
	idx, err := bpb.SelectActive(records, 1)
	require.NoError(t, err)
	require.Equal(t, 1, idx)

	_, err = bpb.SelectActive(records, 0)
	require.Error(t, err)
}
