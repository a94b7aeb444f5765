package partition_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danlamb/fatfs/internal/fatimage"
	"github.com/danlamb/fatfs/internal/partition"
)

func TestDiscover_TableLess(t *testing.T) {
	dev, err := fatimage.Build(fatimage.Options{Kind: "fat16", Partitioning: "none"})
	require.NoError(t, err)

	records, err := partition.Discover(dev)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, partition.Undecided, records[0].Kind)
	require.Equal(t, uint32(0), records[0].FirstBlock)
}

func TestDiscover_MBR(t *testing.T) {
	dev, err := fatimage.Build(fatimage.Options{Kind: "fat16", Partitioning: "mbr", Boot: true})
	require.NoError(t, err)

	records, err := partition.Discover(dev)
	require.NoError(t, err)
	require.Len(t, records, 4)
	require.Equal(t, partition.Undecided, records[0].Kind)
	require.Equal(t, uint32(1), records[0].FirstBlock)
	require.True(t, records[0].Boot)
	for i := 1; i < 4; i++ {
		require.Equal(t, partition.Unknown, records[i].Kind)
	}
}

func TestDiscover_GPT(t *testing.T) {
	dev, err := fatimage.Build(fatimage.Options{Kind: "fat32", Partitioning: "gpt", Boot: true})
	require.NoError(t, err)

	records, err := partition.Discover(dev)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, partition.Undecided, records[0].Kind)
	require.Equal(t, uint32(34), records[0].FirstBlock)
	require.True(t, records[0].Boot)
}
