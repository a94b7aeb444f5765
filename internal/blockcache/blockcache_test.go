package blockcache_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danlamb/fatfs/blockdev"
	"github.com/danlamb/fatfs/internal/blockcache"
)

// memDevice is a minimal in-memory blockdev.Device for exercising the cache
// without needing a real disk image.
func memDevice(blocks int) (blockdev.Device, *[][blockdev.BlockSize]byte) {
	store := make([][blockdev.BlockSize]byte, blocks)
	dev := blockdev.FromFunctions(
		func(blockNo uint32, buf []byte) error {
			copy(buf, store[blockNo][:])
			return nil
		},
		func(blockNo uint32, buf []byte) error {
			copy(store[blockNo][:], buf)
			return nil
		},
	)
	return dev, &store
}

func TestCache_GetLoadsFromDevice(t *testing.T) {
	dev, store := memDevice(4)
	store[2][0] = 0x42

	c := blockcache.New(2)
	slot, err := c.Get(dev, 2)
	require.NoError(t, err)
	require.Equal(t, uint32(2), slot.BlockNo())
	require.Equal(t, byte(0x42), slot.Bytes()[0])
}

func TestCache_EvictsLRU(t *testing.T) {
	dev, store := memDevice(4)
	c := blockcache.New(2)

	_, err := c.Get(dev, 0)
	require.NoError(t, err)
	_, err = c.Get(dev, 1)
	require.NoError(t, err)
	// Touching 0 again makes 1 the least-recently-used slot.
	_, err = c.Get(dev, 0)
	require.NoError(t, err)
	_, err = c.Get(dev, 2)
	require.NoError(t, err)

	// A cached block 0 is served from the cache, so this device-side change
	// is only visible if block 0 was evicted and re-read.
	store[0][0] = 0x5A
	slot, err := c.Get(dev, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(0), slot.BlockNo(), "block 0 should not have been evicted")
	require.Equal(t, byte(0), slot.Bytes()[0], "block 0 should not have been evicted")
}

func TestCache_DirtyEvictionFlushesFirst(t *testing.T) {
	dev, store := memDevice(4)
	c := blockcache.New(1)

	slot, err := c.Get(dev, 0)
	require.NoError(t, err)
	slot.Bytes()[0] = 0xAB
	c.MarkDirty(slot)

	// Forces eviction of block 0, which must be flushed first.
	_, err = c.Get(dev, 1)
	require.NoError(t, err)

	require.Equal(t, byte(0xAB), store[0][0])
}

func TestCache_FlushAll(t *testing.T) {
	dev, store := memDevice(4)
	c := blockcache.New(2)

	slot, err := c.Get(dev, 3)
	require.NoError(t, err)
	slot.Bytes()[5] = 0x7F
	c.MarkDirty(slot)

	require.NoError(t, c.FlushAll(dev))
	require.Equal(t, byte(0x7F), store[3][5])
}

func TestCache_Invalidate(t *testing.T) {
	dev, store := memDevice(4)
	c := blockcache.New(2)

	_, err := c.Get(dev, 0)
	require.NoError(t, err)
	c.Invalidate()

	// After invalidation, a re-fetch of the same block must re-read from
	// the device rather than reuse stale present-bit state.
	store[0][0] = 0x42
	slot, err := c.Get(dev, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(0), slot.BlockNo())
	require.Equal(t, byte(0x42), slot.Bytes()[0])
}
