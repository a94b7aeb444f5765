// Package blockcache implements the small, N-way, LRU-replaced write-back
// block cache fatfs keeps between the FAT chain walker and the block device:
// one cache for FAT metadata blocks, one for file/directory data blocks, kept
// as two independent instances so a long file read never evicts the FAT
// entries needed to keep following its chain. Directory walks (package
// dirent) read their FAT blocks through the data cache.
//
// It is a small fixed-size associative set keyed by absolute block number,
// with present/dirty tracked via bitmaps rather than a per-slot bool pair.
package blockcache

import (
	"github.com/boljen/go-bitmap"

	"github.com/danlamb/fatfs/blockdev"
	"github.com/danlamb/fatfs/ferrors"
)

// State describes whether a slot's buffer reflects real device content, and
// if so whether that content has been modified since it was loaded.
type State int

const (
	// Invalid means the slot's buffer does not correspond to any block.
	Invalid State = iota
	// Valid means the slot holds an unmodified copy of its block's content.
	Valid
	// Dirty means the slot's buffer is the only authoritative copy of its
	// block's content; the device copy is stale until flushed.
	Dirty
)

// Slot is one cached block. Buf is always exactly blockdev.BlockSize bytes.
type Slot struct {
	state   State
	blockNo uint32
	buf     [blockdev.BlockSize]byte
}

// Bytes returns the slot's backing buffer for in-place reads and writes.
// Callers that mutate it must call Cache.MarkDirty afterward.
func (s *Slot) Bytes() []byte {
	return s.buf[:]
}

// BlockNo returns the absolute block number this slot currently holds.
func (s *Slot) BlockNo() uint32 {
	return s.blockNo
}

// Cache is a fixed-capacity, fully-associative set of cached blocks with
// strict LRU replacement. It is safe to use only under the same single-
// threaded discipline the rest of fatfs assumes.
type Cache struct {
	slots   []Slot
	mru     []int // front = most recently used, back = least recently used
	present bitmap.Bitmap
	dirty   bitmap.Bitmap
}

// New creates a cache with room for exactly size blocks.
func New(size int) *Cache {
	if size <= 0 {
		size = 1
	}
	mru := make([]int, size)
	for i := range mru {
		mru[i] = i
	}
	return &Cache{
		slots:   make([]Slot, size),
		mru:     mru,
		present: bitmap.NewSlice(size),
		dirty:   bitmap.NewSlice(size),
	}
}

// Size returns the number of slots in the cache.
func (c *Cache) Size() int {
	return len(c.slots)
}

// touch moves slotIndex to the front of the MRU list, shifting every entry
// ahead of its previous position back by one.
func (c *Cache) touch(slotIndex int) {
	pos := -1
	for i, idx := range c.mru {
		if idx == slotIndex {
			pos = i
			break
		}
	}
	if pos <= 0 {
		return
	}
	copy(c.mru[1:pos+1], c.mru[0:pos])
	c.mru[0] = slotIndex
}

// find returns the slot index currently holding blockNo, or -1.
func (c *Cache) find(blockNo uint32) int {
	for i := range c.slots {
		if c.present.Get(i) && c.slots[i].blockNo == blockNo {
			return i
		}
	}
	return -1
}

// Get returns the slot holding blockNo, loading it via dev if necessary and
// evicting the least-recently-used slot (flushing it first if dirty). The
// returned slot's BlockNo() always equals blockNo on success.
func (c *Cache) Get(dev blockdev.Device, blockNo uint32) (*Slot, error) {
	if idx := c.find(blockNo); idx >= 0 {
		c.touch(idx)
		return &c.slots[idx], nil
	}

	// Miss: the back of the MRU list is the LRU slot.
	victim := c.mru[len(c.mru)-1]
	slot := &c.slots[victim]

	if c.present.Get(victim) && c.dirty.Get(victim) {
		if err := dev.WriteBlock(slot.blockNo, slot.buf[:]); err != nil {
			return nil, err
		}
		c.dirty.Set(victim, false)
	}

	slot.blockNo = blockNo
	c.present.Set(victim, false)

	if err := dev.ReadBlock(blockNo, slot.buf[:]); err != nil {
		return nil, err
	}
	c.present.Set(victim, true)
	c.dirty.Set(victim, false)

	c.touch(victim)
	return slot, nil
}

// MarkDirty marks slot as modified so a future eviction or FlushAll/Sync
// writes it back before it is reused or the cache is closed.
func (c *Cache) MarkDirty(slot *Slot) {
	for i := range c.slots {
		if &c.slots[i] == slot {
			c.dirty.Set(i, true)
			return
		}
	}
}

// FlushAll writes every dirty slot back to dev and marks it clean. A failure
// partway through leaves the remaining dirty slots untouched; the caller may
// retry.
func (c *Cache) FlushAll(dev blockdev.Device) error {
	for i := range c.slots {
		if !c.present.Get(i) || !c.dirty.Get(i) {
			continue
		}
		slot := &c.slots[i]
		if err := dev.WriteBlock(slot.blockNo, slot.buf[:]); err != nil {
			return ferrors.ErrIOFailed.WrapError(err)
		}
		c.dirty.Set(i, false)
	}
	return nil
}

// Invalidate drops all cached content without flushing it. Used by
// FS.Unmount after its flush.
func (c *Cache) Invalidate() {
	for i := range c.slots {
		c.present.Set(i, false)
		c.dirty.Set(i, false)
	}
}
