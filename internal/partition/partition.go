// Package partition implements FAT partition discovery: GPT, then MBR, then
// a table-less single-volume fallback, in that order. Discover gathers a
// table of candidate partitions from whichever partitioning scheme is
// actually present on the device and leaves classification of each one to
// package bpb.
package partition

import (
	"github.com/danlamb/fatfs/blockdev"
	"github.com/danlamb/fatfs/internal/bytesx"
)

// Kind is a tag for the partition record's variant. FAT16 and FAT32 carry
// different root-directory locators (RootDirBlock vs RootDirCluster); Record
// keeps both fields, only the one matching Kind is set, and callers switch
// on Kind and read only the field that applies.
type Kind int

const (
	Unknown Kind = iota
	Undecided
	FAT16
	FAT32
)

func (k Kind) String() string {
	switch k {
	case Undecided:
		return "undecided"
	case FAT16:
		return "fat16"
	case FAT32:
		return "fat32"
	default:
		return "unknown"
	}
}

// Record describes one partition found on the device, with geometry filled
// in once the BPB has been decoded (see package bpb). Fields left zero until
// that point: NumBlocks, NumClusters, FirstDataBlock, BlocksPerCluster,
// BlocksPerFAT, NumFATs, NumReservedBlocks, RootDirBlock/RootDirCluster.
type Record struct {
	Kind  Kind
	Boot  bool // advisory "bootable" bit from the partition table
	Index int

	FirstBlock uint32
	NumBlocks  uint32

	// Populated by package bpb once the kind is resolved.
	FirstDataBlock    uint32
	BlocksPerCluster  uint32
	BlocksPerFAT      uint32
	NumFATs           uint32
	NumReservedBlocks uint32
	NumClusters       uint32

	// RootDirBlock applies only when Kind == FAT16.
	RootDirBlock uint32
	// RootDirCluster applies only when Kind == FAT32.
	RootDirCluster uint32
}

// basicDataGUID is the Windows "Basic Data" partition type GUID
// (A2A0D0EB-B9E5-4433-87C0-68B6B72699C7), stored in its mixed-endian
// on-disk byte order: the first three fields are little-endian, the last
// two are big-endian byte arrays.
var basicDataGUID = [16]byte{
	0xEB, 0xD0, 0xA0, 0xA2,
	0xE5, 0xB9,
	0x33, 0x44,
	0x87, 0xC0,
	0x68, 0xB6, 0xB7, 0x26, 0x99, 0xC7,
}

// fatMBRTypes are the MBR partition type bytes this library recognizes as
// holding a FAT12/16/32 file system.
var fatMBRTypes = map[byte]bool{
	0x04: true,
	0x06: true,
	0x0B: true,
	0x0C: true,
	0x0E: true,
}

const maxPartitions = 16

// Discover populates up to maxPartitions candidate records by trying GPT,
// then MBR, then falling back to a table-less single-volume layout. It
// returns every partition-table entry it read (all four MBR entries; every
// GPT entry with a non-zero type GUID): FAT candidates have Kind Undecided,
// the rest Unknown. The BPB decoder classifies each Undecided record
// further into FAT16, FAT32, or Unknown.
func Discover(dev blockdev.Device) ([]Record, error) {
	if records, err := discoverGPT(dev); err != nil {
		return nil, err
	} else if records != nil {
		return records, nil
	}

	if records, err := discoverMBR(dev); err != nil {
		return nil, err
	} else if records != nil {
		return records, nil
	}

	return []Record{{Kind: Undecided, Index: 0, FirstBlock: 0}}, nil
}

func discoverGPT(dev blockdev.Device) ([]Record, error) {
	header := make([]byte, blockdev.BlockSize)
	if err := dev.ReadBlock(1, header); err != nil {
		return nil, err
	}

	if !bytesx.Equal(header[:8], []byte("EFI PART")) {
		return nil, nil
	}

	entriesBlock := bytesx.DWord(header[72:76])
	numEntries := bytesx.DWord(header[80:84])
	entrySize := bytesx.DWord(header[84:88])
	if entrySize == 0 || entrySize > blockdev.BlockSize {
		return nil, nil
	}

	if numEntries > maxPartitions {
		numEntries = maxPartitions
	}

	var records []Record
	entriesPerBlock := blockdev.BlockSize / entrySize
	block := make([]byte, blockdev.BlockSize)
	var loadedBlock uint32 = 0
	haveBlock := false

	for i := uint32(0); i < numEntries; i++ {
		blockOffset := i / entriesPerBlock
		offsetInBlock := (i % entriesPerBlock) * entrySize
		targetBlock := entriesBlock + blockOffset

		if !haveBlock || loadedBlock != targetBlock {
			if err := dev.ReadBlock(targetBlock, block); err != nil {
				return nil, err
			}
			loadedBlock = targetBlock
			haveBlock = true
		}

		entry := block[offsetInBlock : offsetInBlock+entrySize]
		var guid [16]byte
		copy(guid[:], entry[0:16])
		if guid == ([16]byte{}) {
			continue
		}

		record := Record{
			Index:      len(records),
			FirstBlock: bytesx.DWord(entry[32:36]),
			Boot:       entry[48]&0x04 != 0,
		}
		if guid == basicDataGUID {
			record.Kind = Undecided
		} else {
			record.Kind = Unknown
		}
		records = append(records, record)
	}

	return records, nil
}

func discoverMBR(dev blockdev.Device) ([]Record, error) {
	block := make([]byte, blockdev.BlockSize)
	if err := dev.ReadBlock(0, block); err != nil {
		return nil, err
	}

	if block[510] != 0x55 || block[511] != 0xAA {
		return nil, nil
	}

	records := make([]Record, 4)
	var anyTyped bool
	for i := 0; i < 4; i++ {
		entry := block[446+16*i : 446+16*(i+1)]
		typeByte := entry[4]
		if typeByte != 0x00 {
			anyTyped = true
		}

		records[i] = Record{
			Index:      i,
			Boot:       entry[0]&0x80 != 0,
			FirstBlock: bytesx.DWord(entry[8:12]),
		}
		if fatMBRTypes[typeByte] {
			records[i].Kind = Undecided
		} else {
			records[i].Kind = Unknown
		}
	}

	// A boot sector's own end-of-sector signature (0x55AA) is
	// indistinguishable from an MBR's at these same two bytes, so a
	// table-less volume always passes the signature check above. The
	// partition-type bytes are what actually distinguish the two: a real
	// MBR has at least one non-zero type, while a table-less volume's
	// boot sector leaves that whole region as whatever its BPB didn't
	// use, which for a conforming FAT boot sector is zero. Treat an
	// all-zero table as "no MBR" and let Discover fall through.
	if !anyTyped {
		return nil, nil
	}

	return records, nil
}
