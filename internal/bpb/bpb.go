// Package bpb decodes and validates a FAT BIOS Parameter Block, computing the
// geometry (cluster count, root directory location, FAT16-vs-FAT32
// classification) that the rest of fatfs needs.
//
// Decoding resolves 16-vs-32-bit sector/cluster count fields by preferring
// the 16-bit field when it is nonzero, and runs a handful of cheap
// corruption checks (sector size, sectors-per-cluster power-of-two,
// FAT32-with-nonzero-root-dir-sectors) before trusting the geometry.
package bpb

import (
	"github.com/danlamb/fatfs/blockdev"
	"github.com/danlamb/fatfs/ferrors"
	"github.com/danlamb/fatfs/internal/bytesx"
	"github.com/danlamb/fatfs/internal/partition"
)

// Decode reads rec.FirstBlock from dev, validates and decodes its BPB, and
// fills in rec's geometry fields in place. If the BPB fails validation
// (bad signature, unsupported sector size, FAT12 classification), rec.Kind
// is set to partition.Unknown and a nil error is returned: a single
// unrecognized partition is not fatal by itself, only the absence of any
// FAT partition at all is.
func Decode(dev blockdev.Device, rec *partition.Record) error {
	buf := make([]byte, blockdev.BlockSize)
	if err := dev.ReadBlock(rec.FirstBlock, buf); err != nil {
		return err
	}

	if buf[510] != 0x55 || buf[511] != 0xAA {
		rec.Kind = partition.Unknown
		return nil
	}
	if !(buf[0] == 0xE9 || (buf[0] == 0xEB && buf[2] == 0x90)) {
		rec.Kind = partition.Unknown
		return nil
	}

	bytesPerSector := bytesx.Word(buf[11:13])
	if bytesPerSector != 512 {
		rec.Kind = partition.Unknown
		return nil
	}

	blocksPerCluster := uint32(buf[13])
	switch blocksPerCluster {
	case 1, 2, 4, 8, 16, 32, 64, 128:
	default:
		rec.Kind = partition.Unknown
		return nil
	}

	if uint32(bytesPerSector)*blocksPerCluster > 32768 {
		rec.Kind = partition.Unknown
		return nil
	}

	numReservedBlocks := uint32(bytesx.Word(buf[14:16]))
	numFATs := uint32(buf[16])
	numRootEntries := uint32(bytesx.Word(buf[17:19]))

	numBlocks16 := uint32(bytesx.Word(buf[19:21]))
	numBlocks32 := bytesx.DWord(buf[32:36])
	var numBlocks uint32
	if numBlocks16 != 0 {
		numBlocks = numBlocks16
	} else {
		numBlocks = numBlocks32
	}

	blocksPerFAT16 := uint32(bytesx.Word(buf[22:24]))
	blocksPerFAT32 := bytesx.DWord(buf[36:40])
	var blocksPerFAT uint32
	if blocksPerFAT16 != 0 {
		blocksPerFAT = blocksPerFAT16
	} else {
		blocksPerFAT = blocksPerFAT32
	}

	blocksInRootDir := (numRootEntries*32 + (blockdev.BlockSize - 1)) / blockdev.BlockSize

	totalFATBlocks := numFATs * blocksPerFAT
	firstDataBlock := numReservedBlocks + totalFATBlocks + blocksInRootDir
	dataBlocks := numBlocks - firstDataBlock
	if blocksPerCluster == 0 {
		rec.Kind = partition.Unknown
		return nil
	}
	countOfClusters := dataBlocks / blocksPerCluster

	rec.NumBlocks = numBlocks
	rec.BlocksPerCluster = blocksPerCluster
	rec.BlocksPerFAT = blocksPerFAT
	rec.NumFATs = numFATs
	rec.NumReservedBlocks = numReservedBlocks
	rec.FirstDataBlock = rec.FirstBlock + firstDataBlock

	switch {
	case countOfClusters < 4085:
		rec.Kind = partition.Unknown
	case countOfClusters < 65525:
		rec.Kind = partition.FAT16
		rec.RootDirBlock = rec.FirstDataBlock - blocksInRootDir
		rec.NumClusters = countOfClusters
	default:
		if blocksInRootDir != 0 {
			rec.Kind = partition.Unknown
			return nil
		}
		rec.Kind = partition.FAT32
		rec.RootDirCluster = bytesx.DWord(buf[44:48])
		rec.NumClusters = countOfClusters
	}

	return nil
}

// DecodeAll runs Decode over every Undecided record in place, classifying
// each into FAT16, FAT32, or Unknown.
func DecodeAll(dev blockdev.Device, records []partition.Record) error {
	for i := range records {
		if records[i].Kind != partition.Undecided {
			continue
		}
		if err := Decode(dev, &records[i]); err != nil {
			return err
		}
	}
	return nil
}

// SelectActive picks the partition mount should make active: the first
// bootable FAT partition, else the first FAT partition, else
// ferrors.ErrNoPartition. explicitIndex, when >= 0, overrides the search and
// is validated against records directly.
func SelectActive(records []partition.Record, explicitIndex int) (int, error) {
	if explicitIndex >= 0 {
		if explicitIndex >= len(records) || !isFAT(records[explicitIndex].Kind) {
			return -1, ferrors.ErrInvalidArgument.WithMessage("selected partition is not a FAT volume")
		}
		return explicitIndex, nil
	}

	firstFAT := -1
	for i, rec := range records {
		if !isFAT(rec.Kind) {
			continue
		}
		if firstFAT < 0 {
			firstFAT = i
		}
		if rec.Boot {
			return i, nil
		}
	}
	if firstFAT >= 0 {
		return firstFAT, nil
	}
	return -1, ferrors.ErrNoPartition
}

func isFAT(k partition.Kind) bool {
	return k == partition.FAT16 || k == partition.FAT32
}
