package fatimage

import "encoding/binary"

// basicDataGUID matches the GUID partition.go checks for, in the same
// mixed-endian on-disk byte order.
var basicDataGUID = [16]byte{
	0xEB, 0xD0, 0xA0, 0xA2,
	0xE5, 0xB9,
	0x33, 0x44,
	0x87, 0xC0,
	0x68, 0xB6, 0xB7, 0x26, 0x99, 0xC7,
}

// writeMBR fills block 0 of image with a single partition entry pointing at
// fsFirstBlock, marked active (bootable) when boot is set.
func writeMBR(image []byte, kind string, fsFirstBlock uint32, boot bool) {
	block := image[0:blockSize]

	entry := block[446:462]
	if boot {
		entry[0] = 0x80
	}
	if kind == "fat32" {
		entry[4] = 0x0C // FAT32, LBA
	} else {
		entry[4] = 0x06 // FAT16B
	}
	binary.LittleEndian.PutUint32(entry[8:12], fsFirstBlock)
	binary.LittleEndian.PutUint32(entry[12:16], 1)

	block[510], block[511] = 0x55, 0xAA
}

// writeGPT fills blocks 0-33 of image with a protective MBR, a GPT header,
// and a single partition entry pointing at fsFirstBlock.
func writeGPT(image []byte, fsFirstBlock uint32, boot bool) {
	mbr := image[0:blockSize]
	mbr[446+4] = 0xEE // protective MBR partition type
	mbr[510], mbr[511] = 0x55, 0xAA

	header := image[blockSize : 2*blockSize]
	copy(header[0:8], []byte("EFI PART"))
	binary.LittleEndian.PutUint32(header[72:76], 2) // entries start at block 2
	binary.LittleEndian.PutUint32(header[80:84], 1) // one entry
	binary.LittleEndian.PutUint32(header[84:88], 128)

	entry := image[2*blockSize : 2*blockSize+128]
	copy(entry[0:16], basicDataGUID[:])
	binary.LittleEndian.PutUint32(entry[32:36], fsFirstBlock)
	if boot {
		entry[48] = 0x04
	}
}
