// Package fatimage synthesizes minimal FAT16 and FAT32 disk images entirely
// in memory, for tests that need a real blockdev.Device without a real disk.
// Geometry is pinned to the smallest values that still classify correctly
// (exactly 4085 clusters for FAT16, exactly 65525 for FAT32, per the
// cluster-count discrimination rule package bpb applies) so that fixtures
// stay small while still exercising the same code path a full-size volume
// would.
package fatimage

import (
	"encoding/binary"
	"fmt"

	"github.com/gocarina/gocsv"
	"github.com/noxer/bytewriter"
	"github.com/xaionaro-go/bytesextra"

	"github.com/danlamb/fatfs/blockdev"
)

const blockSize = blockdev.BlockSize

// FileSpec describes one regular file to place in the image's root
// directory.
type FileSpec struct {
	Name string // 8.3 form, e.g. "HELLO.TXT"
	Data []byte

	// DeclaredSize, if nonzero, overrides the size written into the
	// directory entry, independent of len(Data) and the cluster chain
	// actually allocated. Used to build fixtures whose claimed size
	// exceeds what their chain can hold, for exercising the
	// short-chain/corruption path.
	DeclaredSize uint32
}

// CSVEntry is one row of a gocsv-decoded directory-entry table: an
// alternative to FileSpec for fixtures that want to lay out more files than
// is convenient to spell out as Go literals. The attr column is decoded but
// not applied: Build gives every file the archive attribute (0x20).
type CSVEntry struct {
	Name    string `csv:"name"`
	Size    uint32 `csv:"size"`
	Attr    uint8  `csv:"attr"`
	Pattern byte   `csv:"pattern"` // byte value the file's content is filled with
}

// ParseEntriesCSV decodes a directory-entry table in the format
// "name,size,attr,pattern" into CSVEntry rows.
func ParseEntriesCSV(csvText string) ([]CSVEntry, error) {
	var rows []CSVEntry
	if err := gocsv.UnmarshalString(csvText, &rows); err != nil {
		return nil, fmt.Errorf("fatimage: decoding entry CSV: %w", err)
	}
	return rows, nil
}

// Options configures Build.
type Options struct {
	Kind         string // "fat16" or "fat32"
	Partitioning string // "none", "mbr", or "gpt"
	VolumeLabel  string
	Files        []FileSpec
	EntriesCSV   string // alternative to Files, decoded via ParseEntriesCSV
	Boot         bool   // advisory "bootable" flag on the partition table entry
}

func (o Options) files() ([]FileSpec, error) {
	if o.EntriesCSV == "" {
		return o.Files, nil
	}
	rows, err := ParseEntriesCSV(o.EntriesCSV)
	if err != nil {
		return nil, err
	}
	files := make([]FileSpec, len(rows))
	for i, row := range rows {
		data := make([]byte, row.Size)
		for j := range data {
			data[j] = row.Pattern
		}
		files[i] = FileSpec{Name: row.Name, Data: data}
	}
	return files, nil
}

type geometry struct {
	kind              string
	countOfClusters   uint32
	blocksPerCluster  uint32
	numReservedBlocks uint32
	numFATs           uint32
	entrySize         uint32
	blocksPerFAT      uint32
	numRootEntries    uint32
	blocksInRootDir   uint32
	firstDataBlockRel uint32
	numBlocks         uint32
}

func computeGeometry(kind string) (geometry, error) {
	g := geometry{kind: kind, blocksPerCluster: 1, numReservedBlocks: 1, numFATs: 1}

	switch kind {
	case "fat16":
		g.countOfClusters = 4085
		g.entrySize = 2
		g.numRootEntries = 16
	case "fat32":
		g.countOfClusters = 65525
		g.entrySize = 4
		g.numRootEntries = 0
	default:
		return geometry{}, fmt.Errorf("fatimage: unknown kind %q", kind)
	}

	g.blocksInRootDir = (g.numRootEntries*32 + blockSize - 1) / blockSize

	highestEntry := g.countOfClusters + 2
	g.blocksPerFAT = (highestEntry*g.entrySize + blockSize - 1) / blockSize

	g.firstDataBlockRel = g.numReservedBlocks + g.numFATs*g.blocksPerFAT + g.blocksInRootDir
	g.numBlocks = g.firstDataBlockRel + g.countOfClusters*g.blocksPerCluster
	return g, nil
}

// placement is one file (or the FAT32 root directory) laid out in the
// cluster chain.
type placement struct {
	name         string
	data         []byte
	attr         byte
	firstCluster uint32
	chain        []uint32
	declaredSize uint32
}

func allocateClusters(g geometry, files []FileSpec) (rootCluster uint32, placements []placement, nextFree uint32) {
	next := uint32(2)

	if g.kind == "fat32" {
		rootCluster = next
		next++
	}

	for _, f := range files {
		clustersNeeded := uint32(1)
		bytesPerCluster := g.blocksPerCluster * blockSize
		if len(f.Data) > 0 {
			clustersNeeded = (uint32(len(f.Data)) + bytesPerCluster - 1) / bytesPerCluster
			if clustersNeeded == 0 {
				clustersNeeded = 1
			}
		}

		chain := make([]uint32, clustersNeeded)
		for i := range chain {
			chain[i] = next
			next++
		}

		declaredSize := uint32(len(f.Data))
		if f.DeclaredSize != 0 {
			declaredSize = f.DeclaredSize
		}

		placements = append(placements, placement{
			name:         f.Name,
			data:         f.Data,
			attr:         0x20, // archive
			firstCluster: chain[0],
			chain:        chain,
			declaredSize: declaredSize,
		})
	}

	return rootCluster, placements, next
}

// Build synthesizes a disk image per opts and returns a blockdev.Device over
// it, sized and partitioned exactly as opts describes.
func Build(opts Options) (blockdev.Device, error) {
	g, err := computeGeometry(opts.Kind)
	if err != nil {
		return blockdev.Device{}, err
	}
	files, err := opts.files()
	if err != nil {
		return blockdev.Device{}, err
	}

	var headerBlocks, fsFirstBlock uint32
	switch opts.Partitioning {
	case "none":
	case "mbr":
		headerBlocks, fsFirstBlock = 1, 1
	case "gpt":
		headerBlocks, fsFirstBlock = 34, 34
	default:
		return blockdev.Device{}, fmt.Errorf("fatimage: unknown partitioning %q", opts.Partitioning)
	}

	rootCluster, placements, _ := allocateClusters(g, files)

	image := make([]byte, (headerBlocks+g.numBlocks)*blockSize)

	switch opts.Partitioning {
	case "mbr":
		writeMBR(image, opts.Kind, fsFirstBlock, opts.Boot)
	case "gpt":
		writeGPT(image, fsFirstBlock, opts.Boot)
	}

	fsOffset := int(fsFirstBlock) * blockSize
	writeBootSector(image[fsOffset:], g, rootCluster)

	fatOffset := fsOffset + int(g.numReservedBlocks)*blockSize
	writeFAT(image[fatOffset:], g, rootCluster, placements)

	if g.kind == "fat16" {
		rootOffset := fatOffset + int(g.numFATs*g.blocksPerFAT)*blockSize
		writeFAT16RootDir(image[rootOffset:], opts.VolumeLabel, placements)
	}

	dataOffset := fsOffset + int(g.firstDataBlockRel)*blockSize
	if g.kind == "fat32" {
		writeFAT32RootDir(image[dataOffset:], g, opts.VolumeLabel, rootCluster, placements)
	}
	writeFileData(image[dataOffset:], g, placements)

	store := make([]byte, len(image))
	bw := bytewriter.New(store)
	if _, err := bw.Write(image); err != nil {
		return blockdev.Device{}, fmt.Errorf("fatimage: assembling image: %w", err)
	}

	rws := bytesextra.NewReadWriteSeeker(store)
	return deviceFromSeeker(rws), nil
}

func writeBootSector(buf []byte, g geometry, rootCluster uint32) {
	buf[0], buf[1], buf[2] = 0xEB, 0x3C, 0x90
	binary.LittleEndian.PutUint16(buf[11:13], blockSize)
	buf[13] = byte(g.blocksPerCluster)
	binary.LittleEndian.PutUint16(buf[14:16], uint16(g.numReservedBlocks))
	buf[16] = byte(g.numFATs)
	binary.LittleEndian.PutUint16(buf[17:19], uint16(g.numRootEntries))

	if g.numBlocks <= 0xFFFF {
		binary.LittleEndian.PutUint16(buf[19:21], uint16(g.numBlocks))
	} else {
		binary.LittleEndian.PutUint32(buf[32:36], g.numBlocks)
	}

	if g.kind == "fat16" {
		binary.LittleEndian.PutUint16(buf[22:24], uint16(g.blocksPerFAT))
	} else {
		binary.LittleEndian.PutUint32(buf[36:40], g.blocksPerFAT)
		binary.LittleEndian.PutUint32(buf[44:48], rootCluster)
	}

	buf[510], buf[511] = 0x55, 0xAA
}

func writeFAT(buf []byte, g geometry, rootCluster uint32, placements []placement) {
	setEntry := func(cluster, value uint32) {
		byteOffset := cluster * g.entrySize
		if g.kind == "fat32" {
			binary.LittleEndian.PutUint32(buf[byteOffset:byteOffset+4], value&0x0FFFFFFF)
		} else {
			binary.LittleEndian.PutUint16(buf[byteOffset:byteOffset+2], uint16(value))
		}
	}

	const eocFAT16 = 0xFFFF
	const eocFAT32 = 0x0FFFFFFF

	eoc := uint32(eocFAT16)
	if g.kind == "fat32" {
		eoc = eocFAT32
		setEntry(rootCluster, eoc)
	}

	for _, p := range placements {
		for i, cluster := range p.chain {
			if i == len(p.chain)-1 {
				setEntry(cluster, eoc)
			} else {
				setEntry(cluster, p.chain[i+1])
			}
		}
	}
}

func encodeShortName(name string) [11]byte {
	var out [11]byte
	for i := range out {
		out[i] = ' '
	}
	base, ext := name, ""
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			base, ext = name[:i], name[i+1:]
			break
		}
	}
	copy(out[0:8], base)
	copy(out[8:11], ext)
	return out
}

func writeDirEntry(buf []byte, name string, attr byte, cluster uint32, size uint32) {
	short := encodeShortName(name)
	copy(buf[0:11], short[:])
	buf[11] = attr
	binary.LittleEndian.PutUint16(buf[20:22], uint16(cluster>>16))
	binary.LittleEndian.PutUint16(buf[26:28], uint16(cluster))
	binary.LittleEndian.PutUint32(buf[28:32], size)
}

func writeVolumeLabelEntry(buf []byte, label string) {
	if label == "" {
		return
	}
	short := encodeShortName(label)
	copy(buf[0:11], short[:])
	buf[11] = 0x08 // AttrVolumeID
}

func writeFAT16RootDir(buf []byte, label string, placements []placement) {
	entry := 0
	if label != "" {
		writeVolumeLabelEntry(buf[entry*32:entry*32+32], label)
		entry++
	}
	for _, p := range placements {
		writeDirEntry(buf[entry*32:entry*32+32], p.name, p.attr, p.firstCluster, p.declaredSize)
		entry++
	}
}

func writeFAT32RootDir(buf []byte, g geometry, label string, rootCluster uint32, placements []placement) {
	clusterOffset := int(rootCluster-2) * int(g.blocksPerCluster) * blockSize
	dir := buf[clusterOffset:]
	entry := 0
	if label != "" {
		writeVolumeLabelEntry(dir[entry*32:entry*32+32], label)
		entry++
	}
	for _, p := range placements {
		writeDirEntry(dir[entry*32:entry*32+32], p.name, p.attr, p.firstCluster, p.declaredSize)
		entry++
	}
}

func writeFileData(buf []byte, g geometry, placements []placement) {
	bytesPerCluster := int(g.blocksPerCluster) * blockSize
	for _, p := range placements {
		remaining := p.data
		for _, cluster := range p.chain {
			clusterOffset := int(cluster-2) * bytesPerCluster
			n := len(remaining)
			if n > bytesPerCluster {
				n = bytesPerCluster
			}
			copy(buf[clusterOffset:clusterOffset+n], remaining[:n])
			remaining = remaining[n:]
		}
	}
}
