package fatfs_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danlamb/fatfs"
	"github.com/danlamb/fatfs/ferrors"
	"github.com/danlamb/fatfs/internal/fatimage"
)

func TestMountAndReadFile_MBR_FAT16(t *testing.T) {
	dev, err := fatimage.Build(fatimage.Options{
		Kind:         "fat16",
		Partitioning: "mbr",
		Boot:         true,
		VolumeLabel:  "TESTVOL",
		Files:        []fatimage.FileSpec{{Name: "HELLO.TXT", Data: []byte("hello, world")}},
	})
	require.NoError(t, err)

	fs, err := fatfs.Mount(dev)
	require.NoError(t, err)

	fd, err := fs.Open("/HELLO.TXT", fatfs.RDONLY)
	require.NoError(t, err)
	defer fs.Close(fd)

	buf := make([]byte, 64)
	n, err := fs.Read(fd, buf)
	require.NoError(t, err)
	require.Equal(t, "hello, world", string(buf[:n]))
}

func TestStat_GPT_FAT32(t *testing.T) {
	dev, err := fatimage.Build(fatimage.Options{
		Kind:         "fat32",
		Partitioning: "gpt",
		Boot:         true,
		VolumeLabel:  "BIGVOL",
		Files:        []fatimage.FileSpec{{Name: "DATA.BIN", Data: bytes.Repeat([]byte{0x7E}, 100)}},
	})
	require.NoError(t, err)

	fs, err := fatfs.Mount(dev)
	require.NoError(t, err)

	st, err := fs.Stat("/DATA.BIN")
	require.NoError(t, err)
	require.Equal(t, int64(100), st.Size)
	require.False(t, st.IsDir)

	label, ok := fs.VolumeLabel()
	require.True(t, ok)
	require.Equal(t, "BIGVOL", label)
}

func TestRead_MultiClusterFAT32_SeekAndRead(t *testing.T) {
	// blocksPerCluster is 1 in the fixtures, so a file bigger than one block
	// already spans multiple clusters and exercises Lseek's chain walking.
	data := bytes.Repeat([]byte{0, 1, 2, 3}, 400) // 1600 bytes, several clusters
	dev, err := fatimage.Build(fatimage.Options{
		Kind:         "fat32",
		Partitioning: "none",
		Files:        []fatimage.FileSpec{{Name: "BIG.BIN", Data: data}},
	})
	require.NoError(t, err)

	fs, err := fatfs.Mount(dev)
	require.NoError(t, err)

	fd, err := fs.Open("/BIG.BIN", fatfs.RDONLY)
	require.NoError(t, err)
	defer fs.Close(fd)

	off, err := fs.Lseek(fd, 1000, fatfs.SeekSet)
	require.NoError(t, err)
	require.EqualValues(t, 1000, off)

	buf := make([]byte, 50)
	n, err := fs.Read(fd, buf)
	require.NoError(t, err)
	require.Equal(t, data[1000:1050], buf[:n])

	// Seek backward past the start of the current cluster forces a restart
	// from the first cluster.
	off, err = fs.Lseek(fd, 10, fatfs.SeekSet)
	require.NoError(t, err)
	require.EqualValues(t, 10, off)

	n, err = fs.Read(fd, buf)
	require.NoError(t, err)
	require.Equal(t, data[10:60], buf[:n])
}

func TestMount_TableLess(t *testing.T) {
	dev, err := fatimage.Build(fatimage.Options{
		Kind:         "fat16",
		Partitioning: "none",
		Files:        []fatimage.FileSpec{{Name: "A.TXT", Data: []byte("x")}},
	})
	require.NoError(t, err)

	fs, err := fatfs.Mount(dev)
	require.NoError(t, err)
	require.Equal(t, 1, fs.NumPartitions())
	require.Equal(t, 0, fs.ActivePartition())
}

func TestReadDir_ListsEntries(t *testing.T) {
	dev, err := fatimage.Build(fatimage.Options{
		Kind:         "fat16",
		Partitioning: "none",
		VolumeLabel:  "VOL",
		Files: []fatimage.FileSpec{
			{Name: "ONE.TXT", Data: []byte("1")},
			{Name: "TWO.TXT", Data: []byte("22")},
		},
	})
	require.NoError(t, err)

	fs, err := fatfs.Mount(dev)
	require.NoError(t, err)

	entries, err := fs.ReadDir("/")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	names := map[string]int64{}
	for _, e := range entries {
		names[e.Name] = e.Size
	}
	require.Equal(t, int64(1), names["ONE.TXT"])
	require.Equal(t, int64(2), names["TWO.TXT"])
}

func TestWrite_ReturnsNotImplemented(t *testing.T) {
	dev, err := fatimage.Build(fatimage.Options{
		Kind:         "fat16",
		Partitioning: "none",
		Files:        []fatimage.FileSpec{{Name: "A.TXT", Data: []byte("x")}},
	})
	require.NoError(t, err)

	fs, err := fatfs.Mount(dev)
	require.NoError(t, err)

	fd, err := fs.Open("/A.TXT", fatfs.RDONLY)
	require.NoError(t, err)
	_, err = fs.Write(fd, []byte("y"))
	require.ErrorIs(t, err, ferrors.ErrNotImplemented)
	require.NoError(t, fs.Close(fd))
}

func TestOpen_WriteRejectedOnReadOnlyMount(t *testing.T) {
	dev, err := fatimage.Build(fatimage.Options{
		Kind:         "fat16",
		Partitioning: "none",
		Files:        []fatimage.FileSpec{{Name: "A.TXT", Data: []byte("x")}},
	})
	require.NoError(t, err)

	fs, err := fatfs.Mount(dev, fatfs.ReadOnly())
	require.NoError(t, err)

	_, err = fs.Open("/A.TXT", fatfs.WRONLY)
	require.ErrorIs(t, err, ferrors.ErrPermissionDenied)
}

func TestUnmount_SyncsAndInvalidates(t *testing.T) {
	dev, err := fatimage.Build(fatimage.Options{
		Kind:         "fat16",
		Partitioning: "none",
		Files:        []fatimage.FileSpec{{Name: "A.TXT", Data: []byte("x")}},
	})
	require.NoError(t, err)

	fs, err := fatfs.Mount(dev)
	require.NoError(t, err)

	_, err = fs.Open("/A.TXT", fatfs.RDONLY)
	require.NoError(t, err)
	require.NoError(t, fs.Unmount())
}

func TestRead_ShortChainReportsCorruption(t *testing.T) {
	// The directory entry claims twice as much data as the cluster chain
	// actually holds (one cluster, 512 bytes, against a declared size of
	// 1024). Read must stop at the real End-of-Chain and report
	// ferrors.ErrFileSystemCorrupted instead of reading past the chain.
	dev, err := fatimage.Build(fatimage.Options{
		Kind:         "fat32",
		Partitioning: "none",
		Files: []fatimage.FileSpec{
			{Name: "SHORT.BIN", Data: bytes.Repeat([]byte{0x11}, 512), DeclaredSize: 1024},
		},
	})
	require.NoError(t, err)

	fs, err := fatfs.Mount(dev)
	require.NoError(t, err)

	fd, err := fs.Open("/SHORT.BIN", fatfs.RDONLY)
	require.NoError(t, err)
	defer fs.Close(fd)

	buf := make([]byte, 2000)
	n, err := fs.Read(fd, buf)
	require.ErrorIs(t, err, ferrors.ErrFileSystemCorrupted)
	require.Equal(t, 512, n)
	require.Equal(t, bytes.Repeat([]byte{0x11}, 512), buf[:n])
}

func TestOpen_CaseInsensitiveLookup(t *testing.T) {
	dev, err := fatimage.Build(fatimage.Options{
		Kind:         "fat16",
		Partitioning: "none",
		Files:        []fatimage.FileSpec{{Name: "README.TXT", Data: []byte("docs")}},
	})
	require.NoError(t, err)

	fs, err := fatfs.Mount(dev)
	require.NoError(t, err)

	fd, err := fs.Open("/readme.txt", fatfs.RDONLY)
	require.NoError(t, err, "lookup must canonicalize case before comparing")
	buf := make([]byte, 16)
	n, err := fs.Read(fd, buf)
	require.NoError(t, err)
	require.Equal(t, "docs", string(buf[:n]))
}
