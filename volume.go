package fatfs

import (
	"github.com/danlamb/fatfs/blockdev"
	"github.com/danlamb/fatfs/internal/dirent"
	"github.com/danlamb/fatfs/internal/fat"
	"github.com/danlamb/fatfs/internal/partition"
)

// FSStat reports the geometry and capacity of the active partition's file
// system, similar in spirit to POSIX statvfs.
type FSStat struct {
	BlockSize     uint32
	TotalClusters uint32
	FreeClusters  uint32
	FATType       string
	VolumeLabel   string
}

// VolumeLabel returns the volume-label directory entry's name, if the root
// directory has one. Any I/O failure while scanning is reported as "not
// found" rather than propagated, since a missing label is not otherwise
// distinguishable from a scan that could not complete; callers that need to
// tell the two apart should use ReadDir("/") instead.
func (fs *FS) VolumeLabel() (string, bool) {
	rec := fs.activeRecord()
	label, ok, err := dirent.FindVolumeLabel(fs.dev, fs.caches[classData], fat.RootDirCursor(rec))
	if err != nil {
		return "", false
	}
	return label, ok
}

// FSStat reports geometry and free-space information for the active
// partition. The free cluster count is computed by scanning the FAT once,
// lazily, on the first call after Mount or SelectPartition, and cached
// afterward; if the scan fails partway through, the free count reported is
// the count of free clusters found before the failure.
func (fs *FS) FSStat() FSStat {
	rec := fs.activeRecord()
	if !fs.freeClustersKnown {
		fs.freeClusters = fs.countFreeClusters(rec)
		fs.freeClustersKnown = true
	}

	label, _ := fs.VolumeLabel()
	return FSStat{
		BlockSize:     blockdev.BlockSize,
		TotalClusters: rec.NumClusters,
		FreeClusters:  fs.freeClusters,
		FATType:       rec.Kind.String(),
		VolumeLabel:   label,
	}
}

func (fs *FS) countFreeClusters(rec *partition.Record) uint32 {
	var free uint32
	cache := fs.caches[classFAT]
	for c := fat.ClusterID(2); c < fat.ClusterID(rec.NumClusters+2); c++ {
		raw, err := fat.RawEntry(fs.dev, cache, rec, c)
		if err != nil {
			return free
		}
		if raw == fat.FreeCluster {
			free++
		}
	}
	return free
}
