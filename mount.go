// Package fatfs reads files and directories on FAT16 and FAT32 volumes
// stored on any random-access block device, abstracted behind the
// blockdev.Device read/write callbacks. It has no knowledge of the
// underlying medium (SD card, disk image file, flash partition).
//
// Mount returns an owned handle (*FS) rather than relying on a single
// process-wide global: an owned handle lets a caller run more than one
// mounted volume at a time, and leaves room for a future caller to add its
// own mutex at the boundary should it need concurrent access (this library
// itself remains single-threaded).
package fatfs

import (
	"log/slog"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/danlamb/fatfs/blockdev"
	"github.com/danlamb/fatfs/ferrors"
	"github.com/danlamb/fatfs/internal/blockcache"
	"github.com/danlamb/fatfs/internal/bpb"
	"github.com/danlamb/fatfs/internal/partition"
)

// cacheClass indexes FS.caches.
type cacheClass int

const (
	classData cacheClass = iota
	classFAT
)

// FS is a mounted FAT volume. The zero value is not usable; create one with
// Mount.
type FS struct {
	dev      blockdev.Device
	records  []partition.Record
	active   int
	caches   [2]*blockcache.Cache
	files    []fileDescriptor
	readOnly bool
	logger   *slog.Logger

	freeClustersKnown bool
	freeClusters      uint32
}

// Mount discovers every FAT partition on dev (via GPT, then MBR, then a
// table-less fallback), decodes each one's BPB, and selects the active
// partition: the first bootable FAT partition, else the first FAT
// partition. It fails with ferrors.ErrNoPartition if no FAT partition is
// found.
func Mount(dev blockdev.Device, opts ...Option) (*FS, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	records, err := partition.Discover(dev)
	if err != nil {
		return nil, err
	}
	if err := bpb.DecodeAll(dev, records); err != nil {
		return nil, err
	}

	active, err := bpb.SelectActive(records, cfg.explicitPartition)
	if err != nil {
		cfg.logger.Debug("mount found no FAT partition")
		return nil, err
	}

	fs := &FS{
		dev:     dev,
		records: records,
		active:  active,
		caches: [2]*blockcache.Cache{
			classData: blockcache.New(cfg.dataCacheBlocks),
			classFAT:  blockcache.New(cfg.fatCacheBlocks),
		},
		files:    make([]fileDescriptor, cfg.maxOpenFiles),
		readOnly: cfg.readOnly || dev.ReadOnly(),
		logger:   cfg.logger,
	}
	cfg.logger.Info("mounted FAT volume",
		"partition", active,
		"kind", records[active].Kind.String(),
		"num_clusters", records[active].NumClusters,
	)
	return fs, nil
}

// ActivePartition returns the index of the currently active partition.
func (fs *FS) ActivePartition() int {
	return fs.active
}

// NumPartitions returns the number of partition records discovered at mount
// time, including ones that were not classified as FAT.
func (fs *FS) NumPartitions() int {
	return len(fs.records)
}

// SelectPartition changes the active partition. File descriptors already
// open against the previous active partition are unaffected: each one
// captured its own partition index at Open time, so only subsequent
// path-based lookups (Open, Stat) are affected by this call.
func (fs *FS) SelectPartition(index int) error {
	if index < 0 || index >= len(fs.records) {
		return ferrors.ErrInvalidArgument.WithMessage("partition index out of range")
	}
	rec := fs.records[index]
	if rec.Kind != partition.FAT16 && rec.Kind != partition.FAT32 {
		return ferrors.ErrInvalidArgument.WithMessage("selected partition is not a FAT volume")
	}
	fs.active = index
	fs.freeClustersKnown = false
	return nil
}

func (fs *FS) activeRecord() *partition.Record {
	return &fs.records[fs.active]
}

// Sync flushes every dirty block in both caches to the device.
func (fs *FS) Sync() error {
	var result *multierror.Error
	for _, cache := range fs.caches {
		if err := cache.FlushAll(fs.dev); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Unmount flushes all dirty blocks (see Sync) and invalidates the caches.
// After Unmount, fs must not be used again.
func (fs *FS) Unmount() error {
	err := fs.Sync()
	for _, cache := range fs.caches {
		cache.Invalidate()
	}
	for i := range fs.files {
		fs.files[i] = fileDescriptor{}
	}
	return err
}
