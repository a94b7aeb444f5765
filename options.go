package fatfs

import "log/slog"

// Option configures a Mount call. With no options, Mount uses 8 data-cache
// blocks, 4 FAT-cache blocks, 16 file descriptors, the default partition
// selection, write access if the device allows it, and a logger that
// discards its output.
type Option func(*config)

type config struct {
	dataCacheBlocks   int
	fatCacheBlocks    int
	maxOpenFiles      int
	explicitPartition int
	readOnly          bool
	logger            *slog.Logger
}

func defaultConfig() config {
	return config{
		dataCacheBlocks:   8,
		fatCacheBlocks:    4,
		maxOpenFiles:      16,
		explicitPartition: -1,
		logger:            slog.New(slog.NewTextHandler(discardWriter{}, nil)),
	}
}

// discardWriter is used as the default logger's sink so that Mount never
// writes to stderr unless the caller opts in with WithLogger.
type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// WithDataCacheBlocks sets the number of slots in the data-block cache.
func WithDataCacheBlocks(n int) Option {
	return func(c *config) { c.dataCacheBlocks = n }
}

// WithFATCacheBlocks sets the number of slots in the FAT-metadata cache.
func WithFATCacheBlocks(n int) Option {
	return func(c *config) { c.fatCacheBlocks = n }
}

// WithMaxOpenFiles sets the size of the file descriptor table.
func WithMaxOpenFiles(n int) Option {
	return func(c *config) { c.maxOpenFiles = n }
}

// WithPartition overrides the default "first bootable FAT partition, else
// first FAT partition" selection with an explicit partition index.
func WithPartition(index int) Option {
	return func(c *config) { c.explicitPartition = index }
}

// ReadOnly refuses to mount with write permissions even if the underlying
// blockdev.Device supports writes.
func ReadOnly() Option {
	return func(c *config) { c.readOnly = true }
}

// WithLogger attaches a structured logger used for mount/cache/chain
// diagnostics. By default, fatfs logs nothing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
