// Package ferrors defines the POSIX-flavoured sentinel errors used throughout
// fatfs. Every operation that would return -1 with an errno in a C-style API
// instead returns one of these, possibly wrapped with additional context via
// WithMessage or WrapError.
package ferrors

import "fmt"

// FatError is a sentinel error type, analogous to a fixed errno code. Values
// of this type can be compared directly and also support errors.Is/As through
// Unwrap on the values returned by WithMessage/WrapError.
type FatError string

func (e FatError) Error() string {
	return string(e)
}

const (
	// ErrIOFailed indicates a device read/write callback returned an error.
	ErrIOFailed = FatError("input/output error")
	// ErrFileSystemCorrupted indicates a cluster chain that runs into a free
	// or BAD cluster, or that ends before a file's recorded size is reached.
	// A boot sector that fails validation (bad signature, unsupported sector
	// size, FAT12) is not reported with this error: its partition is
	// classified Unknown, and Mount fails with ErrNoPartition if no FAT
	// partition remains.
	ErrFileSystemCorrupted = FatError("file system structure needs cleaning")
	// ErrInvalidArgument indicates a caller-supplied argument was malformed:
	// a nil path, an invalid whence value, a bad open flag combination.
	ErrInvalidArgument = FatError("invalid argument")
	// ErrInvalidFileDescriptor indicates an operation was attempted on a file
	// descriptor that isn't open.
	ErrInvalidFileDescriptor = FatError("bad file descriptor")
	// ErrNotFound indicates a path component could not be resolved.
	ErrNotFound = FatError("no such file or directory")
	// ErrIsADirectory indicates an operation that requires a regular file was
	// attempted against a directory.
	ErrIsADirectory = FatError("is a directory")
	// ErrNotADirectory indicates a non-terminal path component was not a
	// directory.
	ErrNotADirectory = FatError("not a directory")
	// ErrNotImplemented indicates the operation (currently only the write
	// path) is recognized but not yet implemented.
	ErrNotImplemented = FatError("function not implemented")
	// ErrTooManyOpenFiles indicates the file descriptor table has no free
	// slots.
	ErrTooManyOpenFiles = FatError("too many open files in system")
	// ErrPermissionDenied indicates an operation was attempted without the
	// required open-mode permission.
	ErrPermissionDenied = FatError("permission denied")
	// ErrReadOnlyFileSystem indicates a write was attempted on a volume
	// mounted read-only.
	ErrReadOnlyFileSystem = FatError("read-only file system")
	// ErrNoSpaceOnDevice is reserved for the write path.
	ErrNoSpaceOnDevice = FatError("no space left on device")
	// ErrNoPartition indicates mount found no FAT partition to select.
	ErrNoPartition = FatError("no FAT partition found")
)

// WithMessage returns a new error that reports both e's message and the
// supplied detail, while still unwrapping to e for errors.Is(err, e).
func (e FatError) WithMessage(detail string) error {
	return &detailedError{sentinel: e, message: fmt.Sprintf("%s: %s", e, detail)}
}

// WrapError returns a new error combining e's message with err's, unwrapping
// to e for errors.Is(err, e) and to err via errors.Unwrap chaining through
// the returned value's Unwrap.
func (e FatError) WrapError(err error) error {
	return &detailedError{sentinel: e, message: fmt.Sprintf("%s: %s", e, err), cause: err}
}

type detailedError struct {
	sentinel FatError
	message  string
	cause    error
}

func (e *detailedError) Error() string { return e.message }

// Unwrap returns the underlying cause when there is one, else the sentinel.
// errors.Is(err, ferrors.ErrXxx) matches the sentinel either way, through Is
// below.
func (e *detailedError) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return e.sentinel
}

// Is reports whether target is the sentinel this error was derived from,
// letting errors.Is see through the wrapped detail message directly instead
// of relying solely on chain unwrapping.
func (e *detailedError) Is(target error) bool {
	return e.sentinel == target
}
