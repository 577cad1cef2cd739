package vfs

import "fmt"

// ErrorCode represents the kind of filesystem error that occurred.
//
// Every syscall on the Filesystem facade either returns its declared result
// or fails with exactly one of these codes wrapped in an *FsError. Codes map
// one-to-one onto the classic POSIX errno conditions this engine models.
type ErrorCode int

const (
	// ErrNotFound indicates a path segment or final target does not exist
	// (POSIX ENOENT).
	ErrNotFound ErrorCode = iota + 1

	// ErrNotDirectory indicates a non-directory was encountered where a
	// directory was required, mid-traversal or as a parent target (ENOTDIR).
	ErrNotDirectory

	// ErrIsDirectory indicates an operation requiring a non-directory was
	// given a directory, such as unlink or a hard-link source (EISDIR).
	ErrIsDirectory

	// ErrExists indicates creation was requested where the name already
	// exists (EEXIST).
	ErrExists

	// ErrNotEmpty indicates rmdir on a directory with explicit children
	// (ENOTEMPTY).
	ErrNotEmpty

	// ErrCrossDevice indicates a hard link requested across device
	// boundaries (EXDEV).
	ErrCrossDevice

	// ErrBusy indicates rmdir targeting the namespace root (EBUSY).
	ErrBusy

	// ErrInvalidArgument indicates a descriptor used against an operation
	// its open flags forbid, readlink on a non-symlink, or a malformed
	// argument (EINVAL).
	ErrInvalidArgument

	// ErrBadFileDescriptor indicates a descriptor that is not open (EBADF).
	ErrBadFileDescriptor

	// ErrTooManyLinks indicates symlink expansion exceeded the resolution
	// depth cap (ELOOP).
	ErrTooManyLinks

	// ErrNoRootFilesystem indicates filesystem construction without a root
	// device.
	ErrNoRootFilesystem

	// ErrIO indicates the backing device failed a content operation.
	ErrIO
)

// String returns a human-readable name for the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrNotFound:
		return "NotFound"
	case ErrNotDirectory:
		return "NotDirectory"
	case ErrIsDirectory:
		return "IsDirectory"
	case ErrExists:
		return "Exists"
	case ErrNotEmpty:
		return "NotEmpty"
	case ErrCrossDevice:
		return "CrossDevice"
	case ErrBusy:
		return "Busy"
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrBadFileDescriptor:
		return "BadFileDescriptor"
	case ErrTooManyLinks:
		return "TooManyLinks"
	case ErrNoRootFilesystem:
		return "NoRootFilesystem"
	case ErrIO:
		return "IO"
	default:
		return fmt.Sprintf("Unknown(%d)", int(e))
	}
}

// FsError is a filesystem error carrying a code and the path (or descriptor
// rendering) it applies to.
type FsError struct {
	Code    ErrorCode
	Message string
	Path    string
}

// Error implements the error interface.
func (e *FsError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path: %s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *FsError with the same code, so callers can
// match with errors.Is against sentinel-style values.
func (e *FsError) Is(target error) bool {
	t, ok := target.(*FsError)
	return ok && t.Code == e.Code
}

// CodeOf extracts the ErrorCode from err, or 0 if err is not an *FsError.
func CodeOf(err error) ErrorCode {
	if fe, ok := err.(*FsError); ok {
		return fe.Code
	}
	return 0
}

// ============================================================================
// Factory Functions
// ============================================================================

// NewNotFoundError creates a NotFound error for path.
func NewNotFoundError(path string) *FsError {
	return &FsError{Code: ErrNotFound, Message: "no such file or directory", Path: path}
}

// NewNotDirectoryError creates a NotDirectory error for path.
func NewNotDirectoryError(path string) *FsError {
	return &FsError{Code: ErrNotDirectory, Message: "not a directory", Path: path}
}

// NewIsDirectoryError creates an IsDirectory error for path.
func NewIsDirectoryError(path string) *FsError {
	return &FsError{Code: ErrIsDirectory, Message: "is a directory", Path: path}
}

// NewExistsError creates an Exists error for path.
func NewExistsError(path string) *FsError {
	return &FsError{Code: ErrExists, Message: "file exists", Path: path}
}

// NewNotEmptyError creates a NotEmpty error for path.
func NewNotEmptyError(path string) *FsError {
	return &FsError{Code: ErrNotEmpty, Message: "directory not empty", Path: path}
}

// NewCrossDeviceError creates a CrossDevice error for path.
func NewCrossDeviceError(path string) *FsError {
	return &FsError{Code: ErrCrossDevice, Message: "cross-device link", Path: path}
}

// NewBusyError creates a Busy error for path.
func NewBusyError(path string) *FsError {
	return &FsError{Code: ErrBusy, Message: "device or resource busy", Path: path}
}

// NewInvalidArgumentError creates an InvalidArgument error.
func NewInvalidArgumentError(message, path string) *FsError {
	return &FsError{Code: ErrInvalidArgument, Message: message, Path: path}
}

// NewBadFileDescriptorError creates a BadFileDescriptor error for fd.
func NewBadFileDescriptorError(fd int) *FsError {
	return &FsError{Code: ErrBadFileDescriptor, Message: "bad file descriptor", Path: fmt.Sprintf("fd %d", fd)}
}

// NewTooManyLinksError creates a TooManyLinks error for path.
func NewTooManyLinksError(path string) *FsError {
	return &FsError{Code: ErrTooManyLinks, Message: "too many levels of symbolic links", Path: path}
}

// NewNoRootFilesystemError creates a NoRootFilesystem error.
func NewNoRootFilesystemError() *FsError {
	return &FsError{Code: ErrNoRootFilesystem, Message: "no root filesystem"}
}

// NewIOError creates an IO error wrapping a device failure.
func NewIOError(path string, cause error) *FsError {
	return &FsError{Code: ErrIO, Message: fmt.Sprintf("input/output error: %v", cause), Path: path}
}
