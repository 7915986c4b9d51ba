package checkpoint

import "errors"

// Sentinel errors returned while parsing checkpoint files.
var (
	ErrInvalidMagic       = errors.New("not a .lumen file (bad magic bytes)")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrTruncated          = errors.New("file truncated")
	ErrTensorOverlap      = errors.New("tensor data regions overlap")
	ErrOutOfBounds        = errors.New("tensor extends beyond data section")
	ErrBadTensorName      = errors.New("invalid tensor name")
)
