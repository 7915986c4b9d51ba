package checkpoint

import (
	"fmt"
	"sort"
	"strings"
)

// Limits applied while parsing untrusted checkpoint files.
const (
	maxHeaderSize  = 100 << 20 // 100MB
	maxTensorCount = 100_000
	maxNameLen     = 4096
)

// validateHeader rejects headers a well-formed writer could not have
// produced: hostile names, overlapping or out-of-range data regions.
func validateHeader(h *Header, dataSize int64) error {
	if len(h.Tensors) > maxTensorCount {
		return fmt.Errorf("too many tensors: %d (max %d)", len(h.Tensors), maxTensorCount)
	}
	for _, meta := range h.Tensors {
		if err := validateName(meta.Name); err != nil {
			return err
		}
	}
	return validateOffsets(h.Tensors, dataSize)
}

// validateName guards against names crafted to escape into the
// filesystem when a state dict is echoed back out.
func validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrBadTensorName)
	case len(name) > maxNameLen:
		return fmt.Errorf("%w: name longer than %d bytes", ErrBadTensorName, maxNameLen)
	case strings.Contains(name, ".."):
		return fmt.Errorf(`%w: %q contains ".."`, ErrBadTensorName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrBadTensorName, name)
	case strings.Contains(name, "\x00"):
		return fmt.Errorf("%w: %q contains a null byte", ErrBadTensorName, name)
	}
	return nil
}

// validateOffsets checks that every tensor region stays inside the data
// section and that no two regions overlap.
func validateOffsets(tensors []TensorMeta, dataSize int64) error {
	sorted := make([]TensorMeta, len(tensors))
	copy(sorted, tensors)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})

	for i, meta := range sorted {
		if meta.Offset < 0 || meta.Size < 0 {
			return fmt.Errorf("tensor %q: %w: offset=%d size=%d",
				meta.Name, ErrOutOfBounds, meta.Offset, meta.Size)
		}
		if meta.Offset+meta.Size > dataSize {
			return fmt.Errorf("tensor %q: %w: offset %d + size %d > data size %d",
				meta.Name, ErrOutOfBounds, meta.Offset, meta.Size, dataSize)
		}
		if i+1 < len(sorted) {
			next := sorted[i+1]
			if meta.Offset+meta.Size > next.Offset {
				return fmt.Errorf("tensors %q and %q: %w", meta.Name, next.Name, ErrTensorOverlap)
			}
		}
	}
	return nil
}
