package checkpoint

import (
	"time"

	"github.com/born-ml/lumen/internal/tensor"
)

// Format constants for .lumen files.
const (
	// Magic identifies a .lumen checkpoint file.
	Magic = "LUMN"

	// FormatVersion is the current format revision.
	FormatVersion = 1

	// DataAlignment is the byte boundary the data section starts on, so
	// tensor buffers can be reinterpreted as typed slices without copies.
	DataAlignment = 64

	// ChecksumSize is the length of the SHA-256 trailer.
	ChecksumSize = 32
)

// fixedPrefixSize is the byte length of the fields before the JSON
// header: magic, version, flags, header size.
const fixedPrefixSize = 4 + 4 + 4 + 8

// FlagHasMetadata marks files whose header carries a metadata map.
// Remaining flag bits are reserved.
const FlagHasMetadata uint32 = 1 << 0

// Header is the JSON metadata block of a .lumen file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	LumenVersion  string            `json:"lumen_version"`
	ModelType     string            `json:"model_type"`
	CreatedAt     time.Time         `json:"created_at"`
	Tensors       []TensorMeta      `json:"tensors"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// TensorMeta describes one tensor in the data section. Offset is
// relative to the start of the data section, not the file.
type TensorMeta struct {
	Name   string `json:"name"`
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
}

// padding returns the zero bytes needed after pos to reach the next
// DataAlignment boundary.
func padding(pos int64) int64 {
	return (DataAlignment - pos%DataAlignment) % DataAlignment
}

// parseDType maps a header dtype string back to a tensor.DataType.
// The forward direction is tensor.DataType.String.
func parseDType(s string) (tensor.DataType, bool) {
	switch s {
	case "float32":
		return tensor.Float32, true
	case "float64":
		return tensor.Float64, true
	case "int32":
		return tensor.Int32, true
	case "uint8":
		return tensor.Uint8, true
	case "bool":
		return tensor.Bool, true
	default:
		return 0, false
	}
}
