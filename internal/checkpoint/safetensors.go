package checkpoint

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/internal/tensor"
)

// Safetensors layout, used to exchange weights with models trained in
// other frameworks:
//
//	[8 bytes: header size (uint64 LE)]
//	[header:  JSON, tensor name -> {dtype, shape, data_offsets}]
//	[data:    raw tensor bytes]
//
// Data offsets in the header are relative to the end of the header. The
// optional "__metadata__" header key holds a string map.

// safetensorInfo describes one tensor in a safetensors header.
type safetensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// ImportSafetensors loads weights from a safetensors file into the
// model, matching tensors by state-dict name.
func ImportSafetensors(path string, backend tensor.Backend, model nn.Stateful) error {
	stateDict, err := ReadSafetensors(path, backend)
	if err != nil {
		return err
	}
	if err := model.LoadStateDict(stateDict); err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	return nil
}

// ReadSafetensors reads every tensor from a safetensors file into a
// state dictionary on the backend's device.
func ReadSafetensors(path string, backend tensor.Backend) (map[string]*tensor.RawTensor, error) {
	//nolint:gosec // G304: the caller chooses which weights to import
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open safetensors: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("read header size: %w", err)
	}
	if headerSize > maxHeaderSize {
		return nil, ErrHeaderTooLarge
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerJSON); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var rawHeader map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &rawHeader); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}

	//nolint:gosec // G115: headerSize is capped at maxHeaderSize above
	dataOffset := int64(8 + headerSize)

	stateDict := make(map[string]*tensor.RawTensor, len(rawHeader))
	for name, entry := range rawHeader {
		if name == "__metadata__" {
			continue
		}
		var info safetensorInfo
		if err := json.Unmarshal(entry, &info); err != nil {
			return nil, fmt.Errorf("tensor %s: parse header entry: %w", name, err)
		}
		raw, err := loadSafetensor(file, dataOffset, name, info, backend)
		if err != nil {
			return nil, err
		}
		stateDict[name] = raw
	}
	return stateDict, nil
}

// loadSafetensor reads a single tensor described by a header entry
// directly into a freshly allocated RawTensor.
func loadSafetensor(file *os.File, dataOffset int64, name string, info safetensorInfo, backend tensor.Backend) (*tensor.RawTensor, error) {
	dtype, ok := safetensorsDType(info.DType)
	if !ok {
		return nil, fmt.Errorf("tensor %s: unsupported dtype %q", name, info.DType)
	}
	shape := tensor.Shape(info.Shape)
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("tensor %s: invalid shape: %w", name, err)
	}

	start, end := info.DataOffsets[0], info.DataOffsets[1]
	if start < 0 || end < start {
		return nil, fmt.Errorf("tensor %s: invalid data offsets [%d, %d]", name, start, end)
	}
	if want := int64(shape.NumElements() * dtype.Size()); want != end-start {
		return nil, fmt.Errorf("tensor %s: %d bytes does not match shape %v (%d bytes)",
			name, end-start, shape, want)
	}

	if _, err := file.Seek(dataOffset+start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("tensor %s: seek: %w", name, err)
	}
	raw, err := tensor.NewRaw(shape, dtype, backend.Device())
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	if _, err := io.ReadFull(file, raw.Data()); err != nil {
		return nil, fmt.Errorf("tensor %s: read data: %w", name, err)
	}
	return raw, nil
}

// WriteSafetensors writes a state dictionary as a safetensors file.
// Tensors are written in name order, as the format requires. metadata is
// optional and may be nil.
func WriteSafetensors(path string, stateDict map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	if len(metadata) > 0 {
		header["__metadata__"] = metadata
	}
	var offset int64
	for _, name := range names {
		raw := stateDict[name]
		size := int64(raw.NumElements() * raw.DType().Size())
		header[name] = safetensorInfo{
			DType:       dtypeToSafetensors(raw.DType()),
			Shape:       []int(raw.Shape()),
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}

	//nolint:gosec // G304: the caller chooses where to export weights
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create safetensors: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	if err := binary.Write(file, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("write header size: %w", err)
	}
	if _, err := file.Write(headerJSON); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, name := range names {
		if _, err := file.Write(stateDict[name].Data()); err != nil {
			return fmt.Errorf("write tensor %s: %w", name, err)
		}
	}
	return file.Close()
}

// dtypeToSafetensors maps an engine dtype to its safetensors name.
func dtypeToSafetensors(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return "F32"
	case tensor.Float64:
		return "F64"
	case tensor.Int32:
		return "I32"
	case tensor.Uint8:
		return "U8"
	case tensor.Bool:
		return "BOOL"
	default:
		return "F32"
	}
}

// safetensorsDType maps a safetensors dtype name to an engine dtype.
// F16 and BF16 are not supported; the engine has no half-precision
// representation.
func safetensorsDType(s string) (tensor.DataType, bool) {
	switch s {
	case "F32":
		return tensor.Float32, true
	case "F64":
		return tensor.Float64, true
	case "I32":
		return tensor.Int32, true
	case "U8":
		return tensor.Uint8, true
	case "BOOL":
		return tensor.Bool, true
	default:
		return 0, false
	}
}
