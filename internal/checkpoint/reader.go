package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/lumen/internal/tensor"
)

// Reader reads .lumen checkpoint files.
//
// NewReader parses and validates the header and verifies the SHA-256
// trailer against the data section, so a successfully opened reader is
// known to be structurally sound.
type Reader struct {
	file       *os.File
	header     Header
	flags      uint32
	dataOffset int64
	dataSize   int64
	closed     bool
}

// NewReader opens the .lumen file at path and verifies its integrity.
func NewReader(path string) (*Reader, error) {
	//nolint:gosec // G304: the caller chooses which checkpoint to load
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}

	r := &Reader{file: file}
	if err := r.parse(); err != nil {
		_ = file.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) parse() error {
	info, err := r.file.Stat()
	if err != nil {
		return fmt.Errorf("stat checkpoint: %w", err)
	}
	fileSize := info.Size()
	if fileSize < fixedPrefixSize+ChecksumSize {
		return ErrTruncated
	}

	prefix := make([]byte, fixedPrefixSize)
	if _, err := io.ReadFull(r.file, prefix); err != nil {
		return fmt.Errorf("read prefix: %w", err)
	}
	if string(prefix[0:4]) != Magic {
		return ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(prefix[4:8]); v != FormatVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, v, FormatVersion)
	}
	r.flags = binary.LittleEndian.Uint32(prefix[8:12])

	headerSize := binary.LittleEndian.Uint64(prefix[12:20])
	if headerSize > maxHeaderSize {
		return ErrHeaderTooLarge
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r.file, headerJSON); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(headerJSON, &r.header); err != nil {
		return fmt.Errorf("parse header: %w", err)
	}

	//nolint:gosec // G115: headerSize is capped at maxHeaderSize above
	headerEnd := int64(fixedPrefixSize) + int64(headerSize)
	r.dataOffset = headerEnd + padding(headerEnd)
	r.dataSize = fileSize - r.dataOffset - ChecksumSize
	if r.dataSize < 0 {
		return ErrTruncated
	}

	if err := validateHeader(&r.header, r.dataSize); err != nil {
		return err
	}
	return r.verifyChecksum()
}

// verifyChecksum hashes the data section and compares it against the
// stored trailer.
func (r *Reader) verifyChecksum() error {
	if _, err := r.file.Seek(r.dataOffset, io.SeekStart); err != nil {
		return fmt.Errorf("seek data section: %w", err)
	}
	hash := sha256.New()
	if _, err := io.CopyN(hash, r.file, r.dataSize); err != nil {
		return fmt.Errorf("hash data section: %w", err)
	}
	stored := make([]byte, ChecksumSize)
	if _, err := io.ReadFull(r.file, stored); err != nil {
		return fmt.Errorf("read checksum: %w", err)
	}
	if !bytes.Equal(hash.Sum(nil), stored) {
		return ErrChecksumMismatch
	}
	return nil
}

// Header returns the parsed file header.
func (r *Reader) Header() Header {
	return r.header
}

// Metadata returns the free-form metadata map from the header, which may
// be nil.
func (r *Reader) Metadata() map[string]string {
	return r.header.Metadata
}

// TensorNames returns the names of all tensors in the file, in header
// order.
func (r *Reader) TensorNames() []string {
	names := make([]string, len(r.header.Tensors))
	for i, meta := range r.header.Tensors {
		names[i] = meta.Name
	}
	return names
}

// TensorInfo returns the metadata describing a single tensor.
func (r *Reader) TensorInfo(name string) (*TensorMeta, error) {
	for i := range r.header.Tensors {
		if r.header.Tensors[i].Name == name {
			return &r.header.Tensors[i], nil
		}
	}
	return nil, fmt.Errorf("tensor %q not found", name)
}

// ReadTensorData returns the raw bytes of one tensor.
func (r *Reader) ReadTensorData(name string) ([]byte, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}
	meta, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}
	if _, err := r.file.Seek(r.dataOffset+meta.Offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek tensor %s: %w", name, err)
	}
	data := make([]byte, meta.Size)
	if _, err := io.ReadFull(r.file, data); err != nil {
		return nil, fmt.Errorf("read tensor %s: %w", name, err)
	}
	return data, nil
}

// LoadTensor reads one tensor into a RawTensor on the backend's device.
func (r *Reader) LoadTensor(name string, backend tensor.Backend) (*tensor.RawTensor, error) {
	meta, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	dtype, ok := parseDType(meta.DType)
	if !ok {
		return nil, fmt.Errorf("tensor %s: unsupported dtype %q", name, meta.DType)
	}
	shape := tensor.Shape(meta.Shape)
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("tensor %s: invalid shape: %w", name, err)
	}
	if want := int64(shape.NumElements() * dtype.Size()); want != meta.Size {
		return nil, fmt.Errorf("tensor %s: %d bytes does not match shape %v (%d bytes)",
			name, meta.Size, shape, want)
	}

	data, err := r.ReadTensorData(name)
	if err != nil {
		return nil, err
	}
	raw, err := tensor.NewRaw(shape, dtype, backend.Device())
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	copy(raw.Data(), data)
	return raw, nil
}

// ReadStateDict loads every tensor in the file into a state dictionary.
func (r *Reader) ReadStateDict(backend tensor.Backend) (map[string]*tensor.RawTensor, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}
	stateDict := make(map[string]*tensor.RawTensor, len(r.header.Tensors))
	for _, meta := range r.header.Tensors {
		raw, err := r.LoadTensor(meta.Name, backend)
		if err != nil {
			return nil, err
		}
		stateDict[meta.Name] = raw
	}
	return stateDict, nil
}

// Close closes the underlying file. Safe to call more than once.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}
