package checkpoint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/born-ml/lumen/internal/tensor"
)

const lumenVersion = "0.1.0" // Current Lumen version

// Writer writes .lumen checkpoint files.
type Writer struct {
	file   *os.File
	closed bool
}

// NewWriter creates a .lumen file at path, truncating any existing file.
func NewWriter(path string) (*Writer, error) {
	//nolint:gosec // G304: the caller chooses where checkpoints are saved
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create checkpoint: %w", err)
	}
	return &Writer{file: file}, nil
}

// WriteStateDict writes a state dictionary as a complete .lumen file.
//
// Tensors are laid out in name order, so identical state dicts produce
// byte-identical data sections. The SHA-256 trailer is computed while
// streaming the data out, without a second pass over the file.
func (w *Writer) WriteStateDict(stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		names = append(names, name)
	}
	sort.Strings(names)

	header := Header{
		FormatVersion: FormatVersion,
		LumenVersion:  lumenVersion,
		ModelType:     modelType,
		CreatedAt:     time.Now().UTC(),
		Tensors:       make([]TensorMeta, 0, len(names)),
		Metadata:      metadata,
	}

	var offset int64
	for _, name := range names {
		raw := stateDict[name]
		size := int64(raw.NumElements() * raw.DType().Size())
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  raw.DType().String(),
			Shape:  []int(raw.Shape()),
			Offset: offset,
			Size:   size,
		})
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}

	var flags uint32
	if len(metadata) > 0 {
		flags |= FlagHasMetadata
	}

	prefix := make([]byte, fixedPrefixSize)
	copy(prefix[0:4], Magic)
	binary.LittleEndian.PutUint32(prefix[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(prefix[8:12], flags)
	binary.LittleEndian.PutUint64(prefix[12:20], uint64(len(headerJSON)))

	if _, err := w.file.Write(prefix); err != nil {
		return fmt.Errorf("write prefix: %w", err)
	}
	if _, err := w.file.Write(headerJSON); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if pad := padding(int64(fixedPrefixSize) + int64(len(headerJSON))); pad > 0 {
		if _, err := w.file.Write(make([]byte, pad)); err != nil {
			return fmt.Errorf("write padding: %w", err)
		}
	}

	hash := sha256.New()
	data := io.MultiWriter(w.file, hash)
	for _, name := range names {
		if _, err := data.Write(stateDict[name].Data()); err != nil {
			return fmt.Errorf("write tensor %s: %w", name, err)
		}
	}

	if _, err := w.file.Write(hash.Sum(nil)); err != nil {
		return fmt.Errorf("write checksum: %w", err)
	}
	return nil
}

// Close closes the underlying file. Safe to call more than once.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}
