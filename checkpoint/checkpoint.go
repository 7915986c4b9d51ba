// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package checkpoint reads and writes model weights.
//
// # Overview
//
// The native format is .lumen: a binary container with a JSON header,
// 64-byte-aligned tensor data, and a SHA-256 trailer that is verified
// on open. The package also reads and writes the safetensors format
// for interchange with other ecosystems.
//
// Example usage:
//
//	import (
//	    "github.com/born-ml/lumen/backend/cpu"
//	    "github.com/born-ml/lumen/checkpoint"
//	    "github.com/born-ml/lumen/zoo"
//	)
//
//	backend := cpu.New()
//	model := zoo.ConvNet(backend)
//
//	// Round-trip the weights through a .lumen file.
//	err := checkpoint.Save(model, "convnet.lumen", "convnet", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = checkpoint.Load("convnet.lumen", backend, model)
//
// For partial access, open a Reader and pull individual tensors:
//
//	r, err := checkpoint.NewReader("convnet.lumen")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//	fmt.Println(r.Header().ModelType, r.TensorNames())
package checkpoint

import (
	"github.com/born-ml/lumen/internal/checkpoint"
	"github.com/born-ml/lumen/internal/nn"
	"github.com/born-ml/lumen/internal/tensor"
)

// Format constants for .lumen files.
const (
	// Magic identifies a .lumen checkpoint file.
	Magic = checkpoint.Magic

	// FormatVersion is the current format revision.
	FormatVersion = checkpoint.FormatVersion

	// DataAlignment is the byte boundary the data section starts on.
	DataAlignment = checkpoint.DataAlignment

	// ChecksumSize is the length of the SHA-256 trailer.
	ChecksumSize = checkpoint.ChecksumSize
)

// FlagHasMetadata marks files whose header carries a metadata map.
const FlagHasMetadata = checkpoint.FlagHasMetadata

// Sentinel errors for malformed or corrupted files. Wrapped errors
// from this package match them with errors.Is.
var (
	ErrInvalidMagic       = checkpoint.ErrInvalidMagic
	ErrUnsupportedVersion = checkpoint.ErrUnsupportedVersion
	ErrChecksumMismatch   = checkpoint.ErrChecksumMismatch
	ErrHeaderTooLarge     = checkpoint.ErrHeaderTooLarge
	ErrTruncated          = checkpoint.ErrTruncated
	ErrTensorOverlap      = checkpoint.ErrTensorOverlap
	ErrOutOfBounds        = checkpoint.ErrOutOfBounds
	ErrBadTensorName      = checkpoint.ErrBadTensorName
)

// Header is the JSON metadata block of a .lumen file.
type Header = checkpoint.Header

// TensorMeta describes one tensor in the data section.
type TensorMeta = checkpoint.TensorMeta

// Reader provides random access to the tensors of a .lumen file. The
// checksum is verified when the reader is opened.
//
// Note: Reader is a type alias because its LoadTensor and
// ReadStateDict methods reference internal tensor types that a wrapper
// layer could not abstract away.
type Reader = checkpoint.Reader

// Writer streams a state dict into a new .lumen file.
type Writer = checkpoint.Writer

// Save writes a model's state dict to a .lumen file. The modelType
// string is stored in the header so the file can later be rebuilt
// without knowing the architecture; metadata may be nil.
func Save(model nn.Stateful, path, modelType string, metadata map[string]string) error {
	return checkpoint.Save(model, path, modelType, metadata)
}

// Load reads a .lumen file and loads its tensors into model. The
// model's state dict keys must match the file exactly.
func Load(path string, backend tensor.Backend, model nn.Stateful) error {
	return checkpoint.Load(path, backend, model)
}

// NewReader opens a .lumen file, parses the header, and verifies the
// checksum trailer.
func NewReader(path string) (*Reader, error) {
	return checkpoint.NewReader(path)
}

// NewWriter creates path and returns a Writer for it.
func NewWriter(path string) (*Writer, error) {
	return checkpoint.NewWriter(path)
}

// ImportSafetensors loads weights from a safetensors file into model.
// Keys must match the model's state dict exactly.
func ImportSafetensors(path string, backend tensor.Backend, model nn.Stateful) error {
	return checkpoint.ImportSafetensors(path, backend, model)
}

// ReadSafetensors reads every tensor of a safetensors file into a
// state dict.
func ReadSafetensors(path string, backend tensor.Backend) (map[string]*tensor.RawTensor, error) {
	return checkpoint.ReadSafetensors(path, backend)
}

// WriteSafetensors writes a state dict to path in safetensors format
// for use by other ecosystems. Metadata may be nil.
func WriteSafetensors(path string, stateDict map[string]*tensor.RawTensor, metadata map[string]string) error {
	return checkpoint.WriteSafetensors(path, stateDict, metadata)
}
