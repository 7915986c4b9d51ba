// Package checkpoint saves and loads model weights.
//
// The native .lumen format is a small binary container:
//
//	[4 bytes:  magic "LUMN"]
//	[4 bytes:  format version (uint32 LE)]
//	[4 bytes:  flags (uint32 LE)]
//	[8 bytes:  header size (uint64 LE)]
//	[header:   JSON (model type, creation time, tensor metadata)]
//	[padding:  zeros up to a 64-byte boundary]
//	[data:     raw tensor bytes, tightly packed in header order]
//	[trailer:  SHA-256 of the data section (32 bytes)]
//
// NewReader verifies the trailer and validates the header on open, so a
// corrupted or malformed file is rejected before any tensor reaches a
// model. Save and Load move whole models through their state dicts:
//
//	if err := checkpoint.Save(model, "weights.lumen", "convnet", nil); err != nil {
//	    log.Fatal(err)
//	}
//	if err := checkpoint.Load("weights.lumen", backend, model); err != nil {
//	    log.Fatal(err)
//	}
//
// The package also reads and writes the safetensors layout for
// exchanging weights with models trained in other frameworks.
package checkpoint
