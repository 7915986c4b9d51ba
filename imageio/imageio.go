// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package imageio saves and displays rendered images.
//
// # Overview
//
// The package covers the output side of a render: writing images to
// disk, tiling a batch into a single contact sheet, opening the
// platform image viewer, and drawing a coarse ANSI preview straight
// into a terminal.
//
//	img := snapshots[len(snapshots)-1].Image(0)
//	if err := imageio.Save(img, "channel-7.png"); err != nil {
//	    log.Fatal(err)
//	}
package imageio

import (
	"image"
	"io"
	"os"

	"github.com/born-ml/lumen/internal/imageio"
)

// Save writes img to path, choosing the codec from the file
// extension (.png, .jpg, .jpeg). Unknown extensions default to PNG.
// Missing parent directories are created.
func Save(img image.Image, path string) error {
	return imageio.Save(img, path)
}

// Grid tiles a batch of equally sized images into one image, laid out
// in a near-square grid with a thin separator between cells.
func Grid(images []image.Image) *image.NRGBA {
	return imageio.Grid(images)
}

// View writes img to a temporary file and opens it with the platform
// image viewer. It returns an error when no viewer can be launched,
// which callers typically downgrade to a warning.
func View(img image.Image) error {
	return imageio.View(img)
}

// Inline draws a coarse preview of img into w using ANSI background
// colors, two pixels per character cell. It is meant for terminals
// that support 24-bit color.
func Inline(w io.Writer, img image.Image) error {
	return imageio.Inline(w, img)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return imageio.IsTerminal(f)
}
