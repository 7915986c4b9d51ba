// Package imageio saves and displays rendered images.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"
)

// Save writes img to path, choosing the codec from the extension.
// Unknown extensions default to PNG.
func Save(img image.Image, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save image: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 95})
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	return f.Close()
}

// Grid tiles images into a near-square montage with a small gutter
// between cells. All images should have the same size; smaller ones are
// drawn top-left in their cell.
func Grid(images []image.Image) *image.NRGBA {
	if len(images) == 0 {
		return image.NewNRGBA(image.Rect(0, 0, 1, 1))
	}
	cellW, cellH := 0, 0
	for _, img := range images {
		b := img.Bounds()
		if b.Dx() > cellW {
			cellW = b.Dx()
		}
		if b.Dy() > cellH {
			cellH = b.Dy()
		}
	}

	const gutter = 2
	cols := int(math.Ceil(math.Sqrt(float64(len(images)))))
	rows := (len(images) + cols - 1) / cols

	out := image.NewNRGBA(image.Rect(0, 0,
		cols*cellW+(cols-1)*gutter,
		rows*cellH+(rows-1)*gutter))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	for i, img := range images {
		x := (i % cols) * (cellW + gutter)
		y := (i / cols) * (cellH + gutter)
		target := image.Rect(x, y, x+img.Bounds().Dx(), y+img.Bounds().Dy())
		draw.Draw(out, target, img, img.Bounds().Min, draw.Src)
	}
	return out
}

// View writes img to a temporary PNG and opens it with the platform's
// default viewer.
func View(img image.Image) error {
	f, err := os.CreateTemp("", "lumen-*.png")
	if err != nil {
		return fmt.Errorf("view image: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("view image: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("view image: %w", err)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", f.Name())
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", f.Name())
	default:
		cmd = exec.Command("xdg-open", f.Name())
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("view image: %w", err)
	}
	// The viewer owns the file from here; leave the temp file for it.
	return nil
}

// inlineMaxWidth caps the number of terminal columns an inline preview
// uses.
const inlineMaxWidth = 80

// Inline writes img to w as truecolor ANSI half blocks, two image rows
// per terminal line. Wide images are subsampled to fit.
func Inline(w io.Writer, img image.Image) error {
	b := img.Bounds()
	step := 1
	if b.Dx() > inlineMaxWidth {
		step = (b.Dx() + inlineMaxWidth - 1) / inlineMaxWidth
	}

	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 * step {
		for x := b.Min.X; x < b.Max.X; x += step {
			tr, tg, tb := rgb8(img.At(x, y))
			br, bg, bb := uint8(0), uint8(0), uint8(0)
			if y+step < b.Max.Y {
				br, bg, bb = rgb8(img.At(x, y+step))
			}
			fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀", tr, tg, tb, br, bg, bb)
		}
		sb.WriteString("\x1b[0m\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func rgb8(c color.Color) (uint8, uint8, uint8) {
	r, g, b, _ := c.RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

// IsTerminal reports whether f is attached to an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
