// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package asset loads the images the renderer samples.
//
// PNG, JPEG, GIF, BMP, TIFF and WebP are decoded. Every image is converted
// to tightly packed 8-bit RGBA, which is the only texture format the
// renderer uploads.
package asset

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrLoad is returned when an asset cannot be read or decoded.
var ErrLoad = errors.New("asset: load failed")

// BytesPerPixel is the pixel size of every loaded Image.
const BytesPerPixel = 4

// Image is decoded RGBA8 pixel data.
type Image struct {
	Width         int
	Height        int
	BytesPerPixel int
	Pix           []byte
}

// RowPitch returns the number of bytes per row.
func (img Image) RowPitch() int { return img.Width * img.BytesPerPixel }

// RGBA returns the pixels as an *image.RGBA sharing Pix.
func (img Image) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    img.Pix,
		Stride: img.RowPitch(),
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}
}

// Dir is the directory relative paths are resolved against. It defaults
// to the directory of the running executable.
var Dir = executableDir()

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// Path resolves name against Dir unless it is absolute.
func Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(Dir, name)
}

// LoadImage decodes the image at path, resolved with Path.
func LoadImage(path string) (Image, error) {
	f, err := os.Open(Path(path))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer f.Close()
	img, err := Decode(f)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %s", err, path)
	}
	return img, nil
}

// Decode decodes an image in any registered format.
func Decode(r io.Reader) (Image, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return Image{}, fmt.Errorf("%w: decode: %w", ErrLoad, err)
	}
	b := src.Bounds()
	if b.Empty() {
		return Image{}, fmt.Errorf("%w: empty %s image", ErrLoad, format)
	}
	return FromImage(src), nil
}

// FromImage converts any image to RGBA8.
func FromImage(src image.Image) Image {
	b := src.Bounds()
	rgba, ok := src.(*image.RGBA)
	if !ok || rgba.Stride != b.Dx()*BytesPerPixel || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	}
	return Image{
		Width:         b.Dx(),
		Height:        b.Dy(),
		BytesPerPixel: BytesPerPixel,
		Pix:           rgba.Pix,
	}
}

// Checkerboard returns a width x height image of two-color squares of
// size cell, used when no texture file is configured.
func Checkerboard(width, height, cell int) Image {
	img := Image{Width: width, Height: height, BytesPerPixel: BytesPerPixel,
		Pix: make([]byte, width*height*BytesPerPixel)}
	cell = max(cell, 1)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c byte = 0x30
			if (x/cell+y/cell)%2 == 0 {
				c = 0xf0
			}
			i := (y*width + x) * BytesPerPixel
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c, c, c, 0xff
		}
	}
	return img
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img Image) error {
	return png.Encode(w, img.RGBA())
}
