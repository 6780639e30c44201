// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{G: 255, A: 255})
	img.Set(2, 1, color.NRGBA{B: 255, A: 255})
	return img
}

func TestDecodeFormats(t *testing.T) {
	tests := []struct {
		name   string
		encode func(*bytes.Buffer, image.Image) error
	}{
		{"png", func(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) }},
		{"bmp", func(b *bytes.Buffer, img image.Image) error { return bmp.Encode(b, img) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf, testImage()); err != nil {
				t.Fatal(err)
			}
			img, err := Decode(&buf)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if img.Width != 3 || img.Height != 2 || img.BytesPerPixel != 4 {
				t.Fatalf("expected 3x2x4, got %dx%dx%d", img.Width, img.Height, img.BytesPerPixel)
			}
			if len(img.Pix) != 3*2*4 {
				t.Fatalf("expected %d bytes, got %d", 3*2*4, len(img.Pix))
			}
			if got := img.Pix[4:8]; !bytes.Equal(got, []byte{0, 255, 0, 255}) {
				t.Errorf("pixel (1,0): expected green, got %v", got)
			}
			if got := img.Pix[(1*3+2)*4:][:4]; !bytes.Equal(got, []byte{0, 0, 255, 255}) {
				t.Errorf("pixel (2,1): expected blue, got %v", got)
			}
		})
	}
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not an image")))
	if !errors.Is(err, ErrLoad) {
		t.Errorf("expected ErrLoad, got %v", err)
	}
}

func TestFromImageOffsetBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src.Set(2, 2, color.RGBA{R: 9, A: 255})
	sub := src.SubImage(image.Rect(2, 2, 4, 4))
	img := FromImage(sub)
	if img.Width != 2 || img.Height != 2 || len(img.Pix) != 16 {
		t.Fatalf("expected packed 2x2, got %dx%d with %d bytes", img.Width, img.Height, len(img.Pix))
	}
	if img.Pix[0] != 9 {
		t.Errorf("expected first pixel red 9, got %d", img.Pix[0])
	}
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	old := Dir
	Dir = dir
	defer func() { Dir = old }()

	f, err := os.Create(filepath.Join(dir, "cube.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, testImage()); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := LoadImage("cube.png")
	if err != nil {
		t.Fatalf("LoadImage() error = %v", err)
	}
	if img.Width != 3 || img.Height != 2 {
		t.Errorf("expected 3x2, got %dx%d", img.Width, img.Height)
	}

	if _, err := LoadImage("missing.png"); !errors.Is(err, ErrLoad) {
		t.Errorf("expected ErrLoad for missing file, got %v", err)
	}
}

func TestPath(t *testing.T) {
	old := Dir
	Dir = "/opt/cube"
	defer func() { Dir = old }()

	if got := Path("tex.png"); got != filepath.Join("/opt/cube", "tex.png") {
		t.Errorf("Path(rel) = %q", got)
	}
	abs := filepath.Join(t.TempDir(), "tex.png")
	if got := Path(abs); got != abs {
		t.Errorf("Path(abs) = %q, want %q", got, abs)
	}
}

func TestCheckerboardRoundTrip(t *testing.T) {
	img := Checkerboard(8, 8, 2)
	if img.Pix[0] != 0xf0 || img.Pix[2*4] != 0x30 {
		t.Errorf("unexpected checker pattern %v", img.Pix[:12])
	}
	var buf bytes.Buffer
	if err := WritePNG(&buf, img); err != nil {
		t.Fatal(err)
	}
	back, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(back.Pix, img.Pix) {
		t.Error("expected PNG round trip to preserve pixels")
	}
}
