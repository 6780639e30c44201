// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package overlay

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/cube/asset"
)

// First and last rune in the atlas. Other runes draw as '?'.
const (
	firstRune = ' '
	lastRune  = '~'
	columns   = 16
)

// atlas is a grid of equally sized cells holding the printable ASCII
// glyphs of a monospaced face. Coverage is stored in alpha over white.
type atlas struct {
	img    asset.Image
	cellW  int
	cellH  int
	ascent int
}

func newAtlas(size float64) (*atlas, error) {
	f, err := opentype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("overlay: parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("overlay: font face: %w", err)
	}
	defer face.Close()

	m := face.Metrics()
	adv, _ := face.GlyphAdvance('M')
	a := &atlas{
		cellW:  adv.Ceil(),
		cellH:  (m.Ascent + m.Descent).Ceil(),
		ascent: m.Ascent.Ceil(),
	}
	n := int(lastRune-firstRune) + 1
	rows := (n + columns - 1) / columns
	mask := image.NewAlpha(image.Rect(0, 0, columns*a.cellW, rows*a.cellH))

	d := &font.Drawer{Dst: mask, Src: image.Opaque, Face: face}
	for r := firstRune; r <= lastRune; r++ {
		x, y := a.origin(r)
		d.Dot = fixed.P(x, y+a.ascent)
		d.DrawString(string(r))
	}

	b := mask.Bounds()
	a.img = asset.Image{
		Width:         b.Dx(),
		Height:        b.Dy(),
		BytesPerPixel: asset.BytesPerPixel,
		Pix:           make([]byte, b.Dx()*b.Dy()*asset.BytesPerPixel),
	}
	for i, cov := range mask.Pix {
		a.img.Pix[4*i+0] = 0xff
		a.img.Pix[4*i+1] = 0xff
		a.img.Pix[4*i+2] = 0xff
		a.img.Pix[4*i+3] = cov
	}
	return a, nil
}

// origin returns the top-left pixel of r's cell.
func (a *atlas) origin(r rune) (x, y int) {
	if r < firstRune || r > lastRune {
		r = '?'
	}
	i := int(r - firstRune)
	return (i % columns) * a.cellW, (i / columns) * a.cellH
}

// uv returns the normalized texture rectangle of r's cell.
func (a *atlas) uv(r rune) (u0, v0, u1, v1 float32) {
	x, y := a.origin(r)
	w, h := float32(a.img.Width), float32(a.img.Height)
	return float32(x) / w, float32(y) / h, float32(x+a.cellW) / w, float32(y+a.cellH) / h
}
