// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package overlay

import (
	"bytes"
	"fmt"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
)

// placed is a shaped rune with its pen position in pixels.
type placed struct {
	r rune
	x float32
}

// shaper positions overlay lines with HarfBuzz shaping. It is not safe for
// concurrent use.
type shaper struct {
	font *font.Font
	size fixed.Int26_6
	hb   shaping.HarfbuzzShaper
}

func newShaper(size float64) (*shaper, error) {
	face, err := font.ParseTTF(bytes.NewReader(gomono.TTF))
	if err != nil {
		return nil, fmt.Errorf("overlay: parse font for shaping: %w", err)
	}
	return &shaper{font: face.Font, size: fixed.Int26_6(size * 64)}, nil
}

// shape returns the runes of line in visual order with their positions.
func (s *shaper) shape(line string) []placed {
	runes := []rune(line)
	if len(runes) == 0 {
		return nil
	}
	out := s.hb.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      font.NewFace(s.font),
		Size:      s.size,
		Script:    language.Latin,
		Language:  language.NewLanguage("en"),
	})

	glyphs := make([]placed, 0, len(out.Glyphs))
	var pen fixed.Int26_6
	for _, g := range out.Glyphs {
		i := g.TextIndex()
		if i >= 0 && i < len(runes) && runes[i] != ' ' {
			glyphs = append(glyphs, placed{r: runes[i], x: float32(pen+g.XOffset) / 64})
		}
		pen += g.Advance
	}
	return glyphs
}
