// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package overlay

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Stats is the per-frame data the overlay shows.
type Stats struct {
	Adapter      string
	Backend      string
	Width        int
	Height       int
	FPS          uint32
	FrameSeconds float64
	Frames       uint64
	Waits        int
	Rebuilds     int
}

// lines formats s for display.
func (s Stats) lines(p *message.Printer) []string {
	ms := 0.0
	if s.FPS > 0 {
		ms = 1000 / float64(s.FPS)
	}
	out := []string{
		p.Sprintf("%s (%s)", s.Adapter, s.Backend),
		p.Sprintf("%dx%d", s.Width, s.Height),
		p.Sprintf("%d fps  %.2f ms", s.FPS, ms),
		p.Sprintf("frame %d  waits %d", s.Frames, s.Waits),
	}
	if s.Rebuilds > 0 {
		out = append(out, p.Sprintf("device rebuilds %d", s.Rebuilds))
	}
	return out
}

func newPrinter(tag language.Tag) *message.Printer {
	if tag == language.Und {
		tag = language.English
	}
	return message.NewPrinter(tag)
}
