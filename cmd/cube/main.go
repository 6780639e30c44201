// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command cube renders the spinning cube headlessly for a number of frames
// and optionally writes the last frame to a PNG file.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/gogpu/cube"
	"github.com/gogpu/cube/asset"
	"github.com/gogpu/cube/backend"

	// Backends register themselves on import.
	_ "github.com/gogpu/cube/backend/native"
	_ "github.com/gogpu/cube/backend/sim"
)

// headless is a window without a surface.
type headless struct{ width, height int }

func (headless) Handle() uintptr                   { return 0 }
func (w headless) ClientSize() (width, height int) { return w.width, w.height }

func main() {
	var (
		width    = flag.Int("width", 800, "back buffer width")
		height   = flag.Int("height", 600, "back buffer height")
		frames   = flag.Int("frames", 120, "frames to render")
		name     = flag.String("backend", "", "backend to use ("+strings.Join(backend.Available(), ", ")+"); empty picks the best")
		vsync    = flag.Bool("vsync", false, "present with vertical sync")
		debug    = flag.Bool("debug", false, "enable validation and allow software adapters")
		highPerf = flag.Bool("high-performance", true, "prefer discrete GPUs")
		texture  = flag.String("texture", "", "cube texture image; empty uses a checkerboard")
		overlay  = flag.Bool("overlay", true, "draw the frame statistics overlay")
		output   = flag.String("output", "", "write the last frame to this PNG file")
		verbose  = flag.Bool("v", false, "log at debug level")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	cube.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	opts := []cube.Option{
		cube.WithSize(*width, *height),
		cube.WithBackend(*name),
		cube.WithVSync(*vsync),
		cube.WithDebug(*debug),
		cube.WithHighPerformance(*highPerf),
		cube.WithOverlay(*overlay),
	}
	if *texture != "" {
		opts = append(opts, cube.WithTexture(*texture))
	}
	if err := run(cube.New(opts...), headless{*width, *height}, *frames, *output); err != nil {
		log.Fatal(err)
	}
}

func run(a *cube.App, w headless, frames int, output string) (err error) {
	if err := a.OnInit(w); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer func() {
		if derr := a.OnDestroy(); err == nil {
			err = derr
		}
	}()
	if p, ok := a.DeviceProvider(); ok {
		info := p.AdapterInfo()
		log.Printf("GPU device shareable: %s (%s)", info.Name, info.Type)
	}

	for i := 0; i < frames; i++ {
		if err := a.OnTick(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	for _, line := range a.OverlayText() {
		log.Print(line)
	}
	if output == "" {
		return nil
	}

	img, err := a.Capture()
	if err != nil {
		return err
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := asset.WritePNG(f, img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("Frame saved to %s (%dx%d)", output, img.Width, img.Height)
	return nil
}
