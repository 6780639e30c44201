// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shader compiles the renderer's WGSL shaders to SPIR-V.
//
// Sources are looked up among the embedded shaders first ("cube.wgsl",
// "overlay.wgsl") and then on disk, relative to the asset directory.
package shader

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sync"

	"github.com/gogpu/naga"

	"github.com/gogpu/cube/asset"
	"github.com/gogpu/cube/gpucore"
)

// ErrCompile is returned when a shader cannot be read or compiled.
var ErrCompile = errors.New("shader: compile failed")

// Compilation targets.
const (
	TargetVertex = "vertex"
	TargetPixel  = "fragment"
)

// Entry points of the embedded shaders.
const (
	VertexEntry = "vs_main"
	PixelEntry  = "fs_main"
)

// Embedded shader names.
const (
	Cube    = "cube.wgsl"
	Overlay = "overlay.wgsl"
)

//go:embed wgsl/*.wgsl
var embedded embed.FS

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

var (
	mu    sync.Mutex
	cache = make(map[string][]byte)
)

// Source returns the WGSL text of sourcePath.
func Source(sourcePath string) (string, error) {
	b, err := fs.ReadFile(embedded, "wgsl/"+sourcePath)
	if err != nil {
		if b, err = os.ReadFile(asset.Path(sourcePath)); err != nil {
			return "", fmt.Errorf("%w: %w", ErrCompile, err)
		}
	}
	return string(b), nil
}

// Compile compiles entryPoint of sourcePath for target. A module is
// compiled once and shared by all of its entry points.
func Compile(sourcePath, entryPoint, target string) (gpucore.ShaderCode, error) {
	src, err := Source(sourcePath)
	if err != nil {
		return gpucore.ShaderCode{}, err
	}
	if err := checkEntry(src, entryPoint, target); err != nil {
		return gpucore.ShaderCode{}, fmt.Errorf("%w: %s: %w", ErrCompile, sourcePath, err)
	}

	mu.Lock()
	defer mu.Unlock()
	spirv, ok := cache[sourcePath]
	if !ok {
		if spirv, err = naga.Compile(src); err != nil {
			return gpucore.ShaderCode{}, fmt.Errorf("%w: %s: %w", ErrCompile, sourcePath, err)
		}
		if len(spirv) < 4 || len(spirv)%4 != 0 || leWord(spirv) != spirvMagic {
			return gpucore.ShaderCode{}, fmt.Errorf("%w: %s: malformed SPIR-V output", ErrCompile, sourcePath)
		}
		cache[sourcePath] = spirv
	}
	return gpucore.ShaderCode{
		EntryPoint: entryPoint,
		Target:     target,
		Bytecode:   spirv,
		Source:     src,
	}, nil
}

func checkEntry(src, entryPoint, target string) error {
	var attr string
	switch target {
	case TargetVertex:
		attr = "@vertex"
	case TargetPixel:
		attr = "@fragment"
	default:
		return fmt.Errorf("unknown target %q", target)
	}
	re := regexp.MustCompile(regexp.QuoteMeta(attr) + `\s+fn\s+` + regexp.QuoteMeta(entryPoint) + `\s*\(`)
	if !re.MatchString(src) {
		return fmt.Errorf("no %s entry point %q", target, entryPoint)
	}
	return nil
}

func leWord(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// Words returns SPIR-V bytecode as little-endian 32-bit words.
func Words(bytecode []byte) []uint32 {
	words := make([]uint32, len(bytecode)/4)
	for i := range words {
		words[i] = leWord(bytecode[i*4:])
	}
	return words
}
