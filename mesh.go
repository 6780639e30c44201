// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cube

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/cube/internal/xform"
)

// vertex is one cube corner: position and texture coordinate.
type vertex struct {
	pos xform.Vec3
	uv  [2]float32
}

const (
	vertexStride  = 20
	constantsSize = 64
)

// cubeFaces lists each face as its four corners, counter-clockwise seen
// from outside, with uv (0,0) at the top left.
var cubeFaces = [6][4]xform.Vec3{
	{{-1, 1, -1}, {1, 1, -1}, {1, 1, 1}, {-1, 1, 1}},     // top
	{{-1, -1, 1}, {1, -1, 1}, {1, -1, -1}, {-1, -1, -1}}, // bottom
	{{-1, 1, 1}, {1, 1, 1}, {1, -1, 1}, {-1, -1, 1}},     // front
	{{1, 1, -1}, {-1, 1, -1}, {-1, -1, -1}, {1, -1, -1}}, // back
	{{-1, 1, -1}, {-1, 1, 1}, {-1, -1, 1}, {-1, -1, -1}}, // left
	{{1, 1, 1}, {1, 1, -1}, {1, -1, -1}, {1, -1, 1}},     // right
}

var faceUV = [4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

// cubeMesh returns 24 vertices and 36 indices.
func cubeMesh() ([]vertex, []uint16) {
	verts := make([]vertex, 0, 24)
	indices := make([]uint16, 0, 36)
	for _, face := range cubeFaces {
		base := uint16(len(verts))
		for i, p := range face {
			verts = append(verts, vertex{pos: p, uv: faceUV[i]})
		}
		indices = append(indices, base, base+2, base+1, base, base+3, base+2)
	}
	return verts, indices
}

func vertexBytes(verts []vertex) []byte {
	out := make([]byte, len(verts)*vertexStride)
	for i, v := range verts {
		f := [5]float32{v.pos[0], v.pos[1], v.pos[2], v.uv[0], v.uv[1]}
		for k, x := range f {
			binary.LittleEndian.PutUint32(out[i*vertexStride+4*k:], math.Float32bits(x))
		}
	}
	return out
}

func indexBytes(indices []uint16) []byte {
	out := make([]byte, 2*len(indices))
	for i, ix := range indices {
		binary.LittleEndian.PutUint16(out[2*i:], ix)
	}
	return out
}

// putMatrix writes m column-major into dst.
func putMatrix(dst []byte, m xform.Mat4) {
	for i, x := range m {
		binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(x))
	}
}
