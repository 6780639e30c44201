// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package xform provides the float32 vector and matrix math used to place
// the cube. Matrices are column-major and map to clip space with depth in
// [0, 1].
package xform

import "github.com/chewxy/math32"

// Radians converts degrees to radians.
func Radians(degrees float32) float32 { return degrees * math32.Pi / 180 }

// Degrees converts radians to degrees.
func Degrees(radians float32) float32 { return radians * 180 / math32.Pi }

// Vec3 is a 3-component vector.
type Vec3 [3]float32

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]} }

// Dot returns v ⋅ w.
func (v Vec3) Dot(w Vec3) float32 { return v[0]*w[0] + v[1]*w[1] + v[2]*w[2] }

// Cross returns v × w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v[1]*w[2] - v[2]*w[1],
		v[2]*w[0] - v[0]*w[2],
		v[0]*w[1] - v[1]*w[0],
	}
}

// Len returns the length of v.
func (v Vec3) Len() float32 { return math32.Sqrt(v.Dot(v)) }

// Norm returns v scaled to unit length. The zero vector is returned as is.
func (v Vec3) Norm() Vec3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return Vec3{v[0] / l, v[1] / l, v[2] / l}
}

// Vec4 is a 4-component vector.
type Vec4 [4]float32

// Mat4 is a column-major 4x4 matrix: element (row r, column c) is at
// index 4*c+r.
type Mat4 [16]float32

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns m ⋅ n.
func (m Mat4) Mul(n Mat4) Mat4 {
	var r Mat4
	for c := 0; c < 4; c++ {
		for row := 0; row < 4; row++ {
			var s float32
			for k := 0; k < 4; k++ {
				s += m[4*k+row] * n[4*c+k]
			}
			r[4*c+row] = s
		}
	}
	return r
}

// Apply returns m ⋅ v.
func (m Mat4) Apply(v Vec4) Vec4 {
	var r Vec4
	for row := 0; row < 4; row++ {
		r[row] = m[row]*v[0] + m[4+row]*v[1] + m[8+row]*v[2] + m[12+row]*v[3]
	}
	return r
}

// Transpose returns the transpose of m.
func (m Mat4) Transpose() Mat4 {
	var r Mat4
	for c := 0; c < 4; c++ {
		for row := 0; row < 4; row++ {
			r[4*row+c] = m[4*c+row]
		}
	}
	return r
}

// Translation returns a translation by t.
func Translation(t Vec3) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = t[0], t[1], t[2]
	return m
}

// Rotation returns a rotation of angle radians around axis.
func Rotation(axis Vec3, angle float32) Mat4 {
	a := axis.Norm()
	sin, cos := math32.Sin(angle), math32.Cos(angle)
	ic := 1 - cos
	m := Identity()
	m[0] = cos + ic*a[0]*a[0]
	m[1] = ic*a[0]*a[1] + sin*a[2]
	m[2] = ic*a[0]*a[2] - sin*a[1]
	m[4] = ic*a[0]*a[1] - sin*a[2]
	m[5] = cos + ic*a[1]*a[1]
	m[6] = ic*a[1]*a[2] + sin*a[0]
	m[8] = ic*a[0]*a[2] + sin*a[1]
	m[9] = ic*a[1]*a[2] - sin*a[0]
	m[10] = cos + ic*a[2]*a[2]
	return m
}

// Perspective returns a right-handed projection with vertical field of
// view fovY radians. The near plane maps to depth 0, far to depth 1.
func Perspective(fovY, aspect, near, far float32) Mat4 {
	f := 1 / math32.Tan(fovY/2)
	var m Mat4
	m[0] = f / aspect
	m[5] = f
	m[10] = far / (near - far)
	m[11] = -1
	m[14] = near * far / (near - far)
	return m
}

// LookAt returns a right-handed view matrix for a camera at eye looking
// at center.
func LookAt(eye, center, up Vec3) Mat4 {
	f := center.Sub(eye).Norm()
	s := f.Cross(up).Norm()
	u := s.Cross(f)
	return Mat4{
		s[0], u[0], -f[0], 0,
		s[1], u[1], -f[1], 0,
		s[2], u[2], -f[2], 0,
		-s.Dot(eye), -u.Dot(eye), f.Dot(eye), 1,
	}
}
