// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package xform

import (
	"testing"

	"github.com/chewxy/math32"
)

const eps = 1e-5

func near(a, b float32) bool { return math32.Abs(a-b) < eps }

func nearVec(a, b Vec4) bool {
	for i := range a {
		if !near(a[i], b[i]) {
			return false
		}
	}
	return true
}

func TestRadiansDegrees(t *testing.T) {
	if got := Radians(180); !near(got, math32.Pi) {
		t.Errorf("Radians(180) = %v, want %v", got, math32.Pi)
	}
	if got := Degrees(math32.Pi / 2); !near(got, 90) {
		t.Errorf("Degrees(pi/2) = %v, want 90", got)
	}
}

func TestMulIdentity(t *testing.T) {
	m := Rotation(Vec3{1, 2, 3}, 0.7).Mul(Translation(Vec3{4, 5, 6}))
	if got := Identity().Mul(m); got != m {
		t.Errorf("I*m = %v, want %v", got, m)
	}
	if got := m.Mul(Identity()); got != m {
		t.Errorf("m*I = %v, want %v", got, m)
	}
}

func TestMulOrder(t *testing.T) {
	// Translation after rotation: the point is rotated first.
	m := Translation(Vec3{10, 0, 0}).Mul(Rotation(Vec3{0, 0, 1}, math32.Pi/2))
	got := m.Apply(Vec4{1, 0, 0, 1})
	want := Vec4{10, 1, 0, 1}
	if !nearVec(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRotation(t *testing.T) {
	tests := []struct {
		name string
		axis Vec3
		in   Vec4
		want Vec4
	}{
		{"z axis", Vec3{0, 0, 1}, Vec4{1, 0, 0, 1}, Vec4{0, 1, 0, 1}},
		{"y axis", Vec3{0, 1, 0}, Vec4{0, 0, 1, 1}, Vec4{1, 0, 0, 1}},
		{"x axis unnormalized", Vec3{5, 0, 0}, Vec4{0, 1, 0, 1}, Vec4{0, 0, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rotation(tt.axis, math32.Pi/2).Apply(tt.in)
			if !nearVec(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	p := Perspective(Radians(60), 4.0/3, 0.1, 100)
	for _, tt := range []struct {
		z     float32
		depth float32
	}{
		{-0.1, 0},
		{-100, 1},
	} {
		v := p.Apply(Vec4{0, 0, tt.z, 1})
		if d := v[2] / v[3]; !near(d, tt.depth) {
			t.Errorf("z=%v: expected depth %v, got %v", tt.z, tt.depth, d)
		}
	}
}

func TestLookAt(t *testing.T) {
	v := LookAt(Vec3{0, 0, 5}, Vec3{}, Vec3{0, 1, 0})
	got := v.Apply(Vec4{0, 0, 0, 1})
	want := Vec4{0, 0, -5, 1}
	if !nearVec(got, want) {
		t.Errorf("expected origin at %v, got %v", want, got)
	}
}

func TestTranspose(t *testing.T) {
	m := Translation(Vec3{1, 2, 3})
	tr := m.Transpose()
	if tr[3] != 1 || tr[7] != 2 || tr[11] != 3 {
		t.Errorf("unexpected transpose %v", tr)
	}
	if tr.Transpose() != m {
		t.Error("expected double transpose to be identity")
	}
}
