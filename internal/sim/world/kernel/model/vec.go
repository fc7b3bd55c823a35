package model

import "fmt"

type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func (v Vec3i) Add(d Vec3i) Vec3i { return Vec3i{X: v.X + d.X, Y: v.Y + d.Y, Z: v.Z + d.Z} }

func (v Vec3i) String() string { return fmt.Sprintf("%d,%d,%d", v.X, v.Y, v.Z) }

func Manhattan(a, b Vec3i) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	dz := a.Z - b.Z
	if dz < 0 {
		dz = -dz
	}
	return dx + dy + dz
}

// Faces are the six block-face offsets in a fixed order.
var Faces = []Vec3i{
	{X: 1, Y: 0, Z: 0},
	{X: -1, Y: 0, Z: 0},
	{X: 0, Y: 1, Z: 0},
	{X: 0, Y: -1, Z: 0},
	{X: 0, Y: 0, Z: 1},
	{X: 0, Y: 0, Z: -1},
}

func FromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

func (v Vec3i) Manhattan(o Vec3i) int { return Manhattan(v, o) }
