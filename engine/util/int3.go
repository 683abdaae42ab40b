package util

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

type Int3 struct {
	X, Y, Z int32
}

func (i Int3) Add(other Int3) Int3 {
	return Int3{i.X + other.X, i.Y + other.Y, i.Z + other.Z}
}

func (i Int3) Sub(other Int3) Int3 {
	return Int3{i.X - other.X, i.Y - other.Y, i.Z - other.Z}
}

func (i Int3) Mul(factor int32) Int3 {
	return Int3{i.X * factor, i.Y * factor, i.Z * factor}
}

// Div truncates toward zero like the builtin operator.
func (i Int3) Div(factor int32) Int3 {
	return Int3{i.X / factor, i.Y / factor, i.Z / factor}
}

// FloorDiv rounds toward negative infinity.
func (i Int3) FloorDiv(factor int32) Int3 {
	return Int3{FloorDiv(i.X, factor), FloorDiv(i.Y, factor), FloorDiv(i.Z, factor)}
}

// CeilDiv rounds toward positive infinity.
func (i Int3) CeilDiv(factor int32) Int3 {
	return Int3{-FloorDiv(-i.X, factor), -FloorDiv(-i.Y, factor), -FloorDiv(-i.Z, factor)}
}

func (i Int3) Min(other Int3) Int3 {
	return Int3{min(i.X, other.X), min(i.Y, other.Y), min(i.Z, other.Z)}
}

func (i Int3) Max(other Int3) Int3 {
	return Int3{max(i.X, other.X), max(i.Y, other.Y), max(i.Z, other.Z)}
}

func (i Int3) ToVec3() mgl32.Vec3 {
	return mgl32.Vec3{float32(i.X), float32(i.Y), float32(i.Z)}
}

func (i Int3) DistanceSq(other Int3) int64 {
	dx := int64(i.X - other.X)
	dy := int64(i.Y - other.Y)
	dz := int64(i.Z - other.Z)
	return dx*dx + dy*dy + dz*dz
}

func (i Int3) String() string {
	return fmt.Sprintf("(%d, %d, %d)", i.X, i.Y, i.Z)
}

func FloorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
