package util

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

var ErrDegenerateAABB = errors.New("degenerate bounding box")

// AABB is a float box. Intersects and Contains treat both bounds as inclusive.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func NewAABB(min, max mgl32.Vec3) (AABB, error) {
	for i := 0; i < 3; i++ {
		if max[i] <= min[i] {
			return AABB{}, errors.Wrapf(ErrDegenerateAABB, "min %v, max %v", min, max)
		}
	}
	return AABB{Min: min, Max: max}, nil
}

// NewAABBCenter builds a cube with the given edge length around center.
func NewAABBCenter(center mgl32.Vec3, size float32) AABB {
	half := mgl32.Vec3{size / 2, size / 2, size / 2}
	return AABB{Min: center.Sub(half), Max: center.Add(half)}
}

func (a AABB) Center() mgl32.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

func (a AABB) Size() mgl32.Vec3 {
	return a.Max.Sub(a.Min)
}

func (a AABB) Inflate(amount float32) AABB {
	grow := mgl32.Vec3{amount, amount, amount}
	return AABB{Min: a.Min.Sub(grow), Max: a.Max.Add(grow)}
}

func (a AABB) Intersects(other AABB) bool {
	return a.Min.X() <= other.Max.X() && a.Max.X() >= other.Min.X() &&
		a.Min.Y() <= other.Max.Y() && a.Max.Y() >= other.Min.Y() &&
		a.Min.Z() <= other.Max.Z() && a.Max.Z() >= other.Min.Z()
}

func (a AABB) Contains(other AABB) bool {
	return a.ContainsPoint(other.Min) && a.ContainsPoint(other.Max)
}

func (a AABB) ContainsPoint(vec3 mgl32.Vec3) bool {
	return vec3.X() >= a.Min.X() && vec3.X() <= a.Max.X() &&
		vec3.Y() >= a.Min.Y() && vec3.Y() <= a.Max.Y() &&
		vec3.Z() >= a.Min.Z() && vec3.Z() <= a.Max.Z()
}

// ClosestPoint clamps p onto the box.
func (a AABB) ClosestPoint(p mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		Clamp(p.X(), a.Min.X(), a.Max.X()),
		Clamp(p.Y(), a.Min.Y(), a.Max.Y()),
		Clamp(p.Z(), a.Min.Z(), a.Max.Z()),
	}
}

func (a AABB) String() string {
	return fmt.Sprintf("AABB[%v -> %v]", a.Min, a.Max)
}

// IAabb is an integer box covering the half-open range [Min, Max) on every axis.
// Two boxes that only share a face do not intersect.
type IAabb struct {
	Min Int3
	Max Int3
}

// NewIAabb builds the cube [origin, origin+size).
func NewIAabb(origin Int3, size int32) IAabb {
	return IAabb{Min: origin, Max: origin.Add(Int3{size, size, size})}
}

func NewIAabbRect(min, max Int3) (IAabb, error) {
	if max.X <= min.X || max.Y <= min.Y || max.Z <= min.Z {
		return IAabb{}, errors.Wrapf(ErrDegenerateAABB, "min %v, max %v", min, max)
	}
	return IAabb{Min: min, Max: max}, nil
}

// IAabbFromAABB rounds outward so the integer box never under-covers the float box.
func IAabbFromAABB(box AABB) IAabb {
	return IAabb{
		Min: Int3{int32(Floor(box.Min.X())), int32(Floor(box.Min.Y())), int32(Floor(box.Min.Z()))},
		Max: Int3{int32(Ceil(box.Max.X())), int32(Ceil(box.Max.Y())), int32(Ceil(box.Max.Z()))},
	}
}

func (b IAabb) Intersects(other IAabb) bool {
	return b.Min.X < other.Max.X && b.Max.X > other.Min.X &&
		b.Min.Y < other.Max.Y && b.Max.Y > other.Min.Y &&
		b.Min.Z < other.Max.Z && b.Max.Z > other.Min.Z
}

// Intersection returns false when the overlap has no volume.
func (b IAabb) Intersection(other IAabb) (IAabb, bool) {
	overlap := IAabb{Min: b.Min.Max(other.Min), Max: b.Max.Min(other.Max)}
	if overlap.IsEmpty() {
		return IAabb{}, false
	}
	return overlap, true
}

func (b IAabb) Contains(other IAabb) bool {
	return other.Min.X >= b.Min.X && other.Max.X <= b.Max.X &&
		other.Min.Y >= b.Min.Y && other.Max.Y <= b.Max.Y &&
		other.Min.Z >= b.Min.Z && other.Max.Z <= b.Max.Z
}

func (b IAabb) ContainsPoint(p Int3) bool {
	return p.X >= b.Min.X && p.X < b.Max.X &&
		p.Y >= b.Min.Y && p.Y < b.Max.Y &&
		p.Z >= b.Min.Z && p.Z < b.Max.Z
}

func (b IAabb) IsEmpty() bool {
	return b.Max.X <= b.Min.X || b.Max.Y <= b.Min.Y || b.Max.Z <= b.Min.Z
}

// Expand grows the box by n on every side.
func (b IAabb) Expand(n int32) IAabb {
	pad := Int3{n, n, n}
	return IAabb{Min: b.Min.Sub(pad), Max: b.Max.Add(pad)}
}

func (b IAabb) Volume() int64 {
	if b.IsEmpty() {
		return 0
	}
	return int64(b.Max.X-b.Min.X) * int64(b.Max.Y-b.Min.Y) * int64(b.Max.Z-b.Min.Z)
}

func (b IAabb) ToAABB() AABB {
	return AABB{Min: b.Min.ToVec3(), Max: b.Max.ToVec3()}
}

func (b IAabb) String() string {
	return fmt.Sprintf("IAabb[%v -> %v)", b.Min, b.Max)
}
