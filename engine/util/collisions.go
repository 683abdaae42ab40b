package util

import (
	"github.com/go-gl/mathgl/mgl32"
)

// CollisionInfo describes a single contact. Normal is unit length and points away
// from the obstacle. Distance is the travel distance for casts and the
// penetration depth for overlap tests.
type CollisionInfo struct {
	Normal       mgl32.Vec3
	ContactPoint mgl32.Vec3
	Distance     float32
}

// RayIntersectAABB runs a slab test and returns the entry t together with the
// normal of the face that was entered. The entry t is negative when the origin
// already lies inside the box.
func RayIntersectAABB(origin, dir mgl32.Vec3, box AABB) (float32, mgl32.Vec3, bool) {
	if dir.Len() == 0 {
		return 0, mgl32.Vec3{}, false
	}
	var tMin, tMax [3]float32
	for i := 0; i < 3; i++ {
		if dir[i] == 0 {
			if origin[i] < box.Min[i] || origin[i] > box.Max[i] {
				return 0, mgl32.Vec3{}, false
			}
			tMin[i], tMax[i] = Inf(-1), Inf(1)
			continue
		}
		inv := 1 / dir[i]
		t1 := (box.Min[i] - origin[i]) * inv
		t2 := (box.Max[i] - origin[i]) * inv
		tMin[i], tMax[i] = min(t1, t2), max(t1, t2)
	}
	entry := max(tMin[0], tMin[1], tMin[2])
	exit := min(tMax[0], tMax[1], tMax[2])
	if exit < max(entry, 0) {
		return 0, mgl32.Vec3{}, false
	}

	var normal mgl32.Vec3
	for i := 0; i < 3; i++ {
		if tMin[i] == entry {
			normal[i] = -Sign(dir[i])
			break
		}
	}
	return entry, normal, true
}

// RayIntersectAABBWithin is RayIntersectAABB limited to hits with t <= maxT.
func RayIntersectAABBWithin(origin, dir mgl32.Vec3, box AABB, maxT float32) (CollisionInfo, bool) {
	t, normal, ok := RayIntersectAABB(origin, dir, box)
	if !ok || t > maxT {
		return CollisionInfo{}, false
	}
	return CollisionInfo{
		Normal:       normal,
		ContactPoint: origin.Add(dir.Mul(t)),
		Distance:     t,
	}, true
}

// SphereAABBCollision reports the overlap of a sphere with a box. Touching counts.
func SphereAABBCollision(center mgl32.Vec3, radius float32, box AABB) (CollisionInfo, bool) {
	closest := box.ClosestPoint(center)
	diff := center.Sub(closest)
	distSq := diff.Dot(diff)
	if distSq > radius*radius {
		return CollisionInfo{}, false
	}
	if distSq > 0 {
		dist := Sqrt(distSq)
		return CollisionInfo{
			Normal:       diff.Mul(1 / dist),
			ContactPoint: closest,
			Distance:     radius - dist,
		}, true
	}

	// center is inside the box, push out through the nearest face
	faces := [6]struct {
		dist   float32
		normal mgl32.Vec3
	}{
		{center.X() - box.Min.X(), mgl32.Vec3{-1, 0, 0}},
		{box.Max.X() - center.X(), mgl32.Vec3{1, 0, 0}},
		{center.Y() - box.Min.Y(), mgl32.Vec3{0, -1, 0}},
		{box.Max.Y() - center.Y(), mgl32.Vec3{0, 1, 0}},
		{center.Z() - box.Min.Z(), mgl32.Vec3{0, 0, -1}},
		{box.Max.Z() - center.Z(), mgl32.Vec3{0, 0, 1}},
	}
	nearest := faces[0]
	for _, face := range faces[1:] {
		if face.dist < nearest.dist {
			nearest = face
		}
	}
	return CollisionInfo{
		Normal:       nearest.normal,
		ContactPoint: center.Add(nearest.normal.Mul(nearest.dist)),
		Distance:     radius,
	}, true
}

// SphereSphereCollision treats b as the obstacle.
func SphereSphereCollision(centerA mgl32.Vec3, radiusA float32, centerB mgl32.Vec3, radiusB float32) (CollisionInfo, bool) {
	diff := centerA.Sub(centerB)
	dist := diff.Len()
	combined := radiusA + radiusB
	if dist > combined {
		return CollisionInfo{}, false
	}
	normal := mgl32.Vec3{0, 1, 0}
	if dist > 0 {
		normal = diff.Mul(1 / dist)
	}
	return CollisionInfo{
		Normal:       normal,
		ContactPoint: centerB.Add(normal.Mul(radiusB)),
		Distance:     combined - dist,
	}, true
}

// AABBCollision resolves along the axis of least penetration, treating b as the obstacle.
func AABBCollision(a, b AABB) (CollisionInfo, bool) {
	if !a.Intersects(b) {
		return CollisionInfo{}, false
	}
	overlapMin := MaxVec3(a.Min, b.Min)
	overlapMax := MinVec3(a.Max, b.Max)
	overlap := overlapMax.Sub(overlapMin)

	axis := 0
	for i := 1; i < 3; i++ {
		if overlap[i] < overlap[axis] {
			axis = i
		}
	}
	var normal mgl32.Vec3
	if a.Center()[axis] >= b.Center()[axis] {
		normal[axis] = 1
	} else {
		normal[axis] = -1
	}
	return CollisionInfo{
		Normal:       normal,
		ContactPoint: overlapMin.Add(overlapMax).Mul(0.5),
		Distance:     overlap[axis],
	}, true
}
