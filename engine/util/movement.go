package util

import (
	"iter"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	MAX_COLLIDE_BOUNCES = 3
	SKIN_WIDTH          = float32(0.015)
)

// SphereCaster is anything that can sweep a sphere through its colliders.
type SphereCaster interface {
	QuerySphereCast(origin mgl32.Vec3, radius float32, dir mgl32.Vec3, maxDistance float32) (CollisionInfo, bool)
}

// SphereCast sweeps a sphere along dir and returns the closest box it touches
// within maxDistance. The returned contact point is the sphere center at impact.
// Boxes the sphere already overlaps or touches at the start are ignored unless
// it moves into them, so a mover can leave them.
func SphereCast(origin mgl32.Vec3, radius float32, dir mgl32.Vec3, maxDistance float32, boxes iter.Seq[AABB]) (CollisionInfo, bool) {
	if dir.Len() == 0 {
		return CollisionInfo{}, false
	}
	dir = dir.Normalize()
	var closest CollisionInfo
	found := false
	for box := range boxes {
		inflated := box.Inflate(radius)
		if strictlyInside(inflated, origin) {
			continue
		}
		hit, ok := RayIntersectAABBWithin(origin, dir, inflated, maxDistance)
		// a center on a face gets a negative entry when it moves away
		if !ok || hit.Distance < 0 {
			continue
		}
		if !found || hit.Distance < closest.Distance {
			closest = hit
			found = true
		}
	}
	return closest, found
}

func strictlyInside(box AABB, p mgl32.Vec3) bool {
	return p.X() > box.Min.X() && p.X() < box.Max.X() &&
		p.Y() > box.Min.Y() && p.Y() < box.Max.Y() &&
		p.Z() > box.Min.Z() && p.Z() < box.Max.Z()
}

// CollideAndSlide returns the displacement a sphere of the given radius can make
// from pos when asked to move by vel. The part of the motion that is blocked is
// projected onto the blocking surface and resolved again, up to
// MAX_COLLIDE_BOUNCES times. Running out of bounces blocks the rest of the motion.
func CollideAndSlide(caster SphereCaster, vel, pos mgl32.Vec3, radius float32, depth int) mgl32.Vec3 {
	if depth >= MAX_COLLIDE_BOUNCES {
		return mgl32.Vec3{}
	}
	speed := vel.Len()
	if speed < 1e-6 {
		return vel
	}
	dir := vel.Mul(1 / speed)

	hit, ok := caster.QuerySphereCast(pos, radius-SKIN_WIDTH, dir, speed+SKIN_WIDTH)
	if !ok {
		return vel
	}

	snap := dir.Mul(hit.Distance - SKIN_WIDTH)
	leftover := vel.Sub(snap)
	if snap.Len() <= SKIN_WIDTH {
		snap = mgl32.Vec3{}
	}

	slide := leftover.Sub(hit.Normal.Mul(leftover.Dot(hit.Normal)))
	if slideLen := slide.Len(); slideLen > 1e-6 {
		slide = slide.Mul(leftover.Len() / slideLen)
	} else {
		slide = mgl32.Vec3{}
	}

	return snap.Add(CollideAndSlide(caster, slide, pos.Add(snap), radius, depth+1))
}
