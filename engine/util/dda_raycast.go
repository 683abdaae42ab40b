package util

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type CubeSide int

const (
	Front CubeSide = iota
	Back
	Left
	Right
	Top
	Bottom
)

// Normal points out of the voxel through this side.
func (s CubeSide) Normal() mgl32.Vec3 {
	switch s {
	case Front:
		return mgl32.Vec3{0, 0, 1}
	case Back:
		return mgl32.Vec3{0, 0, -1}
	case Left:
		return mgl32.Vec3{-1, 0, 0}
	case Right:
		return mgl32.Vec3{1, 0, 0}
	case Top:
		return mgl32.Vec3{0, 1, 0}
	case Bottom:
		return mgl32.Vec3{0, -1, 0}
	}
	return mgl32.Vec3{}
}

type HitInfo3D struct {
	Distance               float32
	Side                   CubeSide
	CollisionWorldPosition mgl32.Vec3
	PreviousGridPosition   Int3
	CollisionGridPosition  Int3
}

// DDARaycast walks the voxel grid along the ray and stops at the first cell
// for which stopRay is true. Voxel cells are centred on integer positions, so
// cell p spans [p-0.5, p+0.5). A ray starting inside a stopping cell hits it at
// distance 0.
func DDARaycast(rayStart, direction mgl32.Vec3, maxDistance float32, stopRay func(Int3) bool) (HitInfo3D, bool) {
	// adapted from: https://github.com/fenomas/fast-voxel-raycast/blob/master/index.js
	if direction.Len() == 0 {
		return HitInfo3D{}, false
	}
	rayDir := direction.Normalize()
	gridStart := rayStart.Add(mgl32.Vec3{0.5, 0.5, 0.5})

	t := 0.0
	cell := Int3{
		X: int32(math.Floor(float64(gridStart.X()))),
		Y: int32(math.Floor(float64(gridStart.Y()))),
		Z: int32(math.Floor(float64(gridStart.Z()))),
	}

	var step [3]int32
	var tDelta, tMax [3]float64
	for axis := 0; axis < 3; axis++ {
		start := float64(gridStart[axis])
		index := math.Floor(start)
		dir := float64(rayDir[axis])
		step[axis] = -1
		dist := start - index
		if dir > 0 {
			step[axis] = 1
			dist = index + 1 - start
		}
		tDelta[axis] = math.Inf(1)
		tMax[axis] = math.Inf(1)
		if dir != 0 {
			tDelta[axis] = math.Abs(1 / dir)
			tMax[axis] = tDelta[axis] * dist
		}
	}

	steppedAxis := -1
	for t <= float64(maxDistance) {
		if stopRay(cell) {
			hit := HitInfo3D{
				Distance:               float32(t),
				CollisionWorldPosition: rayStart.Add(rayDir.Mul(float32(t))),
				PreviousGridPosition:   cell,
				CollisionGridPosition:  cell,
			}
			switch steppedAxis {
			case 0:
				hit.Side = Left
				if step[0] < 0 {
					hit.Side = Right
				}
				hit.PreviousGridPosition.X -= step[0]
			case 1:
				hit.Side = Bottom
				if step[1] < 0 {
					hit.Side = Top
				}
				hit.PreviousGridPosition.Y -= step[1]
			case 2:
				hit.Side = Back
				if step[2] < 0 {
					hit.Side = Front
				}
				hit.PreviousGridPosition.Z -= step[2]
			}
			return hit, true
		}

		axis := 2
		if tMax[0] < tMax[1] {
			if tMax[0] < tMax[2] {
				axis = 0
			}
		} else if tMax[1] < tMax[2] {
			axis = 1
		}
		switch axis {
		case 0:
			cell.X += step[0]
		case 1:
			cell.Y += step[1]
		case 2:
			cell.Z += step[2]
		}
		t = tMax[axis]
		tMax[axis] += tDelta[axis]
		steppedAxis = axis
	}
	return HitInfo3D{}, false
}
