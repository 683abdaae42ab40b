package util

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

func Round(x float32) float32 {
	return float32(math.Round(float64(x)))
}

func Floor(x float32) float32 {
	return float32(math.Floor(float64(x)))
}

func Ceil(x float32) float32 {
	return float32(math.Ceil(float64(x)))
}

func Sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

func Sin(x float32) float32 {
	return float32(math.Sin(float64(x)))
}

func Cos(x float32) float32 {
	return float32(math.Cos(float64(x)))
}

func Sign(x float32) float32 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func Clamp(value, lower, upper float32) float32 {
	return min(max(value, lower), upper)
}

func Inf(sign int) float32 {
	return float32(math.Inf(sign))
}

func DistanceSq(one, two mgl32.Vec3) float32 {
	d := one.Sub(two)
	return d.Dot(d)
}

func MinVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{min(a.X(), b.X()), min(a.Y(), b.Y()), min(a.Z(), b.Z())}
}

func MaxVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{max(a.X(), b.X()), max(a.Y(), b.Y()), max(a.Z(), b.Z())}
}

func IsPowerOfTwo(n int32) bool {
	return n > 0 && n&(n-1) == 0
}
