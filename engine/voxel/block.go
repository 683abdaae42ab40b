package voxel

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/memmaker/octovox/engine/util"
)

type VoxelKind byte

const (
	Air VoxelKind = iota
	Dirt
	Sand
	Coal
	Granite
)

var kindNames = [...]string{"air", "dirt", "sand", "coal", "granite"}

func (k VoxelKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

func (k VoxelKind) IsValid() bool {
	return int(k) < len(kindNames)
}

// Voxel is a unit cube centred on Position. Air marks an absent voxel and must
// be filtered out by every collider and mesh consumer.
type Voxel struct {
	Position mgl32.Vec3
	Kind     VoxelKind
}

func NewVoxel(pos util.Int3, kind VoxelKind) Voxel {
	return Voxel{Position: pos.ToVec3(), Kind: kind}
}

func (v Voxel) IsAir() bool {
	return v.Kind == Air
}

func (v Voxel) IsSolid() bool {
	return v.Kind != Air
}

func (v Voxel) Collider() util.AABB {
	return util.NewAABBCenter(v.Position, 1)
}

func (v Voxel) GridPosition() util.Int3 {
	return util.Int3{X: int32(util.Round(v.Position.X())), Y: int32(util.Round(v.Position.Y())), Z: int32(util.Round(v.Position.Z()))}
}
