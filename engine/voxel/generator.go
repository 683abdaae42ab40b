package voxel

import (
	"math"
	"strings"

	"github.com/memmaker/octovox/engine/util"
	"github.com/ojrac/opensimplex-go"
	"github.com/pkg/errors"
)

const (
	DEFAULT_SEED     = 99
	noiseScale       = 0.03
	heightLimit      = 32
	heightmapCrust   = 3
	caveBandLow      = 0.1
	caveBandHigh     = 0.25
	graniteThreshold = 0.15
	coalThreshold    = 0.2
)

var ErrUnknownGenerator = errors.New("unknown chunk generator")

// ChunkGenerator builds the chunk whose minimum corner is origin (world space).
// Implementations must be safe for concurrent use.
type ChunkGenerator interface {
	GenerateChunk(origin util.Int3) *VoxelChunk
}

// GeneratorFunc adapts a plain function to ChunkGenerator.
type GeneratorFunc func(origin util.Int3) *VoxelChunk

func (f GeneratorFunc) GenerateChunk(origin util.Int3) *VoxelChunk {
	return f(origin)
}

func GeneratorByName(name string, seed int64) (ChunkGenerator, error) {
	switch strings.ToLower(name) {
	case "cubic":
		return CubicGenerator{}, nil
	case "heightmap":
		return NewHeightmapGenerator(seed), nil
	case "noise3d":
		return NewNoise3DGenerator(seed), nil
	case "debug":
		return DebugGenerator{}, nil
	}
	return nil, errors.Wrapf(ErrUnknownGenerator, "%q", name)
}

// CubicGenerator fills every chunk completely with dirt.
type CubicGenerator struct{}

func (CubicGenerator) GenerateChunk(origin util.Int3) *VoxelChunk {
	return FillChunk(origin, func(util.Int3) VoxelKind { return Dirt })
}

// HeightmapGenerator samples 2D noise per column and lays a thin dirt crust at
// the resulting height. Nothing is placed below the crust.
type HeightmapGenerator struct {
	noise     opensimplex.Noise
	maxHeight float64
}

func NewHeightmapGenerator(seed int64) *HeightmapGenerator {
	return &HeightmapGenerator{
		noise:     opensimplex.New(seed),
		maxHeight: float64(min(heightLimit, CHUNK_SIZE/2-1)),
	}
}

// SurfaceHeight is the exclusive top of the crust in column (x, z).
func (g *HeightmapGenerator) SurfaceHeight(x, z int32) int32 {
	n := g.noise.Eval2(float64(x)*noiseScale, float64(z)*noiseScale)
	return int32(math.Floor((n + 1) * (g.maxHeight / 2)))
}

func (g *HeightmapGenerator) GenerateChunk(origin util.Int3) *VoxelChunk {
	chunk := NewVoxelChunk(origin)
	for x := origin.X; x < origin.X+CHUNK_SIZE; x++ {
		for z := origin.Z; z < origin.Z+CHUNK_SIZE; z++ {
			top := g.SurfaceHeight(x, z)
			for y := max(top-heightmapCrust, origin.Y); y < min(top, origin.Y+CHUNK_SIZE); y++ {
				pos := util.Int3{X: x, Y: y, Z: z}
				chunk.voxels[x-origin.X][y-origin.Y][z-origin.Z] = NewVoxel(pos, Dirt)
			}
		}
	}
	return chunk
}

// Noise3DGenerator keeps a thin band of 3D noise, which produces hollow cave
// walls layered into granite, coal and sand.
type Noise3DGenerator struct {
	noise opensimplex.Noise
}

func NewNoise3DGenerator(seed int64) *Noise3DGenerator {
	return &Noise3DGenerator{noise: opensimplex.New(seed)}
}

func (g *Noise3DGenerator) KindAt(pos util.Int3) VoxelKind {
	n := g.noise.Eval3(float64(pos.X)*noiseScale, float64(pos.Y)*noiseScale, float64(pos.Z)*noiseScale)
	switch {
	case n <= caveBandLow || n >= caveBandHigh:
		return Air
	case n < graniteThreshold:
		return Granite
	case n < coalThreshold:
		return Coal
	}
	return Sand
}

func (g *Noise3DGenerator) GenerateChunk(origin util.Int3) *VoxelChunk {
	return FillChunk(origin, g.KindAt)
}

// DebugGenerator marks the 8 corners of every chunk with dirt.
type DebugGenerator struct{}

func (DebugGenerator) GenerateChunk(origin util.Int3) *VoxelChunk {
	chunk := NewVoxelChunk(origin)
	last := CHUNK_SIZE - 1
	for i := 0; i < 8; i++ {
		var corner util.Int3
		if i&1 != 0 {
			corner.X = last
		}
		if i&2 != 0 {
			corner.Y = last
		}
		if i&4 != 0 {
			corner.Z = last
		}
		chunk.voxels[corner.X][corner.Y][corner.Z] = NewVoxel(origin.Add(corner), Dirt)
	}
	return chunk
}
