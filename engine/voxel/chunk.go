package voxel

import (
	"fmt"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/memmaker/octovox/engine/util"
	"github.com/pkg/errors"
)

var ErrOutOfChunk = errors.New("position outside of chunk")

// VoxelChunk is a dense CHUNK_SIZE³ block of voxels. It allows any number of
// concurrent readers and a single writer. The dirty flag tells mesh builders
// that derived geometry is stale; it starts out set.
type VoxelChunk struct {
	mu       sync.RWMutex
	voxels   [CHUNK_SIZE][CHUNK_SIZE][CHUNK_SIZE]Voxel
	position util.Int3
	dirty    atomic.Bool
}

// NewVoxelChunk creates an all-Air chunk whose minimum corner is position (world space).
func NewVoxelChunk(position util.Int3) *VoxelChunk {
	c := &VoxelChunk{position: position}
	for x := int32(0); x < CHUNK_SIZE; x++ {
		for y := int32(0); y < CHUNK_SIZE; y++ {
			for z := int32(0); z < CHUNK_SIZE; z++ {
				c.voxels[x][y][z] = NewVoxel(position.Add(util.Int3{X: x, Y: y, Z: z}), Air)
			}
		}
	}
	c.dirty.Store(true)
	return c
}

// FillChunk creates a chunk and sets every voxel to kindAt(worldPos).
func FillChunk(position util.Int3, kindAt func(worldPos util.Int3) VoxelKind) *VoxelChunk {
	c := NewVoxelChunk(position)
	for x := int32(0); x < CHUNK_SIZE; x++ {
		for y := int32(0); y < CHUNK_SIZE; y++ {
			for z := int32(0); z < CHUNK_SIZE; z++ {
				c.voxels[x][y][z].Kind = kindAt(position.Add(util.Int3{X: x, Y: y, Z: z}))
			}
		}
	}
	return c
}

func (c *VoxelChunk) Position() util.Int3 {
	return c.position
}

// ChunkPosition is the index of this chunk in chunk space.
func (c *VoxelChunk) ChunkPosition() util.Int3 {
	return c.position.FloorDiv(CHUNK_SIZE)
}

func (c *VoxelChunk) Bounds() util.IAabb {
	return util.NewIAabb(c.position, CHUNK_SIZE)
}

func (c *VoxelChunk) Contains(worldPos util.Int3) bool {
	return c.Bounds().ContainsPoint(worldPos)
}

func (c *VoxelChunk) local(worldPos util.Int3) (util.Int3, error) {
	if !c.Contains(worldPos) {
		return util.Int3{}, errors.Wrapf(ErrOutOfChunk, "%v not in chunk at %v", worldPos, c.position)
	}
	return worldPos.Sub(c.position), nil
}

// Insert replaces the voxel at worldPos. The stored position is always the
// grid position, whatever voxel.Position says.
func (c *VoxelChunk) Insert(worldPos util.Int3, voxel Voxel) error {
	l, err := c.local(worldPos)
	if err != nil {
		return err
	}
	voxel.Position = worldPos.ToVec3()
	c.mu.Lock()
	c.voxels[l.X][l.Y][l.Z] = voxel
	c.mu.Unlock()
	c.dirty.Store(true)
	return nil
}

func (c *VoxelChunk) Get(worldPos util.Int3) (Voxel, bool) {
	l, err := c.local(worldPos)
	if err != nil {
		return Voxel{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.voxels[l.X][l.Y][l.Z], true
}

// VoxelSlice copies all voxels in x, y, z order.
func (c *VoxelChunk) VoxelSlice() []Voxel {
	result := make([]Voxel, 0, CHUNK_SIZE_CUBED)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for x := range c.voxels {
		for y := range c.voxels[x] {
			result = append(result, c.voxels[x][y][:]...)
		}
	}
	return result
}

// Kinds returns the kind of every voxel in x, y, z order.
func (c *VoxelChunk) Kinds() []byte {
	result := make([]byte, 0, CHUNK_SIZE_CUBED)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for x := range c.voxels {
		for y := range c.voxels[x] {
			for z := range c.voxels[x][y] {
				result = append(result, byte(c.voxels[x][y][z].Kind))
			}
		}
	}
	return result
}

func (c *VoxelChunk) SolidCount() int {
	count := 0
	c.mu.RLock()
	defer c.mu.RUnlock()
	for x := range c.voxels {
		for y := range c.voxels[x] {
			for z := range c.voxels[x][y] {
				if c.voxels[x][y][z].IsSolid() {
					count++
				}
			}
		}
	}
	return count
}

func (c *VoxelChunk) IsDirty() bool {
	return c.dirty.Load()
}

func (c *VoxelChunk) SetClean() {
	c.dirty.Store(false)
}

// window returns the inclusive local index range on one axis for voxels whose
// center lies in [lo-1, hi] world space. ok is false when nothing is left.
func window(lo, hi, pos int32) (from, to int32, ok bool) {
	from = max(lo-1-pos, 0)
	to = min(hi-pos, CHUNK_SIZE-1)
	return from, to, from <= to
}

// candidates copies the padded window for region under the read lock.
//
// The window reaches one voxel past the region on every side. Voxel boxes are
// centred on integer coordinates, so a voxel just outside the integer region
// can still touch a float query that was rounded outward. Every result is a
// candidate only and callers must run their own exact test.
func (c *VoxelChunk) candidates(region util.IAabb, solidOnly bool) []Voxel {
	x0, x1, okX := window(region.Min.X, region.Max.X, c.position.X)
	y0, y1, okY := window(region.Min.Y, region.Max.Y, c.position.Y)
	z0, z1, okZ := window(region.Min.Z, region.Max.Z, c.position.Z)
	if !okX || !okY || !okZ {
		return nil
	}
	result := make([]Voxel, 0, (x1-x0+1)*(y1-y0+1)*(z1-z0+1))
	c.mu.RLock()
	defer c.mu.RUnlock()
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			for z := z0; z <= z1; z++ {
				v := c.voxels[x][y][z]
				if solidOnly && v.IsAir() {
					continue
				}
				result = append(result, v)
			}
		}
	}
	return result
}

// IterRegion yields every voxel, Air included, in the padded window around
// region. The window is taken as a snapshot, so the caller may write to the
// chunk while iterating.
func (c *VoxelChunk) IterRegion(region util.IAabb) iter.Seq[Voxel] {
	return func(yield func(Voxel) bool) {
		for _, v := range c.candidates(region, false) {
			if !yield(v) {
				return
			}
		}
	}
}

// QueryRegion is IterRegion without Air.
func (c *VoxelChunk) QueryRegion(region util.IAabb) iter.Seq[Voxel] {
	return func(yield func(Voxel) bool) {
		for _, v := range c.candidates(region, true) {
			if !yield(v) {
				return
			}
		}
	}
}

// ClearSphere turns every solid voxel whose center is closer than radius to
// center into Air and returns how many were cleared.
func (c *VoxelChunk) ClearSphere(center mgl32.Vec3, radius float32) int {
	region := util.IAabbFromAABB(util.NewAABBCenter(center, 2*radius))
	x0, x1, okX := window(region.Min.X, region.Max.X, c.position.X)
	y0, y1, okY := window(region.Min.Y, region.Max.Y, c.position.Y)
	z0, z1, okZ := window(region.Min.Z, region.Max.Z, c.position.Z)
	if !okX || !okY || !okZ {
		return 0
	}
	radiusSq := radius * radius
	cleared := 0
	c.mu.Lock()
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			for z := z0; z <= z1; z++ {
				v := &c.voxels[x][y][z]
				if v.IsSolid() && util.DistanceSq(v.Position, center) < radiusSq {
					v.Kind = Air
					cleared++
				}
			}
		}
	}
	c.mu.Unlock()
	if cleared > 0 {
		c.dirty.Store(true)
	}
	return cleared
}

func (c *VoxelChunk) String() string {
	return fmt.Sprintf("VoxelChunk%v", c.position)
}
