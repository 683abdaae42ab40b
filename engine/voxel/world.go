package voxel

import (
	"fmt"
	"iter"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/alitto/pond/v2"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/memmaker/octovox/engine/octree"
	"github.com/memmaker/octovox/engine/util"
	"github.com/pkg/errors"
)

var (
	ErrChunkNotLoaded = errors.New("chunk not loaded")
	ErrInvalidConfig  = errors.New("invalid world config")
	ErrWorldClosed    = errors.New("world closed")
)

type WorldConfig struct {
	// MaxChunksPerBatch caps one background generation job.
	MaxChunksPerBatch int
	// MaxTreeSize is the largest edge length in chunks the world may grow to.
	MaxTreeSize int32
	// Workers is the number of goroutines generating chunks.
	Workers int
}

func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		MaxChunksPerBatch: MAX_CHUNKS_PER_BATCH,
		MaxTreeSize:       1024,
		Workers:           runtime.NumCPU(),
	}
}

func (c WorldConfig) validate() error {
	if c.MaxChunksPerBatch <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "max chunks per batch %d", c.MaxChunksPerBatch)
	}
	if !util.IsPowerOfTwo(c.MaxTreeSize) {
		return errors.Wrapf(ErrInvalidConfig, "max tree size %d is not a power of two", c.MaxTreeSize)
	}
	if c.Workers <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "workers %d", c.Workers)
	}
	return nil
}

// VoxelWorld is an octree of chunks indexed in chunk space, where chunk-space
// position p holds the chunk with world-space origin p*CHUNK_SIZE. The world
// only grows, doubling along the positive axes.
//
// Tree access (growth, inserts and queries) belongs to a single goroutine, the
// simulation tick. Chunks may be shared freely since they carry their own lock.
type VoxelWorld struct {
	tree      *octree.Octree[*VoxelChunk]
	generator ChunkGenerator
	config    WorldConfig
	pool      pond.ResultPool[*VoxelChunk]
	timer     *util.Timer

	generating bool
	pending    chan generatedBatch
	capWarned  bool

	// batches tracks background batch goroutines so Close can wait for them.
	batches sync.WaitGroup
	closed  atomic.Bool
}

// NewVoxelWorld generates every chunk in [0, initialSize)³ in parallel and
// then inserts them in one pass.
func NewVoxelWorld(initialSize int32, generator ChunkGenerator, config WorldConfig) (*VoxelWorld, error) {
	w, err := newEmptyWorld(initialSize, generator, config)
	if err != nil {
		return nil, err
	}

	positions := make([]util.Int3, 0, int(initialSize)*int(initialSize)*int(initialSize))
	for x := int32(0); x < initialSize; x++ {
		for y := int32(0); y < initialSize; y++ {
			for z := int32(0); z < initialSize; z++ {
				positions = append(positions, util.Int3{X: x, Y: y, Z: z})
			}
		}
	}

	stop := w.timer.Start("generate_initial")
	chunks, err := w.generateChunks(positions)
	if err != nil {
		w.Close()
		return nil, errors.Wrap(err, "initial chunk generation")
	}
	for i, chunk := range chunks {
		if err := w.tree.Insert(positions[i], chunk); err != nil {
			w.Close()
			return nil, err
		}
		if (i+1)%1000 == 0 {
			util.LogGenerationInfo(fmt.Sprintf("[World] inserted %d/%d chunks", i+1, len(chunks)))
		}
	}
	util.LogGenerationInfo(fmt.Sprintf("[World] generated %d chunks in %.2fms", len(chunks), stop()))
	return w, nil
}

// NewCubicWorld is a world of completely solid chunks.
func NewCubicWorld(initialSize int32) (*VoxelWorld, error) {
	return NewVoxelWorld(initialSize, CubicGenerator{}, DefaultWorldConfig())
}

func newEmptyWorld(size int32, generator ChunkGenerator, config WorldConfig) (*VoxelWorld, error) {
	if generator == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "nil generator")
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	if size > config.MaxTreeSize {
		return nil, errors.Wrapf(ErrInvalidConfig, "initial size %d exceeds max tree size %d", size, config.MaxTreeSize)
	}
	tree, err := octree.New[*VoxelChunk](size)
	if err != nil {
		return nil, err
	}
	return &VoxelWorld{
		tree:      tree,
		generator: generator,
		config:    config,
		pool:      pond.NewResultPool[*VoxelChunk](config.Workers),
		timer:     util.NewTimer(),
	}, nil
}

// Close stops the generation workers. A batch that is still running skips the
// chunks it has not started and is dropped; Close returns once it has finished.
func (w *VoxelWorld) Close() {
	if w.closed.Swap(true) {
		return
	}
	w.batches.Wait()
	w.pool.StopAndWait()
}

// Size is the edge length of the world in chunks.
func (w *VoxelWorld) Size() int32 {
	return w.tree.Size()
}

func (w *VoxelWorld) ChunkCount() int {
	return w.tree.Len()
}

func (w *VoxelWorld) Bounds() util.IAabb {
	return w.tree.TotalRegionWorldSpace(CHUNK_SIZE)
}

func (w *VoxelWorld) Timer() *util.Timer {
	return w.timer
}

func (w *VoxelWorld) Generator() ChunkGenerator {
	return w.generator
}

// ChunkPosition converts a world-space voxel position to chunk space.
func ChunkPosition(worldPos util.Int3) util.Int3 {
	return worldPos.FloorDiv(CHUNK_SIZE)
}

// ToChunkSpace returns the chunk-space box covering a world-space region.
func ToChunkSpace(region util.IAabb) util.IAabb {
	return util.IAabb{Min: region.Min.FloorDiv(CHUNK_SIZE), Max: region.Max.CeilDiv(CHUNK_SIZE)}
}

func (w *VoxelWorld) GetChunk(chunkPos util.Int3) (*VoxelChunk, bool) {
	return w.tree.Get(chunkPos)
}

// SetChunk places a chunk at its own chunk-space position.
func (w *VoxelWorld) SetChunk(chunk *VoxelChunk) error {
	return w.tree.Insert(chunk.ChunkPosition(), chunk)
}

func (w *VoxelWorld) GetVoxel(worldPos util.Int3) (Voxel, bool) {
	chunk, ok := w.tree.Get(ChunkPosition(worldPos))
	if !ok {
		return Voxel{}, false
	}
	return chunk.Get(worldPos)
}

func (w *VoxelWorld) SetVoxel(worldPos util.Int3, kind VoxelKind) error {
	chunk, ok := w.tree.Get(ChunkPosition(worldPos))
	if !ok {
		return errors.Wrapf(ErrChunkNotLoaded, "voxel %v", worldPos)
	}
	return chunk.Insert(worldPos, NewVoxel(worldPos, kind))
}

func (w *VoxelWorld) IsSolidAt(worldPos util.Int3) bool {
	v, ok := w.GetVoxel(worldPos)
	return ok && v.IsSolid()
}

// Chunks yields every loaded chunk with its chunk-space position.
func (w *VoxelWorld) Chunks() iter.Seq2[util.Int3, *VoxelChunk] {
	return w.tree.All()
}

// IterDirtyChunks yields chunks whose derived geometry is stale.
func (w *VoxelWorld) IterDirtyChunks() iter.Seq[*VoxelChunk] {
	return func(yield func(*VoxelChunk) bool) {
		for _, chunk := range w.tree.All() {
			if chunk.IsDirty() && !yield(chunk) {
				return
			}
		}
	}
}

// IterRegionChunks yields the chunks whose bounds intersect region (world space).
func (w *VoxelWorld) IterRegionChunks(region util.IAabb) iter.Seq[*VoxelChunk] {
	return func(yield func(*VoxelChunk) bool) {
		for chunk := range w.tree.IterRegion(ToChunkSpace(region)) {
			if !chunk.Bounds().Intersects(region) {
				continue
			}
			if !yield(chunk) {
				return
			}
		}
	}
}

// voxelChunks also includes neighbours that hold voxels of the padded chunk window.
func (w *VoxelWorld) voxelChunks(region util.IAabb) iter.Seq[*VoxelChunk] {
	return w.IterRegionChunks(region.Expand(1))
}

// IterRegionVoxels yields solid voxels near region. Like VoxelChunk.QueryRegion
// the result over-approximates by one voxel on every side.
func (w *VoxelWorld) IterRegionVoxels(region util.IAabb) iter.Seq[Voxel] {
	return func(yield func(Voxel) bool) {
		for _, v := range w.IterRegionVoxelsWithChunk(region) {
			if !yield(v) {
				return
			}
		}
	}
}

// IterRegionVoxelsWithChunk is IterRegionVoxels with the owning chunk of every voxel.
func (w *VoxelWorld) IterRegionVoxelsWithChunk(region util.IAabb) iter.Seq2[*VoxelChunk, Voxel] {
	return func(yield func(*VoxelChunk, Voxel) bool) {
		for chunk := range w.voxelChunks(region) {
			for v := range chunk.QueryRegion(region) {
				if !yield(chunk, v) {
					return
				}
			}
		}
	}
}

func (w *VoxelWorld) colliders(region util.IAabb) iter.Seq[util.AABB] {
	return func(yield func(util.AABB) bool) {
		for v := range w.IterRegionVoxels(region) {
			if !yield(v.Collider()) {
				return
			}
		}
	}
}

// QuerySphereCollisions returns a contact for every solid voxel the sphere touches.
func (w *VoxelWorld) QuerySphereCollisions(center mgl32.Vec3, radius float32) []util.CollisionInfo {
	region := util.IAabbFromAABB(util.NewAABBCenter(center, 2*radius))
	var hits []util.CollisionInfo
	for box := range w.colliders(region) {
		if hit, ok := util.SphereAABBCollision(center, radius, box); ok {
			hits = append(hits, hit)
		}
	}
	return hits
}

// QuerySphereCast sweeps a sphere through the world and reports the first voxel it hits.
func (w *VoxelWorld) QuerySphereCast(origin mgl32.Vec3, radius float32, dir mgl32.Vec3, maxDistance float32) (util.CollisionInfo, bool) {
	if dir.Len() == 0 {
		return util.CollisionInfo{}, false
	}
	end := origin.Add(dir.Normalize().Mul(maxDistance))
	swept := util.AABB{Min: util.MinVec3(origin, end), Max: util.MaxVec3(origin, end)}.Inflate(radius)
	hit, ok := util.SphereCast(origin, radius, dir, maxDistance, w.colliders(util.IAabbFromAABB(swept)))
	if ok {
		util.LogCollisionDebug(fmt.Sprintf("[World] sphere cast from %v hit at %v, distance %.3f", origin, hit.ContactPoint, hit.Distance))
	}
	return hit, ok
}

// Raycast returns the first solid voxel along the ray. Unloaded chunks count as empty.
func (w *VoxelWorld) Raycast(origin, dir mgl32.Vec3, maxDistance float32) (util.HitInfo3D, bool) {
	return util.DDARaycast(origin, dir, maxDistance, w.IsSolidAt)
}

// ClearSphere removes every solid voxel whose center lies strictly within
// radius of center and returns how many were removed.
func (w *VoxelWorld) ClearSphere(center mgl32.Vec3, radius float32) int {
	region := util.IAabbFromAABB(util.NewAABBCenter(center, 2*radius))
	cleared := 0
	for chunk := range w.voxelChunks(region) {
		cleared += chunk.ClearSphere(center, radius)
	}
	util.LogVoxelDebug(fmt.Sprintf("[World] cleared %d voxels around %v (r=%.2f)", cleared, center, radius))
	return cleared
}
