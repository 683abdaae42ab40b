package voxel

import (
	"context"
	"io"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/memmaker/octovox/engine/util"
	"github.com/pkg/errors"
)

func quietLogs(t *testing.T) {
	t.Helper()
	previous := util.SetLogOutput(io.Discard)
	t.Cleanup(func() { util.SetLogOutput(previous) })
}

func mustWorld(t *testing.T, size int32, gen ChunkGenerator, config WorldConfig) *VoxelWorld {
	t.Helper()
	w, err := NewVoxelWorld(size, gen, config)
	if err != nil {
		t.Fatalf("NewVoxelWorld(%d): %v", size, err)
	}
	t.Cleanup(w.Close)
	return w
}

func mustCubicWorld(t *testing.T, size int32) *VoxelWorld {
	t.Helper()
	w, err := NewCubicWorld(size)
	if err != nil {
		t.Fatalf("NewCubicWorld(%d): %v", size, err)
	}
	t.Cleanup(w.Close)
	return w
}

func awaitBatch(t *testing.T, w *VoxelWorld) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := w.AwaitChunks(ctx)
	if err != nil {
		t.Fatalf("AwaitChunks: %v", err)
	}
	return n
}

func TestNewVoxelWorld(t *testing.T) {
	quietLogs(t)
	w := mustCubicWorld(t, 2)
	if w.ChunkCount() != 8 {
		t.Errorf("ChunkCount() = %d, want 8", w.ChunkCount())
	}
	for pos, chunk := range w.Chunks() {
		if chunk.Position() != pos.Mul(CHUNK_SIZE) {
			t.Errorf("chunk at %v has world position %v", pos, chunk.Position())
		}
	}
	if want := (util.IAabb{Max: util.Int3{X: 32, Y: 32, Z: 32}}); w.Bounds() != want {
		t.Errorf("Bounds() = %v, want %v", w.Bounds(), want)
	}
}

func TestNewVoxelWorldRejectsBadInput(t *testing.T) {
	quietLogs(t)
	if _, err := NewVoxelWorld(3, CubicGenerator{}, DefaultWorldConfig()); err == nil {
		t.Errorf("size 3 accepted")
	}
	if _, err := NewVoxelWorld(1, nil, DefaultWorldConfig()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil generator error = %v, want ErrInvalidConfig", err)
	}
	config := DefaultWorldConfig()
	config.MaxChunksPerBatch = 0
	if _, err := NewVoxelWorld(1, CubicGenerator{}, config); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("zero batch size error = %v, want ErrInvalidConfig", err)
	}
}

func TestNewVoxelWorldGeneratorPanic(t *testing.T) {
	quietLogs(t)
	broken := GeneratorFunc(func(origin util.Int3) *VoxelChunk { panic("broken generator") })
	if _, err := NewVoxelWorld(1, broken, DefaultWorldConfig()); err == nil {
		t.Errorf("panicking generator did not fail world creation")
	}
}

func TestSphereCollisionsCubicWorld(t *testing.T) {
	quietLogs(t)
	w := mustCubicWorld(t, 1)
	tests := []struct {
		center mgl32.Vec3
		want   int
	}{
		{mgl32.Vec3{0, 0, 0}, 1},
		{mgl32.Vec3{0.5, 0, 0}, 2},
		{mgl32.Vec3{0.5, 0.5, 0}, 4},
		{mgl32.Vec3{8, 8, 8}, 1},
		{mgl32.Vec3{0, -2, 0}, 0},
	}
	for _, tt := range tests {
		if got := len(w.QuerySphereCollisions(tt.center, 0.49)); got != tt.want {
			t.Errorf("sphere at %v: %d collisions, want %d", tt.center, got, tt.want)
		}
	}
}

func TestSphereCollisionsAcrossChunkBorder(t *testing.T) {
	quietLogs(t)
	w := mustCubicWorld(t, 2)
	if got := len(w.QuerySphereCollisions(mgl32.Vec3{15.5, 8, 8}, 0.49)); got != 2 {
		t.Errorf("sphere on chunk border: %d collisions, want 2", got)
	}
}

func TestQuerySphereCast(t *testing.T) {
	quietLogs(t)
	w := mustCubicWorld(t, 1)
	hit, ok := w.QuerySphereCast(mgl32.Vec3{8, 20, 8}, 0.5, mgl32.Vec3{0, -1, 0}, 10)
	if !ok {
		t.Fatalf("sphere cast missed the ground")
	}
	if !hit.ContactPoint.ApproxEqualThreshold(mgl32.Vec3{8, 16, 8}, 1e-5) || hit.Normal != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("hit = %+v, want contact (8, 16, 8) with +Y normal", hit)
	}
	if _, ok := w.QuerySphereCast(mgl32.Vec3{8, 20, 8}, 0.5, mgl32.Vec3{0, 1, 0}, 10); ok {
		t.Errorf("sphere cast upwards hit something")
	}
	if _, ok := w.QuerySphereCast(mgl32.Vec3{8, 20, 8}, 0.5, mgl32.Vec3{0, -1, 0}, 3); ok {
		t.Errorf("sphere cast shorter than the gap hit something")
	}
}

func TestCollideAndSlideOnWorld(t *testing.T) {
	quietLogs(t)
	w := mustCubicWorld(t, 1)
	got := util.CollideAndSlide(w, mgl32.Vec3{0, -5, 0}, mgl32.Vec3{8, 17, 8}, 0.5, 0)
	if !got.ApproxEqualThreshold(mgl32.Vec3{0, -1, 0}, 1e-4) {
		t.Errorf("CollideAndSlide = %v, want (0, -1, 0)", got)
	}
	free := mgl32.Vec3{1, 0, 0}
	if got := util.CollideAndSlide(w, free, mgl32.Vec3{8, 30, 8}, 0.5, 0); got != free {
		t.Errorf("CollideAndSlide in open air = %v, want %v", got, free)
	}
}

func TestCollideAndSlideLeavingTheGround(t *testing.T) {
	quietLogs(t)
	w := mustCubicWorld(t, 1)
	// resting exactly on the voxel tops at y 15.5
	pos := mgl32.Vec3{8, 16, 8}
	if hit, ok := w.QuerySphereCast(pos, 0.5, mgl32.Vec3{0, 1, 0}, 1); ok {
		t.Errorf("upward cast from the ground hit %+v", hit)
	}
	up := mgl32.Vec3{0, 0.5, 0}
	if got := util.CollideAndSlide(w, up, pos, 0.5+util.SKIN_WIDTH, 0); got != up {
		t.Errorf("CollideAndSlide = %v, want %v", got, up)
	}
	hit, ok := w.QuerySphereCast(pos, 0.5, mgl32.Vec3{0, -1, 0}, 1)
	if !ok || hit.Distance != 0 {
		t.Errorf("downward cast from the ground = %+v, %v; want a hit at distance 0", hit, ok)
	}
}

func TestIterRegionChunks(t *testing.T) {
	quietLogs(t)
	w := mustCubicWorld(t, 2)
	tests := []struct {
		name   string
		region util.IAabb
		want   int
	}{
		{"inside first chunk", util.IAabb{Max: util.Int3{X: 16, Y: 1, Z: 1}}, 1},
		{"crossing into second", util.IAabb{Max: util.Int3{X: 17, Y: 1, Z: 1}}, 2},
		{"everything", w.Bounds(), 8},
		{"outside", util.IAabb{Min: util.Int3{X: 40, Y: 40, Z: 40}, Max: util.Int3{X: 50, Y: 50, Z: 50}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(slices.Collect(w.IterRegionChunks(tt.region))); got != tt.want {
				t.Errorf("IterRegionChunks yielded %d chunks, want %d", got, tt.want)
			}
		})
	}
}

func TestIterRegionVoxelsWithChunk(t *testing.T) {
	quietLogs(t)
	w := mustCubicWorld(t, 2)
	region := util.IAabb{Min: util.Int3{X: 15, Y: 0, Z: 0}, Max: util.Int3{X: 17, Y: 1, Z: 1}}
	count := 0
	for chunk, v := range w.IterRegionVoxelsWithChunk(region) {
		if !chunk.Contains(v.GridPosition()) {
			t.Errorf("voxel %v paired with chunk %v", v.Position, chunk.Position())
		}
		count++
	}
	// x 14..17, y 0..1, z 0..1
	if count != 4*2*2 {
		t.Errorf("yielded %d voxels, want 16", count)
	}
	if n := len(slices.Collect(w.IterRegionVoxels(region))); n != count {
		t.Errorf("IterRegionVoxels yielded %d, want %d", n, count)
	}
}

func TestVoxelAccess(t *testing.T) {
	quietLogs(t)
	w := mustCubicWorld(t, 1)
	pos := util.Int3{X: 4, Y: 5, Z: 6}
	if !w.IsSolidAt(pos) {
		t.Errorf("cubic world should be solid at %v", pos)
	}
	if err := w.SetVoxel(pos, Air); err != nil {
		t.Fatalf("SetVoxel: %v", err)
	}
	if w.IsSolidAt(pos) {
		t.Errorf("voxel still solid after SetVoxel(Air)")
	}
	if err := w.SetVoxel(util.Int3{X: 100}, Dirt); !errors.Is(err, ErrChunkNotLoaded) {
		t.Errorf("SetVoxel outside error = %v, want ErrChunkNotLoaded", err)
	}
	if _, ok := w.GetVoxel(util.Int3{X: -1}); ok {
		t.Errorf("GetVoxel at negative position reported a voxel")
	}
}

type snapshotVoxel struct {
	pos  mgl32.Vec3
	kind VoxelKind
}

func allVoxels(w *VoxelWorld) []snapshotVoxel {
	var result []snapshotVoxel
	for _, chunk := range w.Chunks() {
		for _, v := range chunk.VoxelSlice() {
			result = append(result, snapshotVoxel{v.Position, v.Kind})
		}
	}
	return result
}

func TestClearSphere(t *testing.T) {
	quietLogs(t)
	worlds := map[string]*VoxelWorld{
		"cubic":   mustCubicWorld(t, 2),
		"noise3d": mustWorld(t, 2, NewNoise3DGenerator(DEFAULT_SEED), DefaultWorldConfig()),
	}
	center := mgl32.Vec3{16.3, 15.7, 16.1}
	const radius = 3

	for name, w := range worlds {
		t.Run(name, func(t *testing.T) {
			before := allVoxels(w)
			cleared := w.ClearSphere(center, radius)
			after := allVoxels(w)

			if len(before) != len(after) {
				t.Fatalf("voxel count changed from %d to %d", len(before), len(after))
			}
			changed := 0
			for i := range before {
				inside := util.DistanceSq(before[i].pos, center) < radius*radius
				wantKind := before[i].kind
				if inside {
					wantKind = Air
				}
				if after[i].kind != wantKind {
					t.Fatalf("voxel %v: kind %v, want %v", before[i].pos, after[i].kind, wantKind)
				}
				if after[i].kind != before[i].kind {
					changed++
				}
			}
			if changed != cleared {
				t.Errorf("ClearSphere reported %d, changed %d", cleared, changed)
			}
		})
	}
}

func TestDirtyChunksAfterClearSphere(t *testing.T) {
	quietLogs(t)
	w := mustCubicWorld(t, 2)
	if n := len(slices.Collect(w.IterDirtyChunks())); n != 8 {
		t.Fatalf("%d dirty chunks after creation, want 8", n)
	}
	for chunk := range w.IterDirtyChunks() {
		chunk.SetClean()
	}
	w.ClearSphere(mgl32.Vec3{4, 4, 4}, 2)
	dirty := slices.Collect(w.IterDirtyChunks())
	if len(dirty) != 1 || dirty[0].Position() != (util.Int3{}) {
		t.Errorf("dirty chunks = %v, want only the first chunk", dirty)
	}
}

func chunkDistanceSq(p util.Int3, center mgl32.Vec3) float32 {
	return util.DistanceSq(chunkCenter(p), center)
}

func TestIncrementalGenerationNearestFirst(t *testing.T) {
	quietLogs(t)
	w := mustCubicWorld(t, 1)
	center := mgl32.Vec3{8, 8, 8}
	region := util.IAabb{Max: util.Int3{X: 128, Y: 128, Z: 128}}

	w.ExpandToFitRegion(region, center)
	if w.Size() != 8 {
		t.Fatalf("Size() = %d after expand, want 8", w.Size())
	}
	if !w.IsGenerating() {
		t.Fatalf("no generation started")
	}
	// in flight, so this must not start a second job
	w.ExpandToFitRegion(region, mgl32.Vec3{120, 120, 120})

	if n := awaitBatch(t, w); n != MAX_CHUNKS_PER_BATCH {
		t.Fatalf("first batch inserted %d chunks, want %d", n, MAX_CHUNKS_PER_BATCH)
	}
	if w.ChunkCount() != 1+MAX_CHUNKS_PER_BATCH {
		t.Fatalf("ChunkCount() = %d, want %d", w.ChunkCount(), 1+MAX_CHUNKS_PER_BATCH)
	}

	var farthestLoaded float32
	nearestMissing := util.Inf(1)
	for x := int32(0); x < 8; x++ {
		for y := int32(0); y < 8; y++ {
			for z := int32(0); z < 8; z++ {
				pos := util.Int3{X: x, Y: y, Z: z}
				d := chunkDistanceSq(pos, center)
				if _, ok := w.GetChunk(pos); ok {
					farthestLoaded = max(farthestLoaded, d)
				} else {
					nearestMissing = min(nearestMissing, d)
				}
			}
		}
	}
	if farthestLoaded > nearestMissing {
		t.Errorf("loaded chunk at distance² %v while a chunk at %v is missing", farthestLoaded, nearestMissing)
	}

	for rounds := 0; w.ChunkCount() < 512; rounds++ {
		if rounds > 10 {
			t.Fatalf("world not filled after %d rounds, %d chunks", rounds, w.ChunkCount())
		}
		w.ExpandToFitRegion(region, center)
		awaitBatch(t, w)
	}
	w.ExpandToFitRegion(region, center)
	if w.IsGenerating() {
		t.Errorf("generation started although the region is complete")
	}
}

func TestReceiveChunksPolls(t *testing.T) {
	quietLogs(t)
	w := mustCubicWorld(t, 1)
	if n := w.ReceiveChunks(); n != 0 {
		t.Errorf("ReceiveChunks without a job = %d, want 0", n)
	}
	w.ExpandToFitRegion(util.IAabb{Max: util.Int3{X: 32, Y: 16, Z: 16}}, mgl32.Vec3{})

	deadline := time.Now().Add(30 * time.Second)
	received := 0
	for received == 0 && time.Now().Before(deadline) {
		received = w.ReceiveChunks()
		time.Sleep(time.Millisecond)
	}
	if received != 1 {
		t.Fatalf("received %d chunks, want 1", received)
	}
	if w.IsGenerating() {
		t.Errorf("still generating after the batch arrived")
	}
	if _, ok := w.GetChunk(util.Int3{X: 1}); !ok {
		t.Errorf("generated chunk was not inserted")
	}
}

func TestDroppedBatch(t *testing.T) {
	quietLogs(t)
	gen := GeneratorFunc(func(origin util.Int3) *VoxelChunk {
		if origin != (util.Int3{}) {
			panic("cannot generate away from the origin")
		}
		return CubicGenerator{}.GenerateChunk(origin)
	})
	w := mustWorld(t, 1, gen, DefaultWorldConfig())
	w.ExpandToFitRegion(util.IAabb{Max: util.Int3{X: 32, Y: 32, Z: 32}}, mgl32.Vec3{})
	if n := awaitBatch(t, w); n != 0 {
		t.Errorf("dropped batch inserted %d chunks", n)
	}
	if w.IsGenerating() {
		t.Errorf("generation flag not cleared after a dropped batch")
	}
	if w.ChunkCount() != 1 {
		t.Errorf("ChunkCount() = %d, want 1", w.ChunkCount())
	}

	w.ExpandToFitRegion(util.IAabb{Max: util.Int3{X: 32, Y: 32, Z: 32}}, mgl32.Vec3{})
	if !w.IsGenerating() {
		t.Errorf("a later tick could not retry generation")
	}
	awaitBatch(t, w)
}

func TestExpandRespectsMaxTreeSize(t *testing.T) {
	quietLogs(t)
	config := DefaultWorldConfig()
	config.MaxTreeSize = 2
	w := mustWorld(t, 1, CubicGenerator{}, config)
	w.ExpandToFitRegion(util.IAabb{Max: util.Int3{X: 1000, Y: 32, Z: 32}}, mgl32.Vec3{})
	if w.Size() != 2 {
		t.Errorf("Size() = %d, want 2", w.Size())
	}
	awaitBatch(t, w)
	if w.ChunkCount() != 8 {
		t.Errorf("ChunkCount() = %d, want 8", w.ChunkCount())
	}
}

func TestExpandIgnoresNegativeRegion(t *testing.T) {
	quietLogs(t)
	w := mustCubicWorld(t, 1)
	w.ExpandToFitRegion(util.IAabb{Min: util.Int3{X: -64, Y: -64, Z: -64}, Max: util.Int3{X: -1, Y: -1, Z: -1}}, mgl32.Vec3{})
	if w.Size() != 1 || w.IsGenerating() {
		t.Errorf("negative region changed the world: size %d, generating %v", w.Size(), w.IsGenerating())
	}
}

func TestAwaitChunksHonoursContext(t *testing.T) {
	quietLogs(t)
	release := make(chan struct{})
	gen := GeneratorFunc(func(origin util.Int3) *VoxelChunk {
		if origin != (util.Int3{}) {
			<-release
		}
		return CubicGenerator{}.GenerateChunk(origin)
	})
	w := mustWorld(t, 1, gen, DefaultWorldConfig())
	w.ExpandToFitRegion(util.IAabb{Max: util.Int3{X: 32, Y: 16, Z: 16}}, mgl32.Vec3{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := w.AwaitChunks(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("AwaitChunks error = %v, want deadline exceeded", err)
	}
	if n := w.ReceiveChunks(); n != 0 {
		t.Errorf("ReceiveChunks = %d while the batch is blocked", n)
	}
	close(release)
	if n := awaitBatch(t, w); n != 1 {
		t.Errorf("batch inserted %d chunks, want 1", n)
	}
}

func TestRaycast(t *testing.T) {
	quietLogs(t)
	w := mustCubicWorld(t, 1)
	hit, ok := w.Raycast(mgl32.Vec3{4.2, 30, 7.9}, mgl32.Vec3{0, -1, 0}, 20)
	if !ok {
		t.Fatalf("ray missed the world")
	}
	if hit.CollisionGridPosition != (util.Int3{X: 4, Y: 15, Z: 8}) || hit.Side != util.Top {
		t.Errorf("hit = %+v, want the top of voxel (4, 15, 8)", hit)
	}
	if !hit.CollisionWorldPosition.ApproxEqualThreshold(mgl32.Vec3{4.2, 15.5, 7.9}, 1e-4) {
		t.Errorf("hit point = %v", hit.CollisionWorldPosition)
	}

	if err := w.SetVoxel(util.Int3{X: 4, Y: 15, Z: 8}, Air); err != nil {
		t.Fatalf("SetVoxel: %v", err)
	}
	hit, ok = w.Raycast(mgl32.Vec3{4.2, 30, 7.9}, mgl32.Vec3{0, -1, 0}, 20)
	if !ok || hit.CollisionGridPosition.Y != 14 {
		t.Errorf("ray through the hole = %+v, %v; want voxel at y 14", hit, ok)
	}
	if _, ok := w.Raycast(mgl32.Vec3{4, 30, 8}, mgl32.Vec3{1, 0, 0}, 100); ok {
		t.Errorf("horizontal ray above the world hit something")
	}
}

func TestSetChunk(t *testing.T) {
	quietLogs(t)
	w := mustCubicWorld(t, 2)
	replacement := NewVoxelChunk(util.Int3{X: 16, Y: 0, Z: 16})
	if err := w.SetChunk(replacement); err != nil {
		t.Fatalf("SetChunk: %v", err)
	}
	if got, _ := w.GetChunk(util.Int3{X: 1, Z: 1}); got != replacement {
		t.Errorf("GetChunk returned %v, want the replacement", got)
	}
	if w.ChunkCount() != 8 {
		t.Errorf("ChunkCount() = %d after replacing, want 8", w.ChunkCount())
	}
	if w.IsSolidAt(util.Int3{X: 20, Y: 3, Z: 20}) {
		t.Errorf("replaced chunk still solid")
	}
	if err := w.SetChunk(NewVoxelChunk(util.Int3{X: 64})); err == nil {
		t.Errorf("chunk outside the world accepted")
	}
}

func TestCloseDuringGeneration(t *testing.T) {
	quietLogs(t)
	var generated atomic.Int32
	slow := GeneratorFunc(func(origin util.Int3) *VoxelChunk {
		generated.Add(1)
		time.Sleep(5 * time.Millisecond)
		return NewVoxelChunk(origin)
	})
	config := DefaultWorldConfig()
	config.Workers = 1
	w := mustWorld(t, 1, slow, config)
	w.ExpandToFitRegion(util.IAabb{Max: util.Int3{X: 128, Y: 128, Z: 128}}, mgl32.Vec3{})
	if !w.IsGenerating() {
		t.Fatalf("no generation started")
	}

	w.Close()
	if n := generated.Load(); n >= 1+MAX_CHUNKS_PER_BATCH {
		t.Errorf("closing waited for the whole batch, %d chunks generated", n)
	}
	if n := awaitBatch(t, w); n != 0 {
		t.Errorf("batch abandoned by Close inserted %d chunks", n)
	}
	w.ExpandToFitRegion(util.IAabb{Max: util.Int3{X: 128, Y: 128, Z: 128}}, mgl32.Vec3{})
	if w.IsGenerating() {
		t.Errorf("closed world started a new batch")
	}
	w.Close()
}
