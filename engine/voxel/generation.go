package voxel

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/memmaker/octovox/engine/pqueue"
	"github.com/memmaker/octovox/engine/util"
	"github.com/pkg/errors"
)

type generatedBatch struct {
	id        uuid.UUID
	positions []util.Int3
	chunks    []*VoxelChunk
}

// generateChunks runs the generator for every chunk-space position on the
// worker pool. Results keep the order of positions. Closing the world makes
// the remaining tasks return without generating and fails the whole call.
func (w *VoxelWorld) generateChunks(positions []util.Int3) ([]*VoxelChunk, error) {
	group := w.pool.NewGroup()
	for _, pos := range positions {
		origin := pos.Mul(CHUNK_SIZE)
		group.Submit(func() *VoxelChunk {
			if w.closed.Load() {
				return nil
			}
			chunk := w.generator.GenerateChunk(origin)
			if chunk == nil || chunk.Position() != origin {
				panic(fmt.Sprintf("generator returned a chunk for %v, want %v", chunk, origin))
			}
			return chunk
		})
	}
	chunks, err := group.Wait()
	if err != nil {
		return nil, err
	}
	if w.closed.Load() {
		return nil, ErrWorldClosed
	}
	return chunks, nil
}

// ExpandToFitRegion grows the world until it covers region (world space) and
// starts generating the missing chunks in it, nearest to center first. Parts
// of region below zero are ignored. Growth stops at the configured maximum.
func (w *VoxelWorld) ExpandToFitRegion(region util.IAabb, center mgl32.Vec3) {
	region.Min = region.Min.Max(util.Int3{})
	if region.IsEmpty() {
		return
	}
	for !w.tree.TotalRegionWorldSpace(CHUNK_SIZE).Contains(region) {
		if w.tree.Size()*2 > w.config.MaxTreeSize {
			if !w.capWarned {
				util.LogGenerationWarning(fmt.Sprintf("[World] region %v exceeds max world size %d", region, w.config.MaxTreeSize))
				w.capWarned = true
			}
			break
		}
		if err := w.tree.Grow(CHUNK_SIZE); err != nil {
			util.LogGenerationError(err.Error())
			break
		}
	}
	w.spawnChunkGeneration(region, center)
}

// spawnChunkGeneration starts one background batch unless one is in flight
// or the world is closed.
func (w *VoxelWorld) spawnChunkGeneration(region util.IAabb, center mgl32.Vec3) {
	if w.generating || w.closed.Load() {
		return
	}
	chunkRegion, ok := ToChunkSpace(region).Intersection(w.tree.Bounds())
	if !ok {
		return
	}
	positions := w.emptyPositions(chunkRegion)
	if len(positions) == 0 {
		return
	}
	if len(positions) > w.config.MaxChunksPerBatch {
		positions = pqueue.Nearest(positions, w.config.MaxChunksPerBatch, func(p util.Int3) float32 {
			return util.DistanceSq(chunkCenter(p), center)
		})
	}

	batch := uuid.New()
	out := make(chan generatedBatch, 1)
	w.pending = out
	w.generating = true
	util.LogGenerationDebug(fmt.Sprintf("[Generation] batch %s: %d chunks around %v", batch, len(positions), center))
	w.batches.Add(1)
	go w.runBatch(batch, positions, out)
}

// emptyPositions lists every chunk-space position inside region that holds no chunk.
func (w *VoxelWorld) emptyPositions(region util.IAabb) []util.Int3 {
	var positions []util.Int3
	for origin, size := range w.tree.IterEmptyWithinRegion(region) {
		overlap, ok := util.NewIAabb(origin, size).Intersection(region)
		if !ok {
			continue
		}
		for x := overlap.Min.X; x < overlap.Max.X; x++ {
			for y := overlap.Min.Y; y < overlap.Max.Y; y++ {
				for z := overlap.Min.Z; z < overlap.Max.Z; z++ {
					positions = append(positions, util.Int3{X: x, Y: y, Z: z})
				}
			}
		}
	}
	return positions
}

// chunkCenter is the world-space center of the chunk at chunk-space position p.
func chunkCenter(p util.Int3) mgl32.Vec3 {
	half := float32(CHUNK_SIZE) / 2
	return p.Mul(CHUNK_SIZE).ToVec3().Add(mgl32.Vec3{half, half, half})
}

// runBatch never sends on failure. The closed channel is the failure signal.
func (w *VoxelWorld) runBatch(id uuid.UUID, positions []util.Int3, out chan<- generatedBatch) {
	defer w.batches.Done()
	defer func() {
		if r := recover(); r != nil {
			util.LogGenerationError(fmt.Sprintf("[Generation] batch %s panicked: %v", id, r))
			close(out)
		}
	}()
	stop := w.timer.Start("generate_batch")
	chunks, err := w.generateChunks(positions)
	if errors.Is(err, ErrWorldClosed) {
		util.LogGenerationDebug(fmt.Sprintf("[Generation] batch %s abandoned, world closed", id))
		close(out)
		return
	}
	if err != nil {
		util.LogGenerationError(fmt.Sprintf("[Generation] batch %s failed: %v", id, err))
		close(out)
		return
	}
	util.LogGenerationDebug(fmt.Sprintf("[Generation] batch %s done in %.2fms", id, stop()))
	out <- generatedBatch{id: id, positions: positions, chunks: chunks}
}

func (w *VoxelWorld) IsGenerating() bool {
	return w.generating
}

// ReceiveChunks inserts the chunks of a finished background batch and returns
// how many arrived. It never blocks; 0 means nothing is ready yet.
func (w *VoxelWorld) ReceiveChunks() int {
	if !w.generating {
		return 0
	}
	select {
	case batch, ok := <-w.pending:
		return w.absorb(batch, ok)
	default:
		return 0
	}
}

// AwaitChunks blocks until the in-flight batch arrives or ctx is done.
func (w *VoxelWorld) AwaitChunks(ctx context.Context) (int, error) {
	if !w.generating {
		return 0, nil
	}
	select {
	case batch, ok := <-w.pending:
		return w.absorb(batch, ok), nil
	case <-ctx.Done():
		return 0, errors.Wrap(ctx.Err(), "waiting for chunk batch")
	}
}

func (w *VoxelWorld) absorb(batch generatedBatch, ok bool) int {
	w.generating = false
	w.pending = nil
	if !ok {
		util.LogGenerationError("[Generation] background batch dropped, no chunks this round")
		return 0
	}
	inserted := 0
	for i, chunk := range batch.chunks {
		if err := w.tree.Insert(batch.positions[i], chunk); err != nil {
			util.LogGenerationError(fmt.Sprintf("[Generation] batch %s: %v", batch.id, err))
			continue
		}
		inserted++
	}
	util.LogGenerationDebug(fmt.Sprintf("[Generation] batch %s: inserted %d chunks, world holds %d", batch.id, inserted, w.tree.Len()))
	return inserted
}
