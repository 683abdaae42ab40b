package voxel

const (
	CHUNK_SIZE         int32 = 16
	CHUNK_SIZE_SQUARED int32 = CHUNK_SIZE * CHUNK_SIZE
	CHUNK_SIZE_CUBED   int32 = CHUNK_SIZE * CHUNK_SIZE * CHUNK_SIZE

	// MAX_CHUNKS_PER_BATCH caps a single background generation job.
	MAX_CHUNKS_PER_BATCH = 200
)
