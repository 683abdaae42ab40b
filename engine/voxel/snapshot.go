package voxel

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/Tnze/go-mc/nbt"
	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/memmaker/octovox/engine/util"
	"github.com/pkg/errors"
)

/*
A snapshot file starts with the 8 byte magic "octovox1", followed by a gzip
stream holding one NBT compound:

	TAG_Compound("octovox") {
	    "version":   TAG_Int
	    "tree_size": TAG_Int
	    "chunks":    TAG_List(TAG_Compound {
	        "x", "y", "z": TAG_Int       chunk-space position
	        "kinds":       TAG_Byte_Array CHUNK_SIZE³ voxel kinds in x, y, z order
	        "checksum":    TAG_Long       xxhash64 of kinds
	    })
	}
*/

const (
	snapshotMagic   = "octovox1"
	snapshotVersion = 1
)

var ErrCorruptSnapshot = errors.New("corrupt world snapshot")

type worldSnapshot struct {
	Version  int32           `nbt:"version"`
	TreeSize int32           `nbt:"tree_size"`
	Chunks   []chunkSnapshot `nbt:"chunks"`
}

type chunkSnapshot struct {
	X        int32  `nbt:"x"`
	Y        int32  `nbt:"y"`
	Z        int32  `nbt:"z"`
	Kinds    []byte `nbt:"kinds"`
	Checksum int64  `nbt:"checksum"`
}

func checksum(kinds []byte) int64 {
	return int64(xxhash.Sum64(kinds))
}

// SaveSnapshot writes every loaded chunk. A batch still in flight is not included.
func SaveSnapshot(w io.Writer, world *VoxelWorld) error {
	snapshot := worldSnapshot{
		Version:  snapshotVersion,
		TreeSize: world.Size(),
		Chunks:   make([]chunkSnapshot, 0, world.ChunkCount()),
	}
	for pos, chunk := range world.Chunks() {
		kinds := chunk.Kinds()
		snapshot.Chunks = append(snapshot.Chunks, chunkSnapshot{
			X:        pos.X,
			Y:        pos.Y,
			Z:        pos.Z,
			Kinds:    kinds,
			Checksum: checksum(kinds),
		})
	}

	if _, err := io.WriteString(w, snapshotMagic); err != nil {
		return errors.Wrap(err, "write snapshot header")
	}
	gzipWriter := gzip.NewWriter(w)
	if err := nbt.NewEncoder(gzipWriter).Encode(snapshot, "octovox"); err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	if err := gzipWriter.Close(); err != nil {
		return errors.Wrap(err, "flush snapshot")
	}
	return nil
}

// LoadSnapshot rebuilds a world from a snapshot. Chunks that were never saved
// stay empty and are generated by generator on demand. Loaded chunks start dirty.
func LoadSnapshot(r io.Reader, generator ChunkGenerator, config WorldConfig) (*VoxelWorld, error) {
	var magic [len(snapshotMagic)]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, errors.Wrap(err, "read snapshot header")
	}
	if string(magic[:]) != snapshotMagic {
		return nil, errors.Wrapf(ErrCorruptSnapshot, "invalid magic number %q", magic[:])
	}
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open snapshot stream")
	}
	defer gzipReader.Close()

	var snapshot worldSnapshot
	if _, err := nbt.NewDecoder(gzipReader).Decode(&snapshot); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	if snapshot.Version != snapshotVersion {
		return nil, errors.Wrapf(ErrCorruptSnapshot, "unsupported version %d", snapshot.Version)
	}

	world, err := newEmptyWorld(snapshot.TreeSize, generator, config)
	if err != nil {
		return nil, err
	}
	for _, saved := range snapshot.Chunks {
		chunk, err := saved.restore()
		if err == nil {
			err = world.tree.Insert(chunk.ChunkPosition(), chunk)
		}
		if err != nil {
			world.Close()
			return nil, err
		}
	}
	return world, nil
}

func (s chunkSnapshot) restore() (*VoxelChunk, error) {
	pos := util.Int3{X: s.X, Y: s.Y, Z: s.Z}
	if len(s.Kinds) != int(CHUNK_SIZE_CUBED) {
		return nil, errors.Wrapf(ErrCorruptSnapshot, "chunk %v has %d voxels", pos, len(s.Kinds))
	}
	if checksum(s.Kinds) != s.Checksum {
		return nil, errors.Wrapf(ErrCorruptSnapshot, "checksum mismatch in chunk %v", pos)
	}
	for i, kind := range s.Kinds {
		if !VoxelKind(kind).IsValid() {
			return nil, errors.Wrapf(ErrCorruptSnapshot, "chunk %v voxel %d has kind %d", pos, i, kind)
		}
	}
	origin := pos.Mul(CHUNK_SIZE)
	index := 0
	return FillChunk(origin, func(util.Int3) VoxelKind {
		kind := VoxelKind(s.Kinds[index])
		index++
		return kind
	}), nil
}

func SaveToDisk(world *VoxelWorld, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "create snapshot file")
	}
	buffered := bufio.NewWriter(file)
	if err := SaveSnapshot(buffered, world); err != nil {
		file.Close()
		return err
	}
	if err := buffered.Flush(); err != nil {
		file.Close()
		return errors.Wrap(err, "write snapshot file")
	}
	if err := file.Close(); err != nil {
		return errors.Wrap(err, "close snapshot file")
	}
	util.LogIOInfo(fmt.Sprintf("[Snapshot] saved %d chunks to %s", world.ChunkCount(), filename))
	return nil
}

func LoadFromDisk(filename string, generator ChunkGenerator, config WorldConfig) (*VoxelWorld, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "open snapshot file")
	}
	defer file.Close()
	world, err := LoadSnapshot(bufio.NewReader(file), generator, config)
	if err != nil {
		util.LogIOError(fmt.Sprintf("[Snapshot] failed to load %s: %v", filename, err))
		return nil, err
	}
	util.LogIOInfo(fmt.Sprintf("[Snapshot] loaded %d chunks from %s", world.ChunkCount(), filename))
	return world, nil
}
