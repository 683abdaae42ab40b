// Package octree provides a sparse octree over integer coordinates. Nodes are
// created lazily, so an empty tree of any size costs a single leaf.
//
// The tree is not safe for concurrent use. Callers that share it between
// goroutines must serialize inserts and growth against readers themselves.
package octree

import (
	"fmt"

	"github.com/memmaker/octovox/engine/util"
	"github.com/pkg/errors"
)

var (
	ErrOutOfBounds   = errors.New("position outside of octree bounds")
	ErrNotPowerOfTwo = errors.New("octree size must be a power of two")
	ErrSizeOverflow  = errors.New("octree size overflow")
)

// maxSize keeps the world-space coverage of 16-unit chunks inside int32.
const maxSize = int32(1 << 26)

// Octree maps every integer position in [origin, origin+size) to at most one value.
// The origin is fixed at zero and the tree only grows toward positive coordinates.
type Octree[T any] struct {
	root   *node[T]
	size   int32
	origin util.Int3
	count  int
}

func New[T any](size int32) (*Octree[T], error) {
	if !util.IsPowerOfTwo(size) {
		return nil, errors.Wrapf(ErrNotPowerOfTwo, "got %d", size)
	}
	return &Octree[T]{
		root: &node[T]{},
		size: size,
	}, nil
}

func (o *Octree[T]) Size() int32 {
	return o.size
}

func (o *Octree[T]) Origin() util.Int3 {
	return o.origin
}

// Len is the number of occupied positions.
func (o *Octree[T]) Len() int {
	return o.count
}

func (o *Octree[T]) Bounds() util.IAabb {
	return util.NewIAabb(o.origin, o.size)
}

// TotalRegionWorldSpace is the covered volume when every tree unit spans chunkSize world units.
func (o *Octree[T]) TotalRegionWorldSpace(chunkSize int32) util.IAabb {
	return util.NewIAabb(o.origin.Mul(chunkSize), o.size*chunkSize)
}

func (o *Octree[T]) Contains(pos util.Int3) bool {
	return o.Bounds().ContainsPoint(pos)
}

func (o *Octree[T]) Insert(pos util.Int3, data T) error {
	if !o.Contains(pos) {
		return errors.Wrapf(ErrOutOfBounds, "insert at %v, bounds %v", pos, o.Bounds())
	}
	if o.root.insert(pos.Sub(o.origin), o.size, data) {
		o.count++
	}
	return nil
}

// Get returns false for empty and out of bounds positions.
func (o *Octree[T]) Get(pos util.Int3) (T, bool) {
	if !o.Contains(pos) {
		var zero T
		return zero, false
	}
	return o.root.get(pos.Sub(o.origin), o.size)
}

func (o *Octree[T]) Remove(pos util.Int3) (T, bool) {
	if !o.Contains(pos) {
		var zero T
		return zero, false
	}
	data, ok := o.root.remove(pos.Sub(o.origin), o.size)
	if ok {
		o.count--
	}
	return data, ok
}

// Grow doubles the edge length. The old root becomes octant 0 of the new root,
// so every stored position keeps its coordinates.
func (o *Octree[T]) Grow(chunkSize int32) error {
	if o.size >= maxSize {
		return errors.Wrapf(ErrSizeOverflow, "cannot grow beyond %d", o.size)
	}
	var children [8]*node[T]
	children[0] = o.root
	for i := 1; i < len(children); i++ {
		children[i] = &node[T]{}
	}
	o.root = &node[T]{children: &children}
	o.size *= 2
	util.LogVoxelInfo(fmt.Sprintf("[Octree] grown to %d, world region %v", o.size, o.TotalRegionWorldSpace(chunkSize)))
	return nil
}
