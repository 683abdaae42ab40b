package octree

import (
	"iter"

	"github.com/memmaker/octovox/engine/util"
)

type stackEntry[T any] struct {
	node   *node[T]
	origin util.Int3
	size   int32
}

// walk visits every leaf whose box intersects region, depth first with an
// explicit stack. Subtrees disjoint from region are skipped entirely.
func (o *Octree[T]) walk(region util.IAabb, visit func(n *node[T], origin util.Int3, size int32) bool) {
	stack := []stackEntry[T]{{node: o.root, origin: o.origin, size: o.size}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !util.NewIAabb(top.origin, top.size).Intersects(region) {
			continue
		}
		if top.node.isLeaf() {
			if !visit(top.node, top.origin, top.size) {
				return
			}
			continue
		}
		half := top.size / 2
		for i := len(top.node.children) - 1; i >= 0; i-- {
			stack = append(stack, stackEntry[T]{
				node:   top.node.children[i],
				origin: top.origin.Add(childOrigin(i, half)),
				size:   half,
			})
		}
	}
}

// IterRegion yields the values stored inside region.
func (o *Octree[T]) IterRegion(region util.IAabb) iter.Seq[T] {
	return func(yield func(T) bool) {
		o.walk(region, func(n *node[T], _ util.Int3, _ int32) bool {
			if !n.hasData {
				return true
			}
			return yield(n.data)
		})
	}
}

// IterRegionWithPosition is IterRegion with the position of every value.
func (o *Octree[T]) IterRegionWithPosition(region util.IAabb) iter.Seq2[util.Int3, T] {
	return func(yield func(util.Int3, T) bool) {
		o.walk(region, func(n *node[T], origin util.Int3, _ int32) bool {
			if !n.hasData {
				return true
			}
			return yield(origin, n.data)
		})
	}
}

// All yields every stored value with its position.
func (o *Octree[T]) All() iter.Seq2[util.Int3, T] {
	return o.IterRegionWithPosition(o.Bounds())
}

// IterEmptyWithinRegion yields the origin and edge length of every empty leaf
// that intersects region. A large empty leaf may extend past the region.
func (o *Octree[T]) IterEmptyWithinRegion(region util.IAabb) iter.Seq2[util.Int3, int32] {
	return func(yield func(util.Int3, int32) bool) {
		o.walk(region, func(n *node[T], origin util.Int3, size int32) bool {
			if n.hasData {
				return true
			}
			return yield(origin, size)
		})
	}
}
