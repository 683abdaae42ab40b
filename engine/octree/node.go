package octree

import "github.com/memmaker/octovox/engine/util"

// node is a leaf until the first insert below it materializes all 8 children.
type node[T any] struct {
	data     T
	hasData  bool
	children *[8]*node[T]
}

func (n *node[T]) isLeaf() bool {
	return n.children == nil
}

func (n *node[T]) split() {
	var children [8]*node[T]
	for i := range children {
		children[i] = &node[T]{}
	}
	n.children = &children
}

// octant picks the child for a position local to a node of edge length 2*half.
// bit 0 = x, bit 1 = y, bit 2 = z.
func octant(pos util.Int3, half int32) int {
	index := 0
	if pos.X >= half {
		index |= 1
	}
	if pos.Y >= half {
		index |= 2
	}
	if pos.Z >= half {
		index |= 4
	}
	return index
}

// childOrigin is the offset of octant i inside its parent.
func childOrigin(i int, half int32) util.Int3 {
	var offset util.Int3
	if i&1 != 0 {
		offset.X = half
	}
	if i&2 != 0 {
		offset.Y = half
	}
	if i&4 != 0 {
		offset.Z = half
	}
	return offset
}

// insert returns true when the position was empty before.
func (n *node[T]) insert(pos util.Int3, size int32, data T) bool {
	if size == 1 {
		wasEmpty := !n.hasData
		n.data = data
		n.hasData = true
		return wasEmpty
	}
	if n.isLeaf() {
		n.split()
	}
	half := size / 2
	local := util.Int3{X: pos.X % half, Y: pos.Y % half, Z: pos.Z % half}
	return n.children[octant(pos, half)].insert(local, half, data)
}

func (n *node[T]) get(pos util.Int3, size int32) (T, bool) {
	if size == 1 || n.isLeaf() {
		if size == 1 && n.hasData {
			return n.data, true
		}
		var zero T
		return zero, false
	}
	half := size / 2
	local := util.Int3{X: pos.X % half, Y: pos.Y % half, Z: pos.Z % half}
	return n.children[octant(pos, half)].get(local, half)
}

// remove returns the value that was stored. Emptied subtrees are not collapsed.
func (n *node[T]) remove(pos util.Int3, size int32) (T, bool) {
	var zero T
	if size == 1 {
		if !n.hasData {
			return zero, false
		}
		data := n.data
		n.data = zero
		n.hasData = false
		return data, true
	}
	if n.isLeaf() {
		return zero, false
	}
	half := size / 2
	local := util.Int3{X: pos.X % half, Y: pos.Y % half, Z: pos.Z % half}
	return n.children[octant(pos, half)].remove(local, half)
}
