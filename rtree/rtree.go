// Package rtree provides an in-memory R-tree over 2D bounding boxes with
// quadratic split, supporting range and k-nearest queries. The tree is
// not internally synchronized, readers are safe once construction is
// complete and no further insertions occur.
package rtree

import (
	"fmt"
	"math"
	"sort"
)

const (
	DefaultMaxEntries = 16
	DefaultMinEntries = 4
)

// Box is a 2D bounding box.
type Box struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Area returns the covered area.
func (b Box) Area() float64 {
	return (b.MaxX - b.MinX) * (b.MaxY - b.MinY)
}

// Extend grows the box to include the other box.
func (b Box) Extend(other Box) Box {
	return Box{
		MinX: math.Min(b.MinX, other.MinX),
		MinY: math.Min(b.MinY, other.MinY),
		MaxX: math.Max(b.MaxX, other.MaxX),
		MaxY: math.Max(b.MaxY, other.MaxY),
	}
}

// Enlargement returns how much area the box gains by including other.
func (b Box) Enlargement(other Box) float64 {
	return b.Extend(other).Area() - b.Area()
}

// Intersects reports whether the two boxes overlap.
func (b Box) Intersects(other Box) bool {
	return b.MinX <= other.MaxX && b.MaxX >= other.MinX &&
		b.MinY <= other.MaxY && b.MaxY >= other.MinY
}

// PointBox returns the degenerate box [x,x]×[y,y].
func PointBox(x, y float64) Box {
	return Box{MinX: x, MinY: y, MaxX: x, MaxY: y}
}

// distance returns the minimum squared distance from the point to the box,
// zero when the point lies inside.
func (b Box) distance(x, y float64) float64 {
	dx := math.Max(0, math.Max(b.MinX-x, x-b.MaxX))
	dy := math.Max(0, math.Max(b.MinY-y, y-b.MaxY))
	return dx*dx + dy*dy
}

// Entry pairs a bounding box with the record number it indexes and
// optional user data. Data may own the decoded shape, decoupling the
// lifetime of the index from the byte source it was built from.
type Entry struct {
	Box  Box
	ID   int32
	Data interface{}
}

// node is either an internal node holding children or a leaf holding
// entries. Splits propagate by returning the new sibling up the
// recursion, no parent links are kept.
type node struct {
	box      Box
	entries  []Entry // leaf payload
	children []*node // nil for leaves
}

func (n *node) leaf() bool {
	return n.children == nil
}

// Tree is the R-tree root with its split parameters.
type Tree struct {
	root *node
	max  int
	min  int
	size int
}

// New creates a tree with the given node capacity bounds. Zero values
// select the defaults; an omitted minimum is lowered to max/2 when the
// default would exceed it. The minimum must satisfy 1 <= min <= max/2.
func New(max, min int) (*Tree, error) {
	if max == 0 {
		max = DefaultMaxEntries
	}
	if min == 0 {
		min = DefaultMinEntries
		if min > max/2 {
			min = max / 2
		}
	}
	if min < 1 || min > max/2 {
		return nil, fmt.Errorf("invalid node capacity: 1 <= %d <= %d/2 violated", min, max)
	}
	return &Tree{root: &node{}, max: max, min: min}, nil
}

// Len returns the number of entries in the tree.
func (t *Tree) Len() int {
	return t.size
}

// Insert adds an entry, splitting overflowing nodes with the quadratic
// algorithm and growing a new root when the split reaches the top.
func (t *Tree) Insert(entry Entry) {
	split := t.insert(t.root, entry)
	if split != nil {
		root := &node{children: []*node{t.root, split}}
		root.box = t.root.box.Extend(split.box)
		t.root = root
	}
	t.size++
}

// insert descends into the child needing the least enlargement and
// returns the new sibling if the node had to be split.
func (t *Tree) insert(n *node, entry Entry) *node {
	if t.size == 0 && n == t.root && n.leaf() && len(n.entries) == 0 {
		n.box = entry.Box
	}
	if n.leaf() {
		n.entries = append(n.entries, entry)
		n.box = n.box.Extend(entry.Box)
		if len(n.entries) > t.max {
			return t.splitLeaf(n)
		}
		return nil
	}
	child := chooseChild(n.children, entry.Box)
	split := t.insert(child, entry)
	n.box = n.box.Extend(entry.Box)
	if split != nil {
		n.children = append(n.children, split)
		if len(n.children) > t.max {
			return t.splitInternal(n)
		}
	}
	return nil
}

// chooseChild picks the child whose box needs the least area enlargement,
// ties broken by the smaller resulting area.
func chooseChild(children []*node, box Box) *node {
	best := children[0]
	bestEnlargement := best.box.Enlargement(box)
	bestArea := best.box.Extend(box).Area()
	for _, child := range children[1:] {
		enlargement := child.box.Enlargement(box)
		area := child.box.Extend(box).Area()
		if enlargement < bestEnlargement || (enlargement == bestEnlargement && area < bestArea) {
			best = child
			bestEnlargement = enlargement
			bestArea = area
		}
	}
	return best
}

/**
 *	################################################################
 *	#					quadratic split
 *	################################################################
 */

func (t *Tree) splitLeaf(n *node) *node {
	boxes := make([]Box, len(n.entries))
	for i, e := range n.entries {
		boxes[i] = e.Box
	}
	left, right := t.distribute(boxes)
	entries := n.entries
	n.entries = pickEntries(entries, left)
	n.box = boxUnion(boxes, left)
	return &node{
		entries: pickEntries(entries, right),
		box:     boxUnion(boxes, right),
	}
}

func (t *Tree) splitInternal(n *node) *node {
	boxes := make([]Box, len(n.children))
	for i, c := range n.children {
		boxes[i] = c.box
	}
	left, right := t.distribute(boxes)
	children := n.children
	n.children = pickNodes(children, left)
	n.box = boxUnion(boxes, left)
	return &node{
		children: pickNodes(children, right),
		box:      boxUnion(boxes, right),
	}
}

// distribute assigns the boxes to two groups: the worst pair seeds the
// groups, every following box goes to the group it enlarges least, with
// the remainder forced once a group must absorb all leftovers to reach
// the minimum fill.
func (t *Tree) distribute(boxes []Box) ([]int, []int) {
	seedA, seedB := pickSeeds(boxes)
	left := []int{seedA}
	right := []int{seedB}
	leftBox := boxes[seedA]
	rightBox := boxes[seedB]
	remaining := make([]int, 0, len(boxes)-2)
	for i := range boxes {
		if i != seedA && i != seedB {
			remaining = append(remaining, i)
		}
	}
	for len(remaining) > 0 {
		if len(left)+len(remaining) == t.min {
			for _, i := range remaining {
				left = append(left, i)
				leftBox = leftBox.Extend(boxes[i])
			}
			break
		}
		if len(right)+len(remaining) == t.min {
			for _, i := range remaining {
				right = append(right, i)
				rightBox = rightBox.Extend(boxes[i])
			}
			break
		}
		// Pick the box whose enlargement difference between the groups is
		// largest and assign it to the group it enlarges least.
		bestIndex := 0
		bestDiff := -1.0
		for pos, i := range remaining {
			diff := math.Abs(leftBox.Enlargement(boxes[i]) - rightBox.Enlargement(boxes[i]))
			if diff > bestDiff {
				bestDiff = diff
				bestIndex = pos
			}
		}
		i := remaining[bestIndex]
		remaining = append(remaining[:bestIndex], remaining[bestIndex+1:]...)
		enlargeLeft := leftBox.Enlargement(boxes[i])
		enlargeRight := rightBox.Enlargement(boxes[i])
		assignLeft := enlargeLeft < enlargeRight
		if enlargeLeft == enlargeRight {
			assignLeft = leftBox.Area() < rightBox.Area() ||
				(leftBox.Area() == rightBox.Area() && len(left) <= len(right))
		}
		if assignLeft {
			left = append(left, i)
			leftBox = leftBox.Extend(boxes[i])
		} else {
			right = append(right, i)
			rightBox = rightBox.Extend(boxes[i])
		}
	}
	return left, right
}

// pickSeeds returns the pair wasting the most area when joined.
func pickSeeds(boxes []Box) (int, int) {
	seedA, seedB := 0, 1
	worst := math.Inf(-1)
	for i := 0; i < len(boxes); i++ {
		for j := i + 1; j < len(boxes); j++ {
			waste := boxes[i].Extend(boxes[j]).Area() - boxes[i].Area() - boxes[j].Area()
			if waste > worst {
				worst = waste
				seedA, seedB = i, j
			}
		}
	}
	return seedA, seedB
}

func pickEntries(entries []Entry, indices []int) []Entry {
	out := make([]Entry, 0, len(indices))
	for _, i := range indices {
		out = append(out, entries[i])
	}
	return out
}

func pickNodes(nodes []*node, indices []int) []*node {
	out := make([]*node, 0, len(indices))
	for _, i := range indices {
		out = append(out, nodes[i])
	}
	return out
}

func boxUnion(boxes []Box, indices []int) Box {
	union := boxes[indices[0]]
	for _, i := range indices[1:] {
		union = union.Extend(boxes[i])
	}
	return union
}

/**
 *	################################################################
 *	#					queries
 *	################################################################
 */

// Search returns all entries whose box intersects the query box.
// The result is a superset guarantee: no intersecting entry is missed.
func (t *Tree) Search(box Box) []Entry {
	var out []Entry
	t.search(t.root, box, &out)
	return out
}

// SearchPoint searches with the degenerate box [x,x]×[y,y].
func (t *Tree) SearchPoint(x, y float64) []Entry {
	return t.Search(PointBox(x, y))
}

func (t *Tree) search(n *node, box Box, out *[]Entry) {
	if t.size == 0 || !n.box.Intersects(box) {
		return
	}
	if n.leaf() {
		for _, entry := range n.entries {
			if entry.Box.Intersects(box) {
				*out = append(*out, entry)
			}
		}
		return
	}
	for _, child := range n.children {
		t.search(child, box, out)
	}
}

// Nearest returns the k entries closest to the point, sorted by ascending
// minimum point-to-box distance. Every leaf entry is considered, so the
// result is exact.
func (t *Tree) Nearest(x, y float64, k int) []Entry {
	if k <= 0 {
		return nil
	}
	type candidate struct {
		entry    Entry
		distance float64
	}
	var candidates []candidate
	var collect func(n *node)
	collect = func(n *node) {
		if n.leaf() {
			for _, entry := range n.entries {
				candidates = append(candidates, candidate{entry: entry, distance: entry.Box.distance(x, y)})
			}
			return
		}
		for _, child := range n.children {
			collect(child)
		}
	}
	collect(t.root)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]Entry, k)
	for i := 0; i < k; i++ {
		out[i] = candidates[i].entry
	}
	return out
}

/**
 *	################################################################
 *	#					statistics
 *	################################################################
 */

// Stats summarizes the tree structure.
type Stats struct {
	Leaves         int
	Internals      int
	MaxDepth       int
	Entries        int
	EntriesPerLeaf float64
}

// Stats walks the tree and returns structural counters.
func (t *Tree) Stats() Stats {
	stats := Stats{}
	var walk func(n *node, depth int)
	walk = func(n *node, depth int) {
		if depth > stats.MaxDepth {
			stats.MaxDepth = depth
		}
		if n.leaf() {
			stats.Leaves++
			stats.Entries += len(n.entries)
			return
		}
		stats.Internals++
		for _, child := range n.children {
			walk(child, depth+1)
		}
	}
	walk(t.root, 1)
	if stats.Leaves > 0 {
		stats.EntriesPerLeaf = float64(stats.Entries) / float64(stats.Leaves)
	}
	return stats
}
