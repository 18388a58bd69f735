package ring

import (
	"github.com/google/btree"
)

// btreeDegree is the branching factor of the position tree.
const btreeDegree = 16

// slot is a single occupied position on the ring.
type slot[N comparable] struct {
	pos  uint64
	node N
}

func lessSlot[N comparable](a, b slot[N]) bool {
	return a.pos < b.pos
}

// Ring maps keys of type K to nodes of type N by consistent hashing.
// The zero value is not usable; construct with New or From.
//
// When N is an interface type, Contains panics if a stored node or its
// argument holds a value that is not comparable, such as a slice.
type Ring[N comparable, K any] struct {
	slots *btree.BTreeG[slot[N]]
	hash  func(v any) uint64
}

// New creates an empty ring.
func New[N comparable, K any]() *Ring[N, K] {
	return newRing[N, K](Position)
}

// From creates a ring holding the given nodes, added in order.
func From[N comparable, K any](nodes []N) *Ring[N, K] {
	r := New[N, K]()
	for _, node := range nodes {
		r.AddNode(node)
	}
	return r
}

func newRing[N comparable, K any](hash func(v any) uint64) *Ring[N, K] {
	return &Ring[N, K]{
		slots: btree.NewG[slot[N]](btreeDegree, lessSlot[N]),
		hash:  hash,
	}
}

// AddNode places node at its hash position.
// If another node already occupies that exact position it is replaced
// without notice; distinct nodes whose hashes collide cannot coexist.
func (r *Ring[N, K]) AddNode(node N) {
	r.slots.ReplaceOrInsert(slot[N]{pos: r.hash(node), node: node})
}

// RemoveNode removes the node occupying the clockwise successor of node's
// position. When node itself is on the ring that is node; otherwise it is
// whichever node follows the position node would have had. Removing from an
// empty ring does nothing.
func (r *Ring[N, K]) RemoveNode(node N) {
	s, ok := r.successor(r.hash(node))
	if !ok {
		return
	}
	r.slots.Delete(s)
}

// GetNode returns the node responsible for key: the first node at or after
// the key's position, wrapping to the lowest position. It returns false
// only when the ring is empty.
func (r *Ring[N, K]) GetNode(key K) (N, bool) {
	s, ok := r.successor(r.hash(key))
	return s.node, ok
}

// Successors returns up to n nodes walking clockwise from the node
// responsible for key. The first element is what GetNode returns. Useful
// for picking replicas.
func (r *Ring[N, K]) Successors(key K, n int) []N {
	if n <= 0 || r.slots.Len() == 0 {
		return []N{}
	}
	n = min(n, r.slots.Len())

	pos := r.hash(key)
	result := make([]N, 0, n)
	collect := func(s slot[N]) bool {
		result = append(result, s.node)
		return len(result) < n
	}
	r.slots.AscendGreaterOrEqual(slot[N]{pos: pos}, collect)
	if len(result) < n {
		// Wrap around
		r.slots.AscendLessThan(slot[N]{pos: pos}, collect)
	}
	return result
}

// Contains reports whether node occupies its own hash position. Nodes are
// compared with ==, which panics for uncomparable dynamic values of an
// interface N.
func (r *Ring[N, K]) Contains(node N) bool {
	s, ok := r.slots.Get(slot[N]{pos: r.hash(node)})
	return ok && s.node == node
}

// Len returns the number of nodes on the ring.
func (r *Ring[N, K]) Len() int {
	return r.slots.Len()
}

// Nodes returns all nodes in clockwise order, starting from the lowest
// position.
func (r *Ring[N, K]) Nodes() []N {
	nodes := make([]N, 0, r.slots.Len())
	r.slots.Ascend(func(s slot[N]) bool {
		nodes = append(nodes, s.node)
		return true
	})
	return nodes
}

// successor finds the first slot with position >= pos, wrapping around to
// the lowest slot.
func (r *Ring[N, K]) successor(pos uint64) (slot[N], bool) {
	var (
		found slot[N]
		ok    bool
	)
	r.slots.AscendGreaterOrEqual(slot[N]{pos: pos}, func(s slot[N]) bool {
		found, ok = s, true
		return false
	})
	if ok {
		return found, true
	}
	// Wrap around
	return r.slots.Min()
}
