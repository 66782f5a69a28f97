package huffman

import "github.com/andybalholm/devil/bitio"

const (
	// EOS is the reserved end-of-stream symbol. Symbols 0–255 are byte
	// values.
	EOS = 256

	numSymbols = 257

	// rootOrder is the order of the first node. Each new symbol takes two
	// order values below the NYT leaf it splits, so with numSymbols symbols
	// the lowest order ever assigned is 1.
	rootOrder = 2*numSymbols + 1

	none = -1
)

// A node is an entry in the tree's arena. Links are indexes into the arena;
// a leaf has no children.
type node struct {
	weight uint64
	order  int32
	parent int32
	left   int32
	right  int32
	symbol int16
}

func (n *node) isLeaf() bool {
	return n.left == none
}

// A tree is an adaptive Huffman code tree kept in FGK order: sorting the
// nodes by order gives non-decreasing weights, and the two children of a
// node hold consecutive orders. The tree owns all of its nodes; it is built
// fresh for each stream and dropped when the stream ends.
type tree struct {
	nodes  []node
	nyt    int32
	leaves [numSymbols]int32

	// scratch space for leader searches and code paths
	stack []int32
	path  []uint8
}

const root = 0

func newTree() *tree {
	t := &tree{
		nodes: make([]node, 1, 2*numSymbols+1),
		nyt:   root,
	}
	t.nodes[root] = node{
		order:  rootOrder,
		parent: none,
		left:   none,
		right:  none,
		symbol: none,
	}
	for i := range t.leaves {
		t.leaves[i] = none
	}
	return t
}

// newCodeTree returns a tree with EOS already introduced, so that encoder
// and decoder start from the same non-empty tree.
func newCodeTree() *tree {
	t := newTree()
	t.update(t.addSymbol(EOS))
	return t
}

// addSymbol splits the NYT leaf into an internal node with a new NYT leaf
// on the left and a leaf for symbol, with weight 1, on the right. It returns
// the old NYT node, which is where the weight update has to start.
func (t *tree) addSymbol(symbol int) int32 {
	old := t.nyt
	order := t.nodes[old].order

	nyt := int32(len(t.nodes))
	leaf := nyt + 1
	t.nodes = append(t.nodes,
		node{
			order:  order - 2,
			parent: old,
			left:   none,
			right:  none,
			symbol: none,
		},
		node{
			weight: 1,
			order:  order - 1,
			parent: old,
			left:   none,
			right:  none,
			symbol: int16(symbol),
		},
	)

	t.nodes[old].left = nyt
	t.nodes[old].right = leaf
	t.nyt = nyt
	t.leaves[symbol] = leaf
	return old
}

// update adds one to the weight of n and of each of its ancestors. Before
// each increment, the node is swapped with the highest-ordered node of the
// same weight, unless that node is its parent.
func (t *tree) update(n int32) {
	for n != root {
		leader := t.findLeader(n)
		if leader != n && leader != t.nodes[n].parent {
			t.swap(n, leader)
		}
		t.nodes[n].weight++
		n = t.nodes[n].parent
	}
	t.nodes[root].weight++
}

// findLeader returns the node with the highest order among the nodes with
// the same weight as n. Subtrees are searched only below nodes that are
// heavier than n.
func (t *tree) findLeader(n int32) int32 {
	w := t.nodes[n].weight
	best := n
	stack := append(t.stack[:0], root)
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nd := &t.nodes[x]
		switch {
		case nd.weight > w && !nd.isLeaf():
			stack = append(stack, nd.left, nd.right)
		case nd.weight == w && nd.order > t.nodes[best].order:
			best = x
		}
	}
	t.stack = stack
	return best
}

// swap exchanges the positions of a and b in the tree, along with their
// subtrees. Orders belong to positions, so they are exchanged too; weights
// stay with the nodes.
func (t *tree) swap(a, b int32) {
	na, nb := &t.nodes[a], &t.nodes[b]
	pa, pb := na.parent, nb.parent

	if pa == pb {
		p := &t.nodes[pa]
		p.left, p.right = p.right, p.left
	} else {
		t.replaceChild(pa, a, b)
		t.replaceChild(pb, b, a)
		na.parent, nb.parent = pb, pa
	}
	na.order, nb.order = nb.order, na.order
}

func (t *tree) replaceChild(parent, old, new int32) {
	p := &t.nodes[parent]
	if p.left == old {
		p.left = new
	} else {
		p.right = new
	}
}

// writePath writes the code for n: the branches from the root down to n,
// 0 for left and 1 for right.
func (t *tree) writePath(w *bitio.Writer, n int32) {
	path := t.path[:0]
	for n != root {
		p := t.nodes[n].parent
		if t.nodes[p].right == n {
			path = append(path, 1)
		} else {
			path = append(path, 0)
		}
		n = p
	}
	for i := len(path) - 1; i >= 0; i-- {
		w.WriteBit(uint(path[i]))
	}
	t.path = path
}

// encode writes the code for symbol and updates the tree. A symbol that has
// not been seen yet is sent as the NYT code followed by its 8-bit value.
func (t *tree) encode(w *bitio.Writer, symbol int) {
	if leaf := t.leaves[symbol]; leaf != none {
		t.writePath(w, leaf)
		t.update(leaf)
		return
	}
	t.writePath(w, t.nyt)
	w.WriteByte(byte(symbol))
	t.update(t.addSymbol(symbol))
}
