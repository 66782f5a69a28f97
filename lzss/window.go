package lzss

const (
	windowSize = 1 << 16
	windowMask = windowSize - 1

	// maxMatch is the longest match the format can express.
	maxMatch = 259

	// minMatch is the longest match that is still sent as literals.
	minMatch = 3

	// nilPos marks an empty tree link.
	nilPos = windowSize

	// Tree roots live after nilPos: the root for strings starting with
	// byte c is rootBase+c. A root only uses its right link.
	rootBase = windowSize + 1
	numLinks = rootBase + 256
)

// A window is the sliding dictionary used by the match finder, together
// with its search trees. Each window position is a node in the binary
// search tree for the byte at that position, ordered by the maxMatch-1
// bytes that follow it.
//
// A window holds about a megabyte of state, so it is allocated for one
// compression and thrown away; nothing in it is shared between calls.
type window struct {
	// buf has maxMatch-1 extra bytes that mirror the start of the ring, so
	// that a string starting near the end can be compared without wrapping.
	buf [windowSize + maxMatch - 1]byte

	parent [numLinks]int32
	left   [numLinks]int32
	right  [numLinks]int32

	// results of the last insert
	matchPos int
	matchLen int
}

func newWindow() *window {
	w := new(window)
	for i := range w.parent {
		w.parent[i] = nilPos
	}
	for i := rootBase; i < numLinks; i++ {
		w.right[i] = nilPos
	}
	return w
}

// setByte stores c at pos, keeping the mirror in step.
func (w *window) setByte(pos int, c byte) {
	w.buf[pos] = c
	if pos < maxMatch-1 {
		w.buf[pos+windowSize] = c
	}
}

// insert adds the string at r to its tree, and as it walks the tree records
// the longest match found in matchPos and matchLen. Among matches of equal
// length the first one met on the walk wins. If a string identical to r
// (for the full maxMatch bytes) is already in the tree, r takes its place,
// since r is the nearer of the two.
func (w *window) insert(r int) {
	cmp := 1
	p := rootBase + int(w.buf[r])
	w.left[r] = nilPos
	w.right[r] = nilPos
	w.matchLen = 0

	for {
		if cmp >= 0 {
			if w.right[p] == nilPos {
				w.right[p] = int32(r)
				w.parent[r] = int32(p)
				return
			}
			p = int(w.right[p])
		} else {
			if w.left[p] == nilPos {
				w.left[p] = int32(r)
				w.parent[r] = int32(p)
				return
			}
			p = int(w.left[p])
		}

		i := 1
		for ; i < maxMatch; i++ {
			cmp = int(w.buf[r+i]) - int(w.buf[p+i])
			if cmp != 0 {
				break
			}
		}
		if i > w.matchLen {
			w.matchPos = p
			w.matchLen = i
			if i >= maxMatch {
				break
			}
		}
	}

	// Replace p with r.
	w.parent[r] = w.parent[p]
	w.left[r] = w.left[p]
	w.right[r] = w.right[p]
	w.parent[w.left[p]] = int32(r)
	w.parent[w.right[p]] = int32(r)
	w.replaceChild(int(w.parent[p]), p, r)
	w.parent[p] = nilPos
}

// remove takes p out of its tree. Positions that were never inserted are
// ignored.
func (w *window) remove(p int) {
	if w.parent[p] == nilPos {
		return
	}

	var q int
	switch {
	case w.right[p] == nilPos:
		q = int(w.left[p])
	case w.left[p] == nilPos:
		q = int(w.right[p])
	default:
		// Replace p with its in-order predecessor.
		q = int(w.left[p])
		if w.right[q] != nilPos {
			for w.right[q] != nilPos {
				q = int(w.right[q])
			}
			w.right[w.parent[q]] = w.left[q]
			w.parent[w.left[q]] = w.parent[q]
			w.left[q] = w.left[p]
			w.parent[w.left[p]] = int32(q)
		}
		w.right[q] = w.right[p]
		w.parent[w.right[p]] = int32(q)
	}

	w.parent[q] = w.parent[p]
	w.replaceChild(int(w.parent[p]), p, q)
	w.parent[p] = nilPos
}

func (w *window) replaceChild(parent, old, new int) {
	if int(w.right[parent]) == old {
		w.right[parent] = int32(new)
	} else {
		w.left[parent] = int32(new)
	}
}
