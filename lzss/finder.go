package lzss

import "github.com/andybalholm/devil"

// MatchFinder is an implementation of the devil.MatchFinder interface that
// keeps the last 64 KiB of input (less the lookahead) in binary search trees,
// one per leading byte, and takes the longest match at each position.
//
// Matches are between minMatch+1 and maxMatch bytes long, and no more than
// windowSize-maxMatch bytes back. A match may overlap the bytes it
// produces, which is how runs are encoded.
//
// Each call to FindMatches works on a fresh window, so a MatchFinder has no
// state between calls and may be used from several goroutines at once.
type MatchFinder struct{}

// Reset does nothing; a MatchFinder holds no state between calls.
func (MatchFinder) Reset() {}

// FindMatches looks for matches in src, appends them to dst, and returns dst.
func (MatchFinder) FindMatches(dst []devil.Match, src []byte) []devil.Match {
	if len(src) == 0 {
		return dst
	}
	w := newWindow()

	s := 0
	r := windowSize - maxMatch
	length := copy(w.buf[r:r+maxMatch], src)
	next := length
	w.insert(r)

	unmatched := 0
	for length > 0 {
		if w.matchLen > length {
			w.matchLen = length
		}

		if w.matchLen <= minMatch {
			w.matchLen = 1
			unmatched++
		} else {
			dst = append(dst, devil.Match{
				Unmatched: unmatched,
				Length:    w.matchLen,
				Distance:  (r - w.matchPos) & windowMask,
			})
			unmatched = 0
		}

		// Slide the window past the bytes just covered, reading new input
		// into the slots that fall out of the history.
		advance := w.matchLen
		i := 0
		for ; i < advance && next < len(src); i++ {
			w.remove(s)
			w.setByte(s, src[next])
			next++
			s = (s + 1) & windowMask
			r = (r + 1) & windowMask
			w.insert(r)
		}
		for ; i < advance; i++ {
			w.remove(s)
			s = (s + 1) & windowMask
			r = (r + 1) & windowMask
			length--
			if length > 0 {
				w.insert(r)
			}
		}
	}

	if unmatched > 0 {
		dst = append(dst, devil.Match{Unmatched: unmatched})
	}
	return dst
}
