package lzss

import (
	"encoding/binary"

	"github.com/andybalholm/devil"
)

// An Encoder implements the devil.Encoder interface, writing the LZSS token
// format:
//
//   - the length of the original data, as a 4-byte little-endian integer;
//   - groups of up to 8 tokens, each group preceded by a flag byte whose
//     bits, high bit first, tell whether the token is a literal (0) or a
//     match (1);
//   - a literal token is the byte itself; a match token is the distance
//     minus one as a 16-bit big-endian integer, then the length minus 4.
//
// Every call to Encode produces a complete stream; lastBlock is ignored.
// Matches shorter than 4 bytes are written as literals, and longer ones than
// maxMatch are split. Distances must be between 1 and 65536.
type Encoder struct{}

// Reset does nothing; an Encoder holds no state between calls.
func (Encoder) Reset() {}

func (Encoder) Encode(dst []byte, src []byte, matches []devil.Match, lastBlock bool) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(src)))
	tw := tokenWriter{dst: dst}

	pos := 0
	for _, m := range matches {
		for _, c := range src[pos : pos+m.Unmatched] {
			tw.literal(c)
		}
		pos += m.Unmatched

		if m.Length > 0 && (m.Distance < 1 || m.Distance > windowSize) {
			panic("lzss: match distance out of range")
		}
		length := m.Length
		for length > minMatch {
			n := length
			if n > maxMatch {
				n = maxMatch
				if length-n <= minMatch {
					// Leave enough for one more match token.
					n = length - minMatch - 1
				}
			}
			tw.match(m.Distance, n)
			length -= n
			pos += n
		}
		for ; length > 0; length-- {
			tw.literal(src[pos])
			pos++
		}
	}
	for _, c := range src[pos:] {
		tw.literal(c)
	}
	return tw.dst
}

// A tokenWriter packs tokens into flag groups. A group's flag byte is
// allocated when its first token is written, so there is never an empty
// trailing group.
type tokenWriter struct {
	dst  []byte
	flag int // index of the current flag byte in dst
	mask byte
}

func (tw *tokenWriter) next(isMatch bool) {
	if tw.mask == 0 {
		tw.flag = len(tw.dst)
		tw.dst = append(tw.dst, 0)
		tw.mask = 0x80
	}
	if isMatch {
		tw.dst[tw.flag] |= tw.mask
	}
	tw.mask >>= 1
}

func (tw *tokenWriter) literal(c byte) {
	tw.next(false)
	tw.dst = append(tw.dst, c)
}

func (tw *tokenWriter) match(distance, length int) {
	tw.next(true)
	d := distance - 1
	tw.dst = append(tw.dst, byte(d>>8), byte(d), byte(length-minMatch-1))
}
